// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package capability

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandle(id string, stage Stage, effects ...string) Handle {
	return Handle{Descriptor: NewDescriptor(id, stage, effects, CoreProvider()), Kind: KindIO}
}

func TestRegisterPreservesInsertionOrder(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testHandle("b.cap", StageStable)))
	require.NoError(t, r.Register(testHandle("a.cap", StageStable)))
	require.NoError(t, r.Register(testHandle("c.cap", StageStable)))

	descriptors := r.DescribeAll()
	require.Len(t, descriptors, 3)
	assert.Equal(t, "b.cap", descriptors[0].ID)
	assert.Equal(t, "a.cap", descriptors[1].ID)
	assert.Equal(t, "c.cap", descriptors[2].ID)
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testHandle("dup.cap", StageStable)))
	err := r.Register(testHandle("dup.cap", StageStable))
	require.Error(t, err)
	capErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrAlreadyRegistered, capErr.Code)
}

func TestUnregisterUnknownFails(t *testing.T) {
	r := New()
	err := r.Unregister("missing.cap")
	require.Error(t, err)
	assert.Equal(t, ErrNotRegistered, err.(*Error).Code)
}

func TestVerifyStageAtLeast(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testHandle("beta.cap", StageBeta)))

	_, err := r.Verify("beta.cap", AtLeast(StageExperimental), nil)
	assert.NoError(t, err, "beta satisfies at-least experimental")
	_, err = r.Verify("beta.cap", AtLeast(StageBeta), nil)
	assert.NoError(t, err, "beta satisfies at-least beta")
	_, err = r.Verify("beta.cap", AtLeast(StageStable), nil)
	require.Error(t, err, "beta does not satisfy at-least stable")
	capErr := err.(*Error)
	assert.Equal(t, ErrStageViolation, capErr.Code)
	assert.Equal(t, "capability.stage.mismatch", string(capErr.Code))
}

func TestVerifyAppendsExactlyOneAuditEvent(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testHandle("audited.cap", StageStable, "io")))
	before := len(r.AuditLog())

	_, err := r.Verify("audited.cap", AtLeast(StageStable), []string{"io"})
	require.NoError(t, err)
	assert.Equal(t, before+1, len(r.AuditLog()), "success appends one event")

	_, err = r.Verify("audited.cap", AtLeast(StageStable), []string{"net"})
	require.Error(t, err)
	assert.Equal(t, before+2, len(r.AuditLog()), "failure appends one event too")
}

func TestVerifyEffectScopeMismatch(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testHandle("scoped.cap", StageStable)))

	// empty scope + empty requirement is vacuously fine
	_, err := r.Verify("scoped.cap", AtLeast(StageExperimental), nil)
	assert.NoError(t, err)

	// empty scope + non-empty requirement reports the whole list missing
	_, err = r.Verify("scoped.cap", AtLeast(StageExperimental), []string{"io", "net"})
	require.Error(t, err)
	capErr := err.(*Error)
	assert.Equal(t, ErrEffectScopeMismatch, capErr.Code)
	assert.ElementsMatch(t, []string{"io", "net"}, capErr.MissingEffects)
}

func TestVerifyAuditMetadataOnFailure(t *testing.T) {
	r := New()
	r.Bootstrap()

	_, err := r.Verify("native.inline_asm", AtLeast(StageStable), []string{"native"})
	require.Error(t, err)
	assert.Equal(t, ErrStageViolation, err.(*Error).Code)

	events := r.AuditLog()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "capability.check", last.Metadata["event.kind"])
	assert.Equal(t, "error", last.Metadata["capability.result"])
	assert.Equal(t, "capability.stage.mismatch", last.Metadata["capability.error.code"])
	assert.Equal(t, "native.inline_asm", last.Metadata["capability.id"])
	assert.Equal(t, "at least stable", last.Metadata["effect.stage.required"])
	assert.Equal(t, "experimental", last.Metadata["effect.stage.actual"])
}

func TestVerifyUpdatesLastVerifiedAt(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testHandle("touched.cap", StageStable)))
	before, err := r.Describe("touched.cap")
	require.NoError(t, err)
	assert.True(t, before.LastVerifiedAt.IsZero())

	_, err = r.Verify("touched.cap", AtLeast(StageExperimental), nil)
	require.NoError(t, err)
	after, err := r.Describe("touched.cap")
	require.NoError(t, err)
	assert.False(t, after.LastVerifiedAt.IsZero())
}

func TestBootstrapRoster(t *testing.T) {
	r := New()
	r.Bootstrap()

	for _, id := range []string{
		"io.fs.read", "io.fs.write", "fs.watcher.native", "fs.watcher.recursive",
		"memory.buffered_io", "security.fs.policy",
		"core.process", "core.signal", "core.system",
		"core.time.timezone.lookup", "core.time.timezone.local",
		"core.collections.ref", "core.collections.audit",
		"metrics.emit", "native.inline_asm", "native.llvm_ir",
	} {
		_, err := r.Get(id)
		assert.NoError(t, err, "bootstrap capability %s should exist", id)
	}

	process, err := r.Describe("core.process")
	require.NoError(t, err)
	assert.Equal(t, StageExperimental, process.Stage)

	// bootstrapping twice is harmless
	r.Bootstrap()
	_, err = r.Get("io.fs.read")
	assert.NoError(t, err)
}

func TestRegisterPlugin(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterPlugin("plugin.cap", StageAlpha, []string{"io"}, PluginMetadata{
		Package: "acme/widgets",
		Version: "1.2.3",
	}))

	handle, err := r.Get("plugin.cap")
	require.NoError(t, err)
	assert.Equal(t, KindPlugin, handle.Kind)
	assert.Equal(t, ProviderPlugin, handle.Descriptor.Provider.Kind)
	assert.Equal(t, "plugin:acme/widgets@1.2.3", handle.Descriptor.Provider.Format())
	assert.Equal(t, "acme/widgets", handle.MetadataString("plugin.package"))
}

func TestConcurrentVerify(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testHandle("hot.cap", StageStable, "io")))
	before := len(r.AuditLog())

	var wg sync.WaitGroup
	const workers = 16
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Verify("hot.cap", AtLeast(StageStable), []string{"io"})
		}()
	}
	wg.Wait()
	assert.Equal(t, before+workers, len(r.AuditLog()), "each verification appends its own event")
}

func TestGlobalSeedsOnce(t *testing.T) {
	first := Global()
	second := Global()
	assert.Same(t, first, second)
	_, err := first.Get("io.fs.read")
	assert.NoError(t, err)
}

const testManifest = `{
  "capabilities": {
    "io.fs.read": {
      "stage": "stable",
      "declared_effects": ["io", "fs.read"],
      "source_span": {"start": 10, "end": 42}
    }
  }
}`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capabilities.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestVerifyConductorContractAligned(t *testing.T) {
	r := New()
	r.Bootstrap()
	path := writeManifest(t, testManifest)

	err := r.VerifyConductorContract(ConductorContract{
		ManifestPath: path,
		Requirements: []ContractRequirement{{
			ID:              "io.fs.read",
			Stage:           AtLeast(StageStable),
			DeclaredEffects: []string{"io", "fs.read"},
			SourceSpan:      ContractSpan{Start: 10, End: 42},
		}},
	})
	assert.NoError(t, err)
}

func TestVerifyConductorContractSpanMismatch(t *testing.T) {
	r := New()
	r.Bootstrap()
	path := writeManifest(t, testManifest)

	err := r.VerifyConductorContract(ConductorContract{
		ManifestPath: path,
		Requirements: []ContractRequirement{{
			ID:              "io.fs.read",
			Stage:           AtLeast(StageStable),
			DeclaredEffects: []string{"io", "fs.read"},
			SourceSpan:      ContractSpan{Start: 1, End: 2},
		}},
	})
	require.Error(t, err)
	capErr := err.(*Error)
	assert.Equal(t, ErrContractViolation, capErr.Code)
	assert.Equal(t, path, capErr.ManifestPath)
}

func TestVerifyConductorContractEffectMismatch(t *testing.T) {
	r := New()
	r.Bootstrap()
	path := writeManifest(t, testManifest)

	err := r.VerifyConductorContract(ConductorContract{
		ManifestPath: path,
		Requirements: []ContractRequirement{{
			ID:              "io.fs.read",
			Stage:           AtLeast(StageStable),
			DeclaredEffects: []string{"io"},
			SourceSpan:      ContractSpan{Start: 10, End: 42},
		}},
	})
	require.Error(t, err)
	assert.Equal(t, ErrContractViolation, err.(*Error).Code)
}

func TestVerifyConductorContractMissingEntry(t *testing.T) {
	r := New()
	r.Bootstrap()
	path := writeManifest(t, testManifest)

	err := r.VerifyConductorContract(ConductorContract{
		ManifestPath: path,
		Requirements: []ContractRequirement{{
			ID:              "io.fs.write",
			Stage:           AtLeast(StageStable),
			DeclaredEffects: []string{"io", "fs.write", "mem"},
		}},
	})
	require.Error(t, err)
	assert.Equal(t, ErrContractViolation, err.(*Error).Code)
}

func TestVerifyConductorContractBadManifest(t *testing.T) {
	r := New()
	r.Bootstrap()
	path := writeManifest(t, `{"capabilities": {"io.fs.read": {"stage": "bogus", "declared_effects": []}}}`)

	err := r.VerifyConductorContract(ConductorContract{
		ManifestPath: path,
		Requirements: []ContractRequirement{{
			ID:    "io.fs.read",
			Stage: AtLeast(StageStable),
		}},
	})
	require.Error(t, err)
	assert.Equal(t, ErrManifestLoadFailure, err.(*Error).Code)
}

func TestStageParsingRoundTrip(t *testing.T) {
	for _, name := range []string{"stable", "beta", "alpha", "experimental"} {
		stage, err := ParseStage(name)
		require.NoError(t, err)
		assert.Equal(t, name, stage.String())
	}
	_, err := ParseStage("nightly")
	assert.Error(t, err)
}
