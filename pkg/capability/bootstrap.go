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

// bootstrapHandles builds the fixed roster of built-in capabilities a fresh
// registry pre-populates on first access. The roster is fixed; the tests
// depend on every one of these ids being registered.
func bootstrapHandles() []Handle {
	io := func(id string, stage Stage, effects []string, adapters, operations []string, async bool) Handle {
		return Handle{
			Descriptor: NewDescriptor(id, stage, effects, CoreProvider()),
			Kind:       KindIO,
			Metadata: map[string]any{
				"adapters":       adapters,
				"operations":     operations,
				"supports_async": async,
			},
		}
	}
	core := func(kind Kind, id string, stage Stage, effects []string) Handle {
		return Handle{Descriptor: NewDescriptor(id, stage, effects, CoreProvider()), Kind: kind}
	}

	return []Handle{
		io("io.fs.read", StageStable, []string{"io", "fs.read"},
			[]string{"filesystem"}, []string{"read"}, false),
		io("io.fs.write", StageStable, []string{"io", "fs.write", "mem"},
			[]string{"filesystem"}, []string{"write"}, false),
		io("fs.permissions.read", StageStable, []string{"io", "security"},
			[]string{"filesystem"}, []string{"metadata"}, false),
		io("fs.permissions.modify", StageStable, []string{"io", "security"},
			[]string{"filesystem"}, []string{"metadata"}, false),
		io("fs.symlink.query", StageStable, []string{"io", "fs.symlink"},
			[]string{"filesystem"}, []string{"symlink"}, false),
		io("fs.symlink.modify", StageStable, []string{"io", "fs.symlink", "security"},
			[]string{"filesystem"}, []string{"symlink"}, false),
		io("fs.watcher.native", StageStable, []string{"io", "watcher"},
			[]string{"watcher"}, []string{"watcher"}, true),
		io("fs.watcher.recursive", StageStable, []string{"io", "watcher"},
			[]string{"watcher"}, []string{"watcher"}, true),
		io("watcher.resource_limits", StageStable, []string{"io", "watcher"},
			[]string{"watcher"}, []string{"watcher"}, true),
		core(KindMemory, "memory.buffered_io", StageStable, []string{"mem"}),
		core(KindSecurity, "security.fs.policy", StageStable, []string{"security"}),
		core(KindProcess, "core.process", StageExperimental,
			[]string{"process", "thread", "io.blocking", "signal", "hardware", "security"}),
		core(KindSignal, "core.signal", StageExperimental,
			[]string{"signal", "process", "unsafe", "audit", "security", "io.blocking"}),
		core(KindSystem, "core.system", StageExperimental,
			[]string{"syscall", "unsafe", "audit", "security", "memory"}),
		core(KindRealtime, "core.time.timezone.lookup", StageBeta, []string{"time"}),
		core(KindRealtime, "core.time.timezone.local", StageBeta, []string{"time"}),
		core(KindCollections, "core.collections.ref", StageStable, []string{"mem"}),
		core(KindAudit, "core.collections.audit", StageStable, []string{"audit", "mem"}),
		metricsHandle("metrics.emit", StageStable, []string{"audit"}),
		core(KindNative, "native.inline_asm", StageExperimental, []string{"native", "audit", "unsafe"}),
		core(KindNative, "native.llvm_ir", StageExperimental, []string{"native", "audit", "unsafe"}),
	}
}

// Bootstrap populates the registry with the built-in roster. Bootstrapping
// twice is harmless: AlreadyRegistered errors from the second pass are
// discarded.
func (r *Registry) Bootstrap() {
	for _, h := range bootstrapHandles() {
		_ = r.Register(h)
	}
}
