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
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// ContractSpan is the source span of a capability requirement inside the
// workspace manifest that declared it.
type ContractSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ContractRequirement is one capability demand inside a conductor contract:
// the id, the stage the caller insists on, the effects the caller declares
// it will exercise, and where in the manifest the declaration came from.
type ContractRequirement struct {
	ID              string
	Stage           StageRequirement
	DeclaredEffects []string
	SourceSpan      ContractSpan
}

// ConductorContract bundles the requirements a conductor (the workspace
// driver) asserts against the registry, optionally pinned to an on-disk
// manifest whose entries must agree with the contract.
type ConductorContract struct {
	ManifestPath string
	Requirements []ContractRequirement
}

// manifestEntry mirrors one entry of the on-disk capability manifest.
type manifestEntry struct {
	Stage           string       `json:"stage"`
	DeclaredEffects []string     `json:"declared_effects"`
	SourceSpan      ContractSpan `json:"source_span"`
}

type manifestDocument struct {
	Capabilities map[string]manifestEntry `json:"capabilities"`
}

// manifestSchema is validated against the manifest document before any
// field-by-field comparison runs, so a malformed manifest surfaces as one
// ManifestLoadFailure instead of a cascade of confusing ContractViolations.
const manifestSchema = `{
  "type": "object",
  "required": ["capabilities"],
  "properties": {
    "capabilities": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["stage", "declared_effects"],
        "properties": {
          "stage": {"enum": ["stable", "beta", "alpha", "experimental"]},
          "declared_effects": {"type": "array", "items": {"type": "string"}},
          "source_span": {
            "type": "object",
            "properties": {
              "start": {"type": "integer", "minimum": 0},
              "end": {"type": "integer", "minimum": 0}
            }
          }
        }
      }
    }
  }
}`

func loadManifest(path string) (*manifestDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errManifestLoadFailure(path, err)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(manifestSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, errManifestLoadFailure(path, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		sort.Strings(msgs)
		return nil, errManifestLoadFailure(path, fmt.Errorf("schema validation: %v", msgs))
	}
	var doc manifestDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errManifestLoadFailure(path, err)
	}
	return &doc, nil
}

// VerifyConductorContract loads the contract's manifest (when a path is
// given), then runs Verify for every requirement and additionally asserts
// the manifest entry's stage, declared-effect set, and source span match
// the contract. The first mismatch aborts with a ContractViolation carrying
// the manifest path and span.
func (r *Registry) VerifyConductorContract(contract ConductorContract) error {
	var manifest *manifestDocument
	if contract.ManifestPath != "" {
		doc, err := loadManifest(contract.ManifestPath)
		if err != nil {
			return err
		}
		manifest = doc
	}

	for _, req := range contract.Requirements {
		handle, err := r.Verify(req.ID, req.Stage, req.DeclaredEffects)
		if err != nil {
			return err
		}
		if manifest != nil {
			if err := ensureManifestAlignment(req, handle.Descriptor, manifest, contract.ManifestPath); err != nil {
				r.recordContract(req.ID, contract.ManifestPath, err)
				return err
			}
		}
	}
	if len(contract.Requirements) > 0 {
		r.recordContract("", contract.ManifestPath, nil)
	}
	return nil
}

// recordContract appends the audit event for a manifest-contract check,
// pinning the config.manifest.* metadata keys on failure.
func (r *Registry) recordContract(id, manifestPath string, outcome error) {
	metadata := map[string]any{
		"schema.version": schemaVersion,
		"event.kind":     "capability.contract",
		"event.domain":   "runtime.capability",
	}
	if id != "" {
		metadata["capability.id"] = id
		metadata["capability.ids"] = []string{id}
	}
	if manifestPath != "" {
		metadata["config.manifest.path"] = manifestPath
	}
	if outcome == nil {
		metadata["capability.result"] = "success"
	} else {
		metadata["capability.result"] = "error"
		if capErr, ok := outcome.(*Error); ok {
			metadata["capability.error.code"] = string(capErr.Code)
			metadata["capability.error.message"] = capErr.Message
			if capErr.Span != nil {
				metadata["config.manifest.span.start"] = capErr.Span.Start
				metadata["config.manifest.span.end"] = capErr.Span.End
			}
		}
	}
	event := r.audit.append(id, metadata)
	r.notify(event)
}

func ensureManifestAlignment(req ContractRequirement, descriptor Descriptor, manifest *manifestDocument, path string) error {
	entry, ok := manifest.Capabilities[req.ID]
	if !ok {
		err := errContractViolation(req.ID, path,
			fmt.Sprintf("manifest entry for capability %q is missing", req.ID))
		err.Descriptor = &descriptor
		err.Span = &req.SourceSpan
		return err
	}

	entryStage, stageErr := ParseStage(entry.Stage)
	if stageErr != nil || !req.Stage.Matches(entryStage) {
		err := errContractViolation(req.ID, path,
			fmt.Sprintf("manifest stage %s does not match contract stage %s for %q",
				entry.Stage, req.Stage.Label(), req.ID))
		err.Descriptor = &descriptor
		err.Span = &entry.SourceSpan
		return err
	}

	declared := NewEffectSet(entry.DeclaredEffects...)
	required := NewEffectSet(req.DeclaredEffects...)
	if !effectSetsEqual(declared, required) {
		missing := diffEffects(required, declared)
		extra := diffEffects(declared, required)
		err := errContractViolation(req.ID, path,
			fmt.Sprintf("declared effects mismatch for %q: missing=%v extra=%v", req.ID, missing, extra))
		err.Descriptor = &descriptor
		err.MissingEffects = missing
		err.Span = &entry.SourceSpan
		return err
	}

	if entry.SourceSpan != req.SourceSpan {
		err := errContractViolation(req.ID, path,
			fmt.Sprintf("source span mismatch for %q: manifest=%d..%d, contract=%d..%d",
				req.ID, entry.SourceSpan.Start, entry.SourceSpan.End,
				req.SourceSpan.Start, req.SourceSpan.End))
		err.Descriptor = &descriptor
		err.Span = &entry.SourceSpan
		return err
	}
	return nil
}

func effectSetsEqual(a, b EffectSet) bool {
	if len(a) != len(b) {
		return false
	}
	for tag := range a {
		if !b.Contains(tag) {
			return false
		}
	}
	return true
}

// diffEffects returns the members of a absent from b, sorted.
func diffEffects(a, b EffectSet) []string {
	var out []string
	for tag := range a {
		if !b.Contains(tag) {
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}
