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

import "fmt"

// ErrorCode is a stable, machine-readable error identifier. Downstream
// diagnostics attach it verbatim, so these strings are load-bearing API.
type ErrorCode string

const (
	ErrAlreadyRegistered   ErrorCode = "runtime.capability.already_registered"
	ErrNotRegistered       ErrorCode = "runtime.capability.unknown"
	ErrStageViolation      ErrorCode = "capability.stage.mismatch"
	ErrEffectScopeMismatch ErrorCode = "capability.effect_scope.mismatch"
	ErrContractViolation   ErrorCode = "config.manifest.capability_contract"
	ErrManifestLoadFailure ErrorCode = "config.manifest.capability_contract"
)

// Error is the registry's single error type. Every operation that can fail
// returns one of these (wrapped behind the error interface), carrying the
// stable code, a human message, and — when available — the offending
// descriptor snapshot, so a caller can attach it to a diagnostic without
// re-querying the registry.
type Error struct {
	Code           ErrorCode
	Message        string
	CapabilityID   string
	Descriptor     *Descriptor
	Required       StageRequirement
	ActualStage    *Stage
	MissingEffects []string
	ManifestPath   string
	Span           *ContractSpan
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errAlreadyRegistered(id string) *Error {
	return &Error{
		Code:         ErrAlreadyRegistered,
		Message:      fmt.Sprintf("capability %q is already registered", id),
		CapabilityID: id,
	}
}

func errNotRegistered(id string) *Error {
	return &Error{
		Code:         ErrNotRegistered,
		Message:      fmt.Sprintf("capability %q is not registered", id),
		CapabilityID: id,
	}
}

func errStageViolation(id string, req StageRequirement, actual Stage, desc *Descriptor) *Error {
	return &Error{
		Code:         ErrStageViolation,
		Message:      fmt.Sprintf("capability %q requires stage %s but is %s", id, req.Label(), actual),
		CapabilityID: id,
		Descriptor:   desc,
		Required:     req,
		ActualStage:  &actual,
	}
}

func errEffectScopeMismatch(id string, req StageRequirement, actual Stage, desc *Descriptor, missing []string) *Error {
	return &Error{
		Code:           ErrEffectScopeMismatch,
		Message:        fmt.Sprintf("capability %q is missing required effects %v", id, missing),
		CapabilityID:   id,
		Descriptor:     desc,
		Required:       req,
		ActualStage:    &actual,
		MissingEffects: missing,
	}
}

func errContractViolation(id, manifestPath, reason string) *Error {
	return &Error{
		Code:         ErrContractViolation,
		Message:      fmt.Sprintf("manifest contract violation for %q: %s", id, reason),
		CapabilityID: id,
		ManifestPath: manifestPath,
	}
}

func errManifestLoadFailure(path string, cause error) *Error {
	msg := fmt.Sprintf("failed to load capability manifest %q", path)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &Error{
		Code:         ErrManifestLoadFailure,
		Message:      msg,
		ManifestPath: path,
	}
}
