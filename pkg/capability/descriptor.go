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
// Package capability implements the process-wide Capability Registry: the
// single authority that mediates every privileged effect (filesystem,
// process, native/LLVM escape hatches, metrics) the rest of the toolkit may
// want to exercise. Nothing in this package performs the effect itself —
// it registers, describes, and verifies who is allowed to, and it never
// forgets that it did so.
package capability

import (
	"fmt"
	"sort"
	"time"
)

// Stage is a capability's maturity level. Stages are totally ordered:
// Stable is the highest, Experimental the lowest.
type Stage int

const (
	StageExperimental Stage = iota
	StageAlpha
	StageBeta
	StageStable
)

// ParseStage converts a stage name to a Stage, matching the strings
// accepted by manifest files and RunConfig.
func ParseStage(s string) (Stage, error) {
	switch s {
	case "stable":
		return StageStable, nil
	case "beta":
		return StageBeta, nil
	case "alpha":
		return StageAlpha, nil
	case "experimental":
		return StageExperimental, nil
	default:
		return 0, fmt.Errorf("capability: unknown stage %q", s)
	}
}

func (s Stage) String() string {
	switch s {
	case StageStable:
		return "stable"
	case StageBeta:
		return "beta"
	case StageAlpha:
		return "alpha"
	case StageExperimental:
		return "experimental"
	default:
		return "unknown"
	}
}

// RequirementKind distinguishes an exact-stage requirement from a
// minimum-stage ("at least") requirement.
type RequirementKind int

const (
	RequireExact RequirementKind = iota
	RequireAtLeast
)

// StageRequirement is the caller's demand on a capability's stage, as
// passed to Registry.Verify.
type StageRequirement struct {
	Kind  RequirementKind
	Stage Stage
}

// Exact requires the descriptor's stage to equal s.
func Exact(s Stage) StageRequirement { return StageRequirement{Kind: RequireExact, Stage: s} }

// AtLeast requires the descriptor's stage to be s or more mature.
func AtLeast(s Stage) StageRequirement { return StageRequirement{Kind: RequireAtLeast, Stage: s} }

// Matches reports whether actual satisfies the requirement.
func (r StageRequirement) Matches(actual Stage) bool {
	switch r.Kind {
	case RequireExact:
		return actual == r.Stage
	case RequireAtLeast:
		return actual >= r.Stage
	default:
		return false
	}
}

// Label renders the requirement the way audit metadata expects it
// ("exact stable", "at least beta").
func (r StageRequirement) Label() string {
	switch r.Kind {
	case RequireExact:
		return "exact " + r.Stage.String()
	case RequireAtLeast:
		return "at least " + r.Stage.String()
	default:
		return "unknown"
	}
}

// tag renders the machine-readable form used in a few diagnostic fields
// ("exact_stable", "at_least_beta").
func (r StageRequirement) tag() string {
	switch r.Kind {
	case RequireExact:
		return "exact_" + r.Stage.String()
	case RequireAtLeast:
		return "at_least_" + r.Stage.String()
	default:
		return "unknown"
	}
}

// ProviderKind is the discriminant of a capability's provider.
type ProviderKind string

const (
	ProviderCore            ProviderKind = "core"
	ProviderPlugin          ProviderKind = "plugin"
	ProviderBridge          ProviderKind = "bridge"
	ProviderRuntimeComponent ProviderKind = "runtime"
)

// Provider identifies who backs a capability: the core runtime itself, a
// plugin package, an external bridge, or a named runtime component.
type Provider struct {
	Kind    ProviderKind
	Name    string // package name (plugin) or bridge/component name
	Version string // optional, plugin/bridge only
}

// CoreProvider is the provider value every built-in capability carries.
func CoreProvider() Provider { return Provider{Kind: ProviderCore} }

// PluginProvider describes a capability backed by a named plugin package.
func PluginProvider(pkg, version string) Provider {
	return Provider{Kind: ProviderPlugin, Name: pkg, Version: version}
}

// Format renders the provider the way audit metadata's `capability.provider`
// field expects ("core", "plugin:name@version", "plugin:name", "bridge:name",
// "runtime:name").
func (p Provider) Format() string {
	switch p.Kind {
	case ProviderCore:
		return "core"
	case ProviderPlugin:
		if p.Version != "" {
			return fmt.Sprintf("plugin:%s@%s", p.Name, p.Version)
		}
		return fmt.Sprintf("plugin:%s", p.Name)
	case ProviderBridge:
		if p.Version != "" {
			return fmt.Sprintf("bridge:%s@%s", p.Name, p.Version)
		}
		return fmt.Sprintf("bridge:%s", p.Name)
	case ProviderRuntimeComponent:
		return fmt.Sprintf("runtime:%s", p.Name)
	default:
		return "unknown"
	}
}

// EffectSet is the (small, usually under a dozen entries) set of effect
// tags a capability attests to provide.
type EffectSet map[string]struct{}

// NewEffectSet builds a set from a tag list.
func NewEffectSet(tags ...string) EffectSet {
	s := make(EffectSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Contains reports whether tag is in the set.
func (s EffectSet) Contains(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Slice returns the set's members in sorted order, for deterministic
// audit-log serialization.
func (s EffectSet) Slice() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// missingEffects returns the required tags absent from actual, or nil if
// required is a subset of actual (including the vacuous case required
// is empty).
func missingEffects(required []string, actual EffectSet) []string {
	var missing []string
	for _, tag := range required {
		if !actual.Contains(tag) {
			missing = append(missing, tag)
		}
	}
	return missing
}

// SecurityBlock is the mutable companion to a Descriptor: metadata that
// can change without the capability's identity changing.
type SecurityBlock struct {
	AuditRequired  bool
	IsolationLevel string
	Permissions    []string
	Policy         string
	SandboxProfile string
	Signature      string
}

// Descriptor is a capability's full identity plus its current mutable
// metadata. Descriptors are value types; the registry hands out struct
// copies, so reassigning a returned Descriptor's fields never changes
// registry state. The copy is shallow: EffectScope is the same map the
// registry's entry holds.
type Descriptor struct {
	ID             string
	Stage          Stage
	EffectScope    EffectSet
	Provider       Provider
	LastVerifiedAt time.Time
	Security       SecurityBlock
}

// NewDescriptor builds a Descriptor with the given identity. LastVerifiedAt
// is left zero until the first successful Verify.
func NewDescriptor(id string, stage Stage, effects []string, provider Provider) Descriptor {
	return Descriptor{
		ID:          id,
		Stage:       stage,
		EffectScope: NewEffectSet(effects...),
		Provider:    provider,
	}
}
