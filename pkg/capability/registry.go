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
	"sort"
	"sync"
	"time"
)

// Observer is notified after every audit event is appended. The metrics
// exporter (see metrics.go) is the built-in observer; callers may attach
// their own via Registry.AddObserver for ad hoc instrumentation.
type Observer interface {
	ObserveAudit(event AuditEvent)
}

type entry struct {
	descriptor Descriptor
	handle     Handle
}

// Registry is a concurrent map from capability id to (descriptor, handle)
// plus an insertion-ordered key list and an append-only audit log. One
// coarse reader-writer lock guards the entry map; the audit log has its
// own lock, so verification traffic never contends with registration
// traffic more than necessary. Readers never block readers.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	order   []string

	audit auditLog

	obsMu     sync.Mutex
	observers []Observer
}

// New constructs an empty registry. Most callers want Global instead,
// which also seeds the built-in capability roster.
func New() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// AddObserver registers an audit observer. Observers run synchronously,
// after the event is appended to the log, inside the caller's goroutine.
func (r *Registry) AddObserver(o Observer) {
	r.obsMu.Lock()
	r.observers = append(r.observers, o)
	r.obsMu.Unlock()
}

func (r *Registry) notify(event AuditEvent) {
	r.obsMu.Lock()
	obs := append([]Observer(nil), r.observers...)
	r.obsMu.Unlock()
	for _, o := range obs {
		o.ObserveAudit(event)
	}
}

// Register inserts handle iff its descriptor's id is free, preserving
// insertion order for later enumeration.
func (r *Registry) Register(h Handle) error {
	id := h.Descriptor.ID
	r.mu.Lock()
	if _, exists := r.entries[id]; exists {
		r.mu.Unlock()
		return errAlreadyRegistered(id)
	}
	r.entries[id] = entry{descriptor: h.Descriptor, handle: h}
	r.order = append(r.order, id)
	r.mu.Unlock()
	r.recordRegistration(h)
	return nil
}

// recordRegistration appends the audit event for a successful registration.
// Runs outside the entry lock so observers may re-enter the registry.
func (r *Registry) recordRegistration(h Handle) {
	metadata := map[string]any{
		"schema.version":           schemaVersion,
		"event.kind":               "capability.register",
		"event.domain":             "runtime.capability",
		"capability.id":            h.Descriptor.ID,
		"capability.ids":           []string{h.Descriptor.ID},
		"capability.provider":      h.Descriptor.Provider.Format(),
		"capability.provider.kind": string(h.Descriptor.Provider.Kind),
		"capability.result":        "success",
		"effect.stage.actual":      h.Descriptor.Stage.String(),
	}
	if len(h.Descriptor.EffectScope) > 0 {
		metadata["effect.actual_effects"] = h.Descriptor.EffectScope.Slice()
	}
	event := r.audit.append(h.Descriptor.ID, metadata)
	r.notify(event)
}

// Unregister removes a capability by id.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; !exists {
		return errNotRegistered(id)
	}
	delete(r.entries, id)
	for i, key := range r.order {
		if key == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// PluginMetadata is the convenience payload for RegisterPlugin.
type PluginMetadata struct {
	Package string
	Version string
	Extra   map[string]any
}

// RegisterPlugin synthesises a descriptor with a plugin provider and
// registers it — the shortcut a plugin loader reaches for instead of
// building a Handle by hand.
func (r *Registry) RegisterPlugin(id string, stage Stage, effects []string, meta PluginMetadata) error {
	descriptor := NewDescriptor(id, stage, effects, PluginProvider(meta.Package, meta.Version))
	metadata := map[string]any{"plugin.package": meta.Package, "plugin.version": meta.Version}
	for k, v := range meta.Extra {
		metadata[k] = v
	}
	return r.Register(Handle{Descriptor: descriptor, Kind: KindPlugin, Metadata: metadata})
}

// Get returns the handle registered under id.
func (r *Registry) Get(id string) (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return Handle{}, errNotRegistered(id)
	}
	return e.handle, nil
}

// Describe returns a snapshot of the descriptor registered under id.
func (r *Registry) Describe(id string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return Descriptor{}, errNotRegistered(id)
	}
	return e.descriptor, nil
}

// DescribeAll enumerates every registered descriptor in registration order.
func (r *Registry) DescribeAll() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].descriptor)
	}
	return out
}

// HandlesAll enumerates every registered handle in registration order.
func (r *Registry) HandlesAll() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handle, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].handle)
	}
	return out
}

// AuditLog returns a snapshot of every audit event recorded so far, in
// append order.
func (r *Registry) AuditLog() []AuditEvent {
	return r.audit.Snapshot()
}

// Verify resolves id, checks its stage against requirement, computes the
// effect tags missing from its scope, and records exactly one audit event
// regardless of outcome. On success the descriptor's LastVerifiedAt is
// updated.
func (r *Registry) Verify(id string, requirement StageRequirement, requiredEffects []string) (Handle, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		err := errNotRegistered(id)
		r.recordCheck(id, requirement, nil, nil, requiredEffects, err)
		return Handle{}, err
	}

	descriptor := e.descriptor
	actual := descriptor.Stage
	if !requirement.Matches(actual) {
		err := errStageViolation(id, requirement, actual, &descriptor)
		r.recordCheck(id, requirement, &actual, &descriptor, requiredEffects, err)
		return Handle{}, err
	}
	if missing := missingEffects(requiredEffects, descriptor.EffectScope); len(missing) > 0 {
		err := errEffectScopeMismatch(id, requirement, actual, &descriptor, missing)
		r.recordCheck(id, requirement, &actual, &descriptor, requiredEffects, err)
		return Handle{}, err
	}

	r.recordCheck(id, requirement, &actual, &descriptor, requiredEffects, nil)
	r.touchLastVerified(id)

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id].handle, nil
}

func (r *Registry) touchLastVerified(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return
	}
	e.descriptor.LastVerifiedAt = time.Now().UTC()
	r.entries[id] = e
}

// recordCheck builds and appends the audit event for a single verification,
// pinning the metadata keys documented as part of the capability API
// surface, then notifies any attached observers.
func (r *Registry) recordCheck(id string, requirement StageRequirement, actual *Stage, descriptor *Descriptor, requiredEffects []string, outcome error) {
	metadata := map[string]any{
		"schema.version":                   schemaVersion,
		"event.kind":                       "capability.check",
		"event.domain":                     "runtime.capability",
		"capability.id":                    id,
		"capability.ids":                   []string{id},
		"effect.capability":                id,
		"effect.stage.required":            requirement.Label(),
		"effect.stage.actual":              stageOrUnknown(actual),
		"effect.required_capabilities":     []string{id},
		"effect.stage.required_capabilities": []string{id},
		"effect.actual_capabilities":       []string{id},
		"effect.stage.actual_capabilities": []string{id},
	}
	if len(requiredEffects) > 0 {
		metadata["effect.required_effects"] = append([]string(nil), requiredEffects...)
	}
	if descriptor != nil {
		metadata["effect.capability_descriptor"] = descriptor
		metadata["capability.provider"] = descriptor.Provider.Format()
		metadata["capability.provider.kind"] = string(descriptor.Provider.Kind)
		if descriptor.Provider.Kind == ProviderPlugin {
			metadata["plugin.package"] = descriptor.Provider.Name
			if descriptor.Provider.Version != "" {
				metadata["plugin.version"] = descriptor.Provider.Version
			}
		}
		if len(descriptor.EffectScope) > 0 {
			metadata["effect.actual_effects"] = descriptor.EffectScope.Slice()
		}
	}
	if outcome == nil {
		metadata["capability.result"] = "success"
	} else {
		metadata["capability.result"] = "error"
		if capErr, ok := outcome.(*Error); ok {
			metadata["capability.error.code"] = string(capErr.Code)
			metadata["capability.error.message"] = capErr.Message
			if len(capErr.MissingEffects) > 0 {
				sorted := append([]string(nil), capErr.MissingEffects...)
				sort.Strings(sorted)
				metadata["effect.missing_effects"] = sorted
			}
		}
	}

	event := r.audit.append(id, metadata)
	r.notify(event)
}
