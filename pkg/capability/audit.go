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
	"sync"
	"time"

	"github.com/google/uuid"
)

// schemaVersion is stamped into every audit event's metadata so a log
// aggregator can version-gate its parsing rules.
const schemaVersion = "1.0.0"

// AuditEvent is an immutable record of a capability-related decision.
// Events are never mutated or pruned once appended.
type AuditEvent struct {
	AuditID      string
	Timestamp    time.Time
	CapabilityID string
	Metadata     map[string]any
}

// auditLog is the append-only event store, guarded independently of the
// entry map so verification audits never contend with registration.
type auditLog struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (l *auditLog) append(capabilityID string, metadata map[string]any) AuditEvent {
	event := AuditEvent{
		AuditID:      uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		CapabilityID: capabilityID,
		Metadata:     metadata,
	}
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
	return event
}

// Snapshot returns a copy of the events recorded so far, in append order.
func (l *auditLog) Snapshot() []AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEvent, len(l.events))
	copy(out, l.events)
	return out
}

func (l *auditLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func stageOrUnknown(stage *Stage) string {
	if stage == nil {
		return "unknown"
	}
	return stage.String()
}
