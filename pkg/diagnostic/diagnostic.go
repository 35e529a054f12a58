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
// Package diagnostic defines the structured diagnostic envelope shared by
// the parser engine and the lowerer. Every diagnostic that crosses a
// package boundary is one of these; free-form error strings stop at the
// package that produced them.
package diagnostic

import (
	"encoding/json"
	"time"
)

// SchemaVersion is stamped into every envelope so downstream consumers can
// version-gate their parsing rules.
const SchemaVersion = "1.0.0"

// Severity of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Recoverability says whether the producer kept going after emitting this.
type Recoverability string

const (
	Recoverable Recoverability = "recoverable"
	Fatal       Recoverability = "fatal"
)

// Position is a byte/line/column triple into the source.
type Position struct {
	Byte   int `json:"byte"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Span is a half-open source range.
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Note is an ordered annotation under the primary message.
type Note struct {
	Message string `json:"message"`
	Span    *Span  `json:"span,omitempty"`
}

// FixIt is a structured edit suggestion. The only kind currently produced
// is "insert_token".
type FixIt struct {
	Kind  string `json:"kind"`
	Token string `json:"token"`
}

// InsertToken builds the insert-token fix-it.
func InsertToken(token string) FixIt {
	return FixIt{Kind: "insert_token", Token: token}
}

// Diagnostic is the envelope every diagnostic travels in. Extensions holds
// namespaced sub-objects (recover, parse, runconfig, effects, pattern, dsl,
// cfg, unicode, ...) that only specific consumers interpret.
type Diagnostic struct {
	SchemaVersion  string         `json:"schema_version"`
	Timestamp      time.Time      `json:"timestamp"`
	Message        string         `json:"message"`
	Severity       Severity       `json:"severity"`
	Domain         string         `json:"domain"`
	Code           string         `json:"code"`
	Primary        string         `json:"primary"`
	Location       *Span          `json:"location,omitempty"`
	Notes          []Note         `json:"notes"`
	Secondary      []Note         `json:"secondary"`
	Hints          []string       `json:"hints"`
	FixIts         []FixIt        `json:"fixits"`
	Recoverability Recoverability `json:"recoverability"`
	Extensions     map[string]any `json:"extensions"`
}

// New builds an envelope with the schema version, timestamp, and empty
// collections filled in. Collections are non-nil so the JSON encoding is
// stable regardless of whether a producer touched them.
func New(code, domain, message string, severity Severity) Diagnostic {
	return Diagnostic{
		SchemaVersion:  SchemaVersion,
		Timestamp:      time.Now().UTC(),
		Message:        message,
		Severity:       severity,
		Domain:         domain,
		Code:           code,
		Primary:        message,
		Notes:          []Note{},
		Secondary:      []Note{},
		Hints:          []string{},
		FixIts:         []FixIt{},
		Recoverability: Fatal,
		Extensions:     map[string]any{},
	}
}

// WithExtension sets a namespaced sub-object and returns the diagnostic for
// chaining.
func (d Diagnostic) WithExtension(ns string, payload any) Diagnostic {
	d.Extensions[ns] = payload
	return d
}

// WithNote appends a plain note.
func (d Diagnostic) WithNote(message string) Diagnostic {
	d.Notes = append(d.Notes, Note{Message: message})
	return d
}

// ExitRank maps a diagnostic list to the process exit rank: a fatal error
// ranks 3, warnings 2, info 1, an empty list 0. The CLI maps ranks to exit
// codes; the core only computes the rank.
func ExitRank(diags []Diagnostic) int {
	rank := 0
	for _, d := range diags {
		var r int
		switch d.Severity {
		case SeverityError:
			r = 3
		case SeverityWarning:
			r = 2
		case SeverityInfo:
			r = 1
		}
		if r > rank {
			rank = r
		}
	}
	return rank
}

// MarshalLines renders diagnostics as JSON lines, one envelope per line.
func MarshalLines(diags []Diagnostic) ([]byte, error) {
	var out []byte
	for _, d := range diags {
		line, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out, nil
}
