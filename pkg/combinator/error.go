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
package combinator

import (
	"github.com/teradata-labs/remlc/pkg/diagnostic"
)

// LeftRecursionMessage is the literal message of the guard's committed
// failure; tests assert against it.
const LeftRecursionMessage = "left recursion"

// RecoverAction names what the recovering combinator did to resume.
type RecoverAction string

const (
	RecoverDefault RecoverAction = "default"
	RecoverSkip    RecoverAction = "skip"
	RecoverInsert  RecoverAction = "insert"
	RecoverContext RecoverAction = "context"
)

// RecoverMeta tags a diagnostic with how recovery proceeded past it.
type RecoverMeta struct {
	Mode     string
	Action   RecoverAction
	Sync     string
	Inserted string
	Context  string
}

func collectMeta(action RecoverAction) RecoverMeta {
	return RecoverMeta{Mode: "collect", Action: action}
}

// FixIt is a structured edit suggestion attached to a parse error. Only
// insert-token is currently produced.
type FixIt struct {
	InsertToken string
}

// ParseError is the engine's structured failure: a message, the position
// it was raised at, the expected-token list, optional recover metadata,
// fix-its, and notes. The DSL id is set when the error escaped an embedded
// sub-grammar.
type ParseError struct {
	Message        string
	Pos            Position
	SourceDSL      string
	ExpectedTokens []string
	Recover        *RecoverMeta
	FixIts         []FixIt
	Notes          []string
}

// NewParseError builds a bare error at pos.
func NewParseError(message string, pos Position) *ParseError {
	return &ParseError{Message: message, Pos: pos}
}

// WithExpected appends expected-token labels.
func (e *ParseError) WithExpected(tokens ...string) *ParseError {
	e.ExpectedTokens = append(e.ExpectedTokens, tokens...)
	return e
}

// WithRecover attaches recover metadata.
func (e *ParseError) WithRecover(meta RecoverMeta) *ParseError {
	e.Recover = &meta
	return e
}

// WithFixIt appends a fix-it.
func (e *ParseError) WithFixIt(fixit FixIt) *ParseError {
	e.FixIts = append(e.FixIts, fixit)
	return e
}

// WithNote appends a note.
func (e *ParseError) WithNote(note string) *ParseError {
	e.Notes = append(e.Notes, note)
	return e
}

func (e *ParseError) clone() *ParseError {
	out := *e
	out.ExpectedTokens = append([]string(nil), e.ExpectedTokens...)
	out.FixIts = append([]FixIt(nil), e.FixIts...)
	out.Notes = append([]string(nil), e.Notes...)
	if e.Recover != nil {
		meta := *e.Recover
		out.Recover = &meta
	}
	return &out
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return e.Message
}

// ToDiagnostic renders the error as a diagnostic envelope. Errors with an
// expected-token list use the parser.syntax.expected_tokens code, bare
// ones parser.syntax.error. Recovered errors are marked recoverable.
func (e *ParseError) ToDiagnostic() diagnostic.Diagnostic {
	code := "parser.syntax.error"
	if len(e.ExpectedTokens) > 0 {
		code = "parser.syntax.expected_tokens"
	}
	d := diagnostic.New(code, "parser", e.Message, diagnostic.SeverityError)
	pos := diagnostic.Position{Byte: e.Pos.Byte, Line: e.Pos.Line, Column: e.Pos.Column}
	d.Location = &diagnostic.Span{Start: pos, End: pos}
	parseExt := map[string]any{
		"position": map[string]any{"byte": e.Pos.Byte, "line": e.Pos.Line, "column": e.Pos.Column},
	}
	if len(e.ExpectedTokens) > 0 {
		parseExt["expected_tokens"] = append([]string(nil), e.ExpectedTokens...)
	}
	d = d.WithExtension("parse", parseExt)
	if e.Recover != nil {
		recoverExt := map[string]any{}
		if e.Recover.Mode != "" {
			recoverExt["mode"] = e.Recover.Mode
		}
		if e.Recover.Action != "" {
			recoverExt["action"] = string(e.Recover.Action)
		}
		if e.Recover.Sync != "" {
			recoverExt["sync"] = e.Recover.Sync
		}
		if e.Recover.Inserted != "" {
			recoverExt["inserted"] = e.Recover.Inserted
		}
		if e.Recover.Context != "" {
			recoverExt["context"] = e.Recover.Context
		}
		d = d.WithExtension("recover", recoverExt)
		d.Recoverability = diagnostic.Recoverable
	}
	if e.SourceDSL != "" {
		d = d.WithExtension("dsl", map[string]any{"id": e.SourceDSL})
	}
	for _, fixit := range e.FixIts {
		d.FixIts = append(d.FixIts, diagnostic.InsertToken(fixit.InsertToken))
	}
	for _, note := range e.Notes {
		d = d.WithNote(note)
	}
	return d
}

// ToDiagnostics converts a parse-error list to envelopes.
func ToDiagnostics(errs []*ParseError) []diagnostic.Diagnostic {
	out := make([]diagnostic.Diagnostic, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.ToDiagnostic())
	}
	return out
}
