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

import "strings"

// DSLBoundary is the opener/closer pair that brackets an embedded block.
type DSLBoundary struct {
	Start string
	End   string
}

// EmbeddedDSLSpec describes an embedded sub-grammar: the boundary pair,
// the inner parser, and the DSL id diagnostics are tagged with.
type EmbeddedDSLSpec[T any] struct {
	DSLID    string
	Boundary DSLBoundary
	Parser   Parser[T]
}

// EmbeddedNode is the result of one embedded block: the DSL id, the outer
// span the block covered, the inner AST, and the inner diagnostics already
// shifted to outer coordinates.
type EmbeddedNode[T any] struct {
	DSLID       string
	Span        Span
	AST         T
	Diagnostics []*ParseError
}

// shiftPosition rebases an inner position onto the outer coordinates of
// the content start.
func shiftPosition(base, inner Position) Position {
	out := Position{Byte: base.Byte + inner.Byte}
	if inner.Line <= 1 {
		out.Line = base.Line
		out.Column = base.Column + inner.Column - 1
	} else {
		out.Line = base.Line + inner.Line - 1
		out.Column = inner.Column
	}
	return out
}

// EmbeddedDSL scans for the boundary pair, runs the inner parser on the
// bracketed substring with a fresh ParseState inheriting the outer
// run-config, shifts inner diagnostics back to outer coordinates, and
// tags them with the DSL id. An unconsumed suffix is an error when the
// outer config sets require_eof.
func EmbeddedDSL[T any](spec EmbeddedDSLSpec[T]) Parser[EmbeddedNode[T]] {
	return NewParser(func(state *ParseState) Reply[EmbeddedNode[T]] {
		input := state.input
		if !strings.HasPrefix(input.Remaining(), spec.Boundary.Start) {
			return errReply[EmbeddedNode[T]](
				NewParseError("embedded DSL start boundary not found", input.Pos()),
				false, false)
		}
		afterStart := input.Advance(len(spec.Boundary.Start))
		remaining := afterStart.Remaining()
		endIndex := strings.Index(remaining, spec.Boundary.End)
		if endIndex < 0 {
			return errReply[EmbeddedNode[T]](
				NewParseError("embedded DSL end boundary not found", afterStart.Pos()),
				true, false)
		}
		content := remaining[:endIndex]
		afterContent := afterStart.Advance(endIndex)
		afterEnd := afterContent.Advance(len(spec.Boundary.End))
		span := input.SpanTo(afterEnd)
		basePos := afterStart.Pos()

		embedded := NewParseState(content, state.cfg)
		embedded.EnterDSL(spec.DSLID)
		reply := spec.Parser.Parse(embedded)
		embedded.ExitDSL()
		diagnostics := embedded.TakeDiagnostics()
		for _, diag := range diagnostics {
			diag.Pos = shiftPosition(basePos, diag.Pos)
			if diag.SourceDSL == "" {
				diag.SourceDSL = spec.DSLID
			}
			state.PushDiagnostic(diag.clone())
		}

		if !reply.OK {
			err := reply.Err.clone()
			if err.SourceDSL == "" {
				err.SourceDSL = spec.DSLID
			}
			err.Pos = shiftPosition(basePos, err.Pos)
			return errReply[EmbeddedNode[T]](err, true, reply.Committed)
		}
		if state.cfg.RequireEOF && !reply.Rest.IsEmpty() {
			err := NewParseError("unconsumed input remains", reply.Rest.Pos())
			err.SourceDSL = spec.DSLID
			err.Pos = shiftPosition(basePos, err.Pos)
			return errReply[EmbeddedNode[T]](err, true, false)
		}
		state.input = afterEnd
		return okReply(EmbeddedNode[T]{
			DSLID:       spec.DSLID,
			Span:        span,
			AST:         reply.Value,
			Diagnostics: diagnostics,
		}, span, true, afterEnd)
	})
}
