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
// Package combinator implements a re-entrant recursive-descent parser
// combinator engine: explicit consumed/committed reply bits, packrat
// memoization keyed by (parser id, byte offset), left-recursion detection,
// CST and trivia capture, bounded error recovery, layout (offside) token
// synthesis, and an operator-precedence builder whose fixity table can be
// reordered by run configuration.
package combinator

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Position is a byte offset plus the 1-based line and column it lands on.
// Columns count grapheme clusters, not bytes or runes.
type Position struct {
	Byte   int
	Line   int
	Column int
}

// Span is the half-open range between two positions.
type Span struct {
	Start Position
	End   Position
}

// Input is an immutable view into a shared source buffer. Advancing
// produces a new view; the buffer itself is never copied.
type Input struct {
	source *string
	byte   int
	line   int
	column int
}

// NewInput wraps source at offset zero, line 1, column 1.
func NewInput(source string) Input {
	return Input{source: &source, byte: 0, line: 1, column: 1}
}

// Remaining returns the unconsumed suffix.
func (in Input) Remaining() string {
	return (*in.source)[in.byte:]
}

// IsEmpty reports whether the cursor is at end of input.
func (in Input) IsEmpty() bool {
	return in.byte >= len(*in.source)
}

// Pos returns the current position.
func (in Input) Pos() Position {
	return Position{Byte: in.byte, Line: in.line, Column: in.column}
}

// ByteOffset returns the cursor's byte offset.
func (in Input) ByteOffset() int { return in.byte }

// Line returns the 1-based line.
func (in Input) Line() int { return in.line }

// Column returns the 1-based grapheme column.
func (in Input) Column() int { return in.column }

// Advance returns a view moved forward by up to n bytes, clamped to the
// buffer end. Line counting splits on '\n'; the trailing partial line's
// column advance is measured in grapheme clusters.
func (in Input) Advance(n int) Input {
	avail := len(*in.source) - in.byte
	if n > avail {
		n = avail
	}
	slice := (*in.source)[in.byte : in.byte+n]
	line, column := in.line, in.column
	if idx := strings.LastIndexByte(slice, '\n'); idx >= 0 {
		line += strings.Count(slice, "\n")
		column = 1 + graphemeCount(slice[idx+1:])
	} else {
		column += graphemeCount(slice)
	}
	return Input{source: in.source, byte: in.byte + n, line: line, column: column}
}

// SpanTo builds the span from this view's position to end's.
func (in Input) SpanTo(end Input) Span {
	return Span{Start: in.Pos(), End: end.Pos()}
}

func graphemeCount(s string) int {
	if isASCII(s) {
		return len(s)
	}
	return uniseg.GraphemeClusterCount(s)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func emptySpan(in Input) Span {
	pos := in.Pos()
	return Span{Start: pos, End: pos}
}

func spanBetween(start, end Input) Span {
	return Span{Start: start.Pos(), End: end.Pos()}
}

// sliceText returns the source text between two views, or "" when start is
// past end.
func sliceText(start, end Input) string {
	if start.byte > end.byte {
		return ""
	}
	return (*start.source)[start.byte:end.byte]
}
