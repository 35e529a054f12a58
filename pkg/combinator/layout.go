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

// LayoutProfile configures the offside-rule layout engine: the virtual
// token spellings, whether the engine is active, and whether mixed
// tab/space indentation is tolerated.
type LayoutProfile struct {
	IndentToken    string
	DedentToken    string
	NewlineToken   string
	Offside        bool
	AllowMixedTabs bool
}

// DefaultLayoutProfile uses the "<indent>" / "<dedent>" / "<newline>"
// spellings with the engine off.
func DefaultLayoutProfile() LayoutProfile {
	return LayoutProfile{
		IndentToken:  "<indent>",
		DedentToken:  "<dedent>",
		NewlineToken: "<newline>",
	}
}

func decodeLayoutProfile(cfg *RunConfig) *LayoutProfile {
	ext := cfg.extension("lex")
	if ext == nil {
		return nil
	}
	raw, ok := ext["layout_profile"].(map[string]any)
	if !ok {
		return nil
	}
	profile := DefaultLayoutProfile()
	if v, ok := raw["indent_token"].(string); ok {
		profile.IndentToken = v
	}
	if v, ok := raw["dedent_token"].(string); ok {
		profile.DedentToken = v
	}
	if v, ok := raw["newline_token"].(string); ok {
		profile.NewlineToken = v
	}
	if v, ok := raw["offside"].(bool); ok {
		profile.Offside = v
	}
	if v, ok := raw["allow_mixed_tabs"].(bool); ok {
		profile.AllowMixedTabs = v
	}
	return &profile
}

// countIndent measures column-1 indentation: spaces and tabs both count as
// width 1. Returns the width, whether the indent mixed tabs and spaces
// without permission, and the byte length consumed.
func countIndent(input string, allowMixedTabs bool) (width int, mixed bool, consumed int) {
	spaces, tabs := 0, 0
	consumed = len(input)
	for idx, ch := range input {
		switch ch {
		case ' ':
			spaces++
		case '\t':
			tabs++
		default:
			consumed = idx
			width = spaces + tabs
			mixed = spaces > 0 && tabs > 0 && !allowMixedTabs
			return width, mixed, consumed
		}
	}
	width = spaces + tabs
	mixed = spaces > 0 && tabs > 0 && !allowMixedTabs
	return width, mixed, consumed
}

func (s *ParseState) layoutPopToken() (string, bool) {
	if len(s.layoutPending) == 0 {
		return "", false
	}
	token := s.layoutPending[0]
	s.layoutPending = s.layoutPending[1:]
	return token, true
}

// produceLayoutTokens refreshes the pending virtual-token queue: at EOF it
// drains all outstanding dedents, at each physical newline it emits the
// newline token, and at column 1 it re-evaluates indentation, pushing
// indent on increase and popping dedents on decrease.
func (s *ParseState) produceLayoutTokens() {
	if !s.layoutActive() || len(s.layoutPending) > 0 {
		return
	}
	profile := *s.layoutProfile

	if s.input.IsEmpty() {
		for len(s.layoutStack) > 1 {
			s.layoutStack = s.layoutStack[:len(s.layoutStack)-1]
			s.layoutPending = append(s.layoutPending, profile.DedentToken)
		}
		return
	}

	remaining := s.input.Remaining()
	advanced := false
	if strings.HasPrefix(remaining, "\r\n") {
		s.input = s.input.Advance(2)
		advanced = true
	} else if strings.HasPrefix(remaining, "\n") {
		s.input = s.input.Advance(1)
		advanced = true
	}
	if advanced && !(s.input.Line() == 1 && s.input.ByteOffset() == 0) {
		s.layoutPending = append(s.layoutPending, profile.NewlineToken)
	}

	if s.input.Column() == 1 {
		width, mixed, consumed := countIndent(s.input.Remaining(), profile.AllowMixedTabs)
		if mixed {
			s.PushDiagnostic(NewParseError("indentation mixes tabs and spaces", s.input.Pos()))
		}
		if consumed > 0 {
			s.input = s.input.Advance(consumed)
		}
		current := 0
		if len(s.layoutStack) > 0 {
			current = s.layoutStack[len(s.layoutStack)-1]
		}
		if width > current {
			s.layoutStack = append(s.layoutStack, width)
			s.layoutPending = append(s.layoutPending, profile.IndentToken)
		} else if width < current {
			for len(s.layoutStack) > 0 && s.layoutStack[len(s.layoutStack)-1] > width {
				s.layoutStack = s.layoutStack[:len(s.layoutStack)-1]
				s.layoutPending = append(s.layoutPending, profile.DedentToken)
			}
		}
	}
}

// LayoutToken dequeues the next pending virtual layout token and matches
// it against text, failing (without consuming) on a mismatch, an empty
// queue, or an inactive layout engine.
func LayoutToken(text string) Parser[Unit] {
	expected := text
	return NewParser(func(state *ParseState) Reply[Unit] {
		if !state.layoutActive() {
			return errReply[Unit](
				NewParseError("layout token requested while layout is inactive: "+expected, state.input.Pos()).WithExpected(expected),
				false, false)
		}
		state.produceLayoutTokens()
		token, ok := state.layoutPopToken()
		if !ok {
			return errReply[Unit](
				NewParseError("no pending layout token: "+expected, state.input.Pos()).WithExpected(expected),
				false, false)
		}
		if token != expected {
			return errReply[Unit](
				NewParseError("expected layout token: "+expected, state.input.Pos()).WithExpected(expected),
				false, false)
		}
		if state.CSTEnabled() {
			state.recordCSTTrivia(TriviaLayout, token, emptySpan(state.input), true)
		}
		return okReply(Unit{}, emptySpan(state.input), false, state.input)
	})
}

// AutoWhitespaceStrategy picks where the whitespace parser and layout
// profile come from when AutoWhitespace scopes them.
type AutoWhitespaceStrategy int

const (
	// PreferRunConfig uses extensions.lex when present, else the profile.
	PreferRunConfig AutoWhitespaceStrategy = iota
	// ForceProfile ignores run-config and uses the given profile.
	ForceProfile
	// NoLexBridge disables both the lex bridge and the layout profile.
	NoLexBridge
)

// AutoWhitespaceConfig configures AutoWhitespace.
type AutoWhitespaceConfig struct {
	Profile  *Parser[Unit]
	Layout   *LayoutProfile
	Strategy AutoWhitespaceStrategy
}

// AutoWhitespace pushes a chosen whitespace parser and optional layout
// profile onto the state for the duration of inner, restoring both on the
// way out regardless of the reply.
func AutoWhitespace[T any](inner Parser[T], cfg AutoWhitespaceConfig) Parser[T] {
	return NewParser(func(state *ParseState) Reply[T] {
		var runSpace *Parser[Unit]
		var runLayout *LayoutProfile
		if cfg.Strategy == PreferRunConfig {
			runSpace = decodeLexSpace(&state.cfg)
			runLayout = decodeLayoutProfile(&state.cfg)
		}

		var chosenSpace *Parser[Unit]
		var chosenLayout *LayoutProfile
		switch cfg.Strategy {
		case PreferRunConfig:
			chosenSpace = runSpace
			if chosenSpace == nil {
				chosenSpace = cfg.Profile
			}
			chosenLayout = runLayout
			if chosenLayout == nil {
				chosenLayout = cfg.Layout
			}
		case ForceProfile:
			chosenSpace = cfg.Profile
			chosenLayout = cfg.Layout
		case NoLexBridge:
		}

		prevSpace := state.space
		if chosenSpace != nil {
			state.space = chosenSpace
		} else if cfg.Strategy == NoLexBridge {
			state.space = nil
		}
		prevLayout := state.layoutProfile
		prevPending := state.layoutPending
		prevStack := state.layoutStack
		if chosenLayout != nil {
			state.SetLayoutProfile(chosenLayout)
		} else if cfg.Strategy == NoLexBridge {
			state.SetLayoutProfile(nil)
		}

		reply := inner.Parse(state)
		state.space = prevSpace
		state.layoutProfile = prevLayout
		state.layoutPending = prevPending
		state.layoutStack = prevStack
		return reply
	})
}

// decodeLexSpace builds the whitespace parser pinned by extensions.lex:
// an ASCII or Unicode whitespace run, under the configured space_id when
// one is given so lex-bridge callers share packrat entries.
func decodeLexSpace(cfg *RunConfig) *Parser[Unit] {
	ext := cfg.extension("lex")
	if ext == nil {
		return nil
	}
	asciiOnly := false
	if label, ok := extString(ext, "profile"); ok {
		asciiOnly = label == "ascii-compat"
	}
	id := FreshID()
	if raw, ok := extUint(ext, "space_id"); ok {
		id = ParserID(raw)
	}
	space := WithID(id, func(state *ParseState) Reply[Unit] {
		start := state.input
		boundary := 0
		for idx, ch := range start.Remaining() {
			var ws bool
			if asciiOnly {
				ws = ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\v' || ch == '\f'
			} else {
				ws = isUnicodeSpace(ch)
			}
			if !ws {
				break
			}
			boundary = idx + len(string(ch))
		}
		if boundary == 0 {
			return okReply(Unit{}, emptySpan(start), false, start)
		}
		rest := start.Advance(boundary)
		state.input = rest
		return okReply(Unit{}, spanBetween(start, rest), true, rest)
	})
	return &space
}

func isUnicodeSpace(ch rune) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return ch > 0x7F && (ch == 0x85 || ch == 0xA0 || isSpaceRune(ch))
}

func isSpaceRune(ch rune) bool {
	// Zs plus the line/paragraph separators.
	return (ch >= 0x2000 && ch <= 0x200A) || ch == 0x1680 || ch == 0x2028 || ch == 0x2029 || ch == 0x202F || ch == 0x205F || ch == 0x3000
}
