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
	"strings"

	"github.com/rivo/uniseg"
)

// OK succeeds with value at zero width.
func OK[T any](value T) Parser[T] {
	return NewParser(func(state *ParseState) Reply[T] {
		return okReply(value, emptySpan(state.input), false, state.input)
	})
}

// Fail fails with message without consuming.
func Fail[T any](message string) Parser[T] {
	return NewParser(func(state *ParseState) Reply[T] {
		return errReply[T](NewParseError(message, state.input.Pos()), false, false)
	})
}

// EOF succeeds exactly at end of input.
func EOF() Parser[Unit] {
	return NewParser(func(state *ParseState) Reply[Unit] {
		if state.input.IsEmpty() {
			return okReply(Unit{}, emptySpan(state.input), false, state.input)
		}
		return errReply[Unit](
			NewParseError("expected end of input", state.input.Pos()).WithExpected("<eof>"),
			false, false)
	})
}

// Rule names p under a deterministic id derived from hashing name, so
// packrat keys stay stable across runs for equal names.
func Rule[T any](name string, p Parser[T]) Parser[T] {
	id := IDFromName(name)
	return WithID(id, func(state *ParseState) Reply[T] {
		state.meta.register(id, MetaRule, name, "")
		state.enterRuleMeta(id)
		reply := p.Parse(state)
		state.exitRuleMeta(id)
		return reply
	})
}

// Lazy defers construction of p until first use, breaking the cycle in
// self-referential grammars: declare the variable, build the grammar
// through Lazy(func() { return theVariable }), then assign the variable.
func Lazy[T any](build func() Parser[T]) Parser[T] {
	var cached *Parser[T]
	return NewParser(func(state *ParseState) Reply[T] {
		if cached == nil {
			p := build()
			cached = &p
		}
		return cached.Parse(state)
	})
}

// Label overrides the error message with name and appends it to the
// expected-token list on failure.
func Label[T any](name string, p Parser[T]) Parser[T] {
	return NewParser(func(state *ParseState) Reply[T] {
		reply := p.Parse(state)
		if reply.OK {
			state.input = reply.Rest
			return reply
		}
		err := reply.Err.clone()
		err.Message = name
		found := false
		for _, t := range err.ExpectedTokens {
			if t == name {
				found = true
				break
			}
		}
		if !found {
			err.ExpectedTokens = append(err.ExpectedTokens, name)
		}
		return errReply[T](err, reply.Consumed, reply.Committed)
	})
}

// Token tags p's consumed text with a token kind, feeding the CST and the
// semantic token stream.
func Token[T any](kind string, p Parser[T]) Parser[T] {
	id := FreshID()
	return WithID(id, func(state *ParseState) Reply[T] {
		state.meta.register(id, MetaToken, kind, kind)
		start := state.input
		reply := p.Parse(state)
		if !reply.OK {
			return reply
		}
		state.input = reply.Rest
		if state.CSTEnabled() && start.ByteOffset() < reply.Rest.ByteOffset() {
			if text := sliceText(start, reply.Rest); text != "" {
				state.recordCSTToken(kind, text, reply.Span)
			}
		}
		state.recordSemanticToken(kind, reply.Span)
		return reply
	})
}

// Choice left-folds Or over parsers.
func Choice[T any](parsers ...Parser[T]) Parser[T] {
	if len(parsers) == 0 {
		return Fail[T]("no alternatives")
	}
	acc := parsers[0]
	for _, p := range parsers[1:] {
		acc = acc.Or(p)
	}
	return acc
}

// CutHere is a zero-width commit: it consumes nothing but flips the
// consumed bit, ratcheting the surrounding alternative.
func CutHere() Parser[Unit] {
	return NewParser(func(state *ParseState) Reply[Unit] {
		return okReply(Unit{}, emptySpan(state.input), true, state.input)
	})
}

// SyncTo advances grapheme by grapheme until sync succeeds with progress,
// then resumes just after it. It is the primitive non-recovery form of
// resynchronization: no diagnostic is emitted.
func SyncTo(sync Parser[Unit]) Parser[Unit] {
	return NewParser(func(state *ParseState) Reply[Unit] {
		start := state.input
		cursor := start
		for {
			state.input = cursor
			reply := sync.Parse(state)
			if reply.OK {
				if start.ByteOffset() == reply.Rest.ByteOffset() {
					state.input = start
					return errReply[Unit](NewParseError("sync_to succeeded without progress", cursor.Pos()), false, false)
				}
				span := spanBetween(start, reply.Rest)
				state.input = reply.Rest
				return okReply(Unit{}, span, true, reply.Rest)
			}
			if reply.Consumed || reply.Committed {
				state.input = start
				return errReply[Unit](reply.Err, reply.Consumed, reply.Committed)
			}
			if cursor.IsEmpty() {
				state.input = start
				return errReply[Unit](NewParseError("sync_to found no sync point", cursor.Pos()), false, false)
			}
			cursor = cursor.Advance(nextGraphemeLen(cursor.Remaining()))
		}
	})
}

func nextGraphemeLen(s string) int {
	if s == "" {
		return 0
	}
	cluster, _, _, _ := uniseg.FirstGraphemeClusterInString(s, -1)
	if cluster == "" {
		return 1
	}
	return len(cluster)
}

// Between runs open, p, close, keeping p's value.
func Between[A any](open Parser[Unit], p Parser[A], close Parser[Unit]) Parser[A] {
	return SkipR(SkipL(open, p), close)
}

// Preceded drops pre's value.
func Preceded[A, B any](pre Parser[A], p Parser[B]) Parser[B] {
	return SkipL(pre, p)
}

// Terminated drops post's value.
func Terminated[A, B any](p Parser[A], post Parser[B]) Parser[A] {
	return SkipR(p, post)
}

// Delimited runs a, b, c, keeping b's value.
func Delimited[A, B, C any](a Parser[A], b Parser[B], c Parser[C]) Parser[B] {
	return SkipR(SkipL(a, b), c)
}

// Lookahead runs p without consuming.
func Lookahead[T any](p Parser[T]) Parser[T] {
	return p.Lookahead()
}

// NotFollowedBy succeeds only when p fails, consuming nothing.
func NotFollowedBy[T any](p Parser[T]) Parser[Unit] {
	return p.NotFollowedBy()
}

// Pos succeeds at zero width with the current position as a span.
func Pos() Parser[Span] {
	return NewParser(func(state *ParseState) Reply[Span] {
		span := emptySpan(state.input)
		return okReply(span, span, false, state.input)
	})
}

// AnyChar consumes a single grapheme cluster.
func AnyChar() Parser[string] {
	return NewParser(func(state *ParseState) Reply[string] {
		if state.input.IsEmpty() {
			return errReply[string](NewParseError("unexpected end of input", state.input.Pos()), false, false)
		}
		n := nextGraphemeLen(state.input.Remaining())
		cluster := state.input.Remaining()[:n]
		rest := state.input.Advance(n)
		span := spanBetween(state.input, rest)
		state.input = rest
		return okReply(cluster, span, true, rest)
	})
}

// Lexeme runs p then consumes trailing whitespace via space or the ambient
// whitespace parser, skipping the space step while layout is active.
func Lexeme[A any](space *Parser[Unit], p Parser[A]) Parser[A] {
	return NewParser(func(state *ParseState) Reply[A] {
		start := state.input
		reply := p.Parse(state)
		if !reply.OK {
			return reply
		}
		state.input = reply.Rest
		tail := reply.Rest
		consumed := reply.Consumed
		if !state.layoutActive() {
			sp := space
			if sp == nil {
				sp = state.space
			}
			if sp != nil {
				spaceStart := tail
				state.input = tail
				spaceReply := sp.Parse(state)
				if spaceReply.OK {
					consumed = consumed || spaceReply.Consumed
					tail = spaceReply.Rest
					state.input = tail
					if spaceReply.Consumed && state.CSTEnabled() {
						if text := sliceText(spaceStart, tail); text != "" {
							state.recordCSTTrivia(TriviaWhitespace, text, spanBetween(spaceStart, tail), true)
						}
					}
				} else if spaceReply.Consumed || spaceReply.Committed {
					state.input = start
					return errReply[A](spaceReply.Err, true, spaceReply.Committed)
				} else {
					state.input = tail
				}
			}
		}
		return okReply(reply.Value, reply.Span, consumed, tail)
	})
}

// Symbol matches a literal, then consumes trailing whitespace via space or
// the ambient whitespace parser. The match itself is byte-exact.
func Symbol(space *Parser[Unit], text string) Parser[Unit] {
	id := FreshID()
	return WithID(id, func(state *ParseState) Reply[Unit] {
		state.meta.register(id, MetaSymbol, text, "")
		if text == "" {
			return errReply[Unit](NewParseError("empty symbol is not allowed", state.input.Pos()), false, false)
		}
		start := state.input
		if !strings.HasPrefix(start.Remaining(), text) {
			return errReply[Unit](
				NewParseError("expected symbol: "+text, start.Pos()).WithExpected(text),
				false, false)
		}
		rest := start.Advance(len(text))
		span := spanBetween(start, rest)
		state.input = rest
		if state.CSTEnabled() {
			state.recordCSTToken("symbol", text, span)
		}
		tail, consumed, err := consumeTrailingSpace(state, space, start, rest)
		if err != nil {
			return *err
		}
		state.recordSemanticToken("operator", span)
		return okReply(Unit{}, span, consumed, tail)
	})
}

// Keyword matches a literal like Symbol, but additionally rejects when the
// following character continues an identifier under the active profile, or
// fails the profile's NFC/Bidi validation.
func Keyword(space *Parser[Unit], kw string) Parser[Unit] {
	id := FreshID()
	return WithID(id, func(state *ParseState) Reply[Unit] {
		state.meta.register(id, MetaKeyword, kw, "")
		if kw == "" {
			return errReply[Unit](NewParseError("empty keyword is not allowed", state.input.Pos()), false, false)
		}
		start := state.input
		if !strings.HasPrefix(start.Remaining(), kw) {
			return errReply[Unit](
				NewParseError("expected keyword: "+kw, start.Pos()).WithExpected(kw),
				false, false)
		}
		rest := start.Advance(len(kw))
		if remaining := rest.Remaining(); remaining != "" {
			ch := firstRune(remaining)
			if msg, ok := state.identProfile.ValidateChar(ch); !ok {
				state.input = start
				return errReply[Unit](NewParseError(msg, rest.Pos()), true, false)
			}
			if isIdentContinue(ch, state.identProfile) || isIdentStart(ch, state.identProfile) {
				state.input = start
				return errReply[Unit](
					NewParseError("identifier continues after keyword '"+kw+"'", rest.Pos()),
					true, false)
			}
		}
		span := spanBetween(start, rest)
		state.input = rest
		if state.CSTEnabled() {
			state.recordCSTToken("keyword", kw, span)
		}
		tail, consumed, err := consumeTrailingSpace(state, space, start, rest)
		if err != nil {
			return *err
		}
		state.recordSemanticToken("keyword", span)
		return okReply(Unit{}, span, consumed, tail)
	})
}

// consumeTrailingSpace runs the chosen or ambient whitespace parser after
// a token match, recording the trivia when CST capture is on. The error
// return is non-nil only when the space parser itself failed after
// consuming or committing.
func consumeTrailingSpace(state *ParseState, space *Parser[Unit], start, rest Input) (Input, bool, *Reply[Unit]) {
	tail := rest
	consumed := true
	if state.layoutActive() {
		return tail, consumed, nil
	}
	sp := space
	if sp == nil {
		sp = state.space
	}
	if sp == nil {
		return tail, consumed, nil
	}
	spaceStart := tail
	state.input = tail
	spaceReply := sp.Parse(state)
	if spaceReply.OK {
		tail = spaceReply.Rest
		state.input = tail
		if spaceReply.Consumed && state.CSTEnabled() {
			if text := sliceText(spaceStart, tail); text != "" {
				state.recordCSTTrivia(TriviaWhitespace, text, spanBetween(spaceStart, tail), true)
			}
		}
		return tail, consumed, nil
	}
	if spaceReply.Consumed || spaceReply.Committed {
		state.input = start
		failed := errReply[Unit](spaceReply.Err, true, spaceReply.Committed)
		return tail, consumed, &failed
	}
	state.input = tail
	return tail, consumed, nil
}

func firstRune(s string) rune {
	for _, ch := range s {
		return ch
	}
	return 0
}

func (s *ParseState) enterRuleMeta(id ParserID) {
	if len(s.metaRuleStack) > 0 {
		parent := s.metaRuleStack[len(s.metaRuleStack)-1]
		if parent != id {
			s.meta.addChild(parent, id)
		}
	}
	s.metaRuleStack = append(s.metaRuleStack, id)
}

func (s *ParseState) exitRuleMeta(id ParserID) {
	if len(s.metaRuleStack) == 0 {
		return
	}
	last := s.metaRuleStack[len(s.metaRuleStack)-1]
	s.metaRuleStack = s.metaRuleStack[:len(s.metaRuleStack)-1]
	if last != id {
		s.metaRuleStack = append(s.metaRuleStack, last)
		for i := len(s.metaRuleStack) - 1; i >= 0; i-- {
			if s.metaRuleStack[i] == id {
				s.metaRuleStack = append(s.metaRuleStack[:i], s.metaRuleStack[i+1:]...)
				break
			}
		}
	}
}
