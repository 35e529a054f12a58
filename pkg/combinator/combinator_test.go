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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOKNeverConsumes(t *testing.T) {
	result := RunWithDefault(OK(42), "anything")
	require.NotNil(t, result.Value)
	assert.Equal(t, 42, *result.Value)
	assert.Equal(t, 0, result.Span.End.Byte, "ok is zero width")
}

func TestFailNeverConsumes(t *testing.T) {
	state := NewParseState("input", DefaultRunConfig())
	reply := Fail[int]("boom").Parse(state)
	require.False(t, reply.OK)
	assert.False(t, reply.Consumed)
	assert.False(t, reply.Committed)
	assert.Equal(t, "boom", reply.Err.Message)
}

func TestEOFOnEmptyInput(t *testing.T) {
	result := RunWithDefault(EOF(), "")
	assert.NotNil(t, result.Value)

	failed := RunWithDefault(EOF(), "x")
	assert.Nil(t, failed.Value)
	require.NotEmpty(t, failed.Diagnostics)
	assert.Contains(t, failed.Diagnostics[0].ExpectedTokens, "<eof>")
}

func TestSymbolOnEmptyInputFailsWithoutConsuming(t *testing.T) {
	state := NewParseState("", DefaultRunConfig())
	reply := Symbol(nil, "if").Parse(state)
	require.False(t, reply.OK)
	assert.False(t, reply.Consumed)
	assert.Equal(t, 0, state.Input().ByteOffset())
}

func TestSymbolConsumesTrailingSpace(t *testing.T) {
	space := spaceOf(" \t")
	state := NewParseState("+  1", DefaultRunConfig())
	reply := Symbol(&space, "+").Parse(state)
	require.True(t, reply.OK)
	assert.True(t, reply.Consumed)
	assert.Equal(t, "1", reply.Rest.Remaining())
}

func spaceOf(chars string) Parser[Unit] {
	return NewParser(func(state *ParseState) Reply[Unit] {
		start := state.input
		end := 0
		remaining := start.Remaining()
		for end < len(remaining) {
			found := false
			for i := 0; i < len(chars); i++ {
				if remaining[end] == chars[i] {
					found = true
					break
				}
			}
			if !found {
				break
			}
			end++
		}
		if end == 0 {
			return okReply(Unit{}, emptySpan(start), false, start)
		}
		rest := start.Advance(end)
		state.input = rest
		return okReply(Unit{}, spanBetween(start, rest), true, rest)
	})
}

func TestKeywordRejectsIdentifierContinuation(t *testing.T) {
	state := NewParseState("letx", DefaultRunConfig())
	reply := Keyword(nil, "let").Parse(state)
	require.False(t, reply.OK)
	assert.True(t, reply.Consumed, "keyword boundary failures report consumption")
	assert.Equal(t, 0, state.Input().ByteOffset(), "cursor is restored")

	ok := NewParseState("let x", DefaultRunConfig())
	okReply := Keyword(nil, "let").Parse(ok)
	assert.True(t, okReply.OK)
}

func TestIdentifierProfileZWJ(t *testing.T) {
	assert.True(t, isIdentContinue('\u200D', IdentifierUnicode), "ZWJ continues under unicode profile")
	assert.True(t, isIdentContinue('\uFE0F', IdentifierUnicode), "VS16 continues under unicode profile")
	assert.False(t, isIdentContinue('\u200D', IdentifierASCIICompat))
	assert.True(t, isIdentContinue('x', IdentifierASCIICompat))
	assert.False(t, isIdentStart('1', IdentifierUnicode))
}

func TestIdentifierProfileBidiRejection(t *testing.T) {
	msg, ok := IdentifierUnicode.ValidateChar('\u202E')
	assert.False(t, ok)
	assert.Contains(t, msg, "Bidi")
	_, ok = IdentifierUnicode.ValidateChar('x')
	assert.True(t, ok)
}

func TestKeywordBidiAfterKeywordIsLexerError(t *testing.T) {
	state := NewParseState("let\u202Ex", DefaultRunConfig())
	reply := Keyword(nil, "let").Parse(state)
	require.False(t, reply.OK)
	assert.Contains(t, reply.Err.Message, "Bidi")
}

func TestOrRetriesOnlyEmptyFailure(t *testing.T) {
	a := Symbol(nil, "aa")
	b := Symbol(nil, "b")

	result := RunWithDefault(a.Or(b), "b")
	assert.NotNil(t, result.Value, "empty failure falls through")

	// consumed failure does not fall through
	consuming := Map(Then(Symbol(nil, "a"), Symbol(nil, "a")), func(Pair[Unit, Unit]) Unit { return Unit{} })
	failed := RunWithDefault(consuming.Or(b), "ab")
	assert.Nil(t, failed.Value)
}

func TestCutBlocksFallthrough(t *testing.T) {
	p := Fail[Unit]("no").Cut().Or(OK(Unit{}))
	result := RunWithDefault(p, "x")
	assert.Nil(t, result.Value, "committed failure does not fall through")
}

func TestAttemptRestoresCursor(t *testing.T) {
	p := Map(Then(Symbol(nil, "a"), Symbol(nil, "b")), func(Pair[Unit, Unit]) Unit { return Unit{} })
	state := NewParseState("ax", DefaultRunConfig())
	reply := p.Attempt().Parse(state)
	require.False(t, reply.OK)
	assert.False(t, reply.Consumed)
	assert.False(t, reply.Committed)
	assert.Equal(t, 0, state.Input().ByteOffset(), "attempt never leaves the cursor past its entry")
}

func TestManyEmptyBodyIsHardError(t *testing.T) {
	result := RunWithDefault(OK(1).Many(), "xyz")
	assert.Nil(t, result.Value)
	require.NotEmpty(t, result.Diagnostics)
	assert.Contains(t, result.Diagnostics[0].Message, "without consuming")
}

func TestManySingleGrapheme(t *testing.T) {
	result := RunWithDefault(AnyChar().Many(), "é")
	require.NotNil(t, result.Value)
	assert.Len(t, *result.Value, 1, "one grapheme, one element")
}

func TestMany1RequiresOne(t *testing.T) {
	result := RunWithDefault(Symbol(nil, "a").Many1(), "b")
	assert.Nil(t, result.Value)
	ok := RunWithDefault(Symbol(nil, "a").Many1(), "aaa")
	require.NotNil(t, ok.Value)
	assert.Len(t, *ok.Value, 3)
}

func TestSepBy(t *testing.T) {
	item := Map(Symbol(nil, "a"), func(Unit) string { return "a" })
	result := RunWithDefault(SepBy(item, Symbol(nil, ",")), "a,a,a")
	require.NotNil(t, result.Value)
	assert.Len(t, *result.Value, 3)

	empty := RunWithDefault(SepBy(item, Symbol(nil, ",")), "b")
	require.NotNil(t, empty.Value)
	assert.Empty(t, *empty.Value)
}

func TestManyTill(t *testing.T) {
	result := RunWithDefault(ManyTill(AnyChar(), Symbol(nil, ";")), "abc;")
	require.NotNil(t, result.Value)
	assert.Equal(t, []string{"a", "b", "c"}, *result.Value)
}

func TestLookaheadDoesNotConsume(t *testing.T) {
	p := Then(Lookahead(Symbol(nil, "ab")), Symbol(nil, "a"))
	result := RunWithDefault(p, "ab")
	assert.NotNil(t, result.Value)
}

func TestNotFollowedBy(t *testing.T) {
	p := SkipR(Symbol(nil, "a"), NotFollowedBy(Symbol(nil, "b")))
	assert.NotNil(t, RunWithDefault(p, "ac").Value)
	assert.Nil(t, RunWithDefault(p, "ab").Value)
}

func TestChainl1LeftAssociates(t *testing.T) {
	digit := Map(AnyChar(), func(s string) string { return s })
	op := Map(Symbol(nil, "-"), func(Unit) func(string, string) string {
		return func(l, r string) string { return "(" + l + "-" + r + ")" }
	})
	result := RunWithDefault(digit.Chainl1(op), "1-2-3")
	require.NotNil(t, result.Value)
	assert.Equal(t, "((1-2)-3)", *result.Value)
}

func TestChainr1RightAssociates(t *testing.T) {
	digit := Map(AnyChar(), func(s string) string { return s })
	op := Map(Symbol(nil, "^"), func(Unit) func(string, string) string {
		return func(l, r string) string { return "(" + l + "^" + r + ")" }
	})
	result := RunWithDefault(digit.Chainr1(op), "1^2^3")
	require.NotNil(t, result.Value)
	assert.Equal(t, "(1^(2^3))", *result.Value)
}

func TestRuleIDStableAcrossRuns(t *testing.T) {
	a := Rule("my.rule", OK(1))
	b := Rule("my.rule", OK(2))
	assert.Equal(t, a.ID(), b.ID(), "equal names derive equal ids")
	c := Rule("other.rule", OK(3))
	assert.NotEqual(t, a.ID(), c.ID())
}

func TestLeftRecursionGuard(t *testing.T) {
	var expr Parser[int]
	exprRef := Lazy(func() Parser[int] { return expr })
	expr = Rule("lrec", Map(Then(exprRef, Symbol(nil, "+")), func(Pair[int, Unit]) int { return 0 }))

	result := RunWithDefault(expr, "1+1")
	assert.Nil(t, result.Value)
	require.NotEmpty(t, result.Diagnostics)
	assert.Equal(t, LeftRecursionMessage, result.Diagnostics[0].Message)
	assert.Equal(t, 0, result.Diagnostics[0].Pos.Byte, "failure sits at the recursive entry offset")
}

func TestPackratDeterminism(t *testing.T) {
	grammar := SepBy(Map(Symbol(nil, "a"), func(Unit) string { return "a" }), Symbol(nil, ","))
	cfg := DefaultRunConfig()
	cfg.Packrat = true

	first := Run(grammar, "a,a,a", cfg)
	second := Run(grammar, "a,a,a", cfg)
	require.NotNil(t, first.Value)
	require.NotNil(t, second.Value)
	assert.Equal(t, *first.Value, *second.Value)
	assert.Equal(t, len(first.Diagnostics), len(second.Diagnostics))
}

func TestPackratReplayCounts(t *testing.T) {
	inner := Rule("shared", Symbol(nil, "a"))
	grammar := inner.Attempt().Or(inner)
	cfg := DefaultRunConfig()
	cfg.Packrat = true
	cfg.Profile = true

	result := Run(grammar, "a", cfg)
	require.NotNil(t, result.Value)
	require.NotNil(t, result.Profile)
	assert.Greater(t, result.Profile.PackratMisses, uint64(0))
}

func TestRequireEOFAppendsSyntheticError(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.RequireEOF = true
	result := Run(Symbol(nil, "a"), "ab", cfg)
	assert.Nil(t, result.Value)
	require.NotEmpty(t, result.Diagnostics)
	assert.Contains(t, result.Diagnostics[0].Message, "unconsumed input")
}

func TestLegacyResultMirrorsError(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.LegacyResult = true
	result := Run(Symbol(nil, "a"), "b", cfg)
	require.NotNil(t, result.LegacyError)
	assert.Equal(t, result.Diagnostics[0], result.LegacyError)
}

func TestRecoverySkipsToSyncToken(t *testing.T) {
	// "let x = ;" — the expression after "=" is missing; recovery should
	// resynchronize on ";" and resume with the default value.
	space := spaceOf(" ")
	binding := Map(
		Then(
			Then(SkipL(Keyword(&space, "let"), Lexeme(&space, AnyChar())),
				SkipL(Symbol(&space, "="), Token("number", numberParser()))),
			Symbol(&space, ";"),
		),
		func(pair Pair[Pair[string, int64], Unit]) int64 { return pair.First.Second },
	)
	recoverable := binding.Recover(Symbol(&space, ";"), int64(-1))
	program := recoverable.Many()

	cfg := DefaultRunConfig().WithExtension("recover", func(ext map[string]any) map[string]any {
		ext["mode"] = "collect"
		ext["sync_tokens"] = []string{";"}
		return ext
	})
	result := Run(program, "let x = ; let y = 1;", cfg)
	require.NotNil(t, result.Value)
	require.Len(t, *result.Value, 2, "both bindings parse, the first with the default")
	assert.Equal(t, int64(-1), (*result.Value)[0])
	assert.Equal(t, int64(1), (*result.Value)[1])
	assert.True(t, result.Recovered)

	require.NotEmpty(t, result.Diagnostics)
	diag := result.Diagnostics[0]
	require.NotNil(t, diag.Recover)
	assert.Equal(t, RecoverSkip, diag.Recover.Action)
	assert.Equal(t, ";", diag.Recover.Sync)
}

func numberParser() Parser[int64] {
	return NewParser(func(state *ParseState) Reply[int64] {
		start := state.input
		remaining := start.Remaining()
		end := 0
		var value int64
		for end < len(remaining) && remaining[end] >= '0' && remaining[end] <= '9' {
			value = value*10 + int64(remaining[end]-'0')
			end++
		}
		if end == 0 {
			return errReply[int64](NewParseError("expected number", start.Pos()).WithExpected("number"), false, false)
		}
		rest := start.Advance(end)
		state.input = rest
		return okReply(value, spanBetween(start, rest), true, rest)
	})
}

func TestRecoveryBudgets(t *testing.T) {
	binding := SkipR(Symbol(nil, "a"), Symbol(nil, "!"))
	recoverable := binding.Recover(Symbol(nil, ";"), Unit{})
	cfg := DefaultRunConfig().WithExtension("recover", func(ext map[string]any) map[string]any {
		ext["mode"] = "collect"
		ext["max_resync_bytes"] = 2
		return ext
	})
	result := Run(recoverable, "axxxxxxxxxx;", cfg)
	assert.Nil(t, result.Value, "resync budget exhausts before the sync point")
}

func TestRecoverWithInsertAttachesFixIt(t *testing.T) {
	binding := SkipR(Symbol(nil, "a"), Symbol(nil, "!"))
	recoverable := binding.RecoverWithInsert(Symbol(nil, ";"), "!", Unit{})
	cfg := DefaultRunConfig().WithExtension("recover", func(ext map[string]any) map[string]any {
		ext["mode"] = "collect"
		return ext
	})
	result := Run(recoverable, "ax;", cfg)
	require.NotNil(t, result.Value)
	require.NotEmpty(t, result.Diagnostics)
	diag := result.Diagnostics[0]
	require.NotNil(t, diag.Recover)
	assert.Equal(t, RecoverInsert, diag.Recover.Action)
	assert.Equal(t, "!", diag.Recover.Inserted)
	require.Len(t, diag.FixIts, 1)
	assert.Equal(t, "!", diag.FixIts[0].InsertToken)
}

func TestPanicBlockBalancesDelimiters(t *testing.T) {
	body := SkipR(Symbol(nil, "x"), Symbol(nil, "!"))
	recoverable := body.PanicBlock(Symbol(nil, "{"), Symbol(nil, "}"), Unit{})
	cfg := DefaultRunConfig().WithExtension("recover", func(ext map[string]any) map[string]any {
		ext["mode"] = "collect"
		return ext
	})
	result := Run(SkipR(recoverable, Symbol(nil, "rest")), "{a{b}c}rest", cfg)
	assert.NotNil(t, result.Value, "recovery crosses the nested braces to the balancing closer")
}

func TestSyncToEmitsNoDiagnostic(t *testing.T) {
	state := NewParseState("abc;def", DefaultRunConfig())
	reply := SyncTo(Symbol(nil, ";")).Parse(state)
	require.True(t, reply.OK)
	assert.Equal(t, "def", reply.Rest.Remaining())
	assert.Empty(t, state.TakeDiagnostics())
}

func TestCSTCaptureTokensAndTrivia(t *testing.T) {
	space := spaceOf(" ")
	grammar := Then(Symbol(&space, "a"), Symbol(&space, "b"))
	cfg := DefaultRunConfig()
	result := RunWithCST(grammar, "a b", cfg)
	require.NotNil(t, result.Value)
	tokens := result.Value.CST.Tokens
	require.Len(t, tokens, 2)
	assert.Equal(t, "a", tokens[0].Text)
	require.Len(t, tokens[0].Trailing, 1)
	assert.Equal(t, TriviaWhitespace, tokens[0].Trailing[0].Kind)
	assert.Equal(t, " ", tokens[0].Trailing[0].Text)
}

func TestLayoutTokens(t *testing.T) {
	cfg := DefaultRunConfig().WithExtension("lex", func(ext map[string]any) map[string]any {
		ext["layout_profile"] = map[string]any{"offside": true}
		return ext
	})
	state := NewParseState("a\n  b\nc", cfg)
	require.True(t, state.layoutActive())

	// consume "a", then expect newline + indent at the new line
	state.SetInput(state.Input().Advance(1))
	reply := LayoutToken("<newline>").Parse(state)
	require.True(t, reply.OK, "newline token after the physical newline")
	reply = LayoutToken("<indent>").Parse(state)
	require.True(t, reply.OK, "indent token for the deeper column")

	// consume "b", then the dedent fires at column 1 of "c"
	state.SetInput(state.Input().Advance(1))
	reply = LayoutToken("<newline>").Parse(state)
	require.True(t, reply.OK)
	reply = LayoutToken("<dedent>").Parse(state)
	require.True(t, reply.OK)
}

func TestLayoutMixedTabsDiagnostic(t *testing.T) {
	cfg := DefaultRunConfig().WithExtension("lex", func(ext map[string]any) map[string]any {
		ext["layout_profile"] = map[string]any{"offside": true}
		return ext
	})
	state := NewParseState("a\n \tb", cfg)
	state.SetInput(state.Input().Advance(1))
	state.produceLayoutTokens()
	diags := state.TakeDiagnostics()
	require.NotEmpty(t, diags)
	assert.Contains(t, diags[0].Message, "tabs and spaces")
}

func TestLayoutEOFDrainsDedents(t *testing.T) {
	cfg := DefaultRunConfig().WithExtension("lex", func(ext map[string]any) map[string]any {
		ext["layout_profile"] = map[string]any{"offside": true}
		return ext
	})
	state := NewParseState("", cfg)
	state.layoutStack = []int{0, 2, 4}
	state.produceLayoutTokens()
	assert.Equal(t, []string{"<dedent>", "<dedent>"}, state.layoutPending)
}

func TestEmbeddedDSLShiftsDiagnostics(t *testing.T) {
	inner := Symbol(nil, "ok")
	spec := EmbeddedDSLSpec[Unit]{
		DSLID:    "mini",
		Boundary: DSLBoundary{Start: "<<", End: ">>"},
		Parser:   inner,
	}
	result := RunWithDefault(EmbeddedDSL(spec), "<<ok>>")
	require.NotNil(t, result.Value)
	assert.Equal(t, "mini", result.Value.DSLID)

	failed := RunWithDefault(EmbeddedDSL(spec), "<<no>>")
	assert.Nil(t, failed.Value)
	require.NotEmpty(t, failed.Diagnostics)
	assert.Equal(t, "mini", failed.Diagnostics[0].SourceDSL)
	assert.Equal(t, 2, failed.Diagnostics[0].Pos.Byte, "position is shifted to outer coordinates")
}

func TestOperatorTableReorder(t *testing.T) {
	levels := []OpLevel[int]{
		{InfixL: []Parser[BinaryOp[int]]{Map(Symbol(nil, "*"), func(Unit) BinaryOp[int] {
			return func(a, b int) int { return a * b }
		})}},
		{InfixL: []Parser[BinaryOp[int]]{Map(Symbol(nil, "+"), func(Unit) BinaryOp[int] {
			return func(a, b int) int { return a + b }
		})}},
	}
	reordered := reorderLevels(levels, []Fixity{FixityInfixLeft, FixityInfixLeft})
	require.Len(t, reordered, 2, "identity reorder keeps both levels")

	dropped := reorderLevels(levels, []Fixity{FixityInfixLeft})
	require.Len(t, dropped, 2, "unnamed buckets follow in their original order")
}

func TestExprBuilderIdentityOverride(t *testing.T) {
	digit := Map(AnyChar(), func(s string) int {
		if len(s) == 1 && s[0] >= '0' && s[0] <= '9' {
			return int(s[0] - '0')
		}
		return 0
	})
	neg := Map(Symbol(nil, "-"), func(Unit) UnaryOp[int] { return func(v int) int { return -v } })
	add := Map(Symbol(nil, "+"), func(Unit) BinaryOp[int] { return func(a, b int) int { return a + b } })
	levels := []OpLevel[int]{
		{Prefix: []Parser[UnaryOp[int]]{neg}},
		{InfixL: []Parser[BinaryOp[int]]{add}},
	}
	grammar := ExprBuilder(digit, levels, ExprBuilderConfig{})

	base := RunWithDefault(grammar, "-1+2")
	require.NotNil(t, base.Value)
	assert.Equal(t, 1, *base.Value)

	cfg := DefaultRunConfig().WithExtension("parse", func(ext map[string]any) map[string]any {
		ext["operator_table"] = []any{
			map[string]any{"fixity": "prefix"},
			map[string]any{"fixity": "infix_left"},
		}
		return ext
	})
	identity := Run(grammar, "-1+2", cfg)
	require.NotNil(t, identity.Value)
	assert.Equal(t, *base.Value, *identity.Value, "identity reorder parses identically")
}

func TestExprBuilderCommitOperators(t *testing.T) {
	digit := Map(AnyChar(), func(s string) int { return int(s[0] - '0') })
	add := Map(Symbol(nil, "+"), func(Unit) BinaryOp[int] { return func(a, b int) int { return a + b } })
	levels := []OpLevel[int]{{InfixL: []Parser[BinaryOp[int]]{add}}}
	grammar := ExprBuilder(digit, levels, ExprBuilderConfig{})

	cfg := DefaultRunConfig().WithExtension("parse", func(ext map[string]any) map[string]any {
		ext["commit_operators"] = true
		return ext
	})
	// a trailing operator without an operand is a committed failure
	result := Run(grammar, "1+", cfg)
	assert.Nil(t, result.Value)
}

func TestThenIdentityLaw(t *testing.T) {
	p := Symbol(nil, "a")
	lhs := RunWithDefault(Map(Then(p, OK(Unit{})), func(pair Pair[Unit, Unit]) Unit { return pair.First }), "a")
	rhs := RunWithDefault(p, "a")
	assert.Equal(t, lhs.Value != nil, rhs.Value != nil)
	assert.Equal(t, *lhs.Span, *rhs.Span)
}

func TestOrFailIdentityLaw(t *testing.T) {
	p := Symbol(nil, "a")
	lhs := RunWithDefault(p.Or(Fail[Unit]("never")), "a")
	rhs := RunWithDefault(p, "a")
	assert.Equal(t, lhs.Value != nil, rhs.Value != nil)
}

func TestGraphemeColumns(t *testing.T) {
	in := NewInput("héllo")
	advanced := in.Advance(len("hé"))
	assert.Equal(t, 3, advanced.Column(), "two graphemes consumed, column is 3")

	multi := NewInput("a\nbc")
	advanced = multi.Advance(4)
	assert.Equal(t, 2, advanced.Line())
	assert.Equal(t, 3, advanced.Column())
}

func TestProfileCounters(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.Packrat = true
	cfg.Profile = true
	result := Run(Symbol(nil, "a"), "a", cfg)
	require.NotNil(t, result.Profile)
	assert.Greater(t, result.Profile.MemoEntries, 0)
}
