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
package lower

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/remlc/pkg/mir"
)

func TestSanitizeIdentIdempotent(t *testing.T) {
	cases := []string{"simple", "with-dash", "1leading", "", "日本語", "a.b@c"}
	for _, input := range cases {
		once := SanitizeIdent(input)
		twice := SanitizeIdent(once)
		assert.Equal(t, once, twice, "sanitize(sanitize(%q)) must equal sanitize(%q)", input, input)
	}
	assert.Equal(t, "_u0000", SanitizeIdent(""))
	assert.Equal(t, "_1leading", SanitizeIdent("1leading"))
	assert.Equal(t, "with_u002Ddash", SanitizeIdent("with-dash"))
}

func TestSanitizeSymbolKeepsSigil(t *testing.T) {
	assert.Equal(t, "@reml_call", SanitizeSymbol("@reml_call"))
	assert.Equal(t, "%tmp1", SanitizeSymbol("%tmp1"))
	assert.Equal(t, "@my_u002Dfn", SanitizeSymbol("@my-fn"))
}

func TestEscapeLLVMString(t *testing.T) {
	assert.Equal(t, `a\5Cb`, escapeLLVMString(`a\b`))
	assert.Equal(t, `say \22hi\22`, escapeLLVMString(`say "hi"`))
	assert.Equal(t, `line\0Abreak`, escapeLLVMString("line\nbreak"))
}

func TestHashTemplateNormalizesLineEndings(t *testing.T) {
	assert.Equal(t, hashTemplate("a\nb"), hashTemplate("a\r\nb"))
	assert.NotEqual(t, hashTemplate("a"), hashTemplate("b"))
}

func TestPlaceholderHelpers(t *testing.T) {
	invalid := collectInvalidPlaceholders("$0 $1 $5", 2)
	assert.Equal(t, []int{5}, invalid)

	rendered, bad := replacePlaceholders("add $0, $1, $9", []string{"%a", "%b"})
	assert.Equal(t, "add %a, %b, undef", rendered)
	assert.Equal(t, []int{9}, bad)

	assert.Equal(t, "%out", findLastAssignedSSA("%x = add i64 1, 2\n%out = mul i64 %x, 3"))
	assert.Equal(t, "", findLastAssignedSSA("call void @foo()"))
}

func TestRenameSSAConsistent(t *testing.T) {
	renamed := renameSSANames("%x = add i64 %x, %y", "p_")
	assert.Equal(t, "%p_x = add i64 %p_x, %p_y", renamed)
}

func intPtr(v int) *int { return &v }

func typePtr(ty mir.Type) *mir.Type { return &ty }

// matchFixture is spec scenario 1: match x { Some(v) => v + 1, None => 0 }
// with x: Option<i64>.
func matchFixture() *mir.Function {
	fn := mir.NewFunction("f", "fast").WithParam(mir.TypePtr).WithReturn(mir.TypeI64)
	fn.Exprs = []mir.Expr{
		{ID: 0, Kind: mir.ExprIdentifier, Summary: "x"},
		{ID: 1, Kind: mir.ExprIdentifier, Summary: "v"},
		{ID: 2, Kind: mir.ExprLiteral, Summary: "1"},
		{ID: 3, Kind: mir.ExprBinary, Operator: "+", Left: 1, Right: 2},
		{ID: 4, Kind: mir.ExprLiteral, Summary: "0"},
		{ID: 5, Kind: mir.ExprMatch, Target: 0,
			Arms: []mir.MatchArm{
				{Pattern: mir.Pattern{Kind: mir.PatConstructor, Name: "Some",
					Args: []mir.Pattern{{Kind: mir.PatVar, Name: "v"}}}, Body: 3},
				{Pattern: mir.Pattern{Kind: mir.PatConstructor, Name: "None"}, Body: 4},
			},
			Lowering: &mir.MatchPlan{TargetType: "i64", ArmCount: 2},
		},
	}
	fn.Body = intPtr(5)
	return fn
}

func TestMatchLoweringScenario(t *testing.T) {
	emitter := NewEmitter(TargetMachine{Triple: "x86_64-unknown-linux-gnu"}, nil)
	generated := emitter.EmitFunction(matchFixture())

	ir := generated.IR
	assert.Contains(t, ir, "@reml_ctor_payload_Some", "Some arm extracts the payload")
	assert.Contains(t, ir, "add i64", "the Some body adds 1")
	assert.Contains(t, ir, "phi i64", "arm values reconcile in a typed phi")
	assert.Contains(t, ir, "match5.end:", "the end block carries the match id")
	assert.Contains(t, ir, "icmp eq ptr", "None checks against null")
	assert.Contains(t, ir, "icmp ne ptr", "Some checks non-null")

	// the None arm contributes the 0 constant through the phi
	require.NotEmpty(t, generated.IRBlocks)
	var endBlock *IRBlock
	for i := range generated.IRBlocks {
		if generated.IRBlocks[i].Label == "match5.end" {
			endBlock = &generated.IRBlocks[i]
		}
	}
	require.NotNil(t, endBlock)
	phi, ok := endBlock.Instrs[0].(Phi)
	require.True(t, ok)
	assert.Len(t, phi.Incomings, 2)
	assert.Equal(t, "i64", phi.Ty)
	_, isRet := endBlock.Terminator.(Ret)
	assert.True(t, isRet)
}

func TestMatchLoweringDeterministic(t *testing.T) {
	first := NewEmitter(TargetMachine{}, nil).EmitFunction(matchFixture())
	second := NewEmitter(TargetMachine{}, nil).EmitFunction(matchFixture())
	assert.Equal(t, first.IR, second.IR, "two lowerings produce byte-identical IR")
}

func TestBranchTargetsResolve(t *testing.T) {
	generated := NewEmitter(TargetMachine{}, nil).EmitFunction(matchFixture())
	labels := make(map[string]bool)
	for _, block := range generated.IRBlocks {
		labels[block.Label] = true
	}
	for _, block := range generated.IRBlocks {
		switch term := block.Terminator.(type) {
		case Br:
			assert.True(t, labels[term.Target], "br target %q must be a defined label", term.Target)
		case BrCond:
			assert.True(t, labels[term.Then], "br_if then target %q must be a defined label", term.Then)
			assert.True(t, labels[term.Else], "br_if else target %q must be a defined label", term.Else)
		}
	}
}

// propagateFixture is spec scenario 2: fn f() -> Result<i64,E> { g()? }.
func propagateFixture() *mir.Function {
	fn := mir.NewFunction("f", "fast").WithReturn(mir.TypePtr)
	fn.Exprs = []mir.Expr{
		{ID: 0, Kind: mir.ExprIdentifier, Summary: "g"},
		{ID: 1, Ty: "Result<i64, E>", Kind: mir.ExprCall, Callee: 0},
		{ID: 2, Kind: mir.ExprPropagate, Inner: 1},
	}
	fn.Body = intPtr(2)
	return fn
}

func TestPropagateResultLowering(t *testing.T) {
	generated := NewEmitter(TargetMachine{}, nil).EmitFunction(propagateFixture())
	ir := generated.IR
	assert.Contains(t, ir, "@reml_is_ctor_Ok", "Result flavour tests the Ok tag")
	assert.Contains(t, ir, "@reml_ctor_payload_Ok", "ok block extracts the payload")
	assert.Contains(t, ir, "@reml_value_i64", "payload converts to the caller's i64")
	assert.Contains(t, ir, "propagate.err#2:", "err block exists")

	// the err block returns the residual verbatim
	var errBlock *IRBlock
	for i := range generated.IRBlocks {
		if strings.HasPrefix(generated.IRBlocks[i].Label, "propagate.err") {
			errBlock = &generated.IRBlocks[i]
		}
	}
	require.NotNil(t, errBlock)
	_, isRet := errBlock.Terminator.(Ret)
	assert.True(t, isRet)
}

func TestPropagateOptionFlavour(t *testing.T) {
	fn := mir.NewFunction("f", "fast").WithReturn(mir.TypePtr)
	fn.Exprs = []mir.Expr{
		{ID: 0, Kind: mir.ExprIdentifier, Summary: "x"},
		{ID: 1, Ty: "Option<i64>", Kind: mir.ExprCall, Callee: 0},
		{ID: 2, Kind: mir.ExprPropagate, Inner: 1},
	}
	fn.Body = intPtr(2)
	generated := NewEmitter(TargetMachine{}, nil).EmitFunction(fn)
	assert.Contains(t, generated.IR, "@reml_ctor_payload_Some", "Option flavour extracts Some")
	assert.Contains(t, generated.IR, "icmp ne ptr", "Option tests the residual against null")
	assert.NotContains(t, generated.IR, "@reml_is_ctor_Ok")
}

func TestPanicLowering(t *testing.T) {
	fn := mir.NewFunction("boom", "fast")
	fn.Exprs = []mir.Expr{
		{ID: 0, Kind: mir.ExprLiteral, Summary: "42"},
		{ID: 1, Kind: mir.ExprPanic, Argument: intPtr(0)},
	}
	fn.Body = intPtr(1)
	generated := NewEmitter(TargetMachine{}, nil).EmitFunction(fn)
	ir := generated.IR
	assert.Contains(t, ir, "@reml_value_str", "non-string argument converts to Str first")
	assert.Contains(t, ir, "@reml_str_data", "then unwraps to a data pointer")
	assert.Contains(t, ir, "@panic", "panic intrinsic fires")
	assert.Contains(t, ir, "unreachable", "the panic block diverges")
}

// deferFixture: a block with two defers and a propagate tail; the defer
// list must run on both the ok and err paths.
func deferFixture() *mir.Function {
	fn := mir.NewFunction("cleanup", "fast").WithReturn(mir.TypePtr)
	tail := 4
	fn.Exprs = []mir.Expr{
		{ID: 0, Kind: mir.ExprIdentifier, Summary: "close_a"},
		{ID: 1, Kind: mir.ExprIdentifier, Summary: "close_b"},
		{ID: 2, Kind: mir.ExprIdentifier, Summary: "g"},
		{ID: 3, Ty: "Result<i64, E>", Kind: mir.ExprCall, Callee: 2},
		{ID: 4, Kind: mir.ExprPropagate, Inner: 3},
		{ID: 5, Kind: mir.ExprBlock, Statements: []mir.Stmt{
			{Kind: mir.StmtLet, Pattern: &mir.Pattern{Kind: mir.PatVar, Name: "y"}, Value: 4},
		}, Tail: &tail, DeferLIFO: []mir.ExprID{0, 1}},
	}
	fn.Body = intPtr(5)
	return fn
}

func TestDeferLIFOEmitsOnErrPath(t *testing.T) {
	generated := NewEmitter(TargetMachine{}, nil).EmitFunction(deferFixture())
	var errBlock *IRBlock
	for i := range generated.IRBlocks {
		if strings.Contains(generated.IRBlocks[i].Label, ".err") {
			errBlock = &generated.IRBlocks[i]
			break
		}
	}
	require.NotNil(t, errBlock, "the propagate err block exists")
	rendered := errBlock.Render()
	assert.Contains(t, rendered, "defer_lifo expr#0")
	assert.Contains(t, rendered, "defer_lifo expr#1")
}

func TestInlineAsmLowering(t *testing.T) {
	fn := mir.NewFunction("asm_fn", "fast")
	fn.Exprs = []mir.Expr{
		{ID: 0, Kind: mir.ExprLiteral, Summary: "7"},
		{ID: 1, Kind: mir.ExprInlineAsm,
			Template: "mov $0, %rax",
			Inputs:   []mir.InlineAsmIn{{Constraint: "r", Expr: 0}},
			Clobbers: []string{"rax"},
			Options:  []string{"volatile", "alignstack"},
		},
	}
	fn.Body = intPtr(1)
	generated := NewEmitter(TargetMachine{}, nil).EmitFunction(fn)
	ir := generated.IR
	assert.Contains(t, ir, "asm sideeffect alignstack")
	assert.Contains(t, ir, `~{rax}`, "clobbers format as ~{reg}")

	require.Len(t, generated.IRBlocks, 1)
	uses := NewEmitter(TargetMachine{}, nil)
	uses.EmitFunction(fn)
	module := uses.FinishModule("m")
	require.Len(t, module.InlineAsmUses, 1)
	assert.Equal(t, []string{"r", "~{rax}"}, module.InlineAsmUses[0].Constraints)
	assert.NotEmpty(t, module.InlineAsmUses[0].TemplateHash)
}

func TestLlvmIrEscapeLowering(t *testing.T) {
	fn := mir.NewFunction("escape", "fast").WithReturn(mir.TypeI64)
	fn.Exprs = []mir.Expr{
		{ID: 0, Kind: mir.ExprLiteral, Summary: "3"},
		{ID: 1, Kind: mir.ExprLlvmIr,
			ResultType: "i64",
			Template:   "%sum = add i64 $0, 1",
			IrInputs:   []mir.ExprID{0},
		},
	}
	fn.Body = intPtr(1)
	generated := NewEmitter(TargetMachine{}, nil).EmitFunction(fn)
	ir := generated.IR
	assert.Contains(t, ir, "%llvm_ir1_sum = add i64 3, 1", "SSA names are prefixed and placeholders substituted")
	assert.Contains(t, ir, "ret %llvm_ir1_sum", "the last assigned SSA is the result")
}

func TestLlvmIrUseCollectsInvalidPlaceholders(t *testing.T) {
	fn := mir.NewFunction("escape", "fast")
	fn.Exprs = []mir.Expr{
		{ID: 0, Kind: mir.ExprLlvmIr, ResultType: "void", Template: "call void @f($3)"},
	}
	fn.Body = intPtr(0)
	emitter := NewEmitter(TargetMachine{}, nil)
	emitter.EmitFunction(fn)
	module := emitter.FinishModule("m")
	require.Len(t, module.LlvmIrUses, 1)
	assert.Equal(t, []int{3}, module.LlvmIrUses[0].InvalidPlaceholders)
	assert.False(t, module.LlvmIrUses[0].HasResult, "missing result SSA is reported but non-fatal")
}

func TestRecordLiteralKeySortedWithStableTieBreak(t *testing.T) {
	b := newBuilder(TypeMapping{})
	fields := []recordLiteralField{
		{key: "zeta", value: []byte(`{"kind":"literal","value":{"kind":"int","value":1}}`)},
		{key: "alpha", value: []byte(`{"kind":"literal","value":{"kind":"int","value":2}}`)},
		{key: "alpha", value: []byte(`{"kind":"literal","value":{"kind":"int","value":3}}`)},
	}
	value := emitRecordLiteralValue(fields, "", b)
	rendered := make([]string, len(value.instrs))
	for i, instr := range value.instrs {
		rendered[i] = instr.Render()
	}
	joined := strings.Join(rendered, "\n")
	slot0 := strings.Index(joined, "record slot 0 = alpha")
	slot1 := strings.Index(joined, "record slot 1 = alpha")
	slot2 := strings.Index(joined, "record slot 2 = zeta")
	require.GreaterOrEqual(t, slot0, 0)
	assert.Greater(t, slot1, slot0, "duplicate keys keep source order")
	assert.Greater(t, slot2, slot1, "zeta sorts after alpha")
	// fields evaluate in source order before the sorted constructor call
	assert.Less(t, strings.Index(joined, "record field 0 -> zeta"), slot0)
}

func TestBoxingForAggregateSlots(t *testing.T) {
	b := newBuilder(TypeMapping{})
	boxed := ensureBoxedPointer(emittedValue{ty: "i64", operand: "42"}, b, "array element")
	rendered := ""
	for _, instr := range boxed.instrs {
		rendered += instr.Render() + "\n"
	}
	assert.Contains(t, rendered, "@reml_box_i64")
	assert.Equal(t, "ptr", boxed.ty)
}

func TestGuardLowering(t *testing.T) {
	pool := exprMap{
		0: {ID: 0, Kind: mir.ExprIdentifier, Summary: "a"},
		1: {ID: 1, Kind: mir.ExprLiteral, Summary: "5"},
		2: {ID: 2, Kind: mir.ExprBinary, Operator: "<", Left: 0, Right: 1},
		3: {ID: 3, Kind: mir.ExprBinary, Operator: "&&", Left: 2, Right: 2},
	}
	b := newBuilder(TypeMapping{})
	cond, instrs := emitBoolExpr(3, pool, b)
	require.NotEmpty(t, cond)
	rendered := ""
	for _, instr := range instrs {
		rendered += instr.Render() + "\n"
	}
	assert.Contains(t, rendered, "icmp slt i64")
	assert.Contains(t, rendered, "and i1")
}

func TestIfElseEarlyExitJoin(t *testing.T) {
	fn := mir.NewFunction("pick", "fast").WithReturn(mir.TypePtr)
	fn.Exprs = []mir.Expr{
		{ID: 0, Kind: mir.ExprLiteral, Summary: "true"},
		{ID: 1, Kind: mir.ExprLiteral, Summary: `{"kind":"string","value":"boom"}`},
		{ID: 2, Kind: mir.ExprPanic, Argument: intPtr(1)},
		{ID: 3, Kind: mir.ExprLiteral, Summary: "7"},
		{ID: 4, Kind: mir.ExprIfElse, Condition: 0, ThenBranch: 2, ElseBranch: 3},
	}
	fn.Body = intPtr(4)
	generated := NewEmitter(TargetMachine{}, nil).EmitFunction(fn)
	ir := generated.IR
	assert.Contains(t, ir, "ifelse4.then:", "then branch gets its own block")
	assert.Contains(t, ir, "unreachable", "panic branch diverges")
	assert.Contains(t, ir, "phi", "the normal branch still feeds the join")
}

func TestIfElseBothBranchesEarlyExitUnreachableJoin(t *testing.T) {
	fn := mir.NewFunction("dead", "fast")
	fn.Exprs = []mir.Expr{
		{ID: 0, Kind: mir.ExprLiteral, Summary: "true"},
		{ID: 1, Kind: mir.ExprPanic},
		{ID: 2, Kind: mir.ExprPanic},
		{ID: 3, Kind: mir.ExprIfElse, Condition: 0, ThenBranch: 1, ElseBranch: 2},
	}
	fn.Body = intPtr(3)
	generated := NewEmitter(TargetMachine{}, nil).EmitFunction(fn)
	var endBlock *IRBlock
	for i := range generated.IRBlocks {
		if strings.HasSuffix(generated.IRBlocks[i].Label, ".end") {
			endBlock = &generated.IRBlocks[i]
		}
	}
	require.NotNil(t, endBlock)
	_, isUnreachable := endBlock.Terminator.(Unreachable)
	assert.True(t, isUnreachable, "both branches early-exit, the join is unreachable")
}

func TestBranchPlanRendering(t *testing.T) {
	generated := NewEmitter(TargetMachine{}, nil).EmitFunction(matchFixture())
	require.NotEmpty(t, generated.BranchPlans)
	plan := generated.BranchPlans[0]
	assert.Contains(t, plan, "match#5 target=x ty=i64")
	assert.Contains(t, plan, "ctor_check(Some, args=1 on x)")
	assert.Contains(t, plan, "arm1.pat: ctor_check(None, args=0 on x)")
}

func TestLowererNeverFails(t *testing.T) {
	// unknown expression kinds become annotation comments, not errors
	fn := mir.NewFunction("odd", "fast")
	fn.Exprs = []mir.Expr{{ID: 0, Kind: mir.ExprUnknown}}
	fn.Body = intPtr(0)
	generated := NewEmitter(TargetMachine{}, nil).EmitFunction(fn)
	assert.Contains(t, generated.IR, "unsupported -> fallback operand")
}

func TestMultiArgPayloadFallback(t *testing.T) {
	fn := mir.NewFunction("pair", "fast").WithReturn(mir.TypeI64)
	fn.Exprs = []mir.Expr{
		{ID: 0, Kind: mir.ExprIdentifier, Summary: "p"},
		{ID: 1, Kind: mir.ExprLiteral, Summary: "0"},
		{ID: 2, Kind: mir.ExprMatch, Target: 0,
			Arms: []mir.MatchArm{
				{Pattern: mir.Pattern{Kind: mir.PatConstructor, Name: "Pair",
					Args: []mir.Pattern{{Kind: mir.PatVar, Name: "a"}, {Kind: mir.PatVar, Name: "b"}}}, Body: 1},
			},
			Lowering: &mir.MatchPlan{TargetType: "i64"},
		},
	}
	fn.Body = intPtr(2)
	generated := NewEmitter(TargetMachine{}, nil).EmitFunction(fn)
	assert.Contains(t, generated.IR, "multi-arg payload matching unsupported")
	assert.Contains(t, generated.IR, "@reml_match_check", "the fallback is a runtime check")
}

func TestSlicePatternLenChecks(t *testing.T) {
	withRest := mir.Pattern{Kind: mir.PatSlice, Slice: &mir.SlicePattern{
		Head: []mir.Pattern{{Kind: mir.PatVar, Name: "h"}},
		Rest: &mir.SliceRest{Binding: "rest"},
		Tail: []mir.Pattern{{Kind: mir.PatVar, Name: "t"}},
	}}
	b := newBuilder(TypeMapping{})
	_, irBlocks := emitSliceBlocks(0, &withRest, "ok", "miss", "%arg0", "xs", b)
	require.Len(t, irBlocks, 1)
	rendered := irBlocks[0].Render()
	assert.Contains(t, rendered, "icmp uge i64", "rest binding relaxes the length check")
	assert.Contains(t, rendered, "@len")

	exact := mir.Pattern{Kind: mir.PatSlice, Slice: &mir.SlicePattern{
		Head: []mir.Pattern{{Kind: mir.PatVar, Name: "h"}},
	}}
	_, irBlocks = emitSliceBlocks(0, &exact, "ok", "miss", "%arg0", "xs", b)
	assert.Contains(t, irBlocks[0].Render(), "icmp eq i64")
}

func TestRangePatternBounds(t *testing.T) {
	lo := mir.Pattern{Kind: mir.PatLiteral, Summary: "1"}
	hi := mir.Pattern{Kind: mir.PatLiteral, Summary: "9"}
	pattern := mir.Pattern{Kind: mir.PatRange, Start: &lo, End: &hi, Inclusive: true}
	_, irBlocks := emitRangeBlocks(0, &pattern, "ok", "miss", "%arg0", "n")
	require.Len(t, irBlocks, 1)
	rendered := irBlocks[0].Render()
	assert.Contains(t, rendered, "icmp sge i64")
	assert.Contains(t, rendered, "icmp sle i64", "inclusive upper bound uses sle")
	assert.Contains(t, rendered, "and i1")

	exclusive := mir.Pattern{Kind: mir.PatRange, Start: &lo, End: &hi}
	_, irBlocks = emitRangeBlocks(0, &exclusive, "ok", "miss", "%arg0", "n")
	assert.Contains(t, irBlocks[0].Render(), "icmp slt i64", "exclusive upper bound uses slt")
}

func TestRegexPattern(t *testing.T) {
	pattern := mir.Pattern{Kind: mir.PatRegex, Regex: "^a+$"}
	b := newBuilder(TypeMapping{})
	cond, instrs := emitPatternCond(b, &pattern, "%arg0", "s", "miss", "pat")
	require.NotEmpty(t, cond)
	rendered := ""
	for _, instr := range instrs {
		rendered += instr.Render() + "\n"
	}
	assert.Contains(t, rendered, "@reml_regex_match")
}

func TestActivePatternPartial(t *testing.T) {
	pattern := mir.Pattern{Kind: mir.PatActive, Active: &mir.ActiveCall{Name: "Even", Kind: mir.ActivePartial}}
	b := newBuilder(TypeMapping{})
	_, irBlocks := emitActiveBlocks(0, &pattern, "ok", "miss", "%arg0", "n", b)
	require.Len(t, irBlocks, 1)
	rendered := irBlocks[0].Render()
	assert.Contains(t, rendered, "@Even")
	assert.Contains(t, rendered, "icmp ne ptr", "partial converts the pointer to a boolean")
}

func TestEmitterModuleSummary(t *testing.T) {
	emitter := NewEmitter(TargetMachine{Triple: "aarch64-apple-darwin"}, nil)
	emitter.EmitFunction(matchFixture())
	emitter.WithMetadata("opt-level=0")
	module := emitter.FinishModule("demo")
	summary := module.Describe()
	assert.Contains(t, summary, "module demo")
	assert.Contains(t, summary, "functions: 1")
	assert.Contains(t, summary, "opt-level=0")
}

func TestFunctionSignatureRendering(t *testing.T) {
	fn := mir.NewFunction("sig", "fast").WithParam(mir.TypePtr).WithParam(mir.TypeI64).WithReturn(mir.TypePtr)
	fn.Exprs = []mir.Expr{{ID: 0, Kind: mir.ExprLiteral, Summary: "unit"}}
	fn.Body = intPtr(0)
	generated := NewEmitter(TargetMachine{}, nil).EmitFunction(fn)
	assert.True(t, strings.HasPrefix(generated.IR, "define ptr @sig(ptr, i64) {"), "signature renders sanitized name and layouts: %s", generated.IR)
}
