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
	"fmt"
	"strings"

	"github.com/teradata-labs/remlc/pkg/mir"
)

// TargetMachine pins the target the module is emitted for. Concrete LLVM
// bytecode emission is out of scope; the triple and layout ride along as
// module metadata for the backend that consumes the text.
type TargetMachine struct {
	Triple     string
	DataLayout string
}

// Describe renders the target for module summaries.
func (t TargetMachine) Describe() string {
	return t.Triple
}

// LoweredFfiCall is the stub plan for one foreign call signature.
type LoweredFfiCall struct {
	Symbol     string
	StubSymbol string
	ABI        string
	Params     []string
	Return     string
}

// InlineAsmUse is the audit record of one inline-asm escape.
type InlineAsmUse struct {
	Function     string
	Template     string
	TemplateHash string
	Constraints  []string
}

// LlvmIrUse is the audit record of one llvm-ir escape, including the
// diagnostics collected while splicing it (out-of-range placeholders,
// missing result SSA).
type LlvmIrUse struct {
	Function            string
	Template            string
	TemplateHash        string
	Inputs              []string
	ResultType          string
	HasResult           bool
	InvalidPlaceholders []int
}

// GeneratedFunction is one emitted function: the annotated block list,
// the linear IR block list (same labels), the rendered IR text, lowered
// FFI stubs, and the branch-plan summaries.
type GeneratedFunction struct {
	Name        string
	Layout      TypeLayout
	CallingConv string
	Attributes  []string
	LoweredCalls []LoweredFfiCall
	BranchPlans []string
	Blocks      []Block
	IRBlocks    []IRBlock
	IR          string
}

// Describe renders a one-line summary.
func (g GeneratedFunction) Describe() string {
	return fmt.Sprintf("%s -> %s via %s %v", g.Name, g.Layout.Description, g.CallingConv, g.Attributes)
}

// ModuleIR is the finished module: functions, audit lists for native
// escapes, and metadata.
type ModuleIR struct {
	Name          string
	Target        TargetMachine
	Functions     []GeneratedFunction
	IRFunctions   []IRFunction
	Metadata      []string
	IntrinsicUses []IntrinsicUse
	InlineAsmUses []InlineAsmUse
	LlvmIrUses    []LlvmIrUse
}

// IntrinsicUse records a function declared with an intrinsic attribute.
type IntrinsicUse struct {
	Function  string
	Intrinsic string
}

// Describe renders the module summary line.
func (m ModuleIR) Describe() string {
	parts := []string{
		fmt.Sprintf("module %s (target: %s)", m.Name, m.Target.Describe()),
		fmt.Sprintf("functions: %d", len(m.Functions)),
	}
	if len(m.IntrinsicUses) > 0 {
		parts = append(parts, fmt.Sprintf("intrinsics: %d", len(m.IntrinsicUses)))
	}
	if len(m.InlineAsmUses) > 0 {
		parts = append(parts, fmt.Sprintf("inline_asm: %d", len(m.InlineAsmUses)))
	}
	if len(m.LlvmIrUses) > 0 {
		parts = append(parts, fmt.Sprintf("llvm_ir: %d", len(m.LlvmIrUses)))
	}
	parts = append(parts, m.Metadata...)
	return strings.Join(parts, " | ")
}

// Emitter owns the per-module lowering state: the target, the type
// mapper, and the accumulating function/use lists. One Emitter emits one
// module.
type Emitter struct {
	target         TargetMachine
	types          TypeMapping
	runtimeSymbols []string
	functions      []GeneratedFunction
	irFunctions    []IRFunction
	metadata       []string
	intrinsicUses  []IntrinsicUse
	inlineAsmUses  []InlineAsmUse
	llvmIrUses     []LlvmIrUse
}

// NewEmitter builds an emitter for target. runtimeSymbols lists the
// runtime intrinsics the emitted IR may assume; the emitter stores the
// list, and no lowering step, the FFI stub planner included, reads it.
func NewEmitter(target TargetMachine, runtimeSymbols []string) *Emitter {
	return &Emitter{target: target, runtimeSymbols: runtimeSymbols}
}

// Describe renders a one-line emitter summary.
func (e *Emitter) Describe() string {
	return fmt.Sprintf("codegen(target=%s, functions=%d)", e.target.Describe(), len(e.functions))
}

// WithMetadata appends a module metadata entry.
func (e *Emitter) WithMetadata(entry string) {
	e.metadata = append(e.metadata, entry)
}

// EmitFunction lowers one MIR function. Lowering is deterministic: two
// calls over the same function produce byte-identical IR.
func (e *Emitter) EmitFunction(fn *mir.Function) GeneratedFunction {
	retLayout := TypeLayout{Size: 0, Align: 1, Description: "void"}
	if fn.Return != nil {
		retLayout = e.types.LayoutOf(*fn.Return)
	}

	var loweredCalls []LoweredFfiCall
	for _, sig := range fn.FfiCalls {
		loweredCalls = append(loweredCalls, e.lowerFfiCall(sig))
	}
	for _, attr := range fn.Attributes {
		if name, ok := parseIntrinsicAttribute(attr); ok {
			e.intrinsicUses = append(e.intrinsicUses, IntrinsicUse{Function: fn.Name, Intrinsic: name})
		}
	}
	if len(fn.Exprs) > 0 {
		e.inlineAsmUses = append(e.inlineAsmUses, collectInlineAsmUses(fn.Name, fn.Exprs)...)
		e.llvmIrUses = append(e.llvmIrUses, collectLlvmIrUses(fn.Name, fn.Exprs, e.types)...)
	}

	branchPlans := fn.MatchPlans
	if len(fn.Exprs) > 0 {
		branchPlans = renderBranchPlans(fn.Exprs)
	}

	var blocks []Block
	var irBlocks []IRBlock
	if len(fn.Exprs) > 0 {
		blocks, irBlocks = lowerMatchToBlocks(fn.Exprs, e.types)
		if len(irBlocks) == 0 && fn.Body != nil {
			blocks, irBlocks = lowerEntryExprToBlocks(fn.Exprs, *fn.Body, e.types)
		}
	}

	irFn := e.buildIRFunction(fn, irBlocks)
	generated := GeneratedFunction{
		Name:         fn.Name,
		Layout:       retLayout,
		CallingConv:  fn.CallingConv,
		Attributes:   append([]string(nil), fn.Attributes...),
		LoweredCalls: loweredCalls,
		BranchPlans:  branchPlans,
		Blocks:       blocks,
		IRBlocks:     irBlocks,
		IR:           irFn.Render(),
	}
	e.functions = append(e.functions, generated)
	e.irFunctions = append(e.irFunctions, irFn)
	return generated
}

func (e *Emitter) buildIRFunction(fn *mir.Function, blocks []IRBlock) IRFunction {
	params := make([]string, len(fn.Params))
	for i, ty := range fn.Params {
		params[i] = e.types.LayoutOf(ty).Description
	}
	ret := "void"
	if fn.Return != nil {
		ret = e.types.LayoutOf(*fn.Return).Description
	}
	name := fn.Name
	if !strings.HasPrefix(name, "@") && !strings.HasPrefix(name, "%") {
		name = "@" + name
	}
	return IRFunction{
		Name:   SanitizeSymbol(name),
		Params: params,
		Ret:    ret,
		Blocks: blocks,
	}
}

func (e *Emitter) lowerFfiCall(sig mir.FfiCallSignature) LoweredFfiCall {
	params := make([]string, len(sig.Params))
	for i, ty := range sig.Params {
		params[i] = e.types.LayoutOf(ty).Description
	}
	ret := "void"
	if sig.Return != nil {
		ret = e.types.LayoutOf(*sig.Return).Description
	}
	abi := sig.ABI
	if abi == "" {
		abi = "c"
	}
	return LoweredFfiCall{
		Symbol:     sig.Symbol,
		StubSymbol: SanitizeSymbol("@reml_ffi_stub_" + sig.Symbol),
		ABI:        abi,
		Params:     params,
		Return:     ret,
	}
}

// FinishModule seals the emitter into a module.
func (e *Emitter) FinishModule(name string) ModuleIR {
	return ModuleIR{
		Name:          name,
		Target:        e.target,
		Functions:     e.functions,
		IRFunctions:   e.irFunctions,
		Metadata:      e.metadata,
		IntrinsicUses: e.intrinsicUses,
		InlineAsmUses: e.inlineAsmUses,
		LlvmIrUses:    e.llvmIrUses,
	}
}

// parseIntrinsicAttribute recognizes `intrinsic(name)` attributes.
func parseIntrinsicAttribute(attr string) (string, bool) {
	trimmed := strings.TrimSpace(attr)
	rest, ok := strings.CutPrefix(trimmed, "intrinsic(")
	if !ok {
		return "", false
	}
	name, ok := strings.CutSuffix(rest, ")")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

func collectInlineAsmUses(function string, exprs []mir.Expr) []InlineAsmUse {
	var uses []InlineAsmUse
	for i := range exprs {
		expr := &exprs[i]
		if expr.Kind != mir.ExprInlineAsm {
			continue
		}
		outputs := make([]asmOutput, len(expr.Outputs))
		for j, out := range expr.Outputs {
			outputs[j] = asmOutput{constraint: out.Constraint, target: out.Target}
		}
		inputs := make([]asmInput, len(expr.Inputs))
		for j, in := range expr.Inputs {
			inputs[j] = asmInput{constraint: in.Constraint, expr: in.Expr}
		}
		uses = append(uses, InlineAsmUse{
			Function:     function,
			Template:     expr.Template,
			TemplateHash: hashTemplate(expr.Template),
			Constraints:  buildInlineAsmConstraintList(outputs, inputs, expr.Clobbers),
		})
	}
	return uses
}

func collectLlvmIrUses(function string, exprs []mir.Expr, types TypeMapping) []LlvmIrUse {
	pool := make(exprMap, len(exprs))
	for i := range exprs {
		pool[exprs[i].ID] = &exprs[i]
	}
	b := newBuilder(types)
	var uses []LlvmIrUse
	for i := range exprs {
		expr := &exprs[i]
		if expr.Kind != mir.ExprLlvmIr {
			continue
		}
		var inputLabels []string
		for _, inputID := range expr.IrInputs {
			label := ""
			if input, ok := pool[inputID]; ok && strings.TrimSpace(input.Ty) != "" {
				label = input.Ty
			} else {
				label = inferExprLLVMType(inputID, pool, b)
			}
			inputLabels = append(inputLabels, label)
		}
		uses = append(uses, LlvmIrUse{
			Function:            function,
			Template:            expr.Template,
			TemplateHash:        hashTemplate(expr.Template),
			Inputs:              inputLabels,
			ResultType:          expr.ResultType,
			HasResult:           findLastAssignedSSA(expr.Template) != "",
			InvalidPlaceholders: collectInvalidPlaceholders(expr.Template, len(expr.IrInputs)),
		})
	}
	return uses
}

// lowerEntryExprToBlocks lowers the function's entry expression when the
// pool holds no match: early-exit shapes get their block graphs, blocks
// with statements go through the operand path, everything else collapses
// into a single entry block ending in ret.
func lowerEntryExprToBlocks(exprs []mir.Expr, body mir.ExprID, types TypeMapping) ([]Block, []IRBlock) {
	pool := make(exprMap, len(exprs))
	for i := range exprs {
		pool[exprs[i].ID] = &exprs[i]
	}
	b := newBuilder(types)
	bodyTyHint := inferExprTypeHint(body, pool)
	if expr, ok := pool[body]; ok {
		switch expr.Kind {
		case mir.ExprPanic:
			value := emitValueExpr(body, pool, b)
			return lowerPanicValueToBlocks(body, value, b)

		case mir.ExprPropagate:
			value := emitValueExpr(body, pool, b)
			return lowerPropagateValueToBlocks(body, value, bodyTyHint, b)

		case mir.ExprEffectBlock, mir.ExprUnsafe:
			return lowerEntryExprToBlocks(exprs, expr.Body, types)

		case mir.ExprBlock:
			if len(expr.Statements) > 0 {
				return lowerEntryExprViaOperand(pool, body, b)
			}
			if expr.Tail != nil {
				if tail, ok := pool[*expr.Tail]; ok {
					switch tail.Kind {
					case mir.ExprPanic:
						value := emitValueExpr(body, pool, b)
						return lowerPanicValueToBlocks(body, value, b)
					case mir.ExprPropagate:
						value := emitValueExpr(body, pool, b)
						tailTyHint := inferExprTypeHint(*expr.Tail, pool)
						return lowerPropagateValueToBlocks(body, value, tailTyHint, b)
					case mir.ExprIfElse:
						if len(expr.DeferLIFO) > 0 {
							thenKind := classifyBranchKind(tail.ThenBranch, pool)
							elseKind := classifyBranchKind(tail.ElseBranch, pool)
							if thenKind.isEarlyExit() || elseKind.isEarlyExit() {
								return lowerBlockTailIfElseWithDeferToBlocks(
									body, tail.Condition, tail.ThenBranch, tail.ElseBranch,
									expr.DeferLIFO, pool, b)
							}
						}
					}
				}
			}

		case mir.ExprIfElse:
			thenKind := classifyBranchKind(expr.ThenBranch, pool)
			elseKind := classifyBranchKind(expr.ElseBranch, pool)
			if thenKind.isEarlyExit() || elseKind.isEarlyExit() {
				return lowerIfElseWithPropagateToBlocks(body, expr.Condition, expr.ThenBranch, expr.ElseBranch, pool, b)
			}

		case mir.ExprCall:
			if exprContainsEarlyExit(expr.Callee, pool) || anyContainsEarlyExit(expr.Args, pool) {
				return lowerCallEntryToBlocks(body, expr.Callee, expr.Args, pool, b)
			}

		case mir.ExprBinary:
			if isArithmeticOp(expr.Operator) &&
				(exprContainsEarlyExit(expr.Left, pool) || exprContainsEarlyExit(expr.Right, pool)) {
				return lowerBinaryEntryToBlocks(body, expr.Operator, expr.Left, expr.Right, pool, b)
			}
		}
	}

	value := emitValueExpr(body, pool, b)
	block := Block{
		Label:      "entry",
		Instrs:     []string{fmt.Sprintf("exec body#%d", body)},
		Terminator: "ret " + value.operand,
	}
	irInstrs := append([]Instr{Comment(fmt.Sprintf("exec body#%d", body))}, value.instrs...)
	irBlock := IRBlock{Label: "entry", Instrs: irInstrs, Terminator: Ret{Value: value.operand}}
	return []Block{block}, []IRBlock{irBlock}
}

func anyContainsEarlyExit(ids []mir.ExprID, pool exprMap) bool {
	for _, id := range ids {
		if exprContainsEarlyExit(id, pool) {
			return true
		}
	}
	return false
}

func lowerEntryExprViaOperand(pool exprMap, body mir.ExprID, b *builder) ([]Block, []IRBlock) {
	endLabel := "entry.end"
	result := lowerExprToOperandBlocks("entry", body, pool, b, endLabel, nil)
	if result.terminated {
		return result.blocks, result.irBlocks
	}
	operand := operandTy{operand: "null", ty: b.pointerType()}
	if result.operand != nil {
		operand = *result.operand
	}
	blocks := append(result.blocks, Block{
		Label:      endLabel,
		Instrs:     []string{"ret " + operand.operand},
		Terminator: "ret " + operand.operand,
	})
	irBlocks := append(result.irBlocks, IRBlock{
		Label:      endLabel,
		Instrs:     []Instr{Comment("ret operand")},
		Terminator: Ret{Value: operand.operand},
	})
	return blocks, irBlocks
}

// lowerCallEntryToBlocks is the entry-position variant of the call
// operand chain: the final block returns the call result.
func lowerCallEntryToBlocks(body mir.ExprID, callee mir.ExprID, args []mir.ExprID, pool exprMap, b *builder) ([]Block, []IRBlock) {
	var blocks []Block
	var irBlocks []IRBlock
	stepLabel := "entry"
	nextIndex := 0
	var operands []operandTy
	steps := append([]mir.ExprID{callee}, args...)
	for _, exprID := range steps {
		nextLabel := fmt.Sprintf("call%d.step%d", body, nextIndex)
		nextIndex++
		result := lowerExprToOperandBlocks(stepLabel, exprID, pool, b, nextLabel, nil)
		blocks = append(blocks, result.blocks...)
		irBlocks = append(irBlocks, result.irBlocks...)
		if result.terminated {
			return blocks, irBlocks
		}
		if result.operand != nil {
			operands = append(operands, *result.operand)
		}
		stepLabel = nextLabel
	}

	calleeArg := Arg{Ty: b.pointerType(), Value: "null"}
	if len(operands) > 0 {
		calleeArg = Arg{Ty: operands[0].ty, Value: operands[0].operand}
	}
	callArgs := []Arg{calleeArg}
	if len(operands) > 1 {
		for _, op := range operands[1:] {
			callArgs = append(callArgs, Arg{Ty: op.ty, Value: op.operand})
		}
	}
	retTy := inferCallReturnType(callee, pool, b)
	result := b.newTmp("call")
	blocks = append(blocks, Block{
		Label:      stepLabel,
		Instrs:     []string{fmt.Sprintf("exec call#%d", body)},
		Terminator: "ret " + result,
	})
	irBlocks = append(irBlocks, IRBlock{
		Label: stepLabel,
		Instrs: []Instr{
			Comment(fmt.Sprintf("exec call#%d", body)),
			Call{Result: result, RetTy: retTy, Callee: intrinsicCall, Args: callArgs},
		},
		Terminator: Ret{Value: result},
	})
	return blocks, irBlocks
}

// lowerBinaryEntryToBlocks is the entry-position variant of the binary
// operand chain: the final block returns the arithmetic result.
func lowerBinaryEntryToBlocks(body mir.ExprID, operator string, left, right mir.ExprID, pool exprMap, b *builder) ([]Block, []IRBlock) {
	var blocks []Block
	var irBlocks []IRBlock
	stepLabel := "entry"
	nextIndex := 0
	var operands []operandTy
	for _, exprID := range []mir.ExprID{left, right} {
		nextLabel := fmt.Sprintf("bin%d.step%d", body, nextIndex)
		nextIndex++
		result := lowerExprToOperandBlocks(stepLabel, exprID, pool, b, nextLabel, nil)
		blocks = append(blocks, result.blocks...)
		irBlocks = append(irBlocks, result.irBlocks...)
		if result.terminated {
			return blocks, irBlocks
		}
		if result.operand != nil {
			operands = append(operands, *result.operand)
		}
		stepLabel = nextLabel
	}

	lhs, rhs := operandTy{operand: "0", ty: "i64"}, operandTy{operand: "0", ty: "i64"}
	if len(operands) > 0 {
		lhs = operands[0]
	}
	if len(operands) > 1 {
		rhs = operands[1]
	}
	result := b.newTmp("bin")
	op := map[string]string{"+": "add", "-": "sub", "*": "mul", "/": "sdiv", "%": "srem"}[operator]
	if op == "" {
		op = "add"
	}
	instrs := []Instr{Comment(fmt.Sprintf("exec binary#%d", body))}
	lhsOperand, rhsOperand := lhs.operand, rhs.operand
	if lhs.ty != "i64" {
		cast := b.newTmp("lhs_i64")
		instrs = append(instrs, Call{Result: cast, RetTy: "i64", Callee: intrinsicValueI64,
			Args: []Arg{{Ty: "i64", Value: lhsOperand}}})
		lhsOperand = cast
	}
	if rhs.ty != "i64" {
		cast := b.newTmp("rhs_i64")
		instrs = append(instrs, Call{Result: cast, RetTy: "i64", Callee: intrinsicValueI64,
			Args: []Arg{{Ty: "i64", Value: rhsOperand}}})
		rhsOperand = cast
	}
	instrs = append(instrs, BinOp{Result: result, Op: op, Ty: "i64", LHS: lhsOperand, RHS: rhsOperand})
	blocks = append(blocks, Block{
		Label:      stepLabel,
		Instrs:     []string{fmt.Sprintf("exec binary#%d", body)},
		Terminator: "ret " + result,
	})
	irBlocks = append(irBlocks, IRBlock{Label: stepLabel, Instrs: instrs, Terminator: Ret{Value: result}})
	return blocks, irBlocks
}
