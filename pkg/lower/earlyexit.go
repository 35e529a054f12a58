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

type branchKind int

const (
	branchNormal branchKind = iota
	branchPropagate
	branchPanic
)

func (k branchKind) isEarlyExit() bool {
	return k == branchPropagate || k == branchPanic
}

// classifyBranchKind decides whether a branch is a normal value, a
// propagate, or a panic — looking through rec markers, effect/unsafe
// wrappers, and block tails.
func classifyBranchKind(id mir.ExprID, exprs exprMap) branchKind {
	expr, ok := exprs[id]
	if !ok {
		return branchNormal
	}
	switch expr.Kind {
	case mir.ExprPropagate:
		return branchPropagate
	case mir.ExprPanic:
		return branchPanic
	case mir.ExprRec:
		return classifyBranchKind(expr.Target, exprs)
	case mir.ExprEffectBlock, mir.ExprUnsafe:
		return classifyBranchKind(expr.Body, exprs)
	case mir.ExprBlock:
		if expr.Tail == nil {
			return branchNormal
		}
		tail, ok := exprs[*expr.Tail]
		if !ok {
			return branchNormal
		}
		switch tail.Kind {
		case mir.ExprPropagate:
			return branchPropagate
		case mir.ExprPanic:
			return branchPanic
		}
	}
	return branchNormal
}

// exprContainsEarlyExit reports whether lowering the expression needs a
// block graph because some sub-expression panics or propagates.
func exprContainsEarlyExit(id mir.ExprID, exprs exprMap) bool {
	expr, ok := exprs[id]
	if !ok {
		return false
	}
	switch expr.Kind {
	case mir.ExprPropagate, mir.ExprPanic:
		return true
	case mir.ExprRec:
		return exprContainsEarlyExit(expr.Target, exprs)
	case mir.ExprEffectBlock, mir.ExprUnsafe:
		return exprContainsEarlyExit(expr.Body, exprs)
	case mir.ExprBlock:
		for i := range expr.Statements {
			stmt := &expr.Statements[i]
			switch stmt.Kind {
			case mir.StmtLet:
				if exprContainsEarlyExit(stmt.Value, exprs) {
					return true
				}
			case mir.StmtExpr:
				if exprContainsEarlyExit(stmt.Expr, exprs) {
					return true
				}
			case mir.StmtAssign:
				if exprContainsEarlyExit(stmt.Target, exprs) || exprContainsEarlyExit(stmt.Value, exprs) {
					return true
				}
			case mir.StmtDefer:
				if exprContainsEarlyExit(stmt.Expr, exprs) {
					return true
				}
			}
		}
		if expr.Tail != nil {
			return exprContainsEarlyExit(*expr.Tail, exprs)
		}
		return false
	case mir.ExprIfElse:
		return exprContainsEarlyExit(expr.Condition, exprs) ||
			exprContainsEarlyExit(expr.ThenBranch, exprs) ||
			exprContainsEarlyExit(expr.ElseBranch, exprs)
	case mir.ExprCall:
		if exprContainsEarlyExit(expr.Callee, exprs) {
			return true
		}
		for _, arg := range expr.Args {
			if exprContainsEarlyExit(arg, exprs) {
				return true
			}
		}
		return false
	case mir.ExprIndex:
		return exprContainsEarlyExit(expr.Target, exprs) || exprContainsEarlyExit(expr.Index, exprs)
	case mir.ExprBinary:
		return exprContainsEarlyExit(expr.Left, exprs) || exprContainsEarlyExit(expr.Right, exprs)
	}
	return false
}

type propagateFlavor int

const (
	flavorResult propagateFlavor = iota
	flavorOption
)

// inferPropagateFlavor keys off the type hint: Option<…> checks ne null,
// Result<…> checks the Ok constructor tag; the default is Result.
func inferPropagateFlavor(tyHint string) propagateFlavor {
	trimmed := strings.TrimSpace(tyHint)
	if strings.HasPrefix(trimmed, "Option") || strings.Contains(trimmed, "Option<") {
		return flavorOption
	}
	return flavorResult
}

func (f propagateFlavor) ctorName() string {
	if f == flavorOption {
		return "Some"
	}
	return "Ok"
}

// propagateCondInstrs emits the flavour's residual test into instrs and
// returns the condition operand.
func propagateCondInstrs(flavor propagateFlavor, condLabel, residual string, b *builder, instrs *[]Instr) string {
	cond := b.newTmp("propagate_ok")
	switch flavor {
	case flavorOption:
		*instrs = append(*instrs,
			Comment(condLabel+": check Some/None"),
			Icmp{Result: cond, Pred: "ne", Ty: b.pointerType(), LHS: residual, RHS: "null"})
	default:
		*instrs = append(*instrs,
			Comment(condLabel+": check Ok/Err"),
			Call{Result: cond, RetTy: b.boolType(), Callee: intrinsicIsCtor("Ok"),
				Args: []Arg{{Ty: b.pointerType(), Value: residual}}})
	}
	return cond
}

// lowerPanicArgument coerces the panic argument to a pointer: a pointer
// passes through, a Str argument goes through @reml_str_data, and any other
// argument is first converted with @reml_value_str.
func lowerPanicArgument(ty, operand string, b *builder, instrs *[]Instr) string {
	if ty == b.pointerType() {
		return operand
	}
	strOperand := operand
	if ty != "Str" {
		converted := b.newTmp("panic_str")
		*instrs = append(*instrs, Call{Result: converted, RetTy: "Str", Callee: intrinsicValueStr,
			Args: []Arg{{Ty: "Str", Value: operand}}})
		strOperand = converted
	}
	ptr := b.newTmp("panic_ptr")
	*instrs = append(*instrs, Call{Result: ptr, RetTy: b.pointerType(), Callee: intrinsicStrData,
		Args: []Arg{{Ty: "Str", Value: strOperand}}})
	return ptr
}

func panicCallInstrs(body mir.ExprID, value emittedValue, b *builder) []Instr {
	instrs := value.instrs
	arg := lowerPanicArgument(value.ty, value.operand, b, &instrs)
	instrs = append(instrs,
		Comment(fmt.Sprintf("panic expr#%d -> %s", body, intrinsicPanic)),
		Call{RetTy: "void", Callee: intrinsicPanic, Args: []Arg{{Ty: b.pointerType(), Value: arg}}})
	return instrs
}

// lowerPanicValueToNamedBlock terminates label with @panic + unreachable.
func lowerPanicValueToNamedBlock(label string, body mir.ExprID, value emittedValue, b *builder) (Block, IRBlock) {
	instrs := panicCallInstrs(body, value, b)
	block := Block{
		Label:      label,
		Instrs:     []string{fmt.Sprintf("panic expr#%d", body)},
		Terminator: "unreachable",
	}
	irInstrs := append([]Instr{Comment(fmt.Sprintf("panic expr#%d", body))}, instrs...)
	return block, IRBlock{Label: label, Instrs: irInstrs, Terminator: Unreachable{}}
}

// lowerPanicValueToNamedBlockWithDefers is the defer-carrying variant:
// the defer list runs before the panic call so cleanup happens on this
// exit path too.
func lowerPanicValueToNamedBlockWithDefers(label string, body mir.ExprID, value emittedValue, deferLIFO []mir.ExprID, exprs exprMap, b *builder) (Block, IRBlock) {
	instrs := value.instrs
	emitDeferLIFOInstrs(deferLIFO, exprs, b, &instrs)
	arg := lowerPanicArgument(value.ty, value.operand, b, &instrs)
	instrs = append(instrs,
		Comment(fmt.Sprintf("panic expr#%d -> %s", body, intrinsicPanic)),
		Call{RetTy: "void", Callee: intrinsicPanic, Args: []Arg{{Ty: b.pointerType(), Value: arg}}})
	block := Block{
		Label:      label,
		Instrs:     []string{fmt.Sprintf("panic expr#%d", body)},
		Terminator: "unreachable",
	}
	irInstrs := append([]Instr{Comment(fmt.Sprintf("panic expr#%d", body))}, instrs...)
	return block, IRBlock{Label: label, Instrs: irInstrs, Terminator: Unreachable{}}
}

func lowerPanicValueToBlocks(body mir.ExprID, value emittedValue, b *builder) ([]Block, []IRBlock) {
	block, irBlock := lowerPanicValueToNamedBlock("entry", body, value, b)
	return []Block{block}, []IRBlock{irBlock}
}

// lowerPropagateValueToBlocks is the function-entry propagate shape: the
// entry block tests the residual, ok extracts and converts the payload
// and returns it, err returns the residual verbatim.
func lowerPropagateValueToBlocks(body mir.ExprID, value emittedValue, tyHint string, b *builder) ([]Block, []IRBlock) {
	okLabel := fmt.Sprintf("propagate.ok#%d", body)
	errLabel := fmt.Sprintf("propagate.err#%d", body)
	condLabel := fmt.Sprintf("propagate.cond#%d", body)
	flavor := inferPropagateFlavor(tyHint)
	residual := value.operand

	entryInstrs := append([]Instr{Comment(fmt.Sprintf("exec propagate#%d", body))}, value.instrs...)
	cond := propagateCondInstrs(flavor, condLabel, residual, b, &entryInstrs)

	entryBlock := Block{
		Label:      "entry",
		Instrs:     []string{fmt.Sprintf("exec propagate#%d", body)},
		Terminator: fmt.Sprintf("br_if %s then %s else %s", cond, okLabel, errLabel),
	}
	entryIR := IRBlock{Label: "entry", Instrs: entryInstrs,
		Terminator: BrCond{Cond: cond, Then: okLabel, Else: errLabel}}

	payload := b.newTmp("propagate_payload")
	payloadTy, hasPayloadTy := inferPropagatePayloadType(tyHint, b)
	okInstrs := []Instr{
		Comment(fmt.Sprintf("propagate ok#%d -> payload", body)),
		Call{Result: payload, RetTy: b.pointerType(), Callee: intrinsicCtorPayload(flavor.ctorName()),
			Args: []Arg{{Ty: b.pointerType(), Value: residual}}},
	}
	payloadValue, _ := convertPropagatePayload(payload, payloadTy, hasPayloadTy, b, &okInstrs)
	okBlock := Block{
		Label:      okLabel,
		Instrs:     []string{fmt.Sprintf("propagate ok#%d -> payload", body)},
		Terminator: "ret " + payloadValue,
	}
	okIR := IRBlock{Label: okLabel, Instrs: okInstrs, Terminator: Ret{Value: payloadValue}}

	errBlock := Block{
		Label:      errLabel,
		Instrs:     []string{fmt.Sprintf("propagate err#%d -> return residual", body)},
		Terminator: "ret " + residual,
	}
	errIR := IRBlock{Label: errLabel,
		Instrs:     []Instr{Comment(fmt.Sprintf("propagate err#%d -> return residual", body))},
		Terminator: Ret{Value: residual}}

	return []Block{entryBlock, okBlock, errBlock}, []IRBlock{entryIR, okIR, errIR}
}

// lowerPropagateValueToJoinBlocks is the shared shape for propagate arms
// feeding a phi join (match arms and if-else branches): entry tests, ok
// extracts/converts toward resultType and branches to the join, err
// returns the residual. Returns the phi incoming.
func lowerPropagateValueToJoinBlocks(entryLabel, okLabel, errLabel, condLabel string, body mir.ExprID, value emittedValue, tyHint, resultType, endLabel string, resultHint string, deferLIFO []mir.ExprID, exprs exprMap, b *builder) ([]Block, []IRBlock, PhiIncoming) {
	flavor := inferPropagateFlavor(tyHint)
	residual := value.operand

	entryInstrs := append([]Instr{Comment(fmt.Sprintf("exec propagate#%d", body))}, value.instrs...)
	cond := propagateCondInstrs(flavor, condLabel, residual, b, &entryInstrs)
	entryBlock := Block{
		Label:      entryLabel,
		Instrs:     []string{fmt.Sprintf("exec propagate#%d", body)},
		Terminator: fmt.Sprintf("br_if %s then %s else %s", cond, okLabel, errLabel),
	}
	entryIR := IRBlock{Label: entryLabel, Instrs: entryInstrs,
		Terminator: BrCond{Cond: cond, Then: okLabel, Else: errLabel}}

	payload := b.newTmp("propagate_payload")
	payloadTy, hasPayloadTy := inferPropagatePayloadType(tyHint, b)
	okInstrs := []Instr{
		Comment(fmt.Sprintf("propagate ok#%d -> payload", body)),
		Call{Result: payload, RetTy: b.pointerType(), Callee: intrinsicCtorPayload(flavor.ctorName()),
			Args: []Arg{{Ty: b.pointerType(), Value: residual}}},
	}
	payloadValue, payloadValueTy := convertPropagatePayload(payload, payloadTy, hasPayloadTy, b, &okInstrs)
	var result string
	switch {
	case payloadValueTy == resultType:
		result = payloadValue
	case payloadValueTy == b.pointerType():
		result = b.newTmp(resultHint)
		okInstrs = append(okInstrs, Call{Result: result, RetTy: resultType,
			Callee: intrinsicValueForType(resultType, b),
			Args:   []Arg{{Ty: resultType, Value: payloadValue}}})
	default:
		result = b.newTmp(resultHint)
		okInstrs = append(okInstrs, Call{Result: result, RetTy: resultType,
			Callee: intrinsicValueForType(resultType, b),
			Args:   []Arg{{Ty: resultType, Value: payload}}})
	}
	if len(deferLIFO) > 0 {
		emitDeferLIFOInstrs(deferLIFO, exprs, b, &okInstrs)
	}
	okBlock := Block{
		Label:      okLabel,
		Instrs:     []string{fmt.Sprintf("propagate ok#%d -> %s", body, endLabel)},
		Terminator: "br " + endLabel,
	}
	okIR := IRBlock{Label: okLabel, Instrs: okInstrs, Terminator: Br{Target: endLabel}}

	errInstrs := []Instr{Comment(fmt.Sprintf("propagate err#%d -> return residual", body))}
	if len(deferLIFO) > 0 {
		emitDeferLIFOInstrs(deferLIFO, exprs, b, &errInstrs)
	}
	errBlock := Block{
		Label:      errLabel,
		Instrs:     []string{fmt.Sprintf("propagate err#%d -> return residual", body)},
		Terminator: "ret " + residual,
	}
	errIR := IRBlock{Label: errLabel, Instrs: errInstrs, Terminator: Ret{Value: residual}}

	return []Block{entryBlock, okBlock, errBlock},
		[]IRBlock{entryIR, okIR, errIR},
		PhiIncoming{Value: result, Label: okLabel}
}

// lowerPropagateValueToMatchBlocks wires a propagate arm body into the
// match join.
func lowerPropagateValueToMatchBlocks(armIndex int, body mir.ExprID, value emittedValue, tyHint, resultType, endLabel string, b *builder) ([]Block, []IRBlock, PhiIncoming) {
	return lowerPropagateValueToJoinBlocks(
		fmt.Sprintf("arm%d.body#%d", armIndex, body),
		fmt.Sprintf("arm%d.propagate_ok#%d", armIndex, body),
		fmt.Sprintf("arm%d.propagate_err#%d", armIndex, body),
		fmt.Sprintf("arm%d.propagate_cond#%d", armIndex, body),
		body, value, tyHint, resultType, endLabel, "match_result", nil, nil, b)
}

// lowerPropagateValueToIfBlocks wires a propagate branch into an if-else
// join.
func lowerPropagateValueToIfBlocks(label string, body mir.ExprID, value emittedValue, tyHint, resultType, endLabel string, b *builder) ([]Block, []IRBlock, PhiIncoming) {
	return lowerPropagateValueToJoinBlocks(
		label, label+".ok", label+".err", label+".cond",
		body, value, tyHint, resultType, endLabel, "ifelse_result", nil, nil, b)
}

// lowerBlockPropagateWithDefersToIfBlocks is the defer-carrying if-else
// variant: the defer list runs in both the ok and the err block.
func lowerBlockPropagateWithDefersToIfBlocks(label string, body mir.ExprID, value emittedValue, tyHint, resultType, endLabel string, deferLIFO []mir.ExprID, exprs exprMap, b *builder) ([]Block, []IRBlock, PhiIncoming) {
	return lowerPropagateValueToJoinBlocks(
		label, label+".ok", label+".err", label+".cond",
		body, value, tyHint, resultType, endLabel, "ifelse_result", deferLIFO, exprs, b)
}

// lowerPropagateOperandToBlocks is the operand-position propagate shape:
// the ok block flows the converted payload into next_label; err returns.
// Returns the payload operand and its type.
func lowerPropagateOperandToBlocks(label string, body mir.ExprID, value emittedValue, tyHint, nextLabel string, deferLIFO []mir.ExprID, exprs exprMap, b *builder) ([]Block, []IRBlock, operandTy) {
	okLabel := label + ".ok"
	errLabel := label + ".err"
	condLabel := label + ".cond"
	flavor := inferPropagateFlavor(tyHint)
	residual := value.operand

	entryInstrs := append([]Instr{Comment(fmt.Sprintf("exec propagate#%d", body))}, value.instrs...)
	cond := propagateCondInstrs(flavor, condLabel, residual, b, &entryInstrs)
	entryBlock := Block{
		Label:      label,
		Instrs:     []string{fmt.Sprintf("exec propagate#%d", body)},
		Terminator: fmt.Sprintf("br_if %s then %s else %s", cond, okLabel, errLabel),
	}
	entryIR := IRBlock{Label: label, Instrs: entryInstrs,
		Terminator: BrCond{Cond: cond, Then: okLabel, Else: errLabel}}

	payload := b.newTmp("propagate_payload")
	payloadTy, hasPayloadTy := inferPropagatePayloadType(tyHint, b)
	okInstrs := []Instr{
		Comment(fmt.Sprintf("propagate ok#%d -> payload", body)),
		Call{Result: payload, RetTy: b.pointerType(), Callee: intrinsicCtorPayload(flavor.ctorName()),
			Args: []Arg{{Ty: b.pointerType(), Value: residual}}},
	}
	payloadValue, payloadValueTy := convertPropagatePayload(payload, payloadTy, hasPayloadTy, b, &okInstrs)
	okBlock := Block{
		Label:      okLabel,
		Instrs:     []string{fmt.Sprintf("propagate ok#%d -> %s", body, nextLabel)},
		Terminator: "br " + nextLabel,
	}
	okIR := IRBlock{Label: okLabel, Instrs: okInstrs, Terminator: Br{Target: nextLabel}}

	errInstrs := []Instr{Comment(fmt.Sprintf("propagate err#%d -> return residual", body))}
	if len(deferLIFO) > 0 {
		emitDeferLIFOInstrs(deferLIFO, exprs, b, &errInstrs)
	}
	errBlock := Block{
		Label:      errLabel,
		Instrs:     []string{fmt.Sprintf("propagate err#%d -> return residual", body)},
		Terminator: "ret " + residual,
	}
	errIR := IRBlock{Label: errLabel, Instrs: errInstrs, Terminator: Ret{Value: residual}}

	return []Block{entryBlock, okBlock, errBlock},
		[]IRBlock{entryIR, okIR, errIR},
		operandTy{operand: payloadValue, ty: payloadValueTy}
}
