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

	"github.com/teradata-labs/remlc/pkg/mir"
)

// operandResult is what operand-position lowering hands back: in the
// non-terminating case an operand plus its type and blocks ending in a
// branch to the requested label; in the terminating case just the blocks
// (every path ended in ret or unreachable).
type operandResult struct {
	blocks     []Block
	irBlocks   []IRBlock
	operand    *operandTy
	terminated bool
}

// lowerExprToOperandBlocks lowers one expression into a chain of blocks
// starting at label and flowing into nextLabel, producing the operand the
// continuation consumes. Early-exit sub-shapes divert through their own
// ok/err blocks.
func lowerExprToOperandBlocks(label string, id mir.ExprID, exprs exprMap, b *builder, nextLabel string, deferLIFO []mir.ExprID) operandResult {
	expr, ok := exprs[id]
	if !ok {
		block := Block{
			Label:      label,
			Instrs:     []string{fmt.Sprintf("exec expr#%d (missing)", id)},
			Terminator: "br " + nextLabel,
		}
		irBlock := IRBlock{
			Label:      label,
			Instrs:     []Instr{Comment(fmt.Sprintf("expr#%d missing -> fallback", id))},
			Terminator: Br{Target: nextLabel},
		}
		return operandResult{
			blocks:   []Block{block},
			irBlocks: []IRBlock{irBlock},
			operand:  &operandTy{operand: fmt.Sprintf("#%d", id), ty: b.pointerType()},
		}
	}

	switch expr.Kind {
	case mir.ExprPropagate:
		value := emitValueExpr(id, exprs, b)
		tyHint := inferExprTypeHint(id, exprs)
		blocks, irBlocks, payload := lowerPropagateOperandToBlocks(label, id, value, tyHint, nextLabel, deferLIFO, exprs, b)
		return operandResult{blocks: blocks, irBlocks: irBlocks, operand: &payload}

	case mir.ExprPanic:
		value := emitValueExpr(id, exprs, b)
		var block Block
		var irBlock IRBlock
		if len(deferLIFO) > 0 {
			block, irBlock = lowerPanicValueToNamedBlockWithDefers(label, id, value, deferLIFO, exprs, b)
		} else {
			block, irBlock = lowerPanicValueToNamedBlock(label, id, value, b)
		}
		return operandResult{blocks: []Block{block}, irBlocks: []IRBlock{irBlock}, terminated: true}

	case mir.ExprIfElse:
		if exprContainsEarlyExit(id, exprs) {
			return lowerIfElseToOperandBlocks(label, id, expr.Condition, expr.ThenBranch, expr.ElseBranch, exprs, b, nextLabel)
		}

	case mir.ExprCall:
		if exprContainsEarlyExit(id, exprs) {
			return lowerCallToOperandBlocks(label, id, expr.Callee, expr.Args, exprs, b, nextLabel)
		}

	case mir.ExprBinary:
		if isArithmeticOp(expr.Operator) && exprContainsEarlyExit(id, exprs) {
			return lowerBinaryToOperandBlocks(label, id, expr.Operator, expr.Left, expr.Right, exprs, b, nextLabel)
		}

	case mir.ExprBlock:
		return lowerBlockToOperandBlocks(label, id, expr, exprs, b, nextLabel)
	}

	value := emitValueExpr(id, exprs, b)
	block := Block{
		Label:      label,
		Instrs:     []string{fmt.Sprintf("exec expr#%d", id)},
		Terminator: "br " + nextLabel,
	}
	irBlock := IRBlock{
		Label:      label,
		Instrs:     append([]Instr{Comment(fmt.Sprintf("exec expr#%d", id))}, value.instrs...),
		Terminator: Br{Target: nextLabel},
	}
	return operandResult{
		blocks:   []Block{block},
		irBlocks: []IRBlock{irBlock},
		operand:  &operandTy{operand: value.operand, ty: value.ty},
	}
}

func isArithmeticOp(op string) bool {
	switch op {
	case "+", "-", "*", "/", "%":
		return true
	}
	return false
}

// lowerBlockToOperandBlocks lowers a block expression at operand position:
// statements chain through their own blocks, then the tail produces the
// operand, and the defer list gets its own block before nextLabel.
func lowerBlockToOperandBlocks(label string, id mir.ExprID, expr *mir.Expr, exprs exprMap, b *builder, nextLabel string) operandResult {
	b.pushScope()
	defer b.popScope()
	var blocks []Block
	var irBlocks []IRBlock
	stmtLabel := label
	deferLIFO := expr.DeferLIFO

	if len(expr.Statements) > 0 {
		stmtBlocks, stmtIRBlocks, next, terminated := lowerBlockStatementsToBlocks(stmtLabel, expr.Statements, deferLIFO, exprs, b)
		blocks = append(blocks, stmtBlocks...)
		irBlocks = append(irBlocks, stmtIRBlocks...)
		if terminated {
			return operandResult{blocks: blocks, irBlocks: irBlocks, terminated: true}
		}
		stmtLabel = next
	}

	if expr.Tail != nil {
		if tail, ok := exprs[*expr.Tail]; ok && tail.Kind == mir.ExprIfElse && exprContainsEarlyExit(*expr.Tail, exprs) {
			if len(deferLIFO) > 0 {
				tailResult := lowerBlockTailIfElseWithDeferToOperandBlocks(stmtLabel, id, tail.Condition, tail.ThenBranch, tail.ElseBranch, deferLIFO, exprs, b, nextLabel)
				blocks = append(blocks, tailResult.blocks...)
				irBlocks = append(irBlocks, tailResult.irBlocks...)
				return operandResult{blocks: blocks, irBlocks: irBlocks, operand: tailResult.operand, terminated: tailResult.terminated}
			}
			tailResult := lowerIfElseToOperandBlocks(stmtLabel, *expr.Tail, tail.Condition, tail.ThenBranch, tail.ElseBranch, exprs, b, nextLabel)
			blocks = append(blocks, tailResult.blocks...)
			irBlocks = append(irBlocks, tailResult.irBlocks...)
			return operandResult{blocks: blocks, irBlocks: irBlocks, operand: tailResult.operand, terminated: tailResult.terminated}
		}

		deferLabel := nextLabel
		if len(deferLIFO) > 0 {
			deferLabel = stmtLabel + ".defer"
		}
		tailResult := lowerExprToOperandBlocks(stmtLabel, *expr.Tail, exprs, b, deferLabel, deferLIFO)
		blocks = append(blocks, tailResult.blocks...)
		irBlocks = append(irBlocks, tailResult.irBlocks...)
		if tailResult.terminated {
			return operandResult{blocks: blocks, irBlocks: irBlocks, operand: tailResult.operand, terminated: true}
		}
		if len(deferLIFO) > 0 {
			var deferInstrs []Instr
			emitDeferLIFOInstrs(deferLIFO, exprs, b, &deferInstrs)
			blocks = append(blocks, Block{
				Label:      deferLabel,
				Instrs:     []string{fmt.Sprintf("block#%d defer", id)},
				Terminator: "br " + nextLabel,
			})
			irBlocks = append(irBlocks, IRBlock{Label: deferLabel, Instrs: deferInstrs, Terminator: Br{Target: nextLabel}})
		}
		return operandResult{blocks: blocks, irBlocks: irBlocks, operand: tailResult.operand}
	}

	unit := operandTy{operand: "null", ty: b.pointerType()}
	deferLabel := nextLabel
	if len(deferLIFO) > 0 {
		deferLabel = label + ".defer"
	}
	blocks = append(blocks, Block{
		Label:      stmtLabel,
		Instrs:     []string{fmt.Sprintf("exec block#%d -> unit", id)},
		Terminator: "br " + deferLabel,
	})
	irBlocks = append(irBlocks, IRBlock{
		Label:      stmtLabel,
		Instrs:     []Instr{Comment(fmt.Sprintf("block#%d -> unit", id))},
		Terminator: Br{Target: deferLabel},
	})
	if len(deferLIFO) > 0 {
		var deferInstrs []Instr
		emitDeferLIFOInstrs(deferLIFO, exprs, b, &deferInstrs)
		blocks = append(blocks, Block{
			Label:      deferLabel,
			Instrs:     []string{fmt.Sprintf("block#%d defer", id)},
			Terminator: "br " + nextLabel,
		})
		irBlocks = append(irBlocks, IRBlock{Label: deferLabel, Instrs: deferInstrs, Terminator: Br{Target: nextLabel}})
	}
	return operandResult{blocks: blocks, irBlocks: irBlocks, operand: &unit}
}

// lowerBlockStatementsToBlocks chains the statements through labelled
// blocks; a statement whose lowering terminates ends the chain.
func lowerBlockStatementsToBlocks(label string, statements []mir.Stmt, deferLIFO []mir.ExprID, exprs exprMap, b *builder) ([]Block, []IRBlock, string, bool) {
	var blocks []Block
	var irBlocks []IRBlock
	stepLabel := label
	for index := range statements {
		nextLabel := fmt.Sprintf("%s.stmt%d", stepLabel, index)
		stmtBlocks, stmtIRBlocks, terminated := lowerStmtToBlocks(stepLabel, &statements[index], deferLIFO, exprs, b, nextLabel)
		blocks = append(blocks, stmtBlocks...)
		irBlocks = append(irBlocks, stmtIRBlocks...)
		if terminated {
			return blocks, irBlocks, nextLabel, true
		}
		stepLabel = nextLabel
	}
	return blocks, irBlocks, stepLabel, false
}

func lowerStmtToBlocks(label string, stmt *mir.Stmt, deferLIFO []mir.ExprID, exprs exprMap, b *builder, nextLabel string) ([]Block, []IRBlock, bool) {
	switch stmt.Kind {
	case mir.StmtLet:
		result := lowerExprToOperandBlocks(label, stmt.Value, exprs, b, nextLabel, deferLIFO)
		if !result.terminated && result.operand != nil && len(result.irBlocks) > 0 {
			last := &result.irBlocks[len(result.irBlocks)-1]
			last.Instrs = append(last.Instrs, bindPatternOperand(stmt.Pattern, result.operand.operand, result.operand.ty, b)...)
		}
		return result.blocks, result.irBlocks, result.terminated

	case mir.StmtExpr:
		result := lowerExprToOperandBlocks(label, stmt.Expr, exprs, b, nextLabel, deferLIFO)
		return result.blocks, result.irBlocks, result.terminated

	case mir.StmtAssign:
		tempLabel := label + ".assign"
		targetResult := lowerExprToOperandBlocks(label, stmt.Target, exprs, b, tempLabel, deferLIFO)
		if targetResult.terminated {
			return targetResult.blocks, targetResult.irBlocks, true
		}
		valueResult := lowerExprToOperandBlocks(tempLabel, stmt.Value, exprs, b, nextLabel, deferLIFO)
		if valueResult.operand != nil && len(valueResult.irBlocks) > 0 {
			last := &valueResult.irBlocks[len(valueResult.irBlocks)-1]
			last.Instrs = append(last.Instrs, rebindTargetOperand(stmt.Target, targetResult.operand,
				valueResult.operand.operand, valueResult.operand.ty, exprs, b)...)
		}
		blocks := append(targetResult.blocks, valueResult.blocks...)
		irBlocks := append(targetResult.irBlocks, valueResult.irBlocks...)
		return blocks, irBlocks, valueResult.terminated

	default: // defer statement: handled by the owning block's defer list
		block := Block{
			Label:      label,
			Instrs:     []string{"defer statement (handled separately)"},
			Terminator: "br " + nextLabel,
		}
		irBlock := IRBlock{
			Label:      label,
			Instrs:     []Instr{Comment("defer statement (handled separately)")},
			Terminator: Br{Target: nextLabel},
		}
		return []Block{block}, []IRBlock{irBlock}, false
	}
}

// lowerCallToOperandBlocks lowers a call whose sub-expressions contain
// early exit: each operand gets its own step blocks, the final block
// assembles the @reml_call.
func lowerCallToOperandBlocks(label string, body mir.ExprID, callee mir.ExprID, args []mir.ExprID, exprs exprMap, b *builder, nextLabel string) operandResult {
	var blocks []Block
	var irBlocks []IRBlock
	stepLabel := label
	nextIndex := 0
	var operands []operandTy
	steps := append([]mir.ExprID{callee}, args...)

	for _, exprID := range steps {
		nextStepLabel := fmt.Sprintf("call%d.step%d", body, nextIndex)
		nextIndex++
		result := lowerExprToOperandBlocks(stepLabel, exprID, exprs, b, nextStepLabel, nil)
		blocks = append(blocks, result.blocks...)
		irBlocks = append(irBlocks, result.irBlocks...)
		if result.terminated {
			return operandResult{blocks: blocks, irBlocks: irBlocks, terminated: true}
		}
		if result.operand != nil {
			operands = append(operands, *result.operand)
		}
		stepLabel = nextStepLabel
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

	retTy := inferCallReturnType(callee, exprs, b)
	result := b.newTmp("call")
	blocks = append(blocks, Block{
		Label:      stepLabel,
		Instrs:     []string{fmt.Sprintf("exec call#%d", body)},
		Terminator: "br " + nextLabel,
	})
	irBlocks = append(irBlocks, IRBlock{
		Label: stepLabel,
		Instrs: []Instr{
			Comment(fmt.Sprintf("exec call#%d", body)),
			Call{Result: result, RetTy: retTy, Callee: intrinsicCall, Args: callArgs},
		},
		Terminator: Br{Target: nextLabel},
	})
	return operandResult{blocks: blocks, irBlocks: irBlocks, operand: &operandTy{operand: result, ty: retTy}}
}

// lowerBinaryToOperandBlocks lowers arithmetic whose operands contain
// early exit: each side gets step blocks, the final block coerces both
// sides to i64 when needed and emits the arithmetic.
func lowerBinaryToOperandBlocks(label string, body mir.ExprID, operator string, left, right mir.ExprID, exprs exprMap, b *builder, nextLabel string) operandResult {
	var blocks []Block
	var irBlocks []IRBlock
	stepLabel := label
	nextIndex := 0
	var operands []operandTy
	for _, exprID := range []mir.ExprID{left, right} {
		nextStepLabel := fmt.Sprintf("bin%d.step%d", body, nextIndex)
		nextIndex++
		result := lowerExprToOperandBlocks(stepLabel, exprID, exprs, b, nextStepLabel, nil)
		blocks = append(blocks, result.blocks...)
		irBlocks = append(irBlocks, result.irBlocks...)
		if result.terminated {
			return operandResult{blocks: blocks, irBlocks: irBlocks, terminated: true}
		}
		if result.operand != nil {
			operands = append(operands, *result.operand)
		}
		stepLabel = nextStepLabel
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
		Terminator: "br " + nextLabel,
	})
	irBlocks = append(irBlocks, IRBlock{Label: stepLabel, Instrs: instrs, Terminator: Br{Target: nextLabel}})
	return operandResult{blocks: blocks, irBlocks: irBlocks, operand: &operandTy{operand: result, ty: "i64"}}
}
