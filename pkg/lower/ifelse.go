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

// ifElseShape bundles the per-call labels and defer context shared by the
// four if-else lowering variants.
type ifElseShape struct {
	entryLabel string
	endLabel   string
	thenLabel  string
	elseLabel  string
	deferLIFO  []mir.ExprID
}

// lowerIfElseJoin is the common engine: classify both branches, branch on
// the condition, lower each branch per its kind, and reconcile normal and
// propagate-ok values in a phi at the join. When both branches early-exit
// the join is unreachable. Returns the phi operand+type, or nil when the
// join is unreachable.
func lowerIfElseJoin(shape ifElseShape, body mir.ExprID, condition, thenBranch, elseBranch mir.ExprID, exprs exprMap, b *builder, joinTerm func(phi string) (string, Terminator), commentPrefix string) ([]Block, []IRBlock, *operandTy) {
	thenKind := classifyBranchKind(thenBranch, exprs)
	elseKind := classifyBranchKind(elseBranch, exprs)
	thenTy := inferExprLLVMType(thenBranch, exprs, b)
	elseTy := inferExprLLVMType(elseBranch, exprs, b)
	resultType := b.pointerType()
	if thenTy == elseTy {
		resultType = thenTy
	}

	cond, condInstrs := emitBoolExpr(condition, exprs, b)
	condInstrs = append([]Instr{
		Comment(fmt.Sprintf("%s#%d cond -> %s/%s", commentPrefix, body, shape.thenLabel, shape.elseLabel)),
	}, condInstrs...)
	blocks := []Block{{
		Label:      shape.entryLabel,
		Instrs:     []string{fmt.Sprintf("exec %s#%d cond", commentPrefix, body)},
		Terminator: fmt.Sprintf("br_if %s then %s else %s", cond, shape.thenLabel, shape.elseLabel),
	}}
	irBlocks := []IRBlock{{
		Label:      shape.entryLabel,
		Instrs:     condInstrs,
		Terminator: BrCond{Cond: cond, Then: shape.thenLabel, Else: shape.elseLabel},
	}}
	var phiSources []PhiIncoming

	lowerBranch := func(label string, branch mir.ExprID, branchTy string, kind branchKind) {
		switch kind {
		case branchNormal:
			block, irBlock, incoming := lowerIfElseBranchValue(label, branch, shape.deferLIFO, exprs, resultType, shape.endLabel, b)
			blocks = append(blocks, block)
			irBlocks = append(irBlocks, irBlock)
			phiSources = append(phiSources, incoming)
		case branchPropagate:
			value := emitValueExpr(branch, exprs, b)
			var propBlocks []Block
			var propIRBlocks []IRBlock
			var incoming PhiIncoming
			if len(shape.deferLIFO) > 0 {
				propBlocks, propIRBlocks, incoming = lowerBlockPropagateWithDefersToIfBlocks(
					label, branch, value, branchTy, resultType, shape.endLabel, shape.deferLIFO, exprs, b)
			} else {
				propBlocks, propIRBlocks, incoming = lowerPropagateValueToIfBlocks(
					label, branch, value, branchTy, resultType, shape.endLabel, b)
			}
			blocks = append(blocks, propBlocks...)
			irBlocks = append(irBlocks, propIRBlocks...)
			phiSources = append(phiSources, incoming)
		case branchPanic:
			value := emitValueExpr(branch, exprs, b)
			var block Block
			var irBlock IRBlock
			if len(shape.deferLIFO) > 0 {
				block, irBlock = lowerPanicValueToNamedBlockWithDefers(label, branch, value, shape.deferLIFO, exprs, b)
			} else {
				block, irBlock = lowerPanicValueToNamedBlock(label, branch, value, b)
			}
			blocks = append(blocks, block)
			irBlocks = append(irBlocks, irBlock)
		}
	}

	lowerBranch(shape.thenLabel, thenBranch, thenTy, thenKind)
	lowerBranch(shape.elseLabel, elseBranch, elseTy, elseKind)

	if len(phiSources) == 0 {
		blocks = append(blocks, Block{
			Label:      shape.endLabel,
			Instrs:     []string{fmt.Sprintf("%s#%d end (unreachable)", commentPrefix, body)},
			Terminator: "unreachable",
		})
		irBlocks = append(irBlocks, IRBlock{
			Label:      shape.endLabel,
			Instrs:     []Instr{Comment(fmt.Sprintf("%s#%d end (unreachable)", commentPrefix, body))},
			Terminator: Unreachable{},
		})
		return blocks, irBlocks, nil
	}

	phiLabels := make([]string, len(phiSources))
	for i, src := range phiSources {
		phiLabels[i] = src.Label
	}
	phiResult := b.newTmp("ifelse_result")
	annotatedTerm, irTerm := joinTerm(phiResult)
	blocks = append(blocks, Block{
		Label:      shape.endLabel,
		Instrs:     []string{fmt.Sprintf("phi ifelse_result : %s <- [%s]", resultType, joinStrings(phiLabels))},
		Terminator: annotatedTerm,
	})
	irBlocks = append(irBlocks, IRBlock{
		Label:      shape.endLabel,
		Instrs:     []Instr{Phi{Result: phiResult, Ty: resultType, Incomings: phiSources}},
		Terminator: irTerm,
	})
	return blocks, irBlocks, &operandTy{operand: phiResult, ty: resultType}
}

func joinStrings(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}

// lowerIfElseWithPropagateToBlocks is the function-entry if-else shape:
// the join returns the phi value.
func lowerIfElseWithPropagateToBlocks(body mir.ExprID, condition, thenBranch, elseBranch mir.ExprID, exprs exprMap, b *builder) ([]Block, []IRBlock) {
	shape := ifElseShape{
		entryLabel: "entry",
		endLabel:   fmt.Sprintf("ifelse%d.end", body),
		thenLabel:  fmt.Sprintf("ifelse%d.then", body),
		elseLabel:  fmt.Sprintf("ifelse%d.else", body),
	}
	blocks, irBlocks, _ := lowerIfElseJoin(shape, body, condition, thenBranch, elseBranch, exprs, b,
		func(phi string) (string, Terminator) {
			return "ret ifelse_result", Ret{Value: phi}
		}, "ifelse")
	return blocks, irBlocks
}

// lowerIfElseToOperandBlocks is the operand-position shape: the join
// branches into nextLabel carrying the phi value.
func lowerIfElseToOperandBlocks(label string, body mir.ExprID, condition, thenBranch, elseBranch mir.ExprID, exprs exprMap, b *builder, nextLabel string) operandResult {
	shape := ifElseShape{
		entryLabel: label,
		endLabel:   fmt.Sprintf("ifelse%d.end", body),
		thenLabel:  fmt.Sprintf("ifelse%d.then", body),
		elseLabel:  fmt.Sprintf("ifelse%d.else", body),
	}
	blocks, irBlocks, operand := lowerIfElseJoin(shape, body, condition, thenBranch, elseBranch, exprs, b,
		func(phi string) (string, Terminator) {
			return "br " + nextLabel, Br{Target: nextLabel}
		}, "ifelse")
	return operandResult{blocks: blocks, irBlocks: irBlocks, operand: operand, terminated: operand == nil}
}

// lowerBlockTailIfElseWithDeferToBlocks is the specialised lowering for a
// block whose defer list must run in both arms of its tail if-else.
func lowerBlockTailIfElseWithDeferToBlocks(body mir.ExprID, condition, thenBranch, elseBranch mir.ExprID, deferLIFO []mir.ExprID, exprs exprMap, b *builder) ([]Block, []IRBlock) {
	shape := ifElseShape{
		entryLabel: "entry",
		endLabel:   fmt.Sprintf("block_ifelse%d.end", body),
		thenLabel:  fmt.Sprintf("block_ifelse%d.then", body),
		elseLabel:  fmt.Sprintf("block_ifelse%d.else", body),
		deferLIFO:  deferLIFO,
	}
	blocks, irBlocks, _ := lowerIfElseJoin(shape, body, condition, thenBranch, elseBranch, exprs, b,
		func(phi string) (string, Terminator) {
			return "ret ifelse_result", Ret{Value: phi}
		}, "block ifelse")
	return blocks, irBlocks
}

// lowerBlockTailIfElseWithDeferToOperandBlocks is the operand-position
// defer-carrying variant.
func lowerBlockTailIfElseWithDeferToOperandBlocks(label string, body mir.ExprID, condition, thenBranch, elseBranch mir.ExprID, deferLIFO []mir.ExprID, exprs exprMap, b *builder, nextLabel string) operandResult {
	shape := ifElseShape{
		entryLabel: label,
		endLabel:   fmt.Sprintf("block_ifelse%d.end", body),
		thenLabel:  fmt.Sprintf("block_ifelse%d.then", body),
		elseLabel:  fmt.Sprintf("block_ifelse%d.else", body),
		deferLIFO:  deferLIFO,
	}
	blocks, irBlocks, operand := lowerIfElseJoin(shape, body, condition, thenBranch, elseBranch, exprs, b,
		func(phi string) (string, Terminator) {
			return "br " + nextLabel, Br{Target: nextLabel}
		}, "block ifelse")
	return operandResult{blocks: blocks, irBlocks: irBlocks, operand: operand, terminated: operand == nil}
}

// lowerIfElseBranchValue lowers a normal branch: compute the value, run
// the defer list when there is one, convert toward the join's result
// type, and branch to the join.
func lowerIfElseBranchValue(label string, branch mir.ExprID, deferLIFO []mir.ExprID, exprs exprMap, resultType, endLabel string, b *builder) (Block, IRBlock, PhiIncoming) {
	value := emitValueExpr(branch, exprs, b)
	result := b.newTmp("ifelse_result")
	instrs := append([]Instr{Comment(fmt.Sprintf("exec expr#%d", branch))}, value.instrs...)
	if len(deferLIFO) > 0 {
		emitDeferLIFOInstrs(deferLIFO, exprs, b, &instrs)
	}
	instrs = append(instrs, Call{Result: result, RetTy: resultType,
		Callee: intrinsicValueForType(resultType, b),
		Args:   []Arg{{Ty: resultType, Value: value.operand}}})
	block := Block{
		Label:      label,
		Instrs:     []string{fmt.Sprintf("exec expr#%d", branch)},
		Terminator: "br " + endLabel,
	}
	irBlock := IRBlock{Label: label, Instrs: instrs, Terminator: Br{Target: endLabel}}
	return block, irBlock, PhiIncoming{Value: result, Label: label}
}
