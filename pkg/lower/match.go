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

// lowerMatchToBlocks lowers every match expression in the pool: per arm a
// pattern-check chain, then optional guard, optional alias, then body; all
// arm values feed the phi at the match end block.
func lowerMatchToBlocks(exprs []mir.Expr, types TypeMapping) ([]Block, []IRBlock) {
	pool := make(exprMap, len(exprs))
	for i := range exprs {
		pool[exprs[i].ID] = &exprs[i]
	}
	var blocks []Block
	var irBlocks []IRBlock
	for i := range exprs {
		expr := &exprs[i]
		if expr.Kind != mir.ExprMatch {
			continue
		}
		matchBlocks, matchIRBlocks := lowerOneMatch(expr, pool, types)
		blocks = append(blocks, matchBlocks...)
		irBlocks = append(irBlocks, matchIRBlocks...)
	}
	return blocks, irBlocks
}

func matchTargetDesc(target mir.ExprID, pool exprMap) string {
	if node, ok := pool[target]; ok && node.Kind == mir.ExprIdentifier {
		return node.Summary
	}
	return fmt.Sprintf("#%d", target)
}

func matchResultType(plan *mir.MatchPlan) string {
	if plan != nil && plan.TargetType != "" {
		return plan.TargetType
	}
	return "unknown"
}

type armEarlyExit int

const (
	armExitNone armEarlyExit = iota
	armExitPanic
	armExitPropagate
)

func detectArmEarlyExit(id mir.ExprID, pool exprMap) armEarlyExit {
	expr, ok := pool[id]
	if !ok {
		return armExitNone
	}
	switch expr.Kind {
	case mir.ExprPanic:
		return armExitPanic
	case mir.ExprPropagate:
		return armExitPropagate
	case mir.ExprRec:
		return detectArmEarlyExit(expr.Target, pool)
	case mir.ExprEffectBlock, mir.ExprUnsafe:
		return detectArmEarlyExit(expr.Body, pool)
	case mir.ExprBlock:
		if expr.Tail == nil {
			return armExitNone
		}
		tail, ok := pool[*expr.Tail]
		if !ok {
			return armExitNone
		}
		switch tail.Kind {
		case mir.ExprPanic:
			return armExitPanic
		case mir.ExprPropagate:
			return armExitPropagate
		}
	}
	return armExitNone
}

func lowerOneMatch(expr *mir.Expr, pool exprMap, types TypeMapping) ([]Block, []IRBlock) {
	endLabel := fmt.Sprintf("match%d.end", expr.ID)
	targetDesc := matchTargetDesc(expr.Target, pool)
	targetOperand := formatOperandFromSummary(targetDesc)
	b := newBuilder(types)
	var blocks []Block
	var irBlocks []IRBlock
	var phiSources []PhiIncoming
	resultType := matchResultType(expr.Lowering)

	for index := range expr.Arms {
		arm := &expr.Arms[index]
		nextArm := endLabel
		if index+1 < len(expr.Arms) {
			nextArm = firstPatternLabel(index+1, &expr.Arms[index+1].Pattern)
		}
		var guardLabel string
		if arm.Guard != nil {
			guardLabel = fmt.Sprintf("arm%d.guard#%d", index, *arm.Guard)
		}
		var aliasLabel string
		if arm.Alias != "" {
			aliasLabel = fmt.Sprintf("arm%d.alias", index)
		}
		bodyLabel := fmt.Sprintf("arm%d.body#%d", index, arm.Body)
		postGuardLabel := bodyLabel
		if aliasLabel != "" {
			postGuardLabel = aliasLabel
		}
		successLabel := bodyLabel
		if aliasLabel != "" {
			successLabel = aliasLabel
		}
		if guardLabel != "" {
			successLabel = guardLabel
		}

		armBlocks, armIRBlocks := emitPatternBlocks(index, &arm.Pattern, successLabel, nextArm, targetOperand, targetDesc, b)
		blocks = append(blocks, armBlocks...)
		irBlocks = append(irBlocks, armIRBlocks...)

		if guardLabel != "" {
			blocks = append(blocks, Block{
				Label:      guardLabel,
				Instrs:     []string{"guard check " + guardLabel},
				Terminator: fmt.Sprintf("br_if %s then %s else %s", guardLabel, postGuardLabel, nextArm),
			})
			cond, guardInstrs := emitGuardCond(*arm.Guard, pool, b)
			guardInstrs = append([]Instr{
				Comment(fmt.Sprintf("guard %s -> %s/%s", guardLabel, postGuardLabel, nextArm)),
			}, guardInstrs...)
			irBlocks = append(irBlocks, IRBlock{
				Label:      guardLabel,
				Instrs:     guardInstrs,
				Terminator: BrCond{Cond: cond, Then: postGuardLabel, Else: nextArm},
			})
		}

		if arm.Alias != "" {
			blocks = append(blocks, Block{
				Label:      aliasLabel,
				Instrs:     []string{fmt.Sprintf("alias %s = %s", arm.Alias, targetDesc)},
				Terminator: "br " + bodyLabel,
			})
			irBlocks = append(irBlocks, IRBlock{
				Label:      aliasLabel,
				Instrs:     []Instr{Comment(fmt.Sprintf("alias %s = %s", arm.Alias, targetDesc))},
				Terminator: Br{Target: bodyLabel},
			})
		}

		switch detectArmEarlyExit(arm.Body, pool) {
		case armExitPanic:
			value := emitValueExpr(arm.Body, pool, b)
			block, irBlock := lowerPanicValueToNamedBlock(bodyLabel, arm.Body, value, b)
			blocks = append(blocks, block)
			irBlocks = append(irBlocks, irBlock)
		case armExitPropagate:
			value := emitValueExpr(arm.Body, pool, b)
			tyHint := inferExprTypeHint(arm.Body, pool)
			propBlocks, propIRBlocks, incoming := lowerPropagateValueToMatchBlocks(
				index, arm.Body, value, tyHint, resultType, endLabel, b)
			blocks = append(blocks, propBlocks...)
			irBlocks = append(irBlocks, propIRBlocks...)
			phiSources = append(phiSources, incoming)
		default:
			blocks = append(blocks, Block{
				Label:      bodyLabel,
				Instrs:     []string{fmt.Sprintf("exec body#%d", arm.Body)},
				Terminator: "br " + endLabel,
			})
			value, valueLabel, valueInstrs := emitBodyValue(index, arm.Body, pool, resultType, b)
			phiSources = append(phiSources, PhiIncoming{Value: value, Label: valueLabel})
			irInstrs := append([]Instr{Comment(fmt.Sprintf("exec body#%d", arm.Body))}, valueInstrs...)
			irBlocks = append(irBlocks, IRBlock{
				Label:      bodyLabel,
				Instrs:     irInstrs,
				Terminator: Br{Target: endLabel},
			})
		}
	}

	phiLabels := make([]string, len(phiSources))
	for i, src := range phiSources {
		phiLabels[i] = src.Label
	}
	phiInputs := "[]"
	if len(phiLabels) > 0 {
		phiInputs = "[" + strings.Join(phiLabels, ", ") + "]"
	}
	blocks = append(blocks, Block{
		Label:      endLabel,
		Instrs:     []string{fmt.Sprintf("phi match_result : %s <- %s", resultType, phiInputs)},
		Terminator: "ret match_result",
	})
	phiResult := b.newTmp("match")
	irBlocks = append(irBlocks, IRBlock{
		Label:      endLabel,
		Instrs:     []Instr{Phi{Result: phiResult, Ty: resultType, Incomings: phiSources}},
		Terminator: Ret{Value: phiResult},
	})
	return blocks, irBlocks
}

// emitBodyValue lowers an arm body to the value that feeds the match phi,
// converted toward the plan's result type.
func emitBodyValue(armIndex int, id mir.ExprID, pool exprMap, resultType string, b *builder) (string, string, []Instr) {
	bodyLabel := fmt.Sprintf("arm%d.body#%d", armIndex, id)
	value := emitValueExpr(id, pool, b)
	result := b.newTmp("match_result")
	instrs := value.instrs
	instrs = append(instrs,
		Comment(fmt.Sprintf("match_result <- expr#%d (%s)", id, value.operand)),
		Call{Result: result, RetTy: resultType,
			Callee: intrinsicValueForType(resultType, b),
			Args:   []Arg{{Ty: resultType, Value: value.operand}}})
	return result, bodyLabel, instrs
}

// firstPatternLabel names the entry block of an arm's pattern chain, so
// the previous arm's miss edge targets a label that actually exists.
func firstPatternLabel(armIndex int, pattern *mir.Pattern) string {
	if pattern.Kind == mir.PatOr && len(pattern.Variants) > 0 {
		return fmt.Sprintf("arm%d.or0", armIndex)
	}
	return fmt.Sprintf("arm%d.pat", armIndex)
}

func armSuccessLabel(arm *mir.MatchArm) string {
	if arm.Guard != nil {
		return fmt.Sprintf("guard#%d", *arm.Guard)
	}
	if arm.Alias != "" {
		return "alias:" + arm.Alias
	}
	return fmt.Sprintf("body#%d", arm.Body)
}

// renderBranchPlans produces the per-match textual branch-plan summaries
// carried on the generated function.
func renderBranchPlans(exprs []mir.Expr) []string {
	pool := make(exprMap, len(exprs))
	for i := range exprs {
		pool[exprs[i].ID] = &exprs[i]
	}
	var plans []string
	for i := range exprs {
		expr := &exprs[i]
		if expr.Kind != mir.ExprMatch {
			continue
		}
		targetLabel := matchTargetDesc(expr.Target, pool)
		targetType := matchResultType(expr.Lowering)
		var armBlocks []string
		for index := range expr.Arms {
			arm := &expr.Arms[index]
			nextArm := "end"
			if index+1 < len(expr.Arms) {
				nextArm = fmt.Sprintf("arm%d", index+1)
			}
			successLabel := armSuccessLabel(arm)
			armBlocks = append(armBlocks, renderPatternBlocks(index, &arm.Pattern, successLabel, nextArm, targetLabel)...)
			if arm.Guard != nil {
				armBlocks = append(armBlocks, fmt.Sprintf("arm%d.guard#%d: true->%s / false->%s",
					index, *arm.Guard, successLabel, nextArm))
			}
			if arm.Alias != "" {
				armBlocks = append(armBlocks, fmt.Sprintf("arm%d.alias:%s -> body#%d", index, arm.Alias, arm.Body))
			}
			armBlocks = append(armBlocks, fmt.Sprintf("arm%d.body#%d -> end", index, arm.Body))
		}
		plans = append(plans, fmt.Sprintf("match#%d target=%s ty=%s blocks=[%s]",
			expr.ID, targetLabel, targetType, strings.Join(armBlocks, "; ")))
	}
	return plans
}

func renderPatternBlocks(armIndex int, pattern *mir.Pattern, successLabel, nextArmLabel, targetLabel string) []string {
	switch pattern.Kind {
	case mir.PatConstructor:
		if len(pattern.Args) > 0 {
			payloadLabel := fmt.Sprintf("arm%d.ctor_payload", armIndex)
			outer := fmt.Sprintf("arm%d.pat: ctor_check(%s, args=%d on %s) -> match:%s / miss:%s",
				armIndex, pattern.Name, len(pattern.Args), targetLabel, payloadLabel, nextArmLabel)
			payload := fmt.Sprintf("%s: ctor_payload(%s) -> match:%s / miss:%s",
				payloadLabel, pattern.Name, successLabel, nextArmLabel)
			return []string{outer, payload}
		}
	case mir.PatOr:
		var blocks []string
		for idx := range pattern.Variants {
			missTarget := nextArmLabel
			if idx+1 < len(pattern.Variants) {
				missTarget = fmt.Sprintf("arm%d.or%d", armIndex, idx+1)
			}
			label := patternCheckLabel(&pattern.Variants[idx], targetLabel, missTarget)
			blocks = append(blocks, fmt.Sprintf("arm%d.or%d: %s -> match:%s / miss:%s",
				armIndex, idx, label, successLabel, missTarget))
		}
		return blocks
	}
	label := patternCheckLabel(pattern, targetLabel, nextArmLabel)
	return []string{fmt.Sprintf("arm%d.pat: %s -> match:%s / miss:%s", armIndex, label, successLabel, nextArmLabel)}
}
