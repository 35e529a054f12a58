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

// emitBoolExpr lowers an expression to an i1 condition: short-circuit
// and/or become explicit `and i1`/`or i1`, comparisons pick the integer
// predicate, and anything else falls back to a truthiness check against
// 0 or null according to the operand type.
func emitBoolExpr(id mir.ExprID, exprs exprMap, b *builder) (string, []Instr) {
	expr, ok := exprs[id]
	if !ok {
		return "true", []Instr{Comment(fmt.Sprintf("guard#%d: expr not found -> assume true", id))}
	}

	switch expr.Kind {
	case mir.ExprLiteral:
		if operand, ok := extractLiteralOperand(expr.Summary); ok && (operand == "true" || operand == "false") {
			return operand, []Instr{Comment(fmt.Sprintf("guard literal %s -> %s", expr.Summary, operand))}
		}
		return truthyCheck(id, exprs, b, fmt.Sprintf("guard expr#%d -> truthy check", id))

	case mir.ExprBinary:
		switch expr.Operator {
		case "&&", "and":
			lhs, instrs := emitBoolExpr(expr.Left, exprs, b)
			rhs, rhsInstrs := emitBoolExpr(expr.Right, exprs, b)
			instrs = append(instrs, rhsInstrs...)
			cond := b.newTmp("guard")
			instrs = append(instrs, And{Result: cond, LHS: lhs, RHS: rhs})
			return cond, instrs
		case "||", "or":
			lhs, instrs := emitBoolExpr(expr.Left, exprs, b)
			rhs, rhsInstrs := emitBoolExpr(expr.Right, exprs, b)
			instrs = append(instrs, rhsInstrs...)
			cond := b.newTmp("guard")
			instrs = append(instrs, Or{Result: cond, LHS: lhs, RHS: rhs})
			return cond, instrs
		case "==", "!=", "<", "<=", ">", ">=":
			lhs := emitValueExpr(expr.Left, exprs, b)
			rhs := emitValueExpr(expr.Right, exprs, b)
			instrs := append(lhs.instrs, rhs.instrs...)
			cond := b.newTmp("guard")
			pred := map[string]string{
				"==": "eq", "!=": "ne", "<": "slt", "<=": "sle", ">": "sgt", ">=": "sge",
			}[expr.Operator]
			ty := "i64"
			if isBoolOperand(lhs.operand) && isBoolOperand(rhs.operand) {
				ty = b.boolType()
			}
			instrs = append(instrs,
				Comment(fmt.Sprintf("guard compare op=%s lhs=%s rhs=%s", expr.Operator, lhs.operand, rhs.operand)),
				Icmp{Result: cond, Pred: pred, Ty: ty, LHS: lhs.operand, RHS: rhs.operand})
			return cond, instrs
		}
		return truthyCheck(id, exprs, b, fmt.Sprintf("guard binary op=%s unsupported -> truthy check", expr.Operator))

	case mir.ExprRec:
		return emitBoolExpr(expr.Target, exprs, b)
	}

	value := emitValueExpr(id, exprs, b)
	if value.ty == "i1" {
		return value.operand, value.instrs
	}
	cond := b.newTmp("guard")
	instrs := value.instrs
	rhs := "null"
	if value.ty == "i64" {
		rhs = "0"
	}
	instrs = append(instrs,
		Comment(fmt.Sprintf("guard expr#%d -> truthy check", id)),
		Icmp{Result: cond, Pred: "ne", Ty: value.ty, LHS: value.operand, RHS: rhs})
	return cond, instrs
}

func truthyCheck(id mir.ExprID, exprs exprMap, b *builder, note string) (string, []Instr) {
	value := emitValueExpr(id, exprs, b)
	cond := b.newTmp("guard")
	instrs := value.instrs
	rhs := "null"
	if value.ty == "i64" {
		rhs = "0"
	}
	instrs = append(instrs,
		Comment(note),
		Icmp{Result: cond, Pred: "ne", Ty: value.ty, LHS: value.operand, RHS: rhs})
	return cond, instrs
}

func isBoolOperand(operand string) bool {
	return operand == "true" || operand == "false"
}

func emitGuardCond(id mir.ExprID, exprs exprMap, b *builder) (string, []Instr) {
	return emitBoolExpr(id, exprs, b)
}
