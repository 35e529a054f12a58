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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/teradata-labs/remlc/pkg/mir"
)

type exprMap = map[mir.ExprID]*mir.Expr

// emittedValue is the result of value-position lowering: the operand's
// type token, the operand itself, and the instructions that compute it.
type emittedValue struct {
	ty      string
	operand string
	instrs  []Instr
}

func emitUnitValue(b *builder) emittedValue {
	return emittedValue{
		ty:      b.pointerType(),
		operand: "null",
		instrs:  []Instr{Comment("unit -> null pointer")},
	}
}

// formatOperandFromSummary renders an identifier summary as an operand:
// "#N" becomes %argN, a JSON {name} object becomes the sanitized %name,
// booleans and integers pass through.
func formatOperandFromSummary(summary string) string {
	trimmed := strings.TrimSpace(summary)
	if rest, ok := strings.CutPrefix(trimmed, "#"); ok {
		if index, err := strconv.Atoi(rest); err == nil {
			return fmt.Sprintf("%%arg%d", index)
		}
	}
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil && obj.Name != "" {
			return "%" + SanitizeIdent(obj.Name)
		}
	}
	if trimmed == "true" || trimmed == "false" {
		return trimmed
	}
	if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return trimmed
	}
	return trimmed
}

func extractLocalNameFromSummary(summary string) string {
	trimmed := strings.TrimSpace(summary)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil && obj.Name != "" {
			return obj.Name
		}
	}
	for _, ch := range trimmed {
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_' || ch == '.') {
			return ""
		}
	}
	return trimmed
}

// inferExprTypeHint resolves the textual type hint the propagate lowering
// keys its Result/Option flavour off. Blank hints fall through to the
// expression shape.
func inferExprTypeHint(id mir.ExprID, exprs exprMap) string {
	expr, ok := exprs[id]
	if !ok {
		return "Result"
	}
	if expr.Kind == mir.ExprPropagate {
		if inner, ok := exprs[expr.Inner]; ok && strings.TrimSpace(inner.Ty) != "" {
			return inner.Ty
		}
	}
	if strings.TrimSpace(expr.Ty) != "" {
		return expr.Ty
	}
	switch expr.Kind {
	case mir.ExprEffectBlock, mir.ExprUnsafe:
		return inferExprTypeHint(expr.Body, exprs)
	case mir.ExprLlvmIr:
		if strings.TrimSpace(expr.ResultType) != "" {
			return expr.ResultType
		}
		return "Result"
	case mir.ExprLiteral:
		switch parseLiteralSummary(expr.Summary).kind {
		case litUnit:
			return "Unit"
		case litBool:
			return "Bool"
		case litInt:
			return "I64"
		case litString:
			return "String"
		default:
			return "Ptr"
		}
	}
	return "Result"
}

// mapTypeTokenToLLVM resolves a surface type token to its LLVM spelling,
// or ok=false for unrecognized tokens.
func mapTypeTokenToLLVM(token string, b *builder) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "bool":
		return b.boolType(), true
	case "i32", "int32":
		return "i32", true
	case "i64", "int64":
		return "i64", true
	case "f64", "double":
		return "double", true
	case "string", "str":
		return "Str", true
	case "ptr", "pointer", "i8*":
		return b.pointerType(), true
	case "unit", "void":
		return b.pointerType(), true
	}
	return "", false
}

// extractGenericArgs parses "Name<...>" argument lists, tolerating nested
// angle brackets.
func extractGenericArgs(ty, name string) ([]string, bool) {
	start := strings.Index(ty, name)
	if start < 0 {
		return nil, false
	}
	rest := ty[start:]
	lt := strings.Index(rest, "<")
	if lt < 0 {
		return nil, false
	}
	var args []string
	depth := 0
	var buf strings.Builder
	for _, ch := range rest[lt+1:] {
		switch ch {
		case '<':
			depth++
			buf.WriteRune(ch)
		case '>':
			if depth == 0 {
				if trimmed := strings.TrimSpace(buf.String()); trimmed != "" {
					args = append(args, trimmed)
				}
				return args, true
			}
			depth--
			buf.WriteRune(ch)
		case ',':
			if depth == 0 {
				if trimmed := strings.TrimSpace(buf.String()); trimmed != "" {
					args = append(args, trimmed)
				}
				buf.Reset()
			} else {
				buf.WriteRune(ch)
			}
		default:
			buf.WriteRune(ch)
		}
	}
	return nil, false
}

// inferPropagatePayloadType resolves the payload's LLVM type from the
// carrier's generic argument, or ok=false when it cannot.
func inferPropagatePayloadType(tyHint string, b *builder) (string, bool) {
	if args, ok := extractGenericArgs(tyHint, "Result"); ok && len(args) > 0 {
		if mapped, ok := mapTypeTokenToLLVM(args[0], b); ok {
			return mapped, true
		}
	}
	if args, ok := extractGenericArgs(tyHint, "Option"); ok && len(args) > 0 {
		if mapped, ok := mapTypeTokenToLLVM(args[0], b); ok {
			return mapped, true
		}
	}
	return "", false
}

// convertPropagatePayload converts the extracted payload pointer into the
// caller's expected type via the matching value intrinsic.
func convertPropagatePayload(payloadPtr string, payloadTy string, hasTy bool, b *builder, instrs *[]Instr) (string, string) {
	if hasTy && payloadTy != b.pointerType() {
		result := b.newTmp("propagate_value")
		*instrs = append(*instrs, Call{Result: result, RetTy: payloadTy,
			Callee: intrinsicValueForType(payloadTy, b),
			Args:   []Arg{{Ty: payloadTy, Value: payloadPtr}}})
		return result, payloadTy
	}
	return payloadPtr, b.pointerType()
}

// inferExprLLVMType resolves the LLVM type an expression's value has at
// emission time, defaulting to pointer.
func inferExprLLVMType(id mir.ExprID, exprs exprMap, b *builder) string {
	expr, ok := exprs[id]
	if !ok {
		return b.pointerType()
	}
	if mapped, ok := mapTypeTokenToLLVM(expr.Ty, b); ok {
		return mapped
	}
	switch expr.Kind {
	case mir.ExprLiteral:
		switch parseLiteralSummary(expr.Summary).kind {
		case litBool:
			return b.boolType()
		case litInt:
			return "i64"
		case litString:
			return "Str"
		default:
			return b.pointerType()
		}
	case mir.ExprCall:
		return inferCallReturnType(expr.Callee, exprs, b)
	case mir.ExprBinary:
		switch expr.Operator {
		case "&&", "and", "||", "or", "==", "!=", "<", "<=", ">", ">=":
			return b.boolType()
		case "+", "-", "*", "/", "%":
			return "i64"
		}
		return b.pointerType()
	case mir.ExprRec:
		return inferExprLLVMType(expr.Target, exprs, b)
	case mir.ExprEffectBlock, mir.ExprUnsafe:
		return inferExprLLVMType(expr.Body, exprs, b)
	case mir.ExprLlvmIr:
		if mapped, ok := mapTypeTokenToLLVM(expr.ResultType, b); ok {
			return mapped
		}
	}
	return b.pointerType()
}

// inferCallReturnType is the name-based return-type heuristic: method-like
// field calls fold by name, bare len folds to i64, lambdas use the body's
// type, wrappers delegate inward, everything else is pointer.
// inferExprLLVMType applies it only when the call's Ty token does not map;
// the call lowerings (emitValueExpr and the operand and entry call chains)
// apply it to every call and do not consult the call's Ty token.
func inferCallReturnType(calleeID mir.ExprID, exprs exprMap, b *builder) string {
	expr, ok := exprs[calleeID]
	if !ok {
		return b.pointerType()
	}
	switch expr.Kind {
	case mir.ExprFieldAccess:
		switch expr.Field {
		case "is_empty", "starts_with":
			return b.boolType()
		case "len":
			return "i64"
		case "to_string", "format":
			return "Str"
		}
		return b.pointerType()
	case mir.ExprIdentifier:
		if strings.TrimSpace(expr.Summary) == "len" {
			return "i64"
		}
		return b.pointerType()
	case mir.ExprLambda:
		if body, ok := exprs[expr.Body]; ok {
			if mapped, ok := mapTypeTokenToLLVM(body.Ty, b); ok {
				return mapped
			}
		}
		return b.pointerType()
	case mir.ExprRec:
		return inferCallReturnType(expr.Target, exprs, b)
	case mir.ExprEffectBlock, mir.ExprUnsafe:
		return inferCallReturnType(expr.Body, exprs, b)
	}
	return b.pointerType()
}

// emitValueExpr lowers an expression at value position: the returned
// operand is valid after the returned instructions run. Shapes needing a
// block graph (match, early exit) fall back to annotation operands here;
// the block-level lowerings handle them.
func emitValueExpr(id mir.ExprID, exprs exprMap, b *builder) emittedValue {
	expr, ok := exprs[id]
	if !ok {
		return emittedValue{
			ty:      b.pointerType(),
			operand: fmt.Sprintf("#%d", id),
			instrs:  []Instr{Comment(fmt.Sprintf("expr#%d missing -> fallback operand", id))},
		}
	}

	switch expr.Kind {
	case mir.ExprLiteral:
		lit := parseLiteralSummary(expr.Summary)
		switch lit.kind {
		case litUnit:
			return emitUnitValue(b)
		case litBool:
			operand := "false"
			if lit.boolVal {
				operand = "true"
			}
			return emittedValue{ty: b.boolType(), operand: operand}
		case litInt:
			return emittedValue{ty: "i64", operand: strconv.FormatInt(lit.intVal, 10)}
		case litString:
			return emittedValue{ty: "Str", operand: `"` + strings.ReplaceAll(lit.strVal, `"`, `\"`) + `"`}
		case litSet:
			return emitSetLiteralValue(lit.elements, b)
		case litFloat:
			return emitFloatLiteralValue(lit.raw, b)
		case litChar:
			return emitCharLiteralValue(lit.raw, b)
		case litTuple:
			return emitUnsupportedLiteralValue(b, "tuple", fmt.Sprintf("len=%d", len(lit.elements)))
		case litArray:
			return emitArrayLiteralValue(lit.elements, expr.Ty, b)
		case litRecord:
			return emitRecordLiteralValue(lit.fields, lit.typeName, b)
		default:
			detail := ""
			if lit.raw != "" {
				detail = "kind=" + lit.raw
			}
			return emitUnsupportedLiteralValue(b, "unknown", detail)
		}

	case mir.ExprIdentifier:
		if name := extractLocalNameFromSummary(expr.Summary); name != "" {
			if binding, ok := b.resolveLocal(name); ok {
				result := b.newTmp("load")
				return emittedValue{
					ty:      binding.ty,
					operand: result,
					instrs:  []Instr{Load{Result: result, Ty: binding.ty, Ptr: binding.ptr}},
				}
			}
		}
		return emittedValue{ty: b.pointerType(), operand: formatOperandFromSummary(expr.Summary)}

	case mir.ExprLambda:
		symbol := lambdaStubSymbol(expr.ID, len(expr.Captures) > 0)
		return emittedValue{
			ty:      b.pointerType(),
			operand: symbol,
			instrs:  []Instr{Comment(fmt.Sprintf("lambda expr#%d -> %s", expr.ID, symbol))},
		}

	case mir.ExprRec:
		value := emitValueExpr(expr.Target, exprs, b)
		if expr.Ident != "" {
			value.instrs = append(value.instrs, Comment("rec marker: "+expr.Ident))
		} else {
			value.instrs = append(value.instrs, Comment("rec marker"))
		}
		return value

	case mir.ExprFieldAccess:
		target := emitValueExpr(expr.Target, exprs, b)
		result := b.newTmp("field")
		instrs := target.instrs
		instrs = append(instrs,
			Comment(fmt.Sprintf("field_access %s.%s", target.operand, expr.Field)),
			Call{Result: result, RetTy: b.pointerType(), Callee: intrinsicFieldAccess,
				Args: []Arg{
					{Ty: b.pointerType(), Value: target.operand},
					{Ty: b.pointerType(), Value: `"` + strings.ReplaceAll(expr.Field, `"`, `\"`) + `"`},
				}})
		return emittedValue{ty: b.pointerType(), operand: result, instrs: instrs}

	case mir.ExprIndex:
		target := emitValueExpr(expr.Target, exprs, b)
		index := emitValueExpr(expr.Index, exprs, b)
		result := b.newTmp("index")
		instrs := append(target.instrs, index.instrs...)
		indexOperand := index.operand
		if index.ty != "i64" {
			cast := b.newTmp("index_i64")
			instrs = append(instrs, Call{Result: cast, RetTy: "i64", Callee: intrinsicValueI64,
				Args: []Arg{{Ty: "i64", Value: indexOperand}}})
			indexOperand = cast
		}
		instrs = append(instrs,
			Comment(fmt.Sprintf("index_access %s[%s]", target.operand, indexOperand)),
			Call{Result: result, RetTy: b.pointerType(), Callee: intrinsicIndexAccess,
				Args: []Arg{
					{Ty: b.pointerType(), Value: target.operand},
					{Ty: "i64", Value: indexOperand},
				}})
		return emittedValue{ty: b.pointerType(), operand: result, instrs: instrs}

	case mir.ExprCall:
		callee := emitValueExpr(expr.Callee, exprs, b)
		instrs := callee.instrs
		args := []Arg{{Ty: b.pointerType(), Value: callee.operand}}
		for _, argID := range expr.Args {
			value := emitValueExpr(argID, exprs, b)
			instrs = append(instrs, value.instrs...)
			args = append(args, Arg{Ty: value.ty, Value: value.operand})
		}
		result := b.newTmp("call")
		retTy := inferCallReturnType(expr.Callee, exprs, b)
		instrs = append(instrs, Call{Result: result, RetTy: retTy, Callee: intrinsicCall, Args: args})
		return emittedValue{ty: retTy, operand: result, instrs: instrs}

	case mir.ExprBlock:
		return emitBlockValue(expr, exprs, b)

	case mir.ExprEffectBlock:
		value := emitValueExpr(expr.Body, exprs, b)
		value.instrs = append(value.instrs, Comment(fmt.Sprintf("effect_block expr#%d", expr.ID)))
		return value

	case mir.ExprUnsafe:
		value := emitValueExpr(expr.Body, exprs, b)
		value.instrs = append(value.instrs, Comment(fmt.Sprintf("unsafe_block expr#%d", expr.ID)))
		return value

	case mir.ExprInlineAsm:
		return emitInlineAsmValue(expr, exprs, b)

	case mir.ExprLlvmIr:
		return emitLlvmIrValue(expr, exprs, b)

	case mir.ExprReturn:
		var inner emittedValue
		if expr.Value != nil {
			inner = emitValueExpr(*expr.Value, exprs, b)
		} else {
			inner = emitUnitValue(b)
		}
		inner.instrs = append(inner.instrs, Comment(fmt.Sprintf("return expr#%d", expr.ID)))
		return inner

	case mir.ExprPropagate:
		inner := emitValueExpr(expr.Inner, exprs, b)
		inner.instrs = append(inner.instrs, Comment(fmt.Sprintf("propagate expr#%d", expr.ID)))
		return inner

	case mir.ExprPanic:
		var inner emittedValue
		if expr.Argument != nil {
			inner = emitValueExpr(*expr.Argument, exprs, b)
		} else {
			inner = emitUnitValue(b)
		}
		inner.instrs = append(inner.instrs, Comment(fmt.Sprintf("panic expr#%d", expr.ID)))
		return inner

	case mir.ExprBinary:
		return emitBinaryValue(expr, exprs, b)

	case mir.ExprIfElse:
		cond, instrs := emitBoolExpr(expr.Condition, exprs, b)
		thenValue := emitValueExpr(expr.ThenBranch, exprs, b)
		elseValue := emitValueExpr(expr.ElseBranch, exprs, b)
		instrs = append(instrs, thenValue.instrs...)
		instrs = append(instrs, elseValue.instrs...)
		retTy := b.pointerType()
		if thenValue.ty == elseValue.ty {
			retTy = thenValue.ty
		}
		result := b.newTmp("ifelse")
		instrs = append(instrs, Call{Result: result, RetTy: retTy, Callee: intrinsicIfElse,
			Args: []Arg{
				{Ty: b.boolType(), Value: cond},
				{Ty: retTy, Value: thenValue.operand},
				{Ty: retTy, Value: elseValue.operand},
			}})
		return emittedValue{ty: retTy, operand: result, instrs: instrs}

	case mir.ExprPerformCall:
		value := emitValueExpr(expr.Inner, exprs, b)
		instrs := value.instrs
		result := b.newTmp("perform")
		instrs = append(instrs, Call{Result: result, RetTy: b.pointerType(), Callee: intrinsicPerform,
			Args: []Arg{
				{Ty: b.pointerType(), Value: `"` + strings.ReplaceAll(expr.Effect, `"`, `\"`) + `"`},
				{Ty: value.ty, Value: value.operand},
			}})
		return emittedValue{ty: b.pointerType(), operand: result, instrs: instrs}
	}

	return emittedValue{
		ty:      b.pointerType(),
		operand: fmt.Sprintf("#%d", id),
		instrs:  []Instr{Comment(fmt.Sprintf("expr#%d unsupported -> fallback operand", id))},
	}
}

func emitBinaryValue(expr *mir.Expr, exprs exprMap, b *builder) emittedValue {
	switch expr.Operator {
	case "&&", "and", "||", "or", "==", "!=", "<", "<=", ">", ">=":
		cond, instrs := emitBoolExpr(expr.ID, exprs, b)
		return emittedValue{ty: b.boolType(), operand: cond, instrs: instrs}
	case "+":
		lhs := emitValueExpr(expr.Left, exprs, b)
		rhs := emitValueExpr(expr.Right, exprs, b)
		instrs := append(lhs.instrs, rhs.instrs...)
		stringish := lhs.ty == "Str" || rhs.ty == "Str" ||
			strings.HasPrefix(lhs.operand, `"`) || strings.HasPrefix(rhs.operand, `"`)
		if stringish {
			result := b.newTmp("concat")
			instrs = append(instrs, Call{Result: result, RetTy: "Str", Callee: intrinsicStrConcat,
				Args: []Arg{{Ty: "Str", Value: lhs.operand}, {Ty: "Str", Value: rhs.operand}}})
			return emittedValue{ty: "Str", operand: result, instrs: instrs}
		}
		result := b.newTmp("add")
		instrs = append(instrs, BinOp{Result: result, Op: "add", Ty: "i64", LHS: lhs.operand, RHS: rhs.operand})
		return emittedValue{ty: "i64", operand: result, instrs: instrs}
	case "-", "*", "/", "%":
		op, hint := "sub", "sub"
		switch expr.Operator {
		case "*":
			op, hint = "mul", "mul"
		case "/":
			op, hint = "sdiv", "div"
		case "%":
			op, hint = "srem", "mod"
		}
		lhs := emitValueExpr(expr.Left, exprs, b)
		rhs := emitValueExpr(expr.Right, exprs, b)
		instrs := append(lhs.instrs, rhs.instrs...)
		result := b.newTmp(hint)
		instrs = append(instrs, BinOp{Result: result, Op: op, Ty: "i64", LHS: lhs.operand, RHS: rhs.operand})
		return emittedValue{ty: "i64", operand: result, instrs: instrs}
	}
	return emittedValue{
		ty:      b.pointerType(),
		operand: fmt.Sprintf("#%d", expr.ID),
		instrs:  []Instr{Comment(fmt.Sprintf("binary op %s unsupported -> fallback #%d", expr.Operator, expr.ID))},
	}
}

// emitBlockValue lowers a block at value position: statements in order,
// then the tail, with the defer list running before every exit including
// the tail's own return/propagate/panic special cases.
func emitBlockValue(expr *mir.Expr, exprs exprMap, b *builder) emittedValue {
	b.pushScope()
	defer b.popScope()
	stmtInstrs := emitBlockStatementInstrs(expr.Statements, exprs, b)

	if expr.Tail != nil {
		if tail, ok := exprs[*expr.Tail]; ok {
			switch tail.Kind {
			case mir.ExprReturn:
				var value emittedValue
				if tail.Value != nil {
					value = emitValueExpr(*tail.Value, exprs, b)
				} else {
					value = emitUnitValue(b)
				}
				value.instrs = append(append([]Instr{}, stmtInstrs...), value.instrs...)
				emitDeferLIFOInstrs(expr.DeferLIFO, exprs, b, &value.instrs)
				value.instrs = append(value.instrs, Comment(fmt.Sprintf("return expr#%d", tail.ID)))
				return value
			case mir.ExprPropagate:
				value := emitValueExpr(tail.Inner, exprs, b)
				value.instrs = append(append([]Instr{}, stmtInstrs...), value.instrs...)
				emitDeferLIFOInstrs(expr.DeferLIFO, exprs, b, &value.instrs)
				value.instrs = append(value.instrs, Comment(fmt.Sprintf("propagate expr#%d", tail.ID)))
				return value
			case mir.ExprPanic:
				var value emittedValue
				if tail.Argument != nil {
					value = emitValueExpr(*tail.Argument, exprs, b)
				} else {
					value = emitUnitValue(b)
				}
				value.instrs = append(append([]Instr{}, stmtInstrs...), value.instrs...)
				emitDeferLIFOInstrs(expr.DeferLIFO, exprs, b, &value.instrs)
				value.instrs = append(value.instrs, Comment(fmt.Sprintf("panic expr#%d", tail.ID)))
				return value
			}
		}
	}

	var tailValue emittedValue
	if expr.Tail != nil {
		tailValue = emitValueExpr(*expr.Tail, exprs, b)
	} else {
		tailValue = emitUnitValue(b)
	}
	if len(stmtInstrs) > 0 {
		tailValue.instrs = append(append([]Instr{}, stmtInstrs...), tailValue.instrs...)
	}
	emitDeferLIFOInstrs(expr.DeferLIFO, exprs, b, &tailValue.instrs)
	return tailValue
}

func emitBlockStatementInstrs(statements []mir.Stmt, exprs exprMap, b *builder) []Instr {
	var instrs []Instr
	for i := range statements {
		stmt := &statements[i]
		switch stmt.Kind {
		case mir.StmtLet:
			value := emitValueExpr(stmt.Value, exprs, b)
			instrs = append(instrs, value.instrs...)
			instrs = append(instrs, bindPatternOperand(stmt.Pattern, value.operand, value.ty, b)...)
		case mir.StmtExpr:
			value := emitValueExpr(stmt.Expr, exprs, b)
			instrs = append(instrs, value.instrs...)
		case mir.StmtAssign:
			targetValue := emitValueExpr(stmt.Target, exprs, b)
			instrs = append(instrs, targetValue.instrs...)
			value := emitValueExpr(stmt.Value, exprs, b)
			instrs = append(instrs, value.instrs...)
			instrs = append(instrs, rebindTargetOperand(stmt.Target,
				&operandTy{operand: targetValue.operand, ty: targetValue.ty},
				value.operand, value.ty, exprs, b)...)
		case mir.StmtDefer:
			instrs = append(instrs, Comment("defer statement skipped in block statements"))
		}
	}
	return instrs
}

// emitDeferLIFOInstrs evaluates the block's defer list in declaration
// order. Every exit path from the owning block threads through here.
func emitDeferLIFOInstrs(deferLIFO []mir.ExprID, exprs exprMap, b *builder, instrs *[]Instr) {
	for _, deferID := range deferLIFO {
		value := emitValueExpr(deferID, exprs, b)
		*instrs = append(*instrs, value.instrs...)
		*instrs = append(*instrs, Comment(fmt.Sprintf("defer_lifo expr#%d", deferID)))
	}
}

// bindPatternOperand walks a let pattern, allocating a slot per bound
// name, storing the operand, and registering the binding in scope.
func bindPatternOperand(pattern *mir.Pattern, operand, ty string, b *builder) []Instr {
	if pattern == nil {
		return nil
	}
	var instrs []Instr
	for _, name := range pattern.BindingNames() {
		ptr := b.newTmp(name + "_addr")
		instrs = append(instrs,
			Alloca{Result: ptr, Ty: ty},
			Store{Ty: ty, Ptr: ptr, Value: operand})
		b.bindLocal(name, localBinding{ptr: ptr, ty: ty})
	}
	return instrs
}

type operandTy struct {
	operand string
	ty      string
}

// rebindTargetOperand stores value into an assignment target: identifiers
// resolve through the scope stack, field/index targets store through the
// materialised lvalue pointer.
func rebindTargetOperand(targetID mir.ExprID, target *operandTy, valueOperand, valueTy string, exprs exprMap, b *builder) []Instr {
	var instrs []Instr
	expr, ok := exprs[targetID]
	if !ok {
		return instrs
	}
	switch expr.Kind {
	case mir.ExprIdentifier:
		if name := extractLocalNameFromSummary(expr.Summary); name != "" {
			if binding, ok := b.resolveLocal(name); ok {
				instrs = append(instrs, Store{Ty: binding.ty, Ptr: binding.ptr, Value: valueOperand})
				return instrs
			}
		}
	case mir.ExprFieldAccess, mir.ExprIndex:
		if target != nil {
			instrs = append(instrs, Store{Ty: valueTy, Ptr: target.operand, Value: valueOperand})
		} else {
			instrs = append(instrs, Comment("field assign skipped: missing target operand"))
		}
		return instrs
	default:
		if target != nil {
			instrs = append(instrs, Store{Ty: valueTy, Ptr: target.operand, Value: valueOperand})
		} else {
			instrs = append(instrs, Comment("assign target unsupported -> skipped"))
		}
		return instrs
	}
	return instrs
}

func emitInlineAsmValue(expr *mir.Expr, exprs exprMap, b *builder) emittedValue {
	var instrs []Instr
	var inputValues []emittedValue
	inputs := make([]asmInput, len(expr.Inputs))
	for i, input := range expr.Inputs {
		inputs[i] = asmInput{constraint: input.Constraint, expr: input.Expr}
		value := emitValueExpr(input.Expr, exprs, b)
		instrs = append(instrs, value.instrs...)
		value.instrs = nil
		inputValues = append(inputValues, value)
	}

	type outputTarget struct {
		target   mir.ExprID
		operand  *operandTy
		outputTy string
	}
	outputs := make([]asmOutput, len(expr.Outputs))
	var outputTargets []outputTarget
	for i, output := range expr.Outputs {
		outputs[i] = asmOutput{constraint: output.Constraint, target: output.Target}
		targetValue := emitValueExpr(output.Target, exprs, b)
		instrs = append(instrs, targetValue.instrs...)
		outputTy := inferOutputLLVMType(output.Target, exprs, b)
		outputTargets = append(outputTargets, outputTarget{
			target:   output.Target,
			operand:  &operandTy{operand: targetValue.operand, ty: targetValue.ty},
			outputTy: outputTy,
		})
	}

	constraints := strings.Join(buildInlineAsmConstraintList(outputs, inputs, expr.Clobbers), ",")
	sideeffect, alignstack := parseInlineAsmOptions(expr.Options)
	retTy := "void"
	if len(outputTargets) == 1 {
		retTy = outputTargets[0].outputTy
	} else if len(outputTargets) > 1 {
		tys := make([]string, len(outputTargets))
		for i, out := range outputTargets {
			tys[i] = out.outputTy
		}
		retTy = "{" + strings.Join(tys, ", ") + "}"
	}
	callResult := ""
	if len(outputTargets) > 0 {
		callResult = b.newTmp("asm")
	}
	args := make([]Arg, len(inputValues))
	for i, value := range inputValues {
		args[i] = Arg{Ty: value.ty, Value: value.operand}
	}
	instrs = append(instrs, InlineAsm{
		Result: callResult, RetTy: retTy, Template: expr.Template,
		Constraints: constraints, Args: args,
		Sideeffect: sideeffect, Alignstack: alignstack,
	})

	result := emitUnitValue(b)
	result.instrs = instrs
	if len(outputTargets) == 0 {
		result.instrs = append(result.instrs, Comment(fmt.Sprintf("inline_asm expr#%d -> unit", expr.ID)))
		return result
	}
	if len(outputTargets) == 1 {
		out := outputTargets[0]
		result.instrs = append(result.instrs,
			rebindTargetOperand(out.target, out.operand, callResult, out.outputTy, exprs, b)...)
		if exprTy, ok := mapTypeTokenToLLVM(expr.Ty, b); ok && exprTy == out.outputTy {
			return emittedValue{ty: exprTy, operand: callResult, instrs: result.instrs}
		}
		result.instrs = append(result.instrs, Comment(fmt.Sprintf("inline_asm expr#%d -> output stored", expr.ID)))
		return result
	}
	for index, out := range outputTargets {
		extracted := b.newTmp("asm_out")
		result.instrs = append(result.instrs, ExtractValue{
			Result: extracted, AggregateTy: retTy, Aggregate: callResult, Index: index,
		})
		result.instrs = append(result.instrs,
			rebindTargetOperand(out.target, out.operand, extracted, out.outputTy, exprs, b)...)
	}
	result.instrs = append(result.instrs, Comment(fmt.Sprintf("inline_asm expr#%d -> outputs stored", expr.ID)))
	return result
}

func inferOutputLLVMType(id mir.ExprID, exprs exprMap, b *builder) string {
	expr, ok := exprs[id]
	if !ok {
		return b.pointerType()
	}
	if mapped, ok := mapTypeTokenToLLVM(expr.Ty, b); ok {
		return mapped
	}
	return inferExprLLVMType(id, exprs, b)
}

func emitLlvmIrValue(expr *mir.Expr, exprs exprMap, b *builder) emittedValue {
	var instrs []Instr
	var inputOperands []string
	for _, inputID := range expr.IrInputs {
		value := emitValueExpr(inputID, exprs, b)
		instrs = append(instrs, value.instrs...)
		inputOperands = append(inputOperands, value.operand)
	}
	prefix := fmt.Sprintf("llvm_ir%d_", expr.ID)
	renamed := renameSSANames(expr.Template, prefix)
	rendered, invalid := replacePlaceholders(renamed, inputOperands)
	resultOperand := findLastAssignedSSA(rendered)
	retTy := b.pointerType()
	if mapped, ok := mapTypeTokenToLLVM(expr.ResultType, b); ok {
		retTy = mapped
	}
	for _, line := range strings.Split(rendered, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			instrs = append(instrs, Raw(trimmed))
		}
	}
	if len(invalid) > 0 {
		instrs = append(instrs, Comment(fmt.Sprintf("llvm_ir expr#%d invalid placeholders: %v", expr.ID, invalid)))
	}
	switch strings.ToLower(strings.TrimSpace(expr.ResultType)) {
	case "void", "unit":
		result := emitUnitValue(b)
		result.instrs = instrs
		return result
	}
	if resultOperand != "" {
		return emittedValue{ty: retTy, operand: resultOperand, instrs: instrs}
	}
	instrs = append(instrs, Comment(fmt.Sprintf("llvm_ir expr#%d missing result", expr.ID)))
	return emittedValue{ty: retTy, operand: "null", instrs: instrs}
}
