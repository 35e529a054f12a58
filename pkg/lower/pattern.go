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

// synthesizePatternCheckCond defers a pattern check to the runtime
// @reml_match_check intrinsic, used for the shapes the lowerer does not
// decompose statically (strings, tuples, records, multi-arg payloads).
func synthesizePatternCheckCond(b *builder, checkLabel, targetOperand, hint string) (string, []Instr) {
	instrs := []Instr{Comment(checkLabel)}
	callResult := b.newTmp(hint)
	instrs = append(instrs, Call{Result: callResult, RetTy: b.boolType(), Callee: intrinsicMatchCheck,
		Args: []Arg{{Ty: "ptr", Value: targetOperand}}})
	cond := b.newTmp("cmp")
	instrs = append(instrs, Icmp{Result: cond, Pred: "ne", Ty: b.boolType(), LHS: callResult, RHS: "false"})
	return cond, instrs
}

// emitPatternCond emits the boolean condition for a pattern against a
// target operand. Wildcard and var always match; a binding checks its inner
// pattern; regex calls @reml_regex_match; bool and int literals compare;
// constructors without arguments special-case Some/None against null and
// otherwise call the tag intrinsic; everything else, string literals and
// constructors with arguments included, synthesizes a runtime check.
func emitPatternCond(b *builder, pattern *mir.Pattern, targetOperand, targetDesc, missLabel, hint string) (string, []Instr) {
	switch pattern.Kind {
	case mir.PatWildcard, mir.PatVar:
		return "true", []Instr{Comment(patternCheckLabel(pattern, targetDesc, missLabel))}

	case mir.PatBinding:
		cond, instrs := emitPatternCond(b, pattern.Pattern, targetOperand, targetDesc, missLabel, hint)
		instrs = append([]Instr{Comment(fmt.Sprintf("binding %s <- %s", pattern.Name, targetDesc))}, instrs...)
		return cond, instrs

	case mir.PatRegex:
		instrs := []Instr{Comment(patternCheckLabel(pattern, targetDesc, missLabel))}
		callResult := b.newTmp("regex")
		instrs = append(instrs, Call{Result: callResult, RetTy: b.boolType(), Callee: intrinsicRegexMatch,
			Args: []Arg{
				{Ty: b.pointerType(), Value: targetOperand},
				{Ty: b.pointerType(), Value: `"` + strings.ReplaceAll(pattern.Regex, `"`, `\"`) + `"`},
			}})
		cond := b.newTmp("cmp")
		instrs = append(instrs, Icmp{Result: cond, Pred: "ne", Ty: b.boolType(), LHS: callResult, RHS: "false"})
		return cond, instrs

	case mir.PatConstructor:
		if len(pattern.Args) > 0 {
			return synthesizePatternCheckCond(b,
				fmt.Sprintf("ctor_check(%s, args=%d on %s) (payload matching handled in emitPatternBlocks)",
					pattern.Name, len(pattern.Args), targetDesc),
				targetOperand, hint)
		}
		instrs := []Instr{Comment(patternCheckLabel(pattern, targetDesc, missLabel))}
		cond := b.newTmp("ctor")
		switch pattern.Name {
		case "None":
			instrs = append(instrs, Icmp{Result: cond, Pred: "eq", Ty: b.pointerType(), LHS: targetOperand, RHS: "null"})
			return cond, instrs
		case "Some":
			instrs = append(instrs, Icmp{Result: cond, Pred: "ne", Ty: b.pointerType(), LHS: targetOperand, RHS: "null"})
			return cond, instrs
		}
		instrs = append(instrs, Call{Result: cond, RetTy: b.boolType(), Callee: intrinsicIsCtor(pattern.Name),
			Args: []Arg{{Ty: b.pointerType(), Value: targetOperand}}})
		return cond, instrs

	case mir.PatLiteral:
		if lit, ok := extractLiteralOperand(pattern.Summary); ok && !strings.HasPrefix(lit, `"`) {
			instrs := []Instr{Comment(patternCheckLabel(pattern, targetDesc, missLabel))}
			cond := b.newTmp(hint)
			ty := "i64"
			if lit == "true" || lit == "false" {
				ty = b.boolType()
			}
			instrs = append(instrs, Icmp{Result: cond, Pred: "eq", Ty: ty, LHS: targetOperand, RHS: lit})
			return cond, instrs
		}
		return synthesizePatternCheckCond(b, patternCheckLabel(pattern, targetDesc, missLabel), targetOperand, hint)
	}
	return synthesizePatternCheckCond(b, patternCheckLabel(pattern, targetDesc, missLabel), targetOperand, hint)
}

// emitPatternBlocks emits the pattern-check block chain for one arm.
// Constructor-with-args gets a tag block plus a payload block; or-patterns
// get one block per alternative falling through to the next; ranges and
// slices emit inline comparisons; active patterns call the user function.
func emitPatternBlocks(armIndex int, pattern *mir.Pattern, successLabel, nextArmLabel, targetOperand, targetDesc string, b *builder) ([]Block, []IRBlock) {
	switch pattern.Kind {
	case mir.PatConstructor:
		if len(pattern.Args) > 0 {
			return emitCtorPayloadBlocks(armIndex, pattern, successLabel, nextArmLabel, targetOperand, targetDesc, b)
		}

	case mir.PatOr:
		var blocks []Block
		var irBlocks []IRBlock
		for idx := range pattern.Variants {
			variant := &pattern.Variants[idx]
			missTarget := nextArmLabel
			if idx+1 < len(pattern.Variants) {
				missTarget = fmt.Sprintf("arm%d.or%d", armIndex, idx+1)
			}
			check := patternCheckLabel(variant, targetDesc, missTarget)
			cond, irInstrs := emitPatternCond(b, variant, targetOperand, targetDesc, missTarget, "or")
			label := fmt.Sprintf("arm%d.or%d", armIndex, idx)
			blocks = append(blocks, Block{
				Label:      label,
				Instrs:     []string{"check " + check},
				Terminator: fmt.Sprintf("br_if %s then %s else %s", cond, successLabel, missTarget),
			})
			irBlocks = append(irBlocks, IRBlock{
				Label:      label,
				Instrs:     irInstrs,
				Terminator: BrCond{Cond: cond, Then: successLabel, Else: missTarget},
			})
		}
		return blocks, irBlocks

	case mir.PatRange:
		return emitRangeBlocks(armIndex, pattern, successLabel, nextArmLabel, targetOperand, targetDesc)

	case mir.PatSlice:
		return emitSliceBlocks(armIndex, pattern, successLabel, nextArmLabel, targetOperand, targetDesc, b)

	case mir.PatActive:
		return emitActiveBlocks(armIndex, pattern, successLabel, nextArmLabel, targetOperand, targetDesc, b)
	}

	check := patternCheckLabel(pattern, targetDesc, nextArmLabel)
	cond, irInstrs := emitPatternCond(b, pattern, targetOperand, targetDesc, nextArmLabel, "pat")
	label := fmt.Sprintf("arm%d.pat", armIndex)
	block := Block{
		Label:      label,
		Instrs:     []string{"check " + check},
		Terminator: fmt.Sprintf("br_if %s then %s else %s", cond, successLabel, nextArmLabel),
	}
	irBlock := IRBlock{
		Label:      label,
		Instrs:     irInstrs,
		Terminator: BrCond{Cond: cond, Then: successLabel, Else: nextArmLabel},
	}
	return []Block{block}, []IRBlock{irBlock}
}

// emitCtorPayloadBlocks is the constructor-with-args shape: the outer
// block checks the tag, the payload block extracts and recursively checks
// the single-argument nested pattern. Multi-argument payload matching is
// a documented gap that emits a runtime check.
func emitCtorPayloadBlocks(armIndex int, pattern *mir.Pattern, successLabel, nextArmLabel, targetOperand, targetDesc string, b *builder) ([]Block, []IRBlock) {
	outerLabel := fmt.Sprintf("arm%d.pat", armIndex)
	payloadLabel := fmt.Sprintf("arm%d.ctor_payload", armIndex)
	name := pattern.Name

	var outerCond string
	var outerInstrs []Instr
	if name == "Some" {
		outerCond = b.newTmp("ctor")
		outerInstrs = []Instr{
			Comment(fmt.Sprintf("ctor_check(Some) on %s -> non-null then %s else %s", targetDesc, payloadLabel, nextArmLabel)),
			Icmp{Result: outerCond, Pred: "ne", Ty: b.pointerType(), LHS: targetOperand, RHS: "null"},
		}
	} else {
		outerCond = b.newTmp("ctor")
		outerInstrs = []Instr{
			Comment(fmt.Sprintf("ctor_check(%s) on %s -> then %s else %s", name, targetDesc, payloadLabel, nextArmLabel)),
			Call{Result: outerCond, RetTy: b.boolType(), Callee: intrinsicIsCtor(name),
				Args: []Arg{{Ty: b.pointerType(), Value: targetOperand}}},
		}
	}
	outerInstrs = append([]Instr{Comment(patternCheckLabel(pattern, targetDesc, nextArmLabel))}, outerInstrs...)

	outerBlock := Block{
		Label:      outerLabel,
		Instrs:     []string{fmt.Sprintf("check ctor(%s, args=%d) on %s", name, len(pattern.Args), targetDesc)},
		Terminator: fmt.Sprintf("br_if %s then %s else %s", outerCond, payloadLabel, nextArmLabel),
	}
	outerIR := IRBlock{
		Label:      outerLabel,
		Instrs:     outerInstrs,
		Terminator: BrCond{Cond: outerCond, Then: payloadLabel, Else: nextArmLabel},
	}

	payloadVar := b.newTmp("payload")
	payloadDesc := fmt.Sprintf("payload(%s.%s)", targetDesc, name)
	payloadInstrs := []Instr{
		Comment(fmt.Sprintf("%s <- %s", payloadDesc, targetDesc)),
		Call{Result: payloadVar, RetTy: b.pointerType(), Callee: intrinsicCtorPayload(name),
			Args: []Arg{{Ty: b.pointerType(), Value: targetOperand}}},
	}
	var innerCond string
	var innerInstrs []Instr
	if len(pattern.Args) == 1 {
		innerCond, innerInstrs = emitPatternCond(b, &pattern.Args[0], payloadVar, payloadDesc, nextArmLabel, "ctor")
	} else {
		innerCond, innerInstrs = synthesizePatternCheckCond(b,
			fmt.Sprintf("ctor_check(%s, args=%d) (multi-arg payload matching unsupported)", name, len(pattern.Args)),
			payloadVar, "ctor")
	}
	payloadInstrs = append(payloadInstrs, innerInstrs...)

	payloadBlock := Block{
		Label:      payloadLabel,
		Instrs:     []string{fmt.Sprintf("check ctor payload args=%d on %s", len(pattern.Args), payloadDesc)},
		Terminator: fmt.Sprintf("br_if %s then %s else %s", innerCond, successLabel, nextArmLabel),
	}
	payloadIR := IRBlock{
		Label:      payloadLabel,
		Instrs:     payloadInstrs,
		Terminator: BrCond{Cond: innerCond, Then: successLabel, Else: nextArmLabel},
	}
	return []Block{outerBlock, payloadBlock}, []IRBlock{outerIR, payloadIR}
}

func emitRangeBlocks(armIndex int, pattern *mir.Pattern, successLabel, nextArmLabel, targetOperand, targetDesc string) ([]Block, []IRBlock) {
	var instrs []string
	var irInstrs []Instr
	cond := "true"
	if pattern.Start != nil {
		lhs := renderRangeBound(pattern.Start)
		v := fmt.Sprintf("tmp_arm%d_ge", armIndex)
		instrs = append(instrs, fmt.Sprintf("%s = icmp_ge %s, %s", v, targetDesc, lhs))
		irInstrs = append(irInstrs, Icmp{Result: v, Pred: "sge", Ty: "i64", LHS: targetOperand, RHS: lhs})
		cond = v
	}
	if pattern.End != nil {
		rhs := renderRangeBound(pattern.End)
		op, pred := "icmp_lt", "slt"
		if pattern.Inclusive {
			op, pred = "icmp_le", "sle"
		}
		v := fmt.Sprintf("tmp_arm%d_hi", armIndex)
		instrs = append(instrs, fmt.Sprintf("%s = %s %s, %s", v, op, targetDesc, rhs))
		irInstrs = append(irInstrs, Icmp{Result: v, Pred: pred, Ty: "i64", LHS: targetOperand, RHS: rhs})
		if cond != "true" {
			andVar := fmt.Sprintf("tmp_arm%d_range", armIndex)
			instrs = append(instrs, fmt.Sprintf("%s = and %s, %s", andVar, cond, v))
			irInstrs = append(irInstrs, And{Result: andVar, LHS: cond, RHS: v})
			cond = andVar
		} else {
			cond = v
		}
	}
	label := fmt.Sprintf("arm%d.pat", armIndex)
	block := Block{
		Label:      label,
		Instrs:     instrs,
		Terminator: fmt.Sprintf("br_if %s then %s else %s", cond, successLabel, nextArmLabel),
	}
	irBlock := IRBlock{
		Label:      label,
		Instrs:     irInstrs,
		Terminator: BrCond{Cond: cond, Then: successLabel, Else: nextArmLabel},
	}
	return []Block{block}, []IRBlock{irBlock}
}

// emitSliceBlocks compares @len(target) against head+tail — eq without a
// rest binding, uge with one. The element bindings are recorded as an
// annotated slice_bind instruction; full binding emission is a later
// refinement.
func emitSliceBlocks(armIndex int, pattern *mir.Pattern, successLabel, nextArmLabel, targetOperand, targetDesc string, b *builder) ([]Block, []IRBlock) {
	slice := pattern.Slice
	if slice == nil {
		slice = &mir.SlicePattern{}
	}
	var instrs []string
	var irInstrs []Instr
	lenVar := fmt.Sprintf("len_arm%d", armIndex)
	need := len(slice.Head) + len(slice.Tail)
	instrs = append(instrs, fmt.Sprintf("%s = len(%s)", lenVar, targetDesc))
	irInstrs = append(irInstrs, Call{Result: lenVar, RetTy: "i64", Callee: "@len",
		Args: []Arg{{Ty: b.pointerType(), Value: targetOperand}}})
	checkVar := fmt.Sprintf("tmp_arm%d_len", armIndex)
	if slice.Rest != nil {
		instrs = append(instrs, fmt.Sprintf("%s = icmp_uge %s, %d", checkVar, lenVar, need))
		irInstrs = append(irInstrs, Icmp{Result: checkVar, Pred: "uge", Ty: "i64", LHS: lenVar, RHS: fmt.Sprint(need)})
	} else {
		instrs = append(instrs, fmt.Sprintf("%s = icmp_eq %s, %d", checkVar, lenVar, need))
		irInstrs = append(irInstrs, Icmp{Result: checkVar, Pred: "eq", Ty: "i64", LHS: lenVar, RHS: fmt.Sprint(need)})
	}
	instrs = append(instrs, fmt.Sprintf("slice_bind head[%d], tail[%d], rest=%t",
		len(slice.Head), len(slice.Tail), slice.Rest != nil))
	label := fmt.Sprintf("arm%d.pat", armIndex)
	block := Block{
		Label:      label,
		Instrs:     instrs,
		Terminator: fmt.Sprintf("br_if %s then %s else %s", checkVar, successLabel, nextArmLabel),
	}
	irBlock := IRBlock{
		Label:      label,
		Instrs:     irInstrs,
		Terminator: BrCond{Cond: checkVar, Then: successLabel, Else: nextArmLabel},
	}
	return []Block{block}, []IRBlock{irBlock}
}

// emitActiveBlocks calls the user's active-pattern function; a partial
// pattern converts the returned pointer to a boolean, a total pattern is
// assumed to match.
func emitActiveBlocks(armIndex int, pattern *mir.Pattern, successLabel, nextArmLabel, targetOperand, targetDesc string, b *builder) ([]Block, []IRBlock) {
	active := pattern.Active
	if active == nil {
		active = &mir.ActiveCall{Kind: mir.ActiveUnknown}
	}
	var instrs []string
	var irInstrs []Instr
	callVar := fmt.Sprintf("tmp_arm%d_active", armIndex)
	instrs = append(instrs, fmt.Sprintf("%s = call active %s(%s)", callVar, active.Name, targetDesc))
	irInstrs = append(irInstrs, Call{Result: callVar, RetTy: "ptr",
		Callee: "@" + SanitizeIdent(active.Name),
		Args:   []Arg{{Ty: b.pointerType(), Value: targetOperand}}})
	cond := "true"
	if active.Kind == mir.ActivePartial {
		checkVar := fmt.Sprintf("tmp_arm%d_is_some", armIndex)
		instrs = append(instrs, fmt.Sprintf("%s = option_is_some %s", checkVar, callVar))
		irInstrs = append(irInstrs, Icmp{Result: checkVar, Pred: "ne", Ty: "ptr", LHS: callVar, RHS: "null"})
		cond = checkVar
	}
	label := fmt.Sprintf("arm%d.pat", armIndex)
	block := Block{
		Label:      label,
		Instrs:     instrs,
		Terminator: fmt.Sprintf("br_if %s then %s else %s", cond, successLabel, nextArmLabel),
	}
	irBlock := IRBlock{
		Label:      label,
		Instrs:     irInstrs,
		Terminator: BrCond{Cond: cond, Then: successLabel, Else: nextArmLabel},
	}
	return []Block{block}, []IRBlock{irBlock}
}

func renderRangeBound(pattern *mir.Pattern) string {
	switch pattern.Kind {
	case mir.PatLiteral:
		return pattern.Summary
	case mir.PatVar:
		return pattern.Name
	}
	return SummarizePattern(pattern)
}

// patternCheckLabel renders the human-oriented check label used in both
// branch plans and IR comments.
func patternCheckLabel(pattern *mir.Pattern, targetLabel, missLabel string) string {
	switch pattern.Kind {
	case mir.PatWildcard:
		return fmt.Sprintf("match_any(%s)", targetLabel)
	case mir.PatVar:
		return fmt.Sprintf("bind(%s)", pattern.Name)
	case mir.PatLiteral:
		return fmt.Sprintf("eq(%s,%s)", targetLabel, pattern.Summary)
	case mir.PatTuple:
		return fmt.Sprintf("tuple_check(len=%d on %s)", len(pattern.Elements), targetLabel)
	case mir.PatRecord:
		rest := "exact"
		if pattern.HasRest {
			rest = "with_rest"
		}
		return fmt.Sprintf("record_check(%d fields,%s on %s)", len(pattern.Fields), rest, targetLabel)
	case mir.PatConstructor:
		return fmt.Sprintf("ctor_check(%s, args=%d on %s)", pattern.Name, len(pattern.Args), targetLabel)
	case mir.PatBinding:
		return patternCheckLabel(pattern.Pattern, targetLabel, missLabel)
	case mir.PatOr:
		return fmt.Sprintf("or(%d variants)", len(pattern.Variants))
	case mir.PatSlice:
		slice := pattern.Slice
		if slice == nil {
			slice = &mir.SlicePattern{}
		}
		baseLen := len(slice.Head) + len(slice.Tail)
		lenRule := fmt.Sprintf("len==%d", baseLen)
		if slice.Rest != nil {
			lenRule = fmt.Sprintf("len>=%d", baseLen)
		}
		return fmt.Sprintf("slice_check(%s;head=%d;tail=%d;rest=%t on %s)",
			lenRule, len(slice.Head), len(slice.Tail), slice.Rest != nil, targetLabel)
	case mir.PatRange:
		bound := ".."
		if pattern.Inclusive {
			bound = "..="
		}
		var parts []string
		if pattern.Start != nil {
			parts = append(parts, "start")
		}
		if pattern.End != nil {
			parts = append(parts, "end")
		}
		bounds := "open"
		if len(parts) > 0 {
			bounds = strings.Join(parts, "+")
		}
		return fmt.Sprintf("range_check(%s%s on %s)", bound, bounds, targetLabel)
	case mir.PatRegex:
		return fmt.Sprintf("regex_match(%s on %s)", pattern.Regex, targetLabel)
	case mir.PatActive:
		active := pattern.Active
		if active == nil {
			return "active(?)"
		}
		switch active.Kind {
		case mir.ActivePartial:
			return fmt.Sprintf("active_partial(%s miss->%s)", active.Name, missLabel)
		case mir.ActiveTotal:
			return fmt.Sprintf("active_total(%s)", active.Name)
		}
		return fmt.Sprintf("active(%s)", active.Name)
	}
	return "match_any(" + targetLabel + ")"
}

// SummarizePattern renders a compact one-line pattern summary for plans
// and diagnostics.
func SummarizePattern(pattern *mir.Pattern) string {
	switch pattern.Kind {
	case mir.PatWildcard:
		return "_"
	case mir.PatVar:
		return fmt.Sprintf("var(%s)", pattern.Name)
	case mir.PatLiteral:
		return fmt.Sprintf("lit(%s)", pattern.Summary)
	case mir.PatTuple:
		return fmt.Sprintf("tuple(%d)", len(pattern.Elements))
	case mir.PatRecord:
		var labels []string
		for i := range pattern.Fields {
			field := &pattern.Fields[i]
			if field.Value != nil {
				labels = append(labels, field.Key+":"+SummarizePattern(field.Value))
			} else {
				labels = append(labels, field.Key)
			}
		}
		if pattern.HasRest {
			labels = append(labels, "..")
		}
		return fmt.Sprintf("record(%s)", strings.Join(labels, ","))
	case mir.PatConstructor:
		if len(pattern.Args) == 0 {
			return fmt.Sprintf("ctor(%s)", pattern.Name)
		}
		args := make([]string, len(pattern.Args))
		for i := range pattern.Args {
			args[i] = SummarizePattern(&pattern.Args[i])
		}
		return fmt.Sprintf("ctor(%s;%s)", pattern.Name, strings.Join(args, "|"))
	case mir.PatBinding:
		prefix := "as "
		if pattern.ViaAt {
			prefix = "@ "
		}
		return fmt.Sprintf("binding(%s%s:%s)", prefix, pattern.Name, SummarizePattern(pattern.Pattern))
	case mir.PatOr:
		variants := make([]string, len(pattern.Variants))
		for i := range pattern.Variants {
			variants[i] = SummarizePattern(&pattern.Variants[i])
		}
		return strings.Join(variants, "||")
	case mir.PatSlice:
		slice := pattern.Slice
		if slice == nil {
			slice = &mir.SlicePattern{}
		}
		var parts []string
		if len(slice.Head) > 0 {
			parts = append(parts, fmt.Sprintf("head%d", len(slice.Head)))
		}
		if slice.Rest != nil {
			parts = append(parts, "rest")
		}
		if len(slice.Tail) > 0 {
			parts = append(parts, fmt.Sprintf("tail%d", len(slice.Tail)))
		}
		return fmt.Sprintf("slice(%s)", strings.Join(parts, ","))
	case mir.PatRange:
		var bounds []string
		if pattern.Start != nil {
			bounds = append(bounds, "start="+SummarizePattern(pattern.Start))
		}
		if pattern.End != nil {
			bounds = append(bounds, "end="+SummarizePattern(pattern.End))
		}
		base := "range(..)"
		if pattern.Inclusive {
			base = "range(..=)"
		}
		if len(bounds) == 0 {
			return base
		}
		return fmt.Sprintf("%s[%s]", base, strings.Join(bounds, ","))
	case mir.PatRegex:
		return fmt.Sprintf("regex(%s)", pattern.Regex)
	case mir.PatActive:
		active := pattern.Active
		if active == nil {
			return "active(?)"
		}
		var flags []string
		switch active.Kind {
		case mir.ActivePartial:
			flags = append(flags, "partial")
		case mir.ActiveTotal:
			flags = append(flags, "total")
		}
		if active.MissNextArm {
			flags = append(flags, "miss")
		}
		label := fmt.Sprintf("active(%s)", active.Name)
		if len(flags) > 0 {
			label = fmt.Sprintf("active(%s;%s)", active.Name, strings.Join(flags, ","))
		}
		if active.Argument != nil {
			label = fmt.Sprintf("%s[%s]", label, SummarizePattern(active.Argument))
		}
		return label
	}
	return "_"
}
