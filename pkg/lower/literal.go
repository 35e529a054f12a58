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
	"sort"
	"strconv"
	"strings"
)

// literalKind discriminates parsed literal summaries.
type literalKind int

const (
	litUnknown literalKind = iota
	litUnit
	litBool
	litInt
	litFloat
	litChar
	litString
	litTuple
	litArray
	litRecord
	litSet
)

// literalSummary is the decoded form of a Literal expression's summary
// field: plain spellings ("unit", "true", "42") or a JSON object for the
// aggregate shapes.
type literalSummary struct {
	kind     literalKind
	boolVal  bool
	intVal   int64
	raw      string // float raw text / char value / unknown kind label
	strVal   string
	elements []json.RawMessage
	typeName string
	fields   []recordLiteralField
}

type recordLiteralField struct {
	key   string
	value json.RawMessage
}

func parseLiteralSummary(summary string) literalSummary {
	trimmed := strings.TrimSpace(summary)
	switch trimmed {
	case "unit":
		return literalSummary{kind: litUnit}
	case "true":
		return literalSummary{kind: litBool, boolVal: true}
	case "false":
		return literalSummary{kind: litBool}
	}
	if value, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return literalSummary{kind: litInt, intVal: value}
	}
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var raw json.RawMessage = []byte(trimmed)
		return parseLiteralValue(raw)
	}
	return literalSummary{kind: litUnknown}
}

func parseLiteralValue(raw json.RawMessage) literalSummary {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return literalSummary{kind: litUnknown}
	}
	obj = unwrapLiteralObject(obj)
	if obj == nil {
		return literalSummary{kind: litUnknown}
	}
	var kind string
	if rawKind, ok := obj["kind"]; ok {
		_ = json.Unmarshal(rawKind, &kind)
	}
	switch kind {
	case "unit":
		return literalSummary{kind: litUnit}
	case "bool":
		var v bool
		if err := json.Unmarshal(obj["value"], &v); err != nil {
			return literalSummary{kind: litUnknown, raw: kind}
		}
		return literalSummary{kind: litBool, boolVal: v}
	case "int":
		var v int64
		if err := json.Unmarshal(obj["value"], &v); err != nil {
			return literalSummary{kind: litUnknown, raw: kind}
		}
		return literalSummary{kind: litInt, intVal: v}
	case "string":
		var v string
		if err := json.Unmarshal(obj["value"], &v); err != nil {
			return literalSummary{kind: litUnknown, raw: kind}
		}
		return literalSummary{kind: litString, strVal: v}
	case "float":
		var v string
		_ = json.Unmarshal(obj["raw"], &v)
		return literalSummary{kind: litFloat, raw: v}
	case "char":
		var v string
		_ = json.Unmarshal(obj["value"], &v)
		return literalSummary{kind: litChar, raw: v}
	case "tuple", "array", "set":
		var elements []json.RawMessage
		_ = json.Unmarshal(obj["elements"], &elements)
		k := litTuple
		if kind == "array" {
			k = litArray
		} else if kind == "set" {
			k = litSet
		}
		return literalSummary{kind: k, elements: elements}
	case "record":
		return literalSummary{
			kind:     litRecord,
			typeName: extractIdentName(obj["type_name"]),
			fields:   parseRecordLiteralFields(obj["fields"]),
		}
	}
	return literalSummary{kind: litUnknown, raw: kind}
}

// unwrapLiteralObject tolerates the {value: {kind: ...}} nesting some
// front-ends emit.
func unwrapLiteralObject(obj map[string]json.RawMessage) map[string]json.RawMessage {
	if _, ok := obj["kind"]; ok {
		return obj
	}
	inner, ok := obj["value"]
	if !ok {
		return nil
	}
	var innerObj map[string]json.RawMessage
	if err := json.Unmarshal(inner, &innerObj); err != nil {
		return nil
	}
	if _, ok := innerObj["kind"]; ok {
		return innerObj
	}
	return nil
}

func extractIdentName(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Name
	}
	return ""
}

func parseRecordLiteralFields(raw json.RawMessage) []recordLiteralField {
	if raw == nil {
		return nil
	}
	var fields []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	var out []recordLiteralField
	for _, field := range fields {
		key := extractIdentName(field["key"])
		value, ok := field["value"]
		if key == "" || !ok {
			continue
		}
		out = append(out, recordLiteralField{key: key, value: value})
	}
	return out
}

// extractLiteralOperand renders the direct operand of a bool, int or string
// literal, or ok=false for every other literal kind.
func extractLiteralOperand(summary string) (string, bool) {
	lit := parseLiteralSummary(summary)
	switch lit.kind {
	case litBool:
		if lit.boolVal {
			return "true", true
		}
		return "false", true
	case litInt:
		return strconv.FormatInt(lit.intVal, 10), true
	case litString:
		return `"` + strings.ReplaceAll(lit.strVal, `"`, `\"`) + `"`, true
	}
	return "", false
}

type arrayLiteralTarget int

const (
	arrayTargetUnknown arrayLiteralTarget = iota
	arrayTargetDynamic
	arrayTargetFixed
)

func parseArrayLiteralTarget(ty string) (arrayLiteralTarget, int) {
	trimmed := strings.TrimSpace(ty)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") || len(trimmed) < 2 {
		return arrayTargetUnknown, 0
	}
	inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if inner == "" {
		return arrayTargetUnknown, 0
	}
	if idx := strings.LastIndex(inner, ";"); idx >= 0 {
		if length, err := strconv.Atoi(strings.TrimSpace(inner[idx+1:])); err == nil {
			return arrayTargetFixed, length
		}
		return arrayTargetUnknown, 0
	}
	return arrayTargetDynamic, 0
}

func emitFloatLiteralValue(raw string, b *builder) emittedValue {
	normalized := strings.ReplaceAll(raw, "_", "")
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return emitUnsupportedLiteralValue(b, "float", "raw="+raw)
	}
	result := b.newTmp("float")
	return emittedValue{
		ty:      b.pointerType(),
		operand: result,
		instrs: []Instr{
			Comment("float literal -> reml_box_float"),
			Call{Result: result, RetTy: b.pointerType(), Callee: intrinsicBoxFloat,
				Args: []Arg{{Ty: "double", Value: strconv.FormatFloat(value, 'g', -1, 64)}}},
		},
	}
}

func emitCharLiteralValue(value string, b *builder) emittedValue {
	runes := []rune(value)
	if len(runes) != 1 {
		return emitUnsupportedLiteralValue(b, "char", "value="+value)
	}
	result := b.newTmp("char")
	return emittedValue{
		ty:      b.pointerType(),
		operand: result,
		instrs: []Instr{
			Comment("char literal -> reml_box_char"),
			Call{Result: result, RetTy: b.pointerType(), Callee: intrinsicBoxChar,
				Args: []Arg{{Ty: "i32", Value: strconv.FormatUint(uint64(runes[0]), 10)}}},
		},
	}
}

func emitArrayLiteralValue(elements []json.RawMessage, exprTy string, b *builder) emittedValue {
	var instrs []Instr
	target, expected := parseArrayLiteralTarget(exprTy)
	switch target {
	case arrayTargetDynamic:
		instrs = append(instrs, Comment(fmt.Sprintf("array literal dynamic len=%d", len(elements))))
	case arrayTargetFixed:
		note := "array literal fixed-length matched"
		if expected != len(elements) {
			note = "array literal fixed-length mismatch"
		}
		instrs = append(instrs, Comment(fmt.Sprintf("%s: expected=%d, actual=%d", note, expected, len(elements))))
	default:
		instrs = append(instrs, Comment(fmt.Sprintf("array literal target unknown len=%d", len(elements))))
	}

	instrs = append(instrs, Comment("array literal -> reml_array_from"))
	args := []Arg{{Ty: "i64", Value: strconv.Itoa(len(elements))}}
	for index, element := range elements {
		value := emitElementExpr(element, b, "array element")
		value = ensureBoxedPointer(value, b, "array element")
		instrs = append(instrs, value.instrs...)
		instrs = append(instrs, Comment(fmt.Sprintf("array element %d", index)))
		args = append(args, Arg{Ty: b.pointerType(), Value: value.operand})
	}

	result := b.newTmp("array")
	instrs = append(instrs, Call{Result: result, RetTy: b.pointerType(), Callee: intrinsicArrayFrom, Args: args})
	return emittedValue{ty: b.pointerType(), operand: result, instrs: instrs}
}

type recordFieldValue struct {
	key         string
	operand     string
	sourceIndex int
}

// emitRecordLiteralValue evaluates record fields in source order, then
// passes them to the record constructor in key-sorted order with stable
// tie-breaking on source index, so downstream layout is deterministic.
func emitRecordLiteralValue(fields []recordLiteralField, typeName string, b *builder) emittedValue {
	var instrs []Instr
	suffix := ""
	if typeName != "" {
		suffix = " type_name=" + typeName
	}
	instrs = append(instrs, Comment(fmt.Sprintf("record literal field_count=%d%s", len(fields), suffix)))

	evaluated := make([]recordFieldValue, 0, len(fields))
	for index, field := range fields {
		value := emitElementExpr(field.value, b, "record field")
		value = ensureBoxedPointer(value, b, "record field")
		instrs = append(instrs, value.instrs...)
		instrs = append(instrs, Comment(fmt.Sprintf("record field %d -> %s", index, field.key)))
		evaluated = append(evaluated, recordFieldValue{key: field.key, operand: value.operand, sourceIndex: index})
	}

	sort.SliceStable(evaluated, func(i, j int) bool {
		if evaluated[i].key != evaluated[j].key {
			return evaluated[i].key < evaluated[j].key
		}
		return evaluated[i].sourceIndex < evaluated[j].sourceIndex
	})

	instrs = append(instrs, Comment("record literal -> reml_record_from"))
	args := []Arg{{Ty: "i64", Value: strconv.Itoa(len(evaluated))}}
	for index, field := range evaluated {
		instrs = append(instrs, Comment(fmt.Sprintf("record slot %d = %s", index, field.key)))
		args = append(args, Arg{Ty: b.pointerType(), Value: field.operand})
	}

	result := b.newTmp("record")
	instrs = append(instrs, Call{Result: result, RetTy: b.pointerType(), Callee: intrinsicRecordFrom, Args: args})
	return emittedValue{ty: b.pointerType(), operand: result, instrs: instrs}
}

func emitSetLiteralValue(elements []json.RawMessage, b *builder) emittedValue {
	instrs := []Instr{Comment("set literal -> reml_set_new")}
	setOperand := b.newTmp("set")
	instrs = append(instrs, Call{Result: setOperand, RetTy: b.pointerType(), Callee: intrinsicSetNew})
	for index, element := range elements {
		value := emitElementExpr(element, b, "set element")
		instrs = append(instrs, value.instrs...)
		instrs = append(instrs, Comment(fmt.Sprintf("set element %d", index)))
		inserted := b.newTmp("set")
		instrs = append(instrs, Call{Result: inserted, RetTy: b.pointerType(), Callee: intrinsicSetInsert,
			Args: []Arg{{Ty: b.pointerType(), Value: setOperand}, {Ty: value.ty, Value: value.operand}}})
		setOperand = inserted
	}
	return emittedValue{ty: b.pointerType(), operand: setOperand, instrs: instrs}
}

// emitElementExpr lowers one aggregate element, which is either a nested
// literal or an identifier reference.
func emitElementExpr(element json.RawMessage, b *builder, context string) emittedValue {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(element, &obj); err == nil {
		var kind string
		if rawKind, ok := obj["kind"]; ok {
			_ = json.Unmarshal(rawKind, &kind)
		}
		switch kind {
		case "literal":
			if inner, ok := obj["value"]; ok {
				if value, ok := emitLiteralValueFromJSON(inner, b); ok {
					return value
				}
			}
		case "identifier":
			name := ""
			if rawIdent, ok := obj["ident"]; ok {
				name = extractIdentName(rawIdent)
			}
			if name != "" {
				if binding, ok := b.resolveLocal(name); ok {
					result := b.newTmp("load")
					return emittedValue{
						ty:      binding.ty,
						operand: result,
						instrs:  []Instr{Load{Result: result, Ty: binding.ty, Ptr: binding.ptr}},
					}
				}
				return emittedValue{
					ty:      b.pointerType(),
					operand: "%" + SanitizeIdent(name),
					instrs:  []Instr{Comment(fmt.Sprintf("%s ident %s -> unresolved", context, name))},
				}
			}
		}
	}
	return emittedValue{
		ty:      b.pointerType(),
		operand: "null",
		instrs:  []Instr{Comment(context + " unsupported -> null")},
	}
}

func emitLiteralValueFromJSON(raw json.RawMessage, b *builder) (emittedValue, bool) {
	lit := parseLiteralValue(raw)
	switch lit.kind {
	case litUnit:
		return emitUnitValue(b), true
	case litBool:
		operand := "false"
		if lit.boolVal {
			operand = "true"
		}
		return emittedValue{ty: b.boolType(), operand: operand}, true
	case litInt:
		return emittedValue{ty: "i64", operand: strconv.FormatInt(lit.intVal, 10)}, true
	case litString:
		return emittedValue{ty: "Str", operand: `"` + strings.ReplaceAll(lit.strVal, `"`, `\"`) + `"`}, true
	case litFloat:
		return emitFloatLiteralValue(lit.raw, b), true
	case litChar:
		return emitCharLiteralValue(lit.raw, b), true
	case litTuple:
		return emitUnsupportedLiteralValue(b, "tuple", fmt.Sprintf("len=%d", len(lit.elements))), true
	case litArray:
		return emitArrayLiteralValue(lit.elements, "", b), true
	case litSet:
		return emitUnsupportedLiteralValue(b, "set", fmt.Sprintf("len=%d", len(lit.elements))), true
	case litRecord:
		return emitRecordLiteralValue(lit.fields, lit.typeName, b), true
	}
	detail := ""
	if lit.raw != "" {
		detail = "kind=" + lit.raw
	}
	return emitUnsupportedLiteralValue(b, "unknown", detail), true
}

// ensureBoxedPointer wraps a non-pointer value in the matching boxing
// intrinsic whenever an aggregate slot demands pointer type.
func ensureBoxedPointer(value emittedValue, b *builder, context string) emittedValue {
	if value.ty == b.pointerType() {
		return value
	}
	instrs := value.instrs
	var callee, argTy string
	switch value.ty {
	case "i64":
		callee, argTy = intrinsicBoxI64, "i64"
	case b.boolType():
		callee, argTy = intrinsicBoxBool, b.boolType()
	case "Str":
		callee, argTy = intrinsicBoxString, "Str"
	default:
		instrs = append(instrs, Comment(fmt.Sprintf("%s unsupported type %s -> null", context, value.ty)))
		return emittedValue{ty: b.pointerType(), operand: "null", instrs: instrs}
	}
	instrs = append(instrs, Comment(fmt.Sprintf("%s boxing -> %s", context, callee)))
	result := b.newTmp("box")
	instrs = append(instrs, Call{Result: result, RetTy: b.pointerType(), Callee: callee,
		Args: []Arg{{Ty: argTy, Value: value.operand}}})
	return emittedValue{ty: b.pointerType(), operand: result, instrs: instrs}
}

func emitUnsupportedLiteralValue(b *builder, kind, detail string) emittedValue {
	message := "diag backend.literal.unsupported." + kind
	if detail != "" {
		message += ": " + detail
	}
	return emittedValue{ty: b.pointerType(), operand: "null", instrs: []Instr{Comment(message)}}
}
