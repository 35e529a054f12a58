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
// Package lower walks MIR functions and produces labelled basic blocks of
// a textual LLVM-flavoured linear IR: match and pattern lowering, the
// early-exit shapes (panic, propagate), defer-LIFO cleanup on every exit
// path, and phi reconciliation at join points. The lowerer never fails —
// where it cannot proceed it emits an annotation comment and keeps going;
// downstream validation is the consumer's problem.
package lower

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Emitted runtime intrinsics. These are the boundary to the real LLVM
// IR / runtime bridge a backend would supply.
const (
	intrinsicValueI64    = "@reml_value_i64"
	intrinsicValueBool   = "@reml_value_bool"
	intrinsicValuePtr    = "@reml_value_ptr"
	intrinsicValueStr    = "@reml_value_str"
	intrinsicMatchCheck  = "@reml_match_check"
	intrinsicRegexMatch  = "@reml_regex_match"
	intrinsicFieldAccess = "@reml_field_access"
	intrinsicIndexAccess = "@reml_index_access"
	intrinsicSetNew      = "@reml_set_new"
	intrinsicSetInsert   = "@reml_set_insert"
	intrinsicArrayFrom   = "@reml_array_from"
	intrinsicRecordFrom  = "@reml_record_from"
	intrinsicBoxI64      = "@reml_box_i64"
	intrinsicBoxBool     = "@reml_box_bool"
	intrinsicBoxString   = "@reml_box_string"
	intrinsicBoxFloat    = "@reml_box_float"
	intrinsicBoxChar     = "@reml_box_char"
	intrinsicCall        = "@reml_call"
	intrinsicStrConcat   = "@reml_str_concat"
	intrinsicStrData     = "@reml_str_data"
	intrinsicIfElse      = "@reml_if_else"
	intrinsicPerform     = "@reml_perform"
	intrinsicPanic       = "@panic"
)

// SanitizeIdent rewrites an arbitrary string into a valid LLVM identifier:
// non-alphanumeric, non-underscore characters become _uXXXX escapes,
// leading digits get an underscore prefix, and an empty result becomes
// _u0000. Idempotent.
func SanitizeIdent(source string) string {
	var buf strings.Builder
	for _, ch := range source {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_' {
			buf.WriteRune(ch)
		} else if ch <= 0xFFFF {
			fmt.Fprintf(&buf, "_u%04X", ch)
		} else {
			fmt.Fprintf(&buf, "_u%06X", ch)
		}
	}
	out := buf.String()
	if out == "" {
		return "_u0000"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

// SanitizeSymbol sanitizes an identifier while keeping its leading @ or %
// sigil.
func SanitizeSymbol(name string) string {
	if rest, ok := strings.CutPrefix(name, "@"); ok {
		return "@" + SanitizeIdent(rest)
	}
	if rest, ok := strings.CutPrefix(name, "%"); ok {
		return "%" + SanitizeIdent(rest)
	}
	return SanitizeIdent(name)
}

func intrinsicIsCtor(name string) string {
	return "@reml_is_ctor_" + SanitizeIdent(name)
}

func intrinsicCtorPayload(name string) string {
	return "@reml_ctor_payload_" + SanitizeIdent(name)
}

func lambdaStubSymbol(exprID int, hasCaptures bool) string {
	suffix := "nocapture"
	if hasCaptures {
		suffix = "capture"
	}
	return SanitizeSymbol(fmt.Sprintf("@reml_lambda_%s_%d", suffix, exprID))
}

func intrinsicValueForType(ty string, b *builder) string {
	switch ty {
	case "i64":
		return intrinsicValueI64
	case b.boolType():
		return intrinsicValueBool
	case b.pointerType():
		return intrinsicValuePtr
	case "Str":
		return intrinsicValueStr
	}
	return intrinsicValuePtr
}

// escapeLLVMString hex-encodes backslashes, quotes, and ASCII control
// characters for use inside an IR string literal.
func escapeLLVMString(value string) string {
	var buf strings.Builder
	for _, ch := range value {
		switch ch {
		case '\\':
			buf.WriteString(`\5C`)
		case '"':
			buf.WriteString(`\22`)
		case '\n':
			buf.WriteString(`\0A`)
		case '\r':
			buf.WriteString(`\0D`)
		case '\t':
			buf.WriteString(`\09`)
		default:
			if ch < 0x20 || ch == 0x7F {
				fmt.Fprintf(&buf, `\%02X`, ch)
			} else {
				buf.WriteRune(ch)
			}
		}
	}
	return buf.String()
}

func normalizeTemplate(template string) string {
	return strings.ReplaceAll(strings.ReplaceAll(template, "\r\n", "\n"), "\r", "\n")
}

// hashTemplate fingerprints a template for audit output; normalization
// makes the hash line-ending independent.
func hashTemplate(template string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(normalizeTemplate(template)))
	return fmt.Sprintf("%016x", h.Sum64())
}

func buildInlineAsmConstraintList(outputs []asmOutput, inputs []asmInput, clobbers []string) []string {
	constraints := make([]string, 0, len(outputs)+len(inputs)+len(clobbers))
	for _, out := range outputs {
		constraints = append(constraints, out.constraint)
	}
	for _, in := range inputs {
		constraints = append(constraints, in.constraint)
	}
	for _, clobber := range clobbers {
		constraints = append(constraints, "~{"+clobber+"}")
	}
	return constraints
}

type asmOutput struct {
	constraint string
	target     int
}

type asmInput struct {
	constraint string
	expr       int
}

func parseInlineAsmOptions(options []string) (sideeffect, alignstack bool) {
	for _, option := range options {
		switch strings.ToLower(strings.TrimSpace(option)) {
		case "volatile", "sideeffect":
			sideeffect = true
		case "alignstack", "align_stack":
			alignstack = true
		}
	}
	return sideeffect, alignstack
}

// collectInvalidPlaceholders finds $N placeholders whose index is out of
// range of the input list.
func collectInvalidPlaceholders(template string, inputLen int) []int {
	var invalid []int
	runes := []rune(template)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '$' {
			continue
		}
		j := i + 1
		for j < len(runes) && runes[j] >= '0' && runes[j] <= '9' {
			j++
		}
		if j > i+1 {
			var index int
			fmt.Sscanf(string(runes[i+1:j]), "%d", &index)
			if index >= inputLen {
				invalid = append(invalid, index)
			}
			i = j - 1
		}
	}
	return invalid
}

// findLastAssignedSSA returns the last %name assigned with '=' in the
// template, or "".
func findLastAssignedSSA(template string) string {
	last := ""
	for _, line := range strings.Split(template, "\n") {
		eq := strings.Index(line, "=")
		if eq < 0 {
			continue
		}
		if name := extractSSAName(line[:eq]); name != "" {
			last = name
		}
	}
	return last
}

func extractSSAName(text string) string {
	trimmed := strings.TrimLeft(text, " \t")
	rest, ok := strings.CutPrefix(trimmed, "%")
	if !ok {
		return ""
	}
	end := 0
	for end < len(rest) && isLLVMIdentByte(rest[end]) {
		end++
	}
	if end == 0 {
		return ""
	}
	return "%" + rest[:end]
}

func isLLVMIdentByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_' || b == '.'
}

// renameSSANames prefixes every %name in the template with a unique
// prefix, consistently: the same source name maps to the same renamed
// name throughout the template.
func renameSSANames(template, prefix string) string {
	var out strings.Builder
	mapping := make(map[string]string)
	data := template
	for i := 0; i < len(data); i++ {
		if data[i] != '%' {
			out.WriteByte(data[i])
			continue
		}
		j := i + 1
		for j < len(data) && isLLVMIdentByte(data[j]) {
			j++
		}
		if j == i+1 {
			out.WriteByte('%')
			continue
		}
		ident := data[i+1 : j]
		mapped, ok := mapping[ident]
		if !ok {
			mapped = "%" + prefix + SanitizeIdent(ident)
			mapping[ident] = mapped
		}
		out.WriteString(mapped)
		i = j - 1
	}
	return out.String()
}

// replacePlaceholders substitutes $N by the corresponding input operand;
// out-of-range placeholders become undef and are reported.
func replacePlaceholders(template string, inputs []string) (string, []int) {
	var invalid []int
	var out strings.Builder
	data := template
	for i := 0; i < len(data); i++ {
		if data[i] != '$' {
			out.WriteByte(data[i])
			continue
		}
		j := i + 1
		for j < len(data) && data[j] >= '0' && data[j] <= '9' {
			j++
		}
		if j == i+1 {
			out.WriteByte('$')
			continue
		}
		var index int
		fmt.Sscanf(data[i+1:j], "%d", &index)
		if index < len(inputs) {
			out.WriteString(inputs[index])
		} else {
			invalid = append(invalid, index)
			out.WriteString("undef")
		}
		i = j - 1
	}
	return out.String(), invalid
}
