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
)

// Instr is one linear-IR instruction. Render produces the textual form.
type Instr interface {
	Render() string
}

// Comment is an annotation line; the lowerer uses these both for plain
// commentary and for the "cannot proceed here" markers that replace
// hard failures.
type Comment string

func (c Comment) Render() string { return "; " + string(c) }

// Alloca reserves a stack slot.
type Alloca struct {
	Result string
	Ty     string
}

func (a Alloca) Render() string { return fmt.Sprintf("%s = alloca %s", a.Result, a.Ty) }

// Load reads through a slot pointer.
type Load struct {
	Result string
	Ty     string
	Ptr    string
}

func (l Load) Render() string { return fmt.Sprintf("%s = load %s, ptr %s", l.Result, l.Ty, l.Ptr) }

// Store writes through a slot pointer.
type Store struct {
	Ty    string
	Ptr   string
	Value string
}

func (s Store) Render() string { return fmt.Sprintf("store %s %s, ptr %s", s.Ty, s.Value, s.Ptr) }

// BinOp is an integer arithmetic instruction.
type BinOp struct {
	Result string
	Op     string
	Ty     string
	LHS    string
	RHS    string
}

func (b BinOp) Render() string {
	return fmt.Sprintf("%s = %s %s %s, %s", b.Result, b.Op, b.Ty, b.LHS, b.RHS)
}

// Icmp is an integer/pointer comparison.
type Icmp struct {
	Result string
	Pred   string
	Ty     string
	LHS    string
	RHS    string
}

func (i Icmp) Render() string {
	return fmt.Sprintf("%s = icmp %s %s %s, %s", i.Result, i.Pred, i.Ty, i.LHS, i.RHS)
}

// And is a boolean conjunction.
type And struct {
	Result string
	LHS    string
	RHS    string
}

func (a And) Render() string { return fmt.Sprintf("%s = and i1 %s, %s", a.Result, a.LHS, a.RHS) }

// Or is a boolean disjunction.
type Or struct {
	Result string
	LHS    string
	RHS    string
}

func (o Or) Render() string { return fmt.Sprintf("%s = or i1 %s, %s", o.Result, o.LHS, o.RHS) }

// Arg is a typed call operand.
type Arg struct {
	Ty    string
	Value string
}

// Call invokes a runtime intrinsic or user symbol.
type Call struct {
	Result string // empty for void calls
	RetTy  string
	Callee string
	Args   []Arg
}

func (c Call) Render() string {
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		args[i] = arg.Ty + " " + arg.Value
	}
	rendered := fmt.Sprintf("call %s %s(%s)", c.RetTy, c.Callee, strings.Join(args, ", "))
	if c.Result != "" {
		return c.Result + " = " + rendered
	}
	return rendered
}

// InlineAsm is the asm pseudo-instruction carrying the sanitized
// constraint string.
type InlineAsm struct {
	Result      string
	RetTy       string
	Template    string
	Constraints string
	Args        []Arg
	Sideeffect  bool
	Alignstack  bool
}

func (a InlineAsm) Render() string {
	args := make([]string, len(a.Args))
	for i, arg := range a.Args {
		args[i] = arg.Ty + " " + arg.Value
	}
	var flags []string
	if a.Sideeffect {
		flags = append(flags, "sideeffect")
	}
	if a.Alignstack {
		flags = append(flags, "alignstack")
	}
	flagText := ""
	if len(flags) > 0 {
		flagText = " " + strings.Join(flags, " ")
	}
	rendered := fmt.Sprintf("call %s asm%s \"%s\", \"%s\"(%s)",
		a.RetTy, flagText, escapeLLVMString(a.Template), escapeLLVMString(a.Constraints), strings.Join(args, ", "))
	if a.Result != "" {
		return a.Result + " = " + rendered
	}
	return rendered
}

// ExtractValue pulls one field from an aggregate return.
type ExtractValue struct {
	Result      string
	AggregateTy string
	Aggregate   string
	Index       int
}

func (e ExtractValue) Render() string {
	return fmt.Sprintf("%s = extractvalue %s %s, %d", e.Result, e.AggregateTy, e.Aggregate, e.Index)
}

// Raw carries verbatim IR text from an llvm_ir escape block.
type Raw string

func (r Raw) Render() string { return string(r) }

// PhiIncoming is one (value, predecessor-label) pair of a phi node.
type PhiIncoming struct {
	Value string
	Label string
}

// Phi reconciles values flowing from multiple predecessors.
type Phi struct {
	Result    string
	Ty        string
	Incomings []PhiIncoming
}

func (p Phi) Render() string {
	inputs := make([]string, len(p.Incomings))
	for i, in := range p.Incomings {
		inputs[i] = fmt.Sprintf("[ %s, %%%s ]", in.Value, in.Label)
	}
	return fmt.Sprintf("%s = phi %s %s", p.Result, p.Ty, strings.Join(inputs, ", "))
}

// Terminator ends a block.
type Terminator interface {
	RenderTerm() string
}

// Br is an unconditional branch.
type Br struct {
	Target string
}

func (b Br) RenderTerm() string { return "br label %" + b.Target }

// BrCond is a two-way conditional branch.
type BrCond struct {
	Cond string
	Then string
	Else string
}

func (b BrCond) RenderTerm() string {
	return fmt.Sprintf("br i1 %s, label %%%s, label %%%s", b.Cond, b.Then, b.Else)
}

// Ret returns, optionally with an operand.
type Ret struct {
	Value string // empty for ret void
}

func (r Ret) RenderTerm() string {
	if r.Value == "" {
		return "ret void"
	}
	return "ret " + r.Value
}

// Unreachable ends a diverging block.
type Unreachable struct{}

func (Unreachable) RenderTerm() string { return "unreachable" }

// IRBlock is one labelled block of the linear IR form.
type IRBlock struct {
	Label      string
	Instrs     []Instr
	Terminator Terminator
}

// Render lays out the block with two-space indented lines.
func (b IRBlock) Render() string {
	lines := make([]string, 0, len(b.Instrs)+2)
	lines = append(lines, b.Label+":")
	for _, instr := range b.Instrs {
		lines = append(lines, "  "+instr.Render())
	}
	lines = append(lines, "  "+b.Terminator.RenderTerm())
	return strings.Join(lines, "\n")
}

// IRFunction is the rendered function: sanitized name, parameter type
// list, return type, and block sequence.
type IRFunction struct {
	Name   string
	Params []string
	Ret    string
	Blocks []IRBlock
}

// Render produces the full textual IR of the function.
func (f IRFunction) Render() string {
	lines := make([]string, 0, len(f.Blocks)+2)
	lines = append(lines, fmt.Sprintf("define %s %s(%s) {", f.Ret, f.Name, strings.Join(f.Params, ", ")))
	for _, block := range f.Blocks {
		lines = append(lines, block.Render())
	}
	lines = append(lines, "}")
	return strings.Join(lines, "\n")
}

// Block is the high-level annotated form kept in parallel with IRBlock:
// same labels, human-oriented instruction summaries, textual terminator.
type Block struct {
	Label      string
	Instrs     []string
	Terminator string
}

// Render lays out the annotated block for debugging and branch-plan
// dumps.
func (b Block) Render() string {
	if len(b.Instrs) == 0 {
		return fmt.Sprintf("%s: %s", b.Label, renderAnnotatedTerminator(b.Terminator))
	}
	lines := make([]string, 0, len(b.Instrs)+1)
	for _, instr := range b.Instrs {
		lines = append(lines, renderAnnotatedInstr(instr))
	}
	lines = append(lines, renderAnnotatedTerminator(b.Terminator))
	return fmt.Sprintf("%s:\n  %s", b.Label, strings.Join(lines, "\n  "))
}

func renderAnnotatedInstr(instr string) string {
	if rest, ok := strings.CutPrefix(instr, "len("); ok {
		return "%tmp_len = call i64 @len(" + rest
	}
	if strings.Contains(instr, " = icmp_") {
		return instr + " : i1"
	}
	if strings.Contains(instr, " = and ") {
		return instr + " : i1"
	}
	if strings.Contains(instr, "option_is_some") {
		return strings.ReplaceAll(instr, "option_is_some", "icmp_ne ptr null")
	}
	if strings.Contains(instr, "slice_bind") {
		return "; " + instr
	}
	if strings.Contains(instr, "call active") {
		return strings.ReplaceAll(instr, "call active", "call %active")
	}
	return "; " + instr
}

func renderAnnotatedTerminator(term string) string {
	if rest, ok := strings.CutPrefix(term, "br_if "); ok {
		fields := strings.Fields(rest)
		cond, then, els := "cond", "then", "else"
		if len(fields) > 0 {
			cond = fields[0]
		}
		if len(fields) > 2 {
			then = fields[2]
		}
		if len(fields) > 4 {
			els = fields[4]
		}
		return fmt.Sprintf("br i1 %s, label %%%s, label %%%s", cond, then, els)
	}
	if rest, ok := strings.CutPrefix(term, "br "); ok {
		return "br label %" + rest
	}
	return term
}
