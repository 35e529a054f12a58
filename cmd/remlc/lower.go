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
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/spf13/cobra"

	"github.com/teradata-labs/remlc/pkg/lower"
	"github.com/teradata-labs/remlc/pkg/mir"
)

var (
	lowerSyntax bool
	lowerPlans  bool
	lowerTriple string
)

var lowerCmd = &cobra.Command{
	Use:   "lower <mir.json>",
	Short: "Lower a JSON-encoded MIR function to textual linear IR",
	Args:  cobra.ExactArgs(1),
	RunE:  runLower,
}

func init() {
	lowerCmd.Flags().BoolVar(&lowerSyntax, "syntax", false, "Colorize the IR for terminal output")
	lowerCmd.Flags().BoolVar(&lowerPlans, "plans", false, "Print the branch-plan summaries instead of the IR")
	lowerCmd.Flags().StringVar(&lowerTriple, "triple", "x86_64-unknown-linux-gnu", "Target triple recorded in the module")
}

// llvmLexer is a minimal LLVM-flavoured lexer definition for chroma.
var llvmLexer = chroma.MustNewLexer(
	&chroma.Config{
		Name:      "reml-ir",
		Aliases:   []string{"reml-ir"},
		Filenames: []string{"*.ir"},
	},
	func() chroma.Rules {
		return chroma.Rules{
			"root": {
				{Pattern: `;.*`, Type: chroma.Comment, Mutator: nil},
				{Pattern: `"(\\.|[^"])*"`, Type: chroma.LiteralString, Mutator: nil},
				{Pattern: `\b(define|call|phi|alloca|load|store|icmp|and|or|add|sub|mul|sdiv|srem|br|ret|unreachable|label|asm|extractvalue|sideeffect|alignstack)\b`, Type: chroma.Keyword, Mutator: nil},
				{Pattern: `\b(ptr|i1|i32|i64|double|void|Str)\b`, Type: chroma.KeywordType, Mutator: nil},
				{Pattern: `[%@][\w.]+`, Type: chroma.NameVariable, Mutator: nil},
				{Pattern: `-?\d+`, Type: chroma.LiteralNumber, Mutator: nil},
				{Pattern: `[\w.]+:`, Type: chroma.NameLabel, Mutator: nil},
				{Pattern: `\s+`, Type: chroma.Whitespace, Mutator: nil},
				{Pattern: `.`, Type: chroma.Text, Mutator: nil},
			},
		}
	},
)

func runLower(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	fn, err := mir.DecodeFunction(data)
	if err != nil {
		return err
	}

	emitter := lower.NewEmitter(lower.TargetMachine{Triple: lowerTriple}, nil)
	generated := emitter.EmitFunction(fn)

	if lowerPlans {
		for _, plan := range generated.BranchPlans {
			fmt.Println(plan)
		}
		return nil
	}

	if lowerSyntax {
		return highlightIR(generated.IR)
	}
	fmt.Println(generated.IR)
	return nil
}

func highlightIR(ir string) error {
	iterator, err := llvmLexer.Tokenise(nil, ir)
	if err != nil {
		return err
	}
	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	return formatter.Format(os.Stdout, style, iterator)
}
