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
	"encoding/json"
	"fmt"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/teradata-labs/remlc/internal/config"
	comb "github.com/teradata-labs/remlc/pkg/combinator"
	"github.com/teradata-labs/remlc/pkg/diagnostic"
)

var (
	parseShowCST  bool
	parseShowJSON bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a source file with the bundled expression grammar",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseShowCST, "cst", false, "Print the captured CST instead of the AST")
	parseCmd.Flags().BoolVar(&parseShowJSON, "json", false, "Print the AST as JSON")
}

var (
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleDim     = lipgloss.NewStyle().Faint(true)
)

func runParse(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	cfg := config.Load()
	cfg.Packrat = cfg.Packrat || flagPackrat
	cfg.RequireEOF = cfg.RequireEOF || flagRequireEOF

	grammar := buildGrammar()
	input := string(source)

	if parseShowCST {
		result := comb.RunWithCST(grammar, input, cfg)
		printDiagnostics(comb.ToDiagnostics(result.Diagnostics))
		if result.Value == nil {
			return diagnosticsError(result.Diagnostics)
		}
		for _, token := range result.Value.CST.Tokens {
			fmt.Printf("%s %q @ %d:%d\n", token.Kind, token.Text, token.Span.Start.Line, token.Span.Start.Column)
			for _, trivia := range token.Trailing {
				fmt.Printf("  %s\n", styleDim.Render(fmt.Sprintf("trivia(%s) %q", trivia.Kind, trivia.Text)))
			}
		}
		return nil
	}

	var result comb.ParseResult[*exprNode]
	if flagRecover {
		result = comb.RunWithRecoveryConfig(grammar, input, cfg)
	} else {
		result = comb.Run(grammar, input, cfg)
	}
	printDiagnostics(comb.ToDiagnostics(result.Diagnostics))
	if result.Value == nil {
		return diagnosticsError(result.Diagnostics)
	}
	if parseShowJSON {
		encoded, err := json.MarshalIndent(*result.Value, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}
	fmt.Println(renderAST(*result.Value, 0))
	if result.Profile != nil {
		fmt.Println(styleDim.Render(fmt.Sprintf("packrat hits=%d misses=%d backtracks=%d recoveries=%d",
			result.Profile.PackratHits, result.Profile.PackratMisses,
			result.Profile.Backtracks, result.Profile.Recoveries)))
	}
	return nil
}

// printDiagnostics renders the envelope list with severity-colored
// headers.
func printDiagnostics(diags []diagnostic.Diagnostic) {
	for _, d := range diags {
		style := styleInfo
		switch d.Severity {
		case diagnostic.SeverityError:
			style = styleError
		case diagnostic.SeverityWarning:
			style = styleWarning
		}
		location := ""
		if d.Location != nil {
			location = fmt.Sprintf(" @ %d:%d", d.Location.Start.Line, d.Location.Start.Column)
		}
		fmt.Fprintf(os.Stderr, "%s %s%s\n", style.Render(fmt.Sprintf("[%s] %s", d.Severity, d.Code)), d.Message, location)
		for _, note := range d.Notes {
			fmt.Fprintf(os.Stderr, "  %s\n", styleDim.Render("note: "+note.Message))
		}
		if recoverExt, ok := d.Extensions["recover"].(map[string]any); ok {
			fmt.Fprintf(os.Stderr, "  %s\n", styleDim.Render(fmt.Sprintf("recover: %v", recoverExt)))
		}
	}
}

// diagnosticsError folds the diagnostic list into one Go error at the CLI
// boundary, where a process exit code has to be decided.
func diagnosticsError(diags []*comb.ParseError) error {
	var combined error
	for _, d := range diags {
		combined = multierr.Append(combined, d)
	}
	if combined == nil {
		combined = fmt.Errorf("parse failed")
	}
	return combined
}
