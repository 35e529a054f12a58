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

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <a.ir> <b.ir>",
	Short: "Line-diff two rendered IR dumps",
	Long:  `diff compares two IR dumps line by line. Lowering is deterministic, so two dumps of the same MIR function are identical; a non-empty diff means the MIR changed.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	left, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	right, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[1], err)
	}

	dmp := diffmatchpatch.New()
	leftLines, rightLines, lineArray := dmp.DiffLinesToChars(string(left), string(right))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(leftLines, rightLines, false), lineArray)

	identical := true
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			identical = false
			fmt.Print(styleError.Render("- " + d.Text))
		case diffmatchpatch.DiffInsert:
			identical = false
			fmt.Print(styleInfo.Render("+ " + d.Text))
		}
	}
	if identical {
		fmt.Println("identical")
		return nil
	}
	os.Exit(1)
	return nil
}
