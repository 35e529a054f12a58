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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teradata-labs/remlc/internal/log"
	"github.com/teradata-labs/remlc/internal/version"
)

var (
	flagPackrat    bool
	flagRequireEOF bool
	flagRecover    bool
	flagJSONLog    bool
)

var rootCmd = &cobra.Command{
	Use:     "remlc",
	Short:   "remlc - compiler core toolkit: parse, lower, and inspect",
	Long:    `remlc drives the compiler core: the parser combinator engine, the MIR lowerer, and the capability registry. It parses source with the bundled expression grammar, lowers MIR functions to textual linear IR, diffs IR dumps, and inspects capabilities.`,
	Version: version.Get(),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagJSONLog {
			logger, err := zap.NewProduction()
			if err == nil {
				log.SetLogger(logger)
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagPackrat, "packrat", false, "Enable packrat memoization")
	rootCmd.PersistentFlags().BoolVar(&flagRequireEOF, "require-eof", false, "Fail on unconsumed trailing input")
	rootCmd.PersistentFlags().BoolVar(&flagRecover, "recover", false, "Enable collect-mode error recovery")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLog, "json-log", false, "Log as JSON instead of the development console format")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(lowerCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(capabilitiesCmd)
}

func main() {
	defer func() { _ = log.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
