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
package combinator

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/teradata-labs/remlc/internal/log"
)

// ParseResult is what a runner hands back: the value and span on success,
// the diagnostic list (primary error first when the parse failed), the
// recovered flag, the mirrored legacy error when legacy_result is set,
// and the profile when observation was on.
type ParseResult[T any] struct {
	Value       *T
	Span        *Span
	Diagnostics []*ParseError
	Recovered   bool
	LegacyError *ParseError
	Profile     *Profile
}

func resultFromValue[T any](value T, span Span) ParseResult[T] {
	return ParseResult[T]{Value: &value, Span: &span}
}

func resultFromError[T any](err *ParseError, legacy bool) ParseResult[T] {
	out := ParseResult[T]{Diagnostics: []*ParseError{err}}
	if legacy {
		out.LegacyError = err
	}
	return out
}

// Run executes parser over input under cfg. Post-run, require_eof turns a
// leftover suffix into a synthetic "unconsumed input" error, and a set
// profile_output path gets the profile written as JSON.
func Run[T any](parser Parser[T], input string, cfg RunConfig) ParseResult[T] {
	state := NewParseState(input, cfg)
	return runWithState(parser, state, cfg)
}

// RunShared is Run for callers that already hold the source in shared
// form; Go strings share their backing storage, so this is an alias kept
// for API parity with the checkpointing runner surface.
func RunShared[T any](parser Parser[T], input string, cfg RunConfig) ParseResult[T] {
	return Run(parser, input, cfg)
}

// RunWithCST executes parser with CST capture forced on, returning both
// the AST value and the assembled CST.
func RunWithCST[T any](parser Parser[T], input string, cfg RunConfig) ParseResult[CSTOutput[T]] {
	cstCfg := enableCSTConfig(cfg)
	state := NewParseState(input, cstCfg)
	reply := parser.Parse(state)
	var result ParseResult[CSTOutput[T]]
	if reply.OK {
		state.input = reply.Rest
		if cstCfg.RequireEOF && !state.input.IsEmpty() {
			err := NewParseError("unconsumed input remains", state.input.Pos())
			result = resultFromError[CSTOutput[T]](err, cstCfg.LegacyResult)
		} else {
			cst, _ := state.TakeCST()
			result = resultFromValue(CSTOutput[T]{AST: reply.Value, CST: cst}, reply.Span)
		}
	} else {
		result = resultFromError[CSTOutput[T]](reply.Err, cstCfg.LegacyResult)
	}
	finishRun(state, &result.Diagnostics, &result.Recovered, &result.Profile)
	return result
}

// RunWithDefault is Run under DefaultRunConfig.
func RunWithDefault[T any](parser Parser[T], input string) ParseResult[T] {
	return Run(parser, input, DefaultRunConfig())
}

// RunWithRecovery forces collect-mode recovery with ";" as the default
// sync token.
func RunWithRecovery[T any](parser Parser[T], input string) ParseResult[T] {
	return RunWithRecoveryConfig(parser, input, DefaultRunConfig())
}

// RunWithRecoveryConfig enables collect-mode recovery on top of cfg,
// supplying sync_tokens=[";"] only when the caller set none.
func RunWithRecoveryConfig[T any](parser Parser[T], input string, cfg RunConfig) ParseResult[T] {
	patched := cfg.WithExtension("recover", func(ext map[string]any) map[string]any {
		ext["mode"] = "collect"
		if _, ok := ext["sync_tokens"]; !ok {
			ext["sync_tokens"] = []string{";"}
		}
		return ext
	})
	return Run(parser, input, patched)
}

func runWithState[T any](parser Parser[T], state *ParseState, cfg RunConfig) ParseResult[T] {
	reply := parser.Parse(state)
	var result ParseResult[T]
	if reply.OK {
		state.input = reply.Rest
		if cfg.RequireEOF && !state.input.IsEmpty() {
			err := NewParseError("unconsumed input remains", state.input.Pos())
			result = resultFromError[T](err, cfg.LegacyResult)
		} else {
			result = resultFromValue(reply.Value, reply.Span)
		}
	} else {
		result = resultFromError[T](reply.Err, cfg.LegacyResult)
	}
	finishRun(state, &result.Diagnostics, &result.Recovered, &result.Profile)
	return result
}

func finishRun(state *ParseState, diagnostics *[]*ParseError, recovered *bool, profile **Profile) {
	if collected := state.TakeDiagnostics(); len(collected) > 0 {
		*diagnostics = append(*diagnostics, collected...)
	}
	*recovered = *recovered || state.recovered
	if p, output, ok := state.takeProfile(); ok {
		p.Stream = state.cfg.extension("stream")
		if output != "" {
			if err := writeProfileReport(p, output); err != nil {
				log.Warn("parse profile write failed", zap.String("path", output), zap.Error(err))
			}
		}
		*profile = &p
	}
}

func writeProfileReport(profile Profile, path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	body, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o644)
}
