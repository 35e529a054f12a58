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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	comb "github.com/teradata-labs/remlc/pkg/combinator"
)

func TestGrammarArithmetic(t *testing.T) {
	grammar := buildGrammar()
	result := comb.RunWithDefault(grammar, "1 + 2 * 3")
	require.NotNil(t, result.Value)
	ast := *result.Value
	require.Equal(t, "binary", ast.Kind)
	assert.Equal(t, "+", ast.Op, "multiplication binds tighter than addition")
	assert.Equal(t, "*", ast.Right.Op)
}

func TestGrammarPrefixNegation(t *testing.T) {
	grammar := buildGrammar()
	result := comb.RunWithDefault(grammar, "-1+2")
	require.NotNil(t, result.Value)
	ast := *result.Value
	require.Equal(t, "binary", ast.Kind)
	assert.Equal(t, "neg", ast.Left.Kind, "prefix negation applies before addition")
}

func TestGrammarLetBindings(t *testing.T) {
	grammar := buildGrammar()
	result := comb.RunWithDefault(grammar, "let x = 1; let y = 2; x + y")
	require.NotNil(t, result.Value)
	ast := *result.Value
	require.Equal(t, "let", ast.Kind)
	require.Len(t, ast.Binds, 2)
	assert.Equal(t, "x", ast.Binds[0].Name)
	assert.Equal(t, "y", ast.Binds[1].Name)
	require.NotNil(t, ast.Body)
	assert.Equal(t, "binary", ast.Body.Kind)
}

func TestGrammarRecoveryScenario(t *testing.T) {
	// spec scenario: "let x = ; let y = 1;" parses to two bindings with the
	// first replaced by the default, plus one skip diagnostic on ";".
	grammar := buildGrammar()
	result := comb.RunWithRecovery(grammar, "let x = ; let y = 1;")
	require.NotNil(t, result.Value)
	ast := *result.Value
	require.Equal(t, "let", ast.Kind)
	require.Len(t, ast.Binds, 2, "both bindings survive")
	assert.Equal(t, "_", ast.Binds[0].Name, "the failed binding took the default")
	assert.Equal(t, "y", ast.Binds[1].Name)
	assert.True(t, result.Recovered)

	require.NotEmpty(t, result.Diagnostics)
	diag := result.Diagnostics[0]
	require.NotNil(t, diag.Recover)
	assert.Equal(t, comb.RecoverSkip, diag.Recover.Action)
	assert.Equal(t, ";", diag.Recover.Sync)
}

func TestGrammarOperatorTableIdentity(t *testing.T) {
	grammar := buildGrammar()
	base := comb.RunWithDefault(grammar, "-1+2")
	require.NotNil(t, base.Value)

	cfg := comb.DefaultRunConfig().WithExtension("parse", func(ext map[string]any) map[string]any {
		ext["operator_table"] = []any{
			map[string]any{"fixity": "prefix"},
			map[string]any{"fixity": "infix_left"},
			map[string]any{"fixity": "infix_left"},
		}
		return ext
	})
	identity := comb.Run(grammar, "-1+2", cfg)
	require.NotNil(t, identity.Value)
	assert.Equal(t, renderAST(*base.Value, 0), renderAST(*identity.Value, 0), "identity reorder parses identically")
}

func TestGrammarPackratIdentical(t *testing.T) {
	grammar := buildGrammar()
	cfg := comb.DefaultRunConfig()
	cfg.Packrat = true
	first := comb.Run(grammar, "let a = 1; a * (2 + 3)", cfg)
	second := comb.Run(grammar, "let a = 1; a * (2 + 3)", cfg)
	require.NotNil(t, first.Value)
	require.NotNil(t, second.Value)
	assert.Equal(t, renderAST(*first.Value, 0), renderAST(*second.Value, 0))
	assert.Equal(t, len(first.Diagnostics), len(second.Diagnostics))
}
