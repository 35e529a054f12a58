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
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/remlc/pkg/combinator"
)

func TestFromViperDefaults(t *testing.T) {
	cfg := FromViper(newViper())
	assert.False(t, cfg.Packrat)
	assert.Equal(t, combinator.LeftRecursionOff, cfg.LeftRecursion)
	assert.False(t, cfg.RequireEOF)
	assert.Nil(t, cfg.Extensions)
}

func TestFromViperOverrides(t *testing.T) {
	v := newViper()
	v.Set("packrat", true)
	v.Set("left_recursion", "auto")
	v.Set("require_eof", true)
	v.Set("extensions", map[string]any{
		"recover": map[string]any{
			"mode":        "collect",
			"sync_tokens": []string{";"},
		},
	})

	cfg := FromViper(v)
	assert.True(t, cfg.Packrat)
	assert.Equal(t, combinator.LeftRecursionAuto, cfg.LeftRecursion)
	assert.True(t, cfg.RequireEOF)
	require.Contains(t, cfg.Extensions, "recover")
	assert.Equal(t, "collect", cfg.Extensions["recover"]["mode"])
}

func TestParseLeftRecursion(t *testing.T) {
	assert.Equal(t, combinator.LeftRecursionOn, parseLeftRecursion("ON"))
	assert.Equal(t, combinator.LeftRecursionAuto, parseLeftRecursion(" auto "))
	assert.Equal(t, combinator.LeftRecursionOff, parseLeftRecursion("anything-else"))
}
