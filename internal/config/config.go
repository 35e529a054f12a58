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
// Package config loads the run configuration the parser engine consumes,
// layered in priority order: explicit overrides > environment variables
// prefixed REMLC_ > a .remlc.yaml project file > built-in defaults.
package config

import (
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/teradata-labs/remlc/pkg/combinator"
)

var (
	globalViper     *viper.Viper
	globalViperOnce sync.Once
)

// newViper builds the layered loader. Separate from Load so tests can
// construct scoped instances.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(".remlc")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("REMLC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("packrat", false)
	v.SetDefault("left_recursion", "off")
	v.SetDefault("require_eof", false)
	v.SetDefault("legacy_result", false)
	v.SetDefault("trace", false)
	v.SetDefault("profile", false)
	return v
}

func getViper() *viper.Viper {
	globalViperOnce.Do(func() {
		globalViper = newViper()
		_ = globalViper.ReadInConfig()
	})
	return globalViper
}

// Load assembles the RunConfig from the layered sources.
func Load() combinator.RunConfig {
	return FromViper(getViper())
}

// FromViper decodes a RunConfig from an already-configured viper
// instance.
func FromViper(v *viper.Viper) combinator.RunConfig {
	cfg := combinator.RunConfig{
		Packrat:       v.GetBool("packrat"),
		LeftRecursion: parseLeftRecursion(v.GetString("left_recursion")),
		RequireEOF:    v.GetBool("require_eof"),
		LegacyResult:  v.GetBool("legacy_result"),
		Trace:         v.GetBool("trace"),
		Profile:       v.GetBool("profile"),
	}
	if raw := v.GetStringMap("extensions"); len(raw) > 0 {
		cfg.Extensions = make(map[string]map[string]any, len(raw))
		for ns, value := range raw {
			if sub, ok := value.(map[string]any); ok {
				cfg.Extensions[ns] = sub
			}
		}
	}
	return cfg
}

func parseLeftRecursion(raw string) combinator.LeftRecursionStrategy {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on":
		return combinator.LeftRecursionOn
	case "auto":
		return combinator.LeftRecursionAuto
	default:
		return combinator.LeftRecursionOff
	}
}
