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
package diagnostic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFillsEnvelope(t *testing.T) {
	d := New("parser.syntax.error", "parser", "unexpected token", SeverityError)
	assert.Equal(t, SchemaVersion, d.SchemaVersion)
	assert.False(t, d.Timestamp.IsZero())
	assert.Equal(t, "unexpected token", d.Primary)
	assert.NotNil(t, d.Notes)
	assert.NotNil(t, d.FixIts)
	assert.Equal(t, Fatal, d.Recoverability)
}

func TestEnvelopeJSONShape(t *testing.T) {
	d := New("parser.lexer.bidi", "parser", "bidi control", SeverityError).
		WithExtension("unicode", map[string]any{"kind": "bidi", "position": 4}).
		WithNote("remove the control character")
	d.FixIts = append(d.FixIts, InsertToken(";"))

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"schema_version", "timestamp", "message", "severity", "domain",
		"code", "primary", "notes", "secondary", "hints", "fixits", "recoverability", "extensions"} {
		assert.Contains(t, decoded, key)
	}
	extensions := decoded["extensions"].(map[string]any)
	assert.Contains(t, extensions, "unicode")
}

func TestExitRank(t *testing.T) {
	assert.Equal(t, 0, ExitRank(nil))
	assert.Equal(t, 1, ExitRank([]Diagnostic{New("c", "d", "m", SeverityInfo)}))
	assert.Equal(t, 2, ExitRank([]Diagnostic{
		New("c", "d", "m", SeverityInfo),
		New("c", "d", "m", SeverityWarning),
	}))
	assert.Equal(t, 3, ExitRank([]Diagnostic{
		New("c", "d", "m", SeverityWarning),
		New("c", "d", "m", SeverityError),
	}))
}

func TestMarshalLines(t *testing.T) {
	out, err := MarshalLines([]Diagnostic{
		New("a", "d", "one", SeverityInfo),
		New("b", "d", "two", SeverityInfo),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(out))
}

func countLines(data []byte) int {
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}
