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
package mir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFunction(t *testing.T) {
	data := []byte(`{
		"name": "f",
		"calling_conv": "fast",
		"params": ["Ptr"],
		"return": "I64",
		"exprs": [
			{"id": 0, "kind": "identifier", "summary": "x"},
			{"id": 1, "kind": "literal", "summary": "1"}
		],
		"body": 0
	}`)
	fn, err := DecodeFunction(data)
	require.NoError(t, err)
	assert.Equal(t, "f", fn.Name)
	require.NotNil(t, fn.Return)
	assert.Equal(t, TypeI64, *fn.Return)
	assert.Len(t, fn.Exprs, 2)
	assert.Equal(t, "fn f(arg0:Ptr) -> I64 [fast]", fn.Describe())
}

func TestDecodeFunctionRejectsDuplicateIDs(t *testing.T) {
	data := []byte(`{
		"name": "dup",
		"calling_conv": "fast",
		"exprs": [
			{"id": 0, "kind": "literal", "summary": "1"},
			{"id": 0, "kind": "literal", "summary": "2"}
		],
		"body": 0
	}`)
	_, err := DecodeFunction(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate expr id")
}

func TestDecodeFunctionRejectsDanglingBody(t *testing.T) {
	data := []byte(`{
		"name": "dangling",
		"calling_conv": "fast",
		"exprs": [{"id": 0, "kind": "literal", "summary": "1"}],
		"body": 9
	}`)
	_, err := DecodeFunction(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not resolve")
}

func TestPatternBindingNames(t *testing.T) {
	pattern := Pattern{Kind: PatTuple, Elements: []Pattern{
		{Kind: PatVar, Name: "a"},
		{Kind: PatBinding, Name: "whole", Pattern: &Pattern{Kind: PatVar, Name: "inner"}},
		{Kind: PatRecord, Fields: []RecordField{
			{Key: "x"},
			{Key: "y", Value: &Pattern{Kind: PatVar, Name: "why"}},
		}},
		{Kind: PatSlice, Slice: &SlicePattern{
			Head: []Pattern{{Kind: PatVar, Name: "h"}},
			Rest: &SliceRest{Binding: "mid"},
			Tail: []Pattern{{Kind: PatWildcard}},
		}},
	}}
	assert.Equal(t, []string{"a", "whole", "inner", "x", "why", "h", "mid"}, pattern.BindingNames())
}

func TestExprMapIndexesPool(t *testing.T) {
	fn := NewFunction("m", "fast")
	fn.Exprs = []Expr{
		{ID: 3, Kind: ExprLiteral, Summary: "1"},
		{ID: 7, Kind: ExprIdentifier, Summary: "x"},
	}
	pool := fn.ExprMap()
	require.Len(t, pool, 2)
	assert.Equal(t, ExprIdentifier, pool[7].Kind)
}
