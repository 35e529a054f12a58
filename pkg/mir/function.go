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
	"encoding/json"
	"fmt"
	"strings"
)

// Type is a surface-level type token the type mapper resolves to an LLVM
// layout ("I64", "Bool", "Ptr", "Str", ...). The lowerer treats unknown
// tokens as pointers.
type Type string

const (
	TypeUnit Type = "Unit"
	TypeBool Type = "Bool"
	TypeI32  Type = "I32"
	TypeI64  Type = "I64"
	TypeF64  Type = "F64"
	TypeStr  Type = "Str"
	TypePtr  Type = "Ptr"
)

// FfiCallSignature describes one foreign call the function makes; the
// lowerer forwards these to the FFI stub planner.
type FfiCallSignature struct {
	Symbol string `json:"symbol"`
	Params []Type `json:"params,omitempty"`
	Return *Type  `json:"return,omitempty"`
	ABI    string `json:"abi,omitempty"`
}

// Function is a minimal MIR function: parameters, return, attributes,
// calling convention, the expression pool, the entry expression id, FFI
// call signatures, and any match-plan hints the typechecker attached.
type Function struct {
	Name        string             `json:"name"`
	Params      []Type             `json:"params,omitempty"`
	Return      *Type              `json:"return,omitempty"`
	CallingConv string             `json:"calling_conv"`
	Attributes  []string           `json:"attributes,omitempty"`
	FfiCalls    []FfiCallSignature `json:"ffi_calls,omitempty"`
	MatchPlans  []string           `json:"match_plans,omitempty"`
	Exprs       []Expr             `json:"exprs,omitempty"`
	Body        *ExprID            `json:"body,omitempty"`
}

// NewFunction starts a function with a name and calling convention.
func NewFunction(name, callingConv string) *Function {
	return &Function{Name: name, CallingConv: callingConv}
}

// WithParam appends a parameter type.
func (f *Function) WithParam(ty Type) *Function {
	f.Params = append(f.Params, ty)
	return f
}

// WithReturn sets the return type.
func (f *Function) WithReturn(ty Type) *Function {
	f.Return = &ty
	return f
}

// WithAttribute appends an attribute string.
func (f *Function) WithAttribute(attr string) *Function {
	f.Attributes = append(f.Attributes, attr)
	return f
}

// WithExprs installs the expression pool and the entry expression id.
func (f *Function) WithExprs(body ExprID, exprs []Expr) *Function {
	f.Body = &body
	f.Exprs = exprs
	return f
}

// ExprMap indexes the pool by id for O(1) resolution during lowering.
func (f *Function) ExprMap() map[ExprID]*Expr {
	m := make(map[ExprID]*Expr, len(f.Exprs))
	for i := range f.Exprs {
		m[f.Exprs[i].ID] = &f.Exprs[i]
	}
	return m
}

// Describe renders a one-line summary of the signature.
func (f *Function) Describe() string {
	params := make([]string, len(f.Params))
	for i, ty := range f.Params {
		params[i] = fmt.Sprintf("arg%d:%s", i, ty)
	}
	ret := "void"
	if f.Return != nil {
		ret = string(*f.Return)
	}
	return fmt.Sprintf("fn %s(%s) -> %s [%s]", f.Name, strings.Join(params, ", "), ret, f.CallingConv)
}

// DecodeFunction parses the JSON interchange form a front-end emits.
func DecodeFunction(data []byte) (*Function, error) {
	var f Function
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("mir: decode function: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that expression ids are unique and, when the pool is
// non-empty, that the body id resolves within it. It does not check that
// ids are dense or that ids referenced from other expressions resolve.
func (f *Function) Validate() error {
	seen := make(map[ExprID]bool, len(f.Exprs))
	for i := range f.Exprs {
		id := f.Exprs[i].ID
		if seen[id] {
			return fmt.Errorf("mir: duplicate expr id %d in %s", id, f.Name)
		}
		seen[id] = true
	}
	if f.Body != nil && len(f.Exprs) > 0 && !seen[*f.Body] {
		return fmt.Errorf("mir: body id %d does not resolve in %s", *f.Body, f.Name)
	}
	return nil
}
