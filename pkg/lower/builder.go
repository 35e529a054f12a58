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
package lower

import (
	"fmt"

	"github.com/teradata-labs/remlc/pkg/mir"
)

// TypeLayout is the resolved layout of a surface type: size, alignment,
// and the LLVM type token used in the emitted text.
type TypeLayout struct {
	Size        int
	Align       int
	Description string
}

// TypeMapping resolves surface type tokens to layouts. The table is fixed;
// unknown tokens resolve to the pointer layout.
type TypeMapping struct{}

// LayoutOf resolves ty.
func (TypeMapping) LayoutOf(ty mir.Type) TypeLayout {
	switch ty {
	case mir.TypeUnit:
		return TypeLayout{Size: 0, Align: 1, Description: "void"}
	case mir.TypeBool:
		return TypeLayout{Size: 1, Align: 1, Description: "i1"}
	case mir.TypeI32:
		return TypeLayout{Size: 4, Align: 4, Description: "i32"}
	case mir.TypeI64:
		return TypeLayout{Size: 8, Align: 8, Description: "i64"}
	case mir.TypeF64:
		return TypeLayout{Size: 8, Align: 8, Description: "double"}
	case mir.TypeStr:
		return TypeLayout{Size: 16, Align: 8, Description: "Str"}
	default:
		return TypeLayout{Size: 8, Align: 8, Description: "ptr"}
	}
}

// localBinding is one resolved name: the slot pointer and the slot type.
type localBinding struct {
	ptr string
	ty  string
}

// builder owns the per-function SSA temp counter and the block-scoped
// name map stack. Counter-generated names are monotonic within one
// function, so two lowerings of the same function produce byte-identical
// IR.
type builder struct {
	types   TypeMapping
	counter int
	scopes  []map[string]localBinding
}

func newBuilder(types TypeMapping) *builder {
	return &builder{types: types, scopes: []map[string]localBinding{{}}}
}

func (b *builder) newTmp(hint string) string {
	b.counter++
	return fmt.Sprintf("%%%s%d", SanitizeIdent(hint), b.counter)
}

func (b *builder) boolType() string {
	return b.types.LayoutOf(mir.TypeBool).Description
}

func (b *builder) pointerType() string {
	return b.types.LayoutOf(mir.TypePtr).Description
}

func (b *builder) pushScope() {
	b.scopes = append(b.scopes, map[string]localBinding{})
}

func (b *builder) popScope() {
	if len(b.scopes) > 1 {
		b.scopes = b.scopes[:len(b.scopes)-1]
	}
}

func (b *builder) bindLocal(name string, binding localBinding) {
	b.scopes[len(b.scopes)-1][name] = binding
}

func (b *builder) resolveLocal(name string) (localBinding, bool) {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if binding, ok := b.scopes[i][name]; ok {
			return binding, true
		}
	}
	return localBinding{}, false
}
