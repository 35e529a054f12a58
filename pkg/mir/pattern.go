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

// PatternKind discriminates Pattern payloads.
type PatternKind string

const (
	PatWildcard    PatternKind = "wildcard"
	PatVar         PatternKind = "var"
	PatLiteral     PatternKind = "literal"
	PatTuple       PatternKind = "tuple"
	PatRecord      PatternKind = "record"
	PatConstructor PatternKind = "constructor"
	PatBinding     PatternKind = "binding"
	PatOr          PatternKind = "or"
	PatSlice       PatternKind = "slice"
	PatRange       PatternKind = "range"
	PatRegex       PatternKind = "regex"
	PatActive      PatternKind = "active"
)

// Pattern is one node of a match pattern tree.
type Pattern struct {
	Kind PatternKind `json:"kind"`

	// var / binding / constructor
	Name string `json:"name,omitempty"`

	// literal / regex
	Summary string `json:"summary,omitempty"`
	Regex   string `json:"regex,omitempty"`

	// tuple / or
	Elements []Pattern `json:"elements,omitempty"`
	Variants []Pattern `json:"variants,omitempty"`

	// record
	Fields  []RecordField `json:"fields,omitempty"`
	HasRest bool          `json:"has_rest,omitempty"`

	// constructor
	Args []Pattern `json:"args,omitempty"`

	// binding
	Pattern *Pattern `json:"pattern,omitempty"`
	ViaAt   bool     `json:"via_at,omitempty"`

	// slice
	Slice *SlicePattern `json:"slice,omitempty"`

	// range
	Start     *Pattern `json:"start,omitempty"`
	End       *Pattern `json:"end,omitempty"`
	Inclusive bool     `json:"inclusive,omitempty"`

	// active
	Active *ActiveCall `json:"active,omitempty"`
}

// RecordField is one key of a record pattern. A nil Value binds the field
// under its own key name.
type RecordField struct {
	Key   string   `json:"key"`
	Value *Pattern `json:"value,omitempty"`
}

// SlicePattern matches head elements, an optional named rest, and tail
// elements.
type SlicePattern struct {
	Head []Pattern  `json:"head,omitempty"`
	Rest *SliceRest `json:"rest,omitempty"`
	Tail []Pattern  `json:"tail,omitempty"`
}

// SliceRest is the optional middle binding of a slice pattern.
type SliceRest struct {
	Binding string `json:"binding,omitempty"`
}

// ActiveKind classifies an active-pattern call.
type ActiveKind string

const (
	ActivePartial ActiveKind = "partial"
	ActiveTotal   ActiveKind = "total"
	ActiveUnknown ActiveKind = "unknown"
)

// ActiveCall invokes a user-defined active pattern against the target.
type ActiveCall struct {
	Name         string     `json:"name"`
	Kind         ActiveKind `json:"active_kind"`
	Argument     *Pattern   `json:"argument,omitempty"`
	InputBinding string     `json:"input_binding,omitempty"`
	MissNextArm  bool       `json:"miss_next_arm,omitempty"`
}

// BindingNames collects the names a pattern binds, in source order.
func (p *Pattern) BindingNames() []string {
	var names []string
	collectBindingNames(p, &names)
	return names
}

func collectBindingNames(p *Pattern, names *[]string) {
	if p == nil {
		return
	}
	switch p.Kind {
	case PatVar:
		*names = append(*names, p.Name)
	case PatBinding:
		*names = append(*names, p.Name)
		collectBindingNames(p.Pattern, names)
	case PatTuple:
		for i := range p.Elements {
			collectBindingNames(&p.Elements[i], names)
		}
	case PatRecord:
		for i := range p.Fields {
			if p.Fields[i].Value != nil {
				collectBindingNames(p.Fields[i].Value, names)
			} else {
				*names = append(*names, p.Fields[i].Key)
			}
		}
	case PatConstructor:
		for i := range p.Args {
			collectBindingNames(&p.Args[i], names)
		}
	case PatOr:
		for i := range p.Variants {
			collectBindingNames(&p.Variants[i], names)
		}
	case PatSlice:
		if p.Slice == nil {
			return
		}
		for i := range p.Slice.Head {
			collectBindingNames(&p.Slice.Head[i], names)
		}
		if p.Slice.Rest != nil && p.Slice.Rest.Binding != "" {
			*names = append(*names, p.Slice.Rest.Binding)
		}
		for i := range p.Slice.Tail {
			collectBindingNames(&p.Slice.Tail[i], names)
		}
	case PatRange:
		collectBindingNames(p.Start, names)
		collectBindingNames(p.End, names)
	case PatActive:
		if p.Active == nil {
			return
		}
		if p.Active.InputBinding != "" {
			*names = append(*names, p.Active.InputBinding)
		}
		collectBindingNames(p.Active.Argument, names)
	}
}
