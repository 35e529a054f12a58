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
	"strconv"
	"strings"

	comb "github.com/teradata-labs/remlc/pkg/combinator"
)

// AST of the bundled expression language: integer arithmetic with
// let-bindings, enough surface to drive the combinator engine end to end
// from the CLI.
type exprNode struct {
	Kind  string      `json:"kind"` // "int", "ident", "binary", "neg", "let"
	Value int64       `json:"value,omitempty"`
	Name  string      `json:"name,omitempty"`
	Op    string      `json:"op,omitempty"`
	Left  *exprNode   `json:"left,omitempty"`
	Right *exprNode   `json:"right,omitempty"`
	Body  *exprNode   `json:"body,omitempty"`
	Binds []*exprNode `json:"binds,omitempty"`
}

func intNode(v int64) *exprNode    { return &exprNode{Kind: "int", Value: v} }
func identNode(n string) *exprNode { return &exprNode{Kind: "ident", Name: n} }
func binNode(op string) func(*exprNode, *exprNode) *exprNode {
	return func(l, r *exprNode) *exprNode {
		return &exprNode{Kind: "binary", Op: op, Left: l, Right: r}
	}
}

// buildGrammar assembles the expression grammar: atoms are integers,
// identifiers, and parenthesised expressions; precedence levels come from
// the operator builder so extensions.parse.operator_table applies; the
// statement level is semicolon-separated let-bindings with recovery
// points on ";".
func buildGrammar() comb.Parser[*exprNode] {
	space := spaceParser()

	number := comb.Token("number", comb.NewParser(func(state *comb.ParseState) comb.Reply[*exprNode] {
		start := state.Input()
		remaining := start.Remaining()
		end := 0
		for end < len(remaining) && remaining[end] >= '0' && remaining[end] <= '9' {
			end++
		}
		if end == 0 {
			return failAt[*exprNode](state, "expected number", "number")
		}
		value, err := strconv.ParseInt(remaining[:end], 10, 64)
		if err != nil {
			return failAt[*exprNode](state, "number out of range", "number")
		}
		rest := start.Advance(end)
		state.SetInput(rest)
		return okAt(intNode(value), start, rest)
	}))

	identifier := comb.Token("identifier", comb.NewParser(func(state *comb.ParseState) comb.Reply[*exprNode] {
		start := state.Input()
		remaining := start.Remaining()
		if remaining == "" {
			return failAt[*exprNode](state, "expected identifier", "identifier")
		}
		end := identifierEnd(remaining)
		if end == 0 {
			return failAt[*exprNode](state, "expected identifier", "identifier")
		}
		name := remaining[:end]
		if name == "let" || name == "in" {
			return failAt[*exprNode](state, "keyword is not an identifier", "identifier")
		}
		rest := start.Advance(end)
		state.SetInput(rest)
		return okAt(identNode(name), start, rest)
	}))

	var expr comb.Parser[*exprNode]
	exprRef := comb.Lazy(func() comb.Parser[*exprNode] { return expr })

	parens := comb.Between(comb.Symbol(&space, "("), exprRef, comb.Symbol(&space, ")"))
	atom := comb.Lexeme(&space, comb.Choice(number, identifier)).Or(parens)

	neg := comb.Map(comb.Symbol(&space, "-"), func(comb.Unit) comb.UnaryOp[*exprNode] {
		return func(operand *exprNode) *exprNode {
			return &exprNode{Kind: "neg", Left: operand}
		}
	})
	mul := comb.Map(comb.Symbol(&space, "*"), func(comb.Unit) comb.BinaryOp[*exprNode] { return binNode("*") })
	div := comb.Map(comb.Symbol(&space, "/"), func(comb.Unit) comb.BinaryOp[*exprNode] { return binNode("/") })
	add := comb.Map(comb.Symbol(&space, "+"), func(comb.Unit) comb.BinaryOp[*exprNode] { return binNode("+") })
	sub := comb.Map(comb.Symbol(&space, "-"), func(comb.Unit) comb.BinaryOp[*exprNode] { return binNode("-") })

	levels := []comb.OpLevel[*exprNode]{
		{Prefix: []comb.Parser[comb.UnaryOp[*exprNode]]{neg}},
		{InfixL: []comb.Parser[comb.BinaryOp[*exprNode]]{mul, div}},
		{InfixL: []comb.Parser[comb.BinaryOp[*exprNode]]{add, sub}},
	}
	expr = comb.Rule("expr", comb.ExprBuilder(atom, levels, comb.ExprBuilderConfig{Space: &space}))

	letBinding := comb.Map(
		comb.Then(
			comb.Then(
				comb.SkipL(comb.Keyword(&space, "let"), comb.Lexeme(&space, identifier)),
				comb.SkipL(comb.Symbol(&space, "="), exprRef),
			),
			comb.Symbol(&space, ";"),
		),
		func(pair comb.Pair[comb.Pair[*exprNode, *exprNode], comb.Unit]) *exprNode {
			return &exprNode{Kind: "let", Name: pair.First.First.Name, Body: pair.First.Second}
		},
	)
	// a failed binding resynchronizes on ";" and continues with a default
	recoverable := letBinding.Recover(comb.Symbol(&space, ";"), &exprNode{Kind: "let", Name: "_", Body: intNode(0)})

	program := comb.Map(
		comb.Then(recoverable.Many(), exprRef.Opt()),
		func(pair comb.Pair[[]*exprNode, comb.Option[*exprNode]]) *exprNode {
			root := &exprNode{Kind: "let", Name: "", Binds: pair.First}
			if pair.Second.Set {
				root.Body = pair.Second.Value
			}
			if len(pair.First) == 0 && pair.Second.Set {
				return pair.Second.Value
			}
			return root
		},
	)
	return comb.Rule("program", comb.SkipL(space, program))
}

func spaceParser() comb.Parser[comb.Unit] {
	return comb.NewParser(func(state *comb.ParseState) comb.Reply[comb.Unit] {
		start := state.Input()
		end := 0
		remaining := start.Remaining()
		for end < len(remaining) {
			switch remaining[end] {
			case ' ', '\t', '\n', '\r':
				end++
			default:
				goto done
			}
		}
	done:
		if end == 0 {
			return okAt(comb.Unit{}, start, start)
		}
		rest := start.Advance(end)
		state.SetInput(rest)
		return okAt(comb.Unit{}, start, rest)
	})
}

func identifierEnd(remaining string) int {
	end := 0
	for i, ch := range remaining {
		if i == 0 {
			if !(ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')) {
				return 0
			}
			end = i + len(string(ch))
			continue
		}
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_' {
			end = i + len(string(ch))
			continue
		}
		break
	}
	return end
}

func okAt[T any](value T, start, rest comb.Input) comb.Reply[T] {
	return comb.Reply[T]{
		OK:       true,
		Value:    value,
		Span:     start.SpanTo(rest),
		Consumed: rest.ByteOffset() > start.ByteOffset(),
		Rest:     rest,
	}
}

func failAt[T any](state *comb.ParseState, message, expected string) comb.Reply[T] {
	err := comb.NewParseError(message, state.Input().Pos()).WithExpected(expected)
	return comb.Reply[T]{Err: err}
}

func renderAST(node *exprNode, indent int) string {
	if node == nil {
		return ""
	}
	pad := strings.Repeat("  ", indent)
	switch node.Kind {
	case "int":
		return pad + strconv.FormatInt(node.Value, 10)
	case "ident":
		return pad + node.Name
	case "neg":
		return pad + "neg\n" + renderAST(node.Left, indent+1)
	case "binary":
		return pad + node.Op + "\n" + renderAST(node.Left, indent+1) + "\n" + renderAST(node.Right, indent+1)
	case "let":
		var sb strings.Builder
		sb.WriteString(pad + "let")
		if node.Name != "" {
			sb.WriteString(" " + node.Name)
		}
		for _, bind := range node.Binds {
			sb.WriteString("\n" + renderAST(bind, indent+1))
		}
		if node.Body != nil {
			sb.WriteString("\n" + renderAST(node.Body, indent+1))
		}
		return sb.String()
	}
	return pad + node.Kind
}
