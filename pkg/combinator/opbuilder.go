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

// Fixity names one operator bucket of a precedence level.
type Fixity string

const (
	FixityPrefix        Fixity = "prefix"
	FixityPostfix       Fixity = "postfix"
	FixityInfixLeft     Fixity = "infix_left"
	FixityInfixRight    Fixity = "infix_right"
	FixityInfixNonassoc Fixity = "infix_nonassoc"
	FixityTernary       Fixity = "ternary"
)

// UnaryOp and BinaryOp are the value transformers operator parsers yield.
type (
	UnaryOp[T any]  = func(T) T
	BinaryOp[T any] = func(T, T) T
)

// TernaryOp is a cond-head-mid chain (the ?: shape).
type TernaryOp[T any] struct {
	Head  Parser[Unit]
	Mid   Parser[Unit]
	Build func(T, T, T) T
}

// OpLevel is one precedence level: each fixity bucket holds the operator
// parsers that bind at this level.
type OpLevel[T any] struct {
	Prefix  []Parser[UnaryOp[T]]
	Postfix []Parser[UnaryOp[T]]
	InfixL  []Parser[BinaryOp[T]]
	InfixR  []Parser[BinaryOp[T]]
	InfixN  []Parser[BinaryOp[T]]
	Ternary []TernaryOp[T]
}

func (l OpLevel[T]) withSpace(space *Parser[Unit]) OpLevel[T] {
	if space == nil {
		return l
	}
	applyUnary := func(ops []Parser[UnaryOp[T]]) []Parser[UnaryOp[T]] {
		out := make([]Parser[UnaryOp[T]], len(ops))
		for i, p := range ops {
			out[i] = p.WithSpace(*space)
		}
		return out
	}
	applyBinary := func(ops []Parser[BinaryOp[T]]) []Parser[BinaryOp[T]] {
		out := make([]Parser[BinaryOp[T]], len(ops))
		for i, p := range ops {
			out[i] = p.WithSpace(*space)
		}
		return out
	}
	out := OpLevel[T]{
		Prefix:  applyUnary(l.Prefix),
		Postfix: applyUnary(l.Postfix),
		InfixL:  applyBinary(l.InfixL),
		InfixR:  applyBinary(l.InfixR),
		InfixN:  applyBinary(l.InfixN),
	}
	for _, op := range l.Ternary {
		out.Ternary = append(out.Ternary, TernaryOp[T]{
			Head:  op.Head.WithSpace(*space),
			Mid:   op.Mid.WithSpace(*space),
			Build: op.Build,
		})
	}
	return out
}

// splitByFixity breaks the level into one single-fixity part per occupied
// bucket, preserving per-level operator grouping within each bucket.
func (l OpLevel[T]) splitByFixity() []fixityPart[T] {
	var parts []fixityPart[T]
	if len(l.Prefix) > 0 {
		parts = append(parts, fixityPart[T]{fixity: FixityPrefix, level: OpLevel[T]{Prefix: l.Prefix}})
	}
	if len(l.Postfix) > 0 {
		parts = append(parts, fixityPart[T]{fixity: FixityPostfix, level: OpLevel[T]{Postfix: l.Postfix}})
	}
	if len(l.InfixL) > 0 {
		parts = append(parts, fixityPart[T]{fixity: FixityInfixLeft, level: OpLevel[T]{InfixL: l.InfixL}})
	}
	if len(l.InfixR) > 0 {
		parts = append(parts, fixityPart[T]{fixity: FixityInfixRight, level: OpLevel[T]{InfixR: l.InfixR}})
	}
	if len(l.InfixN) > 0 {
		parts = append(parts, fixityPart[T]{fixity: FixityInfixNonassoc, level: OpLevel[T]{InfixN: l.InfixN}})
	}
	if len(l.Ternary) > 0 {
		parts = append(parts, fixityPart[T]{fixity: FixityTernary, level: OpLevel[T]{Ternary: l.Ternary}})
	}
	return parts
}

type fixityPart[T any] struct {
	fixity Fixity
	level  OpLevel[T]
}

// ExprCommit is the builder's commit style.
type ExprCommit int

const (
	// PreserveCommit leaves operator parsers' commit behaviour alone.
	PreserveCommit ExprCommit = iota
	// CommitOperators ratchets after each matched operator so partial
	// applications surface precise errors.
	CommitOperators
)

// ExprBuilderConfig configures the precedence builder.
type ExprBuilderConfig struct {
	Space        *Parser[Unit]
	OperandLabel string
	CommitStyle  ExprCommit
}

type operatorTableOverride struct {
	fixities        []Fixity
	commitOperators *bool
}

func decodeOperatorTableOverride(cfg *RunConfig) *operatorTableOverride {
	ext := cfg.extension("parse")
	if ext == nil {
		return nil
	}
	rawLevels, ok := ext["operator_table"].([]any)
	if !ok {
		return nil
	}
	out := &operatorTableOverride{}
	for _, rawLevel := range rawLevels {
		level, ok := rawLevel.(map[string]any)
		if !ok {
			continue
		}
		label, ok := level["fixity"].(string)
		if !ok {
			continue
		}
		switch label {
		case ":prefix", "prefix":
			out.fixities = append(out.fixities, FixityPrefix)
		case ":postfix", "postfix":
			out.fixities = append(out.fixities, FixityPostfix)
		case ":infix_left", "infixl", "infix_left":
			out.fixities = append(out.fixities, FixityInfixLeft)
		case ":infix_right", "infixr", "infix_right":
			out.fixities = append(out.fixities, FixityInfixRight)
		case ":infix_nonassoc", "infixn", "infix_nonassoc":
			out.fixities = append(out.fixities, FixityInfixNonassoc)
		case ":ternary", "ternary":
			out.fixities = append(out.fixities, FixityTernary)
		}
	}
	if v, ok := extBool(ext, "commit_operators"); ok {
		out.commitOperators = &v
	} else if v, ok := extBool(ext, "commitOperators"); ok {
		out.commitOperators = &v
	}
	return out
}

// reorderLevels buckets every level's fixity parts, then re-zips them in
// the override's order; leftover parts follow in their bucket order.
func reorderLevels[T any](levels []OpLevel[T], override []Fixity) []OpLevel[T] {
	buckets := make(map[Fixity][]OpLevel[T])
	var bucketOrder []Fixity
	for _, level := range levels {
		for _, part := range level.splitByFixity() {
			if _, seen := buckets[part.fixity]; !seen {
				bucketOrder = append(bucketOrder, part.fixity)
			}
			buckets[part.fixity] = append(buckets[part.fixity], part.level)
		}
	}
	var reordered []OpLevel[T]
	for _, fixity := range override {
		if queue := buckets[fixity]; len(queue) > 0 {
			reordered = append(reordered, queue[0])
			buckets[fixity] = queue[1:]
		}
	}
	for _, fixity := range bucketOrder {
		for _, level := range buckets[fixity] {
			reordered = append(reordered, level)
		}
	}
	return reordered
}

func choiceOps[T any](ops []Parser[T]) (Parser[T], bool) {
	switch len(ops) {
	case 0:
		var zero Parser[T]
		return zero, false
	case 1:
		return ops[0], true
	default:
		return Choice(ops...), true
	}
}

func applyPrefixPostfix[T any](term Parser[T], prefix, postfix []Parser[UnaryOp[T]]) Parser[T] {
	prefixChoice, hasPrefix := choiceOps(prefix)
	postfixChoice, hasPostfix := choiceOps(postfix)
	if !hasPrefix && !hasPostfix {
		return term
	}
	prefixMany := OK([]UnaryOp[T](nil))
	if hasPrefix {
		prefixMany = prefixChoice.Many()
	}
	postfixMany := OK([]UnaryOp[T](nil))
	if hasPostfix {
		postfixMany = postfixChoice.Many()
	}
	return Bind(prefixMany, func(pres []UnaryOp[T]) Parser[T] {
		return Bind(term, func(core T) Parser[T] {
			return Map(postfixMany, func(posts []UnaryOp[T]) T {
				acc := core
				for i := len(pres) - 1; i >= 0; i-- {
					acc = pres[i](acc)
				}
				for _, f := range posts {
					acc = f(acc)
				}
				return acc
			})
		})
	})
}

func infixNonassoc[T any](term Parser[T], op Parser[BinaryOp[T]]) Parser[T] {
	return Bind(term, func(lhs T) Parser[T] {
		applied := Bind(op, func(f BinaryOp[T]) Parser[T] {
			return Map(term, func(rhs T) T { return f(lhs, rhs) })
		})
		return applied.Or(OK(lhs))
	})
}

func applyTernary[T any](term Parser[T], ops []TernaryOp[T]) Parser[T] {
	return Bind(term, func(cond T) Parser[T] {
		var applied Parser[T]
		haveApplied := false
		for _, op := range ops {
			op := op
			branch := Bind(op.Head, func(Unit) Parser[T] {
				return Bind(term, func(thenVal T) Parser[T] {
					return Bind(op.Mid, func(Unit) Parser[T] {
						return Map(term, func(elseVal T) T {
							return op.Build(cond, thenVal, elseVal)
						})
					})
				})
			})
			if !haveApplied {
				applied = branch
				haveApplied = true
			} else {
				applied = applied.Or(branch)
			}
		}
		if !haveApplied {
			return OK(cond)
		}
		return applied.Or(OK(cond))
	})
}

func commitUnary[T any](ops []Parser[UnaryOp[T]]) []Parser[UnaryOp[T]] {
	out := make([]Parser[UnaryOp[T]], len(ops))
	for i, p := range ops {
		out[i] = Map(Then(p, CutHere()), func(pair Pair[UnaryOp[T], Unit]) UnaryOp[T] { return pair.First })
	}
	return out
}

func commitBinary[T any](ops []Parser[BinaryOp[T]]) []Parser[BinaryOp[T]] {
	out := make([]Parser[BinaryOp[T]], len(ops))
	for i, p := range ops {
		out[i] = Map(Then(p, CutHere()), func(pair Pair[BinaryOp[T], Unit]) BinaryOp[T] { return pair.First })
	}
	return out
}

func buildLevel[T any](term Parser[T], level OpLevel[T], commit ExprCommit) Parser[T] {
	prefix := level.Prefix
	postfix := level.Postfix
	infixL := level.InfixL
	infixR := level.InfixR
	infixN := level.InfixN
	if commit == CommitOperators {
		prefix = commitUnary(prefix)
		postfix = commitUnary(postfix)
		infixL = commitBinary(infixL)
		infixR = commitBinary(infixR)
		infixN = commitBinary(infixN)
	}

	term = applyPrefixPostfix(term, prefix, postfix)
	if len(level.Ternary) > 0 {
		term = applyTernary(term, level.Ternary)
	}
	if op, ok := choiceOps(infixL); ok {
		return term.Chainl1(op)
	}
	if op, ok := choiceOps(infixR); ok {
		return term.Chainr1(op)
	}
	if op, ok := choiceOps(infixN); ok {
		return infixNonassoc(term, op)
	}
	return term
}

// ExprBuilder compiles an atom parser and an ordered precedence-level list
// into an expression parser. The builder closes over the run-config
// snapshot at parse time: extensions.parse.operator_table reorders the
// fixity buckets, extensions.parse.commit_operators overrides the commit
// style. A fresh parser chain is assembled per call.
func ExprBuilder[T any](atom Parser[T], levels []OpLevel[T], config ExprBuilderConfig) Parser[T] {
	return NewParser(func(state *ParseState) Reply[T] {
		override := decodeOperatorTableOverride(&state.cfg)
		commitStyle := config.CommitStyle
		if override != nil && override.commitOperators != nil {
			if *override.commitOperators {
				commitStyle = CommitOperators
			} else {
				commitStyle = PreserveCommit
			}
		}

		space := config.Space
		if space == nil {
			space = state.space
		}
		baseAtom := atom
		if space != nil {
			baseAtom = atom.WithSpace(*space)
		}

		effective := levels
		if override != nil {
			effective = reorderLevels(levels, override.fixities)
		}

		parser := baseAtom
		for _, level := range effective {
			parser = buildLevel(parser, level.withSpace(space), commitStyle)
		}
		return parser.Parse(state)
	})
}
