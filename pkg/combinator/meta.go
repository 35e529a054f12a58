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

// ParserMetaKind classifies a metadata entry.
type ParserMetaKind string

const (
	MetaRule    ParserMetaKind = "rule"
	MetaSymbol  ParserMetaKind = "symbol"
	MetaKeyword ParserMetaKind = "keyword"
	MetaToken   ParserMetaKind = "token"
)

// ParserMeta is one registered parser's metadata: kind, display name,
// optional token kind, doc comment, and rule children discovered during
// the parse.
type ParserMeta struct {
	ID        ParserID
	Kind      ParserMetaKind
	Name      string
	TokenKind string
	Doc       string
	Children  []ParserID
}

// ParseMetaRegistry accumulates parser metadata during a run, for tooling
// (grammar introspection, railroad diagrams, LSP hovers).
type ParseMetaRegistry struct {
	entries map[ParserID]*ParserMeta
	order   []ParserID
}

func newParseMetaRegistry() ParseMetaRegistry {
	return ParseMetaRegistry{entries: make(map[ParserID]*ParserMeta)}
}

func (r *ParseMetaRegistry) register(id ParserID, kind ParserMetaKind, name, tokenKind string) {
	if _, exists := r.entries[id]; exists {
		return
	}
	r.entries[id] = &ParserMeta{ID: id, Kind: kind, Name: name, TokenKind: tokenKind}
	r.order = append(r.order, id)
}

func (r *ParseMetaRegistry) updateDoc(id ParserID, doc string) {
	if entry, ok := r.entries[id]; ok {
		entry.Doc = doc
	}
}

func (r *ParseMetaRegistry) addChild(parent, child ParserID) {
	entry, ok := r.entries[parent]
	if !ok {
		return
	}
	for _, existing := range entry.Children {
		if existing == child {
			return
		}
	}
	entry.Children = append(entry.Children, child)
}

// Get returns the entry for id, or nil.
func (r *ParseMetaRegistry) Get(id ParserID) *ParserMeta {
	return r.entries[id]
}

// All returns the entries in registration order.
func (r *ParseMetaRegistry) All() []*ParserMeta {
	out := make([]*ParserMeta, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}

// ObservedToken is a semantic token recorded during the parse, in source
// order.
type ObservedToken struct {
	Kind string
	Span Span
}
