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

// memoKey keys the packrat table and the left-recursion guard set.
type memoKey struct {
	id     ParserID
	offset int
}

// Profile carries the observer counters collected during one parse.
type Profile struct {
	PackratHits            uint64 `json:"packrat_hits"`
	PackratMisses          uint64 `json:"packrat_misses"`
	Backtracks             uint64 `json:"backtracks"`
	Recoveries             uint64 `json:"recoveries"`
	LeftRecursionGuardHits uint64 `json:"left_recursion_guard_hits"`
	MemoEntries            int    `json:"memo_entries"`

	// Stream echoes the extensions.stream.* knobs the run was configured
	// with. The streaming runner is single-shot with observability hooks;
	// the knobs are carried here so offline analysis can see them.
	Stream map[string]any `json:"stream,omitempty"`
}

type observer struct {
	profile Profile
	enabled bool
	output  string
}

// ParseState is the sole mutable object during a parse. It is owned by the
// single parse call and never shared.
type ParseState struct {
	input Input
	cfg   RunConfig

	memo          map[memoKey]any
	activeParsers map[memoKey]struct{}

	obs         *observer
	diagnostics []*ParseError
	recovered   bool

	dslStack []string

	recoverCfg        recoverConfig
	recoveries        int
	recoverResyncByte int

	space         *Parser[Unit]
	layoutProfile *LayoutProfile
	layoutPending []string
	layoutStack   []int

	identProfile IdentifierProfile

	meta           ParseMetaRegistry
	metaRuleStack  []ParserID
	observedTokens []ObservedToken

	cst *cstBuilder
}

// NewParseState builds a fresh state over source with cfg's snapshot. The
// whitespace parser, layout profile, identifier profile, recovery budget,
// and observer are all decoded from the config here, once.
func NewParseState(source string, cfg RunConfig) *ParseState {
	return newStateWithInput(NewInput(source), cfg)
}

func newStateWithInput(input Input, cfg RunConfig) *ParseState {
	state := &ParseState{
		input:         input,
		cfg:           cfg,
		memo:          make(map[memoKey]any),
		activeParsers: make(map[memoKey]struct{}),
		recoverCfg:    decodeRecoverConfig(&cfg),
		identProfile:  identifierProfileFromConfig(&cfg),
		meta:          newParseMetaRegistry(),
	}
	state.space = decodeLexSpace(&cfg)
	state.layoutProfile = decodeLayoutProfile(&cfg)
	if state.layoutProfile != nil && state.layoutProfile.Offside {
		state.layoutStack = []int{0}
	}
	if pc := decodeProfileConfig(&cfg); pc.enabled {
		state.obs = &observer{enabled: true, output: pc.output}
	}
	if decodeCSTMode(&cfg) {
		state.cst = newCstBuilder(input.Pos())
	}
	return state
}

// Input returns the current cursor.
func (s *ParseState) Input() Input { return s.input }

// SetInput moves the cursor.
func (s *ParseState) SetInput(in Input) { s.input = in }

// Config returns the run-config snapshot.
func (s *ParseState) Config() RunConfig { return s.cfg }

// EnterDSL pushes an embedded-DSL id for diagnostic tagging.
func (s *ParseState) EnterDSL(id string) { s.dslStack = append(s.dslStack, id) }

// ExitDSL pops the DSL stack.
func (s *ParseState) ExitDSL() {
	if len(s.dslStack) > 0 {
		s.dslStack = s.dslStack[:len(s.dslStack)-1]
	}
}

// CurrentDSL returns the innermost DSL id, or "".
func (s *ParseState) CurrentDSL() string {
	if len(s.dslStack) == 0 {
		return ""
	}
	return s.dslStack[len(s.dslStack)-1]
}

// Space returns the ambient whitespace parser, or nil.
func (s *ParseState) Space() *Parser[Unit] { return s.space }

// SetSpace replaces the ambient whitespace parser.
func (s *ParseState) SetSpace(space *Parser[Unit]) { s.space = space }

// LayoutProfile returns the active layout profile, or nil.
func (s *ParseState) LayoutProfile() *LayoutProfile { return s.layoutProfile }

// SetLayoutProfile replaces the layout profile and resets the pending
// token queue and indent stack.
func (s *ParseState) SetLayoutProfile(profile *LayoutProfile) {
	s.layoutProfile = profile
	s.layoutPending = nil
	s.layoutStack = nil
	if profile != nil && profile.Offside {
		s.layoutStack = []int{0}
	}
}

func (s *ParseState) layoutActive() bool {
	return s.layoutProfile != nil && s.layoutProfile.Offside
}

// IdentifierProfile returns the active identifier profile.
func (s *ParseState) IdentifierProfile() IdentifierProfile { return s.identProfile }

// Meta returns the parser-metadata registry.
func (s *ParseState) Meta() *ParseMetaRegistry { return &s.meta }

// ObservedTokens returns the semantic tokens recorded so far.
func (s *ParseState) ObservedTokens() []ObservedToken { return s.observedTokens }

// PushDiagnostic appends error to the diagnostic buffer, tagging it with
// the innermost DSL id when it has none.
func (s *ParseState) PushDiagnostic(err *ParseError) {
	if err.SourceDSL == "" {
		err.SourceDSL = s.CurrentDSL()
	}
	s.diagnostics = append(s.diagnostics, err)
}

// TakeDiagnostics drains the diagnostic buffer.
func (s *ParseState) TakeDiagnostics() []*ParseError {
	out := s.diagnostics
	s.diagnostics = nil
	return out
}

func (s *ParseState) packratEnabled() bool { return s.cfg.Packrat }

func (s *ParseState) leftRecursionActive(key memoKey) bool {
	_, ok := s.activeParsers[key]
	return ok
}

func (s *ParseState) enterParser(key memoKey) { s.activeParsers[key] = struct{}{} }
func (s *ParseState) exitParser(key memoKey)  { delete(s.activeParsers, key) }

// memoGet replays a stored reply. A type mismatch under a reused ParserID
// is a programmer error: the same id must always produce the same T.
func memoGet[T any](s *ParseState, key memoKey) (Reply[T], bool) {
	raw, ok := s.memo[key]
	if !ok {
		return Reply[T]{}, false
	}
	reply, ok := raw.(Reply[T])
	if !ok {
		panic("combinator: memo entry type mismatch for reused ParserId")
	}
	return reply, true
}

func memoPut[T any](s *ParseState, key memoKey, reply Reply[T]) {
	s.memo[key] = reply
}

func (s *ParseState) recordPackratHit() {
	if s.obs != nil {
		s.obs.profile.PackratHits++
	}
}

func (s *ParseState) recordPackratMiss() {
	if s.obs != nil {
		s.obs.profile.PackratMisses++
	}
}

func (s *ParseState) recordBacktrack() {
	if s.obs != nil {
		s.obs.profile.Backtracks++
	}
}

func (s *ParseState) recordRecovery() {
	if s.obs != nil {
		s.obs.profile.Recoveries++
	}
}

func (s *ParseState) recordLeftRecursionGuard() {
	if s.obs != nil {
		s.obs.profile.LeftRecursionGuardHits++
	}
}

func (s *ParseState) takeProfile() (Profile, string, bool) {
	if s.obs == nil {
		return Profile{}, "", false
	}
	obs := s.obs
	s.obs = nil
	obs.profile.MemoEntries = len(s.memo)
	return obs.profile, obs.output, true
}

func (s *ParseState) recoverLimitsExceeded() bool {
	if s.recoverCfg.maxRecoveries >= 0 && s.recoveries >= s.recoverCfg.maxRecoveries {
		return true
	}
	if s.recoverCfg.maxResyncBytes >= 0 && s.recoverResyncByte >= s.recoverCfg.maxResyncBytes {
		return true
	}
	return false
}

// matchSyncToken reports which configured sync token the resynchronization
// consumed, falling back to the consumed text itself.
func (s *ParseState) matchSyncToken(start, end Input) string {
	consumed := sliceText(start, end)
	if len(s.recoverCfg.syncTokens) == 0 {
		return consumed
	}
	for _, token := range s.recoverCfg.syncTokens {
		if token == consumed {
			return consumed
		}
	}
	for _, token := range s.recoverCfg.syncTokens {
		if len(consumed) >= len(token) && consumed[:len(token)] == token {
			return token
		}
	}
	return consumed
}

func (s *ParseState) recordSemanticToken(kind string, span Span) {
	s.observedTokens = append(s.observedTokens, ObservedToken{Kind: kind, Span: span})
}

// CSTEnabled reports whether the state is capturing a CST.
func (s *ParseState) CSTEnabled() bool { return s.cst != nil }

// TakeCST detaches and finalizes the CST, or returns ok=false.
func (s *ParseState) TakeCST() (CSTNode, bool) {
	if s.cst == nil {
		return CSTNode{}, false
	}
	builder := s.cst
	s.cst = nil
	return builder.finish(s.input.Pos()), true
}

func (s *ParseState) recordCSTToken(kind, text string, span Span) {
	if s.cst != nil {
		s.cst.pushToken(CSTToken{Kind: kind, Text: text, Span: span})
	}
}

func (s *ParseState) recordCSTTrivia(kind TriviaKind, text string, span Span, trailing bool) {
	if s.cst != nil {
		s.cst.pushTrivia(Trivia{Kind: kind, Text: text, Span: span}, trailing)
	}
}
