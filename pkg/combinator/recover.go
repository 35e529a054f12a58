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

// recoverWithPayload is the shared engine behind every recover flavour.
// On inner failure under collect mode it scans forward one grapheme at a
// time, at each step trying until non-destructively, until until succeeds
// with consumption; the failure is pushed as a diagnostic tagged with the
// recover metadata, and parsing resumes with the default value just after
// the sync point. Budget limits cap the scan.
func recoverWithPayload[T any](p Parser[T], until Parser[Unit], with T, meta RecoverMeta, fixit *FixIt) Parser[T] {
	return NewParser(func(state *ParseState) Reply[T] {
		start := state.input
		reply := p.Parse(state)
		if reply.OK {
			return reply
		}
		if state.recoverCfg.mode != recoverCollect {
			state.input = start
			return reply
		}

		state.input = start
		cursor := start
		for {
			state.input = cursor
			untilReply := until.Parse(state)
			if untilReply.OK {
				if !untilReply.Consumed {
					state.input = start
					return errReply[T](NewParseError("recover sync point succeeded without consuming", cursor.Pos()), false, false)
				}
				if state.recoverLimitsExceeded() {
					state.input = start
					return reply
				}
				if state.recoverCfg.maxDiagnostics >= 0 && len(state.diagnostics) >= state.recoverCfg.maxDiagnostics {
					state.input = start
					return reply
				}

				recoverMeta := meta
				recoverMeta.Sync = state.matchSyncToken(cursor, untilReply.Rest)
				diag := reply.Err.clone().WithRecover(recoverMeta)
				if fixit != nil {
					diag = diag.WithFixIt(*fixit)
				}
				if state.recoverCfg.notes && recoverMeta.Context != "" {
					diag = diag.WithNote(recoverMeta.Context)
				}
				state.PushDiagnostic(diag)
				state.input = untilReply.Rest
				state.recordRecovery()
				state.recoveries++
				state.recovered = true
				span := spanBetween(start, untilReply.Rest)
				return okReply(with, span, true, untilReply.Rest)
			}
			if untilReply.Consumed || untilReply.Committed {
				state.input = start
				return errReply[T](untilReply.Err, true, untilReply.Committed)
			}

			if cursor.IsEmpty() {
				state.input = start
				return reply
			}
			step := nextGraphemeLen(cursor.Remaining())
			state.recoverResyncByte += step
			if state.recoverCfg.maxResyncBytes >= 0 && state.recoverResyncByte >= state.recoverCfg.maxResyncBytes {
				state.input = start
				return reply
			}
			cursor = cursor.Advance(step)
		}
	})
}

// Recover skips to until on failure and resumes with the default value.
func (p Parser[T]) Recover(until Parser[Unit], with T) Parser[T] {
	return recoverWithPayload(p, until, with, collectMeta(RecoverSkip), nil)
}

// RecoverWithDefault tags the recovery as a default-value substitution.
func (p Parser[T]) RecoverWithDefault(until Parser[Unit], with T) Parser[T] {
	return recoverWithPayload(p, until, with, collectMeta(RecoverDefault), nil)
}

// RecoverUntil is the skip flavour under its explicit name.
func (p Parser[T]) RecoverUntil(until Parser[Unit], with T) Parser[T] {
	return recoverWithPayload(p, until, with, collectMeta(RecoverSkip), nil)
}

// RecoverWithInsert records the token the parser pretends was inserted,
// and attaches the matching insert-token fix-it.
func (p Parser[T]) RecoverWithInsert(until Parser[Unit], token string, with T) Parser[T] {
	meta := collectMeta(RecoverInsert)
	meta.Inserted = token
	return recoverWithPayload(p, until, with, meta, &FixIt{InsertToken: token})
}

// RecoverWithContext attaches a context note to the recovery diagnostic;
// the note is echoed into Notes when extensions.recover.notes is set.
func (p Parser[T]) RecoverWithContext(until Parser[Unit], message string, with T) Parser[T] {
	meta := collectMeta(RecoverContext)
	meta.Context = message
	return recoverWithPayload(p, until, with, meta, nil)
}

// RecoverMissing is RecoverWithInsert under its legacy name.
func (p Parser[T]) RecoverMissing(until Parser[Unit], token string, with T) Parser[T] {
	return p.RecoverWithInsert(until, token, with)
}

// PanicUntil is skip-mode recovery tagged as panic-mode.
func (p Parser[T]) PanicUntil(until Parser[Unit], with T) Parser[T] {
	meta := collectMeta(RecoverSkip)
	meta.Context = "panic"
	return recoverWithPayload(p, until, with, meta, nil)
}

// PanicBlock recovers across nested delimiters: the sync point is the
// closer that balances the openers seen while scanning.
func (p Parser[T]) PanicBlock(open, close Parser[Unit], with T) Parser[T] {
	meta := collectMeta(RecoverSkip)
	meta.Context = "panic_block"
	return recoverWithPayload(p, panicBlockSync(open, close), with, meta, nil)
}

// panicBlockSync counts balanced open/close pairs, succeeding just past
// the closer that returns the depth to zero.
func panicBlockSync(open, close Parser[Unit]) Parser[Unit] {
	return NewParser(func(state *ParseState) Reply[Unit] {
		start := state.input
		cursor := start
		depth := 0
		for {
			state.input = cursor
			openReply := open.Parse(state)
			if openReply.OK {
				if !openReply.Consumed || cursor.ByteOffset() == openReply.Rest.ByteOffset() {
					state.input = start
					return errReply[Unit](NewParseError("panic_block opener succeeded without consuming", cursor.Pos()), false, false)
				}
				depth++
				cursor = openReply.Rest
				continue
			}
			if openReply.Consumed || openReply.Committed {
				state.input = start
				return errReply[Unit](openReply.Err, openReply.Consumed, openReply.Committed)
			}

			state.input = cursor
			closeReply := close.Parse(state)
			if closeReply.OK {
				if !closeReply.Consumed || cursor.ByteOffset() == closeReply.Rest.ByteOffset() {
					state.input = start
					return errReply[Unit](NewParseError("panic_block closer succeeded without consuming", cursor.Pos()), false, false)
				}
				if depth <= 1 {
					span := spanBetween(start, closeReply.Rest)
					state.input = closeReply.Rest
					return okReply(Unit{}, span, true, closeReply.Rest)
				}
				depth--
				cursor = closeReply.Rest
				continue
			}
			if closeReply.Consumed || closeReply.Committed {
				state.input = start
				return errReply[Unit](closeReply.Err, closeReply.Consumed, closeReply.Committed)
			}

			if cursor.IsEmpty() {
				state.input = start
				return errReply[Unit](NewParseError("panic_block found no sync point", cursor.Pos()), false, false)
			}
			cursor = cursor.Advance(nextGraphemeLen(cursor.Remaining()))
		}
	})
}
