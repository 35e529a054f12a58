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

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// IdentifierProfile selects the identifier character classes: full Unicode
// (XID with ZWJ/VS16/Extended-Pictographic/Emoji-Component allowed as
// continue characters) or ASCII-compatible.
type IdentifierProfile int

const (
	IdentifierUnicode IdentifierProfile = iota
	IdentifierASCIICompat
)

func identifierProfileFromConfig(cfg *RunConfig) IdentifierProfile {
	ext := cfg.extension("lex")
	if label, ok := extString(ext, "identifier_profile"); ok && label == "ascii-compat" {
		return IdentifierASCIICompat
	}
	if label, ok := extString(ext, "profile"); ok && label == "ascii-compat" {
		return IdentifierASCIICompat
	}
	return IdentifierUnicode
}

// xidStart approximates XID_Start: letters plus letter numbers.
var xidStart = []*unicode.RangeTable{unicode.L, unicode.Nl, unicode.Other_ID_Start}

// xidContinue adds marks, decimal digits, and connector punctuation.
var xidContinue = []*unicode.RangeTable{
	unicode.L, unicode.Nl, unicode.Other_ID_Start,
	unicode.Mn, unicode.Mc, unicode.Nd, unicode.Pc, unicode.Other_ID_Continue,
}

// extendedPictographic covers the Extended_Pictographic blocks that matter
// for identifier-continue acceptance under the Unicode profile.
var extendedPictographic = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2600, Hi: 0x27BF, Stride: 1},
		{Lo: 0x2B00, Hi: 0x2BFF, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F000, Hi: 0x1F0FF, Stride: 1},
		{Lo: 0x1F300, Hi: 0x1F5FF, Stride: 1},
		{Lo: 0x1F600, Hi: 0x1F64F, Stride: 1},
		{Lo: 0x1F680, Hi: 0x1F6FF, Stride: 1},
		{Lo: 0x1F900, Hi: 0x1F9FF, Stride: 1},
		{Lo: 0x1FA00, Hi: 0x1FAFF, Stride: 1},
	},
}

// emojiComponent covers Emoji_Component: keycap marks, regional
// indicators, skin-tone modifiers, hair components, ZWJ, VS16, and tags.
var emojiComponent = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0023, Hi: 0x0023, Stride: 1},
		{Lo: 0x002A, Hi: 0x002A, Stride: 1},
		{Lo: 0x0030, Hi: 0x0039, Stride: 1},
		{Lo: 0x200D, Hi: 0x200D, Stride: 1},
		{Lo: 0x20E3, Hi: 0x20E3, Stride: 1},
		{Lo: 0xFE0F, Hi: 0xFE0F, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F1E6, Hi: 0x1F1FF, Stride: 1},
		{Lo: 0x1F3FB, Hi: 0x1F3FF, Stride: 1},
		{Lo: 0x1F9B0, Hi: 0x1F9B3, Stride: 1},
		{Lo: 0xE0020, Hi: 0xE007F, Stride: 1},
	},
}

func isIdentStart(ch rune, profile IdentifierProfile) bool {
	if profile == IdentifierASCIICompat {
		return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
	}
	return ch == '_' || unicode.In(ch, xidStart...)
}

func isIdentContinue(ch rune, profile IdentifierProfile) bool {
	if profile == IdentifierASCIICompat {
		return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
	}
	return ch == '_' ||
		unicode.In(ch, xidContinue...) ||
		ch == '\u200D' || ch == '\uFE0F' ||
		unicode.Is(extendedPictographic, ch) ||
		unicode.Is(emojiComponent, ch)
}

func isBidiControl(ch rune) bool {
	switch {
	case ch == '\u061C', ch == '\u200E', ch == '\u200F':
		return true
	case ch >= '\u202A' && ch <= '\u202E':
		return true
	case ch >= '\u2066' && ch <= '\u2069':
		return true
	}
	return false
}

func isNFC(ch rune) bool {
	return norm.NFC.IsNormalString(string(ch))
}

// ValidateChar rejects Bidi control characters and non-NFC codepoints at
// identifier boundaries; the returned message is the diagnostic text.
func (p IdentifierProfile) ValidateChar(ch rune) (string, bool) {
	if isBidiControl(ch) {
		return "identifiers must not contain Bidi control characters", false
	}
	if !isNFC(ch) {
		return "identifiers must be NFC-normalized", false
	}
	return "", true
}
