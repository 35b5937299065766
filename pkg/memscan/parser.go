// Copyright 2026 The memscan Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memscan

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseQuery translates a query-language string into a SearchQuery.
// defaultType is used for any value literal without an explicit type
// suffix; the grammar is documented in lexer.go.
func ParseQuery(text string, defaultType ValueType) (*SearchQuery, error) {
	p := &parser{l: newLexer(text), defaultType: defaultType}
	return p.parse()
}

type parser struct {
	l           *lexer
	defaultType ValueType
	tok         token
	have        bool
}

func (p *parser) peek() (token, error) {
	if !p.have {
		t, err := p.l.next()
		if err != nil {
			return token{}, err
		}
		p.tok, p.have = t, true
	}
	return p.tok, nil
}

func (p *parser) advance() { p.have = false }

func (p *parser) parse() (*SearchQuery, error) {
	values := []SearchValue{}
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokSemicolon {
			p.advance()
			continue
		}
		break
	}

	mode := ModeUnordered
	rng := uint16(defaultQuerySize)
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case tokColon, tokColonColon:
		if tok.kind == tokColonColon {
			mode = ModeOrdered
		}
		p.advance()
		n, err := p.parseUint()
		if err != nil {
			return nil, fmt.Errorf("syntax error: invalid window size: %w", err)
		}
		if n < minQueryRange || n > maxQueryRange {
			return nil, fmt.Errorf("window size must be in [%d,%d], got %d", minQueryRange, maxQueryRange, n)
		}
		rng = uint16(n)
	case tokEOF:
	default:
		return nil, fmt.Errorf("syntax error: unexpected trailing token")
	}

	if len(values) >= 2 && rng < minQueryRange {
		return nil, fmt.Errorf("group query needs range >= %d, got %d", minQueryRange, rng)
	}
	return NewSearchQuery(values, mode, rng)
}

// parseValue parses one `number type_suffix? (sep number type_suffix?)?`.
func (p *parser) parseValue() (SearchValue, error) {
	firstSuffixSeen := false
	firstText, firstSuffix, err := p.parseNumberAndSuffix()
	if err != nil {
		return SearchValue{}, err
	}
	if firstSuffix != noSuffix {
		firstSuffixSeen = true
	}

	tok, err := p.peek()
	if err != nil {
		return SearchValue{}, err
	}
	if tok.kind != tokRange && tok.kind != tokRangeExcl {
		t := p.defaultType
		if firstSuffixSeen {
			t = firstSuffix
		}
		return parseFixedLiteral(firstText, t)
	}
	exclude := tok.kind == tokRangeExcl
	p.advance()

	secondText, secondSuffix, err := p.parseNumberAndSuffix()
	if err != nil {
		return SearchValue{}, err
	}
	secondSuffixSeen := secondSuffix != noSuffix

	var t ValueType
	switch {
	case firstSuffixSeen && secondSuffixSeen:
		if firstSuffix != secondSuffix {
			return SearchValue{}, fmt.Errorf("syntax error: ranged literal has conflicting type suffixes %q and %q", firstSuffix, secondSuffix)
		}
		t = firstSuffix
	case firstSuffixSeen:
		t = firstSuffix
	case secondSuffixSeen:
		t = secondSuffix
	default:
		t = p.defaultType
	}
	return parseRangeLiteral(firstText, secondText, t, exclude)
}

// noSuffix is the "no type suffix" marker parseNumberAndSuffix returns.
// ValueType 0 is TypeByte, a legal suffix, so the zero value cannot serve
// as the marker; parseValue compares against noSuffix and keeps suffix
// presence in a bool alongside the type.
const noSuffix ValueType = 255

func (p *parser) parseNumberAndSuffix() (text string, suffix ValueType, err error) {
	tok, err := p.peek()
	if err != nil {
		return "", noSuffix, err
	}
	if tok.kind != tokNumber {
		return "", noSuffix, fmt.Errorf("syntax error: expected a number")
	}
	text = tok.text
	p.advance()

	tok, err = p.peek()
	if err != nil {
		return "", noSuffix, err
	}
	if tok.kind == tokSuffix {
		p.advance()
		return text, suffixFromChar(tok.text[0]), nil
	}
	return text, noSuffix, nil
}

func suffixFromChar(c byte) ValueType {
	switch c {
	case 'B':
		return TypeByte
	case 'W':
		return TypeWord
	case 'D':
		return TypeDword
	case 'Q':
		return TypeQword
	case 'F':
		return TypeFloat
	case 'E':
		return TypeDouble
	case 'A':
		return TypeAuto
	case 'X':
		return TypeXor
	default:
		return noSuffix
	}
}

func (p *parser) parseUint() (uint64, error) {
	tok, err := p.peek()
	if err != nil {
		return 0, err
	}
	if tok.kind != tokNumber {
		return 0, fmt.Errorf("expected a number")
	}
	p.advance()
	return strconv.ParseUint(normalizeNumber(tok.text), 0, 64)
}

// normalizeNumber strips grouping commas; hex literals are already
// rewritten to a "0x"-prefixed form by the lexer.
func normalizeNumber(s string) string {
	if strings.HasPrefix(s, "0x") {
		return s
	}
	return strings.ReplaceAll(s, ",", "")
}

func parseFixedLiteral(text string, t ValueType) (SearchValue, error) {
	if t.IsFloat() {
		f, err := strconv.ParseFloat(normalizeNumber(text), 64)
		if err != nil {
			return SearchValue{}, fmt.Errorf("syntax error: invalid float literal %q: %w", text, err)
		}
		if strings.HasSuffix(normalizeNumber(text), "h") || strings.HasSuffix(normalizeNumber(text), "H") {
			return SearchValue{}, fmt.Errorf("syntax error: fractional literal %q cannot carry a hex suffix", text)
		}
		return NewFixedFloatValue(f, t), nil
	}
	n, err := strconv.ParseInt(normalizeNumber(text), 0, 64)
	if err != nil {
		return SearchValue{}, fmt.Errorf("syntax error: invalid integer literal %q: %w", text, err)
	}
	return NewFixedIntValue(n, t), nil
}

func parseRangeLiteral(loText, hiText string, t ValueType, exclude bool) (SearchValue, error) {
	if t.IsFloat() {
		lo, err := strconv.ParseFloat(normalizeNumber(loText), 64)
		if err != nil {
			return SearchValue{}, fmt.Errorf("syntax error: invalid float range bound %q: %w", loText, err)
		}
		hi, err := strconv.ParseFloat(normalizeNumber(hiText), 64)
		if err != nil {
			return SearchValue{}, fmt.Errorf("syntax error: invalid float range bound %q: %w", hiText, err)
		}
		return NewRangeFloatValue(lo, hi, t, exclude)
	}
	lo, err := strconv.ParseInt(normalizeNumber(loText), 0, 64)
	if err != nil {
		return SearchValue{}, fmt.Errorf("syntax error: invalid integer range bound %q: %w", loText, err)
	}
	hi, err := strconv.ParseInt(normalizeNumber(hiText), 0, 64)
	if err != nil {
		return SearchValue{}, fmt.Errorf("syntax error: invalid integer range bound %q: %w", hiText, err)
	}
	return NewRangeIntValue(lo, hi, t, exclude)
}
