package muse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrParse is returned when an assembled status message does not match the
// record grammar.
var ErrParse = errors.New("malformed status record")

// statusAssembler accumulates fragmented status text until a closing brace
// terminates the record.  At most one record is outstanding at a time.
type statusAssembler struct {
	buf strings.Builder
}

// push appends one decoded status packet.  The first field is the number of
// valid character codes in the fragment; line breaks are dropped as they are
// appended.  When the fragment ends the record, the accumulated text is
// parsed and the buffer reset in one step.  A grammar failure also resets the
// buffer so a corrupt stream cannot grow it without bound.
func (a *statusAssembler) push(fields []int64) (StatusRecord, bool, error) {
	n := int(fields[0])
	chars := fields[1:]
	if n > len(chars) {
		n = len(chars)
	}

	terminated := false
	for _, c := range chars[:n] {
		ch := byte(c)
		if ch == '\n' || ch == '\r' {
			continue
		}
		a.buf.WriteByte(ch)
		terminated = ch == '}'
	}
	if !terminated {
		return nil, false, nil
	}

	text := a.buf.String()
	a.buf.Reset()
	record, err := parseStatusRecord(text)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// pending reports the number of accumulated characters awaiting a
// terminator.
func (a *statusAssembler) pending() int {
	return a.buf.Len()
}

// parseStatusRecord parses a brace-delimited record of key: value pairs.
// Keys are strings or numbers; values are strings, numbers, or booleans.
// This is deliberately the whole grammar; the headband sends nothing richer
// and anything else is rejected.
func parseStatusRecord(text string) (StatusRecord, error) {
	p := &recordParser{s: text}
	record, err := p.parseRecord()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("%w: trailing data at offset %d", ErrParse, p.pos)
	}
	return record, nil
}

type recordParser struct {
	s   string
	pos int
}

func (p *recordParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
}

func (p *recordParser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.s) || p.s[p.pos] != c {
		return fmt.Errorf("%w: expected %q at offset %d", ErrParse, c, p.pos)
	}
	p.pos++
	return nil
}

func (p *recordParser) peek() (byte, bool) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return 0, false
	}
	return p.s[p.pos], true
}

func (p *recordParser) parseRecord() (StatusRecord, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}

	record := make(StatusRecord)
	if c, ok := p.peek(); ok && c == '}' {
		p.pos++
		return record, nil
	}

	for {
		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		record[key] = value

		c, ok := p.peek()
		if !ok {
			return nil, fmt.Errorf("%w: unterminated record", ErrParse)
		}
		switch c {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return record, nil
		default:
			return nil, fmt.Errorf("%w: expected ',' or '}' at offset %d", ErrParse, p.pos)
		}
	}
}

func (p *recordParser) parseKey() (string, error) {
	c, ok := p.peek()
	if !ok {
		return "", fmt.Errorf("%w: missing key", ErrParse)
	}
	if c == '"' || c == '\'' {
		return p.parseString()
	}
	v, err := p.parseNumber()
	if err != nil {
		return "", err
	}
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), nil
	default:
		return strconv.FormatFloat(v.(float64), 'g', -1, 64), nil
	}
}

func (p *recordParser) parseValue() (interface{}, error) {
	c, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("%w: missing value", ErrParse)
	}
	switch {
	case c == '"' || c == '\'':
		return p.parseString()
	case strings.HasPrefix(p.s[p.pos:], "true"):
		p.pos += len("true")
		return true, nil
	case strings.HasPrefix(p.s[p.pos:], "false"):
		p.pos += len("false")
		return false, nil
	default:
		return p.parseNumber()
	}
}

func (p *recordParser) parseString() (string, error) {
	quote := p.s[p.pos]
	p.pos++
	start := p.pos
	for p.pos < len(p.s) {
		if p.s[p.pos] == quote {
			s := p.s[start:p.pos]
			p.pos++
			return s, nil
		}
		p.pos++
	}
	return "", fmt.Errorf("%w: unterminated string", ErrParse)
}

func (p *recordParser) parseNumber() (interface{}, error) {
	start := p.pos
	for p.pos < len(p.s) && strings.ContainsRune("+-0123456789.eE", rune(p.s[p.pos])) {
		p.pos++
	}
	lit := p.s[start:p.pos]
	if lit == "" {
		return nil, fmt.Errorf("%w: expected number at offset %d", ErrParse, start)
	}
	if n, err := strconv.Atoi(lit); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad number %q", ErrParse, lit)
	}
	return f, nil
}
