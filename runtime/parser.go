package tyson

import (
	"math"
)

// Parser converts JSON text into the tyson form in a single pass over a
// contiguous byte range, driving a Builder directly. It is fast but cannot
// parse from a stream.
//
// Use as follows:
//
//	p := tyson.NewParser()
//	nr, err := p.Parse([]byte(`{"a":12}`), false)
//	if err != nil {
//		// p.ErrorPos() points at the offending input byte
//	}
//	b := p.Steal()
//
// The parser is ready to parse more afterwards. A Parser must not be used
// from multiple goroutines; independent Parsers are fine in parallel.
type Parser struct {
	b      *Builder
	start  []byte
	size   int
	pos    int
	errPos int

	// Options is copied into the Builder at the start of each parse.
	Options Options
}

// NewParser returns a Parser with default options and an empty builder.
func NewParser() *Parser {
	return &Parser{b: NewBuilder(), Options: DefaultOptions()}
}

// ParseJSON is a convenience wrapper: it parses a single JSON value with
// default options and returns the encoded bytes.
func ParseJSON(input []byte) ([]byte, error) {
	p := NewParser()
	if _, err := p.Parse(input, false); err != nil {
		return nil, err
	}
	return p.b.Bytes(), nil
}

// Parse consumes input and appends the encoded form to the builder, which
// is cleared first. In multi mode the input may hold several consecutive
// values; otherwise exactly one. Returns the number of top-level values
// parsed. On error the builder content is unspecified; it is cleared again
// on the next Parse.
func (p *Parser) Parse(input []byte, multi bool) (int, error) {
	p.start = input
	p.size = len(input)
	p.pos = 0
	p.b.Clear()
	p.b.SetOptions(p.Options)
	return p.parseInternal(multi)
}

// Steal transfers the populated builder to the caller and equips the parser
// with a fresh one.
func (p *Parser) Steal() *Builder {
	b := p.b
	p.b = NewBuilder()
	return b
}

// Bytes returns the encoded bytes. Only valid until the next Parse; use
// Steal to keep the data.
func (p *Parser) Bytes() []byte { return p.b.Bytes() }

// ErrorPos returns the input offset recorded when the last error was
// reported. Only meaningful directly after a failed Parse.
func (p *Parser) ErrorPos() int { return p.errPos }

// Clear drops the builder content.
func (p *Parser) Clear() { p.b.Clear() }

// fail records the error position (last consumed byte, clamped to >= 0)
// and returns a ParseError.
func (p *Parser) fail(msg string) error {
	pos := p.pos
	if pos > 0 {
		pos--
	}
	p.errPos = pos
	return &ParseError{Msg: msg, Pos: pos}
}

func (p *Parser) consume() int {
	if p.pos >= p.size {
		return -1
	}
	i := int(p.start[p.pos])
	p.pos++
	return i
}

func (p *Parser) unconsume() { p.pos-- }

func (p *Parser) parseInternal(multi bool) (int, error) {
	// skip over optional BOM
	if p.size >= 3 && p.start[0] == 0xef && p.start[1] == 0xbb && p.start[2] == 0xbf {
		p.pos += 3
	}

	nr := 0
	for {
		if err := p.parseJSON(0); err != nil {
			return nr, err
		}
		nr++
		for p.pos < p.size && isWhiteSpace(p.start[p.pos]) {
			p.pos++
		}
		if !multi && p.pos != p.size {
			p.consume() // to get error reporting right
			return nr, p.fail("expecting EOF")
		}
		if !multi || p.pos >= p.size {
			return nr, nil
		}
	}
}

func isWhiteSpace(i byte) bool {
	return i == ' ' || i == '\t' || i == '\n' || i == '\r'
}

// skipWhiteSpace skips over all following whitespace bytes but does not
// consume the byte after the whitespace. It fails with msg when the input
// is exhausted.
func (p *Parser) skipWhiteSpace(msg string) (int, error) {
	for p.pos < p.size {
		c := p.start[p.pos]
		if !isWhiteSpace(c) {
			return int(c), nil
		}
		p.pos++
	}
	return -1, p.fail(msg)
}

func (p *Parser) parseJSON(depth int) error {
	if depth > p.Options.maxDepth() {
		return p.fail("maximum nesting depth reached")
	}
	if _, err := p.skipWhiteSpace("expecting item"); err != nil {
		return err
	}
	i := p.consume()
	if i < 0 {
		return nil
	}
	switch i {
	case '{':
		return p.parseObject(depth) // consumes the closing '}' or fails
	case '[':
		return p.parseArray(depth) // consumes the closing ']' or fails
	case 't':
		return p.parseTrue() // consumes "rue" or fails
	case 'f':
		return p.parseFalse() // consumes "alse" or fails
	case 'n':
		return p.parseNull() // consumes "ull" or fails
	case '"':
		return p.parseString()
	default:
		// everything else must be a number or is invalid... this
		// includes '-' and '0' to '9'. parseNumber fails on
		// non-numeric input.
		p.unconsume()
		return p.parseNumber()
	}
}

// parseTrue is called when the main mode has seen a 't'; "rue" must follow.
func (p *Parser) parseTrue() error {
	if p.consume() != 'r' || p.consume() != 'u' || p.consume() != 'e' {
		return p.fail("true expected")
	}
	p.b.AddTrue()
	return nil
}

// parseFalse is called when the main mode has seen an 'f'; "alse" must follow.
func (p *Parser) parseFalse() error {
	if p.consume() != 'a' || p.consume() != 'l' || p.consume() != 's' || p.consume() != 'e' {
		return p.fail("false expected")
	}
	p.b.AddFalse()
	return nil
}

// parseNull is called when the main mode has seen an 'n'; "ull" must follow.
func (p *Parser) parseNull() error {
	if p.consume() != 'u' || p.consume() != 'l' || p.consume() != 'l' {
		return p.fail("null expected")
	}
	p.b.AddNull()
	return nil
}

// parsedNumber accumulates integer digits exactly in intValue until the
// next digit would overflow a uint64; from then on digits accumulate in
// doubleValue.
type parsedNumber struct {
	intValue    uint64
	doubleValue float64
	isInteger   bool
}

// addDigit reports whether the accumulated value is still in bounds.
func (n *parsedNumber) addDigit(i int) bool {
	d := uint64(i - '0')
	if n.isInteger {
		// check if adding another digit would overflow the uint64
		if n.intValue < 1844674407370955161 ||
			(n.intValue == 1844674407370955161 && d <= 5) {
			n.intValue = n.intValue*10 + d
			return true
		}
		n.doubleValue = float64(n.intValue)
		n.isInteger = false
	}

	n.doubleValue = n.doubleValue*10.0 + float64(d)
	return !math.IsNaN(n.doubleValue) && !math.IsInf(n.doubleValue, 0)
}

func (n *parsedNumber) asDouble() float64 {
	if n.isInteger {
		return float64(n.intValue)
	}
	return n.doubleValue
}

func (p *Parser) scanDigits(value *parsedNumber) error {
	for {
		i := p.consume()
		if i < 0 {
			return nil
		}
		if i < '0' || i > '9' {
			p.unconsume()
			return nil
		}
		if !value.addDigit(i) {
			return p.fail("numeric value out of bounds")
		}
	}
}

func (p *Parser) scanDigitsFractional() float64 {
	pot := 0.1
	x := 0.0
	for {
		i := p.consume()
		if i < 0 {
			return x
		}
		if i < '0' || i > '9' {
			p.unconsume()
			return x
		}
		x += pot * float64(i-'0')
		pot /= 10.0
	}
}

func (p *Parser) getOneOrFail(msg string) (int, error) {
	i := p.consume()
	if i < 0 {
		return -1, p.fail(msg)
	}
	return i, nil
}

func (p *Parser) parseNumber() error {
	var numberValue parsedNumber
	numberValue.isInteger = true
	negative := false

	i := p.consume()
	if i == '-' {
		var err error
		i, err = p.getOneOrFail("scanNumber: incomplete number")
		if err != nil {
			return err
		}
		negative = true
	}
	if i < '0' || i > '9' {
		return p.fail("value expected")
	}

	// A leading zero terminates integer scanning: the integer part of
	// "0123" is exactly 0 and the outer parser fails on the '1'.
	if i != '0' {
		p.unconsume()
		if err := p.scanDigits(&numberValue); err != nil {
			return err
		}
	}
	// A '.' or an exponent demotes the value to a double, even when the
	// integer side would still have fit.
	isDouble := false
	value := numberValue.asDouble()

	i = p.consume()
	if i == '.' {
		j, err := p.getOneOrFail("scanNumber: incomplete number")
		if err != nil {
			return err
		}
		if j < '0' || j > '9' {
			return p.fail("scanNumber: incomplete number")
		}
		p.unconsume()
		value += p.scanDigitsFractional()
		isDouble = true
		i = p.consume()
	}
	if i == 'e' || i == 'E' {
		j, err := p.getOneOrFail("scanNumber: incomplete number")
		if err != nil {
			return err
		}
		expNegative := false
		if j == '+' || j == '-' {
			expNegative = j == '-'
			j, err = p.getOneOrFail("scanNumber: incomplete number")
			if err != nil {
				return err
			}
		}
		if j < '0' || j > '9' {
			return p.fail("scanNumber: incomplete number")
		}
		p.unconsume()
		var exponent parsedNumber
		exponent.isInteger = true
		if err := p.scanDigits(&exponent); err != nil {
			return err
		}
		if expNegative {
			value *= math.Pow(10, -exponent.asDouble())
		} else {
			value *= math.Pow(10, exponent.asDouble())
		}
		isDouble = true
	} else if i >= 0 {
		p.unconsume()
	}

	if !isDouble {
		if !numberValue.isInteger {
			f := numberValue.doubleValue
			if negative {
				f = -f
			}
			p.b.AddDouble(f)
		} else if negative {
			p.b.AddNegInt(numberValue.intValue)
		} else {
			p.b.AddUInt(numberValue.intValue)
		}
		return nil
	}
	if negative {
		value = -value
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return p.fail("numeric value out of bounds")
	}
	p.b.AddDouble(value)
	return nil
}

// stringCopyRun returns the length of the run at src that can be copied to
// the output verbatim: bytes that are not '"', not '\\', not control
// characters and plain ASCII. High-bit bytes are left to the slow path so
// UTF-8 validation is not skipped.
func stringCopyRun(src []byte) int {
	n := 0
	for n < len(src) {
		c := src[n]
		if c == '"' || c == '\\' || c < 0x20 || c >= 0x80 {
			break
		}
		n++
	}
	return n
}

// parseString is called after the opening '"' has been consumed. It writes
// the string value incrementally: a short-string tag is assumed and the
// header is widened to the long layout as soon as the payload exceeds 127
// bytes.
func (p *Parser) parseString() error {
	buf := p.b.buf
	base := buf.Len()
	buf.WriteByte(tagStringShort) // patched on close

	large := false     // set once the payload passes 127 bytes
	highSurrogate := 0 // non-zero if a high surrogate was just seen

	for {
		if remainder := p.size - p.pos; remainder >= 16 {
			n := stringCopyRun(p.start[p.pos:])
			if n > 0 {
				dst := buf.Extend(n)
				copy(dst, p.start[p.pos:p.pos+n])
				p.pos += n
				// copied bytes are ordinary characters
				highSurrogate = 0
			}
		}
		i, err := p.getOneOrFail("scanString: Unfinished string detected")
		if err != nil {
			return err
		}
		if !large && buf.Len()-(base+1) > shortStringMaxLen {
			large = true
			buf.ShiftRight(base+1, 8)
		}
		switch i {
		case '"':
			if !large {
				length := buf.Len() - (base + 1)
				buf.SetByte(base, byte(tagStringShort+length))
			} else {
				length := buf.Len() - (base + 9)
				buf.SetByte(base, tagStringLong)
				buf.PutUint64LE(base+1, uint64(length))
			}
			return nil
		case '\\':
			i = p.consume()
			if i < 0 {
				return p.fail("scanString: Unfinished string detected")
			}
			switch i {
			case '"', '/', '\\':
				buf.WriteByte(byte(i))
				highSurrogate = 0
			case 'b':
				buf.WriteByte('\b')
				highSurrogate = 0
			case 'f':
				buf.WriteByte('\f')
				highSurrogate = 0
			case 'n':
				buf.WriteByte('\n')
				highSurrogate = 0
			case 'r':
				buf.WriteByte('\r')
				highSurrogate = 0
			case 't':
				buf.WriteByte('\t')
				highSurrogate = 0
			case 'u':
				v := 0
				for j := 0; j < 4; j++ {
					i = p.consume()
					if i < 0 {
						return p.fail("scanString: Unfinished \\uXXXX")
					}
					switch {
					case i >= '0' && i <= '9':
						v = v<<4 + i - '0'
					case i >= 'a' && i <= 'f':
						v = v<<4 + i - 'a' + 10
					case i >= 'A' && i <= 'F':
						v = v<<4 + i - 'A' + 10
					default:
						return p.fail("scanString: Illegal hex digit")
					}
				}
				switch {
				case v < 0x80:
					buf.WriteByte(byte(v))
					highSurrogate = 0
				case v < 0x800:
					dst := buf.Extend(2)
					dst[0] = byte(0xc0 + v>>6)
					dst[1] = byte(0x80 + v&0x3f)
					highSurrogate = 0
				case v >= 0xdc00 && v < 0xe000 && highSurrogate != 0:
					// Low surrogate, put the two together. The three
					// bytes just written for the high surrogate are
					// taken back.
					v = 0x10000 + (highSurrogate-0xd800)<<10 + v - 0xdc00
					buf.Rewind(3)
					dst := buf.Extend(4)
					dst[0] = byte(0xf0 + v>>18)
					dst[1] = byte(0x80 + v>>12&0x3f)
					dst[2] = byte(0x80 + v>>6&0x3f)
					dst[3] = byte(0x80 + v&0x3f)
					highSurrogate = 0
				default:
					if v >= 0xd800 && v < 0xdc00 {
						highSurrogate = v
					} else {
						highSurrogate = 0
					}
					dst := buf.Extend(3)
					dst[0] = byte(0xe0 + v>>12)
					dst[1] = byte(0x80 + v>>6&0x3f)
					dst[2] = byte(0x80 + v&0x3f)
				}
			default:
				return p.fail("scanString: Illegal \\ sequence")
			}
		default:
			if i&0x80 == 0 {
				if i < 0x20 {
					return p.fail("scanString: Found control character")
				}
				highSurrogate = 0
				buf.WriteByte(byte(i))
				break
			}
			// multi-byte UTF-8 sequence
			follow := 0
			switch {
			case i&0xe0 == 0x80:
				return p.fail("scanString: Illegal UTF-8 byte")
			case i&0xe0 == 0xc0:
				follow = 1
			case i&0xf0 == 0xe0:
				follow = 2
			case i&0xf8 == 0xf0:
				follow = 3
			default:
				return p.fail("scanString: Illegal 5- or 6-byte sequence found in UTF-8 string")
			}
			seqStart := buf.Len()
			buf.WriteByte(byte(i))
			for j := 0; j < follow; j++ {
				i, err = p.getOneOrFail("scanString: truncated UTF-8 sequence")
				if err != nil {
					return err
				}
				if i&0xc0 != 0x80 {
					return p.fail("scanString: invalid UTF-8 sequence")
				}
				buf.WriteByte(byte(i))
			}
			// overlong forms, encoded surrogates and code points above
			// U+10FFFF have the right bit patterns but are not UTF-8
			if !isUTF8Valid(buf.Bytes()[seqStart:]) {
				return p.fail("scanString: invalid UTF-8 sequence")
			}
			highSurrogate = 0
		}
	}
}

func (p *Parser) parseArray(depth int) error {
	base := p.b.Size()
	p.b.OpenArray()

	i, err := p.skipWhiteSpace("scanArray: item or ] expected")
	if err != nil {
		return err
	}
	if i == ']' {
		// empty array
		p.pos++ // the closing ']'
		return p.b.Close()
	}

	for {
		// parse the array element itself
		p.b.ReportChildOffset(base)
		if err := p.parseJSON(depth + 1); err != nil {
			return err
		}
		i, err = p.skipWhiteSpace("scanArray: , or ] expected")
		if err != nil {
			return err
		}
		if i == ']' {
			p.pos++ // the closing ']'
			return p.b.Close()
		}
		if i != ',' {
			return p.fail("scanArray: , or ] expected")
		}
		p.pos++ // the ','
	}
}

func (p *Parser) parseObject(depth int) error {
	base := p.b.Size()
	p.b.OpenObject()

	i, err := p.skipWhiteSpace("scanObject: item or } expected")
	if err != nil {
		return err
	}
	if i == '}' {
		// empty object
		p.pos++ // the closing '}'
		return p.b.Close()
	}

	for {
		// always expecting a string attribute name here
		if i != '"' {
			return p.fail("scanObject: \" or } expected")
		}
		p.pos++ // get past the initial '"'

		p.b.ReportChildOffset(base)
		if err := p.parseString(); err != nil {
			return err
		}
		i, err = p.skipWhiteSpace("scanObject: : expected")
		if err != nil {
			return err
		}
		if i != ':' {
			return p.fail("scanObject: : expected")
		}
		p.pos++ // skip over the colon

		if err := p.parseJSON(depth + 1); err != nil {
			return err
		}
		i, err = p.skipWhiteSpace("scanObject: , or } expected")
		if err != nil {
			return err
		}
		if i == '}' {
			p.pos++ // the closing '}'
			return p.b.Close()
		}
		if i != ',' {
			return p.fail("scanObject: , or } expected")
		}
		p.pos++ // the ','
		i, err = p.skipWhiteSpace("scanObject: \" or } expected")
		if err != nil {
			return err
		}
	}
}
