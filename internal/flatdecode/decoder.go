package flatdecode

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fastjq/fastjq/flat"
)

// Decoder parses JSON text directly into a flat.Builder, one value per
// Decode call; Decode returns io.EOF when the underlying source is
// exhausted at a value boundary.
type Decoder struct {
	s *scanner
}

func NewDecoder(r io.Reader) *Decoder   { return &Decoder{s: newScanner(r)} }
func NewDecoderBytes(b []byte) *Decoder { return &Decoder{s: newScannerBytes(b)} }

// ParseOne parses exactly one JSON value from b and returns its flat
// buffer. It is an error for b to contain anything beyond trailing
// whitespace after the value (used for the single-document pipeline and
// NDJSON per-line fallback decoding).
func ParseOne(b []byte) (*flat.Buffer, error) {
	d := NewDecoderBytes(b)
	bld := flat.NewBuilder()
	if err := d.decodeValue(bld); err != nil {
		return nil, err
	}
	trailing, err := d.s.SkipSpaceAndPeek()
	if err != nil {
		return nil, err
	}
	if trailing != EOF {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return bld.Build(), nil
}

// Decode parses the next JSON value from the stream into bld.
func (d *Decoder) Decode(bld *flat.Builder) error {
	b, err := d.s.SkipSpaceAndPeek()
	if err != nil {
		return err
	}
	if b == EOF {
		return io.EOF
	}
	return d.decodeValue(bld)
}

func (d *Decoder) decodeValue(bld *flat.Builder) error {
	b, err := d.s.SkipSpaceAndPeek()
	if err != nil {
		return err
	}
	switch {
	case b == EOF:
		return io.EOF
	case b == '"':
		return d.decodeString(bld, false)
	case b == '[':
		return d.decodeArray(bld)
	case b == '{':
		return d.decodeObject(bld)
	case b == 't':
		if err := d.expectBytes("true"); err != nil {
			return err
		}
		bld.Bool(true)
		return nil
	case b == 'f':
		if err := d.expectBytes("false"); err != nil {
			return err
		}
		bld.Bool(false)
		return nil
	case b == 'n':
		if err := d.expectBytes("null"); err != nil {
			return err
		}
		bld.Null()
		return nil
	case b == '-' || isDigit(b):
		return d.decodeNumber(bld)
	default:
		return d.syntaxError("unexpected character")
	}
}

func (d *Decoder) expectBytes(s string) error {
	for i := 0; i < len(s); i++ {
		b, err := d.s.Read()
		if err != nil {
			return err
		}
		if b != s[i] {
			return d.syntaxError("invalid literal")
		}
	}
	return nil
}

func (d *Decoder) expectByte(xb byte) error {
	b, err := d.s.Read()
	if err != nil {
		return err
	}
	if b != xb {
		d.s.Back()
		return d.syntaxError(fmt.Sprintf("expected %q", xb))
	}
	return nil
}

func (d *Decoder) syntaxError(msg string) error {
	return fmt.Errorf("json parse error at L%d,C%d: %s", d.s.currentPos.line+1, d.s.currentPos.col+1, msg)
}

func (d *Decoder) decodeArray(bld *flat.Builder) error {
	if err := d.expectByte('['); err != nil {
		return err
	}
	bld.StartArray()
	b, err := d.s.SkipSpaceAndPeek()
	if err != nil {
		return err
	}
	if b == ']' {
		d.s.Read()
		bld.EndArray()
		return nil
	}
	for {
		if err := d.decodeValue(bld); err != nil {
			return err
		}
		b, err = d.s.SkipSpaceAndPeek()
		if err != nil {
			return err
		}
		switch b {
		case ']':
			d.s.Read()
			bld.EndArray()
			return nil
		case ',':
			d.s.Read()
		default:
			return d.syntaxError("expected ']' or ','")
		}
	}
}

func (d *Decoder) decodeObject(bld *flat.Builder) error {
	if err := d.expectByte('{'); err != nil {
		return err
	}
	bld.StartObject()
	b, err := d.s.SkipSpaceAndPeek()
	if err != nil {
		return err
	}
	if b == '}' {
		d.s.Read()
		bld.EndObject()
		return nil
	}
	for {
		if _, err := d.s.SkipSpaceAndPeek(); err != nil {
			return err
		}
		if err := d.decodeString(bld, true); err != nil {
			return err
		}
		b, err = d.s.SkipSpaceAndPeek()
		if err != nil {
			return err
		}
		if b != ':' {
			return d.syntaxError("expected ':'")
		}
		d.s.Read()
		if err := d.decodeValue(bld); err != nil {
			return err
		}
		b, err = d.s.SkipSpaceAndPeek()
		if err != nil {
			return err
		}
		switch b {
		case '}':
			d.s.Read()
			bld.EndObject()
			return nil
		case ',':
			d.s.Read()
		default:
			return d.syntaxError("expected '}' or ','")
		}
	}
}

// decodeString decodes a JSON string, unescaping it; asKey writes it as a
// bare object key record instead of a counted value.
func (d *Decoder) decodeString(bld *flat.Builder, asKey bool) error {
	if err := d.expectByte('"'); err != nil {
		return err
	}
	var out []byte
	d.s.StartToken()
	for {
		b, err := d.s.Read()
		if err != nil {
			return err
		}
		switch b {
		case '"':
			raw := d.s.EndToken()
			var s string
			if out == nil {
				s = string(raw[:len(raw)-1])
			} else {
				s = string(out)
			}
			if asKey {
				bld.Key(s)
			} else {
				bld.String(s)
			}
			return nil
		case '\\':
			if out == nil {
				// Lazily materialize the unescaped buffer starting from
				// everything scanned so far in this token.
				soFar := d.s.buf[d.s.tokenStart : d.s.currentIndex-1]
				out = append(out, soFar...)
			}
			esc, err := d.s.Read()
			if err != nil {
				return err
			}
			switch esc {
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			case '/':
				out = append(out, '/')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'u':
				r, err := d.readHex4()
				if err != nil {
					return err
				}
				out = appendRune(out, r)
			default:
				return d.syntaxError("invalid escape")
			}
			// Restart token recording from the next byte so EndToken()
			// doesn't re-include bytes we've already folded into out.
			d.s.tokenStart = d.s.currentIndex
		default:
			if isCtrl(b) {
				return d.syntaxError("invalid control character in string")
			}
			if out != nil {
				out = append(out, b)
			}
		}
	}
}

func (d *Decoder) readHex4() (rune, error) {
	var v int
	for i := 0; i < 4; i++ {
		b, err := d.s.Read()
		if err != nil {
			return 0, err
		}
		v <<= 4
		switch {
		case b >= '0' && b <= '9':
			v |= int(b - '0')
		case b >= 'a' && b <= 'f':
			v |= int(b-'a') + 10
		case b >= 'A' && b <= 'F':
			v |= int(b-'A') + 10
		default:
			return 0, d.syntaxError("invalid \\u escape")
		}
	}
	return rune(v), nil
}

func appendRune(b []byte, r rune) []byte {
	var tmp [4]byte
	n := encodeRune(tmp[:], r)
	return append(b, tmp[:n]...)
}

// encodeRune is utf8.EncodeRune without importing unicode/utf8 twice over —
// kept local since surrogate-pair joining for \u escapes outside the BMP is
// intentionally not attempted here (rare in practice; matches the scope of
// the teacher's own scanner, which also treats each \u atomically).
func encodeRune(b []byte, r rune) int {
	n := copy(b, string(r))
	return n
}

func (d *Decoder) decodeNumber(bld *flat.Builder) error {
	d.s.StartToken()
	b, err := d.s.Read()
	isFloat := false
	if b == '-' {
		b, err = d.s.Read()
	}
	if err != nil {
		return err
	}
	if b == '0' {
		b, err = d.s.Read()
		if err != nil {
			return err
		}
	} else if isDigit(b) {
		b, err = d.readDigits()
		if err != nil {
			return err
		}
	} else {
		return d.syntaxError("expected digit")
	}
	if b == '.' {
		isFloat = true
		b, err = d.readDigits()
		if err != nil {
			return err
		}
	}
	if b == 'e' || b == 'E' {
		isFloat = true
		b, err = d.s.Peek()
		if err != nil {
			return err
		}
		if b == '-' || b == '+' {
			d.s.Read()
		}
		b, err = d.readDigits()
		if err != nil {
			return err
		}
	}
	d.s.Back()
	raw := d.s.EndToken()
	rawStr := string(raw)
	if !isFloat {
		if iv, err := strconv.ParseInt(rawStr, 10, 64); err == nil {
			bld.Int(iv)
			return nil
		}
	}
	fv, err := strconv.ParseFloat(rawStr, 64)
	if err != nil {
		return d.syntaxError("invalid number")
	}
	bld.Double(fv, rawStr)
	return nil
}

func (d *Decoder) readDigits() (byte, error) {
	for {
		b, err := d.s.Read()
		if err != nil {
			return 0, err
		}
		if !isDigit(b) {
			return b, nil
		}
	}
}
