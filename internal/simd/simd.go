// Package simd is the concrete backing of the SIMD JSON parser collaborator
// spec.md §1 declines to specify: it implements the three services the core
// consumes through the Parser interface — (i) validate/parse a whole
// document into a flat.Buffer, (ii) hand back per-document byte spans from
// an NDJSON window, and (iii) extract a dotted field chain's raw bytes
// without building a value tree. The heavy lifting for (i) is delegated to
// github.com/minio/simdjson-go's tape parser; (ii) is plain bufio line
// scanning; (iii) is
// delegated to github.com/buger/jsonparser, which specializes in exactly
// that one operation better than a tape walk would.
package simd

import (
	"bufio"
	"fmt"
	"io"

	"github.com/buger/jsonparser"
	simdjson "github.com/minio/simdjson-go"

	"github.com/fastjq/fastjq/flat"
	"github.com/fastjq/fastjq/internal/flatdecode"
)

// Parser is the interface pipeline/ndjson and pipeline/singledoc depend on.
type Parser interface {
	// ParseDocument validates and parses a single JSON document into a
	// flat.Buffer.
	ParseDocument(data []byte) (*flat.Buffer, error)
	// NDJSONLines returns an iterator over r's newline-delimited documents.
	// Blank lines are skipped (jq itself tolerates trailing/interspersed
	// blank lines in NDJSON input).
	NDJSONLines(r io.Reader) LineIterator
	// FieldChain extracts the raw JSON bytes at the end of a dotted field
	// chain (e.g. []string{"actor","login"}) without building a value
	// tree. found is false if any link of the chain is absent.
	FieldChain(doc []byte, chain []string) (raw []byte, found bool, err error)
}

// LineIterator walks one NDJSON source one line at a time. Next returns
// false once the source is exhausted or an error occurred; check Err after
// the loop exits to tell the two apart.
type LineIterator interface {
	Next() bool
	Line() []byte
	Err() error
}

const maxLineSize = 64 * 1024 * 1024

// lineIterator is the shared NDJSONLines implementation for both Parser
// backends — line splitting is plain byte scanning regardless of which
// library parses the resulting bytes.
type lineIterator struct {
	sc   *bufio.Scanner
	line []byte
}

func newLineIterator(r io.Reader) *lineIterator {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &lineIterator{sc: sc}
}

func (it *lineIterator) Next() bool {
	for it.sc.Scan() {
		line := it.sc.Bytes()
		if len(bytesTrimSpace(line)) == 0 {
			continue
		}
		it.line = line
		return true
	}
	return false
}

func (it *lineIterator) Line() []byte { return it.line }
func (it *lineIterator) Err() error   { return it.sc.Err() }

func bytesTrimSpace(b []byte) []byte {
	i, j := 0, len(b)
	for i < j && isSpace(b[i]) {
		i++
	}
	for j > i && isSpace(b[j-1]) {
		j--
	}
	return b[i:j]
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' || b == '\n' }

// New returns the default Parser: simdjson-go when the host supports it,
// transparently falling back to the pure-Go scanner decoder otherwise (the
// simdjson-go tape parser requires AVX2 and refuses to run without it).
func New() Parser {
	if simdjson.SupportedCPU() {
		return &simdParser{}
	}
	return &fallbackParser{}
}

// simdParser backs ParseDocument with a tape walk over simdjson-go's
// output, and FieldChain with jsonparser (tape-walking a single chain would
// mean materializing the whole root object's field index first, which is
// exactly the intermediate structure the fast paths in spec §4.7 exist to
// avoid building).
type simdParser struct{}

func (p *simdParser) ParseDocument(data []byte) (*flat.Buffer, error) {
	pj, err := simdjson.Parse(data, nil)
	if err != nil {
		return nil, fmt.Errorf("simd: %w", err)
	}
	iter := pj.Iter()
	bld := flat.NewBuilder()
	if _, err := walkTape(&iter, bld); err != nil {
		return nil, fmt.Errorf("simd: %w", err)
	}
	return bld.Build(), nil
}

// walkTape descends one value out of iter into bld. It mirrors the
// recursive descent of internal/flatdecode.decodeValue but sources its
// input from an already-tokenized simdjson-go tape instead of raw bytes.
func walkTape(iter *simdjson.Iter, bld *flat.Builder) (simdjson.Type, error) {
	typ := iter.Advance()
	switch typ {
	case simdjson.TypeRoot:
		var root simdjson.Iter
		rt, err := iter.Root(&root)
		if err != nil {
			return typ, err
		}
		return walkTapeValue(rt, &root, bld)
	default:
		return walkTapeValue(typ, iter, bld)
	}
}

func walkTapeValue(typ simdjson.Type, iter *simdjson.Iter, bld *flat.Builder) (simdjson.Type, error) {
	switch typ {
	case simdjson.TypeNull:
		bld.Null()
	case simdjson.TypeBool:
		b, err := iter.Bool()
		if err != nil {
			return typ, err
		}
		bld.Bool(b)
	case simdjson.TypeInt:
		n, err := iter.Int()
		if err != nil {
			return typ, err
		}
		bld.Int(n)
	case simdjson.TypeUint:
		n, err := iter.Uint()
		if err != nil {
			return typ, err
		}
		if n <= 1<<63-1 {
			bld.Int(int64(n))
		} else {
			bld.Double(float64(n), "")
		}
	case simdjson.TypeFloat:
		f, err := iter.Float()
		if err != nil {
			return typ, err
		}
		bld.Double(f, "")
	case simdjson.TypeString:
		s, err := iter.String()
		if err != nil {
			return typ, err
		}
		bld.String(s)
	case simdjson.TypeArray:
		arr, err := iter.Array(nil)
		if err != nil {
			return typ, err
		}
		bld.StartArray()
		elems := arr.Iter()
		for {
			elTyp := elems.Advance()
			if elTyp == simdjson.TypeNone {
				break
			}
			if _, err := walkTapeValue(elTyp, &elems, bld); err != nil {
				return typ, err
			}
		}
		bld.EndArray()
	case simdjson.TypeObject:
		obj, err := iter.Object(nil)
		if err != nil {
			return typ, err
		}
		bld.StartObject()
		objIter := obj.Iter()
		for {
			key, valIter, ok := objIter.NextElement(nil)
			if !ok {
				break
			}
			bld.Key(key)
			valTyp := valIter.Advance()
			if _, err := walkTapeValue(valTyp, &valIter, bld); err != nil {
				return typ, err
			}
		}
		bld.EndObject()
	default:
		return typ, fmt.Errorf("unexpected tape type %v", typ)
	}
	return typ, nil
}

func (p *simdParser) NDJSONLines(r io.Reader) LineIterator {
	return newLineIterator(r)
}

func (p *simdParser) FieldChain(doc []byte, chain []string) ([]byte, bool, error) {
	raw, dataType, _, err := jsonparser.Get(doc, chain...)
	if err == jsonparser.KeyPathNotFoundError {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if dataType == jsonparser.String {
		// jsonparser.Get strips quotes for strings; re-wrap so callers get
		// the same raw-bytes contract regardless of scalar type.
		return reQuote(raw), true, nil
	}
	return raw, true, nil
}

func reQuote(unquoted []byte) []byte {
	out := make([]byte, 0, len(unquoted)+2)
	out = append(out, '"')
	out = append(out, unquoted...)
	out = append(out, '"')
	return out
}

// fallbackParser backs the same Parser interface with the pure-Go scanner
// decoder, used on hosts without AVX2.
type fallbackParser struct{}

func (p *fallbackParser) ParseDocument(data []byte) (*flat.Buffer, error) {
	return flatdecode.ParseOne(data)
}

func (p *fallbackParser) NDJSONLines(r io.Reader) LineIterator {
	return newLineIterator(r)
}

func (p *fallbackParser) FieldChain(doc []byte, chain []string) ([]byte, bool, error) {
	raw, dataType, _, err := jsonparser.Get(doc, chain...)
	if err == jsonparser.KeyPathNotFoundError {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if dataType == jsonparser.String {
		return reQuote(raw), true, nil
	}
	return raw, true, nil
}
