package eval

import (
	"encoding/base32"
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"

	"github.com/fastjq/fastjq/ast"
	"github.com/fastjq/fastjq/internal/fastjqerr"
	"github.com/fastjq/fastjq/value"
)

// applyFormat implements the `@name` format operators of spec §4.2/§3.3.
func applyFormat(name ast.Format, v value.Value) (string, error) {
	switch name {
	case ast.FormatText:
		return stringify(v), nil
	case ast.FormatJSON:
		return compactJSON(v), nil
	case ast.FormatHTML:
		s := stringify(v)
		r := strings.NewReplacer(
			"&", "&amp;", "<", "&lt;", ">", "&gt;", "'", "&#39;", "\"", "&quot;",
		)
		return r.Replace(s), nil
	case ast.FormatURI:
		return url.QueryEscape(stringify(v)), nil
	case ast.FormatSh:
		return shQuote(v)
	case ast.FormatCSV:
		return delimitedRow(v, ',', true)
	case ast.FormatTSV:
		return delimitedRow(v, '\t', false)
	case ast.FormatBase64:
		return base64.StdEncoding.EncodeToString([]byte(stringify(v))), nil
	case ast.FormatB64D:
		s, err := base64.StdEncoding.DecodeString(stringify(v))
		if err != nil {
			s, err = base64.RawStdEncoding.DecodeString(stringify(v))
			if err != nil {
				return "", fastjqerr.New(fastjqerr.KindType, "invalid base64 input")
			}
		}
		return string(s), nil
	case ast.FormatBase32:
		return base32.StdEncoding.EncodeToString([]byte(stringify(v))), nil
	case ast.FormatB32D:
		s, err := base32.StdEncoding.DecodeString(stringify(v))
		if err != nil {
			return "", fastjqerr.New(fastjqerr.KindType, "invalid base32 input")
		}
		return string(s), nil
	default:
		return "", fastjqerr.New(fastjqerr.KindType, "%s is not a valid format", name)
	}
}

func compactJSON(v value.Value) string {
	var sb strings.Builder
	writeCompactJSON(&sb, v)
	return sb.String()
}

func writeCompactJSON(sb *strings.Builder, v value.Value) {
	switch v.Kind() {
	case value.KindNull:
		sb.WriteString("null")
	case value.KindBool:
		b, _ := v.AsBool()
		if b {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case value.KindInt:
		i, _ := v.AsInt()
		sb.WriteString(strconv.FormatInt(i, 10))
	case value.KindFloat:
		f, _ := v.AsFloat()
		sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case value.KindString:
		s, _ := v.AsString()
		sb.WriteString(strconv.Quote(s))
	case value.KindArray:
		arr, _ := v.AsArray()
		sb.WriteByte('[')
		for i, e := range arr {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCompactJSON(sb, e)
		}
		sb.WriteByte(']')
	case value.KindObject:
		obj, _ := v.AsObject()
		sb.WriteByte('{')
		first := true
		obj.Each(func(k string, val value.Value) {
			if !first {
				sb.WriteByte(',')
			}
			first = false
			sb.WriteString(strconv.Quote(k))
			sb.WriteByte(':')
			writeCompactJSON(sb, val)
		})
		sb.WriteByte('}')
	}
}

func shQuote(v value.Value) (string, error) {
	quoteOne := func(s string) string {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	if arr, ok := v.AsArray(); ok {
		parts := make([]string, len(arr))
		for i, e := range arr {
			if s, ok := e.AsString(); ok {
				parts[i] = quoteOne(s)
			} else {
				parts[i] = quoteOne(compactJSON(e))
			}
		}
		return strings.Join(parts, " "), nil
	}
	if s, ok := v.AsString(); ok {
		return quoteOne(s), nil
	}
	return quoteOne(compactJSON(v)), nil
}

func delimitedRow(v value.Value, sep byte, quoteStrings bool) (string, error) {
	arr, ok := v.AsArray()
	if !ok {
		return "", fastjqerr.New(fastjqerr.KindType, "%s is not valid in a csv/tsv row", v.Kind())
	}
	cells := make([]string, len(arr))
	for i, e := range arr {
		switch e.Kind() {
		case value.KindNull:
			cells[i] = ""
		case value.KindBool, value.KindInt, value.KindFloat:
			cells[i] = compactJSON(e)
		case value.KindString:
			s, _ := e.AsString()
			if quoteStrings {
				cells[i] = `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
			} else {
				r := strings.NewReplacer("\\", `\\`, "\t", `\t`, "\n", `\n`, "\r", `\r`)
				cells[i] = r.Replace(s)
			}
		default:
			return "", fastjqerr.New(fastjqerr.KindType, "%s is not valid in a csv/tsv row", e.Kind())
		}
	}
	return strings.Join(cells, string(sep)), nil
}
