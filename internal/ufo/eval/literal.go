package eval

import (
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// numberLiteral converts the text of an integer or float node. Integers that
// do not fit in 64 bits become floats.
func numberLiteral(text string, isFloat bool) Value {
	t := strings.ReplaceAll(text, "_", "")
	if strings.HasSuffix(t, "j") || strings.HasSuffix(t, "J") {
		v, err := strconv.ParseFloat(t[:len(t)-1], 64)
		if err != nil {
			return &Opaque{Desc: "imaginary literal"}
		}
		return Complex(complex(0, v))
	}
	if isFloat {
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return &Opaque{Desc: "float literal"}
		}
		return Float(v)
	}

	if i, err := strconv.ParseInt(t, 0, 64); err == nil {
		return Int(i)
	}
	if n, ok := new(big.Int).SetString(t, 0); ok {
		f, _ := new(big.Float).SetInt(n).Float64()
		return Float(f)
	}
	return &Opaque{Desc: "integer literal"}
}

// stringLiteral decodes a string node from its source text. Formatted
// strings are not evaluated.
func (s *source) stringLiteral(n *sitter.Node) Value {
	text := s.text(n)
	i := strings.IndexAny(text, `'"`)
	if i < 0 {
		return &Opaque{Desc: "string"}
	}
	prefix := strings.ToLower(text[:i])
	if strings.Contains(prefix, "f") {
		return &Opaque{Desc: "formatted string"}
	}

	body := text[i:]
	quote := body[:1]
	if len(body) >= 6 && strings.HasPrefix(body, strings.Repeat(quote, 3)) {
		quote = strings.Repeat(quote, 3)
	}
	body = strings.TrimSuffix(strings.TrimPrefix(body, quote), quote)
	if strings.Contains(prefix, "r") {
		return Str(body)
	}
	return Str(unescape(body, strings.Contains(prefix, "b")))
}

// unescape resolves backslash escapes. Unknown escapes are kept verbatim.
func unescape(s string, bytes bool) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := s[i]; e {
		case '\n':
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\\', '\'', '"':
			b.WriteByte(e)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			end := i + 1
			for end < len(s) && end < i+3 && s[end] >= '0' && s[end] <= '7' {
				end++
			}
			v, _ := strconv.ParseUint(s[i:end], 8, 32)
			writeCode(&b, rune(v), bytes)
			i = end - 1
		case 'x', 'u', 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[e]
			if (bytes && e != 'x') || i+width >= len(s) {
				b.WriteByte('\\')
				b.WriteByte(e)
				continue
			}
			v, err := strconv.ParseUint(s[i+1:i+1+width], 16, 32)
			if err != nil || !utf8.ValidRune(rune(v)) {
				b.WriteByte('\\')
				b.WriteByte(e)
				continue
			}
			writeCode(&b, rune(v), bytes)
			i += width
		default:
			b.WriteByte('\\')
			b.WriteByte(e)
		}
	}
	return b.String()
}

func writeCode(b *strings.Builder, r rune, bytes bool) {
	if bytes && r < 256 {
		b.WriteByte(byte(r))
		return
	}
	b.WriteRune(r)
}
