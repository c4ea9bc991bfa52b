package kmlparse

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/stronnag/kml2cot/pkg/types"
)

// Repair is an idempotent textual fix. Apply returns the new buffer and the
// number of changes made; zero means the input was returned untouched.
type Repair struct {
	Kind    types.WarningKind
	Message string
	Apply   func([]byte) ([]byte, int)
}

// Repairs are tried in this order, each at most once.
var Repairs = []Repair{
	{types.EscapedAmpersand, "escaped %d bare ampersand(s)", EscapeAmpersands},
	{types.ClosedTags, "made %d tag fix(es) to balance the element tree", CloseTags},
	{types.RecodedUTF8, "recoded document to UTF-8 (%d change(s))", RecodeUTF8},
}

var (
	commentOpen  = []byte("<!--")
	commentClose = []byte("-->")
	cdataOpen    = []byte("<![CDATA[")
	cdataClose   = []byte("]]>")
)

var predefined = []string{"amp;", "lt;", "gt;", "quot;", "apos;"}

func knownEntity(rest []byte) bool {
	for _, e := range predefined {
		if bytes.HasPrefix(rest, []byte(e)) {
			return true
		}
	}
	if len(rest) < 3 || rest[0] != '#' {
		return false
	}
	digits := rest[1:]
	isDigit := func(c byte) bool { return c >= '0' && c <= '9' }
	if digits[0] == 'x' || digits[0] == 'X' {
		digits = digits[1:]
		isDigit = func(c byte) bool {
			return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		}
	}
	n := 0
	for n < len(digits) && isDigit(digits[n]) {
		n++
	}
	return n > 0 && n < len(digits) && digits[n] == ';'
}

// skipSection copies a comment or CDATA section verbatim. It returns the
// index after the section, or -1 when data[i:] does not start one, and
// whether the section was terminated.
func skipSection(out *bytes.Buffer, data []byte, i int) (int, bool) {
	for _, s := range [][2][]byte{{commentOpen, commentClose}, {cdataOpen, cdataClose}} {
		if bytes.HasPrefix(data[i:], s[0]) {
			end := bytes.Index(data[i+len(s[0]):], s[1])
			if end < 0 {
				out.Write(data[i:])
				out.Write(s[1])
				return len(data), false
			}
			stop := i + len(s[0]) + end + len(s[1])
			out.Write(data[i:stop])
			return stop, true
		}
	}
	return -1, true
}

// EscapeAmpersands escapes every '&' that does not start a predefined or
// numeric character reference. Comments and CDATA are left alone.
func EscapeAmpersands(data []byte) ([]byte, int) {
	if bytes.IndexByte(data, '&') < 0 {
		return data, 0
	}
	var out bytes.Buffer
	out.Grow(len(data) + 16)
	n := 0
	for i := 0; i < len(data); {
		if data[i] == '<' {
			if j, _ := skipSection(&out, data, i); j >= 0 {
				i = j
				continue
			}
		}
		if data[i] == '&' && !knownEntity(data[i+1:]) {
			out.WriteString("&amp;")
			n++
			i++
			continue
		}
		out.WriteByte(data[i])
		i++
	}
	if n == 0 {
		return data, 0
	}
	return out.Bytes(), n
}

func isNameStart(c byte) bool {
	return c == '_' || c == ':' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c == '-' || c == '.' || (c >= '0' && c <= '9')
}

// tagEnd finds the '>' closing the tag that starts at i, honouring quoted
// attribute values.
func tagEnd(data []byte, i int) int {
	var quote byte
	for j := i + 1; j < len(data); j++ {
		c := data[j]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return j
		}
	}
	return -1
}

// CloseTags balances the element tree with a stack scan: an end tag closes
// any elements still open inside it, a stray end tag is dropped, a bare '<'
// in text is escaped, and elements open at the end are closed.
func CloseTags(data []byte) ([]byte, int) {
	var out bytes.Buffer
	out.Grow(len(data) + 64)
	var stack []string
	n := 0

	for i := 0; i < len(data); {
		c := data[i]
		if c != '<' {
			out.WriteByte(c)
			i++
			continue
		}
		if j, closed := skipSection(&out, data, i); j >= 0 {
			if !closed {
				n++
			}
			i = j
			continue
		}
		rest := data[i+1:]
		switch {
		case len(rest) > 0 && (rest[0] == '?' || rest[0] == '!'):
			end := tagEnd(data, i)
			if end < 0 {
				n++
				i = len(data)
				continue
			}
			out.Write(data[i : end+1])
			i = end + 1

		case len(rest) > 1 && rest[0] == '/' && isNameStart(rest[1]):
			end := tagEnd(data, i)
			if end < 0 {
				n++
				i = len(data)
				continue
			}
			name := strings.TrimSpace(string(data[i+2 : end]))
			pos := -1
			for k := len(stack) - 1; k >= 0; k-- {
				if stack[k] == name {
					pos = k
					break
				}
			}
			if pos < 0 {
				n++
			} else {
				for k := len(stack) - 1; k > pos; k-- {
					out.WriteString("</" + stack[k] + ">")
					n++
				}
				stack = stack[:pos]
				out.Write(data[i : end+1])
			}
			i = end + 1

		case len(rest) > 0 && isNameStart(rest[0]):
			end := tagEnd(data, i)
			if end < 0 {
				n++
				i = len(data)
				continue
			}
			k := 1
			for k < len(rest) && isNameChar(rest[k]) {
				k++
			}
			name := string(rest[:k])
			if data[end-1] != '/' {
				stack = append(stack, name)
			}
			out.Write(data[i : end+1])
			i = end + 1

		default:
			out.WriteString("&lt;")
			n++
			i++
		}
	}
	for k := len(stack) - 1; k >= 0; k-- {
		out.WriteString("</" + stack[k] + ">")
		n++
	}
	if n == 0 {
		return data, 0
	}
	return out.Bytes(), n
}

var (
	xmlDecl  = regexp.MustCompile(`^\s*<\?xml[^>]*\?>`)
	encAttr  = regexp.MustCompile(`encoding\s*=\s*["']([^"']*)["']`)
	bomUTF8  = []byte{0xef, 0xbb, 0xbf}
	bomUTF16 = map[string][]byte{"utf-16le": {0xff, 0xfe}, "utf-16be": {0xfe, 0xff}}
)

func declaredEncoding(data []byte) (string, []int) {
	loc := xmlDecl.FindIndex(data)
	if loc == nil {
		return "", nil
	}
	m := encAttr.FindSubmatchIndex(data[loc[0]:loc[1]])
	if m == nil {
		return "", nil
	}
	return string(data[loc[0]+m[2] : loc[0]+m[3]]), []int{loc[0] + m[0], loc[0] + m[1]}
}

func isUTF8Label(s string) bool {
	return strings.EqualFold(s, "utf-8") || strings.EqualFold(s, "utf8")
}

func transcode(data []byte, label string) ([]byte, bool) {
	r, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, false
	}
	return out, true
}

// RecodeUTF8 strips byte order marks, transcodes a declared non-UTF-8
// encoding (or, for undeclared invalid UTF-8, windows-1252) and rewrites the
// declaration to UTF-8.
func RecodeUTF8(data []byte) ([]byte, int) {
	n := 0
	recoded := false
	if bytes.HasPrefix(data, bomUTF8) {
		data = data[len(bomUTF8):]
		n++
	}
	for label, bom := range bomUTF16 {
		if bytes.HasPrefix(data, bom) {
			if out, ok := transcode(data[len(bom):], label); ok {
				data = out
				recoded = true
				n++
			}
			break
		}
	}

	if enc, _ := declaredEncoding(data); !recoded && enc != "" && !isUTF8Label(enc) {
		if out, ok := transcode(data, enc); ok {
			data = out
			recoded = true
			n++
		}
	}
	if !recoded && !utf8.Valid(data) {
		if out, ok := transcode(data, "windows-1252"); ok {
			data = out
			n++
		}
	}

	if enc, loc := declaredEncoding(data); enc != "" && !isUTF8Label(enc) {
		fixed := make([]byte, 0, len(data))
		fixed = append(fixed, data[:loc[0]]...)
		fixed = append(fixed, `encoding="UTF-8"`...)
		fixed = append(fixed, data[loc[1]:]...)
		data = fixed
		n++
	}
	return data, n
}
