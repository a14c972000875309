package parser

import (
	"math"
	"strconv"
	"strings"
)

// columnGap is the spacing, in thousandths of text space, above which two
// glyphs in a text-show operation are treated as separate table cells.
const columnGap = 500

// ExtractTextItems walks a page content stream and returns the shown text as
// an ordered list of items. An empty item marks a line break: it is emitted on
// Tm, T*, ' and " and on Td/TD moves with a vertical component.
func ExtractTextItems(stream []byte) []string {
	var (
		items    []string
		operands []token
		tc       float64 // character spacing (Tc), text space units
	)
	lastString := func() (string, bool) {
		if n := len(operands); n > 0 && operands[n-1].kind == tokString {
			return operands[n-1].value, true
		}
		return "", false
	}

	for _, t := range tokenize(string(stream)) {
		if t.kind != tokOperator {
			operands = append(operands, t)
			continue
		}

		switch t.value {
		case "Tj":
			if s, ok := lastString(); ok {
				items = append(items, showString(s, tc*1000)...)
			}
		case "'", "\"":
			items = append(items, "")
			if s, ok := lastString(); ok {
				items = append(items, showString(s, tc*1000)...)
			}
		case "TJ":
			if n := len(operands); n > 0 && operands[n-1].kind == tokArray {
				items = append(items, splitTJ(operands[n-1].children, tc*1000)...)
			}
		case "Td", "TD":
			if n := len(operands); n >= 2 {
				if ty, err := strconv.ParseFloat(operands[n-1].value, 64); err == nil && ty != 0 {
					items = append(items, "")
				}
			}
		case "Tm", "T*":
			items = append(items, "")
		case "Tc":
			if n := len(operands); n > 0 {
				if v, err := strconv.ParseFloat(operands[n-1].value, 64); err == nil {
					tc = v
				}
			}
		}
		operands = operands[:0]
	}

	return items
}

// showString handles a plain string show. With wide character spacing every
// glyph lands in its own column, so each one becomes a separate item.
func showString(s string, tcThousandths float64) []string {
	if math.Abs(tcThousandths) <= columnGap {
		return []string{s}
	}
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// splitTJ joins the glyphs of a TJ array into cells. The gap between two
// glyphs is the character spacing minus any TJ adjustment placed between
// them; a gap wider than columnGap starts a new cell.
func splitTJ(children []token, tcThousandths float64) []string {
	var (
		items []string
		cur   strings.Builder
		gap   float64
	)
	for _, c := range children {
		switch c.kind {
		case tokString:
			for _, r := range c.value {
				if cur.Len() > 0 && math.Abs(gap) > columnGap {
					items = append(items, cur.String())
					cur.Reset()
				}
				cur.WriteRune(r)
				gap = tcThousandths
			}
		case tokNumber:
			if v, err := strconv.ParseFloat(c.value, 64); err == nil {
				gap -= v
			}
		}
	}
	if cur.Len() > 0 {
		items = append(items, cur.String())
	}
	return items
}

type tokenKind int

const (
	tokString   tokenKind = iota // (text)
	tokNumber                    // 12, -4.5
	tokOperator                  // Tj, TJ, Td, ...
	tokArray                     // [...]; elements in children
)

type token struct {
	kind     tokenKind
	value    string
	children []token
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isNumberStart(c byte) bool {
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}

// readNumber returns the numeric literal starting at s[i] and the index
// after it.
func readNumber(s string, i int) (string, int) {
	start := i
	if s[i] == '-' || s[i] == '+' {
		i++
	}
	for i < len(s) && ((s[i] >= '0' && s[i] <= '9') || s[i] == '.') {
		i++
	}
	return s[start:i], i
}

// tokenize splits a content stream into the tokens ExtractTextItems needs.
// Names, dictionaries and hex strings are skipped.
func tokenize(s string) []token {
	var tokens []token
	n := len(s)

	for i := 0; i < n; {
		ch := s[i]
		switch {
		case isSpace(ch), ch == ']', ch == '>':
			i++

		case ch == '%':
			for i < n && s[i] != '\n' && s[i] != '\r' {
				i++
			}

		case ch == '(':
			str, end := readString(s, i)
			tokens = append(tokens, token{kind: tokString, value: str})
			i = end

		case ch == '[':
			arr, end := readArray(s, i)
			tokens = append(tokens, arr)
			i = end

		case isNumberStart(ch):
			num, end := readNumber(s, i)
			tokens = append(tokens, token{kind: tokNumber, value: num})
			i = end

		case ch == '/':
			i++
			for i < n && !isSpace(s[i]) && !strings.ContainsRune("/([<", rune(s[i])) {
				i++
			}

		case ch == '<':
			i++
			for depth := 1; i < n && depth > 0; i++ {
				switch s[i] {
				case '<':
					depth++
				case '>':
					depth--
				}
			}

		default:
			start := i
			for i < n && !isSpace(s[i]) && !strings.ContainsRune("([/<", rune(s[i])) {
				i++
			}
			if word := s[start:i]; word != "" {
				tokens = append(tokens, token{kind: tokOperator, value: word})
			}
		}
	}

	return tokens
}

// readString reads a literal string whose '(' is at s[pos] and returns its
// unescaped content and the index after the closing ')'.
func readString(s string, pos int) (string, int) {
	var buf strings.Builder
	n := len(s)
	depth := 1
	i := pos + 1

	for ; i < n && depth > 0; i++ {
		ch := s[i]
		switch {
		case ch == '\\' && i+1 < n:
			i++
			switch next := s[i]; next {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case '(', ')', '\\':
				buf.WriteByte(next)
			default:
				if next < '0' || next > '7' {
					buf.WriteByte(next)
					continue
				}
				oct := string(next)
				for j := 0; j < 2 && i+1 < n && s[i+1] >= '0' && s[i+1] <= '7'; j++ {
					i++
					oct += string(s[i])
				}
				v, _ := strconv.ParseInt(oct, 8, 32)
				buf.WriteByte(byte(v))
			}
		case ch == '(':
			depth++
			buf.WriteByte(ch)
		case ch == ')':
			depth--
			if depth > 0 {
				buf.WriteByte(ch)
			}
		default:
			buf.WriteByte(ch)
		}
	}

	return buf.String(), i
}

// readArray reads a TJ array whose '[' is at s[pos], keeping only strings and
// numbers.
func readArray(s string, pos int) (token, int) {
	var children []token
	n := len(s)
	i := pos + 1

	for i < n {
		ch := s[i]
		switch {
		case ch == ']':
			return token{kind: tokArray, children: children}, i + 1
		case ch == '(':
			str, end := readString(s, i)
			children = append(children, token{kind: tokString, value: str})
			i = end
		case isNumberStart(ch):
			num, end := readNumber(s, i)
			children = append(children, token{kind: tokNumber, value: num})
			i = end
		default:
			i++
		}
	}

	return token{kind: tokArray, children: children}, i
}
