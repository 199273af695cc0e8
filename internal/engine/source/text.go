// Package source holds the small text helpers shared by the scanner, the
// resolver and the features: bracket matching, identifier bytes and the
// class-definition idiom.
package source

var closerFor = map[byte]byte{'(': ')', '[': ']', '{': '}'}

func isCloser(b byte) bool {
	return b == ')' || b == ']' || b == '}'
}

func isOpener(b byte) bool {
	return b == '(' || b == '[' || b == '{'
}

// IsIdentByte reports whether b may appear in an identifier.
func IsIdentByte(b byte) bool {
	return b == '_' || b == '$' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

func IsDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// MatchBackward returns the index of the bracket opening the one at close,
// or -1 when brackets are unbalanced or mismatched. String contents are not
// special.
func MatchBackward(src string, close int) int {
	if close < 0 || close >= len(src) || !isCloser(src[close]) {
		return -1
	}
	stack := make([]byte, 0, 8)
	for i := close; i >= 0; i-- {
		b := src[i]
		switch {
		case isCloser(b):
			stack = append(stack, b)
		case isOpener(b):
			top := stack[len(stack)-1]
			if closerFor[b] != top {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// WordStart moves pos back over identifier bytes.
func WordStart(src string, pos int) int {
	for pos > 0 && pos <= len(src) && IsIdentByte(src[pos-1]) {
		pos--
	}
	return pos
}

// WordEnd moves pos forward over identifier bytes.
func WordEnd(src string, pos int) int {
	if pos < 0 {
		return pos
	}
	for pos < len(src) && IsIdentByte(src[pos]) {
		pos++
	}
	return pos
}

// CallSite is the innermost unclosed call parenthesis before a cursor.
type CallSite struct {
	Open        int // offset of "("
	ActiveParam int // number of top-level commas between Open and the cursor
}

// EnclosingCall finds the innermost "(" before pos that is not closed before
// pos. Commas inside nested brackets are not counted; an unclosed "[" or "{"
// restarts the count since the cursor then sits inside a literal argument.
func EnclosingCall(src string, pos int) (CallSite, bool) {
	if pos > len(src) {
		pos = len(src)
	}
	depth := 0
	commas := 0
	for i := pos - 1; i >= 0; i-- {
		b := src[i]
		switch {
		case isCloser(b):
			depth++
		case isOpener(b):
			if depth > 0 {
				depth--
				continue
			}
			if b == '(' {
				return CallSite{Open: i, ActiveParam: commas}, true
			}
			commas = 0
		case b == ',' && depth == 0:
			commas++
		case b == ';' && depth == 0:
			return CallSite{}, false
		}
	}
	return CallSite{}, false
}
