package scan

import (
	"qxsense/internal/engine/source"
	"unicode"
)

// Matcher consumes text backward from end. On success it returns the offset
// where the match starts; end itself is never exceeded.
type Matcher func(src string, end int) (start int, ok bool)

// Lit matches s ending exactly at end.
func Lit(s string) Matcher {
	return func(src string, end int) (int, bool) {
		start := end - len(s)
		if start < 0 || end > len(src) || src[start:end] != s {
			return 0, false
		}
		return start, true
	}
}

// Word is Lit with an identifier boundary before the match.
func Word(s string) Matcher {
	lit := Lit(s)
	return func(src string, end int) (int, bool) {
		start, ok := lit(src, end)
		if !ok || (start > 0 && source.IsIdentByte(src[start-1])) {
			return 0, false
		}
		return start, true
	}
}

// Space matches one or more whitespace bytes.
func Space() Matcher {
	return func(src string, end int) (int, bool) {
		start := end
		for start > 0 && start <= len(src) && unicode.IsSpace(rune(src[start-1])) {
			start--
		}
		return start, start < end
	}
}

// Ident matches the longest identifier ending at end. Leading digits are
// dropped so "3abc" yields "abc"; an all-digit run does not match.
func Ident() Matcher {
	return func(src string, end int) (int, bool) {
		if end > len(src) {
			return 0, false
		}
		start := source.WordStart(src, end)
		for start < end && source.IsDigit(src[start]) {
			start++
		}
		return start, start < end
	}
}

// Group matches a balanced (...), [...] or {...} ending at end.
func Group() Matcher {
	return func(src string, end int) (int, bool) {
		if end <= 0 || end > len(src) {
			return 0, false
		}
		open := source.MatchBackward(src, end-1)
		if open < 0 {
			return 0, false
		}
		return open, true
	}
}

// Opt always succeeds, consuming m when it matches.
func Opt(m Matcher) Matcher {
	return func(src string, end int) (int, bool) {
		if start, ok := m(src, end); ok {
			return start, true
		}
		return end, true
	}
}

// Seq matches ms in order; being backward, the last one is tried first.
// There is no backtracking into earlier choices.
func Seq(ms ...Matcher) Matcher {
	return func(src string, end int) (int, bool) {
		pos := end
		for i := len(ms) - 1; i >= 0; i-- {
			start, ok := ms[i](src, pos)
			if !ok {
				return 0, false
			}
			pos = start
		}
		return pos, true
	}
}

// Alt returns the first alternative that matches.
func Alt(ms ...Matcher) Matcher {
	return func(src string, end int) (int, bool) {
		for _, m := range ms {
			if start, ok := m(src, end); ok {
				return start, true
			}
		}
		return 0, false
	}
}

// Ref defers to *m at match time so grammars can refer to themselves.
func Ref(m *Matcher) Matcher {
	return func(src string, end int) (int, bool) {
		return (*m)(src, end)
	}
}
