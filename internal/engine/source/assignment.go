package source

import (
	"regexp"
	"strings"
)

// Assignment is a textual `name = expr;` found before an offset.
type Assignment struct {
	Start int // offset of the assigned name
	Expr  string
}

// LastAssignment returns the closest `name = expr;` that starts before
// offset. It is purely textual: scopes are ignored, and property writes such
// as `this.name = x;` do not count.
func LastAssignment(src, name string, offset int) (Assignment, bool) {
	if name == "" {
		return Assignment{}, false
	}
	if offset > len(src) {
		offset = len(src)
	}
	if offset <= 0 {
		return Assignment{}, false
	}
	re, err := regexp.Compile(regexp.QuoteMeta(name) + `\s*=\s*([^=>\s].*?);`)
	if err != nil {
		return Assignment{}, false
	}
	text := src[:offset]
	var best Assignment
	found := false
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		start := m[0]
		if start > 0 && (text[start-1] == '.' || IsIdentByte(text[start-1])) {
			continue
		}
		expr := strings.TrimSpace(text[m[2]:m[3]])
		if expr == "" {
			continue
		}
		best = Assignment{Start: start, Expr: expr}
		found = true
	}
	return best, found
}
