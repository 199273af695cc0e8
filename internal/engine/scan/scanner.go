// Package scan recovers the text of the expression that ends at a cursor.
package scan

import (
	"qxsense/internal/engine/source"
	"qxsense/internal/shared/observability"
)

// ExpressionSpan is the text of src between Start and End.
type ExpressionSpan struct {
	Start int
	End   int
	Text  string
}

var expression = buildGrammar()

// buildGrammar assembles
//
//	expr := expr "?."? group
//	      | expr ("?." | ".") ident
//	      | "new" space ident
//	      | ident
//
// A dot whose left side does not scan (spread, literals) falls through to
// the bare identifier.
func buildGrammar() Matcher {
	var expr Matcher
	self := Ref(&expr)
	dot := Alt(Lit("?."), Lit("."))

	expr = Alt(
		Seq(self, Opt(Lit("?.")), Group()),
		Seq(self, dot, Ident()),
		Seq(Word("new"), Space(), Ident()),
		Ident(),
	)
	return expr
}

// Scan returns the maximal expression ending exactly at pos, or nil.
func Scan(src string, pos int) *ExpressionSpan {
	if pos <= 0 || pos > len(src) {
		observability.ScanTotal.WithLabelValues("miss").Inc()
		return nil
	}
	start, ok := expression(src, pos)
	if !ok || start >= pos {
		observability.ScanTotal.WithLabelValues("miss").Inc()
		return nil
	}
	observability.ScanTotal.WithLabelValues("hit").Inc()
	return &ExpressionSpan{Start: start, End: pos, Text: src[start:pos]}
}

// ScanAround scans the expression ending at the end of the word under pos.
func ScanAround(src string, pos int) *ExpressionSpan {
	if pos < 0 || pos > len(src) {
		return nil
	}
	return Scan(src, source.WordEnd(src, pos))
}

// MemberAccess is `<object>.<partial>` ending at a cursor.
type MemberAccess struct {
	Object  ExpressionSpan
	Dot     int // offset of "." or "?."
	Partial string
}

// MemberAccessBefore recognises a member access being typed at pos. Partial
// may be empty when the cursor sits right after the dot.
func MemberAccessBefore(src string, pos int) (*MemberAccess, bool) {
	if pos < 0 || pos > len(src) {
		return nil, false
	}
	partialStart := source.WordStart(src, pos)
	dotStart, ok := Alt(Lit("?."), Lit("."))(src, partialStart)
	if !ok {
		return nil, false
	}
	obj := Scan(src, dotStart)
	if obj == nil {
		return nil, false
	}
	return &MemberAccess{
		Object:  *obj,
		Dot:     dotStart,
		Partial: src[partialStart:pos],
	}, true
}
