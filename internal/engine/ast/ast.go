// Package ast is the closed set of expression shapes the type resolver
// understands. Offsets are byte offsets into the parsed snippet.
package ast

// Expr is implemented only by the node types in this package.
type Expr interface {
	Span() (start, end int)
	Source() string
	expr()
}

// Node carries what every expression has: its text and where it sits.
type Node struct {
	Text  string
	Start int
	End   int
}

func (n Node) Span() (int, int) { return n.Start, n.End }
func (n Node) Source() string   { return n.Text }
func (Node) expr()              {}

type Ident struct {
	Node
	Name string
}

// Member is `Object.Property` or, when Optional, `Object?.Property`.
type Member struct {
	Node
	Object   Expr
	Property string
	Optional bool
}

// Call is `Callee(Args...)`; Optional marks `Callee?.(...)`.
type Call struct {
	Node
	Callee   Expr
	Args     []Expr
	Optional bool
}

// New is `new Constructor(Args...)`.
type New struct {
	Node
	Constructor Expr
	Args        []Expr
}

type This struct {
	Node
}

type Super struct {
	Node
}

// Other stands for any argument shape the resolver never inspects
// (literals, arrows, operators).
type Other struct {
	Node
	Kind string
}

// QualifiedName returns the dotted path an Ident or chain of non-optional
// Members spells, or "" when e is not such a chain.
func QualifiedName(e Expr) string {
	switch n := e.(type) {
	case *Ident:
		return n.Name
	case *Member:
		if n.Optional {
			return ""
		}
		left := QualifiedName(n.Object)
		if left == "" {
			return ""
		}
		return left + "." + n.Property
	default:
		return ""
	}
}
