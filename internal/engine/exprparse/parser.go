// Package exprparse parses expression snippets with the tree-sitter
// JavaScript grammar and converts them to the resolver's AST.
package exprparse

import (
	"qxsense/internal/core/errors"
	"qxsense/internal/engine/ast"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
)

type Parser struct {
	pool *parserPool
}

func New() *Parser {
	lang := sitter.NewLanguage(tree_sitter_javascript.Language())
	return &Parser{pool: newParserPool(lang)}
}

// ParseExpression parses text as exactly one expression statement.
func (p *Parser) ParseExpression(text string) (ast.Expr, error) {
	if strings.TrimSpace(text) == "" {
		return nil, parseFailure(text, "empty expression")
	}
	src := []byte(text)

	sp := p.pool.get()
	defer p.pool.put(sp)

	tree := sp.Parse(src, nil)
	if tree == nil {
		return nil, parseFailure(text, "parser returned no tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		return nil, parseFailure(text, "syntax error")
	}

	var stmt *sitter.Node
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		if stmt != nil || child.Kind() != "expression_statement" {
			return nil, parseFailure(text, "not a single expression")
		}
		stmt = child
	}
	if stmt == nil || stmt.NamedChildCount() != 1 {
		return nil, parseFailure(text, "not a single expression")
	}

	c := converter{src: src, text: text}
	return c.convert(stmt.NamedChild(0))
}

type converter struct {
	src  []byte
	text string
}

func (c *converter) node(n *sitter.Node) ast.Node {
	start, end := int(n.StartByte()), int(n.EndByte())
	return ast.Node{Text: string(c.src[start:end]), Start: start, End: end}
}

// optionalBetween reports whether "?." sits between two sibling nodes.
func (c *converter) optionalBetween(n, left, right *sitter.Node) bool {
	if n.ChildByFieldName("optional_chain") != nil {
		return true
	}
	if left == nil || right == nil {
		return false
	}
	from, to := int(left.EndByte()), int(right.StartByte())
	if from >= to {
		return false
	}
	return strings.Contains(string(c.src[from:to]), "?.")
}

func (c *converter) convert(n *sitter.Node) (ast.Expr, error) {
	if n == nil || n.IsError() || n.IsMissing() {
		return nil, parseFailure(c.text, "incomplete expression")
	}
	base := c.node(n)

	switch n.Kind() {
	case "identifier":
		return &ast.Ident{Node: base, Name: base.Text}, nil

	case "this":
		return &ast.This{Node: base}, nil

	case "super":
		return &ast.Super{Node: base}, nil

	case "parenthesized_expression":
		if n.NamedChildCount() != 1 {
			return nil, parseFailure(c.text, "sequence expressions are not supported")
		}
		return c.convert(n.NamedChild(0))

	case "member_expression":
		objNode := n.ChildByFieldName("object")
		propNode := n.ChildByFieldName("property")
		if propNode == nil {
			return nil, parseFailure(c.text, "member access without property")
		}
		obj, err := c.convert(objNode)
		if err != nil {
			return nil, err
		}
		return &ast.Member{
			Node:     base,
			Object:   obj,
			Property: c.node(propNode).Text,
			Optional: c.optionalBetween(n, objNode, propNode),
		}, nil

	case "call_expression":
		fnNode := n.ChildByFieldName("function")
		argsNode := n.ChildByFieldName("arguments")
		callee, err := c.convert(fnNode)
		if err != nil {
			return nil, err
		}
		return &ast.Call{
			Node:     base,
			Callee:   callee,
			Args:     c.arguments(argsNode),
			Optional: c.optionalBetween(n, fnNode, argsNode),
		}, nil

	case "new_expression":
		ctorNode := n.ChildByFieldName("constructor")
		ctor, err := c.convert(ctorNode)
		if err != nil {
			return nil, err
		}
		return &ast.New{
			Node:        base,
			Constructor: ctor,
			Args:        c.arguments(n.ChildByFieldName("arguments")),
		}, nil

	default:
		return nil, errors.AddContext(
			parseFailure(c.text, "unsupported expression kind "+n.Kind()),
			errors.CtxOperation, "convert")
	}
}

// arguments converts call arguments; shapes the resolver ignores become
// ast.Other rather than failing the whole call.
func (c *converter) arguments(n *sitter.Node) []ast.Expr {
	if n == nil || n.Kind() != "arguments" {
		return nil
	}
	out := make([]ast.Expr, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		if e, err := c.convert(child); err == nil {
			out = append(out, e)
			continue
		}
		out = append(out, &ast.Other{Node: c.node(child), Kind: child.Kind()})
	}
	return out
}

func parseFailure(text, msg string) error {
	return errors.AddContext(errors.New(errors.CodeParseFailure, msg), errors.CtxExpression, text)
}
