package features

import (
	"qxsense/internal/engine/ast"
	"qxsense/internal/engine/namespace"
	"qxsense/internal/engine/scan"
	"strings"
	"time"
)

// Location points at a declaration.
type Location struct {
	Class string          `json:"class"`
	Path  string          `json:"path,omitempty"`
	Span  *namespace.Span `json:"span,omitempty"`
}

var accessorPrefixes = []string{"get", "set", "reset", "is", "toggle"}

// Define finds the declaration of the class or member under pos.
func (s *Service) Define(src string, pos int) *Location {
	defer observe("define", time.Now())

	span := scan.ScanAround(src, pos)
	if span == nil {
		return nil
	}
	text := strings.TrimSpace(span.Text)
	if rest, ok := strings.CutPrefix(text, "new"); ok && rest != strings.TrimLeft(rest, " \t\r\n") {
		text = strings.TrimSpace(rest)
	}

	if rec, ok := s.db.Record(text); ok {
		return &Location{Class: rec.Name, Path: s.locate(rec.Name), Span: rec.Span}
	}

	e, err := s.parser.ParseExpression(text)
	if err != nil {
		return nil
	}
	m, ok := e.(*ast.Member)
	if !ok {
		return nil
	}
	obj := s.resolver.Resolve(src, span.Start, m.Object.Source())
	if !obj.IsObject() {
		return nil
	}
	view, err := s.db.FullClassView(obj.TypeName)
	if err != nil {
		return nil
	}
	return s.memberLocation(view, m.Property)
}

func (s *Service) memberLocation(view *namespace.ClassRecord, name string) *Location {
	member, ok := view.Member(name)
	if !ok {
		return nil
	}
	if member.Synthesized {
		if prop := accessorProperty(view, name); prop != nil {
			owner := view.Name
			if prop.InheritedFrom != "" {
				owner = prop.InheritedFrom
			}
			return &Location{Class: owner, Path: s.locate(owner), Span: prop.Span}
		}
		return &Location{Class: view.Name, Path: s.locate(view.Name), Span: view.Span}
	}

	owner := view.Name
	switch {
	case member.InheritedFrom != "":
		owner = member.InheritedFrom
	case member.MixinSource != "":
		owner = member.MixinSource
	}
	return &Location{Class: owner, Path: s.locate(owner), Span: member.Span}
}

// accessorProperty maps a synthesized accessor name back to its property.
func accessorProperty(view *namespace.ClassRecord, accessor string) *namespace.PropertyRecord {
	for _, prefix := range accessorPrefixes {
		rest, ok := strings.CutPrefix(accessor, prefix)
		if !ok || rest == "" {
			continue
		}
		if p, ok := view.Properties[namespace.FirstDown(rest)]; ok {
			return p
		}
	}
	return nil
}
