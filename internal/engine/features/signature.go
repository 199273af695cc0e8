package features

import (
	"qxsense/internal/engine/ast"
	"qxsense/internal/engine/namespace"
	"qxsense/internal/engine/scan"
	"qxsense/internal/engine/source"
	"strings"
	"time"
)

type SignatureHelp struct {
	Label         string            `json:"label"`
	Params        []namespace.Param `json:"params,omitempty"`
	ActiveParam   int               `json:"activeParam"`
	ReturnType    string            `json:"returnType,omitempty"`
	Documentation string            `json:"documentation,omitempty"`
	Class         string            `json:"class"`
}

// Signature describes the call whose argument list contains pos.
func (s *Service) Signature(src string, pos int) *SignatureHelp {
	defer observe("signature", time.Now())

	site, ok := source.EnclosingCall(src, clamp(pos, len(src)))
	if !ok {
		return nil
	}
	calleeEnd := site.Open
	if strings.HasSuffix(src[:calleeEnd], "?.") {
		calleeEnd -= 2
	}
	callee := scan.Scan(src, calleeEnd)
	if callee == nil {
		return nil
	}
	e, err := s.parser.ParseExpression(callee.Text)
	if err != nil {
		return nil
	}

	var (
		class  string
		method *namespace.MemberRecord
	)
	switch n := e.(type) {
	case *ast.New:
		class = ast.QualifiedName(n.Constructor)
		view, err := s.db.FullClassView(class)
		if err != nil {
			return nil
		}
		method = view.Constructor
		if method == nil {
			method = &namespace.MemberRecord{Name: "construct", Kind: namespace.MemberMethod}
		}
	case *ast.Member:
		obj := s.resolver.Resolve(src, callee.Start, n.Object.Source())
		if !obj.IsObject() {
			return nil
		}
		class, method = s.documentedMethod(obj.TypeName, n.Property)
		if method == nil {
			return nil
		}
	default:
		return nil
	}

	name := method.Name
	if name == "construct" {
		name = class
	}
	return &SignatureHelp{
		Label:         signatureLabel(name, method.Params, method.ReturnType),
		Params:        method.Params,
		ActiveParam:   site.ActiveParam,
		ReturnType:    method.ReturnType,
		Documentation: method.Description,
		Class:         class,
	}
}

// documentedMethod finds name on class, walking overriddenFrom until a
// version with parameter documentation turns up. The first match is kept
// when no version documents its parameters.
func (s *Service) documentedMethod(class, name string) (string, *namespace.MemberRecord) {
	var (
		firstClass string
		first      *namespace.MemberRecord
	)
	visited := make(map[string]bool)
	for class != "" && !visited[class] {
		visited[class] = true
		view, err := s.db.FullClassView(class)
		if err != nil {
			break
		}
		m, ok := view.Member(name)
		if !ok {
			break
		}
		owner := class
		if m.InheritedFrom != "" {
			owner = m.InheritedFrom
		}
		if first == nil {
			firstClass, first = owner, m
		}
		if m.HasParamDocs || len(m.Params) > 0 {
			return owner, m
		}
		class = m.OverriddenFrom
	}
	return firstClass, first
}

func signatureLabel(name string, params []namespace.Param, ret string) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		if p.Type != "" {
			b.WriteString(": ")
			b.WriteString(p.Type)
		}
	}
	b.WriteByte(')')
	if ret != "" {
		b.WriteString(": ")
		b.WriteString(ret)
	}
	return b.String()
}
