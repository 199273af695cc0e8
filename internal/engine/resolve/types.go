package resolve

import (
	"qxsense/internal/engine/namespace"
	"strings"
)

type Category string

const (
	CategoryPackage  Category = "package"
	CategoryClass    Category = "class"
	CategoryInstance Category = "instance"
	CategoryFunction Category = "function"
)

// TypeInfo is the symbolic type of an expression. Function values keep the
// documented parameters next to the return type.
type TypeInfo struct {
	Category   Category          `json:"category"`
	TypeName   string            `json:"typeName,omitempty"`
	ReturnType *TypeInfo         `json:"returnType,omitempty"`
	Params     []namespace.Param `json:"params,omitempty"`
}

func Package(name string) *TypeInfo {
	return &TypeInfo{Category: CategoryPackage, TypeName: name}
}

func Class(name string) *TypeInfo {
	return &TypeInfo{Category: CategoryClass, TypeName: name}
}

func Instance(name string) *TypeInfo {
	return &TypeInfo{Category: CategoryInstance, TypeName: name}
}

func Function(ret *TypeInfo, params []namespace.Param) *TypeInfo {
	return &TypeInfo{Category: CategoryFunction, ReturnType: ret, Params: params}
}

func (t *TypeInfo) String() string {
	if t == nil {
		return "unknown"
	}
	switch t.Category {
	case CategoryFunction:
		return "Function(" + t.ReturnType.String() + ")"
	default:
		return namespace.FirstUp(string(t.Category)) + "(" + t.TypeName + ")"
	}
}

// IsObject reports whether members can be looked up on t.
func (t *TypeInfo) IsObject() bool {
	return t != nil && (t.Category == CategoryClass || t.Category == CategoryInstance)
}

// documentedType turns a documentation type into a class name: generic
// arguments are stripped and, for unions, the first alternative that is not
// null or undefined wins.
func documentedType(raw string) string {
	t := namespace.StripTemplateArgs(raw)
	if !strings.Contains(t, "|") {
		return t
	}
	for _, alt := range strings.Split(t, "|") {
		alt = strings.TrimSpace(alt)
		if alt != "" && alt != "null" && alt != "undefined" {
			return alt
		}
	}
	return ""
}
