// # internal/engine/namespace/types.go
package namespace

import (
	"qxsense/internal/shared/util"
	"strings"
)

type NodeKind int

const (
	KindNotFound NodeKind = iota
	KindPackage
	KindClass
)

func (k NodeKind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindClass:
		return "class"
	default:
		return "not_found"
	}
}

type MemberKind string

const (
	MemberMethod   MemberKind = "function"
	MemberVariable MemberKind = "variable"
)

type Access string

const (
	AccessPublic    Access = "public"
	AccessProtected Access = "protected"
	AccessPrivate   Access = "private"
)

// Position is a point in a source file. Index is a byte offset.
type Position struct {
	Line   int
	Column int
	Index  int
}

type Span struct {
	Start Position
	End   Position
}

// Contains reports whether offset lies within the span, both ends inclusive.
func (s *Span) Contains(offset int) bool {
	if s == nil {
		return false
	}
	return offset >= s.Start.Index && offset <= s.End.Index
}

type Param struct {
	Name        string
	Type        string
	Description string
}

type MemberRecord struct {
	Name           string
	Kind           MemberKind
	Access         Access
	Span           *Span
	Params         []Param
	HasParamDocs   bool
	ReturnType     string
	DocumentedType string
	Description    string
	OverriddenFrom string
	InheritedFrom  string
	MixinSource    string
	Synthesized    bool
}

// Param returns the documented parameter with the given name.
func (m *MemberRecord) Param(name string) (Param, bool) {
	if m == nil {
		return Param{}, false
	}
	for _, p := range m.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

func (m *MemberRecord) clone() *MemberRecord {
	out := *m
	if len(m.Params) > 0 {
		out.Params = append([]Param(nil), m.Params...)
	}
	if m.Span != nil {
		span := *m.Span
		out.Span = &span
	}
	return &out
}

type PropertyRecord struct {
	Name           string
	DocumentedType string
	Check          string
	Nullable       bool
	Event          string
	Description    string
	Span           *Span
	InheritedFrom  string
}

// Type is the declared type of the property: the check when it names a
// type, else the documented @type.
func (p *PropertyRecord) Type() string {
	if p == nil {
		return ""
	}
	if p.Check != "" && isTypeName(p.Check) {
		return p.Check
	}
	return p.DocumentedType
}

// ChangeEvent is the name of the event fired when the property changes.
func (p *PropertyRecord) ChangeEvent() string {
	if p.Event != "" {
		return p.Event
	}
	return "change" + FirstUp(p.Name)
}

type ClassRecord struct {
	Name        string
	Type        string
	SuperClass  string
	Mixins      []string
	IsSingleton bool
	Constructor *MemberRecord
	Members     map[string]*MemberRecord
	Statics     map[string]*MemberRecord
	Properties  map[string]*PropertyRecord
	Span        *Span
	SourcePath  string
	Description string
}

// Member looks a name up in members, then statics.
func (c *ClassRecord) Member(name string) (*MemberRecord, bool) {
	if c == nil {
		return nil, false
	}
	if m, ok := c.Members[name]; ok {
		return m, true
	}
	m, ok := c.Statics[name]
	return m, ok
}

// Static looks a name up in statics, then members.
func (c *ClassRecord) Static(name string) (*MemberRecord, bool) {
	if c == nil {
		return nil, false
	}
	if m, ok := c.Statics[name]; ok {
		return m, true
	}
	m, ok := c.Members[name]
	return m, ok
}

// ChangeEvents lists change<Name> markers for every property, sorted.
func (c *ClassRecord) ChangeEvents() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.Properties))
	for _, name := range util.SortedStringKeys(c.Properties) {
		out = append(out, c.Properties[name].ChangeEvent())
	}
	return out
}

// shallowClone copies the record and its maps; member values are shared until
// replaced.
func (c *ClassRecord) shallowClone() *ClassRecord {
	out := *c
	out.Mixins = append([]string(nil), c.Mixins...)
	out.Members = make(map[string]*MemberRecord, len(c.Members))
	for k, v := range c.Members {
		out.Members[k] = v
	}
	out.Statics = make(map[string]*MemberRecord, len(c.Statics))
	for k, v := range c.Statics {
		out.Statics[k] = v
	}
	out.Properties = make(map[string]*PropertyRecord, len(c.Properties))
	for k, v := range c.Properties {
		out.Properties[k] = v
	}
	return &out
}

type Child struct {
	Name string
	Kind NodeKind
}

type LookupResult struct {
	Kind     NodeKind
	Name     string
	Children []Child
	Record   *ClassRecord
}

func (r LookupResult) Found() bool {
	return r.Kind != KindNotFound
}

// SplitName splits a qualified name into segments. It returns nil when any
// segment is empty.
func SplitName(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	parts := strings.Split(name, ".")
	for _, p := range parts {
		if p == "" {
			return nil
		}
	}
	return parts
}

func FirstUp(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func FirstDown(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// StripTemplateArgs removes generic decoration such as "qx.data.Array<String>".
func StripTemplateArgs(typeName string) string {
	start := strings.Index(typeName, "<")
	if start < 0 {
		return strings.TrimSpace(typeName)
	}
	end := strings.LastIndex(typeName, ">")
	if end < start {
		return strings.TrimSpace(typeName[:start])
	}
	return strings.TrimSpace(typeName[:start] + typeName[end+1:])
}

func isTypeName(s string) bool {
	parts := SplitName(s)
	if parts == nil {
		return false
	}
	for _, p := range parts {
		for i, r := range p {
			switch {
			case r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			case i > 0 && r >= '0' && r <= '9':
			default:
				return false
			}
		}
	}
	return true
}
