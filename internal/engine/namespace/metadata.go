// # internal/engine/namespace/metadata.go
package namespace

import (
	"encoding/json"
	"log/slog"
	"qxsense/internal/core/errors"
	"regexp"
	"strings"
)

// Wire shapes of the compiler's per-class metadata files.

type rawPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Index  int `json:"index"`
}

type rawLocation struct {
	Start rawPosition `json:"start"`
	End   rawPosition `json:"end"`
}

type rawDocTag struct {
	Name        string          `json:"name"`
	Body        string          `json:"body"`
	ParamName   string          `json:"paramName"`
	Type        json.RawMessage `json:"type"`
	Description string          `json:"description"`
	Desc        string          `json:"desc"`
}

type rawJSDoc map[string][]rawDocTag

type rawMember struct {
	Type           string          `json:"type"`
	Access         string          `json:"access"`
	Location       *rawLocation    `json:"location"`
	JSDoc          json.RawMessage `json:"jsdoc"`
	OverriddenFrom string          `json:"overriddenFrom"`
	InheritedFrom  string          `json:"inheritedFrom"`
	Mixin          string          `json:"mixin"`
}

type rawPropertyJSON struct {
	Check    json.RawMessage `json:"check"`
	Nullable bool            `json:"nullable"`
	Event    string          `json:"event"`
}

type rawProperty struct {
	Location *rawLocation    `json:"location"`
	JSDoc    json.RawMessage `json:"jsdoc"`
	Check    json.RawMessage `json:"check"`
	Nullable bool            `json:"nullable"`
	Event    string          `json:"event"`
	JSON     rawPropertyJSON `json:"json"`
}

type rawClass struct {
	ClassName   string                 `json:"className"`
	Type        string                 `json:"type"`
	SuperClass  string                 `json:"superClass"`
	Mixins      []string               `json:"mixins"`
	Include     []string               `json:"include"`
	IsSingleton bool                   `json:"isSingleton"`
	Construct   *rawMember             `json:"construct"`
	Members     map[string]rawMember   `json:"members"`
	Statics     map[string]rawMember   `json:"statics"`
	Properties  map[string]rawProperty `json:"properties"`
	Location    *rawLocation           `json:"location"`
	JSDoc       json.RawMessage        `json:"jsdoc"`
}

var bracedType = regexp.MustCompile(`\{(.*)\}`)

// DecodeRecord parses one metadata file into a ClassRecord. Documentation
// that cannot be decoded is dropped; the rest of the record survives.
func DecodeRecord(data []byte) (*ClassRecord, error) {
	var raw rawClass
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.CodeMetadataIO, "decode class metadata")
	}
	name := strings.TrimSpace(raw.ClassName)
	if SplitName(name) == nil {
		return nil, errors.New(errors.CodeValidationError, "metadata record has no valid className")
	}

	rec := &ClassRecord{
		Name:        name,
		Type:        strings.TrimSpace(raw.Type),
		SuperClass:  strings.TrimSpace(raw.SuperClass),
		IsSingleton: raw.IsSingleton,
		Members:     make(map[string]*MemberRecord, len(raw.Members)),
		Statics:     make(map[string]*MemberRecord, len(raw.Statics)),
		Properties:  make(map[string]*PropertyRecord, len(raw.Properties)),
		Span:        convertLocation(raw.Location),
	}
	if rec.Type == "" {
		rec.Type = "class"
	}
	rec.Mixins = mergeNames(raw.Mixins, raw.Include)
	if doc := decodeDoc(name, "", raw.JSDoc); doc != nil {
		rec.Description = doc.description()
	}

	if raw.Construct != nil {
		ctor := convertMember(name, "construct", *raw.Construct)
		ctor.Kind = MemberMethod
		rec.Constructor = ctor
	}
	for memberName, m := range raw.Members {
		rec.Members[memberName] = convertMember(name, memberName, m)
	}
	for memberName, m := range raw.Statics {
		rec.Statics[memberName] = convertMember(name, memberName, m)
	}
	for propName, p := range raw.Properties {
		rec.Properties[propName] = convertProperty(name, propName, p)
	}
	return rec, nil
}

func convertMember(className, name string, m rawMember) *MemberRecord {
	out := &MemberRecord{
		Name:           name,
		Kind:           MemberKind(strings.TrimSpace(m.Type)),
		Access:         Access(strings.TrimSpace(m.Access)),
		Span:           convertLocation(m.Location),
		OverriddenFrom: strings.TrimSpace(m.OverriddenFrom),
		InheritedFrom:  strings.TrimSpace(m.InheritedFrom),
		MixinSource:    strings.TrimSpace(m.Mixin),
	}
	if out.Kind != MemberVariable {
		out.Kind = MemberMethod
	}
	if out.Access == "" {
		out.Access = accessFromName(name)
	}

	doc := decodeDoc(className, name, m.JSDoc)
	if doc == nil {
		return out
	}
	out.Description = doc.description()
	if params, ok := doc["@param"]; ok {
		out.HasParamDocs = true
		for _, p := range params {
			if p.ParamName == "" {
				continue
			}
			desc := p.Description
			if desc == "" {
				desc = p.Desc
			}
			out.Params = append(out.Params, Param{Name: p.ParamName, Type: typeString(p.Type), Description: desc})
		}
	}
	if ret, ok := doc["@return"]; ok && len(ret) > 0 {
		out.ReturnType = typeString(ret[0].Type)
	}
	if typ, ok := doc["@type"]; ok && len(typ) > 0 {
		out.DocumentedType = typeFromBody(typ[0])
	}
	return out
}

func convertProperty(className, name string, p rawProperty) *PropertyRecord {
	out := &PropertyRecord{
		Name:     name,
		Span:     convertLocation(p.Location),
		Nullable: p.Nullable || p.JSON.Nullable,
		Event:    strings.TrimSpace(p.Event),
	}
	if out.Event == "" {
		out.Event = strings.TrimSpace(p.JSON.Event)
	}
	out.Check = typeString(p.Check)
	if out.Check == "" {
		out.Check = typeString(p.JSON.Check)
	}
	if doc := decodeDoc(className, name, p.JSDoc); doc != nil {
		out.Description = doc.description()
		if typ, ok := doc["@type"]; ok && len(typ) > 0 {
			out.DocumentedType = typeFromBody(typ[0])
		}
	}
	return out
}

func decodeDoc(className, member string, raw json.RawMessage) rawJSDoc {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var doc rawJSDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		slog.Debug("ignoring malformed documentation",
			errors.CtxClass, className,
			"member", member,
			"error", errors.Wrap(err, errors.CodeMalformedDoc, "decode jsdoc"))
		return nil
	}
	return doc
}

func (d rawJSDoc) description() string {
	tags := d["@description"]
	if len(tags) == 0 {
		return ""
	}
	return strings.TrimSpace(tags[0].Body)
}

// typeString accepts a JSON string or an array of strings (joined as a union).
func typeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "|")
	}
	return ""
}

func typeFromBody(tag rawDocTag) string {
	if t := typeString(tag.Type); t != "" {
		return t
	}
	if m := bracedType.FindStringSubmatch(tag.Body); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func convertLocation(loc *rawLocation) *Span {
	if loc == nil {
		return nil
	}
	return &Span{
		Start: Position{Line: loc.Start.Line, Column: loc.Start.Column, Index: loc.Start.Index},
		End:   Position{Line: loc.End.Line, Column: loc.End.Column, Index: loc.End.Index},
	}
}

func accessFromName(name string) Access {
	switch {
	case strings.HasPrefix(name, "__"):
		return AccessPrivate
	case strings.HasPrefix(name, "_"):
		return AccessProtected
	default:
		return AccessPublic
	}
}

func mergeNames(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, name := range list {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
