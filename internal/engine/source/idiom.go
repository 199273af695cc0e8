package source

import (
	"regexp"
	"strings"
)

// DefaultDefineCalls are the calls recognised as declaring a class.
var DefaultDefineCalls = []string{
	"qx.Class.define",
	"qx.Mixin.define",
	"qx.Interface.define",
	"qx.Theme.define",
}

var extendKey = regexp.MustCompile(`\bextend\s*:\s*([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*)`)

// Idiom recognises `<defineCall>("a.b.C", { extend: x.y.Z, ... })` in raw
// source. Only the first definition in a file is considered.
type Idiom struct {
	define *regexp.Regexp
}

func NewIdiom(defineCalls []string) *Idiom {
	if len(defineCalls) == 0 {
		defineCalls = DefaultDefineCalls
	}
	quoted := make([]string, 0, len(defineCalls))
	for _, c := range defineCalls {
		if c = strings.TrimSpace(c); c != "" {
			quoted = append(quoted, regexp.QuoteMeta(c))
		}
	}
	pattern := `(?:` + strings.Join(quoted, "|") + `)\s*\(\s*["']([\w$.]+)["']`
	return &Idiom{define: regexp.MustCompile(pattern)}
}

// Definition is the first class definition found in a file.
type Definition struct {
	Class      string
	SuperClass string
	Start      int // offset of the define call
	BodyStart  int // offset just after the class-name literal
}

func (i *Idiom) Find(src string) (Definition, bool) {
	loc := i.define.FindStringSubmatchIndex(src)
	if loc == nil {
		return Definition{}, false
	}
	def := Definition{
		Class:     src[loc[2]:loc[3]],
		Start:     loc[0],
		BodyStart: loc[1],
	}
	if m := extendKey.FindStringSubmatch(src[loc[1]:]); m != nil {
		def.SuperClass = m[1]
	}
	return def, true
}

// EnclosingClass returns the class declared by the file's definition call.
func (i *Idiom) EnclosingClass(src string) (string, bool) {
	def, ok := i.Find(src)
	if !ok {
		return "", false
	}
	return def.Class, true
}

// SuperClass returns the `extend:` path of the file's definition call.
func (i *Idiom) SuperClass(src string) (string, bool) {
	def, ok := i.Find(src)
	if !ok || def.SuperClass == "" {
		return "", false
	}
	return def.SuperClass, true
}
