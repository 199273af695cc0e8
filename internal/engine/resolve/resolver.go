// Package resolve infers what an expression denotes at a position in a
// source file: a package, a class, an instance of a class or a function.
package resolve

import (
	"log/slog"
	"qxsense/internal/core/ports"
	"qxsense/internal/engine/ast"
	"qxsense/internal/engine/namespace"
	"qxsense/internal/engine/source"
	"qxsense/internal/shared/observability"
	"qxsense/internal/shared/util"
	"time"
)

const DefaultMaxDepth = 64

type Option func(*Resolver)

func WithIdiom(idiom *source.Idiom) Option {
	return func(r *Resolver) {
		if idiom != nil {
			r.idiom = idiom
		}
	}
}

// WithMaxDepth bounds recursion; deeper resolutions give up with no result.
func WithMaxDepth(depth int) Option {
	return func(r *Resolver) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolver holds only collaborators; every Resolve call is independent and
// safe to run concurrently with others.
type Resolver struct {
	db       ports.ClassDatabase
	parser   ports.ExpressionParser
	idiom    *source.Idiom
	maxDepth int
	logger   *slog.Logger
}

func New(db ports.ClassDatabase, parser ports.ExpressionParser, opts ...Option) *Resolver {
	r := &Resolver{
		db:       db,
		parser:   parser,
		idiom:    source.NewIdiom(nil),
		maxDepth: DefaultMaxDepth,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Idiom returns the class-definition matcher the resolver uses.
func (r *Resolver) Idiom() *source.Idiom {
	return r.idiom
}

// Resolve returns the type of text as seen from offset in src, or nil when
// it cannot be determined.
func (r *Resolver) Resolve(src string, offset int, text string) *TypeInfo {
	started := time.Now()
	inv := &invocation{
		r:    r,
		src:  src,
		memo: make(map[memoKey]*TypeInfo),
	}
	out := inv.resolveText(offset, text, 0)

	outcome := "resolved"
	if out == nil {
		outcome = "unknown"
	}
	observability.ResolveDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
	return out
}

type memoKey struct {
	offset int
	text   string
}

// invocation is the state of one Resolve call.
type invocation struct {
	r    *Resolver
	src  string
	memo map[memoKey]*TypeInfo
}

func (inv *invocation) resolveText(offset int, text string, depth int) *TypeInfo {
	if depth > inv.r.maxDepth {
		return nil
	}
	key := memoKey{offset: offset, text: text}
	if t, ok := inv.memo[key]; ok {
		return t
	}
	e, err := inv.r.parser.ParseExpression(text)
	if err != nil {
		inv.r.logger.Debug("expression not resolvable", "expression", text, "error", err)
		inv.memo[key] = nil
		return nil
	}
	return inv.resolve(offset, e, depth)
}

// resolve applies the first rule that fits the node's shape: keywords,
// direct namespace names, calls, construction, member access, identifiers.
func (inv *invocation) resolve(offset int, e ast.Expr, depth int) *TypeInfo {
	if depth > inv.r.maxDepth {
		return nil
	}
	key := memoKey{offset: offset, text: e.Source()}
	if t, ok := inv.memo[key]; ok {
		return t
	}
	// a re-entrant lookup of the same key sees "unknown"
	inv.memo[key] = nil

	var (
		out  *TypeInfo
		rule string
	)
	switch n := e.(type) {
	case *ast.Super:
		out, rule = inv.superType(), "super"
	case *ast.This:
		out, rule = inv.thisType(), "this"
	case *ast.Ident:
		if out = inv.namespaceHit(n); out != nil {
			rule = "namespace"
		} else {
			out, rule = inv.identifier(offset, n, depth), "identifier"
		}
	case *ast.Member:
		if out = inv.namespaceHit(n); out != nil {
			rule = "namespace"
		} else {
			out, rule = inv.member(offset, n, depth), "member"
		}
	case *ast.Call:
		out, rule = inv.call(offset, n, depth), "call"
	case *ast.New:
		out, rule = inv.construct(n), "new"
	default:
		out = nil
	}

	if out != nil {
		observability.ResolveRuleHits.WithLabelValues(rule).Inc()
	}
	inv.memo[key] = out
	return out
}

func (inv *invocation) superType() *TypeInfo {
	super, ok := inv.r.idiom.SuperClass(inv.src)
	if !ok {
		return nil
	}
	return Instance(super)
}

func (inv *invocation) thisType() *TypeInfo {
	cls, ok := inv.r.idiom.EnclosingClass(inv.src)
	if !ok {
		return nil
	}
	return Instance(cls)
}

// namespaceHit resolves dotted paths that name a package or class outright,
// so `qx.ui.form.Button` is never read as property access.
func (inv *invocation) namespaceHit(e ast.Expr) *TypeInfo {
	name := ast.QualifiedName(e)
	if name == "" {
		return nil
	}
	switch res := inv.r.db.Lookup(name); res.Kind {
	case namespace.KindClass:
		return Class(name)
	case namespace.KindPackage:
		return Package(name)
	default:
		return nil
	}
}

func (inv *invocation) call(offset int, n *ast.Call, depth int) *TypeInfo {
	if m, ok := n.Callee.(*ast.Member); ok && m.Property == "set" && !m.Optional {
		// fluent setter: obj.set({...}) returns obj
		if obj := inv.resolve(offset, m.Object, depth+1); obj != nil && obj.Category == CategoryInstance {
			return obj
		}
	}
	fn := inv.resolve(offset, n.Callee, depth+1)
	if fn == nil || fn.Category != CategoryFunction {
		return nil
	}
	return fn.ReturnType
}

func (inv *invocation) construct(n *ast.New) *TypeInfo {
	name := ast.QualifiedName(n.Constructor)
	if name == "" || !inv.r.db.Exists(name) {
		return nil
	}
	return Instance(name)
}

func (inv *invocation) member(offset int, n *ast.Member, depth int) *TypeInfo {
	obj := inv.resolve(offset, n.Object, depth+1)
	if !obj.IsObject() {
		return nil
	}
	view, err := inv.r.db.FullClassView(obj.TypeName)
	if err != nil {
		inv.r.logger.Debug("no class view", "class", obj.TypeName, "error", err)
		return nil
	}

	var (
		m  *namespace.MemberRecord
		ok bool
	)
	if obj.Category == CategoryClass {
		m, ok = view.Static(n.Property)
	} else {
		m, ok = view.Member(n.Property)
	}
	if !ok {
		return nil
	}
	return memberType(m)
}

// memberType is Instance(@type) for variables and Function(Instance(@return))
// for methods; undocumented members have no type.
func memberType(m *namespace.MemberRecord) *TypeInfo {
	switch m.Kind {
	case namespace.MemberVariable:
		if t := documentedType(m.DocumentedType); t != "" {
			return Instance(t)
		}
	case namespace.MemberMethod:
		if t := documentedType(m.ReturnType); t != "" {
			return Function(Instance(t), m.Params)
		}
	}
	return nil
}

func (inv *invocation) identifier(offset int, n *ast.Ident, depth int) *TypeInfo {
	if a, ok := source.LastAssignment(inv.src, n.Name, offset); ok {
		if t := inv.resolveText(a.Start, a.Expr, depth+1); t != nil {
			return t
		}
	}
	return inv.parameterType(offset, n.Name)
}

// parameterType treats name as a parameter of the method enclosing offset and
// reads its documented type, following overriddenFrom when the method itself
// does not document it.
func (inv *invocation) parameterType(offset int, name string) *TypeInfo {
	cls, ok := inv.r.idiom.EnclosingClass(inv.src)
	if !ok {
		return nil
	}
	view, err := inv.r.db.FullClassView(cls)
	if err != nil {
		return nil
	}
	m := EnclosingMember(view, offset)
	if m == nil {
		return nil
	}

	visited := map[string]bool{cls: true}
	for m != nil {
		if p, ok := m.Param(name); ok {
			if t := documentedType(p.Type); t != "" {
				return Instance(t)
			}
			return nil
		}
		ancestor := m.OverriddenFrom
		if ancestor == "" || visited[ancestor] {
			return nil
		}
		visited[ancestor] = true
		m = inv.memberOf(ancestor, m.Name)
	}
	return nil
}

func (inv *invocation) memberOf(class, name string) *namespace.MemberRecord {
	view, err := inv.r.db.FullClassView(class)
	if err != nil {
		return nil
	}
	if name == "construct" {
		return view.Constructor
	}
	m, _ := view.Member(name)
	return m
}

// EnclosingMember returns the locally declared method, static or constructor
// of view whose span contains offset. Names are visited in sorted order so
// overlapping spans resolve deterministically.
func EnclosingMember(view *namespace.ClassRecord, offset int) *namespace.MemberRecord {
	if view == nil {
		return nil
	}
	if ctor := view.Constructor; ctor != nil && ctor.Span.Contains(offset) {
		return ctor
	}
	for _, members := range []map[string]*namespace.MemberRecord{view.Members, view.Statics} {
		for _, name := range util.SortedStringKeys(members) {
			m := members[name]
			if m.InheritedFrom != "" || m.Synthesized || m.MixinSource != "" {
				continue
			}
			if m.Span.Contains(offset) {
				return m
			}
		}
	}
	return nil
}
