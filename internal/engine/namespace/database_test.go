// # internal/engine/namespace/database_test.go
package namespace

import (
	"fmt"
	"qxsense/internal/core/errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func class(name, super string) *ClassRecord {
	return &ClassRecord{
		Name:       name,
		Type:       "class",
		SuperClass: super,
		Members:    map[string]*MemberRecord{},
		Statics:    map[string]*MemberRecord{},
		Properties: map[string]*PropertyRecord{},
	}
}

func method(name string) *MemberRecord {
	return &MemberRecord{Name: name, Kind: MemberMethod, Access: AccessPublic}
}

func TestIngestCreatesPackages(t *testing.T) {
	db := NewDatabase()
	require.NoError(t, db.Ingest(class("qx.ui.form.Button", "qx.ui.basic.Atom")))

	for _, name := range []string{"qx", "qx.ui", "qx.ui.form"} {
		res := db.Lookup(name)
		if res.Kind != KindPackage {
			t.Errorf("Lookup(%q) = %v, want package", name, res.Kind)
		}
		if !db.ContainsPath(name) {
			t.Errorf("ContainsPath(%q) = false", name)
		}
	}

	res := db.Lookup("qx.ui.form.Button")
	require.Equal(t, KindClass, res.Kind)
	assert.Equal(t, "qx.ui.basic.Atom", res.Record.SuperClass)

	assert.True(t, db.Exists("qx.ui.form.Button"))
	assert.False(t, db.Exists("qx.ui.form"), "packages are not classes")
	assert.False(t, db.Exists("qx.ui.form.Missing"))
	assert.False(t, db.ContainsPath("qx.core"))
	assert.False(t, db.ContainsPath(""))
	assert.False(t, db.ContainsPath("qx..ui"))
	assert.Equal(t, KindNotFound, db.Lookup("nope").Kind)
}

func TestLookupListsChildren(t *testing.T) {
	db := NewDatabase()
	require.NoError(t, db.Ingest(class("my.b.Thing", "")))
	require.NoError(t, db.Ingest(class("my.Widget", "")))
	require.NoError(t, db.Ingest(class("my.a.Other", "")))

	res := db.Lookup("my")
	require.Equal(t, KindPackage, res.Kind)
	assert.Equal(t, []Child{
		{Name: "Widget", Kind: KindClass},
		{Name: "a", Kind: KindPackage},
		{Name: "b", Kind: KindPackage},
	}, res.Children)
}

func TestIngestRejectsBadNames(t *testing.T) {
	db := NewDatabase()
	err := db.Ingest(class("a..B", ""))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	err = db.Ingest(nil)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
	assert.Empty(t, db.ClassNames())
}

func TestIngestReplacesRecord(t *testing.T) {
	db := NewDatabase()
	first := class("my.Widget", "")
	first.Members["a"] = method("a")
	require.NoError(t, db.Ingest(first))

	view, err := db.FullClassView("my.Widget")
	require.NoError(t, err)
	require.Contains(t, view.Members, "a")

	second := class("my.Widget", "")
	second.Members["b"] = method("b")
	require.NoError(t, db.Ingest(second))

	view, err = db.FullClassView("my.Widget")
	require.NoError(t, err)
	assert.NotContains(t, view.Members, "a")
	assert.Contains(t, view.Members, "b")
	assert.Equal(t, 1, db.Stats().Classes)
}

func TestRemovePrunesPackages(t *testing.T) {
	db := NewDatabase()
	require.NoError(t, db.Ingest(class("a.b.C", "")))
	require.NoError(t, db.Ingest(class("a.D", "")))

	stats := db.Stats()
	assert.Equal(t, 2, stats.Classes)
	assert.Equal(t, 2, stats.Packages)

	assert.True(t, db.Remove("a.b.C"))
	assert.False(t, db.ContainsPath("a.b"))
	assert.True(t, db.ContainsPath("a"))
	assert.False(t, db.Remove("a.b.C"))
	assert.False(t, db.Remove("a"))

	stats = db.Stats()
	assert.Equal(t, 1, stats.Classes)
	assert.Equal(t, 1, stats.Packages)

	assert.True(t, db.Remove("a.D"))
	assert.False(t, db.ContainsPath("a"))
	assert.Equal(t, 0, db.Stats().Packages)
}

func TestRemoveKeepsNestedClasses(t *testing.T) {
	db := NewDatabase()
	require.NoError(t, db.Ingest(class("a.B", "")))
	require.NoError(t, db.Ingest(class("a.B.C", "")))

	assert.True(t, db.Remove("a.B"))
	assert.Equal(t, KindPackage, db.Lookup("a.B").Kind)
	assert.Equal(t, KindClass, db.Lookup("a.B.C").Kind)
}

func TestFullClassView_Inheritance(t *testing.T) {
	db := NewDatabase()
	a := class("A", "")
	a.Members["m"] = method("m")
	a.Members["n"] = method("n")
	a.Statics["create"] = method("create")
	b := class("B", "A")
	c := class("C", "B")
	d := class("D", "A")
	d.Members["m"] = method("m")

	for _, rec := range []*ClassRecord{a, b, c, d} {
		require.NoError(t, db.Ingest(rec))
	}

	bView, err := db.FullClassView("B")
	require.NoError(t, err)
	require.Contains(t, bView.Members, "m")
	assert.Equal(t, "A", bView.Members["m"].InheritedFrom)
	assert.NotContains(t, bView.Statics, "create")

	cView, err := db.FullClassView("C")
	require.NoError(t, err)
	require.Contains(t, cView.Members, "m")
	assert.Equal(t, "A", cView.Members["m"].InheritedFrom)

	dView, err := db.FullClassView("D")
	require.NoError(t, err)
	assert.Empty(t, dView.Members["m"].InheritedFrom)
	assert.Equal(t, "A", dView.Members["n"].InheritedFrom)

	// the raw record is untouched
	raw, ok := db.Record("B")
	require.True(t, ok)
	assert.Empty(t, raw.Members)
}

func TestFullClassView_SkipsRootAndUnknownSuper(t *testing.T) {
	db := NewDatabase(WithRootTypes("Object", "qx.core.Object"))
	obj := class("qx.core.Object", "")
	obj.Members["toString"] = method("toString")
	require.NoError(t, db.Ingest(obj))

	w := class("my.Widget", "qx.core.Object")
	require.NoError(t, db.Ingest(w))
	view, err := db.FullClassView("my.Widget")
	require.NoError(t, err)
	assert.NotContains(t, view.Members, "toString")

	orphan := class("my.Orphan", "vendor.Base")
	require.NoError(t, db.Ingest(orphan))
	_, err = db.FullClassView("my.Orphan")
	assert.NoError(t, err)

	_, err = db.FullClassView("my.Missing")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestFullClassView_Accessors(t *testing.T) {
	db := NewDatabase()
	w := class("my.Widget", "")
	w.Properties["label"] = &PropertyRecord{Name: "label", Check: "String"}
	w.Properties["enabled"] = &PropertyRecord{Name: "enabled", Check: "Boolean"}
	w.Members["getLabel"] = &MemberRecord{Name: "getLabel", Kind: MemberMethod, ReturnType: "my.Label"}
	require.NoError(t, db.Ingest(w))

	view, err := db.FullClassView("my.Widget")
	require.NoError(t, err)

	assert.Equal(t, "my.Label", view.Members["getLabel"].ReturnType, "declared member wins")
	assert.False(t, view.Members["getLabel"].Synthesized)

	set := view.Members["setLabel"]
	require.NotNil(t, set)
	assert.True(t, set.Synthesized)
	p, ok := set.Param("value")
	require.True(t, ok)
	assert.Equal(t, "String", p.Type)

	assert.Contains(t, view.Members, "resetLabel")
	assert.Equal(t, "Boolean", view.Members["isEnabled"].ReturnType)
	assert.Contains(t, view.Members, "toggleEnabled")
	assert.NotContains(t, view.Members, "isLabel")
}

func TestFullClassView_Mixins(t *testing.T) {
	db := NewDatabase()
	mixin := class("my.MTrait", "")
	mixin.Type = "mixin"
	mixin.Members["trait"] = method("trait")
	mixin.Members["shared"] = method("shared")
	mixin.Properties["color"] = &PropertyRecord{Name: "color", Check: "Color"}
	require.NoError(t, db.Ingest(mixin))

	w := class("my.Widget", "")
	w.Mixins = []string{"my.MTrait", "my.MMissing"}
	w.Members["shared"] = method("shared")
	require.NoError(t, db.Ingest(w))

	view, err := db.FullClassView("my.Widget")
	require.NoError(t, err)
	assert.Equal(t, "my.MTrait", view.Members["trait"].MixinSource)
	assert.Empty(t, view.Members["shared"].MixinSource)
	assert.Equal(t, "Color", view.Members["getColor"].ReturnType)

	assert.Equal(t, []string{"my.Widget"}, db.Subclasses("my.MTrait"))
}

func TestFullClassView_Singleton(t *testing.T) {
	db := NewDatabase()
	s := class("my.Registry", "")
	s.IsSingleton = true
	require.NoError(t, db.Ingest(s))

	view, err := db.FullClassView("my.Registry")
	require.NoError(t, err)
	inst := view.Members["getInstance"]
	require.NotNil(t, inst)
	assert.Equal(t, MemberMethod, inst.Kind)
	assert.Equal(t, "my.Registry", inst.ReturnType)
}

func TestFullClassView_Cycle(t *testing.T) {
	db := NewDatabase()
	require.NoError(t, db.Ingest(class("A", "B")))
	require.NoError(t, db.Ingest(class("B", "A")))

	_, err := db.FullClassView("A")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCyclicHierarchy))

	_, err = db.FullClassView("B")
	assert.True(t, errors.IsCode(err, errors.CodeCyclicHierarchy))

	self := class("S", "S")
	require.NoError(t, db.Ingest(self))
	_, err = db.FullClassView("S")
	assert.True(t, errors.IsCode(err, errors.CodeCyclicHierarchy))
}

func TestFullClassView_BelowCycleKeepsOwnMembers(t *testing.T) {
	db := NewDatabase()
	require.NoError(t, db.Ingest(class("A", "B")))
	require.NoError(t, db.Ingest(class("B", "A")))
	a := class("A", "B")
	a.Members["looped"] = method("looped")
	require.NoError(t, db.Ingest(a))
	d := class("D", "A")
	d.Members["own"] = method("own")
	require.NoError(t, db.Ingest(d))

	view, err := db.FullClassView("D")
	require.NoError(t, err)
	assert.Contains(t, view.Members, "own")
	assert.NotContains(t, view.Members, "looped")

	_, err = db.FullClassView("A")
	assert.True(t, errors.IsCode(err, errors.CodeCyclicHierarchy))
}

func TestViewCache_InvalidatedByAncestorChange(t *testing.T) {
	db := NewDatabase()
	require.NoError(t, db.Ingest(class("A", "")))
	require.NoError(t, db.Ingest(class("B", "A")))
	require.NoError(t, db.Ingest(class("C", "B")))

	view, err := db.FullClassView("C")
	require.NoError(t, err)
	assert.NotContains(t, view.Members, "fresh")
	assert.Equal(t, 3, db.Stats().CachedViews)

	a := class("A", "")
	a.Members["fresh"] = method("fresh")
	require.NoError(t, db.Ingest(a))
	assert.Equal(t, 0, db.Stats().CachedViews)

	view, err = db.FullClassView("C")
	require.NoError(t, err)
	require.Contains(t, view.Members, "fresh")
	assert.Equal(t, "A", view.Members["fresh"].InheritedFrom)
}

func TestViewCache_Bounded(t *testing.T) {
	db := NewDatabase(WithViewCacheSize(2))
	for i := 0; i < 5; i++ {
		require.NoError(t, db.Ingest(class(fmt.Sprintf("p.C%d", i), "")))
	}
	for i := 0; i < 5; i++ {
		_, err := db.FullClassView(fmt.Sprintf("p.C%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, db.Stats().CachedViews)
}

func TestConcurrentIngestAndQuery(t *testing.T) {
	db := NewDatabase()
	require.NoError(t, db.Ingest(class("base.Root", "")))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				rec := class(fmt.Sprintf("pkg%d.C%d", w, i), "base.Root")
				if err := db.Ingest(rec); err != nil {
					t.Errorf("ingest: %v", err)
				}
			}
		}(w)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				db.Lookup(fmt.Sprintf("pkg%d", w))
				_, _ = db.FullClassView(fmt.Sprintf("pkg%d.C%d", w, i))
				db.ClassNames()
			}
		}(w)
	}
	wg.Wait()

	assert.Len(t, db.ClassNames(), 201)
	assert.Len(t, db.Subclasses("base.Root"), 200)
}

func TestReset(t *testing.T) {
	db := NewDatabase()
	require.NoError(t, db.Ingest(class("a.B", "")))
	db.Reset()
	assert.False(t, db.ContainsPath("a"))
	assert.Equal(t, Stats{}, db.Stats())
}
