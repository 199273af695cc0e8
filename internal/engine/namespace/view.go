// # internal/engine/namespace/view.go
package namespace

import (
	"qxsense/internal/core/errors"
	"qxsense/internal/shared/observability"
	"strings"
)

// FullClassView returns the record for name with property accessors, mixin
// members and inherited members merged in. Locally declared entries always
// win. Views are cached until the class or one of its ancestors changes and
// are shared between callers, so they must not be modified.
func (db *Database) FullClassView(name string) (*ClassRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.viewLocked(name, nil)
}

// viewLocked builds the merged view. chain holds the classes currently being
// merged, outermost first. Caller must hold db.mu.
func (db *Database) viewLocked(name string, chain []string) (*ClassRecord, error) {
	if v, ok := db.views.get(name); ok {
		return v, nil
	}
	rec, ok := db.index[name]
	if !ok {
		return nil, errors.AddContext(
			errors.New(errors.CodeNotFound, "class not registered"),
			errors.CtxClass, name)
	}
	for _, seen := range chain {
		if seen == name {
			observability.HierarchyCycles.Inc()
			err := errors.New(errors.CodeCyclicHierarchy, "superclass chain loops back on itself")
			return nil, errors.AddContext(err, errors.CtxChain, strings.Join(append(chain, name), " -> "))
		}
	}
	chain = append(chain, name)

	view := rec.shallowClone()
	addAccessors(view)
	if db.mergeMixins(view) {
		// accessors for properties contributed by mixins
		addAccessors(view)
	}

	if super := rec.SuperClass; super != "" && !db.rootTypes[super] {
		superView, err := db.viewLocked(super, chain)
		switch {
		case err == nil:
			inherit(view, superView, super)
		case errors.IsCode(err, errors.CodeNotFound):
			// unregistered ancestors contribute nothing
		case errors.IsCode(err, errors.CodeCyclicHierarchy) && !db.inCycleLocked(name):
			// the loop is above this class; it keeps its own members
		default:
			return nil, err
		}
	}

	if rec.IsSingleton {
		if _, ok := view.Members["getInstance"]; !ok {
			view.Members["getInstance"] = &MemberRecord{
				Name:        "getInstance",
				Kind:        MemberMethod,
				Access:      AccessPublic,
				ReturnType:  name,
				Description: "Returns the singleton instance of " + name,
				Synthesized: true,
			}
		}
	}

	db.views.put(name, view)
	return view, nil
}

// inCycleLocked reports whether following superclasses from name leads back
// to name. Caller must hold db.mu.
func (db *Database) inCycleLocked(name string) bool {
	seen := make(map[string]bool)
	for cur := name; ; {
		rec, ok := db.index[cur]
		if !ok || rec.SuperClass == "" || db.rootTypes[rec.SuperClass] {
			return false
		}
		cur = rec.SuperClass
		if cur == name {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
	}
}

// addAccessors synthesises get/set/reset (and is/toggle for Boolean) for the
// record's own properties unless a member of that name is declared.
func addAccessors(view *ClassRecord) {
	for propName, p := range view.Properties {
		typ := p.Type()
		up := FirstUp(propName)
		add := func(m *MemberRecord) {
			if _, exists := view.Members[m.Name]; exists {
				return
			}
			m.Kind = MemberMethod
			m.Access = AccessPublic
			m.Synthesized = true
			view.Members[m.Name] = m
		}
		add(&MemberRecord{
			Name:        "get" + up,
			ReturnType:  typ,
			Description: "Gets the (computed) value of the property " + propName,
		})
		add(&MemberRecord{
			Name:         "set" + up,
			Params:       []Param{{Name: "value", Type: typ, Description: "New value for property " + propName}},
			HasParamDocs: true,
			Description:  "Sets the user value of the property " + propName,
		})
		add(&MemberRecord{
			Name:        "reset" + up,
			Description: "Resets the user value of the property " + propName,
		})
		if typ == "Boolean" {
			add(&MemberRecord{
				Name:        "is" + up,
				ReturnType:  "Boolean",
				Description: "Gets the (computed) value of the property " + propName,
			})
			add(&MemberRecord{
				Name:        "toggle" + up,
				Description: "Toggles the user value of the property " + propName,
			})
		}
	}
}

// mergeMixins copies members of included mixins that the class lacks. Mixins
// are read raw; their own includes are not followed.
func (db *Database) mergeMixins(view *ClassRecord) (addedProperties bool) {
	for _, mixin := range view.Mixins {
		mrec, ok := db.index[mixin]
		if !ok {
			continue
		}
		for memberName, m := range mrec.Members {
			if _, exists := view.Members[memberName]; exists {
				continue
			}
			c := m.clone()
			c.MixinSource = mixin
			view.Members[memberName] = c
		}
		for propName, p := range mrec.Properties {
			if _, exists := view.Properties[propName]; exists {
				continue
			}
			view.Properties[propName] = p
			addedProperties = true
		}
	}
	return addedProperties
}

// inherit pulls members and properties of the superclass view into view.
// Statics are not inherited.
func inherit(view, superView *ClassRecord, super string) {
	for memberName, m := range superView.Members {
		if _, exists := view.Members[memberName]; exists {
			continue
		}
		c := m.clone()
		if c.InheritedFrom == "" {
			c.InheritedFrom = super
		}
		view.Members[memberName] = c
	}
	for propName, p := range superView.Properties {
		if _, exists := view.Properties[propName]; exists {
			continue
		}
		c := *p
		if c.InheritedFrom == "" {
			c.InheritedFrom = super
		}
		view.Properties[propName] = &c
	}
}
