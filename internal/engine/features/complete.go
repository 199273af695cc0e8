package features

import (
	"qxsense/internal/engine/namespace"
	"qxsense/internal/engine/resolve"
	"qxsense/internal/engine/scan"
	"qxsense/internal/engine/source"
	"qxsense/internal/shared/util"
	"sort"
	"strings"
	"time"

	"github.com/hbollon/go-edlib"
)

type ItemKind string

const (
	ItemPackage ItemKind = "package"
	ItemClass   ItemKind = "class"
	ItemMethod  ItemKind = "method"
	ItemField   ItemKind = "field"
	ItemEvent   ItemKind = "event"
)

// minSimilarity is the Jaro-Winkler score a non-prefix candidate needs to
// stay in the list.
const minSimilarity = 0.8

type CompletionItem struct {
	Label         string   `json:"label"`
	Kind          ItemKind `json:"kind"`
	Detail        string   `json:"detail,omitempty"`
	Documentation string   `json:"documentation,omitempty"`
	Origin        string   `json:"origin,omitempty"`
	Static        bool     `json:"static,omitempty"`

	prefix bool
	score  float32
}

// Complete lists candidates for the word being typed at pos. After a member
// access the candidates come from the object's type; otherwise they are the
// registered class names.
func (s *Service) Complete(src string, pos int) []CompletionItem {
	defer observe("complete", time.Now())

	if access, ok := scan.MemberAccessBefore(src, pos); ok {
		typ := s.resolver.Resolve(src, pos, access.Object.Text)
		items := s.membersOf(typ, access.Object.Text == "this")
		return s.rank(items, access.Partial)
	}

	partial := src[source.WordStart(src, clamp(pos, len(src))):clamp(pos, len(src))]
	names := s.db.ClassNames()
	items := make([]CompletionItem, 0, len(names))
	for _, name := range names {
		items = append(items, CompletionItem{Label: name, Kind: ItemClass})
	}
	return s.rank(items, partial)
}

func (s *Service) membersOf(typ *resolve.TypeInfo, fromThis bool) []CompletionItem {
	if typ == nil {
		return nil
	}
	switch typ.Category {
	case resolve.CategoryPackage:
		res := s.db.Lookup(typ.TypeName)
		items := make([]CompletionItem, 0, len(res.Children))
		for _, child := range res.Children {
			kind := ItemPackage
			if child.Kind == namespace.KindClass {
				kind = ItemClass
			}
			items = append(items, CompletionItem{Label: child.Name, Kind: kind, Detail: typ.TypeName + "." + child.Name})
		}
		return items

	case resolve.CategoryClass, resolve.CategoryInstance:
		view, err := s.db.FullClassView(typ.TypeName)
		if err != nil {
			s.logger.Debug("completion without class view", "class", typ.TypeName, "error", err)
			return nil
		}
		var items []CompletionItem
		add := func(m *namespace.MemberRecord, static bool) {
			if m.Access == namespace.AccessPrivate && !fromThis {
				return
			}
			items = append(items, memberItem(view.Name, m, static))
		}
		for _, name := range util.SortedStringKeys(view.Members) {
			add(view.Members[name], false)
		}
		for _, name := range util.SortedStringKeys(view.Statics) {
			if _, shadowed := view.Members[name]; !shadowed {
				add(view.Statics[name], true)
			}
		}
		for _, event := range view.ChangeEvents() {
			items = append(items, CompletionItem{Label: event, Kind: ItemEvent, Detail: "event", Origin: view.Name})
		}
		return items
	}
	return nil
}

func memberItem(class string, m *namespace.MemberRecord, static bool) CompletionItem {
	item := CompletionItem{
		Label:         m.Name,
		Kind:          ItemMethod,
		Documentation: m.Description,
		Origin:        class,
		Static:        static,
	}
	switch {
	case m.InheritedFrom != "":
		item.Origin = m.InheritedFrom
	case m.MixinSource != "":
		item.Origin = m.MixinSource
	}
	if m.Kind == namespace.MemberVariable {
		item.Kind = ItemField
		item.Detail = m.DocumentedType
	} else {
		item.Detail = signatureLabel(m.Name, m.Params, m.ReturnType)
	}
	return item
}

// rank keeps prefix matches and close fuzzy matches of partial, prefix
// matches first, then by similarity, then by label.
func (s *Service) rank(items []CompletionItem, partial string) []CompletionItem {
	if partial == "" {
		sort.SliceStable(items, func(i, j int) bool { return items[i].Label < items[j].Label })
		return s.limit(items)
	}
	lower := strings.ToLower(partial)
	kept := items[:0]
	for _, item := range items {
		label := item.Label
		if i := strings.LastIndexByte(label, '.'); i >= 0 && item.Kind == ItemClass {
			label = label[i+1:]
		}
		candidate := strings.ToLower(label)
		item.prefix = strings.HasPrefix(candidate, lower) || strings.HasPrefix(strings.ToLower(item.Label), lower)
		if !item.prefix {
			score, err := edlib.StringsSimilarity(lower, candidate, edlib.JaroWinkler)
			if err != nil || score < minSimilarity {
				continue
			}
			item.score = score
		}
		kept = append(kept, item)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.prefix != b.prefix {
			return a.prefix
		}
		if a.score != b.score {
			return a.score > b.score
		}
		return a.Label < b.Label
	})
	return s.limit(kept)
}

func (s *Service) limit(items []CompletionItem) []CompletionItem {
	if len(items) > s.maxItems {
		return items[:s.maxItems]
	}
	return items
}

func clamp(pos, n int) int {
	switch {
	case pos < 0:
		return 0
	case pos > n:
		return n
	default:
		return pos
	}
}
