package namespace

import (
	"errors"
	"sort"

	"github.com/dominikbraun/graph"
)

// hierarchy tracks "extends or includes" edges from a class to its parents.
// Parents do not have to be registered; they exist as bare vertices.
type hierarchy struct {
	g       graph.Graph[string, string]
	parents map[string][]string
}

func newHierarchy() *hierarchy {
	return &hierarchy{
		g:       graph.New(graph.StringHash, graph.Directed()),
		parents: make(map[string][]string),
	}
}

func (h *hierarchy) ensureVertex(name string) {
	_ = h.g.AddVertex(name)
}

// set replaces the parent edges of name.
func (h *hierarchy) set(name string, parents []string) {
	h.unlink(name)
	h.ensureVertex(name)
	var kept []string
	for _, p := range parents {
		if p == "" || p == name {
			continue
		}
		h.ensureVertex(p)
		if err := h.g.AddEdge(name, p); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			continue
		}
		kept = append(kept, p)
	}
	h.parents[name] = kept
}

func (h *hierarchy) unlink(name string) {
	for _, p := range h.parents[name] {
		_ = h.g.RemoveEdge(name, p)
	}
	delete(h.parents, name)
}

// dependents returns every class whose merged view can contain name, sorted.
func (h *hierarchy) dependents(name string) []string {
	preds, err := h.g.PredecessorMap()
	if err != nil {
		return nil
	}
	seen := map[string]bool{name: true}
	queue := []string{name}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for child := range preds[cur] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	sort.Strings(out)
	return out
}
