// # internal/engine/namespace/database.go
package namespace

import (
	"qxsense/internal/core/errors"
	"qxsense/internal/shared/observability"
	"qxsense/internal/shared/util"
	"strings"
	"sync"
)

const (
	DefaultViewCacheSize = 512
	DefaultRootType      = "Object"
)

type node struct {
	children map[string]*node
	record   *ClassRecord
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

func (n *node) kind() NodeKind {
	if n.record != nil {
		return KindClass
	}
	return KindPackage
}

// Stats summarises the database contents.
type Stats struct {
	Classes     int
	Packages    int
	CachedViews int
}

type Option func(*Database)

// WithRootTypes sets the superclass names that terminate inheritance merging.
func WithRootTypes(names ...string) Option {
	return func(db *Database) {
		db.rootTypes = make(map[string]bool, len(names))
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				db.rootTypes[n] = true
			}
		}
	}
}

func WithViewCacheSize(n int) Option {
	return func(db *Database) {
		db.views = newViewCache(n)
	}
}

// Database is the in-memory namespace tree plus the class records hanging
// off it. It is safe for concurrent use: queries take a read lock, Ingest
// and Remove take the write lock.
type Database struct {
	mu        sync.RWMutex
	root      *node
	index     map[string]*ClassRecord
	packages  int
	hierarchy *hierarchy
	views     *viewCache
	rootTypes map[string]bool
}

func NewDatabase(opts ...Option) *Database {
	db := &Database{
		root:      newNode(),
		index:     make(map[string]*ClassRecord),
		hierarchy: newHierarchy(),
		views:     newViewCache(DefaultViewCacheSize),
		rootTypes: map[string]bool{DefaultRootType: true},
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// find walks the trie. Caller must hold db.mu.
func (db *Database) find(name string) *node {
	parts := SplitName(name)
	if parts == nil {
		return nil
	}
	cur := db.root
	for _, p := range parts {
		next, ok := cur.children[p]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// Exists reports whether name is a registered class.
func (db *Database) Exists(name string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.index[name]
	return ok
}

// ContainsPath reports whether name is a registered class or a dotted prefix
// of one.
func (db *Database) ContainsPath(name string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.find(name) != nil
}

// Lookup classifies name. Packages list their children sorted by segment.
func (db *Database) Lookup(name string) LookupResult {
	db.mu.RLock()
	defer db.mu.RUnlock()

	n := db.find(name)
	if n == nil {
		return LookupResult{Kind: KindNotFound, Name: name}
	}
	if n.record != nil {
		return LookupResult{Kind: KindClass, Name: name, Record: n.record}
	}
	res := LookupResult{Kind: KindPackage, Name: name}
	for _, seg := range util.SortedStringKeys(n.children) {
		res.Children = append(res.Children, Child{Name: seg, Kind: n.children[seg].kind()})
	}
	return res
}

// Record returns the raw, unmerged record for a class.
func (db *Database) Record(name string) (*ClassRecord, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	rec, ok := db.index[name]
	return rec, ok
}

// ClassNames lists every registered class, sorted.
func (db *Database) ClassNames() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return util.SortedStringKeys(db.index)
}

// Subclasses lists the registered classes that extend or include name,
// directly or through other classes.
func (db *Database) Subclasses(name string) []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.subclassesLocked(name)
}

func (db *Database) subclassesLocked(name string) []string {
	var out []string
	for _, child := range db.hierarchy.dependents(name) {
		if _, ok := db.index[child]; ok {
			out = append(out, child)
		}
	}
	return out
}

func (db *Database) Stats() Stats {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return Stats{Classes: len(db.index), Packages: db.packages, CachedViews: db.views.len()}
}

// Ingest registers rec, creating intermediate package nodes. A record with
// the same name replaces the previous one.
func (db *Database) Ingest(rec *ClassRecord) error {
	if rec == nil {
		return errors.New(errors.CodeValidationError, "nil class record")
	}
	parts := SplitName(rec.Name)
	if parts == nil {
		return errors.AddContext(
			errors.New(errors.CodeValidationError, "class name has an empty segment"),
			errors.CtxClass, rec.Name)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	cur := db.root
	for _, p := range parts {
		next, ok := cur.children[p]
		if !ok {
			next = newNode()
			cur.children[p] = next
			db.packages++
		}
		cur = next
	}
	if cur.record == nil {
		// the leaf was counted as a package node when created or reached
		db.packages--
	}
	cur.record = rec
	db.index[rec.Name] = rec

	db.hierarchy.set(rec.Name, append([]string{rec.SuperClass}, rec.Mixins...))
	db.invalidate(rec.Name)
	db.publishGauges()
	return nil
}

// Remove drops a class and prunes package nodes left without descendants.
func (db *Database) Remove(name string) bool {
	parts := SplitName(name)
	if parts == nil {
		return false
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	path := make([]*node, 0, len(parts)+1)
	path = append(path, db.root)
	cur := db.root
	for _, p := range parts {
		next, ok := cur.children[p]
		if !ok {
			return false
		}
		path = append(path, next)
		cur = next
	}
	if cur.record == nil {
		return false
	}
	cur.record = nil
	delete(db.index, name)
	db.packages++

	for i := len(parts) - 1; i >= 0; i-- {
		n := path[i+1]
		if n.record != nil || len(n.children) > 0 {
			break
		}
		delete(path[i].children, parts[i])
		db.packages--
	}

	db.hierarchy.unlink(name)
	db.invalidate(name)
	db.publishGauges()
	return true
}

// Reset drops every record.
func (db *Database) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.root = newNode()
	db.index = make(map[string]*ClassRecord)
	db.packages = 0
	db.hierarchy = newHierarchy()
	db.views.clear()
	db.publishGauges()
}

// invalidate evicts the cached views of name and of everything that merges
// it. Caller must hold the write lock.
func (db *Database) invalidate(name string) {
	if db.views.len() == 0 {
		return
	}
	db.views.evict(append(db.subclassesLocked(name), name)...)
}

func (db *Database) publishGauges() {
	observability.RegisteredClasses.Set(float64(len(db.index)))
	observability.RegisteredPackages.Set(float64(db.packages))
}
