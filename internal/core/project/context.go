// Package project ties one project root to its namespace database, the
// resolver and the editor features, and keeps the database in step with the
// compiler's metadata files.
package project

import (
	"log/slog"
	"os"
	"path/filepath"
	"qxsense/internal/core/config"
	"qxsense/internal/core/ports"
	"qxsense/internal/core/watcher"
	"qxsense/internal/data/metastore"
	"qxsense/internal/engine/exprparse"
	"qxsense/internal/engine/features"
	"qxsense/internal/engine/namespace"
	"qxsense/internal/engine/resolve"
	"qxsense/internal/engine/source"
	"qxsense/internal/shared/util"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type Option func(*Context)

// WithStore sets the record cache. A store passed here is not closed by
// Dispose.
func WithStore(store ports.RecordStore) Option {
	return func(c *Context) {
		c.store = store
		c.ownsStore = false
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type fileEntry struct {
	class string
	hash  uint64
}

// Context is safe for concurrent use. Feature calls run against whatever
// records have been ingested so far.
type Context struct {
	cfg       *config.Config
	root      string
	sourceDir string
	session   string
	logger    *slog.Logger

	db       *namespace.Database
	parser   *exprparse.Parser
	resolver *resolve.Resolver
	features *features.Service

	store     ports.RecordStore
	ownsStore bool

	filesMu sync.Mutex
	files   map[string]fileEntry

	watchMu  sync.Mutex
	watcher  *watcher.Watcher
	limiter  *util.Limiter
	stopped  chan struct{}
	watchWG  sync.WaitGroup
	disposed bool
}

func New(cfg *config.Config, opts ...Option) (*Context, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return nil, err
	}

	session := uuid.NewString()
	c := &Context{
		cfg:       cfg,
		root:      paths.ProjectRoot,
		sourceDir: paths.SourceDir,
		session:   session,
		logger:    slog.Default(),
		files:     make(map[string]fileEntry),
		limiter:   util.NewLimiter(cfg.Watch.ReloadRate, cfg.Watch.ReloadBurst),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("session", session, "root", c.root)

	if c.store == nil && cfg.DB.Enabled {
		store, err := metastore.Open(paths.DBPath, c.root, cfg.DB.BusyTimeout)
		if err != nil {
			return nil, err
		}
		c.store = store
		c.ownsStore = true
	}

	c.db = namespace.NewDatabase(
		namespace.WithRootTypes(cfg.Project.RootTypes...),
		namespace.WithViewCacheSize(cfg.Analysis.ViewCacheSize),
	)
	c.parser = exprparse.New()
	c.resolver = resolve.New(c.db, c.parser,
		resolve.WithIdiom(source.NewIdiom(cfg.Project.DefineCalls)),
		resolve.WithMaxDepth(cfg.Analysis.MaxDepth),
		resolve.WithLogger(c.logger),
	)
	c.features = features.New(c.db, c.resolver, c.parser,
		features.WithClassLocator(c.ClassPath),
		features.WithMaxItems(cfg.Analysis.MaxCompletionItems),
		features.WithLogger(c.logger),
	)
	return c, nil
}

func (c *Context) Root() string                  { return c.root }
func (c *Context) Session() string               { return c.session }
func (c *Context) Database() *namespace.Database { return c.db }
func (c *Context) Resolver() *resolve.Resolver   { return c.resolver }
func (c *Context) Config() *config.Config        { return c.cfg }

// ClassPath is where the source of className lives under the project.
func (c *Context) ClassPath(className string) string {
	return filepath.Join(c.sourceDir, filepath.FromSlash(strings.ReplaceAll(className, ".", "/"))+".js")
}

// Dispose stops watching and releases the record cache. It is safe to call
// more than once.
func (c *Context) Dispose() error {
	c.watchMu.Lock()
	if c.disposed {
		c.watchMu.Unlock()
		return nil
	}
	c.disposed = true
	close(c.stopped)
	w := c.watcher
	c.watcher = nil
	c.watchMu.Unlock()

	var firstErr error
	if w != nil {
		firstErr = w.Close()
	}
	c.watchWG.Wait()
	if c.store != nil && c.ownsStore {
		if err := c.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.logger.Debug("project disposed")
	return firstErr
}
