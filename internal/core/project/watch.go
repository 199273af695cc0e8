package project

import (
	"context"
	"path/filepath"
	"qxsense/internal/core/errors"
	"qxsense/internal/core/watcher"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Watch keeps the database in step with metadata changes until ctx is done
// or the context is disposed.
func (c *Context) Watch(ctx context.Context) error {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if c.disposed {
		return errors.New(errors.CodeValidationError, "project context is disposed")
	}
	if c.watcher != nil {
		return nil
	}

	w, err := watcher.NewWatcher(
		c.cfg.Watch.Debounce,
		c.cfg.Watch.ExcludeDirs,
		c.cfg.Watch.ExcludeFiles,
		func(paths []string) { c.HandleChanges(ctx, paths) },
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "create watcher")
	}
	if err := w.Watch(c.watchRoots()); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.CodeMetadataIO, "watch metadata")
	}
	c.watcher = w

	c.watchWG.Add(1)
	go func() {
		defer c.watchWG.Done()
		select {
		case <-ctx.Done():
			c.stopWatcher()
		case <-c.stopped:
		}
	}()
	c.logger.Info("watching metadata", "roots", c.watchRoots())
	return nil
}

func (c *Context) stopWatcher() {
	c.watchMu.Lock()
	w := c.watcher
	c.watcher = nil
	c.watchMu.Unlock()
	if w != nil {
		_ = w.Close()
	}
}

// HandleChanges applies a batch of changed paths. Paths outside the metadata
// globs are ignored; the batch is paced by the reload limiter.
func (c *Context) HandleChanges(ctx context.Context, paths []string) {
	c.logger.Debug("metadata changed", "count", len(paths))
	for _, path := range paths {
		if !c.matchesMetadata(path) {
			continue
		}
		if err := c.limiter.Wait(ctx, 1); err != nil {
			return
		}
		if err := c.IngestFile(ctx, path); err != nil {
			c.logger.Warn("metadata reload failed, keeping previous record", "path", path, "error", err)
		}
	}
}

// watchRoots are the static directory prefixes of the metadata globs.
func (c *Context) watchRoots() []string {
	set := make(map[string]bool)
	for _, pattern := range c.cfg.Project.MetadataGlobs {
		base, _ := doublestar.SplitPattern(pattern)
		set[filepath.Join(c.root, filepath.FromSlash(base))] = true
	}
	roots := make([]string, 0, len(set))
	for r := range set {
		roots = append(roots, r)
	}
	sort.Strings(roots)

	// A root nested in another is covered by the recursive watch.
	out := roots[:0]
	for _, r := range roots {
		if len(out) > 0 && isWithin(r, out[len(out)-1]) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
