// # internal/core/project/ingest.go
package project

import (
	"context"
	"os"
	"path/filepath"
	"qxsense/internal/core/errors"
	"qxsense/internal/core/ports"
	"qxsense/internal/data/metastore"
	"qxsense/internal/engine/namespace"
	"qxsense/internal/shared/observability"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type decoded struct {
	path    string
	payload []byte
	hash    uint64
	record  *namespace.ClassRecord
	err     error
}

// Initialize loads every metadata file matched by the configured globs. The
// record cache, when present, is applied first so unreadable files keep
// their last good record.
func (c *Context) Initialize(ctx context.Context) error {
	ctx, span := observability.Tracer.Start(ctx, "project.Initialize", trace.WithAttributes(attribute.String("root", c.root)))
	defer span.End()
	started := time.Now()
	defer func() { observability.InitializeDuration.Observe(time.Since(started).Seconds()) }()

	cached := c.warmStart(ctx)

	paths, err := c.metadataFiles()
	if err != nil {
		span.RecordError(err)
		return err
	}

	results := make([]decoded, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Analysis.DecodeWorkers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = readRecord(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(results))
	ingested := 0
	for _, res := range results {
		seen[res.path] = true
		if res.err != nil {
			c.logger.Warn("metadata unreadable, keeping previous record", "path", res.path, "error", res.err)
			observability.IngestTotal.WithLabelValues("failed").Inc()
			continue
		}
		if c.apply(ctx, res) {
			ingested++
		}
	}

	for path := range cached {
		if !seen[path] {
			c.RemoveFile(ctx, path)
		}
	}

	stats := c.db.Stats()
	span.SetAttributes(attribute.Int("files", len(paths)), attribute.Int("classes", stats.Classes))
	c.logger.Info("project initialized", "files", len(paths), "ingested", ingested, "classes", stats.Classes, "duration", time.Since(started))
	return nil
}

// Reinitialize drops every record and loads the project again.
func (c *Context) Reinitialize(ctx context.Context) error {
	c.filesMu.Lock()
	c.files = make(map[string]fileEntry)
	c.filesMu.Unlock()
	c.db.Reset()
	return c.Initialize(ctx)
}

// IngestFile reads one metadata file and patches the database. A file whose
// content is unchanged is skipped; a file that has disappeared is removed.
// An unreadable file keeps its loaded record, or the cached one when nothing
// is loaded for it yet.
func (c *Context) IngestFile(ctx context.Context, path string) error {
	res := readRecord(path)
	if res.err != nil {
		if errors.IsCode(res.err, errors.CodeNotFound) {
			c.RemoveFile(ctx, path)
			return nil
		}
		observability.IngestTotal.WithLabelValues("failed").Inc()
		c.restoreCached(ctx, path)
		return res.err
	}
	c.apply(ctx, res)
	return nil
}

// restoreCached loads the cached record of path if no record from path is
// loaded.
func (c *Context) restoreCached(ctx context.Context, path string) {
	if c.store == nil {
		return
	}
	c.filesMu.Lock()
	_, loaded := c.files[path]
	c.filesMu.Unlock()
	if loaded {
		return
	}
	rec, ok, err := c.store.Get(ctx, path)
	if err != nil || !ok {
		if err != nil {
			c.logger.Warn("record cache lookup failed", "path", path, "error", err)
		}
		return
	}
	record, err := namespace.DecodeRecord(rec.Payload)
	if err != nil {
		c.logger.Debug("dropping undecodable cached record", "path", path, "error", err)
		return
	}
	if c.apply(ctx, decoded{path: path, payload: rec.Payload, hash: rec.Hash, record: record}) {
		observability.IngestTotal.WithLabelValues("restored").Inc()
	}
}

// RemoveFile forgets the record that came from path.
func (c *Context) RemoveFile(ctx context.Context, path string) {
	c.filesMu.Lock()
	entry, ok := c.files[path]
	delete(c.files, path)
	c.filesMu.Unlock()
	if !ok {
		return
	}
	if !c.classStillProvided(entry.class) {
		c.db.Remove(entry.class)
	}
	if c.store != nil {
		if err := c.store.Delete(ctx, path); err != nil {
			c.logger.Warn("record cache delete failed", "path", path, "error", err)
		}
	}
	observability.IngestTotal.WithLabelValues("removed").Inc()
}

// apply ingests a decoded file unless its hash matches what is loaded.
func (c *Context) apply(ctx context.Context, res decoded) bool {
	c.filesMu.Lock()
	prev, known := c.files[res.path]
	if known && prev.hash == res.hash {
		c.filesMu.Unlock()
		observability.IngestTotal.WithLabelValues("unchanged").Inc()
		return false
	}
	c.filesMu.Unlock()

	res.record.SourcePath = res.path
	if err := c.db.Ingest(res.record); err != nil {
		c.logger.Warn("ingest failed", "path", res.path, "error", err)
		observability.IngestTotal.WithLabelValues("failed").Inc()
		return false
	}
	c.filesMu.Lock()
	c.files[res.path] = fileEntry{class: res.record.Name, hash: res.hash}
	c.filesMu.Unlock()
	if known && prev.class != res.record.Name && !c.classStillProvided(prev.class) {
		c.db.Remove(prev.class)
	}
	observability.IngestTotal.WithLabelValues("ingested").Inc()
	if known {
		c.logger.Debug("class updated", "class", res.record.Name, "subclasses", len(c.db.Subclasses(res.record.Name)))
	}

	if c.store != nil {
		err := c.store.Upsert(ctx, ports.CachedRecord{
			Path:    res.path,
			Class:   res.record.Name,
			Hash:    res.hash,
			Payload: res.payload,
		})
		if err != nil {
			c.logger.Warn("record cache update failed", "path", res.path, "error", err)
		}
	}
	return true
}

func (c *Context) classStillProvided(class string) bool {
	c.filesMu.Lock()
	defer c.filesMu.Unlock()
	for _, e := range c.files {
		if e.class == class {
			return true
		}
	}
	return false
}

// warmStart ingests the cached records and returns the paths it saw.
func (c *Context) warmStart(ctx context.Context) map[string]bool {
	seen := make(map[string]bool)
	if c.store == nil {
		return seen
	}
	records, err := c.store.All(ctx)
	if err != nil {
		c.logger.Warn("record cache unavailable", "error", err)
		return seen
	}
	for _, rec := range records {
		seen[rec.Path] = true
		record, err := namespace.DecodeRecord(rec.Payload)
		if err != nil {
			c.logger.Debug("dropping undecodable cached record", "path", rec.Path, "error", err)
			continue
		}
		c.apply(ctx, decoded{path: rec.Path, payload: rec.Payload, hash: rec.Hash, record: record})
	}
	c.logger.Debug("warm start", "records", len(records))
	return seen
}

// metadataFiles lists absolute paths matched by the metadata globs, sorted
// and without duplicates.
func (c *Context) metadataFiles() ([]string, error) {
	fsys := os.DirFS(c.root)
	set := make(map[string]bool)
	for _, pattern := range c.cfg.Project.MetadataGlobs {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeValidationError, "bad metadata glob"),
				errors.CtxPath, pattern)
		}
		for _, m := range matches {
			set[filepath.Join(c.root, filepath.FromSlash(m))] = true
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// matchesMetadata reports whether an absolute path falls under a metadata glob.
func (c *Context) matchesMetadata(path string) bool {
	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range c.cfg.Project.MetadataGlobs {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func readRecord(path string) decoded {
	res := decoded{path: path}
	payload, err := os.ReadFile(path)
	if err != nil {
		code := errors.CodeMetadataIO
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		res.err = errors.AddContext(errors.Wrap(err, code, "read metadata"), errors.CtxPath, path)
		return res
	}
	res.payload = payload
	res.hash = metastore.Hash(payload)
	record, err := namespace.DecodeRecord(payload)
	if err != nil {
		res.err = errors.AddContext(err, errors.CtxPath, path)
		return res
	}
	res.record = record
	return res
}
