package metastore

import (
	"context"
	"database/sql"
	"path/filepath"
	"qxsense/internal/core/ports"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path, project string) *Store {
	t.Helper()
	store, err := Open(path, project, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_UpsertGetDelete(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "records.db"), "app")

	payload := []byte(`{"className":"app.Main"}`)
	require.NoError(t, store.Upsert(ctx, ports.CachedRecord{Path: "meta/app/Main.json", Class: "app.Main", Payload: payload}))

	got, ok, err := store.Get(ctx, "meta/app/Main.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "app.Main", got.Class)
	assert.Equal(t, payload, got.Payload)
	assert.Equal(t, Hash(payload), got.Hash, "hash is filled in when missing")

	updated := []byte(`{"className":"app.Main","superClass":"qx.core.Object"}`)
	require.NoError(t, store.Upsert(ctx, ports.CachedRecord{Path: "meta/app/Main.json", Class: "app.Main", Payload: updated, Hash: Hash(updated)}))
	got, _, err = store.Get(ctx, "meta/app/Main.json")
	require.NoError(t, err)
	assert.Equal(t, updated, got.Payload)

	require.NoError(t, store.Delete(ctx, "meta/app/Main.json"))
	_, ok, err = store.Get(ctx, "meta/app/Main.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_AllIsScopedByProject(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.db")
	a := openStore(t, path, "a")

	for _, p := range []string{"z/Last.json", "a/First.json"} {
		require.NoError(t, a.Upsert(ctx, ports.CachedRecord{Path: p, Class: p, Payload: []byte("{}")}))
	}
	require.NoError(t, a.Close())

	b := openStore(t, path, "b")
	require.NoError(t, b.Upsert(ctx, ports.CachedRecord{Path: "other.json", Class: "b.Other", Payload: []byte("{}")}))

	reopened := openStore(t, path, "a")
	all, err := reopened.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a/First.json", all[0].Path)
	assert.Equal(t, "z/Last.json", all[1].Path)
}

func TestStore_LargeHashRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "records.db"), "")

	const hash = uint64(1<<63 + 12345)
	require.NoError(t, store.Upsert(ctx, ports.CachedRecord{Path: "x.json", Payload: []byte("{}"), Hash: hash}))
	got, ok, err := store.Get(ctx, "x.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, hash, got.Hash)
}

func TestOpenValidation(t *testing.T) {
	_, err := Open(" ", "x", 0)
	assert.Error(t, err)

	_, err = Open(t.TempDir(), "x", 0)
	assert.Error(t, err)

	store := openStore(t, filepath.Join(t.TempDir(), "records.db"), "x")
	assert.Error(t, store.Upsert(context.Background(), ports.CachedRecord{}))
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	store := openStore(t, path, "x")
	require.NoError(t, EnsureSchema(store.db))

	var version int
	require.NoError(t, store.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version))
	assert.Equal(t, SchemaVersion, version)
}

func TestEnsureSchemaRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	db, err := sql.Open(driverName, path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, EnsureSchema(db))
	_, err = db.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1)
	require.NoError(t, err)

	assert.Error(t, EnsureSchema(db))
}
