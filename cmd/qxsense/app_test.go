package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"qxsense/internal/core/errors"
	"qxsense/internal/engine/features"
	"qxsense/internal/engine/resolve"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const buttonMeta = `{
  "className": "app.ui.Button",
  "members": {"execute": {"type": "function"}},
  "properties": {"label": {"check": "String"}}
}`

func setupProject(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	meta := filepath.Join(root, "compiled", "meta", "app", "ui", "Button.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(meta), 0o755))
	require.NoError(t, os.WriteFile(meta, []byte(buttonMeta), 0o644))

	cfgPath := filepath.Join(root, "qxsense.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[project]\nroot = \".\"\n"), 0o644))

	src := filepath.Join(root, "source", "class", "app", "Main.js")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("var b = new app.ui.Button();\nb."), 0o644))
	return cfgPath, src
}

func TestRunClasses(t *testing.T) {
	cfgPath, _ := setupProject(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), options{ConfigPath: cfgPath, Mode: "classes"}, &out))

	var got classesResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, []string{"app.ui.Button"}, got.Classes)
	assert.Equal(t, 2, got.Packages)
}

func TestRunType(t *testing.T) {
	cfgPath, src := setupProject(t)
	var out bytes.Buffer
	opts := options{ConfigPath: cfgPath, Mode: "type", File: src, Offset: len("var b = new app.ui.Button();\nb")}
	require.NoError(t, run(context.Background(), opts, &out))

	var got resolve.TypeInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, resolve.CategoryInstance, got.Category)
	assert.Equal(t, "app.ui.Button", got.TypeName)
}

func TestRunCompleteToFile(t *testing.T) {
	cfgPath, src := setupProject(t)
	target := filepath.Join(t.TempDir(), "out", "items.json")
	require.NoError(t, run(context.Background(), options{ConfigPath: cfgPath, Mode: "complete", File: src, Out: target}, &bytes.Buffer{}))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	var items []features.CompletionItem
	require.NoError(t, json.Unmarshal(data, &items))

	labels := make([]string, 0, len(items))
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	assert.Contains(t, labels, "execute")
	assert.Contains(t, labels, "setLabel")
}

func TestRunErrors(t *testing.T) {
	cfgPath, src := setupProject(t)
	ctx := context.Background()

	err := run(ctx, options{ConfigPath: cfgPath, Mode: "bogus", File: src}, &bytes.Buffer{})
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))

	err = run(ctx, options{ConfigPath: cfgPath, Mode: "complete"}, &bytes.Buffer{})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	err = run(ctx, options{ConfigPath: filepath.Join(t.TempDir(), "missing.toml"), Mode: "classes"}, &bytes.Buffer{})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, path, err := loadConfig(options{Root: "/srv/app"})
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, "/srv/app", cfg.Project.Root)
}

func TestExploreModel_Selects(t *testing.T) {
	m := newModel([]features.CompletionItem{{Label: "execute", Kind: features.ItemMethod}}, "Main.js", 3)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	next, cmd := next.Update(tea.KeyMsg{Type: tea.KeyEnter})

	final := next.(model)
	require.NotNil(t, final.selected)
	assert.Equal(t, "execute", final.selected.Label)
	assert.NotNil(t, cmd)
	assert.Contains(t, final.View(), "qxsense completions")
}
