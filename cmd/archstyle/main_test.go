package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejo1307/archstyle/internal/facts"
)

func writeShop(t *testing.T) string {
	t.Helper()
	repo := t.TempDir()
	files := map[string]string{
		"go.mod":                        "module example.com/shop\n\ngo 1.22\n",
		"internal/handlers/orders.go":   "package handlers\n\nimport \"example.com/shop/internal/services\"\n\ntype OrderHandler struct {\n\tsvc *services.OrderService\n}\n",
		"internal/services/orders.go":   "package services\n\ntype OrderService struct{}\n",
		"deploy/docker-compose.yml":     "services:\n  api:\n    build: .\n",
		"internal/services/orders.yaml": "not: [valid",
	}
	for name, content := range files {
		path := filepath.Join(repo, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return repo
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestAnalyze_Markdown(t *testing.T) {
	repo := writeShop(t)

	out, err := run(t, "analyze", repo)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Architecture Report"), out)
	assert.Contains(t, out, "## Design Intents")

	_, err = os.Stat(filepath.Join(repo, ".archstyle"))
	assert.True(t, os.IsNotExist(err), "nothing is written without --write")
}

func TestAnalyze_JSONWrite(t *testing.T) {
	repo := writeShop(t)

	out, err := run(t, "analyze", repo, "--format", "json", "--write")
	require.NoError(t, err)
	assert.Contains(t, out, `"separation_of_concerns"`)

	for _, name := range []string{"report.md", "report.json", "facts.jsonl", "snapshot.meta.json"} {
		_, err := os.Stat(filepath.Join(repo, ".archstyle", name))
		assert.NoError(t, err, name)
	}
}

func TestAnalyze_UnknownFormat(t *testing.T) {
	_, err := run(t, "analyze", t.TempDir(), "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestFacts(t *testing.T) {
	repo := writeShop(t)

	out, err := run(t, "facts", repo)
	require.NoError(t, err)

	ff, err := facts.DecodeFacts(strings.NewReader(out))
	require.NoError(t, err)

	paths := make(map[string]bool)
	for _, f := range ff {
		paths[f.Path] = true
	}
	assert.True(t, paths["internal/handlers/orders.go"])
	assert.True(t, paths["internal/services/orders.go"])
	assert.True(t, paths["deploy/docker-compose.yml"])
}

func TestConfigFlag_InvalidFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "archstyle.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("ignore: [unclosed"), 0o644))

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"--config", cfgPath, "facts", t.TempDir()})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}
