package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sulu/sulu-sub013/models"
)

// writeConfig points treectl at a fresh SQLite database
func writeConfig(t *testing.T) string {
	t.Setenv("APP_ENV", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "treectl.yaml")
	data := fmt.Sprintf("STORE_BACKEND: sqlite\nSQLITE_PATH: %s\nCACHE_BACKEND: memory\nLOG_LEVEL: error\n", filepath.Join(dir, "content.db"))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func execute(t *testing.T, cfg string, args ...string) (string, error) {
	parentID, title = "", ""
	parentPath, parentNode, templateKey = "", "", ""
	categoryParent, categoryKey = "", ""
	betweenFrom, betweenTo = nil, nil

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfg, "--scope", "site", "--author", "tester"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func run(t *testing.T, cfg string, args ...string) string {
	out, err := execute(t, cfg, args...)
	require.NoError(t, err, out)
	return out
}

func TestNodeCommands(t *testing.T) {
	cfg := writeConfig(t)

	var news models.Node
	require.NoError(t, json.Unmarshal([]byte(run(t, cfg, "node", "create", "News")), &news))
	assert.Equal(t, "/news", news.Path)
	assert.Equal(t, "tester", news.Creator)

	var hello models.Node
	require.NoError(t, json.Unmarshal([]byte(run(t, cfg, "node", "create", "Hello", "World", "--parent", news.ID)), &hello))
	assert.Equal(t, "/news/hello-world", hello.Path)

	out := run(t, cfg, "node", "ls", news.ID)
	assert.Contains(t, out, "1\t"+hello.ID+"\t/news/hello-world")

	var renamed models.Node
	require.NoError(t, json.Unmarshal([]byte(run(t, cfg, "node", "rename", hello.ID, "Hi")), &renamed))
	assert.Equal(t, "/news/hi", renamed.Path)

	var resolution models.Resolution
	require.NoError(t, json.Unmarshal([]byte(run(t, cfg, "path", "resolve", "/news/hello-world")), &resolution))
	assert.Equal(t, hello.ID, resolution.NodeID)
	assert.True(t, resolution.Redirect)

	var history []models.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(run(t, cfg, "path", "history", hello.ID)), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "/news/hello-world", history[0].ResourceLocator)

	assert.Equal(t, "/news/hello-world-2", strings.TrimSpace(run(t, cfg, "path", "generate", "Hello", "World", "--parent-path", "/news")))

	assert.Equal(t, "/news/hello-world", strings.TrimSpace(run(t, cfg, "path", "restore", "/news/hello-world")))

	out = run(t, cfg, "node", "rm", news.ID)
	assert.Contains(t, out, "removed "+news.ID)

	_, err := execute(t, cfg, "node", "tree", news.ID)
	assert.Error(t, err)
}

func TestCategoryCommands(t *testing.T) {
	cfg := writeConfig(t)

	var root models.Category
	require.NoError(t, json.Unmarshal([]byte(run(t, cfg, "category", "insert", "--key", "root")), &root))
	var child models.Category
	require.NoError(t, json.Unmarshal([]byte(run(t, cfg, "category", "insert", "--parent", root.ID, "--key", "child")), &child))
	var leaf models.Category
	require.NoError(t, json.Unmarshal([]byte(run(t, cfg, "category", "insert", "--parent", child.ID)), &leaf))
	assert.Equal(t, 2, leaf.Depth)

	var between []models.Category
	require.NoError(t, json.Unmarshal([]byte(run(t, cfg, "category", "between", "--from", root.ID, "--to", leaf.ID)), &between))
	require.Len(t, between, 1)
	assert.Equal(t, child.ID, between[0].ID)

	out := run(t, cfg, "category", "ls")
	assert.Contains(t, out, "    "+leaf.ID+" [3,4]")

	_, err := execute(t, cfg, "category", "move", root.ID, leaf.ID)
	assert.Error(t, err)

	assert.Equal(t, "ok", strings.TrimSpace(run(t, cfg, "category", "verify")))
}
