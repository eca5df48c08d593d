package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darwin/internal/agent"
	"darwin/internal/model"
)

func seedRepo(t *testing.T) string {
	t.Helper()
	repo := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(repo, "tests"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "main.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "tests", "main_test.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "check.sh"), []byte("#!/bin/sh\nexit 0\n"), 0o755))
	return repo
}

func testVendor(t *testing.T) agent.Vendor {
	t.Helper()
	v, err := agent.Lookup("claude-code")
	require.NoError(t, err)
	return v
}

func TestPrepareLaysOutWorkspace(t *testing.T) {
	repo := seedRepo(t)
	p := NewProvisioner(t.TempDir(), "run1", repo, []string{"tests", "check.sh"}, testVendor(t))

	task := model.Task{ID: "agent-1234", Generation: 0, StepIndex: 0, Prompt: "do the thing"}
	ws, err := p.Prepare(task)
	require.NoError(t, err)
	assert.Equal(t, p.Path(task.ID), ws)

	assert.FileExists(t, filepath.Join(ws, "repo", "main.go"))
	assert.FileExists(t, filepath.Join(ws, "repo", "tests", "main_test.go"))
	assert.FileExists(t, filepath.Join(ws, "pristine", "tests", "main_test.go"))
	assert.FileExists(t, filepath.Join(ws, "pristine", "check.sh"))
	assert.DirExists(t, filepath.Join(ws, "results"))
	assert.DirExists(t, filepath.Join(ws, "transcript"))

	b, err := os.ReadFile(filepath.Join(ws, "task.json"))
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(b, &meta))
	assert.Equal(t, "agent-1234", meta["id"])
	assert.Equal(t, "do the thing", meta["prompt"])
}

// Editing the repo copy must never leak into the source repository or the
// pristine snapshot.
func TestPrepareIsolatesRepoCopy(t *testing.T) {
	repo := seedRepo(t)
	p := NewProvisioner(t.TempDir(), "run1", repo, []string{"check.sh"}, testVendor(t))

	ws, err := p.Prepare(model.Task{ID: "agent-iso", Prompt: "p"})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(ws, "repo", "main.go"), []byte("tampered"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ws, "repo", "check.sh"), []byte("tampered"), 0o755))

	orig, err := os.ReadFile(filepath.Join(repo, "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(orig))

	pristine, err := os.ReadFile(filepath.Join(ws, "pristine", "check.sh"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\nexit 0\n", string(pristine))
}

func TestPrepareSkipsMissingProtectedPaths(t *testing.T) {
	repo := seedRepo(t)
	p := NewProvisioner(t.TempDir(), "run1", repo, []string{"no-such-dir", "check.sh"}, testVendor(t))

	ws, err := p.Prepare(model.Task{ID: "agent-miss", Prompt: "p"})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(ws, "pristine", "check.sh"))
	assert.NoDirExists(t, filepath.Join(ws, "pristine", "no-such-dir"))
}

func TestPrepareReplacesStaleRepoCopy(t *testing.T) {
	repo := seedRepo(t)
	p := NewProvisioner(t.TempDir(), "run1", repo, nil, testVendor(t))
	task := model.Task{ID: "agent-re", Prompt: "p"}

	ws, err := p.Prepare(task)
	require.NoError(t, err)
	stale := filepath.Join(ws, "repo", "leftover.txt")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

	_, err = p.Prepare(task)
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(ws, "repo", "main.go"))
}

func TestCleanupRemovesRunDir(t *testing.T) {
	base := t.TempDir()
	p := NewProvisioner(base, "run1", seedRepo(t), nil, testVendor(t))

	_, err := p.Prepare(model.Task{ID: "agent-gone", Prompt: "p"})
	require.NoError(t, err)
	require.NoError(t, p.Cleanup())
	assert.NoDirExists(t, filepath.Join(base, "run1"))
}

func TestCopyTreePreservesSymlinks(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "real.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink("real.txt", filepath.Join(src, "link.txt")))

	dst := filepath.Join(t.TempDir(), "out")
	require.NoError(t, CopyTree(src, dst))

	target, err := os.Readlink(filepath.Join(dst, "link.txt"))
	require.NoError(t, err)
	assert.Equal(t, "real.txt", target)
}
