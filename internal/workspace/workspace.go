// Package workspace materializes the isolated per-task filesystem scope:
// a mutable repo copy, an immutable snapshot of protected harness paths,
// result/transcript directories, and task metadata.
package workspace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"darwin/internal/agent"
	"darwin/internal/logger"
	"darwin/internal/model"
)

type Provisioner struct {
	runDir         string
	repoPath       string
	protectedPaths []string
	vendor         agent.Vendor
}

// NewProvisioner scopes all workspaces for one run under baseDir/runID.
func NewProvisioner(baseDir, runID, repoPath string, protectedPaths []string, vendor agent.Vendor) *Provisioner {
	return &Provisioner{
		runDir:         filepath.Join(baseDir, runID),
		repoPath:       repoPath,
		protectedPaths: protectedPaths,
		vendor:         vendor,
	}
}

// Path returns the workspace root for a task.
func (p *Provisioner) Path(taskID string) string {
	return filepath.Join(p.runDir, taskID)
}

// Prepare builds the on-disk workspace for a task and returns its root.
func (p *Provisioner) Prepare(task model.Task) (string, error) {
	ws := p.Path(task.ID)
	if err := os.MkdirAll(ws, 0o755); err != nil {
		return "", fmt.Errorf("create workspace: %w", err)
	}

	repoDest := filepath.Join(ws, "repo")
	if err := os.RemoveAll(repoDest); err != nil {
		return "", fmt.Errorf("clear stale repo copy: %w", err)
	}
	if err := CopyTree(p.repoPath, repoDest); err != nil {
		return "", fmt.Errorf("copy repo: %w", err)
	}

	if len(p.protectedPaths) > 0 {
		if err := p.snapshotProtected(ws, repoDest); err != nil {
			return "", err
		}
	}

	for _, dir := range []string{"results", "transcript"} {
		if err := os.MkdirAll(filepath.Join(ws, dir), 0o755); err != nil {
			return "", fmt.Errorf("create %s dir: %w", dir, err)
		}
	}

	taskData := p.vendor.BuildTaskConfig(task)
	b, err := json.MarshalIndent(taskData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal task.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(ws, "task.json"), b, 0o644); err != nil {
		return "", fmt.Errorf("write task.json: %w", err)
	}

	logger.Log.Printf("[Workspace] Prepared workspace for task '%s' at %s", task.ID, ws)
	return ws, nil
}

// snapshotProtected copies the protected harness paths from the fresh repo
// copy into pristine/ before the agent can touch them.
func (p *Provisioner) snapshotProtected(ws, repoDir string) error {
	pristine := filepath.Join(ws, "pristine")
	saved := 0
	for _, rel := range p.protectedPaths {
		src := filepath.Join(repoDir, rel)
		info, err := os.Stat(src)
		if err != nil {
			logger.Log.Printf("[Workspace] Protected path not found in repo: %s", rel)
			continue
		}
		dest := filepath.Join(pristine, rel)
		if info.IsDir() {
			err = CopyTree(src, dest)
		} else {
			err = CopyFile(src, dest)
		}
		if err != nil {
			return fmt.Errorf("snapshot protected path %s: %w", rel, err)
		}
		saved++
	}
	if saved > 0 {
		logger.Log.Printf("[Workspace] Saved %d protected path(s) to %s", saved, pristine)
	}
	return nil
}

// Cleanup removes every workspace of the run.
func (p *Provisioner) Cleanup() error {
	if err := os.RemoveAll(p.runDir); err != nil {
		return fmt.Errorf("cleanup workspaces: %w", err)
	}
	return nil
}

// CopyTree copies a directory tree. Symlinks are recreated, not followed.
func CopyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.Mode()&os.ModeSymlink != 0 {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			return os.Symlink(link, target)
		}
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return CopyFile(path, target)
	})
}

// CopyFile copies one file, creating parent directories as needed.
func CopyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
