package job

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"darwin/internal/model"
)

// LocalSubstrate runs each job as a local process: the configured agent
// command with the task workspace as working directory. It satisfies the
// same contract a cluster-backed substrate would.
type LocalSubstrate struct {
	command string

	mu   sync.Mutex
	jobs map[string]*localJob // handle → job
}

type localJob struct {
	taskID string
	cmd    *exec.Cmd

	mu       sync.Mutex
	done     bool
	exitErr  error
	fatalMsg string
}

func NewLocalSubstrate(command string) *LocalSubstrate {
	return &LocalSubstrate{
		command: command,
		jobs:    map[string]*localJob{},
	}
}

func (s *LocalSubstrate) CreateJob(task model.Task, workspacePath string) (string, error) {
	if s.command == "" {
		return "", fmt.Errorf("local substrate: no agent command configured")
	}

	cmd := exec.Command("sh", "-c", s.command)
	cmd.Dir = workspacePath
	cmd.Env = append(os.Environ(),
		"DARWIN_TASK_ID="+task.ID,
		"DARWIN_WORKSPACE="+workspacePath,
	)
	// Own process group so teardown can kill the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	j := &localJob{taskID: task.ID, cmd: cmd}
	if err := cmd.Start(); err != nil {
		j.mu.Lock()
		j.done = true
		j.fatalMsg = fmt.Sprintf("failed to start agent process: %v", err)
		j.mu.Unlock()
	} else {
		go func() {
			err := cmd.Wait()
			j.mu.Lock()
			j.done = true
			j.exitErr = err
			j.mu.Unlock()
		}()
	}

	handle := fmt.Sprintf("local-%s", task.ID)
	s.mu.Lock()
	s.jobs[handle] = j
	s.mu.Unlock()
	return handle, nil
}

func (s *LocalSubstrate) job(handle string) (*localJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[handle]
	return j, ok
}

func (s *LocalSubstrate) JobCounts(handle string) (int, int, error) {
	j, ok := s.job(handle)
	if !ok {
		return 0, 0, fmt.Errorf("local substrate: unknown job %q", handle)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.done || j.fatalMsg != "" {
		return 0, 0, nil
	}
	if j.exitErr == nil {
		return 1, 0, nil
	}
	return 0, 1, nil
}

func (s *LocalSubstrate) FatalEvent(taskID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.taskID != taskID {
			continue
		}
		j.mu.Lock()
		msg := j.fatalMsg
		j.mu.Unlock()
		if msg != "" {
			return msg, true
		}
	}
	return "", false
}

func (s *LocalSubstrate) DeleteJob(handle string) error {
	j, ok := s.job(handle)
	if !ok {
		return fmt.Errorf("local substrate: unknown job %q", handle)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done || j.cmd.Process == nil {
		return nil
	}
	// Negative pid signals the process group.
	return syscall.Kill(-j.cmd.Process.Pid, syscall.SIGKILL)
}

func (s *LocalSubstrate) Cleanup() error {
	s.mu.Lock()
	handles := make([]string, 0, len(s.jobs))
	for h := range s.jobs {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	var firstErr error
	for _, h := range handles {
		if err := s.DeleteJob(h); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
