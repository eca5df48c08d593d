// Package job dispatches one isolated unit of work per task onto a compute
// substrate and waits for it under timeout with fatal-event detection.
package job

import "darwin/internal/model"

// Substrate is the compute backend contract. It accepts a task plus a
// mountable workspace and hands back an opaque job handle; terminal
// progress is queried by handle, fatal events by task identity.
type Substrate interface {
	// CreateJob starts one unit of work. The workspace path follows the
	// on-disk contract: repo/, results/, transcript/, task.json.
	CreateJob(task model.Task, workspacePath string) (handle string, err error)

	// JobCounts reports terminal success/failure counts for a job.
	JobCounts(handle string) (succeeded, failed int, err error)

	// FatalEvent reports a fatal startup/runtime condition for a task, if
	// any. Fatal events short-circuit the wait loop to an error result.
	FatalEvent(taskID string) (string, bool)

	// DeleteJob tears a job down and frees its substrate resources.
	DeleteJob(handle string) error

	// Cleanup tears down every job created through this substrate.
	Cleanup() error
}
