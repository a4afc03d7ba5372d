// File: page/state.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package page

import "fmt"

// TaskState is the lifecycle position of one spawned Task.
type TaskState int32

const (
	// StateSpawned: thread requested, task not started yet.
	StateSpawned TaskState = iota
	// StateRunning: the task body is executing.
	StateRunning
	// StateNaturalCompletion: the task returned before anyone cancelled it
	// and initiated page shutdown.
	StateNaturalCompletion
	// StateExternalShutdown: the task was cancelled, or never ran because
	// the page had already stopped.
	StateExternalShutdown
	// StateThreadJoined: Join observed the thread exit.
	StateThreadJoined
)

var stateNames = [...]string{
	StateSpawned:           "spawned",
	StateRunning:           "running",
	StateNaturalCompletion: "natural-completion",
	StateExternalShutdown:  "external-shutdown-observed",
	StateThreadJoined:      "thread-joined",
}

func (s TaskState) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("TaskState(%d)", int32(s))
}

// Terminal reports whether the task body has finished.
func (s TaskState) Terminal() bool {
	return s >= StateNaturalCompletion
}
