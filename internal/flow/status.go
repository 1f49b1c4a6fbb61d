// SPDX-License-Identifier: MIT

package flow

// Status is the derived state of a task or pipeline step.
type Status string

const (
	// StatusPending means no lifecycle event has been observed yet.
	StatusPending Status = "pending"

	// StatusRunning means work has started (or partially completed for
	// a group) without a terminal event.
	StatusRunning Status = "running"

	// StatusSuccess means the authoritative terminal event carries no
	// error.
	StatusSuccess Status = "success"

	// StatusError means the authoritative terminal event carries an
	// error.
	StatusError Status = "error"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// DeriveGroupStatus rolls a list of task infos up into one status:
// error dominates; all success is success; any progress at all
// (a running child, or a mix of finished and pending children) is
// running; otherwise pending. An empty group is pending.
func DeriveGroupStatus(infos []TaskInfo) Status {
	if len(infos) == 0 {
		return StatusPending
	}
	allSuccess := true
	allPending := true
	for _, info := range infos {
		switch info.Status {
		case StatusError:
			return StatusError
		case StatusSuccess:
			allPending = false
		case StatusRunning:
			allSuccess = false
			allPending = false
		case StatusPending:
			allSuccess = false
		}
	}
	if allSuccess {
		return StatusSuccess
	}
	if allPending {
		return StatusPending
	}
	return StatusRunning
}
