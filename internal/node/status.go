package node

// Status is the execution state of a node within one run.
type Status int32

const (
	// StatusPending indicates the node waits for its predecessors.
	StatusPending Status = iota
	// StatusRunning indicates a worker is executing the node.
	StatusRunning
	// StatusCompleted indicates the node executed successfully.
	StatusCompleted
	// StatusCached indicates outputs were restored from the cache.
	StatusCached
	// StatusSkipped indicates the node did not run because of an upstream
	// failure.
	StatusSkipped
	// StatusFailed indicates the node's execution returned an error.
	StatusFailed
	// StatusCancelled indicates the run was cancelled before the node ran.
	StatusCancelled
)

var statusNames = [...]string{"pending", "running", "completed", "cached", "skipped", "failed", "cancelled"}

func (s Status) String() string {
	if int(s) < len(statusNames) && s >= 0 {
		return statusNames[s]
	}
	return "unknown"
}

// Done reports whether the status is terminal.
func (s Status) Done() bool {
	return s >= StatusCompleted
}

// Succeeded reports whether outputs are available.
func (s Status) Succeeded() bool {
	return s == StatusCompleted || s == StatusCached
}
