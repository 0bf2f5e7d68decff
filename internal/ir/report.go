package ir

import "time"

// ResultStatus is the final per-resource outcome of a run.
type ResultStatus string

const (
	// ResultApplied means the action committed and state was updated.
	ResultApplied ResultStatus = "applied"
	// ResultDestroyed means a delete committed and the entry was removed.
	ResultDestroyed ResultStatus = "destroyed"
	// ResultFailed means the action failed permanently.
	ResultFailed ResultStatus = "failed"
	// ResultBlocked means the action was skipped because something it
	// depends on failed or was itself blocked.
	ResultBlocked ResultStatus = "blocked"
	// ResultCancelled means the action never started because the run was
	// cancelled.
	ResultCancelled ResultStatus = "cancelled"
)

// RunStatus is the overall outcome of an apply or destroy run.
type RunStatus string

const (
	RunSuccess        RunStatus = "success"
	RunPartialFailure RunStatus = "partial-failure"
	RunCancelled      RunStatus = "cancelled"
)

// ResourceResult is the per-resource line of an execution report.
type ResourceResult struct {
	Address  string        `json:"address"`
	Action   ActionType    `json:"action"`
	Status   ResultStatus  `json:"status"`
	Error    string        `json:"error,omitempty"` // provider reason, verbatim
	Duration time.Duration `json:"duration,omitempty"`
}

// ExecutionReport enumerates every resource touched by a run with its final
// status. A run always terminates with a report; provider failures are
// folded into it rather than raised.
type ExecutionReport struct {
	Status  RunStatus         `json:"status"`
	Results []*ResourceResult `json:"results"`

	Applied   int `json:"applied"`
	Destroyed int `json:"destroyed"`
	Failed    int `json:"failed"`
	Blocked   int `json:"blocked"`
	Cancelled int `json:"cancelled"`
}

// Record appends a result and bumps the matching counter.
func (r *ExecutionReport) Record(res *ResourceResult) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case ResultApplied:
		r.Applied++
	case ResultDestroyed:
		r.Destroyed++
	case ResultFailed:
		r.Failed++
	case ResultBlocked:
		r.Blocked++
	case ResultCancelled:
		r.Cancelled++
	}
}

// Finalize sets the run status from the accumulated results.
func (r *ExecutionReport) Finalize(cancelled bool) {
	switch {
	case cancelled:
		r.Status = RunCancelled
	case r.Failed > 0 || r.Blocked > 0:
		r.Status = RunPartialFailure
	default:
		r.Status = RunSuccess
	}
}

// ExitCode maps the run outcome to the process exit code contract:
// 0 success, 2 one or more resources failed, blocked, or cancelled.
func (r *ExecutionReport) ExitCode() int {
	if r.Failed > 0 || r.Blocked > 0 || r.Cancelled > 0 {
		return 2
	}
	return 0
}
