package model

import "time"

// RunState names a stage of the reconciliation state machine.
type RunState string

const (
	StateScanning    RunState = "scanning"
	StateClassifying RunState = "classifying"
	StateUpserting   RunState = "upserting"
	StateValidating  RunState = "validating"
	StateReporting   RunState = "reporting"
	StateDone        RunState = "done"
)

// ItemFailure records one file that failed during a run. Failures are
// per-item; they never abort the run.
type ItemFailure struct {
	Path  string `json:"path"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// RunReport is the structured summary every reconciliation run ends with.
// Dry-run and write runs produce the identical shape so they can be diffed.
type RunReport struct {
	DryRun           bool                `json:"dry_run"`
	Root             string              `json:"root"`
	Scanned          int                 `json:"scanned"`
	Classified       map[ClassMethod]int `json:"classified"`
	Created          int                 `json:"created"`
	SkippedDuplicate int                 `json:"skipped_duplicate"`
	Orphaned         int                 `json:"orphaned"`
	Failed           []ItemFailure       `json:"failed"`
	Phases           []PhaseResult       `json:"phases"`
	StartedAt        time.Time           `json:"started_at"`
	Duration         time.Duration       `json:"duration"`
}

// NewRunReport returns a report with the tier counters initialized so the
// payload shape is stable regardless of which tiers were hit.
func NewRunReport(root string, dryRun bool) *RunReport {
	return &RunReport{
		DryRun: dryRun,
		Root:   root,
		Classified: map[ClassMethod]int{
			MatchFolderExact:     0,
			MatchFolderPartial:   0,
			MatchFilenameKeyword: 0,
			MatchNone:            0,
		},
		StartedAt: time.Now().UTC(),
	}
}

// PhaseResult holds the outcome of one state-machine stage.
type PhaseResult struct {
	State    RunState       `json:"state"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Severity orders validation issues for reporting.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// rank gives errors the lowest sort key so they surface first.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Issue is one validation finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Check    string   `json:"check"`
	Subject  string   `json:"subject"`
	Detail   string   `json:"detail"`
}

// CheckResult aggregates a single validation check.
type CheckResult struct {
	Name    string `json:"name"`
	Total   int    `json:"total"`
	Valid   int    `json:"valid"`
	Invalid int    `json:"invalid"`
}

// ValidationReport is the single structured output of a validation pass.
// Samples is capped and severity-sorted, never an unbounded dump.
type ValidationReport struct {
	Checks    []CheckResult `json:"checks"`
	Total     int           `json:"total"`
	Valid     int           `json:"valid"`
	Invalid   int           `json:"invalid"`
	Samples   []Issue       `json:"samples"`
	Truncated int           `json:"truncated,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// PushOutcome is the terminal status of one file in a remote sync.
type PushOutcome string

const (
	PushCompleted PushOutcome = "completed"
	PushRestored  PushOutcome = "restored"
	PushSkipped   PushOutcome = "skipped"
	PushFailed    PushOutcome = "failed"
)

// PushReport summarizes a remote sync run. Failures carry enough detail for
// a retry-only rerun.
type PushReport struct {
	Total     int           `json:"total"`
	Uploaded  int           `json:"uploaded"`
	Restored  int           `json:"restored"`
	Skipped   int           `json:"skipped"`
	Failed    []ItemFailure `json:"failed"`
	Cancelled bool          `json:"cancelled,omitempty"`
	Duration  time.Duration `json:"duration"`
}
