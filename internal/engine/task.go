package engine

import (
	"time"

	"redline/engine/internal/resolve"
)

// Kind distinguishes how an edit request pins its target.
type Kind string

const (
	// KindHintBased requests carry a natural-language hint; the locator
	// finds the snippet and the reviewer confirms it.
	KindHintBased Kind = "hint_based"
	// KindSelectionBased requests carry an explicit editor selection. A
	// user-made selection needs no independent confirmation, so these
	// tasks go straight to diff approval.
	KindSelectionBased Kind = "selection_based"
)

// Status of the active task. Idle is represented by the absence of a task.
type Status string

const (
	StatusLocating                     Status = "locating_snippet"
	StatusAwaitingLocationConfirmation Status = "awaiting_location_confirmation"
	StatusAwaitingDiffApproval         Status = "awaiting_diff_approval"
	StatusAwaitingClarification        Status = "awaiting_clarification"
)

// EditRequest is one queued unit of work. Snapshot is the full document text
// captured when the request was accepted and is never recomputed: every
// offset for this request resolves against it, regardless of how the live
// document moves on while the request waits.
type EditRequest struct {
	ID          string             `json:"id"`
	Kind        Kind               `json:"kind"`
	Instruction string             `json:"instruction"`
	Hint        string             `json:"hint,omitempty"`
	Selection   *resolve.Selection `json:"selection,omitempty"`
	Snapshot    string             `json:"-"`
	// Location is pre-resolved at submit time for selection-based requests.
	Location *resolve.Location `json:"-"`
}

type proposal struct {
	Original string
	Edited   string
}

// activeTask is the single in-flight unit of work. At most one exists at any
// time; that invariant is what makes snapshot-based splicing safe.
type activeTask struct {
	req      *EditRequest
	status   Status
	location *resolve.Location
	proposed *proposal
}

// TaskResult is one audit-log entry for a resolved task or session action.
type TaskResult struct {
	ID      string    `json:"id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

const (
	resultApproved          = "task_approved"
	resultCancelled         = "task_cancelled"
	resultCancelledOnRevert = "task_cancelled_on_revert"
	resultLocationFailed    = "location_failed"
	resultCollabFailed      = "collaborator_failed"
)
