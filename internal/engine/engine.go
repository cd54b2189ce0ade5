// Package engine drives human-reviewed, localized edits to a document.
//
// Requests queue up in submission order and are processed one at a time.
// Each task moves through a gatekeeper phase (locate the snippet, have the
// reviewer confirm it) and a worker phase (rewrite the snippet, have the
// reviewer approve the diff) before the result is spliced back into the
// live document. All offsets for a task resolve against the snapshot taken
// when its request was submitted.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"redline/engine/internal/collab"
	"redline/engine/internal/content"
	"redline/engine/internal/diff"
	"redline/engine/internal/errinfo"
	"redline/engine/internal/logging"
	"redline/engine/internal/resolve"
	"redline/engine/internal/settings"
)

const (
	APIVersion = "1"
	Version    = "0.1.0"
	engineName = "redline-engine"
)

// Outbound notification methods. Every transition emits exactly one
// view.update; the remaining methods carry stage-specific payloads.
const (
	NotifyViewUpdate             = "view.update"
	NotifyConfirmLocation        = "edit.confirm_location"
	NotifyDiffProposed           = "edit.diff_proposed"
	NotifyClarificationRequested = "edit.clarification_requested"
	NotifyError                  = "engine.error"
)

const diffContextBytes = 50

// Notifier delivers one-way notifications to the UI. Implementations must
// not call back into the engine: notifications fire while engine state is
// locked.
type Notifier func(method string, params any)

// Engine is the task controller. All exported methods are safe for
// concurrent use; collaborator calls run outside the state lock and task
// identity is re-checked when they return.
type Engine struct {
	mu       sync.Mutex
	logger   *slog.Logger
	notify   Notifier
	content  *content.Store
	store    *settings.Store
	locator  collab.Locator
	rewriter collab.Rewriter
	queue    requestQueue
	active   *activeTask
	results  []TaskResult
	started  bool
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithCollaborators(locator collab.Locator, rewriter collab.Rewriter) Option {
	return func(e *Engine) {
		e.locator = locator
		e.rewriter = rewriter
	}
}

func WithSettingsStore(store *settings.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

func New(document string, opts ...Option) *Engine {
	e := &Engine{
		logger:  logging.Nop(),
		notify:  func(string, any) {},
		content: content.NewStore(document),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetNotifier installs the outbound notification sink.
func (e *Engine) SetNotifier(notify Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if notify != nil {
		e.notify = notify
	}
}

// --- session operations ---

type InfoResult struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
}

func (e *Engine) Info() (InfoResult, *errinfo.ErrorInfo) {
	return InfoResult{Name: engineName, Version: Version, APIVersion: APIVersion}, nil
}

// Start begins the session: emits the initial view update and starts
// processing any requests queued before the session opened.
func (e *Engine) Start(ctx context.Context) (StateResult, *errinfo.ErrorInfo) {
	e.mu.Lock()
	e.started = true
	state := e.stateLocked()
	e.notifyViewLocked()
	e.mu.Unlock()
	e.processNext(ctx)
	return state, nil
}

type StateResult struct {
	Document     string       `json:"document"`
	QueueSize    int          `json:"queue_size"`
	IsProcessing bool         `json:"is_processing"`
	ActiveStatus Status       `json:"active_status,omitempty"`
	ActiveHint   string       `json:"active_hint,omitempty"`
	Results      []TaskResult `json:"results"`
}

func (e *Engine) State() (StateResult, *errinfo.ErrorInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked(), nil
}

func (e *Engine) stateLocked() StateResult {
	state := StateResult{
		Document:     e.content.Live(),
		QueueSize:    e.queue.size(),
		IsProcessing: e.active != nil,
		Results:      append([]TaskResult(nil), e.results...),
	}
	if e.active != nil {
		state.ActiveStatus = e.active.status
		state.ActiveHint = e.active.req.Hint
	}
	return state
}

// Revert restores the session-start document, clears the queue, and
// discards any active task. Idempotent.
func (e *Engine) Revert() (StateResult, *errinfo.ErrorInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.content.Revert()
	if e.active != nil {
		e.appendResultLocked(resultCancelledOnRevert, fmt.Sprintf("task for hint %q cancelled due to revert", e.active.req.Hint))
		e.active = nil
	}
	if e.queue.size() > 0 {
		e.logger.Info("engine.revert_cleared_queue", "dropped", e.queue.size())
		e.queue.clear()
	}
	e.notifyViewLocked()
	return e.stateLocked(), nil
}

type TerminateResult struct {
	Document string       `json:"document"`
	Results  []TaskResult `json:"results"`
}

// Terminate reports the final document and the audit log. The transport
// owns actual process shutdown.
func (e *Engine) Terminate() (TerminateResult, *errinfo.ErrorInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger.Info("engine.session_terminated", "results", len(e.results))
	return TerminateResult{
		Document: e.content.Live(),
		Results:  append([]TaskResult(nil), e.results...),
	}, nil
}

// --- content operations ---

type ContentResult struct {
	Document string `json:"document"`
}

func (e *Engine) Content() (ContentResult, *errinfo.ErrorInfo) {
	return ContentResult{Document: e.content.Live()}, nil
}

type ContentDiffResult struct {
	Lines []diff.Line `json:"lines"`
	Stats diff.Stats  `json:"stats"`
}

// ContentDiff compares the session-start snapshot with the live document.
func (e *Engine) ContentDiff() (ContentDiffResult, *errinfo.ErrorInfo) {
	lines := diff.Lines(e.content.Initial(), e.content.Live())
	return ContentDiffResult{Lines: lines, Stats: diff.Count(lines)}, nil
}

// --- settings operations ---

func (e *Engine) Settings() (*settings.Settings, *errinfo.ErrorInfo) {
	if e.store == nil {
		return nil, errinfo.ProviderNotConfigured(errinfo.PhaseSettings, "no settings store configured")
	}
	loaded, err := e.store.Load()
	if err != nil {
		return nil, errinfo.FileReadFailed(err.Error())
	}
	return loaded, nil
}

// UpdateSettings persists new settings. Provider changes take effect on the
// next engine start; the running session keeps its collaborators.
func (e *Engine) UpdateSettings(updated *settings.Settings) (*settings.Settings, *errinfo.ErrorInfo) {
	if e.store == nil {
		return nil, errinfo.ProviderNotConfigured(errinfo.PhaseSettings, "no settings store configured")
	}
	if err := e.store.Save(updated); err != nil {
		return nil, errinfo.FileWriteFailed(err.Error())
	}
	return updated, nil
}

// --- edit operations ---

type SubmitEditParams struct {
	Kind        Kind               `json:"kind"`
	Instruction string             `json:"instruction"`
	Hint        string             `json:"hint,omitempty"`
	Selection   *resolve.Selection `json:"selection,omitempty"`
}

type SubmitEditResult struct {
	RequestID string `json:"request_id"`
	QueueSize int    `json:"queue_size"`
}

// SubmitEdit validates and enqueues a request, capturing the document
// snapshot at this moment. Selection-based requests resolve their offsets
// here and are rejected before entering the queue when out of bounds.
func (e *Engine) SubmitEdit(ctx context.Context, p SubmitEditParams) (SubmitEditResult, *errinfo.ErrorInfo) {
	if p.Instruction == "" {
		return SubmitEditResult{}, errinfo.ValidationFailed(errinfo.PhaseGatekeeper, "instruction is required")
	}
	switch p.Kind {
	case KindHintBased:
		if p.Hint == "" {
			return SubmitEditResult{}, errinfo.ValidationFailed(errinfo.PhaseGatekeeper, "hint is required for hint_based requests")
		}
	case KindSelectionBased:
		if p.Selection == nil {
			return SubmitEditResult{}, errinfo.ValidationFailed(errinfo.PhaseGatekeeper, "selection is required for selection_based requests")
		}
	default:
		return SubmitEditResult{}, errinfo.ValidationFailed(errinfo.PhaseGatekeeper, fmt.Sprintf("unknown request kind %q", p.Kind))
	}

	e.mu.Lock()
	snapshot := e.content.Snapshot()
	req := &EditRequest{
		ID:          uuid.NewString(),
		Kind:        p.Kind,
		Instruction: p.Instruction,
		Hint:        p.Hint,
		Selection:   p.Selection,
		Snapshot:    snapshot,
	}
	if p.Kind == KindSelectionBased {
		loc, err := resolve.FromSelection(snapshot, *p.Selection)
		if err != nil {
			e.mu.Unlock()
			return SubmitEditResult{}, errinfo.InvalidSelectionRange(err.Error())
		}
		req.Location = &loc
	}
	e.queue.enqueue(req)
	e.logger.Info("engine.request_queued", "request_id", req.ID, "kind", req.Kind, "queue_size", e.queue.size())
	result := SubmitEditResult{RequestID: req.ID, QueueSize: e.queue.size()}
	start := e.started && e.active == nil
	e.notifyViewLocked()
	e.mu.Unlock()

	if start {
		e.processNext(ctx)
	}
	return result, nil
}

type ConfirmLocationParams struct {
	Location    resolve.Location `json:"location"`
	Instruction string           `json:"instruction,omitempty"`
}

// ConfirmLocation is the gatekeeper handoff: the reviewer accepted (or
// adjusted) the located snippet. Adjusted offsets are re-validated against
// the task snapshot, then the worker phase rewrites the snippet.
func (e *Engine) ConfirmLocation(ctx context.Context, p ConfirmLocationParams) (StateResult, *errinfo.ErrorInfo) {
	e.mu.Lock()
	task := e.active
	if task == nil || task.status != StatusAwaitingLocationConfirmation {
		e.mu.Unlock()
		return StateResult{}, errinfo.InvalidState(errinfo.PhaseGatekeeper, "no task awaiting location confirmation")
	}
	snapshot := task.req.Snapshot
	start, end := p.Location.StartOffset, p.Location.EndOffset
	if start < 0 || end < start || end > len(snapshot) {
		e.mu.Unlock()
		return StateResult{}, errinfo.InvalidSelectionRange(fmt.Sprintf("offsets [%d,%d) out of range for snapshot of %d bytes", start, end, len(snapshot)))
	}
	// the snapshot text between the offsets is authoritative
	task.location = &resolve.Location{Snippet: snapshot[start:end], StartOffset: start, EndOffset: end}
	if p.Instruction != "" {
		task.req.Instruction = p.Instruction
	}
	e.mu.Unlock()

	if !e.runRewrite(ctx, task) {
		e.processNext(ctx)
	}
	return e.State()
}

const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
	DecisionCancel  = "cancel"
)

type DecideParams struct {
	Decision string `json:"decision"`
	// EditedSnippet carries the reviewer's manual rewrite; when present it
	// wins over the proposed snippet on approve.
	EditedSnippet *string `json:"edited_snippet,omitempty"`
}

// Decide resolves the diff-approval stage. Approve splices the final
// snippet into the task snapshot and installs the result as the live
// document, the task's single mutation of the session. Reject asks the
// reviewer for clarification; cancel discards the task.
func (e *Engine) Decide(ctx context.Context, p DecideParams) (StateResult, *errinfo.ErrorInfo) {
	e.mu.Lock()
	task := e.active
	if task == nil {
		e.mu.Unlock()
		return StateResult{}, errinfo.InvalidState(errinfo.PhaseWorker, "no active task")
	}

	switch p.Decision {
	case DecisionCancel:
		// cancel is honored at any stage
		e.appendResultLocked(resultCancelled, fmt.Sprintf("task %s cancelled by reviewer", task.req.ID))
		e.active = nil
		e.notifyViewLocked()
		state := e.stateLocked()
		e.mu.Unlock()
		e.processNext(ctx)
		return state, nil

	case DecisionApprove:
		if task.status != StatusAwaitingDiffApproval || task.proposed == nil {
			e.mu.Unlock()
			return StateResult{}, errinfo.InvalidState(errinfo.PhaseWorker, "no proposal awaiting approval")
		}
		final := task.proposed.Edited
		if p.EditedSnippet != nil {
			final = *p.EditedSnippet
		}
		newDoc := content.Splice(task.req.Snapshot, task.location.StartOffset, task.location.EndOffset, final)
		e.content.SetLive(newDoc)
		e.appendResultLocked(resultApproved, fmt.Sprintf("approved edit for request %s", task.req.ID))
		e.logger.Info("engine.edit_applied",
			"request_id", task.req.ID,
			"start", task.location.StartOffset,
			"end", task.location.EndOffset,
			"replacement_bytes", len(final))
		e.active = nil
		e.notifyViewLocked()
		state := e.stateLocked()
		e.mu.Unlock()
		e.processNext(ctx)
		return state, nil

	case DecisionReject:
		if task.status != StatusAwaitingDiffApproval || task.proposed == nil {
			e.mu.Unlock()
			return StateResult{}, errinfo.InvalidState(errinfo.PhaseWorker, "no proposal awaiting approval")
		}
		task.status = StatusAwaitingClarification
		e.notify(NotifyClarificationRequested, struct{}{})
		e.notifyViewLocked()
		state := e.stateLocked()
		e.mu.Unlock()
		return state, nil

	default:
		e.mu.Unlock()
		return StateResult{}, errinfo.ValidationFailed(errinfo.PhaseWorker, fmt.Sprintf("unknown decision %q", p.Decision))
	}
}

type ClarifyParams struct {
	Hint        string `json:"hint,omitempty"`
	Instruction string `json:"instruction,omitempty"`
}

// SubmitClarification restarts the active task's gatekeeper loop with a new
// hint and/or instruction. The task snapshot is deliberately not refreshed:
// the retry runs against the same document version the task started with.
func (e *Engine) SubmitClarification(ctx context.Context, p ClarifyParams) (StateResult, *errinfo.ErrorInfo) {
	e.mu.Lock()
	task := e.active
	if task == nil || task.status != StatusAwaitingClarification {
		e.mu.Unlock()
		return StateResult{}, errinfo.InvalidState(errinfo.PhaseGatekeeper, "no task awaiting clarification")
	}
	if task.req.Kind == KindSelectionBased && p.Hint == "" && task.req.Hint == "" {
		e.mu.Unlock()
		return StateResult{}, errinfo.ValidationFailed(errinfo.PhaseGatekeeper, "clarifying a selection-based task requires a hint")
	}
	if p.Hint != "" {
		task.req.Hint = p.Hint
		// the retry path is the locate loop, so the task is hint-based now
		task.req.Kind = KindHintBased
	}
	if p.Instruction != "" {
		task.req.Instruction = p.Instruction
	}
	task.location = nil
	task.proposed = nil
	task.status = StatusLocating
	e.notifyViewLocked()
	e.mu.Unlock()

	if !e.runLocate(ctx, task) {
		e.processNext(ctx)
	}
	return e.State()
}

// --- state machine internals ---

// processNext dequeues and runs requests until one parks awaiting reviewer
// input, the queue drains, or another goroutine owns the active slot.
func (e *Engine) processNext(ctx context.Context) {
	for {
		e.mu.Lock()
		if !e.started || e.active != nil || e.queue.size() == 0 {
			e.notifyViewLocked()
			e.mu.Unlock()
			return
		}
		req := e.queue.popFront()
		task := &activeTask{req: req}
		e.active = task
		e.logger.Info("engine.task_started", "request_id", req.ID, "kind", req.Kind)

		if req.Kind == KindSelectionBased {
			// selection already pins the location: skip confirmation and go
			// straight to the worker phase
			task.location = req.Location
			task.status = StatusAwaitingDiffApproval
			e.notifyViewLocked()
			e.mu.Unlock()
			if e.runRewrite(ctx, task) {
				return
			}
			continue
		}

		task.status = StatusLocating
		e.notifyViewLocked()
		e.mu.Unlock()
		if e.runLocate(ctx, task) {
			return
		}
	}
}

// runLocate performs the locate collaborator call and the snapshot search.
// Returns true when the task parked awaiting input (or the call went stale),
// false when the task was discarded and the queue should advance.
func (e *Engine) runLocate(ctx context.Context, task *activeTask) bool {
	snapshot := task.req.Snapshot
	hint := task.req.Hint

	if e.locator == nil {
		return e.failTask(task, errinfo.ProviderNotConfigured(errinfo.PhaseGatekeeper, "no locator configured"), resultCollabFailed)
	}
	candidate, err := e.locator.Locate(ctx, snapshot, hint)

	e.mu.Lock()
	if e.active != task {
		e.logger.Debug("engine.stale_locate_dropped", "request_id", task.req.ID)
		e.mu.Unlock()
		return true
	}
	e.mu.Unlock()

	if err != nil {
		if errors.Is(err, collab.ErrNotFound) {
			return e.failTask(task, errinfo.LocationNotFound(task.req.ID, fmt.Sprintf("locator found no match for hint %q", hint)), resultLocationFailed)
		}
		return e.failTask(task, collabError(errinfo.PhaseGatekeeper, task.req.ID, err), resultCollabFailed)
	}

	loc, ok := resolve.FindSnippet(snapshot, candidate)
	if !ok {
		return e.failTask(task, errinfo.LocationNotFound(task.req.ID, fmt.Sprintf("snippet returned for hint %q not present in document", hint)), resultLocationFailed)
	}

	e.mu.Lock()
	if e.active != task {
		e.mu.Unlock()
		return true
	}
	task.location = &loc
	task.status = StatusAwaitingLocationConfirmation
	e.notify(NotifyConfirmLocation, ConfirmLocationEvent{
		Location:    loc,
		Hint:        task.req.Hint,
		Instruction: task.req.Instruction,
	})
	e.notifyViewLocked()
	e.mu.Unlock()
	return true
}

// runRewrite performs the rewrite collaborator call and emits the diff
// proposal. Same return contract as runLocate.
func (e *Engine) runRewrite(ctx context.Context, task *activeTask) bool {
	original := task.location.Snippet
	instruction := task.req.Instruction

	if e.rewriter == nil {
		return e.failTask(task, errinfo.ProviderNotConfigured(errinfo.PhaseWorker, "no rewriter configured"), resultCollabFailed)
	}
	edited, err := e.rewriter.Rewrite(ctx, original, instruction)

	e.mu.Lock()
	if e.active != task {
		e.logger.Debug("engine.stale_rewrite_dropped", "request_id", task.req.ID)
		e.mu.Unlock()
		return true
	}
	if err != nil {
		e.mu.Unlock()
		return e.failTask(task, collabError(errinfo.PhaseWorker, task.req.ID, err), resultCollabFailed)
	}

	task.proposed = &proposal{Original: original, Edited: edited}
	task.status = StatusAwaitingDiffApproval
	before, after := contextAround(task.req.Snapshot, task.location.StartOffset, task.location.EndOffset)
	lines := diff.Lines(original, edited)
	e.notify(NotifyDiffProposed, DiffProposedEvent{
		OriginalSnippet: original,
		EditedSnippet:   edited,
		ContextBefore:   before,
		ContextAfter:    after,
		Lines:           lines,
		Stats:           diff.Count(lines),
	})
	e.notifyViewLocked()
	e.mu.Unlock()
	return true
}

// collabError classifies a collaborator error into its transport-level
// cause where one is known.
func collabError(phase, taskID string, err error) *errinfo.ErrorInfo {
	var info *errinfo.ErrorInfo
	switch {
	case errors.Is(err, collab.ErrUnauthorized):
		info = errinfo.ProviderAuthFailed(phase)
	case errors.Is(err, collab.ErrRateLimited), errors.Is(err, collab.ErrUnavailable):
		info = errinfo.ProviderUnavailable(phase, err.Error())
	case errors.Is(err, collab.ErrEgressBlocked):
		info = errinfo.EgressBlocked(phase, err.Error())
	default:
		info = errinfo.CollaboratorFailure(phase, taskID, err.Error())
	}
	info.TaskID = taskID
	if info.Detail == "" {
		info.Detail = err.Error()
	}
	return info
}

// failTask discards the active task after reporting the failure. Returns
// false so callers advance the queue, or true when the task went stale.
func (e *Engine) failTask(task *activeTask, info *errinfo.ErrorInfo, resultStatus string) bool {
	e.mu.Lock()
	if e.active != task {
		e.mu.Unlock()
		return true
	}
	e.logger.Warn("engine.task_failed", "request_id", task.req.ID, "code", info.ErrorCode, "detail", info.Detail)
	e.appendResultLocked(resultStatus, info.Detail)
	e.active = nil
	e.notify(NotifyError, ErrorEvent{Message: info.Detail, Info: info})
	e.notifyViewLocked()
	e.mu.Unlock()
	return false
}

func (e *Engine) appendResultLocked(status, message string) {
	e.results = append(e.results, TaskResult{
		ID:      uuid.NewString(),
		Status:  status,
		Message: message,
		Time:    time.Now().UTC(),
	})
}

// --- notifications ---

type ViewUpdateEvent struct {
	Document     string `json:"document"`
	QueueSize    int    `json:"queue_size"`
	IsProcessing bool   `json:"is_processing"`
	ActiveStatus Status `json:"active_status,omitempty"`
	ActiveHint   string `json:"active_hint,omitempty"`
}

type ConfirmLocationEvent struct {
	Location    resolve.Location `json:"location"`
	Hint        string           `json:"hint"`
	Instruction string           `json:"instruction"`
}

type DiffProposedEvent struct {
	OriginalSnippet string      `json:"original_snippet"`
	EditedSnippet   string      `json:"edited_snippet"`
	ContextBefore   string      `json:"context_before"`
	ContextAfter    string      `json:"context_after"`
	Lines           []diff.Line `json:"lines"`
	Stats           diff.Stats  `json:"stats"`
}

type ErrorEvent struct {
	Message string             `json:"message"`
	Info    *errinfo.ErrorInfo `json:"info,omitempty"`
}

func (e *Engine) notifyViewLocked() {
	event := ViewUpdateEvent{
		Document:     e.content.Live(),
		QueueSize:    e.queue.size(),
		IsProcessing: e.active != nil,
	}
	if e.active != nil {
		event.ActiveStatus = e.active.status
		event.ActiveHint = e.active.req.Hint
	}
	e.notify(NotifyViewUpdate, event)
}

// contextAround returns up to diffContextBytes of snapshot text either side
// of [start,end), snapped outward to rune boundaries.
func contextAround(snapshot string, start, end int) (string, string) {
	from := start - diffContextBytes
	if from < 0 {
		from = 0
	}
	for from > 0 && !utf8.RuneStart(snapshot[from]) {
		from--
	}
	to := end + diffContextBytes
	if to > len(snapshot) {
		to = len(snapshot)
	}
	for to < len(snapshot) && !utf8.RuneStart(snapshot[to]) {
		to++
	}
	return snapshot[from:start], snapshot[end:to]
}
