// Package term is a line-oriented terminal reviewer for an edit session.
// It drives the engine through its typed methods and plays the role of the
// UI shell: confirming locations, approving diffs, and supplying
// clarifications at the prompt.
package term

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"redline/engine/internal/diff"
	"redline/engine/internal/engine"
	"redline/engine/internal/errinfo"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	errorColor   = color.New(color.FgYellow)
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
)

type event struct {
	method string
	params any
}

// Reviewer owns the interactive loop. Engine notifications are buffered and
// handled between engine calls, because the notifier fires while the engine
// holds its state lock.
type Reviewer struct {
	eng *engine.Engine
	in  *bufio.Scanner
	out io.Writer

	mu     sync.Mutex
	events []event
}

func NewReviewer(eng *engine.Engine, in io.Reader, out io.Writer) *Reviewer {
	r := &Reviewer{eng: eng, in: bufio.NewScanner(in), out: out}
	eng.SetNotifier(r.enqueueEvent)
	return r
}

func (r *Reviewer) enqueueEvent(method string, params any) {
	r.mu.Lock()
	r.events = append(r.events, event{method: method, params: params})
	r.mu.Unlock()
}

func (r *Reviewer) drainEvents() []event {
	r.mu.Lock()
	events := r.events
	r.events = nil
	r.mu.Unlock()
	return events
}

// Run starts the session and loops on the main menu until the reviewer
// terminates. Returns the final document.
func (r *Reviewer) Run(ctx context.Context) (string, error) {
	headerColor.Fprintln(r.out, "--- redline terminal reviewer ---")
	if _, errInfo := r.eng.Start(ctx); errInfo != nil {
		return "", fmt.Errorf("start session: %s", errInfo.ErrorCode)
	}
	r.handleEvents(ctx)

	for {
		fmt.Fprintln(r.out)
		headerColor.Fprintln(r.out, "--- main menu ---")
		fmt.Fprintln(r.out, "1. request edit")
		fmt.Fprintln(r.out, "2. show document")
		fmt.Fprintln(r.out, "3. show status")
		fmt.Fprintln(r.out, "4. show session diff")
		fmt.Fprintln(r.out, "5. revert session")
		fmt.Fprintln(r.out, "6. terminate")

		switch r.prompt("choice: ") {
		case "1":
			r.requestEdit(ctx)
		case "2":
			r.showDocument()
		case "3":
			r.showStatus()
		case "4":
			r.showSessionDiff()
		case "5":
			_, errInfo := r.eng.Revert()
			r.reportError(errInfo)
			r.handleEvents(ctx)
		case "6":
			final, errInfo := r.eng.Terminate()
			if errInfo != nil {
				return "", fmt.Errorf("terminate: %s", errInfo.ErrorCode)
			}
			headerColor.Fprintln(r.out, "--- session terminated ---")
			for _, res := range final.Results {
				fmt.Fprintf(r.out, "  %s: %s\n", res.Status, res.Message)
			}
			return final.Document, nil
		default:
			fmt.Fprintln(r.out, "invalid choice")
		}
	}
}

func (r *Reviewer) requestEdit(ctx context.Context) {
	hint := r.prompt("hint (where to edit): ")
	instruction := r.prompt("instruction (what to change): ")
	_, errInfo := r.eng.SubmitEdit(ctx, engine.SubmitEditParams{
		Kind:        engine.KindHintBased,
		Instruction: instruction,
		Hint:        hint,
	})
	r.reportError(errInfo)
	r.handleEvents(ctx)
}

// handleEvents services buffered notifications, prompting where a stage
// needs reviewer input. Prompts trigger further engine calls, which buffer
// further events, so the loop runs until quiet.
func (r *Reviewer) handleEvents(ctx context.Context) {
	for {
		events := r.drainEvents()
		if len(events) == 0 {
			return
		}
		for _, ev := range events {
			switch ev.method {
			case engine.NotifyViewUpdate:
				if view, ok := ev.params.(engine.ViewUpdateEvent); ok && view.IsProcessing {
					fmt.Fprintf(r.out, "[queue %d] task %s\n", view.QueueSize, view.ActiveStatus)
				}
			case engine.NotifyConfirmLocation:
				r.confirmLocation(ctx, ev.params.(engine.ConfirmLocationEvent))
			case engine.NotifyDiffProposed:
				r.reviewDiff(ctx, ev.params.(engine.DiffProposedEvent))
			case engine.NotifyClarificationRequested:
				r.clarify(ctx)
			case engine.NotifyError:
				if errEv, ok := ev.params.(engine.ErrorEvent); ok {
					errorColor.Fprintf(r.out, "[error] %s\n", errEv.Message)
				}
			}
		}
	}
}

func (r *Reviewer) confirmLocation(ctx context.Context, ev engine.ConfirmLocationEvent) {
	fmt.Fprintln(r.out)
	headerColor.Fprintln(r.out, "--- confirm location ---")
	fmt.Fprintf(r.out, "hint: %s\nlocated snippet:\n%s\n", ev.Hint, ev.Location.Snippet)
	if strings.EqualFold(r.prompt("is this the right spot? (y/n): "), "y") {
		_, errInfo := r.eng.ConfirmLocation(ctx, engine.ConfirmLocationParams{
			Location:    ev.Location,
			Instruction: ev.Instruction,
		})
		r.reportError(errInfo)
		return
	}
	fmt.Fprintln(r.out, "location rejected, cancelling task")
	_, errInfo := r.eng.Decide(ctx, engine.DecideParams{Decision: engine.DecisionCancel})
	r.reportError(errInfo)
}

func (r *Reviewer) reviewDiff(ctx context.Context, ev engine.DiffProposedEvent) {
	fmt.Fprintln(r.out)
	headerColor.Fprintln(r.out, "--- review proposed edit ---")
	printDiff(r.out, ev.Lines)
	fmt.Fprintf(r.out, "(+%d/-%d)\n", ev.Stats.Added, ev.Stats.Removed)

	switch strings.ToLower(r.prompt("approve (a), edit+approve (e), reject (r), cancel (c): ")) {
	case "a":
		_, errInfo := r.eng.Decide(ctx, engine.DecideParams{Decision: engine.DecisionApprove})
		r.reportError(errInfo)
	case "e":
		manual := r.prompt("final snippet: ")
		_, errInfo := r.eng.Decide(ctx, engine.DecideParams{Decision: engine.DecisionApprove, EditedSnippet: &manual})
		r.reportError(errInfo)
	case "r":
		_, errInfo := r.eng.Decide(ctx, engine.DecideParams{Decision: engine.DecisionReject})
		r.reportError(errInfo)
	default:
		_, errInfo := r.eng.Decide(ctx, engine.DecideParams{Decision: engine.DecisionCancel})
		r.reportError(errInfo)
	}
}

func (r *Reviewer) clarify(ctx context.Context) {
	fmt.Fprintln(r.out)
	headerColor.Fprintln(r.out, "--- clarification needed ---")
	hint := r.prompt("new or revised hint: ")
	instruction := r.prompt("new or revised instruction: ")
	_, errInfo := r.eng.SubmitClarification(ctx, engine.ClarifyParams{Hint: hint, Instruction: instruction})
	r.reportError(errInfo)
}

func (r *Reviewer) showDocument() {
	doc, _ := r.eng.Content()
	fmt.Fprintln(r.out)
	headerColor.Fprintln(r.out, "--- document ---")
	fmt.Fprintln(r.out, doc.Document)
}

func (r *Reviewer) showStatus() {
	state, _ := r.eng.State()
	fmt.Fprintln(r.out)
	headerColor.Fprintln(r.out, "--- status ---")
	fmt.Fprintf(r.out, "queue size: %d\nprocessing: %v\n", state.QueueSize, state.IsProcessing)
	if state.IsProcessing {
		fmt.Fprintf(r.out, "active task: %s (hint %q)\n", state.ActiveStatus, state.ActiveHint)
	}
	for _, res := range state.Results {
		fmt.Fprintf(r.out, "  %s: %s\n", res.Status, res.Message)
	}
}

func (r *Reviewer) showSessionDiff() {
	result, _ := r.eng.ContentDiff()
	fmt.Fprintln(r.out)
	headerColor.Fprintln(r.out, "--- session diff ---")
	printDiff(r.out, result.Lines)
}

func printDiff(out io.Writer, lines []diff.Line) {
	for _, line := range lines {
		switch line.Type {
		case diff.LineAdded:
			addedColor.Fprintf(out, "+ %s\n", line.Text)
		case diff.LineRemoved:
			removedColor.Fprintf(out, "- %s\n", line.Text)
		default:
			fmt.Fprintf(out, "  %s\n", line.Text)
		}
	}
}

func (r *Reviewer) reportError(errInfo *errinfo.ErrorInfo) {
	if errInfo == nil {
		return
	}
	errorColor.Fprintf(r.out, "[%s] %s\n", errInfo.ErrorCode, errInfo.Detail)
}

func (r *Reviewer) prompt(label string) string {
	fmt.Fprint(r.out, label)
	if !r.in.Scan() {
		return ""
	}
	return strings.TrimSpace(r.in.Text())
}
