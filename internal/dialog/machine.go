package dialog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/hrvbot/internal/blob"
	"github.com/m3rciful/hrvbot/internal/linkimport"
	"github.com/m3rciful/hrvbot/internal/records"
)

// Media downloads inbound attachments.
type Media interface {
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Importer runs the link import and lists the plots it serves.
type Importer interface {
	Import(ctx context.Context, owner, link string) ([]string, error)
	Served(ctx context.Context, owner string) ([]linkimport.Plot, error)
}

// Retry reasons.
const (
	ReasonNoToken  = "no_token"
	ReasonProvider = "provider"
)

// RetryError marks a step failure the user can fix by sending the input
// again. The session stays on the failing step.
type RetryError struct {
	Step   Step
	Reason string
	Err    error
}

func newRetryError(step Step, err error) *RetryError {
	reason := ReasonProvider
	if errors.Is(err, linkimport.ErrNoToken) {
		reason = ReasonNoToken
	}
	return &RetryError{Step: step, Reason: reason, Err: err}
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("dialog: %s needs retry (%s): %v", e.Step, e.Reason, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// Code is used as err_code in handler logs.
func (e *RetryError) Code() string { return "retry " + e.Reason }

// Outcome describes the effect of one turn on a session.
type Outcome struct {
	Kind   Kind
	From   Step
	Step   Step
	Result Result
	// Done is set when the session ended this turn.
	Done bool
	// Reason carries the retry reason, or the active kind for a rejected entry.
	Reason string
	Cause  error
	// Imported holds the plot keys written by a link import.
	Imported []string
	// Plots holds the served plots for a Served result.
	Plots []linkimport.Plot
}

// Deps are the collaborators the step effects use.
type Deps struct {
	Records  records.Store
	Blobs    blob.Store
	Media    Media
	Importer Importer
	// Now defaults to time.Now.
	Now func() time.Time
}

// Machine advances dialog sessions through their per-kind match tables.
// It keeps no per-user state; sessions are passed in and returned.
type Machine struct {
	records  records.Store
	blobs    blob.Store
	media    Media
	importer Importer
	now      func() time.Time
}

// NewMachine builds a machine over deps.
func NewMachine(deps Deps) *Machine {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Machine{
		records:  deps.Records,
		blobs:    deps.Blobs,
		media:    deps.Media,
		importer: deps.Importer,
		now:      now,
	}
}

// Start opens a session of kind for u, creating its record row first.
func (m *Machine) Start(ctx context.Context, u User, kind Kind) (Session, Outcome, error) {
	f, ok := flows[kind]
	if !ok {
		return Session{}, Outcome{}, fmt.Errorf("dialog: unknown kind %q", kind)
	}
	s := Session{
		ID:        uuid.NewString(),
		User:      u,
		Kind:      kind,
		Step:      f.entry,
		EnteredAt: m.now(),
	}
	if f.create != nil {
		id, err := f.create(ctx, m.records, u.Name())
		if err != nil {
			return Session{}, Outcome{}, fmt.Errorf("dialog: start %s: %w", kind, err)
		}
		s.RecordID = id
	}
	return s, Outcome{Kind: kind, From: StepNone, Step: s.Step, Result: Started}, nil
}

// Advance applies e to s. The returned session is the updated copy; when the
// outcome is Done the caller must drop it. A non-nil error leaves s unchanged.
func (m *Machine) Advance(ctx context.Context, s Session, e Event) (Session, Outcome, error) {
	out := Outcome{Kind: s.Kind, From: s.Step, Step: s.Step}
	f, ok := flows[s.Kind]
	if !ok {
		return s, out, fmt.Errorf("dialog: unknown kind %q", s.Kind)
	}
	if s.Step == StepDone {
		return s, out, fmt.Errorf("dialog: session %s already finished", s.ID)
	}

	if IsCommand(CmdCancel)(e) {
		s.Step = StepDone
		out.Step, out.Result, out.Done = StepDone, Cancelled, true
		return s, out, nil
	}

	for _, r := range f.steps[s.Step] {
		if !r.accept(e) {
			continue
		}
		if r.effect != nil {
			if err := r.effect(ctx, m, &s, e, &out); err != nil {
				var retry *RetryError
				if errors.As(err, &retry) {
					out.Result, out.Reason, out.Cause = Retry, retry.Reason, retry
					return s, out, nil
				}
				return s, out, fmt.Errorf("dialog: %s: %w", s.Step, err)
			}
		}
		s.Step = r.next
		out.Step, out.Result = r.next, r.result
		out.Done = r.next == StepDone
		return s, out, nil
	}

	out.Result = Ignored
	return s, out, nil
}

// Resting reports whether s sits in a step that a new entry point may replace.
func Resting(s Session) bool {
	return flows[s.Kind].resting[s.Step]
}
