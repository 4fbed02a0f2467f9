// Package conversation routes inbound events to standalone commands, dialog
// entry points or the active dialog session of the sender.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/hrvbot/core/logger"
	"github.com/m3rciful/hrvbot/internal/dialog"
	"github.com/m3rciful/hrvbot/internal/records"
	"github.com/m3rciful/hrvbot/internal/reply"
)

const component = "service.dialogs"

// Standalone commands.
const (
	CmdStart   = "start"
	CmdPlot    = "plot"
	CmdRestore = "restore"
)

// EntryPoints maps entry-point commands to the dialog they open.
var EntryPoints = map[string]dialog.Kind{
	"conv":  dialog.Profile,
	"input": dialog.HrvPhoto,
	"link":  dialog.HrvLink,
}

// Observer receives per-turn measurements.
type Observer interface {
	TurnHandled(kind dialog.Kind, result dialog.Result, took time.Duration)
	ActiveSessions(n int)
	LinkImport(status string)
}

type nopObserver struct{}

func (nopObserver) TurnHandled(dialog.Kind, dialog.Result, time.Duration) {}
func (nopObserver) ActiveSessions(int)                                    {}
func (nopObserver) LinkImport(string)                                     {}

// Options wires a Dispatcher.
type Options struct {
	Machine  *dialog.Machine
	Sessions *dialog.Sessions
	Records  records.Store
	Images   reply.Opener
	Importer dialog.Importer
	Composer reply.Composer
	Observer Observer
}

// Dispatcher handles one turn at a time per user. Callers serialize turns of
// the same user; turns of different users may run concurrently.
type Dispatcher struct {
	machine  *dialog.Machine
	sessions *dialog.Sessions
	records  records.Store
	images   reply.Opener
	importer dialog.Importer
	composer reply.Composer
	observer Observer
}

// New builds a dispatcher. A nil session table or observer gets a default.
func New(opts Options) *Dispatcher {
	if opts.Sessions == nil {
		opts.Sessions = dialog.NewSessions()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	return &Dispatcher{
		machine:  opts.Machine,
		sessions: opts.Sessions,
		records:  opts.Records,
		images:   opts.Images,
		importer: opts.Importer,
		composer: opts.Composer,
		observer: opts.Observer,
	}
}

// Sessions exposes the session table.
func (d *Dispatcher) Sessions() *dialog.Sessions { return d.sessions }

// Dispatch runs one turn for e and delivers the replies to out. Events from
// users without an active session that are not commands are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, e dialog.Event, out reply.Sender) error {
	start := time.Now()
	if s, ok := d.sessions.Get(e.User.ID); ok {
		ctx = logger.WithSession(ctx, s.ID)
	}

	outcome, replies, err := d.turn(ctx, e)
	if err == nil {
		err = reply.Deliver(ctx, out, d.images, replies)
	}
	d.finish(ctx, e, outcome, start, err)
	return err
}

func (d *Dispatcher) turn(ctx context.Context, e dialog.Event) (dialog.Outcome, []reply.Reply, error) {
	if e.Tag == dialog.TagCommand {
		switch e.Command {
		case CmdStart:
			return dialog.Outcome{Result: dialog.Served}, []reply.Reply{reply.Help()}, nil
		case CmdPlot:
			return d.plot(ctx, e.User)
		case CmdRestore:
			return d.restore(ctx, e.User)
		}
		if kind, ok := EntryPoints[e.Command]; ok {
			return d.enter(ctx, e, kind)
		}
	}

	s, ok := d.sessions.Get(e.User.ID)
	if !ok {
		return dialog.Outcome{Result: dialog.Ignored}, nil, nil
	}
	return d.advance(ctx, s, e)
}

func (d *Dispatcher) enter(ctx context.Context, e dialog.Event, kind dialog.Kind) (dialog.Outcome, []reply.Reply, error) {
	if active, ok := d.sessions.Get(e.User.ID); ok {
		if !dialog.Resting(active) {
			out := dialog.Outcome{Kind: kind, From: active.Step, Step: active.Step, Result: dialog.Rejected, Reason: string(active.Kind)}
			return out, d.composer.Compose(out), nil
		}
		logger.Debug(ctx, component, "session.replace",
			slog.String("session_id", active.ID),
			slog.String("kind", string(active.Kind)),
			slog.String("step", string(active.Step)),
		)
		d.sessions.Delete(e.User.ID)
	}

	s, out, err := d.machine.Start(ctx, e.User, kind)
	if err != nil {
		return out, nil, err
	}
	d.sessions.Put(s)
	d.observer.ActiveSessions(d.sessions.Len())
	replies := d.composer.Compose(out)

	// "/link <url>" starts the dialog and answers the prompt in one turn.
	if kind == dialog.HrvLink && e.Args != "" {
		next, more, err := d.advance(ctx, s, dialog.TextEvent(e.User, e.Args))
		if err != nil {
			return next, replies, err
		}
		next.From = dialog.StepNone
		return next, append(replies, more...), nil
	}
	return out, replies, nil
}

func (d *Dispatcher) advance(ctx context.Context, s dialog.Session, e dialog.Event) (dialog.Outcome, []reply.Reply, error) {
	next, out, err := d.machine.Advance(ctx, s, e)
	if err != nil {
		return out, nil, err
	}
	if s.Step == dialog.StepGetLink {
		switch out.Result {
		case dialog.Advanced:
			d.observer.LinkImport("ok")
		case dialog.Retry:
			d.observer.LinkImport(out.Reason)
		}
	}
	if out.Done {
		d.sessions.Delete(s.User.ID)
	} else {
		d.sessions.Put(next)
	}
	d.observer.ActiveSessions(d.sessions.Len())
	return out, d.composer.Compose(out), nil
}

func (d *Dispatcher) plot(ctx context.Context, u dialog.User) (dialog.Outcome, []reply.Reply, error) {
	out := dialog.Outcome{Kind: dialog.HrvLink, Result: dialog.Served}
	if d.importer == nil {
		return out, nil, fmt.Errorf("conversation: plot: link import not configured")
	}
	plots, err := d.importer.Served(ctx, u.Owner())
	if err != nil {
		return out, nil, fmt.Errorf("conversation: plot: %w", err)
	}
	out.Plots = plots
	return out, reply.Plots(plots), nil
}

func (d *Dispatcher) restore(ctx context.Context, u dialog.User) (dialog.Outcome, []reply.Reply, error) {
	out := dialog.Outcome{Kind: dialog.HrvPhoto, Result: dialog.Served}
	rec, err := d.records.LatestHrvPhoto(ctx, u.Name())
	if err != nil && !errors.Is(err, records.ErrNotFound) {
		return out, nil, fmt.Errorf("conversation: restore: %w", err)
	}
	return out, reply.Restore(rec), nil
}

func (d *Dispatcher) finish(ctx context.Context, e dialog.Event, out dialog.Outcome, start time.Time, err error) {
	took := time.Since(start)
	result := out.Result
	if err != nil {
		result = dialog.Failed
	}
	d.observer.TurnHandled(out.Kind, result, took)

	attrs := []slog.Attr{
		slog.String("kind", string(out.Kind)),
		slog.String("from_step", string(out.From)),
		slog.String("step", string(out.Step)),
		slog.String("result", string(result)),
		slog.String("input", e.Tag.String()),
		slog.Duration("duration", logger.RoundMS(took)),
	}
	if e.Command != "" {
		attrs = append(attrs, slog.String("command", e.Command))
	}
	switch {
	case err != nil:
		attrs = append(attrs,
			slog.String("outcome", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		logger.Error(ctx, component, "turn.handled", attrs...)
	case out.Result == dialog.Retry:
		var retry *dialog.RetryError
		if errors.As(out.Cause, &retry) {
			attrs = append(attrs, slog.String("err_code", retry.Code()))
		}
		if out.Cause != nil {
			attrs = append(attrs, slog.String("err", logger.SanitizeLimit(out.Cause.Error(), 256)))
		}
		attrs = append(attrs, slog.String("outcome", "fail"))
		logger.Warn(ctx, component, "turn.handled", attrs...)
	case out.Result == dialog.Ignored:
		attrs = append(attrs, slog.String("outcome", "ignored"))
		logger.Debug(ctx, component, "turn.handled", attrs...)
	default:
		attrs = append(attrs, slog.String("outcome", outcomeLabel(out.Result)))
		logger.Info(ctx, component, "turn.handled", attrs...)
	}
}

func outcomeLabel(r dialog.Result) string {
	switch r {
	case dialog.Cancelled:
		return "cancelled"
	case dialog.Rejected:
		return "rejected"
	}
	return "ok"
}
