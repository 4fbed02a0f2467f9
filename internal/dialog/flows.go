package dialog

import (
	"context"
	"fmt"

	"github.com/m3rciful/hrvbot/internal/blob"
	"github.com/m3rciful/hrvbot/internal/records"
)

// Kind is the dialog category.
type Kind string

const (
	Profile  Kind = "profile"
	HrvPhoto Kind = "hrv"
	HrvLink  Kind = "link"
)

// Step is a state of one dialog kind. Steps are prefixed by their kind so
// the same name never means two things.
type Step string

const (
	StepNone Step = ""

	StepGender   Step = "profile.gender"
	StepPhoto    Step = "profile.photo"
	StepLocation Step = "profile.location"
	StepBio      Step = "profile.bio"

	StepSummary Step = "hrv.summary"
	StepGraphs  Step = "hrv.graphs"
	StepDetails Step = "hrv.details"

	StepGetLink Step = "link.get"
	StepPlot    Step = "link.plot"

	StepDone Step = "done"
)

// Result names what a turn did.
type Result string

const (
	Started   Result = "started"
	Advanced  Result = "advanced"
	Skipped   Result = "skipped"
	Ignored   Result = "ignored"
	Cancelled Result = "cancelled"
	Completed Result = "completed"
	Rejected  Result = "rejected"
	Retry     Result = "retry"
	Served    Result = "served"
	Failed    Result = "failed"
)

// Commands understood by the dialogs.
const (
	CmdSkip   = "skip"
	CmdCancel = "cancel"
)

// GenderOptions are the accepted answers at StepGender.
var GenderOptions = []string{"Boy", "Girl", "Other"}

// effect performs the side effects of an accepted event.
type effect func(ctx context.Context, m *Machine, s *Session, e Event, out *Outcome) error

// rule is one row of a step's match table. The first accepting rule wins.
type rule struct {
	accept Validator
	effect effect
	next   Step
	result Result
}

type flow struct {
	kind  Kind
	entry Step
	// create appends the record row for a new session; nil for kinds without one.
	create func(ctx context.Context, store records.Store, name string) (int64, error)
	steps  map[Step][]rule
	// resting steps keep the session open but let a new entry point replace it.
	resting map[Step]bool
}

var flows = map[Kind]flow{
	Profile: {
		kind:  Profile,
		entry: StepGender,
		create: func(ctx context.Context, store records.Store, name string) (int64, error) {
			return store.CreateProfile(ctx, name)
		},
		steps: map[Step][]rule{
			StepGender: {
				{accept: OneOf(GenderOptions...), effect: setText(records.Users, records.Gender), next: StepPhoto, result: Advanced},
			},
			StepPhoto: {
				{accept: IsPhoto, effect: savePhoto(records.Users, records.Photo, blob.CategoryUsers, ""), next: StepLocation, result: Advanced},
				{accept: IsCommand(CmdSkip), next: StepLocation, result: Skipped},
			},
			StepLocation: {
				{accept: IsLocation, effect: setLocation, next: StepBio, result: Advanced},
				{accept: IsCommand(CmdSkip), next: StepBio, result: Skipped},
			},
			StepBio: {
				{accept: IsText, effect: setText(records.Users, records.Bio), next: StepDone, result: Completed},
			},
		},
	},
	HrvPhoto: {
		kind:  HrvPhoto,
		entry: StepSummary,
		create: func(ctx context.Context, store records.Store, name string) (int64, error) {
			return store.CreateHrvPhoto(ctx, name)
		},
		steps: map[Step][]rule{
			StepSummary: {
				{accept: IsPhoto, effect: savePhoto(records.Hrv, records.Summary, blob.CategoryHrv, "summary"), next: StepGraphs, result: Advanced},
			},
			StepGraphs: {
				{accept: IsPhoto, effect: savePhoto(records.Hrv, records.Graphs, blob.CategoryHrv, "graphs"), next: StepDetails, result: Advanced},
				{accept: IsCommand(CmdSkip), next: StepDetails, result: Skipped},
			},
			StepDetails: {
				{accept: IsPhoto, effect: savePhoto(records.Hrv, records.Details, blob.CategoryHrv, "details"), next: StepDone, result: Completed},
				{accept: IsCommand(CmdSkip), next: StepDone, result: Skipped},
			},
		},
	},
	HrvLink: {
		kind:  HrvLink,
		entry: StepGetLink,
		steps: map[Step][]rule{
			StepGetLink: {
				{accept: IsText, effect: importLink, next: StepPlot, result: Advanced},
			},
			StepPlot: {
				{accept: IsText, effect: servePlots, next: StepPlot, result: Served},
			},
		},
		resting: map[Step]bool{StepPlot: true},
	},
}

// Kinds lists the dialog kinds in a stable order.
func Kinds() []Kind {
	return []Kind{Profile, HrvPhoto, HrvLink}
}

// Steps lists the non-terminal steps of kind in dialog order.
func Steps(kind Kind) []Step {
	switch kind {
	case Profile:
		return []Step{StepGender, StepPhoto, StepLocation, StepBio}
	case HrvPhoto:
		return []Step{StepSummary, StepGraphs, StepDetails}
	case HrvLink:
		return []Step{StepGetLink, StepPlot}
	}
	return nil
}

func setText(table records.Table, field records.Field) effect {
	return func(ctx context.Context, m *Machine, s *Session, e Event, _ *Outcome) error {
		return m.records.SetField(ctx, table, field, e.Text, s.User.Name())
	}
}

func setLocation(ctx context.Context, m *Machine, s *Session, e Event, _ *Outcome) error {
	return m.records.SetField(ctx, records.Users, records.Location, FormatLocation(e.Lat, e.Long), s.User.Name())
}

// savePhoto downloads the attachment, stores it under the owner's key and
// records the key in field.
func savePhoto(table records.Table, field records.Field, category, substage string) effect {
	return func(ctx context.Context, m *Machine, s *Session, e Event, _ *Outcome) error {
		if m.media == nil {
			return fmt.Errorf("dialog: no media source for %s", field)
		}
		rc, err := m.media.Download(ctx, e.FileID)
		if err != nil {
			return fmt.Errorf("dialog: download %s: %w", field, err)
		}
		defer rc.Close()

		key := blob.Key(category, s.User.Owner(), substage, ".jpg")
		if err := m.blobs.Put(ctx, key, rc); err != nil {
			return err
		}
		return m.records.SetField(ctx, table, field, key, s.User.Name())
	}
}

func importLink(ctx context.Context, m *Machine, s *Session, e Event, out *Outcome) error {
	if m.importer == nil {
		return &RetryError{Step: s.Step, Reason: ReasonProvider, Err: fmt.Errorf("dialog: link import not configured")}
	}
	keys, err := m.importer.Import(ctx, s.User.Owner(), e.Text)
	if err != nil {
		return newRetryError(s.Step, err)
	}
	out.Imported = keys
	return nil
}

func servePlots(ctx context.Context, m *Machine, s *Session, _ Event, out *Outcome) error {
	if m.importer == nil {
		return fmt.Errorf("dialog: link import not configured")
	}
	plots, err := m.importer.Served(ctx, s.User.Owner())
	if err != nil {
		return err
	}
	out.Plots = plots
	return nil
}
