package dialog

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/hrvbot/internal/blob"
	"github.com/m3rciful/hrvbot/internal/linkimport"
	"github.com/m3rciful/hrvbot/internal/records"
)

type fakeMedia struct {
	files map[string]string
	calls int
}

func (f *fakeMedia) Download(_ context.Context, fileID string) (io.ReadCloser, error) {
	f.calls++
	body, ok := f.files[fileID]
	if !ok {
		return nil, errors.New("file not found on telegram")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type fakeImporter struct {
	err    error
	links  []string
	served []linkimport.Plot
}

func (f *fakeImporter) Import(_ context.Context, owner, link string) ([]string, error) {
	f.links = append(f.links, link)
	if f.err != nil {
		return nil, f.err
	}
	return []string{linkimport.PlotKey(owner, "PSD")}, nil
}

func (f *fakeImporter) Served(context.Context, string) ([]linkimport.Plot, error) {
	return f.served, nil
}

type fixture struct {
	m        *Machine
	records  *records.Memory
	blobs    *blob.Memory
	media    *fakeMedia
	importer *fakeImporter
}

var ann = User{ID: 7, FirstName: "Ann", LastName: "Lee"}

func newFixture() *fixture {
	f := &fixture{
		records:  records.NewMemory(),
		blobs:    blob.NewMemory(),
		media:    &fakeMedia{files: map[string]string{"f1": "jpeg-1", "f2": "jpeg-2", "f3": "jpeg-3"}},
		importer: &fakeImporter{},
	}
	f.m = NewMachine(Deps{
		Records:  f.records,
		Blobs:    f.blobs,
		Media:    f.media,
		Importer: f.importer,
		Now:      func() time.Time { return time.Unix(1700000000, 0) },
	})
	return f
}

func (f *fixture) start(t *testing.T, kind Kind) Session {
	t.Helper()
	s, out, err := f.m.Start(context.Background(), ann, kind)
	if err != nil {
		t.Fatalf("Start(%s) error = %v", kind, err)
	}
	if out.Result != Started || out.Step != s.Step {
		t.Fatalf("Start outcome = %+v", out)
	}
	return s
}

func (f *fixture) advance(t *testing.T, s Session, e Event) (Session, Outcome) {
	t.Helper()
	next, out, err := f.m.Advance(context.Background(), s, e)
	if err != nil {
		t.Fatalf("Advance(%s, %s) error = %v", s.Step, e.Tag, err)
	}
	return next, out
}

func (f *fixture) profile(t *testing.T) records.ProfileRecord {
	t.Helper()
	rec, err := f.records.LatestProfile(context.Background(), ann.Name())
	if err != nil {
		t.Fatalf("LatestProfile() error = %v", err)
	}
	return rec
}

func TestProfileFullPath(t *testing.T) {
	f := newFixture()
	s := f.start(t, Profile)
	if s.Step != StepGender || s.ID == "" || s.RecordID == 0 {
		t.Fatalf("new session = %+v", s)
	}

	steps := []struct {
		event Event
		step  Step
	}{
		{TextEvent(ann, "Girl"), StepPhoto},
		{PhotoEvent(ann, "f1"), StepLocation},
		{LocationEvent(ann, 52.52, 13.405), StepBio},
		{TextEvent(ann, "I like long walks"), StepDone},
	}
	for _, st := range steps {
		var out Outcome
		s, out = f.advance(t, s, st.event)
		if out.Step != st.step || s.Step != st.step {
			t.Fatalf("after %s: step = %s, want %s", st.event.Tag, out.Step, st.step)
		}
	}

	rec := f.profile(t)
	want := map[records.Field]string{
		records.Gender:   "Girl",
		records.Photo:    "users/AnnLee.jpg",
		records.Location: "52.52,13.405",
		records.Bio:      "I like long walks",
	}
	for field, v := range want {
		if got, ok := rec.Value(field); !ok || got != v {
			t.Fatalf("%s = %q (set %v), want %q", field, got, ok, v)
		}
	}
	if ok, _ := f.blobs.Exists(context.Background(), "users/AnnLee.jpg"); !ok {
		t.Fatal("photo blob not stored")
	}
}

func TestProfileFieldsFillInOrder(t *testing.T) {
	f := newFixture()
	s := f.start(t, Profile)

	s, _ = f.advance(t, s, TextEvent(ann, "Boy"))
	rec := f.profile(t)
	if rec.Gender == nil || rec.Photo != nil || rec.Location != nil || rec.Bio != nil {
		t.Fatalf("after gender: %+v", rec)
	}
	s, _ = f.advance(t, s, CommandEvent(ann, CmdSkip, ""))
	s, _ = f.advance(t, s, LocationEvent(ann, 1, 2))
	rec = f.profile(t)
	if rec.Photo != nil || rec.Location == nil || rec.Bio != nil {
		t.Fatalf("after location: %+v", rec)
	}
	_, out := f.advance(t, s, TextEvent(ann, "bio"))
	if !out.Done || out.Result != Completed {
		t.Fatalf("final outcome = %+v", out)
	}
}

func TestSkipNeverWrites(t *testing.T) {
	f := newFixture()
	s := f.start(t, Profile)
	s, _ = f.advance(t, s, TextEvent(ann, "Other"))

	s, out := f.advance(t, s, CommandEvent(ann, CmdSkip, ""))
	if out.Result != Skipped || s.Step != StepLocation {
		t.Fatalf("skip photo outcome = %+v", out)
	}
	s, out = f.advance(t, s, CommandEvent(ann, CmdSkip, ""))
	if out.Result != Skipped || s.Step != StepBio {
		t.Fatalf("skip location outcome = %+v", out)
	}
	rec := f.profile(t)
	if rec.Photo != nil || rec.Location != nil {
		t.Fatalf("skip wrote a field: %+v", rec)
	}
	if f.media.calls != 0 {
		t.Fatal("skip triggered a download")
	}
}

func TestInvalidInputIsNoop(t *testing.T) {
	tests := []struct {
		name  string
		walk  []Event
		event Event
	}{
		{name: "text at photo", walk: []Event{TextEvent(ann, "Boy")}, event: TextEvent(ann, "hello")},
		{name: "lowercase gender", event: TextEvent(ann, "boy")},
		{name: "photo at gender", event: PhotoEvent(ann, "f1")},
		{name: "photo at location", walk: []Event{TextEvent(ann, "Boy"), CommandEvent(ann, CmdSkip, "")}, event: PhotoEvent(ann, "f1")},
		{name: "command at bio", walk: []Event{TextEvent(ann, "Boy"), CommandEvent(ann, CmdSkip, ""), CommandEvent(ann, CmdSkip, "")}, event: CommandEvent(ann, "start", "")},
		{name: "skip at gender", event: CommandEvent(ann, CmdSkip, "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			s := f.start(t, Profile)
			for _, e := range tt.walk {
				s, _ = f.advance(t, s, e)
			}
			before := f.profile(t)
			next, out := f.advance(t, s, tt.event)
			if out.Result != Ignored || next.Step != s.Step || out.Done {
				t.Fatalf("outcome = %+v, step %s -> %s", out, s.Step, next.Step)
			}
			after := f.profile(t)
			if !sameProfile(before, after) {
				t.Fatalf("record changed: %+v -> %+v", before, after)
			}
		})
	}
}

func sameProfile(a, b records.ProfileRecord) bool {
	for _, field := range records.Users.Fields() {
		av, aok := a.Value(field)
		bv, bok := b.Value(field)
		if av != bv || aok != bok {
			return false
		}
	}
	return true
}

func TestCancelFromEveryStep(t *testing.T) {
	for _, kind := range Kinds() {
		for i := range Steps(kind) {
			f := newFixture()
			f.importer.served = []linkimport.Plot{{Title: "PSD"}}
			s := f.start(t, kind)
			walk := map[Kind][]Event{
				Profile:  {TextEvent(ann, "Boy"), PhotoEvent(ann, "f1"), LocationEvent(ann, 1, 1)},
				HrvPhoto: {PhotoEvent(ann, "f1"), PhotoEvent(ann, "f2")},
				HrvLink:  {TextEvent(ann, "https://x.io/?i=t")},
			}[kind][:i]
			for _, e := range walk {
				s, _ = f.advance(t, s, e)
			}
			step := s.Step
			next, out := f.advance(t, s, CommandEvent(ann, CmdCancel, ""))
			if out.Result != Cancelled || !out.Done || next.Step != StepDone || out.From != step {
				t.Fatalf("%s cancel at %s: outcome = %+v", kind, step, out)
			}
			if _, _, err := f.m.Advance(context.Background(), next, TextEvent(ann, "Girl")); err == nil {
				t.Fatalf("%s: finished session accepted another event", kind)
			}
		}
	}
}

func TestHrvPhotoPath(t *testing.T) {
	f := newFixture()
	s := f.start(t, HrvPhoto)

	s, out := f.advance(t, s, CommandEvent(ann, CmdSkip, ""))
	if out.Result != Ignored || s.Step != StepSummary {
		t.Fatalf("skip at summary should be ignored: %+v", out)
	}
	s, _ = f.advance(t, s, PhotoEvent(ann, "f1"))
	s, out = f.advance(t, s, CommandEvent(ann, CmdSkip, ""))
	if out.Result != Skipped || s.Step != StepDetails {
		t.Fatalf("skip at graphs: %+v", out)
	}
	_, out = f.advance(t, s, PhotoEvent(ann, "f3"))
	if out.Result != Completed || !out.Done {
		t.Fatalf("details outcome = %+v", out)
	}

	rec, err := f.records.LatestHrvPhoto(context.Background(), "Ann")
	if err != nil {
		t.Fatalf("LatestHrvPhoto() error = %v", err)
	}
	if v, _ := rec.Value(records.Summary); v != "hrv/AnnLee-summary.jpg" {
		t.Fatalf("summary = %q", v)
	}
	if rec.Graphs != nil {
		t.Fatal("skipped graphs was written")
	}
	if v, _ := rec.Value(records.Details); v != "hrv/AnnLee-details.jpg" {
		t.Fatalf("details = %q", v)
	}
}

func TestHrvSkipDetailsFinishes(t *testing.T) {
	f := newFixture()
	s := f.start(t, HrvPhoto)
	s, _ = f.advance(t, s, PhotoEvent(ann, "f1"))
	s, _ = f.advance(t, s, PhotoEvent(ann, "f2"))
	_, out := f.advance(t, s, CommandEvent(ann, CmdSkip, ""))
	if out.Result != Skipped || !out.Done || out.From != StepDetails {
		t.Fatalf("skip at details: %+v", out)
	}
}

func TestHrvWritesLatestRowOnly(t *testing.T) {
	f := newFixture()
	first := f.start(t, HrvPhoto)
	_, _ = f.advance(t, first, PhotoEvent(ann, "f1"))

	second := f.start(t, HrvPhoto)
	_, _ = f.advance(t, second, PhotoEvent(ann, "f2"))

	if f.records.Rows(records.Hrv) != 2 {
		t.Fatalf("rows = %d, want 2", f.records.Rows(records.Hrv))
	}
	rec, _ := f.records.LatestHrvPhoto(context.Background(), "Ann")
	if rec.ID != second.RecordID {
		t.Fatalf("latest row = %d, want %d", rec.ID, second.RecordID)
	}
}

func TestDownloadFailureKeepsStep(t *testing.T) {
	f := newFixture()
	s := f.start(t, HrvPhoto)
	next, _, err := f.m.Advance(context.Background(), s, PhotoEvent(ann, "missing"))
	if err == nil {
		t.Fatal("Advance() should fail when the download fails")
	}
	if next.Step != StepSummary {
		t.Fatalf("step = %s, want unchanged", next.Step)
	}
	var retry *RetryError
	if errors.As(err, &retry) {
		t.Fatal("download failures are not retry errors")
	}
}

func TestLinkRetryThenPlot(t *testing.T) {
	f := newFixture()
	s := f.start(t, HrvLink)
	if s.Step != StepGetLink || s.RecordID != 0 {
		t.Fatalf("link session = %+v", s)
	}

	f.importer.err = linkimport.ErrNoToken
	s, out := f.advance(t, s, TextEvent(ann, "https://x.io/share"))
	if out.Result != Retry || out.Reason != ReasonNoToken || s.Step != StepGetLink || out.Done {
		t.Fatalf("no token outcome = %+v", out)
	}

	f.importer.err = errors.New("provider unreachable")
	s, out = f.advance(t, s, TextEvent(ann, "https://x.io/share?i=t"))
	if out.Result != Retry || out.Reason != ReasonProvider {
		t.Fatalf("provider outcome = %+v", out)
	}
	if !errors.Is(out.Cause, f.importer.err) {
		t.Fatalf("cause = %v", out.Cause)
	}

	f.importer.err = nil
	s, out = f.advance(t, s, TextEvent(ann, "https://x.io/share?i=t"))
	if out.Result != Advanced || s.Step != StepPlot || len(out.Imported) != 1 {
		t.Fatalf("import outcome = %+v", out)
	}
	if !Resting(s) {
		t.Fatal("plot step should be resting")
	}

	f.importer.served = []linkimport.Plot{{Title: "PSD", Key: "plots/AnnLee-PSD_plot.png", Stored: true}, {Title: "AR PSD"}}
	for i := 0; i < 2; i++ {
		s, out = f.advance(t, s, TextEvent(ann, "show me"))
		if out.Result != Served || s.Step != StepPlot || len(out.Plots) != 2 || out.Done {
			t.Fatalf("served outcome = %+v", out)
		}
	}
}

func TestRestingOnlyAtPlot(t *testing.T) {
	for _, kind := range Kinds() {
		for _, step := range Steps(kind) {
			s := Session{Kind: kind, Step: step}
			if Resting(s) != (step == StepPlot) {
				t.Fatalf("Resting(%s) = %v", step, Resting(s))
			}
		}
	}
}

func TestStartUnknownKind(t *testing.T) {
	f := newFixture()
	if _, _, err := f.m.Start(context.Background(), ann, Kind("quiz")); err == nil {
		t.Fatal("Start() with unknown kind should fail")
	}
}
