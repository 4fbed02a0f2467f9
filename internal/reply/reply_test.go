package reply

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/m3rciful/hrvbot/internal/blob"
	"github.com/m3rciful/hrvbot/internal/dialog"
	"github.com/m3rciful/hrvbot/internal/linkimport"
	"github.com/m3rciful/hrvbot/internal/records"
)

type sent struct {
	text    string
	kb      *Keyboard
	image   string
	caption string
}

type recorder struct {
	msgs    []sent
	failAll error
}

func (r *recorder) SendText(_ context.Context, text string, kb *Keyboard) error {
	if r.failAll != nil {
		return r.failAll
	}
	r.msgs = append(r.msgs, sent{text: text, kb: kb})
	return nil
}

func (r *recorder) SendImage(_ context.Context, rd io.Reader, caption string) error {
	if r.failAll != nil {
		return r.failAll
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return err
	}
	r.msgs = append(r.msgs, sent{image: string(data), caption: caption})
	return nil
}

func strp(s string) *string { return &s }

func TestRestoreDegradesInFixedOrder(t *testing.T) {
	rec := records.HrvPhotoRecord{Name: "Ann", Summary: strp("hrv/AnnLee-summary.jpg")}
	replies := Restore(rec)
	if len(replies) != 3 {
		t.Fatalf("replies = %d, want 3", len(replies))
	}
	if replies[0].ImageKey != "hrv/AnnLee-summary.jpg" {
		t.Fatalf("first reply = %+v, want summary image", replies[0])
	}
	for i, label := range []string{"graphs", "details"} {
		r := replies[i+1]
		if r.IsImage() || !strings.Contains(r.Text, "haven't stored") || !strings.Contains(r.Text, label) {
			t.Fatalf("reply %d = %+v, want missing %s", i+1, r, label)
		}
	}
}

func TestRestoreEmptyRecord(t *testing.T) {
	for _, r := range Restore(records.HrvPhotoRecord{}) {
		if r.IsImage() {
			t.Fatalf("empty record produced an image: %+v", r)
		}
	}
}

func TestDeliverFallsBackToMissing(t *testing.T) {
	ctx := context.Background()
	images := blob.NewMemory()
	if err := images.Put(ctx, "hrv/AnnLee-summary.jpg", bytes.NewBufferString("jpeg")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	rec := records.HrvPhotoRecord{
		Summary: strp("hrv/AnnLee-summary.jpg"),
		Graphs:  strp("hrv/AnnLee-graphs.jpg"),
	}

	out := &recorder{}
	if err := Deliver(ctx, out, images, Restore(rec)); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if len(out.msgs) != 3 {
		t.Fatalf("sent %d messages, want 3", len(out.msgs))
	}
	if out.msgs[0].image != "jpeg" || out.msgs[0].caption != "summary" {
		t.Fatalf("first message = %+v", out.msgs[0])
	}
	if !strings.Contains(out.msgs[1].text, "graphs") || !strings.Contains(out.msgs[2].text, "details") {
		t.Fatalf("fallback messages = %+v", out.msgs[1:])
	}
}

func TestDeliverStopsOnSendError(t *testing.T) {
	boom := errors.New("telegram down")
	out := &recorder{failAll: boom}
	err := Deliver(context.Background(), out, blob.NewMemory(), []Reply{text("a"), text("b")})
	if !errors.Is(err, boom) {
		t.Fatalf("Deliver() error = %v, want %v", err, boom)
	}
}

func TestComposeProfileTexts(t *testing.T) {
	c := Composer{}
	tests := []struct {
		name string
		out  dialog.Outcome
		want string
	}{
		{"start", dialog.Outcome{Kind: dialog.Profile, Result: dialog.Started, Step: dialog.StepGender}, "Are you a boy or a girl?"},
		{"gender", dialog.Outcome{From: dialog.StepGender, Result: dialog.Advanced}, "I see! Please send me a photo"},
		{"photo", dialog.Outcome{From: dialog.StepPhoto, Result: dialog.Advanced}, "Gorgeous!"},
		{"skip photo", dialog.Outcome{From: dialog.StepPhoto, Result: dialog.Skipped}, "I bet you look great!"},
		{"location", dialog.Outcome{From: dialog.StepLocation, Result: dialog.Advanced}, "Maybe I can visit you sometime!"},
		{"skip location", dialog.Outcome{From: dialog.StepLocation, Result: dialog.Skipped}, "You seem a bit paranoid!"},
		{"bio", dialog.Outcome{From: dialog.StepBio, Result: dialog.Completed}, "Thank you! I hope we can talk again some day."},
		{"cancel", dialog.Outcome{From: dialog.StepBio, Result: dialog.Cancelled}, "Bye! I hope we can talk again some day."},
		{"hrv start", dialog.Outcome{Kind: dialog.HrvPhoto, Result: dialog.Started}, "I am the hrv bot"},
		{"summary", dialog.Outcome{From: dialog.StepSummary, Result: dialog.Advanced}, "HRV's graphs"},
		{"details", dialog.Outcome{From: dialog.StepDetails, Result: dialog.Completed}, "succesfully saved"},
		{"link start", dialog.Outcome{Kind: dialog.HrvLink, Result: dialog.Started}, "i=<token>"},
		{"no token", dialog.Outcome{Result: dialog.Retry, Reason: dialog.ReasonNoToken}, "couldn't find"},
		{"provider", dialog.Outcome{Result: dialog.Retry, Reason: dialog.ReasonProvider}, "couldn't import"},
		{"rejected", dialog.Outcome{Result: dialog.Rejected, Reason: string(dialog.HrvPhoto)}, "/input"},
	}
	for _, tt := range tests {
		replies := c.Compose(tt.out)
		if len(replies) != 1 || !strings.Contains(replies[0].Text, tt.want) {
			t.Fatalf("%s: replies = %+v, want text containing %q", tt.name, replies, tt.want)
		}
	}
}

func TestComposeKeyboards(t *testing.T) {
	c := Composer{}
	start := c.Compose(dialog.Outcome{Kind: dialog.Profile, Result: dialog.Started})
	kb := start[0].Keyboard
	if kb == nil || kb.Remove || kb.Placeholder != "Boy or Girl?" || strings.Join(kb.Options, ",") != "Boy,Girl,Other" {
		t.Fatalf("gender keyboard = %+v", kb)
	}
	cancel := c.Compose(dialog.Outcome{Result: dialog.Cancelled})
	if cancel[0].Keyboard == nil || !cancel[0].Keyboard.Remove {
		t.Fatalf("cancel keyboard = %+v", cancel[0].Keyboard)
	}
	gender := c.Compose(dialog.Outcome{From: dialog.StepGender, Result: dialog.Advanced})
	if gender[0].Keyboard == nil || !gender[0].Keyboard.Remove {
		t.Fatal("photo prompt should remove the gender keyboard")
	}
}

func TestComposeIgnored(t *testing.T) {
	ignored := dialog.Outcome{Kind: dialog.Profile, From: dialog.StepGender, Step: dialog.StepGender, Result: dialog.Ignored}
	if got := (Composer{}).Compose(ignored); len(got) != 0 {
		t.Fatalf("silent composer replied: %+v", got)
	}
	got := Composer{RepromptOnMismatch: true}.Compose(ignored)
	if len(got) != 1 || got[0].Keyboard == nil {
		t.Fatalf("reprompt = %+v", got)
	}
	photo := dialog.Outcome{From: dialog.StepPhoto, Step: dialog.StepPhoto, Result: dialog.Ignored}
	if got := (Composer{RepromptOnMismatch: true}).Compose(photo); len(got) != 0 {
		t.Fatalf("reprompt only applies to gender: %+v", got)
	}
}

func TestPlots(t *testing.T) {
	replies := Plots([]linkimport.Plot{
		{Title: "PSD", Key: "plots/AnnLee-PSD_plot.png", Stored: true},
		{Title: "AR PSD", Key: "plots/AnnLee-AR PSD_plot.png"},
	})
	if len(replies) != 2 {
		t.Fatalf("replies = %d", len(replies))
	}
	if replies[0].ImageKey != "plots/AnnLee-PSD_plot.png" || replies[0].Caption != "PSD" {
		t.Fatalf("first = %+v", replies[0])
	}
	if replies[1].IsImage() || !strings.Contains(replies[1].Text, "AR PSD") {
		t.Fatalf("second = %+v", replies[1])
	}
}

func TestHelpListsCommands(t *testing.T) {
	help := Help().Text
	for _, cmd := range []string{"/conv", "/input", "/link", "/plot", "/restore", "/skip", "/cancel"} {
		if !strings.Contains(help, cmd) {
			t.Fatalf("help misses %s", cmd)
		}
	}
}
