package reply

import (
	"fmt"
	"strings"

	"github.com/m3rciful/hrvbot/internal/dialog"
	"github.com/m3rciful/hrvbot/internal/linkimport"
	"github.com/m3rciful/hrvbot/internal/records"
)

const (
	textGender = "Hi! I am Myron's Bot ;) I will hold a conversation with you. " +
		"Send /cancel to stop talking to me.\n\n" +
		"Are you a boy or a girl?"
	textGenderAgain = "Please pick one of the options on the keyboard: Boy, Girl or Other."
	textPhoto       = "I see! Please send me a photo of yourself, " +
		"so I know what you look like, or send /skip if you don't want to."
	textLocation       = "Gorgeous! Now, send me your location please, or send /skip if you don't want to."
	textLocationNoPic  = "I bet you look great! Now, send me your location please, or send /skip."
	textBio            = "Maybe I can visit you sometime! At last, tell me something about yourself."
	textBioNoLocation  = "You seem a bit paranoid! At last, tell me something about yourself."
	textProfileDone    = "Thank you! I hope we can talk again some day."
	textCancelled      = "Bye! I hope we can talk again some day."
	textHrvStart       = "Hello there! I am the hrv bot.. \nNow you can send me your HRV data and I'll store them in my database for you :)"
	textGraphs         = "Great! Your data has been saved in the DataBase! \nNow you can send me the HRV's graphs or input /skip to skip."
	textDetails        = "Great! Your graphs has been saved in the DataBase! \nNow you can send me the HRV's details or input /skip to skip."
	textDetailsNoGraph = "No graphs this time. Now you can send me the HRV's details or input /skip to skip."
	textHrvDone        = "Great! Your hrv details has been saved in the DataBase! \nNow all you HRV photos have been succesfully saved! :)"
	textHrvSkipped     = "Alright, your HRV data is saved without details."
	textLinkStart      = "Send me the share link of your HRV measurement. It must contain the i=<token> parameter."
	textLinkImported   = "Your HRV data has been imported and plotted. Send any message to see the plots."
	textRetryNoToken   = "I couldn't find the i=<token> parameter in that link. Please send it again."
	textRetryProvider  = "I couldn't import your data right now. Please send the link again."
)

var kindNames = map[dialog.Kind]string{
	dialog.Profile:  "/conv",
	dialog.HrvPhoto: "/input",
	dialog.HrvLink:  "/link",
}

// Composer maps outcomes to replies. It has no side effects.
type Composer struct {
	// RepromptOnMismatch re-sends the gender keyboard for an ignored answer.
	RepromptOnMismatch bool
}

func genderKeyboard() *Keyboard {
	return &Keyboard{Options: dialog.GenderOptions, Placeholder: "Boy or Girl?"}
}

func text(s string) Reply { return Reply{Text: s} }

// Compose returns the replies for one turn outcome, possibly none.
func (c Composer) Compose(out dialog.Outcome) []Reply {
	switch out.Result {
	case dialog.Started:
		return started(out.Kind)
	case dialog.Cancelled:
		return []Reply{{Text: textCancelled, Keyboard: &Keyboard{Remove: true}}}
	case dialog.Rejected:
		return []Reply{text(rejected(dialog.Kind(out.Reason)))}
	case dialog.Retry:
		if out.Reason == dialog.ReasonNoToken {
			return []Reply{text(textRetryNoToken)}
		}
		return []Reply{text(textRetryProvider)}
	case dialog.Ignored:
		if c.RepromptOnMismatch && out.Step == dialog.StepGender {
			return []Reply{{Text: textGenderAgain, Keyboard: genderKeyboard()}}
		}
		return nil
	case dialog.Served:
		return Plots(out.Plots)
	case dialog.Advanced, dialog.Skipped, dialog.Completed:
		return transition(out)
	}
	return nil
}

func started(kind dialog.Kind) []Reply {
	switch kind {
	case dialog.Profile:
		return []Reply{{Text: textGender, Keyboard: genderKeyboard()}}
	case dialog.HrvPhoto:
		return []Reply{text(textHrvStart)}
	case dialog.HrvLink:
		return []Reply{text(textLinkStart)}
	}
	return nil
}

func transition(out dialog.Outcome) []Reply {
	skipped := out.Result == dialog.Skipped
	switch out.From {
	case dialog.StepGender:
		return []Reply{{Text: textPhoto, Keyboard: &Keyboard{Remove: true}}}
	case dialog.StepPhoto:
		if skipped {
			return []Reply{text(textLocationNoPic)}
		}
		return []Reply{text(textLocation)}
	case dialog.StepLocation:
		if skipped {
			return []Reply{text(textBioNoLocation)}
		}
		return []Reply{text(textBio)}
	case dialog.StepBio:
		return []Reply{text(textProfileDone)}
	case dialog.StepSummary:
		return []Reply{text(textGraphs)}
	case dialog.StepGraphs:
		if skipped {
			return []Reply{text(textDetailsNoGraph)}
		}
		return []Reply{text(textDetails)}
	case dialog.StepDetails:
		if skipped {
			return []Reply{text(textHrvSkipped)}
		}
		return []Reply{text(textHrvDone)}
	case dialog.StepGetLink:
		return []Reply{text(textLinkImported)}
	}
	return nil
}

func rejected(active dialog.Kind) string {
	name, ok := kindNames[active]
	if !ok {
		name = string(active)
	}
	return fmt.Sprintf("You are still in the %s dialog. Finish it or send /cancel first.", name)
}

// Help lists the available commands.
func Help() Reply {
	var b strings.Builder
	b.WriteString("Hi! These are your availiable commands:\n")
	b.WriteString("/conv to have a casual conversation with me.\n")
	b.WriteString("/input to store your HRV data.\n")
	b.WriteString("/link to import your HRV data from a share link.\n")
	b.WriteString("/plot to see the plots of your imported data.\n")
	b.WriteString("/restore to get back your stored HRV photos.\n")
	b.WriteString("/skip to skip an optional step, /cancel to stop a dialog.")
	return text(b.String())
}

var restoreOrder = []struct {
	field records.Field
	label string
}{
	{records.Summary, "summary"},
	{records.Graphs, "graphs"},
	{records.Details, "details"},
}

func notStored(label string) string {
	return fmt.Sprintf("You haven't stored your HRV %s yet.", label)
}

// Restore returns the stored HRV images of rec in the order summary, graphs,
// details. A field that was never stored becomes a text message.
func Restore(rec records.HrvPhotoRecord) []Reply {
	replies := make([]Reply, 0, len(restoreOrder))
	for _, item := range restoreOrder {
		key, ok := rec.Value(item.field)
		if !ok || key == "" {
			replies = append(replies, text(notStored(item.label)))
			continue
		}
		replies = append(replies, Reply{ImageKey: key, Caption: item.label, Missing: notStored(item.label)})
	}
	return replies
}

func notImported(title string) string {
	return fmt.Sprintf("The %s plot is not imported yet. Send /link to import your data.", title)
}

// Plots returns one image reply per stored plot and a text for the rest.
func Plots(plots []linkimport.Plot) []Reply {
	replies := make([]Reply, 0, len(plots))
	for _, p := range plots {
		if !p.Stored {
			replies = append(replies, text(notImported(p.Title)))
			continue
		}
		replies = append(replies, Reply{ImageKey: p.Key, Caption: p.Title, Missing: notImported(p.Title)})
	}
	return replies
}
