// Package reply turns dialog outcomes into outbound messages and delivers
// them through a Sender.
package reply

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/m3rciful/hrvbot/internal/blob"
)

// Keyboard is a reply keyboard directive. Remove hides the current keyboard;
// otherwise Options are shown as one row that closes after one press.
type Keyboard struct {
	Options     []string
	Placeholder string
	Remove      bool
}

// Reply is one outbound message: a text, or an image read from the blob store.
type Reply struct {
	Text     string
	Keyboard *Keyboard
	// ImageKey selects an image message. Caption is sent with it; Missing is
	// sent as text instead when the blob cannot be opened.
	ImageKey string
	Caption  string
	Missing  string
}

// IsImage reports whether r is an image message.
func (r Reply) IsImage() bool { return r.ImageKey != "" }

// Sender delivers messages to the current chat.
type Sender interface {
	SendText(ctx context.Context, text string, kb *Keyboard) error
	SendImage(ctx context.Context, r io.Reader, caption string) error
}

// Opener reads stored images.
type Opener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Deliver sends replies in order and stops at the first send failure.
// An image whose blob is gone degrades to its Missing text.
func Deliver(ctx context.Context, out Sender, images Opener, replies []Reply) error {
	for i, r := range replies {
		if !r.IsImage() {
			if err := out.SendText(ctx, r.Text, r.Keyboard); err != nil {
				return fmt.Errorf("reply: deliver %d: %w", i, err)
			}
			continue
		}
		if err := deliverImage(ctx, out, images, r); err != nil {
			return fmt.Errorf("reply: deliver %d: %w", i, err)
		}
	}
	return nil
}

func deliverImage(ctx context.Context, out Sender, images Opener, r Reply) error {
	rc, err := images.Open(ctx, r.ImageKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) && r.Missing != "" {
			return out.SendText(ctx, r.Missing, nil)
		}
		return err
	}
	defer rc.Close()
	return out.SendImage(ctx, rc, r.Caption)
}
