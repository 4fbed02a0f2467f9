// Package blob stores downloaded images and rendered plots under relative keys.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned by Open for keys that were never written.
	ErrNotFound = errors.New("blob: not found")
	// ErrInvalidKey is returned for absolute keys or keys leaving the root.
	ErrInvalidKey = errors.New("blob: invalid key")
)

// Categories used by the bot.
const (
	CategoryUsers = "users"
	CategoryHrv   = "hrv"
	CategoryPlots = "plots"
)

// Store keeps blobs addressed by slash-separated relative keys.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Key builds "<category>/<owner>[-<substage>]<ext>". Path separators inside
// owner and substage are replaced so a key always stays one level deep.
func Key(category, owner, substage, ext string) string {
	var b strings.Builder
	b.WriteString(category)
	b.WriteByte('/')
	b.WriteString(flatten(owner))
	if substage != "" {
		b.WriteByte('-')
		b.WriteString(flatten(substage))
	}
	b.WriteString(ext)
	return b.String()
}

func flatten(s string) string {
	s = strings.NewReplacer("/", "_", `\`, "_").Replace(s)
	if s == "." || s == ".." {
		return "_"
	}
	return s
}

// CleanKey validates key and returns its canonical form.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}
