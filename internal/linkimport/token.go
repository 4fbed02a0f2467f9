// Package linkimport turns a shared measurement link into rendered plots.
//
// The link carries a token in its "i" query parameter. The token is posted to
// the data provider, every returned graph array is rescaled and rendered as a
// PNG line plot, and the plots are stored per owner and title.
package linkimport

import (
	"errors"
	"regexp"
)

// ErrNoToken is returned when a message carries no i=<token> parameter.
var ErrNoToken = errors.New("linkimport: no i=<token> in link")

var tokenRe = regexp.MustCompile(`[?&]i=([^&#\s]+)`)

// ExtractToken returns the value of the first i= query parameter found in text.
func ExtractToken(text string) (string, error) {
	m := tokenRe.FindStringSubmatch(text)
	if m == nil {
		return "", ErrNoToken
	}
	return m[1], nil
}
