// Package netutil classifies transport failures for retry loops.
package netutil

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"syscall"

	tele "gopkg.in/telebot.v4"
)

// ShouldRetry reports whether err is a transient dial or timeout failure,
// or a Telegram flood-control refusal.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && urlErr.Err != err {
		return ShouldRetry(urlErr.Err)
	}
	return false
}

// RetryAfter returns the wait Telegram asked for in a flood error, in seconds.
func RetryAfter(err error) int {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return flood.RetryAfter
	}
	return 0
}

// RetryableStatus reports gateway failures worth another attempt.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsIdempotent reports whether a request with method can be replayed.
func IsIdempotent(method string) bool {
	switch method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
