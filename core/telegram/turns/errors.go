package turns

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ErrPanic marks a turn whose action panicked.
var ErrPanic = errors.New("panic")

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// apiStatusRe matches the "(400)" suffix telebot appends to API errors.
var apiStatusRe = regexp.MustCompile(`\((\d{3})\)\s*$`)

// classifyError maps a turn failure to a short kind for log aggregation.
func classifyError(err error) string {
	var (
		dnsErr   *net.DNSError
		opErr    *net.OpError
		netErr   net.Error
		alertErr tls.AlertError
		floodErr tele.FloodError
		apiErr   *tele.Error
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPanic):
		return "panic"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.As(err, &floodErr):
		return "flood"
	case errors.As(err, &apiErr):
		return statusKind(apiErr.Code)
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "dial"
	case errors.As(err, &alertErr):
		return "tls"
	}
	if m := apiStatusRe.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return statusKind(code)
	}
	return "unknown"
}

func statusKind(code int) string {
	switch {
	case code == 429:
		return "flood"
	case code >= 500:
		return "http_5xx"
	case code >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// sanitizeErrorMessage redacts bot tokens that net/http embeds in request URLs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(strings.TrimSpace(err.Error()), "bot<redacted>")
}
