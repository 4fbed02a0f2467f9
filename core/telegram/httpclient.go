package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/hrvbot/core/telegram/netutil"
)

// HTTPClientOptions tunes BuildHTTPClient. Zero fields take defaults.
type HTTPClientOptions struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
	// RetryStatus also retries idempotent requests answered with 502, 503
	// or 504. The Telegram client leaves it off.
	RetryStatus bool
}

func (o HTTPClientOptions) withDefaults() HTTPClientOptions {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Retries <= 0 {
		o.Retries = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 2 * time.Second
	}
	return o
}

// BuildHTTPClient returns a pooled client that retries transient failures.
// The same builder serves the Telegram API and the HRV provider.
func BuildHTTPClient(opts HTTPClientOptions) *http.Client {
	opts = opts.withDefaults()
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
	}
	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &retryTransport{
			base:        transport,
			retries:     opts.Retries,
			backoff:     opts.Backoff,
			retryStatus: opts.RetryStatus,
		},
	}
}

type retryTransport struct {
	base        http.RoundTripper
	retries     int
	backoff     time.Duration
	retryStatus bool
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	replayable := req.Body == nil || req.GetBody != nil

	for attempt := 0; ; attempt++ {
		curr := req
		if attempt > 0 {
			curr = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				curr.Body = body
			}
		}

		resp, err := base.RoundTrip(curr)
		last := attempt >= t.retries || !replayable
		switch {
		case err != nil:
			if last || !netutil.ShouldRetry(err) {
				return nil, err
			}
		case t.retryStatus && netutil.IsIdempotent(req.Method) && netutil.RetryableStatus(resp.StatusCode):
			if last {
				return resp, nil
			}
			resp.Body.Close()
		default:
			return resp, nil
		}

		timer := time.NewTimer(t.backoff * time.Duration(attempt+1))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
}
