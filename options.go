package lnurl

import (
	"net/http"
	"time"

	"github.com/lnbits/lnurl/logger"
	"github.com/lnbits/lnurl/metrics"
)

// Option configures a Client.
type Option func(*Client)

// WithUserAgent overrides the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithTimeout bounds each callback round trip. Ignored when a custom http
// client is supplied.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) {
		c.timeout = t
	}
}

// WithHTTPClient replaces the http client entirely, for callers that need
// their own proxy, transport or timeout handling. A tor SOCKS transport is
// the usual reason.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithInsecureSkipVerify disables TLS certificate verification. Meant for
// development against self-signed services, never for production use.
func WithInsecureSkipVerify() Option {
	return func(c *Client) {
		c.insecure = true
	}
}

// WithLogger routes client logs to l.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithMetrics routes client instrumentation to r.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

// WithInvoiceDecoder replaces the bolt11 decoder used to cross-check
// invoice amounts.
func WithInvoiceDecoder(d InvoiceDecoder) Option {
	return func(c *Client) {
		c.decoder = d
	}
}
