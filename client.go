package lnurl

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lnbits/lnurl/logger"
	"github.com/lnbits/lnurl/metrics"
	"github.com/tidwall/gjson"
)

const (
	// DefaultUserAgent is sent on every request unless overridden.
	DefaultUserAgent = "lnbits/lnurl"

	// DefaultTimeout bounds each callback round trip unless overridden.
	DefaultTimeout = 5 * time.Second
)

// Client drives the wallet side of the LNURL flows: it resolves
// identifiers, fetches and dispatches service responses and executes the
// pay, withdraw and login round trips.
//
// A client built without options logs nowhere and records nothing. All
// methods are safe for concurrent use.
type Client struct {
	http      *http.Client
	userAgent string
	timeout   time.Duration
	insecure  bool
	log       logger.Logger
	metrics   metrics.Recorder
	decoder   InvoiceDecoder
}

// NewClient returns a Client configured by opts.
func NewClient(opts ...Option) *Client {
	c := &Client{
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		log:       logger.NoopLogger{},
		metrics:   metrics.NoopRecorder{},
		decoder:   zpay32Decoder{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
		if c.insecure {
			c.http.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: true,
				},
			}
		}
	}

	return c
}

// get performs one GET against u with params merged into its query and
// returns the raw body. Transport failures and non-2xx statuses surface as
// *ResponseError. Query parameters are never logged, they carry login
// secrets and signatures.
func (c *Client) get(ctx context.Context, u *URL,
	params url.Values) ([]byte, error) {

	target := u.String()
	if len(params) > 0 {
		merged := u.Query()
		for key, values := range params {
			merged[key] = values
		}
		target = u.Base() + "?" + merged.Encode()
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, target, nil,
	)
	if err != nil {
		return nil, &ResponseError{Reason: "invalid request", Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	host := u.Hostname()
	c.log.Debug("lnurl request", map[string]any{
		"host": host,
		"path": u.Path(),
	})

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ObserveLatency("get", time.Since(start),
		map[string]string{"host": host})
	if err != nil {
		c.metrics.IncCounter("request_error",
			map[string]string{"host": host})
		c.log.Error("lnurl request failed", map[string]any{
			"host": host,
			"err":  err.Error(),
		})
		return nil, &ResponseError{
			Reason: fmt.Sprintf("request to %s failed", host),
			Err:    err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.IncCounter("request_error",
			map[string]string{"host": host})
		return nil, &ResponseError{
			Reason: fmt.Sprintf("unable to read response from %s",
				host),
			Err: err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.IncCounter("request_error",
			map[string]string{"host": host})
		return nil, &ResponseError{Reason: fmt.Sprintf(
			"unexpected status %d from %s", resp.StatusCode, host)}
	}

	c.metrics.IncCounter("request_ok", map[string]string{"host": host})
	c.log.Debug("lnurl response", map[string]any{
		"host":  host,
		"bytes": len(body),
	})

	return body, nil
}

func (c *Client) getResponse(ctx context.Context, u *URL,
	params url.Values) (Response, error) {

	body, err := c.get(ctx, u, params)
	if err != nil {
		return nil, err
	}
	return ParseResponse(body)
}

// Get fetches rawURL with params merged into its query and dispatches the
// JSON body onto the protocol message it encodes.
func (c *Client) Get(ctx context.Context, rawURL string,
	params url.Values) (Response, error) {

	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return c.getResponse(ctx, u, params)
}

// Handle resolves raw, a bech32 lnurl, a raw scheme identifier or a
// lightning address, into its first protocol message. Login identifiers
// never hit the network, their challenge is synthesized locally from the
// query parameters (LUD-04).
func (c *Client) Handle(ctx context.Context, raw string) (Response, error) {
	if strings.Contains(raw, "@") {
		addr, err := ParseLightningAddress(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		callback, err := addr.CallbackURL()
		if err != nil {
			return nil, err
		}
		return c.getResponse(ctx, callback, nil)
	}

	ln, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	return c.HandleLnurl(ctx, ln)
}

// HandleLnurl resolves an already parsed identifier.
func (c *Client) HandleLnurl(ctx context.Context, ln *Lnurl) (Response,
	error) {

	if ln.IsLogin() {
		k1 := ln.URL().QueryParams()["k1"]
		if k1 == "" {
			return nil, fmt.Errorf("%w: login request without k1",
				ErrInvalidLnurl)
		}

		c.log.Debug("synthesized login challenge", map[string]any{
			"host": ln.URL().Hostname(),
		})

		return &AuthResponse{
			Tag:      TagLogin,
			Callback: ln.URL(),
			K1:       k1,
		}, nil
	}

	return c.getResponse(ctx, ln.URL(), nil)
}

// Execute resolves raw and runs the flow it names to completion. The
// meaning of value depends on the flow: the millisatoshi amount to pay,
// the bolt11 invoice to withdraw to, or the auth seed to login with.
func (c *Client) Execute(ctx context.Context, raw, value string) (Response,
	error) {

	res, err := c.Handle(ctx, raw)
	if err != nil {
		return nil, err
	}

	switch r := res.(type) {
	case *PayResponse:
		msat, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount '%s': %v",
				value, err)
		}

		action, err := c.ExecutePayRequest(
			ctx, r, MilliSatoshi(msat), "",
		)
		if err != nil {
			return nil, err
		}
		return action, nil

	case *WithdrawResponse:
		return c.ExecuteWithdraw(ctx, r, value)

	case *AuthResponse:
		return c.ExecuteLogin(ctx, r, LoginKey{Seed: value})

	case *ErrorResponse:
		return nil, &ResponseError{Reason: r.Reason}

	default:
		return nil, &ResponseError{Reason: fmt.Sprintf(
			"%s not implemented", r.responseTag())}
	}
}

// ExecutePayRequest runs the second pay round trip (LUD-06): it requests
// an invoice over amount and cross checks that the invoice the service
// returned actually carries that amount. A non-empty comment rides along
// when the service accepts one (LUD-12).
func (c *Client) ExecutePayRequest(ctx context.Context, res *PayResponse,
	amount MilliSatoshi, comment string) (*PayActionResponse, error) {

	if !res.IsValidAmount(amount) {
		return nil, &ResponseError{Reason: fmt.Sprintf("amount %d not "+
			"in range %d - %d", amount, res.MinSendable,
			res.MaxSendable)}
	}

	params := url.Values{}
	params.Set("amount", strconv.FormatUint(uint64(amount), 10))

	if comment != "" {
		if res.CommentAllowed <= 0 {
			return nil, &ResponseError{Reason: "service does not " +
				"accept comments"}
		}
		if int64(utf8.RuneCountInString(comment)) > res.CommentAllowed {
			return nil, &ResponseError{Reason: fmt.Sprintf(
				"comment exceeds %d characters",
				res.CommentAllowed)}
		}
		params.Set("comment", comment)
	}

	raw, err := c.getResponse(ctx, res.Callback, params)
	if err != nil {
		return nil, err
	}

	action, ok := raw.(*PayActionResponse)
	if !ok {
		if errRes, isErr := raw.(*ErrorResponse); isErr {
			return nil, &ResponseError{Reason: errRes.Reason}
		}
		return nil, &ResponseError{Reason: fmt.Sprintf("expected a "+
			"pay action response, got %s", raw.responseTag())}
	}

	// The wallet must not pay an invoice over any amount other than the
	// one it asked for.
	invoiceAmt, hasAmt, err := c.decoder.DecodeAmount(action.PR)
	if err != nil {
		return nil, &ResponseError{
			Reason: fmt.Sprintf("%s returned an invalid invoice",
				res.Callback.Hostname()),
			Err: err,
		}
	}
	if !hasAmt || invoiceAmt != amount {
		return nil, &ResponseError{Reason: fmt.Sprintf("%s returned "+
			"an invalid invoice, expected %d msat got %d",
			res.Callback.Hostname(), amount, invoiceAmt)}
	}

	return action, nil
}

// ExecuteWithdraw runs the withdraw round trip (LUD-03): it submits the
// invoice the service should pay out to. An amountless invoice is valued
// at the offer's minimum for the range check.
func (c *Client) ExecuteWithdraw(ctx context.Context,
	res *WithdrawResponse, invoice string) (Response, error) {

	amount, hasAmt, err := c.decoder.DecodeAmount(invoice)
	if err != nil {
		return nil, &ResponseError{Reason: "invalid invoice", Err: err}
	}
	if !hasAmt {
		amount = res.MinWithdrawable
	}
	if !res.IsValidAmount(amount) {
		return nil, &ResponseError{Reason: fmt.Sprintf("amount %d not "+
			"in range %d - %d", amount, res.MinWithdrawable,
			res.MaxWithdrawable)}
	}

	params := url.Values{}
	params.Set("k1", res.K1)
	params.Set("pr", invoice)

	raw, err := c.getResponse(ctx, res.Callback, params)
	if err != nil {
		return nil, err
	}

	switch r := raw.(type) {
	case *SuccessResponse:
		return r, nil

	case *ErrorResponse:
		return nil, &ResponseError{Reason: r.Reason}

	default:
		return nil, &ResponseError{Reason: fmt.Sprintf("expected a "+
			"success response, got %s", r.responseTag())}
	}
}

// LoginKey selects the wallet identity material for a login flow. Exactly
// one field should be set: Seed derives the linking key from a passphrase,
// SignedMessage from a signature the wallet node produced over AuthPhrase
// (LUD-13).
type LoginKey struct {
	Seed          string
	SignedMessage []byte
}

// ExecuteLogin answers an auth challenge (LUD-04): it derives the domain
// scoped linking key, signs k1 and submits key and sig to the callback.
// The service's verdict is returned as-is.
func (c *Client) ExecuteLogin(ctx context.Context, res *AuthResponse,
	key LoginKey) (Response, error) {

	if res.Callback == nil {
		return nil, &ResponseError{Reason: "login without a callback"}
	}
	domain := res.Callback.Hostname()

	var (
		linkingKey *btcec.PrivateKey
		err        error
	)
	switch {
	case key.Seed != "":
		linkingKey, err = DeriveLinkingKeyFromSeed(key.Seed, domain)

	case len(key.SignedMessage) > 0:
		linkingKey, err = DeriveLinkingKeyFromSignedMessage(
			domain, key.SignedMessage,
		)

	default:
		return nil, &ResponseError{Reason: "seed or signed message " +
			"is required for login"}
	}
	if err != nil {
		return nil, &ResponseError{
			Reason: "unable to derive linking key",
			Err:    err,
		}
	}

	pubkey, sig, err := SignK1(res.K1, linkingKey)
	if err != nil {
		return nil, &ResponseError{
			Reason: "unable to sign challenge",
			Err:    err,
		}
	}

	params := url.Values{}
	params.Set("key", pubkey)
	params.Set("sig", sig)

	return c.getResponse(ctx, res.Callback, params)
}

// VerifyPay polls a LUD-21 verify endpoint for the settlement state of a
// previously issued invoice. Verify responses carry both a status and a
// pr field, so the body is decoded directly instead of dispatched.
func (c *Client) VerifyPay(ctx context.Context, verifyURL string) (
	*PayVerifyResponse, error) {

	u, err := ParseURL(verifyURL)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, u, nil)
	if err != nil {
		return nil, err
	}

	status := gjson.GetBytes(body, "status")
	if strings.ToUpper(status.String()) == StatusError {
		reason := gjson.GetBytes(body, "reason").String()
		if reason == "" {
			reason = "Unknown error"
		}
		return nil, &ResponseError{Reason: reason}
	}

	var res PayVerifyResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &ResponseError{
			Reason: "malformed response",
			Err:    err,
		}
	}
	if res.PR == "" {
		return nil, &ResponseError{Reason: "verify response without pr"}
	}

	return &res, nil
}
