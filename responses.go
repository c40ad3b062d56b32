package lnurl

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lnbits/lnurl/bech32"
	"github.com/tidwall/gjson"
)

// MilliSatoshi is the amount unit used throughout LNURL messages,
// re-exported from lnd's wire package.
type MilliSatoshi = lnwire.MilliSatoshi

// Tag identifies the sub-protocol a tagged response belongs to.
type Tag string

const (
	TagChannelRequest       Tag = "channelRequest"
	TagHostedChannelRequest Tag = "hostedChannelRequest"
	TagPayRequest           Tag = "payRequest"
	TagWithdrawRequest      Tag = "withdrawRequest"
	TagLogin                Tag = "login"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Response is implemented by every LNURL protocol message. The set of
// implementations is closed: responseTag doubles as the variant name used
// in error messages and keeps the union inside this package.
type Response interface {
	// Ok reports whether the message indicates success.
	Ok() bool

	responseTag() string
}

// validated is implemented by the variants that enforce field invariants
// after JSON binding.
type validated interface {
	validate() error
}

// ErrorResponse is a server-reported failure,
// {"status": "ERROR", "reason": ...}.
type ErrorResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (r *ErrorResponse) Ok() bool            { return false }
func (r *ErrorResponse) responseTag() string { return "error" }

// SuccessResponse is a bare {"status": "OK"} acknowledgment.
type SuccessResponse struct {
	Status string `json:"status"`
}

func (r *SuccessResponse) Ok() bool            { return true }
func (r *SuccessResponse) responseTag() string { return "success" }

// ChannelResponse asks the wallet to open a channel to the given node
// (LUD-02).
type ChannelResponse struct {
	Tag Tag `json:"tag"`

	// URI is the node the wallet should connect to.
	URI *NodeURI `json:"uri"`

	// Callback is the URL from LN SERVICE which will accept the channel
	// request parameters.
	Callback *URL `json:"callback"`

	// K1 is the secret the wallet echoes back to the callback.
	K1 string `json:"k1"`
}

func (r *ChannelResponse) Ok() bool            { return true }
func (r *ChannelResponse) responseTag() string { return string(TagChannelRequest) }

func (r *ChannelResponse) validate() error {
	if r.URI == nil {
		return fmt.Errorf("uri is required")
	}
	if r.Callback == nil {
		return fmt.Errorf("callback is required")
	}
	if r.K1 == "" {
		return fmt.Errorf("k1 is required")
	}
	return nil
}

// HostedChannelResponse asks the wallet to request a hosted channel from
// the given node (LUD-07). There is no callback, the wallet completes the
// flow over the lightning connection itself.
type HostedChannelResponse struct {
	Tag   Tag      `json:"tag"`
	URI   *NodeURI `json:"uri"`
	K1    string   `json:"k1"`
	Alias string   `json:"alias,omitempty"`
}

func (r *HostedChannelResponse) Ok() bool { return true }
func (r *HostedChannelResponse) responseTag() string {
	return string(TagHostedChannelRequest)
}

func (r *HostedChannelResponse) validate() error {
	if r.URI == nil {
		return fmt.Errorf("uri is required")
	}
	if r.K1 == "" {
		return fmt.Errorf("k1 is required")
	}
	return nil
}

// PayerDataOption declares one payer identity field a pay service accepts
// (LUD-18).
type PayerDataOption struct {
	Mandatory bool `json:"mandatory"`
}

// PayerDataAuthOption declares the auth payer identity field, which also
// carries the challenge to sign.
type PayerDataAuthOption struct {
	Mandatory bool   `json:"mandatory"`
	K1        string `json:"k1"`
}

// PayerDataOptions is the payerData object of a pay response, naming the
// identity fields the service is prepared to receive.
type PayerDataOptions struct {
	Name       *PayerDataOption     `json:"name,omitempty"`
	Pubkey     *PayerDataOption     `json:"pubkey,omitempty"`
	Identifier *PayerDataOption     `json:"identifier,omitempty"`
	Email      *PayerDataOption     `json:"email,omitempty"`
	Auth       *PayerDataAuthOption `json:"auth,omitempty"`
}

// PayerDataAuth is the signed auth proof a wallet includes in the payer
// data it sends.
type PayerDataAuth struct {
	Key string `json:"key"`
	K1  string `json:"k1"`
	Sig string `json:"sig"`
}

// PayerData is the identity object a wallet sends along with a pay
// callback when the service declared payerData support.
type PayerData struct {
	Name       string         `json:"name,omitempty"`
	Pubkey     string         `json:"pubkey,omitempty"`
	Identifier string         `json:"identifier,omitempty"`
	Email      string         `json:"email,omitempty"`
	Auth       *PayerDataAuth `json:"auth,omitempty"`
}

// PayResponse is the first pay message (LUD-06): the sendable range and
// the metadata the eventual invoice must commit to.
type PayResponse struct {
	Tag Tag `json:"tag"`

	// Callback is the URL from LN SERVICE which will accept the pay
	// request parameters.
	Callback *URL `json:"callback"`

	// MinSendable is the min amount LN SERVICE is willing to receive,
	// can not be less than 1 or more than MaxSendable.
	MinSendable MilliSatoshi `json:"minSendable"`

	// MaxSendable is the max amount LN SERVICE is willing to receive.
	MaxSendable MilliSatoshi `json:"maxSendable"`

	// Metadata json which must be presented as raw string here, this is
	// required to pass signature verification at a later step.
	Metadata *PayMetadata `json:"metadata"`

	// PayerData names the payer identity fields the service accepts
	// (LUD-18).
	PayerData *PayerDataOptions `json:"payerData,omitempty"`

	// CommentAllowed is the number of characters the service accepts in
	// a comment query parameter (LUD-12). Zero means no comments.
	CommentAllowed int64 `json:"commentAllowed,omitempty"`

	// NIP-57 lightning zaps.
	AllowsNostr bool   `json:"allowsNostr,omitempty"`
	NostrPubkey string `json:"nostrPubkey,omitempty"`
}

func (r *PayResponse) Ok() bool            { return true }
func (r *PayResponse) responseTag() string { return string(TagPayRequest) }

func (r *PayResponse) validate() error {
	if r.Callback == nil {
		return fmt.Errorf("callback is required")
	}
	if r.Metadata == nil {
		return fmt.Errorf("metadata is required")
	}
	if r.MinSendable == 0 {
		return fmt.Errorf("minSendable must be a positive amount")
	}
	if r.MaxSendable < r.MinSendable {
		return fmt.Errorf("maxSendable cannot be less than " +
			"minSendable")
	}
	return nil
}

// IsValidAmount reports whether amount falls within the sendable range.
func (r *PayResponse) IsValidAmount(amount MilliSatoshi) bool {
	return amount >= r.MinSendable && amount <= r.MaxSendable
}

// MinSats returns the minimum sendable amount in whole satoshis, rounded
// up so the returned amount is always payable.
func (r *PayResponse) MinSats() int64 {
	return int64((uint64(r.MinSendable) + 999) / 1000)
}

// MaxSats returns the maximum sendable amount in whole satoshis, rounded
// down so the returned amount never exceeds the range.
func (r *PayResponse) MaxSats() int64 {
	return int64(uint64(r.MaxSendable) / 1000)
}

// PayRouteHop is one hop of a payment route hint.
type PayRouteHop struct {
	NodeID        string `json:"nodeId"`
	ChannelUpdate string `json:"channelUpdate"`
}

// SuccessAction is an optional post-payment instruction attached to a pay
// action (LUD-09). Exactly one of the tag-specific field sets is present:
// message, url+description, or description+ciphertext+iv for the aes
// variant (LUD-10).
type SuccessAction struct {
	Tag         string `json:"tag"`
	Message     string `json:"message,omitempty"`
	Description string `json:"description,omitempty"`
	URL         *URL   `json:"url,omitempty"`
	Ciphertext  string `json:"ciphertext,omitempty"`
	IV          string `json:"iv,omitempty"`
}

const (
	SuccessActionMessage = "message"
	SuccessActionURL     = "url"
	SuccessActionAES     = "aes"

	// maxSuccessActionText bounds message and description fields.
	maxSuccessActionText = 144
)

func (a *SuccessAction) validate() error {
	switch a.Tag {
	case SuccessActionMessage:
		if a.Message == "" {
			return fmt.Errorf("message action without message")
		}
		if utf8.RuneCountInString(a.Message) > maxSuccessActionText {
			return fmt.Errorf("message exceeds %d characters",
				maxSuccessActionText)
		}

	case SuccessActionURL:
		if a.URL == nil {
			return fmt.Errorf("url action without url")
		}
		if utf8.RuneCountInString(a.Description) > maxSuccessActionText {
			return fmt.Errorf("description exceeds %d characters",
				maxSuccessActionText)
		}

	case SuccessActionAES:
		if utf8.RuneCountInString(a.Description) > maxSuccessActionText {
			return fmt.Errorf("description exceeds %d characters",
				maxSuccessActionText)
		}
		if len(a.IV) != 24 {
			return fmt.Errorf("aes iv must be 24 base64 "+
				"characters, got %d", len(a.IV))
		}
		if len(a.Ciphertext) < 24 || len(a.Ciphertext) > 4096 {
			return fmt.Errorf("aes ciphertext must be between 24 "+
				"and 4096 base64 characters, got %d",
				len(a.Ciphertext))
		}
		if _, err := base64.StdEncoding.DecodeString(a.IV); err != nil {
			return fmt.Errorf("aes iv is not valid base64: %v", err)
		}
		_, err := base64.StdEncoding.DecodeString(a.Ciphertext)
		if err != nil {
			return fmt.Errorf("aes ciphertext is not valid "+
				"base64: %v", err)
		}

	default:
		return fmt.Errorf("unknown success action tag '%s'", a.Tag)
	}

	return nil
}

// Decipher decrypts an aes success action with the preimage of the paid
// invoice (LUD-10).
func (a *SuccessAction) Decipher(preimage []byte) (string, error) {
	if a.Tag != SuccessActionAES {
		return "", fmt.Errorf("cannot decipher a '%s' success action",
			a.Tag)
	}
	return AESDecrypt(preimage, a.Ciphertext, a.IV)
}

// PayActionResponse is the second pay message (LUD-06): the invoice to
// pay, plus optional route hints and a success action.
type PayActionResponse struct {
	// PR is a bech32-serialized lightning invoice.
	PR string `json:"pr"`

	// SuccessAction is shown to the payer once the invoice settles
	// (LUD-09).
	SuccessAction *SuccessAction `json:"successAction,omitempty"`

	// Routes is an array of route hints, usually empty.
	Routes [][]PayRouteHop `json:"routes"`

	// Disposable signals whether the link may be reused (LUD-11). A nil
	// value must be interpreted as true, so a SERVICE that intends its
	// links to be stored must return disposable=false.
	Disposable *bool `json:"disposable,omitempty"`

	// Verify is the endpoint the wallet can poll for settlement
	// (LUD-21).
	Verify *URL `json:"verify,omitempty"`
}

func (r *PayActionResponse) Ok() bool            { return true }
func (r *PayActionResponse) responseTag() string { return "payAction" }

func (r *PayActionResponse) validate() error {
	if r.PR == "" {
		return fmt.Errorf("pr is required")
	}
	hrp, _, err := bech32.DecodeNoLimit(r.PR)
	if err != nil {
		return fmt.Errorf("pr is not a valid invoice: %w", err)
	}
	if !strings.HasPrefix(hrp, "ln") {
		return fmt.Errorf("pr is not a lightning invoice, got hrp "+
			"'%s'", hrp)
	}
	if r.SuccessAction != nil {
		if err := r.SuccessAction.validate(); err != nil {
			return err
		}
	}
	if r.Routes == nil {
		r.Routes = [][]PayRouteHop{}
	}
	return nil
}

// IsDisposable reports whether the pay link must be treated as single use.
// Absence of the field means yes (LUD-11).
func (r *PayActionResponse) IsDisposable() bool {
	return r.Disposable == nil || *r.Disposable
}

// WithdrawResponse offers the wallet a range it may invoice the service
// for (LUD-03).
type WithdrawResponse struct {
	Tag Tag `json:"tag"`

	// Callback is the URL from LN SERVICE which will accept the
	// withdrawal request.
	Callback *URL `json:"callback"`

	// K1 is the secret the wallet echoes back together with its
	// invoice.
	K1 string `json:"k1"`

	// MinWithdrawable is the minimum amount the service will pay out.
	MinWithdrawable MilliSatoshi `json:"minWithdrawable"`

	// MaxWithdrawable is the maximum amount the service will pay out.
	MaxWithdrawable MilliSatoshi `json:"maxWithdrawable"`

	// DefaultDescription is the suggested memo for the invoice.
	DefaultDescription string `json:"defaultDescription"`

	// BalanceCheck is the URL the wallet may re-query later to refresh
	// this offer (LUD-14).
	BalanceCheck *URL `json:"balanceCheck,omitempty"`

	// CurrentBalance is the amount currently available, when it differs
	// from MaxWithdrawable (LUD-14).
	CurrentBalance *MilliSatoshi `json:"currentBalance,omitempty"`

	// PayLink is a pay offer reachable from this withdraw link, either
	// a lightning address or an encoded lnurl (LUD-19).
	PayLink string `json:"payLink,omitempty"`
}

func (r *WithdrawResponse) Ok() bool            { return true }
func (r *WithdrawResponse) responseTag() string { return string(TagWithdrawRequest) }

func (r *WithdrawResponse) validate() error {
	if r.Callback == nil {
		return fmt.Errorf("callback is required")
	}
	if r.K1 == "" {
		return fmt.Errorf("k1 is required")
	}
	if r.MaxWithdrawable < r.MinWithdrawable {
		return fmt.Errorf("maxWithdrawable cannot be less than " +
			"minWithdrawable")
	}
	if r.PayLink != "" {
		if _, err := ParseLightningAddress(r.PayLink); err == nil {
			return nil
		}
		if _, err := Parse(r.PayLink); err != nil {
			return fmt.Errorf("payLink is neither a lightning "+
				"address nor an lnurl: %w", err)
		}
	}
	return nil
}

// IsValidAmount reports whether amount falls within the withdrawable
// range.
func (r *WithdrawResponse) IsValidAmount(amount MilliSatoshi) bool {
	return amount >= r.MinWithdrawable && amount <= r.MaxWithdrawable
}

// MinSats returns the minimum withdrawable amount in whole satoshis,
// rounded up.
func (r *WithdrawResponse) MinSats() int64 {
	return int64((uint64(r.MinWithdrawable) + 999) / 1000)
}

// MaxSats returns the maximum withdrawable amount in whole satoshis,
// rounded down.
func (r *WithdrawResponse) MaxSats() int64 {
	return int64(uint64(r.MaxWithdrawable) / 1000)
}

// FastWithdrawQuery returns the response as query parameters, the form a
// service embeds in a withdraw link so the wallet can skip the first round
// trip (LUD-08).
func (r *WithdrawResponse) FastWithdrawQuery() url.Values {
	query := url.Values{}
	query.Set("tag", string(TagWithdrawRequest))
	query.Set("k1", r.K1)
	query.Set("minWithdrawable",
		strconv.FormatUint(uint64(r.MinWithdrawable), 10))
	query.Set("maxWithdrawable",
		strconv.FormatUint(uint64(r.MaxWithdrawable), 10))
	query.Set("defaultDescription", r.DefaultDescription)
	if r.Callback != nil {
		query.Set("callback", r.Callback.String())
	}
	return query
}

// AuthResponse is the login challenge (LUD-04). It is synthesized locally
// from the identifier's query parameters, never fetched.
type AuthResponse struct {
	Tag Tag `json:"tag"`

	// Callback is the login URL itself, echoed back with key and sig
	// parameters added.
	Callback *URL `json:"callback"`

	// K1 is the hex challenge to sign.
	K1 string `json:"k1"`
}

func (r *AuthResponse) Ok() bool            { return true }
func (r *AuthResponse) responseTag() string { return string(TagLogin) }

func (r *AuthResponse) validate() error {
	if r.Callback == nil {
		return fmt.Errorf("callback is required")
	}
	if r.K1 == "" {
		return fmt.Errorf("k1 is required")
	}
	return nil
}

// PayVerifyResponse reports the settlement state of a previously issued
// invoice (LUD-21). It carries both a status and a pr field, so it is
// decoded directly by Client.VerifyPay rather than dispatched.
type PayVerifyResponse struct {
	Status   string `json:"status"`
	PR       string `json:"pr"`
	Settled  bool   `json:"settled"`
	Preimage string `json:"preimage,omitempty"`
}

// ParseResponse dispatches a raw JSON body onto the protocol message it
// encodes.
//
// A tag field selects the variant directly. Tagged responses sometimes
// redundantly carry a status field, which is ignored. An untagged body
// with a pr field is the second pay message. Anything else must declare
// itself with a status field, normalized case-insensitively.
func ParseResponse(data []byte) (Response, error) {
	if !gjson.ValidBytes(data) {
		return nil, &ResponseError{Reason: "invalid json response"}
	}

	if tag := gjson.GetBytes(data, "tag"); tag.Exists() {
		switch Tag(tag.String()) {
		case TagChannelRequest:
			return bindResponse(data, &ChannelResponse{})

		case TagHostedChannelRequest:
			return bindResponse(data, &HostedChannelResponse{})

		case TagPayRequest:
			return bindResponse(data, &PayResponse{})

		case TagWithdrawRequest:
			return bindResponse(data, &WithdrawResponse{})

		default:
			return nil, &ResponseError{Reason: fmt.Sprintf(
				"unknown response tag '%s'", tag.String())}
		}
	}

	// A pay action carries no tag. Its shape is the pr field plus the
	// routes field (LUD-06 requires routes even when empty).
	if gjson.GetBytes(data, "pr").Exists() &&
		gjson.GetBytes(data, "routes").Exists() {

		return bindResponse(data, &PayActionResponse{})
	}

	status := gjson.GetBytes(data, "status")
	if !status.Exists() || status.String() == "" {
		return nil, &ResponseError{Reason: "expected a success or " +
			"error response, but no status given"}
	}

	switch strings.ToUpper(status.String()) {
	case StatusOK:
		return &SuccessResponse{Status: StatusOK}, nil

	case StatusError:
		reason := gjson.GetBytes(data, "reason").String()
		if reason == "" {
			reason = "Unknown error"
		}
		return &ErrorResponse{Status: StatusError, Reason: reason}, nil

	default:
		return nil, &ResponseError{Reason: fmt.Sprintf(
			"unknown response status '%s'", status.String())}
	}
}

func bindResponse(data []byte, res Response) (Response, error) {
	if err := json.Unmarshal(data, res); err != nil {
		return nil, &ResponseError{
			Reason: "malformed response",
			Err:    err,
		}
	}
	if v, ok := res.(validated); ok {
		if err := v.validate(); err != nil {
			return nil, &ResponseError{
				Reason: "invalid response",
				Err:    err,
			}
		}
	}
	return res, nil
}
