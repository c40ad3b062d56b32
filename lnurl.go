// Package lnurl implements the client side of the LNURL protocol family:
// the bech32 identifier codec, the typed protocol responses, lnurl-auth
// signing and the pay, withdraw and login flows.
package lnurl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lnbits/lnurl/bech32"
)

const humanReadablePart = "lnurl"

// lightningPrefix is the deep-link scheme wallets receive from QR codes
// and links. It is stripped before any other parsing.
const lightningPrefix = "lightning:"

// rawSchemes are the non bech32-encoded protocol schemes (LUD-17). Each is
// equivalent to the web scheme with a different prefix: lnurlp for pay,
// lnurlw for withdraw, lnurlc for channel requests and keyauth for login.
var rawSchemes = []string{"lnurlp", "lnurlw", "lnurlc", "keyauth"}

// MaxLnurlLength bounds the accepted length of a bech32 encoded lnurl.
// Encoded service URLs routinely exceed the 90 character limit of generic
// bech32, so decoding runs without that limit and this bound applies
// instead.
var MaxLnurlLength = 4096

// Decode decodes a bech32 encoded lnurl into its service URL.
func Decode(lnurl string) (*URL, error) {
	if len(lnurl) > MaxLnurlLength {
		return nil, fmt.Errorf("%w: exceeds %d characters",
			ErrInvalidLnurl, MaxLnurlLength)
	}

	hrp, data, err := bech32.DecodeNoLimit(lnurl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLnurl, err)
	}

	if hrp != humanReadablePart {
		return nil, fmt.Errorf("%w: incorrect hrp, expected '%s' "+
			"got '%s'", ErrInvalidLnurl, humanReadablePart, hrp)
	}

	data, err = bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLnurl, err)
	}

	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: payload is not valid utf-8",
			ErrInvalidLnurl)
	}

	return ParseURL(string(data))
}

// Encode encodes a service URL as a bech32 lnurl string. The URL is
// validated first, so URLs failing the scheme or host rules cannot be
// encoded. The result is upper case, as the protocol requires.
func Encode(rawURL string) (string, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return "", err
	}

	converted, err := bech32.ConvertBits([]byte(u.String()), 8, 5, true)
	if err != nil {
		return "", err
	}

	encoded, err := bech32.Encode(humanReadablePart, converted)
	if err != nil {
		return "", err
	}

	return strings.ToUpper(encoded), nil
}

// Lnurl is a parsed LNURL identifier. Accepted forms are the bech32
// encoding (optionally behind a lightning: prefix), a raw protocol scheme
// URL (LUD-17) and a plain service URL.
type Lnurl struct {
	raw       string
	bech32Str string
	url       *URL
	rawScheme string
}

// Parse parses an identifier given in any of the accepted forms.
func Parse(input string) (*Lnurl, error) {
	raw := strings.TrimSpace(input)
	raw = strings.TrimPrefix(raw, lightningPrefix)

	if raw == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalidLnurl)
	}

	// Bech32 form. The codec enforces uniform case, so the prefix match
	// here must not.
	if len(raw) >= 6 &&
		strings.EqualFold(raw[:6], humanReadablePart+"1") {

		u, err := Decode(raw)
		if err != nil {
			return nil, err
		}

		return &Lnurl{
			raw:       raw,
			bech32Str: strings.ToUpper(raw),
			url:       u,
		}, nil
	}

	// Raw scheme form. The scheme swaps for https, or for http when the
	// host is an onion service or a local debug host.
	for _, scheme := range rawSchemes {
		if !strings.HasPrefix(raw, scheme+"://") {
			continue
		}

		u, err := parseRawSchemeURL(raw, scheme)
		if err != nil {
			return nil, err
		}

		return &Lnurl{
			raw:       raw,
			url:       u,
			rawScheme: scheme,
		}, nil
	}

	// Plain URL form.
	u, err := ParseURL(raw)
	if err != nil {
		return nil, err
	}

	encoded, err := Encode(u.String())
	if err != nil {
		return nil, err
	}

	return &Lnurl{
		raw:       raw,
		bech32Str: encoded,
		url:       u,
	}, nil
}

func parseRawSchemeURL(raw, scheme string) (*URL, error) {
	rest := strings.TrimPrefix(raw, scheme+"://")

	u, err := ParseURL("https://" + rest)
	if err != nil {
		return nil, err
	}

	if u.IsOnion() || isLocalHost(u.Hostname()) {
		return ParseURL("http://" + rest)
	}

	return u, nil
}

// String returns the identifier as given, minus surrounding whitespace and
// the lightning: prefix.
func (l *Lnurl) String() string {
	return l.raw
}

// Bech32 returns the upper case bech32 form of the identifier. Raw scheme
// identifiers have no bech32 form and return an empty string.
func (l *Lnurl) Bech32() string {
	return l.bech32Str
}

// URL returns the decoded service URL.
func (l *Lnurl) URL() *URL {
	return l.url
}

// RawScheme returns the LUD-17 scheme the identifier used, if any.
func (l *Lnurl) RawScheme() string {
	return l.rawScheme
}

// IsRawScheme reports whether the identifier used one of the raw protocol
// schemes.
func (l *Lnurl) IsRawScheme() bool {
	return l.rawScheme != ""
}

// IsLogin reports whether the identifier is a login request (LUD-04).
func (l *Lnurl) IsLogin() bool {
	return l.url.QueryParams()["tag"] == string(TagLogin)
}

// IsFastWithdraw reports whether the identifier alone carries a full
// withdraw response in its query parameters, letting a wallet skip the
// first round trip (LUD-08).
func (l *Lnurl) IsFastWithdraw() bool {
	q := l.url.QueryParams()

	return q["tag"] == string(TagWithdrawRequest) &&
		q["k1"] != "" &&
		q["minWithdrawable"] != "" &&
		q["maxWithdrawable"] != "" &&
		q["defaultDescription"] != "" &&
		q["callback"] != ""
}

// FastWithdrawResponse synthesizes the withdraw response embedded in a
// fast withdraw identifier's query parameters.
func (l *Lnurl) FastWithdrawResponse() (*WithdrawResponse, error) {
	if !l.IsFastWithdraw() {
		return nil, fmt.Errorf("%w: not a fast withdraw request",
			ErrInvalidLnurl)
	}

	q := l.url.QueryParams()

	callback, err := ParseURL(q["callback"])
	if err != nil {
		return nil, err
	}

	minWithdrawable, err := strconv.ParseUint(q["minWithdrawable"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: minWithdrawable: %v",
			ErrInvalidLnurl, err)
	}

	maxWithdrawable, err := strconv.ParseUint(q["maxWithdrawable"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: maxWithdrawable: %v",
			ErrInvalidLnurl, err)
	}

	res := &WithdrawResponse{
		Tag:                TagWithdrawRequest,
		Callback:           callback,
		K1:                 q["k1"],
		MinWithdrawable:    MilliSatoshi(minWithdrawable),
		MaxWithdrawable:    MilliSatoshi(maxWithdrawable),
		DefaultDescription: q["defaultDescription"],
	}
	if err := res.validate(); err != nil {
		return nil, respErrf(err, "invalid response")
	}

	return res, nil
}
