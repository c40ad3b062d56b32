package lnurl

import (
	"strings"
	"testing"

	"github.com/lnbits/lnurl/bech32"
	"github.com/stretchr/testify/require"
)

const (
	payLnurl = "LNURL1DP68GURN8GHJ7UM9WFMXJCM99E5K7TELWY7NXENRXVMRGDTZX" +
		"SENJCM98PJNWE3JX56NXCFK89JN2V3KXUCRSVTY8YMXGCMYXV6RQD3EXDSKVC" +
		"TZV5CRGCN9XA3RQCMRVSCNWWRYVCYAE0UU"
	payURL = "https://service.io/?q=3fc3645b439ce8e7f2553a69e5267081d96d" +
		"cd340693afabe04be7b0ccd178df"

	apiLnurl = "LNURL1DP68GURN8GHJ7UM9WFMXJCM99E3K7MF0V9CXJ0M385EKVCENX" +
		"C6R2C35XVUKXEFCV5MKVV34X5EKZD3EV56NYD3HXQURZEPEXEJXXEPNXSCRVW" +
		"FNV9NXZCN9XQ6XYEFHVGCXXCMYXYMNSERXFQ5FNS"
	apiURL = "https://service.com/api?q=3fc3645b439ce8e7f2553a69e5267081" +
		"d96dcd340693afabe04be7b0ccd178df"
)

// TestDecode tests decoding of bech32 lnurls against known pairs, in both
// cases.
func TestDecode(t *testing.T) {
	tests := []struct {
		lnurl string
		url   string
		host  string
	}{
		{payLnurl, payURL, "service.io"},
		{strings.ToLower(payLnurl), payURL, "service.io"},
		{apiLnurl, apiURL, "service.com"},
	}

	for _, test := range tests {
		u, err := Decode(test.lnurl)
		require.NoError(t, err)
		require.Equal(t, test.url, u.String())
		require.Equal(t, test.host, u.Hostname())
	}
}

// TestDecodeInvalid tests that well formed bech32 that is not a lnurl, and
// malformed bech32, are both rejected.
func TestDecodeInvalid(t *testing.T) {
	tests := []string{
		// Valid bech32, wrong human readable part.
		"abcdef1qpzry9x8gf2tvdw0s3jn54khce6mua7lmqqqxw",
		"split1checkupstagehandshakeupstreamerranterredcaperred2y9e3w",

		// A segwit address is not a lnurl.
		"BC1QW508D6QEJXTDG4Y5R3ZARVARY0C5XW7KV8F3T4",

		// Over the length bound.
		strings.Repeat("A", MaxLnurlLength+1),
	}

	for _, test := range tests {
		_, err := Decode(test)
		require.Error(t, err, test)
		require.ErrorIs(t, err, ErrInvalidLnurl)
	}
}

// TestDecodeInvalidPayload tests that a lnurl whose payload is not valid
// utf-8 is rejected before URL parsing.
func TestDecodeInvalidPayload(t *testing.T) {
	words, err := bech32.ConvertBits([]byte{0xff, 0xfe, 0xfd}, 8, 5, true)
	require.NoError(t, err)

	encoded, err := bech32.Encode("lnurl", words)
	require.NoError(t, err)

	_, err = Decode(encoded)
	require.ErrorIs(t, err, ErrInvalidLnurl)
}

// TestEncode tests encoding of service URLs against known pairs and that
// URLs failing validation cannot be encoded.
func TestEncode(t *testing.T) {
	encoded, err := Encode(payURL)
	require.NoError(t, err)
	require.Equal(t, payLnurl, encoded)

	encoded, err = Encode(apiURL)
	require.NoError(t, err)
	require.Equal(t, apiLnurl, encoded)

	// Plain http on a clearnet host is not encodable.
	_, err = Encode("http://service.io/")
	require.ErrorIs(t, err, ErrInvalidURL)
}

// TestEncodeDecodeRoundTrip tests that encoding survives a decode round
// trip for URLs well past the generic bech32 length limit.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	rawURL := "https://service.io/withdraw?hash=" +
		strings.Repeat("x", 1000)

	encoded, err := Encode(rawURL)
	require.NoError(t, err)
	require.Greater(t, len(encoded), 90)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, rawURL, decoded.String())
}

// TestParse tests identifier parsing across all accepted input forms.
func TestParse(t *testing.T) {
	// Bech32 form.
	ln, err := Parse(payLnurl)
	require.NoError(t, err)
	require.Equal(t, payURL, ln.URL().String())
	require.Equal(t, payLnurl, ln.Bech32())
	require.False(t, ln.IsRawScheme())
	require.False(t, ln.IsLogin())

	// Lower case and surrounded by whitespace.
	ln, err = Parse("  " + strings.ToLower(payLnurl) + "\n")
	require.NoError(t, err)
	require.Equal(t, payLnurl, ln.Bech32())

	// Behind the lightning: prefix.
	ln, err = Parse("lightning:" + payLnurl)
	require.NoError(t, err)
	require.Equal(t, payURL, ln.URL().String())
	require.Equal(t, payLnurl, ln.String())

	// Plain URL form encodes on the fly.
	ln, err = Parse(payURL)
	require.NoError(t, err)
	require.Equal(t, payLnurl, ln.Bech32())
	require.Equal(t, payURL, ln.URL().String())
}

// TestParseInvalid tests rejection of inputs that fit no accepted form.
func TestParseInvalid(t *testing.T) {
	tests := []string{
		"",
		"lightning:",
		"BC1QW508D6QEJXTDG4Y5R3ZARVARY0C5XW7KV8F3T4",
		"abcdef1qpzry9x8gf2tvdw0s3jn54khce6mua7lmqqqxw",
		"http://service.io/",
		"lnurlp://",
	}

	for _, test := range tests {
		_, err := Parse(test)
		require.Error(t, err, test)
	}
}

// TestParseRawSchemes tests the LUD-17 scheme forms: each scheme swaps for
// https, or http for onion and local hosts, and the identifier remembers
// which scheme it used.
func TestParseRawSchemes(t *testing.T) {
	tests := []struct {
		input  string
		url    string
		scheme string
	}{
		{
			"lnurlp://service.io/pay",
			"https://service.io/pay",
			"lnurlp",
		},
		{
			"lnurlw://service.io/withdraw?k1=abcd",
			"https://service.io/withdraw?k1=abcd",
			"lnurlw",
		},
		{
			"lnurlc://service.io/channel",
			"https://service.io/channel",
			"lnurlc",
		},
		{
			"keyauth://service.io/auth?tag=login&k1=abcd",
			"https://service.io/auth?tag=login&k1=abcd",
			"keyauth",
		},
		{
			"lnurlp://protonirockerxow.onion/pay",
			"http://protonirockerxow.onion/pay",
			"lnurlp",
		},
		{
			"lnurlw://127.0.0.1:8080/withdraw",
			"http://127.0.0.1:8080/withdraw",
			"lnurlw",
		},
	}

	for _, test := range tests {
		ln, err := Parse(test.input)
		require.NoError(t, err, test.input)
		require.Equal(t, test.url, ln.URL().String())
		require.Equal(t, test.scheme, ln.RawScheme())
		require.True(t, ln.IsRawScheme())
		require.Empty(t, ln.Bech32())
	}
}

// TestIsLogin tests login detection from the tag query parameter.
func TestIsLogin(t *testing.T) {
	ln, err := Parse("keyauth://service.io/auth?tag=login&k1=abcd")
	require.NoError(t, err)
	require.True(t, ln.IsLogin())

	encoded, err := Encode("https://service.io/auth?tag=login&k1=abcd")
	require.NoError(t, err)

	ln, err = Parse(encoded)
	require.NoError(t, err)
	require.True(t, ln.IsLogin())

	ln, err = Parse("https://service.io/?tag=withdrawRequest")
	require.NoError(t, err)
	require.False(t, ln.IsLogin())
}

// TestIsFastWithdraw tests fast withdraw detection as the query grows
// towards a complete embedded withdraw response.
func TestIsFastWithdraw(t *testing.T) {
	const base = "https://lnbits.com/withdraw/api/v1/lnurl"

	url2 := base + "?tag=withdrawRequest"
	url3 := url2 + "&k1=" + strings.Repeat("0", 16)
	url4 := url3 + "&callback=" + base + "&defaultDescription=default"
	url5 := url4 + "&minWithdrawable=1000&maxWithdrawable=1000000"

	tests := []struct {
		url      string
		expected bool
	}{
		{base, false},
		{url2, false},
		{url3, false},
		{url4, false},
		{url5, true},
	}

	for _, test := range tests {
		ln, err := Parse(test.url)
		require.NoError(t, err, test.url)
		require.Equal(t, test.expected, ln.IsFastWithdraw(), test.url)
	}
}

// TestFastWithdrawResponse tests the round trip from a withdraw response
// through its query form back to a synthesized response.
func TestFastWithdrawResponse(t *testing.T) {
	const base = "https://lnbits.com/withdraw/api/v1/lnurl"

	callback, err := ParseURL(base)
	require.NoError(t, err)

	res := &WithdrawResponse{
		Tag:                TagWithdrawRequest,
		Callback:           callback,
		K1:                 strings.Repeat("0", 16),
		MinWithdrawable:    1000,
		MaxWithdrawable:    1000000,
		DefaultDescription: "default",
	}

	ln, err := Parse(base + "?" + res.FastWithdrawQuery().Encode())
	require.NoError(t, err)
	require.True(t, ln.IsFastWithdraw())

	synthesized, err := ln.FastWithdrawResponse()
	require.NoError(t, err)
	require.Equal(t, res.K1, synthesized.K1)
	require.Equal(t, res.MinWithdrawable, synthesized.MinWithdrawable)
	require.Equal(t, res.MaxWithdrawable, synthesized.MaxWithdrawable)
	require.Equal(t, res.DefaultDescription,
		synthesized.DefaultDescription)
	require.Equal(t, base, synthesized.Callback.String())

	// Anything short of the full parameter set cannot be synthesized.
	ln, err = Parse(base + "?tag=withdrawRequest")
	require.NoError(t, err)

	_, err = ln.FastWithdrawResponse()
	require.ErrorIs(t, err, ErrInvalidLnurl)
}
