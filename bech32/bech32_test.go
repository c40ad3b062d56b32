package bech32

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDecodeValid tests decoding of well formed bech32 strings, including
// the reference vectors from BIP-173.
func TestDecodeValid(t *testing.T) {
	tests := []struct {
		bech string
		hrp  string
	}{
		{"A12UEL5L", "a"},
		{"a12uel5l", "a"},
		{
			"an83characterlonghumanreadablepartthatcontainsthenu" +
				"mber1andtheexcludedcharactersbio1tt5tgs",
			"an83characterlonghumanreadablepartthatcontainsthenu" +
				"mber1andtheexcludedcharactersbio",
		},
		{
			"abcdef1qpzry9x8gf2tvdw0s3jn54khce6mua7lmqqqxw",
			"abcdef",
		},
		{
			"split1checkupstagehandshakeupstreamerranterredcaper" +
				"red2y9e3w",
			"split",
		},
		{"?1ezyfcl", "?"},
	}

	for _, test := range tests {
		hrp, data, err := Decode(test.bech)
		require.NoError(t, err, test.bech)
		require.Equal(t, test.hrp, hrp)

		// Re-encoding the decoded data must reproduce the input
		// modulo case.
		reencoded, err := Encode(hrp, data)
		require.NoError(t, err)
		require.Equal(t, strings.ToLower(test.bech), reencoded)
	}
}

// TestDecodeInvalid tests that malformed strings are rejected.
func TestDecodeInvalid(t *testing.T) {
	tests := []string{
		// HRP character out of range.
		"\x201nwldj5",
		"\x7f1axkwrx",

		// No separator.
		"pzry9x0s0muk",

		// Empty HRP.
		"1pzry9x0s0muk",
		"10a06t8",

		// Invalid data character.
		"x1b4n0q5v",

		// Separator too close to the end for a checksum.
		"li1dgmt3",

		// Invalid checksum.
		"A1G7SGD8",
		"abcdef1qpzry9x8gf2tvdw0s3jn54khce6mua7lmqqqxj",

		// Mixed case.
		"A12uEL5L",
		"split1checkupstagehandshakeupstreamerranterredcaperreD2y9e3w",
	}

	for _, test := range tests {
		_, _, err := Decode(test)
		require.Error(t, err, test)
	}
}

// TestChecksumSensitivity tests that substituting any single character of a
// valid bech32 string makes decoding fail.
func TestChecksumSensitivity(t *testing.T) {
	const bech = "abcdef1qpzry9x8gf2tvdw0s3jn54khce6mua7lmqqqxw"

	for i := 0; i < len(bech); i++ {
		sub := byte('q')
		if bech[i] == 'q' {
			sub = 'p'
		}

		mutated := bech[:i] + string(sub) + bech[i+1:]
		_, _, err := Decode(mutated)
		require.Error(t, err, "position %d", i)
	}
}

// TestDecodeLimits tests the 90 character bound of Decode and its absence
// in DecodeNoLimit.
func TestDecodeLimits(t *testing.T) {
	// Exactly 90 characters is still acceptable to Decode.
	max90, err := Encode("1", make([]byte, 82))
	require.NoError(t, err)
	require.Len(t, max90, 90)

	_, _, err = Decode(max90)
	require.NoError(t, err)

	// Encode a payload whose bech32 form exceeds 90 characters and make
	// sure only DecodeNoLimit accepts it.
	payload := []byte(strings.Repeat("a", 100))
	data, err := ConvertBits(payload, 8, 5, true)
	require.NoError(t, err)

	long, err := Encode("lnurl", data)
	require.NoError(t, err)
	require.Greater(t, len(long), 90)

	_, _, err = Decode(long)
	require.Error(t, err)

	hrp, decoded, err := DecodeNoLimit(long)
	require.NoError(t, err)
	require.Equal(t, "lnurl", hrp)

	converted, err := ConvertBits(decoded, 5, 8, false)
	require.NoError(t, err)
	require.Equal(t, payload, converted)

	// Too short to hold a checksum at all.
	_, _, err = DecodeNoLimit("a1qqqqq")
	require.Error(t, err)
}

// TestEncodeInvalid tests input validation on the encoding side.
func TestEncodeInvalid(t *testing.T) {
	// Data bytes must be valid 5-bit groups.
	_, err := Encode("lnurl", []byte{31, 32})
	require.Error(t, err)

	// HRP must be present and lowercase.
	_, err = Encode("", []byte{0, 1})
	require.Error(t, err)

	_, err = Encode("LNURL", []byte{0, 1})
	require.Error(t, err)

	_, err = Encode("ln\x07rl", []byte{0, 1})
	require.Error(t, err)
}

// TestConvertBits tests the regrouping helper, in particular the strict
// handling of leftover bits when padding is disabled.
func TestConvertBits(t *testing.T) {
	// 5 bytes regroup into exactly 8 symbols and back.
	data := []byte{0xde, 0xad, 0xbe, 0xef, 0x42}
	words, err := ConvertBits(data, 8, 5, true)
	require.NoError(t, err)
	require.Len(t, words, 8)

	back, err := ConvertBits(words, 5, 8, false)
	require.NoError(t, err)
	require.Equal(t, data, back)

	// A lone 5-bit symbol can never complete a byte: with a non-zero
	// value the filler bits are non-zero, with a zero value the leftover
	// is a full source group. Both are malformed.
	_, err = ConvertBits([]byte{1}, 5, 8, false)
	require.Error(t, err)

	_, err = ConvertBits([]byte{0}, 5, 8, false)
	require.Error(t, err)

	// Non-zero filler bits after the last complete byte.
	words, err = ConvertBits([]byte{0xff}, 8, 5, true)
	require.NoError(t, err)
	require.Equal(t, []byte{31, 28}, words)

	_, err = ConvertBits([]byte{31, 31}, 5, 8, false)
	require.Error(t, err)

	// Values exceeding the source width are rejected.
	_, err = ConvertBits([]byte{32}, 5, 8, false)
	require.Error(t, err)

	_, err = ConvertBits([]byte{32}, 5, 8, true)
	require.Error(t, err)

	// Out of range group sizes.
	_, err = ConvertBits(data, 0, 5, true)
	require.Error(t, err)

	_, err = ConvertBits(data, 8, 9, true)
	require.Error(t, err)
}
