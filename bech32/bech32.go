// Package bech32 implements the bech32 checksummed base32 format described
// in BIP-173. LNURL payloads are plain bech32 (checksum constant 1, never
// bech32m) but routinely exceed the 90 character bound of the generic
// address format, so a no-limit decode variant is provided alongside the
// standard one.
package bech32

import (
	"fmt"
	"strings"
)

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

var gen = []int{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}

// Decode decodes a bech32 encoded string, returning the human-readable part
// and the data part excluding the checksum. Strings longer than 90
// characters are rejected; use DecodeNoLimit for LNURL-sized payloads.
func Decode(bech string) (string, []byte, error) {
	if len(bech) > 90 {
		return "", nil, fmt.Errorf("invalid bech32 string length %d: "+
			"max 90", len(bech))
	}
	return DecodeNoLimit(bech)
}

// DecodeNoLimit decodes a bech32 encoded string of any length, returning
// the human-readable part and the data part excluding the checksum.
func DecodeNoLimit(bech string) (string, []byte, error) {
	if len(bech) < 8 {
		return "", nil, fmt.Errorf("invalid bech32 string length %d: "+
			"min 8", len(bech))
	}

	// Only ASCII characters between 33 and 126 are allowed.
	for i := 0; i < len(bech); i++ {
		if bech[i] < 33 || bech[i] > 126 {
			return "", nil, fmt.Errorf("invalid character in "+
				"string: '%c'", bech[i])
		}
	}

	// The string is invalid if the case is mixed.
	lower := strings.ToLower(bech)
	upper := strings.ToUpper(bech)
	if bech != lower && bech != upper {
		return "", nil, fmt.Errorf("string not all lowercase or all " +
			"uppercase")
	}

	// Work with the lowercase string from now on.
	bech = lower

	// The string must contain the separator character '1', with the
	// human-readable part before it and at least 6 checksum characters
	// after it.
	one := strings.LastIndexByte(bech, '1')
	if one < 1 || one+7 > len(bech) {
		return "", nil, fmt.Errorf("invalid index of 1")
	}

	hrp := bech[:one]
	data := bech[one+1:]

	// Each character corresponds to a 5-bit group from the charset.
	decoded, err := toBytes(data)
	if err != nil {
		return "", nil, fmt.Errorf("failed converting data to bytes: "+
			"%w", err)
	}

	if !verifyChecksum(hrp, decoded) {
		moreInfo := ""
		checksum := bech[len(bech)-6:]
		expected, err := toChars(createChecksum(hrp,
			decoded[:len(decoded)-6]))
		if err == nil {
			moreInfo = fmt.Sprintf("expected %v, got %v",
				expected, checksum)
		}
		return "", nil, fmt.Errorf("checksum failed. %s", moreInfo)
	}

	// The last 6 symbols are the checksum.
	return hrp, decoded[:len(decoded)-6], nil
}

// Encode encodes the given data as a bech32 string using the given
// human-readable part. The data must consist of 5-bit groups, as produced
// by ConvertBits. The output is lower case.
func Encode(hrp string, data []byte) (string, error) {
	if len(hrp) < 1 {
		return "", fmt.Errorf("human-readable part must not be empty")
	}
	for i := 0; i < len(hrp); i++ {
		if hrp[i] < 33 || hrp[i] > 126 {
			return "", fmt.Errorf("invalid character in "+
				"human-readable part: '%c'", hrp[i])
		}
	}
	if hrp != strings.ToLower(hrp) {
		return "", fmt.Errorf("human-readable part must be lowercase")
	}

	// The checksum is calculated over the whole string and appended to
	// the data before character mapping.
	combined := append(append([]byte{}, data...),
		createChecksum(hrp, data)...)

	dataChars, err := toChars(combined)
	if err != nil {
		return "", fmt.Errorf("unable to convert data bytes to "+
			"chars: %w", err)
	}

	return hrp + "1" + dataChars, nil
}

// ConvertBits converts a byte slice where each byte encodes fromBits bits,
// to a byte slice where each byte encodes toBits bits. When pad is true any
// leftover bits are zero-padded into a final group; when pad is false
// leftover bits must be zero filler shorter than fromBits, otherwise the
// input is malformed.
func ConvertBits(data []byte, fromBits, toBits uint8, pad bool) ([]byte,
	error) {

	if fromBits < 1 || fromBits > 8 || toBits < 1 || toBits > 8 {
		return nil, fmt.Errorf("only bit groups between 1 and 8 " +
			"allowed")
	}

	var (
		regrouped []byte
		acc       uint32
		bits      uint8
	)
	maxv := byte(1<<toBits - 1)

	for _, b := range data {
		if b>>fromBits != 0 {
			return nil, fmt.Errorf("invalid data range: %d "+
				"exceeds %d bits", b, fromBits)
		}

		acc = acc<<fromBits | uint32(b)
		bits += fromBits

		for bits >= toBits {
			bits -= toBits
			regrouped = append(regrouped, byte(acc>>bits)&maxv)
		}
	}

	if pad {
		if bits > 0 {
			regrouped = append(regrouped,
				byte(acc<<(toBits-bits))&maxv)
		}
	} else if bits >= fromBits || byte(acc<<(toBits-bits))&maxv != 0 {
		return nil, fmt.Errorf("invalid incomplete group")
	}

	return regrouped, nil
}

// polymod is the checksum polynomial defined in BIP-173, operating over
// GF(32).
func polymod(values []byte) int {
	chk := 1
	for _, v := range values {
		b := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ int(v)
		for i := 0; i < 5; i++ {
			if (b>>uint(i))&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

// expandHrp expands the human-readable part into its high and low nibble
// sequences separated by a zero, as required by the checksum computation.
func expandHrp(hrp string) []byte {
	v := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		v = append(v, hrp[i]>>5)
	}
	v = append(v, 0)
	for i := 0; i < len(hrp); i++ {
		v = append(v, hrp[i]&31)
	}
	return v
}

func verifyChecksum(hrp string, data []byte) bool {
	return polymod(append(expandHrp(hrp), data...)) == 1
}

func createChecksum(hrp string, data []byte) []byte {
	values := append(expandHrp(hrp), data...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	mod := polymod(values) ^ 1

	checksum := make([]byte, 6)
	for i := 0; i < 6; i++ {
		checksum[i] = byte(mod>>uint(5*(5-i))) & 31
	}
	return checksum
}

// toBytes converts each character in the string to the 5-bit value it
// represents in the charset.
func toBytes(chars string) ([]byte, error) {
	decoded := make([]byte, 0, len(chars))
	for i := 0; i < len(chars); i++ {
		index := strings.IndexByte(charset, chars[i])
		if index < 0 {
			return nil, fmt.Errorf("invalid character not part "+
				"of charset: %v", chars[i])
		}
		decoded = append(decoded, byte(index))
	}
	return decoded, nil
}

// toChars converts the byte slice 'data' to a string where each byte in
// 'data' encodes the index of a character in the charset.
func toChars(data []byte) (string, error) {
	result := make([]byte, 0, len(data))
	for _, b := range data {
		if int(b) >= len(charset) {
			return "", fmt.Errorf("invalid data byte: %v", b)
		}
		result = append(result, charset[b])
	}
	return string(result), nil
}
