package lnurl

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// testPreimage plays the payment preimage, the only party-shared 32 bytes
// an aes success action is keyed with.
func testPreimage(t *testing.T) []byte {
	t.Helper()
	preimage := sha256.Sum256([]byte("payment preimage"))
	return preimage[:]
}

// TestAESRoundTrip tests encryption and decryption across plaintext sizes,
// including multi byte utf-8, which must pad on bytes rather than
// characters.
func TestAESRoundTrip(t *testing.T) {
	key := testPreimage(t)

	tests := []string{
		"x",
		"short",
		"dni was here",
		"exactly sixteen.",
		"lightning icons: ⚡⚡",
		strings.Repeat("A", 4096),
	}

	for _, plaintext := range tests {
		ciphertext, iv, err := AESEncrypt(key, plaintext)
		require.NoError(t, err)

		// The wire form is standard base64, one block of IV.
		ivBytes, err := base64.StdEncoding.DecodeString(iv)
		require.NoError(t, err)
		require.Len(t, ivBytes, 16)
		require.Len(t, iv, 24)

		ctBytes, err := base64.StdEncoding.DecodeString(ciphertext)
		require.NoError(t, err)
		require.Zero(t, len(ctBytes)%16)

		decrypted, err := AESDecrypt(key, ciphertext, iv)
		require.NoError(t, err)
		require.Equal(t, plaintext, decrypted)
	}
}

// TestAESDecryptTampered tests that a wrong key or modified message never
// quietly decrypts to the original plaintext. CBC with PKCS#7 cannot
// promise an error, a lucky garble can carry valid padding, so the
// assertion is on the recovered text.
func TestAESDecryptTampered(t *testing.T) {
	key := testPreimage(t)
	const plaintext = "dni was here"

	ciphertext, iv, err := AESEncrypt(key, plaintext)
	require.NoError(t, err)

	wrongKey := sha256.Sum256([]byte("not the preimage"))
	decrypted, err := AESDecrypt(wrongKey[:], ciphertext, iv)
	if err == nil {
		require.NotEqual(t, plaintext, decrypted)
	}

	// Flip one ciphertext byte.
	ctBytes, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err)
	ctBytes[0] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(ctBytes)

	decrypted, err = AESDecrypt(key, tampered, iv)
	if err == nil {
		require.NotEqual(t, plaintext, decrypted)
	}

	// Flip one IV byte: the first plaintext block garbles.
	ivBytes, err := base64.StdEncoding.DecodeString(iv)
	require.NoError(t, err)
	ivBytes[0] ^= 0xff
	tamperedIV := base64.StdEncoding.EncodeToString(ivBytes)

	decrypted, err = AESDecrypt(key, ciphertext, tamperedIV)
	if err == nil {
		require.NotEqual(t, plaintext, decrypted)
	}
}

// TestAESKeySize tests that anything but a 32 byte key is refused on both
// sides.
func TestAESKeySize(t *testing.T) {
	key := testPreimage(t)

	ciphertext, iv, err := AESEncrypt(key, "secret")
	require.NoError(t, err)

	for _, size := range []int{0, 16, 31, 33, 64} {
		short := make([]byte, size)

		_, _, err := AESEncrypt(short, "secret")
		require.Error(t, err, size)

		_, err = AESDecrypt(short, ciphertext, iv)
		require.Error(t, err, size)
	}

	// And there is nothing sensible an empty plaintext encrypts to.
	_, _, err = AESEncrypt(key, "")
	require.Error(t, err)
}

// TestAESDecryptMalformed tests rejection of wire data that cannot even be
// fed to the cipher.
func TestAESDecryptMalformed(t *testing.T) {
	key := testPreimage(t)

	ciphertext, iv, err := AESEncrypt(key, "secret")
	require.NoError(t, err)

	tests := []struct {
		name       string
		ciphertext string
		iv         string
	}{
		{"iv not base64", ciphertext, strings.Repeat("!", 24)},
		{
			"iv wrong length",
			ciphertext,
			base64.StdEncoding.EncodeToString(make([]byte, 8)),
		},
		{"ciphertext not base64", "!!!!", iv},
		{"ciphertext empty", "", iv},
		{
			"ciphertext off the block grid",
			base64.StdEncoding.EncodeToString(make([]byte, 10)),
			iv,
		},
	}

	for _, test := range tests {
		_, err := AESDecrypt(key, test.ciphertext, test.iv)
		require.Error(t, err, test.name)
	}
}

// TestSuccessActionDecipher tests deciphering an aes success action with
// the payment preimage (LUD-10).
func TestSuccessActionDecipher(t *testing.T) {
	preimage := testPreimage(t)

	ciphertext, iv, err := AESEncrypt(preimage, "1234-ABCD-5678")
	require.NoError(t, err)

	action := &SuccessAction{
		Tag:         SuccessActionAES,
		Description: "your redeem code",
		Ciphertext:  ciphertext,
		IV:          iv,
	}
	require.NoError(t, action.validate())

	secret, err := action.Decipher(preimage)
	require.NoError(t, err)
	require.Equal(t, "1234-ABCD-5678", secret)

	// Only the aes variant carries a payload.
	message := &SuccessAction{Tag: SuccessActionMessage, Message: "thanks"}
	_, err = message.Decipher(preimage)
	require.Error(t, err)
}
