package lnurl

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// AESEncrypt encrypts the plaintext with AES-256-CBC and PKCS#7 padding,
// returning the base64 encoded ciphertext and IV in the form an aes
// success action carries them (LUD-10). The key is the 32 byte payment
// preimage, so only the payer of the invoice can read the payload.
func AESEncrypt(key []byte, plaintext string) (string, string, error) {
	if len(key) != 32 {
		return "", "", fmt.Errorf("key must be 32 bytes, got %d",
			len(key))
	}
	if plaintext == "" {
		return "", "", fmt.Errorf("nothing to encrypt")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", "", err
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(ciphertext),
		base64.StdEncoding.EncodeToString(iv), nil
}

// AESDecrypt reverses AESEncrypt.
func AESDecrypt(key []byte, ciphertext, iv string) (string, error) {
	if len(key) != 32 {
		return "", fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}

	ivBytes, err := base64.StdEncoding.DecodeString(iv)
	if err != nil {
		return "", fmt.Errorf("iv is not valid base64: %w", err)
	}
	if len(ivBytes) != aes.BlockSize {
		return "", fmt.Errorf("iv must be %d bytes, got %d",
			aes.BlockSize, len(ivBytes))
	}

	ctBytes, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("ciphertext is not valid base64: %w",
			err)
	}
	if len(ctBytes) == 0 || len(ctBytes)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a "+
			"multiple of the block size", len(ctBytes))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	plaintext := make([]byte, len(ctBytes))
	cipher.NewCBCDecrypter(block, ivBytes).CryptBlocks(plaintext, ctBytes)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", err
	}

	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize

	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}

	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}

	return data[:len(data)-n], nil
}
