package lnurl

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// AuthPhrase is the canonical text a wallet asks its signer to sign when
// deriving auth key material from a message signature instead of a raw
// seed (LUD-13). The text must match byte for byte across wallets or the
// derived identities diverge.
const AuthPhrase = "DO NOT EVER SIGN THIS TEXT WITH YOUR PRIVATE KEYS! " +
	"IT IS ONLY USED FOR DERIVATION OF LNURL-AUTH HASHING-KEY, " +
	"DISCLOSING ITS SIGNATURE WILL COMPROMISE YOUR LNURL-AUTH " +
	"IDENTITY AND MAY LEAD TO LOSS OF FUNDS!"

// authKeyPurpose is the BIP32 purpose index reserved for lnurl-auth key
// derivation (LUD-05).
const authKeyPurpose = 138

// DeriveLinkingKeyFromSeed derives the domain scoped linking key for the
// given seed. The derivation is deterministic: the same (seed, domain)
// pair always yields the same key, and different domains yield unrelated
// keys.
func DeriveLinkingKeyFromSeed(seed, domain string) (*btcec.PrivateKey,
	error) {

	if seed == "" {
		return nil, fmt.Errorf("seed is required")
	}
	if domain == "" {
		return nil, fmt.Errorf("domain is required")
	}

	// Seeds are arbitrary strings, hashed into fixed length BIP32 seed
	// material.
	material := sha256.Sum256([]byte(seed))

	return deriveLinkingKey(material[:], domain)
}

// DeriveLinkingKeyFromSignedMessage derives the linking key for signers
// that expose message signing but not raw seed access (LUD-13). The
// signature bytes, typically over AuthPhrase, act as the seed material.
func DeriveLinkingKeyFromSignedMessage(domain string,
	signedMessage []byte) (*btcec.PrivateKey, error) {

	if len(signedMessage) == 0 {
		return nil, fmt.Errorf("signed message is required")
	}
	if domain == "" {
		return nil, fmt.Errorf("domain is required")
	}

	material := sha256.Sum256(signedMessage)

	return deriveLinkingKey(material[:], domain)
}

func deriveLinkingKey(material []byte, domain string) (*btcec.PrivateKey,
	error) {

	master, err := hdkeychain.NewMaster(material, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("unable to derive master key: %w", err)
	}

	purpose, err := master.Derive(
		hdkeychain.HardenedKeyStart + authKeyPurpose,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to derive purpose key: %w", err)
	}

	hashingChild, err := purpose.Derive(0)
	if err != nil {
		return nil, fmt.Errorf("unable to derive hashing key: %w", err)
	}

	hashingKey, err := hashingChild.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("unable to derive hashing key: %w", err)
	}

	// The remaining path is domain scoped: m/138'/c1/c2/c3/c4.
	linking := purpose
	for _, child := range linkingKeyPath(hashingKey.Serialize(), domain) {
		linking, err = linking.Derive(child)
		if err != nil {
			return nil, fmt.Errorf("unable to derive linking "+
				"key: %w", err)
		}
	}

	linkingKey, err := linking.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("unable to derive linking key: %w", err)
	}

	return linkingKey, nil
}

// linkingKeyPath computes the four domain scoped child indexes of the
// derivation path m/138'/c1/c2/c3/c4 (LUD-05): the first 16 bytes of
// HMAC-SHA256(hashingKey, domain) read as big endian integers. Indexes at
// or above 2^31 derive hardened children.
func linkingKeyPath(hashingKey []byte, domain string) [4]uint32 {
	mac := hmac.New(sha256.New, hashingKey)
	mac.Write([]byte(domain))
	sum := mac.Sum(nil)

	var path [4]uint32
	for i := range path {
		path[i] = binary.BigEndian.Uint32(sum[i*4:])
	}

	return path
}

// SignK1 signs the server challenge with the linking key and returns the
// hex encoded compressed public key and signature, ready to be sent as
// the key and sig callback parameters (LUD-04). Signing is deterministic
// (RFC 6979) over the SHA-256 digest of the raw k1 bytes, and the
// signature serializes in canonical low-S DER form. Servers that validate
// strictly reject anything else.
func SignK1(k1 string, key *btcec.PrivateKey) (string, string, error) {
	if key == nil {
		return "", "", fmt.Errorf("linking key is required")
	}

	k1Bytes, err := hex.DecodeString(k1)
	if err != nil {
		return "", "", fmt.Errorf("k1 is not valid hex: %w", err)
	}
	if len(k1Bytes) == 0 {
		return "", "", fmt.Errorf("k1 is empty")
	}

	digest := sha256.Sum256(k1Bytes)
	sig := ecdsa.Sign(key, digest[:])

	pubkey := hex.EncodeToString(key.PubKey().SerializeCompressed())

	return pubkey, hex.EncodeToString(sig.Serialize()), nil
}

// VerifySignature checks a challenge signature against a linking public
// key. It is total: malformed hex, points or signatures report false
// rather than failing.
func VerifySignature(k1, key, sig string) bool {
	k1Bytes, err := hex.DecodeString(k1)
	if err != nil || len(k1Bytes) == 0 {
		return false
	}

	keyBytes, err := hex.DecodeString(key)
	if err != nil {
		return false
	}
	pubKey, err := btcec.ParsePubKey(keyBytes)
	if err != nil {
		return false
	}

	sigBytes, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	parsedSig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}

	digest := sha256.Sum256(k1Bytes)

	return parsedSig.Verify(digest[:], pubKey)
}
