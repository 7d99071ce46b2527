// Package signature provides helper functions for handling the blockchain
// hashing and signature needs.
package signature

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash is the previous hash recorded by the genesis block.
const ZeroHash = "0"

// ErrInvalidSignature is returned when a signature can't be produced or
// does not match the data and key.
var ErrInvalidSignature = errors.New("invalid signature")

// =============================================================================

// Canonical returns the compact JSON encoding of the value. Struct fields
// are written in declaration order, so every hashed payload declares its
// fields in ascending order of their JSON names.
func Canonical(value any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}

	// The encoder always terminates the document with a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Hash returns the lowercase hex encoded sha256 of the canonical encoding
// of the value.
func Hash(value any) (string, error) {
	data, err := Canonical(value)
	if err != nil {
		return "", err
	}

	return HashBytes(data), nil
}

// HashBytes returns the lowercase hex encoded sha256 of the data.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Sign produces a 65 byte [R|S|V] secp256k1 signature over the sha256
// digest of the fingerprint.
func Sign(fingerprint string, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	if privateKey == nil {
		return nil, ErrInvalidSignature
	}

	digest := sha256.Sum256([]byte(fingerprint))

	sig, err := crypto.Sign(digest[:], privateKey)
	if err != nil {
		return nil, err
	}

	// Check the signature can be verified before handing it out.
	if !Verify(fingerprint, sig, &privateKey.PublicKey) {
		return nil, ErrInvalidSignature
	}

	return sig, nil
}

// Verify reports whether the signature was produced over the fingerprint by
// the private key matching the public key. Malformed keys or signatures
// report false.
func Verify(fingerprint string, sig []byte, publicKey *ecdsa.PublicKey) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	if publicKey == nil || publicKey.X == nil || publicKey.Y == nil {
		return false
	}

	if len(sig) != crypto.SignatureLength {
		return false
	}

	digest := sha256.Sum256([]byte(fingerprint))
	pub := crypto.FromECDSAPub(publicKey)

	// VerifySignature wants the 64 byte [R|S] form without the recovery id.
	return crypto.VerifySignature(pub, digest[:], sig[:crypto.RecoveryIDOffset])
}

// FromAddress recovers the address of the account that signed the
// fingerprint.
func FromAddress(fingerprint string, sig []byte) (string, error) {
	if len(sig) != crypto.SignatureLength {
		return "", ErrInvalidSignature
	}

	digest := sha256.Sum256([]byte(fingerprint))

	publicKey, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return "", err
	}

	return crypto.PubkeyToAddress(*publicKey).String(), nil
}
