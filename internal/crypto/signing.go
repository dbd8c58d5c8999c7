// Package crypto implements the signed-request scheme shared by the server,
// the client SDK and the signing tools.
package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/eldtechnologies/ledgerchat/internal/address"
)

// Request headers carrying a signature.
const (
	HeaderSigner    = "X-Ledger-Signer"
	HeaderNonce     = "X-Ledger-Nonce"
	HeaderTimestamp = "X-Ledger-Timestamp"
	HeaderSignature = "X-Ledger-Signature"
)

// MinNonceLen is the shortest nonce a server accepts.
const MinNonceLen = 24

var (
	ErrInvalidPublicKey  = errors.New("invalid Ed25519 public key")
	ErrInvalidPrivateKey = errors.New("invalid Ed25519 private key")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrSignatureExpired  = errors.New("signature timestamp expired")
	ErrInvalidNonce      = errors.New("invalid or reused nonce")
)

// ParseIdentity decodes a base58 Ed25519 public key. Identities share the
// address text form.
func ParseIdentity(s string) (address.Address, ed25519.PublicKey, error) {
	id, err := address.Parse(s)
	if err != nil {
		return address.Zero, nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return id, ed25519.PublicKey(id.Bytes()), nil
}

// Identity returns the address form of a public key.
func Identity(pub ed25519.PublicKey) (address.Address, error) {
	id, err := address.FromBytes(pub)
	if err != nil {
		return address.Zero, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return id, nil
}

// ParsePrivateKey decodes a base64 Ed25519 seed or full private key.
func ParsePrivateKey(b64 string) (ed25519.PrivateKey, error) {
	decoded, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 encoding", ErrInvalidPrivateKey)
	}
	switch len(decoded) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(decoded), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(decoded), nil
	}
	return nil, fmt.Errorf("%w: must be %d or %d bytes, got %d",
		ErrInvalidPrivateKey, ed25519.SeedSize, ed25519.PrivateKeySize, len(decoded))
}

// EncodeSeed returns the base64 seed of a private key, the form
// ParsePrivateKey reads back.
func EncodeSeed(priv ed25519.PrivateKey) string {
	return base64.StdEncoding.EncodeToString(priv.Seed())
}

// VerifySignature verifies a signed message.
func VerifySignature(pubkey ed25519.PublicKey, signedData []byte, signatureB64 string) error {
	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("%w: invalid base64 encoding", ErrInvalidSignature)
	}

	if !ed25519.Verify(pubkey, signedData, signature) {
		return ErrInvalidSignature
	}

	return nil
}

// SignaturePayload creates the canonical data to sign.
// Format: sha256hex(body)|nonce|timestamp
func SignaturePayload(body []byte, nonce string, timestamp int64) []byte {
	return []byte(fmt.Sprintf("%s|%s|%d", BodyHash(body), nonce, timestamp))
}

// BodyHash is the hex SHA-256 of a request body.
func BodyHash(body []byte) string {
	hash := sha256.Sum256(body)
	return hex.EncodeToString(hash[:])
}

// Sign returns the base64 signature of a request body.
func Sign(priv ed25519.PrivateKey, body []byte, nonce string, timestamp int64) string {
	sig := ed25519.Sign(priv, SignaturePayload(body, nonce, timestamp))
	return base64.StdEncoding.EncodeToString(sig)
}
