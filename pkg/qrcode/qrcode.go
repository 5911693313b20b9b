package qrcode

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// VerificationType is the only token type currently issued.
const VerificationType = "membership_check"

// TokenPayload is the exact wire format rendered into the QR image and
// scanned back by client devices. Field order and names must stay stable,
// the persisted JSON string is the canonical token.
type TokenPayload struct {
	MessID           uint   `json:"messId"`
	MessName         string `json:"messName"`
	VerificationType string `json:"verificationType"`
	Timestamp        int64  `json:"timestamp"`
	Signature        string `json:"signature"`
}

// Signer issues and verifies mess attestation tokens. The signature covers
// (messId, timestamp) only, membership freshness is always re-checked live by
// the caller.
type Signer struct {
	secret []byte
	size   int
}

func NewSigner(secret string, size int) *Signer {
	return &Signer{
		secret: []byte(secret),
		size:   size,
	}
}

func (s *Signer) sign(messID uint, timestamp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%d:%d", messID, timestamp)
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue builds a signed payload and its JSON encoding.
func (s *Signer) Issue(messID uint, messName string, timestamp int64) (TokenPayload, string, error) {
	payload := TokenPayload{
		MessID:           messID,
		MessName:         messName,
		VerificationType: VerificationType,
		Timestamp:        timestamp,
		Signature:        s.sign(messID, timestamp),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return TokenPayload{}, "", fmt.Errorf("failed to encode QR payload: %w", err)
	}

	return payload, string(data), nil
}

// Verify recomputes the signature from the client-supplied messId and
// timestamp and compares it in constant time. Client fields are never
// trusted on their own.
func (s *Signer) Verify(payload TokenPayload) bool {
	if payload.VerificationType != VerificationType {
		return false
	}

	expected := s.sign(payload.MessID, payload.Timestamp)
	return hmac.Equal([]byte(expected), []byte(payload.Signature))
}

// Decode parses scanned token data without validating it.
func Decode(data string) (TokenPayload, error) {
	var payload TokenPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return TokenPayload{}, fmt.Errorf("malformed QR payload: %w", err)
	}
	return payload, nil
}

// EncodePNG renders the token JSON as a PNG image.
func (s *Signer) EncodePNG(data string) ([]byte, error) {
	png, err := qrcode.Encode(data, qrcode.Medium, s.size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code PNG: %w", err)
	}
	return png, nil
}
