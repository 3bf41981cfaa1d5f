package nexhealth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HeaderSignature carries the hex-encoded HMAC-SHA256 of the raw body.
const HeaderSignature = "X-Nexhealth-Signature"

// SignatureHexLength is the length of a hex-encoded SHA-256 MAC.
const SignatureHexLength = sha256.Size * 2

// Sign returns the lowercase hex HMAC-SHA256 of payload under secret.
func Sign(payload, secret []byte) string {
	return hex.EncodeToString(computeMAC(payload, secret))
}

// Verify reports whether signature is the HMAC-SHA256 of payload under secret.
//
// The signature is hex-decoded and compared with hmac.Equal, which runs in
// constant time for equal-length inputs and returns false straight away on
// a length mismatch. Malformed hex is a mismatch, never a panic.
func Verify(payload []byte, signature string, secret []byte) bool {
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(computeMAC(payload, secret), provided)
}

// IsWellFormedSignature reports whether sig looks like a hex SHA-256 MAC.
// It says nothing about whether the signature is valid.
func IsWellFormedSignature(sig string) bool {
	if len(sig) != SignatureHexLength {
		return false
	}
	for i := 0; i < len(sig); i++ {
		c := sig[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func computeMAC(payload, secret []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	return h.Sum(nil)
}

// Verifier checks signatures against one shared secret.
// It is immutable and safe for concurrent use.
type Verifier struct {
	secret []byte
}

// NewVerifier copies secret into a new Verifier.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify reports whether signature matches payload.
func (v *Verifier) Verify(payload []byte, signature string) bool {
	return Verify(payload, signature, v.secret)
}

// Sign signs payload with the verifier's secret.
func (v *Verifier) Sign(payload []byte) string {
	return Sign(payload, v.secret)
}
