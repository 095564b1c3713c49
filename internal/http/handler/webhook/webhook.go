// Package webhook receives tracker webhooks, verifies their signatures, and
// translates them into normalized issue-labeled events. Handlers acknowledge
// with 200 even when downstream processing fails: trackers disable endpoints
// that error repeatedly, and failures are recovered through logs and the DLQ,
// not through redelivery storms.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// validSignature reports whether sig is the hex HMAC-SHA256 of payload under
// secret. Comparison is constant-time.
func validSignature(payload []byte, secret, sig string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
