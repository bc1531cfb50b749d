package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// SecureCompare performs constant-time string comparison to prevent timing attacks.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// MatchAPIKey reports whether key equals one of the allowed keys. Every key is
// compared so the time taken does not depend on which one matched.
func MatchAPIKey(key string, allowed []string) bool {
	matched := false
	for _, candidate := range allowed {
		if SecureCompare(key, candidate) {
			matched = true
		}
	}
	return matched
}

// MaskKey returns the first 8 characters of key followed by an ellipsis.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return key + "..."
	}
	return key[:8] + "..."
}

// ComputeHMACSHA256 computes HMAC-SHA256 of message and returns it hex-encoded.
// Used to derive rate-limit bucket names without storing raw credentials.
func ComputeHMACSHA256(secretKey, message string) string {
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}
