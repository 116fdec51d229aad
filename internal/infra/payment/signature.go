package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingSignature = errors.New("missing webhook signature or timestamp")
	ErrBadTimestamp     = errors.New("malformed webhook timestamp")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside replay window")
)

// millisThreshold separates unix seconds from unix milliseconds.
const millisThreshold = 1_000_000_000_000

// Sign returns base64(HMAC-SHA256(secret, timestamp || body)).
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against the raw body exactly as received.
func Verify(secret, timestamp string, body []byte, signature string) bool {
	if secret == "" || timestamp == "" || signature == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// ParseTimestamp reads unix seconds, or unix milliseconds for values of 10^12 and above.
func ParseTimestamp(raw string) (time.Time, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, ErrBadTimestamp
	}
	if n >= millisThreshold {
		return time.UnixMilli(n).UTC(), nil
	}
	return time.Unix(n, 0).UTC(), nil
}

// CheckFreshness rejects timestamps further than window from now in either direction.
func CheckFreshness(raw string, now time.Time, window time.Duration) error {
	ts, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	skew := now.Sub(ts)
	if skew < 0 {
		skew = -skew
	}
	if skew > window {
		return ErrStaleTimestamp
	}
	return nil
}
