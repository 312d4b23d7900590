package thirdweb

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

// Replay-attack bounds on the webhook timestamp.
const (
	maxWebhookAge   = 5 * time.Minute
	futureTolerance = 30 * time.Second
)

var (
	errMissingSignature = errors.New("missing signature")
	errMissingTimestamp = errors.New("missing timestamp")
	errInvalidTimestamp = errors.New("invalid timestamp")
	errExpiredWebhook   = errors.New("webhook expired")
	errBadSignature     = errors.New("invalid signature")
)

// verifySignature authenticates a delivery: HMAC-SHA256 over
// "{timestamp}.{raw body}" with the shared secret, compared in constant time,
// after bounding the timestamp's age and future skew.
func verifySignature(secret, signature, timestamp string, body []byte, now time.Time) error {
	if signature == "" {
		return errMissingSignature
	}
	if timestamp == "" {
		return errMissingTimestamp
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errInvalidTimestamp
	}
	sent := time.Unix(ts, 0)
	if now.Sub(sent) > maxWebhookAge {
		return errExpiredWebhook
	}
	if sent.Sub(now) > futureTolerance {
		return errInvalidTimestamp
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errBadSignature
	}
	return nil
}
