package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	webhookIDHeader        = "webhook-id"
	webhookTimestampHeader = "webhook-timestamp"
	webhookSignatureHeader = "webhook-signature"

	webhookSecretPrefix = "whsec_"
	maxWebhookBody      = 1 << 20
	webhookTolerance    = 5 * time.Minute
)

var (
	errMissingSignature = errors.New("missing signature headers")
	errStaleTimestamp   = errors.New("timestamp outside tolerance")
	errBadSignature     = errors.New("invalid signature")
)

// WebhookSignature verifies provider callbacks signed with HMAC-SHA256 over
// "{id}.{timestamp}.{body}". An empty secret disables verification.
func WebhookSignature(secret string, now func() time.Time) func(http.Handler) http.Handler {
	key := webhookKey(secret)
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		if len(key) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
			if err != nil {
				http.Error(w, "invalid body", http.StatusBadRequest)
				return
			}
			if err := VerifyWebhookSignature(key, r.Header, body, now()); err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// VerifyWebhookSignature checks every "v1,<sig>" entry of the signature
// header against the expected digest.
func VerifyWebhookSignature(key []byte, h http.Header, body []byte, now time.Time) error {
	id := h.Get(webhookIDHeader)
	ts := h.Get(webhookTimestampHeader)
	sigs := h.Get(webhookSignatureHeader)
	if id == "" || ts == "" || sigs == "" {
		return errMissingSignature
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return errStaleTimestamp
	}
	sent := time.Unix(unix, 0)
	if now.Sub(sent) > webhookTolerance || sent.Sub(now) > webhookTolerance {
		return errStaleTimestamp
	}

	expected := SignWebhook(key, id, ts, body)
	for _, candidate := range strings.Fields(sigs) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return errBadSignature
}

// SignWebhook returns the base64 signature for a callback.
func SignWebhook(key []byte, id, ts string, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id + "." + ts + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookKey(secret string) []byte {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	if raw, ok := strings.CutPrefix(secret, webhookSecretPrefix); ok {
		if key, err := base64.StdEncoding.DecodeString(raw); err == nil {
			return key
		}
	}
	return []byte(secret)
}
