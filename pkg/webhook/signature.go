package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderID        = "X-Webhook-ID"
)

// Signature is the set of signing headers of one request.
type Signature struct {
	Value     string
	Timestamp int64
	ID        string
}

func (s Signature) apply(h http.Header) {
	h.Set(HeaderSignature, s.Value)
	h.Set(HeaderTimestamp, strconv.FormatInt(s.Timestamp, 10))
	h.Set(HeaderID, s.ID)
}

// Sign signs body at time at.
func Sign(secret string, body []byte, at time.Time) (Signature, error) {
	if secret == "" {
		return Signature{}, ErrMissingSecret
	}
	ts := at.Unix()
	return Signature{Value: mac(secret, ts, body), Timestamp: ts, ID: uuid.NewString()}, nil
}

// Verify checks the signing headers of a received request. Signatures older
// than maxAge are rejected; zero disables the age check.
func Verify(secret string, body []byte, h http.Header, maxAge time.Duration) error {
	if secret == "" {
		return ErrMissingSecret
	}
	value, rawTS := h.Get(HeaderSignature), h.Get(HeaderTimestamp)
	if value == "" || rawTS == "" {
		return ErrMissingSignature
	}
	ts, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	if maxAge > 0 && time.Since(time.Unix(ts, 0)) > maxAge {
		return ErrSignatureExpired
	}
	if !hmac.Equal([]byte(value), []byte(mac(secret, ts, body))) {
		return ErrInvalidSignature
	}
	return nil
}

func mac(secret string, ts int64, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.", ts)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
