// Package auth signs reporting API requests.
package auth

import (
	"context"
	"crypto/sha1" //nolint:gosec // the WSSE UsernameToken profile mandates SHA-1
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"omni-reports/internal/domain"
)

// HeaderName is the header carrying the WSSE token.
const HeaderName = "X-WSSE"

var _ domain.Signer = (*WSSE)(nil)

// WSSE signs requests with a UsernameToken: a fresh nonce, a creation
// timestamp and base64(sha1(nonce + created + secret)).
type WSSE struct {
	Username string
	Secret   string

	// Now and Nonce are overridden in tests.
	Now   func() time.Time
	Nonce func() string
}

// NewWSSE returns a signer for the given API username and shared secret.
func NewWSSE(username, secret string) *WSSE {
	return &WSSE{Username: username, Secret: secret}
}

// Sign returns the X-WSSE header for one request.
func (w *WSSE) Sign(_ context.Context) (http.Header, error) {
	if w.Username == "" || w.Secret == "" {
		return nil, domain.ErrValidation("wsse: username and secret are required")
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	nonce := uuid.NewString()
	if w.Nonce != nil {
		nonce = w.Nonce()
	}

	created := now().UTC().Format("2006-01-02T15:04:05Z")
	sum := sha1.Sum([]byte(nonce + created + w.Secret)) //nolint:gosec

	token := formatToken([][2]string{
		{"Username", w.Username},
		{"PasswordDigest", base64.StdEncoding.EncodeToString(sum[:])},
		{"Nonce", base64.StdEncoding.EncodeToString([]byte(nonce))},
		{"Created", created},
	})

	h := http.Header{}
	h.Set(HeaderName, token)
	return h, nil
}

func formatToken(props [][2]string) string {
	parts := make([]string, len(props))
	for i, p := range props {
		parts[i] = fmt.Sprintf("%s=%q", p[0], p[1])
	}
	return "UsernameToken " + strings.Join(parts, ", ")
}
