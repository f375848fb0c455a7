package auth

import (
	"crypto/sha1" //nolint:gosec // the WSSE UsernameToken profile mandates SHA-1
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"omni-reports/internal/domain"
)

// Token is a parsed X-WSSE UsernameToken.
type Token struct {
	Username       string
	PasswordDigest string
	Nonce          string // base64 encoded, as sent
	Created        string
}

// ParseToken parses an X-WSSE header value.
func ParseToken(header string) (Token, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(header), "UsernameToken ")
	if !ok {
		return Token{}, domain.ErrValidation("wsse: missing UsernameToken prefix")
	}

	fields := make(map[string]string, 4)
	for _, part := range strings.Split(rest, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return Token{}, domain.ErrValidation("wsse: malformed field %q", part)
		}
		fields[key] = strings.Trim(val, `"`)
	}

	t := Token{
		Username:       fields["Username"],
		PasswordDigest: fields["PasswordDigest"],
		Nonce:          fields["Nonce"],
		Created:        fields["Created"],
	}
	if t.Username == "" || t.PasswordDigest == "" || t.Nonce == "" || t.Created == "" {
		return Token{}, domain.ErrValidation("wsse: token is missing fields")
	}
	return t, nil
}

// Verify reports whether the token's digest was computed with secret.
func (t Token) Verify(secret string) bool {
	nonce, err := base64.StdEncoding.DecodeString(t.Nonce)
	if err != nil {
		return false
	}
	sum := sha1.Sum([]byte(string(nonce) + t.Created + secret)) //nolint:gosec
	want := base64.StdEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(want), []byte(t.PasswordDigest)) == 1
}
