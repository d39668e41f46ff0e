package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

var ErrMalformedToken = errors.New("malformed token")

func NewShareToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Unsubscribe tokens are a reversible encoding of the email address, not a
// signed credential.
func EncodeUnsubscribeToken(email string) string {
	return base64.URLEncoding.EncodeToString([]byte(email))
}

func DecodeUnsubscribeToken(token string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrMalformedToken
	}
	email := string(raw)
	if !strings.Contains(email, "@") {
		return "", ErrMalformedToken
	}
	return email, nil
}
