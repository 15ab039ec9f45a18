// Package identity canonicalizes participant-supplied email addresses into
// the key used for registration uniqueness.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidIdentity is returned when the input does not look like an email
// address after normalization.
var ErrInvalidIdentity = errors.New("invalid identity")

// maxLength is the RFC 5321 limit on an email address.
const maxLength = 254

// Normalize trims surrounding whitespace and lowercases the input, then
// checks it against a minimal email shape: a non-empty local part, an "@",
// and a domain containing at least one dot. It returns the canonical key or
// ErrInvalidIdentity.
func Normalize(raw string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidIdentity)
	}
	if len(key) > maxLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidIdentity, maxLength)
	}
	for _, r := range key {
		if r < 0x20 || r == 0x7f {
			return "", fmt.Errorf("%w: contains control characters", ErrInvalidIdentity)
		}
		if r == ' ' {
			return "", fmt.Errorf("%w: contains spaces", ErrInvalidIdentity)
		}
	}
	at := strings.Index(key, "@")
	if at <= 0 || at != strings.LastIndex(key, "@") {
		return "", fmt.Errorf("%w: missing or repeated @", ErrInvalidIdentity)
	}
	domain := key[at+1:]
	if domain == "" || !strings.Contains(domain, ".") {
		return "", fmt.Errorf("%w: domain must contain a dot", ErrInvalidIdentity)
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", fmt.Errorf("%w: domain cannot start or end with a dot", ErrInvalidIdentity)
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: consecutive dots", ErrInvalidIdentity)
	}
	return key, nil
}

// HashForLog returns a short SHA-256 prefix of the key, safe to log without
// exposing the address itself.
func HashForLog(key string) string {
	if key == "" {
		return "NONE"
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:8]
}
