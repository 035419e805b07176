// Package convkey derives the canonical identifier of a two-party conversation.
package convkey

import (
	"strings"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
)

const separator = "_"

// Derive returns min(a,b) + "_" + max(a,b). The result does not depend on
// argument order.
func Derive(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", domain.ErrMissingParticipant
	}
	if b < a {
		a, b = b, a
	}
	return a + separator + b, nil
}

// Participants splits a key produced by Derive for two ids that do not contain
// the separator themselves.
func Participants(key string) (string, string, bool) {
	a, b, ok := strings.Cut(key, separator)
	if !ok || a == "" || b == "" || strings.Contains(b, separator) {
		return "", "", false
	}
	return a, b, true
}

// Includes reports whether userID is one of the two participants of key.
func Includes(key, userID string) bool {
	a, b, ok := Participants(key)
	return ok && (a == userID || b == userID)
}
