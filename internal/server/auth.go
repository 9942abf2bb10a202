package server

import (
	"crypto/subtle"
	"strings"
)

// validateToken checks an Authorization header of the form "Bearer <token>"
func validateToken(authHeader, want string) bool {
	if want == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(want)) == 1
}
