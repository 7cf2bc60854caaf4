package imapx

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/emersion/go-sasl"
)

// AuthError is a failed login or SASL exchange. Status mirrors the HTTP-style
// status some servers embed in their OAUTHBEARER failure response.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("authentication failed (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// TokenRefreshRequired reports whether obtaining a fresh access token could
// fix the failure.
func (e *AuthError) TokenRefreshRequired() bool {
	return e.Status == 400
}

// asAuthError converts a login failure, pulling the status out of an
// OAUTHBEARER error response when present.
func asAuthError(err error) *AuthError {
	var bearerErr *sasl.OAuthBearerError
	if errors.As(err, &bearerErr) {
		status, _ := strconv.Atoi(bearerErr.Status)
		return &AuthError{Status: status, Message: bearerErr.Error()}
	}
	return &AuthError{Message: err.Error()}
}
