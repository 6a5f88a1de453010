package application

import (
	"strings"

	"github.com/oksasatya/go-user-management/internal/domain/apperror"
	"github.com/oksasatya/go-user-management/internal/domain/entity"
)

const (
	MsgTokenRequired = "Authentication token is required"
	MsgTokenInvalid  = "Invalid or expired token"
)

// TokenVerifier checks a session token and returns the identity it asserts.
type TokenVerifier interface {
	Verify(token string) (entity.Identity, error)
}

// Authenticate turns the bearer credential of a request into an Identity.
// A missing token and a token that fails verification are both
// unauthorized; the cause of a verification failure is not exposed.
func Authenticate(v TokenVerifier, token string) (entity.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return entity.Identity{}, apperror.Unauthorized(MsgTokenRequired)
	}
	id, err := v.Verify(token)
	if err != nil {
		return entity.Identity{}, &apperror.Error{Kind: apperror.KindUnauthorized, Message: MsgTokenInvalid, Err: err}
	}
	return id, nil
}
