package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-user-management/internal/application"
	"github.com/oksasatya/go-user-management/internal/domain/apperror"
	"github.com/oksasatya/go-user-management/internal/domain/entity"
	"github.com/oksasatya/go-user-management/pkg/response"
)

const (
	ctxIdentityKey = "identity"

	MsgAuthRequired  = "Authentication required"
	MsgAdminRequired = "Admin access required"
)

// TokenSource pulls the session token out of a request. *helpers.Manager
// reads it from the cookie.
type TokenSource interface {
	Token(c *gin.Context) string
}

// Auth verifies the session token and stores the resulting Identity in the
// gin context. Requests without a valid token stop here with 401.
func Auth(verifier application.TokenVerifier, tokens TokenSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := application.Authenticate(verifier, tokens.Token(c))
		if err != nil {
			abort(c, http.StatusUnauthorized, apperror.MessageOf(err))
			return
		}
		c.Set(ctxIdentityKey, id)
		c.Next()
	}
}

// IdentityFrom returns the Identity stored by Auth.
func IdentityFrom(c *gin.Context) (entity.Identity, bool) {
	v, ok := c.Get(ctxIdentityKey)
	if !ok {
		return entity.Identity{}, false
	}
	id, ok := v.(entity.Identity)
	return id, ok
}

// RequireRole lets through only identities holding role. It must run after Auth.
func RequireRole(role entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, MsgAuthRequired)
			return
		}
		if id.Role != role {
			msg := MsgAdminRequired
			if role != entity.RoleAdmin {
				msg = "Role " + role.String() + " required"
			}
			abort(c, http.StatusForbidden, msg)
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, msg string) {
	response.Abort(c, status, msg, http.StatusText(status))
}
