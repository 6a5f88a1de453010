package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-user-management/internal/interface/http"
)

// AuthModule mounts the public credential routes:
// POST /api/auth/sign-up, /api/auth/sign-in, /api/auth/sign-out
type AuthModule struct {
	Handler *handlers.AuthHandler
	Limiter gin.HandlerFunc // per-IP limiter for credential endpoints
}

func NewAuthModule(h *handlers.AuthHandler, limiter gin.HandlerFunc) *AuthModule {
	return &AuthModule{Handler: h, Limiter: limiter}
}

func (m *AuthModule) Name() string { return "auth" }

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	if m.Limiter != nil {
		auth.Use(m.Limiter)
	}
	auth.POST("/sign-up", m.Handler.SignUp)
	auth.POST("/sign-in", m.Handler.SignIn)
	auth.POST("/sign-out", m.Handler.SignOut)
}
