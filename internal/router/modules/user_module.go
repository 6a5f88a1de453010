package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-user-management/internal/interface/http"
)

// UserModule mounts the authenticated account routes under /api/users and
// the directory search under /api/search/users.
type UserModule struct {
	Handler *handlers.UserHandler
	Auth    gin.HandlerFunc
	Limiter gin.HandlerFunc // role-tiered, runs after Auth
}

func NewUserModule(h *handlers.UserHandler, auth, limiter gin.HandlerFunc) *UserModule {
	return &UserModule{Handler: h, Auth: auth, Limiter: limiter}
}

func (m *UserModule) Name() string { return "user" }

func (m *UserModule) Register(rg *gin.RouterGroup) {
	chain := []gin.HandlerFunc{m.Auth}
	if m.Limiter != nil {
		chain = append(chain, m.Limiter)
	}

	users := rg.Group("/users", chain...)
	{
		users.GET("", m.Handler.List)
		users.GET("/:id", m.Handler.Get)
		users.PUT("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Delete)
	}

	rg.Group("/search", chain...).GET("/users", m.Handler.Search)
}
