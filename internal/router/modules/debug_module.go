package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
	"github.com/oksasatya/go-user-management/internal/interface/middleware"
)

// DebugModule exposes expvar metrics to admins at /api/debug/vars.
type DebugModule struct {
	Auth    gin.HandlerFunc
	Limiter gin.HandlerFunc
}

func NewDebugModule(auth, limiter gin.HandlerFunc) *DebugModule {
	return &DebugModule{Auth: auth, Limiter: limiter}
}

func (m *DebugModule) Name() string { return "debug" }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	chain := []gin.HandlerFunc{m.Auth, middleware.RequireRole(entity.RoleAdmin)}
	if m.Limiter != nil {
		chain = append(chain, m.Limiter)
	}
	chain = append(chain, gin.WrapH(expvar.Handler()))
	rg.GET("/debug/vars", chain...)
}
