package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-management/config"
	"github.com/oksasatya/go-user-management/internal/application"
	"github.com/oksasatya/go-user-management/internal/container"
	"github.com/oksasatya/go-user-management/internal/domain/repository"
	"github.com/oksasatya/go-user-management/internal/infrastructure/queue"
	"github.com/oksasatya/go-user-management/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-user-management/internal/interface/http"
	"github.com/oksasatya/go-user-management/internal/interface/middleware"
	"github.com/oksasatya/go-user-management/internal/router/modules"
	"github.com/oksasatya/go-user-management/pkg/helpers"
	mailtpl "github.com/oksasatya/go-user-management/pkg/mailer/templates"
	"github.com/oksasatya/go-user-management/pkg/validation"
)

// debugVarsPerMinute bounds scraping of /api/debug/vars per IP.
const debugVarsPerMinute = 120

// Deps is everything the HTTP layer needs. Notifier, Index and Redis are
// optional.
type Deps struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Repo     repository.UserRepository
	Hasher   application.PasswordHasher
	Tokens   *helpers.JWTManager
	Cookies  *helpers.Manager
	Redis    *redis.Client
	Notifier application.Notifier
	Index    application.UserIndex
}

// DepsFromContainer collects the singletons set up by cmd/main.go.
func DepsFromContainer() Deps {
	cfg := container.GetConfig()
	d := Deps{
		Config:  cfg,
		Logger:  container.GetLogger(),
		Repo:    container.GetUserRepo(),
		Hasher:  container.GetHasher(),
		Tokens:  container.GetJWT(),
		Cookies: container.GetCookies(),
		Redis:   container.GetRedis(),
	}
	if pub := container.GetRabbitPub(); pub != nil {
		d.Notifier = queue.NewEmailNotifier(pub, mailtpl.Brand{
			AppName:     cfg.AppName,
			CompanyName: cfg.CompanyName,
			SupportURL:  cfg.SupportURL,
		})
	}
	if es := container.GetES(); es != nil {
		d.Index = search.NewUserIndex(es, cfg.ESUsersIndex)
	}
	return d
}

// New builds the gin engine with global middleware, health routes and all
// API modules.
func New(d Deps) *gin.Engine {
	cfg := d.Config
	validation.Init()

	engine := gin.New()
	_ = engine.SetTrustedProxies(nil)
	engine.Use(gin.Recovery(), middleware.RequestID(), middleware.RealIP(cfg.TrustProxyHeaders))
	if cfg.HTTPLogEnabled {
		engine.Use(helpers.AccessLog(d.Logger))
	}
	if origins := cfg.CORSOrigins(); len(origins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	health := handlers.NewHealthHandler(cfg.AppName)
	engine.GET("/health", health.Health)

	reg := NewRegistry(engine, d.Logger)
	reg.API.GET("", health.Banner)
	InitModules(reg, d)
	reg.RegisterAll()
	return engine
}

// InitModules builds the account service and registers every module.
func InitModules(r *Registry, d Deps) {
	cfg := d.Config
	svc := application.NewService(d.Repo, d.Hasher, d.Tokens, d.Logger, d.Notifier, d.Index)
	auth := middleware.Auth(d.Tokens, d.Cookies)

	var authLimiter, roleLimiter, debugLimiter gin.HandlerFunc
	if cfg.RateLimitEnabled && d.Redis != nil {
		authLimiter = middleware.RateLimit(d.Redis, cfg.RateLimitAuthPerIP, cfg.RateLimitWindow, middleware.KeyByIPAndPath(), nil)
		roleLimiter = middleware.RoleRateLimit(d.Redis, middleware.Tiers{
			Guest: cfg.RateLimitGuest,
			User:  cfg.RateLimitUser,
			Admin: cfg.RateLimitAdmin,
		}, cfg.RateLimitWindow, nil)
		debugLimiter = middleware.RateLimit(d.Redis, debugVarsPerMinute, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	}

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(svc, d.Cookies, d.Logger), authLimiter))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(svc, d.Logger), auth, roleLimiter))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(auth, debugLimiter))
	}
}
