package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-management/config"
	"github.com/oksasatya/go-user-management/internal/domain/entity"
	pginfra "github.com/oksasatya/go-user-management/internal/infrastructure/postgres"
	"github.com/oksasatya/go-user-management/pkg/helpers"
)

// seed creates or promotes the bootstrap admin account.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	email := entity.NormalizeEmail(getenv("SEED_ADMIN_EMAIL", "admin@example.com"))
	name := getenv("SEED_ADMIN_NAME", "Administrator")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		logger.Fatal("SEED_ADMIN_PASSWORD must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()
	repo := pginfra.NewUserRepository(pool)

	existing, err := repo.FindByEmail(ctx, email)
	if err != nil {
		logger.WithError(err).Fatal("lookup failed")
	}
	if existing != nil {
		if existing.Role == entity.RoleAdmin {
			logger.WithField("user_id", existing.ID).Info("admin already seeded")
			return
		}
		role := entity.RoleAdmin
		if _, err := repo.Update(ctx, existing.ID, entity.UserChanges{Role: &role}); err != nil {
			logger.WithError(err).Fatal("failed to promote user")
		}
		logger.WithField("user_id", existing.ID).Info("promoted existing user to admin")
		return
	}

	digest, err := helpers.NewPasswordHasher(helpers.DefaultPasswordCost).Hash(password)
	if err != nil {
		logger.WithError(err).Fatal("failed to hash password")
	}
	u := &entity.User{Name: name, Email: email, Password: digest, Role: entity.RoleAdmin}
	if err := repo.Insert(ctx, u); err != nil {
		logger.WithError(err).Fatal("failed to seed admin")
	}
	logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("seeded admin")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
