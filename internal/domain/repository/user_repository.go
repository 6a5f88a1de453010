package repository

import (
	"context"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
)

// UserRepository defines the persistence operations the account service needs.
// Find methods return (nil, nil) when no record matches. Driver failures are
// reported as apperror.KindStorage; a unique-email violation on Insert or
// Update is reported as apperror.ErrDuplicateAccount.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id int64) (*entity.User, error)
	List(ctx context.Context) ([]entity.User, error)
	Insert(ctx context.Context, u *entity.User) error
	Update(ctx context.Context, id int64, changes entity.UserChanges) (*entity.User, error)
	Delete(ctx context.Context, id int64) error
}
