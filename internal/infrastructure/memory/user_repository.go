// Package memory is an in-process UserRepository. It backs STORE_DRIVER=memory
// for local runs without Postgres and is the store used by the HTTP tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oksasatya/go-user-management/internal/domain/apperror"
	"github.com/oksasatya/go-user-management/internal/domain/entity"
	"github.com/oksasatya/go-user-management/internal/domain/repository"
)

type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]entity.User
	now    func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{byID: map[int64]entity.User{}, now: time.Now}
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) FindByID(_ context.Context, id int64) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepository) List(_ context.Context) ([]entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UserRepository) Insert(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(u.Email, 0) {
		return apperror.ErrDuplicateAccount
	}
	r.nextID++
	now := r.now().UTC()
	u.ID = r.nextID
	u.CreatedAt = now
	u.UpdatedAt = now
	r.byID[u.ID] = *u
	return nil
}

func (r *UserRepository) Update(_ context.Context, id int64, changes entity.UserChanges) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	if changes.Email != nil && r.emailTaken(*changes.Email, id) {
		return nil, apperror.ErrDuplicateAccount
	}
	changes.Apply(&u)
	u.UpdatedAt = r.now().UTC()
	r.byID[id] = u
	out := u
	return &out, nil
}

func (r *UserRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return apperror.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *UserRepository) emailTaken(email string, except int64) bool {
	for id, u := range r.byID {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

var _ repository.UserRepository = (*UserRepository)(nil)
