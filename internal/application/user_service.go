package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-management/internal/domain/apperror"
	"github.com/oksasatya/go-user-management/internal/domain/entity"
	"github.com/oksasatya/go-user-management/internal/domain/policy"
	repo "github.com/oksasatya/go-user-management/internal/domain/repository"
	"github.com/oksasatya/go-user-management/pkg/helpers"
)

// sideEffectTimeout bounds notification and indexing calls made after a write.
const sideEffectTimeout = 3 * time.Second

// PasswordHasher turns plaintext passwords into digests and checks candidates.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) (bool, error)
}

// TokenIssuer mints session tokens for an identity.
type TokenIssuer interface {
	Issue(id entity.Identity) (string, time.Time, error)
}

// UserIndex mirrors account views into a search backend.
type UserIndex interface {
	Index(ctx context.Context, u entity.UserView) error
	Remove(ctx context.Context, id int64) error
	Search(ctx context.Context, q string, size int) ([]entity.UserView, error)
}

type Service struct {
	Repo     repo.UserRepository
	Hasher   PasswordHasher
	Tokens   TokenIssuer
	Logger   *logrus.Logger
	Notifier Notifier
	Index    UserIndex
}

// NewService wires the account service. notifier and index are optional.
func NewService(repo repo.UserRepository, hasher PasswordHasher, tokens TokenIssuer, logger *logrus.Logger, notifier Notifier, index UserIndex) *Service {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &Service{
		Repo:     repo,
		Hasher:   hasher,
		Tokens:   tokens,
		Logger:   logger,
		Notifier: notifier,
		Index:    index,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     entity.Role
}

// AuthResult is returned by sign-up and sign-in.
type AuthResult struct {
	User      entity.UserView
	Token     string
	ExpiresAt time.Time
}

// Register creates an account and signs it in. The email uniqueness check
// runs before the password is hashed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := entity.NormalizeEmail(in.Email)
	existing, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.Logger.WithField("email", email).Info("registration rejected: email already exists")
		return nil, apperror.ErrDuplicateAccount
	}

	role := in.Role
	if !role.Valid() {
		role = entity.RoleUser
	}

	digest, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	u := &entity.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Password: digest,
		Role:     role,
	}
	if err := s.Repo.Insert(ctx, u); err != nil {
		return nil, err
	}

	res, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("new user created")

	s.notify(ctx, Notification{Type: NotifyWelcome, To: u.Email, Name: u.Name})
	s.index(ctx, res.User)
	return res, nil
}

// SignIn verifies credentials and issues a fresh token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.Repo.FindByEmail(ctx, entity.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.ErrNotFound
	}

	ok, err := s.Hasher.Verify(password, u.Password)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("password verification failed")
		return nil, asHashing(err)
	}
	if !ok {
		return nil, apperror.ErrInvalidCredentials
	}

	res, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	s.Logger.WithField("user_id", u.ID).Info("user signed in")
	return res, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]entity.UserView, error) {
	users, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.UserView, 0, len(users))
	for i := range users {
		out = append(out, users[i].View())
	}
	return out, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (entity.UserView, error) {
	u, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return entity.UserView{}, err
	}
	if u == nil {
		return entity.UserView{}, apperror.ErrNotFound
	}
	return u.View(), nil
}

// UpdateUser applies changes to the account id on behalf of actor.
func (s *Service) UpdateUser(ctx context.Context, actor entity.Identity, id int64, changes entity.UserChanges) (entity.UserView, error) {
	if err := policy.AuthorizeMutation(actor, id, changes); err != nil {
		s.Logger.WithFields(logrus.Fields{"actor_id": actor.ID, "target_id": id, "reason": apperror.ReasonOf(err)}).Warn("update forbidden")
		return entity.UserView{}, err
	}

	existing, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return entity.UserView{}, err
	}
	if existing == nil {
		return entity.UserView{}, apperror.ErrNotFound
	}

	changes = normalizeChanges(changes)
	if changes.Email != nil && *changes.Email != existing.Email {
		other, err := s.Repo.FindByEmail(ctx, *changes.Email)
		if err != nil {
			return entity.UserView{}, err
		}
		if other != nil && other.ID != id {
			return entity.UserView{}, apperror.ErrDuplicateAccount
		}
	}

	updated, err := s.Repo.Update(ctx, id, changes)
	if err != nil {
		return entity.UserView{}, err
	}
	s.Logger.WithFields(logrus.Fields{"user_id": id, "actor_id": actor.ID}).Info("user updated successfully")

	view := updated.View()
	if diff := changedFields(existing, updated); len(diff) > 0 {
		s.notify(ctx, Notification{Type: NotifyProfileUpdated, To: updated.Email, Name: updated.Name, Changes: diff})
	}
	s.index(ctx, view)
	return view, nil
}

// DeleteUser removes the account id on behalf of actor.
func (s *Service) DeleteUser(ctx context.Context, actor entity.Identity, id int64) error {
	if err := policy.AuthorizeDeletion(actor, id); err != nil {
		s.Logger.WithFields(logrus.Fields{"actor_id": actor.ID, "target_id": id}).Warn("delete forbidden")
		return err
	}

	existing, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperror.ErrNotFound
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.Logger.WithFields(logrus.Fields{"user_id": id, "actor_id": actor.ID}).Info("user deleted successfully")

	s.notify(ctx, Notification{Type: NotifyAccountDeleted, To: existing.Email, Name: existing.Name})
	s.unindex(ctx, id)
	return nil
}

// SearchUsers queries the user index. Without an index it returns no hits.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]entity.UserView, error) {
	if s.Index == nil {
		return []entity.UserView{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	return s.Index.Search(ctx, strings.TrimSpace(q), size)
}

func (s *Service) hash(plain string) (string, error) {
	digest, err := s.Hasher.Hash(plain)
	if err != nil {
		s.Logger.WithError(err).Error("error hashing password")
		return "", asHashing(err)
	}
	return digest, nil
}

func (s *Service) issue(u *entity.User) (*AuthResult, error) {
	token, exp, err := s.Tokens.Issue(u.Identity())
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate token failed")
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{User: u.View(), Token: token, ExpiresAt: exp}, nil
}

func (s *Service) notify(ctx context.Context, n Notification) {
	if s.Notifier == nil {
		return
	}
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	c, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()
	if err := s.Notifier.Notify(c, n); err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"type": n.Type, "to": n.To}).Warn("notification publish failed")
	}
}

func (s *Service) index(ctx context.Context, u entity.UserView) {
	if s.Index == nil {
		return
	}
	c, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()
	if err := s.Index.Index(c, u); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("search index failed")
	}
}

func (s *Service) unindex(ctx context.Context, id int64) {
	if s.Index == nil {
		return
	}
	c, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()
	if err := s.Index.Remove(c, id); err != nil {
		s.Logger.WithError(err).WithField("user_id", id).Warn("search index removal failed")
	}
}

func asHashing(err error) error {
	if apperror.KindOf(err) == apperror.KindHashing {
		return err
	}
	return apperror.Hashing(err)
}

func normalizeChanges(c entity.UserChanges) entity.UserChanges {
	if c.Name != nil {
		name := strings.TrimSpace(*c.Name)
		c.Name = &name
	}
	if c.Email != nil {
		email := entity.NormalizeEmail(*c.Email)
		c.Email = &email
	}
	return c
}

func changedFields(before, after *entity.User) map[string]string {
	diff := map[string]string{}
	if before.Name != after.Name {
		diff["name"] = after.Name
	}
	if before.Email != after.Email {
		diff["email"] = after.Email
	}
	if before.Role != after.Role {
		diff["role"] = after.Role.String()
	}
	return diff
}
