package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oksasatya/go-user-management/internal/domain/apperror"
	"github.com/oksasatya/go-user-management/internal/domain/entity"
)

// DefaultTokenTTL is the session token lifetime when none is configured.
const DefaultTokenTTL = 15 * time.Minute

var errEmptySecret = errors.New("jwt: signing secret must not be empty")

// JWTManager issues and verifies HS256 session tokens carrying an identity.
type JWTManager struct {
	Secret []byte
	TTL    time.Duration

	now func() time.Time
}

func NewJWTManager(secret string, ttl time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, errEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTManager{Secret: []byte(secret), TTL: ttl, now: time.Now}, nil
}

// WithClock returns a copy of m that reads time from now. Used by tests.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	c := *m
	c.now = now
	return &c
}

func (m *JWTManager) clock() func() time.Time {
	if m.now == nil {
		return time.Now
	}
	return m.now
}

type Claims struct {
	UserID int64  `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a token for id that expires TTL from now.
func (m *JWTManager) Issue(id entity.Identity) (string, time.Time, error) {
	now := m.clock()()
	exp := now.Add(m.TTL)
	claims := &Claims{
		UserID: id.ID,
		Email:  id.Email,
		Role:   id.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// Verify checks signature and expiry and returns the embedded identity.
// Every failure is reported as apperror.ErrInvalidToken.
func (m *JWTManager) Verify(tokenStr string) (entity.Identity, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.clock()),
	)
	if err != nil || !tkn.Valid {
		return entity.Identity{}, apperror.ErrInvalidToken
	}
	role, ok := entity.ParseRole(claims.Role)
	if !ok || claims.UserID <= 0 {
		return entity.Identity{}, apperror.ErrInvalidToken
	}
	return entity.Identity{ID: claims.UserID, Email: claims.Email, Role: role}, nil
}
