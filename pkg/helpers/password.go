package helpers

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-user-management/internal/domain/apperror"
)

// DefaultPasswordCost is the bcrypt work factor used for stored digests.
const DefaultPasswordCost = bcrypt.DefaultCost

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	Cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultPasswordCost
	}
	return &PasswordHasher{Cost: cost}
}

// Hash returns a salted bcrypt digest of plain. Two calls with the same input
// yield different digests.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", apperror.Hashing(err)
	}
	return string(b), nil
}

// Verify compares plain against digest in constant time. A mismatch is
// (false, nil); a digest bcrypt cannot read is a hashing error, not a mismatch.
func (h *PasswordHasher) Verify(plain, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, apperror.Hashing(err)
	}
}
