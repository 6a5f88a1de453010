// Package apperror holds the error kinds the account domain distinguishes.
// Callers branch on Kind (or errors.Is against the sentinels), never on the
// message text, which is meant for the client-visible boundary only.
package apperror

import "errors"

type Kind int

const (
	KindInternal Kind = iota
	KindHashing
	KindInvalidToken
	KindUnauthorized
	KindForbidden
	KindDuplicateAccount
	KindNotFound
	KindInvalidCredentials
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindHashing:
		return "hashing"
	case KindInvalidToken:
		return "invalid_token"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindDuplicateAccount:
		return "duplicate_account"
	case KindNotFound:
		return "not_found"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindStorage:
		return "storage"
	default:
		return "internal"
	}
}

// Reason narrows a forbidden decision.
type Reason string

const (
	ReasonOwnership  Reason = "ownership"
	ReasonRoleChange Reason = "role_change"
)

type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind. A target carrying a Reason only
// matches errors with that reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

var (
	ErrInvalidToken       = &Error{Kind: KindInvalidToken, Message: "invalid or expired token"}
	ErrDuplicateAccount   = &Error{Kind: KindDuplicateAccount, Message: "Email already exists"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "User not found"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "Invalid email or password"}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized, Message: "Unauthorized"}
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "Forbidden"}
	ErrHashing            = &Error{Kind: KindHashing, Message: "Error hashing password"}
	ErrStorage            = &Error{Kind: KindStorage, Message: "storage failure"}
)

func Unauthorized(message string) error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(reason Reason, message string) error {
	return &Error{Kind: KindForbidden, Reason: reason, Message: message}
}

// Hashing wraps a failure of the underlying hash primitive.
func Hashing(err error) error {
	return &Error{Kind: KindHashing, Message: ErrHashing.Message, Err: err}
}

// Storage wraps a persistence failure. A nil err stays nil.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindStorage, Message: ErrStorage.Message, Err: err}
}

// KindOf classifies err. Anything that is not an *Error is KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// ReasonOf returns the forbidden reason carried by err, if any.
func ReasonOf(err error) Reason {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}

// MessageOf returns the client-facing message for err. Internal failures
// never leak their text.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		switch ae.Kind {
		case KindInternal, KindHashing, KindStorage:
			return "Internal server error"
		}
		return ae.Message
	}
	return "Internal server error"
}
