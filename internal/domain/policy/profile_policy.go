// Package policy decides whether an authenticated identity may act on an
// account. Decisions are pure: no I/O, no side effects.
package policy

import (
	"github.com/oksasatya/go-user-management/internal/domain/apperror"
	"github.com/oksasatya/go-user-management/internal/domain/entity"
)

const (
	MsgOwnership  = "Forbidden: you may only act on your own profile"
	MsgRoleChange = "Forbidden: only admins can change roles"
)

// AuthorizeMutation returns nil when id may apply changes to the account
// targetID. Ownership is checked first, then the role-change restriction.
func AuthorizeMutation(id entity.Identity, targetID int64, changes entity.UserChanges) error {
	if err := authorizeOwnerOrAdmin(id, targetID); err != nil {
		return err
	}
	if changes.HasRoleChange() && !id.IsAdmin() {
		return apperror.Forbidden(apperror.ReasonRoleChange, MsgRoleChange)
	}
	return nil
}

// AuthorizeDeletion returns nil when id may delete the account targetID.
func AuthorizeDeletion(id entity.Identity, targetID int64) error {
	return authorizeOwnerOrAdmin(id, targetID)
}

func authorizeOwnerOrAdmin(id entity.Identity, targetID int64) error {
	if id.ID == targetID || id.IsAdmin() {
		return nil
	}
	return apperror.Forbidden(apperror.ReasonOwnership, MsgOwnership)
}
