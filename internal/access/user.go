package access

import (
	"context"
	"slices"

	"github.com/jinxingedu/kindersync/internal/common"
	"github.com/jinxingedu/kindersync/internal/logging"
	"github.com/jinxingedu/kindersync/internal/models"
	"github.com/jinxingedu/kindersync/internal/storage"
	"github.com/jinxingedu/kindersync/internal/syncer"
)

// KeyCurrentUser is the reserved local key holding the acting user.
const KeyCurrentUser = "kt_current_user"

// Resolver answers "who is the acting user". The cached user object is a
// projection of the staff roster: every read re-checks the roster by phone
// number and silently overwrites drifted role or class-assignment fields, so
// an admin-issued reassignment lands without forcing a logout.
type Resolver struct {
	store storage.Store
	log   logging.Logger
}

func NewResolver(store storage.Store, log logging.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

// CurrentUser returns the acting user, refreshed from the roster. A failed
// roster lookup is not an error: the stale cached user comes back unchanged
// and the client keeps working offline.
func (r *Resolver) CurrentUser(ctx context.Context) (models.UserInfo, error) {
	var user models.UserInfo
	ok, err := storage.GetJSON(ctx, r.store, KeyCurrentUser, &user)
	if err != nil {
		return models.UserInfo{}, err
	}
	if !ok {
		return models.UserInfo{}, common.ErrorNotLoggedIn
	}

	member, found := r.lookupStaff(ctx, user.Phone)
	if !found {
		return user, nil
	}

	refreshed := user
	refreshed.Name = member.Name
	refreshed.Role = member.Role
	refreshed.Campus = member.Campus
	refreshed.AssignedClasses = member.Classes()

	if refreshed.Name == user.Name &&
		refreshed.Role == user.Role &&
		refreshed.Campus == user.Campus &&
		slices.Equal(refreshed.AssignedClasses, user.AssignedClasses) {
		return user, nil
	}

	r.log.Info(ctx, "user refreshed from staff roster", "phone", user.Phone, "role", refreshed.Role)
	if err := storage.SetJSON(ctx, r.store, KeyCurrentUser, refreshed); err != nil {
		r.log.Warn(ctx, "failed to persist refreshed user", "error", err)
		return user, nil
	}
	return refreshed, nil
}

// SetCurrentUser validates and persists the acting user, typically right
// after login.
func (r *Resolver) SetCurrentUser(ctx context.Context, user models.UserInfo) error {
	if err := models.Validate(user); err != nil {
		return err
	}
	return storage.SetJSON(ctx, r.store, KeyCurrentUser, user)
}

// ClearCurrentUser logs the user out locally.
func (r *Resolver) ClearCurrentUser(ctx context.Context) error {
	return r.store.Delete(ctx, KeyCurrentUser)
}

func (r *Resolver) lookupStaff(ctx context.Context, phone string) (models.StaffMember, bool) {
	if phone == "" {
		return models.StaffMember{}, false
	}

	var roster []models.Record
	ok, err := storage.GetJSON(ctx, r.store, syncer.KeyStaff, &roster)
	if err != nil || !ok {
		return models.StaffMember{}, false
	}

	for _, rec := range roster {
		if rec.Phone() != phone {
			continue
		}
		var member models.StaffMember
		if err := models.As(rec, &member); err != nil {
			r.log.Warn(ctx, "staff record undecodable", "phone", phone, "error", err)
			return models.StaffMember{}, false
		}
		return member, true
	}
	return models.StaffMember{}, false
}
