// Package access is the only authorization boundary in the system. Every
// collection is fully present on the device; what a user sees is decided
// here, at render time, from their role and class assignments.
package access

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jinxingedu/kindersync/internal/common"
	"github.com/jinxingedu/kindersync/internal/models"
	"github.com/jinxingedu/kindersync/internal/storage"
	"github.com/jinxingedu/kindersync/internal/syncer"
)

// Role names. Roles arrived as free text historically, so the admin set
// includes the Chinese job titles alongside the canonical constants.
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleAdmin      = "ADMIN"
	RoleKitchen    = "KITCHEN"
	RoleTeacher    = "TEACHER"
	RoleParent     = "PARENT"
	RoleGuard      = "GUARD"
)

var adminRoles = map[string]struct{}{
	RoleSuperAdmin: {},
	RoleAdmin:      {},
	"园长":           {},
	"副园长":          {},
}

// AllClasses is the full class list, in display order.
var AllClasses = []string{
	"小一班", "小二班", "小三班",
	"中一班", "中二班", "中三班",
	"大一班", "大二班", "大三班",
	"学前班",
}

// IsAdmin reports whether role grants unrestricted access. Roles arrived as
// free text, so matching ignores case.
func IsAdmin(role string) bool {
	_, ok := adminRoles[strings.ToUpper(role)]
	return ok
}

func isKitchen(role string) bool {
	return strings.ToUpper(role) == RoleKitchen
}

// AccessibleClasses returns the classes whose records the user may view.
func AccessibleClasses(user models.UserInfo) []string {
	if IsAdmin(user.Role) || isKitchen(user.Role) {
		return slices.Clone(AllClasses)
	}
	return slices.Clone(user.AssignedClasses)
}

// CanAccessClass reports whether the user may view records of one class.
func CanAccessClass(user models.UserInfo, class string) bool {
	return slices.Contains(AccessibleClasses(user), class)
}

// CanEditClass reports whether the user may modify records of one class.
// Kitchen staff read everything for meal prep but edit nothing.
func CanEditClass(user models.UserInfo, class string) bool {
	if IsAdmin(user.Role) {
		return true
	}
	if isKitchen(user.Role) {
		return false
	}
	return slices.Contains(user.AssignedClasses, class)
}

// FilterResult is the visible slice of a collection for one user.
type FilterResult struct {
	Records []models.Record
	CanEdit bool
	// Hint is a user-facing explanation when Records is empty by policy.
	Hint string
}

// FilterStudents computes the subset of a student-like collection the user
// may see. An account with no class assignment sees nothing, not everything:
// there is no server-side check behind this filter, so it fails closed.
func FilterStudents(recs []models.Record, user models.UserInfo) FilterResult {
	if IsAdmin(user.Role) {
		return FilterResult{Records: recs, CanEdit: true}
	}
	if isKitchen(user.Role) {
		return FilterResult{Records: recs, CanEdit: false}
	}

	if len(user.AssignedClasses) == 0 {
		return FilterResult{Hint: PermissionHint(user)}
	}

	visible := make([]models.Record, 0, len(recs))
	for _, r := range recs {
		if slices.Contains(user.AssignedClasses, r.Class()) {
			visible = append(visible, r)
		}
	}
	return FilterResult{Records: visible, CanEdit: true}
}

// PermissionHint explains an empty filter result.
func PermissionHint(user models.UserInfo) string {
	if len(user.AssignedClasses) == 0 && !IsAdmin(user.Role) && !isKitchen(user.Role) {
		return fmt.Sprintf("账号 %s 未分配班级，请联系园长在教职工管理中分配", user.Name)
	}
	return ""
}

// AssignClasses rewrites a staff member's class assignment in the roster and
// mirrors it into the user directory. Only administrators may call it; the
// change takes effect for the member's other sessions on their next roster
// refresh, without a logout.
func AssignClasses(ctx context.Context, store storage.Store, actor models.UserInfo, staffID string, classes []string) error {
	if !IsAdmin(actor.Role) {
		return common.ErrorNoPermission
	}
	for _, c := range classes {
		if !slices.Contains(AllClasses, c) {
			return fmt.Errorf("unknown class %q", c)
		}
	}

	var staff []models.Record
	ok, err := storage.GetJSON(ctx, store, syncer.KeyStaff, &staff)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorUserNotFound
	}

	found := false
	for _, r := range staff {
		if r.ID() == staffID {
			r["assignedClasses"] = classes
			delete(r, "class")
			found = true
			break
		}
	}
	if !found {
		return common.ErrorUserNotFound
	}
	if err := storage.SetJSON(ctx, store, syncer.KeyStaff, staff); err != nil {
		return err
	}

	// best-effort mirror into the user directory; the roster stays the
	// source of truth either way
	var users []models.Record
	if ok, err := storage.GetJSON(ctx, store, syncer.KeyAllUsers, &users); err == nil && ok {
		for _, r := range users {
			if r.ID() == staffID {
				r["assignedClasses"] = classes
				_ = storage.SetJSON(ctx, store, syncer.KeyAllUsers, users)
				break
			}
		}
	}
	return nil
}
