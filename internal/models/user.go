package models

// UserInfo identifies the acting user. It is a projection of the staff
// roster, not a source of truth: stale role or class-assignment fields are
// silently overwritten from the roster on every access.
type UserInfo struct {
	ID              string   `json:"id" validate:"required"`
	Phone           string   `json:"phone" validate:"required,numeric"`
	Name            string   `json:"name"`
	Role            string   `json:"role"`
	Campus          string   `json:"campus,omitempty"`
	AssignedClasses []string `json:"assignedClasses,omitempty"`
}
