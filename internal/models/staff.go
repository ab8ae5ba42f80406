package models

// StaffMember is the typed projection of a staff roster record. The staff
// roster is the authoritative source for user roles and class assignments;
// UserInfo is refreshed from it on every access.
type StaffMember struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone,omitempty" validate:"omitempty,numeric"`
	Role  string `json:"role,omitempty"`
	// Class is the legacy single-class assignment kept for old documents.
	Class           string   `json:"class,omitempty"`
	Campus          string   `json:"campus,omitempty"`
	AssignedClasses []string `json:"assignedClasses,omitempty"`
}

// Classes returns the class assignment, falling back to the legacy single
// Class field when the list is empty.
func (m StaffMember) Classes() []string {
	if len(m.AssignedClasses) > 0 {
		return m.AssignedClasses
	}
	if m.Class != "" {
		return []string{m.Class}
	}
	return nil
}
