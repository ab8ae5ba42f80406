package models

// Student is the typed projection of a roster record.
//
// LegacyClass preserves the historical "className" field so documents written
// by older clients survive a round trip; readers should use ClassName().
type Student struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Class       string `json:"class,omitempty"`
	LegacyClass string `json:"className,omitempty"`
	Campus      string `json:"campus,omitempty"`
	Allergies   string `json:"allergies,omitempty"`
	Guardian    string `json:"guardian,omitempty"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,numeric"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// ClassName resolves the class field, checking the legacy alias.
func (s Student) ClassName() string {
	if s.Class != "" {
		return s.Class
	}
	return s.LegacyClass
}
