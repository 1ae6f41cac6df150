package models

import "time"

// Identity is the remembered investigator contact block.
type Identity struct {
	Scope     string    `db:"scope" json:"-"`
	Name      string    `db:"name" json:"name"`
	Badge     string    `db:"badge" json:"badge"`
	Phone     string    `db:"phone" json:"phone"`
	Email     string    `db:"email" json:"email"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IdentityFromFieldSet extracts the contact block from captured fields.
func IdentityFromFieldSet(scope string, fs FieldSet) Identity {
	return Identity{
		Scope: scope,
		Name:  fs.Get(FieldRequestingName),
		Badge: fs.Get(FieldBadge),
		Phone: fs.Get(FieldRequestingPhone),
		Email: fs.Get(FieldRequestingEmail),
	}
}

// Empty reports whether nothing worth remembering was captured.
func (i Identity) Empty() bool {
	return i.Name == "" && i.Badge == "" && i.Phone == "" && i.Email == ""
}
