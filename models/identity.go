package models

// Role is the kind of account a user signed up as.
type Role string

const (
	RoleGuest        Role = "guest"
	RolePractitioner Role = "practitioner"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleGuest || r == RolePractitioner
}

// Identity is what the identity gateway yields for an authenticated request.
type Identity struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
	Email  string `json:"email"`
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token     string   `json:"token,omitempty"`
	ExpiresAt int64    `json:"expiresAt,omitempty"`
	User      Identity `json:"user"`
	Profile   *Profile `json:"profile,omitempty"`
}
