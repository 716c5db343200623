package accounts

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleOrdinary is the default role assigned at activation.
	RoleOrdinary UserRole = "ordinary"
	// RoleAdmin grants administrative operations.
	RoleAdmin UserRole = "admin"
)

// IsValidRole checks the role against the predefined set.
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleOrdinary, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

// User is the user model. Records are created only by account activation and
// mutated by password resets and profile updates; this package never deletes
// them.
type User struct {
	bun.BaseModel     `bun:"table:users,alias:usr"`
	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role              UserRole   `bun:"user_role,notnull" json:"role,omitempty"`
	Name              string     `bun:"name,notnull" json:"name,omitempty"`
	Username          string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email             string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash      string     `bun:"password_hash,notnull" json:"-"`
	ResetPasswordLink string     `bun:"reset_password_link,nullzero" json:"-"`
	ProfileURL        string     `bun:"profile_url" json:"profile_url,omitempty"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt         *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Public returns the outward projection of the user. The password hash and
// reset link never serialize through this path.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID.String(),
		Username:   u.Username,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		ProfileURL: u.ProfileURL,
	}
}

// PublicUser is the minimal user projection returned to clients.
type PublicUser struct {
	ID         string   `json:"id"`
	Username   string   `json:"username"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Role       UserRole `json:"role"`
	ProfileURL string   `json:"profile_url,omitempty"`
}

// Blog is the ownership target consumed by the authorization guard chain.
// CRUD beyond the ownership check lives with the host application.
type Blog struct {
	bun.BaseModel `bun:"table:blogs,alias:blg"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title         string     `bun:"title,notnull" json:"title,omitempty"`
	Slug          string     `bun:"slug,notnull,unique" json:"slug,omitempty"`
	Body          string     `bun:"body" json:"body,omitempty"`
	PostedBy      uuid.UUID  `bun:"posted_by,notnull,type:uuid" json:"posted_by,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// OwnerID satisfies OwnedResource for the ownership guard.
func (b *Blog) OwnerID() uuid.UUID { return b.PostedBy }

// ProfileURL derives the public profile location for a username.
func ProfileURL(clientURL, username string) string {
	base := strings.TrimRight(clientURL, "/")
	return base + "/profile/" + url.PathEscape(strings.ToLower(username))
}

// NormalizeEmail lowers and trims an email so lookups and uniqueness behave
// case-insensitively end to end.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func usernameFromEmail(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
