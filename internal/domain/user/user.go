// Package user defines the minimal User record backing the auth capability
// surface (see internal/domain/tenant for the scope rationale).
package user

import (
	"regexp"
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/domain/domainerr"
)

type Role string

const (
	RoleAdmin       Role = "admin"
	RolePathologist Role = "pathologist"
	RoleReviewer    Role = "reviewer"
	RoleTechnician  Role = "technician"
)

// ladder orders roles from least to most privileged for "reviewer-or-higher"
// style authorization checks.
var ladder = map[Role]int{
	RoleTechnician:  0,
	RoleReviewer:    1,
	RolePathologist: 2,
	RoleAdmin:       3,
}

// AtLeast reports whether r carries at least the privilege of min.
func (r Role) AtLeast(min Role) bool {
	return ladder[r] >= ladder[min]
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User is a tenant-scoped account record.
type User struct {
	ID             string    `json:"id" db:"id"`
	TenantID       string    `json:"tenant_id" db:"tenant_id"`
	Email          string    `json:"email" db:"email"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	Role           Role      `json:"role" db:"role"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

func (u *User) Validate() error {
	if !emailPattern.MatchString(u.Email) {
		return domainerr.New("email is invalid")
	}
	switch u.Role {
	case RoleAdmin, RolePathologist, RoleReviewer, RoleTechnician:
	default:
		return domainerr.New("role must be one of admin, pathologist, reviewer, technician")
	}
	return nil
}
