// Package tenant defines the minimal Tenant record backing the auth
// capability surface; this shape exists only to make the module runnable
// end to end.
package tenant

import (
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/domain/domainerr"
)

// Tenant is an isolated laboratory customer.
type Tenant struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (t *Tenant) Validate() error {
	if t.Name == "" {
		return domainerr.New("name is required")
	}
	return nil
}
