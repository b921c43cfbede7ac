package model

import "time"

// User roles.
const (
	RoleBuyer  = "buyer"
	RoleVendor = "vendor"
)

// ValidRole reports whether role is one of the accepted user roles.
func ValidRole(role string) bool {
	return role == RoleBuyer || role == RoleVendor
}

// User represents a marketplace account. The ID comes from the external
// identity provider and is never generated here; records are created and
// refreshed only by the auth sync flow.
type User struct {
	ID        string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	Email     string    `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Role      string    `json:"role" gorm:"type:varchar(20)"`
	Name      string    `json:"name" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
