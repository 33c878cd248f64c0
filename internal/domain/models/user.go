// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Registry-wide capabilities. These are not workgroup roles: they are held
// by the user account itself and checked without consulting memberships.
const (
	CapAddWorkgroup  = "add_workgroup"
	CapRegistryAdmin = "registry_admin"
)

// Account statuses. Disabled users are treated as signed out.
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// User is an account known to the registry. Accounts are owned by the
// authentication subsystem; the registry reads them for display names and
// registry-wide capabilities.
//
// NOTE:
//   - Workgroup membership is not embedded on User.
//     Use the workgroup_memberships collection to discover a user's roles.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName     string             `bson:"full_name" json:"full_name"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`
	Capabilities []string           `bson:"capabilities,omitempty" json:"capabilities,omitempty"`
	Status       string             `bson:"status,omitempty" json:"status,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasCapability reports whether the user holds the named capability.
// Registry administrators implicitly hold every capability.
func (u User) HasCapability(c string) bool {
	for _, have := range u.Capabilities {
		if have == c || have == CapRegistryAdmin {
			return true
		}
	}
	return false
}

// IsRegistryAdmin reports whether the user administers the whole registry.
func (u User) IsRegistryAdmin() bool {
	return u.HasCapability(CapRegistryAdmin)
}
