// internal/domain/models/membership.go
package models

import (
	"time"

	"github.com/dalemusser/mdregistry/internal/domain/roles"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership is the authoritative join between users and workgroups.
// Exactly one document per (workgroup_id, user_id, role); a user holding
// several roles has several documents.
type Membership struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkgroupID primitive.ObjectID `bson:"workgroup_id" json:"workgroup_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role        roles.Role         `bson:"role" json:"role"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// MemberRoles is one row of a workgroup's member listing.
type MemberRoles struct {
	User  User      `json:"user"`
	Roles roles.Set `json:"-"`
}
