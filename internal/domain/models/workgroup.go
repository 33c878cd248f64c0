// internal/domain/models/workgroup.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Workgroup is a named collaboration group that owns metadata items.
//
// NOTE:
//   - Membership is not embedded; roles live in the workgroup_memberships
//     collection, one document per (workgroup, user, role).
//   - Archived workgroups are read-mostly: no new item association and no
//     member-role changes until unarchived.
//   - Version is incremented by every write to the document. Role mutations
//     bump it inside their transaction so that a concurrent archive toggle and a
//     membership change conflict instead of interleaving.
type Workgroup struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"`
	Definition   string             `bson:"definition" json:"definition"`
	DefinitionCI string             `bson:"definition_ci" json:"-"`
	Archived     bool               `bson:"archived" json:"archived"`
	Version      int64              `bson:"version" json:"-"`

	CreatedBy primitive.ObjectID `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
