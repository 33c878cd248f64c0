// internal/domain/models/metadataitem.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MetadataItem is a catalogued definition (data element, object class, value
// domain, ...). All subtypes share one collection; Type tells them apart and
// every listing includes all of them.
type MetadataItem struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UUID        string              `bson:"uuid" json:"uuid"`
	Type        string              `bson:"type" json:"type"`
	Name        string              `bson:"name" json:"name"`
	NameCI      string              `bson:"name_ci" json:"-"`
	Definition  string              `bson:"definition,omitempty" json:"definition,omitempty"`
	Status      string              `bson:"status" json:"status"`
	WorkgroupID *primitive.ObjectID `bson:"workgroup_id,omitempty" json:"workgroup_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	Modified  time.Time `bson:"modified" json:"modified"`
}

// StatusCount is the number of items in a workgroup with a given status.
type StatusCount struct {
	Status string `bson:"_id" json:"status"`
	Count  int64  `bson:"n" json:"count"`
}
