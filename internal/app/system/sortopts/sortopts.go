// internal/app/system/sortopts/sortopts.go
package sortopts

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/dalemusser/mdregistry/internal/domain/models"
)

// Sort keys accepted by the item listing.
const (
	ModAsc     = "mod_asc"
	ModDesc    = "mod_desc"
	NameAsc    = "name_asc"
	NameDesc   = "name_desc"
	StatusAsc  = "status_asc"
	StatusDesc = "status_desc"
)

// Default is used whenever the requested key is missing or unknown.
const Default = ModDesc

// Option describes one sort order over metadata items.
type Option struct {
	Key   string
	Label string
	Field string // bson field
	Desc  bool
}

var options = []Option{
	{Key: ModAsc, Label: "Modified (oldest first)", Field: "modified"},
	{Key: ModDesc, Label: "Modified (newest first)", Field: "modified", Desc: true},
	{Key: NameAsc, Label: "Name (A-Z)", Field: "name_ci"},
	{Key: NameDesc, Label: "Name (Z-A)", Field: "name_ci", Desc: true},
	{Key: StatusAsc, Label: "Status (A-Z)", Field: "status"},
	{Key: StatusDesc, Label: "Status (Z-A)", Field: "status", Desc: true},
}

var byKey = func() map[string]Option {
	m := make(map[string]Option, len(options))
	for _, o := range options {
		m[o.Key] = o
	}
	return m
}()

// All returns every sort option in display order.
func All() []Option {
	out := make([]Option, len(options))
	copy(out, options)
	return out
}

// Resolve returns the option for key, falling back to Default.
func Resolve(key string) Option {
	if o, ok := byKey[key]; ok {
		return o
	}
	return byKey[Default]
}

func (o Option) dir() int {
	if o.Desc {
		return -1
	}
	return 1
}

// BSON returns the Mongo sort document. _id breaks ties in the same
// direction so paging is deterministic.
func (o Option) BSON() bson.D {
	return bson.D{
		{Key: o.Field, Value: o.dir()},
		{Key: "_id", Value: o.dir()},
	}
}

// Less orders two items the same way BSON orders them in Mongo.
func (o Option) Less(a, b models.MetadataItem) bool {
	c := o.compare(a, b)
	if c == 0 {
		c = strings.Compare(a.ID.Hex(), b.ID.Hex())
	}
	if o.Desc {
		return c > 0
	}
	return c < 0
}

func (o Option) compare(a, b models.MetadataItem) int {
	switch o.Field {
	case "modified":
		switch {
		case a.Modified.Before(b.Modified):
			return -1
		case a.Modified.After(b.Modified):
			return 1
		}
		return 0
	case "name_ci":
		return strings.Compare(a.NameCI, b.NameCI)
	case "status":
		return strings.Compare(a.Status, b.Status)
	}
	return 0
}
