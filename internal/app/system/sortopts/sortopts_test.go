package sortopts

import (
	"sort"
	"testing"
	"time"

	"github.com/dalemusser/mdregistry/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"mod_asc", ModAsc},
		{"name_desc", NameDesc},
		{"status_asc", StatusAsc},
		{"", ModDesc},
		{"bogus", ModDesc},
		{"NAME_ASC", ModDesc},
	}
	for _, tt := range tests {
		if got := Resolve(tt.key).Key; got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestOption_BSON(t *testing.T) {
	got := Resolve(NameDesc).BSON()
	want := bson.D{{Key: "name_ci", Value: -1}, {Key: "_id", Value: -1}}
	if len(got) != len(want) {
		t.Fatalf("BSON() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("BSON()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestOption_Less_UnknownMatchesModDesc(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	items := []models.MetadataItem{
		{ID: primitive.NewObjectID(), NameCI: "b", Modified: base.Add(2 * time.Hour)},
		{ID: primitive.NewObjectID(), NameCI: "a", Modified: base},
		{ID: primitive.NewObjectID(), NameCI: "c", Modified: base.Add(time.Hour)},
		{ID: primitive.NewObjectID(), NameCI: "d", Modified: base.Add(time.Hour)},
	}

	sorted := func(key string) []string {
		cp := append([]models.MetadataItem(nil), items...)
		o := Resolve(key)
		sort.Slice(cp, func(i, j int) bool { return o.Less(cp[i], cp[j]) })
		out := make([]string, len(cp))
		for i, it := range cp {
			out[i] = it.ID.Hex()
		}
		return out
	}

	explicit := sorted(ModDesc)
	unknown := sorted("not-a-key")
	for i := range explicit {
		if explicit[i] != unknown[i] {
			t.Fatalf("unknown key ordering %v differs from mod_desc %v", unknown, explicit)
		}
	}
	if explicit[0] != items[0].ID.Hex() {
		t.Errorf("newest item should come first")
	}
	// equal timestamps fall back to _id descending
	if explicit[1] != items[3].ID.Hex() || explicit[2] != items[2].ID.Hex() {
		t.Errorf("tie not broken by id descending: %v", explicit)
	}
}

func TestAll_KeysResolveToThemselves(t *testing.T) {
	for _, o := range All() {
		if got := Resolve(o.Key); got.Key != o.Key {
			t.Errorf("Resolve(%q) = %q", o.Key, got.Key)
		}
	}
}
