package roles_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dalemusser/mdregistry/internal/domain/roles"
	"pgregory.net/rapid"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    roles.Role
		wantErr bool
	}{
		{name: "lowercase", in: "viewer", want: roles.Viewer},
		{name: "label case", in: "Steward", want: roles.Steward},
		{name: "padded upper", in: "  MANAGER ", want: roles.Manager},
		{name: "submitter", in: "submitter", want: roles.Submitter},
		{name: "empty", in: "", wantErr: true},
		{name: "unknown", in: "owner", wantErr: true},
		{name: "registry admin is not a workgroup role", in: "registry_administrator", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := roles.Parse(tt.in)
			if tt.wantErr {
				if !errors.Is(err, roles.ErrInvalidRole) {
					t.Fatalf("Parse(%q) error = %v, want ErrInvalidRole", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseAll_DropsUnknown(t *testing.T) {
	set, rejected := roles.ParseAll([]string{"viewer", "bogus", "Steward", "viewer"})
	if got := set.Roles(); !reflect.DeepEqual(got, []roles.Role{roles.Viewer, roles.Steward}) {
		t.Errorf("roles = %v", got)
	}
	if !reflect.DeepEqual(rejected, []string{"bogus"}) {
		t.Errorf("rejected = %v", rejected)
	}
}

func TestSet_CanonicalOrder(t *testing.T) {
	s := roles.NewSet(roles.Manager, roles.Viewer, roles.Steward)
	want := []string{"Viewer", "Steward", "Manager"}
	if got := s.Labels(); !reflect.DeepEqual(got, want) {
		t.Errorf("Labels() = %v, want %v", got, want)
	}
	if s.String() != "Viewer, Steward, Manager" {
		t.Errorf("String() = %q", s.String())
	}
}

func TestSet_IgnoresInvalid(t *testing.T) {
	s := roles.NewSet(roles.Role("admin"))
	if !s.Empty() {
		t.Errorf("expected invalid role to be ignored, got %v", s.Roles())
	}
}

func TestSet_NilIsEmpty(t *testing.T) {
	var s roles.Set
	if s.Has(roles.Viewer) || s.Len() != 0 || len(s.Roles()) != 0 {
		t.Error("nil set should behave as empty")
	}
}

func roleGen() *rapid.Generator[roles.Role] {
	return rapid.SampledFrom(roles.All())
}

func TestSet_DiffTransformsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		have := roles.NewSet(rapid.SliceOf(roleGen()).Draw(t, "have")...)
		want := roles.NewSet(rapid.SliceOf(roleGen()).Draw(t, "want")...)

		add, remove := have.Diff(want)
		got := roles.NewSet(have.Roles()...)
		for _, r := range add {
			got.Add(r)
		}
		for _, r := range remove {
			got.Remove(r)
		}
		if !got.Equal(want) {
			t.Fatalf("applying diff gave %v, want %v", got.Roles(), want.Roles())
		}
	})
}

func TestSet_AddRemoveRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		before := roles.NewSet(rapid.SliceOf(roleGen()).Draw(t, "before")...)
		r := roleGen().Draw(t, "role")
		if before.Has(r) {
			t.Skip("round trip only defined for roles not already held")
		}
		s := roles.NewSet(before.Roles()...)
		s.Add(r)
		s.Remove(r)
		if !s.Equal(before) {
			t.Fatalf("round trip changed set: %v -> %v", before.Roles(), s.Roles())
		}
	})
}
