package identity

import (
	"context"
	"reflect"
	"testing"

	"cashbook/internal/config"
	"cashbook/internal/core"
)

func defaultRoster(t *testing.T) *Roster {
	t.Helper()
	entries, err := config.ParseRoster(config.DefaultRoster)
	if err != nil {
		t.Fatalf("ParseRoster: %v", err)
	}
	r, err := FromConfig(entries)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	return r
}

func TestRosterLookupAndAttribution(t *testing.T) {
	r := defaultRoster(t)

	cases := []struct {
		email    string
		wantName string
		wantRole core.Role
	}{
		{"admin@admin.com", "Admin", core.RoleAdmin},
		{"Ahmad@Ahmad.com", "Ahmad", core.RoleUser},
		{"ibrar@ibrar.com", "Ibrar", core.RoleUser},
		{"zara@example.com", "zara", core.RoleUser},
	}
	for _, tc := range cases {
		t.Run(tc.email, func(t *testing.T) {
			m := r.Attribution(tc.email)
			if m.Name != tc.wantName || m.Role != tc.wantRole {
				t.Fatalf("Attribution(%q) = %+v, want %s/%s", tc.email, m, tc.wantName, tc.wantRole)
			}
		})
	}
}

func TestRosterNames(t *testing.T) {
	r := defaultRoster(t)
	if got, want := r.Names(), []string{"Admin", "Ibrar", "Ahmad"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if got, want := r.Receivers(), []string{"Ibrar", "Ahmad"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Receivers() = %v, want %v", got, want)
	}
}

func TestRosterIsAdmin(t *testing.T) {
	r := defaultRoster(t)
	if !r.IsAdmin(Identity{Email: "ADMIN@admin.com"}) {
		t.Error("admin email should be admin")
	}
	if r.IsAdmin(Identity{Email: "ibrar@ibrar.com"}) {
		t.Error("user should not be admin")
	}
	if r.IsAdmin(Identity{Email: "stranger@example.com"}) {
		t.Error("unknown account should not be admin")
	}
}

func TestRosterDisplayName(t *testing.T) {
	r := defaultRoster(t)
	if got := r.DisplayName("ahmad@ahmad.com"); got != "Ahmad" {
		t.Errorf("DisplayName = %q", got)
	}
	if got := r.DisplayName("x@y.z"); got != "x@y.z" {
		t.Errorf("DisplayName = %q", got)
	}
	if got := r.DisplayName(""); got != "-" {
		t.Errorf("DisplayName = %q", got)
	}
}

func TestNewRosterRejectsDuplicates(t *testing.T) {
	_, err := NewRoster([]Member{{Email: "a@b.c", Name: "A"}, {Email: "A@B.C", Name: "B"}})
	if err == nil {
		t.Fatal("expected duplicate error")
	}
	if _, err := NewRoster(nil); err != ErrEmptyRoster {
		t.Fatalf("NewRoster(nil) = %v, want ErrEmptyRoster", err)
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := FromContext(ctx); ok {
		t.Fatal("empty context should carry no identity")
	}
	ctx = WithIdentity(ctx, Identity{Email: "a@b.c"})
	if id, ok := FromContext(ctx); !ok || id.Email != "a@b.c" {
		t.Fatalf("FromContext = %+v, %v", id, ok)
	}
}
