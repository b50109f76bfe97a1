// Package identity maps signed-in accounts to roster members and decides who
// may perform admin-only operations.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cashbook/internal/config"
	"cashbook/internal/core"
)

// Member is one configured account.
type Member struct {
	Email string
	Name  string
	Role  core.Role
}

// Identity is the caller as established by the identity provider.
type Identity struct {
	Email string
	Name  string
}

// Roster is the fixed set of people the dashboard tracks. It is built once at
// start-up and read-only afterwards.
type Roster struct {
	members []Member
	byEmail map[string]Member
}

var ErrEmptyRoster = errors.New("roster has no members")

// NewRoster builds a roster. Order is preserved for display.
func NewRoster(members []Member) (*Roster, error) {
	if len(members) == 0 {
		return nil, ErrEmptyRoster
	}
	r := &Roster{byEmail: make(map[string]Member, len(members))}
	for _, m := range members {
		key := core.NormalizeName(m.Email)
		if _, dup := r.byEmail[key]; dup {
			return nil, fmt.Errorf("duplicate roster email %q", m.Email)
		}
		r.byEmail[key] = m
		r.members = append(r.members, m)
	}
	return r, nil
}

// FromConfig converts parsed ROSTER entries.
func FromConfig(entries []config.RosterEntry) (*Roster, error) {
	members := make([]Member, 0, len(entries))
	for _, e := range entries {
		members = append(members, Member{Email: e.Email, Name: e.Name, Role: core.Role(e.Role)})
	}
	return NewRoster(members)
}

// Lookup finds a member by email, ignoring case.
func (r *Roster) Lookup(email string) (Member, bool) {
	m, ok := r.byEmail[core.NormalizeName(email)]
	return m, ok
}

// Attribution returns the name and role stamped on records written by email.
// Accounts outside the roster are users named after their mailbox.
func (r *Roster) Attribution(email string) Member {
	if m, ok := r.Lookup(email); ok {
		return m
	}
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return Member{Email: email, Name: local, Role: core.RoleUser}
}

// DisplayName resolves the name shown for an email, falling back to the email itself.
func (r *Roster) DisplayName(email string) string {
	if m, ok := r.Lookup(email); ok {
		return m.Name
	}
	if email == "" {
		return "-"
	}
	return email
}

// Names lists every member name, admin included.
func (r *Roster) Names() []string {
	out := make([]string, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m.Name)
	}
	return out
}

// Receivers lists members with the user role: the people transfers go to.
func (r *Roster) Receivers() []string {
	var out []string
	for _, m := range r.members {
		if m.Role == core.RoleUser {
			out = append(out, m.Name)
		}
	}
	return out
}

// IsAdmin reports whether id belongs to an admin member.
func (r *Roster) IsAdmin(id Identity) bool {
	m, ok := r.Lookup(id.Email)
	return ok && m.Role == core.RoleAdmin
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the caller identity, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
