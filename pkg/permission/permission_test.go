package permission

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/larder/pkg/types"
)

type user struct {
	name   string
	roles  []string
	owns   map[string]int
	custom map[string]Role
}

func (u *user) Roles() []string          { return u.roles }
func (u *user) HasRole(name string) bool { return slices.Contains(u.roles, name) }

func (u *user) OwnerGeneration(target any) int {
	if d, ok := target.(*doc); ok {
		return u.owns[d.id]
	}
	return 0
}

func (u *user) PermissionRole(name string, _ any) (Role, bool) {
	r, ok := u.custom[name]
	return r, ok
}

type doc struct {
	id    string
	roles []string
}

func (d *doc) Roles() []string          { return d.roles }
func (d *doc) HasRole(name string) bool { return slices.Contains(d.roles, name) }

func TestLevel_Owner(t *testing.T) {
	e := NewEngine()
	u := &user{name: "ana", owns: map[string]int{"direct": 1, "grandchild": 3}}

	tests := []struct {
		target string
		want   types.Permission
	}{
		{"direct", types.PermFull},
		{"grandchild", types.PermRead},
		{"stranger", types.PermNone},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Level(u, &doc{id: tt.target}))
		})
	}
}

func TestLevel_Admin(t *testing.T) {
	e := NewEngine()
	admin := &user{name: "root", roles: []string{RoleAdmin}}
	plain := &user{name: "bo", owns: map[string]int{"d1": 1}}

	assert.Equal(t, types.PermFull, e.Level(admin, &doc{id: "d1"}))
	assert.Equal(t, types.PermFull, e.Level(plain, &doc{id: "d1"}))
	assert.Equal(t, types.PermNone, e.Level(plain, &doc{id: "d1", roles: []string{RoleAdmin}}),
		"a non-admin gets nothing on an admin target, even as owner")
}

func TestLevel_AndCombination(t *testing.T) {
	e := NewEngine()
	e.RegisterRole("auditor", func(p Principal, _ any) (Role, bool) {
		if !p.HasRole("auditor") {
			return Role{}, false
		}
		return Role{Name: "auditor", Flags: types.PermRead | types.PermExecute}, true
	})
	u := &user{roles: []string{"auditor"}, owns: map[string]int{"d1": 1}}

	assert.Equal(t, types.PermRead|types.PermExecute, e.Level(u, &doc{id: "d1"}))
	assert.Equal(t, []string{RoleOwner, RoleAdmin, "auditor"}, e.RoleNames())
}

func TestLevel_PrincipalResolvesUnregisteredRoles(t *testing.T) {
	e := NewEngine(WithoutOwnerRole(), WithoutAdminRole())
	u := &user{
		roles:  []string{"editor"},
		custom: map[string]Role{"editor": {Name: "editor", Flags: types.PermRead | types.PermWrite}},
	}
	assert.Equal(t, types.PermRead|types.PermWrite, e.Level(u, &doc{id: "d1"}))
}

func TestLevel_NoApplicableRole(t *testing.T) {
	e := NewEngine(WithoutOwnerRole(), WithoutAdminRole())
	assert.Empty(t, e.RoleNames())
	assert.Equal(t, types.PermNone, e.Level(&user{}, &doc{id: "d1"}))
	assert.Equal(t, types.PermNone, e.Level(nil, &doc{id: "d1"}))
}

func TestLevel_CustomOwnerRole(t *testing.T) {
	e := NewEngine(WithOwnerRole(func(Principal, any) (Role, bool) {
		return Role{Name: RoleOwner, Flags: types.PermRead}, true
	}))
	assert.Equal(t, types.PermRead, e.Level(&user{}, &doc{id: "d1"}))
}

func TestPermissionString(t *testing.T) {
	assert.Equal(t, "none", types.PermNone.String())
	assert.Equal(t, "read|write|execute", types.PermFull.String())
	assert.True(t, types.PermFull.Has(types.PermRead|types.PermWrite))
	assert.False(t, types.PermRead.Has(types.PermWrite))
}
