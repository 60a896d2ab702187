// Package permission computes what a principal may do with a target. Named
// roles each contribute a permission mask; the masks of every applicable
// role are combined with bitwise AND, and no applicable role means no
// access.
package permission

import (
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Built-in role names.
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

// Principal is the party asking for access.
type Principal interface {
	// Roles lists the role names the principal holds.
	Roles() []string
	// HasRole reports whether the principal holds the named role.
	HasRole(name string) bool
}

// Owner is implemented by principals that can own targets. OwnerGeneration
// returns 1 when the principal owns target directly, n when it owns an
// ancestor n-1 levels up, and 0 when it does not own target at all.
type Owner interface {
	OwnerGeneration(target any) int
}

// RoleHolder is implemented by targets that carry roles of their own.
type RoleHolder interface {
	Roles() []string
	HasRole(name string) bool
}

// RoleResolver is implemented by principals that can evaluate roles the
// engine has no registration for.
type RoleResolver interface {
	PermissionRole(name string, target any) (Role, bool)
}

// Role is the contribution of one named role.
type Role struct {
	Name  string
	Flags types.Permission
}

// RoleFunc evaluates a role for principal and target. ok is false when the
// role does not apply.
type RoleFunc func(principal Principal, target any) (role Role, ok bool)

type options struct {
	owner  RoleFunc
	admin  RoleFunc
	logger *zap.SugaredLogger
}

// Option configures an Engine.
type Option func(*options)

// WithoutOwnerRole disables the built-in owner role.
func WithoutOwnerRole() Option { return func(o *options) { o.owner = nil } }

// WithoutAdminRole disables the built-in admin role.
func WithoutAdminRole() Option { return func(o *options) { o.admin = nil } }

// WithOwnerRole replaces the built-in owner role.
func WithOwnerRole(fn RoleFunc) Option { return func(o *options) { o.owner = fn } }

// WithAdminRole replaces the built-in admin role.
func WithAdminRole(fn RoleFunc) Option { return func(o *options) { o.admin = fn } }

// WithLogger sets the logger denials are reported to.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Engine holds the registered roles.
type Engine struct {
	mu    sync.RWMutex
	names []string
	roles map[string]RoleFunc
	log   *zap.SugaredLogger
}

// NewEngine creates an engine with the owner and admin roles registered
// unless disabled.
func NewEngine(opts ...Option) *Engine {
	o := options{owner: ownerRole, admin: adminRole, logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine{roles: make(map[string]RoleFunc), log: o.logger}
	if o.owner != nil {
		e.RegisterRole(RoleOwner, o.owner)
	}
	if o.admin != nil {
		e.RegisterRole(RoleAdmin, o.admin)
	}
	return e
}

// RegisterRole adds or replaces the named role.
func (e *Engine) RegisterRole(name string, fn RoleFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.roles[name]; !ok {
		e.names = append(e.names, name)
	}
	e.roles[name] = fn
}

// RoleNames returns the registered role names in registration order.
func (e *Engine) RoleNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.names...)
}

// Level returns the permissions principal holds on target. Every registered
// role, every role of principal and every role of target is evaluated once;
// the masks of those that apply are ANDed together. A nil principal, or one
// to which no role applies, gets no permissions.
func (e *Engine) Level(principal Principal, target any) types.Permission {
	if principal == nil {
		return types.PermNone
	}

	e.mu.RLock()
	names := append([]string(nil), e.names...)
	e.mu.RUnlock()
	names = append(names, principal.Roles()...)
	if rh, ok := target.(RoleHolder); ok && !same(rh, principal) {
		names = append(names, rh.Roles()...)
	}

	level := types.PermFull
	applied := 0
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		role, ok := e.role(name, principal, target)
		if !ok {
			continue
		}
		applied++
		level &= role.Flags
		if level == types.PermNone {
			break
		}
	}
	if applied == 0 {
		return types.PermNone
	}
	return level
}

func (e *Engine) role(name string, principal Principal, target any) (Role, bool) {
	e.mu.RLock()
	fn := e.roles[name]
	e.mu.RUnlock()
	if fn != nil {
		return fn(principal, target)
	}
	if rr, ok := principal.(RoleResolver); ok {
		return rr.PermissionRole(name, target)
	}
	return Role{}, false
}

// ownerRole grants full access to direct owners and read access to owners
// of an ancestor.
func ownerRole(principal Principal, target any) (Role, bool) {
	o, ok := principal.(Owner)
	if !ok {
		return Role{}, false
	}
	switch gen := o.OwnerGeneration(target); {
	case gen == 1:
		return Role{Name: RoleOwner, Flags: types.PermFull}, true
	case gen > 1:
		return Role{Name: RoleOwner, Flags: types.PermRead}, true
	}
	return Role{}, false
}

// adminRole grants admins full access and denies non-admins any access to
// admin targets.
func adminRole(principal Principal, target any) (Role, bool) {
	if principal.HasRole(RoleAdmin) {
		return Role{Name: RoleAdmin, Flags: types.PermFull}, true
	}
	if rh, ok := target.(RoleHolder); ok && rh.HasRole(RoleAdmin) {
		return Role{Name: RoleAdmin, Flags: types.PermNone}, true
	}
	return Role{}, false
}

// same reports whether a and b are the same comparable value.
func same(a, b any) bool {
	ta := reflect.TypeOf(a)
	return ta != nil && ta == reflect.TypeOf(b) && ta.Comparable() && a == b
}
