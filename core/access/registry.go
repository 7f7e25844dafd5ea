package access

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ErrUnauthorized is returned when the caller lacks the role an operation
// requires. Wrapped errors carry the missing role in their message.
var ErrUnauthorized = errors.New("unauthorized")

// Role is a capability tag granted to a principal. A principal may hold any
// combination of roles; they are stored as a bit-set per address.
type Role uint8

const (
	RoleAdmin Role = 1 << iota
	RoleMinter
	RolePauser
	RoleUpgrader
	RoleBlacklistManager
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleMinter:
		return "minter"
	case RolePauser:
		return "pauser"
	case RoleUpgrader:
		return "upgrader"
	case RoleBlacklistManager:
		return "blacklist_manager"
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// Registry holds the principal→role-set assignments. Only a principal
// holding RoleAdmin may grant or revoke roles, including RoleAdmin itself.
type Registry struct {
	roles map[common.Address]Role
	mu    sync.RWMutex
	log   *zap.Logger
}

// NewRegistry creates a registry with the deployer holding RoleAdmin.
func NewRegistry(admin common.Address, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		roles: make(map[common.Address]Role),
		log:   logger,
	}
	r.roles[admin] = RoleAdmin
	return r
}

// HasRole reports whether the principal currently holds the role.
func (r *Registry) HasRole(principal common.Address, role Role) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roles[principal]&role != 0
}

// RolesOf returns the full role-set held by the principal.
func (r *Registry) RolesOf(principal common.Address) Role {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roles[principal]
}

// Require returns ErrUnauthorized unless the principal holds the role.
func (r *Registry) Require(principal common.Address, role Role) error {
	if !r.HasRole(principal, role) {
		return fmt.Errorf("%w: %s role required", ErrUnauthorized, role)
	}
	return nil
}

// GrantRole adds a role to the principal's set. Granting an already-held
// role is a no-op success. Caller must hold RoleAdmin.
func (r *Registry) GrantRole(caller common.Address, role Role, principal common.Address) error {
	if err := r.Require(caller, RoleAdmin); err != nil {
		r.log.Warn("role grant rejected",
			zap.String("caller", caller.Hex()),
			zap.String("role", role.String()),
			zap.Error(err))
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.roles[principal] |= role
	r.log.Info("role granted",
		zap.String("admin", caller.Hex()),
		zap.String("principal", principal.Hex()),
		zap.String("role", role.String()))
	return nil
}

// RevokeRole removes a role from the principal's set. Revoking an absent
// role is a no-op success. Caller must hold RoleAdmin.
func (r *Registry) RevokeRole(caller common.Address, role Role, principal common.Address) error {
	if err := r.Require(caller, RoleAdmin); err != nil {
		r.log.Warn("role revoke rejected",
			zap.String("caller", caller.Hex()),
			zap.String("role", role.String()),
			zap.Error(err))
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.roles[principal] &^= role
	if r.roles[principal] == 0 {
		delete(r.roles, principal)
	}
	r.log.Info("role revoked",
		zap.String("admin", caller.Hex()),
		zap.String("principal", principal.Hex()),
		zap.String("role", role.String()))
	return nil
}

// Snapshot returns a copy of all role assignments (used for persistence).
func (r *Registry) Snapshot() map[common.Address]Role {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[common.Address]Role, len(r.roles))
	for addr, roles := range r.roles {
		out[addr] = roles
	}
	return out
}

// Restore replaces all role assignments (used when loading from persistence).
func (r *Registry) Restore(roles map[common.Address]Role) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.roles = make(map[common.Address]Role, len(roles))
	for addr, rs := range roles {
		if rs != 0 {
			r.roles[addr] = rs
		}
	}
}
