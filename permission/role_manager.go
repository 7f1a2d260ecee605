package permission

import (
	"errors"
	"sync"
)

// RoleManager keeps one [Mask64] per role, composed from registered permission names.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Mask64
	frozen bool
}

// NewRoleManager returns a RoleManager resolving names against registry.
func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]Mask64),
	}
}

// RegisterRole builds the mask for roleName from permissionNames. Every name must
// already be registered. An empty list registers a role with no grants.
func (rm *RoleManager) RegisterRole(roleName string, permissionNames []string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if err := rm.checkNewRole(roleName); err != nil {
		return err
	}

	var mask Mask64
	for _, perm := range permissionNames {
		bit, ok := rm.registry.Bit(perm)
		if !ok {
			return errors.New("permission not registered: " + perm)
		}
		mask.Set(bit)
	}

	rm.roles[roleName] = mask
	return nil
}

// RegisterRoot registers roleName holding only the root capability.
func (rm *RoleManager) RegisterRoot(roleName string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if err := rm.checkNewRole(roleName); err != nil {
		return err
	}

	var mask Mask64
	mask.Set(rootBit)
	rm.roles[roleName] = mask
	return nil
}

func (rm *RoleManager) checkNewRole(roleName string) error {
	if rm.frozen {
		return errors.New("role manager frozen")
	}
	if roleName == "" {
		return errors.New("role name empty")
	}
	if _, exists := rm.roles[roleName]; exists {
		return errors.New("role already registered")
	}
	return nil
}

// GetMask returns the mask registered for roleName.
func (rm *RoleManager) GetMask(roleName string) (Mask64, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	mask, ok := rm.roles[roleName]
	return mask, ok
}

// Freeze prevents further role registrations.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}
