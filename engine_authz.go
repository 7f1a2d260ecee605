package panelcore

// HasPermission reports whether u may perform action on module. Unknown roles,
// modules and actions are denied; the unrestricted role is always allowed.
func (e *Engine) HasPermission(u User, module, action string) bool {
	if e == nil {
		return false
	}
	return e.table.Allows(string(u.Role), module, action)
}

// CanAccessUnit reports whether u may act within unitID. Only the unrestricted
// role crosses units; a user without a unit matches none.
func (e *Engine) CanAccessUnit(u User, unitID string) bool {
	if e == nil {
		return false
	}
	if e.table.IsUnrestricted(string(u.Role)) {
		return true
	}
	return u.UnitID != "" && unitID == u.UnitID
}

// AccessibleModules lists the modules role can read, in table order.
func (e *Engine) AccessibleModules(role Role) []string {
	if e == nil {
		return nil
	}
	if e.table.IsUnrestricted(string(role)) {
		return e.table.AllModules()
	}
	return e.table.Modules(string(role))
}

// Authorize combines HasPermission and, when unitID is non-empty, CanAccessUnit.
// Every failure is the same ErrForbidden.
func (e *Engine) Authorize(u User, module, action, unitID string) error {
	if !e.HasPermission(u, module, action) {
		e.metricInc(MetricPermissionDenied)
		return ErrForbidden
	}
	if unitID != "" && !e.CanAccessUnit(u, unitID) {
		e.metricInc(MetricPermissionDenied)
		return ErrForbidden
	}
	return nil
}
