package permission

// Role names used by the default table.
const (
	RoleUnrestricted = "unrestricted"
	RoleUnitManager  = "unit_manager"
	RoleStaff        = "staff"
)

// Modules of the operations panel.
const (
	ModuleVehicles  = "vehicles"
	ModuleInventory = "inventory"
	ModuleLeave     = "leave"
	ModuleTraining  = "training"
	ModuleMeals     = "meals"
	ModuleUsers     = "users"
	ModuleAudit     = "audit"
)

// Actions understood by the panel handlers.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionApprove = "approve"
	ActionExport  = "export"
)

// DefaultRules is the panel's shipped permission table.
func DefaultRules() []Rule {
	crud := []string{ActionRead, ActionCreate, ActionUpdate, ActionDelete}
	var rules []Rule

	for _, module := range []string{ModuleVehicles, ModuleInventory, ModuleLeave, ModuleTraining, ModuleMeals} {
		for _, action := range crud {
			rules = append(rules, Rule{Role: RoleUnitManager, Module: module, Action: action, Allow: true})
		}
	}
	rules = append(rules,
		Rule{Role: RoleUnitManager, Module: ModuleLeave, Action: ActionApprove, Allow: true},
		Rule{Role: RoleUnitManager, Module: ModuleTraining, Action: ActionApprove, Allow: true},
		Rule{Role: RoleUnitManager, Module: ModuleUsers, Action: ActionRead, Allow: true},
		Rule{Role: RoleUnitManager, Module: ModuleAudit, Action: ActionRead, Allow: true},
		Rule{Role: RoleUnitManager, Module: ModuleAudit, Action: ActionExport, Allow: true},

		Rule{Role: RoleStaff, Module: ModuleVehicles, Action: ActionRead, Allow: true},
		Rule{Role: RoleStaff, Module: ModuleInventory, Action: ActionRead, Allow: true},
		Rule{Role: RoleStaff, Module: ModuleLeave, Action: ActionRead, Allow: true},
		Rule{Role: RoleStaff, Module: ModuleLeave, Action: ActionCreate, Allow: true},
		Rule{Role: RoleStaff, Module: ModuleLeave, Action: ActionApprove, Allow: false},
		Rule{Role: RoleStaff, Module: ModuleTraining, Action: ActionRead, Allow: true},
		Rule{Role: RoleStaff, Module: ModuleMeals, Action: ActionRead, Allow: true},
		Rule{Role: RoleStaff, Module: ModuleMeals, Action: ActionCreate, Allow: true},
		Rule{Role: RoleStaff, Module: ModuleAudit, Action: ActionRead, Allow: true},
		Rule{Role: RoleStaff, Module: ModuleAudit, Action: ActionExport, Allow: false},
	)
	return rules
}

// DefaultTable builds the shipped table with [RoleUnrestricted] as the root role.
func DefaultTable() (*Table, error) {
	return NewTable(RoleUnrestricted, DefaultRules())
}
