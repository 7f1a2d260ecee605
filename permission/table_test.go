package permission

import (
	"reflect"
	"testing"
)

func buildDefault(t *testing.T) *Table {
	t.Helper()
	table, err := DefaultTable()
	if err != nil {
		t.Fatalf("DefaultTable: %v", err)
	}
	return table
}

var allActions = []string{ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionApprove, ActionExport, "purge"}

func TestTableMatchesEveryRule(t *testing.T) {
	table := buildDefault(t)
	for _, rule := range DefaultRules() {
		if got := table.Allows(rule.Role, rule.Module, rule.Action); got != rule.Allow {
			t.Fatalf("Allows(%s,%s,%s) = %v, want %v", rule.Role, rule.Module, rule.Action, got, rule.Allow)
		}
	}
}

func TestTableAbsentTriplesDenied(t *testing.T) {
	table := buildDefault(t)
	present := make(map[string]bool)
	for _, rule := range DefaultRules() {
		present[rule.Role+"|"+Name(rule.Module, rule.Action)] = true
	}

	modules := append(table.AllModules(), "reactor")
	for _, role := range []string{RoleUnitManager, RoleStaff, "contractor", ""} {
		for _, module := range modules {
			for _, action := range allActions {
				if present[role+"|"+Name(module, action)] {
					continue
				}
				if table.Allows(role, module, action) {
					t.Fatalf("absent triple (%s,%s,%s) allowed", role, module, action)
				}
			}
		}
	}
}

func TestUnrestrictedAlwaysAllowed(t *testing.T) {
	table := buildDefault(t)
	for _, module := range append(table.AllModules(), "reactor") {
		for _, action := range allActions {
			if !table.Allows(RoleUnrestricted, module, action) {
				t.Fatalf("unrestricted denied on %s.%s", module, action)
			}
		}
	}
	if !table.IsUnrestricted(RoleUnrestricted) || table.IsUnrestricted(RoleUnitManager) {
		t.Fatalf("root capability assigned to wrong role")
	}
}

func TestModulesOrderedByTable(t *testing.T) {
	table := buildDefault(t)

	want := []string{ModuleVehicles, ModuleInventory, ModuleLeave, ModuleTraining, ModuleMeals, ModuleAudit}
	if got := table.Modules(RoleStaff); !reflect.DeepEqual(got, want) {
		t.Fatalf("staff modules = %v, want %v", got, want)
	}
	if got := table.Modules(RoleUnrestricted); !reflect.DeepEqual(got, table.AllModules()) {
		t.Fatalf("unrestricted modules = %v, want all %v", got, table.AllModules())
	}
	if got := table.Modules("contractor"); len(got) != 0 {
		t.Fatalf("unknown role sees modules %v", got)
	}
}

func TestNewTableRejectsBadInput(t *testing.T) {
	cases := map[string][]Rule{
		"duplicate": {
			{Role: "a", Module: "m", Action: "read", Allow: true},
			{Role: "a", Module: "m", Action: "read", Allow: false},
		},
		"rule for root role": {{Role: RoleUnrestricted, Module: "m", Action: "read", Allow: true}},
		"dotted module":      {{Role: "a", Module: "m.x", Action: "read", Allow: true}},
		"empty action":       {{Role: "a", Module: "m", Allow: true}},
	}
	for name, rules := range cases {
		if _, err := NewTable(RoleUnrestricted, rules); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := NewTable(" ", nil); err == nil {
		t.Fatalf("expected error for empty unrestricted role")
	}
}

func TestNilTableFailsClosed(t *testing.T) {
	var table *Table
	if table.Allows(RoleUnrestricted, ModuleAudit, ActionRead) {
		t.Fatalf("nil table must deny")
	}
	if table.Modules(RoleUnrestricted) != nil {
		t.Fatalf("nil table must expose no modules")
	}
}
