package permission

import (
	"errors"
	"fmt"
	"strings"
)

// ActionRead is the grant that makes a module visible in navigation.
const ActionRead = "read"

// Rule is one row of the permission table. Allow=false rows are explicit denials;
// they behave exactly like absent rows but keep the module and action known to the table.
type Rule struct {
	Role   string
	Module string
	Action string
	Allow  bool
}

// Table answers (role, module, action) questions against a frozen rule set.
type Table struct {
	registry     *Registry
	roles        *RoleManager
	unrestricted string
	modules      []string
	roleNames    []string
	rules        []Rule
}

// NewTable builds a frozen Table. unrestricted names the role that receives the root
// capability; it must not appear in rules. Duplicate (role, module, action) rows are
// rejected.
func NewTable(unrestricted string, rules []Rule) (*Table, error) {
	if strings.TrimSpace(unrestricted) == "" {
		return nil, errors.New("unrestricted role name empty")
	}

	t := &Table{
		registry:     NewRegistry(),
		unrestricted: unrestricted,
		rules:        append([]Rule(nil), rules...),
	}
	t.roles = NewRoleManager(t.registry)

	seenModule := make(map[string]bool)
	seenRule := make(map[string]bool)
	grants := make(map[string][]string)

	for _, rule := range rules {
		if rule.Role == "" || rule.Module == "" || rule.Action == "" {
			return nil, fmt.Errorf("incomplete rule %+v", rule)
		}
		if strings.Contains(rule.Module, ".") || strings.Contains(rule.Action, ".") {
			return nil, fmt.Errorf("module and action must not contain '.': %s.%s", rule.Module, rule.Action)
		}
		if rule.Role == unrestricted {
			return nil, fmt.Errorf("role %q bypasses the table and cannot carry rules", unrestricted)
		}

		name := Name(rule.Module, rule.Action)
		key := rule.Role + "|" + name
		if seenRule[key] {
			return nil, fmt.Errorf("duplicate rule for %s on %s", rule.Role, name)
		}
		seenRule[key] = true

		if !seenModule[rule.Module] {
			seenModule[rule.Module] = true
			t.modules = append(t.modules, rule.Module)
		}
		if _, ok := t.registry.Bit(name); !ok {
			if _, err := t.registry.Register(name); err != nil {
				return nil, err
			}
		}

		if _, ok := grants[rule.Role]; !ok {
			grants[rule.Role] = nil
			t.roleNames = append(t.roleNames, rule.Role)
		}
		if rule.Allow {
			grants[rule.Role] = append(grants[rule.Role], name)
		}
	}
	t.registry.Freeze()

	if err := t.roles.RegisterRoot(unrestricted); err != nil {
		return nil, err
	}
	for _, role := range t.roleNames {
		if err := t.roles.RegisterRole(role, grants[role]); err != nil {
			return nil, err
		}
	}
	t.roles.Freeze()

	return t, nil
}

// Name joins a module and action into the registry permission name.
func Name(module, action string) string {
	return module + "." + action
}

// Allows reports whether role may perform action on module. Unknown roles, modules
// and actions are denied; the unrestricted role is always allowed.
func (t *Table) Allows(role, module, action string) bool {
	if t == nil {
		return false
	}
	mask, ok := t.roles.GetMask(role)
	if !ok {
		return false
	}
	if mask.IsRoot() {
		return true
	}
	bit, ok := t.registry.Bit(Name(module, action))
	if !ok {
		return false
	}
	return mask.Has(bit)
}

// IsUnrestricted reports whether role holds the root capability.
func (t *Table) IsUnrestricted(role string) bool {
	if t == nil {
		return false
	}
	mask, ok := t.roles.GetMask(role)
	return ok && mask.IsRoot()
}

// Modules lists, in table order, the modules on which role holds read.
func (t *Table) Modules(role string) []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.modules))
	for _, module := range t.modules {
		if t.Allows(role, module, ActionRead) {
			out = append(out, module)
		}
	}
	return out
}

// AllModules returns every module the table knows, in registration order.
func (t *Table) AllModules() []string {
	return append([]string(nil), t.modules...)
}

// Roles returns the unrestricted role followed by every table role in rule order.
func (t *Table) Roles() []string {
	return append([]string{t.unrestricted}, t.roleNames...)
}

// Rules returns a copy of the rows the table was built from.
func (t *Table) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}
