package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/panelcore/permission"
)

var permissionsFormat string

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Print the permission table",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := permission.DefaultTable()
		if err != nil {
			return err
		}
		return printPermissions(cmd.OutOrStdout(), table, permissionsFormat)
	},
}

func init() {
	permissionsCmd.Flags().StringVar(&permissionsFormat, "format", "table", "table or json")
	rootCmd.AddCommand(permissionsCmd)
}

type roleView struct {
	Role         string              `json:"role"`
	Unrestricted bool                `json:"unrestricted"`
	Modules      []string            `json:"modules"`
	Grants       map[string][]string `json:"grants,omitempty"`
}

func permissionView(table *permission.Table) []roleView {
	actions := map[string]map[string][]string{}
	for _, rule := range table.Rules() {
		if !rule.Allow {
			continue
		}
		if actions[rule.Role] == nil {
			actions[rule.Role] = map[string][]string{}
		}
		actions[rule.Role][rule.Module] = append(actions[rule.Role][rule.Module], rule.Action)
	}

	var out []roleView
	for _, role := range table.Roles() {
		v := roleView{Role: role, Unrestricted: table.IsUnrestricted(role)}
		if v.Unrestricted {
			v.Modules = table.AllModules()
		} else {
			v.Modules = table.Modules(role)
			v.Grants = actions[role]
		}
		out = append(out, v)
	}
	return out
}

func printPermissions(w io.Writer, table *permission.Table, format string) error {
	view := permissionView(table)

	switch strings.ToLower(format) {
	case "json":
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "table", "":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tMODULE\tACTIONS")
	for _, v := range view {
		if v.Unrestricted {
			fmt.Fprintf(tw, "%s\t*\t*\n", v.Role)
			continue
		}
		for _, module := range table.AllModules() {
			if acts := v.Grants[module]; len(acts) > 0 {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Role, module, strings.Join(acts, ","))
			}
		}
	}
	return tw.Flush()
}
