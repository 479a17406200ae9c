package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rawlogin/adminctl/pkg/api"
)

var (
	roleName        string
	roleCode        string
	roleDescription string
	roleStatus      int
	rolePermissions []string

	roleSearchName    string
	roleSearchCode    string
	roleSearchStatus  int
	roleSearchBuiltIn bool
)

// rolesCmd groups the role management commands
var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Manage roles",
}

var rolesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all roles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := current.console.ListRoles(cmd.Context())
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		printRoles(cmd.OutOrStdout(), result.Data)
		return nil
	},
}

var rolesGetCmd = &cobra.Command{
	Use:   "get ROLE_ID",
	Short: "Show one role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "role id")
		if err != nil {
			return err
		}
		result, err := current.console.GetRole(cmd.Context(), id)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		printRole(cmd.OutOrStdout(), result.Data)
		return nil
	},
}

var rolesSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search roles by name, code, status or built-in flag",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := api.RoleFilter{Name: roleSearchName, Code: roleSearchCode}
		if cmd.Flags().Changed("status") {
			status := roleSearchStatus
			filter.Status = &status
		}
		if cmd.Flags().Changed("built-in") {
			builtIn := roleSearchBuiltIn
			filter.BuiltIn = &builtIn
		}

		result, err := current.console.SearchRoles(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		printRoles(cmd.OutOrStdout(), result.Data)
		return nil
	},
}

var rolesPermissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "List the permission codes roles can be granted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := current.console.ListPermissions(cmd.Context())
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		printPermissions(cmd.OutOrStdout(), result.Data)
		return nil
	},
}

var rolesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a role",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := roleRequest(cmd)
		if err := api.Validate(req); err != nil {
			return err
		}

		result, err := current.console.CreateRole(cmd.Context(), req)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created role %s (id %d)\n", result.Data.Code, result.Data.ID)
		return nil
	},
}

var rolesUpdateCmd = &cobra.Command{
	Use:   "update ROLE_ID",
	Short: "Update a role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "role id")
		if err != nil {
			return err
		}
		req := roleRequest(cmd)
		if err := api.Validate(req); err != nil {
			return err
		}

		result, err := current.console.UpdateRole(cmd.Context(), id, req)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated role %s (id %d)\n", result.Data.Code, result.Data.ID)
		return nil
	},
}

var rolesDeleteCmd = &cobra.Command{
	Use:   "delete ROLE_ID",
	Short: "Delete a role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "role id")
		if err != nil {
			return err
		}
		result, err := current.console.DeleteRole(cmd.Context(), id)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		printMessage(cmd.OutOrStdout(), result, fmt.Sprintf("Deleted role %d", id))
		return nil
	},
}

var rolesBatchDeleteCmd = &cobra.Command{
	Use:   "batch-delete ROLE_ID...",
	Short: "Delete several roles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args, "role id")
		if err != nil {
			return err
		}
		result, err := current.console.BatchDeleteRoles(cmd.Context(), ids)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		printMessage(cmd.OutOrStdout(), result, fmt.Sprintf("Deleted %d roles", len(ids)))
		return nil
	},
}

func roleRequest(cmd *cobra.Command) api.RoleRequest {
	req := api.RoleRequest{
		Name:        roleName,
		Code:        roleCode,
		Description: roleDescription,
		Permissions: rolePermissions,
	}
	if cmd.Flags().Changed("status") {
		status := roleStatus
		req.Status = &status
	}
	return req
}

func init() {
	rootCmd.AddCommand(rolesCmd)
	rolesCmd.AddCommand(rolesListCmd, rolesGetCmd, rolesSearchCmd, rolesPermissionsCmd,
		rolesCreateCmd, rolesUpdateCmd, rolesDeleteCmd, rolesBatchDeleteCmd)

	rolesSearchCmd.Flags().StringVar(&roleSearchName, "name", "", "name keyword")
	rolesSearchCmd.Flags().StringVar(&roleSearchCode, "code", "", "code keyword")
	rolesSearchCmd.Flags().IntVar(&roleSearchStatus, "status", 1, "1 for active, 0 for disabled")
	rolesSearchCmd.Flags().BoolVar(&roleSearchBuiltIn, "built-in", false, "only built-in (true) or custom (false) roles")

	for _, c := range []*cobra.Command{rolesCreateCmd, rolesUpdateCmd} {
		c.Flags().StringVar(&roleName, "name", "", "display name")
		c.Flags().StringVar(&roleCode, "code", "", "role code, e.g. AUDITOR")
		c.Flags().StringVar(&roleDescription, "description", "", "description")
		c.Flags().IntVar(&roleStatus, "status", 1, "1 for active, 0 for disabled")
		c.Flags().StringSliceVar(&rolePermissions, "permission", nil, "permission code (repeatable)")
	}
}
