package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// userRolesCmd groups the role assignment commands
var userRolesCmd = &cobra.Command{
	Use:   "user-roles",
	Short: "Manage the roles assigned to users",
}

var userRolesListCmd = &cobra.Command{
	Use:   "list USER_ID",
	Short: "List the roles of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseID(args[0], "user id")
		if err != nil {
			return err
		}
		result, err := current.console.UserRoles(cmd.Context(), userID)
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

var userRolesAssignCmd = &cobra.Command{
	Use:   "assign USER_ID ROLE_ID...",
	Short: "Replace the roles of a user",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseID(args[0], "user id")
		if err != nil {
			return err
		}
		roleIDs, err := parseIDs(args[1:], "role id")
		if err != nil {
			return err
		}
		result, err := current.console.AssignRoles(cmd.Context(), userID, roleIDs)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		printMessage(cmd.OutOrStdout(), result, fmt.Sprintf("Assigned %d roles to user %d", len(roleIDs), userID))
		return nil
	},
}

var userRolesRemoveAllCmd = &cobra.Command{
	Use:   "remove-all USER_ID",
	Short: "Remove every role from a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseID(args[0], "user id")
		if err != nil {
			return err
		}
		result, err := current.console.RemoveAllRoles(cmd.Context(), userID)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		printMessage(cmd.OutOrStdout(), result, fmt.Sprintf("Removed all roles from user %d", userID))
		return nil
	},
}

var userRolesRemoveCmd = &cobra.Command{
	Use:   "remove USER_ID ROLE_ID",
	Short: "Remove one role from a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseID(args[0], "user id")
		if err != nil {
			return err
		}
		roleID, err := parseID(args[1], "role id")
		if err != nil {
			return err
		}
		result, err := current.console.RemoveRole(cmd.Context(), userID, roleID)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		printMessage(cmd.OutOrStdout(), result, fmt.Sprintf("Removed role %d from user %d", roleID, userID))
		return nil
	},
}

var userRolesCheckCmd = &cobra.Command{
	Use:   "check USER_ID ROLE_CODE",
	Short: "Check whether a user has a role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseID(args[0], "user id")
		if err != nil {
			return err
		}
		result, err := current.console.HasRole(cmd.Context(), userID, args[1])
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		if result.Data {
			fmt.Fprintf(cmd.OutOrStdout(), "User %d has role %s\n", userID, args[1])
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "User %d does not have role %s\n", userID, args[1])
		}
		return nil
	},
}

var userRolesUsersCmd = &cobra.Command{
	Use:   "users ROLE_ID",
	Short: "List the ids of users holding a role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roleID, err := parseID(args[0], "role id")
		if err != nil {
			return err
		}
		result, err := current.console.UserIDsForRole(cmd.Context(), roleID)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		ids := make([]string, 0, len(result.Data))
		for _, id := range result.Data {
			ids = append(ids, strconv.Itoa(id))
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(ids, " "))
		return nil
	},
}

var userRolesCodesCmd = &cobra.Command{
	Use:   "codes USER_ID",
	Short: "List the role codes of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseID(args[0], "user id")
		if err != nil {
			return err
		}
		result, err := current.console.RoleCodes(cmd.Context(), userID)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(result.Data, " "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userRolesCmd)
	userRolesCmd.AddCommand(userRolesListCmd, userRolesAssignCmd, userRolesRemoveAllCmd,
		userRolesRemoveCmd, userRolesCheckCmd, userRolesUsersCmd, userRolesCodesCmd)
}
