package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rawlogin/adminctl/pkg/api"
)

var (
	userUsername string
	userPassword string
	userEmail    string
	userRole     string
	userStatus   int

	searchUsername string
	searchRole     string
)

// usersCmd groups the user management commands
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := current.console.ListUsers(cmd.Context())
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		printUsers(cmd.OutOrStdout(), result.Data)
		return nil
	},
}

var usersGetCmd = &cobra.Command{
	Use:   "get USER_ID",
	Short: "Show one user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "user id")
		if err != nil {
			return err
		}
		result, err := current.console.GetUser(cmd.Context(), id)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		printUser(cmd.OutOrStdout(), result.Data)
		return nil
	},
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := api.UserCreateRequest{
			Username: userUsername,
			Password: userPassword,
			Email:    userEmail,
			Role:     userRole,
			Status:   statusFlag(cmd),
		}
		if err := api.Validate(req); err != nil {
			return err
		}

		result, err := current.console.CreateUser(cmd.Context(), req)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d)\n", result.Data.Username, result.Data.ID)
		return nil
	},
}

var usersUpdateCmd = &cobra.Command{
	Use:   "update USER_ID",
	Short: "Update a user",
	Long:  `Update a user. An empty --password keeps the current password.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "user id")
		if err != nil {
			return err
		}
		req := api.UserUpdateRequest{
			Username: userUsername,
			Password: userPassword,
			Email:    userEmail,
			Role:     userRole,
			Status:   statusFlag(cmd),
		}
		if err := api.Validate(req); err != nil {
			return err
		}

		result, err := current.console.UpdateUser(cmd.Context(), id, req)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated user %s (id %d)\n", result.Data.Username, result.Data.ID)
		return nil
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete USER_ID",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "user id")
		if err != nil {
			return err
		}
		result, err := current.console.DeleteUser(cmd.Context(), id)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		printMessage(cmd.OutOrStdout(), result, fmt.Sprintf("Deleted user %d", id))
		return nil
	},
}

var usersBatchDeleteCmd = &cobra.Command{
	Use:   "batch-delete USER_ID...",
	Short: "Delete several users",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args, "user id")
		if err != nil {
			return err
		}
		result, err := current.console.BatchDeleteUsers(cmd.Context(), ids)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		printMessage(cmd.OutOrStdout(), result, fmt.Sprintf("Deleted %d users", len(ids)))
		return nil
	},
}

var usersSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search users by username keyword and role",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := current.console.SearchUsers(cmd.Context(), searchUsername, searchRole)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		printUsers(cmd.OutOrStdout(), result.Data)
		return nil
	},
}

// statusFlag returns the --status value, or nil when the flag was not given.
func statusFlag(cmd *cobra.Command) *int {
	if !cmd.Flags().Changed("status") {
		return nil
	}
	status := userStatus
	return &status
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd, usersGetCmd, usersCreateCmd, usersUpdateCmd,
		usersDeleteCmd, usersBatchDeleteCmd, usersSearchCmd)

	for _, c := range []*cobra.Command{usersCreateCmd, usersUpdateCmd} {
		c.Flags().StringVarP(&userUsername, "username", "u", "", "username (3 to 50 characters)")
		c.Flags().StringVarP(&userPassword, "password", "p", "", "password (at least 6 characters)")
		c.Flags().StringVar(&userEmail, "email", "", "email address")
		c.Flags().StringVar(&userRole, "role", "", "role code, e.g. ADMIN or USER")
		c.Flags().IntVar(&userStatus, "status", 1, "1 for active, 0 for disabled")
	}

	usersSearchCmd.Flags().StringVarP(&searchUsername, "username", "u", "", "username keyword")
	usersSearchCmd.Flags().StringVar(&searchRole, "role", "", "role code")
}
