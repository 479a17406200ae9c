package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rawlogin/adminctl/internal/console"
	"github.com/rawlogin/adminctl/pkg/api"
	apperrors "github.com/rawlogin/adminctl/pkg/errors"
)

var (
	loginUsername string
	loginPassword string
	loginRemember bool

	registerUsername string
	registerPassword string
	registerEmail    string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the admin API",
	Long: `Log in with a username and password. Missing values are read from stdin.
The credential returned by the server is stored and used by later commands.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, err := prompt(cmd, "Username", loginUsername)
		if err != nil {
			return err
		}
		password, err := prompt(cmd, "Password", loginPassword)
		if err != nil {
			return err
		}

		req := api.LoginRequest{Username: username, Password: password, Remember: loginRemember}
		if err := api.Validate(req); err != nil {
			return err
		}

		result, err := current.console.Login(cmd.Context(), req.Username, req.Password, req.Remember)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}
		if result.Data.Token == "" {
			return fmt.Errorf("login succeeded but the server returned no credential")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s mode)\n", current.console.User().Username, current.cfg.AuthMode)
		return nil
	},
}

// registerCmd represents the register command
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, err := prompt(cmd, "Username", registerUsername)
		if err != nil {
			return err
		}
		password, err := prompt(cmd, "Password", registerPassword)
		if err != nil {
			return err
		}

		req := api.RegisterRequest{Username: username, Password: password, Email: registerEmail}
		if err := api.Validate(req); err != nil {
			return err
		}

		result, err := current.console.Register(cmd.Context(), req.Username, req.Password, req.Email)
		if err != nil {
			return err
		}
		if err := checkResult(result); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s, log in with: adminctl login -u %s\n", result.Data.Username, result.Data.Username)
		return nil
	},
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Long:  `End the session on the server. The local credential is removed even when the server cannot be reached.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := current.console.Logout(cmd.Context())
		if err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Local session cleared")
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

// whoamiCmd represents the whoami command
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the user of the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := current.console.Resume(cmd.Context())
		if err != nil {
			return err
		}
		if state != console.StateAuthenticated {
			return apperrors.NewNormalizedError(apperrors.KindUnauthorized, 0, "not logged in", nil)
		}

		printUser(cmd.OutOrStdout(), *current.console.User())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)

	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "password (read from stdin when omitted)")
	loginCmd.Flags().BoolVar(&loginRemember, "remember", false, "ask the server to remember the login")

	registerCmd.Flags().StringVarP(&registerUsername, "username", "u", "", "username (3 to 50 characters)")
	registerCmd.Flags().StringVarP(&registerPassword, "password", "p", "", "password (at least 6 characters)")
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "email address")
}
