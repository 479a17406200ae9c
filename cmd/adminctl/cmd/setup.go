package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rawlogin/adminctl/internal/config"
)

// setupCmd writes a starter configuration file
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create a default adminctl configuration",
	Long: `Create a default configuration file and show the settings in effect.

Examples:
  # Create ~/.adminctl/.adminctl.yaml with defaults
  adminctl setup

  # Point the configuration at another server
  adminctl setup --api-url http://admin.internal:8080/myfirst`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipApp: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		path, err := config.CreateDefaultConfig(cfgFile, apiURL)
		switch {
		case errors.Is(err, config.ErrConfigExists):
			fmt.Fprintf(out, "Configuration already exists at %s\n\n", path)
		case err != nil:
			return fmt.Errorf("failed to create configuration: %w", err)
		default:
			fmt.Fprintf(out, "Created default configuration at %s\n\n", path)
		}

		loader := newLoader()
		loader.SetConfigFile(path)
		cfg, err := loader.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		fmt.Fprintf(out, "Current Configuration:\n")
		fmt.Fprintf(out, "======================\n")
		fmt.Fprintf(out, "API URL:          %s\n", cfg.APIURL)
		fmt.Fprintf(out, "Auth mode:        %s\n", cfg.AuthMode)
		if cfg.AuthMode == "cookie" {
			fmt.Fprintf(out, "Session cookie:   %s\n", cfg.SessionCookie)
		}
		fmt.Fprintf(out, "Timeout:          %ds\n", cfg.Timeout)
		fmt.Fprintf(out, "Credential store: %s (%s)\n", cfg.CredentialStore, cfg.CredentialPath)
		fmt.Fprintf(out, "Log level:        %s\n\n", cfg.LogLevel)

		fmt.Fprintf(out, "Next Steps:\n")
		fmt.Fprintf(out, "1. Make sure the admin API is running at: %s\n", cfg.APIURL)
		fmt.Fprintf(out, "2. Log in: adminctl login\n")
		fmt.Fprintf(out, "3. List users: adminctl users list\n\n")
		fmt.Fprintf(out, "Use ADMINCTL_* environment variables to override settings\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
