package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rawlogin/adminctl/pkg/api"
	apperrors "github.com/rawlogin/adminctl/pkg/errors"
)

// Version is set at build time.
var Version = "dev"

// Exit codes.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitUsage        = 2
	ExitUnauthorized = 3
	ExitNetwork      = 4
)

var (
	cfgFile         string
	apiURL          string
	authMode        string
	timeoutSeconds  int
	credentialStore string
	credentialPath  string
	logLevel        string
	logFormat       string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "adminctl",
	Short: "Command-line console for the user and role admin API",
	Long: `adminctl manages users, roles and role assignments through the admin API.

Log in once with "adminctl login"; the session credential is kept in the
configured credential store and attached to every following command.

Configuration is read from ~/.adminctl/.adminctl.yaml (create one with
"adminctl setup"), ADMINCTL_* environment variables and the flags below.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeApp()
	},
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle (setupApp -> newLoader -> rootCmd).
	rootCmd.PersistentPreRunE = setupApp

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default searches ~/.adminctl/.adminctl.yaml)")
	flags.StringVar(&apiURL, "api-url", "", "admin API base URL")
	flags.StringVar(&authMode, "auth-mode", "", "auth mode: bearer or cookie")
	flags.IntVar(&timeoutSeconds, "timeout", 0, "per-request timeout in seconds")
	flags.StringVar(&credentialStore, "credential-store", "", "credential store: file, sqlite or memory")
	flags.StringVar(&credentialPath, "credential-path", "", "credential file or database path")
	flags.StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", "", "log format: text or json")

	rootCmd.Version = Version
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return run(rootCmd, os.Stderr)
}

func run(cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.Execute()
	closeApp()
	if err == nil {
		return ExitOK
	}

	fmt.Fprintf(stderr, "Error: %s\n", err.Error())
	if apperrors.IsRetryable(err) {
		fmt.Fprintln(stderr, "This looks temporary, try the command again.")
	}
	return exitCode(err)
}

// exitCode derives the process exit code from the error kind.
func exitCode(err error) int {
	var verr *api.ValidationError
	if errors.As(err, &verr) {
		return ExitUsage
	}

	if apperrors.GetErrorDomain(err) != apperrors.DomainHTTP {
		return ExitFailure
	}

	switch apperrors.Kind(apperrors.GetErrorCode(err)) {
	case apperrors.KindUnauthorized:
		return ExitUnauthorized
	case apperrors.KindNetworkError:
		return ExitNetwork
	default:
		return ExitFailure
	}
}
