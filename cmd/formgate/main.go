package main

import (
	"fmt"
	"formgate/internal/config"
	"formgate/internal/version"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "formgate",
		Short: "Form submission gateway for static websites",
		Long: `formgate accepts contact and newsletter form submissions from a static
site, rate limits them per client, validates and sanitizes every field and
forwards accepted submissions by email.

Running formgate without a subcommand starts the server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Dotenv file loaded before the environment is read")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the form gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage formgate configuration",
	}

	configExampleCmd := &cobra.Command{
		Use:   "example [path]",
		Short: "Write an example configuration file",
		Long: `Write an example configuration with every setting at its default.
Credentials are left empty; set RESEND_API_KEY or SMTP_PASS instead.

Example:
  formgate config example                  # writes formgate.example.yaml
  formgate config example /etc/formgate.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "formgate.example.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.SaveExample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Example configuration written to %s\n", path)
			return nil
		},
	}

	configCheckCmd := &cobra.Command{
		Use:   "check",
		Short: "Load and validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile, opts.envFile)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration OK (listen %s:%d, notifier %s)\n",
				cfg.Server.Host, cfg.Server.Port, cfg.Notifier.Provider)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetInfo().String())
		},
	}

	configCmd.AddCommand(configExampleCmd, configCheckCmd)
	rootCmd.AddCommand(serveCmd, configCmd, versionCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
