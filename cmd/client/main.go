package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kamikazebr/license-gateway/internal/client/api"
	"github.com/kamikazebr/license-gateway/internal/client/config"
	"github.com/kamikazebr/license-gateway/internal/client/ui"
	"github.com/kamikazebr/license-gateway/pkg/version"
	"github.com/spf13/cobra"
)

var serverOverride string

var rootCmd = &cobra.Command{
	Use:   "license-client",
	Short: "License Gateway client",
	Long: `Command line client for a License Gateway server.

Validate license keys against the public validation API, or sign in to
the console to issue, list and activate licenses.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersion("license-client"))
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage local client settings",
}

var configSetServerCmd = &cobra.Command{
	Use:   "set-server <url>",
	Short: "Set the server base URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.ServerURL != args[0] {
			cfg.ClearSession()
		}
		cfg.ServerURL = args[0]
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.SuccessStyle.Render("✓ Server set to " + args[0]))
		return nil
	},
}

var configSetAPIKeyCmd = &cobra.Command{
	Use:   "set-api-key <key>",
	Short: "Store the API key sent with validation requests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		cfg.APIKey = api.NormalizeAPIKey(args[0])
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.SuccessStyle.Render("✓ API key saved"))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		dir, _ := config.GetConfigDir()

		fmt.Println(ui.TitleStyle.Render("License client settings"))
		fmt.Println(ui.Field("Config dir", dir))
		fmt.Println(ui.Field("Server", cfg.ServerURL))
		fmt.Println(ui.Field("API key", maskSecret(cfg.APIKey)))
		switch {
		case !cfg.HasSession():
			fmt.Println(ui.Field("Session", "signed out"))
		case cfg.IsExpired():
			fmt.Println(ui.Field("Session", ui.WarningStyle.Render(cfg.Email+" (expired)")))
		default:
			fmt.Println(ui.Field("Session", fmt.Sprintf("%s (%s, %s left)", cfg.Email, cfg.Role, cfg.ExpiresIn().Round(time.Minute))))
		}
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the server and validation API are reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, client, err := loadClient()
		if err != nil {
			return err
		}
		if err := client.HealthCheck(); err != nil {
			fmt.Println(ui.WarningStyle.Render("! Health check failed: " + err.Error()))
		}

		probe, err := client.Probe()
		if err != nil {
			return err
		}
		fmt.Println(ui.SuccessStyle.Render("✓ " + probe.Message))
		fmt.Println(ui.Field("Version", probe.Version))
		fmt.Println(ui.Field("Server time", probe.Timestamp))
		for path, desc := range probe.Endpoints {
			fmt.Println(ui.Field("  "+path, desc))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverOverride, "server", "", "Server URL (overrides the saved setting)")
	configCmd.AddCommand(configSetServerCmd, configSetAPIKeyCmd, configShowCmd)
	rootCmd.AddCommand(versionCmd, configCmd, probeCmd)
}

// loadClient returns the saved settings and a client for the selected server.
func loadClient() (*config.Config, *api.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	url := cfg.ServerURL
	if serverOverride != "" {
		url = serverOverride
	}
	return cfg, api.NewClient(url), nil
}

// loadSession is loadClient for commands that need a console session.
func loadSession() (*config.Config, *api.Client, error) {
	cfg, client, err := loadClient()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.HasSession() {
		return nil, nil, fmt.Errorf("not signed in, run: license-client login")
	}
	if cfg.IsExpired() {
		return nil, nil, sessionError(api.ErrSessionExpired)
	}
	return cfg, client, nil
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "…" + s[len(s)-4:]
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
