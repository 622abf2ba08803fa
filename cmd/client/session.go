package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kamikazebr/license-gateway/internal/client/api"
	"github.com/kamikazebr/license-gateway/internal/client/ui"
	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the console",
	Long: `Sign in to the License Gateway console and store the session token.

The password is read from stdin when --password is omitted.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadClient()
		if err != nil {
			return err
		}
		cfg.ClearSession()
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.SuccessStyle.Render("✓ Signed out"))
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, client, err := loadSession()
		if err != nil {
			return err
		}
		me, err := client.CurrentUser(cfg.JWT)
		if err != nil {
			return sessionError(err)
		}
		fmt.Println(ui.TitleStyle.Render(me.User.Email))
		fmt.Println(ui.Field("ID", me.User.ID))
		fmt.Println(ui.Field("Name", me.User.Profile.FullName))
		fmt.Println(ui.Field("Company", me.User.Profile.Company))
		fmt.Println(ui.Field("Role", me.User.Profile.Role))
		fmt.Println(ui.Field("Session expires", cfg.ExpiresAt.Local().Format(time.RFC1123)))
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, client, err := loadClient()
	if err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)
	email := loginEmail
	if email == "" {
		if email, err = prompt(in, "Email: "); err != nil {
			return err
		}
	}
	password := loginPassword
	if password == "" {
		if password, err = prompt(in, "Password: "); err != nil {
			return err
		}
	}

	resp, err := client.SignIn(email, password)
	if err != nil {
		return err
	}
	if resp.Session == nil {
		return errors.New("server did not return a session")
	}
	expiresAt, err := time.Parse(time.RFC3339, resp.Session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("invalid session expiry %q: %w", resp.Session.ExpiresAt, err)
	}

	if serverOverride != "" {
		cfg.ServerURL = serverOverride
	}
	cfg.Email = resp.User.Email
	cfg.Role = resp.User.Profile.Role
	cfg.JWT = resp.Session.AccessToken
	cfg.ExpiresAt = expiresAt
	if err := cfg.Save(); err != nil {
		return err
	}

	fmt.Println(ui.SuccessStyle.Render(fmt.Sprintf("✓ Signed in as %s (%s)", cfg.Email, cfg.Role)))
	return nil
}

func prompt(in *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.TrimSuffix(strings.TrimSpace(label), ":"))
	}
	return line, nil
}

// sessionError points the user at login when the server dropped the session.
func sessionError(err error) error {
	if errors.Is(err, api.ErrSessionExpired) {
		return fmt.Errorf("%w (run: license-client login)", err)
	}
	return err
}
