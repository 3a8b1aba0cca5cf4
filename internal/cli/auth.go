package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fyers-orb-bot/pkg/utils"
)

// addAuthCommands adds the auth command group.
func addAuthCommands(rootCmd *cobra.Command, app *App) {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage FYERS authentication",
	}

	authCmd.AddCommand(newLoginCmd(app))
	authCmd.AddCommand(newLogoutCmd(app))
	authCmd.AddCommand(newAuthStatusCmd(app))
	authCmd.AddCommand(newTOTPCmd(app))

	rootCmd.AddCommand(authCmd)
}

func newLoginCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to FYERS",
		Long: `Login to FYERS.

Prints the authorization URL to visit and waits for the auth_code from
the redirect. Pass --code to skip the prompt.`,
		Example: `  orb-bot auth login
  orb-bot auth login --code=<auth_code>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			if app.Auth.IsAuthenticated() {
				output.Success("Already logged in with a valid token")
				return nil
			}

			code, _ := cmd.Flags().GetString("code")
			if code != "" {
				if err := app.Auth.ExchangeCode(ctx, code); err != nil {
					output.Error("Login failed: %v", err)
					return err
				}
				output.Success("Login successful, token stored")
				return nil
			}

			provider := &promptCodeProvider{output: output, loginURL: app.Auth.LoginURL()}
			if err := app.Auth.Login(ctx, provider); err != nil {
				output.Error("Login failed: %v", err)
				return err
			}
			output.Success("Login successful, token stored")
			return nil
		},
	}

	cmd.Flags().String("code", "", "authorization code from the redirect URI")
	return cmd
}

// promptCodeProvider walks the user through the auth-code grant on the
// terminal.
type promptCodeProvider struct {
	output   *Output
	loginURL string
}

func (p *promptCodeProvider) ObtainAuthCode(ctx context.Context) (string, error) {
	p.output.Info("Visit the URL below and approve access:")
	p.output.Println()
	p.output.Println("  " + p.loginURL)
	p.output.Println()
	p.output.Printf("Paste the auth_code from the redirect URL: ")

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			errCh <- err
			return
		}
		codeCh <- strings.TrimSpace(line)
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errCh:
		return "", err
	case code := <-codeCh:
		if code == "" {
			return "", fmt.Errorf("empty auth code")
		}
		return code, nil
	}
}

func newTOTPCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "totp",
		Short: "Print the current TOTP code",
		Long: `Print the current TOTP code for the configured totp_secret,
for use during the FYERS web login.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			code, err := app.Auth.TOTPNow()
			if err != nil {
				output.Error("TOTP unavailable: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"totp": code})
			}
			output.Println(code)
			return nil
		},
	}
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored FYERS tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Auth.Logout(); err != nil {
				output.Error("Logout failed: %v", err)
				return err
			}
			output.Success("Logged out")
			return nil
		},
	}
}

func newAuthStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			authenticated := app.Auth.IsAuthenticated()
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"authenticated": authenticated,
					"app_id":        app.Config.Credentials.Fyers.AppID,
				})
			}

			if !authenticated {
				output.Warning("Not authenticated. Run 'orb-bot auth login'.")
				return nil
			}

			output.Success("Authenticated")

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			profile, err := app.Client.GetProfile(ctx)
			if err != nil {
				output.Warning("Token present but profile fetch failed: %v", err)
				return nil
			}
			output.Printf("Profile: %s\n", fmt.Sprintf("%v", profile["data"]))

			if funds, err := app.Client.GetFunds(ctx); err == nil {
				if available, ok := funds.FundsAvailable(); ok {
					output.Printf("Available funds: %s\n", utils.FormatIndianCurrency(available))
				}
			}
			return nil
		},
	}
}
