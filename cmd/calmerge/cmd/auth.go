package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/theakshaypant/calmerge/internal/core"
	"github.com/theakshaypant/calmerge/internal/session"
	"github.com/theakshaypant/calmerge/internal/util"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to your calendar backend",
	Long: `Sign in with your email and password, or with Google.

With --google:
  1. Starts a local server to receive the sign-in callback
  2. Opens your browser to sign in with Google
  3. Saves the session for future use

Missing email or password values are prompted for.`,
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the account of the stored session",
	RunE:  runWhoami,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication helpers",
}

var authCallbackCmd = &cobra.Command{
	Use:   "callback <url>",
	Short: "Complete a browser sign-in from a callback URL",
	Long: `Complete a browser sign-in by handing over the callback URL the backend
redirected to, for example when the operating system delivers a
calmerge:// link instead of the local callback server.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthCallback,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authCallbackCmd)

	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().String("email", "", "Account email")
		c.Flags().String("password", "", "Account password (prompted when omitted)")
	}
	loginCmd.Flags().Bool("google", false, "Sign in with Google in your browser")
	registerCmd.Flags().String("name", "", "Display name")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if google, _ := cmd.Flags().GetBool("google"); google {
		return runGoogleLogin(cmd)
	}

	email, password, err := credentialsFromFlags(cmd)
	if err != nil {
		return err
	}

	user, err := app.session.Login(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	printSignedIn(user)
	return nil
}

func runGoogleLogin(cmd *cobra.Command) error {
	fmt.Println("🔐 Opening browser for Google sign-in...")
	fmt.Println()

	user, err := app.session.LoginWithGoogle(cmd.Context(), func(authURL string) {
		if err := util.OpenBrowser(authURL); err != nil {
			fmt.Println("⚠️  Couldn't open browser automatically.")
			fmt.Println("   Please open this URL manually:")
			fmt.Println(authURL)
		}
		fmt.Println("⏳ Waiting for authorization...")
	})
	if err != nil {
		return fmt.Errorf("google sign-in failed: %w", err)
	}

	printSignedIn(user)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	email, password, err := credentialsFromFlags(cmd)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")

	user, err := app.session.Register(cmd.Context(), email, password, name)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Println("\n✅ Account created!")
	printSignedIn(user)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := app.session.Logout(); err != nil {
		return err
	}
	fmt.Println("✓ Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	user, err := app.session.Stored()
	if errors.Is(err, core.ErrNoCredentials) {
		fmt.Println("Not signed in. Run 'calmerge login' to sign in.")
		return nil
	}
	if err != nil {
		return err
	}

	if ok, err := emit(user); ok || err != nil {
		return err
	}

	fmt.Printf("👤 %s\n", displayName(user))
	if user.ID != "" {
		fmt.Printf("🆔 ID: %s\n", user.ID)
	}
	return nil
}

func runAuthCallback(cmd *cobra.Command, args []string) error {
	err := app.session.HandleDeepLink(args[0])
	if errors.Is(err, session.ErrCallbackIgnored) {
		fmt.Println("Already signed in; callback ignored.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}

	_, user := app.session.Current()
	printSignedIn(user)
	return nil
}

func printSignedIn(user core.User) {
	fmt.Println("\n✅ Signed in!")
	fmt.Printf("👤 %s\n", displayName(user))
	fmt.Println("\nYou can now run 'calmerge' to see your events.")
}

func displayName(user core.User) string {
	switch {
	case user.Name != "" && user.Email != "":
		return fmt.Sprintf("%s <%s>", user.Name, user.Email)
	case user.Email != "":
		return user.Email
	case user.Name != "":
		return user.Name
	default:
		return "(unknown user)"
	}
}

// credentialsFromFlags reads --email and --password, prompting for the
// ones that are missing.
func credentialsFromFlags(cmd *cobra.Command) (string, string, error) {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	var err error
	if email == "" {
		if email, err = promptLine("Email: "); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = promptSecret("Password: "); err != nil {
			return "", "", err
		}
	}
	return email, password, nil
}

var stdinReader = bufio.NewReader(os.Stdin)

func promptLine(label string) (string, error) {
	fmt.Print(label)
	line, err := stdinReader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads without echo when stdin is a terminal.
func promptSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLine(label)
	}
	fmt.Print(label)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
