package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/theakshaypant/calmerge/internal/api"
	"github.com/theakshaypant/calmerge/internal/core"
	"github.com/theakshaypant/calmerge/internal/secrets"
	"github.com/theakshaypant/calmerge/internal/session"
	"github.com/theakshaypant/calmerge/internal/store"
)

// appContext is the backend wiring shared by every command.
type appContext struct {
	creds   core.CredentialStore
	client  *api.Client
	store   *store.Store
	session *session.Session
	alerts  *cliAlerter
	// logFile is set while the TUI logs to a file
	logFile *os.File
}

// closeLog closes the TUI log file, if any.
func (a *appContext) closeLog() error {
	if a.logFile == nil {
		return nil
	}
	err := a.logFile.Close()
	a.logFile = nil
	return err
}

func newApp() (*appContext, error) {
	creds, err := secrets.Open(viper.GetString("token_store"), expandPath(viper.GetString("token_file")))
	if err != nil {
		return nil, err
	}

	alerts := &cliAlerter{}
	client := api.New(
		viper.GetString("api_url"),
		creds,
		api.WithTimeout(viper.GetDuration("timeout")),
		api.WithAlerter(alerts),
	)

	return &appContext{
		creds:  creds,
		client: client,
		store:  store.New(client, store.WithActiveSources(activeSources())),
		session: session.New(client, creds,
			session.WithCallbackPort(viper.GetInt("callback_port"))),
		alerts: alerts,
	}, nil
}

// cliAlerter prints failures the user should see right away and remembers
// them so Execute does not print them a second time. The TUI redirects it
// into its alert modal.
type cliAlerter struct {
	mu       sync.Mutex
	seen     []error
	redirect func(error)
}

func (a *cliAlerter) Alert(err error) {
	a.mu.Lock()
	a.seen = append(a.seen, err)
	redirect := a.redirect
	a.mu.Unlock()

	if redirect != nil {
		redirect(err)
		return
	}
	fmt.Fprintf(os.Stderr, "⚠️  %s\n", alertText(err))
}

// Redirect sends later alerts to fn instead of stderr.
func (a *cliAlerter) Redirect(fn func(error)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.redirect = fn
}

func (a *cliAlerter) shown(err error) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.seen {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// alertText turns a failure into one line for a person.
func alertText(err error) string {
	var (
		apiErr  *api.Error
		netErr  *api.TransportError
		cfgErr  *api.ConfigError
		rejects *api.RejectedError
	)
	switch {
	case errors.Is(err, api.ErrNotSignedIn):
		return "You are not signed in. Run 'calmerge login' first."
	case errors.As(err, &apiErr) && apiErr.Status == 401:
		return "Your session has expired. Run 'calmerge login' again."
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Server error: %s", apiErr.Message)
	case errors.As(err, &netErr):
		return "Could not reach the calendar server. Check your connection and api_url."
	case errors.As(err, &cfgErr):
		return strings.TrimPrefix(cfgErr.Error(), "api configuration: ")
	case errors.As(err, &rejects):
		return rejects.Error()
	default:
		return err.Error()
	}
}
