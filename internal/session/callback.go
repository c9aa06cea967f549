package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/theakshaypant/calmerge/internal/core"
)

var (
	// ErrCallbackIgnored is returned for a callback that arrives when no
	// login is waiting for one, e.g. a second callback for a finished login.
	ErrCallbackIgnored = errors.New("login callback ignored: no login in progress")

	// ErrNoToken means a callback carried neither a token nor an error.
	ErrNoToken = errors.New("login callback has no token")
)

// Callback is the result of a browser based sign-in, delivered by the
// backend as query parameters on the redirect URL.
type Callback struct {
	Token string
	User  core.User
	// Err is set when the provider or backend reported a failure.
	Err error
}

// ParseCallback reads token and user from a callback URL. user is a JSON
// object; plain email and name parameters are accepted as well.
func ParseCallback(u *url.URL) (Callback, error) {
	q := u.Query()
	if msg := firstNonEmpty(q.Get("error_description"), q.Get("error")); msg != "" {
		return Callback{Err: fmt.Errorf("authorization failed: %s", msg)}, nil
	}

	cb := Callback{Token: firstNonEmpty(q.Get("token"), q.Get("access_token"))}
	if cb.Token == "" {
		return Callback{}, ErrNoToken
	}

	if raw := q.Get("user"); raw != "" {
		var user struct {
			ID    any    `json:"id"`
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return Callback{}, fmt.Errorf("decode callback user: %w", err)
		}
		cb.User = core.User{Email: user.Email, Name: user.Name}
		if user.ID != nil {
			cb.User.ID = fmt.Sprint(user.ID)
		}
	}
	if cb.User.Email == "" {
		cb.User.Email = q.Get("email")
	}
	if cb.User.Name == "" {
		cb.User.Name = q.Get("name")
	}
	return cb, nil
}

// ParseDeepLink parses a raw callback URL such as
// calmerge://auth/callback?token=...&user=....
func ParseDeepLink(raw string) (Callback, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Callback{}, fmt.Errorf("parse callback url: %w", err)
	}
	return ParseCallback(u)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
