package session

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"time"
)

// CallbackPath is where the backend redirects after a browser sign-in.
const CallbackPath = "/callback"

// DefaultCallbackPort is the loopback port registered with the backend.
const DefaultCallbackPort = 8085

// Listener is the loopback HTTP server that receives the browser redirect
// at the end of a Google sign-in and publishes it on the bus.
type Listener struct {
	port   int
	bus    *Bus
	ln     net.Listener
	server *http.Server
	errs   chan error
}

// NewListener prepares a listener on localhost:port. Port 0 picks a free
// port.
func NewListener(port int, bus *Bus) *Listener {
	return &Listener{port: port, bus: bus, errs: make(chan error, 1)}
}

// Start binds the port and begins serving.
func (l *Listener) Start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort("localhost", strconv.Itoa(l.port)))
	if err != nil {
		return fmt.Errorf("start callback listener: %w", err)
	}
	l.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, l.handleCallback)
	l.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.errs <- err
		}
	}()
	return nil
}

// RedirectURI is the callback URL to hand to the backend.
func (l *Listener) RedirectURI() string {
	port := l.port
	if l.ln != nil {
		port = l.ln.Addr().(*net.TCPAddr).Port
	}
	return fmt.Sprintf("http://localhost:%d%s", port, CallbackPath)
}

// Errors reports a server that stopped unexpectedly.
func (l *Listener) Errors() <-chan error { return l.errs }

// Close shuts the server down.
func (l *Listener) Close() error {
	if l.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return l.server.Shutdown(ctx)
}

func (l *Listener) handleCallback(w http.ResponseWriter, r *http.Request) {
	cb, err := ParseCallback(r.URL)
	if err != nil {
		cb = Callback{Err: err}
	}
	err = l.bus.Publish(cb)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := resultPage{Title: "Signed in", Message: "You can close this window and return to the terminal."}
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		page = resultPage{Title: "Sign-in failed", Message: err.Error(), Failed: true}
	}
	_ = resultTemplate.Execute(w, page)
}

type resultPage struct {
	Title   string
	Message string
	Failed  bool
}

var resultTemplate = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>{{.Title}}</title>
	<style>
		body { font-family: -apple-system, sans-serif; display: flex;
		       justify-content: center; align-items: center; height: 100vh;
		       margin: 0; background: #1a1a1a; color: #fff; }
		.card { background: #2d2d2d; padding: 40px; border-radius: 12px;
		        box-shadow: 0 2px 10px rgba(0,0,0,0.3); text-align: center; }
		h1 { color: {{if .Failed}}#f87171{{else}}#4ade80{{end}}; margin-bottom: 10px; }
		p { color: #a1a1aa; }
	</style>
</head>
<body>
	<div class="card">
		<h1>{{.Title}}</h1>
		<p>{{.Message}}</p>
	</div>
</body>
</html>
`))
