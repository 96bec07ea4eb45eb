package google

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// CallbackServer is a loopback HTTP server for the desktop OAuth flow:
// it receives the redirect with the authorization code when no API
// server is running to take it.
type CallbackServer struct {
	server   *http.Server
	listener net.Listener
	port     int
	state    string
	codeChan chan string
	errChan  chan error
	mu       sync.Mutex
}

// NewCallbackServer listens on a random loopback port.
func NewCallbackServer() (*CallbackServer, error) {
	listener, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}

	s := &CallbackServer{
		listener: listener,
		port:     listener.Addr().(*net.TCPAddr).Port,
		state:    randomState(),
		codeChan: make(chan string, 1),
		errChan:  make(chan error, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)
	s.server = &http.Server{Handler: mux}

	return s, nil
}

// Start starts serving in the background.
func (s *CallbackServer) Start() {
	go func() {
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			log.Printf("oauth callback server error: %v", err)
		}
	}()
}

// Stop shuts the server down.
func (s *CallbackServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		s.server.Shutdown(context.Background())
	}
}

// RedirectURL returns the loopback callback URL for the oauth config.
func (s *CallbackServer) RedirectURL() string {
	return fmt.Sprintf("http://localhost:%d/callback", s.port)
}

// State returns the anti-forgery state the redirect must echo.
func (s *CallbackServer) State() string {
	return s.state
}

// WaitForCode blocks until the redirect delivers a code or ctx expires.
func (s *CallbackServer) WaitForCode(ctx context.Context) (string, error) {
	select {
	case code := <-s.codeChan:
		return code, nil
	case err := <-s.errChan:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("state") != s.state {
		s.errChan <- fmt.Errorf("oauth state mismatch")
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errMsg := r.URL.Query().Get("error")
		if errMsg == "" {
			errMsg = "no authorization code received"
		}
		s.errChan <- fmt.Errorf("oauth error: %s", errMsg)
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	s.codeChan <- code

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, SuccessPage)
}

// Authorize runs the full desktop flow: spin the loopback server, print
// the consent URL for the user to open, wait for the redirect, exchange
// the code. The caller persists the returned token.
func Authorize(ctx context.Context, cfg Config) (*oauth2.Token, error) {
	srv, err := NewCallbackServer()
	if err != nil {
		return nil, err
	}
	srv.Start()
	defer srv.Stop()

	cfg.RedirectURL = srv.RedirectURL()
	oauth := NewOAuthConfig(cfg)

	fmt.Printf("Open this URL in your browser to connect Google Calendar:\n\n%s\n\n", AuthURL(oauth, srv.State()))

	code, err := srv.WaitForCode(ctx)
	if err != nil {
		return nil, err
	}

	token, err := oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return token, nil
}

func randomState() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// SuccessPage is shown in the browser once the code is captured. The
// server-side callback endpoint serves the same page.
const SuccessPage = `
<!DOCTYPE html>
<html>
<head>
	<title>Jarvis - Authorization Successful</title>
	<style>
		body {
			font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
			display: flex;
			justify-content: center;
			align-items: center;
			height: 100vh;
			margin: 0;
			background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
			color: white;
		}
		.container {
			text-align: center;
			padding: 40px;
			background: rgba(255,255,255,0.1);
			border-radius: 16px;
			backdrop-filter: blur(10px);
		}
		h1 { font-size: 2em; margin-bottom: 16px; }
		p { font-size: 1.2em; opacity: 0.9; }
	</style>
</head>
<body>
	<div class="container">
		<h1>Authorization Successful!</h1>
		<p>You can close this window and return to Jarvis.</p>
	</div>
</body>
</html>
`
