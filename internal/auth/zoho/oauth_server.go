package zoho

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// CallbackResult captures the outcome of the local OAuth callback.
type CallbackResult struct {
	Code  string
	State string
	Error string
}

// CallbackServer provides a minimal HTTP server for receiving the OAuth
// redirect during the one-time authorization flow. The listen port and
// callback path are derived from the configured redirect URI.
type CallbackServer struct {
	server    *http.Server
	addr      string
	boundAddr string
	path      string
	result    chan *CallbackResult
	errChan   chan error
	mu        sync.Mutex
	running   bool
}

// NewCallbackServer constructs a callback server for the given redirect URI,
// e.g. http://localhost:8080/oauth/callback.
func NewCallbackServer(redirectURI string) (*CallbackServer, error) {
	parsed, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("zoho auth: invalid redirect URI %q: %w", redirectURI, err)
	}
	host := parsed.Host
	if parsed.Port() == "" {
		host = net.JoinHostPort(parsed.Hostname(), "80")
	}
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	return &CallbackServer{
		addr:    host,
		path:    path,
		result:  make(chan *CallbackResult, 1),
		errChan: make(chan error, 1),
	}, nil
}

// Start launches the callback listener.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("zoho auth: callback server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("zoho auth: listen on %s failed: %w", s.addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleCallback)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.boundAddr = listener.Addr().String()
	s.running = true

	go func() {
		if errServe := s.server.Serve(listener); errServe != nil && errServe != http.ErrServerClosed {
			s.errChan <- errServe
		}
	}()
	return nil
}

// Addr returns the bound listen address once Start has succeeded.
func (s *CallbackServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundAddr
}

// Stop gracefully terminates the callback listener.
func (s *CallbackServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.server == nil {
		return nil
	}
	defer func() {
		s.running = false
		s.server = nil
	}()
	return s.server.Shutdown(ctx)
}

// WaitForCallback blocks until a callback result, server error, or timeout
// occurs.
func (s *CallbackServer) WaitForCallback(timeout time.Duration) (*CallbackResult, error) {
	select {
	case res := <-s.result:
		return res, nil
	case err := <-s.errChan:
		return nil, err
	case <-time.After(timeout):
		return nil, fmt.Errorf("zoho auth: timeout waiting for OAuth callback")
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	res := &CallbackResult{
		Code:  strings.TrimSpace(query.Get("code")),
		State: strings.TrimSpace(query.Get("state")),
		Error: strings.TrimSpace(query.Get("error")),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if res.Error != "" || res.Code == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, "<html><body><h3>Authorization failed.</h3>You can close this window.</body></html>")
	} else {
		_, _ = fmt.Fprint(w, "<html><body><h3>Authorization complete.</h3>You can close this window.</body></html>")
	}

	select {
	case s.result <- res:
	default:
		// A result was already delivered; ignore duplicates.
	}
}
