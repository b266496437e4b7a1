// Package main provides the entry point for the CRM bridge. It drives the
// one-time OAuth authorization flow, keeps the persisted credential fresh,
// and prints the MCP connection details for the active CRM so an agent
// runtime can attach to its tool server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/crmbridge/crmbridge/internal/auth/zoho"
	"github.com/crmbridge/crmbridge/internal/browser"
	"github.com/crmbridge/crmbridge/internal/config"
	"github.com/crmbridge/crmbridge/internal/crm"
	"github.com/crmbridge/crmbridge/internal/logging"
	"github.com/crmbridge/crmbridge/internal/misc"
	"github.com/crmbridge/crmbridge/internal/watcher"
)

const callbackWait = 5 * time.Minute

func init() {
	logging.SetupBaseLogger()
}

func main() {
	var login bool
	var status bool
	var noBrowser bool
	var code string
	var configPath string

	flag.BoolVar(&login, "login", false, "Run the one-time OAuth authorization flow")
	flag.StringVar(&code, "code", "", "Exchange a pasted authorization code or callback URL for tokens")
	flag.BoolVar(&status, "status", false, "Report authentication status and token expiry")
	flag.BoolVar(&noBrowser, "no-browser", false, "Do not open a browser; print the consent URL instead")
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	// Load .env values before the config reads the environment.
	if err := godotenv.Load(); err == nil {
		log.Debug("loaded environment from .env")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logging.ConfigureFileOutput(cfg.LoggingDir, cfg.Debug)

	store := zoho.NewTokenStore(cfg.Zoho.TokenFile)
	endpoint := zoho.NewZohoAuth(cfg)
	manager := zoho.NewTokenManager(endpoint, store, zoho.Options{
		RefreshBuffer: time.Duration(cfg.Zoho.RefreshBufferSeconds) * time.Second,
		AlwaysRefresh: cfg.Zoho.AlwaysRefresh,
	})

	ctx := logging.WithRequestID(context.Background(), logging.GenerateRequestID())

	switch {
	case login:
		err = runLogin(ctx, cfg, manager, noBrowser)
	case code != "":
		err = runExchange(ctx, manager, code)
	case status:
		runStatus(ctx, manager)
	default:
		err = runConnect(ctx, cfg, manager, store)
	}
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// runLogin drives the full consent flow: a local callback server catches the
// redirect while the operator approves access in a browser.
func runLogin(ctx context.Context, cfg *config.Config, manager *zoho.TokenManager, noBrowser bool) error {
	callbackServer, err := zoho.NewCallbackServer(cfg.Zoho.RedirectURI)
	if err != nil {
		return err
	}
	if err = callbackServer.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = callbackServer.Stop(shutdownCtx)
	}()

	authURL := manager.GetAuthorizationURL()

	if !noBrowser && browser.IsAvailable() {
		fmt.Println("Opening browser for Zoho authorization")
		if errOpen := browser.OpenURL(authURL); errOpen != nil {
			log.Warnf("failed to open browser automatically: %v", errOpen)
			printAuthURL(authURL)
		}
	} else {
		printAuthURL(authURL)
	}

	fmt.Println("Waiting for authorization...")
	result, err := callbackServer.WaitForCallback(callbackWait)
	if err != nil {
		return err
	}
	if result.Error != "" {
		return fmt.Errorf("authorization was denied: %s", result.Error)
	}

	record, err := manager.ExchangeCodeForTokens(ctx, result.Code)
	if err != nil {
		return err
	}

	fmt.Println("Zoho authorization successful")
	fmt.Printf("Access token valid until %s\n", record.ExpiryTime().Format(time.RFC3339))
	return nil
}

// runExchange handles headless hosts: the operator visits the consent URL
// elsewhere and pastes the code or the full callback URL here.
func runExchange(ctx context.Context, manager *zoho.TokenManager, input string) error {
	callback, err := misc.ParseOAuthCallback(input)
	if err != nil {
		return fmt.Errorf("could not parse authorization code: %w", err)
	}
	if callback == nil || callback.Code == "" {
		return errors.New("no authorization code supplied")
	}
	if callback.Error != "" {
		return fmt.Errorf("authorization was denied: %s", callback.Error)
	}

	record, err := manager.ExchangeCodeForTokens(ctx, callback.Code)
	if err != nil {
		return err
	}
	fmt.Println("Zoho authorization successful")
	fmt.Printf("Access token valid until %s\n", record.ExpiryTime().Format(time.RFC3339))
	return nil
}

func runStatus(ctx context.Context, manager *zoho.TokenManager) {
	record := manager.CurrentRecord()
	if record == nil {
		fmt.Println("Not authenticated: no token record held")
		return
	}
	fmt.Printf("Token record present, expires at %s\n", record.ExpiryTime().Format(time.RFC3339))
	if manager.IsAuthenticated(ctx) {
		fmt.Println("Authentication status: OK")
	} else {
		fmt.Println("Authentication status: re-authorization required (run with -login)")
	}
}

// runConnect resolves the active CRM adapter and prints the MCP connection
// details an agent runtime needs, refreshing the access token if necessary.
func runConnect(ctx context.Context, cfg *config.Config, manager *zoho.TokenManager, store *zoho.TokenStore) error {
	// Pick up token rewrites from other processes while running.
	tokenWatcher := watcher.NewTokenFileWatcher(store.Path(), manager)
	if err := tokenWatcher.Start(ctx); err != nil {
		log.Warnf("token file watcher unavailable: %v", err)
	} else {
		defer tokenWatcher.Stop()
	}

	adapter, connectorID, err := crm.Load(cfg, manager)
	if err != nil {
		return err
	}

	conn, err := adapter.ConnectionConfig(ctx)
	if err != nil {
		var reauth *zoho.ReauthorizationRequiredError
		if errors.As(err, &reauth) {
			fmt.Println("Re-authorization is required before connecting.")
			fmt.Println("1. Visit the URL below and approve access")
			fmt.Println("2. Re-run with -login, or paste the callback URL via -code")
			printAuthURL(reauth.AuthorizationURL)
		}
		return err
	}

	fmt.Printf("CRM server:  %s (connector %s)\n", adapter.ServerName(), connectorID)
	fmt.Printf("Transport:   %s\n", conn.Transport)
	fmt.Printf("URL:         %s\n", conn.URL)
	if _, ok := conn.Headers["Authorization"]; ok {
		fmt.Println("Auth:        bearer token attached")
	} else {
		fmt.Println("Auth:        none")
	}
	return nil
}

func printAuthURL(authURL string) {
	fmt.Printf("Visit the following URL to authorize access:\n%s\n", authURL)
	if err := clipboard.WriteAll(authURL); err == nil {
		fmt.Println("(the URL has been copied to your clipboard)")
	}
}
