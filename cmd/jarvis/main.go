package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stivan622/jarvis-system/internal/config"
	"github.com/stivan622/jarvis-system/internal/server"
	"github.com/stivan622/jarvis-system/internal/ui"
	"github.com/stivan622/jarvis-system/pkg/planner"
	"github.com/stivan622/jarvis-system/pkg/providers/google"
	"github.com/stivan622/jarvis-system/pkg/stores"
)

func main() {
	serve := flag.Bool("serve", false, "run the REST API server instead of the TUI")
	configPath := flag.String("config", "", "path to config file")
	verbose := flag.Bool("verbose", false, "verbose logging")
	connectGoogle := flag.Bool("connect-google", false, "connect a Google account via the local OAuth flow and exit")
	flag.Parse()

	if *verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch {
	case *connectGoogle:
		runConnectGoogle(cfg)
	case *serve:
		runServer(cfg)
	default:
		runUI(cfg)
	}
}

func runServer(cfg *config.Config) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	store, err := planner.NewStore(cfg.DatabasePath())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	srv := server.New(cfg, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func runUI(cfg *config.Config) {
	client := stores.NewClient(cfg.APIBaseURL)
	p := tea.NewProgram(ui.NewModel(*cfg, client),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// runConnectGoogle performs the desktop consent flow against a loopback
// redirect and stores the account directly in the local database, for
// setups where the API server's callback URL is not reachable from a
// browser.
func runConnectGoogle(cfg *config.Config) {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		log.Fatal("GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	gcfg := google.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
	}
	token, err := google.Authorize(ctx, gcfg)
	if err != nil {
		log.Fatalf("Authorization failed: %v", err)
	}

	oauth := google.NewOAuthConfig(gcfg)
	user, err := google.FetchUserInfo(ctx, oauth, token)
	if err != nil {
		log.Fatalf("Failed to fetch user info: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	store, err := planner.NewStore(cfg.DatabasePath())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	account := &planner.GoogleAccount{
		Email:        user.Email,
		Name:         user.Name,
		PictureURL:   user.Picture,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  token.Expiry,
	}
	if err := store.SaveGoogleAccount(account); err != nil {
		log.Fatalf("Failed to save account: %v", err)
	}

	client := google.NewClient(ctx, account, oauth)
	calendars, err := client.Calendars(ctx)
	if err != nil {
		log.Fatalf("Failed to list calendars: %v", err)
	}
	for _, cal := range calendars {
		gc := &planner.GoogleCalendar{
			AccountID:  account.ID,
			CalendarID: cal.ID,
			Name:       cal.Name,
			Color:      cal.Color,
			Enabled:    cal.Primary,
		}
		if err := store.SaveGoogleCalendar(gc); err != nil {
			log.Printf("Failed to save calendar %s: %v", cal.ID, err)
		}
	}

	fmt.Printf("Connected %s (%d calendars)\n", account.Email, len(calendars))
}
