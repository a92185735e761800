package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snapvault/internal/api"
	"github.com/snapvault/internal/config"
	"github.com/snapvault/internal/editor"
	"github.com/snapvault/internal/remote"
	"github.com/snapvault/internal/restore"
	"github.com/snapvault/internal/snapshotter"
	"github.com/snapvault/internal/store"
	"github.com/snapvault/internal/version"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Snapvault starting...")

	// Initialize local SQLite store
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database initialized at %s", cfg.Database.Path)

	// Initialize remote document service client
	remoteClient := remote.NewClient(cfg.Remote.BaseURL, func() string {
		return cfg.Remote.Token
	}, cfg.Remote.Timeout)

	if cfg.Authenticated() {
		log.Printf("Remote document service: %s", cfg.Remote.BaseURL)
	} else {
		log.Printf("No remote credentials configured, running in guest mode")
	}

	// Repository selects the backend per call from auth state
	repo := version.NewRepository(db, remoteClient, func() version.AuthState {
		return version.AuthState{
			Authenticated: cfg.Authenticated(),
			Permissions: version.Permissions{
				CanRestoreAsNew:     *cfg.Permissions.CanRestoreAsNew,
				CanOverwriteRestore: *cfg.Permissions.CanOverwriteRestore,
				CanEdit:             *cfg.Permissions.CanEdit,
			},
		}
	})

	// Restore orchestrator over the repository and live documents
	orch := restore.New(repo, func(documentID string) editor.Editor {
		return editor.NewDocumentEditor(db, documentID)
	})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start auto-snapshotter in background
	if cfg.Snapshot.Enabled {
		snapService := snapshotter.New(db, cfg.Snapshot)
		go snapService.Start(ctx)
		log.Printf("Snapshotter started with interval %s", cfg.Snapshot.Interval)
	}

	// Initialize and start API server
	server := api.NewServer(cfg.Server, repo, orch, db)

	// Setup graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutdown signal received, stopping services...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during server shutdown: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting server on http://%s", addr)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Snapvault stopped")
}
