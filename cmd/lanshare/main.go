package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ssd-technologies/lanshare/internal/config"
	"github.com/ssd-technologies/lanshare/internal/quota"
	"github.com/ssd-technologies/lanshare/internal/server"
	"github.com/ssd-technologies/lanshare/internal/share"
	"github.com/ssd-technologies/lanshare/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Server.DatabasePath), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	db, err := storage.NewDB(cfg.Server.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	store, err := share.NewStore(cfg.Server.SharedDir)
	if err != nil {
		log.Fatalf("Failed to open shared root: %v", err)
	}

	ledger := quota.NewLedger(db, store)

	// Heal any drift accumulated while the service was down before taking
	// traffic.
	sum, skipped, err := ledger.Reconcile()
	if err != nil {
		log.Fatalf("Failed to reconcile used capacity: %v", err)
	}
	if skipped > 0 {
		log.Printf("startup reconcile: used=%d bytes, %d entries skipped", sum, skipped)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.New(store, ledger, cfg)
	srv.StartWorkers(ctx)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
	}()

	fmt.Printf("lanshare sharing %s on http://localhost:%s\n", store.Root(), cfg.Server.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Server.Port, srv))
}
