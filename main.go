package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medchain_go/api"
	"medchain_go/blockchain"
	"medchain_go/config"
	"medchain_go/ledger"
	"medchain_go/utils"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	// 2. Setup Logging
	utils.Init(&cfg.Log)
	defer utils.Sync()

	if err := run(cfg); err != nil {
		utils.LogError("%v", err)
		utils.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig) error {
	if cfg.VerifyArchive {
		return verifyArchive(cfg)
	}

	// 3. Initialize the ledger (mines the genesis block)
	l, err := ledger.New(cfg.LedgerSettings())
	if err != nil {
		return fmt.Errorf("error initializing ledger: %w", err)
	}

	if cfg.Demo {
		return runDemo(l)
	}

	// 4. Optional archive and automatic sealing
	if cfg.Archive.Enabled {
		db, err := blockchain.NewBlockchainDB(cfg.Archive.DataDir)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := l.AttachArchive(db); err != nil {
			return fmt.Errorf("error attaching archive: %w", err)
		}
	}

	var sealer *ledger.AutoSealer
	if cfg.Ledger.AutoSealSpec != "" {
		sealer, err = ledger.NewAutoSealer(l, cfg.Ledger.AutoSealSpec)
		if err != nil {
			return err
		}
		sealer.Start()
	}

	// 5. Serve HTTP until a signal arrives
	server := api.NewServer(l, cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case sig := <-sigCh:
		utils.LogInfo("Received %s, shutting down", sig)
	}

	if sealer != nil {
		<-sealer.Stop().Done()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func verifyArchive(cfg *config.AppConfig) error {
	db, err := blockchain.NewBlockchainDB(cfg.Archive.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := ledger.VerifyArchive(db)
	if err != nil {
		return fmt.Errorf("archive verification failed after %d blocks: %w", n, err)
	}
	utils.LogInfo("Archive at %s verified: %d blocks intact", db.Path(), n)
	return nil
}
