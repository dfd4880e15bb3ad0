package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/fairshare/internal/auth"
	"github.com/dukerupert/fairshare/internal/backup"
	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/config"
	"github.com/dukerupert/fairshare/internal/database"
	"github.com/dukerupert/fairshare/internal/housekeeping"
	"github.com/dukerupert/fairshare/internal/logging"
	"github.com/dukerupert/fairshare/internal/middleware"
	"github.com/dukerupert/fairshare/internal/push"
	"github.com/dukerupert/fairshare/internal/roster"
	"github.com/dukerupert/fairshare/internal/server"
)

const usage = `usage:
  fairshare                      run the server
  fairshare token <partner>      print a bearer token for a partner
  fairshare vapid                generate a VAPID key pair
  fairshare backup               take an encrypted snapshot now
  fairshare backups              list stored snapshots
  fairshare restore <key> <dst>  download and decrypt a snapshot to dst`

func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "vapid" {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("FAIRSHARE_VAPID_PUBLIC_KEY=%s\nFAIRSHARE_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	switch {
	case len(args) == 0:
		if err := serve(cfg, logger); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case args[0] == "token" && len(args) == 2:
		token, err := auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL).Issue(args[1])
		if err != nil {
			slog.Error("issue token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
	case args[0] == "backup" || args[0] == "backups" || args[0] == "restore":
		if err := runBackupCommand(cfg, logger, args); err != nil {
			slog.Error(args[0]+" failed", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func serve(cfg config.Server, logger *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var pushSvc *push.Service
	if cfg.PushEnabled() {
		pushSvc = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	} else {
		slog.Info("push notifications disabled, VAPID keys not set")
	}

	clock := calendar.Clock{Location: loc}
	srv := server.New(db, auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL), pushSvc, clock, logger)
	proxies, err := middleware.ParsePrefixes(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse FAIRSHARE_TRUSTED_PROXIES: %w", err)
	}
	srv.TrustProxies(proxies)

	if cfg.Roster != "" {
		if _, err := roster.ImportFile(cfg.Roster, srv.PartnerStore(), logger.With("component", "roster")); err != nil {
			return err
		}
	}

	jobs := housekeeping.New(loc, srv.RequestStore(), srv.RateLimiter(), cfg.RequestRetention, logger.With("component", "housekeeping"))
	if err := jobs.Schedule(cfg.PruneAt); err != nil {
		return fmt.Errorf("schedule housekeeping: %w", err)
	}
	if mgr := backup.NewManager(cfg.Backup(), db, logger.With("component", "backup")); mgr.Enabled() {
		if err := jobs.AddDaily("backup", cfg.BackupAt, mgr.RunAndPrune); err != nil {
			return fmt.Errorf("schedule backup: %w", err)
		}
	} else {
		slog.Info("backups disabled, S3 bucket, keys or passphrase not set")
	}
	jobs.Start()
	defer jobs.Stop()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("fairshare starting", "addr", httpServer.Addr, "timezone", loc.String())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runBackupCommand(cfg config.Server, logger *slog.Logger, args []string) error {
	if args[0] == "restore" && len(args) != 3 {
		return fmt.Errorf("usage: fairshare restore <key> <dst>")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var db *sql.DB
	if args[0] == "backup" {
		var err error
		if db, err = database.Open(cfg.DBPath); err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
	}

	mgr := backup.NewManager(cfg.Backup(), db, logger.With("component", "backup"))
	if !mgr.Enabled() {
		return fmt.Errorf("backups are not configured")
	}

	switch args[0] {
	case "backup":
		return mgr.RunAndPrune(ctx)
	case "backups":
		snaps, err := mgr.List(ctx)
		if err != nil {
			return err
		}
		for _, s := range snaps {
			fmt.Printf("%s\t%d\t%s\n", s.Key, s.Size, s.TakenAt.Format(time.RFC3339))
		}
		return nil
	default:
		if err := mgr.Restore(ctx, args[1], args[2]); err != nil {
			return err
		}
		fmt.Printf("restored %s to %s\n", args[1], args[2])
		return nil
	}
}
