package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/cli"
	"github.com/dukerupert/fairshare/internal/client"
	"github.com/dukerupert/fairshare/internal/config"
	"github.com/dukerupert/fairshare/internal/logging"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.Token == "" {
		fmt.Fprintln(os.Stderr, "FAIRSHARE_TOKEN is not set; mint one with `fairshare token <partner-id>`")
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	c := client.New(cfg.URL, cfg.Token, client.WithLogger(logger))
	if err := cli.Run(ctx, c, calendar.Clock{}, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, cli.Usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
