package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lysyi3m/mp-comb/app/cfg"
)

func main() {
	c, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if c == nil {
		// Help was shown
		return
	}

	setupLogger(c.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(c)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	switch c.Command {
	case "crawl":
		err = a.runCrawl(ctx, os.Stdout, c.Sources)
	case "list":
		err = a.runList(ctx, os.Stdout, c.Source, c.ListRead, c.Page, c.PerPage)
	case "toggle":
		err = a.runToggle(ctx, os.Stdout, c.Source, c.Link)
	case "serve":
		err = a.runServe(ctx)
	default:
		err = fmt.Errorf("unknown command %q", c.Command)
	}

	if err != nil {
		slog.Error("Command failed", "command", c.Command, "error", err)
		stop()
		a.Close()
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
