package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/minute-repeater/restocked"
	"github.com/minute-repeater/restocked/check"
	"github.com/minute-repeater/restocked/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx           context.Context
	Stdout        io.Writer
	Stderr        io.Writer
	Logger        *slog.Logger
	DB            *sqlite.DB
	Products      restocked.ProductService
	Items         restocked.TrackedItemService
	Notifications restocked.NotificationService
	CheckRuns     restocked.CheckRunService
	Fetcher       restocked.Fetcher
	Extractor     restocked.Extractor
	FetchTimeout  time.Duration
	Worker        *check.Worker
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	DB           string        `env:"RESTOCKED_DB" help:"SQLite database path"`
	Browser      bool          `default:"true" negatable:"" env:"RESTOCKED_BROWSER" help:"Escalate to a headless browser when plain HTTP fails"`
	FetchTimeout time.Duration `default:"10s" env:"RESTOCKED_FETCH_TIMEOUT" help:"Per-page fetch timeout"`
	MaxVariants  int           `default:"100" env:"RESTOCKED_MAX_VARIANTS" help:"Variant combinations kept per product"`
	RPS          float64       `default:"1" env:"RESTOCKED_RPS" help:"Requests per second per domain"`

	Serve ServeCmd `cmd:"" help:"Run the API server and the periodic check worker"`
	Check CheckCmd `cmd:"" help:"Run one check pass over all due items"`
	Add   AddCmd   `cmd:"" help:"Track a product URL"`
	List  ListCmd  `cmd:"" help:"List tracked products"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr        string        `default:":8080" env:"RESTOCKED_ADDR" help:"HTTP listen address"`
	Interval    time.Duration `default:"30m" env:"RESTOCKED_INTERVAL" help:"Re-check interval"`
	Concurrency int           `short:"c" default:"5" env:"RESTOCKED_CONCURRENCY" help:"Concurrent check limit"`
}

// CheckCmd is the "check" subcommand.
type CheckCmd struct {
	Interval    time.Duration `default:"30m" help:"Items checked within this window are skipped"`
	Concurrency int           `short:"c" default:"5" help:"Concurrent check limit"`
}

// AddCmd is the "add" subcommand.
type AddCmd struct {
	URL    string `arg:"" help:"Product page URL"`
	UserID string `default:"cli" help:"User to subscribe"`
}

// ListCmd is the "list" subcommand.
type ListCmd struct{}
