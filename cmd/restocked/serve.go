package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	reshttp "github.com/minute-repeater/restocked/http"
	"golang.org/x/sync/errgroup"
)

// shutdownGrace bounds how long in-flight requests get on shutdown.
const shutdownGrace = 10 * time.Second

// Run executes the serve command: the JSON API and the periodic check
// worker run until interrupted.
func (c *ServeCmd) Run(deps *Dependencies) error {
	api := &reshttp.Server{
		Products:      deps.Products,
		Items:         deps.Items,
		Notifications: deps.Notifications,
		Fetcher:       deps.Fetcher,
		Extractor:     deps.Extractor,
		Logger:        deps.Logger,
		RunNow:        deps.Worker.RunNow,
		FetchTimeout:  deps.FetchTimeout,
	}

	srv := &http.Server{
		Addr:    c.Addr,
		Handler: api.Router(),
	}

	g, ctx := errgroup.WithContext(deps.Ctx)

	g.Go(func() error {
		deps.Logger.Info("check worker started", "interval", c.Interval, "concurrency", c.Concurrency)
		if err := deps.Worker.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		deps.Logger.Info("api listening", "addr", c.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	deps.Logger.Info("shut down cleanly")
	return nil
}
