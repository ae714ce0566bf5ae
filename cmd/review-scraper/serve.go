package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maltedev/maps-review-scraper/internal/api"
	"github.com/maltedev/maps-review-scraper/internal/batch"
	"github.com/maltedev/maps-review-scraper/internal/metrics"
	"github.com/maltedev/maps-review-scraper/internal/queue"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  "Serve review collection over HTTP. Requests run one at a time against a shared browser; queued jobs are worked off in the background.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := openOutputs(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer out.Close()

	service, closeBrowser, err := openCollector(cfg, log)
	if err != nil {
		return err
	}
	defer closeBrowser()

	collector := batch.NewSerial(service)
	q := queue.NewInMemoryQueue(cfg.Queue.MaxSize)
	runner, err := newRunner(cfg, collector, q, cfg.Scraper.LedgerPath, out, log)
	if err != nil {
		return err
	}
	if _, err := runner.Resume(); err != nil {
		return err
	}

	go func() {
		if err := runner.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("job runner stopped with error", "error", err)
		}
	}()

	if out.relay != nil {
		go func() {
			if err := out.relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("relay stopped with error", "error", err)
			}
		}()
	}

	handlers := api.NewHandlers(collector, runner, cfg.Scraper.Locale, log)
	if out.outbox != nil {
		handlers.WithOutbox(out.outbox)
	}

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handlers, metrics.InitRegistry(), cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down server...")
		q.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.Info("server stopped")
	return nil
}
