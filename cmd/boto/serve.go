package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/boto"
	"github.com/aretw0/boto/internal/cli"
	httpadapter "github.com/aretw0/boto/pkg/adapters/http"
	"github.com/aretw0/boto/pkg/adapters/whatsapp"
	"github.com/aretw0/boto/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the WhatsApp webhook server",
		Long:  `Starts the HTTP server that receives WhatsApp webhooks, runs the dialogue and sends the replies.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				e.cfg.HTTP.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, e)
		},
	}
	cmd.Flags().String("addr", "", "Listen address, overrides http.addr")
	return cmd
}

func serve(ctx context.Context, e *env) error {
	cfg, logger := e.cfg, e.logger

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return err
	}

	rt, err := cli.Build(ctx, cfg, logger, cli.RequireServices,
		boto.WithLifecycleHooks(observability.Chain(metrics.Hooks(), observability.LogHooks(logger))),
	)
	if err != nil {
		return err
	}
	defer rt.Close()

	sender, err := whatsapp.NewClient(whatsapp.Config{
		Mode:          whatsapp.Mode(cfg.WhatsApp.Mode),
		APIURL:        cfg.WhatsApp.APIURL,
		AccessToken:   cfg.WhatsApp.AccessToken,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		ClientToken:   cfg.WhatsApp.ClientToken,
	}, whatsapp.WithRecorder(rt.Repo), whatsapp.WithLogger(logger))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpadapter.NewHandler(httpadapter.Deps{
			Dispatcher:  rt.App,
			Sender:      sender,
			Messages:    rt.Repo,
			VerifyToken: cfg.WhatsApp.VerifyToken,
			Metrics:     metrics,
			Gatherer:    reg,
			Limiter:     httpadapter.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
			Ready:       rt.Ready,
			Logger:      logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting boto server", "addr", srv.Addr, "mode", cfg.WhatsApp.Mode)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		logger.Info("Start shutdown", "cause", context.Cause(ctx))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				return err
			}
		}
		logger.Info("boto server stopped gracefully")
		return nil
	}
}
