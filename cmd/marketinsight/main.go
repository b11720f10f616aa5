// Command marketinsight serves the market analyst chat API.
//
// Configuration is read from the YAML file named by MARKETINSIGHT_CONFIG (if
// any) and the environment; see package config for the variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/marketinsight"
	"github.com/hupe1980/marketinsight/config"
	"github.com/hupe1980/marketinsight/logging"
	"github.com/hupe1980/marketinsight/marketdata"
	"github.com/hupe1980/marketinsight/model"
	"github.com/hupe1980/marketinsight/model/anthropic"
	"github.com/hupe1980/marketinsight/model/openai"
	"github.com/hupe1980/marketinsight/server"
	"github.com/hupe1980/marketinsight/tracing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "marketinsight: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("MARKETINSIGHT_CONFIG"))
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.Setup(func(o *logging.Options) {
		o.Dir = cfg.Logging.Dir
		o.FileLevel = logging.ParseLevel(cfg.Logging.Level)
		o.Format = cfg.Logging.Format
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, func(o *tracing.Options) {
		o.Exporter = cfg.Tracing.Exporter
		o.Endpoint = cfg.Tracing.Endpoint
		o.ServiceName = cfg.Tracing.ServiceName
	})
	if err != nil {
		return err
	}

	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("Failed to flush traces", "error", err)
		}
	}()

	provider := marketdata.NewClient(func(o *marketdata.Options) {
		o.QueryURL = cfg.Yahoo.QueryURL
		o.SearchURL = cfg.Yahoo.SearchURL
	})

	analyst := marketinsight.New(newModel(cfg.Model), func(o *marketinsight.Options) {
		o.Provider = provider
		o.MaxModelCalls = cfg.Agent.MaxModelCalls
		o.Logger = logging.Named("Agent")
	})
	logger.Info("Agent Initiated Successfully", "provider", cfg.Model.Provider, "tools", len(analyst.Tools()))

	handler, err := server.New(analyst, func(o *server.Options) {
		o.ServiceName = cfg.Tracing.ServiceName
		o.Logger = logging.Named("Server")
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("App Initiated Successfully", "addr", srv.Addr, "log_file", logging.File())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func newModel(cfg config.ModelConfig) model.Model {
	if cfg.Provider == config.ProviderAnthropic {
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.AnthropicAPIKey
			o.Model = sdkanthropic.Model(cfg.AnthropicModel)
		})
	}

	return openai.NewModel(func(o *openai.Options) {
		o.APIKey = cfg.OpenAIAPIKey
		o.BaseURL = cfg.OpenAIBaseURL
		o.Model = cfg.Name
	})
}
