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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"auto_docx_case_generator/filler"
	"auto_docx_case_generator/generator"
	"auto_docx_case_generator/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("DOCFILL_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := filler.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llm, err := buildLLM(ctx, cfg)
	if err != nil {
		return err
	}
	agent, err := generator.NewAgent(llm, generator.AgentConfig{
		Prompts: generator.PromptConfig{
			System:            cfg.Prompt.System,
			Instructions:      cfg.Prompt.Instructions,
			EssayInstructions: cfg.Prompt.EssayInstructions,
		},
		Delimiters: generator.Delimiters{Open: cfg.Template.Open, Close: cfg.Template.Close},
	})
	if err != nil {
		return err
	}
	f, err := filler.New(agent, cfg, logger.Named("filler"))
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	srv, err := server.New(f, cfg.Server, logger.Named("http"), reg)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("starting web server",
			zap.String("addr", cfg.Server.Addr),
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.Model))
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}

func buildLLM(ctx context.Context, cfg filler.Config) (generator.LLMClient, error) {
	settings := &generator.LLMSettings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	}
	switch cfg.LLM.Provider {
	case "openai":
		return generator.NewOpenAILLMFromConfig(settings)
	case "deepseek":
		// OpenAI-compatible endpoint; base_url is checked by config validation.
		return generator.NewOpenAILLMFromConfig(settings)
	case "gemini":
		return generator.NewGeminiLLMFromConfig(ctx, settings)
	case "mock":
		return generator.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}
