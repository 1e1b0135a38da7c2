package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"assistantd/internal/bridge"
	"assistantd/internal/config"
	"assistantd/internal/coordinator"
	"assistantd/internal/httpapi"
)

const (
	defaultAddr        = ":8790"
	defaultBridgeURL   = "http://127.0.0.1:8771"
	defaultBridgeWSURL = "ws://127.0.0.1:8771/v1/server/events"
	defaultOllamaURL   = "http://127.0.0.1:11434"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func buildRootCmd() *cobra.Command {
	var (
		cfgPath     string
		addr        string
		bridgeURL   string
		bridgeWSURL string
		ollamaURL   string
		fallbackURL string
		logLevel    string
	)

	root := &cobra.Command{
		Use:           "assistantd",
		Short:         "Coordinator for local speech and llm backends",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("ASSISTANTD_CONFIG"), "Path to a yaml/json/toml config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", envOr("ASSISTANTD_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the coordinator daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config{}
			if cfgPath != "" {
				loaded, err := config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				cfg = loaded
			}
			// flags override file values when set explicitly
			if cmd.Flags().Changed("addr") || cfg.Addr == "" {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("bridge-url") || cfg.BridgeURL == "" {
				cfg.BridgeURL = bridgeURL
			}
			if cmd.Flags().Changed("bridge-ws-url") || cfg.BridgeWSURL == "" {
				cfg.BridgeWSURL = bridgeWSURL
			}
			if cmd.Flags().Changed("ollama-url") || cfg.OllamaURL == "" {
				cfg.OllamaURL = ollamaURL
			}
			if cmd.Flags().Changed("fallback-url") || cfg.FallbackURL == "" {
				cfg.FallbackURL = fallbackURL
			}
			if cfg.LogLevel == "" {
				cfg.LogLevel = logLevel
			}
			return runServe(cfg)
		},
	}
	serve.Flags().StringVar(&addr, "addr", envOr("ASSISTANTD_ADDR", defaultAddr), "HTTP listen address")
	serve.Flags().StringVar(&bridgeURL, "bridge-url", envOr("ASSISTANTD_BRIDGE_URL", defaultBridgeURL), "Base URL of the server supervisor bridge")
	serve.Flags().StringVar(&bridgeWSURL, "bridge-ws-url", envOr("ASSISTANTD_BRIDGE_WS_URL", defaultBridgeWSURL), "Websocket URL of the bridge status channel")
	serve.Flags().StringVar(&ollamaURL, "ollama-url", envOr("ASSISTANTD_OLLAMA_URL", defaultOllamaURL), "Base URL of the local llm runtime")
	serve.Flags().StringVar(&fallbackURL, "fallback-url", os.Getenv("ASSISTANTD_FALLBACK_URL"), "Base URL of the HTTP fallback endpoints (optional)")
	root.AddCommand(serve)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})
	return root
}

var version = "dev"

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

func runServe(cfg config.Config) error {
	log := newLogger(cfg.LogLevel)

	server := bridge.NewServerClient(cfg.BridgeURL, 5*time.Second, log)
	ollama := bridge.NewOllamaClient(cfg.OllamaURL, 5*time.Second, log)
	var fallbackProber coordinator.ModelProber
	var fallbackOps coordinator.ModelOps
	if cfg.FallbackURL != "" {
		fb := bridge.NewFallbackClient(cfg.FallbackURL, 5*time.Second, log)
		fallbackProber = fb
		fallbackOps = fb
	}

	listener := bridge.NewStatusListener(cfg.BridgeWSURL, log)
	defer listener.Close()

	coord := coordinator.New(coordinator.Deps{
		Server:         server,
		Prober:         server,
		FallbackProber: fallbackProber,
		Lister:         ollama,
		Models:         ollama,
		FallbackModels: fallbackOps,
		Events:         listener.Events(),
	}, coordinator.Options{
		Poller: coordinator.PollerOptions{
			DebounceWait:  cfg.WakeDebounce(),
			HealthTimeout: cfg.HealthTimeout(),
		},
		Orchestrator: coordinator.OrchestratorOptions{
			WarmupTimeout:   cfg.WarmupTimeout(),
			DownloadTimeout: cfg.DownloadTimeout(),
		},
	}, log)
	defer coord.Close()
	coord.Start()

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetLogger(log)

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(coord)}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("bridge", cfg.BridgeURL).Msg("assistantd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
