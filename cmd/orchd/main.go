package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"orchd/internal/assembler"
	"orchd/internal/catalog"
	"orchd/internal/config"
	"orchd/internal/daemon"
	"orchd/internal/httpapi"
	"orchd/internal/pipeline"
	"orchd/internal/pulse"
	"orchd/internal/registry"
	"orchd/internal/scheduler"
	"orchd/pkg/types"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// splitCSV splits a comma separated list, trimming whitespace and
// dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	// Flags with environment variable defaults
	addr := flag.String("addr", envOr("ORCHD_ADDR", ""), "HTTP listen address, e.g. :8090")
	configPath := flag.String("config", envOr("ORCHD_CONFIG", ""), "Path to config file (.yaml/.json/.toml)")
	daemonURL := flag.String("daemon-url", envOr("ORCHD_DAEMON_URL", ""), "Base URL of the local model daemon")
	registryPath := flag.String("registry", envOr("ORCHD_REGISTRY", ""), "Path to the layer registry JSON file")
	logLevel := flag.String("log-level", envOr("ORCHD_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	corsOrigins := flag.String("cors-origins", envOr("ORCHD_CORS_ORIGINS", ""), "Comma separated CORS origins (empty disables CORS)")
	ask := flag.String("ask", "", "Run a single request through the pipeline, print the answer and exit")
	flag.Parse()

	var cfg config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config %s: %v", *configPath, err)
		}
		cfg = loaded
	}
	// Flags override file values.
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *daemonURL != "" {
		cfg.DaemonURL = *daemonURL
	}
	if *registryPath != "" {
		cfg.RegistryPath = *registryPath
	}
	cfg.ApplyDefaults()

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(lvl)

	cat := catalog.Default()
	if len(cfg.Models) > 0 {
		cat = catalog.New(cfg.Models)
	}

	reg, err := registry.Open(cfg.RegistryPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.RegistryPath).Msg("failed to open layer registry")
	}

	client := daemon.NewClient(cfg.DaemonURL, 5*time.Second)
	sched := scheduler.New(scheduler.Config{
		Catalog:      cat,
		Daemon:       client,
		Adapters:     reg,
		Logger:       logger,
		VRAMBudgetGB: cfg.VRAMBudgetGB,
		UnloadGrace:  cfg.UnloadGrace(),
		ProbeTTL:     cfg.ProbeTTL(),
	})

	asm := assembler.New(cfg.ReservedForResponse, logger)
	executor := daemon.NewExecutor(client, sched, cfg.MaxTokens, cfg.ReservedForResponse)
	verifier := daemon.NewVerifier(client, sched)
	pipe := pipeline.New(sched, asm, nil, nil, executor, verifier, pipeline.Config{
		MaxAttempts:          cfg.MaxAttempts,
		EscalateAfterAttempt: cfg.EscalateAfterAttempt,
		EscalateComplexity:   cfg.EscalateComplexity,
		AcceptScore:          cfg.AcceptScore,
		MaxTokens:            cfg.MaxTokens,
		CallTimeout:          cfg.CallTimeout(),
	}, logger)

	// One-shot mode: run the pipeline once and exit. Useful for smoke
	// checks and scripting without standing up the HTTP surface.
	if *ask != "" {
		res, err := pipe.Run(context.Background(), pipeline.Request{Input: *ask})
		if err != nil {
			logger.Fatal().Err(err).Msg("pipeline run failed")
		}
		os.Stdout.WriteString(res.Content + "\n")
		logger.Info().
			Str("state", string(res.State)).
			Str("verdict", string(res.Verdict)).
			Int("score", res.Score).
			Int("attempts", res.Attempts).
			Str("model", string(res.ModelKey)).
			Msg("pipeline finished")
		return
	}

	svc := &service{cat: cat, sched: sched, reg: reg, client: client}

	httpapi.SetLogger(logger)
	if origins := splitCSV(*corsOrigins); len(origins) > 0 {
		httpapi.SetCORSOptions(true, origins,
			[]string{"GET", "OPTIONS"},
			[]string{"Accept", "Content-Type", "X-Log-Level"})
	}

	mux := httpapi.NewMux(svc)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	monitor := pulse.New(sched, 30*time.Second, logger)
	go monitor.Run(ctx)

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("daemon", cfg.DaemonURL).Msg("orchd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
}

// service adapts the domain components to the HTTP surface.
type service struct {
	cat    *catalog.Catalog
	sched  *scheduler.Scheduler
	reg    *registry.Registry
	client *daemon.Client
}

func (s *service) Catalog() []types.ModelDescriptor { return s.cat.List() }

func (s *service) Status(ctx context.Context) types.StatusResponse {
	return types.StatusResponse{
		Ready:     s.Ready(),
		Scheduler: s.sched.Stats(ctx),
	}
}

func (s *service) Layers() (types.LayersResponse, error) { return s.reg.Snapshot() }

// Ready reports whether the local daemon answers its tag listing.
func (s *service) Ready() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.client.Tags(ctx)
	return err == nil
}
