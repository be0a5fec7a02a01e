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

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/crystalball/internal/adapters/http/api"
	"github.com/okian/crystalball/internal/adapters/http/swagger"
	"github.com/okian/crystalball/internal/adapters/repository"
	service "github.com/okian/crystalball/internal/app"
	"github.com/okian/crystalball/internal/config"
	"github.com/okian/crystalball/internal/domain/match"
	"github.com/okian/crystalball/pkg/logger"
	"github.com/okian/crystalball/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Named("main")

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := registerRuntimeCollectors(metrics.GetRegistry()); err != nil {
		log.Warn(ctx, "runtime collectors not registered", logger.Error(err))
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "predictor failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run reads the match table, prepares the pipeline, trains the network and
// serves the HTTP API until ctx is cancelled. Training runs one pass at a
// time so requests interleave with it.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	table, err := loadMatches(ctx, cfg, store)
	if err != nil {
		return err
	}

	p, err := newPredictor(cfg, store)
	if err != nil {
		return err
	}
	log.Info(ctx, "predictor created", logger.String("run_id", p.RunID()), logger.Any("seed", p.Seed()))

	if err := p.ReadData(ctx, table); err != nil {
		return err
	}
	if err := p.ProcessData(ctx); err != nil {
		return err
	}

	if cfg.Addr == "" {
		return train(ctx, p, cfg.TrainIterations, log)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(p),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	go func() {
		if err := train(ctx, p, cfg.TrainIterations, log); err != nil {
			log.Error(ctx, "training stopped", logger.Error(err))
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// openStore opens the SQL store, or returns nil when no DSN is configured.
func openStore(ctx context.Context, cfg *config.Config) (*repository.SQLStore, error) {
	if cfg.DatabaseDSN == "" {
		return nil, nil
	}
	store, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

// loadMatches reads the match table from the configured source. Matches read
// from CSV are mirrored into the store when one is open.
func loadMatches(ctx context.Context, cfg *config.Config, store *repository.SQLStore) (*match.Table, error) {
	if cfg.MatchesSource == config.SourceDatabase {
		if store == nil {
			return nil, fmt.Errorf("%w: matches_source database needs database_dsn", config.ErrInvalidConfig)
		}
		return store.LoadMatches(ctx)
	}

	f, err := os.Open(cfg.MatchesPath)
	if err != nil {
		return nil, fmt.Errorf("open matches: %w", err)
	}
	defer f.Close()

	table, err := match.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	if store != nil {
		if err := store.SaveMatches(ctx, table); err != nil {
			return nil, fmt.Errorf("mirror matches: %w", err)
		}
	}
	return table, nil
}

// newPredictor builds the pipeline from cfg. sink may be nil.
func newPredictor(cfg *config.Config, sink *repository.SQLStore) (*service.Predictor, error) {
	opts := []service.Option{
		service.WithInputFeatures(cfg.InputFeatures),
		service.WithOutputFeature(cfg.OutputFeature),
		service.WithRecentYears(cfg.RecentYears),
		service.WithTrainFraction(cfg.TrainFraction),
		service.WithExcludeTies(cfg.ExcludeTies),
		service.WithDuplicateWithReversed(cfg.DuplicateWithReversed),
		service.WithHiddenFactor(cfg.HiddenFactor),
		service.WithLearningRate(cfg.LearningRate),
		service.WithMomentum(cfg.Momentum),
		service.WithWeightDecay(cfg.WeightDecay),
		service.WithSeed(cfg.Seed),
	}
	if sink != nil {
		opts = append(opts, service.WithReportSink(sink))
	}
	return service.New(opts...)
}

// newRouter registers the business API and the OpenAPI document.
func newRouter(p *service.Predictor) *mux.Router {
	r := mux.NewRouter()
	api.NewServer(p).Register(r)
	swagger.Register(r)
	return r
}

// train runs iterations single-pass Train calls, then logs final accuracies.
func train(ctx context.Context, p *service.Predictor, iterations int, log logger.Logger) error {
	for i := 0; i < iterations; i++ {
		if _, err := p.Train(ctx, 1); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
	trainAcc, testAcc, err := p.TestNetwork(ctx)
	if err != nil {
		return err
	}
	log.Info(ctx, "training finished",
		logger.Int("passes", p.Status().Passes),
		logger.Float64("train_accuracy", trainAcc),
		logger.Float64("test_accuracy", testAcc),
	)
	return nil
}

// registerRuntimeCollectors adds Go runtime and process metrics to reg.
func registerRuntimeCollectors(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register collector: %w", err)
		}
	}
	return nil
}
