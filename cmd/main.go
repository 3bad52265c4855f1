package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/skillboard/internal/adapters/http/api"
	"github.com/okian/skillboard/internal/adapters/http/swagger"
	"github.com/okian/skillboard/internal/adapters/repository"
	service "github.com/okian/skillboard/internal/app"
	"github.com/okian/skillboard/internal/config"
	"github.com/okian/skillboard/internal/domain/elo"
	pl "github.com/okian/skillboard/internal/domain/plackettluce"
	"github.com/okian/skillboard/internal/domain/rater"
	"github.com/okian/skillboard/internal/domain/rating"
	"github.com/okian/skillboard/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't configured yet.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(logger.Format(cfg.LogFormat)), logger.WithLevel(cfg.LogLevel)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "skillboard exited", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the service from cfg and serves HTTP until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	r, err := newRater(cfg)
	if err != nil {
		return err
	}
	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	svc := service.New(
		service.WithLogger(log),
		service.WithRater(r),
		service.WithStore(store),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return err
	}
	log.Info(ctx, "service started",
		logger.String("model", string(r.Kind())),
		logger.String("store", cfg.Store),
		logger.Int("workers", cfg.WorkerCount))

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(svc, cfg),
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
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "service stop failed", logger.Error(err))
		runErr = errors.Join(runErr, err)
	}

	log.Info(shutdownCtx, "server stopped")
	return runErr
}

// newRater builds the configured rating model.
func newRater(cfg *config.Config) (rater.Rater, error) {
	kind, err := rater.ParseKind(cfg.Model)
	if err != nil {
		return nil, err
	}
	log := logger.Get().Named("rater")
	if kind == rater.KindElo {
		m := elo.New(elo.WithParams(elo.Params{
			K:              cfg.Elo.K,
			SigmaK:         cfg.Elo.SigmaK,
			SigmaFloor:     cfg.Elo.SigmaFloor,
			NonLinearScale: cfg.Elo.NonLinearScale,
			C:              cfg.Elo.C,
		}))
		seed := rating.Skill{Mu: cfg.Elo.BaseMu, Sigma: cfg.Elo.BaseSigma}
		return rater.NewElo(m, seed, rater.WithLogger(log)), nil
	}

	p := cfg.PlackettLuce
	opts := []pl.Option{
		pl.WithMu(p.Mu),
		pl.WithSigma(p.Sigma),
		pl.WithKappa(p.Kappa),
		pl.WithMargin(p.Margin),
		pl.WithLimitSigma(p.LimitSigma),
		pl.WithBalance(p.Balance),
	}
	if p.Beta != nil {
		opts = append(opts, pl.WithBeta(*p.Beta))
	}
	if p.Tau != nil {
		opts = append(opts, pl.WithTau(*p.Tau))
	}
	return rater.NewPlackettLuce(pl.New(opts...), rater.WithLogger(log)), nil
}

// newStore opens the configured rating store.
func newStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if strings.EqualFold(cfg.Store, config.StorePostgres) {
		return repository.NewPostgresStore(ctx, cfg.DatabaseURL,
			repository.WithPostgresLogger(logger.Get().Named("postgres")))
	}
	return repository.NewTreapStore(ctx, repository.WithLogger(logger.Get().Named("treap"))), nil
}

// newMux registers the business API and the API docs.
func newMux(svc *service.Service, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(svc,
		api.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
		api.WithLogger(logger.Get().Named("api")),
	).Register(mux)
	return mux
}

// startServiceMetricsUpdater refreshes the player and queue gauges until ctx
// is cancelled.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats publishes the gauges as a side effect.
			_ = svc.GetStats()
		}
	}
}
