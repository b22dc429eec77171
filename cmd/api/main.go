package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"looprender/internal/config"
	"looprender/internal/executor"
	"looprender/internal/httpapi"
	"looprender/internal/httpapi/handlers"
	"looprender/internal/pkg/logger"
	"looprender/internal/pkg/shutdown"
	"looprender/internal/storage"
	"looprender/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAPI()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "looprender-api",
	})

	ctx := context.Background()

	st, err := store.New(ctx, cfg)
	if err != nil {
		log.LogFatal("failed to initialize store", err, "backend", cfg.StoreBackend)
	}

	pool := executor.NewPool(st, buildRunner(cfg, log), log, executor.Options{
		Concurrency: cfg.Concurrency,
	})
	pool.Start()

	h := &handlers.Handlers{
		Log:      log,
		Store:    st,
		Executor: pool,
		NewSigner: func() (handlers.Signer, error) {
			return storage.NewPresigner(config.LoadR2())
		},
	}

	router := httpapi.NewRouter(log, h, httpapi.Options{
		APIToken:        cfg.APIToken,
		SignRequireAuth: cfg.SignRequireAuth,
	})

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	mgr := shutdown.NewManager(log, cfg.ShutdownTimeout)
	mgr.Register("http-server", func(ctx context.Context) error {
		return server.Shutdown(ctx)
	})
	mgr.Register("executor", pool.Stop)
	mgr.Register("store", func(ctx context.Context) error {
		return st.Close()
	})

	go func() {
		log.Info("api listening",
			"addr", cfg.Addr,
			"store", cfg.StoreBackend,
			"concurrency", cfg.Concurrency,
			"runner", runnerName(cfg),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("http server failed", err)
		}
	}()

	mgr.Wait()
}

func buildRunner(cfg *config.API, log *logger.Logger) executor.Runner {
	if cfg.WorkerBin == "" {
		return &executor.SimulatedRunner{Delay: cfg.SimulatedDelay, Log: log}
	}

	presigner, err := storage.NewPresigner(cfg.R2)
	if err != nil {
		log.LogFatal("failed to initialize presigner", err)
	}
	return &executor.SubprocessRunner{
		Signer:    presigner,
		WorkerBin: cfg.WorkerBin,
		Expiry:    cfg.R2.PresignExpiry,
		Log:       log,
	}
}

func runnerName(cfg *config.API) string {
	if cfg.WorkerBin == "" {
		return "simulated"
	}
	return "subprocess"
}
