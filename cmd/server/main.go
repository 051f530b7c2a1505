package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SANDAG/ABM-sub008/internal/api"
	"github.com/SANDAG/ABM-sub008/internal/config"
	"github.com/SANDAG/ABM-sub008/internal/database"
	"github.com/SANDAG/ABM-sub008/internal/handler"
	"github.com/SANDAG/ABM-sub008/internal/metrics"
	"github.com/SANDAG/ABM-sub008/internal/middleware"
	"github.com/SANDAG/ABM-sub008/internal/repository"
	"github.com/SANDAG/ABM-sub008/internal/service"
	"github.com/SANDAG/ABM-sub008/pkg/logger"
)

func main() {
	runKind := flag.String("run", "", "execute one batch (visitor or airport) and exit instead of serving")
	token := flag.String("token", "", "print a bearer token for this subject and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	logger.Init(cfg.Env)
	metrics.Init()

	if *token != "" {
		signed, err := middleware.IssueToken(cfg.JWTSecret, *token, 24*time.Hour)
		if err != nil {
			logger.Fatal("failed to issue token", "error", err)
		}
		fmt.Println(signed)
		return
	}

	db, err := database.Open(database.Config{Path: cfg.DBPath, MaxOpenConns: cfg.MaxOpenConns})
	if err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()

	ws, err := service.LoadWorkspace(repository.NewUnitRepository(db), cfg.Model)
	if err != nil {
		logger.Fatal("failed to load models", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runs := service.NewRunService(ctx,
		repository.NewRunRepository(db),
		repository.NewResultRepository(db),
		ws, cfg.Model)

	if *runKind != "" {
		run, err := runs.Execute(ctx, service.RunRequest{Kind: *runKind})
		if err != nil {
			logger.Fatal("run failed", "kind", *runKind, "error", err)
		}
		logger.Info("run finished", "run", run.ID, "status", run.Status, "entities", run.Total)
		return
	}

	router := api.SetupRouter(cfg, api.Handlers{
		Runs:          handler.NewRunHandler(runs),
		Distributions: handler.NewDistributionHandler(service.NewDistributionService(ws)),
	})
	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	runs.Wait()
}
