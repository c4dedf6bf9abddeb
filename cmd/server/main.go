package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aquafarm/internal/config"
	"aquafarm/internal/infra"
	"aquafarm/internal/repository"
	"aquafarm/internal/router"
	"aquafarm/internal/scheduler"
	"aquafarm/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Env == "production" {
		// JSON logs in production, pretty console elsewhere
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL, cfg.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background workers are wired here (composition root) so the pool has
	// full access to infrastructure dependencies.
	mailer := infra.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	reports := infra.NewPDFReportGenerator(cfg.ReportStoragePath)
	farmRepo := repository.NewFarmRepository(db)

	pool := worker.NewPool(rdb, cfg.WorkerPoolSize)
	pool.Register(worker.JobStockAlert, worker.QueueStockAlert, worker.NewStockAlertHandler(mailer, cfg.AlertEmail))
	pool.Register(worker.JobHarvestReport, worker.QueueHarvestReport, worker.NewHarvestReportHandler(farmRepo, reports))
	pool.Start(ctx)

	dispatcher := worker.NewDispatcher(rdb)

	itemRepo := repository.NewInventoryRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	sched := scheduler.New(itemRepo, movementRepo, mailer, cfg.AlertEmail)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	r := router.New(cfg, db, rdb, dispatcher)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("aquafarm backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
