// The sync agent runs on field stations with intermittent connectivity. It
// exposes a small loopback HTTP API that the station software writes field
// records to; records are buffered in a durable local queue and replayed
// against the farm API once the link is up.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aquafarm/internal/apierror"
	"aquafarm/internal/config"
	"aquafarm/internal/offline"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var validKinds = map[string]bool{
	offline.KindFeeding:      true,
	offline.KindBiometry:     true,
	offline.KindWaterQuality: true,
	offline.KindMortality:    true,
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.FarmID == "" {
		log.Fatal().Msg("FARM_ID is required")
	}

	store, err := offline.NewSQLiteStore(cfg.QueuePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open queue store")
	}
	defer store.Close()

	queue, err := offline.NewQueue(store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load queue")
	}

	api := offline.NewAPIClient(cfg.APIBaseURL, cfg.APIToken, cfg.FarmID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := offline.NewWatcher(queue, api, api, time.Duration(cfg.ProbeIntervalSecs)*time.Second)
	go watcher.Run(ctx)

	// Loopback API for the station software.
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/status", func(c *gin.Context) {
		probeCtx, probeCancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer probeCancel()
		c.JSON(http.StatusOK, gin.H{
			"pending": queue.Pending(),
			"online":  api.Online(probeCtx),
		})
	})

	r.POST("/operations/:kind", func(c *gin.Context) {
		kind := c.Param("kind")
		if !validKinds[kind] {
			c.JSON(http.StatusBadRequest, apierror.New("Unknown operation kind"))
			return
		}
		var payload json.RawMessage
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("Invalid JSON payload"))
			return
		}
		op, err := offline.NewOperation(kind, payload)
		if err != nil {
			c.JSON(http.StatusInternalServerError, apierror.New("Failed to build operation"))
			return
		}
		if err := queue.Enqueue(op); err != nil {
			// The operation is NOT safe; the caller must not assume it will sync.
			c.JSON(http.StatusInternalServerError, apierror.New("Failed to persist operation"))
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"id": op.ID, "pending": queue.Pending()})
	})

	// Manual drain trigger.
	r.POST("/drain", func(c *gin.Context) {
		res, err := queue.Drain(c.Request.Context(), api)
		if err != nil {
			c.JSON(http.StatusConflict, apierror.New(err.Error()))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"attempted": res.Attempted,
			"succeeded": res.Succeeded,
			"failed":    res.Failed,
			"pending":   queue.Pending(),
		})
	})

	r.DELETE("/operations", func(c *gin.Context) {
		if err := queue.Clear(); err != nil {
			c.JSON(http.StatusInternalServerError, apierror.New("Failed to clear queue"))
			return
		}
		c.Status(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.AgentPort),
		Handler: r,
	}
	go func() {
		log.Info().Msgf("sync agent listening on 127.0.0.1:%d (farm %s)", cfg.AgentPort, cfg.FarmID)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("agent server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Int("pending", queue.Pending()).Msg("shutting down sync agent")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
