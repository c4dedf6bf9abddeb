package offline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Prober reports whether the API is reachable right now.
type Prober interface {
	Online(ctx context.Context) bool
}

// Watcher polls connectivity and triggers a queue drain on every offline to
// online transition, plus periodic drains while online in case an earlier
// pass left failures behind.
type Watcher struct {
	queue    *Queue
	remote   RemoteWriter
	prober   Prober
	interval time.Duration

	online bool
}

func NewWatcher(queue *Queue, remote RemoteWriter, prober Prober, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Watcher{queue: queue, remote: remote, prober: prober, interval: interval}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	online := w.prober.Online(probeCtx)
	cancel()

	wasOnline := w.online
	w.online = online

	switch {
	case online && !wasOnline:
		log.Info().Int("pending", w.queue.Pending()).Msg("connectivity restored, draining queue")
	case !online && wasOnline:
		log.Warn().Msg("connectivity lost, buffering writes")
	}

	if !online || w.queue.Pending() == 0 {
		return
	}
	if _, err := w.queue.Drain(ctx, w.remote); err != nil && err != ErrDrainInProgress {
		log.Error().Err(err).Msg("drain failed")
	}
}
