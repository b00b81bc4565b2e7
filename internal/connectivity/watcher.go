package connectivity

import (
	"context"
	"time"

	"github.com/rdelrosario/sari-pos/pkg/logger"
)

// Watcher polls the oracle and fires the callback on every offline-to-online
// transition. The first poll that reports online also fires, so a device that
// boots with a backlog starts draining immediately.
type Watcher struct {
	oracle   Oracle
	interval time.Duration
	onOnline func(ctx context.Context)
	logg     *logger.Logger
}

// NewWatcher builds a connectivity watcher.
func NewWatcher(oracle Oracle, interval time.Duration, onOnline func(ctx context.Context), logg *logger.Logger) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{
		oracle:   oracle,
		interval: interval,
		onOnline: onOnline,
		logg:     logg,
	}
}

// Run blocks until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	online := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := w.oracle.HasConnectivity(ctx)
		if now && !online {
			if w.logg != nil {
				w.logg.Info(ctx, "connectivity regained")
			}
			if w.onOnline != nil {
				w.onOnline(ctx)
			}
		}
		online = now
	}
}
