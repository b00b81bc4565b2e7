package controllers

import (
	"context"
	"net/http"

	"github.com/rdelrosario/sari-pos/api/responses"
	"github.com/rdelrosario/sari-pos/pkg/config"
	"github.com/rdelrosario/sari-pos/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SariPos-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports per-dependency health. The store stays open for
// business while offline, so a failed remote probe degrades the report
// instead of failing it; only a broken local store is fatal.
func HealthReady(cfg *config.Config, logg *logger.Logger, localDB pinger, redisClient pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SariPos-Env", cfg.App.Env)

		checks := map[string]string{"local_store": "ok", "redis": "ok"}
		status := http.StatusOK

		if localDB == nil || localDB.Ping(r.Context()) != nil {
			checks["local_store"] = "down"
			status = http.StatusServiceUnavailable
		}
		if redisClient == nil || redisClient.Ping(r.Context()) != nil {
			checks["redis"] = "degraded"
		}

		responses.WriteSuccessStatus(w, status, checks)
	}
}
