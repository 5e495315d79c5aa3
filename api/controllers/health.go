package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/paprflow/paprflow-backend/api/responses"
	"github.com/paprflow/paprflow-backend/pkg/config"
	"github.com/paprflow/paprflow-backend/pkg/logger"
)

const envHeader = "X-PaprFlow-Env"

const readinessTimeout = 3 * time.Second

// Pinger is any dependency that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks every backing dependency. Nil dependencies are
// treated as not wired and skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true
		for name, dep := range deps {
			if dep == nil {
				checks[name] = "skipped"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "unavailable"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "health.check_failed", err)
				}
				continue
			}
			checks[name] = "ok"
		}

		status := "ready"
		httpStatus := http.StatusOK
		if !healthy {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}
		responses.WriteSuccessStatus(w, httpStatus, map[string]any{
			"status": status,
			"checks": checks,
		})
	}
}
