package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	envHeader          = "X-Storefront-Env"
	readyProbeTimeout  = 2 * time.Second
	breakerStateOpen   = "open"
	dependencyStatusOK = "ok"
)

// Pinger is satisfied by the database and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerReporter exposes the payment provider circuit state.
type BreakerReporter interface {
	BreakerState() string
}

// ReadinessDeps lists the dependencies checked by the readiness probe.
type ReadinessDeps struct {
	DB     Pinger
	Redis  Pinger
	Stripe BreakerReporter
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports 503 when the database or redis cannot be reached or the
// payment provider breaker is open.
func HealthReady(cfg *config.Config, deps ReadinessDeps, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true
		probe := func(name string, p Pinger) {
			if p == nil {
				return
			}
			if err := p.Ping(ctx); err != nil {
				checks[name] = err.Error()
				healthy = false
				return
			}
			checks[name] = dependencyStatusOK
		}
		probe("database", deps.DB)
		probe("redis", deps.Redis)

		if deps.Stripe != nil {
			state := deps.Stripe.BreakerState()
			checks["stripe"] = state
			if state == breakerStateOpen {
				healthy = false
			}
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "service not ready").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
