package controllers

import (
	"context"
	"net/http"

	"go.uber.org/multierr"

	"github.com/rentfolio/rentfolio-backend/api/responses"
	pkgerrors "github.com/rentfolio/rentfolio-backend/pkg/errors"
	"github.com/rentfolio/rentfolio-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness only.
func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the backing stores. Failures from both are combined so
// one unhealthy dependency does not mask the other.
func HealthReady(database, cache pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var errs error
		if database != nil {
			if err := database.Ping(r.Context()); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		if errs != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "dependencies unavailable"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
