package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kapu/herobuilds-api-go/internal/domain"
	apperrors "github.com/kapu/herobuilds-api-go/pkg/errors"
	"go.uber.org/zap"
)

const (
	banner        = "HeroBuilds API is online! 🌊"
	healthTimeout = 3 * time.Second
)

// HeroQueries is the read side the API exposes.
type HeroQueries interface {
	Roster(ctx context.Context) (*domain.CacheRecord, error)
	RoleRoster(ctx context.Context, role string) (*domain.CacheRecord, error)
	Hero(ctx context.Context, name string) (*domain.CacheRecord, error)
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	heroes HeroQueries
	health HealthChecker
	logger *zap.Logger
}

func (h *handlers) banner(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(banner))
}

func (h *handlers) roster(w http.ResponseWriter, r *http.Request) {
	record, err := h.heroes.Roster(r.Context())
	h.respond(w, r, record, err)
}

func (h *handlers) roleRoster(w http.ResponseWriter, r *http.Request) {
	role, err := pathParam(r, "role")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	record, err := h.heroes.RoleRoster(r.Context(), role)
	h.respond(w, r, record, err)
}

func (h *handlers) hero(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "name")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	record, err := h.heroes.Hero(r.Context(), name)
	h.respond(w, r, record, err)
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		h.logger.Warn("Health check failed", zap.Error(err))
		writeJSON(w, map[string]string{"status": "unavailable", "error": err.Error()}, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (h *handlers) respond(w http.ResponseWriter, r *http.Request, record *domain.CacheRecord, err error) {
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, record, http.StatusOK)
}

// pathParam returns the decoded segment without any case folding or trimming. chi
// matches against RawPath when the request carries a non-canonical encoding.
func pathParam(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return raw, nil
	}
	value, err := url.PathUnescape(raw)
	if err != nil {
		return "", apperrors.NewValidationError(fmt.Sprintf("invalid URL encoding in %s", name), name, raw)
	}
	return value, nil
}
