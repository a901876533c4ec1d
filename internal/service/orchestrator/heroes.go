package orchestrator

import (
	"context"
	"time"

	"github.com/kapu/herobuilds-api-go/internal/config"
	"github.com/kapu/herobuilds-api-go/internal/domain"
	apperrors "github.com/kapu/herobuilds-api-go/pkg/errors"
)

// HeroService maps the three public queries and the pre-warm path onto Resolve calls,
// owning key composition and the freshness window of each call site.
type HeroService struct {
	resolver    Resolver
	source      config.SourceConfig
	interactive time.Duration
	prewarm     time.Duration
}

func NewHeroService(resolver Resolver, source config.SourceConfig, interactive, prewarm time.Duration) *HeroService {
	return &HeroService{
		resolver:    resolver,
		source:      source,
		interactive: interactive,
		prewarm:     prewarm,
	}
}

// Roster returns the unfiltered roster.
func (h *HeroService) Roster(ctx context.Context) (*domain.CacheRecord, error) {
	key, target := h.rosterTarget("")
	return h.resolver.Resolve(ctx, key, target, h.interactive)
}

// RoleRoster returns the roster filtered by role. The role is used verbatim.
func (h *HeroService) RoleRoster(ctx context.Context, role string) (*domain.CacheRecord, error) {
	if role == "" {
		return nil, apperrors.NewValidationError("role must not be empty", "role", role)
	}
	key, target := h.rosterTarget(role)
	return h.resolver.Resolve(ctx, key, target, h.interactive)
}

// Hero returns talent and build statistics for one hero. The name is used verbatim.
func (h *HeroService) Hero(ctx context.Context, name string) (*domain.CacheRecord, error) {
	if name == "" {
		return nil, apperrors.NewValidationError("hero name must not be empty", "name", name)
	}
	key, target := h.heroTarget(name)
	return h.resolver.Resolve(ctx, key, target, h.interactive)
}

// PrewarmHero refreshes a hero with the shorter pre-warm window.
func (h *HeroService) PrewarmHero(ctx context.Context, name string) (*domain.CacheRecord, error) {
	key, target := h.heroTarget(name)
	return h.resolver.Resolve(ctx, key, target, h.prewarm)
}

func (h *HeroService) rosterTarget(role string) (domain.CacheKey, domain.FetchTarget) {
	key := domain.RosterKey()
	if role != "" {
		key = domain.RoleKey(role)
	}
	return key, domain.FetchTarget{
		URL:  h.source.RosterURL(),
		Kind: domain.FetchKindRoster,
		Role: role,
	}
}

func (h *HeroService) heroTarget(name string) (domain.CacheKey, domain.FetchTarget) {
	return domain.HeroKey(name), domain.FetchTarget{
		URL:  h.source.HeroURL(name),
		Kind: domain.FetchKindDetail,
	}
}
