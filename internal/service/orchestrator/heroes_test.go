package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/kapu/herobuilds-api-go/internal/config"
	"github.com/kapu/herobuilds-api-go/internal/domain"
	apperrors "github.com/kapu/herobuilds-api-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolveCall struct {
	key        domain.CacheKey
	target     domain.FetchTarget
	staleAfter time.Duration
}

type recordingResolver struct {
	calls []resolveCall
}

func (r *recordingResolver) Resolve(_ context.Context, key domain.CacheKey, target domain.FetchTarget, staleAfter time.Duration) (*domain.CacheRecord, error) {
	r.calls = append(r.calls, resolveCall{key: key, target: target, staleAfter: staleAfter})
	return &domain.CacheRecord{Key: key, LastUpdate: time.Now(), Roster: &domain.RosterSnapshot{}}, nil
}

func testSource() config.SourceConfig {
	return config.SourceConfig{
		BaseURL:        "https://stats.example.com",
		RosterPath:     "/Global/Hero",
		HeroPathSuffix: "/Global/Talents?hero=",
	}
}

func TestHeroServiceComposesKeysAndTargets(t *testing.T) {
	resolver := &recordingResolver{}
	svc := NewHeroService(resolver, testSource(), 12*time.Hour, 2*time.Hour)
	ctx := context.Background()

	_, err := svc.Roster(ctx)
	require.NoError(t, err)
	_, err = svc.RoleRoster(ctx, "Tank")
	require.NoError(t, err)
	_, err = svc.Hero(ctx, "Li Li")
	require.NoError(t, err)
	_, err = svc.PrewarmHero(ctx, "Abathur")
	require.NoError(t, err)

	require.Len(t, resolver.calls, 4)

	assert.Equal(t, domain.RosterKey(), resolver.calls[0].key)
	assert.Equal(t, domain.FetchKindRoster, resolver.calls[0].target.Kind)
	assert.Empty(t, resolver.calls[0].target.Role)
	assert.Equal(t, 12*time.Hour, resolver.calls[0].staleAfter)

	assert.Equal(t, domain.RoleKey("Tank"), resolver.calls[1].key, "role is not case folded")
	assert.Equal(t, "Tank", resolver.calls[1].target.Role)

	assert.Equal(t, domain.HeroKey("Li Li"), resolver.calls[2].key)
	assert.Equal(t, domain.FetchKindDetail, resolver.calls[2].target.Kind)
	assert.Equal(t, "https://stats.example.com/Global/Talents?hero=Li Li", resolver.calls[2].target.URL)
	assert.Equal(t, 12*time.Hour, resolver.calls[2].staleAfter)

	assert.Equal(t, domain.HeroKey("Abathur"), resolver.calls[3].key)
	assert.Equal(t, 2*time.Hour, resolver.calls[3].staleAfter)
}

func TestHeroServiceRejectsBlankInput(t *testing.T) {
	resolver := &recordingResolver{}
	svc := NewHeroService(resolver, testSource(), 12*time.Hour, 2*time.Hour)

	_, err := svc.RoleRoster(context.Background(), "")
	assert.Equal(t, 400, apperrors.StatusCode(err))
	_, err = svc.Hero(context.Background(), "")
	assert.Equal(t, 400, apperrors.StatusCode(err))
	assert.Empty(t, resolver.calls)
}
