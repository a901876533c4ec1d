package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kapu/herobuilds-api-go/internal/domain"
	apperrors "github.com/kapu/herobuilds-api-go/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCacheService(t *testing.T) (*CacheService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewCacheServiceWithClient(client, zap.NewNop())
	t.Cleanup(func() { _ = svc.Close() })
	return svc, mr
}

func TestCacheServiceReadMissing(t *testing.T) {
	svc, _ := newTestCacheService(t)

	record, err := svc.Read(context.Background(), domain.HeroKey("Abathur"))
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestCacheServiceWriteThenRead(t *testing.T) {
	svc, mr := newTestCacheService(t)
	ctx := context.Background()

	produced := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	record := &domain.CacheRecord{
		Key:        domain.RoleKey("Tank"),
		LastUpdate: produced,
		Roster: &domain.RosterSnapshot{Heroes: []domain.HeroSummary{
			{Name: "Muradin", Winrate: 51.2, GamesPlayed: 1200},
			{Name: "Johanna", Winrate: 49.8, GamesPlayed: 900},
		}},
	}
	require.NoError(t, svc.Write(ctx, record))

	assert.True(t, mr.Exists("herobuilds:roster-by-role:Tank"))
	assert.Equal(t, time.Duration(0), mr.TTL("herobuilds:roster-by-role:Tank"))

	got, err := svc.Read(ctx, domain.RoleKey("Tank"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, produced.Equal(got.LastUpdate))
	assert.Equal(t, []string{"Muradin", "Johanna"}, []string{got.Roster.Heroes[0].Name, got.Roster.Heroes[1].Name})
}

func TestCacheServiceEmptyFullRosterIsAnEntry(t *testing.T) {
	svc, _ := newTestCacheService(t)
	ctx := context.Background()

	require.NoError(t, svc.Write(ctx, &domain.CacheRecord{
		Key:        domain.RosterKey(),
		LastUpdate: time.Now(),
		Roster:     &domain.RosterSnapshot{Heroes: []domain.HeroSummary{}},
	}))

	got, err := svc.Read(ctx, domain.RosterKey())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0, got.Roster.Len())
}

func TestCacheServiceRecordWithoutPayloadIsMissing(t *testing.T) {
	svc, mr := newTestCacheService(t)

	require.NoError(t, mr.Set("herobuilds:entity-detail:Abathur", `{"lastUpdate":"2024-05-01T08:30:00Z"}`))

	got, err := svc.Read(context.Background(), domain.HeroKey("Abathur"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheServiceCorruptValue(t *testing.T) {
	svc, mr := newTestCacheService(t)

	require.NoError(t, mr.Set("herobuilds:entity-detail:Abathur", "{not json"))

	_, err := svc.Read(context.Background(), domain.HeroKey("Abathur"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCache(err))
}

func TestCacheServiceUnavailable(t *testing.T) {
	svc, mr := newTestCacheService(t)
	mr.Close()

	err := svc.Write(context.Background(), &domain.CacheRecord{Key: domain.RosterKey(), Roster: &domain.RosterSnapshot{}})
	require.Error(t, err)
	assert.True(t, apperrors.IsCache(err))
	assert.Error(t, svc.Ping(context.Background()))
}

func TestWaitUntilReadyTimesOut(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	svc := NewCacheServiceWithClient(client, zap.NewNop())
	defer svc.Close()

	err := svc.WaitUntilReady(context.Background(), 300*time.Millisecond)
	assert.Error(t, err)
}
