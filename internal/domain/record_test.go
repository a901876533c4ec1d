package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyRoundTrip(t *testing.T) {
	keys := []CacheKey{RosterKey(), RoleKey("Tank"), HeroKey("Li-Ming"), HeroKey("Anub'arak")}
	for _, key := range keys {
		parsed, err := ParseCacheKey(key.String())
		require.NoError(t, err)
		assert.Equal(t, key, parsed)
	}
}

func TestCacheKeyKeepsColonsInID(t *testing.T) {
	key := HeroKey("odd:name")
	parsed, err := ParseCacheKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, "odd:name", parsed.ID)
}

func TestParseCacheKeyRejectsUnknownNamespace(t *testing.T) {
	_, err := ParseCacheKey("heroes/:Abathur")
	assert.Error(t, err)

	_, err = ParseCacheKey("no-separator")
	assert.Error(t, err)
}

func TestCacheRecordFreshness(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	record := &CacheRecord{
		Key:        RosterKey(),
		LastUpdate: now.Add(-2 * time.Hour),
		Roster:     &RosterSnapshot{Heroes: []HeroSummary{}},
	}

	assert.True(t, record.IsFresh(now, 12*time.Hour))
	assert.True(t, record.IsFresh(now, 2*time.Hour), "boundary age is still fresh")
	assert.False(t, record.IsFresh(now, time.Hour))

	var missing *CacheRecord
	assert.False(t, missing.IsFresh(now, 12*time.Hour))

	noPayload := &CacheRecord{Key: RosterKey(), LastUpdate: now}
	assert.False(t, noPayload.IsFresh(now, 12*time.Hour))
}

func TestFetchTargetRenderURL(t *testing.T) {
	target := FetchTarget{URL: "https://example.com/heroes", Kind: FetchKindRoster}
	u, err := target.RenderURL()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/heroes", u)

	target.Role = "Ranged Assassin"
	u, err = target.RenderURL()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/heroes?role=Ranged+Assassin", u)

	target.URL = "https://example.com/heroes?season=3"
	u, err = target.RenderURL()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/heroes?role=Ranged+Assassin&season=3", u)
}

func TestExtractionIsEmpty(t *testing.T) {
	assert.True(t, (*Extraction)(nil).IsEmpty())
	assert.True(t, (&Extraction{Roster: &RosterSnapshot{}}).IsEmpty())
	assert.False(t, (&Extraction{Roster: &RosterSnapshot{Heroes: []HeroSummary{{Name: "Abathur"}}}}).IsEmpty())

	assert.True(t, (&Extraction{Detail: &EntityDetail{TalentTiers: [][]Talent{{}, {{Name: "x"}}}}}).IsEmpty())
	assert.False(t, (&Extraction{Detail: &EntityDetail{TalentTiers: [][]Talent{{{Name: "x"}}}}}).IsEmpty())
}
