package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kapu/herobuilds-api-go/internal/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeStore struct {
	mu       sync.Mutex
	records  map[string]*domain.CacheRecord
	reads    int
	writes   int
	readErr  error
	writeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*domain.CacheRecord)}
}

func (s *fakeStore) Read(_ context.Context, key domain.CacheKey) (*domain.CacheRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.records[key.String()], nil
}

func (s *fakeStore) Write(_ context.Context, record *domain.CacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	s.records[record.Key.String()] = record
	return nil
}

func (s *fakeStore) Ping(context.Context) error { return nil }
func (s *fakeStore) Close() error               { return nil }

func (s *fakeStore) put(record *domain.CacheRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Key.String()] = record
}

func (s *fakeStore) get(key domain.CacheKey) *domain.CacheRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[key.String()]
}

func (s *fakeStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// fakeExtractor returns a fixed result. When release is set, Fetch blocks until it is closed.
type fakeExtractor struct {
	result  *domain.Extraction
	err     error
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
	onFetch func()
	targets []domain.FetchTarget
	mu      sync.Mutex
}

func (f *fakeExtractor) Fetch(ctx context.Context, target domain.FetchTarget) (*domain.Extraction, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.targets = append(f.targets, target)
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.onFetch != nil {
		f.onFetch()
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

func rosterOf(names ...string) *domain.Extraction {
	heroes := make([]domain.HeroSummary, 0, len(names))
	for _, name := range names {
		heroes = append(heroes, domain.HeroSummary{Name: name, Winrate: 50})
	}
	return &domain.Extraction{Roster: &domain.RosterSnapshot{Heroes: heroes}}
}

func detailWithTalents(names ...string) *domain.Extraction {
	tier := make([]domain.Talent, 0, len(names))
	for _, name := range names {
		tier = append(tier, domain.Talent{Name: name})
	}
	return &domain.Extraction{Detail: &domain.EntityDetail{
		TalentTiers: [][]domain.Talent{tier},
		Builds:      []domain.Build{},
	}}
}

type recordingNotifier struct {
	mu      sync.Mutex
	records []*domain.CacheRecord
}

func (n *recordingNotifier) RecordRefreshed(record *domain.CacheRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = append(n.records, record)
}
