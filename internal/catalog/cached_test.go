package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/in-c0/langtern/internal/cache"
)

type countingStore struct {
	jobs      []JobListing
	languages []Language
	jobCalls  int
	langCalls int
	err       error
}

func (s *countingStore) GetProfile(context.Context, string) (*UserProfile, error) {
	return &UserProfile{ID: "p"}, nil
}

func (s *countingStore) ListJobs(context.Context, JobFilter) ([]JobListing, error) {
	s.jobCalls++
	return s.jobs, s.err
}

func (s *countingStore) ReferenceLanguages(context.Context) ([]Language, error) {
	s.langCalls++
	return s.languages, s.err
}

func (s *countingStore) ReferenceSkills(context.Context) ([]Skill, error) {
	return []Skill{}, s.err
}

func TestCachedStoreServesRepeatReadsFromCache(t *testing.T) {
	ctx := context.Background()
	next := &countingStore{
		jobs:      []JobListing{{ID: "1", Name: "Sakura Cafe", Skills: []string{"SEO"}}},
		languages: []Language{{ID: "l1", Name: "Japanese"}},
	}
	store := NewCachedStore(next, cache.NewMemory(), 0, nil)

	for i := 0; i < 3; i++ {
		jobs, err := store.ListJobs(ctx, OpenJobs)
		require.NoError(t, err)
		assert.Equal(t, next.jobs, jobs)

		languages, err := store.ReferenceLanguages(ctx)
		require.NoError(t, err)
		assert.Equal(t, next.languages, languages)
	}

	assert.Equal(t, 1, next.jobCalls)
	assert.Equal(t, 1, next.langCalls)
}

func TestCachedStoreInvalidate(t *testing.T) {
	ctx := context.Background()
	next := &countingStore{jobs: []JobListing{{ID: "1"}}}
	store := NewCachedStore(next, cache.NewMemory(), 0, nil)

	_, err := store.ListJobs(ctx, JobFilter{Field: "Retail"})
	require.NoError(t, err)
	require.NoError(t, store.Invalidate(ctx))
	_, err = store.ListJobs(ctx, JobFilter{Field: "Retail"})
	require.NoError(t, err)

	assert.Equal(t, 2, next.jobCalls)
}

func TestCachedStoreDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	next := &countingStore{err: errors.New("db down")}
	store := NewCachedStore(next, cache.NewMemory(), 0, nil)

	_, err := store.ListJobs(ctx, OpenJobs)
	require.Error(t, err)

	next.err = nil
	next.jobs = []JobListing{{ID: "9"}}
	jobs, err := store.ListJobs(ctx, OpenJobs)
	require.NoError(t, err)
	assert.Equal(t, "9", jobs[0].ID)
}

func TestRefresherRefreshRewarms(t *testing.T) {
	ctx := context.Background()
	next := &countingStore{jobs: []JobListing{{ID: "1"}}}
	store := NewCachedStore(next, cache.NewMemory(), 0, nil)

	refresher := NewRefresher(store, "", nil)
	refresher.Refresh(ctx)
	refresher.Refresh(ctx)

	assert.Equal(t, 2, next.jobCalls)
	assert.Equal(t, 2, next.langCalls)

	_, err := store.ListJobs(ctx, OpenJobs)
	require.NoError(t, err)
	assert.Equal(t, 2, next.jobCalls, "warmed entry must be served from cache")
}

func TestRefresherStopWaitsForInitialWarm(t *testing.T) {
	ctx := context.Background()
	next := &countingStore{jobs: []JobListing{{ID: "1"}}}
	store := NewCachedStore(next, cache.NewMemory(), 0, nil)

	refresher := NewRefresher(store, "@every 1h", nil)
	require.NoError(t, refresher.Start(ctx))
	refresher.Stop()

	assert.Equal(t, 1, next.jobCalls)
	assert.Equal(t, 1, next.langCalls)
}

func TestRefresherRejectsBadSchedule(t *testing.T) {
	store := NewCachedStore(&countingStore{}, cache.NewMemory(), 0, nil)

	err := NewRefresher(store, "not a schedule", nil).Start(context.Background())
	require.Error(t, err)
}
