package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/in-c0/langtern/internal/ai"
	"github.com/in-c0/langtern/internal/catalog"
	apperrors "github.com/in-c0/langtern/internal/errors"
	"github.com/in-c0/langtern/internal/events"
	"github.com/in-c0/langtern/internal/logger"
)

type stubStore struct {
	profile    *catalog.UserProfile
	profileErr error
	jobs       []catalog.JobListing
	jobsErr    error
	filter     catalog.JobFilter
}

func (s *stubStore) GetProfile(_ context.Context, id string) (*catalog.UserProfile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return s.profile, nil
}

func (s *stubStore) ListJobs(_ context.Context, filter catalog.JobFilter) ([]catalog.JobListing, error) {
	s.filter = filter
	return s.jobs, s.jobsErr
}

func (s *stubStore) ReferenceLanguages(context.Context) ([]catalog.Language, error) { return nil, nil }

func (s *stubStore) ReferenceSkills(context.Context) ([]catalog.Skill, error) { return nil, nil }

// completerRanker runs the real ai.Ranker over a canned completion.
func completerRanker(response string, err error) *ai.Ranker {
	return ai.NewRanker(&stubCompleter{response: response, err: err}, nil, 0, 0)
}

type stubCompleter struct {
	response string
	err      error
	calls    int
}

func (s *stubCompleter) Complete(context.Context, string) (string, error) {
	s.calls++
	return s.response, s.err
}

type recordingPublisher struct {
	events []events.MatchesServed
	err    error
}

func (p *recordingPublisher) PublishMatchesServed(_ context.Context, e events.MatchesServed) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func catalogJobs() []catalog.JobListing {
	return []catalog.JobListing{
		{ID: "1", Name: "Harbour Books", City: "Sydney", Country: "Australia", Languages: []string{"English"}},
		{ID: "2", Name: "Seoul Startup", Country: "Korea", Skills: []string{"Social Media"}, Languages: []string{"Korean"}},
		sakuraCafe(),
	}
}

func newTestOrchestrator(store catalog.Store, ranker Ranker, pub events.Publisher) *Orchestrator {
	return NewOrchestrator(store, ranker, pub, zap.NewNop(), Options{AIEnabled: true, AITimeout: time.Second})
}

func TestMatchAIScoreIsClamped(t *testing.T) {
	orch := newTestOrchestrator(nil, completerRanker(`[{"id": 3, "score": 150, "reason": "great fit"}]`, nil), nil)

	outcome := orch.Match(context.Background(), marketingProfile(), catalogJobs())

	require.Equal(t, SourceAI, outcome.Source)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "3", outcome.Results[0].ID)
	assert.Equal(t, 100, outcome.Results[0].MatchPercentage)
	assert.Equal(t, []string{"great fit"}, outcome.Results[0].MatchReasons)
	assert.Equal(t, "Tokyo, Japan", outcome.Results[0].Location)
	assert.Equal(t, []string{"Marketing"}, outcome.Results[0].Skills)
}

func TestMatchAIDropsUnknownJobs(t *testing.T) {
	orch := newTestOrchestrator(nil, completerRanker(`[{"id": 99, "score": 80, "reason": "ghost"}]`, nil), nil)

	outcome := orch.Match(context.Background(), marketingProfile(), catalogJobs())

	assert.Equal(t, SourceAI, outcome.Source)
	assert.NotNil(t, outcome.Results)
	assert.Empty(t, outcome.Results)
}

func TestMatchAISortsStableAndDeduplicates(t *testing.T) {
	response := `Here are my picks:
[
  {"id": "1", "score": 40, "reason": "english"},
  {"id": "2", "score": 90},
  {"id": "3", "score": 40, "reason": "cafe"},
  {"id": "2", "score": 10, "reason": "duplicate"},
  {"id": "1", "score": -10}
]`
	orch := newTestOrchestrator(nil, completerRanker(response, nil), nil)

	outcome := orch.Match(context.Background(), marketingProfile(), catalogJobs())

	require.Equal(t, SourceAI, outcome.Source)
	require.Len(t, outcome.Results, 3)

	ids := []string{outcome.Results[0].ID, outcome.Results[1].ID, outcome.Results[2].ID}
	assert.Equal(t, []string{"2", "1", "3"}, ids)
	assert.Equal(t, 90, outcome.Results[0].MatchPercentage)
	// an empty AI reason falls back to the local reasons
	assert.NotEmpty(t, outcome.Results[0].MatchReasons)
	assert.NotEqual(t, "duplicate", outcome.Results[0].MatchReasons[0])
}

func TestMatchFallsBackOnAIFailure(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{name: "completer error", err: errors.New("503 unavailable")},
		{name: "no array", response: "Sorry, I can't rank these."},
		{name: "invalid json", response: `[{"id": 1,,}]`},
		{name: "entry without id", response: `[{"score": 50}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch := newTestOrchestrator(nil, completerRanker(tt.response, tt.err), nil)

			jobs := catalogJobs()
			outcome := orch.Match(context.Background(), marketingProfile(), jobs)

			require.Equal(t, SourceFallback, outcome.Source)
			require.Len(t, outcome.Results, len(jobs))
			for i, r := range outcome.Results {
				assert.Equal(t, jobs[i].ID, r.ID, "fallback keeps catalog order")
				assert.NotEmpty(t, r.MatchReasons)
				assert.GreaterOrEqual(t, r.MatchPercentage, 0)
				assert.LessOrEqual(t, r.MatchPercentage, 100)
			}
			assert.Equal(t, 75, outcome.Results[2].MatchPercentage)
		})
	}
}

type slowRanker struct{}

func (slowRanker) Rank(ctx context.Context, _ *catalog.UserProfile, _ []catalog.JobListing) ([]ai.Ranking, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestMatchFallsBackOnTimeout(t *testing.T) {
	orch := NewOrchestrator(nil, slowRanker{}, nil, nil, Options{AIEnabled: true, AITimeout: 10 * time.Millisecond})

	outcome := orch.Match(context.Background(), marketingProfile(), catalogJobs())

	assert.Equal(t, SourceFallback, outcome.Source)
	assert.Len(t, outcome.Results, 3)
}

func TestMatchAIDisabledSkipsRanker(t *testing.T) {
	completer := &stubCompleter{response: `[{"id": "1", "score": 99}]`}
	ranker := ai.NewRanker(completer, nil, 0, 0)
	orch := NewOrchestrator(nil, ranker, nil, nil, Options{AIEnabled: false})

	outcome := orch.Match(context.Background(), marketingProfile(), catalogJobs())

	assert.Equal(t, SourceFallback, outcome.Source)
	assert.Zero(t, completer.calls)
}

func TestMatchEmptyCatalog(t *testing.T) {
	completer := &stubCompleter{response: `[]`}
	orch := newTestOrchestrator(nil, ai.NewRanker(completer, nil, 0, 0), nil)

	outcome := orch.Match(context.Background(), marketingProfile(), nil)

	assert.NotNil(t, outcome.Results)
	assert.Empty(t, outcome.Results)
	assert.Zero(t, completer.calls)
}

func TestFindMatchesLoadsOpenJobs(t *testing.T) {
	store := &stubStore{profile: marketingProfile(), jobs: catalogJobs()}
	pub := &recordingPublisher{}
	orch := newTestOrchestrator(store, completerRanker("", errors.New("down")), pub)
	orch.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }

	outcome := orch.FindMatches(context.Background(), "p1")

	assert.Equal(t, catalog.OpenJobs, store.filter)
	assert.Equal(t, SourceFallback, outcome.Source)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.MatchesServed{
		ProfileID: "p1",
		Source:    "fallback",
		Count:     3,
		JobIDs:    []string{"1", "2", "3"},
		At:        time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}, pub.events[0])
}

func TestFindMatchesStorageFailuresYieldEmptyOutcome(t *testing.T) {
	tests := []struct {
		name  string
		store *stubStore
		level zapcore.Level
	}{
		{
			name:  "profile not found",
			store: &stubStore{profileErr: apperrors.NotFound("profile", nil)},
			level: zapcore.WarnLevel,
		},
		{
			name:  "profile query failed",
			store: &stubStore{profileErr: apperrors.Internal("db", errors.New("conn reset"))},
			level: zapcore.ErrorLevel,
		},
		{
			name:  "catalog unreachable",
			store: &stubStore{profile: marketingProfile(), jobsErr: errors.New("timeout")},
			level: zapcore.ErrorLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			pub := &recordingPublisher{}
			orch := NewOrchestrator(tt.store, nil, pub, zap.New(core), Options{})

			outcome := orch.FindMatches(context.Background(), "p1")

			assert.Equal(t, SourceNone, outcome.Source)
			assert.NotNil(t, outcome.Results)
			assert.Empty(t, outcome.Results)
			assert.Empty(t, pub.events)
			require.Equal(t, 1, logs.Len())
			assert.Equal(t, tt.level, logs.All()[0].Level)
		})
	}
}

func TestPublishFailureIsOnlyLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	pub := &recordingPublisher{err: errors.New("nats down")}
	orch := NewOrchestrator(nil, nil, pub, zap.New(core), Options{})

	outcome := orch.Match(context.Background(), marketingProfile(), catalogJobs())

	assert.Len(t, outcome.Results, 3)
	assert.Equal(t, 1, logs.FilterMessage("failed to publish matches event").Len())
}

func TestMatchUnknownJobLogCarriesRequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ranker := completerRanker(`[{"id": "99", "score": 90}, {"id": "1", "score": 80}]`, nil)
	orch := NewOrchestrator(nil, ranker, nil, zap.New(core), Options{AIEnabled: true})
	ctx := logger.ContextWithRequestID(context.Background(), "req-1")

	outcome := orch.Match(ctx, marketingProfile(), catalogJobs())
	require.Equal(t, SourceAI, outcome.Source)

	dropped := logs.FilterMessage("dropping ranking for unknown job").All()
	require.Len(t, dropped, 1)
	fields := dropped[0].ContextMap()
	assert.Equal(t, "req-1", fields[logger.FieldRequestID])
	assert.Equal(t, "p1", fields[logger.FieldProfileID])
	assert.Equal(t, "99", fields["job_id"])
}
