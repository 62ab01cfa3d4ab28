package matching

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/in-c0/langtern/internal/ai"
	"github.com/in-c0/langtern/internal/catalog"
	apperrors "github.com/in-c0/langtern/internal/errors"
	"github.com/in-c0/langtern/internal/events"
	"github.com/in-c0/langtern/internal/logger"
)

// Source tells which path produced an Outcome.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
	SourceNone     Source = "none"
)

const DefaultAITimeout = 20 * time.Second

type MatchResult struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Role            string   `json:"role"`
	Location        string   `json:"location"`
	Languages       []string `json:"languages"`
	Skills          []string `json:"skills"`
	Duration        string   `json:"duration"`
	WorkArrangement string   `json:"workArrangement"`
	Compensation    string   `json:"compensation"`
	MatchPercentage int      `json:"matchPercentage"`
	MatchReasons    []string `json:"matchReasons"`
}

// Outcome is the result of one matching request. Results is never nil.
type Outcome struct {
	Results []MatchResult
	Source  Source
}

// Ranker is the AI ranking boundary; *ai.Ranker implements it.
type Ranker interface {
	Rank(ctx context.Context, profile *catalog.UserProfile, jobs []catalog.JobListing) ([]ai.Ranking, error)
}

type Options struct {
	// AIEnabled turns the AI path on. With it off, or without a ranker,
	// every request is scored locally.
	AIEnabled bool
	AITimeout time.Duration
}

type Orchestrator struct {
	store     catalog.Store
	ranker    Ranker
	publisher events.Publisher
	logger    *zap.Logger
	opts      Options
	now       func() time.Time
}

func NewOrchestrator(store catalog.Store, ranker Ranker, publisher events.Publisher, logger *zap.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if opts.AITimeout <= 0 {
		opts.AITimeout = DefaultAITimeout
	}

	return &Orchestrator{
		store:     store,
		ranker:    ranker,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// FindMatches loads the profile and the open job catalog and ranks them.
// It never returns an error: storage failures yield an empty Outcome with
// SourceNone.
func (o *Orchestrator) FindMatches(ctx context.Context, profileID string) *Outcome {
	log := o.logger.With(logger.RequestFields(logger.RequestID(ctx), profileID)...)

	profile, err := o.store.GetProfile(ctx, profileID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			log.Warn("profile not found", zap.Error(err))
		} else {
			log.Error("failed to load profile", zap.Error(err))
		}
		return emptyOutcome()
	}

	jobs, err := o.store.ListJobs(ctx, catalog.OpenJobs)
	if err != nil {
		log.Error("failed to load job catalog", zap.Error(err))
		return emptyOutcome()
	}

	return o.Match(ctx, profile, jobs)
}

// Match ranks jobs for profile. The AI path runs first, bounded by the
// configured timeout; any failure there switches to the local scorer over
// the whole catalog.
func (o *Orchestrator) Match(ctx context.Context, profile *catalog.UserProfile, jobs []catalog.JobListing) *Outcome {
	if profile == nil {
		return emptyOutcome()
	}
	log := o.logger.With(logger.RequestFields(logger.RequestID(ctx), profile.ID)...)

	var outcome *Outcome
	switch {
	case len(jobs) == 0:
		outcome = &Outcome{Results: []MatchResult{}, Source: SourceFallback}
	case o.opts.AIEnabled && o.ranker != nil:
		results, err := o.rankWithAI(ctx, log, profile, jobs)
		if err != nil {
			log.Warn("ai ranking failed, using fallback scorer", zap.Error(err))
			outcome = &Outcome{Results: fallbackResults(profile, jobs), Source: SourceFallback}
		} else {
			outcome = &Outcome{Results: results, Source: SourceAI}
		}
	default:
		outcome = &Outcome{Results: fallbackResults(profile, jobs), Source: SourceFallback}
	}

	log.Info("matches served",
		zap.String("source", string(outcome.Source)),
		zap.Int("jobs", len(jobs)),
		zap.Int("results", len(outcome.Results)),
	)
	o.publish(ctx, log, profile.ID, outcome)

	return outcome
}

func (o *Orchestrator) rankWithAI(ctx context.Context, log *zap.Logger, profile *catalog.UserProfile, jobs []catalog.JobListing) ([]MatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.AITimeout)
	defer cancel()

	rankings, err := o.ranker.Rank(ctx, profile, jobs)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*catalog.JobListing, len(jobs))
	for i := range jobs {
		if _, exists := byID[jobs[i].ID]; !exists {
			byID[jobs[i].ID] = &jobs[i]
		}
	}

	seen := make(map[string]struct{}, len(rankings))
	results := make([]MatchResult, 0, len(rankings))
	for _, r := range rankings {
		job, ok := byID[r.JobID]
		if !ok {
			log.Debug("dropping ranking for unknown job", zap.String("job_id", r.JobID))
			continue
		}
		if _, dup := seen[r.JobID]; dup {
			continue
		}
		seen[r.JobID] = struct{}{}

		assessment := Score(profile, job)
		reasons := assessment.Reasons
		if r.Reason != "" {
			reasons = []string{r.Reason}
		}
		results = append(results, newResult(job, assessment, clampPercentage(r.Score), reasons))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchPercentage > results[j].MatchPercentage
	})

	return results, nil
}

func fallbackResults(profile *catalog.UserProfile, jobs []catalog.JobListing) []MatchResult {
	results := make([]MatchResult, 0, len(jobs))
	for i := range jobs {
		assessment := Score(profile, &jobs[i])
		results = append(results, newResult(&jobs[i], assessment, assessment.Percentage, assessment.Reasons))
	}
	return results
}

func newResult(job *catalog.JobListing, a Assessment, percentage int, reasons []string) MatchResult {
	return MatchResult{
		ID:              job.ID,
		Name:            job.Name,
		Role:            job.Role,
		Location:        job.Location(),
		Languages:       a.Languages,
		Skills:          a.Skills,
		Duration:        job.Duration,
		WorkArrangement: job.WorkArrangement,
		Compensation:    job.Compensation,
		MatchPercentage: percentage,
		MatchReasons:    reasons,
	}
}

func (o *Orchestrator) publish(ctx context.Context, log *zap.Logger, profileID string, outcome *Outcome) {
	ids := make([]string, 0, len(outcome.Results))
	for _, r := range outcome.Results {
		ids = append(ids, r.ID)
	}

	err := o.publisher.PublishMatchesServed(ctx, events.MatchesServed{
		ProfileID: profileID,
		Source:    string(outcome.Source),
		Count:     len(outcome.Results),
		JobIDs:    ids,
		At:        o.now().UTC(),
	})
	if err != nil {
		log.Warn("failed to publish matches event", zap.Error(err))
	}
}

func emptyOutcome() *Outcome {
	return &Outcome{Results: []MatchResult{}, Source: SourceNone}
}
