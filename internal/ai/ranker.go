package ai

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/in-c0/langtern/internal/catalog"
	"github.com/in-c0/langtern/internal/utils"
)

//go:embed ranking_prompt.md
var rankingPrompt string

const (
	defaultMaxLogLength = 200
	DefaultTopN         = 5
)

type Ranker struct {
	completer Completer
	logger    *zap.Logger
	topN      int
	maxLogLen int
}

func NewRanker(completer Completer, logger *zap.Logger, topN, maxLogLength int) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Ranker{
		completer: completer,
		logger:    logger,
		topN:      topN,
		maxLogLen: maxLogLength,
	}
}

// Rank asks the completion service to rank jobs for profile. Any transport or
// extraction failure is returned as is; the caller decides how to fall back.
// The number of rankings is whatever the service returned.
func (r *Ranker) Rank(ctx context.Context, profile *catalog.UserProfile, jobs []catalog.JobListing) ([]Ranking, error) {
	if profile == nil {
		return nil, fmt.Errorf("profile is required")
	}

	prompt, err := r.buildPrompt(profile, jobs)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("ranking request",
		zap.String("profile_id", profile.ID),
		zap.Int("jobs", len(jobs)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, r.maxLogLen)),
	)

	raw, err := r.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}

	r.logger.Debug("ranking response",
		zap.String("profile_id", profile.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, r.maxLogLen)),
	)

	return ExtractRankings(raw)
}

type promptJob struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Role            string   `json:"role,omitempty"`
	Location        string   `json:"location"`
	Field           string   `json:"field,omitempty"`
	Languages       []string `json:"languages"`
	Skills          []string `json:"skills"`
	Availability    string   `json:"availability,omitempty"`
	WorkArrangement string   `json:"workArrangement,omitempty"`
	Compensation    string   `json:"compensation,omitempty"`
	Bio             string   `json:"bio,omitempty"`
}

func (r *Ranker) buildPrompt(profile *catalog.UserProfile, jobs []catalog.JobListing) (string, error) {
	payload := make([]promptJob, 0, len(jobs))
	for i := range jobs {
		j := &jobs[i]
		payload = append(payload, promptJob{
			ID:              j.ID,
			Name:            j.Name,
			Role:            j.Role,
			Location:        j.Location(),
			Field:           j.Field,
			Languages:       nonNil(j.Languages),
			Skills:          nonNil(j.Skills),
			Availability:    j.Availability,
			WorkArrangement: j.WorkArrangement,
			Compensation:    j.Compensation,
			Bio:             j.Bio,
		})
	}

	jobsJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal jobs payload: %w", err)
	}

	languages := make([]string, 0, len(profile.Languages))
	for _, l := range profile.Languages {
		entry := fmt.Sprintf("%s (%d)", l.Language, l.Proficiency)
		if l.WantToLearn {
			entry += " wants to learn"
		}
		languages = append(languages, entry)
	}

	prompt := strings.NewReplacer(
		"{{LANGUAGES}}", orNone(strings.Join(languages, ", ")),
		"{{SKILLS}}", orNone(strings.Join(profile.Skills, ", ")),
		"{{FIELD}}", orNone(profile.Field),
		"{{AVAILABILITY}}", orNone(profile.Availability),
		"{{WORK_ARRANGEMENT}}", orNone(profile.WorkArrangement),
		"{{JOBS_JSON}}", string(jobsJSON),
		"{{TOP_N}}", strconv.Itoa(r.topN),
	).Replace(rankingPrompt)

	return prompt, nil
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
