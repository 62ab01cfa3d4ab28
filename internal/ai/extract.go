package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ExtractArray returns the substring from the first '[' to the last ']' of
// raw. The service may wrap the array in prose or code fences.
func ExtractArray(raw string) (string, error) {
	start := strings.IndexByte(raw, '[')
	if start == -1 {
		return "", ErrNoArray
	}
	end := strings.LastIndexByte(raw, ']')
	if end < start {
		return "", ErrNoArray
	}
	return raw[start : end+1], nil
}

type rankingEntry struct {
	ID     any    `mapstructure:"id"`
	JobID  any    `mapstructure:"jobId"`
	JobID2 any    `mapstructure:"job_id"`
	Score  any    `mapstructure:"score"`
	Reason string `mapstructure:"reason"`
}

// ParseRankings strictly decodes candidate as a JSON array of ranking
// objects. Any entry without a usable id fails the whole parse.
func ParseRankings(candidate string) ([]Ranking, error) {
	var decoded any
	if err := json.Unmarshal([]byte(candidate), &decoded); err != nil {
		return nil, &ParseError{Candidate: candidate, Reason: "invalid JSON", Err: err}
	}

	items, ok := decoded.([]any)
	if !ok {
		return nil, &ParseError{Candidate: candidate, Reason: fmt.Sprintf("expected array, got %T", decoded)}
	}

	rankings := make([]Ranking, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &ParseError{Candidate: candidate, Reason: fmt.Sprintf("entry %d is not an object", i)}
		}

		var entry rankingEntry
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &entry,
		})
		if err != nil {
			return nil, &ParseError{Candidate: candidate, Reason: "build decoder", Err: err}
		}
		if err := decoder.Decode(obj); err != nil {
			return nil, &ParseError{Candidate: candidate, Reason: fmt.Sprintf("entry %d", i), Err: err}
		}

		id, ok := firstID(entry.ID, entry.JobID, entry.JobID2)
		if !ok {
			return nil, &ParseError{Candidate: candidate, Reason: fmt.Sprintf("entry %d has no valid job id", i)}
		}

		rankings = append(rankings, Ranking{
			JobID:  id,
			Score:  clampScore(coerceFloat(entry.Score)),
			Reason: strings.TrimSpace(entry.Reason),
		})
	}

	return rankings, nil
}

// ExtractRankings runs both stages over a raw completion reply.
func ExtractRankings(raw string) ([]Ranking, error) {
	candidate, err := ExtractArray(raw)
	if err != nil {
		return nil, err
	}
	return ParseRankings(candidate)
}

func firstID(values ...any) (string, bool) {
	for _, v := range values {
		switch val := v.(type) {
		case string:
			if id := strings.TrimSpace(val); id != "" {
				return id, true
			}
		case float64:
			if math.IsNaN(val) || math.IsInf(val, 0) {
				continue
			}
			return strconv.FormatFloat(val, 'f', -1, 64), true
		}
	}
	return "", false
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "%")), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func clampScore(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	score = math.Round(score)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}
