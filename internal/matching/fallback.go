// Package matching ranks open job listings for a profile. It prefers the
// AI ranker and substitutes a local heuristic whenever the AI path fails.
package matching

import (
	"fmt"
	"strings"

	"github.com/in-c0/langtern/internal/catalog"
)

// Assessment is the local heuristic's view of one (profile, job) pair.
type Assessment struct {
	Percentage int
	Reasons    []string
	// Languages and Skills hold the job-side names that overlapped.
	Languages []string
	Skills    []string
}

// Score computes the heuristic match of profile against job. It never fails
// and always returns at least one reason.
//
// Each half of the score counts job entries that contain, or are contained
// in, some profile entry (case-insensitive), divided by the larger of the two
// list lengths and weighted 50 points.
func Score(profile *catalog.UserProfile, job *catalog.JobListing) Assessment {
	if profile == nil {
		profile = &catalog.UserProfile{}
	}
	if job == nil {
		job = &catalog.JobListing{}
	}

	profileLanguages := profile.LanguageNames()
	skills := overlap(job.Skills, profile.Skills)
	languages := overlap(job.Languages, profileLanguages)

	var sum fraction
	sum = sum.add(len(skills)*50, max(len(job.Skills), len(profile.Skills)))
	sum = sum.add(len(languages)*50, max(len(job.Languages), len(profileLanguages)))

	reasons := make([]string, 0, 3)
	if n := len(skills); n > 0 {
		reasons = append(reasons, fmt.Sprintf("%d matching %s: %s", n, plural(n, "skill", "skills"), strings.Join(skills, ", ")))
	}
	if n := len(languages); n > 0 {
		reasons = append(reasons, fmt.Sprintf("Speaks %d of the listing's %s: %s", n, plural(n, "language", "languages"), strings.Join(languages, ", ")))
	}
	reasons = append(reasons, locationReason(profile, job))

	return Assessment{
		Percentage: clampPercentage(sum.floor()),
		Reasons:    reasons,
		Languages:  languages,
		Skills:     skills,
	}
}

// overlap returns the entries of wanted that substring-match any entry of
// have, in wanted's order.
//
// Entries are trimmed and blank ones are skipped on both sides. Plain
// containment would let "" match every name, so a stray empty skill would
// otherwise count as a full overlap. Skipped entries still count towards the
// list lengths in Score's denominator.
func overlap(wanted, have []string) []string {
	normalized := make([]string, 0, len(have))
	for _, h := range have {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			normalized = append(normalized, h)
		}
	}

	matched := make([]string, 0)
	for _, w := range wanted {
		lw := strings.ToLower(strings.TrimSpace(w))
		if lw == "" {
			continue
		}
		for _, h := range normalized {
			if strings.Contains(lw, h) || strings.Contains(h, lw) {
				matched = append(matched, strings.TrimSpace(w))
				break
			}
		}
	}
	return matched
}

func locationReason(profile *catalog.UserProfile, job *catalog.JobListing) string {
	location := job.Location()
	if location == "Remote" {
		return "Remote position, work from anywhere"
	}

	home := strings.ToLower(strings.TrimSpace(profile.Location))
	if home != "" {
		for _, part := range []string{job.City, job.Country} {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" && (strings.Contains(home, part) || strings.Contains(part, home)) {
				return "Close to your location: " + location
			}
		}
	}
	return "Located in " + location
}

// fraction accumulates a sum of ratios exactly so that flooring does not
// depend on float rounding.
type fraction struct {
	num, den int
}

// add adds n/d; a zero denominator contributes nothing.
func (f fraction) add(n, d int) fraction {
	if d == 0 {
		return f
	}
	if f.den == 0 {
		return fraction{num: n, den: d}
	}
	return fraction{num: f.num*d + n*f.den, den: f.den * d}
}

func (f fraction) floor() int {
	if f.den == 0 {
		return 0
	}
	return f.num / f.den
}

func clampPercentage(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
