// Package catalog holds the profile, job and reference data read by the
// matching core, together with the storage backends that serve them.
package catalog

import (
	"context"
	"strings"
)

// Language is an entry of the static language catalog.
type Language struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// Skill is an entry of the static skill catalog.
type Skill struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// LanguageSkill is one language declared on a profile.
type LanguageSkill struct {
	Language    string `json:"language"`
	Proficiency int    `json:"proficiency"`
	WantToLearn bool   `json:"wantToLearn"`
}

type UserProfile struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Location        string          `json:"location,omitempty"`
	Bio             string          `json:"bio,omitempty"`
	Languages       []LanguageSkill `json:"languages"`
	Skills          []string        `json:"skills"`
	Field           string          `json:"field"`
	Availability    string          `json:"availability,omitempty"`
	Duration        string          `json:"duration,omitempty"`
	WorkArrangement string          `json:"workArrangement,omitempty"`
	Compensation    string          `json:"compensation,omitempty"`
}

// LanguageNames returns the names of the profile languages in declaration order.
func (p *UserProfile) LanguageNames() []string {
	names := make([]string, 0, len(p.Languages))
	for _, l := range p.Languages {
		names = append(names, l.Language)
	}
	return names
}

type JobListing struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Role            string   `json:"role,omitempty"`
	City            string   `json:"city,omitempty"`
	Country         string   `json:"country,omitempty"`
	Bio             string   `json:"bio,omitempty"`
	Languages       []string `json:"languages"`
	Skills          []string `json:"skills"`
	Field           string   `json:"field,omitempty"`
	Availability    string   `json:"availability,omitempty"`
	Duration        string   `json:"duration,omitempty"`
	WorkArrangement string   `json:"workArrangement,omitempty"`
	Compensation    string   `json:"compensation,omitempty"`
	Open            bool     `json:"open"`
}

// Location renders "city, country", whichever half is present, or "Remote".
func (j *JobListing) Location() string {
	city := strings.TrimSpace(j.City)
	country := strings.TrimSpace(j.Country)
	switch {
	case city != "" && country != "":
		return city + ", " + country
	case city != "":
		return city
	case country != "":
		return country
	default:
		return "Remote"
	}
}

// JobFilter narrows ListJobs. The zero value lists every job.
type JobFilter struct {
	Field    string
	Country  string
	OpenOnly bool
}

// OpenJobs is the filter used by the matching core.
var OpenJobs = JobFilter{OpenOnly: true}

func (f JobFilter) key() string {
	open := "all"
	if f.OpenOnly {
		open = "open"
	}
	return strings.ToLower(strings.Join([]string{open, strings.TrimSpace(f.Field), strings.TrimSpace(f.Country)}, ":"))
}

// Store is the read interface the matching core depends on. GetProfile
// returns an errors.NotFound DomainError when the profile does not exist.
type Store interface {
	GetProfile(ctx context.Context, id string) (*UserProfile, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]JobListing, error)
	ReferenceLanguages(ctx context.Context) ([]Language, error)
	ReferenceSkills(ctx context.Context) ([]Skill, error)
}

func clampProficiency(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
