package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/in-c0/langtern/internal/errors"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "langtern.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	seed := []string{
		`INSERT INTO profiles (id, name, location, field, duration) VALUES ('p1', 'Aiko', 'Sydney', 'Marketing', '3 months')`,
		`INSERT INTO profile_languages (profile_id, language, proficiency, want_to_learn, position) VALUES
			('p1', 'English', 100, 0, 0), ('p1', 'Japanese', 130, 1, 1)`,
		`INSERT INTO profile_skills (profile_id, skill, position) VALUES ('p1', 'Digital Marketing', 0), ('p1', 'Social Media', 1)`,
		`INSERT INTO jobs (id, name, role, city, country, field, is_open, created_at) VALUES
			('1', 'Sakura Cafe', 'Marketing Intern', 'Tokyo', 'Japan', 'Marketing', 1, '2026-01-01'),
			('2', 'Harbour Books', 'Shop Assistant', 'Sydney', 'Australia', 'Retail', 1, '2026-01-02'),
			('3', 'Closed Co', 'Intern', '', '', 'Marketing', 0, '2026-01-03')`,
		`INSERT INTO job_languages (job_id, language, position) VALUES ('1', 'Japanese', 0), ('1', 'English', 1), ('2', 'English', 0)`,
		`INSERT INTO job_skills (job_id, skill, position) VALUES ('1', 'Marketing', 0), ('1', 'SEO', 1)`,
		`INSERT INTO languages (id, name, code) VALUES ('l1', 'Japanese', 'ja'), ('l2', 'English', 'en')`,
		`INSERT INTO skills (id, name, category) VALUES ('s1', 'SEO', 'marketing')`,
	}
	for _, stmt := range seed {
		_, err := store.db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	return store
}

func TestSQLiteGetProfile(t *testing.T) {
	store := openTestStore(t)

	p, err := store.GetProfile(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, "Aiko", p.Name)
	assert.Equal(t, []string{"Digital Marketing", "Social Media"}, p.Skills)
	require.Len(t, p.Languages, 2)
	assert.Equal(t, LanguageSkill{Language: "English", Proficiency: 100}, p.Languages[0])
	assert.Equal(t, LanguageSkill{Language: "Japanese", Proficiency: 100, WantToLearn: true}, p.Languages[1])
	assert.Equal(t, []string{"English", "Japanese"}, p.LanguageNames())
}

func TestSQLiteGetProfileNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetProfile(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSQLiteListJobs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	open, err := store.ListJobs(ctx, OpenJobs)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "1", open[0].ID)
	assert.Equal(t, []string{"Japanese", "English"}, open[0].Languages)
	assert.Equal(t, []string{"Marketing", "SEO"}, open[0].Skills)
	assert.Equal(t, []string{}, open[1].Skills)
	assert.True(t, open[0].Open)

	all, err := store.ListJobs(ctx, JobFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	marketing, err := store.ListJobs(ctx, JobFilter{Field: "marketing"})
	require.NoError(t, err)
	require.Len(t, marketing, 2)
	assert.Equal(t, "3", marketing[1].ID)

	australia, err := store.ListJobs(ctx, JobFilter{Country: "Australia", OpenOnly: true})
	require.NoError(t, err)
	require.Len(t, australia, 1)
	assert.Equal(t, "Harbour Books", australia[0].Name)
}

func TestSQLiteReferenceData(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	languages, err := store.ReferenceLanguages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Language{{ID: "l2", Name: "English", Code: "en"}, {ID: "l1", Name: "Japanese", Code: "ja"}}, languages)

	skills, err := store.ReferenceSkills(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Skill{{ID: "s1", Name: "SEO", Category: "marketing"}}, skills)
}

func TestJobLocation(t *testing.T) {
	tests := []struct {
		job  JobListing
		want string
	}{
		{JobListing{City: "Tokyo", Country: "Japan"}, "Tokyo, Japan"},
		{JobListing{City: "Tokyo"}, "Tokyo"},
		{JobListing{Country: " Japan "}, "Japan"},
		{JobListing{}, "Remote"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.job.Location())
	}
}
