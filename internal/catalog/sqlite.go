package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	apperrors "github.com/in-c0/langtern/internal/errors"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

// SQLiteStore serves the catalog from a local SQLite file. It is meant for
// development and tests; the schema is created when missing.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*UserProfile, error) {
	var p UserProfile
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(location, ''), COALESCE(bio, ''), COALESCE(field, ''),
		        COALESCE(availability, ''), COALESCE(duration, ''),
		        COALESCE(work_arrangement, ''), COALESCE(compensation, '')
		 FROM profiles WHERE id = ?`,
		id,
	).Scan(
		&p.ID, &p.Name, &p.Location, &p.Bio, &p.Field,
		&p.Availability, &p.Duration, &p.WorkArrangement, &p.Compensation,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound(fmt.Sprintf("profile %q", id), err)
	}
	if err != nil {
		return nil, apperrors.Internal("getProfile query", err)
	}

	p.Languages = make([]LanguageSkill, 0)
	rows, err := s.db.QueryContext(ctx,
		`SELECT language, proficiency, want_to_learn FROM profile_languages
		 WHERE profile_id = ? ORDER BY position, rowid`, id)
	if err != nil {
		return nil, apperrors.Internal("getProfile languages query", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l LanguageSkill
		if err := rows.Scan(&l.Language, &l.Proficiency, &l.WantToLearn); err != nil {
			return nil, apperrors.Internal("getProfile languages scan", err)
		}
		l.Proficiency = clampProficiency(l.Proficiency)
		p.Languages = append(p.Languages, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("getProfile languages rows", err)
	}

	p.Skills, err = s.strings(ctx,
		`SELECT skill FROM profile_skills WHERE profile_id = ? ORDER BY position, rowid`, id)
	if err != nil {
		return nil, apperrors.Internal("getProfile skills query", err)
	}

	return &p, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]JobListing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(role, ''), COALESCE(city, ''), COALESCE(country, ''),
		        COALESCE(bio, ''), COALESCE(field, ''), COALESCE(availability, ''),
		        COALESCE(duration, ''), COALESCE(work_arrangement, ''), COALESCE(compensation, ''),
		        is_open
		 FROM jobs
		 WHERE (? = 0 OR is_open = 1)
		   AND (? = '' OR lower(field) = lower(?))
		   AND (? = '' OR lower(country) = lower(?))
		 ORDER BY created_at, rowid`,
		filter.OpenOnly, filter.Field, filter.Field, filter.Country, filter.Country,
	)
	if err != nil {
		return nil, apperrors.Internal("listJobs query", err)
	}

	jobs := make([]JobListing, 0)
	index := make(map[string]int)
	for rows.Next() {
		var j JobListing
		if err := rows.Scan(
			&j.ID, &j.Name, &j.Role, &j.City, &j.Country,
			&j.Bio, &j.Field, &j.Availability,
			&j.Duration, &j.WorkArrangement, &j.Compensation,
			&j.Open,
		); err != nil {
			rows.Close()
			return nil, apperrors.Internal("listJobs scan", err)
		}
		j.Languages = make([]string, 0)
		j.Skills = make([]string, 0)
		index[j.ID] = len(jobs)
		jobs = append(jobs, j)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("listJobs rows", err)
	}
	if len(jobs) == 0 {
		return jobs, nil
	}

	err = s.eachPair(ctx, `SELECT job_id, language FROM job_languages ORDER BY job_id, position, rowid`, func(jobID, v string) {
		if i, ok := index[jobID]; ok {
			jobs[i].Languages = append(jobs[i].Languages, v)
		}
	})
	if err != nil {
		return nil, apperrors.Internal("listJobs languages query", err)
	}

	err = s.eachPair(ctx, `SELECT job_id, skill FROM job_skills ORDER BY job_id, position, rowid`, func(jobID, v string) {
		if i, ok := index[jobID]; ok {
			jobs[i].Skills = append(jobs[i].Skills, v)
		}
	})
	if err != nil {
		return nil, apperrors.Internal("listJobs skills query", err)
	}

	return jobs, nil
}

func (s *SQLiteStore) ReferenceLanguages(ctx context.Context) ([]Language, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, COALESCE(code, '') FROM languages ORDER BY name`)
	if err != nil {
		return nil, apperrors.Internal("referenceLanguages query", err)
	}
	defer rows.Close()

	languages := make([]Language, 0)
	for rows.Next() {
		var l Language
		if err := rows.Scan(&l.ID, &l.Name, &l.Code); err != nil {
			return nil, apperrors.Internal("referenceLanguages scan", err)
		}
		languages = append(languages, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("referenceLanguages rows", err)
	}
	return languages, nil
}

func (s *SQLiteStore) ReferenceSkills(ctx context.Context) ([]Skill, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, COALESCE(category, '') FROM skills ORDER BY name`)
	if err != nil {
		return nil, apperrors.Internal("referenceSkills query", err)
	}
	defer rows.Close()

	skills := make([]Skill, 0)
	for rows.Next() {
		var sk Skill
		if err := rows.Scan(&sk.ID, &sk.Name, &sk.Category); err != nil {
			return nil, apperrors.Internal("referenceSkills scan", err)
		}
		skills = append(skills, sk)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("referenceSkills rows", err)
	}
	return skills, nil
}

func (s *SQLiteStore) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *SQLiteStore) eachPair(ctx context.Context, query string, fn func(key, value string)) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		fn(key, value)
	}
	return rows.Err()
}
