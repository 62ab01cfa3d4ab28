package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/in-c0/langtern/internal/errors"
)

// PostgresStore reads the catalog from PostgreSQL. The schema is owned by the
// main application; this store only issues SELECTs.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates and verifies a pgxpool connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*UserProfile, error) {
	var p UserProfile
	err := s.pool.QueryRow(ctx,
		`SELECT p.id, p.name, COALESCE(p.location, ''), COALESCE(p.bio, ''), COALESCE(p.field, ''),
		        COALESCE(p.availability, ''), COALESCE(p.duration, ''),
		        COALESCE(p.work_arrangement, ''), COALESCE(p.compensation, ''),
		        COALESCE((SELECT array_agg(s.skill ORDER BY s.position) FROM profile_skills s WHERE s.profile_id = p.id), '{}')
		 FROM profiles p
		 WHERE p.id = $1`,
		id,
	).Scan(
		&p.ID, &p.Name, &p.Location, &p.Bio, &p.Field,
		&p.Availability, &p.Duration, &p.WorkArrangement, &p.Compensation,
		&p.Skills,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound(fmt.Sprintf("profile %q", id), err)
	}
	if err != nil {
		return nil, apperrors.Internal("getProfile query", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT language, proficiency, want_to_learn
		 FROM profile_languages
		 WHERE profile_id = $1
		 ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, apperrors.Internal("getProfile languages query", err)
	}
	defer rows.Close()

	p.Languages = make([]LanguageSkill, 0)
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

	return &p, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]JobListing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT j.id, j.name, COALESCE(j.role, ''), COALESCE(j.city, ''), COALESCE(j.country, ''),
		        COALESCE(j.bio, ''), COALESCE(j.field, ''), COALESCE(j.availability, ''),
		        COALESCE(j.duration, ''), COALESCE(j.work_arrangement, ''), COALESCE(j.compensation, ''),
		        j.is_open,
		        COALESCE((SELECT array_agg(l.language ORDER BY l.position) FROM job_languages l WHERE l.job_id = j.id), '{}'),
		        COALESCE((SELECT array_agg(s.skill ORDER BY s.position) FROM job_skills s WHERE s.job_id = j.id), '{}')
		 FROM jobs j
		 WHERE ($1::boolean = false OR j.is_open)
		   AND ($2 = '' OR lower(j.field) = lower($2))
		   AND ($3 = '' OR lower(j.country) = lower($3))
		 ORDER BY j.created_at, j.id`,
		filter.OpenOnly, filter.Field, filter.Country,
	)
	if err != nil {
		return nil, apperrors.Internal("listJobs query", err)
	}
	defer rows.Close()

	jobs := make([]JobListing, 0)
	for rows.Next() {
		var j JobListing
		if err := rows.Scan(
			&j.ID, &j.Name, &j.Role, &j.City, &j.Country,
			&j.Bio, &j.Field, &j.Availability,
			&j.Duration, &j.WorkArrangement, &j.Compensation,
			&j.Open, &j.Languages, &j.Skills,
		); err != nil {
			return nil, apperrors.Internal("listJobs scan", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("listJobs rows", err)
	}
	return jobs, nil
}

func (s *PostgresStore) ReferenceLanguages(ctx context.Context) ([]Language, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, COALESCE(code, '') FROM languages ORDER BY name`)
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

func (s *PostgresStore) ReferenceSkills(ctx context.Context) ([]Skill, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, COALESCE(category, '') FROM skills ORDER BY name`)
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
