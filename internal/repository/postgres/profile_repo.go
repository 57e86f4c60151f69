package postgres

import (
	"context"
	"database/sql"

	"eventhub/internal/domain"
)

type profileRepository struct {
	DB *sql.DB
}

// NewProfileRepository returns a domain.ProfileRepository implemented with Postgres.
func NewProfileRepository(db *sql.DB) domain.ProfileRepository {
	return &profileRepository{DB: db}
}

// Upsert writes every profile field by id. A nil Email keeps the stored value,
// so the key is effectively omitted rather than nulled.
func (r *profileRepository) Upsert(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, username, full_name, email, role, bio, website, avatar_url, skills, college)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			full_name = EXCLUDED.full_name,
			email = COALESCE(EXCLUDED.email, profiles.email),
			role = EXCLUDED.role,
			bio = EXCLUDED.bio,
			website = EXCLUDED.website,
			avatar_url = EXCLUDED.avatar_url,
			skills = EXCLUDED.skills,
			college = EXCLUDED.college,
			updated_at = NOW()
	`
	_, err := r.DB.ExecContext(ctx, query,
		p.ID, p.Username, p.FullName, p.Email, p.Role, p.Bio, p.Website, p.AvatarURL, p.Skills, p.College,
	)
	return writeErr("profiles.upsert", err)
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `
		SELECT id, username, full_name, email, role, bio, website, avatar_url, skills, college
		FROM profiles
		WHERE id = $1
	`
	p := &domain.Profile{}
	var username, fullName, email, role, bio, website, avatar, skills, college sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &username, &fullName, &email, &role, &bio, &website, &avatar, &skills, &college,
	)
	if err != nil {
		return nil, readErr("profiles.select", err)
	}
	p.Username = nullString(username)
	p.FullName = nullString(fullName)
	p.Email = nullString(email)
	if role.Valid {
		rl := domain.Role(role.String)
		p.Role = &rl
	}
	p.Bio = nullString(bio)
	p.Website = nullString(website)
	p.AvatarURL = nullString(avatar)
	p.Skills = nullString(skills)
	p.College = nullString(college)
	return p, nil
}

// CountByUsername compares case-insensitively. excludeID is compared as text
// so an empty id excludes nothing.
func (r *profileRepository) CountByUsername(ctx context.Context, username, excludeID string) (int, error) {
	query := `SELECT COUNT(*) FROM profiles WHERE lower(username) = lower($1) AND id::text <> $2`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, username, excludeID).Scan(&n); err != nil {
		return 0, readErr("profiles.count_username", err)
	}
	return n, nil
}
