package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/classroom-backend/internal/model"
)

// ProfileRepository handles profile and school data access.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

const profileColumns = `id, COALESCE(school_id, 0), full_name, email, role, password_hash, created_at, updated_at`

func scanProfile(row pgx.Row) (*model.Profile, error) {
	p := &model.Profile{}
	err := row.Scan(&p.ID, &p.SchoolID, &p.FullName, &p.Email, &p.Role, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

// GetByID retrieves a profile by its ID.
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

// GetByEmail retrieves a profile by its login email.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`, email))
}

// GetSchoolID returns the school of a profile, or 0 when none is set.
func (r *ProfileRepository) GetSchoolID(ctx context.Context, id uuid.UUID) (int, error) {
	var schoolID int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(school_id, 0) FROM profiles WHERE id = $1`, id,
	).Scan(&schoolID)
	if err != nil {
		return 0, classify(err)
	}
	return schoolID, nil
}

// Create inserts a new profile. A zero ID is replaced by a new random one.
func (r *ProfileRepository) Create(ctx context.Context, p *model.Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	var schoolID *int
	if p.SchoolID != 0 {
		schoolID = &p.SchoolID
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO profiles (id, school_id, full_name, email, role, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		p.ID, schoolID, p.FullName, p.Email, p.Role, p.PasswordHash,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return classify(err)
}

// CreateStudent inserts a student profile together with its details.
func (r *ProfileRepository) CreateStudent(ctx context.Context, s *model.Student) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO profiles (id, school_id, full_name, role) VALUES ($1, $2, $3, $4)`,
			s.ID, s.SchoolID, s.FullName, model.RoleStudent,
		); err != nil {
			return classify(err)
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO student_details (user_id, nis, gender, boarding) VALUES ($1, $2, $3, $4)`,
			s.ID, s.NIS, s.Gender, s.Boarding,
		)
		return classify(err)
	})
}

// CreateSchool inserts a school and fills its ID.
func (r *ProfileRepository) CreateSchool(ctx context.Context, s *model.School) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO schools (name) VALUES ($1) RETURNING id, created_at`, s.Name,
	).Scan(&s.ID, &s.CreatedAt)
	return classify(err)
}
