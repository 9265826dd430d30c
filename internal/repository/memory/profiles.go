package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/repository"
)

// ProfileStore serves profile lookups.
type ProfileStore struct{ db *DB }

// Profiles returns the profile view of the database.
func (s *DB) Profiles() *ProfileStore { return &ProfileStore{db: s} }

func (p *ProfileStore) GetByID(_ context.Context, id uuid.UUID) (*model.Profile, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	prof, ok := p.db.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &prof, nil
}

func (p *ProfileStore) GetByEmail(_ context.Context, email string) (*model.Profile, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	for _, prof := range p.db.profiles {
		if prof.Email != nil && strings.EqualFold(*prof.Email, email) {
			out := prof
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (p *ProfileStore) GetSchoolID(_ context.Context, id uuid.UUID) (int, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	prof, ok := p.db.profiles[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return prof.SchoolID, nil
}

// TokenStore keeps revoked token ids.
type TokenStore struct{ db *DB }

// Tokens returns the token revocation view of the database.
func (s *DB) Tokens() *TokenStore { return &TokenStore{db: s} }

func (t *TokenStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	t.db.revoked[jti] = time.Now().Add(ttl)
	return nil
}

func (t *TokenStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	exp, ok := t.db.revoked[jti]
	return ok && time.Now().Before(exp), nil
}
