package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/config"
	"github.com/stemsi/classroom-backend/internal/model"
)

// SchoolCacheTTL is how long a teacher's school stays cached.
const SchoolCacheTTL = 10 * time.Minute

// ProfileSource is the uncached profile lookup.
type ProfileSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	GetSchoolID(ctx context.Context, id uuid.UUID) (int, error)
}

// CachedProfiles serves school lookups from Redis before hitting PostgreSQL.
// Every access check resolves the caller's school, so this is the hot path.
// Entries live for SchoolCacheTTL and are rewritten whenever a full profile
// is loaded, so a login always sees the current school. A teacher moved to
// another school keeps the old one in access checks until then.
type CachedProfiles struct {
	ProfileSource
	rdb *redis.Client
	log zerolog.Logger
}

// NewCachedProfiles wraps src with a Redis school cache.
func NewCachedProfiles(src ProfileSource, rdb *redis.Client, log zerolog.Logger) *CachedProfiles {
	return &CachedProfiles{
		ProfileSource: src,
		rdb:           rdb,
		log:           log.With().Str("component", "profile_cache").Logger(),
	}
}

// GetByID loads a profile and refreshes its cached school.
func (c *CachedProfiles) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	p, err := c.ProfileSource.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.remember(ctx, p)
	return p, nil
}

// GetByEmail loads a profile and refreshes its cached school.
func (c *CachedProfiles) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	p, err := c.ProfileSource.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	c.remember(ctx, p)
	return p, nil
}

// GetSchoolID returns the cached school id, loading and caching it on a miss.
// Redis failures fall through to the source.
func (c *CachedProfiles) GetSchoolID(ctx context.Context, id uuid.UUID) (int, error) {
	key := config.CacheKey.TeacherSchoolKey(id.String())

	schoolID, err := c.rdb.Get(ctx, key).Int()
	switch {
	case err == nil:
		return schoolID, nil
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Msg("School cache read failed")
	}

	schoolID, err = c.ProfileSource.GetSchoolID(ctx, id)
	if err != nil {
		return 0, err
	}
	c.store(ctx, key, schoolID)
	return schoolID, nil
}

func (c *CachedProfiles) remember(ctx context.Context, p *model.Profile) {
	c.store(ctx, config.CacheKey.TeacherSchoolKey(p.ID.String()), p.SchoolID)
}

// store caches a positive school id and drops the entry otherwise. A missing
// school may be fixed by an administrator at any time.
func (c *CachedProfiles) store(ctx context.Context, key string, schoolID int) {
	var err error
	if schoolID > 0 {
		err = c.rdb.Set(ctx, key, schoolID, SchoolCacheTTL).Err()
	} else {
		err = c.rdb.Del(ctx, key).Err()
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("School cache write failed")
	}
}
