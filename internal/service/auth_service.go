package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/classroom-backend/internal/config"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Token validation errors.
var (
	ErrTokenRevoked = errors.New("token has been revoked")
	ErrTokenClaims  = errors.New("invalid token claims")
)

// Claims extends JWT standard claims with the acting profile.
type Claims struct {
	jwt.RegisteredClaims
	UserID   uuid.UUID  `json:"user_id"`
	SchoolID int        `json:"school_id"`
	Role     model.Role `json:"role"`
}

// AuthService handles teacher authentication and JWT issuing.
type AuthService struct {
	cfg      *config.Config
	profiles ProfileStore
	tokens   TokenStore
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, profiles ProfileStore, tokens TokenStore) *AuthService {
	return &AuthService{cfg: cfg, profiles: profiles, tokens: tokens}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login authenticates a teacher by email and password.
func (s *AuthService) Login(ctx context.Context, req model.TeacherLoginRequest) (*model.TeacherLoginResponse, error) {
	p, err := s.profiles.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup profile: %w", err)
	}
	if p.Role != model.RoleTeacher || p.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.CheckPassword(p.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	token, err := s.GenerateToken(p)
	if err != nil {
		return nil, err
	}
	return &model.TeacherLoginResponse{Token: token, Teacher: *p}, nil
}

// GenerateToken signs a JWT for the profile.
func (s *AuthService) GenerateToken(p *model.Profile) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   p.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		UserID:   p.ID,
		SchoolID: p.SchoolID,
		Role:     p.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT and rejects logged-out tokens.
func (s *AuthService) ValidateToken(ctx context.Context, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrTokenClaims
	}

	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Logout revokes the token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	return s.tokens.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}

// Me returns the profile behind the token.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTeacherNotFound
	}
	return p, err
}
