package service

import (
	"context"
	"testing"
	"time"

	"github.com/stemsi/classroom-backend/internal/config"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture(t *testing.T) (*AuthService, *memory.DB) {
	t.Helper()
	db := memory.New()
	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
	return NewAuthService(cfg, db.Profiles(), db.Tokens()), db
}

func addLogin(t *testing.T, auth *AuthService, db *memory.DB, email string, role model.Role) {
	t.Helper()
	hash, err := auth.HashPassword("rahasia123")
	require.NoError(t, err)
	db.AddProfile(model.Profile{SchoolID: schoolA, FullName: "Ibu Sari", Email: &email, Role: role, PasswordHash: hash})
}

func TestLogin(t *testing.T) {
	auth, db := newAuthFixture(t)
	ctx := context.Background()
	addLogin(t, auth, db, "sari@sekolah.id", model.RoleTeacher)
	addLogin(t, auth, db, "murid@sekolah.id", model.RoleStudent)

	resp, err := auth.Login(ctx, model.TeacherLoginRequest{Email: "SARI@sekolah.id", Password: "rahasia123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, model.RoleTeacher, resp.Teacher.Role)

	claims, err := auth.ValidateToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.Teacher.ID, claims.UserID)
	assert.Equal(t, schoolA, claims.SchoolID)

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "sari@sekolah.id", "salah"},
		{"unknown email", "siapa@sekolah.id", "rahasia123"},
		{"student account", "murid@sekolah.id", "rahasia123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Login(ctx, model.TeacherLoginRequest{Email: tt.email, Password: tt.password})
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	auth, db := newAuthFixture(t)
	ctx := context.Background()
	addLogin(t, auth, db, "sari@sekolah.id", model.RoleTeacher)

	resp, err := auth.Login(ctx, model.TeacherLoginRequest{Email: "sari@sekolah.id", Password: "rahasia123"})
	require.NoError(t, err)
	claims, err := auth.ValidateToken(ctx, resp.Token)
	require.NoError(t, err)

	require.NoError(t, auth.Logout(ctx, claims))

	_, err = auth.ValidateToken(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	auth, db := newAuthFixture(t)
	addLogin(t, auth, db, "sari@sekolah.id", model.RoleTeacher)
	p, err := db.Profiles().GetByEmail(context.Background(), "sari@sekolah.id")
	require.NoError(t, err)

	forger := NewAuthService(&config.Config{JWTSecret: "other", JWTExpiry: time.Hour}, db.Profiles(), db.Tokens())
	token, err := forger.GenerateToken(p)
	require.NoError(t, err)

	_, err = auth.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}
