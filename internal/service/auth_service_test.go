package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/focuskid/guardian-api/internal/models"
	appErrors "github.com/focuskid/guardian-api/pkg/errors"
)

type authRepoStub struct {
	users  map[string]models.User
	tokens map[string]models.RefreshToken
	audits []*models.AuditLog
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if s.tokens == nil {
		s.tokens = make(map[string]models.RefreshToken)
	}
	s.tokens[token.Token] = *token
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := s.tokens[token]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for key, t := range s.tokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
			s.tokens[key] = t
		}
	}
	return nil
}

func (s *authRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.audits = append(s.audits, log)
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *authRepoStub) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2secret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &authRepoStub{users: map[string]models.User{
		"guardian-1": {
			ID: "guardian-1", Email: "dana@example.com", Handle: "dana", FullName: "Dana Whitfield",
			PasswordHash: string(hash), Active: true,
			Roles: []models.UserRole{
				{Role: models.RoleGuardian, Active: true},
				{Role: models.RoleTeacher, Active: false},
			},
		},
		"inactive-1": {
			ID: "inactive-1", Email: "gone@example.com", PasswordHash: string(hash), Active: false,
		},
	}}
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "guardian-api",
	})
	return svc, repo
}

func TestAuthLoginIssuesTokensWithActiveRoles(t *testing.T) {
	svc, repo := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "dana@example.com", Password: "hunter2secret"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	// inactive role grants must not appear in the claim set
	assert.Equal(t, []models.RoleType{models.RoleGuardian}, res.User.Roles)
	assert.Len(t, repo.tokens, 1)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionLogin, repo.audits[0].Action)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "guardian-1", claims.UserID)
	assert.True(t, claims.HasRole(models.RoleGuardian))
	assert.False(t, claims.HasRole(models.RoleTeacher))
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "dana@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "gone@example.com", Password: "hunter2secret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	svc, repo := newAuthFixture(t)
	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "dana@example.com", Password: "hunter2secret"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: res.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, res.RefreshToken, refreshed.RefreshToken)
	assert.True(t, repo.tokens[res.RefreshToken].Revoked)

	// the consumed token cannot be replayed
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: res.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenRejectsForgery(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthLogoutRevokesOwnToken(t *testing.T) {
	svc, repo := newAuthFixture(t)
	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "dana@example.com", Password: "hunter2secret"})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), res.RefreshToken, "someone-else")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Logout(context.Background(), res.RefreshToken, "guardian-1"))
	assert.True(t, repo.tokens[res.RefreshToken].Revoked)
}
