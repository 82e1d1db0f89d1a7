package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/omenezes/aula-planner-api/internal/models"
	"github.com/omenezes/aula-planner-api/pkg/config"
	appErrors "github.com/omenezes/aula-planner-api/pkg/errors"
)

type userRepoStub struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
	created []*models.User
	updated []*models.User
}

func (s *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	user.ID = "new-user"
	s.created = append(s.created, user)
	return nil
}

func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	s.updated = append(s.updated, user)
	return nil
}

type syncerStub struct {
	report models.SyncReport
	err    error
	calls  int
}

func (s *syncerStub) SyncLatest(ctx context.Context, user *models.User) (models.SyncReport, *models.ReconcileResult, error) {
	s.calls++
	return s.report, nil, s.err
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "test"}
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLoginIssuesTokenAndSyncs(t *testing.T) {
	repo := &userRepoStub{byEmail: map[string]*models.User{
		"me@example.com": {ID: "u1", Email: "me@example.com", PasswordHash: hashed(t, "segredo"), FullName: "Maria"},
	}}
	syncer := &syncerStub{report: models.SyncReport{Performed: true, BackupName: "backup.json"}}
	svc := NewAuthService(repo, syncer, nil, nil, testJWTConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "Me@Example.com", Password: "segredo"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, 1, syncer.calls)
	assert.True(t, resp.Sync.Performed)
	assert.Equal(t, "backup.json", resp.Sync.BackupName)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "me@example.com", claims.Email)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := &userRepoStub{byEmail: map[string]*models.User{
		"me@example.com": {ID: "u1", Email: "me@example.com", PasswordHash: hashed(t, "segredo")},
	}}
	svc := NewAuthService(repo, nil, nil, nil, testJWTConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "me@example.com", Password: "errada"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginSyncFailureDoesNotFailLogin(t *testing.T) {
	repo := &userRepoStub{byEmail: map[string]*models.User{
		"me@example.com": {ID: "u1", Email: "me@example.com", PasswordHash: hashed(t, "segredo")},
	}}
	syncer := &syncerStub{err: appErrors.Clone(appErrors.ErrDriveUnavailable, "offline")}
	svc := NewAuthService(repo, syncer, nil, nil, testJWTConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "me@example.com", Password: "segredo"})
	require.NoError(t, err)
	assert.False(t, resp.Sync.Performed)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := &userRepoStub{byEmail: map[string]*models.User{
		"me@example.com": {ID: "u1", Email: "me@example.com"},
	}}
	svc := NewAuthService(repo, nil, nil, nil, testJWTConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "me@example.com", Password: "segredo", FullName: "Maria"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestRegisterCreatesAndSignsIn(t *testing.T) {
	repo := &userRepoStub{byEmail: map[string]*models.User{}}
	svc := NewAuthService(repo, nil, nil, nil, testJWTConfig())

	resp, err := svc.Register(context.Background(), models.RegisterRequest{Email: "Nova@Example.com", Password: "segredo", FullName: " Maria "})
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	assert.Equal(t, "nova@example.com", repo.created[0].Email)
	assert.Equal(t, "Maria", repo.created[0].FullName)
	assert.NotEqual(t, "segredo", repo.created[0].PasswordHash)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc := NewAuthService(&userRepoStub{}, nil, nil, nil, testJWTConfig())

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestUpdateProfileRotatesPassword(t *testing.T) {
	user := &models.User{ID: "u1", Email: "me@example.com", PasswordHash: hashed(t, "antiga"), FullName: "Maria"}
	repo := &userRepoStub{
		byID:    map[string]*models.User{"u1": user},
		byEmail: map[string]*models.User{"me@example.com": user},
	}
	svc := NewAuthService(repo, nil, nil, nil, testJWTConfig())

	info, err := svc.UpdateProfile(context.Background(), "u1", models.UpdateProfileRequest{
		Email:    "me@example.com",
		FullName: "Maria Souza",
		Password: "novasenha",
	})
	require.NoError(t, err)
	assert.Equal(t, "Maria Souza", info.FullName)
	require.Len(t, repo.updated, 1)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.updated[0].PasswordHash), []byte("novasenha")))
}
