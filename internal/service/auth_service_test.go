package service

import (
	"context"
	"testing"

	"aquafarm/internal/config"
	"aquafarm/internal/dto"
	"aquafarm/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type stubUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newStubUserRepo(users ...*model.User) *stubUserRepo {
	s := &stubUserRepo{users: make(map[uuid.UUID]*model.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *stubUserRepo) Create(_ context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.users[u.ID] = u
	return nil
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (s *stubUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) List(_ context.Context, includeInactive bool) ([]model.User, error) {
	var out []model.User
	for _, u := range s.users {
		if includeInactive || u.Active {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *stubUserRepo) Update(_ context.Context, u *model.User) error {
	s.users[u.ID] = u
	return nil
}

func (s *stubUserRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	if u, ok := s.users[id]; ok {
		u.Active = false
	}
	return nil
}

func (s *stubUserRepo) Reactivate(_ context.Context, id uuid.UUID) error {
	if u, ok := s.users[id]; ok {
		u.Active = true
	}
	return nil
}

func authTestConfig() *config.Config {
	return &config.Config{
		JWTSecret:          "test-secret",
		JWTExpirationHours: 1,
		JWTRefreshHours:    24,
	}
}

func seedUser(t *testing.T, repo *stubUserRepo, username, password, role string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{
		ID:           uuid.New(),
		Username:     username,
		FullName:     "Test User",
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	repo.users[u.ID] = u
	return u
}

func TestLoginIssuesTokens(t *testing.T) {
	repo := newStubUserRepo()
	user := seedUser(t, repo, "maria", "correct horse", model.RoleTechnician)
	farmID := uuid.New()
	user.FarmID = &farmID
	svc := NewAuthService(repo, authTestConfig())

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Username: "maria", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, user.ID.String(), resp.User.ID)

	// The access token carries the claims the middleware reads.
	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(resp.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims["user_id"])
	assert.Equal(t, "maria", claims["username"])
	assert.Equal(t, model.RoleTechnician, claims["role"])
	assert.Equal(t, farmID.String(), claims["farm_id"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(t, repo, "maria", "correct horse", model.RoleOwner)
	svc := NewAuthService(repo, authTestConfig())

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "maria", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "nobody", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRoundtrip(t *testing.T) {
	repo := newStubUserRepo()
	user := seedUser(t, repo, "maria", "correct horse", model.RoleOwner)
	svc := NewAuthService(repo, authTestConfig())

	login, err := svc.Login(context.Background(), dto.LoginRequest{Username: "maria", Password: "correct horse"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), refreshed.User.ID)

	// An access token is not accepted as a refresh token.
	_, err = svc.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: login.AccessToken})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Deactivated accounts cannot refresh.
	user.Active = false
	_, err = svc.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateUserOwnerOnly(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, authTestConfig())
	owner := Actor{UserID: uuid.New(), Role: model.RoleOwner}
	farmID := uuid.NewString()

	resp, err := svc.CreateUser(context.Background(), owner, dto.CreateUserRequest{
		Username: "joao",
		Password: "long enough pw",
		FullName: "Joao",
		Role:     model.RoleOperator,
		FarmID:   &farmID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleOperator, resp.Role)
	require.NotNil(t, resp.FarmID)
	assert.Equal(t, farmID, *resp.FarmID)

	// Non-owner roles must be pinned to a farm.
	_, err = svc.CreateUser(context.Background(), owner, dto.CreateUserRequest{
		Username: "ana", Password: "long enough pw", FullName: "Ana", Role: model.RoleTechnician,
	})
	assert.Error(t, err)

	tech := technicianOn(uuid.New())
	_, err = svc.CreateUser(context.Background(), tech, dto.CreateUserRequest{
		Username: "x", Password: "long enough pw", FullName: "X", Role: model.RoleOperator, FarmID: &farmID,
	})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestUpdateUserSelfServiceLimits(t *testing.T) {
	repo := newStubUserRepo()
	user := seedUser(t, repo, "maria", "correct horse", model.RoleTechnician)
	svc := NewAuthService(repo, authTestConfig())
	self := Actor{UserID: user.ID, Role: model.RoleTechnician}

	newName := "Maria Silva"
	resp, err := svc.UpdateUser(context.Background(), self, user.ID, dto.UpdateUserRequest{FullName: &newName})
	require.NoError(t, err)
	assert.Equal(t, newName, resp.FullName)

	// Changing one's own role is owner territory.
	ownerRole := model.RoleOwner
	_, err = svc.UpdateUser(context.Background(), self, user.ID, dto.UpdateUserRequest{Role: &ownerRole})
	assert.ErrorIs(t, err, ErrAccessDenied)

	// And so is touching someone else's account.
	other := seedUser(t, repo, "jose", "pw pw pw pw", model.RoleOperator)
	_, err = svc.UpdateUser(context.Background(), self, other.ID, dto.UpdateUserRequest{FullName: &newName})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestDeactivateUser(t *testing.T) {
	repo := newStubUserRepo()
	owner := seedUser(t, repo, "dona", "pw pw pw pw", model.RoleOwner)
	victim := seedUser(t, repo, "jose", "pw pw pw pw", model.RoleOperator)
	svc := NewAuthService(repo, authTestConfig())
	actor := Actor{UserID: owner.ID, Role: model.RoleOwner}

	require.NoError(t, svc.DeactivateUser(context.Background(), actor, victim.ID))
	assert.False(t, repo.users[victim.ID].Active)

	// Owners cannot lock themselves out.
	assert.Error(t, svc.DeactivateUser(context.Background(), actor, owner.ID))
}
