package service

import (
	"context"
	"errors"
	"time"

	"aquafarm/internal/apierror"
	"aquafarm/internal/config"
	"aquafarm/internal/dto"
	"aquafarm/internal/model"
	"aquafarm/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService handles login, token refresh, and account management.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.LoginResponse, error)

	CreateUser(ctx context.Context, actor Actor, req dto.CreateUserRequest) (*dto.UserResponse, error)
	GetUser(ctx context.Context, actor Actor, id uuid.UUID) (*dto.UserResponse, error)
	ListUsers(ctx context.Context, actor Actor) ([]dto.UserResponse, error)
	UpdateUser(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error)
	DeactivateUser(ctx context.Context, actor Actor, id uuid.UUID) error
}

type authService struct {
	users repository.UserRepository
	cfg   *config.Config
}

func NewAuthService(users repository.UserRepository, cfg *config.Config) AuthService {
	return &authService{users: users, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		// Run bcrypt against a throwaway hash anyway so a missing user takes
		// the same time as a wrong password.
		_ = bcrypt.CompareHashAndPassword(
			[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"),
			[]byte(req.Password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Warn().Str("username", req.Username).Msg("failed login attempt")
		return nil, ErrInvalidCredentials
	}
	return s.issueTokens(user)
}

func (s *authService) Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.LoginResponse, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(req.RefreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	if use, _ := claims["use"].(string); use != "refresh" {
		return nil, ErrInvalidCredentials
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil || !user.Active {
		return nil, ErrInvalidCredentials
	}
	return s.issueTokens(user)
}

func (s *authService) issueTokens(user *model.User) (*dto.LoginResponse, error) {
	now := time.Now()
	accessTTL := time.Duration(s.cfg.JWTExpirationHours) * time.Hour
	refreshTTL := time.Duration(s.cfg.JWTRefreshHours) * time.Hour

	accessClaims := jwt.MapClaims{
		"user_id":  user.ID.String(),
		"username": user.Username,
		"role":     user.Role,
		"iat":      now.Unix(),
		"exp":      now.Add(accessTTL).Unix(),
	}
	if user.FarmID != nil {
		accessClaims["farm_id"] = user.FarmID.String()
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID.String(),
		"use": "refresh",
		"iat": now.Unix(),
		"exp": now.Add(refreshTTL).Unix(),
	}).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(accessTTL.Seconds()),
		User:         *userToResponse(user),
	}, nil
}

func (s *authService) CreateUser(ctx context.Context, actor Actor, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	if actor.Role != model.RoleOwner {
		return nil, ErrAccessDenied
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:     req.Username,
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	}
	if req.FarmID != nil {
		farmID, err := uuid.Parse(*req.FarmID)
		if err != nil {
			return nil, &apierror.ValidationError{Detail: "invalid farm_id"}
		}
		user.FarmID = &farmID
	}
	if user.Role != model.RoleOwner && user.FarmID == nil {
		return nil, &apierror.ValidationError{Detail: "technician and operator accounts require a farm_id"}
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	log.Info().Str("username", user.Username).Str("role", user.Role).Msg("user created")
	return userToResponse(user), nil
}

func (s *authService) GetUser(ctx context.Context, actor Actor, id uuid.UUID) (*dto.UserResponse, error) {
	if actor.Role != model.RoleOwner && actor.UserID != id {
		return nil, ErrAccessDenied
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return userToResponse(user), nil
}

func (s *authService) ListUsers(ctx context.Context, actor Actor) ([]dto.UserResponse, error) {
	if actor.Role != model.RoleOwner {
		return nil, ErrAccessDenied
	}
	users, err := s.users.List(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, *userToResponse(&users[i]))
	}
	return out, nil
}

func (s *authService) UpdateUser(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	// Users may change their own name, email, and password. Role and farm
	// changes stay owner-only.
	self := actor.UserID == id
	if actor.Role != model.RoleOwner && !self {
		return nil, ErrAccessDenied
	}
	if actor.Role != model.RoleOwner && (req.Role != nil || req.FarmID != nil) {
		return nil, ErrAccessDenied
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.FarmID != nil {
		farmID, err := uuid.Parse(*req.FarmID)
		if err != nil {
			return nil, &apierror.ValidationError{Detail: "invalid farm_id"}
		}
		user.FarmID = &farmID
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return userToResponse(user), nil
}

func (s *authService) DeactivateUser(ctx context.Context, actor Actor, id uuid.UUID) error {
	if actor.Role != model.RoleOwner {
		return ErrAccessDenied
	}
	if actor.UserID == id {
		return &apierror.ValidationError{Detail: "cannot deactivate your own account"}
	}
	return s.users.Deactivate(ctx, id)
}

func userToResponse(u *model.User) *dto.UserResponse {
	resp := &dto.UserResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     u.Role,
		Active:   u.Active,
	}
	if u.FarmID != nil {
		id := u.FarmID.String()
		resp.FarmID = &id
	}
	return resp
}
