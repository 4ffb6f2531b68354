package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"buildpos/internal/config"
	"buildpos/internal/dto"
	"buildpos/internal/middleware"
	"buildpos/internal/model"
	"buildpos/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials keeps "no such user" and "wrong password"
// indistinguishable to callers.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService issues access tokens against the users collection.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	snapshots repository.SnapshotRepository
	cfg       *config.Config
}

func NewAuthService(snapshots repository.SnapshotRepository, cfg *config.Config) AuthService {
	return &authService{snapshots: snapshots, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	var user *model.User
	for i := range users {
		if users[i].Username == req.Username {
			user = &users[i]
			break
		}
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	expiry := time.Duration(s.cfg.JWTExpirationHours) * time.Hour
	claims := middleware.JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(expiry.Seconds()),
		User: dto.UserResponse{
			ID:          user.ID,
			Username:    user.Username,
			Name:        user.Name,
			Role:        user.Role,
			Permissions: user.Permissions,
		},
	}, nil
}

func (s *authService) loadUsers(ctx context.Context) ([]model.User, error) {
	snap, err := s.snapshots.Get(ctx, model.TableUsers)
	if errors.Is(err, repository.ErrTableNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	var users []model.User
	if err := json.Unmarshal(snap.Items, &users); err != nil {
		return nil, err
	}
	return users, nil
}
