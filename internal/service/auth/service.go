package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/marwanhelal/track-management-system/internal/model"
	"github.com/marwanhelal/track-management-system/internal/repository"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
	"github.com/marwanhelal/track-management-system/pkg/rbac"
	"github.com/marwanhelal/track-management-system/pkg/util"
)

type Service struct {
	userRepo  *repository.UserRepository
	jwtSecret string
}

func NewService(userRepo *repository.UserRepository, jwtSecret string) *Service {
	return &Service{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
	}
}

// Register creates a new user with one of the known roles.
func (s *Service) Register(ctx context.Context, name, email, password, role string) (*model.User, error) {
	if name == "" || email == "" || password == "" {
		return nil, apperr.Validation("name, email and password are required")
	}
	if !rbac.ValidRole(role) {
		return nil, apperr.Validation("unknown role: " + role)
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Infrastructure("failed to look up user", err)
	}
	if existing != nil {
		return nil, apperr.Validation("email already exists")
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, apperr.Infrastructure("failed to hash password", err)
	}

	u := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.CreateUser(ctx, u); err != nil {
		return nil, apperr.Infrastructure("failed to create user", err)
	}

	return u, nil
}

// Login checks user credentials and returns a JWT carrying the user's
// role for downstream permission checks.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", apperr.Authorization("invalid email or password")
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return "", apperr.Authorization("invalid email or password")
	}

	token, err := util.GenerateJWT(u.ID, u.Name, u.Role, s.jwtSecret)
	if err != nil {
		return "", apperr.Infrastructure("failed to sign token", err)
	}

	return token, nil
}
