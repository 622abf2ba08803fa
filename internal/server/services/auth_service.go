package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kamikazebr/license-gateway/internal/server/storage"
	"github.com/kamikazebr/license-gateway/pkg/models"
	"github.com/kamikazebr/license-gateway/pkg/utils"
)

// AuthService signs operators into the console.
type AuthService struct {
	userRepo      *storage.UserRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

func NewAuthService(userRepo *storage.UserRepository, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	if jwtExpiration <= 0 {
		jwtExpiration = 168 * time.Hour
	}
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := utils.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.sessionFor(user)
}

// SignUp registers a console account. Self-registered accounts always get
// the user role; admins are created from the CLI.
func (s *AuthService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	user, err := s.CreateUser(ctx, req.Email, req.Password, models.RoleUser, req.UserData)
	if err != nil {
		return nil, err
	}
	return s.sessionFor(user)
}

// CreateUser hashes the password and stores a new account with the given role.
func (s *AuthService) CreateUser(ctx context.Context, email, password, role string, profile models.SignUpFields) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !utils.IsValidEmail(email) {
		return nil, invalidf("invalid email format")
	}
	if len(password) < 8 {
		return nil, invalidf("password must be at least 8 characters")
	}
	if role != models.RoleAdmin && role != models.RoleUser {
		return nil, invalidf("unknown role %q", role)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(profile.FullName),
		Company:      strings.TrimSpace(profile.Company),
		Phone:        strings.TrimSpace(profile.Phone),
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, notFound("user")
	}
	return user, nil
}

func (s *AuthService) sessionFor(user *models.User) (*models.AuthResponse, error) {
	token, expiresAt, err := utils.GenerateJWT(user.ID, user.Email, user.Role, s.jwtSecret, s.jwtExpiration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate JWT: %w", err)
	}

	resp := AuthUserResponse(user)
	resp.Session = &models.AuthSession{
		AccessToken: token,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}
	return resp, nil
}

func AuthUserResponse(user *models.User) *models.AuthResponse {
	return &models.AuthResponse{
		User: models.AuthUser{
			ID:      user.ID.String(),
			Email:   user.Email,
			Profile: user.Profile(),
		},
	}
}
