package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"lending-service/configs"
	"lending-service/internal/models"
	"lending-service/internal/repository"
	"lending-service/pkg/apperrors"
	"lending-service/pkg/crypto"
)

// AuthSvc is an implementation of the service.AuthService interface
type AuthSvc struct {
	repos     *repository.Repository
	logger    *logrus.Logger
	config    *configs.Config
	hasher    *crypto.PasswordHasher
	jwtSecret string
	jwtTTL    time.Duration
}

// NewAuthService creates a new AuthSvc
func NewAuthService(deps Dependencies) *AuthSvc {
	return &AuthSvc{
		repos:     deps.Repos,
		logger:    deps.Logger,
		config:    deps.Config,
		hasher:    crypto.NewPasswordHasher(),
		jwtSecret: deps.Config.JWT.Secret,
		jwtTTL:    time.Duration(deps.Config.JWT.TTL) * time.Hour,
	}
}

// Login verifies the credentials of an admin or agent and returns a JWT token
func (s *AuthSvc) Login(ctx context.Context, role models.Role, login *models.Login) (*models.TokenResponse, error) {
	username := strings.TrimSpace(login.Username)
	email := strings.TrimSpace(login.Email)
	if (username == "" && email == "") || login.Password == "" {
		return nil, apperrors.Validation("credentials", "username or email and password are required")
	}

	var principal *models.Principal
	var err error
	if username != "" {
		principal, err = s.repos.Principal.GetByUsername(ctx, role, username)
	} else {
		principal, err = s.repos.Principal.GetByEmail(ctx, role, email)
	}
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("failed to get %s: %w", role, err)
	}

	if !s.hasher.CheckPasswordHash(login.Password, principal.PassHash) {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	expirationTime := time.Now().Add(s.jwtTTL)

	claims := jwt.MapClaims{
		models.ClaimPrincipalID: principal.ID,
		models.ClaimRole:        string(principal.Role),
		"exp":                   expirationTime.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Infof("%s logged in: %s", role, principal.ID)

	return &models.TokenResponse{
		Token:     tokenString,
		ExpiresAt: expirationTime.Unix(),
		Principal: principal,
	}, nil
}

// SeedAdmin creates the configured admin account when it does not exist yet
func (s *AuthSvc) SeedAdmin(ctx context.Context) error {
	admin := s.config.Admin
	if admin.Password == "" {
		s.logger.Warn("ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	_, err := s.repos.Principal.GetByUsername(ctx, models.RoleAdmin, admin.Username)
	if err == nil {
		return nil
	}
	if !apperrors.Is(err, apperrors.KindNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	hash, err := s.hasher.HashPassword(admin.Password)
	if err != nil {
		return err
	}

	id, err := s.repos.Principal.Create(ctx, &models.Principal{
		Role:      models.RoleAdmin,
		Username:  admin.Username,
		Email:     admin.Email,
		FullName:  admin.FullName,
		PassHash:  hash,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.Infof("Admin account seeded: %s", id)
	return nil
}
