package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"lending-service/configs"
	"lending-service/internal/models"
	"lending-service/internal/repository"
	"lending-service/pkg/apperrors"
	"lending-service/pkg/crypto"
)

// AgentSvc is an implementation of the service.AgentService interface
type AgentSvc struct {
	repos  *repository.Repository
	logger *logrus.Logger
	config *configs.Config
	hasher *crypto.PasswordHasher
}

// NewAgentService creates a new AgentSvc
func NewAgentService(deps Dependencies) *AgentSvc {
	return &AgentSvc{
		repos:  deps.Repos,
		logger: deps.Logger,
		config: deps.Config,
		hasher: crypto.NewPasswordHasher(),
	}
}

// Create registers a field agent
func (s *AgentSvc) Create(ctx context.Context, reg *models.AgentRegistration) (*models.Principal, error) {
	if err := reg.ValidateRegistration(); err != nil {
		return nil, apperrors.Validation("agent", err.Error())
	}

	if _, err := s.repos.Principal.GetByUsername(ctx, models.RoleAgent, reg.Username); err == nil {
		return nil, apperrors.Conflict("agent with username %s already exists", reg.Username)
	}

	if _, err := s.repos.Principal.GetByEmail(ctx, models.RoleAgent, reg.Email); err == nil {
		return nil, apperrors.Conflict("agent with email %s already exists", reg.Email)
	}

	agent := reg.ToPrincipal()

	hash, err := s.hasher.HashPassword(agent.Password)
	if err != nil {
		return nil, err
	}
	agent.PassHash = hash
	agent.Password = ""
	agent.CreatedAt = time.Now()

	id, err := s.repos.Principal.Create(ctx, agent)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	agent.ID = id

	s.logger.Infof("Agent created: %s (%s)", id, agent.Username)

	return agent, nil
}

// GetByID gets an agent by ID
func (s *AgentSvc) GetByID(ctx context.Context, id string) (*models.Principal, error) {
	agent, err := s.repos.Principal.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	if agent.Role != models.RoleAgent {
		return nil, apperrors.NotFound("agent %s not found", id)
	}
	return agent, nil
}

// List returns every agent
func (s *AgentSvc) List(ctx context.Context) ([]*models.Principal, error) {
	agents, err := s.repos.Principal.List(ctx, models.RoleAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	return agents, nil
}

// Delete removes an agent. Records they collected keep their ID.
func (s *AgentSvc) Delete(ctx context.Context, id string) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.repos.Principal.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}

	s.logger.Infof("Agent deleted: %s", id)
	return nil
}
