package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"lending-service/configs"
	"lending-service/internal/ledger"
	"lending-service/internal/models"
	"lending-service/internal/repository"
	"lending-service/pkg/apperrors"
)

// AnalyticsSvc is an implementation of the service.AnalyticsService interface
type AnalyticsSvc struct {
	repos  *repository.Repository
	logger *logrus.Logger
	config *configs.Config
}

// NewAnalyticsService creates a new AnalyticsSvc
func NewAnalyticsService(deps Dependencies) *AnalyticsSvc {
	return &AnalyticsSvc{
		repos:  deps.Repos,
		logger: deps.Logger,
		config: deps.Config,
	}
}

// Dashboard aggregates every client, loan and open default
func (s *AnalyticsSvc) Dashboard(ctx context.Context) (*models.DashboardSummary, error) {
	clients, err := s.repos.Client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	openDefaults, err := s.repos.Default.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count defaults: %w", err)
	}

	return ledger.Summarize(clients, openDefaults), nil
}

// AgentCollections lists every EMI record collected by the agent, newest first
func (s *AnalyticsSvc) AgentCollections(ctx context.Context, agentID string) (*models.AgentCollections, error) {
	agent, err := s.repos.Principal.GetByID(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	if agent.Role != models.RoleAgent {
		return nil, apperrors.NotFound("agent %s not found", agentID)
	}

	clients, err := s.repos.Client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	report := ledger.AgentCollections(clients, agent.ID)
	s.logger.Debugf("Collection report for %s: %d records", agent.ID, len(report.EmiCollectionData))

	return report, nil
}
