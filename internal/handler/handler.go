package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"lending-service/configs"
	"lending-service/internal/metrics"
	"lending-service/internal/service"
	"lending-service/pkg/apperrors"
	"lending-service/pkg/utils"
)

// Dependencies contains handler dependencies
type Dependencies struct {
	Services *service.Service
	Logger   *logrus.Logger
	Config   *configs.Config
	Metrics  *metrics.Metrics
}

// Handler contains all HTTP handlers for the application
type Handler struct {
	Auth       *AuthHandler
	Agent      *AgentHandler
	Client     *ClientHandler
	Collection *CollectionHandler
	Analytics  *AnalyticsHandler
}

// NewHandler creates a new Handler with all subhandlers
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(deps.Services.Auth, deps.Logger, deps.Config),
		Agent:      NewAgentHandler(deps.Services.Agent, deps.Logger, deps.Config),
		Client:     NewClientHandler(deps.Services.Client, deps.Logger, deps.Config),
		Collection: NewCollectionHandler(deps.Services.Collection, deps.Logger, deps.Config),
		Analytics:  NewAnalyticsHandler(deps.Services.Analytics, deps.Logger, deps.Config),
	}
}

// respondWithError logs the failure and writes the mapped status. Internal
// errors are logged in full but not returned to the caller.
func respondWithError(w http.ResponseWriter, logger *logrus.Logger, action string, err error) {
	if status := apperrors.HTTPStatus(err); status >= http.StatusInternalServerError {
		logger.Errorf("Failed to %s: %v", action, err)
	} else {
		logger.Warnf("Failed to %s: %v", action, err)
	}
	utils.RespondWithAppError(w, err)
}
