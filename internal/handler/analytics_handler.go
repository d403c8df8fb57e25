package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"lending-service/configs"
	"lending-service/internal/middleware"
	"lending-service/internal/models"
	"lending-service/internal/service"
	"lending-service/pkg/report"
	"lending-service/pkg/utils"
)

// AnalyticsHandler handles dashboard and report requests
type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
	logger           *logrus.Logger
	config           *configs.Config
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(analyticsService service.AnalyticsService, logger *logrus.Logger, config *configs.Config) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		logger:           logger,
		config:           config,
	}
}

// Dashboard handles the admin dashboard summary
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analyticsService.Dashboard(r.Context())
	if err != nil {
		respondWithError(w, h.logger, "build dashboard", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "dashboard retrieved successfully", summary)
}

// AgentCollections handles the per-agent collection report. Agents may only
// read their own report. ?format=xml returns an XML document.
func (h *AnalyticsHandler) AgentCollections(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["id"]

	if middleware.RoleFrom(r.Context()) == models.RoleAgent && middleware.PrincipalID(r.Context()) != agentID {
		utils.RespondWithError(w, http.StatusForbidden, "agents can only view their own collections")
		return
	}

	collections, err := h.analyticsService.AgentCollections(r.Context(), agentID)
	if err != nil {
		respondWithError(w, h.logger, "build agent collections", err)
		return
	}

	if r.URL.Query().Get("format") == "xml" {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		if err := report.WriteAgentCollectionsXML(w, collections, time.Now()); err != nil {
			h.logger.Warnf("Failed to write XML report for %s: %v", agentID, err)
		}
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "collections retrieved successfully", collections)
}
