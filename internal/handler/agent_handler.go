package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"lending-service/configs"
	"lending-service/internal/models"
	"lending-service/internal/service"
	"lending-service/pkg/utils"
)

// AgentHandler handles agent management requests
type AgentHandler struct {
	agentService service.AgentService
	logger       *logrus.Logger
	config       *configs.Config
}

// NewAgentHandler creates a new AgentHandler
func NewAgentHandler(agentService service.AgentService, logger *logrus.Logger, config *configs.Config) *AgentHandler {
	return &AgentHandler{
		agentService: agentService,
		logger:       logger,
		config:       config,
	}
}

// Create handles agent registration
func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var reg models.AgentRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	agent, err := h.agentService.Create(r.Context(), &reg)
	if err != nil {
		respondWithError(w, h.logger, "create agent", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusCreated, "agent created successfully", agent)
}

// GetAll handles listing agents
func (h *AgentHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agentService.List(r.Context())
	if err != nil {
		respondWithError(w, h.logger, "list agents", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "agents retrieved successfully", agents)
}

// GetByID handles retrieving one agent
func (h *AgentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	agent, err := h.agentService.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, h.logger, "get agent", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "agent retrieved successfully", agent)
}

// Delete handles agent removal
func (h *AgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.agentService.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithError(w, h.logger, "delete agent", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "agent deleted successfully", nil)
}
