package handler

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"lending-service/configs"
	"lending-service/internal/models"
	"lending-service/internal/service"
	"lending-service/pkg/utils"
)

// AuthHandler handles admin and agent login
type AuthHandler struct {
	authService service.AuthService
	logger      *logrus.Logger
	config      *configs.Config
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, logger *logrus.Logger, config *configs.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
		config:      config,
	}
}

// AdminLogin handles admin login
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, models.RoleAdmin)
}

// AgentLogin handles agent login
func (h *AuthHandler) AgentLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, models.RoleAgent)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, role models.Role) {
	var loginReq models.Login
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	tokenResponse, err := h.authService.Login(r.Context(), role, &loginReq)
	if err != nil {
		respondWithError(w, h.logger, "log in "+string(role), err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "login successful", tokenResponse)
}
