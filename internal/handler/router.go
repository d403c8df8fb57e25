package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"lending-service/internal/middleware"
	"lending-service/internal/models"
	"lending-service/pkg/utils"
)

// NewRouter registers every route of the API. CORS wraps the router so
// preflight requests are answered before route matching.
func NewRouter(h *Handler, deps Dependencies) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithSuccess(w, http.StatusOK, "ok", nil)
	}).Methods(http.MethodGet)
	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	// Public routes
	router.HandleFunc("/api/v1/admin/login", h.Auth.AdminLogin).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/agent/login", h.Auth.AgentLogin).Methods(http.MethodPost)

	// Protected routes with middleware
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.LogMiddleware(deps.Logger, deps.Metrics))
	api.Use(middleware.AuthMiddleware(deps.Config.JWT.Secret))
	api.Use(middleware.RequireRole(models.RoleAdmin, models.RoleAgent))

	adminOnly := middleware.RequireRole(models.RoleAdmin)
	admin := func(fn http.HandlerFunc) http.Handler {
		return adminOnly(fn)
	}

	// Agent endpoints
	api.Handle("/agents", admin(h.Agent.Create)).Methods(http.MethodPost)
	api.Handle("/agents", admin(h.Agent.GetAll)).Methods(http.MethodGet)
	api.Handle("/agents/{id}", admin(h.Agent.GetByID)).Methods(http.MethodGet)
	api.Handle("/agents/{id}", admin(h.Agent.Delete)).Methods(http.MethodDelete)
	api.HandleFunc("/agents/{id}/collections", h.Analytics.AgentCollections).Methods(http.MethodGet)

	// Client endpoints
	api.HandleFunc("/clients", h.Client.Create).Methods(http.MethodPost)
	api.HandleFunc("/clients", h.Client.GetAll).Methods(http.MethodGet)
	api.HandleFunc("/clients/search", h.Client.Search).Methods(http.MethodGet)
	api.HandleFunc("/clients/{id}", h.Client.GetByID).Methods(http.MethodGet)
	api.Handle("/clients/{id}", admin(h.Client.Delete)).Methods(http.MethodDelete)
	api.HandleFunc("/clients/{id}/defaults", h.Client.GetDefaults).Methods(http.MethodGet)

	// Loan endpoints
	api.Handle("/clients/{id}/loans", admin(h.Client.AddLoan)).Methods(http.MethodPost)
	api.Handle("/clients/{id}/loans/{loanId}", admin(h.Client.DeleteLoan)).Methods(http.MethodDelete)
	api.HandleFunc("/clients/{id}/loans/{loanId}/schedule", h.Client.GetSchedule).Methods(http.MethodGet)
	api.HandleFunc("/clients/{id}/loans/{loanId}/emis", h.Collection.Collect).Methods(http.MethodPost)
	api.HandleFunc("/defaults/{id}/pay", h.Collection.PayDefault).Methods(http.MethodPost)

	// Analytics endpoints
	api.Handle("/analytics", admin(h.Analytics.Dashboard)).Methods(http.MethodGet)

	return middleware.NewCORS(deps.Config)(router)
}
