package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"lending-service/configs"
	"lending-service/internal/middleware"
	"lending-service/internal/models"
	"lending-service/internal/service"
	"lending-service/pkg/utils"
)

// IdempotencyHeader lets clients retry a collection without recording it twice
const IdempotencyHeader = "Idempotency-Key"

// CollectionHandler handles EMI collection requests
type CollectionHandler struct {
	collectionService service.CollectionService
	logger            *logrus.Logger
	config            *configs.Config
}

// NewCollectionHandler creates a new CollectionHandler
func NewCollectionHandler(collectionService service.CollectionService, logger *logrus.Logger, config *configs.Config) *CollectionHandler {
	return &CollectionHandler{
		collectionService: collectionService,
		logger:            logger,
		config:            config,
	}
}

// Collect handles an EMI collection against one loan
func (h *CollectionHandler) Collect(w http.ResponseWriter, r *http.Request) {
	var req models.CollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	vars := mux.Vars(r)
	collection := req.ToCollection(vars["id"], vars["loanId"], middleware.PrincipalID(r.Context()), time.Now())

	result, err := h.collectionService.Collect(r.Context(), collection, strings.TrimSpace(r.Header.Get(IdempotencyHeader)))
	if err != nil {
		respondWithError(w, h.logger, "collect emi", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "EMI collected and recorded successfully", result)
}

// PayDefault handles settling a defaulted EMI
func (h *CollectionHandler) PayDefault(w http.ResponseWriter, r *http.Request) {
	var req models.PayDefaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	payment := &models.DefaultPayment{
		DefaultID:    mux.Vars(r)["id"],
		Location:     req.Location,
		PaymentMode:  req.PaymentMode,
		ReceiverName: strings.TrimSpace(req.ReceiverName),
		CollectedBy:  middleware.PrincipalID(r.Context()),
		At:           time.Now(),
	}

	result, err := h.collectionService.PayDefault(r.Context(), payment)
	if err != nil {
		respondWithError(w, h.logger, "pay default", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "defaulted EMI paid successfully", result)
}
