package handler

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"lending-service/configs"
	"lending-service/internal/middleware"
	"lending-service/internal/models"
	"lending-service/internal/service"
	"lending-service/pkg/utils"
)

// multipartDataField holds the JSON client body in multipart requests
const multipartDataField = "data"

var attachmentFields = []string{
	service.FieldClientPhoto,
	service.FieldShopPhoto,
	service.FieldHousePhoto,
	service.FieldDocuments,
}

// ClientHandler handles client and loan requests
type ClientHandler struct {
	clientService service.ClientService
	logger        *logrus.Logger
	config        *configs.Config
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(clientService service.ClientService, logger *logrus.Logger, config *configs.Config) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
		logger:        logger,
		config:        config,
	}
}

// Create handles client creation. The body is either JSON or multipart with
// the JSON in the "data" field and photos and documents as files.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.ClientCreate
	var files []*service.Attachment

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.config.Server.MaxUploadMB << 20); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid multipart payload")
			return
		}
		defer r.MultipartForm.RemoveAll()

		if err := json.Unmarshal([]byte(r.FormValue(multipartDataField)), &req); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid client data")
			return
		}

		for _, field := range attachmentFields {
			for _, fh := range r.MultipartForm.File[field] {
				f, err := fh.Open()
				if err != nil {
					utils.RespondWithError(w, http.StatusBadRequest, "unreadable file "+fh.Filename)
					return
				}
				defer f.Close()

				files = append(files, &service.Attachment{
					Field:       field,
					Filename:    fh.Filename,
					ContentType: fh.Header.Get("Content-Type"),
					Body:        f,
				})
			}
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
		defer r.Body.Close()
	}

	client, err := h.clientService.Create(r.Context(), &req, files, middleware.PrincipalID(r.Context()))
	if err != nil {
		respondWithError(w, h.logger, "create client", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusCreated, "client created successfully", client)
}

// GetAll handles listing clients
func (h *ClientHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clientService.List(r.Context())
	if err != nil {
		respondWithError(w, h.logger, "list clients", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "clients retrieved successfully", clients)
}

// Search handles client name search
func (h *ClientHandler) Search(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clientService.Search(r.Context(), strings.TrimSpace(r.URL.Query().Get("query")))
	if err != nil {
		respondWithError(w, h.logger, "search clients", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "clients retrieved successfully", clients)
}

// GetByID handles retrieving a client with loans and EMI history
func (h *ClientHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	client, err := h.clientService.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, h.logger, "get client", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "client retrieved successfully", client)
}

// Delete handles client removal
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.clientService.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithError(w, h.logger, "delete client", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "client deleted successfully", nil)
}

// AddLoan handles adding a loan to an existing client
func (h *ClientHandler) AddLoan(w http.ResponseWriter, r *http.Request) {
	var req models.LoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	loan, err := h.clientService.AddLoan(r.Context(), mux.Vars(r)["id"], &req, middleware.PrincipalID(r.Context()))
	if err != nil {
		respondWithError(w, h.logger, "add loan", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusCreated, "loan added successfully", loan)
}

// DeleteLoan handles loan removal
func (h *ClientHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.clientService.DeleteLoan(r.Context(), vars["id"], vars["loanId"]); err != nil {
		respondWithError(w, h.logger, "delete loan", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "loan deleted successfully", nil)
}

// GetSchedule handles the projected installment plan of a loan
func (h *ClientHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	schedule, err := h.clientService.GetSchedule(r.Context(), vars["id"], vars["loanId"])
	if err != nil {
		respondWithError(w, h.logger, "get schedule", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "schedule retrieved successfully", schedule)
}

// GetDefaults handles listing a client's open defaults
func (h *ClientHandler) GetDefaults(w http.ResponseWriter, r *http.Request) {
	defaults, err := h.clientService.ListDefaults(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, h.logger, "list defaults", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "defaults retrieved successfully", defaults)
}
