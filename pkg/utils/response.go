package utils

import (
	"encoding/json"
	"net/http"

	"lending-service/pkg/apperrors"
)

// Response is the JSON envelope of every API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// RespondWithJSON writes payload as JSON with the status code
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// RespondWithError writes an error envelope
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, Response{Success: false, Error: message})
}

// RespondWithSuccess writes a success envelope
func RespondWithSuccess(w http.ResponseWriter, code int, message string, data interface{}) {
	RespondWithJSON(w, code, Response{Success: true, Message: message, Data: data})
}

// RespondWithAppError maps a typed application error to its status and a
// message that is safe to return
func RespondWithAppError(w http.ResponseWriter, err error) {
	RespondWithError(w, apperrors.HTTPStatus(err), apperrors.PublicMessage(err))
}
