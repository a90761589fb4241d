// Package api defines the JSON envelope every HTTP response uses.
package api

import (
	"encoding/json"
	"net/http"

	"devflow/internal/models"
	"devflow/internal/utils"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

// AuthResponse is returned by sign-up and sign-in.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

// WriteError maps err to a status code and writes the error envelope.
// Errors that are not AppErrors are reported as internal without detail.
func WriteError(w http.ResponseWriter, err error) {
	body := &ErrorBody{Code: utils.ErrInternal, Message: "internal server error"}
	status := http.StatusInternalServerError
	if appErr, ok := utils.AsAppError(err); ok {
		status = utils.AppErrorToHTTPStatus(appErr.Code)
		body.Code = appErr.Code
		if status != http.StatusInternalServerError {
			body.Message = appErr.Message
			body.Details = appErr.Fields
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Success: false, Error: body})
}
