package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"arcos-chat/internal/conversation"
	"arcos-chat/internal/handoff"
	"arcos-chat/internal/middleware"
	"arcos-chat/internal/models"
	"arcos-chat/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	resp := errorResp(code, message, r)
	resp.Error.Fields = fields
	return resp
}

// handleServiceError maps conversation and hand-off errors onto the API.
// Blank input is not an error for the caller: it is acknowledged with 204.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyInput):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, conversation.ErrBusy):
		writeJSON(w, http.StatusConflict, errorResp("CONVERSATION_BUSY", "The assistant is still answering the previous question.", r))
	case errors.Is(err, conversation.ErrNotFound), errors.Is(err, conversation.ErrClosed):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Conversation not found", r))
	case errors.Is(err, conversation.ErrAlreadyStarted):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Conversation already started", r))
	case errors.Is(err, handoff.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorResp("INVALID_HANDOFF", "The hand-off token is invalid, expired or already used.", r))
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("unhandled service error")
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
