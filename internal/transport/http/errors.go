package http

import (
	"encoding/json"
	"net/http"

	"live-quiz-service/internal/domain"
)

type errorPayload struct {
	Message   string      `json:"message"`
	Kind      domain.Kind `json:"kind"`
	Retryable bool        `json:"retryable"`
}

func newErrorPayload(err error) errorPayload {
	return errorPayload{
		Message:   err.Error(),
		Kind:      domain.KindOf(err),
		Retryable: domain.IsRetryable(err),
	}
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindInvalidState:
		return http.StatusUnprocessableEntity
	case domain.KindInvalid:
		return http.StatusBadRequest
	case domain.KindLockTimeout:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), outboundMessage[errorPayload]{Type: "error", Payload: newErrorPayload(err)})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, outboundMessage[errorPayload]{
		Type:    "error",
		Payload: errorPayload{Message: err.Error(), Kind: domain.KindInvalid},
	})
}
