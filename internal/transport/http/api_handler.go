package http

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/game"
)

// APIHandler serves the plain HTTP endpoints: session creation and read-only lookups.
type APIHandler struct {
	service *app.GameService
	log     logrus.FieldLogger
}

func NewAPIHandler(service *app.GameService, log logrus.FieldLogger) *APIHandler {
	return &APIHandler{service: service, log: log}
}

type createSessionRequest struct {
	QuizID   string `json:"quizId"`
	HostID   string `json:"hostId"`
	Nickname string `json:"nickname"`
}

type joinRequest struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
}

func (h *APIHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.QuizID == "" {
		writeError(w, domain.ErrQuizNotFound)
		return
	}
	sess, err := h.service.CreateSession(r.Context(), req.QuizID, req.HostID, req.Nickname)
	if err != nil {
		h.logFailure(err, "create session")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *APIHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game.PublicSession(sess))
}

func (h *APIHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *APIHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.SessionByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game.PublicSession(sess))
}

func (h *APIHandler) JoinByCode(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, err)
		return
	}
	sess, err := h.service.JoinByCode(r.Context(), r.PathValue("code"), req.PlayerID, req.Nickname)
	if err != nil {
		h.logFailure(err, "join session")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game.PublicSession(sess))
}

func (h *APIHandler) logFailure(err error, msg string) {
	if domain.KindOf(err) == domain.KindUnknown {
		h.log.WithError(err).Error(msg)
	}
}
