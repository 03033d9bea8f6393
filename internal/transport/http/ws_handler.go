package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/game"
)

var errBadPayload = errors.New("invalid message payload")

type WSHandler struct {
	service  *app.GameService
	hub      *Hub
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

func NewWSHandler(service *app.GameService, hub *Hub, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Kind  domain.QuestionKind `json:"kind"`
	Value domain.AnswerValue  `json:"value"`
}

type valuePayload struct {
	Value domain.AnswerValue `json:"value"`
}

type removePayload struct {
	ParticipantID string `json:"participantId"`
}

type joinedPayload struct {
	Session       domain.Session `json:"session"`
	ParticipantID string         `json:"participantId"`
	Role          domain.Role    `json:"role"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and binds the connection to one participant of one session.
// The session is picked by sessionId or join code; a name is needed only to join as a new player.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID, code := q.Get("sessionId"), q.Get("code")
	userID, name := q.Get("userId"), q.Get("name")
	if userID == "" || (sessionID == "" && code == "") {
		http.Error(w, "missing userId, or sessionId/code", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	sess, err := h.resolve(ctx, sessionID, code)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	// Subscribe before joining so the join's own event is not missed.
	updates, cancel := h.hub.Subscribe(sess.ID)
	defer cancel()

	if idx := sess.Participant(userID); idx < 0 || sess.Participants[idx].Left {
		if name == "" {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: newErrorPayload(domain.ErrParticipantNotFound)})
			return
		}
		sess, err = h.service.Join(ctx, sess.ID, userID, name)
		if err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: newErrorPayload(err)})
			return
		}
	}
	role := sess.Participants[sess.Participant(userID)].Role
	log := h.log.WithFields(logrus.Fields{"session_id": sess.ID, "user_id": userID, "role": role})

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "event", Payload: event}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{Session: game.PublicSession(sess), ParticipantID: userID, Role: role}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		reply, err := h.dispatch(ctx, sess.ID, userID, inbound)
		if err != nil {
			if !errors.Is(err, errBadPayload) && domain.KindOf(err) == domain.KindUnknown {
				log.WithError(err).WithField("type", inbound.Type).Error("ws command failed")
			}
			send <- outboundMessage[any]{Type: "error", Payload: newErrorPayload(err)}
			continue
		}
		if reply != nil {
			send <- *reply
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) resolve(ctx context.Context, sessionID, code string) (domain.Session, error) {
	if sessionID != "" {
		return h.service.Session(ctx, sessionID)
	}
	return h.service.SessionByCode(ctx, code)
}

// dispatch runs one inbound command. Session-wide effects reach every client through the hub;
// the returned message, if any, goes only to the sender.
func (h *WSHandler) dispatch(ctx context.Context, sessionID, userID string, in inboundMessage) (*outboundMessage[any], error) {
	var err error
	switch in.Type {
	case "answer":
		var p answerPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return nil, err
		}
		answer, _, err := h.service.SubmitAnswer(ctx, sessionID, userID, p.Kind, p.Value)
		if err != nil {
			return nil, err
		}
		return &outboundMessage[any]{Type: "answerResult", Payload: answer}, nil
	case "advance":
		_, err = h.service.Advance(ctx, sessionID, userID)
	case "activate":
		_, err = h.service.Activate(ctx, sessionID, userID)
	case "end":
		_, err = h.service.End(ctx, sessionID, userID)
	case "addCorrect", "removeCorrect":
		var p valuePayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return nil, err
		}
		if in.Type == "addCorrect" {
			_, err = h.service.AddCorrectAnswer(ctx, sessionID, userID, p.Value)
		} else {
			_, err = h.service.RemoveCorrectAnswer(ctx, sessionID, userID, p.Value)
		}
	case "remove":
		var p removePayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return nil, err
		}
		_, err = h.service.Remove(ctx, sessionID, userID, p.ParticipantID)
	case "leave":
		_, err = h.service.Leave(ctx, sessionID, userID)
	case "leaderboard":
		lb, err := h.service.Leaderboard(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return &outboundMessage[any]{Type: "leaderboard", Payload: lb}, nil
	default:
		return nil, errors.New("unsupported message type")
	}
	return nil, err
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errBadPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadPayload
	}
	return nil
}
