package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"quiz-night-service/internal/app"
	"quiz-night-service/internal/domain"
)

const writeWait = 10 * time.Second

type WSHandler struct {
	service  *app.QuizService
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, hub *Hub) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
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

type roomPayload struct {
	Code string `json:"code"`
}

type setQuizPayload struct {
	Code  string      `json:"code"`
	Title string      `json:"title"`
	Quiz  domain.Quiz `json:"quiz"`
}

type loadQuizPayload struct {
	Code   string `json:"code"`
	QuizID string `json:"quizId"`
}

type joinPayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type answerPayload struct {
	Value json.RawMessage `json:"value"`
}

var joinMessages = map[string]string{
	domain.ReasonRoomNotFound: "Room not found.",
	domain.ReasonInvalidName:  "Please enter a name.",
	domain.ReasonNameTaken:    "Name already taken in this room.",
}

// ServeWS upgrades HTTP requests to websockets and feeds every inbound
// message into the quiz service. Each connection gets a fresh identity.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan domain.Event, sendBuffer),
	}
	h.hub.register(c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		for ev := range c.send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(ctx, c.id, inbound)
	}

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.service.Disconnect(cleanupCtx, c.id); err != nil {
		log.Printf("disconnect %s: %v", c.id, err)
	}
	h.hub.unregister(c.id)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, connID string, in inboundMessage) {
	switch in.Type {
	case domain.MsgCreateRoom:
		if _, err := h.service.CreateRoom(ctx, connID); err != nil {
			h.hostError(connID, err)
		}
	case domain.MsgSetQuiz:
		var p setQuizPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			h.hostError(connID, errors.New("invalid quiz payload"))
			return
		}
		if err := h.service.SetQuiz(ctx, connID, p.Code, p.Title, p.Quiz); err != nil {
			h.hostError(connID, err)
		}
	case domain.MsgLoadQuiz:
		var p loadQuizPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			h.hostError(connID, errors.New("invalid load payload"))
			return
		}
		if err := h.service.LoadQuiz(ctx, connID, p.Code, p.QuizID); err != nil {
			h.hostError(connID, err)
		}
	case domain.MsgStart, domain.MsgNext, domain.MsgEndQuestion:
		var p roomPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return
		}
		if err := h.hostAction(ctx, in.Type, connID, p.Code); err != nil {
			log.Printf("%s for room %s: %v", in.Type, p.Code, err)
		}
	case domain.MsgJoin:
		var p joinPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			h.joinError(connID, domain.ErrInvalidName)
			return
		}
		if _, err := h.service.Join(ctx, connID, p.Code, p.Name); err != nil {
			h.joinError(connID, err)
		}
	case domain.MsgAnswer:
		var p answerPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return
		}
		if err := h.service.Answer(ctx, connID, p.Value); err != nil {
			log.Printf("answer from %s: %v", connID, err)
		}
	case domain.MsgLeave:
		if err := h.service.Disconnect(ctx, connID); err != nil {
			log.Printf("leave %s: %v", connID, err)
		}
	default:
		h.hub.ToConn(connID, domain.Event{Type: "error", Payload: domain.ErrorMessage{Message: "unsupported message type"}})
	}
}

func (h *WSHandler) hostAction(ctx context.Context, typ, connID, code string) error {
	switch typ {
	case domain.MsgStart:
		return h.service.Start(ctx, connID, code)
	case domain.MsgNext:
		return h.service.Next(ctx, connID, code)
	default:
		return h.service.EndQuestion(ctx, connID, code)
	}
}

func (h *WSHandler) hostError(connID string, err error) {
	h.hub.ToConn(connID, domain.Event{Type: domain.EventHostError, Payload: domain.ErrorMessage{Message: err.Error()}})
}

func (h *WSHandler) joinError(connID string, err error) {
	reason := domain.JoinReason(err)
	msg, ok := joinMessages[reason]
	if !ok {
		msg = err.Error()
	}
	h.hub.ToConn(connID, domain.Event{Type: domain.EventJoinError, Payload: domain.JoinError{Reason: reason, Message: msg}})
}
