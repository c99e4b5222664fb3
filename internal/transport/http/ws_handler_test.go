package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"quiz-night-service/internal/app"
	"quiz-night-service/internal/domain"
	"quiz-night-service/internal/infra/memory"
)

func TestWebSocketQuizFlow(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server)
	send(t, host, domain.MsgCreateRoom, nil)
	var created domain.RoomCreated
	readUntil(t, host, domain.EventRoomCreated, &created)
	if len(created.Code) != 4 {
		t.Fatalf("expected 4-character room code, got %q", created.Code)
	}

	send(t, host, domain.MsgSetQuiz, map[string]any{
		"code":  created.Code,
		"title": "Pub Quiz",
		"quiz":  sampleQuiz(),
	})
	var meta domain.RoomMeta
	readUntil(t, host, domain.EventRoomMeta, &meta)
	if meta.Title != "Pub Quiz" || meta.QCount != 1 {
		t.Fatalf("unexpected meta %+v", meta)
	}

	player := dial(t, server)
	send(t, player, domain.MsgJoin, map[string]any{"code": strings.ToLower(created.Code), "name": "Ana"})
	var ack domain.JoinAck
	readUntil(t, player, domain.EventJoined, &ack)
	if ack.Code != created.Code || ack.Title != "Pub Quiz" {
		t.Fatalf("unexpected join ack %+v", ack)
	}
	var roster []domain.RosterEntry
	readUntil(t, host, domain.EventRoster, &roster)
	if len(roster) != 1 || roster[0].Name != "Ana" {
		t.Fatalf("unexpected roster %+v", roster)
	}

	send(t, host, domain.MsgStart, map[string]any{"code": created.Code})
	readUntil(t, player, domain.EventStarted, nil)
	send(t, host, domain.MsgNext, map[string]any{"code": created.Code})

	var shown map[string]any
	readUntil(t, player, domain.EventQuestion, &shown)
	if _, leaked := shown["answer"]; leaked {
		t.Fatalf("player view leaked the answer: %v", shown)
	}
	var hostView domain.HostQuestionView
	readUntil(t, host, domain.EventHostQuestion, &hostView)
	if hostView.Answer == nil || *hostView.Answer != 1 {
		t.Fatalf("expected host view with answer 1, got %+v", hostView)
	}

	send(t, player, domain.MsgAnswer, map[string]any{"value": 1})
	var answered domain.AnswerAck
	readUntil(t, player, domain.EventAnswerAck, &answered)
	if !answered.Correct {
		t.Fatalf("expected correct answer")
	}
	var progress domain.AnswerProgress
	readUntil(t, host, domain.EventAnswerProgress, &progress)
	if progress.Count != 1 || progress.Total != 1 {
		t.Fatalf("unexpected progress %+v", progress)
	}

	send(t, host, domain.MsgEndQuestion, map[string]any{"code": created.Code})
	var ended domain.QuestionEnded
	readUntil(t, player, domain.EventQuestionEnded, &ended)
	if len(ended.Leaderboard) != 1 || ended.Leaderboard[0].Score != 1 || ended.Leaderboard[0].Rank != 1 {
		t.Fatalf("unexpected leaderboard %+v", ended.Leaderboard)
	}
	var detail domain.HostQuestionEnded
	readUntil(t, host, domain.EventHostEnded, &detail)
	if len(detail.Answers) != 1 || !detail.Answers[0].Correct {
		t.Fatalf("unexpected host detail %+v", detail)
	}

	host.Close()
	readUntil(t, player, domain.EventRoomClosed, nil)
}

func TestWebSocketJoinErrors(t *testing.T) {
	server := newTestServer(t)

	player := dial(t, server)
	send(t, player, domain.MsgJoin, map[string]any{"code": "ZZZZ", "name": "Ana"})
	var joinErr domain.JoinError
	readUntil(t, player, domain.EventJoinError, &joinErr)
	if joinErr.Reason != domain.ReasonRoomNotFound {
		t.Fatalf("expected room-not-found, got %+v", joinErr)
	}

	send(t, player, "player:dance", nil)
	var unsupported domain.ErrorMessage
	readUntil(t, player, "error", &unsupported)
	if unsupported.Message == "" {
		t.Fatalf("expected an error message")
	}
}

func TestHubDropsClosedGroups(t *testing.T) {
	hub := NewHub()
	c := &client{id: "c1", send: make(chan domain.Event, 1)}
	hub.register(c)
	hub.Join("ABCD", "c1")

	hub.ToRoom("ABCD", domain.Event{Type: domain.EventStarted})
	if ev := <-c.send; ev.Type != domain.EventStarted {
		t.Fatalf("unexpected event %s", ev.Type)
	}

	hub.Close("ABCD")
	hub.ToRoom("ABCD", domain.Event{Type: domain.EventStarted})
	select {
	case ev := <-c.send:
		t.Fatalf("closed room still delivered %s", ev.Type)
	default:
	}

	// A full buffer drops the client instead of blocking the sender.
	hub.ToConn("c1", domain.Event{Type: "one"})
	hub.ToConn("c1", domain.Event{Type: "two"})
	<-c.send
	if _, ok := <-c.send; ok {
		t.Fatalf("expected send channel closed for slow client")
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	hub := NewHub()
	service := app.NewQuizService(memory.NewRoomStore(), nil, hub)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = service.Run(ctx)
	}()

	router := NewRouter(RouterConfig{Version: "test"}, service, NewWSHandler(service, hub))
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
	})
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips other events until one of type typ arrives and decodes its payload.
func readUntil(t *testing.T, conn *websocket.Conn, typ string, out any) {
	t.Helper()
	for i := 0; i < 20; i++ {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", typ, err)
		}
		if msg.Type != typ {
			continue
		}
		if out != nil {
			if err := json.Unmarshal(msg.Payload, out); err != nil {
				t.Fatalf("decode %s: %v", typ, err)
			}
		}
		return
	}
	t.Fatalf("no %s event received", typ)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Title: "Arithmetic",
		Questions: []domain.Question{
			{
				Type:    domain.QuestionMCQ,
				Prompt:  "What is 2 + 2?",
				Options: []string{"3", "4", "5"},
				Answer:  1,
			},
		},
	}
}
