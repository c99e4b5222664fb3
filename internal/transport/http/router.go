package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"quiz-night-service/internal/app"
	"quiz-night-service/internal/domain"
)

// QuizLister lists the ids available in the quiz library.
type QuizLister interface {
	List(ctx context.Context) ([]string, error)
}

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	// PublicURL is the player-facing base URL encoded in join QR codes.
	// When empty it is derived from the request.
	PublicURL string
	Version   string
	Library   QuizLister
}

// NewRouter wires the websocket endpoint and the small JSON/PNG API.
func NewRouter(cfg RouterConfig, service *app.QuizService, ws *WSHandler) http.Handler {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		log.Printf("panic serving %s: %v", r.URL.Path, v)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}

	mux.GET("/healthz", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Write([]byte("ok"))
	})
	mux.GET("/version", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "quiz-night v"+cfg.Version+"\n")
	})
	mux.HandlerFunc(http.MethodGet, "/ws", ws.ServeWS)
	mux.GET("/rooms/:code", serveRoom(service))
	mux.GET("/rooms/:code/qr", serveQR(cfg, service))
	mux.GET("/quizzes", serveQuizzes(cfg.Library))

	return mux
}

func serveRoom(service *app.QuizService) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		snap, err := service.Snapshot(r.Context(), ps.ByName("code"))
		if errors.Is(err, domain.ErrRoomNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, snap)
	}
}

func serveQuizzes(library QuizLister) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if library == nil {
			writeJSON(w, []string{})
			return
		}
		ids, err := library.List(r.Context())
		if err != nil {
			log.Printf("list quizzes: %v", err)
			http.Error(w, "quiz library unavailable", http.StatusServiceUnavailable)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, ids)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func baseURL(cfg RouterConfig, r *http.Request) string {
	if cfg.PublicURL != "" {
		return strings.TrimSuffix(cfg.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
