package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"quiz-night-service/internal/app"
	"quiz-night-service/internal/domain"
)

const qrSize = 320

// serveQR renders a PNG QR code pointing players at the join page of a live room.
func serveQR(cfg RouterConfig, service *app.QuizService) httprouter.Handle {
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

		png, err := qrcode.Encode(JoinURL(baseURL(cfg, r), snap.Code), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}

// JoinURL is the player page URL with the room code prefilled.
func JoinURL(base, code string) string {
	return base + "/player.html?code=" + url.QueryEscape(code)
}
