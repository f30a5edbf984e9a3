package main

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

// handleJoinQR serves a PNG QR code encoding a room's join link, so a
// second player can hop in from their phone.
func handleJoinQR(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if _, err := uuid.Parse(roomID); err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	joinURL := fmt.Sprintf("%s://%s/%s", scheme, r.Host, roomID)

	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		logger.Errorw("qr encoding failed", "room", roomID, "err", err)
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=3600")
	_, _ = w.Write(png)
}
