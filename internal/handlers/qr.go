package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/whatthetune/blindtest/internal/game"
)

// handleRoomQR renders the join link for a live room as a PNG QR code, for
// passing a phone around the couch instead of spelling out the code.
func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request) {
	code := game.NormalizeCode(mux.Vars(r)["code"])
	if _, ok := s.Registry.Get(code); !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	joinURL := fmt.Sprintf("%s/?join=%s", strings.TrimRight(s.PublicURL, "/"), code)
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		s.Log.WithError(err).Error("failed to encode join QR code")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
