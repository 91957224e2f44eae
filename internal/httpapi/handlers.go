package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/DoyleJ11/rally-backend/internal/engine"
	"github.com/DoyleJ11/rally-backend/internal/hub"
	"github.com/DoyleJ11/rally-backend/internal/profile"
	"github.com/DoyleJ11/rally-backend/internal/room"
)

const (
	maxBodyBytes = 64 << 10
	qrSize       = 320
)

type createRoomRequest struct {
	Mode string `json:"mode"`
}

type createRoomResponse struct {
	RoomID string    `json:"room_id"`
	Mode   room.Mode `json:"mode"`
}

func CreateRoom(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode, err := room.ParseMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		rm, err := h.Create(r.Context(), mode)
		if err != nil {
			log.Error("create room failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to create room")
			return
		}

		writeJSON(w, http.StatusCreated, createRoomResponse{RoomID: rm.ID(), Mode: rm.Mode()})
	}
}

func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := h.List(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Rooms []room.Summary `json:"rooms"`
		}{Rooms: rooms})
	}
}

func Skills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Skills []string `json:"skills"`
	}{Skills: engine.Techniques})
}

// GetPlayer answers with the all-zero profile for names never saved.
func GetPlayer(store profile.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := profile.NormalizeName(chi.URLParam(r, "username"))
		if err := profile.ValidateName(name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		p, err := store.Load(r.Context(), name)
		switch {
		case errors.Is(err, profile.ErrNotFound):
			p = profile.Default(name)
		case err != nil:
			log.Error("load profile failed", zap.String("player", name), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load profile")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

type savePlayerRequest struct {
	Username string         `json:"username"`
	Skills   map[string]int `json:"skills"`
}

func SavePlayer(store profile.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req savePlayerRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		p := profile.Profile{Username: profile.NormalizeName(req.Username), Skills: req.Skills}
		if err := p.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := store.Save(r.Context(), p); err != nil {
			log.Error("save profile failed", zap.String("player", p.Username), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to save profile")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "profile saved"})
	}
}

// RoomQR renders a PNG invite pointing at the room's page.
func RoomQR(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		if _, err := h.Get(r.Context(), roomID); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "qr generation failed")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
