package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/rally-backend/internal/hub"
	"github.com/DoyleJ11/rally-backend/internal/profile"
	"github.com/DoyleJ11/rally-backend/internal/room"
	"github.com/DoyleJ11/rally-backend/internal/types"
)

const (
	writeTimeout = 5 * time.Second
	outboxSize   = 16
)

type Options struct {
	// AllowedOrigins are full origins ("https://example.com") or host
	// patterns ("localhost:*"). Empty means same-origin only.
	AllowedOrigins []string
	Logger         *zap.Logger
}

// Handler serves GET /ws/{roomID}/{username}. The connection is bound to one
// room and one player for its whole life.
func Handler(h *hub.Hub, profiles profile.Store, opts Options) http.HandlerFunc {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	accept := &websocket.AcceptOptions{OriginPatterns: originPatterns(opts.AllowedOrigins)}

	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		username := profile.NormalizeName(chi.URLParam(r, "username"))

		conn, err := websocket.Accept(w, r, accept)
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		log := log.With(
			zap.String("conn", uuid.NewString()),
			zap.String("room", roomID),
			zap.String("player", username),
		)

		rm, p, err := admit(ctx, h, profiles, roomID, username)
		if err != nil {
			log.Info("connection refused", zap.Error(err))
			reject(ctx, conn, err)
			return
		}

		out := make(chan types.ServerMessage, outboxSize)
		if err := rm.Join(ctx, p, out); err != nil {
			log.Info("join refused", zap.Error(err))
			reject(ctx, conn, err)
			return
		}
		defer rm.Leave(username)
		log.Info("player connected")

		// Writer goroutine. The room closes out when the player leaves or
		// falls too far behind, which ends the connection.
		go func() {
			for msg := range out {
				if err := write(ctx, conn, msg); err != nil {
					log.Debug("write failed", zap.Error(err))
					break
				}
			}
			_ = conn.Close(websocket.StatusNormalClosure, "")
		}()

		// Reader loop. Turns never time out, so there is no read deadline.
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Info("player disconnected")
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}

			action, err := types.ParseAction(data)
			if err != nil {
				_ = write(ctx, conn, types.Error(err))
				continue
			}

			if err := rm.Submit(ctx, username, action); err != nil {
				_ = write(ctx, conn, types.Error(err))
				return
			}
		}
	}
}

func admit(ctx context.Context, h *hub.Hub, profiles profile.Store, roomID, username string) (*room.Room, profile.Profile, error) {
	if err := profile.ValidateName(username); err != nil {
		return nil, profile.Profile{}, err
	}
	rm, err := h.Get(ctx, roomID)
	if err != nil {
		return nil, profile.Profile{}, err
	}
	p, err := profiles.Load(ctx, username)
	if err != nil {
		return nil, profile.Profile{}, err
	}
	// The room knows the player by the name they connected with.
	p.Username = username
	return rm, p, nil
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

// reject tells the client why it was turned away, then closes.
func reject(ctx context.Context, conn *websocket.Conn, err error) {
	_ = write(ctx, conn, types.Error(err))
	_ = conn.Close(closeStatus(err), "")
}

func closeStatus(err error) websocket.StatusCode {
	switch {
	case errors.Is(err, hub.ErrRoomNotFound),
		errors.Is(err, profile.ErrNotFound),
		errors.Is(err, profile.ErrInvalidName),
		errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrAlreadyInRoom),
		errors.Is(err, room.ErrGameInProgress):
		return websocket.StatusPolicyViolation
	case errors.Is(err, room.ErrRoomClosed), errors.Is(err, hub.ErrHubClosed):
		return websocket.StatusGoingAway
	default:
		return websocket.StatusInternalError
	}
}

func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
