package hub

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/DoyleJ11/rally-backend/internal/room"
)

var ErrHubClosed = errors.New("hub closed")

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, h *Hub, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-h.ctx.Done():
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Create opens a new room under a fresh code.
func (h *Hub) Create(ctx context.Context, mode room.Mode) (*room.Room, error) {
	reply := make(chan Created, 1)
	if err := h.send(ctx, CreateRoom{Mode: mode, Reply: reply}); err != nil {
		return nil, err
	}
	res, err := await(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	return res.Room, res.Err
}

// Get returns ErrRoomNotFound for unknown codes.
func (h *Hub) Get(ctx context.Context, code string) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	if err := h.send(ctx, GetRoom{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	rm, err := await(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	if rm == nil {
		return nil, ErrRoomNotFound
	}
	return rm, nil
}

// List returns a summary of every open room ordered by code.
func (h *Hub) List(ctx context.Context) ([]room.Summary, error) {
	reply := make(chan []room.Summary, 1)
	if err := h.send(ctx, ListRooms{Reply: reply}); err != nil {
		return nil, err
	}
	out, err := await(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b room.Summary) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// Sweep reports how many rooms were closed.
func (h *Hub) Sweep(ctx context.Context, idleFor time.Duration) (int, error) {
	reply := make(chan int, 1)
	if err := h.send(ctx, Sweep{IdleFor: idleFor, Reply: reply}); err != nil {
		return 0, err
	}
	return await(ctx, h, reply)
}

func (h *Hub) Shutdown() {
	_ = h.send(context.Background(), ShutdownHub{})
	<-h.ctx.Done()
}
