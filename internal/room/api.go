package room

import (
	"context"

	"github.com/DoyleJ11/rally-backend/internal/profile"
	"github.com/DoyleJ11/rally-backend/internal/types"
)

func (r *Room) ID() string { return r.id }
func (r *Room) Mode() Mode { return r.mode }
func (r *Room) Summary() Summary { return *r.summary.Load() }

// Done is closed once the room has stopped processing messages.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) send(ctx context.Context, m Msg) error {
	select {
	case r.inbox <- m:
		return nil
	case <-r.ctx.Done():
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join admits p and subscribes outbox to the room's broadcasts.
func (r *Room) Join(ctx context.Context, p profile.Profile, outbox chan types.ServerMessage) error {
	reply := make(chan error, 1)
	if err := r.send(ctx, Join{Profile: p, Outbox: outbox, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-r.ctx.Done():
		select {
		case err := <-reply:
			return err
		default:
			return ErrRoomClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) Leave(name string) {
	_ = r.send(context.Background(), Leave{Name: name})
}

func (r *Room) Submit(ctx context.Context, name string, a types.Action) error {
	return r.send(ctx, FromClient{Name: name, Action: a})
}

func (r *Room) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := r.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-r.ctx.Done():
		return View{}, ErrRoomClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// Close stops the room and closes every subscriber's outbox.
func (r *Room) Close() {
	_ = r.send(context.Background(), Shutdown{})
}
