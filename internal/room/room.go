package room

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/rally-backend/internal/engine"
	"github.com/DoyleJ11/rally-backend/internal/profile"
	"github.com/DoyleJ11/rally-backend/internal/types"
	wire "github.com/DoyleJ11/rally-backend/pkg/types"
)

var ErrRoomFull = errors.New("room is full")
var ErrAlreadyInRoom = errors.New("player already in room")
var ErrGameInProgress = errors.New("game already in progress")
var ErrRoomClosed = errors.New("room closed")
var ErrUnknownMode = errors.New("unknown room mode")

type Mode string

const (
	ModeSingles Mode = "singles"
	ModeDoubles Mode = "doubles"
)

func ParseMode(s string) (Mode, error) {
	switch s {
	case "singles", "2p":
		return ModeSingles, nil
	case "doubles", "4p":
		return ModeDoubles, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

func (m Mode) Capacity() int {
	if m == ModeDoubles {
		return 4
	}
	return 2
}

type Msg interface{ isRoomMsg() }

type Join struct {
	Profile profile.Profile
	Outbox  chan types.ServerMessage // where this player receives broadcasts
	Reply   chan error
}

func (Join) isRoomMsg() {}

type Leave struct{ Name string }

func (Leave) isRoomMsg() {}

type FromClient struct {
	Name   string
	Action types.Action
}

func (FromClient) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type View struct {
	Version    int
	NumClients int
	Occupants  []string
	State      engine.State
}

// Summary is published after every message so callers outside the loop can
// read it without a round trip.
type Summary struct {
	ID         string        `json:"room_id"`
	Mode       Mode          `json:"mode"`
	Players    int           `json:"players"`
	Status     engine.Status `json:"status"`
	LastActive time.Time     `json:"-"`
}

type Options struct {
	ID     string
	Mode   Mode
	Rules  engine.Rules
	Dice   engine.Dice
	Logger *zap.Logger

	// OnEmpty runs on the room goroutine when the last occupant leaves, just
	// before the room shuts itself down.
	OnEmpty func(*Room)
}

type Room struct {
	id        string
	mode      Mode
	inbox     chan Msg
	state     engine.State
	version   int
	occupants []profile.Profile
	clients   map[string]chan types.ServerMessage
	dice      engine.Dice
	log       *zap.Logger
	onEmpty   func(*Room)
	summary   atomic.Pointer[Summary]
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(parent context.Context, opts Options) *Room {
	ctx, cancel := context.WithCancel(parent)

	dice := opts.Dice
	if dice == nil {
		dice = engine.D20(rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := &Room{
		id:      opts.ID,
		mode:    opts.Mode,
		inbox:   make(chan Msg, 64),
		state:   engine.NewEmptyState(opts.Rules),
		clients: make(map[string]chan types.ServerMessage),
		dice:    dice,
		log:     log.With(zap.String("room", opts.ID), zap.String("mode", string(opts.Mode))),
		onEmpty: opts.OnEmpty,
		ctx:     ctx,
		cancel:  cancel,
	}
	r.publishSummary()

	go r.loop()
	return r
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				err := r.join(msg)
				r.publishSummary() // visible before the caller sees the reply
				msg.Reply <- err

			case Leave:
				if !r.leave(msg.Name) {
					break
				}
				if len(r.occupants) == 0 {
					r.log.Info("room empty, tearing down")
					if r.onEmpty != nil {
						r.onEmpty(r)
					}
					r.shutdown()
					return
				}

			case FromClient:
				r.handle(msg)

			case GetState:
				// test-only: reflect internal state without data races
				msg.Reply <- View{
					Version:    r.version,
					NumClients: len(r.clients),
					Occupants:  r.names(),
					State:      r.state,
				}

			case Shutdown:
				r.shutdown()
				return
			}
			r.publishSummary()
		}
	}
}

func (r *Room) join(msg Join) error {
	name := msg.Profile.Username
	switch {
	case r.indexOf(name) >= 0:
		return ErrAlreadyInRoom
	case r.state.Status == engine.StatusPlaying:
		return ErrGameInProgress
	case len(r.occupants) >= r.mode.Capacity():
		return ErrRoomFull
	}

	r.occupants = append(r.occupants, msg.Profile)
	r.clients[name] = msg.Outbox
	r.log.Info("player joined", zap.String("player", name), zap.Int("occupants", len(r.occupants)))

	r.broadcast(r.rosterMessage(wire.MsgPlayerJoined, name))
	return nil
}

// leave reports whether name was an occupant.
func (r *Room) leave(name string) bool {
	i := r.indexOf(name)
	if i < 0 {
		return false
	}
	r.occupants = slices.Delete(r.occupants, i, i+1)
	if ch, ok := r.clients[name]; ok {
		close(ch)
		delete(r.clients, name)
	}
	fields := []zap.Field{zap.String("player", name), zap.Int("occupants", len(r.occupants))}
	if side, ok := r.state.SideOf(name); ok && r.state.Status == engine.StatusPlaying {
		fields = append(fields, zap.String("side", string(side)))
	}
	r.log.Info("player left", fields...)

	r.broadcast(r.rosterMessage(wire.MsgPlayerLeft, name))
	return true
}

func (r *Room) handle(msg FromClient) {
	if r.indexOf(msg.Name) < 0 {
		return
	}

	cmd, ok := r.toEngineCommand(msg)
	if !ok {
		r.unicast(msg.Name, types.Error(engine.ErrUnsupportedCommand))
		return
	}

	events, newState, err := engine.Apply(r.state, cmd, r.dice)
	if err != nil {
		r.log.Debug("action rejected", zap.String("player", msg.Name), zap.String("command", string(cmd.Type)), zap.Error(err))
		r.unicast(msg.Name, types.Error(err))
		return
	}

	r.state = newState
	r.version++
	r.broadcast(r.resultMessage(events))
}

func (r *Room) toEngineCommand(msg FromClient) (engine.Command, bool) {
	switch a := msg.Action.(type) {
	case types.StartGame:
		return engine.Command{Type: engine.CmdStartGame, Players: r.players()}, true
	case types.RestartGame:
		return engine.Command{Type: engine.CmdRestartGame, Players: r.players()}, true
	case types.TakeShot:
		return engine.Command{Type: engine.CmdShot, Actor: msg.Name, Technique: a.Technique, Message: a.Message}, true
	default:
		return engine.Command{}, false
	}
}

func (r *Room) resultMessage(events []engine.Event) types.ServerMessage {
	state := r.state
	out := types.ServerMessage{Version: r.version, State: &state}

	for _, ev := range events {
		switch ev.Type {
		case engine.EvtGameStarted:
			out.Type = wire.MsgGameStarted
		case engine.EvtGameRestarted:
			out.Type = wire.MsgGameRestarted
		case engine.EvtShotResolved:
			out.Type = wire.MsgShotResult
			out.Message = ev.Shot.Message
			out.ShotResult = &types.ShotResult{
				Player:      ev.Shot.Player,
				Skill:       ev.Shot.Technique,
				Result:      ev.Shot.Outcome,
				Description: Commentary(ev.Shot.Outcome.Quality),
			}
		case engine.EvtPointScored:
			out.ShotResult.Scored = true
			out.ShotResult.Scorer = ev.Scorer
			r.log.Info("point scored",
				zap.String("scorer", string(ev.Scorer)),
				zap.Int("score_a", state.ScoreA),
				zap.Int("score_b", state.ScoreB))
		case engine.EvtGameFinished:
			out.ShotResult.GameOver = true
			r.log.Info("match finished", zap.String("winner", string(state.Winner())))
		}
	}
	return out
}

func (r *Room) rosterMessage(kind, name string) types.ServerMessage {
	state := r.state
	names := r.names()
	return types.ServerMessage{
		Type:    kind,
		Version: r.version,
		Roster: &types.Roster{
			Username:    name,
			Players:     names,
			PlayerCount: len(names),
		},
		State: &state,
	}
}

func (r *Room) broadcast(msg types.ServerMessage) {
	for name, ch := range r.clients {
		select {
		case ch <- msg:
			// ok
		default:
			// Player is slow/full - drop them. Their connection closes and
			// comes back to us as a Leave.
			r.log.Warn("dropping slow client", zap.String("player", name))
			close(ch)
			delete(r.clients, name)
		}
	}
}

func (r *Room) unicast(name string, msg types.ServerMessage) {
	ch, ok := r.clients[name]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		r.log.Warn("dropping slow client", zap.String("player", name))
		close(ch)
		delete(r.clients, name)
	}
}

func (r *Room) shutdown() {
	for name, ch := range r.clients {
		close(ch) // Tell player no more messages
		delete(r.clients, name)
	}
	r.cancel()
}

func (r *Room) publishSummary() {
	r.summary.Store(&Summary{
		ID:         r.id,
		Mode:       r.mode,
		Players:    len(r.occupants),
		Status:     r.state.Status,
		LastActive: time.Now(),
	})
}

func (r *Room) indexOf(name string) int {
	return slices.IndexFunc(r.occupants, func(p profile.Profile) bool { return p.Username == name })
}

func (r *Room) names() []string {
	out := make([]string, len(r.occupants))
	for i, p := range r.occupants {
		out[i] = p.Username
	}
	return out
}

func (r *Room) players() []engine.Player {
	out := make([]engine.Player, len(r.occupants))
	for i, p := range r.occupants {
		out[i] = p.Player()
	}
	return out
}
