package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/rally-backend/internal/engine"
	"github.com/DoyleJ11/rally-backend/internal/room"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrNoFreeCode = errors.New("no free room code")

const (
	codeFloor    = 100000
	codeSpan     = 900000
	codeAttempts = 32
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Mode  room.Mode
	Reply chan Created
}

type Created struct {
	Room *room.Room
	Err  error
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type ListRooms struct {
	Reply chan []room.Summary
}

// RemoveRoom forgets Code only while it still maps to Room, so a late
// removal can never evict a newer room that reused the code.
type RemoveRoom struct {
	Code string
	Room *room.Room
}

// Sweep closes rooms that have had no occupants for longer than IdleFor.
type Sweep struct {
	IdleFor time.Duration
	Reply   chan int
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (ListRooms) isHubMsg()   {}
func (RemoveRoom) isHubMsg()  {}
func (Sweep) isHubMsg()       {}
func (ShutdownHub) isHubMsg() {}

type Options struct {
	Rules  engine.Rules
	Logger *zap.Logger

	// NewDice, when set, supplies the dice for every room the hub creates.
	NewDice func() engine.Dice
}

type Hub struct {
	inbox   chan HubMsg
	rooms   map[string]*room.Room
	rules   engine.Rules
	newDice func() engine.Dice
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		rooms:   make(map[string]*room.Room),
		rules:   opts.Rules,
		newDice: opts.NewDice,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

// Done is closed after ShutdownHub or when the parent context ends.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				rm, err := h.create(msg.Mode)
				msg.Reply <- Created{Room: rm, Err: err}

			case GetRoom:
				rm := h.rooms[msg.Code]
				if rm != nil && closed(rm) {
					// Torn down but its RemoveRoom is still queued.
					delete(h.rooms, msg.Code)
					rm = nil
				}
				msg.Reply <- rm // May be nil

			case ListRooms:
				out := make([]room.Summary, 0, len(h.rooms))
				for _, rm := range h.rooms {
					if closed(rm) {
						continue
					}
					out = append(out, rm.Summary())
				}
				msg.Reply <- out

			case RemoveRoom:
				if rm := h.rooms[msg.Code]; rm != nil && rm == msg.Room {
					delete(h.rooms, msg.Code)
					h.log.Info("room removed", zap.String("room", msg.Code), zap.Int("rooms", len(h.rooms)))
				}

			case Sweep:
				n := h.sweep(msg.IdleFor)
				if msg.Reply != nil {
					msg.Reply <- n
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(mode room.Mode) (*room.Room, error) {
	code, err := h.freeCode()
	if err != nil {
		return nil, err
	}

	opts := room.Options{
		ID:      code,
		Mode:    mode,
		Rules:   h.rules,
		Logger:  h.log,
		OnEmpty: h.onEmpty,
	}
	if h.newDice != nil {
		opts.Dice = h.newDice()
	}
	rm := room.New(h.ctx, opts)
	h.rooms[code] = rm
	h.log.Info("room created", zap.String("room", code), zap.String("mode", string(mode)), zap.Int("rooms", len(h.rooms)))
	return rm, nil
}

// onEmpty runs on the room goroutine, which the hub loop may itself be
// waiting on, so the removal is queued asynchronously.
func (h *Hub) onEmpty(rm *room.Room) {
	go func() {
		select {
		case h.inbox <- RemoveRoom{Code: rm.ID(), Room: rm}:
		case <-h.ctx.Done():
		}
	}()
}

func (h *Hub) freeCode() (string, error) {
	for range codeAttempts {
		c, err := GenerateCode()
		if err != nil {
			return "", err
		}
		if _, taken := h.rooms[c]; !taken {
			return c, nil
		}
		h.log.Debug("collision on code, regenerating", zap.String("code", c))
	}
	return "", ErrNoFreeCode
}

func closed(rm *room.Room) bool {
	select {
	case <-rm.Done():
		return true
	default:
		return false
	}
}

func (h *Hub) sweep(idleFor time.Duration) int {
	now := time.Now()
	swept := 0
	for code, rm := range h.rooms {
		if closed(rm) {
			delete(h.rooms, code)
			swept++
			continue
		}

		s := rm.Summary()
		if s.Players > 0 || now.Sub(s.LastActive) < idleFor {
			continue
		}
		rm.Close()
		delete(h.rooms, code)
		swept++
		h.log.Info("idle room closed", zap.String("room", code), zap.Duration("idle", now.Sub(s.LastActive)))
	}
	return swept
}

func (h *Hub) shutdown() {
	for _, rm := range h.rooms {
		rm.Close()
	}
	clear(h.rooms)
	h.cancel()
}

// GenerateCode returns a random six digit room code without a leading zero.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("generate room code: %w", err)
	}
	return strconv.FormatInt(codeFloor+n.Int64(), 10), nil
}
