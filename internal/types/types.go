package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/rally-backend/internal/engine"
	wire "github.com/DoyleJ11/rally-backend/pkg/types"
)

var ErrMalformed = errors.New("malformed message")
var ErrUnknownMessage = errors.New("unknown message type")

type ClientMessage struct {
	Type    string `json:"type"`
	Skill   string `json:"skill,omitempty"`
	Message string `json:"message,omitempty"`
}

// Action is the closed set of requests a player can make inside a room.
type Action interface{ isAction() }

type StartGame struct{}

type RestartGame struct{}

type TakeShot struct {
	Technique string
	Message   string
}

func (StartGame) isAction()   {}
func (RestartGame) isAction() {}
func (TakeShot) isAction()    {}

func ParseAction(data []byte) (Action, error) {
	var cm ClientMessage
	if err := json.Unmarshal(data, &cm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch cm.Type {
	case wire.MsgStartGame:
		return StartGame{}, nil
	case wire.MsgRestartGame:
		return RestartGame{}, nil
	case wire.MsgShot:
		if cm.Skill == "" {
			return nil, fmt.Errorf("%w: shot without skill", ErrMalformed)
		}
		return TakeShot{Technique: cm.Skill, Message: cm.Message}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, cm.Type)
	}
}

type ServerMessage struct {
	Type    string `json:"type"`
	Version int    `json:"version,omitempty"`
	*Roster
	*ShotResult
	State *engine.State `json:"game_state,omitempty"`

	// Message is the shot's chat line on shot_result and the human-readable
	// reason on error.
	Message string `json:"message,omitempty"`
}

type Roster struct {
	Username    string   `json:"username"`
	Players     []string `json:"players"`
	PlayerCount int      `json:"player_count"`
}

type ShotResult struct {
	Player      string             `json:"player"`
	Skill       string             `json:"skill"`
	Result      engine.ShotOutcome `json:"result"`
	Description string             `json:"description"`
	Scored      bool               `json:"scored"`
	Scorer      engine.Side        `json:"scorer,omitempty"`
	GameOver    bool               `json:"game_over"`
}

func Error(err error) ServerMessage {
	return ServerMessage{Type: wire.MsgError, Message: err.Error()}
}
