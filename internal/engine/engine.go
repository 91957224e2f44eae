package engine

import (
	"errors"
)

var ErrNotPlaying = errors.New("game is not in progress")
var ErrWrongTurn = errors.New("not your turn")
var ErrMustServe = errors.New("the first shot of every rally must be a serve")
var ErrUnknownTechnique = errors.New("unknown technique")
var ErrAlreadyStarted = errors.New("game already started")
var ErrNotStarted = errors.New("game has not started")
var ErrNotEnoughPlayers = errors.New("not enough players to start")
var ErrUnsupportedCommand = errors.New("unsupported command")

// MinPlayers is the cooperative minimum for either mode.
const MinPlayers = 2

type Side string

const (
	SideA Side = "a"
	SideB Side = "b"
)

func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

type Player struct {
	Name   string
	Skills map[string]int
}

// ShotRecord is one entry of the match log.
type ShotRecord struct {
	Player    string      `json:"player"`
	Side      Side        `json:"side"`
	Technique string      `json:"skill"`
	Message   string      `json:"message"`
	Outcome   ShotOutcome `json:"result"`
	Scorer    Side        `json:"scorer,omitempty"`
}

type State struct {
	Status      Status       `json:"status"`
	Server      string       `json:"current_server,omitempty"`
	Receiver    string       `json:"current_receiver,omitempty"`
	ScoreA      int          `json:"score_a"`
	ScoreB      int          `json:"score_b"`
	IsFirstShot bool         `json:"is_first_shot"`
	RallyCount  int          `json:"rally_count"`
	LastShot    *ShotOutcome `json:"last_shot,omitempty"`
	TeamA       []string     `json:"team_a"`
	TeamB       []string     `json:"team_b"`
	History     []ShotRecord `json:"rally_history"`
	Rules       Rules        `json:"rules"`

	skills      map[string]map[string]int
	sides       map[string]Side
	sideLast    map[Side]Quality // quality of each side's latest shot this rally
	rallyHitter map[Side]string  // each side's latest hitter this rally
	pending     map[string]bool  // unconfirmed critical-fail candidates
	servedBy    string           // who opened the current rally
	servedTo    string
}

type CommandType string

const (
	CmdStartGame   CommandType = "StartGame"
	CmdRestartGame CommandType = "RestartGame"
	CmdShot        CommandType = "Shot"
)

type Command struct {
	Type      CommandType
	Players   []Player // start and restart: occupants in join order
	Actor     string
	Technique string
	Message   string
}

type EventType string

const (
	EvtGameStarted   EventType = "GameStarted"
	EvtGameRestarted EventType = "GameRestarted"
	EvtShotResolved  EventType = "ShotResolved"
	EvtPointScored   EventType = "PointScored"
	EvtGameFinished  EventType = "GameFinished"
)

type Event struct {
	Type   EventType
	Shot   *ShotRecord
	Scorer Side
}

// Apply validates cmd against s and returns the resulting events and state.
// A rejected command returns s untouched alongside the error.
func Apply(s State, cmd Command, dice Dice) ([]Event, State, error) {
	switch cmd.Type {
	case CmdStartGame:
		if s.Status != StatusWaiting {
			return nil, s, ErrAlreadyStarted
		}
		newState, err := begin(s.Rules, cmd.Players)
		if err != nil {
			return nil, s, err
		}
		return []Event{{Type: EvtGameStarted}}, newState, nil

	case CmdRestartGame:
		if s.Status == StatusWaiting {
			return nil, s, ErrNotStarted
		}
		newState, err := begin(s.Rules, cmd.Players)
		if err != nil {
			return nil, s, err
		}
		return []Event{{Type: EvtGameRestarted}}, newState, nil

	case CmdShot:
		return shoot(s, cmd, dice)

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func begin(rules Rules, players []Player) (State, error) {
	if len(players) < MinPlayers {
		return State{}, ErrNotEnoughPlayers
	}

	s := NewEmptyState(rules)
	for i, p := range players {
		side := SideA
		if i%2 == 1 {
			side = SideB
		}
		if side == SideA {
			s.TeamA = append(s.TeamA, p.Name)
		} else {
			s.TeamB = append(s.TeamB, p.Name)
		}
		s.sides[p.Name] = side
		s.skills[p.Name] = copySkills(p.Skills)
	}

	s.Status = StatusPlaying
	s.Server = s.TeamA[0]
	s.Receiver = s.TeamB[0]
	s.servedBy, s.servedTo = s.Server, s.Receiver
	s.IsFirstShot = true
	return s, nil
}

func shoot(s State, cmd Command, dice Dice) ([]Event, State, error) {
	if s.Status != StatusPlaying {
		return nil, s, ErrNotPlaying
	}
	if cmd.Actor == "" || cmd.Actor != s.Acting() {
		return nil, s, ErrWrongTurn
	}
	if !IsTechnique(cmd.Technique) {
		return nil, s, ErrUnknownTechnique
	}
	if s.IsFirstShot && cmd.Technique != TechniqueServe {
		return nil, s, ErrMustServe
	}

	newState := s.Clone()
	side := newState.sides[cmd.Actor]

	out := Resolve(ShotInput{
		SkillLevel:      ClampSkill(newState.skills[cmd.Actor][cmd.Technique]),
		OpponentLast:    newState.sideLast[side.Other()],
		CritFailPending: newState.pending[cmd.Actor],
	}, dice, newState.Rules)

	if out.CritFailPending {
		newState.pending[cmd.Actor] = true
	} else {
		delete(newState.pending, cmd.Actor)
	}

	rec := ShotRecord{
		Player:    cmd.Actor,
		Side:      side,
		Technique: cmd.Technique,
		Message:   cmd.Message,
		Outcome:   out,
	}
	last := out
	newState.LastShot = &last

	if !out.PointEnded {
		newState.RallyCount++
		newState.IsFirstShot = false
		newState.sideLast[side] = out.Quality
		next := newState.nextHitter(side.Other())
		newState.rallyHitter[side] = cmd.Actor
		newState.Server = cmd.Actor
		newState.Receiver = next
		newState.History = append(newState.History, rec)
		return []Event{{Type: EvtShotResolved, Shot: &rec}}, newState, nil
	}

	scorer := side
	if out.Quality == QualityCriticalFail {
		scorer = side.Other()
	}
	rec.Scorer = scorer
	newState.History = append(newState.History, rec)

	if scorer == SideA {
		newState.ScoreA++
	} else {
		newState.ScoreB++
	}

	events := []Event{
		{Type: EvtShotResolved, Shot: &rec},
		{Type: EvtPointScored, Scorer: scorer},
	}

	if newState.Rules.Won(newState.ScoreA, newState.ScoreB) {
		newState.finish()
		events = append(events, Event{Type: EvtGameFinished, Scorer: scorer})
		return events, newState, nil
	}

	newState.newRally(scorer)
	return events, newState, nil
}

// Acting is the player expected to take the next shot, or "" outside play.
func (s State) Acting() string {
	if s.Status != StatusPlaying {
		return ""
	}
	if s.IsFirstShot {
		return s.Server
	}
	return s.Receiver
}

func (s State) SideOf(name string) (Side, bool) {
	side, ok := s.sides[name]
	return side, ok
}

// Winner is the side that took the match, or "" before it is finished.
func (s State) Winner() Side {
	if s.Status != StatusFinished {
		return ""
	}
	if s.ScoreA > s.ScoreB {
		return SideA
	}
	return SideB
}
