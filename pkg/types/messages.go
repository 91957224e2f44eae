// Package types names the messages exchanged over a room connection.
package types

// Client -> Server
//
// start_game:   {}
// restart_game: {}
// shot:
//   skill:   one of serve|receive|clear|smash|drop|lift|net-shot|pounce|hook|spin
//   message: free text, echoed back verbatim
const (
	MsgStartGame   = "start_game"
	MsgRestartGame = "restart_game"
	MsgShot        = "shot"
)

// Server -> Client
//
// player_joined / player_left:
//   username, players, player_count, game_state
// game_started / game_restarted:
//   version, game_state
// shot_result:
//   version, player, skill, message, result, description,
//   scored, scorer ("a" | "b"), game_over, game_state
// error (sent only to the requester):
//   message
const (
	MsgPlayerJoined  = "player_joined"
	MsgPlayerLeft    = "player_left"
	MsgGameStarted   = "game_started"
	MsgGameRestarted = "game_restarted"
	MsgShotResult    = "shot_result"
	MsgError         = "error"
)
