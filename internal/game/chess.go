// Package game implements the side games Seraphina plays in text channels:
// chess against a UCI engine and a coin flip. Every finished turn updates the
// per-user game state that the response pipeline injects into her system
// prompt, so she can talk about the game she is playing.
package game

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/notnil/chess"

	"github.com/seraphina-bot/seraphina/internal/memory"
)

// boardImageBase renders a FEN as a board image.
const boardImageBase = "https://fen2image.chessvision.ai/"

// Chess manager errors, matched by the command layer to pick a reply.
var (
	ErrGameInProgress = errors.New("game: a chess game is already in progress")
	ErrNoGame         = errors.New("game: no chess game in progress")
	ErrBadNotation    = errors.New("game: move is not valid UCI notation")
	ErrIllegalMove    = errors.New("game: illegal move")
)

// MoveOutcome describes where the game stands after a full turn.
type MoveOutcome int

const (
	// OutcomeContinue: both sides moved, the game goes on.
	OutcomeContinue MoveOutcome = iota
	// OutcomePlayerWon: the player checkmated the engine.
	OutcomePlayerWon
	// OutcomeEngineWon: the engine checkmated the player.
	OutcomeEngineWon
	// OutcomeDraw: stalemate or other drawn position.
	OutcomeDraw
)

// MoveResult reports one completed turn.
type MoveResult struct {
	Outcome MoveOutcome

	// EngineMove is the engine's reply in UCI notation. Empty when the
	// player's move ended the game.
	EngineMove string

	// FEN is the position after all moves of the turn.
	FEN string

	// ImageURL renders the position, for display in chat.
	ImageURL string

	// Board is a text rendering of the position, used when the game just
	// ended and an image link is no longer helpful.
	Board string
}

// Chess tracks one game per user, always with the user playing White and the
// engine playing Black.
type Chess struct {
	mu     sync.Mutex
	games  map[string]*chess.Game
	engine MovePicker
	states *memory.GameStates
}

// NewChess creates a Chess manager using engine for the bot's moves.
func NewChess(engine MovePicker, states *memory.GameStates) *Chess {
	return &Chess{
		games:  make(map[string]*chess.Game),
		engine: engine,
		states: states,
	}
}

// Start begins a new game for userID and returns the starting position's
// image URL. Returns ErrGameInProgress when a game is already running.
func (c *Chess) Start(userID string) (imageURL string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.games[userID]; ok {
		return "", ErrGameInProgress
	}
	g := chess.NewGame()
	c.games[userID] = g
	return BoardImageURL(g.Position().String()), nil
}

// Move applies the player's UCI move, lets the engine answer, and updates the
// user's game state. The game is removed once it ends.
func (c *Chess) Move(userID, playerMove string) (*MoveResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.games[userID]
	if !ok {
		return nil, ErrNoGame
	}

	move, err := chess.UCINotation{}.Decode(g.Position(), strings.ToLower(playerMove))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadNotation, playerMove)
	}
	if err := g.Move(move); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrIllegalMove, playerMove)
	}

	if g.Outcome() != chess.NoOutcome {
		return c.finish(userID, g), nil
	}

	engineMove, err := c.engine.BestMove(g.Position())
	if err != nil {
		// The player's move stands; the turn can be retried once the
		// engine recovers.
		return nil, err
	}
	if err := g.Move(engineMove); err != nil {
		return nil, fmt.Errorf("game: engine move %q rejected: %w", engineMove.String(), err)
	}

	if g.Outcome() != chess.NoOutcome {
		res := c.finish(userID, g)
		res.EngineMove = engineMove.String()
		return res, nil
	}

	fen := g.Position().String()
	c.states.Set(userID, memory.GameState{
		Name: "Chess",
		Status: fmt.Sprintf(
			"The user played %s. You (Seraphina) responded by playing %s. The board FEN is %s.",
			strings.ToLower(playerMove), engineMove.String(), fen,
		),
	})

	return &MoveResult{
		Outcome:    OutcomeContinue,
		EngineMove: engineMove.String(),
		FEN:        fen,
		ImageURL:   BoardImageURL(fen),
	}, nil
}

// finish removes the game and its prompt context, and classifies the result.
// Callers must hold c.mu.
func (c *Chess) finish(userID string, g *chess.Game) *MoveResult {
	delete(c.games, userID)
	c.states.Clear(userID)

	res := &MoveResult{
		FEN:   g.Position().String(),
		Board: g.Position().Board().Draw(),
	}
	switch g.Outcome() {
	case chess.WhiteWon:
		res.Outcome = OutcomePlayerWon
	case chess.BlackWon:
		res.Outcome = OutcomeEngineWon
	default:
		res.Outcome = OutcomeDraw
	}
	return res
}

// Stop abandons userID's game. Reports whether a game was running.
func (c *Chess) Stop(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.games[userID]
	delete(c.games, userID)
	c.states.Clear(userID)
	return ok
}

// Playing reports whether userID has a game in progress.
func (c *Chess) Playing(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.games[userID]
	return ok
}

// BoardImageURL returns a rendering URL for a FEN. Spaces are escaped but the
// rank separators stay readable.
func BoardImageURL(fen string) string {
	return boardImageBase + strings.ReplaceAll(url.PathEscape(fen), "%2F", "/")
}
