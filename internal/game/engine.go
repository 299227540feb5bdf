package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
)

// MovePicker chooses the engine side's reply for a chess position.
type MovePicker interface {
	BestMove(pos *chess.Position) (*chess.Move, error)
	Close() error
}

// Compile-time interface assertion.
var _ MovePicker = (*UCIEngine)(nil)

// defaultMoveTime is how long the engine thinks per move. A tenth of a second
// is plenty for a fast, convincing opponent.
const defaultMoveTime = 100 * time.Millisecond

// UCIEngine wraps a UCI chess engine process (e.g. Stockfish) behind the
// MovePicker interface. The engine protocol is stateful, so calls are
// serialized with a mutex.
type UCIEngine struct {
	mu       sync.Mutex
	eng      *uci.Engine
	moveTime time.Duration
}

// NewUCIEngine launches the engine binary at path and completes the UCI
// handshake. moveTime values below one millisecond fall back to the default.
func NewUCIEngine(path string, moveTime time.Duration) (*UCIEngine, error) {
	if moveTime < time.Millisecond {
		moveTime = defaultMoveTime
	}
	eng, err := uci.New(path)
	if err != nil {
		return nil, fmt.Errorf("game: start engine %q: %w", path, err)
	}
	if err := eng.Run(uci.CmdUCI, uci.CmdIsReady, uci.CmdUCINewGame); err != nil {
		eng.Close()
		return nil, fmt.Errorf("game: engine handshake: %w", err)
	}
	return &UCIEngine{eng: eng, moveTime: moveTime}, nil
}

// BestMove asks the engine for its move in the given position.
func (e *UCIEngine) BestMove(pos *chess.Position) (*chess.Move, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cmds := []uci.Cmd{
		uci.CmdPosition{Position: pos},
		uci.CmdGo{MoveTime: e.moveTime},
	}
	if err := e.eng.Run(cmds...); err != nil {
		return nil, fmt.Errorf("game: engine search: %w", err)
	}
	move := e.eng.SearchResults().BestMove
	if move == nil {
		return nil, fmt.Errorf("game: engine returned no move")
	}
	return move, nil
}

// Close shuts the engine process down.
func (e *UCIEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eng.Close()
}
