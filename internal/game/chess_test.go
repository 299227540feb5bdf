package game

import (
	"errors"
	"strings"
	"testing"

	"github.com/notnil/chess"

	"github.com/seraphina-bot/seraphina/internal/memory"
)

// scriptedEngine replies with a fixed sequence of UCI moves.
type scriptedEngine struct {
	moves []string
	next  int
	err   error
}

func (e *scriptedEngine) BestMove(pos *chess.Position) (*chess.Move, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.next >= len(e.moves) {
		return nil, errors.New("scripted engine exhausted")
	}
	move, err := chess.UCINotation{}.Decode(pos, e.moves[e.next])
	if err != nil {
		return nil, err
	}
	e.next++
	return move, nil
}

func (e *scriptedEngine) Close() error { return nil }

func TestChess_StartOncePerUser(t *testing.T) {
	t.Parallel()

	c := NewChess(&scriptedEngine{}, memory.NewGameStates())

	imageURL, err := c.Start("alice")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !strings.HasPrefix(imageURL, boardImageBase) {
		t.Errorf("imageURL = %q", imageURL)
	}
	if !c.Playing("alice") {
		t.Error("Playing should report true after Start")
	}

	if _, err := c.Start("alice"); !errors.Is(err, ErrGameInProgress) {
		t.Errorf("second Start err = %v, want ErrGameInProgress", err)
	}
	// A different user starts independently.
	if _, err := c.Start("bob"); err != nil {
		t.Errorf("Start for bob: %v", err)
	}
}

func TestChess_MoveUpdatesGameState(t *testing.T) {
	t.Parallel()

	states := memory.NewGameStates()
	c := NewChess(&scriptedEngine{moves: []string{"e7e5"}}, states)
	if _, err := c.Start("alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	res, err := c.Move("alice", "E2E4")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if res.Outcome != OutcomeContinue {
		t.Errorf("outcome = %v, want continue", res.Outcome)
	}
	if res.EngineMove != "e7e5" {
		t.Errorf("engine move = %q, want e7e5", res.EngineMove)
	}
	if !strings.Contains(res.FEN, "4p3") {
		t.Errorf("FEN = %q, expected black pawn on e5", res.FEN)
	}
	if !strings.HasPrefix(res.ImageURL, boardImageBase) {
		t.Errorf("imageURL = %q", res.ImageURL)
	}

	state, ok := states.Get("alice")
	if !ok {
		t.Fatal("game state missing after move")
	}
	if state.Name != "Chess" {
		t.Errorf("state name = %q", state.Name)
	}
	if !strings.Contains(state.Status, "The user played e2e4") ||
		!strings.Contains(state.Status, "responded by playing e7e5") ||
		!strings.Contains(state.Status, "The board FEN is") {
		t.Errorf("state status = %q", state.Status)
	}
}

func TestChess_MoveValidation(t *testing.T) {
	t.Parallel()

	c := NewChess(&scriptedEngine{}, memory.NewGameStates())

	if _, err := c.Move("nobody", "e2e4"); !errors.Is(err, ErrNoGame) {
		t.Errorf("err = %v, want ErrNoGame", err)
	}

	if _, err := c.Start("alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := c.Move("alice", "banana"); !errors.Is(err, ErrBadNotation) {
		t.Errorf("err = %v, want ErrBadNotation", err)
	}
	if _, err := c.Move("alice", "e2e5"); !errors.Is(err, ErrIllegalMove) {
		t.Errorf("err = %v, want ErrIllegalMove", err)
	}
	// The game survives rejected moves.
	if !c.Playing("alice") {
		t.Error("game dropped after a rejected move")
	}
}

// TestChess_PlayerCheckmate plays the fool's mate mirror where White mates:
// 1.e4 f6 2.d4 g5 3.Qh5#.
func TestChess_PlayerCheckmate(t *testing.T) {
	t.Parallel()

	states := memory.NewGameStates()
	c := NewChess(&scriptedEngine{moves: []string{"f7f6", "g7g5"}}, states)
	if _, err := c.Start("alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for _, m := range []string{"e2e4", "d2d4"} {
		if _, err := c.Move("alice", m); err != nil {
			t.Fatalf("Move %s: %v", m, err)
		}
	}
	res, err := c.Move("alice", "d1h5")
	if err != nil {
		t.Fatalf("mating move: %v", err)
	}
	if res.Outcome != OutcomePlayerWon {
		t.Fatalf("outcome = %v, want player won", res.Outcome)
	}
	if c.Playing("alice") {
		t.Error("game should be removed after checkmate")
	}
	if _, ok := states.Get("alice"); ok {
		t.Error("game state should be cleared after checkmate")
	}
}

// TestChess_EngineCheckmate walks into the fool's mate: 1.f3 e5 2.g4 Qh4#.
func TestChess_EngineCheckmate(t *testing.T) {
	t.Parallel()

	states := memory.NewGameStates()
	c := NewChess(&scriptedEngine{moves: []string{"e7e5", "d8h4"}}, states)
	if _, err := c.Start("alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := c.Move("alice", "f2f3"); err != nil {
		t.Fatalf("Move f2f3: %v", err)
	}
	res, err := c.Move("alice", "g2g4")
	if err != nil {
		t.Fatalf("Move g2g4: %v", err)
	}
	if res.Outcome != OutcomeEngineWon {
		t.Fatalf("outcome = %v, want engine won", res.Outcome)
	}
	if res.EngineMove != "d8h4" {
		t.Errorf("engine move = %q, want d8h4", res.EngineMove)
	}
	if res.Board == "" {
		t.Error("final position should include a text board")
	}
	if c.Playing("alice") {
		t.Error("game should be removed after checkmate")
	}
}

func TestChess_EngineFailureKeepsPlayerMove(t *testing.T) {
	t.Parallel()

	eng := &scriptedEngine{err: errors.New("engine binary missing")}
	c := NewChess(eng, memory.NewGameStates())
	if _, err := c.Start("alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := c.Move("alice", "e2e4"); err == nil {
		t.Fatal("Move should surface the engine error")
	}
	if !c.Playing("alice") {
		t.Error("game should survive an engine failure")
	}
}

func TestChess_Stop(t *testing.T) {
	t.Parallel()

	states := memory.NewGameStates()
	c := NewChess(&scriptedEngine{moves: []string{"e7e5"}}, states)
	if _, err := c.Start("alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := c.Move("alice", "e2e4"); err != nil {
		t.Fatalf("Move: %v", err)
	}

	if !c.Stop("alice") {
		t.Error("Stop should report an abandoned game")
	}
	if _, ok := states.Get("alice"); ok {
		t.Error("game state should be cleared on Stop")
	}
	if c.Stop("alice") {
		t.Error("second Stop should report no game")
	}
}

func TestBoardImageURL(t *testing.T) {
	t.Parallel()

	fen := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	got := BoardImageURL(fen)
	if !strings.HasPrefix(got, boardImageBase) {
		t.Fatalf("url = %q", got)
	}
	if strings.Contains(got, " ") {
		t.Errorf("url contains unescaped spaces: %q", got)
	}
	if !strings.Contains(got, "rnbqkbnr/pppppppp/8") {
		t.Errorf("rank separators should stay readable: %q", got)
	}
}

func TestCoinFlip(t *testing.T) {
	t.Parallel()

	states := memory.NewGameStates()
	c := NewCoinFlip(states)

	c.flip = func() int { return 0 } // heads
	res := c.Flip("alice", "HEADS")
	if res.Result != "heads" || !res.Won {
		t.Errorf("result = %+v, want winning heads", res)
	}
	state, ok := states.Get("alice")
	if !ok || !strings.Contains(state.Status, "guessed correctly and won") {
		t.Errorf("state = %+v", state)
	}
	if state.Name != "Coin Toss" {
		t.Errorf("state name = %q", state.Name)
	}

	c.flip = func() int { return 1 } // tails
	res = c.Flip("alice", "heads")
	if res.Result != "tails" || res.Won {
		t.Errorf("result = %+v, want losing tails", res)
	}
	state, _ = states.Get("alice")
	if !strings.Contains(state.Status, "guessed wrong and lost") {
		t.Errorf("state = %+v", state)
	}
}
