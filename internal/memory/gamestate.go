package memory

import "sync"

// GameState describes the game a user is currently playing with Seraphina.
// It is rendered into her system prompt so replies can reference the game.
type GameState struct {
	// Name is the human-readable game name, e.g. "Chess" or "Coin Toss".
	Name string

	// Status is a short free-form description of the current position or
	// outcome, written for the model rather than for display.
	Status string
}

// GameStates tracks the active game per user.
type GameStates struct {
	mu    sync.RWMutex
	users map[string]GameState
}

// NewGameStates returns an empty GameStates store.
func NewGameStates() *GameStates {
	return &GameStates{users: make(map[string]GameState)}
}

// Set records the active game for userID, replacing any previous one.
func (g *GameStates) Set(userID string, state GameState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users[userID] = state
}

// Get returns the active game for userID. ok is false when the user has no
// game in progress.
func (g *GameStates) Get(userID string) (state GameState, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	state, ok = g.users[userID]
	return state, ok
}

// Clear removes the active game for userID.
func (g *GameStates) Clear(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.users, userID)
}
