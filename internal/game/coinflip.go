package game

import (
	"math/rand/v2"
	"strings"

	"github.com/seraphina-bot/seraphina/internal/memory"
)

// FlipResult reports one coin flip round.
type FlipResult struct {
	// Result is "heads" or "tails".
	Result string

	// Won reports whether the user's guess matched.
	Won bool
}

// CoinFlip is the simplest game: flip a coin, remember how it went. It exists
// mostly to exercise the game-context prompt injection with trivial state.
type CoinFlip struct {
	states *memory.GameStates

	// flip returns 0 or 1; replaced in tests.
	flip func() int
}

// NewCoinFlip creates a CoinFlip backed by the shared game-state store.
func NewCoinFlip(states *memory.GameStates) *CoinFlip {
	return &CoinFlip{
		states: states,
		flip:   func() int { return rand.IntN(2) },
	}
}

// Flip tosses the coin against the user's guess and records the round in the
// user's game state so Seraphina can gloat or console accordingly.
func (c *CoinFlip) Flip(userID, guess string) FlipResult {
	result := "heads"
	if c.flip() == 1 {
		result = "tails"
	}

	won := strings.EqualFold(strings.TrimSpace(guess), result)
	outcome := "The user guessed wrong and lost."
	if won {
		outcome = "The user guessed correctly and won!"
	}

	c.states.Set(userID, memory.GameState{
		Name:   "Coin Toss",
		Status: "You just flipped a coin. " + outcome,
	})

	return FlipResult{Result: result, Won: won}
}
