// Package bracket generates single-elimination brackets and advances them as
// match results arrive.
//
// Every operation takes a tournament value and returns a new one; inputs are
// never mutated. Callers must serialize RecordMatchResult calls for the same
// tournament (for example with a transaction or a per-tournament lock), since
// two concurrent results for the same match would both be accepted.
package bracket

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/quizarena/internal/domain/model"
)

// Shuffler permutes n elements. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithShuffler sets the source used to randomize round-1 pairings.
func WithShuffler(s Shuffler) Option {
	return func(e *Engine) {
		if s != nil {
			e.shuffler = s
		}
	}
}

// WithSeed makes pairings deterministic for the given seed.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.shuffler = rand.New(rand.NewSource(seed)) //nolint:gosec // pairing fairness, not security
	}
}

// WithMatchIDs sets the generator for match ids.
func WithMatchIDs(next func(tournamentID string, matchNumber int) string) Option {
	return func(e *Engine) {
		if next != nil {
			e.matchID = next
		}
	}
}

// Engine builds brackets. It is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex // guards shuffler
	shuffler Shuffler
	matchID  func(tournamentID string, matchNumber int) string
}

// NewEngine creates an Engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		shuffler: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // pairing fairness, not security
		matchID: func(tournamentID string, matchNumber int) string {
			return fmt.Sprintf("%s-m%d", tournamentID, matchNumber)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) shuffle(ps []model.Participant) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shuffler.Shuffle(len(ps), func(i, j int) { ps[i], ps[j] = ps[j], ps[i] })
}

// Rounds returns ceil(log2(n)) for n >= 1.
func Rounds(n int) int {
	rounds := 0
	for size := 1; size < n; size *= 2 {
		rounds++
	}
	return rounds
}

// Size returns the smallest power of two >= n.
func Size(n int) int {
	return 1 << Rounds(n)
}
