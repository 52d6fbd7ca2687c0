// Package race runs the toy race between two stat cards.
package race

import (
	"fmt"
	"math/rand/v2"

	"github.com/andresmejia3/stable/internal/card"
	"github.com/andresmejia3/stable/internal/types"
)

// Message is what users see when either card cannot be parsed.
const Message = "Paste valid JSON saved from this app to race two horses."

// Score weights and noise amplitude.
const (
	SpeedWeight   = 0.5
	StaminaWeight = 0.35
	JumpWeight    = 0.15
	NoiseSpan     = 10.0
)

// Rand is the uniform source used for race noise. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// globalRand draws from the concurrency-safe package-level generator.
type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Scorer scores and compares cards using an injected random source.
// A Scorer built on a *rand.Rand must not be shared between goroutines.
type Scorer struct {
	rng Rand
}

// NewScorer returns a scorer drawing noise from rng.
func NewScorer(rng Rand) *Scorer {
	return &Scorer{rng: rng}
}

// New returns a scorer backed by the package-level generator. It is safe for concurrent use.
func New() *Scorer {
	return NewScorer(globalRand{})
}

// NewSeeded returns a reproducible scorer.
func NewSeeded(seed uint64) *Scorer {
	return NewScorer(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// Base is the deterministic part of a card's score.
func Base(c types.StatCard) float64 {
	return SpeedWeight*float64(c.Speed) + StaminaWeight*float64(c.Stamina) + JumpWeight*float64(c.Jump)
}

// Score adds a fresh uniform draw in [-NoiseSpan, NoiseSpan) to the base score.
func (s *Scorer) Score(c types.StatCard) float64 {
	return Base(c) + (-NoiseSpan + 2*NoiseSpan*s.rng.Float64())
}

// Compare scores a, then b. Ties go to a.
func (s *Scorer) Compare(a, b types.StatCard) types.RaceResult {
	sa, sb := s.Score(a), s.Score(b)
	winner := b.Name
	if sa >= sb {
		winner = a.Name
	}
	return types.RaceResult{Winner: winner, ScoreA: sa, ScoreB: sb}
}

// Race parses both card texts and compares them. Parsing happens before any
// random draw, so a ValidationError never consumes randomness.
func (s *Scorer) Race(textA, textB []byte) (types.RaceResult, error) {
	a, err := card.Parse(textA)
	if err != nil {
		return types.RaceResult{}, fmt.Errorf("horse A: %w", err)
	}
	b, err := card.Parse(textB)
	if err != nil {
		return types.RaceResult{}, fmt.Errorf("horse B: %w", err)
	}
	return s.Compare(a, b), nil
}

// Format renders a result for display. Scores are rounded to one decimal
// here only; the winner was decided on full precision.
func Format(r types.RaceResult) string {
	return fmt.Sprintf("Winner: %s  (A=%.1f, B=%.1f)", r.Winner, r.ScoreA, r.ScoreB)
}
