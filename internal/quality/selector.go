// Package quality scores probed stream variants and selects the best one.
package quality

import (
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/camera"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/probe"
)

// Score computes the quality score of a probed variant. Duplicate frames
// penalize the score linearly; at 1000 duplicates the score reaches zero
// and the variant can no longer win selection (see Selector).
func Score(r probe.Result) float64 {
	return float64(r.Width) * float64(r.Height) * r.FPS * (1 - float64(r.DupFrames)/1000)
}

// Selection is a variant together with its probe result and score.
type Selection struct {
	Variant camera.Variant
	Result  probe.Result
	Score   float64
}

// Selector tracks the best-scoring variant seen so far. The best score
// starts at zero, so a candidate must score strictly above zero and
// strictly above the current best to win. Ties therefore resolve toward
// the earlier-offered (higher-preference) variant, and a zero or
// negative score never wins over the initial sentinel.
type Selector struct {
	best      Selection
	bestScore float64
	found     bool
}

// NewSelector creates a selector with the zero sentinel as its best score.
func NewSelector() *Selector {
	return &Selector{}
}

// Offer submits a probed variant. Returns true if it became the new best.
func (s *Selector) Offer(v camera.Variant, r probe.Result) bool {
	score := Score(r)
	if score <= s.bestScore {
		return false
	}
	s.best = Selection{Variant: v, Result: r, Score: score}
	s.bestScore = score
	s.found = true
	return true
}

// Best returns the winning selection, or nil if no offered variant
// scored above zero.
func (s *Selector) Best() *Selection {
	if !s.found {
		return nil
	}
	best := s.best
	return &best
}
