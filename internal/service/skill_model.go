package service

import (
	"math"

	"github.com/martius-lab/comprl/internal/models"
)

// Rating is a skill estimate: mu is the mean, sigma the uncertainty.
type Rating struct {
	Mu    float64
	Sigma float64
}

// SkillModel updates ratings from a match outcome. Scores are
// index-aligned with ratings; a higher score means a better placement,
// equal scores mean a draw.
type SkillModel interface {
	Rate(ratings []Rating, scores []float64) []Rating
}

// GaussianSkillModel is the default model: a logistic expected-outcome
// curve on the mu difference with a step size scaled by the player's own
// uncertainty, so provisional ratings converge faster than established
// ones. Sigma shrinks a little with every rated game, with a hard floor.
type GaussianSkillModel struct {
	// Step size for a player at the default sigma.
	BaseK float64
	// Mu difference at which the expected outcome reaches ~90%.
	Scale float64
	// Multiplicative sigma shrink per rated game.
	SigmaDecay float64
	// Lower bound on sigma.
	SigmaFloor float64
}

func NewGaussianSkillModel() *GaussianSkillModel {
	return &GaussianSkillModel{
		BaseK:      2.0,
		Scale:      10.0,
		SigmaDecay: 0.97,
		SigmaFloor: 1.0,
	}
}

func (m *GaussianSkillModel) Rate(ratings []Rating, scores []float64) []Rating {
	updated := make([]Rating, len(ratings))

	for i, r := range ratings {
		var delta float64
		for j, other := range ratings {
			if i == j {
				continue
			}

			expected := m.expectedOutcome(r.Mu, other.Mu)
			actual := outcomeScore(scores[i], scores[j])

			// players with uncertain ratings take bigger steps
			k := m.BaseK * (r.Sigma / models.DefaultSigma)
			delta += k * (actual - expected)
		}

		sigma := r.Sigma * m.SigmaDecay
		if sigma < m.SigmaFloor {
			sigma = m.SigmaFloor
		}

		updated[i] = Rating{
			Mu:    r.Mu + delta,
			Sigma: sigma,
		}
	}

	return updated
}

// expectedOutcome is the probability that a player with muA beats one with
// muB.
func (m *GaussianSkillModel) expectedOutcome(muA, muB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (muB-muA)/m.Scale))
}

// outcomeScore maps a pairwise score comparison to 1 / 0.5 / 0.
func outcomeScore(a, b float64) float64 {
	switch {
	case a > b:
		return 1.0
	case a < b:
		return 0.0
	default:
		return 0.5
	}
}
