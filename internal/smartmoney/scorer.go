// Package smartmoney scores odds drift against the captured opening line.
//
// Raw bookmaker odds carry an overround, so comparing them directly mixes
// real market movement with margin noise. The scorer converts each side of
// the comparison to implied probabilities, strips the vig by normalizing the
// triple to sum to one, and measures drift as the mean absolute probability
// shift across the three 1X2 outcomes.
package smartmoney

import (
	"math"

	"matchpulse/pkg/types"
)

// ImpliedProb converts decimal odds to a raw implied probability.
// Odds at or below 1.0 are malformed and map to zero.
func ImpliedProb(odds float64) float64 {
	if odds <= 1 {
		return 0
	}
	return 1 / odds
}

// NormalizedProbs strips the overround from a 1X2 triple: raw implied
// probabilities scaled so they sum to one. A triple with no positive
// probability mass returns all zeros.
func NormalizedProbs(o types.OddsTriple) [3]float64 {
	probs := [3]float64{
		ImpliedProb(o.Home),
		ImpliedProb(o.Draw),
		ImpliedProb(o.Away),
	}
	total := probs[0] + probs[1] + probs[2]
	if total <= 0 {
		return [3]float64{}
	}
	for i := range probs {
		probs[i] /= total
	}
	return probs
}

// FlowScore maps the probability drift between baseline and current odds
// onto a 0–100 scale: clamp(100 × mean(|Δp|) × k). The sensitivity k
// controls how much drift saturates the scale.
func FlowScore(baseline, current types.OddsTriple, k float64) float64 {
	pb := NormalizedProbs(baseline)
	pc := NormalizedProbs(current)

	var sum float64
	for i := range pb {
		sum += math.Abs(pc[i] - pb[i])
	}
	score := 100 * (sum / 3) * k
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Movement labels the dominant odds move, e.g. "Home↓" when the home price
// shortened the most. The outcome with the largest signed (baseline − current)
// odds change wins, so a shortening price beats a lengthening one however far
// the latter drifts; ↓ means the price came in (money arriving on that
// outcome), ↑ means it drifted out.
func Movement(baseline, current types.OddsTriple) string {
	best := types.OutcomeHome
	bestDelta := baseline.At(best) - current.At(best)
	for _, out := range []types.Outcome{types.OutcomeDraw, types.OutcomeAway} {
		delta := baseline.At(out) - current.At(out)
		if delta > bestDelta {
			best, bestDelta = out, delta
		}
	}
	if bestDelta > 0 {
		return best.String() + "↓"
	}
	if bestDelta < 0 {
		return best.String() + "↑"
	}
	return ""
}
