package smartmoney

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"matchpulse/internal/config"
	"matchpulse/internal/store"
	"matchpulse/pkg/types"
)

func TestImpliedProb(t *testing.T) {
	t.Parallel()

	cases := []struct {
		odds float64
		want float64
	}{
		{2.0, 0.5},
		{4.0, 0.25},
		{1.0, 0},  // even money with no margin is malformed upstream
		{0.5, 0},  // sub-1.0 decimal odds cannot exist
		{-3.0, 0}, // negative odds are garbage input
	}
	for _, tc := range cases {
		if got := ImpliedProb(tc.odds); got != tc.want {
			t.Errorf("ImpliedProb(%v) = %v, want %v", tc.odds, got, tc.want)
		}
	}
}

func TestNormalizedProbs_SumToOne(t *testing.T) {
	t.Parallel()

	// A typical book: raw implied probabilities sum past 1.0.
	probs := NormalizedProbs(types.OddsTriple{Home: 1.92, Draw: 3.60, Away: 4.00})
	sum := probs[0] + probs[1] + probs[2]
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("normalized probabilities sum to %v", sum)
	}
	if probs[0] <= probs[1] || probs[1] <= probs[2] {
		t.Errorf("probability order lost: %v", probs)
	}
}

func TestNormalizedProbs_AllMalformed(t *testing.T) {
	t.Parallel()

	probs := NormalizedProbs(types.OddsTriple{Home: 1.0, Draw: 0, Away: -2})
	if probs != [3]float64{} {
		t.Fatalf("want zero probabilities, got %v", probs)
	}
}

func TestFlowScore(t *testing.T) {
	t.Parallel()

	opening := types.OddsTriple{Home: 1.92, Draw: 3.60, Away: 4.00}

	if got := FlowScore(opening, opening, 3.5); got != 0 {
		t.Errorf("no drift scored %v", got)
	}

	// The worked example: home shortens 1.92→1.78 while away drifts out.
	drifted := types.OddsTriple{Home: 1.78, Draw: 3.60, Away: 4.20}
	got := FlowScore(opening, drifted, 3.5)
	if math.Abs(got-5.74) > 0.05 {
		t.Errorf("FlowScore = %v, want ≈5.74", got)
	}

	// A violent move must clamp at 100 rather than overflow the scale.
	crashed := types.OddsTriple{Home: 1.05, Draw: 12.0, Away: 30.0}
	if got := FlowScore(opening, crashed, 50); got != 100 {
		t.Errorf("clamped score = %v", got)
	}
}

func TestFlowScore_MonotonicDrift(t *testing.T) {
	t.Parallel()

	// Each step widens every outcome's probability gap from the opening
	// line; the score must never decrease along the way.
	opening := types.OddsTriple{Home: 1.92, Draw: 3.60, Away: 4.00}
	widening := []types.OddsTriple{
		{Home: 1.88, Draw: 3.60, Away: 4.05},
		{Home: 1.80, Draw: 3.60, Away: 4.15},
		{Home: 1.70, Draw: 3.60, Away: 4.35},
		{Home: 1.55, Draw: 3.60, Away: 4.80},
	}

	prev := 0.0
	for _, current := range widening {
		got := FlowScore(opening, current, 3.5)
		if got < prev {
			t.Fatalf("score dropped from %v to %v at current %+v", prev, got, current)
		}
		prev = got
	}
}

func TestMovement(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name              string
		baseline, current types.OddsTriple
		want              string
	}{
		{
			"home shortens",
			types.OddsTriple{Home: 1.92, Draw: 3.60, Away: 4.00},
			types.OddsTriple{Home: 1.78, Draw: 3.60, Away: 4.20},
			"Home↓",
		},
		{
			// All prices lengthen; the least-drifted outcome carries
			// the largest signed delta and gets the ↑ label.
			"whole book drifts out",
			types.OddsTriple{Home: 2.10, Draw: 3.30, Away: 3.40},
			types.OddsTriple{Home: 2.40, Draw: 3.70, Away: 3.45},
			"Away↑",
		},
		{
			// Away lengthens far more than home shortens, but the
			// label follows the largest signed delta, not the
			// largest absolute one.
			"home steams while away collapses",
			types.OddsTriple{Home: 2.00, Draw: 3.40, Away: 3.80},
			types.OddsTriple{Home: 1.90, Draw: 3.40, Away: 4.90},
			"Home↓",
		},
		{
			"draw steams",
			types.OddsTriple{Home: 2.50, Draw: 3.40, Away: 2.80},
			types.OddsTriple{Home: 2.55, Draw: 3.00, Away: 2.85},
			"Draw↓",
		},
		{
			"no move",
			types.OddsTriple{Home: 2.0, Draw: 3.0, Away: 4.0},
			types.OddsTriple{Home: 2.0, Draw: 3.0, Away: 4.0},
			"",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Movement(tc.baseline, tc.current); got != tc.want {
				t.Errorf("Movement = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTracker_Observe(t *testing.T) {
	t.Parallel()

	st := store.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tr := NewTracker(st, config.FlowConfig{
		SensitivityK:   3.5,
		AlertThreshold: 5.0,
	}, logger)

	kickoff := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return kickoff.Add(10 * time.Minute) }

	rec := func(odds types.OddsTriple) types.SnapshotRecord {
		return types.SnapshotRecord{
			Home:    "Arsenal",
			Away:    "Liverpool",
			League:  "EPL",
			Kickoff: kickoff,
			Status:  "live",
			Market:  "1X2",
			Odds:    &odds,
		}
	}

	// First sight captures the baseline; zero drift, no candidate.
	if _, ok := tr.Observe(rec(types.OddsTriple{Home: 1.92, Draw: 3.60, Away: 4.00})); ok {
		t.Fatal("baseline capture produced a signal")
	}

	sig, ok := tr.Observe(rec(types.OddsTriple{Home: 1.78, Draw: 3.60, Away: 4.20}))
	if !ok {
		t.Fatal("drift above threshold produced no candidate")
	}
	if sig.Movement != "Home↓" {
		t.Errorf("movement = %q, want Home↓", sig.Movement)
	}
	if sig.FlowScore < 5.0 || sig.FlowScore > 6.5 {
		t.Errorf("flow score = %v", sig.FlowScore)
	}
	if sig.Baseline != (types.OddsTriple{Home: 1.92, Draw: 3.60, Away: 4.00}) {
		t.Errorf("baseline = %+v", sig.Baseline)
	}
	if sig.DedupKey != sig.MatchID+"#1x2" {
		t.Errorf("dedup key = %q", sig.DedupKey)
	}

	// Records without odds (wrong-domain rows) are ignored.
	if _, ok := tr.Observe(types.SnapshotRecord{Home: "A", Away: "B", League: "L", Kickoff: kickoff}); ok {
		t.Fatal("odds-less record produced a signal")
	}
}
