package feed

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"matchpulse/pkg/types"
)

// SimulatedAdapter is an in-process feed generator implementing the same
// Adapter contract as real feeds. It exists for tests and for an explicitly
// configured demo/degraded mode — it is never substituted for a real feed
// behind the operator's back.
//
// The generator is deterministic for a given seed: a fixed fixture list
// whose scores advance and whose odds drift slowly as cycles pass, so the
// downstream pipeline has something realistic to chew on.
type SimulatedAdapter struct {
	alias  string
	domain types.Domain

	mu       sync.Mutex
	rng      *rand.Rand
	cycle    int
	fixtures []fixture
}

type fixture struct {
	home, away, league string
	kickoff            time.Time
	score              types.ScorePair
	odds               types.OddsTriple
}

// NewSimulatedAdapter creates a deterministic generator for one domain.
func NewSimulatedAdapter(alias string, domain types.Domain, seed int64) *SimulatedAdapter {
	rng := rand.New(rand.NewSource(seed))
	base := time.Now().UTC().Truncate(time.Hour)

	pairs := [][3]string{
		{"Arsenal", "Liverpool", "EPL"},
		{"Real Madrid", "Barcelona", "La Liga"},
		{"Bayern Munich", "Dortmund", "Bundesliga"},
		{"Inter", "Napoli", "Serie A"},
		{"PSG", "Marseille", "Ligue 1"},
	}
	fixtures := make([]fixture, 0, len(pairs))
	for _, p := range pairs {
		fixtures = append(fixtures, fixture{
			home:    p[0],
			away:    p[1],
			league:  p[2],
			kickoff: base.Add(-time.Duration(rng.Intn(45)) * time.Minute),
			odds: types.OddsTriple{
				Home: 1.5 + rng.Float64()*1.5,
				Draw: 3.0 + rng.Float64(),
				Away: 2.5 + rng.Float64()*2.5,
			},
		})
	}

	return &SimulatedAdapter{
		alias:    alias,
		domain:   domain,
		rng:      rng,
		fixtures: fixtures,
	}
}

func (s *SimulatedAdapter) Alias() string        { return s.alias }
func (s *SimulatedAdapter) Domain() types.Domain { return s.domain }

// Fetch produces the next snapshot. Roughly one in eight cycles a goal is
// scored somewhere; odds drift a little every cycle, occasionally sharply
// (that is the movement the scorer is supposed to catch).
func (s *SimulatedAdapter) Fetch(ctx context.Context) ([]types.SnapshotRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Kind: ErrTimeout, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycle++

	records := make([]types.SnapshotRecord, 0, len(s.fixtures))
	for i := range s.fixtures {
		f := &s.fixtures[i]

		if s.rng.Intn(8) == 0 {
			if s.rng.Intn(2) == 0 {
				f.score.Home++
			} else {
				f.score.Away++
			}
		}
		drift := func(v float64) float64 {
			step := (s.rng.Float64() - 0.5) * 0.04
			if s.rng.Intn(20) == 0 { // sharp move
				step *= 8
			}
			if v+step < 1.05 {
				return v
			}
			return v + step
		}
		f.odds.Home = drift(f.odds.Home)
		f.odds.Draw = drift(f.odds.Draw)
		f.odds.Away = drift(f.odds.Away)

		rec := types.SnapshotRecord{
			Home:    f.home,
			Away:    f.away,
			League:  f.league,
			Kickoff: f.kickoff,
			Status:  "live",
		}
		switch s.domain {
		case types.DomainScores:
			score := f.score
			rec.Score = &score
		case types.DomainOdds:
			odds := f.odds
			rec.Odds = &odds
			rec.Market = "1X2"
		default:
			return nil, &FetchError{Kind: ErrParse, Err: fmt.Errorf("unknown domain %q", s.domain)}
		}
		records = append(records, rec)
	}
	return records, nil
}
