package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"matchpulse/pkg/types"
)

func TestValidateRecords_SchemaCheck(t *testing.T) {
	t.Parallel()

	kickoff := time.Now()
	score := types.ScorePair{Home: 1}

	good := types.SnapshotRecord{Home: "A", Away: "B", League: "L", Kickoff: kickoff, Score: &score}
	if err := ValidateRecords(types.DomainScores, []types.SnapshotRecord{good}); err != nil {
		t.Errorf("valid score record rejected: %v", err)
	}

	tests := []struct {
		name   string
		domain types.Domain
		rec    types.SnapshotRecord
	}{
		{"missing home", types.DomainScores, types.SnapshotRecord{Away: "B", League: "L", Kickoff: kickoff, Score: &score}},
		{"missing league", types.DomainScores, types.SnapshotRecord{Home: "A", Away: "B", Kickoff: kickoff, Score: &score}},
		{"missing kickoff", types.DomainScores, types.SnapshotRecord{Home: "A", Away: "B", League: "L", Score: &score}},
		{"missing score", types.DomainScores, types.SnapshotRecord{Home: "A", Away: "B", League: "L", Kickoff: kickoff}},
		{"missing odds", types.DomainOdds, types.SnapshotRecord{Home: "A", Away: "B", League: "L", Kickoff: kickoff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecords(tt.domain, []types.SnapshotRecord{tt.rec})
			if err == nil {
				t.Fatal("expected schema error")
			}
			if KindOf(err) != ErrParse {
				t.Errorf("kind = %v, want parse", KindOf(err))
			}
		})
	}
}

func TestHTTPAdapter_Fetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"home":"Arsenal","away":"Liverpool","league":"EPL",
			 "kickoff_time":"2026-03-14T20:45:00Z","status":"live","score":"2-1"}
		]`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter("sofascore", types.DomainScores, srv.URL, 2*time.Second)

	records, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.Score == nil || r.Score.String() != "2-1" {
		t.Errorf("score = %v, want 2-1", r.Score)
	}
	if !r.Live() {
		t.Error("record should be live")
	}
}

func TestHTTPAdapter_OddsStrings(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"home":"PSG","away":"Marseille","league":"Ligue 1",
			 "kickoff_time":"2026-03-14T20:00:00Z","status":"live",
			 "odds_home":"1.92","odds_draw":"3.60","odds_away":"4.00"}
		]`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter("oddsfeed", types.DomainOdds, srv.URL, 2*time.Second)

	records, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if records[0].Odds == nil {
		t.Fatal("odds missing")
	}
	if got := records[0].Odds.Home; got != 1.92 {
		t.Errorf("odds home = %v, want 1.92", got)
	}
	if records[0].Market != "1X2" {
		t.Errorf("market = %q, want 1X2 default", records[0].Market)
	}
}

func TestHTTPAdapter_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewHTTPAdapter("flaky", types.DomainScores, srv.URL, 2*time.Second)

	_, err := a.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != ErrHTTP {
		t.Errorf("kind = %v, want http", KindOf(err))
	}
}

func TestHTTPAdapter_MalformedPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Missing league and score — must fail the schema check.
		w.Write([]byte(`[{"home":"A","away":"B","kickoff_time":"2026-03-14T20:00:00Z"}]`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter("drifting", types.DomainScores, srv.URL, 2*time.Second)

	_, err := a.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected parse error")
	}
	if KindOf(err) != ErrParse {
		t.Errorf("kind = %v, want parse", KindOf(err))
	}
}

func TestHTTPAdapter_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	a := NewHTTPAdapter("slow", types.DomainScores, srv.URL, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := a.Fetch(ctx)
	if err == nil {
		t.Fatal("expected timeout")
	}
	if KindOf(err) != ErrTimeout {
		t.Errorf("kind = %v, want timeout", KindOf(err))
	}
}

func TestSimulatedAdapter_Deterministic(t *testing.T) {
	t.Parallel()

	a := NewSimulatedAdapter("sim", types.DomainOdds, 7)
	b := NewSimulatedAdapter("sim", types.DomainOdds, 7)

	ra, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	rb, err := b.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(ra) != len(rb) {
		t.Fatalf("lengths differ: %d vs %d", len(ra), len(rb))
	}
	for i := range ra {
		if *ra[i].Odds != *rb[i].Odds {
			t.Errorf("record %d: odds differ for same seed", i)
		}
	}
	if err := ValidateRecords(types.DomainOdds, ra); err != nil {
		t.Errorf("simulated payload fails schema check: %v", err)
	}
}
