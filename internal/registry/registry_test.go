package registry

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"matchpulse/internal/feed"
	"matchpulse/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func twoFeeds() []Feed {
	return []Feed{
		{Alias: "sofascore", Domain: types.DomainScores, Priority: 1, Active: true},
		{Alias: "flashscore", Domain: types.DomainScores, Priority: 2, Active: true},
	}
}

func probeErr() error {
	return &feed.FetchError{Kind: feed.ErrTimeout, Err: errors.New("deadline")}
}

func TestAcquire_PriorityOrder(t *testing.T) {
	t.Parallel()
	r := New(twoFeeds(), 3, discardLogger())

	alias, err := r.Acquire(types.DomainScores)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if alias != "sofascore" {
		t.Errorf("active = %q, want sofascore (priority 1)", alias)
	}
}

func TestFallback_Deterministic(t *testing.T) {
	t.Parallel()
	r := New(twoFeeds(), 3, discardLogger())

	// 3 consecutive failures take sofascore Down.
	for i := 0; i < 3; i++ {
		if err := r.Report("sofascore", probeErr()); err != nil {
			t.Fatalf("Report: %v", err)
		}
	}

	alias, err := r.Acquire(types.DomainScores)
	if err != nil {
		t.Fatalf("Acquire after fallback: %v", err)
	}
	if alias != "flashscore" {
		t.Errorf("active = %q, want flashscore", alias)
	}

	// Exactly one switch event for the Down transition.
	var events []types.RouterSwitch
	for {
		select {
		case evt := <-r.Switches():
			events = append(events, evt)
			continue
		default:
		}
		break
	}
	if len(events) != 1 {
		t.Fatalf("got %d switch events, want 1", len(events))
	}
	if events[0].From != "sofascore" || events[0].To != "flashscore" {
		t.Errorf("switch %s→%s, want sofascore→flashscore", events[0].From, events[0].To)
	}
}

func TestAcquire_HealthyOutranksDegraded(t *testing.T) {
	t.Parallel()
	r := New(twoFeeds(), 3, discardLogger())

	// One failure degrades the primary; the healthy backup takes over
	// immediately even though the primary is not Down.
	_ = r.Report("sofascore", probeErr())

	alias, err := r.Acquire(types.DomainScores)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if alias != "flashscore" {
		t.Errorf("active = %q, want healthy flashscore over degraded sofascore", alias)
	}

	// No Down boundary was crossed, so no switch event.
	select {
	case evt := <-r.Switches():
		t.Errorf("unexpected switch event %+v", evt)
	default:
	}

	// A single success puts the primary straight back in front.
	_ = r.Report("sofascore", nil)
	if alias, _ = r.Acquire(types.DomainScores); alias != "sofascore" {
		t.Errorf("active = %q, want sofascore after recovery", alias)
	}
}

func TestDegradedServesBeforeUnavailable(t *testing.T) {
	t.Parallel()
	r := New(twoFeeds(), 3, discardLogger())

	// One failure each: both Degraded, none Down.
	_ = r.Report("sofascore", probeErr())
	_ = r.Report("flashscore", probeErr())

	alias, err := r.Acquire(types.DomainScores)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if alias != "sofascore" {
		t.Errorf("active = %q, want highest-priority degraded feed", alias)
	}
}

func TestDomainUnavailable(t *testing.T) {
	t.Parallel()
	r := New(twoFeeds(), 2, discardLogger())

	for i := 0; i < 2; i++ {
		_ = r.Report("sofascore", probeErr())
		_ = r.Report("flashscore", probeErr())
	}

	if _, err := r.Acquire(types.DomainScores); !errors.Is(err, ErrDomainUnavailable) {
		t.Errorf("err = %v, want ErrDomainUnavailable", err)
	}
}

func TestRecoveryRestoresHealthy(t *testing.T) {
	t.Parallel()
	r := New(twoFeeds(), 2, discardLogger())

	_ = r.Report("sofascore", probeErr())
	_ = r.Report("sofascore", probeErr()) // Down, event 1
	_ = r.Report("sofascore", nil)        // back Healthy, event 2

	alias, _ := r.Acquire(types.DomainScores)
	if alias != "sofascore" {
		t.Errorf("active = %q, want sofascore after recovery", alias)
	}

	count := 0
	for {
		select {
		case <-r.Switches():
			count++
			continue
		default:
		}
		break
	}
	if count != 2 {
		t.Errorf("got %d switch events, want 2 (down + recovery)", count)
	}

	for _, st := range r.Snapshot() {
		if st.Alias == "sofascore" {
			if st.State != types.HealthHealthy || st.ConsecutiveFail != 0 {
				t.Errorf("snapshot after recovery = %+v", st)
			}
			if st.LastSuccess.IsZero() {
				t.Error("last success not recorded")
			}
		}
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	t.Parallel()
	r := New(twoFeeds(), 3, discardLogger())

	// Failure streak broken by a success never reaches Down.
	_ = r.Report("sofascore", probeErr())
	_ = r.Report("sofascore", probeErr())
	_ = r.Report("sofascore", nil)
	_ = r.Report("sofascore", probeErr())
	_ = r.Report("sofascore", probeErr())

	for _, st := range r.Snapshot() {
		if st.Alias != "sofascore" {
			continue
		}
		if st.State == types.HealthDown {
			t.Error("interrupted streak must not take feed down")
		}
		if st.ConsecutiveFail != 2 {
			t.Errorf("consecutive failures = %d, want 2", st.ConsecutiveFail)
		}
	}
}

func TestToggle(t *testing.T) {
	t.Parallel()
	r := New(twoFeeds(), 3, discardLogger())

	if err := r.Toggle("sofascore", false); err != nil {
		t.Fatalf("Toggle: %v", err)
	}

	alias, err := r.Acquire(types.DomainScores)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if alias != "flashscore" {
		t.Errorf("active = %q, want flashscore after disabling sofascore", alias)
	}

	select {
	case evt := <-r.Switches():
		if evt.From != "sofascore" || evt.To != "flashscore" {
			t.Errorf("toggle switch %s→%s", evt.From, evt.To)
		}
	default:
		t.Error("expected a switch event for disabling the active feed")
	}

	if err := r.Toggle("nobody", true); !errors.Is(err, ErrUnknownFeed) {
		t.Errorf("err = %v, want ErrUnknownFeed", err)
	}
}

func TestReportUnknownFeed(t *testing.T) {
	t.Parallel()
	r := New(twoFeeds(), 3, discardLogger())

	if err := r.Report("nobody", nil); !errors.Is(err, ErrUnknownFeed) {
		t.Errorf("err = %v, want ErrUnknownFeed", err)
	}
}
