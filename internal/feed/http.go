package feed

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"matchpulse/pkg/types"
)

// wireRecord is the JSON shape upstream snapshot endpoints return. Numeric
// odds arrive as strings on several providers; they are parsed through
// decimal to avoid float artifacts before the triple is assembled.
type wireRecord struct {
	Home     string `json:"home"`
	Away     string `json:"away"`
	League   string `json:"league"`
	Kickoff  string `json:"kickoff_time"`
	Status   string `json:"status"`
	Market   string `json:"market"`
	Score    string `json:"score"`     // "2-1", scores domain
	OddsHome string `json:"odds_home"` // decimal strings, odds domain
	OddsDraw string `json:"odds_draw"`
	OddsAway string `json:"odds_away"`
}

// HTTPAdapter fetches snapshots from a JSON endpoint. One adapter per
// configured feed; the resty client carries the base URL and a hard timeout
// so a hanging upstream turns into a Timeout failure, not a stuck cycle.
type HTTPAdapter struct {
	alias  string
	domain types.Domain
	client *resty.Client
}

// NewHTTPAdapter builds an adapter for one configured feed endpoint.
func NewHTTPAdapter(alias string, domain types.Domain, url string, timeout time.Duration) *HTTPAdapter {
	client := resty.New().
		SetBaseURL(url).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &HTTPAdapter{
		alias:  alias,
		domain: domain,
		client: client,
	}
}

func (a *HTTPAdapter) Alias() string        { return a.alias }
func (a *HTTPAdapter) Domain() types.Domain { return a.domain }

// Fetch performs one snapshot request. All failure modes collapse into the
// FetchError taxonomy; the caller reports the outcome to the registry and
// moves on.
func (a *HTTPAdapter) Fetch(ctx context.Context) ([]types.SnapshotRecord, error) {
	var wire []wireRecord
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&wire).
		Get("")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &FetchError{Kind: ErrTimeout, Err: err}
		}
		return nil, &FetchError{Kind: ErrHTTP, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &FetchError{Kind: ErrHTTP, Status: resp.StatusCode()}
	}

	records := make([]types.SnapshotRecord, 0, len(wire))
	for _, w := range wire {
		rec, err := a.mapRecord(w)
		if err != nil {
			return nil, &FetchError{Kind: ErrParse, Err: err}
		}
		records = append(records, rec)
	}

	if err := ValidateRecords(a.domain, records); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *HTTPAdapter) mapRecord(w wireRecord) (types.SnapshotRecord, error) {
	rec := types.SnapshotRecord{
		Home:   w.Home,
		Away:   w.Away,
		League: w.League,
		Status: w.Status,
		Market: w.Market,
	}
	if w.Kickoff != "" {
		kickoff, err := time.Parse(time.RFC3339, w.Kickoff)
		if err != nil {
			return types.SnapshotRecord{}, err
		}
		rec.Kickoff = kickoff
	}

	switch a.domain {
	case types.DomainScores:
		if w.Score != "" {
			score, err := types.ParseScore(w.Score)
			if err != nil {
				return types.SnapshotRecord{}, err
			}
			rec.Score = &score
		}
	case types.DomainOdds:
		if w.OddsHome != "" || w.OddsDraw != "" || w.OddsAway != "" {
			triple, err := parseOdds(w.OddsHome, w.OddsDraw, w.OddsAway)
			if err != nil {
				return types.SnapshotRecord{}, err
			}
			rec.Odds = &triple
		}
		if rec.Market == "" {
			rec.Market = "1X2"
		}
	}
	return rec, nil
}

func parseOdds(home, draw, away string) (types.OddsTriple, error) {
	var triple types.OddsTriple
	for i, raw := range []string{home, draw, away} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return types.OddsTriple{}, err
		}
		v := d.InexactFloat64()
		switch i {
		case 0:
			triple.Home = v
		case 1:
			triple.Draw = v
		case 2:
			triple.Away = v
		}
	}
	return triple, nil
}
