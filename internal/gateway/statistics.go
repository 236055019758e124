package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Datum is a numeric or string value as published by the statistics APIs.
// The upstream services are not consistent about types: the same field can
// be a JSON number in one document and a quoted string in the next. Datum
// normalizes both to a string.
type Datum string

func (d *Datum) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*d = Datum(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("datum must be string or number, got %s", b)
	}
	*d = Datum(n.String())
	return nil
}

func (d Datum) String() string { return string(d) }

// TimeSeries groups an indicator's recorded entries by reporting frequency.
// Each entry is pre-rendered text from the upstream service, for example
// "2015: 12.4".
type TimeSeries struct {
	Annual  []Datum `json:"annual"`
	Quarter []Datum `json:"quarter"`
	Month   []Datum `json:"month"`
}

// Empty reports whether no frequency holds any entries.
func (ts *TimeSeries) Empty() bool {
	return len(ts.Annual) == 0 && len(ts.Quarter) == 0 && len(ts.Month) == 0
}

// IndicatorValues is the annual-value document for one indicator and year.
// Flat documents carry only Value; richer documents nest frequency buckets
// under TimeSeries. The two shapes render differently downstream.
type IndicatorValues struct {
	Value      Datum       `json:"value"`
	TimeSeries *TimeSeries `json:"time_series"`
}

// PolicyAreaScore is one policy-area row inside a ministry score document.
type PolicyAreaScore struct {
	Name   string `json:"name"`
	Score  Datum  `json:"score"`
	Color  string `json:"color"`
	Status string `json:"status"`
}

// MinistryScoreDoc is the ministry-detail document from the DPMES hub.
type MinistryScoreDoc struct {
	Ministry    string            `json:"ministry"`
	Overall     Datum             `json:"overall_score"`
	Color       string            `json:"color"`
	PolicyAreas []PolicyAreaScore `json:"policy_areas"`
}

// KPI is one indicator row in a performance or score document.
type KPI struct {
	Name   string `json:"name"`
	Score  Datum  `json:"score"`
	Unit   string `json:"unit"`
	Status string `json:"status"`
	Color  string `json:"color"`
}

// MinistryPerformanceDoc lists a ministry's indicators filtered by
// performance status.
type MinistryPerformanceDoc struct {
	Ministry string `json:"ministry"`
	KPIs     []KPI  `json:"kpis"`
}

// ScoreDoc is the shared shape of policy-area and goal detail documents.
type ScoreDoc struct {
	Name  string `json:"name"`
	Score Datum  `json:"score"`
	Color string `json:"color"`
	KPIs  []KPI  `json:"kpis"`
}

// Client fetches statistics documents from the time-series service and the
// DPMES digital hub. Both are plain JSON-over-HTTP services; any non-2xx
// status is an error and callers decide how to degrade.
type Client struct {
	timeSeriesURL string
	dpmesURL      string
	http          *http.Client
	logger        *slog.Logger
}

func NewClient(timeSeriesURL, dpmesURL string, logger *slog.Logger) *Client {
	return &Client{
		timeSeriesURL: timeSeriesURL,
		dpmesURL:      dpmesURL,
		http:          &http.Client{Timeout: 10 * time.Second},
		logger:        logger,
	}
}

// AnnualValue fetches the values recorded for an indicator code in a year.
func (c *Client) AnnualValue(ctx context.Context, code, year string) (*IndicatorValues, error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("year", year)

	var doc IndicatorValues
	if err := c.getJSON(ctx, c.timeSeriesURL+"/api/mobile/annual_value/?"+q.Encode(), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// MinistryScore fetches a ministry's composite score for a reporting period.
func (c *Client) MinistryScore(ctx context.Context, ministryID, year, quarter string) (*MinistryScoreDoc, error) {
	q := url.Values{}
	q.Set("year", year)
	q.Set("quarter", quarter)

	var doc MinistryScoreDoc
	u := fmt.Sprintf("%s/api/digital-hub/ministry-detail/%s?%s", c.dpmesURL, url.PathEscape(ministryID), q.Encode())
	if err := c.getJSON(ctx, u, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// MinistryPerformance fetches a ministry's indicators, optionally filtered
// to one performance status.
func (c *Client) MinistryPerformance(ctx context.Context, ministryID, year, quarter, status string) (*MinistryPerformanceDoc, error) {
	q := url.Values{}
	q.Set("year", year)
	q.Set("quarter", quarter)
	if status != "" {
		q.Set("status", status)
	}

	var doc MinistryPerformanceDoc
	u := fmt.Sprintf("%s/api/digital-hub/ministry-performance/%s?%s", c.dpmesURL, url.PathEscape(ministryID), q.Encode())
	if err := c.getJSON(ctx, u, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// PolicyAreaScore fetches the detail document for one policy area.
func (c *Client) PolicyAreaScore(ctx context.Context, policyAreaID string) (*ScoreDoc, error) {
	var doc ScoreDoc
	u := fmt.Sprintf("%s/api/digital-hub/policy-area-detail/%s/", c.dpmesURL, url.PathEscape(policyAreaID))
	if err := c.getJSON(ctx, u, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GoalScore fetches the detail document for one goal.
func (c *Client) GoalScore(ctx context.Context, goalID string) (*ScoreDoc, error) {
	var doc ScoreDoc
	u := fmt.Sprintf("%s/api/digital-hub/goal-detail/%s", c.dpmesURL, url.PathEscape(goalID))
	if err := c.getJSON(ctx, u, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("statistics request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.logger.Warn("statistics request failed", "url", rawURL, "status", resp.StatusCode)
		return fmt.Errorf("statistics request: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode statistics response: %w", err)
	}
	return nil
}
