package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"dpmeschat/internal/domain/models"
	"dpmeschat/internal/gateway"
)

// StatisticsGateway is the slice of the statistics client the assemblers
// consume. Every method can fail; builders degrade to placeholder text
// instead of propagating gateway errors.
type StatisticsGateway interface {
	AnnualValue(ctx context.Context, code, year string) (*gateway.IndicatorValues, error)
	MinistryScore(ctx context.Context, ministryID, year, quarter string) (*gateway.MinistryScoreDoc, error)
	MinistryPerformance(ctx context.Context, ministryID, year, quarter, status string) (*gateway.MinistryPerformanceDoc, error)
	PolicyAreaScore(ctx context.Context, policyAreaID string) (*gateway.ScoreDoc, error)
	GoalScore(ctx context.Context, goalID string) (*gateway.ScoreDoc, error)
}

// Placeholder and fallback strings rendered into the context. The model is
// instructed to acknowledge missing data rather than invent it, so these
// must stay recognizable.
const (
	noIndicatorFound = "No relevant indicator found."
	noDataAvailable  = "<p>Data not available</p>"
	noHistory        = "<p>No historical data available</p>"
	unknownContext   = "No indicator data is required for this question."
)

// fragmentSeparator joins per-indicator sections in the assembled context.
const fragmentSeparator = "\n<hr/>\n"

// Builder turns retrieval output plus extracted parameters into the single
// grounding text for one intent.
type Builder interface {
	Build(ctx context.Context, fragments []models.Fragment, period models.ReportingPeriod, perf models.PerformanceKey) (models.ContextBundle, error)
}

// Assembler owns one builder per intent and dispatches on the classified
// intent. The zero intent set is closed, so For never fails.
type Assembler struct {
	gateway StatisticsGateway
	logger  *slog.Logger
}

func NewAssembler(gw StatisticsGateway, logger *slog.Logger) *Assembler {
	return &Assembler{gateway: gw, logger: logger}
}

// Build dispatches to the intent's builder in one call.
func (a *Assembler) Build(ctx context.Context, intent models.Intent, fragments []models.Fragment, period models.ReportingPeriod, perf models.PerformanceKey) (models.ContextBundle, error) {
	return a.For(intent).Build(ctx, fragments, period, perf)
}

// For returns the builder for an intent. Unrecognized values behave as
// UNKNOWN.
func (a *Assembler) For(intent models.Intent) Builder {
	switch intent {
	case models.IntentTimeSeries:
		return &timeSeriesBuilder{gateway: a.gateway, logger: a.logger}
	case models.IntentMinistryScore:
		return &ministryScoreBuilder{gateway: a.gateway, logger: a.logger}
	case models.IntentMinistryPerformance:
		return &ministryPerformanceBuilder{gateway: a.gateway, logger: a.logger}
	case models.IntentPolicyAreaScore:
		return &scoreDocBuilder{intent: models.IntentPolicyAreaScore, gateway: a.gateway, logger: a.logger}
	case models.IntentGoalScore:
		return &scoreDocBuilder{intent: models.IntentGoalScore, gateway: a.gateway, logger: a.logger}
	default:
		return unknownBuilder{}
	}
}

// unknownBuilder serves greetings and off-topic questions. No retrieval and
// no gateway traffic; the system rules handle the reply.
type unknownBuilder struct{}

func (unknownBuilder) Build(_ context.Context, _ []models.Fragment, _ models.ReportingPeriod, _ models.PerformanceKey) (models.ContextBundle, error) {
	return models.ContextBundle{Text: unknownContext, Intent: models.IntentUnknown}, nil
}

// firstMetadata returns the first non-empty value for key across fragments,
// preserving retrieval order.
func firstMetadata(fragments []models.Fragment, key string) string {
	for _, f := range fragments {
		if v := f.Metadata[key]; v != "" {
			return v
		}
	}
	return ""
}

func yearParam(period models.ReportingPeriod) string {
	if period.Year == nil {
		return ""
	}
	return *period.Year
}

func writeKPITable(b *strings.Builder, kpis []gateway.KPI) {
	if len(kpis) == 0 {
		b.WriteString(noDataAvailable)
		return
	}
	b.WriteString(`<table><thead><tr><th>Indicator</th><th>Score</th><th>Unit</th><th>Status</th></tr></thead>`)
	for _, k := range kpis {
		fmt.Fprintf(b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>", k.Name, k.Score, k.Unit, k.Status)
	}
	b.WriteString("</table>")
}

func writePeriodLine(b *strings.Builder, period models.ReportingPeriod) {
	if period.Year != nil {
		fmt.Fprintf(b, "<p><b>Reporting Period:</b> %s %s</p>\n", *period.Year, period.Quarter)
		return
	}
	fmt.Fprintf(b, "<p><b>Reporting Period:</b> %s</p>\n", period.Quarter)
}
