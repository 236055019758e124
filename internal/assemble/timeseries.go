package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"dpmeschat/internal/domain/models"
	"dpmeschat/internal/gateway"
)

// metadataKeys, in render order. Missing keys render as empty values so the
// block shape stays stable for the model.
var metadataKeys = []struct {
	key   string
	label string
}{
	{"name", "Name"},
	{"code", "Code"},
	{"topic", "Topic"},
	{"category", "Category"},
	{"unit", "Unit"},
	{"source", "Source"},
	{"kpi_type", "KPI Type"},
	{"parent", "Parent"},
	{"version", "Version"},
}

// timeSeriesBuilder renders one section per retrieved indicator: the chunk
// text, an indicator metadata block, and the recorded values fetched from
// the time-series service.
type timeSeriesBuilder struct {
	gateway StatisticsGateway
	logger  *slog.Logger
}

func (b *timeSeriesBuilder) Build(ctx context.Context, fragments []models.Fragment, period models.ReportingPeriod, _ models.PerformanceKey) (models.ContextBundle, error) {
	if len(fragments) == 0 {
		return models.ContextBundle{Text: noIndicatorFound, Intent: models.IntentTimeSeries}, nil
	}

	sections := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		var sb strings.Builder
		sb.WriteString(frag.Text)
		sb.WriteString("\n\n")
		writeMetadataBlock(&sb, frag)
		sb.WriteString("\n\n")
		sb.WriteString(b.historicalSection(ctx, frag, period))
		sections = append(sections, sb.String())
	}

	return models.ContextBundle{
		Text:   strings.Join(sections, fragmentSeparator),
		Intent: models.IntentTimeSeries,
	}, nil
}

func writeMetadataBlock(b *strings.Builder, frag models.Fragment) {
	b.WriteString("<h3>Indicator Metadata</h3>\n")
	for _, mk := range metadataKeys {
		fmt.Fprintf(b, "<p><b>%s:</b> %s</p>\n", mk.label, frag.Metadata[mk.key])
	}
}

// historicalSection fetches and formats the indicator's recorded values.
// Any gateway failure collapses to the not-available placeholder for this
// fragment only.
func (b *timeSeriesBuilder) historicalSection(ctx context.Context, frag models.Fragment, period models.ReportingPeriod) string {
	code := frag.Metadata["code"]
	if code == "" {
		return noDataAvailable
	}

	doc, err := b.gateway.AnnualValue(ctx, code, yearParam(period))
	if err != nil {
		b.logger.Warn("time series fetch failed", "code", code, "error", err)
		return noDataAvailable
	}

	return formatTimeSeries(doc, yearParam(period), frag.Metadata["unit"])
}

func formatTimeSeries(doc *gateway.IndicatorValues, year, unit string) string {
	if doc == nil {
		return noDataAvailable
	}

	if doc.TimeSeries == nil {
		if doc.Value == "" {
			return noDataAvailable
		}
		if year == "" {
			return fmt.Sprintf("<p>%s %s</p>", doc.Value, unit)
		}
		return fmt.Sprintf("<p>%s: %s %s</p>", year, doc.Value, unit)
	}

	var sb strings.Builder
	writeFrequency(&sb, "Annual Data", doc.TimeSeries.Annual)
	writeFrequency(&sb, "Quarterly Data", doc.TimeSeries.Quarter)
	writeFrequency(&sb, "Monthly Data", doc.TimeSeries.Month)

	if sb.Len() == 0 {
		return noHistory
	}
	return sb.String()
}

func writeFrequency(b *strings.Builder, label string, items []gateway.Datum) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "<h4>%s</h4>", label)
	for _, item := range items {
		fmt.Fprintf(b, "<p>%s</p>", item)
	}
}
