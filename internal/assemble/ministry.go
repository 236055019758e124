package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"dpmeschat/internal/domain/models"
)

// ministryScoreBuilder grounds the answer in the ministry's composite score
// document: overall score first, then the policy-area breakdown.
type ministryScoreBuilder struct {
	gateway StatisticsGateway
	logger  *slog.Logger
}

func (b *ministryScoreBuilder) Build(ctx context.Context, fragments []models.Fragment, period models.ReportingPeriod, _ models.PerformanceKey) (models.ContextBundle, error) {
	bundle := models.ContextBundle{Intent: models.IntentMinistryScore}

	ministryID := firstMetadata(fragments, "ministry_id")
	if ministryID == "" {
		bundle.Text = noIndicatorFound
		return bundle, nil
	}

	doc, err := b.gateway.MinistryScore(ctx, ministryID, yearParam(period), period.Quarter)
	if err != nil {
		b.logger.Warn("ministry score fetch failed", "ministry_id", ministryID, "error", err)
		bundle.Text = noDataAvailable
		return bundle, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<h3>%s</h3>\n", doc.Ministry)
	writePeriodLine(&sb, period)
	fmt.Fprintf(&sb, "<p><b>Overall Ministry Score:</b> %s</p>\n", doc.Overall)

	sb.WriteString("<h4>Policy Area Breakdown</h4>\n")
	if len(doc.PolicyAreas) == 0 {
		sb.WriteString(noDataAvailable)
	} else {
		sb.WriteString(`<table><thead><tr><th>Policy Area</th><th>Score</th><th>Status</th></tr></thead>`)
		for _, pa := range doc.PolicyAreas {
			fmt.Fprintf(&sb, "<tr><td>%s</td><td>%s</td><td>%s</td></tr>", pa.Name, pa.Score, pa.Status)
		}
		sb.WriteString("</table>")
	}

	bundle.Text = sb.String()
	return bundle, nil
}

// ministryPerformanceBuilder grounds filtered-list questions: which of a
// ministry's indicators sit in a given performance status.
type ministryPerformanceBuilder struct {
	gateway StatisticsGateway
	logger  *slog.Logger
}

func (b *ministryPerformanceBuilder) Build(ctx context.Context, fragments []models.Fragment, period models.ReportingPeriod, perf models.PerformanceKey) (models.ContextBundle, error) {
	bundle := models.ContextBundle{Intent: models.IntentMinistryPerformance}

	ministryID := firstMetadata(fragments, "ministry_id")
	if ministryID == "" {
		bundle.Text = noIndicatorFound
		return bundle, nil
	}

	doc, err := b.gateway.MinistryPerformance(ctx, ministryID, yearParam(period), period.Quarter, string(perf))
	if err != nil {
		b.logger.Warn("ministry performance fetch failed", "ministry_id", ministryID, "status", perf, "error", err)
		bundle.Text = noDataAvailable
		return bundle, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<h3>%s</h3>\n", doc.Ministry)
	writePeriodLine(&sb, period)
	if perf != models.PerformanceNone {
		fmt.Fprintf(&sb, "<p><b>Status Filter:</b> %s</p>\n", perf)
	}
	writeKPITable(&sb, doc.KPIs)

	bundle.Text = sb.String()
	return bundle, nil
}
