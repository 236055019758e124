package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"dpmeschat/internal/domain/models"
	"dpmeschat/internal/gateway"
)

// scoreDocBuilder serves the two thematic intents. Policy-area and goal
// detail documents share a shape, so one builder covers both; the intent
// only selects the metadata key and the gateway call.
type scoreDocBuilder struct {
	intent  models.Intent
	gateway StatisticsGateway
	logger  *slog.Logger
}

func (b *scoreDocBuilder) Build(ctx context.Context, fragments []models.Fragment, period models.ReportingPeriod, _ models.PerformanceKey) (models.ContextBundle, error) {
	bundle := models.ContextBundle{Intent: b.intent}

	id := firstMetadata(fragments, b.metadataKey())
	if id == "" {
		bundle.Text = noIndicatorFound
		return bundle, nil
	}

	doc, err := b.fetch(ctx, id)
	if err != nil {
		b.logger.Warn("score document fetch failed", "intent", b.intent, "id", id, "error", err)
		bundle.Text = noDataAvailable
		return bundle, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<h3>%s</h3>\n", doc.Name)
	writePeriodLine(&sb, period)
	fmt.Fprintf(&sb, "<p><b>Score:</b> %s</p>\n", doc.Score)
	writeKPITable(&sb, doc.KPIs)

	bundle.Text = sb.String()
	return bundle, nil
}

func (b *scoreDocBuilder) metadataKey() string {
	if b.intent == models.IntentGoalScore {
		return "goal_id"
	}
	return "policy_area_id"
}

func (b *scoreDocBuilder) fetch(ctx context.Context, id string) (*gateway.ScoreDoc, error) {
	if b.intent == models.IntentGoalScore {
		return b.gateway.GoalScore(ctx, id)
	}
	return b.gateway.PolicyAreaScore(ctx, id)
}
