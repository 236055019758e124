package intent

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"dpmeschat/internal/domain/models"
	"dpmeschat/internal/llm"
)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// ExtractYear returns the first four-digit year mentioned in the question,
// or nil when none is present.
func ExtractYear(question string) *string {
	match := yearPattern.FindString(question)
	if match == "" {
		return nil
	}
	return &match
}

// Classifier maps free-form questions onto the fixed intent set and pulls
// the reporting period and performance status out of them. Every method
// degrades instead of failing: a broken model call yields UNKNOWN or the
// default period, never an error.
type Classifier struct {
	llm    llm.Completer
	logger *slog.Logger
}

func NewClassifier(completer llm.Completer, logger *slog.Logger) *Classifier {
	return &Classifier{llm: completer, logger: logger}
}

// Classify returns the intent for a question. Unparseable or failed model
// output falls back to IntentUnknown.
func (c *Classifier) Classify(ctx context.Context, question string) models.Intent {
	out, err := c.llm.Complete(ctx, []models.Message{
		{Role: models.RoleSystem, Content: classifyPrompt},
		{Role: models.RoleUser, Content: question},
	})
	if err != nil {
		c.logger.Warn("intent classification failed", "error", err)
		return models.IntentUnknown
	}

	intent := models.ParseIntent(strings.ToUpper(strings.TrimSpace(out)))
	c.logger.Debug("question classified", "intent", intent)
	return intent
}

type periodPayload struct {
	Year    interface{} `json:"year"`
	Quarter string      `json:"quarter"`
}

// ExtractPeriod pulls the reporting year and normalized quarter out of a
// question. The model replies with raw JSON, sometimes wrapped in a code
// fence; anything that does not parse collapses to the annual default.
func (c *Classifier) ExtractPeriod(ctx context.Context, question string) models.ReportingPeriod {
	fallback := models.ReportingPeriod{Quarter: models.QuarterAnnual}

	out, err := c.llm.Complete(ctx, []models.Message{
		{Role: models.RoleSystem, Content: periodPrompt},
		{Role: models.RoleUser, Content: question},
	})
	if err != nil {
		c.logger.Warn("period extraction failed", "error", err)
		return fallback
	}

	clean := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(out, "```json", ""), "```", ""))

	var payload periodPayload
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		c.logger.Warn("period extraction returned malformed JSON", "error", err)
		return fallback
	}

	period := models.ReportingPeriod{
		Year:    coerceYear(payload.Year),
		Quarter: normalizeQuarter(payload.Quarter),
	}
	c.logger.Debug("period extracted", "year", period.Year, "quarter", period.Quarter)
	return period
}

// ExtractPerformance maps the question's wording onto one of the known
// performance status keys by scanning the model output for a key substring.
func (c *Classifier) ExtractPerformance(ctx context.Context, question string) models.PerformanceKey {
	out, err := c.llm.Complete(ctx, []models.Message{
		{Role: models.RoleSystem, Content: performancePrompt},
		{Role: models.RoleUser, Content: question},
	})
	if err != nil {
		c.logger.Warn("performance extraction failed", "error", err)
		return models.PerformanceNone
	}

	content := strings.ToLower(out)
	for _, key := range []models.PerformanceKey{
		models.PerformanceOnTrack,
		models.PerformanceInProgress,
		models.PerformanceWeak,
		models.PerformanceNoData,
	} {
		if strings.Contains(content, string(key)) {
			return key
		}
	}
	return models.PerformanceNone
}

// coerceYear tolerates the model returning the year as a string, a number,
// or JSON null.
func coerceYear(raw interface{}) *string {
	switch v := raw.(type) {
	case string:
		if v == "" || strings.EqualFold(v, "null") {
			return nil
		}
		return &v
	case float64:
		s := strconv.Itoa(int(v))
		return &s
	default:
		return nil
	}
}

func normalizeQuarter(q string) string {
	switch q {
	case models.QuarterQ1, models.QuarterQ2, models.QuarterQ3, models.QuarterAnnual:
		return q
	default:
		return models.QuarterAnnual
	}
}
