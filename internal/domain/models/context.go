package models

// Fragment is one retrieved unit of semantically-relevant text plus its
// structured metadata. The metadata shape is not enforced beyond
// string-to-string; each assembler reads the keys it understands.
type Fragment struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// ContextBundle is the single formatted grounding text handed to the
// completion call, plus the intent used to select system instructions.
type ContextBundle struct {
	Text   string `json:"text"`
	Intent Intent `json:"intent"`
}

// ReportingPeriod is a normalized {year, quarter} pair extracted from the
// question. Quarter uses the DPMES reporting vocabulary; Year is nil when
// the question names no year (meaning "all available").
type ReportingPeriod struct {
	Year    *string `json:"year"`
	Quarter string  `json:"quarter"`
}

// Quarter vocabulary for ReportingPeriod.
const (
	QuarterQ1     = "3month"
	QuarterQ2     = "6month"
	QuarterQ3     = "9month"
	QuarterAnnual = "12month"
)

// PerformanceKey is the normalized performance-sentiment filter for
// MINISTRY_PERFORMANCE questions. Empty means "no specific status asked".
type PerformanceKey string

const (
	PerformanceOnTrack    PerformanceKey = "on_track"
	PerformanceInProgress PerformanceKey = "in_progress"
	PerformanceWeak       PerformanceKey = "weak_performance"
	PerformanceNoData     PerformanceKey = "no_data"
	PerformanceNone       PerformanceKey = ""
)

// Message is one role-tagged prompt message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
