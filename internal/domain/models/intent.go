package models

// Intent is the closed classification of a question's informational goal.
// It drives which context-assembly strategy runs and which system-rule set
// conditions the completion call. Intents are recomputed per request and
// never persisted.
type Intent string

const (
	IntentTimeSeries          Intent = "TIME_SERIES"
	IntentMinistryScore       Intent = "MINISTRY_SCORE"
	IntentMinistryPerformance Intent = "MINISTRY_PERFORMANCE"
	IntentPolicyAreaScore     Intent = "POLICY_AREA_SCORE"
	IntentGoalScore           Intent = "GOAL_SCORE"
	IntentUnknown             Intent = "UNKNOWN"
)

var knownIntents = map[Intent]struct{}{
	IntentTimeSeries:          {},
	IntentMinistryScore:       {},
	IntentMinistryPerformance: {},
	IntentPolicyAreaScore:     {},
	IntentGoalScore:           {},
	IntentUnknown:             {},
}

// ParseIntent maps a raw classifier token onto the closed enumeration.
// Anything outside the enumeration maps to IntentUnknown; classification
// ambiguity is a recovered condition, never an error.
func ParseIntent(s string) Intent {
	if _, ok := knownIntents[Intent(s)]; ok {
		return Intent(s)
	}
	return IntentUnknown
}
