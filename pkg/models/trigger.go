package models

// TriggerKind is the closed set of assessment lifecycle events a rule can listen for.
type TriggerKind string

const (
	TriggerAssessmentCompleted TriggerKind = "assessment_completed"
	TriggerAssessmentStarted   TriggerKind = "assessment_started"
	TriggerAssessmentExpired   TriggerKind = "assessment_expired"
	TriggerCandidateHired      TriggerKind = "candidate_hired"
	TriggerCandidateRejected   TriggerKind = "candidate_rejected"
)

// TriggerKinds returns every supported trigger kind in a stable order.
func TriggerKinds() []TriggerKind {
	return []TriggerKind{
		TriggerAssessmentCompleted,
		TriggerAssessmentStarted,
		TriggerAssessmentExpired,
		TriggerCandidateHired,
		TriggerCandidateRejected,
	}
}

// Valid reports whether t belongs to the closed trigger set.
func (t TriggerKind) Valid() bool {
	switch t {
	case TriggerAssessmentCompleted,
		TriggerAssessmentStarted,
		TriggerAssessmentExpired,
		TriggerCandidateHired,
		TriggerCandidateRejected:
		return true
	default:
		return false
	}
}

func (t TriggerKind) String() string {
	return string(t)
}

// Priority orders rules that match the same event.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank maps a priority to a sortable number, higher runs first.
// Unknown priorities rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Payload field names read by conditions and the idempotency key.
const (
	PayloadScore            = "score"
	PayloadAssessmentType   = "assessmentType"
	PayloadCandidateLevel   = "candidateLevel"
	PayloadHoursUntilExpiry = "hoursUntilExpiry"
	PayloadHoursSinceEvent  = "hoursSinceEvent"
	PayloadEntityID         = "entityId"
)
