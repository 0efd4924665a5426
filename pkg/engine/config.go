package engine

import (
	"time"

	"github.com/dukex/hireflow/pkg/actions"
	"github.com/dukex/hireflow/pkg/models"
)

// Config holds the knobs of the rule engine and its action executor.
type Config struct {
	Actions actions.Config

	// Workers bounds how many events are processed at the same time.
	Workers int

	// MaxTriggerDepth caps chains of rule-driven events. Deeper events are dropped.
	MaxTriggerDepth int

	// StatusTriggers maps statuses applied by update_status to the trigger they raise.
	StatusTriggers map[string]models.TriggerKind

	// LockTTL must outlive one rule execution including retries.
	LockTTL time.Duration
	// LockWait is how long a rule waits for a key held by another delivery before failing.
	LockWait time.Duration
	LockPoll time.Duration

	// StaleAfter is the age after which a pending execution is assumed abandoned.
	StaleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{
		Actions:         actions.DefaultConfig(),
		Workers:         8,
		MaxTriggerDepth: 5,
		StatusTriggers: map[string]models.TriggerKind{
			"hired":    models.TriggerCandidateHired,
			"rejected": models.TriggerCandidateRejected,
		},
		LockTTL:    5 * time.Minute,
		LockWait:   30 * time.Second,
		LockPoll:   100 * time.Millisecond,
		StaleAfter: 10 * time.Minute,
	}
}
