package models

import (
	"errors"
	"fmt"
	"math"
)

// Conditions is the conjunctive set of predicates a rule evaluates against an event payload.
// A nil or zero-valued field leaves that kind unconstrained.
type Conditions struct {
	Score           *ScoreRange    `json:"score,omitempty"`
	AssessmentTypes []string       `json:"assessment_types,omitempty"`
	CandidateLevels []string       `json:"candidate_levels,omitempty"`
	Elapsed         *TimeThreshold `json:"elapsed,omitempty"`
}

// ScoreRange matches scores in [Min, Max], both ends inclusive.
type ScoreRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// TimeThreshold matches when the payload's hour field is at least Hours.
type TimeThreshold struct {
	Field string  `json:"field,omitempty"`
	Hours float64 `json:"hours"`
}

// PayloadField returns the payload key read by the threshold, defaulting to hoursSinceEvent.
func (t TimeThreshold) PayloadField() string {
	if t.Field == "" {
		return PayloadHoursSinceEvent
	}

	return t.Field
}

// IsEmpty reports whether no condition kind is present, making the rule a catch-all.
func (c Conditions) IsEmpty() bool {
	return c.Score == nil &&
		len(c.AssessmentTypes) == 0 &&
		len(c.CandidateLevels) == 0 &&
		c.Elapsed == nil
}

// Validate checks the shape of every present condition.
func (c Conditions) Validate() error {
	var errs []error

	if c.Score != nil {
		switch {
		case math.IsNaN(c.Score.Min) || math.IsNaN(c.Score.Max):
			errs = append(errs, errors.New("score range bounds must be numbers"))
		case c.Score.Min > c.Score.Max:
			errs = append(errs, fmt.Errorf("score range min %v is greater than max %v", c.Score.Min, c.Score.Max))
		}
	}

	for _, v := range c.AssessmentTypes {
		if v == "" {
			errs = append(errs, errors.New("assessment types must not contain empty values"))

			break
		}
	}

	for _, v := range c.CandidateLevels {
		if v == "" {
			errs = append(errs, errors.New("candidate levels must not contain empty values"))

			break
		}
	}

	if c.Elapsed != nil {
		switch c.Elapsed.PayloadField() {
		case PayloadHoursSinceEvent, PayloadHoursUntilExpiry:
		default:
			errs = append(errs, fmt.Errorf("unknown time threshold field %q", c.Elapsed.Field))
		}

		if math.IsNaN(c.Elapsed.Hours) || c.Elapsed.Hours < 0 {
			errs = append(errs, errors.New("time threshold hours must be zero or positive"))
		}
	}

	return errors.Join(errs...)
}
