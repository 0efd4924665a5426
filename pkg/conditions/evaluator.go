// Package conditions evaluates rule conditions against event payloads.
//
// Evaluation is pure: it reads the payload, never mutates it and performs no I/O.
// Every present condition kind must hold. A condition whose payload field is
// missing or has the wrong type does not hold.
package conditions

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/dukex/hireflow/pkg/models"
)

// Result is a match decision with the reason for the first failing condition.
type Result struct {
	Matched bool
	Reason  string
}

// Matches reports whether payload satisfies every condition.
func Matches(c models.Conditions, payload map[string]any) bool {
	return Evaluate(c, payload).Matched
}

// Evaluate is Matches with an explanation, used for debug logging.
func Evaluate(c models.Conditions, payload map[string]any) Result {
	if c.Score != nil {
		score, ok := number(payload, models.PayloadScore)
		if !ok {
			return miss("payload has no numeric %s", models.PayloadScore)
		}

		if score < c.Score.Min || score > c.Score.Max {
			return miss("score %v outside [%v, %v]", score, c.Score.Min, c.Score.Max)
		}
	}

	if r := member(payload, models.PayloadAssessmentType, c.AssessmentTypes); !r.Matched {
		return r
	}

	if r := member(payload, models.PayloadCandidateLevel, c.CandidateLevels); !r.Matched {
		return r
	}

	if c.Elapsed != nil {
		field := c.Elapsed.PayloadField()

		hours, ok := number(payload, field)
		if !ok {
			return miss("payload has no numeric %s", field)
		}

		if hours < c.Elapsed.Hours {
			return miss("%s %v below threshold %v", field, hours, c.Elapsed.Hours)
		}
	}

	return Result{Matched: true}
}

// member treats an empty set as unconstrained.
func member(payload map[string]any, field string, set []string) Result {
	if len(set) == 0 {
		return Result{Matched: true}
	}

	value, ok := payload[field].(string)
	if !ok {
		return miss("payload has no string %s", field)
	}

	if !slices.Contains(set, value) {
		return miss("%s %q not in %v", field, value, set)
	}

	return Result{Matched: true}
}

func miss(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// number reads a numeric payload field. Strings, booleans and NaN are not numbers.
func number(payload map[string]any, field string) (float64, bool) {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return 0, false
	}

	var value float64

	switch v := raw.(type) {
	case float64:
		value = v
	case float32:
		value = float64(v)
	case int:
		value = float64(v)
	case int8:
		value = float64(v)
	case int16:
		value = float64(v)
	case int32:
		value = float64(v)
	case int64:
		value = float64(v)
	case uint:
		value = float64(v)
	case uint8:
		value = float64(v)
	case uint16:
		value = float64(v)
	case uint32:
		value = float64(v)
	case uint64:
		value = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}

		value = f
	default:
		return 0, false
	}

	if math.IsNaN(value) {
		return 0, false
	}

	return value, true
}
