package assessment

import "github.com/dukex/hireflow/pkg/models"

var payloadProperties = map[string]any{
	models.PayloadEntityID: map[string]any{
		"type":      "string",
		"minLength": 1,
	},
	models.PayloadScore: map[string]any{
		"type": "number",
	},
	models.PayloadAssessmentType: map[string]any{
		"type":      "string",
		"minLength": 1,
	},
	models.PayloadCandidateLevel: map[string]any{
		"type":      "string",
		"minLength": 1,
	},
	models.PayloadHoursUntilExpiry: map[string]any{
		"type": "number",
	},
	models.PayloadHoursSinceEvent: map[string]any{
		"type":    "number",
		"minimum": 0,
	},
}

// required lists the payload fields each trigger must carry to be accepted at ingest.
var required = map[models.TriggerKind][]string{
	models.TriggerAssessmentCompleted: {models.PayloadEntityID, models.PayloadScore},
	models.TriggerAssessmentStarted:   {models.PayloadEntityID},
	models.TriggerAssessmentExpired:   {models.PayloadEntityID},
	models.TriggerCandidateHired:      {models.PayloadEntityID},
	models.TriggerCandidateRejected:   {models.PayloadEntityID},
}

// PayloadSchema returns the JSON schema of the payload accepted for trigger.
func PayloadSchema(trigger models.TriggerKind) map[string]any {
	fields := required[trigger]

	requiredFields := make([]any, 0, len(fields))
	for _, field := range fields {
		requiredFields = append(requiredFields, field)
	}

	return map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"title":                string(trigger) + " payload",
		"type":                 "object",
		"properties":           payloadProperties,
		"required":             requiredFields,
		"additionalProperties": true,
	}
}
