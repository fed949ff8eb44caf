// SPDX-License-Identifier: AGPL-3.0-or-later

package examiner

// JSON Schemas handed to the delegating backends to constrain their output.
// Kept as plain maps so they marshal deterministically through encoding/json.

func examSchema() map[string]any {
	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"title":                "gitexam.Exam",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"protocol_version", "questions"},
		"properties": map[string]any{
			"protocol_version": map[string]any{"type": "string"},
			"questions": map[string]any{
				"type":     "array",
				"minItems": 4,
				"maxItems": 12,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					// Schema-constrained backends require `required` to list
					// every property, so `choices` is required but nullable
					// for open-ended questions.
					"required": []string{"id", "category", "prompt", "choices"},
					"properties": map[string]any{
						"id":       map[string]any{"type": "string"},
						"category": map[string]any{"type": "string"},
						"prompt":   map[string]any{"type": "string"},
						"choices": map[string]any{
							"type":     []string{"array", "null"},
							"minItems": 2,
							"maxItems": 6,
							"items":    map[string]any{"type": "string"},
						},
					},
				},
			},
		},
	}
}

func scoreSchema() map[string]any {
	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"title":                "gitexam.Score",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"total_score", "per_question", "hallucination_flags"},
		"properties": map[string]any{
			"total_score": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"hallucination_flags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"per_question": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"id", "category", "score", "completeness", "specificity", "notes"},
					"properties": map[string]any{
						"id":           map[string]any{"type": "string"},
						"category":     map[string]any{"type": "string"},
						"score":        map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
						"completeness": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
						"specificity":  map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
						"notes":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
				},
			},
		},
	}
}
