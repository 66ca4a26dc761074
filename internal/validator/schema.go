package validator

// isoDateOrEmpty matches YYYY-MM-DD or the empty string (field absent in
// the document).
const isoDateOrEmpty = `^$|^\d{4}-\d{2}-\d{2}$`

// topLevelKeys are the only keys the model may emit at the root.
var topLevelKeys = map[string]struct{}{
	"doc":       {},
	"extracted": {},
	"checks":    {},
	"overall":   {},
}

// ResponseSchema builds the JSON schema the model's verdict must satisfy.
// checkIDs constrains checks[].id to the active rule set so the model
// cannot invent checks; with no rule set any id is accepted.
func ResponseSchema(checkIDs []string) map[string]any {
	idSchema := map[string]any{"type": "string", "minLength": 1}
	if len(checkIDs) > 0 {
		ids := make([]any, len(checkIDs))
		for i, id := range checkIDs {
			ids[i] = id
		}
		idSchema = map[string]any{"type": "string", "enum": ids}
	}

	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"doc", "extracted", "checks", "overall"},
		"properties": map[string]any{
			"doc": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []any{"docType"},
				"properties": map[string]any{
					"docType": map[string]any{"type": "string", "minLength": 1},
				},
			},
			"extracted": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"issuedAt":   map[string]any{"type": "string", "pattern": isoDateOrEmpty},
					"expiresAt":  map[string]any{"type": "string", "pattern": isoDateOrEmpty},
					"holderName": map[string]any{"type": "string"},
					"taxCode":    map[string]any{"type": "string"},
					"vatNumber":  map[string]any{"type": "string"},
				},
			},
			"checks": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"id", "passed"},
					"properties": map[string]any{
						"id":          idSchema,
						"description": map[string]any{"type": "string"},
						"passed":      map[string]any{"type": "boolean"},
						"value":       map[string]any{"type": "string"},
						"confidence":  map[string]any{"type": "number", "minimum": 0, "maximum": 1},
						"citationIds": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
						"normativeRefs": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
				},
			},
			"overall": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []any{"status", "isValid", "nonPertinente", "confidence", "reasons"},
				"properties": map[string]any{
					"status":        map[string]any{"type": "string", "enum": []any{"green", "yellow", "red", "na"}},
					"isValid":       map[string]any{"type": "boolean"},
					"nonPertinente": map[string]any{"type": "boolean"},
					"confidence":    map[string]any{"type": "number", "minimum": 0, "maximum": 1},
					"reasons": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items":    map[string]any{"type": "string", "minLength": 1},
					},
				},
			},
		},
	}
}
