package analysis

import "labreport-backend/internal/llm"

// responseSchema is the strict shape the service response must conform to.
// Required subfields mirror the domain model; previousValue stays optional
// so single-report analyses validate cleanly.
func responseSchema() *llm.ResponseSchema {
	str := func(desc string) *llm.ResponseSchema {
		return &llm.ResponseSchema{Type: llm.TypeString, Description: desc}
	}
	return &llm.ResponseSchema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.ResponseSchema{
			"patientInfo": {
				Type: llm.TypeObject,
				Properties: map[string]*llm.ResponseSchema{
					"name":           str(""),
					"age":            str(""),
					"gender":         str(""),
					"collectionDate": str(""),
					"labId":          str(""),
					"facility":       str(""),
					"clinician":      str(""),
				},
			},
			"summary": str("One-line plain-language summary of the report."),
			"bottomLine": {
				Type: llm.TypeObject,
				Properties: map[string]*llm.ResponseSchema{
					"main":  str("The single most important takeaway."),
					"good":  {Type: llm.TypeArray, Items: str("")},
					"watch": {Type: llm.TypeArray, Items: str("")},
				},
				Required: []string{"main", "good", "watch"},
			},
			"executiveSummary": str("Exactly two sentences: one positive, one focus area."),
			"biomarkers": {
				Type: llm.TypeArray,
				Items: &llm.ResponseSchema{
					Type: llm.TypeObject,
					Properties: map[string]*llm.ResponseSchema{
						"name":          str(""),
						"currentValue":  {Type: llm.TypeNumber},
						"previousValue": {Type: llm.TypeNumber},
						"unit":          str(""),
						"status": {
							Type: llm.TypeString,
							Enum: []string{"normal", "high", "low", "other"},
						},
						"range":       str("Two numeric bounds, e.g. \"70 - 99\"."),
						"analogy":     str("Relatable real-world analogy."),
						"explanation": str("Plain-language explanation."),
					},
					Required: []string{"name", "currentValue", "unit", "status", "range", "analogy", "explanation"},
				},
			},
			"lifestyle": {
				Type: llm.TypeObject,
				Properties: map[string]*llm.ResponseSchema{
					"diet":     str(""),
					"sleep":    str(""),
					"exercise": str(""),
				},
				Required: []string{"diet", "sleep", "exercise"},
			},
			"doctorQuestions": {
				Type: llm.TypeArray,
				Items: &llm.ResponseSchema{
					Type: llm.TypeObject,
					Properties: map[string]*llm.ResponseSchema{
						"question":  str("First-person question to ask the doctor."),
						"rationale": str(""),
					},
					Required: []string{"question", "rationale"},
				},
			},
		},
		Required: []string{"summary", "bottomLine", "executiveSummary", "biomarkers", "lifestyle", "doctorQuestions"},
	}
}
