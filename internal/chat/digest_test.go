package chat

import (
	"strings"
	"testing"

	"labreport-backend/internal/analysis"
)

func TestDigestFlattensResult(t *testing.T) {
	prev := 180.0
	result := analysis.Result{
		Patient: analysis.PatientInfo{
			Name:           "Jane Doe",
			Age:            "42",
			Gender:         "female",
			Facility:       "City Lab",
			CollectionDate: "2026-03-14",
		},
		Biomarkers: []analysis.Biomarker{
			{Name: "Glucose", CurrentValue: 95, Unit: "mg/dL", Range: "70-99", Status: analysis.StatusNormal},
			{Name: "Cholesterol", CurrentValue: 210, PreviousValue: &prev, Unit: "mg/dL", Range: "<200", Status: analysis.StatusHigh},
		},
	}

	digest := Digest(result)

	for _, want := range []string{
		"Patient: Jane Doe (42, female)",
		"Facility: City Lab",
		"Collected: 2026-03-14",
		"- Glucose: 95 mg/dL (range 70-99, normal)",
		"- Cholesterol: 210 mg/dL (range <200, high) previously 180",
	} {
		if !strings.Contains(digest, want) {
			t.Fatalf("expected digest to contain %q, got:\n%s", want, digest)
		}
	}
}

func TestDigestSkipsMissingFields(t *testing.T) {
	digest := Digest(analysis.Result{
		Biomarkers: []analysis.Biomarker{
			{Name: "TSH", CurrentValue: 2.1, Unit: "mIU/L", Range: "0.4-4.0", Status: analysis.StatusNormal},
		},
	})

	if strings.Contains(digest, "Patient:") || strings.Contains(digest, "Facility:") {
		t.Fatalf("expected empty metadata omitted, got:\n%s", digest)
	}
	if !strings.Contains(digest, "- TSH: 2.1 mIU/L") {
		t.Fatalf("expected biomarker line, got:\n%s", digest)
	}
}

func TestDigestEmptyResult(t *testing.T) {
	if digest := Digest(analysis.Result{}); digest != "" {
		t.Fatalf("expected empty digest, got %q", digest)
	}
}
