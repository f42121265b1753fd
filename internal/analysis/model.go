package analysis

// Result is the structured outcome of one analysis call. It is replaced
// wholesale on re-analysis and cleared entirely on reset, never mutated.
// All list fields preserve the order returned by the service.
type Result struct {
	Patient          PatientInfo      `json:"patientInfo"`
	Summary          string           `json:"summary"`
	BottomLine       BottomLine       `json:"bottomLine"`
	ExecutiveSummary string           `json:"executiveSummary"`
	Biomarkers       []Biomarker      `json:"biomarkers"`
	Lifestyle        Lifestyle        `json:"lifestyle"`
	DoctorQuestions  []DoctorQuestion `json:"doctorQuestions"`
}

// PatientInfo is optional report metadata; any field may be empty.
type PatientInfo struct {
	Name           string `json:"name,omitempty"`
	Age            string `json:"age,omitempty"`
	Gender         string `json:"gender,omitempty"`
	CollectionDate string `json:"collectionDate,omitempty"`
	LabID          string `json:"labId,omitempty"`
	Facility       string `json:"facility,omitempty"`
	Clinician      string `json:"clinician,omitempty"`
}

// BottomLine is the wins-vs-watch-items verdict independent of the
// per-marker detail.
type BottomLine struct {
	Main  string   `json:"main"`
	Good  []string `json:"good"`
	Watch []string `json:"watch"`
}

// Status classifies one biomarker against its reference range.
type Status string

const (
	StatusNormal Status = "normal"
	StatusHigh   Status = "high"
	StatusLow    Status = "low"
	StatusOther  Status = "other"
)

// Valid reports whether the status is one of the allowed values.
func (s Status) Valid() bool {
	switch s {
	case StatusNormal, StatusHigh, StatusLow, StatusOther:
		return true
	}
	return false
}

// Biomarker is one measured lab value. PreviousValue is set only when a
// comparison report was supplied.
type Biomarker struct {
	Name          string   `json:"name"`
	CurrentValue  float64  `json:"currentValue"`
	PreviousValue *float64 `json:"previousValue,omitempty"`
	Unit          string   `json:"unit"`
	Status        Status   `json:"status"`
	Range         string   `json:"range"`
	Analogy       string   `json:"analogy"`
	Explanation   string   `json:"explanation"`
}

// PercentChange derives the relative change from the previous value. It is
// undefined (ok=false) without a previous value or when the previous value
// is zero; it is computed on demand, never stored.
func (b Biomarker) PercentChange() (float64, bool) {
	if b.PreviousValue == nil || *b.PreviousValue == 0 {
		return 0, false
	}
	return (b.CurrentValue - *b.PreviousValue) / *b.PreviousValue * 100, true
}

// Lifestyle holds plain-language guidance per area.
type Lifestyle struct {
	Diet     string `json:"diet"`
	Sleep    string `json:"sleep"`
	Exercise string `json:"exercise"`
}

// DoctorQuestion is one suggested first-person follow-up with its rationale.
type DoctorQuestion struct {
	Question  string `json:"question"`
	Rationale string `json:"rationale"`
}
