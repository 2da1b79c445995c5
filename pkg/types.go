package pkg

// AlertStatus is the urgency flag attached to a patient.  It drives dashboard
// highlighting and the default dashboard filter.
type AlertStatus string

const (
	AlertCritical AlertStatus = "CRITICAL"
	AlertOK       AlertStatus = "OK"
)

// All is the selector value meaning "no restriction on this field".  It is
// accepted both by the cancer type selector and the alert selector.
const All = "ALL"

// AlertAll is All typed as an alert selector.
const AlertAll AlertStatus = All

// PatientRecord is one row of the dashboard patient list.  Records are
// immutable within a session.
type PatientRecord struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	CancerType  string      `json:"cancer_type"`
	AlertStatus AlertStatus `json:"alert_status"`
	DelayDetail string      `json:"delay_detail"`
}

// Critical reports whether the record carries a critical alert.
func (p PatientRecord) Critical() bool { return p.AlertStatus == AlertCritical }

// Sender describes who authored a chat message.
type Sender string

const (
	SenderDoctor  Sender = "doctor"
	SenderPatient Sender = "patient"
)

// ChatMessage is a single entry of a chat history.  Text already carries the
// display label of its author (for example "Dr. Souza: ...").
type ChatMessage struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// SummaryAlert is the alert block of a PatientSummary.
type SummaryAlert struct {
	Status          AlertStatus `json:"status"`
	Detail          string      `json:"detail"`
	SuggestedAction string      `json:"suggested_action"`
}

// PatientSummary is the doctor-facing digest of a patient's case.  A summary
// is always replaced as a whole when a new analysis completes.
type PatientSummary struct {
	PatientID    string       `json:"patient_id"`
	Name         string       `json:"name"`
	Age          int          `json:"age"`
	CancerType   string       `json:"cancer_type"`
	Alert        SummaryAlert `json:"alert"`
	Symptoms     []string     `json:"symptoms"`
	Observations string       `json:"observations"`
}

// Clone returns a deep copy of the summary so callers can never alias the
// symptom list held by a controller.
func (s PatientSummary) Clone() PatientSummary {
	out := s
	if s.Symptoms != nil {
		out.Symptoms = append([]string(nil), s.Symptoms...)
	}
	return out
}

// FilterCriteria selects which patients the dashboard shows.  Name is matched
// as a case-insensitive substring; CancerType and Alert are exact matches
// unless they hold the All sentinel.
type FilterCriteria struct {
	Name       string      `json:"name"`
	CancerType string      `json:"cancer_type"`
	Alert      AlertStatus `json:"alert"`
}

// DashboardStats summarises alert counts over the full patient list.
type DashboardStats struct {
	TotalPatients   int     `json:"total_patients"`
	CriticalCount   int     `json:"critical_count"`
	CriticalPercent float64 `json:"critical_percent"`
}

// ChatState is the JSON representation of a chat page session returned by
// the API and pushed to stream subscribers.
type ChatState struct {
	SessionID string          `json:"session_id"`
	Messages  []ChatMessage   `json:"messages"`
	Summary   *PatientSummary `json:"summary,omitempty"`
	Pending   int             `json:"pending"`
}

// SubmitRequest carries the text typed by a user in a chat page.
type SubmitRequest struct {
	Text string `json:"text" form:"text"`
}
