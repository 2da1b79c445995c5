package core

import (
	"context"
	"time"

	"careboard/pkg"
)

// DefaultAnalysisDelay is the simulated latency of the analysis service.
const DefaultAnalysisDelay = 3 * time.Second

// DoctorChat is the controller behind the doctor view: a conversation with
// the patient plus the automatically generated summary panel.
type DoctorChat struct {
	conversation

	analyzer Analyzer
	delay    time.Duration
	summary  pkg.PatientSummary
}

// NewDoctorChat returns a controller seeded with DoctorSeedHistory and
// PendingSummary.  A nil analyzer selects FixedAnalyzer; a negative delay
// selects DefaultAnalysisDelay.
func NewDoctorChat(analyzer Analyzer, delay time.Duration, opts ChatOptions) *DoctorChat {
	if analyzer == nil {
		analyzer = FixedAnalyzer{}
	}
	if delay < 0 {
		delay = DefaultAnalysisDelay
	}
	d := &DoctorChat{analyzer: analyzer, delay: delay, summary: PendingSummary()}
	d.init(DoctorSeedHistory(), opts)
	return d
}

// Summary returns a copy of the current summary.
func (d *DoctorChat) Summary() pkg.PatientSummary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.summary.Clone()
}

// Submit appends a doctor message when text is not blank.  Blank input is
// ignored and reported as false.
func (d *DoctorChat) Submit(text string) bool {
	_, _, ok := d.submit(pkg.SenderDoctor, DoctorLabel, text)
	return ok
}

// SubmitDraft submits the input buffer.
func (d *DoctorChat) SubmitDraft() bool {
	return d.Submit(d.Draft())
}

// TriggerAnalysis schedules a summary refresh after the analysis delay.
// Calling it again while a refresh is pending schedules another independent
// refresh; the earlier one is not cancelled.
func (d *DoctorChat) TriggerAnalysis() {
	d.log.Debug().Dur("delay", d.delay).Msg("analysis scheduled")
	d.after(d.delay, d.runAnalysis)
}

func (d *DoctorChat) runAnalysis(ctx context.Context) {
	d.mu.Lock()
	current := d.summary.Clone()
	history := d.history
	d.mu.Unlock()

	next, err := d.analyzer.Analyze(ctx, current, history)
	if err != nil {
		d.log.Warn().Err(err).Str("patient_id", current.PatientID).Msg("analysis failed, keeping previous summary")
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.summary = next.Clone()
	d.mu.Unlock()

	d.log.Debug().Str("patient_id", next.PatientID).Msg("summary replaced")
	d.emit(EventSummary)
}

// State returns the JSON view of the controller.
func (d *DoctorChat) State(sessionID string) pkg.ChatState {
	d.mu.Lock()
	defer d.mu.Unlock()
	summary := d.summary.Clone()
	return pkg.ChatState{
		SessionID: sessionID,
		Messages:  d.history,
		Summary:   &summary,
		Pending:   len(d.timers),
	}
}
