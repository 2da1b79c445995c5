package core

import (
	"context"
	"fmt"
	"time"

	"careboard/internal/clock"
	"careboard/pkg"
)

// JourneyDelayLimit is the longest gap, in days, allowed between diagnosis and
// the start of treatment before a patient is flagged.
const JourneyDelayLimit = 7

// PatientJourney is a dashboard record together with the care milestones its
// alert is derived from.  A zero date means the milestone is not recorded.
type PatientJourney struct {
	Record         pkg.PatientRecord
	Diagnosis      time.Time
	TreatmentStart time.Time
}

// JourneyAlert derives the alert status and detail of a patient.
//
// With a treatment date, the gap between diagnosis and treatment is checked.
// Without one, the time elapsed since diagnosis up to now is checked, so an
// untreated patient turns critical once the limit passes.
func JourneyAlert(diagnosis, treatmentStart, now time.Time) (pkg.AlertStatus, string) {
	if diagnosis.IsZero() {
		return pkg.AlertOK, "Dados de diagnóstico incompletos."
	}
	if !treatmentStart.IsZero() {
		days := daysBetween(diagnosis, treatmentStart)
		if days > JourneyDelayLimit {
			return pkg.AlertCritical, fmt.Sprintf("Diagnóstico -> Tratamento (+%d dias)", days)
		}
		return pkg.AlertOK, "N/A - Em Tratamento"
	}
	days := daysBetween(diagnosis, now)
	if days > JourneyDelayLimit {
		return pkg.AlertCritical, fmt.Sprintf("Diagnosticado há %d dias sem início de tratamento", days)
	}
	return pkg.AlertOK, "N/A - Aguardando Tratamento"
}

// daysBetween counts calendar days from a to b.
func daysBetween(a, b time.Time) int {
	day := func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	return int(day(b).Sub(day(a)).Hours() / 24)
}

// FixtureJourneys returns the fixture patients with milestones placed
// relative to ref.  The derived alerts flag the same four patients as the
// static list.
func FixtureJourneys(ref time.Time) []PatientJourney {
	ago := func(days int) time.Time { return ref.AddDate(0, 0, -days) }
	records := FixturePatients()
	dates := []struct{ diagnosis, treatment time.Time }{
		{ago(40), time.Time{}}, // P1 untreated for 40 days
		{ago(60), ago(51)},     // P2 9 day gap
		{ago(5), time.Time{}},  // P3 recently diagnosed
		{ago(30), ago(22)},     // P4 8 day gap
		{ago(90), ago(85)},     // P5
		{ago(50), ago(40)},     // P6 10 day gap
		{ago(120), ago(113)},   // P7 exactly at the limit
	}
	out := make([]PatientJourney, len(records))
	for i, r := range records {
		out[i] = PatientJourney{Record: r, Diagnosis: dates[i].diagnosis, TreatmentStart: dates[i].treatment}
	}
	return out
}

// JourneyPatients is a PatientSource whose alerts are recomputed from the
// journey milestones on every call.
type JourneyPatients struct {
	clock    clock.Clock
	journeys []PatientJourney
}

// NewJourneyPatients builds a source over journeys.  A nil clock selects the
// real clock.
func NewJourneyPatients(clk clock.Clock, journeys []PatientJourney) *JourneyPatients {
	if clk == nil {
		clk = clock.New()
	}
	return &JourneyPatients{clock: clk, journeys: journeys}
}

// NewFixtureJourneyPatients builds a source over FixtureJourneys anchored at
// the clock's current time.
func NewFixtureJourneyPatients(clk clock.Clock) *JourneyPatients {
	if clk == nil {
		clk = clock.New()
	}
	return NewJourneyPatients(clk, FixtureJourneys(clk.Now()))
}

func (s *JourneyPatients) Patients(ctx context.Context) ([]pkg.PatientRecord, error) {
	now := s.clock.Now()
	out := make([]pkg.PatientRecord, len(s.journeys))
	for i, j := range s.journeys {
		r := j.Record
		r.AlertStatus, r.DelayDetail = JourneyAlert(j.Diagnosis, j.TreatmentStart, now)
		out[i] = r
	}
	return out, nil
}
