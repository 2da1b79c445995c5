package core

import (
	"context"

	"careboard/pkg"
)

// PatientSource provides the dashboard patient list.
type PatientSource interface {
	Patients(ctx context.Context) ([]pkg.PatientRecord, error)
}

// StaticPatients serves the fixture list.
type StaticPatients struct{}

// NewStaticPatients constructs the fixture-backed PatientSource.
func NewStaticPatients() *StaticPatients { return &StaticPatients{} }

func (s *StaticPatients) Patients(ctx context.Context) ([]pkg.PatientRecord, error) {
	return FixturePatients(), nil
}
