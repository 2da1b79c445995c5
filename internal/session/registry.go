// Package session owns the chat controllers created for each page load and
// releases them when the page goes away.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"careboard/internal/clock"
	"careboard/internal/core"
)

// ErrNotFound is returned for unknown, expired or closed sessions.
var ErrNotFound = errors.New("session not found")

// Kind identifies the page a session belongs to.
type Kind string

const (
	KindDoctor  Kind = "doctor"
	KindPatient Kind = "patient"
)

// Config carries the collaborators injected into every controller.
type Config struct {
	Analyzer      core.Analyzer
	Replier       core.Replier
	AnalysisDelay time.Duration
	ReplyDelay    time.Duration
	TTL           time.Duration
	Clock         clock.Clock
	Logger        zerolog.Logger
}

type entry struct {
	kind     Kind
	doctor   *core.DoctorChat
	patient  *core.PatientChat
	lastSeen time.Time
}

func (e *entry) close() error {
	if e.doctor != nil {
		return e.doctor.Close()
	}
	return e.patient.Close()
}

// Registry maps session ids to live controllers.
type Registry struct {
	cfg      Config
	notifier *Notifier

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry constructs a Registry publishing change events on notifier.
func NewRegistry(cfg Config, notifier *Notifier) *Registry {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Registry{cfg: cfg, notifier: notifier, entries: make(map[string]*entry)}
}

func (r *Registry) options(id string, kind Kind) core.ChatOptions {
	log := r.cfg.Logger.With().Str("session_id", id).Str("kind", string(kind)).Logger()
	return core.ChatOptions{
		Clock:  r.cfg.Clock,
		Logger: &log,
		OnChange: func(e core.Event) {
			r.notifier.Notify(id, e)
		},
	}
}

// NewDoctorChat creates and registers a doctor chat controller.
func (r *Registry) NewDoctorChat() (string, *core.DoctorChat) {
	id := uuid.NewString()
	d := core.NewDoctorChat(r.cfg.Analyzer, r.cfg.AnalysisDelay, r.options(id, KindDoctor))
	r.add(id, &entry{kind: KindDoctor, doctor: d})
	return id, d
}

// NewPatientChat creates and registers a patient chat controller.
func (r *Registry) NewPatientChat() (string, *core.PatientChat) {
	id := uuid.NewString()
	p := core.NewPatientChat(r.cfg.Replier, r.cfg.ReplyDelay, r.options(id, KindPatient))
	r.add(id, &entry{kind: KindPatient, patient: p})
	return id, p
}

func (r *Registry) add(id string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.lastSeen = r.cfg.Clock.Now()
	r.entries[id] = e
	r.cfg.Logger.Debug().Str("session_id", id).Str("kind", string(e.kind)).Msg("session opened")
}

func (r *Registry) lookup(id string, kind Kind) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.kind != kind {
		return nil, fmt.Errorf("%s session %s: %w", kind, id, ErrNotFound)
	}
	e.lastSeen = r.cfg.Clock.Now()
	return e, nil
}

// DoctorChat returns the doctor controller registered under id.
func (r *Registry) DoctorChat(id string) (*core.DoctorChat, error) {
	e, err := r.lookup(id, KindDoctor)
	if err != nil {
		return nil, err
	}
	return e.doctor, nil
}

// PatientChat returns the patient controller registered under id.
func (r *Registry) PatientChat(id string) (*core.PatientChat, error) {
	e, err := r.lookup(id, KindPatient)
	if err != nil {
		return nil, err
	}
	return e.patient, nil
}

// Exists reports whether a session of either kind is registered under id.
func (r *Registry) Exists(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// Touch marks a session as in use so the sweeper keeps it alive.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.lastSeen = r.cfg.Clock.Now()
	}
}

// Close tears down the controller registered under id and ends its streams.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	r.notifier.CloseSession(id)
	if err := e.close(); err != nil {
		return fmt.Errorf("close session %s: %w", id, err)
	}
	r.cfg.Logger.Debug().Str("session_id", id).Str("kind", string(e.kind)).Msg("session closed")
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep closes every session idle for longer than the configured TTL and
// returns how many were closed.  A zero TTL disables expiry.
func (r *Registry) Sweep() int {
	if r.cfg.TTL <= 0 {
		return 0
	}
	now := r.cfg.Clock.Now()
	r.mu.Lock()
	var expired []string
	for id, e := range r.entries {
		if now.Sub(e.lastSeen) > r.cfg.TTL {
			expired = append(expired, id)
		}
	}
	r.mu.Unlock()

	closed := 0
	for _, id := range expired {
		if err := r.Close(id); err == nil {
			closed++
		}
	}
	if closed > 0 {
		r.cfg.Logger.Info().Int("closed", closed).Msg("expired sessions swept")
	}
	return closed
}

// Run sweeps expired sessions every interval until ctx is done, then closes
// all remaining sessions.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Shutdown()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Shutdown closes every live session.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		if err := r.Close(id); err != nil {
			r.cfg.Logger.Warn().Err(err).Str("session_id", id).Msg("close session")
		}
	}
}
