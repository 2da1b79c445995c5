package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"careboard/internal/clock"
	"careboard/pkg"
)

func newManaged() *clock.Managed {
	return clock.NewManaged(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
}

func TestDoctorChat_InitialState(t *testing.T) {
	d := NewDoctorChat(nil, DefaultAnalysisDelay, ChatOptions{Clock: newManaged()})
	defer d.Close()

	if !reflect.DeepEqual(d.History(), DoctorSeedHistory()) {
		t.Errorf("unexpected seed history: %v", d.History())
	}
	if !reflect.DeepEqual(d.Summary(), PendingSummary()) {
		t.Errorf("unexpected seed summary: %+v", d.Summary())
	}
}

func TestDoctorChat_SubmitBlankIsNoop(t *testing.T) {
	var events []Event
	d := NewDoctorChat(nil, DefaultAnalysisDelay, ChatOptions{
		Clock:    newManaged(),
		OnChange: func(e Event) { events = append(events, e) },
	})
	defer d.Close()

	before := d.History()
	for _, in := range []string{"", "   ", "\t\n"} {
		d.SetDraft(in)
		if d.SubmitDraft() {
			t.Errorf("expected %q to be ignored", in)
		}
		if d.Draft() != in {
			t.Errorf("expected draft to be left untouched, got %q", d.Draft())
		}
	}
	if !reflect.DeepEqual(d.History(), before) {
		t.Errorf("history changed after blank submits: %v", d.History())
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %v", events)
	}
}

func TestDoctorChat_SubmitAppendsLabelledMessage(t *testing.T) {
	var events []Event
	d := NewDoctorChat(nil, DefaultAnalysisDelay, ChatOptions{
		Clock:    newManaged(),
		OnChange: func(e Event) { events = append(events, e) },
	})
	defer d.Close()

	before := d.History()
	d.SetDraft("  Como está a dor hoje?  ")
	if !d.SubmitDraft() {
		t.Fatal("expected submit to succeed")
	}

	after := d.History()
	if len(after) != len(before)+1 {
		t.Fatalf("expected %d messages, got %d", len(before)+1, len(after))
	}
	last := after[len(after)-1]
	if last.Sender != pkg.SenderDoctor {
		t.Errorf("expected doctor sender, got %s", last.Sender)
	}
	if last.Text != DoctorLabel+"Como está a dor hoje?" {
		t.Errorf("unexpected text %q", last.Text)
	}
	if d.Draft() != "" {
		t.Errorf("expected draft to be cleared, got %q", d.Draft())
	}
	if len(before) != 3 {
		t.Errorf("previous snapshot must not change, got %d messages", len(before))
	}
	if len(events) != 1 || events[0].Kind != EventMessage {
		t.Errorf("expected one message event, got %v", events)
	}
}

func TestDoctorChat_AnalysisReplacesSummaryAfterDelay(t *testing.T) {
	clk := newManaged()
	var events []Event
	d := NewDoctorChat(nil, DefaultAnalysisDelay, ChatOptions{
		Clock:    clk,
		OnChange: func(e Event) { events = append(events, e) },
	})
	defer d.Close()

	d.TriggerAnalysis()
	if d.Pending() != 1 {
		t.Fatalf("expected 1 pending timer, got %d", d.Pending())
	}

	clk.WarpForward(DefaultAnalysisDelay - time.Millisecond)
	if !reflect.DeepEqual(d.Summary(), PendingSummary()) {
		t.Fatal("summary changed before the delay elapsed")
	}

	clk.WarpForward(time.Millisecond)
	if !reflect.DeepEqual(d.Summary(), AnalyzedSummary()) {
		t.Errorf("expected analyzed summary, got %+v", d.Summary())
	}
	if d.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", d.Pending())
	}
	if len(events) != 1 || events[0].Kind != EventSummary {
		t.Errorf("expected one summary event, got %v", events)
	}
}

func TestDoctorChat_SummaryIsACopy(t *testing.T) {
	clk := newManaged()
	d := NewDoctorChat(nil, time.Second, ChatOptions{Clock: clk})
	defer d.Close()

	d.TriggerAnalysis()
	clk.WarpForward(time.Second)
	s := d.Summary()
	s.Symptoms[0] = "changed"
	if d.Summary().Symptoms[0] == "changed" {
		t.Error("caller mutation leaked into controller state")
	}
}

func TestDoctorChat_RetriggerStartsIndependentTimers(t *testing.T) {
	clk := newManaged()
	calls := 0
	analyzer := analyzerFunc(func(ctx context.Context, cur pkg.PatientSummary, h []pkg.ChatMessage) (pkg.PatientSummary, error) {
		calls++
		return AnalyzedSummary(), nil
	})
	d := NewDoctorChat(analyzer, 3*time.Second, ChatOptions{Clock: clk})
	defer d.Close()

	d.TriggerAnalysis()
	clk.WarpForward(time.Second)
	d.TriggerAnalysis()
	if d.Pending() != 2 {
		t.Fatalf("expected 2 pending timers, got %d", d.Pending())
	}

	clk.WarpForward(2 * time.Second)
	if calls != 1 {
		t.Errorf("expected first analysis to run, got %d calls", calls)
	}
	clk.WarpForward(time.Second)
	if calls != 2 {
		t.Errorf("expected second analysis to run, got %d calls", calls)
	}
}

func TestDoctorChat_CloseBeforeDelayDropsReplacement(t *testing.T) {
	clk := newManaged()
	var events []Event
	d := NewDoctorChat(nil, DefaultAnalysisDelay, ChatOptions{
		Clock:    clk,
		OnChange: func(e Event) { events = append(events, e) },
	})

	d.TriggerAnalysis()
	if err := d.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clk.Pending() != 0 {
		t.Errorf("expected timers to be released, %d still pending", clk.Pending())
	}

	clk.WarpForward(time.Minute)
	if !reflect.DeepEqual(d.Summary(), PendingSummary()) {
		t.Error("summary replaced on a closed controller")
	}
	if len(events) != 0 {
		t.Errorf("expected no events after close, got %v", events)
	}
	if d.Submit("hello") {
		t.Error("expected submit on a closed controller to be ignored")
	}
	if err := d.Close(); err != nil {
		t.Errorf("second close returned %v", err)
	}
}

func TestDoctorChat_CloseDuringAnalysisDropsResult(t *testing.T) {
	clk := newManaged()
	var d *DoctorChat
	analyzer := analyzerFunc(func(ctx context.Context, cur pkg.PatientSummary, h []pkg.ChatMessage) (pkg.PatientSummary, error) {
		d.Close()
		if ctx.Err() == nil {
			t.Error("expected context to be cancelled by Close")
		}
		return AnalyzedSummary(), nil
	})
	d = NewDoctorChat(analyzer, time.Second, ChatOptions{Clock: clk})

	d.TriggerAnalysis()
	clk.WarpForward(time.Second)
	if !reflect.DeepEqual(d.Summary(), PendingSummary()) {
		t.Error("result applied after close")
	}
}

func TestDoctorChat_AnalysisErrorKeepsSummary(t *testing.T) {
	clk := newManaged()
	analyzer := analyzerFunc(func(ctx context.Context, cur pkg.PatientSummary, h []pkg.ChatMessage) (pkg.PatientSummary, error) {
		return pkg.PatientSummary{}, errors.New("model unavailable")
	})
	d := NewDoctorChat(analyzer, time.Second, ChatOptions{Clock: clk})
	defer d.Close()

	d.TriggerAnalysis()
	clk.WarpForward(time.Second)
	if !reflect.DeepEqual(d.Summary(), PendingSummary()) {
		t.Error("summary replaced despite analysis error")
	}
}

func TestDoctorChat_AnalyzerSeesLatestHistory(t *testing.T) {
	clk := newManaged()
	var seen []pkg.ChatMessage
	analyzer := analyzerFunc(func(ctx context.Context, cur pkg.PatientSummary, h []pkg.ChatMessage) (pkg.PatientSummary, error) {
		seen = h
		return cur, nil
	})
	d := NewDoctorChat(analyzer, time.Second, ChatOptions{Clock: clk})
	defer d.Close()

	d.TriggerAnalysis()
	d.Submit("nova pergunta")
	clk.WarpForward(time.Second)
	if len(seen) != 4 || !strings.HasSuffix(seen[3].Text, "nova pergunta") {
		t.Errorf("expected analyzer to see the submitted message, got %v", seen)
	}
}

func TestDoctorChat_State(t *testing.T) {
	d := NewDoctorChat(nil, time.Second, ChatOptions{Clock: newManaged()})
	defer d.Close()
	d.TriggerAnalysis()

	st := d.State("abc")
	if st.SessionID != "abc" || len(st.Messages) != 3 || st.Pending != 1 {
		t.Errorf("unexpected state %+v", st)
	}
	if st.Summary == nil || st.Summary.PatientID != "P-8100" {
		t.Errorf("expected summary in state, got %+v", st.Summary)
	}
}

type analyzerFunc func(ctx context.Context, cur pkg.PatientSummary, h []pkg.ChatMessage) (pkg.PatientSummary, error)

func (f analyzerFunc) Analyze(ctx context.Context, cur pkg.PatientSummary, h []pkg.ChatMessage) (pkg.PatientSummary, error) {
	return f(ctx, cur, h)
}
