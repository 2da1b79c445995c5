package core

import (
	"context"
	"time"

	"careboard/pkg"
)

// DefaultReplyDelay is the simulated latency of the automatic reply.
const DefaultReplyDelay = 2 * time.Second

// PatientChat is the controller behind the patient view.  Every message the
// patient sends is answered by one automatic doctor-side reply.
type PatientChat struct {
	conversation

	replier Replier
	delay   time.Duration
}

// NewPatientChat returns a controller seeded with PatientSeedHistory.  A nil
// replier selects FixedReplier; a negative delay selects DefaultReplyDelay.
func NewPatientChat(replier Replier, delay time.Duration, opts ChatOptions) *PatientChat {
	if replier == nil {
		replier = FixedReplier{}
	}
	if delay < 0 {
		delay = DefaultReplyDelay
	}
	p := &PatientChat{replier: replier, delay: delay}
	p.init(PatientSeedHistory(), opts)
	return p
}

// Submit appends a patient message when text is not blank and schedules its
// automatic reply.  Replies are appended when their own timer fires, so they
// interleave with later messages in arrival order.
func (p *PatientChat) Submit(text string) bool {
	prior, trimmed, ok := p.submit(pkg.SenderPatient, PatientSelfLabel, text)
	if !ok {
		return false
	}
	p.after(p.delay, func(ctx context.Context) {
		reply, err := p.replier.Reply(ctx, prior, trimmed)
		if err != nil {
			p.log.Warn().Err(err).Msg("reply service failed, using fallback")
		}
		if reply == "" {
			reply = AutoReply
		}
		p.appendMessage(pkg.ChatMessage{Sender: pkg.SenderDoctor, Text: reply})
	})
	return true
}

// SubmitDraft submits the input buffer.
func (p *PatientChat) SubmitDraft() bool {
	return p.Submit(p.Draft())
}

// State returns the JSON view of the controller.
func (p *PatientChat) State(sessionID string) pkg.ChatState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return pkg.ChatState{
		SessionID: sessionID,
		Messages:  p.history,
		Pending:   len(p.timers),
	}
}
