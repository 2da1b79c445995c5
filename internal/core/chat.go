package core

import (
	"context"
	"fmt"
	"strings"

	"careboard/internal/llm"
	"careboard/pkg"
)

// Replier produces the automatic answer to a patient message.  The returned
// text is appended as a doctor message, so it must carry its own label.
type Replier interface {
	Reply(ctx context.Context, history []pkg.ChatMessage, text string) (string, error)
}

// FixedReplier always answers with AutoReply.
type FixedReplier struct{}

func (FixedReplier) Reply(ctx context.Context, history []pkg.ChatMessage, text string) (string, error) {
	return AutoReply, nil
}

// LLMReplier answers patients through the LLM on the doctor's behalf.  When
// Patient is set, a one-line context of the patient is added to the system
// prompt.
type LLMReplier struct {
	LLM     llm.Client
	Patient pkg.PatientSummary
}

// NewLLMReplier constructs a replier backed by client answering for patient.
func NewLLMReplier(client llm.Client, patient pkg.PatientSummary) *LLMReplier {
	return &LLMReplier{LLM: client, Patient: patient}
}

// PatientContext renders the patient fields shared with the model, with "-"
// for anything unknown.
func PatientContext(s pkg.PatientSummary) string {
	orDash := func(v string) string {
		if strings.TrimSpace(v) == "" {
			return "-"
		}
		return v
	}
	age := "-"
	if s.Age > 0 {
		age = fmt.Sprint(s.Age)
	}
	return fmt.Sprintf("Paciente: %s | Idade: %s | Câncer: %s | Alerta: %s | Atraso: %s | Observações: %s",
		orDash(s.Name), age, orDash(s.CancerType), orDash(string(s.Alert.Status)),
		orDash(s.Alert.Detail), orDash(s.Observations))
}

func (r *LLMReplier) systemPrompt() string {
	if r.Patient.Name == "" && r.Patient.PatientID == "" {
		return ReplySystemPrompt
	}
	return ReplySystemPrompt + "\n\nContexto do paciente (somente para referência): " + PatientContext(r.Patient)
}

// Reply sends the conversation and the new message to the LLM.  On error or
// an empty answer the canned AutoReply is returned together with the error.
func (r *LLMReplier) Reply(ctx context.Context, history []pkg.ChatMessage, text string) (string, error) {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: r.systemPrompt()})
	for _, m := range history {
		role := llm.RoleUser
		if m.Sender == pkg.SenderDoctor {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Text})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: text})

	resp, err := r.LLM.Chat(ctx, msgs)
	if err != nil {
		return AutoReply, err
	}
	resp = strings.TrimSpace(resp)
	if resp == "" {
		return AutoReply, nil
	}
	return AgentLabel + resp, nil
}
