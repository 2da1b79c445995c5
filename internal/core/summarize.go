package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"careboard/internal/llm"
	"careboard/pkg"
)

// Analyzer produces a fresh patient summary from the current one and the
// conversation so far.  The result replaces the current summary as a whole.
type Analyzer interface {
	Analyze(ctx context.Context, current pkg.PatientSummary, history []pkg.ChatMessage) (pkg.PatientSummary, error)
}

// FixedAnalyzer always returns AnalyzedSummary.  It stands in for the
// inference service until one is integrated.
type FixedAnalyzer struct{}

func (FixedAnalyzer) Analyze(ctx context.Context, current pkg.PatientSummary, history []pkg.ChatMessage) (pkg.PatientSummary, error) {
	return AnalyzedSummary(), nil
}

// LLMAnalyzer asks the LLM for a structured reading of the patient's messages
// and maps it onto a new summary.  Identifying fields and the alert detail
// are carried over from the current summary.
type LLMAnalyzer struct {
	LLM llm.Client
}

// NewLLMAnalyzer constructs an analyzer backed by client.
func NewLLMAnalyzer(client llm.Client) *LLMAnalyzer {
	return &LLMAnalyzer{LLM: client}
}

type analysisResult struct {
	Symptoms           []string `json:"symptoms"`
	RelevantPoints     []string `json:"relevant_points"`
	SuggestedQuestions []string `json:"suggested_questions"`
	Urgency            string   `json:"urgency"`
}

// Analyze sends the patient context and the patient's messages to the LLM.
func (a *LLMAnalyzer) Analyze(ctx context.Context, current pkg.PatientSummary, history []pkg.ChatMessage) (pkg.PatientSummary, error) {
	resp, err := a.LLM.Summarize(ctx, AnalysisSystemPrompt, analysisPrompt(current, history))
	if err != nil {
		return pkg.PatientSummary{}, fmt.Errorf("analyze conversation: %w", err)
	}
	var res analysisResult
	if err := json.Unmarshal([]byte(extractJSON(resp)), &res); err != nil {
		return pkg.PatientSummary{}, fmt.Errorf("decode analysis: %w", err)
	}

	out := current.Clone()
	out.Symptoms = res.Symptoms
	if len(out.Symptoms) == 0 {
		out.Symptoms = []string{"Nenhum sintoma relevante detectado ainda."}
	}
	if points := joinNonEmpty(res.RelevantPoints); points != "" {
		out.Observations = points
	}
	if questions := joinNonEmpty(res.SuggestedQuestions); questions != "" {
		out.Alert.SuggestedAction = questions
	}
	switch strings.ToLower(strings.TrimSpace(res.Urgency)) {
	case "alta", "high":
		out.Alert.Status = pkg.AlertCritical
	}
	return out, nil
}

func analysisPrompt(s pkg.PatientSummary, history []pkg.ChatMessage) string {
	var b strings.Builder
	b.WriteString("Contexto do Paciente:\n")
	fmt.Fprintf(&b, "- ID: %s\n- Nome: %s\n- Idade: %d\n- Tipo de Câncer: %s\n- Alertas de Atraso na Jornada: %s\n\n",
		s.PatientID, s.Name, s.Age, s.CancerType, s.Alert.Detail)
	b.WriteString("Mensagens do Paciente:\n")
	for _, m := range history {
		if m.Sender == pkg.SenderPatient {
			fmt.Fprintf(&b, "%q\n", m.Text)
		}
	}
	b.WriteString("\n")
	b.WriteString(AnalysisInstruction)
	return b.String()
}

// joinNonEmpty joins the non-blank items with a space.
func joinNonEmpty(items []string) string {
	kept := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			kept = append(kept, it)
		}
	}
	return strings.Join(kept, " ")
}

// extractJSON trims any text the model wrapped around the JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
