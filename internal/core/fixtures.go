package core

import "careboard/pkg"

// The fixtures below stand in for the patient data, message and analysis
// services.  Each call returns fresh values so no two controllers share state.

// FixturePatients returns the static dashboard patient list.
func FixturePatients() []pkg.PatientRecord {
	return []pkg.PatientRecord{
		{ID: "P1", Name: "Arthur das Neves", CancerType: "Câncer de Colo", AlertStatus: pkg.AlertCritical, DelayDetail: "Diagnóstico -> Estadiamento (+15 dias)"},
		{ID: "P2", Name: "Mariane Novaes", CancerType: "Câncer Colorretal", AlertStatus: pkg.AlertCritical, DelayDetail: "Estadiamento -> Tratamento (+9 dias)"},
		{ID: "P3", Name: "João Miguel da Cunha", CancerType: "Câncer de Mama", AlertStatus: pkg.AlertOK, DelayDetail: "N/A - Aguardando Exame"},
		{ID: "P4", Name: "Emilly Dias", CancerType: "Câncer de Pulmão", AlertStatus: pkg.AlertCritical, DelayDetail: "Diagnóstico -> Estadiamento (+8 dias)"},
		{ID: "P5", Name: "Marcelo Melo", CancerType: "Câncer de Próstata", AlertStatus: pkg.AlertOK, DelayDetail: "N/A - Em Tratamento"},
		{ID: "P6", Name: "Lorena Rodrigues", CancerType: "Câncer Colorretal", AlertStatus: pkg.AlertCritical, DelayDetail: "Estadiamento -> Tratamento (+10 dias)"},
		{ID: "P7", Name: "Carlos Alberto", CancerType: "Câncer de Pulmão", AlertStatus: pkg.AlertOK, DelayDetail: "N/A - Acompanhamento"},
	}
}

// DoctorSeedHistory is the conversation shown when the doctor view opens.
func DoctorSeedHistory() []pkg.ChatMessage {
	return []pkg.ChatMessage{
		{Sender: pkg.SenderDoctor, Text: DoctorLabel + "Olá, Arthur. Estou aqui para analisar o seu caso. Qual sua principal preocupação hoje?"},
		{Sender: pkg.SenderPatient, Text: PatientNameLabel + "Olá, Dr. Eu estou com muita dor na região lombar ultimamente. Sinto também um cansaço muito forte."},
		{Sender: pkg.SenderPatient, Text: PatientNameLabel + "E percebi que estou com pouca vontade de comer nas últimas semanas."},
	}
}

// PatientSeedHistory is the conversation shown when the patient view opens.
func PatientSeedHistory() []pkg.ChatMessage {
	return []pkg.ChatMessage{
		{Sender: pkg.SenderDoctor, Text: DoctorLabel + "Olá, como você está se sentindo hoje? Recebi as notas da sua última consulta."},
		{Sender: pkg.SenderPatient, Text: PatientSelfLabel + "Dr., estou com uma dor de cabeça persistente desde ontem e um pouco de enjoo."},
	}
}

// PendingSummary is the summary shown before any analysis has completed.
func PendingSummary() pkg.PatientSummary {
	return pkg.PatientSummary{
		PatientID:  "P-8100",
		Name:       "Arthur das Neves",
		Age:        26,
		CancerType: "Câncer de mama (Estadiamento IIA)",
		Alert: pkg.SummaryAlert{
			Status:          pkg.AlertCritical,
			Detail:          "Atraso em Estadiamento -> Tratamento (+9 dias)",
			SuggestedAction: "Aguardando novas informações do paciente para análise da LLM.",
		},
		Symptoms:     []string{"Nenhum sintoma relevante detectado ainda."},
		Observations: "Paciente tem histórico de tabagismo. Alerta de atraso ativo. (Pontos Iniciais).",
	}
}

// AnalyzedSummary is the predetermined result of the simulated analysis.  It
// keeps the identifying fields of PendingSummary.
func AnalyzedSummary() pkg.PatientSummary {
	s := PendingSummary()
	s.Alert.SuggestedAction = "Verificar exames recentes. Paciente relata dor lombar (meta de rastreamento) e forte fadiga. " +
		"Sugerir reagendamento urgente."
	s.Symptoms = []string{
		"Dor na região lombar (Ponto Focal)",
		"Fadiga e cansaço constante",
		"Perda de apetite",
	}
	s.Observations = "Paciente mencionou dor lombar (que pode ser metástase). LLM sugere risco alto. " +
		"Histórico de tabagismo. Exames devem ser priorizados."
	return s
}
