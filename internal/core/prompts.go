package core

// prompts.go holds the fixed Portuguese texts used by the chat pages and the
// prompts sent to the LLM-backed collaborators.  Keeping them together makes
// them easy to tweak without touching the controllers.

const (
	// DoctorLabel prefixes every message written by the doctor.
	DoctorLabel = "Dr. Souza: "

	// PatientSelfLabel prefixes the patient's own messages in the patient view.
	PatientSelfLabel = "Você: "

	// PatientNameLabel prefixes the patient's messages in the doctor view.
	PatientNameLabel = "Arthur: "

	// AgentLabel prefixes replies produced on the doctor's behalf.
	AgentLabel = "Dr. Souza (Agente): "

	// AutoReply is the canned reply sent after every patient message.  The LLM
	// replier falls back to it when the model cannot be reached.
	AutoReply = AgentLabel + "Obrigado pela informação. Vou notificar o Dr. Souza sobre o seu relato. " +
		"Por favor, aguarde o retorno ou cheque seu status no app."

	// ReplySystemPrompt instructs the model answering patients on the doctor's
	// behalf: short, clear, and never a substitute for the physician.
	ReplySystemPrompt = "Você é um assistente para jornada oncológica. Responda de forma clara, curta e útil. " +
		"Se a pergunta exigir opinião médica, lembre que isso não substitui o médico responsável."

	// AnalysisSystemPrompt frames the summarisation model.
	AnalysisSystemPrompt = "Você é um assistente médico especializado em oncologia."

	// AnalysisInstruction asks for a single JSON object describing the
	// conversation.  The field names are decoded by LLMAnalyzer.
	AnalysisInstruction = "Você é um assistente que organiza informações para médicos oncologistas. " +
		"Analise as mensagens do paciente e os dados de contexto. Sua única saída deve ser um objeto JSON com os campos: " +
		"`symptoms` (lista de sintomas mencionados, vazia se nenhum), " +
		"`relevant_points` (medicamentos, exames, efeitos colaterais ou dúvidas específicas), " +
		"`suggested_questions` (2 a 3 perguntas diretas que o médico pode fazer), " +
		"`urgency` ('baixa', 'media' ou 'alta'). Responda APENAS com o objeto JSON."
)
