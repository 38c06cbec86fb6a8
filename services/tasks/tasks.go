package tasks

// Task is a canonical logical task identifier (lower-kebab form)
type Task string

const (
	// TaskClinicalSummary summarizes a patient encounter or history
	TaskClinicalSummary Task = "clinical-summary"

	// TaskVisitNotes drafts structured visit notes from a transcript
	TaskVisitNotes Task = "visit-notes"

	// TaskTriage assesses urgency of a patient-reported complaint
	TaskTriage Task = "triage-assessment"

	// TaskPatientChat powers conversational patient-facing assistants
	TaskPatientChat Task = "patient-chat"

	// TaskDocumentAnalysis extracts structure from uploaded documents
	TaskDocumentAnalysis Task = "document-analysis"

	// TaskCoding suggests billing codes for an encounter
	TaskCoding Task = "coding-assist"

	// TaskGeneral is the catch-all for unrecognized tasks
	TaskGeneral Task = "general"
)

// ParseTask canonicalizes a task identifier. It accepts the canonical
// lower-kebab form or an uppercase-snake legacy alias kept for older callers.
// Unknown inputs map to TaskGeneral so routing stays total; callers never see
// a parse failure for a task name.
func ParseTask(s string) Task {
	switch s {
	case string(TaskClinicalSummary), "CLINICAL_SUMMARY", "SUMMARIZE_CLINICAL":
		return TaskClinicalSummary
	case string(TaskVisitNotes), "VISIT_NOTES", "SOAP_NOTES":
		return TaskVisitNotes
	case string(TaskTriage), "TRIAGE_ASSESSMENT", "TRIAGE":
		return TaskTriage
	case string(TaskPatientChat), "PATIENT_CHAT", "CHAT_COMPLETION":
		return TaskPatientChat
	case string(TaskDocumentAnalysis), "DOCUMENT_ANALYSIS", "ANALYZE_DOCUMENT":
		return TaskDocumentAnalysis
	case string(TaskCoding), "CODING_ASSIST", "BILLING_CODES":
		return TaskCoding
	case string(TaskGeneral), "GENERAL":
		return TaskGeneral
	default:
		return TaskGeneral
	}
}

// All returns every known task in stable order
func All() []Task {
	return []Task{
		TaskClinicalSummary,
		TaskVisitNotes,
		TaskTriage,
		TaskPatientChat,
		TaskDocumentAnalysis,
		TaskCoding,
		TaskGeneral,
	}
}

// Route describes how a task maps to backends
type Route struct {
	// Task is the canonical identifier
	Task Task `yaml:"task"`

	// Primary is the first-preference backend
	Primary string `yaml:"primary"`

	// Fallbacks are tried in order after the primary
	Fallbacks []string `yaml:"fallbacks"`

	// PreferLocal promotes the local backend to primary when it is reachable
	PreferLocal bool `yaml:"prefer_local"`

	// Rationale documents why the route is shaped this way; observability
	// only, never consulted by routing logic
	Rationale string `yaml:"rationale"`
}

// Backends returns the full preference ordering, primary first
func (r Route) Backends() []string {
	ordering := make([]string, 0, len(r.Fallbacks)+1)
	ordering = append(ordering, r.Primary)
	ordering = append(ordering, r.Fallbacks...)
	return ordering
}

// DefaultRoutes returns the built-in routing table
func DefaultRoutes() map[Task]Route {
	return map[Task]Route{
		TaskClinicalSummary: {
			Task:      TaskClinicalSummary,
			Primary:   "claude",
			Fallbacks: []string{"openai", "gemini"},
			Rationale: "summaries need faithful long-context handling",
		},
		TaskVisitNotes: {
			Task:        TaskVisitNotes,
			Primary:     "gemini",
			Fallbacks:   []string{"claude", "openai"},
			PreferLocal: true,
			Rationale:   "high volume, cost-sensitive; local model acceptable",
		},
		TaskTriage: {
			Task:      TaskTriage,
			Primary:   "claude",
			Fallbacks: []string{"openai", "gemini"},
			Rationale: "urgency assessment favors the highest-quality model",
		},
		TaskPatientChat: {
			Task:        TaskPatientChat,
			Primary:     "gemini",
			Fallbacks:   []string{"claude", "openai"},
			PreferLocal: true,
			Rationale:   "latency-sensitive conversational traffic",
		},
		TaskDocumentAnalysis: {
			Task:      TaskDocumentAnalysis,
			Primary:   "gemini",
			Fallbacks: []string{"openai", "claude"},
			Rationale: "large documents favor the biggest context window",
		},
		TaskCoding: {
			Task:      TaskCoding,
			Primary:   "openai",
			Fallbacks: []string{"claude", "gemini"},
			Rationale: "structured-output accuracy on code tables",
		},
		TaskGeneral: {
			Task:      TaskGeneral,
			Primary:   "gemini",
			Fallbacks: []string{"claude", "openai"},
			Rationale: "cheapest capable default for unclassified work",
		},
	}
}

// DefaultCostTable returns estimated USD cost per 1k tokens by backend.
// Local backends carry zero cost.
func DefaultCostTable() map[string]float64 {
	return map[string]float64{
		"openai": 0.0100,
		"claude": 0.0080,
		"gemini": 0.0035,
		"ollama": 0,
	}
}
