package routing

import (
	"strings"

	"github.com/telacare/inference-core/services/providers"
)

// criticalPatterns are clinically urgent signals; any match classifies the
// request as critical regardless of length or turn count
var criticalPatterns = []string{
	"chest pain",
	"shortness of breath",
	"difficulty breathing",
	"suicid",
	"overdose",
	"stroke",
	"seizure",
	"anaphyla",
	"unresponsive",
	"severe bleeding",
	"allergic reaction",
	"emergency",
}

// complexPatterns indicate diagnostically complex work
var complexPatterns = []string{
	"differential",
	"diagnos",
	"drug interaction",
	"contraindicat",
	"comorbid",
	"abnormal result",
	"lab result",
	"medication review",
	"chronic",
	"treatment plan",
}

const (
	complexLengthThreshold = 2000
	complexTurnThreshold   = 8
)

// ClassifyComplexity determines request complexity from message length, turn
// count, and keyword patterns. Matching is substring-based over lowercased
// content; the classified level is recorded in telemetry but message content
// never is.
func ClassifyComplexity(messages []providers.Message) Complexity {
	totalLength := 0
	var sb strings.Builder
	for _, msg := range messages {
		totalLength += len(msg.Content)
		sb.WriteString(strings.ToLower(msg.Content))
		sb.WriteByte('\n')
	}
	combined := sb.String()

	for _, pattern := range criticalPatterns {
		if strings.Contains(combined, pattern) {
			return ComplexityCritical
		}
	}

	if totalLength > complexLengthThreshold || len(messages) > complexTurnThreshold {
		return ComplexityComplex
	}
	for _, pattern := range complexPatterns {
		if strings.Contains(combined, pattern) {
			return ComplexityComplex
		}
	}

	return ComplexitySimple
}
