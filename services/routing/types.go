package routing

import (
	"context"
	"time"

	"github.com/telacare/inference-core/services/providers"
	"github.com/telacare/inference-core/services/retry"
	"github.com/telacare/inference-core/services/tasks"
)

// Complexity classifies how demanding a request is
type Complexity string

const (
	// ComplexitySimple is short, low-stakes traffic; cheapest healthy backend
	ComplexitySimple Complexity = "simple"

	// ComplexityComplex involves diagnostic or multi-factor reasoning
	ComplexityComplex Complexity = "complex"

	// ComplexityCritical contains clinically urgent signals
	ComplexityCritical Complexity = "critical"
)

// Request is a single routed inference request
type Request struct {
	// Messages is the conversation to complete
	Messages []providers.Message

	// ExplicitBackend forces a backend, overriding all heuristics
	ExplicitBackend string

	// UserID enables per-user (BYOK) credential resolution when set
	UserID string

	// Task is the logical task identifier, canonical or legacy alias;
	// unknown values route as general work
	Task string

	// MaxTokens caps the response length, 0 for backend default
	MaxTokens int
}

// Options modifies routing behavior for one call. Nil pointer fields fall
// back to the service configuration.
type Options struct {
	// PreferCheapest biases ordering toward the cheapest backend regardless
	// of classified complexity
	PreferCheapest *bool

	// UseAvailabilityCache toggles circuit-state filtering of candidates
	UseAvailabilityCache *bool

	// StrictBYOK refuses to fall back to the system credential when the
	// user's own key cannot be resolved
	StrictBYOK bool

	// FailureThreshold overrides the configured circuit failure threshold
	FailureThreshold uint32

	// ResetTimeout overrides the configured circuit reset timeout
	ResetTimeout time.Duration

	// RetryProfile overrides the per-backend retry profile selection
	RetryProfile *retry.Spec

	// CostTable overrides per-backend cost-per-1k-token rates for this call
	CostTable map[string]float64
}

// Metadata is the observability record attached to every outcome
type Metadata struct {
	// RequestID correlates all log events for one routed request
	RequestID string `json:"request_id"`

	// Task is the canonical task the request resolved to
	Task tasks.Task `json:"task"`

	// Complexity as classified from the request content
	Complexity Complexity `json:"complexity"`

	// EstimatedCostCents is token usage priced against the backend cost
	// table, zero for local backends
	EstimatedCostCents float64 `json:"estimated_cost_cents"`

	// ResponseTime is the wall-clock duration of the whole route call
	ResponseTime time.Duration `json:"response_time"`

	// UsedFallback reports whether a non-primary backend served the request
	UsedFallback bool `json:"used_fallback"`

	// AttemptedBackends lists every backend tried, in order
	AttemptedBackends []string `json:"attempted_backends"`
}

// Outcome is the result of routing one request. A failed outcome is still a
// fully populated value; the router never returns "no provider".
type Outcome struct {
	// Success reports whether any backend served the request
	Success bool `json:"success"`

	// BackendUsed is the backend that served the request, or on total
	// exhaustion the first-preference backend the failure is attributed to
	BackendUsed string `json:"backend_used"`

	// Response is the backend response, nil on failure
	Response *providers.ChatResponse `json:"response,omitempty"`

	// Usage is the reported token usage, zero-valued when unavailable
	Usage providers.Usage `json:"usage"`

	// ErrorCategory is the classified failure category on a failed outcome;
	// never raw backend output
	ErrorCategory string `json:"error_category,omitempty"`

	// Metadata is the routing telemetry for this request
	Metadata Metadata `json:"metadata"`
}

// UsageRecorder receives every terminal outcome for downstream cost and
// quota accounting. The routing core emits outcomes; persistence is the
// collaborator's concern.
type UsageRecorder interface {
	Record(ctx context.Context, outcome *Outcome)
}

// NopUsageRecorder discards outcomes
type NopUsageRecorder struct{}

// Record implements UsageRecorder
func (NopUsageRecorder) Record(context.Context, *Outcome) {}
