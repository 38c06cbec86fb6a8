package routing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/telacare/inference-core/config"
	"github.com/telacare/inference-core/internal/observability"
	"github.com/telacare/inference-core/services"
	"github.com/telacare/inference-core/services/availability"
	"github.com/telacare/inference-core/services/credentials"
	"github.com/telacare/inference-core/services/providers"
	"github.com/telacare/inference-core/services/retry"
	"github.com/telacare/inference-core/services/tasks"
	"go.uber.org/zap"
)

// Service routes inference requests across backends with circuit breaking,
// retries, and cost/complexity-aware fallback. One Service is shared across
// concurrent requests; the availability store is its only mutable state.
type Service struct {
	cfg         config.RoutingConfig
	registry    *providers.Registry
	store       *availability.Store
	resolver    *tasks.Resolver
	credentials *credentials.Resolver
	recorder    UsageRecorder
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewService creates a routing service. recorder may be nil (outcomes are
// discarded) and metrics may be nil (instrumentation disabled).
func NewService(
	cfg config.RoutingConfig,
	registry *providers.Registry,
	store *availability.Store,
	resolver *tasks.Resolver,
	creds *credentials.Resolver,
	recorder UsageRecorder,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	if recorder == nil {
		recorder = NopUsageRecorder{}
	}
	return &Service{
		cfg:         cfg,
		registry:    registry,
		store:       store,
		resolver:    resolver,
		credentials: creds,
		recorder:    recorder,
		metrics:     metrics,
		logger:      logger,
	}
}

// Route is the single entry point: classify the request, pick a backend
// ordering, skip open circuits, invoke with retries, and fall back until a
// backend succeeds or the ordering is exhausted.
//
// A non-nil error is returned only for invalid input, strict-BYOK credential
// failures, and caller cancellation. Total backend exhaustion returns a
// structured failed Outcome with a nil error so callers can render a degraded
// message instead of crashing.
func (s *Service) Route(ctx context.Context, req *Request, opts Options) (*Outcome, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, services.ErrEmptyMessages
	}

	start := time.Now()
	requestID := uuid.New().String()
	task := tasks.ParseTask(req.Task)
	complexity := ClassifyComplexity(req.Messages)

	preferCheapest := s.cfg.PreferCheapest
	if opts.PreferCheapest != nil {
		preferCheapest = *opts.PreferCheapest
	}
	useCache := s.cfg.UseAvailabilityCache
	if opts.UseAvailabilityCache != nil {
		useCache = *opts.UseAvailabilityCache
	}
	failureThreshold := s.cfg.FailureThreshold
	if opts.FailureThreshold > 0 {
		failureThreshold = opts.FailureThreshold
	}
	resetTimeout := s.cfg.ResetTimeout
	if opts.ResetTimeout > 0 {
		resetTimeout = opts.ResetTimeout
	}

	resolution := s.resolver.Resolve(task, tasks.Options{ExplicitBackend: req.ExplicitBackend})
	costTable := resolution.CostTable
	if opts.CostTable != nil {
		costTable = opts.CostTable
	}
	ordering := resolution.Backends
	if req.ExplicitBackend == "" {
		ordering = biasOrdering(ordering, costTable, complexity, preferCheapest)
	}

	s.logger.Info("routing request",
		zap.String("request_id", requestID),
		zap.String("task", string(task)),
		zap.String("complexity", string(complexity)),
		zap.Strings("ordering", ordering),
		zap.Bool("used_local", resolution.UsedLocal))

	candidates := ordering
	if useCache {
		candidates = s.store.ListAvailable(ordering, resetTimeout)
		if len(candidates) == 0 {
			// Every circuit is open; attempt the primary anyway so the
			// caller gets a defined result rather than "no provider".
			candidates = ordering[:1]
			s.logger.Warn("all candidate circuits open, probing primary",
				zap.String("request_id", requestID),
				zap.String("backend", ordering[0]))
		}
	}

	meta := Metadata{
		RequestID:  requestID,
		Task:       task,
		Complexity: complexity,
	}

	var lastErr error
	for i, backendID := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		credRes, err := s.resolveCredential(ctx, req.UserID, backendID, opts.StrictBYOK)
		if err != nil {
			// Strict BYOK: surface the typed error, never fall back to a
			// provider the user's key does not cover.
			return nil, err
		}

		meta.AttemptedBackends = append(meta.AttemptedBackends, backendID)

		resp, err := s.attempt(ctx, backendID, req, credRes.Credential, complexity, opts.RetryProfile)
		if err == nil {
			s.recordSuccess(backendID, resp.Latency)
			meta.UsedFallback = backendID != ordering[0]
			meta.ResponseTime = time.Since(start)
			meta.EstimatedCostCents = EstimateCostCents(resp.Usage, costTable[backendID])

			outcome := &Outcome{
				Success:     true,
				BackendUsed: backendID,
				Response:    resp,
				Usage:       resp.Usage,
				Metadata:    meta,
			}
			s.observe(ctx, outcome)
			return outcome, nil
		}

		if ctx.Err() != nil {
			// Caller went away; stop the fallback chain promptly.
			return nil, ctx.Err()
		}

		lastErr = err
		s.recordFailure(backendID, err, failureThreshold)
		s.logger.Warn("backend attempt failed, advancing",
			zap.String("request_id", requestID),
			zap.String("backend", backendID),
			zap.Int("candidate_index", i),
			zap.String("error_category", string(services.GetErrorType(err))))
	}

	// Exhausted: attribute the failure to the first-preference backend so the
	// outcome is always defined as long as the task names any backend at all.
	meta.UsedFallback = len(meta.AttemptedBackends) > 1
	meta.ResponseTime = time.Since(start)

	outcome := &Outcome{
		Success:       false,
		BackendUsed:   ordering[0],
		ErrorCategory: failureCategory(lastErr),
		Metadata:      meta,
	}
	s.observe(ctx, outcome)
	return outcome, nil
}

// attempt invokes one backend through the retry executor with a profile
// matching the backend class and request criticality
func (s *Service) attempt(ctx context.Context, backendID string, req *Request, credential string, complexity Complexity, profile *retry.Spec) (*providers.ChatResponse, error) {
	backend, err := s.registry.Get(backendID)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "backend not registered", err).
			WithDetail("backend", backendID)
	}

	spec := retry.StandardProfile()
	switch {
	case profile != nil:
		spec = *profile
	case backend.IsLocal():
		spec = retry.LocalProfile()
	case complexity == ComplexityCritical:
		spec = retry.CriticalProfile()
	}

	chatReq := &providers.ChatRequest{
		Messages:  req.Messages,
		MaxTokens: req.MaxTokens,
	}

	attempts := 0
	op := func(ctx context.Context) (*providers.ChatResponse, error) {
		attempts++
		if attempts > 1 && s.metrics != nil {
			s.metrics.RecordRetry(backendID)
		}
		return backend.Invoke(ctx, chatReq, credential)
	}

	return retry.Do(ctx, s.logger.With(zap.String("backend", backendID)), spec, op)
}

// resolveCredential applies BYOK resolution when a user identity is present
func (s *Service) resolveCredential(ctx context.Context, userID, backendID string, strict bool) (*credentials.Resolution, error) {
	if s.credentials == nil {
		return &credentials.Resolution{}, nil
	}
	return s.credentials.Resolve(ctx, userID, backendID, strict)
}

// recordSuccess updates health state and circuit metrics after a success
func (s *Service) recordSuccess(backendID string, latency time.Duration) {
	before := s.circuitState(backendID)
	s.store.RecordSuccess(backendID, latency)
	if s.metrics != nil && before != availability.StateClosed && before != "" {
		s.metrics.RecordCircuitTransition(backendID, string(availability.StateClosed))
	}
}

// recordFailure updates health state and circuit metrics after a failure.
// Only the classified error category reaches the store, never payloads.
func (s *Service) recordFailure(backendID string, err error, failureThreshold uint32) {
	before := s.circuitState(backendID)
	s.store.RecordFailure(backendID, failureCategory(err), failureThreshold)
	after := s.circuitState(backendID)
	if s.metrics != nil && after == availability.StateOpen && before != availability.StateOpen {
		s.metrics.RecordCircuitTransition(backendID, string(availability.StateOpen))
	}
}

// circuitState reads the current state without triggering the lazy
// Open -> HalfOpen transition
func (s *Service) circuitState(backendID string) availability.CircuitState {
	statuses := s.store.Statuses()
	if record, ok := statuses[backendID]; ok {
		return record.CircuitState
	}
	return ""
}

// observe emits logs, metrics, and the usage-recorder event for a terminal
// outcome
func (s *Service) observe(ctx context.Context, outcome *Outcome) {
	status := "success"
	if !outcome.Success {
		status = "failed"
	}

	s.logger.Info("routing outcome",
		zap.String("request_id", outcome.Metadata.RequestID),
		zap.String("backend", outcome.BackendUsed),
		zap.String("status", status),
		zap.String("complexity", string(outcome.Metadata.Complexity)),
		zap.Bool("used_fallback", outcome.Metadata.UsedFallback),
		zap.Duration("response_time", outcome.Metadata.ResponseTime),
		zap.Float64("estimated_cost_cents", outcome.Metadata.EstimatedCostCents))

	if s.metrics != nil {
		s.metrics.RecordRequest(outcome.BackendUsed, string(outcome.Metadata.Task), status)
		s.metrics.RecordLatency(outcome.BackendUsed, string(outcome.Metadata.Complexity), outcome.Metadata.ResponseTime.Seconds())
		if outcome.Metadata.UsedFallback {
			s.metrics.RecordFallback(string(outcome.Metadata.Task))
		}
		if outcome.Success {
			s.metrics.RecordCost(outcome.BackendUsed, outcome.Metadata.EstimatedCostCents)
		}
	}

	s.recorder.Record(ctx, outcome)
}

// Health introspection

// GetStatus returns the health record for a backend, or nil if never observed
func (s *Service) GetStatus(backendID string) *availability.BackendHealth {
	return s.store.Get(backendID, s.cfg.ResetTimeout)
}

// ListAllStatuses returns a snapshot of every backend health record
func (s *Service) ListAllStatuses() map[string]availability.BackendHealth {
	return s.store.Statuses()
}

// ClearAll resets all circuit state (test/ops utility)
func (s *Service) ClearAll() {
	s.store.ClearAll()
}

// failureCategory maps an error to a loggable category string
func failureCategory(err error) string {
	if err == nil {
		return "unknown"
	}
	if t := services.GetErrorType(err); t != "" {
		return string(t)
	}
	if code := providers.StatusCode(err); code != 0 {
		return "http_error"
	}
	return "external"
}
