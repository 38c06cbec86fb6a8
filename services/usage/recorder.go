package usage

import (
	"context"
	"fmt"
	"sync"

	"github.com/telacare/inference-core/services/routing"
	"go.uber.org/zap"
)

// Sink persists a routing outcome downstream (cost accounting, quota
// tracking). Implementations own storage; the recorder only buffers and
// dispatches.
type Sink interface {
	Write(ctx context.Context, outcome *routing.Outcome) error
}

// Config holds configuration for the Recorder
type Config struct {
	BufferSize  int // Size of the outcome buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  4096,
		WorkerCount: 2,
	}
}

// Recorder dispatches routing outcomes to a sink asynchronously so the
// request path never blocks on downstream persistence. A full buffer drops
// the outcome with a warning rather than applying backpressure.
type Recorder struct {
	sink        Sink
	logger      *zap.Logger
	outcomes    chan *routing.Outcome
	workerCount int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	mu          sync.Mutex
}

// NewRecorder creates a new Recorder instance
func NewRecorder(sink Sink, logger *zap.Logger, config Config) *Recorder {
	ctx, cancel := context.WithCancel(context.Background())

	return &Recorder{
		sink:        sink,
		logger:      logger,
		outcomes:    make(chan *routing.Outcome, config.BufferSize),
		workerCount: config.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the background workers
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("usage recorder already started")
	}

	for i := 0; i < r.workerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.started = true

	return nil
}

// Stop drains the buffer and stops the workers. The channel is closed under
// the same lock Record sends under, so a racing Record drops instead of
// hitting a closed channel.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	close(r.outcomes)
	r.mu.Unlock()

	r.wg.Wait()
	r.cancel()
}

// Record implements routing.UsageRecorder. It never blocks the caller;
// outcomes recorded before Start or after Stop are dropped.
func (r *Recorder) Record(_ context.Context, outcome *routing.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return
	}

	select {
	case r.outcomes <- outcome:
	default:
		r.logger.Warn("usage buffer full, dropping outcome",
			zap.String("request_id", outcome.Metadata.RequestID),
			zap.String("backend", outcome.BackendUsed))
	}
}

// worker consumes buffered outcomes until the channel closes
func (r *Recorder) worker(id int) {
	defer r.wg.Done()

	for outcome := range r.outcomes {
		if err := r.sink.Write(r.ctx, outcome); err != nil {
			r.logger.Error("failed to persist usage outcome",
				zap.Int("worker", id),
				zap.String("request_id", outcome.Metadata.RequestID),
				zap.Error(err))
		}
	}
}

// LogSink writes outcomes as structured log events; the default sink when no
// persistence layer is wired in
type LogSink struct {
	Logger *zap.Logger
}

// Write implements Sink
func (s *LogSink) Write(_ context.Context, outcome *routing.Outcome) error {
	s.Logger.Info("usage recorded",
		zap.String("request_id", outcome.Metadata.RequestID),
		zap.String("backend", outcome.BackendUsed),
		zap.Bool("success", outcome.Success),
		zap.Int("prompt_tokens", outcome.Usage.PromptTokens),
		zap.Int("completion_tokens", outcome.Usage.CompletionTokens),
		zap.Int("total_tokens", outcome.Usage.TotalTokens),
		zap.Float64("estimated_cost_cents", outcome.Metadata.EstimatedCostCents))
	return nil
}
