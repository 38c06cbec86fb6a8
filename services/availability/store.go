package availability

import (
	"sync"
	"time"
)

// CircuitState represents the circuit breaker state for a backend
type CircuitState string

const (
	// StateClosed allows traffic; failures are counted
	StateClosed CircuitState = "closed"

	// StateOpen blocks traffic until the reset timeout elapses
	StateOpen CircuitState = "open"

	// StateHalfOpen admits probe traffic; the next observed outcome decides
	// the transition. The single-probe guarantee is best-effort: concurrent
	// requests racing the same just-expired Open backend may all be admitted.
	// This over-admission is an accepted tradeoff over single-flight locking.
	StateHalfOpen CircuitState = "half_open"
)

// BackendHealth is the health record for a single backend
type BackendHealth struct {
	BackendID           string
	IsAvailable         bool
	CircuitState        CircuitState
	ConsecutiveFailures uint32
	LastCheckedAt       time.Time
	LastError           string
	LastResponseTime    time.Duration
}

// Store is an in-memory, mutex-guarded health store keyed by backend id.
// It is the only shared mutable state in the routing core and is never held
// locked across a network call.
type Store struct {
	mu      sync.RWMutex
	records map[string]*BackendHealth
	now     func() time.Time
}

// NewStore creates a new availability store
func NewStore() *Store {
	return &Store{
		records: make(map[string]*BackendHealth),
		now:     time.Now,
	}
}

// Get retrieves the health record for a backend, or nil if the backend has
// never been observed. If the circuit is Open and the reset timeout has
// elapsed since the last state change, the read itself performs the
// Open -> HalfOpen transition and the returned record is available.
func (s *Store) Get(backendID string, resetTimeout time.Duration) *BackendHealth {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[backendID]
	if !exists {
		return nil
	}

	if record.CircuitState == StateOpen && s.now().Sub(record.LastCheckedAt) >= resetTimeout {
		record.CircuitState = StateHalfOpen
		record.IsAvailable = true
		record.LastCheckedAt = s.now()
	}

	copied := *record
	return &copied
}

// RecordSuccess closes the circuit and resets the failure count for a backend.
// The record is created lazily on first observation.
func (s *Store) RecordSuccess(backendID string, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.getOrCreate(backendID)
	record.CircuitState = StateClosed
	record.ConsecutiveFailures = 0
	record.IsAvailable = true
	record.LastError = ""
	record.LastResponseTime = latency
	record.LastCheckedAt = s.now()
}

// RecordFailure increments the failure count for a backend. When the count
// reaches failureThreshold the circuit opens; below threshold the backend
// stays available so soft failures do not block traffic. A failure observed
// while HalfOpen reopens the circuit immediately.
func (s *Store) RecordFailure(backendID, errText string, failureThreshold uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.getOrCreate(backendID)
	record.ConsecutiveFailures++
	record.LastError = errText
	record.LastCheckedAt = s.now()

	if record.CircuitState == StateHalfOpen || record.ConsecutiveFailures >= failureThreshold {
		record.CircuitState = StateOpen
		record.IsAvailable = false
	}
}

// ListAvailable filters candidates down to backends whose circuit is not
// currently Open. Backends never observed before are considered available.
// Reads go through Get so that expired Open circuits transition to HalfOpen.
func (s *Store) ListAvailable(candidates []string, resetTimeout time.Duration) []string {
	available := make([]string, 0, len(candidates))
	for _, id := range candidates {
		record := s.Get(id, resetTimeout)
		if record == nil || record.IsAvailable {
			available = append(available, id)
		}
	}
	return available
}

// Statuses returns a snapshot of all health records keyed by backend id
func (s *Store) Statuses() map[string]BackendHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make(map[string]BackendHealth, len(s.records))
	for id, record := range s.records {
		statuses[id] = *record
	}
	return statuses
}

// ClearAll removes all health records (test/ops utility)
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*BackendHealth)
}

// getOrCreate returns the record for a backend, creating a fresh Closed
// record on first observation (must be called with lock held)
func (s *Store) getOrCreate(backendID string) *BackendHealth {
	record, exists := s.records[backendID]
	if !exists {
		record = &BackendHealth{
			BackendID:     backendID,
			IsAvailable:   true,
			CircuitState:  StateClosed,
			LastCheckedAt: s.now(),
		}
		s.records[backendID] = record
	}
	return record
}
