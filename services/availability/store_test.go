package availability

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUnknownBackend(t *testing.T) {
	store := NewStore()

	record := store.Get("gemini", time.Minute)
	assert.Nil(t, record)
}

func TestRecordSuccessResetsFailures(t *testing.T) {
	store := NewStore()

	store.RecordFailure("gemini", "timeout", 5)
	store.RecordFailure("gemini", "timeout", 5)

	record := store.Get("gemini", time.Minute)
	require.NotNil(t, record)
	assert.Equal(t, uint32(2), record.ConsecutiveFailures)

	store.RecordSuccess("gemini", 150*time.Millisecond)

	record = store.Get("gemini", time.Minute)
	require.NotNil(t, record)
	assert.Equal(t, uint32(0), record.ConsecutiveFailures)
	assert.Equal(t, StateClosed, record.CircuitState)
	assert.True(t, record.IsAvailable)
	assert.Empty(t, record.LastError)
	assert.Equal(t, 150*time.Millisecond, record.LastResponseTime)
}

func TestCircuitOpensAtThreshold(t *testing.T) {
	tests := []struct {
		name          string
		failures      int
		threshold     uint32
		wantState     CircuitState
		wantAvailable bool
	}{
		{
			name:          "one short of threshold stays closed",
			failures:      2,
			threshold:     3,
			wantState:     StateClosed,
			wantAvailable: true,
		},
		{
			name:          "at threshold opens",
			failures:      3,
			threshold:     3,
			wantState:     StateOpen,
			wantAvailable: false,
		},
		{
			name:          "past threshold stays open",
			failures:      5,
			threshold:     3,
			wantState:     StateOpen,
			wantAvailable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			for i := 0; i < tt.failures; i++ {
				store.RecordFailure("claude", "http_503", tt.threshold)
			}

			record := store.Get("claude", time.Hour)
			require.NotNil(t, record)
			assert.Equal(t, tt.wantState, record.CircuitState)
			assert.Equal(t, tt.wantAvailable, record.IsAvailable)
			assert.Equal(t, uint32(tt.failures), record.ConsecutiveFailures)
		})
	}
}

func TestOpenTransitionsToHalfOpenAfterResetTimeout(t *testing.T) {
	store := NewStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	store.RecordFailure("openai", "timeout", 1)

	// Before the reset boundary the circuit stays open.
	now = now.Add(30 * time.Second)
	record := store.Get("openai", time.Minute)
	require.NotNil(t, record)
	assert.Equal(t, StateOpen, record.CircuitState)
	assert.False(t, record.IsAvailable)

	// At the boundary the read itself performs the transition.
	now = now.Add(30 * time.Second)
	record = store.Get("openai", time.Minute)
	require.NotNil(t, record)
	assert.Equal(t, StateHalfOpen, record.CircuitState)
	assert.True(t, record.IsAvailable)
}

func TestHalfOpenFailureReopensImmediately(t *testing.T) {
	store := NewStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	store.RecordFailure("openai", "timeout", 1)
	now = now.Add(2 * time.Minute)

	record := store.Get("openai", time.Minute)
	require.Equal(t, StateHalfOpen, record.CircuitState)

	// A single probe failure reopens even though the count is below threshold.
	store.RecordFailure("openai", "timeout", 10)

	record = store.Get("openai", time.Hour)
	assert.Equal(t, StateOpen, record.CircuitState)
	assert.False(t, record.IsAvailable)
}

func TestHalfOpenSuccessCloses(t *testing.T) {
	store := NewStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	store.RecordFailure("gemini", "http_503", 1)
	now = now.Add(2 * time.Minute)

	record := store.Get("gemini", time.Minute)
	require.Equal(t, StateHalfOpen, record.CircuitState)

	store.RecordSuccess("gemini", 90*time.Millisecond)

	record = store.Get("gemini", time.Minute)
	assert.Equal(t, StateClosed, record.CircuitState)
	assert.Equal(t, uint32(0), record.ConsecutiveFailures)
}

func TestListAvailable(t *testing.T) {
	store := NewStore()

	store.RecordSuccess("gemini", time.Millisecond)
	store.RecordFailure("claude", "http_503", 1)
	// openai never observed

	available := store.ListAvailable([]string{"gemini", "claude", "openai"}, time.Hour)
	assert.Equal(t, []string{"gemini", "openai"}, available)
}

func TestListAvailableIncludesExpiredOpen(t *testing.T) {
	store := NewStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	store.RecordFailure("claude", "http_503", 1)
	now = now.Add(2 * time.Minute)

	available := store.ListAvailable([]string{"claude"}, time.Minute)
	assert.Equal(t, []string{"claude"}, available)

	record := store.Get("claude", time.Minute)
	assert.Equal(t, StateHalfOpen, record.CircuitState)
}

func TestClearAll(t *testing.T) {
	store := NewStore()

	store.RecordFailure("gemini", "timeout", 1)
	store.RecordSuccess("claude", time.Millisecond)
	require.Len(t, store.Statuses(), 2)

	store.ClearAll()
	assert.Empty(t, store.Statuses())
	assert.Nil(t, store.Get("gemini", time.Minute))
}

func TestStatusesReturnsSnapshot(t *testing.T) {
	store := NewStore()
	store.RecordSuccess("gemini", time.Millisecond)

	statuses := store.Statuses()
	statuses["gemini"] = BackendHealth{BackendID: "gemini", CircuitState: StateOpen}

	record := store.Get("gemini", time.Minute)
	assert.Equal(t, StateClosed, record.CircuitState)
}

func TestConcurrentFailuresDoNotLoseUpdates(t *testing.T) {
	store := NewStore()

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				store.RecordFailure("gemini", fmt.Sprintf("err_%d", n), 100000)
			}
		}(i)
	}
	wg.Wait()

	record := store.Get("gemini", time.Hour)
	require.NotNil(t, record)
	assert.Equal(t, uint32(writers*perWriter), record.ConsecutiveFailures)
}
