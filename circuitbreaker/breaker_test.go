package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitOpensAtThreshold(t *testing.T) {
	hm := NewHealthManager(DefaultConfig())
	endpoint := "https://gemini-1.example.com"
	hm.InitializeEndpoints([]string{endpoint})

	hm.RecordFailure(endpoint)
	assert.True(t, hm.IsHealthy(endpoint), "one failure stays below the threshold")

	hm.RecordFailure(endpoint)
	assert.False(t, hm.IsHealthy(endpoint), "second failure opens the circuit")
}

func TestSuccessClosesCircuit(t *testing.T) {
	hm := NewHealthManager(DefaultConfig())
	endpoint := "https://gemini-1.example.com"
	hm.InitializeEndpoints([]string{endpoint})

	hm.RecordFailure(endpoint)
	hm.RecordFailure(endpoint)
	require.False(t, hm.IsHealthy(endpoint))

	hm.RecordSuccess(endpoint)
	assert.True(t, hm.IsHealthy(endpoint))

	// Failure count reset: the circuit needs the full threshold again.
	hm.RecordFailure(endpoint)
	assert.True(t, hm.IsHealthy(endpoint))
}

func TestOpenCircuitEligibleAfterBackoff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BackoffDuration = 10 * time.Millisecond
	cfg.MaxBackoffDuration = 10 * time.Millisecond
	hm := NewHealthManager(cfg)
	endpoint := "https://gemini-1.example.com"

	hm.RecordFailure(endpoint)
	hm.RecordFailure(endpoint)
	require.False(t, hm.IsHealthy(endpoint))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, hm.IsHealthy(endpoint), "half-open after the backoff window")
}

func TestBackoffIsCapped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BackoffDuration = 30 * time.Second
	cfg.MaxBackoffDuration = 1 * time.Minute
	hm := NewHealthManager(cfg)
	endpoint := "https://gemini-1.example.com"

	for i := 0; i < 10; i++ {
		hm.RecordFailure(endpoint)
	}

	hm.healthMutex.RLock()
	retryAt := hm.healthMap[endpoint].NextRetryTime
	hm.healthMutex.RUnlock()

	assert.WithinDuration(t, time.Now().Add(cfg.MaxBackoffDuration), retryAt, 2*time.Second)
}

func TestSelectHealthyEndpointRoundRobin(t *testing.T) {
	hm := NewHealthManager(DefaultConfig())
	endpoints := []string{"https://a.example.com", "https://b.example.com"}
	hm.InitializeEndpoints(endpoints)

	index := 0
	assert.Equal(t, "https://a.example.com", hm.SelectHealthyEndpoint(endpoints, &index))
	assert.Equal(t, "https://b.example.com", hm.SelectHealthyEndpoint(endpoints, &index))
	assert.Equal(t, "https://a.example.com", hm.SelectHealthyEndpoint(endpoints, &index))
}

func TestSelectHealthyEndpointSkipsOpenCircuit(t *testing.T) {
	hm := NewHealthManager(DefaultConfig())
	endpoints := []string{"https://a.example.com", "https://b.example.com"}
	hm.InitializeEndpoints(endpoints)

	hm.RecordFailure("https://a.example.com")
	hm.RecordFailure("https://a.example.com")

	index := 0
	for i := 0; i < 3; i++ {
		assert.Equal(t, "https://b.example.com", hm.SelectHealthyEndpoint(endpoints, &index))
	}
}

func TestSelectHealthyEndpointFallbackWhenAllOpen(t *testing.T) {
	hm := NewHealthManager(DefaultConfig())
	endpoints := []string{"https://a.example.com", "https://b.example.com"}
	hm.InitializeEndpoints(endpoints)

	for _, e := range endpoints {
		hm.RecordFailure(e)
		hm.RecordFailure(e)
	}

	index := 0
	assert.NotEmpty(t, hm.SelectHealthyEndpoint(endpoints, &index), "always returns something as a last resort")
}

func TestSelectHealthyEndpointEmptyList(t *testing.T) {
	hm := NewHealthManager(DefaultConfig())
	index := 0
	assert.Equal(t, "", hm.SelectHealthyEndpoint(nil, &index))
}
