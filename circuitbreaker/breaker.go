package circuitbreaker

import (
	"log"
	"sync"
	"time"
)

// EndpointHealth tracks the health status of one Gemini endpoint.
type EndpointHealth struct {
	URL             string    `json:"url"`
	FailureCount    int       `json:"failure_count"`
	SuccessCount    int       `json:"success_count"`
	TotalRequests   int       `json:"total_requests"`
	LastFailureTime time.Time `json:"last_failure_time"`
	LastSuccessTime time.Time `json:"last_success_time"`
	CircuitOpen     bool      `json:"circuit_open"`
	NextRetryTime   time.Time `json:"next_retry_time"`
}

// Config controls circuit breaker behavior.
type Config struct {
	FailureThreshold   int           `json:"failure_threshold"`
	BackoffDuration    time.Duration `json:"backoff_duration"`
	MaxBackoffDuration time.Duration `json:"max_backoff_duration"`
	ResetTimeout       time.Duration `json:"reset_timeout"`
}

// DefaultConfig returns sensible defaults: open after 2 consecutive
// failures, 30s initial backoff capped at 5 minutes.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:   2,
		BackoffDuration:    30 * time.Second,
		MaxBackoffDuration: 5 * time.Minute,
		ResetTimeout:       1 * time.Minute,
	}
}

// HealthManager tracks per-endpoint health and drives endpoint selection
// when multiple Gemini endpoints are configured.
type HealthManager struct {
	config      Config
	healthMap   map[string]*EndpointHealth
	healthMutex sync.RWMutex
}

// NewHealthManager creates a health manager with the given breaker config.
func NewHealthManager(config Config) *HealthManager {
	return &HealthManager{
		config:    config,
		healthMap: make(map[string]*EndpointHealth),
	}
}

// InitializeEndpoints seeds health tracking for all configured endpoints.
func (hm *HealthManager) InitializeEndpoints(endpoints []string) {
	hm.healthMutex.Lock()
	defer hm.healthMutex.Unlock()

	for _, endpoint := range endpoints {
		if _, exists := hm.healthMap[endpoint]; !exists {
			hm.healthMap[endpoint] = &EndpointHealth{URL: endpoint}
		}
	}
}

// RecordFailure marks an endpoint as failed and opens its circuit once the
// failure threshold is exceeded, with exponential backoff capped at the
// configured maximum.
func (hm *HealthManager) RecordFailure(endpoint string) {
	hm.healthMutex.Lock()
	defer hm.healthMutex.Unlock()

	health, exists := hm.healthMap[endpoint]
	if !exists {
		health = &EndpointHealth{URL: endpoint}
		hm.healthMap[endpoint] = health
	}

	health.FailureCount++
	health.TotalRequests++
	health.LastFailureTime = time.Now()

	if health.FailureCount >= hm.config.FailureThreshold {
		health.CircuitOpen = true

		failuresOverThreshold := health.FailureCount - hm.config.FailureThreshold + 1
		if failuresOverThreshold < 1 {
			failuresOverThreshold = 1
		}
		backoff := time.Duration(int64(hm.config.BackoffDuration) * int64(failuresOverThreshold))
		if backoff > hm.config.MaxBackoffDuration {
			backoff = hm.config.MaxBackoffDuration
		}
		health.NextRetryTime = time.Now().Add(backoff)

		log.Printf("🚨 Circuit breaker opened for Gemini endpoint %s (failures: %d, retry in: %v)",
			endpoint, health.FailureCount, backoff)
	} else {
		log.Printf("⚠️ Gemini endpoint failure recorded: %s (failures: %d/%d)",
			endpoint, health.FailureCount, hm.config.FailureThreshold)
	}
}

// RecordSuccess marks an endpoint as successful, closing an open circuit
// and resetting the failure count.
func (hm *HealthManager) RecordSuccess(endpoint string) {
	hm.healthMutex.Lock()
	defer hm.healthMutex.Unlock()

	health, exists := hm.healthMap[endpoint]
	if !exists {
		health = &EndpointHealth{URL: endpoint}
		hm.healthMap[endpoint] = health
	}

	health.SuccessCount++
	health.TotalRequests++
	health.LastSuccessTime = time.Now()

	if health.CircuitOpen {
		health.CircuitOpen = false
		health.FailureCount = 0
		health.NextRetryTime = time.Time{}
		log.Printf("✅ Circuit breaker closed for Gemini endpoint %s (recovered)", endpoint)
	} else if health.FailureCount > 0 {
		health.FailureCount = 0
	}
}

// IsHealthy reports whether an endpoint is available. Endpoints with an
// open circuit become eligible again once their retry time has passed.
func (hm *HealthManager) IsHealthy(endpoint string) bool {
	hm.healthMutex.RLock()
	defer hm.healthMutex.RUnlock()

	health, exists := hm.healthMap[endpoint]
	if !exists {
		return true
	}
	if health.CircuitOpen {
		return time.Now().After(health.NextRetryTime)
	}
	return true
}

// SelectHealthyEndpoint returns the next healthy endpoint round-robin,
// advancing currentIndex. When every endpoint is unhealthy the next one is
// returned anyway as a last resort.
func (hm *HealthManager) SelectHealthyEndpoint(endpoints []string, currentIndex *int) string {
	if len(endpoints) == 0 {
		return ""
	}

	for attempts := 0; attempts < len(endpoints); attempts++ {
		endpoint := endpoints[*currentIndex]
		*currentIndex = (*currentIndex + 1) % len(endpoints)
		if hm.IsHealthy(endpoint) {
			return endpoint
		}
		log.Printf("⚠️ Skipping unhealthy Gemini endpoint: %s", endpoint)
	}

	endpoint := endpoints[*currentIndex]
	*currentIndex = (*currentIndex + 1) % len(endpoints)
	log.Printf("⚠️ No healthy Gemini endpoints found, using fallback: %s", endpoint)
	return endpoint
}
