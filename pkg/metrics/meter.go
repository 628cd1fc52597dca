// Package metrics aggregates per-endpoint delivery counters so an
// operator can see which endpoints are unreachable without digging
// through logs.
package metrics

import (
	"maps"
	"sync"
	"time"
)

// EndpointMeter tracks delivery outcomes for one endpoint.
type EndpointMeter struct {
	Endpoint     string    `json:"endpoint"`
	Sends        int64     `json:"sends"`
	Failures     int64     `json:"failures"`
	LastError    string    `json:"last_error,omitempty"`
	LastActivity time.Time `json:"last_activity"`
}

// DeliveryMeterStore aggregates delivery metrics across endpoints.
type DeliveryMeterStore struct {
	mu     sync.RWMutex
	meters map[string]*EndpointMeter
}

func NewDeliveryMeterStore() *DeliveryMeterStore {
	return &DeliveryMeterStore{
		meters: make(map[string]*EndpointMeter),
	}
}

// RecordSend counts a successful delivery to endpoint.
func (s *DeliveryMeterStore) RecordSend(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.meter(endpoint)
	m.Sends++
	m.LastActivity = time.Now()
}

// RecordFailure counts a failed delivery attempt to endpoint.
func (s *DeliveryMeterStore) RecordFailure(endpoint string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.meter(endpoint)
	m.Failures++
	m.LastActivity = time.Now()
	if err != nil {
		m.LastError = err.Error()
	}
}

// meter returns the meter for endpoint, creating it if needed.
// Caller holds the lock.
func (s *DeliveryMeterStore) meter(endpoint string) *EndpointMeter {
	m, ok := s.meters[endpoint]
	if !ok {
		m = &EndpointMeter{Endpoint: endpoint}
		s.meters[endpoint] = m
	}
	return m
}

// GetMeter returns metrics for a specific endpoint.
func (s *DeliveryMeterStore) GetMeter(endpoint string) (*EndpointMeter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meters[endpoint]
	return m, ok
}

// Snapshot returns a copy of all endpoint meters.
func (s *DeliveryMeterStore) Snapshot() map[string]*EndpointMeter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]*EndpointMeter, len(s.meters))
	maps.Copy(result, s.meters)
	return result
}
