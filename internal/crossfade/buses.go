package crossfade

import (
	"sync"

	"github.com/tessro/riffdeck/internal/deck"
)

// MeterBuses records bus gains in memory for the console meters.
type MeterBuses struct {
	mu    sync.RWMutex
	gains [2]float64
}

// NewMeterBuses returns buses with both gains at zero.
func NewMeterBuses() *MeterBuses {
	return &MeterBuses{}
}

// SetGain implements Buses.
func (m *MeterBuses) SetGain(l deck.Label, gain float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gains[l] = gain
}

// Gain returns the last gain set on deck l's bus.
func (m *MeterBuses) Gain(l deck.Label) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gains[l]
}

var _ Buses = (*MeterBuses)(nil)
