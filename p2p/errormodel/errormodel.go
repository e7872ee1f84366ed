// Package errormodel decides which received frames arrive corrupted.
package errormodel

import (
	"log"
	"math"
	"sync"

	"github.com/iti/rngstream"

	"github.com/sarchlab/eeesim/p2p"
)

// An ErrorModel decides whether a received frame is corrupted. Corrupted
// frames are dropped by the receiver.
type ErrorModel interface {
	IsCorrupt(f *p2p.Frame) bool
}

// Unit is the granularity a RateErrorModel applies its rate to.
type Unit int

// The units of a RateErrorModel.
const (
	UnitFrame Unit = iota
	UnitByte
	UnitBit
)

// RateErrorModel corrupts frames at random with a fixed rate per unit.
type RateErrorModel struct {
	lock    sync.Mutex
	rng     *rngstream.RngStream
	rate    float64
	unit    Unit
	enabled bool
}

// NewRateErrorModel creates an enabled RateErrorModel. The name selects the
// random stream so that models with different names are independent.
func NewRateErrorModel(name string, rate float64, unit Unit) *RateErrorModel {
	if rate < 0 || rate > 1 || math.IsNaN(rate) {
		log.Panicf("error rate must be in [0, 1], got %f", rate)
	}

	return &RateErrorModel{
		rng:     rngstream.New(name),
		rate:    rate,
		unit:    unit,
		enabled: true,
	}
}

// Enable turns the model on.
func (m *RateErrorModel) Enable() {
	m.lock.Lock()
	m.enabled = true
	m.lock.Unlock()
}

// Disable makes the model report every frame as intact.
func (m *RateErrorModel) Disable() {
	m.lock.Lock()
	m.enabled = false
	m.lock.Unlock()
}

// IsCorrupt draws whether the frame is corrupted.
func (m *RateErrorModel) IsCorrupt(f *p2p.Frame) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	if !m.enabled {
		return false
	}

	return m.rng.RandU01() < m.frameErrorProbability(f.Size())
}

func (m *RateErrorModel) frameErrorProbability(size int) float64 {
	switch m.unit {
	case UnitFrame:
		return m.rate
	case UnitByte:
		return 1 - math.Pow(1-m.rate, float64(size))
	case UnitBit:
		return 1 - math.Pow(1-m.rate, float64(size*8))
	default:
		log.Panicf("unknown error unit %d", m.unit)
	}

	return 0
}

// ListErrorModel corrupts exactly the frames whose IDs it is given.
type ListErrorModel struct {
	lock    sync.Mutex
	ids     map[string]bool
	enabled bool
}

// NewListErrorModel creates an enabled ListErrorModel.
func NewListErrorModel(ids ...string) *ListErrorModel {
	m := &ListErrorModel{
		ids:     make(map[string]bool),
		enabled: true,
	}
	m.SetList(ids)

	return m
}

// SetList replaces the IDs of the frames to corrupt.
func (m *ListErrorModel) SetList(ids []string) {
	m.lock.Lock()
	defer m.lock.Unlock()

	clear(m.ids)

	for _, id := range ids {
		m.ids[id] = true
	}
}

// Enable turns the model on.
func (m *ListErrorModel) Enable() {
	m.lock.Lock()
	m.enabled = true
	m.lock.Unlock()
}

// Disable makes the model report every frame as intact.
func (m *ListErrorModel) Disable() {
	m.lock.Lock()
	m.enabled = false
	m.lock.Unlock()
}

// IsCorrupt reports whether the frame ID is on the list.
func (m *ListErrorModel) IsCorrupt(f *p2p.Frame) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.enabled && m.ids[f.ID]
}

var (
	_ ErrorModel = (*RateErrorModel)(nil)
	_ ErrorModel = (*ListErrorModel)(nil)
)
