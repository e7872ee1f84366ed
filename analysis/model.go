// Package analysis evaluates the measurement records of coalescing devices
// against an analytical model of EEE with packet coalescing.
package analysis

import (
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"
)

// Params are the constants of the energy model. Times are in seconds.
type Params struct {
	// SleepTime (Ts) is the time needed to enter low power.
	SleepTime float64

	// WakeTime (Tw) is the time needed to leave low power.
	WakeTime float64

	// PhiOff is the relative power drawn in low power.
	PhiOff float64

	// ByteLimit (C) is the coalescing byte limit of the devices.
	ByteLimit float64

	// Timeout (To) is the coalescing timeout of the devices.
	Timeout float64

	// MaxBatch bounds the sums over the number of frames in a batch.
	MaxBatch int
}

// DefaultParams returns the constants of a 10 Gbps link.
func DefaultParams() Params {
	return Params{
		SleepTime: 2.88e-6,
		WakeTime:  4.48e-6,
		PhiOff:    0.1,
		ByteLimit: 24000,
		Timeout:   800e-6,
		MaxBatch:  3500,
	}
}

// Phi is the energy consumed by a link relative to a link that never leaves
// the active state, for a load rho and a mean off time etoff.
func (p Params) Phi(rho, etoff float64) float64 {
	return 1 - (1-p.PhiOff)*(1-rho)*etoff/(etoff+p.SleepTime+p.WakeTime)
}

// extraWait is how much longer than the sleep time the mean inter-arrival
// gap is.
func (p Params) extraWait(lambda float64) float64 {
	return math.Max(0, 1/lambda-p.SleepTime)
}

// gammaTerm is the expected part of the off time bounded by lt, for a batch
// that closes after x+1 arrivals.
func gammaTerm(x int, lt, lambda float64) float64 {
	a := float64(x)

	return (mathext.GammaIncRegComp(a+2, lt)*(a+1) -
		lt*mathext.GammaIncRegComp(a+1, lt)) / lambda
}

// ModelEToff is the expected low-power interval length for Poisson arrivals
// at rate lambda (frames per second) of frames of meanSize bytes.
func (p Params) ModelEToff(lambda, meanSize float64) float64 {
	batch := distuv.Poisson{Lambda: p.ByteLimit / meanSize}

	lts := lambda * p.SleepTime
	lto := lambda*p.Timeout + lambda*(p.extraWait(lambda)+p.SleepTime)

	var byteLimited, timeoutProb float64
	for x := 1; x < p.MaxBatch; x++ {
		pmf := batch.Prob(float64(x))
		byteLimited += pmf * (gammaTerm(x, lts, lambda) - gammaTerm(x, lto, lambda))
		timeoutProb += pmf * mathext.GammaIncRegComp(float64(x)+1, lto)
	}

	timedOut := p.Timeout + p.extraWait(lambda) - p.SleepTime

	return (1-timeoutProb)*byteLimited + timeoutProb*timedOut
}

// ModelPhi is the relative energy the model predicts.
func (p Params) ModelPhi(lambda, meanSize, rho float64) float64 {
	return p.Phi(rho, p.ModelEToff(lambda, meanSize))
}
