package main

import (
	"errors"
	"fmt"
	"math"

	"github.com/iti/rngstream"

	"github.com/sarchlab/eeesim/monitoring"
	"github.com/sarchlab/eeesim/p2p/coalescing"
	"github.com/sarchlab/eeesim/p2p/framing"
	"github.com/sarchlab/eeesim/sim/timing"
)

type arrivalEvent struct{}

// poissonSource offers frames of a fixed size to a device, with exponential
// gaps between them, until a deadline.
type poissonSource struct {
	device   *coalescing.Comp
	engine   timing.EventScheduler
	rng      *rngstream.RngStream
	meanGap  timing.VTime
	until    timing.VTime
	payload  []byte
	progress *monitoring.ProgressBar

	sent    uint64
	dropped uint64
}

func newPoissonSource(
	device *coalescing.Comp,
	engine timing.EventScheduler,
	rng *rngstream.RngStream,
	frameSize int,
	meanGap, until timing.VTime,
) *poissonSource {
	if meanGap == 0 {
		panic("mean gap must be positive")
	}

	return &poissonSource{
		device:  device,
		engine:  engine,
		rng:     rng,
		meanGap: meanGap,
		until:   until,
		payload: make([]byte, frameSize),
	}
}

// expectedFrames is the mean number of frames the source offers.
func (s *poissonSource) expectedFrames() uint64 {
	return uint64(s.until / s.meanGap)
}

func (s *poissonSource) start() {
	s.scheduleNext()
}

func (s *poissonSource) scheduleNext() {
	u := s.rng.RandU01()
	gap := timing.FromSeconds(-math.Log(1-u) * s.meanGap.Seconds())

	next := s.engine.CurrentTime() + gap
	if next >= s.until {
		return
	}

	s.engine.Schedule(timing.ScheduledEvent{
		Event:   arrivalEvent{},
		Time:    next,
		Handler: s,
	})
}

func (s *poissonSource) Handle(event any) error {
	if _, ok := event.(arrivalEvent); !ok {
		return fmt.Errorf("traffic source cannot handle event of type %T",
			event)
	}

	err := s.device.Send(s.payload, s.device.Remote(), framing.ProtocolIPv4)

	switch {
	case errors.Is(err, coalescing.ErrQueueOverflow):
		s.dropped++
	case err != nil:
		return err
	default:
		s.sent++
	}

	if s.progress != nil {
		s.progress.IncrementFinished(1)
	}

	s.scheduleNext()

	return nil
}

// streamsFor returns one random stream per name. Streams are handed out in
// sequence, so the seed selects which block of streams a run uses.
func streamsFor(seed uint64, names ...string) []*rngstream.RngStream {
	for i := uint64(0); i < seed*uint64(len(names)); i++ {
		rngstream.New(fmt.Sprintf("skip%d", i))
	}

	streams := make([]*rngstream.RngStream, len(names))
	for i, name := range names {
		streams[i] = rngstream.New(name)
	}

	return streams
}
