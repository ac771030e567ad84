// Package clock drives the segment unit from an Akita ticking component, so
// the unit can take part in a larger clocked simulation.
// Each clock cycle consumes exactly one queued input and records its outputs.
package clock

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/segsim/mmu"
)

// Sample is the record of one clock cycle.
type Sample struct {
	Cycle   uint64
	Inputs  mmu.Inputs
	Outputs mmu.Outputs
}

// Stats holds performance statistics for the clocked unit.
type Stats struct {
	// Cycles is the number of cycles that serviced an input.
	Cycles uint64
	// Unit holds the controller's access counters.
	Unit mmu.Stats
}

// Unit is a clocked segment unit.
type Unit struct {
	*sim.TickingComponent

	// Controller is the underlying per-step unit.
	Controller *mmu.Controller

	engine  sim.Engine
	pending []mmu.Inputs
	trace   []Sample
	cycles  uint64
}

// Builder constructs Units.
type Builder struct {
	engine   sim.Engine
	freq     sim.Freq
	config   *mmu.Config
	ctrlOpts []mmu.ControllerOption
}

// MakeBuilder returns a Builder with the default unit configuration.
func MakeBuilder() Builder {
	return Builder{
		freq:   1 * sim.GHz,
		config: mmu.DefaultConfig(),
	}
}

// WithEngine sets the event engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the clock frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithConfig sets the unit configuration; its ClockFreqMHz sets the clock.
func (b Builder) WithConfig(config *mmu.Config) Builder {
	b.config = config
	b.freq = sim.Freq(config.ClockFreqMHz) * sim.MHz
	return b
}

// WithControllerOptions passes options through to the controller.
func (b Builder) WithControllerOptions(opts ...mmu.ControllerOption) Builder {
	b.ctrlOpts = append(b.ctrlOpts, opts...)
	return b
}

// Build creates the Unit.
func (b Builder) Build(name string) (*Unit, error) {
	controller, err := mmu.NewController(b.config, b.ctrlOpts...)
	if err != nil {
		return nil, err
	}

	u := &Unit{Controller: controller, engine: b.engine}
	u.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, u)
	return u, nil
}

// Feed queues inputs, one per cycle, and wakes the unit.
func (u *Unit) Feed(inputs ...mmu.Inputs) {
	u.pending = append(u.pending, inputs...)
	if len(inputs) > 0 {
		u.TickLater()
	}
}

// Pending returns the number of queued inputs.
func (u *Unit) Pending() int {
	return len(u.pending)
}

// Tick services one queued input. It reports no progress once the queue is
// empty, which lets the engine go idle.
func (u *Unit) Tick() bool {
	if len(u.pending) == 0 {
		return false
	}

	in := u.pending[0]
	u.pending = u.pending[1:]

	out := u.Controller.Step(in)
	u.trace = append(u.trace, Sample{Cycle: u.cycles, Inputs: in, Outputs: out})
	u.cycles++

	return true
}

// Run drives the engine until every queued input has been serviced.
func (u *Unit) Run() error {
	return u.engine.Run()
}

// RunCycles ticks the unit directly, without an engine, for up to n cycles.
// Returns true if inputs remain queued.
func (u *Unit) RunCycles(n uint64) bool {
	for i := uint64(0); i < n; i++ {
		if !u.Tick() {
			break
		}
	}
	return len(u.pending) > 0
}

// Trace returns the recorded samples.
func (u *Unit) Trace() []Sample {
	return u.trace
}

// Stats returns cycle and access counters.
func (u *Unit) Stats() Stats {
	return Stats{
		Cycles: u.cycles,
		Unit:   u.Controller.Stats(),
	}
}

// Reset drops queued inputs and the trace, and resets the controller.
func (u *Unit) Reset() {
	u.pending = nil
	u.trace = nil
	u.cycles = 0
	u.Controller.Reset()
	u.Controller.ResetStats()
}
