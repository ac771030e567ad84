// Package harness replays stimulus suites against the segment unit and checks
// the outputs of every step against the suite's expectations.
package harness

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/segsim/mmu"
	"github.com/sarchlab/segsim/segment"
	"github.com/sarchlab/segsim/stimulus"
	"github.com/sarchlab/segsim/timing/clock"
)

// Observed is the part of the unit's outputs that a step can check.
type Observed struct {
	PhysicalAddress string `json:"phys"`
	SegFault        bool   `json:"seg_fault"`
	ProtFault       bool   `json:"prot_fault"`
	// Data is the data bus, ZZZZZZZZ when undriven.
	Data string `json:"data"`
}

// Mismatch is a step whose outputs differ from its expectation.
type Mismatch struct {
	Step    int         `json:"step"`
	Op      stimulus.Op `json:"op"`
	Comment string      `json:"comment,omitempty"`
	Want    Observed    `json:"want"`
	Got     Observed    `json:"got"`
	// Diff is a human-readable (-want +got) diff.
	Diff string `json:"diff"`
}

// StepRecord is the trace entry of one step.
type StepRecord struct {
	Step    int         `json:"step"`
	Op      stimulus.Op `json:"op"`
	Addr    string      `json:"addr"`
	Outputs Observed    `json:"outputs"`
}

// Result holds the outcome of one suite run.
type Result struct {
	// RunID identifies the harness run that produced the result.
	RunID       string `json:"run_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Steps      int        `json:"steps"`
	Checked    int        `json:"checked"`
	Passed     bool       `json:"passed"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`

	Cycles uint64    `json:"cycles"`
	Stats  mmu.Stats `json:"stats"`

	// Final is the segment table after the last step.
	Final segment.Table `json:"-"`

	// Trace is filled only when Config.Trace is set.
	Trace []StepRecord `json:"trace,omitempty"`

	WallTime time.Duration `json:"wall_time_ns"`
}

// Config configures the harness.
type Config struct {
	// Unit is the base unit configuration; suites may override parts of it.
	Unit *mmu.Config

	// Parallelism bounds the number of suites run at once. Zero or less
	// runs every suite concurrently.
	Parallelism int

	// Trace records every step's outputs in the results.
	Trace bool

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose prints each mismatch diff.
	Verbose bool

	Logger logr.Logger
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() Config {
	return Config{
		Unit:        mmu.DefaultConfig(),
		Parallelism: 4,
		Output:      os.Stdout,
		Logger:      logr.Discard(),
	}
}

// Harness runs stimulus suites.
type Harness struct {
	config Config
	runID  xid.ID
	suites []*stimulus.Suite
}

// NewHarness creates a new harness.
func NewHarness(config Config) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Unit == nil {
		config.Unit = mmu.DefaultConfig()
	}
	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
	}

	return &Harness{
		config: config,
		runID:  xid.New(),
	}
}

// RunID returns the identifier shared by every result of this harness.
func (h *Harness) RunID() string {
	return h.runID.String()
}

// AddSuite adds a suite to the harness.
func (h *Harness) AddSuite(s *stimulus.Suite) {
	h.suites = append(h.suites, s)
}

// AddSuites adds multiple suites to the harness.
func (h *Harness) AddSuites(suites []*stimulus.Suite) {
	h.suites = append(h.suites, suites...)
}

// RunAll runs every suite and returns the results in the order the suites
// were added. Each suite gets its own unit, so suites run concurrently.
func (h *Harness) RunAll(ctx context.Context) ([]Result, error) {
	results := make([]Result, len(h.suites))

	g, ctx := errgroup.WithContext(ctx)
	if h.config.Parallelism > 0 {
		g.SetLimit(h.config.Parallelism)
	}

	for i, s := range h.suites {
		i, s := i, s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			r, err := h.Run(s)
			if err != nil {
				return fmt.Errorf("suite %q: %w", s.Name, err)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Run replays one suite on a fresh clocked unit.
func (h *Harness) Run(s *stimulus.Suite) (Result, error) {
	start := time.Now()
	log := h.config.Logger.WithValues("suite", s.Name, "run", h.runID.String())

	engine := sim.NewSerialEngine()
	unit, err := clock.MakeBuilder().
		WithEngine(engine).
		WithConfig(s.Config(h.config.Unit)).
		WithControllerOptions(mmu.WithLogger(log)).
		Build("SegUnit")
	if err != nil {
		return Result{}, err
	}

	inputs := make([]mmu.Inputs, len(s.Steps))
	for i, step := range s.Steps {
		inputs[i] = step.Inputs()
	}
	unit.Feed(inputs...)

	if err := unit.Run(); err != nil {
		return Result{}, fmt.Errorf("simulation failed: %w", err)
	}

	trace := unit.Trace()
	if len(trace) != len(s.Steps) {
		return Result{}, fmt.Errorf("unit serviced %d of %d steps", len(trace), len(s.Steps))
	}

	result := Result{
		RunID:       h.runID.String(),
		Name:        s.Name,
		Description: s.Description,
		Steps:       len(s.Steps),
	}

	for i, step := range s.Steps {
		got := Observe(trace[i].Outputs)

		if h.config.Trace {
			result.Trace = append(result.Trace, StepRecord{
				Step:    i,
				Op:      step.Op,
				Addr:    step.Addr.String(),
				Outputs: got,
			})
		}

		if step.Expect == nil {
			continue
		}
		result.Checked++

		want := Expected(step.Expect, got)
		if diff := cmp.Diff(want, got); diff != "" {
			result.Mismatches = append(result.Mismatches, Mismatch{
				Step:    i,
				Op:      step.Op,
				Comment: step.Comment,
				Want:    want,
				Got:     got,
				Diff:    diff,
			})
			log.V(1).Info("mismatch", "step", i, "op", string(step.Op))
		}
	}

	stats := unit.Stats()
	result.Cycles = stats.Cycles
	result.Stats = stats.Unit
	result.Final = unit.Controller.Table()
	result.Passed = len(result.Mismatches) == 0
	result.WallTime = time.Since(start)

	log.Info("suite finished", "passed", result.Passed, "steps", result.Steps)
	return result, nil
}

// Observe extracts the checkable outputs.
func Observe(out mmu.Outputs) Observed {
	return Observed{
		PhysicalAddress: out.PhysicalAddress.String(),
		SegFault:        out.SegFault,
		ProtFault:       out.ProtFault,
		Data:            out.DataOut.String(),
	}
}

// Expected returns got with every field named by e replaced by its expected
// value, so that a diff against got shows only checked fields.
func Expected(e *stimulus.Expect, got Observed) Observed {
	want := got
	if e.PhysicalAddress != nil {
		want.PhysicalAddress = mmu.PhysicalAddress(*e.PhysicalAddress).String()
	}
	if e.SegFault != nil {
		want.SegFault = *e.SegFault
	}
	if e.ProtFault != nil {
		want.ProtFault = *e.ProtFault
	}
	if e.Data != nil {
		want.Data = mmu.Drive(uint32(*e.Data)).String()
	}
	if e.Undriven != nil {
		undriven := mmu.Undriven.String()
		switch {
		case *e.Undriven:
			want.Data = undriven
		case got.Data == undriven && e.Data == nil:
			want.Data = "driven"
		}
	}
	return want
}
