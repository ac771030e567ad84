package main

import (
	"fmt"
	"io"

	"github.com/go-logr/logr"

	"github.com/sarchlab/segsim/harness"
	"github.com/sarchlab/segsim/mmu"
	"github.com/sarchlab/segsim/segment"
	"github.com/sarchlab/segsim/stimulus"
)

// monitor steps a suite one step at a time and keeps what the views show.
type monitor struct {
	suite      *stimulus.Suite
	config     *mmu.Config
	controller *mmu.Controller
	log        logr.Logger

	pos      int
	last     *mmu.Outputs
	lastStep *stimulus.Step
	failures int
}

func newMonitor(suite *stimulus.Suite, base *mmu.Config, log logr.Logger) (*monitor, error) {
	m := &monitor{
		suite:  suite,
		config: suite.Config(base),
		log:    log,
	}
	if err := m.restart(); err != nil {
		return nil, err
	}
	return m, nil
}

// restart rewinds to the first step with a fresh unit.
func (m *monitor) restart() error {
	c, err := mmu.NewController(m.config, mmu.WithLogger(m.log))
	if err != nil {
		return err
	}

	m.controller = c
	m.pos = 0
	m.last = nil
	m.lastStep = nil
	m.failures = 0
	return nil
}

func (m *monitor) done() bool {
	return m.pos >= len(m.suite.Steps)
}

// step applies the next step. Returns false at the end of the suite.
func (m *monitor) step() bool {
	if m.done() {
		return false
	}

	s := &m.suite.Steps[m.pos]
	out := m.controller.Step(s.Inputs())
	m.last = &out
	m.lastStep = s
	m.pos++

	if !m.lastPassed() {
		m.failures++
		m.log.Info("expectation failed", "step", m.pos-1)
	}
	return true
}

// runToEnd applies every remaining step.
func (m *monitor) runToEnd() {
	for m.step() {
	}
}

func (m *monitor) lastPassed() bool {
	if m.last == nil || m.lastStep.Expect == nil {
		return true
	}
	got := harness.Observe(*m.last)
	return harness.Expected(m.lastStep.Expect, got) == got
}

func (m *monitor) renderTable(w io.Writer) {
	t := m.controller.Table()
	fmt.Fprintf(w, "grp  %-10s %-10s %-10s %-10s flags\n", "pbase", "lbase", "mask", "status")
	for i, d := range t {
		fmt.Fprintf(w, "%d    %08X   %08X   %08X   %08X   %s\n",
			i, d.PhysicalBase, d.LogicalBase, d.Mask, d.Status.Pack(), d.Status)
	}
}

func (m *monitor) renderOutputs(w io.Writer) {
	fmt.Fprintf(w, "suite  %s\n", m.suite.Name)
	fmt.Fprintf(w, "step   %d/%d\n", m.pos, len(m.suite.Steps))
	if m.last == nil {
		return
	}

	s := m.lastStep
	fmt.Fprintf(w, "op     %s %s", s.Op, s.Addr)
	switch {
	case s.Op == stimulus.OpWrite:
		fmt.Fprintf(w, " <- %s", s.Data)
	case s.Op == stimulus.OpTranslate && s.Write:
		fmt.Fprint(w, " (write)")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "phys   %s\n", m.last.PhysicalAddress)
	fmt.Fprintf(w, "seg    %t\n", m.last.SegFault)
	fmt.Fprintf(w, "prot   %t\n", m.last.ProtFault)
	fmt.Fprintf(w, "data   %s\n", m.last.DataOut)

	switch {
	case s.Expect == nil:
	case m.lastPassed():
		fmt.Fprintln(w, "check  ok")
	default:
		fmt.Fprintln(w, "check  MISMATCH")
	}
	if m.failures > 0 {
		fmt.Fprintf(w, "fails  %d\n", m.failures)
	}
}

// renderNext shows the upcoming steps.
func (m *monitor) renderNext(w io.Writer, n int) {
	for i := m.pos; i < len(m.suite.Steps) && i < m.pos+n; i++ {
		s := m.suite.Steps[i]
		fmt.Fprintf(w, "%3d %-9s %s", i, s.Op, s.Addr)
		if s.Comment != "" {
			fmt.Fprintf(w, "  # %s", s.Comment)
		}
		fmt.Fprintln(w)
	}
}

// table returns the current segment table.
func (m *monitor) table() segment.Table {
	return m.controller.Table()
}
