package mmu

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/segsim/decode"
	"github.com/sarchlab/segsim/segment"
)

// Stats holds access counters for the controller.
type Stats struct {
	// Steps is the total number of steps taken, resets included.
	Steps uint64
	// Resets is the number of reset steps.
	Resets uint64
	// Translations is the number of translation-mode steps.
	Translations uint64
	// RegisterReads is the number of register read steps.
	RegisterReads uint64
	// RegisterWrites is the number of register write steps.
	RegisterWrites uint64
	// SegFaults counts translations that asserted the segmentation fault.
	SegFaults uint64
	// ProtFaults counts steps that asserted the protection fault.
	ProtFaults uint64
	// DisabledMatches counts translations stopped by a disabled descriptor.
	DisabledMatches uint64
}

// Controller owns the segment table and the registered outputs, and applies
// one Engine step per call. It is not safe for concurrent use.
type Controller struct {
	engine *Engine
	state  State
	stats  Stats
	log    logr.Logger
}

// ControllerOption is a functional option for configuring the Controller.
type ControllerOption func(*Controller)

// WithLogger sets the logger. Faults and resets are logged at V(1),
// register traffic at V(2).
func WithLogger(log logr.Logger) ControllerOption {
	return func(c *Controller) {
		c.log = log
	}
}

// WithTable sets the initial table instead of the reset image.
func WithTable(t segment.Table) ControllerOption {
	return func(c *Controller) {
		c.state.Table = t
	}
}

// NewController creates a Controller in its post-reset state.
func NewController(config *Config, opts ...ControllerOption) (*Controller, error) {
	engine, err := NewEngine(config)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		engine: engine,
		state:  engine.ResetState(),
		log:    logr.Discard(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Step applies one clock step and returns the outputs it produced.
func (c *Controller) Step(in Inputs) Outputs {
	next, access := c.engine.Step(c.state, in)
	c.state = next
	c.record(in, access)
	return next.Outputs
}

// Reset applies a reset step.
func (c *Controller) Reset() Outputs {
	return c.Step(Inputs{Reset: true})
}

// ReadRegister performs a register read step and returns the word read.
func (c *Controller) ReadRegister(group int, field segment.Field) uint32 {
	out := c.Step(Inputs{
		Mode:    ModeRegisterAccess,
		Address: decode.RegisterAddress(group, field),
	})
	v, _ := out.DataOut.Value()
	return v
}

// WriteRegister performs a register write step.
func (c *Controller) WriteRegister(group int, field segment.Field, value uint32) Outputs {
	return c.Step(Inputs{
		Mode:    ModeRegisterAccess,
		Address: decode.RegisterAddress(group, field),
		Write:   true,
		Data:    value,
	})
}

// Install writes all four words of a descriptor, status last, so the
// descriptor only becomes enabled once its mapping is complete.
func (c *Controller) Install(group int, d segment.Descriptor) Outputs {
	c.WriteRegister(group, segment.FieldPhysicalBase, d.PhysicalBase)
	c.WriteRegister(group, segment.FieldLogicalBase, d.LogicalBase)
	c.WriteRegister(group, segment.FieldMask, d.Mask)
	return c.WriteRegister(group, segment.FieldStatus, d.Status.Pack())
}

// Translate performs a translation step.
func (c *Controller) Translate(addr uint32, write bool) Outputs {
	return c.Step(Inputs{Mode: ModeTranslate, Address: addr, Write: write})
}

// Table returns a copy of the segment table.
func (c *Controller) Table() segment.Table {
	return c.state.Table
}

// Outputs returns the current registered outputs.
func (c *Controller) Outputs() Outputs {
	return c.state.Outputs
}

// State returns a copy of the full unit state.
func (c *Controller) State() State {
	return c.state
}

// Stats returns access counters.
func (c *Controller) Stats() Stats {
	return c.stats
}

// ResetStats clears access counters.
func (c *Controller) ResetStats() {
	c.stats = Stats{}
}

func (c *Controller) record(in Inputs, access Access) {
	c.stats.Steps++
	out := c.state.Outputs

	switch access.Kind {
	case AccessReset:
		c.stats.Resets++
		c.log.V(1).Info("reset")
		return
	case AccessRegisterRead:
		c.stats.RegisterReads++
		v, _ := out.DataOut.Value()
		c.log.V(2).Info("register read",
			"group", access.Group,
			"field", decode.RegisterAccess(in.Address).Field.String(),
			"value", hex32(v))
		return
	case AccessRegisterWrite, AccessRegisterProtFault:
		c.stats.RegisterWrites++
		c.log.V(2).Info("register write",
			"group", access.Group,
			"field", decode.RegisterAccess(in.Address).Field.String(),
			"value", hex32(in.Data))
		if access.Kind == AccessRegisterProtFault {
			c.stats.ProtFaults++
			c.log.V(1).Info("protection fault on register write", "group", access.Group)
		}
		return
	}

	c.stats.Translations++
	switch access.Kind {
	case AccessSegFault:
		c.stats.SegFaults++
		c.log.V(1).Info("segmentation fault", "addr", hex32(in.Address), "write", in.Write)
	case AccessDisabledMatch:
		c.stats.DisabledMatches++
		if out.SegFault {
			c.stats.SegFaults++
		}
		c.log.V(1).Info("disabled segment matched",
			"addr", hex32(in.Address), "group", access.Group, "segFault", out.SegFault)
	case AccessTranslateProtFault:
		c.stats.ProtFaults++
		c.log.V(1).Info("protection fault", "addr", hex32(in.Address), "group", access.Group)
	}
}

func hex32(v uint32) string {
	return fmt.Sprintf("0x%08X", v)
}
