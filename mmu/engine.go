package mmu

import (
	"github.com/sarchlab/segsim/segment"
)

// State is everything the unit carries from one step to the next.
type State struct {
	Table   segment.Table
	Outputs Outputs
}

// Engine is the per-step decision function. It holds only configuration, so
// Step is pure: the same state and inputs always give the same result.
type Engine struct {
	translation *TranslationUnit
	registers   *RegisterUnit
	resetImage  segment.Table
}

// NewEngine creates an Engine from a validated configuration.
func NewEngine(config *Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	image, err := config.ResetImage()
	if err != nil {
		return nil, err
	}

	return &Engine{
		translation: NewTranslationUnit(config.DisabledMatchFaults),
		registers:   NewRegisterUnit(),
		resetImage:  image,
	}, nil
}

// ResetImage returns the table installed on reset.
func (e *Engine) ResetImage() segment.Table {
	return e.resetImage
}

// ResetState returns the state right after a reset pulse.
func (e *Engine) ResetState() State {
	return State{Table: e.resetImage}
}

// Step advances the unit by one clock. Every decision reads the pre-step
// table in s; mutations land in the returned state only.
func (e *Engine) Step(s State, in Inputs) (State, Access) {
	if in.Reset {
		return e.ResetState(), Access{Kind: AccessReset, Group: -1}
	}

	snapshot := s.Table
	next := s

	var access Access
	switch in.Mode {
	case ModeTranslate:
		access = e.translation.Translate(&snapshot, in.Address, in.Write, &next)
	default:
		if in.Write {
			access = e.registers.Write(in.Address, in.Data, &next)
		} else {
			access = e.registers.Read(&snapshot, in.Address, &next)
		}
	}

	return next, access
}
