// Package stimulus describes fixed step sequences fed to the segment unit,
// with optional expected outputs per step.
//
// Suites can be written by hand as YAML or JSON files, generated from Lua
// scripts, or derived from the loadable segments of an ELF image.
package stimulus

import (
	"errors"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/segsim/decode"
	"github.com/sarchlab/segsim/mmu"
	"github.com/sarchlab/segsim/segment"
)

// FormatVersion is the suite format version written by this package.
const FormatVersion = "1.0.0"

// supportedVersions is the range of suite format versions this package reads.
const supportedVersions = "^1"

// ErrUnsupportedVersion is returned for suites written in an incompatible
// format version.
var ErrUnsupportedVersion = errors.New("unsupported stimulus format version")

// Op is the kind of step.
type Op string

// Step kinds.
const (
	OpReset     Op = "reset"
	OpRead      Op = "read"
	OpWrite     Op = "write"
	OpTranslate Op = "translate"
)

// Expect holds the expected outputs after a step. Nil fields are not
// checked.
type Expect struct {
	PhysicalAddress *Word `yaml:"phys,omitempty" json:"phys,omitempty"`
	SegFault        *bool `yaml:"seg_fault,omitempty" json:"seg_fault,omitempty"`
	ProtFault       *bool `yaml:"prot_fault,omitempty" json:"prot_fault,omitempty"`
	// Data is the expected driven data value.
	Data *Word `yaml:"data,omitempty" json:"data,omitempty"`
	// Undriven expects the data bus to be left undriven.
	Undriven *bool `yaml:"undriven,omitempty" json:"undriven,omitempty"`
}

// Step is one clock step of stimulus.
type Step struct {
	Op Op `yaml:"op" json:"op"`
	// Addr is the logical address (translate) or register address.
	Addr Word `yaml:"addr,omitempty" json:"addr,omitempty"`
	// Data is the value of a register write.
	Data Word `yaml:"data,omitempty" json:"data,omitempty"`
	// Write is the access intent of a translation.
	Write   bool    `yaml:"write,omitempty" json:"write,omitempty"`
	Comment string  `yaml:"comment,omitempty" json:"comment,omitempty"`
	Expect  *Expect `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// Inputs converts the step into the unit's per-step inputs.
func (s Step) Inputs() mmu.Inputs {
	switch s.Op {
	case OpReset:
		return mmu.Inputs{Reset: true}
	case OpTranslate:
		return mmu.Inputs{Mode: mmu.ModeTranslate, Address: uint32(s.Addr), Write: s.Write}
	case OpWrite:
		return mmu.Inputs{Mode: mmu.ModeRegisterAccess, Address: uint32(s.Addr), Write: true, Data: uint32(s.Data)}
	}
	return mmu.Inputs{Mode: mmu.ModeRegisterAccess, Address: uint32(s.Addr)}
}

// Suite is a named sequence of steps. The builder methods return the step
// they appended; that pointer is only valid until the next step is added.
type Suite struct {
	Version     string `yaml:"version" json:"version"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// ResetProfile overrides the unit configuration's reset image.
	ResetProfile mmu.ResetProfile `yaml:"reset_profile,omitempty" json:"reset_profile,omitempty"`
	// DisabledMatchFaults overrides the disabled-match policy.
	DisabledMatchFaults *bool `yaml:"disabled_match_faults,omitempty" json:"disabled_match_faults,omitempty"`

	Steps []Step `yaml:"steps" json:"steps"`
}

// NewSuite creates an empty suite in the current format version.
func NewSuite(name string) *Suite {
	return &Suite{Version: FormatVersion, Name: name}
}

// Load reads a suite from a YAML or JSON file.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stimulus file: %w", err)
	}

	suite, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return suite, nil
}

// Parse decodes and validates a suite. JSON input is accepted as YAML.
func Parse(data []byte) (*Suite, error) {
	suite := &Suite{}
	if err := yaml.Unmarshal(data, suite); err != nil {
		return nil, fmt.Errorf("failed to parse stimulus: %w", err)
	}
	if err := suite.Validate(); err != nil {
		return nil, err
	}
	return suite, nil
}

// Save writes the suite as YAML.
func (s *Suite) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to serialize stimulus: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write stimulus file: %w", err)
	}
	return nil
}

// Validate checks the format version and every step. An empty version is
// read as the current one.
func (s *Suite) Validate() error {
	if err := checkVersion(s.Version); err != nil {
		return err
	}

	for i, step := range s.Steps {
		switch step.Op {
		case OpReset, OpRead, OpWrite, OpTranslate:
		default:
			return fmt.Errorf("step %d: unknown op %q", i, step.Op)
		}
		if step.Addr > 0xFFFFFFFF {
			return fmt.Errorf("step %d: address %s exceeds 32 bits", i, step.Addr)
		}
		if step.Data > 0xFFFFFFFF {
			return fmt.Errorf("step %d: data %s exceeds 32 bits", i, step.Data)
		}
		if e := step.Expect; e != nil && e.PhysicalAddress != nil &&
			uint64(*e.PhysicalAddress) >= 1<<mmu.PhysicalAddressBits {
			return fmt.Errorf("step %d: physical address %s exceeds %d bits",
				i, *e.PhysicalAddress, mmu.PhysicalAddressBits)
		}
	}
	return nil
}

// Config applies the suite's overrides to a copy of base.
func (s *Suite) Config(base *mmu.Config) *mmu.Config {
	config := base.Clone()
	if s.ResetProfile != "" {
		config.ResetProfile = s.ResetProfile
	}
	if s.DisabledMatchFaults != nil {
		config.DisabledMatchFaults = *s.DisabledMatchFaults
	}
	return config
}

// Reset appends a reset step.
func (s *Suite) Reset() *Step {
	return s.add(Step{Op: OpReset})
}

// Read appends a register read of (group, field).
func (s *Suite) Read(group int, field segment.Field) *Step {
	return s.add(Step{Op: OpRead, Addr: Word(decode.RegisterAddress(group, field))})
}

// Write appends a register write of (group, field).
func (s *Suite) Write(group int, field segment.Field, value uint32) *Step {
	return s.add(Step{
		Op:   OpWrite,
		Addr: Word(decode.RegisterAddress(group, field)),
		Data: Word(value),
	})
}

// Install appends the four register writes that install a descriptor,
// status last.
func (s *Suite) Install(group int, d segment.Descriptor) *Step {
	s.Write(group, segment.FieldPhysicalBase, d.PhysicalBase)
	s.Write(group, segment.FieldLogicalBase, d.LogicalBase)
	s.Write(group, segment.FieldMask, d.Mask)
	return s.Write(group, segment.FieldStatus, d.Status.Pack())
}

// Translate appends a translation step.
func (s *Suite) Translate(addr uint32, write bool) *Step {
	return s.add(Step{Op: OpTranslate, Addr: Word(addr), Write: write})
}

func (s *Suite) add(step Step) *Step {
	s.Steps = append(s.Steps, step)
	return &s.Steps[len(s.Steps)-1]
}

// Ptr returns a pointer to v, for filling Expect fields.
func Ptr[T any](v T) *T {
	return &v
}

func checkVersion(version string) error {
	if version == "" {
		version = FormatVersion
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, version, err)
	}

	c, err := semver.NewConstraint(supportedVersions)
	if err != nil {
		return fmt.Errorf("invalid version constraint: %w", err)
	}

	if !c.Check(v) {
		return fmt.Errorf("%w: %s (want %s)", ErrUnsupportedVersion, v, supportedVersions)
	}
	return nil
}
