// Package mmu implements the segment translation and protection unit: the
// translation and register-access engines and the per-step controller that
// dispatches between them.
package mmu

import "fmt"

// Mode selects what the unit does with the presented address.
type Mode uint8

const (
	// ModeRegisterAccess reads or writes a segment-table register word.
	ModeRegisterAccess Mode = iota
	// ModeTranslate translates the address through the segment table.
	ModeTranslate
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeRegisterAccess:
		return "register"
	case ModeTranslate:
		return "translate"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// PhysicalAddressBits is the width of a translated address.
const PhysicalAddressBits = 42

// PhysicalAddress is a 42-bit translated address: the upper 32 bits are the
// masked physical base, the low 10 bits the intra-segment offset.
type PhysicalAddress uint64

// NewPhysicalAddress concatenates a masked base and a 10-bit offset.
func NewPhysicalAddress(base, offset uint32) PhysicalAddress {
	return PhysicalAddress(uint64(base)<<10 | uint64(offset&0x3FF))
}

// Base returns the upper 32 bits.
func (p PhysicalAddress) Base() uint32 {
	return uint32(p >> 10)
}

// Offset returns the low 10 bits.
func (p PhysicalAddress) Offset() uint32 {
	return uint32(p & 0x3FF)
}

// String renders the address as base_offset, e.g. 0x80000000_004.
func (p PhysicalAddress) String() string {
	return fmt.Sprintf("0x%08X_%03X", p.Base(), p.Offset())
}

// DataBus is the bidirectional data value of one step. It carries a value
// only when the step was a register read; otherwise it is undriven, which is
// distinct from driving zero.
type DataBus struct {
	value  uint32
	driven bool
}

// Undriven is the high-impedance bus value.
var Undriven = DataBus{}

// Drive returns a bus driven with v.
func Drive(v uint32) DataBus {
	return DataBus{value: v, driven: true}
}

// Value returns the driven value and whether the bus is driven at all.
func (b DataBus) Value() (uint32, bool) {
	return b.value, b.driven
}

// Driven reports whether the bus carries a value.
func (b DataBus) Driven() bool {
	return b.driven
}

// String renders the value, or Z digits when undriven.
func (b DataBus) String() string {
	if !b.driven {
		return "ZZZZZZZZ"
	}
	return fmt.Sprintf("0x%08X", b.value)
}

// Inputs are the signals sampled at one step.
type Inputs struct {
	// Address is the logical address (translate) or register address.
	Address uint32
	// Write is the access intent.
	Write bool
	// Mode selects register access or translation.
	Mode Mode
	// Reset overrides everything else for this step.
	Reset bool
	// Data is the value written on a register write.
	Data uint32
}

// Outputs are the registered outputs after a step.
type Outputs struct {
	PhysicalAddress PhysicalAddress
	SegFault        bool
	ProtFault       bool
	DataOut         DataBus
}
