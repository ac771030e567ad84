// Package segment provides the segment descriptor table and its status word.
package segment

import "fmt"

// Status word bit positions.
const (
	UsedBit           = 31
	DirtyBit          = 30
	WriteProtectedBit = 29
	FaultBit          = 28
	EnabledBit        = 27
)

// IndexMask selects the 16-bit index field of a status word.
const IndexMask uint32 = 0x0000FFFF

// ReservedMask selects bits 26..16 of a status word. They carry no meaning
// to the unit but are stored and returned unchanged.
const ReservedMask uint32 = 0x07FF0000

// Status is the unpacked form of a descriptor's 32-bit status word.
type Status struct {
	// Used is set by any successful access to the descriptor.
	Used bool
	// Dirty is set by writes through the descriptor.
	Dirty bool
	// WriteProtected rejects write-intent translations.
	WriteProtected bool
	// Fault records the last access to the descriptor as faulting.
	Fault bool
	// Enabled activates the mapping.
	Enabled bool

	// Index is a free-form 16-bit tag owned by the controlling processor.
	Index uint16

	// Reserved holds bits 26..16 in place (already shifted).
	Reserved uint32
}

// UnpackStatus splits a raw status word into its fields.
func UnpackStatus(word uint32) Status {
	return Status{
		Used:           word&(1<<UsedBit) != 0,
		Dirty:          word&(1<<DirtyBit) != 0,
		WriteProtected: word&(1<<WriteProtectedBit) != 0,
		Fault:          word&(1<<FaultBit) != 0,
		Enabled:        word&(1<<EnabledBit) != 0,
		Index:          uint16(word & IndexMask),
		Reserved:       word & ReservedMask,
	}
}

// Pack folds the status back into its 32-bit register form.
func (s Status) Pack() uint32 {
	word := uint32(s.Index) | (s.Reserved & ReservedMask)
	word |= flag(s.Used, UsedBit)
	word |= flag(s.Dirty, DirtyBit)
	word |= flag(s.WriteProtected, WriteProtectedBit)
	word |= flag(s.Fault, FaultBit)
	word |= flag(s.Enabled, EnabledBit)
	return word
}

// String renders the flag letters, with '-' for clear bits, followed by the
// index, e.g. "UD-FE#0003".
func (s Status) String() string {
	letters := []byte("-----")
	if s.Used {
		letters[0] = 'U'
	}
	if s.Dirty {
		letters[1] = 'D'
	}
	if s.WriteProtected {
		letters[2] = 'W'
	}
	if s.Fault {
		letters[3] = 'F'
	}
	if s.Enabled {
		letters[4] = 'E'
	}
	return fmt.Sprintf("%s#%04X", letters, s.Index)
}

func flag(set bool, bit uint) uint32 {
	if set {
		return 1 << bit
	}
	return 0
}
