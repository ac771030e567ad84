package mmu

import (
	"github.com/sarchlab/segsim/decode"
	"github.com/sarchlab/segsim/segment"
)

// RegisterUnit services reads and writes of the segment-table register file.
type RegisterUnit struct{}

// NewRegisterUnit creates a RegisterUnit.
func NewRegisterUnit() *RegisterUnit {
	return &RegisterUnit{}
}

// Read drives the addressed word of the pre-step table onto the data bus and
// marks the descriptor used.
func (u *RegisterUnit) Read(snapshot *segment.Table, addr uint32, next *State) Access {
	sel := decode.RegisterAccess(addr)

	next.Outputs.DataOut = Drive(snapshot.Read(sel.Group, sel.Field))
	next.Table[sel.Group].Status.Used = true

	return Access{Kind: AccessRegisterRead, Group: sel.Group}
}

// Write stores data into the addressed word, marks the descriptor used and
// dirty, and runs the write-protection check on that descriptor alone.
func (u *RegisterUnit) Write(addr, data uint32, next *State) Access {
	sel := decode.RegisterAccess(addr)
	next.Outputs.DataOut = Undriven

	d := &next.Table[sel.Group]
	d.SetWord(sel.Field, data)
	d.Status.Used = true
	d.Status.Dirty = true

	// Latched per descriptor, observed after the write.
	wp, dirty := d.Status.WriteProtected, d.Status.Dirty
	if wp && dirty {
		next.Outputs.ProtFault = true
		d.Status.Fault = true
		return Access{Kind: AccessRegisterProtFault, Group: sel.Group}
	}

	next.Outputs.ProtFault = false
	d.Status.Fault = false
	return Access{Kind: AccessRegisterWrite, Group: sel.Group}
}
