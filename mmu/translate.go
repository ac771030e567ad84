package mmu

import (
	"github.com/sarchlab/segsim/decode"
	"github.com/sarchlab/segsim/segment"
)

// TranslationUnit resolves logical addresses against the segment table and
// applies the protection check.
type TranslationUnit struct {
	disabledMatchFaults bool
}

// NewTranslationUnit creates a TranslationUnit. disabledMatchFaults selects
// whether a match on a disabled descriptor reports a segmentation fault.
func NewTranslationUnit(disabledMatchFaults bool) *TranslationUnit {
	return &TranslationUnit{disabledMatchFaults: disabledMatchFaults}
}

// Translate looks addr up in the pre-step table and records the outputs and
// status side effects into next.
func (u *TranslationUnit) Translate(
	snapshot *segment.Table,
	addr uint32,
	write bool,
	next *State,
) Access {
	next.Outputs.DataOut = Undriven

	group, ok := snapshot.Lookup(addr)
	if !ok {
		next.Outputs.PhysicalAddress = 0
		next.Outputs.SegFault = true
		return Access{Kind: AccessSegFault, Group: -1}
	}

	d := snapshot[group]
	if !d.Status.Enabled {
		// The scan stops at the first match even when it is disabled.
		next.Outputs.PhysicalAddress = 0
		next.Outputs.SegFault = u.disabledMatchFaults
		return Access{Kind: AccessDisabledMatch, Group: group}
	}

	next.Outputs.SegFault = false
	status := &next.Table[group].Status

	if write && d.Status.WriteProtected {
		next.Outputs.PhysicalAddress = 0
		next.Outputs.ProtFault = true
		status.Fault = true
		status.Used = false
		status.Dirty = true
		return Access{Kind: AccessTranslateProtFault, Group: group}
	}

	fields := decode.TranslationFields(addr, d.Mask)
	next.Outputs.PhysicalAddress = NewPhysicalAddress(d.PhysicalBase&d.Mask, fields.Offset)
	next.Outputs.ProtFault = false
	status.Fault = false
	status.Used = true
	status.Dirty = write
	return Access{Kind: AccessTranslateHit, Group: group}
}
