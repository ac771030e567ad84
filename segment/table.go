package segment

import (
	"fmt"
	"strings"
)

// NumDescriptors is the fixed number of descriptors in a table.
const NumDescriptors = 4

// NumFields is the number of 32-bit storage words per descriptor.
const NumFields = 4

// Field selects one storage word of a descriptor.
type Field uint8

const (
	// FieldPhysicalBase is the physical base word.
	FieldPhysicalBase Field = iota
	// FieldLogicalBase is the logical base word.
	FieldLogicalBase
	// FieldMask is the segment mask word.
	FieldMask
	// FieldStatus is the packed status word.
	FieldStatus
)

// String returns the register name of the field.
func (f Field) String() string {
	switch f {
	case FieldPhysicalBase:
		return "pbase"
	case FieldLogicalBase:
		return "lbase"
	case FieldMask:
		return "mask"
	case FieldStatus:
		return "status"
	}
	return fmt.Sprintf("field(%d)", uint8(f))
}

// Descriptor is one entry of the segment table.
//
// Mask selects the high address bits that identify the segment. LogicalBase
// is expected to have its offset bits (those cleared in Mask) already zero,
// and PhysicalBase to be aligned to the segment size. Neither is enforced
// when the words are written.
type Descriptor struct {
	PhysicalBase uint32
	LogicalBase  uint32
	Mask         uint32
	Status       Status
}

// Word returns the register value stored in the given field.
func (d Descriptor) Word(f Field) uint32 {
	switch f {
	case FieldPhysicalBase:
		return d.PhysicalBase
	case FieldLogicalBase:
		return d.LogicalBase
	case FieldMask:
		return d.Mask
	case FieldStatus:
		return d.Status.Pack()
	}
	return 0
}

// SetWord stores a register value into the given field. Writing the status
// field replaces the whole status word.
func (d *Descriptor) SetWord(f Field, value uint32) {
	switch f {
	case FieldPhysicalBase:
		d.PhysicalBase = value
	case FieldLogicalBase:
		d.LogicalBase = value
	case FieldMask:
		d.Mask = value
	case FieldStatus:
		d.Status = UnpackStatus(value)
	}
}

// Matches reports whether the logical address falls into this descriptor's
// segment. The enabled bit is not consulted.
func (d Descriptor) Matches(addr uint32) bool {
	return addr&d.Mask == d.LogicalBase
}

// Validate reports alignment hazards: offset bits set in LogicalBase or
// PhysicalBase. The unit itself accepts such values; this is for tooling.
func (d Descriptor) Validate() error {
	if d.LogicalBase&^d.Mask != 0 {
		return fmt.Errorf("logical base 0x%08X has bits outside mask 0x%08X",
			d.LogicalBase, d.Mask)
	}
	if d.PhysicalBase&^d.Mask != 0 {
		return fmt.Errorf("physical base 0x%08X is not aligned to mask 0x%08X",
			d.PhysicalBase, d.Mask)
	}
	return nil
}

// Table is the ordered set of descriptors. Lower indices take priority when
// more than one descriptor matches.
type Table [NumDescriptors]Descriptor

// Lookup returns the index of the first descriptor whose masked logical
// address matches addr.
func (t *Table) Lookup(addr uint32) (int, bool) {
	for i := range t {
		if t[i].Matches(addr) {
			return i, true
		}
	}
	return -1, false
}

// Read returns the register word at (group, field).
func (t *Table) Read(group int, f Field) uint32 {
	return t[group].Word(f)
}

// Write stores a register word at (group, field).
func (t *Table) Write(group int, f Field, value uint32) {
	t[group].SetWord(f, value)
}

// Words flattens the table into its 16-word register image, in register
// address order.
func (t *Table) Words() [NumDescriptors * NumFields]uint32 {
	var words [NumDescriptors * NumFields]uint32
	for g := range t {
		for f := 0; f < NumFields; f++ {
			words[g*NumFields+f] = t[g].Word(Field(f))
		}
	}
	return words
}

// String dumps the table one descriptor per line.
func (t *Table) String() string {
	var sb strings.Builder
	for i, d := range t {
		fmt.Fprintf(&sb, "%d: pbase=0x%08X lbase=0x%08X mask=0x%08X status=0x%08X [%s]\n",
			i, d.PhysicalBase, d.LogicalBase, d.Mask, d.Status.Pack(), d.Status)
	}
	return sb.String()
}

// Clear zeroes every descriptor.
func (t *Table) Clear() {
	*t = Table{}
}
