// Package decode splits 32-bit logical addresses into the fields used by the
// segment unit.
//
// In register-access mode an address selects one of the 16 register words:
//
//	bits [5:4]  group (descriptor 0-3)
//	bits [3:2]  field (0=pbase, 1=lbase, 2=mask, 3=status)
//
// In translation mode the address is split by a descriptor mask into the
// segment key and a 10-bit intra-segment offset.
package decode

import "github.com/sarchlab/segsim/segment"

// OffsetBits is the width of the translated intra-segment offset. It is fixed
// regardless of how many bits the mask leaves clear.
const OffsetBits = 10

// OffsetMask selects the translated offset bits.
const OffsetMask uint32 = 1<<OffsetBits - 1

// RegisterSelect is a decoded register-access address.
type RegisterSelect struct {
	Group int           // Descriptor index, bits [5:4]
	Field segment.Field // Storage word, bits [3:2]
}

// Translation is a decoded translation-mode address.
type Translation struct {
	SegmentKey uint32 // addr & mask
	Offset     uint32 // (addr &^ mask) & OffsetMask
}

// RegisterAccess extracts the group and field select bits.
func RegisterAccess(addr uint32) RegisterSelect {
	return RegisterSelect{
		Group: int((addr >> 4) & 0x3),
		Field: segment.Field((addr >> 2) & 0x3),
	}
}

// RegisterAddress is the inverse of RegisterAccess: the byte address of a
// register word.
func RegisterAddress(group int, field segment.Field) uint32 {
	return uint32(group&0x3)<<4 | uint32(field&0x3)<<2
}

// TranslationFields splits addr against a descriptor mask.
func TranslationFields(addr, mask uint32) Translation {
	return Translation{
		SegmentKey: addr & mask,
		Offset:     (addr &^ mask) & OffsetMask,
	}
}
