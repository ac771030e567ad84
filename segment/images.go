package segment

// DefaultSegmentMask is the mask used by the default reset image (1 MiB
// segments).
const DefaultSegmentMask uint32 = 0xFFF00000

// DefaultPhysicalBase is where the default reset image places segment 0.
const DefaultPhysicalBase uint32 = 0x80000000

// ZeroTable returns the all-zero reset image.
func ZeroTable() Table {
	return Table{}
}

// DefaultTable returns the pre-populated reset image: four enabled, writable
// 1 MiB segments. Descriptor i maps logical i<<20 onto physical
// DefaultPhysicalBase + i<<20 and carries index i.
func DefaultTable() Table {
	var t Table
	for i := range t {
		offset := uint32(i) << 20
		t[i] = Descriptor{
			PhysicalBase: DefaultPhysicalBase + offset,
			LogicalBase:  offset,
			Mask:         DefaultSegmentMask,
			Status: Status{
				Enabled: true,
				Index:   uint16(i),
			},
		}
	}
	return t
}
