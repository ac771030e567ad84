package stimulus

import (
	"debug/elf"
	"fmt"
	"math/bits"
	"path/filepath"

	"github.com/sarchlab/segsim/decode"
	"github.com/sarchlab/segsim/mmu"
	"github.com/sarchlab/segsim/segment"
)

// MinSegmentSize is the smallest segment an ELF segment is rounded up to:
// one full translated offset range.
const MinSegmentSize = 1 << decode.OffsetBits

// ImageSegment is one PT_LOAD segment mapped onto a descriptor.
type ImageSegment struct {
	VirtAddr   uint32
	MemSize    uint64
	Writable   bool
	Descriptor segment.Descriptor
}

// Image is the segment layout derived from an ELF file.
type Image struct {
	Entry    uint64
	Segments []ImageSegment
}

// LoadELF reads the PT_LOAD segments of an ELF file and lays them out in
// physical memory from physBase upward. Each segment is rounded up to a
// power-of-two size so it can be described by a mask; read-only segments
// become write-protected. At most four loadable segments are supported and
// their addresses must fit in 32 bits.
func LoadELF(path string, physBase uint32) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	img := &Image{Entry: f.Entry}
	cursor := uint64(physBase)

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}
		if len(img.Segments) == segment.NumDescriptors {
			return nil, fmt.Errorf("more than %d loadable segments", segment.NumDescriptors)
		}
		if phdr.Vaddr+phdr.Memsz > 1<<32 {
			return nil, fmt.Errorf("segment at 0x%x does not fit a 32-bit address space", phdr.Vaddr)
		}

		size := coveringSize(phdr.Vaddr, phdr.Memsz)
		mask := ^uint32(size - 1)
		cursor = (cursor + size - 1) &^ (size - 1)
		if cursor+size > 1<<32 {
			return nil, fmt.Errorf("segment at 0x%x does not fit above physical base 0x%08X",
				phdr.Vaddr, physBase)
		}

		i := len(img.Segments)
		writable := phdr.Flags&elf.PF_W != 0
		img.Segments = append(img.Segments, ImageSegment{
			VirtAddr: uint32(phdr.Vaddr),
			MemSize:  phdr.Memsz,
			Writable: writable,
			Descriptor: segment.Descriptor{
				PhysicalBase: uint32(cursor),
				LogicalBase:  uint32(phdr.Vaddr) & mask,
				Mask:         mask,
				Status: segment.Status{
					Enabled:        true,
					WriteProtected: !writable,
					Index:          uint16(i),
				},
			},
		})
		cursor += size
	}

	return img, nil
}

// Suite turns the image into stimulus: a reset, one descriptor install per
// segment, and checked read translations of each segment's first and last
// byte.
func (img *Image) Suite(name string) *Suite {
	suite := NewSuite(name)
	suite.Description = fmt.Sprintf("segment layout of %s (entry 0x%X)", name, img.Entry)
	suite.Reset()

	for i, seg := range img.Segments {
		suite.Install(i, seg.Descriptor)
	}

	for _, seg := range img.Segments {
		suite.checkedRead(seg.Descriptor, seg.VirtAddr)
		if seg.MemSize > 1 {
			last := suite.checkedRead(seg.Descriptor, seg.VirtAddr+uint32(seg.MemSize-1))
			last.Comment = "last byte of segment"
		}
	}

	return suite
}

// checkedRead appends a read translation of addr expected to hit d.
func (s *Suite) checkedRead(d segment.Descriptor, addr uint32) *Step {
	fields := decode.TranslationFields(addr, d.Mask)
	phys := mmu.NewPhysicalAddress(d.PhysicalBase&d.Mask, fields.Offset)

	step := s.Translate(addr, false)
	step.Expect = &Expect{
		PhysicalAddress: Ptr(Word(phys)),
		SegFault:        Ptr(false),
		ProtFault:       Ptr(false),
	}
	return step
}

// FromELF loads an ELF file and returns its stimulus suite.
func FromELF(path string, physBase uint32) (*Suite, error) {
	img, err := LoadELF(path, physBase)
	if err != nil {
		return nil, err
	}
	return img.Suite(filepath.Base(path)), nil
}

// coveringSize returns the smallest power-of-two segment size whose aligned
// block around vaddr holds all memsz bytes.
func coveringSize(vaddr, memsz uint64) uint64 {
	size := segmentSize(memsz)
	for (vaddr&^(size-1))+size < vaddr+memsz {
		size <<= 1
	}
	return size
}

func segmentSize(memsz uint64) uint64 {
	if memsz <= MinSegmentSize {
		return MinSegmentSize
	}
	return 1 << bits.Len64(memsz-1)
}
