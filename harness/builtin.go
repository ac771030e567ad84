package harness

import (
	"github.com/sarchlab/segsim/mmu"
	"github.com/sarchlab/segsim/segment"
	"github.com/sarchlab/segsim/stimulus"
)

// BuiltinSuites returns the standard set of self-checking suites. Each suite
// targets one behavior of the unit.
func BuiltinSuites() []*stimulus.Suite {
	return []*stimulus.Suite{
		translateHitAndMiss(),
		writeProtection(),
		registerRoundTrip(),
		defaultMap(),
	}
}

func phys(base, offset uint32) *stimulus.Word {
	return stimulus.Ptr(stimulus.Word(mmu.NewPhysicalAddress(base, offset)))
}

// 1. A single installed segment, one hit and one unmapped address.
func translateHitAndMiss() *stimulus.Suite {
	s := stimulus.NewSuite("translate_hit_and_miss")
	s.Description = "install one segment, translate a mapped and an unmapped address"

	s.Reset()
	s.Install(0, segment.Descriptor{
		PhysicalBase: 0x80000000,
		LogicalBase:  0x00400000,
		Mask:         0xFFFFF000,
		Status:       segment.Status{Enabled: true},
	})

	hit := s.Translate(0x00400004, false)
	hit.Expect = &stimulus.Expect{
		PhysicalAddress: phys(0x80000000, 0x004),
		SegFault:        stimulus.Ptr(false),
	}

	miss := s.Translate(0x12345678, false)
	miss.Comment = "unmapped address"
	miss.Expect = &stimulus.Expect{
		PhysicalAddress: phys(0, 0),
		SegFault:        stimulus.Ptr(true),
	}

	return s
}

// 2. Writes through a write-protected segment fault; reads do not.
func writeProtection() *stimulus.Suite {
	s := stimulus.NewSuite("write_protection")
	s.Description = "read and write through a write-protected segment"

	s.Reset()
	install := s.Install(0, segment.Descriptor{
		PhysicalBase: 0x80000000,
		LogicalBase:  0x00400000,
		Mask:         0xFFFFF000,
		Status:       segment.Status{Enabled: true, WriteProtected: true},
	})
	install.Comment = "status write lands on a protected descriptor"
	install.Expect = &stimulus.Expect{ProtFault: stimulus.Ptr(true)}

	rd := s.Translate(0x00400010, false)
	rd.Expect = &stimulus.Expect{
		PhysicalAddress: phys(0x80000000, 0x010),
		SegFault:        stimulus.Ptr(false),
		ProtFault:       stimulus.Ptr(false),
	}

	wr := s.Translate(0x00400010, true)
	wr.Expect = &stimulus.Expect{
		PhysicalAddress: phys(0, 0),
		SegFault:        stimulus.Ptr(false),
		ProtFault:       stimulus.Ptr(true),
	}

	status := s.Read(0, segment.FieldStatus)
	status.Comment = "dirty, write-protected, faulted, enabled"
	status.Expect = &stimulus.Expect{Data: stimulus.Ptr(stimulus.Word(0x78000000))}

	return s
}

// 3. Register writes read back, reads mark the descriptor used.
func registerRoundTrip() *stimulus.Suite {
	s := stimulus.NewSuite("register_round_trip")
	s.Description = "write a register, read it back, inspect the status side effects"

	s.Reset()

	wr := s.Write(2, segment.FieldMask, 0xFFFF0000)
	wr.Expect = &stimulus.Expect{
		Undriven:  stimulus.Ptr(true),
		ProtFault: stimulus.Ptr(false),
	}

	rd := s.Read(2, segment.FieldMask)
	rd.Expect = &stimulus.Expect{Data: stimulus.Ptr(stimulus.Word(0xFFFF0000))}

	status := s.Read(2, segment.FieldStatus)
	status.Comment = "used and dirty"
	status.Expect = &stimulus.Expect{Data: stimulus.Ptr(stimulus.Word(0xC0000000))}

	tr := s.Translate(0, false)
	tr.Expect = &stimulus.Expect{Undriven: stimulus.Ptr(true)}

	return s
}

// 4. The pre-populated reset image.
func defaultMap() *stimulus.Suite {
	s := stimulus.NewSuite("default_map")
	s.Description = "translate through the default reset image"
	s.ResetProfile = mmu.ResetDefault

	s.Reset()

	hit := s.Translate(0x00100123, true)
	hit.Expect = &stimulus.Expect{
		PhysicalAddress: phys(0x80100000, 0x123),
		SegFault:        stimulus.Ptr(false),
		ProtFault:       stimulus.Ptr(false),
	}

	miss := s.Translate(0x00500000, false)
	miss.Expect = &stimulus.Expect{SegFault: stimulus.Ptr(true)}

	return s
}
