package mmu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/segsim/mmu"
	"github.com/sarchlab/segsim/segment"
)

var _ = Describe("Engine", func() {
	var engine *mmu.Engine

	BeforeEach(func() {
		var err error
		engine, err = mmu.NewEngine(mmu.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
	})

	It("should not mutate the input state", func() {
		s := engine.ResetState()
		s.Table[0] = scenarioA
		before := s

		next, access := engine.Step(s, mmu.Inputs{Mode: mmu.ModeTranslate, Address: 0x00400004, Write: true})
		Expect(access.Kind).To(Equal(mmu.AccessTranslateHit))
		Expect(access.Group).To(Equal(0))
		Expect(s).To(Equal(before))
		Expect(next.Table[0].Status.Dirty).To(BeTrue())
	})

	It("should be deterministic", func() {
		s := engine.ResetState()
		s.Table[0] = scenarioA
		in := mmu.Inputs{Mode: mmu.ModeRegisterAccess, Address: 0x0C}

		a, _ := engine.Step(s, in)
		b, _ := engine.Step(s, in)
		Expect(a).To(Equal(b))
	})

	It("should classify every access kind", func() {
		s := engine.ResetState()
		s.Table[0] = scenarioA
		s.Table[1] = segment.Descriptor{
			LogicalBase: 0x10000000,
			Mask:        0xF0000000,
			Status:      segment.Status{Enabled: true, WriteProtected: true},
		}
		s.Table[2] = segment.Descriptor{LogicalBase: 0x20000000, Mask: 0xF0000000}
		s.Table[3] = segment.Descriptor{LogicalBase: 0xF0000000, Mask: 0xF0000000}

		cases := []struct {
			in   mmu.Inputs
			kind mmu.AccessKind
		}{
			{mmu.Inputs{Reset: true}, mmu.AccessReset},
			{mmu.Inputs{Mode: mmu.ModeTranslate, Address: 0x00400000}, mmu.AccessTranslateHit},
			{mmu.Inputs{Mode: mmu.ModeTranslate, Address: 0x30000000}, mmu.AccessSegFault},
			{mmu.Inputs{Mode: mmu.ModeTranslate, Address: 0x20000000}, mmu.AccessDisabledMatch},
			{mmu.Inputs{Mode: mmu.ModeTranslate, Address: 0x10000000, Write: true}, mmu.AccessTranslateProtFault},
			{mmu.Inputs{Mode: mmu.ModeRegisterAccess, Address: 0x00}, mmu.AccessRegisterRead},
			{mmu.Inputs{Mode: mmu.ModeRegisterAccess, Address: 0x00, Write: true}, mmu.AccessRegisterWrite},
			{mmu.Inputs{Mode: mmu.ModeRegisterAccess, Address: 0x10, Write: true}, mmu.AccessRegisterProtFault},
		}

		for _, tc := range cases {
			_, access := engine.Step(s, tc.in)
			Expect(access.Kind).To(Equal(tc.kind), "inputs %+v", tc.in)
		}
	})

	It("should name modes and access kinds", func() {
		Expect(mmu.ModeTranslate.String()).To(Equal("translate"))
		Expect(mmu.ModeRegisterAccess.String()).To(Equal("register"))
		Expect(mmu.AccessSegFault.String()).To(Equal("seg-fault"))
	})

	It("should split physical addresses", func() {
		p := mmu.NewPhysicalAddress(0xFFFFFFFF, 0x3FF)
		Expect(uint64(p)).To(Equal(uint64(1)<<mmu.PhysicalAddressBits - 1))
		Expect(p.Base()).To(Equal(uint32(0xFFFFFFFF)))
		Expect(p.Offset()).To(Equal(uint32(0x3FF)))
	})
})
