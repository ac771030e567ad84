package stimulus_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/segsim/stimulus"
)

const scenarioScript = `
name("scripted")
reset()
install(0, {pbase=0x80000000, lbase=0x00400000, mask=0xFFFFF000, status=ENABLED})
translate(0x00400004)
expect{phys=0x80000000 * 1024 + 4, seg_fault=false}
translate(0x12345678, true)
expect{seg_fault=true, phys=0}
write(reg(1, "status"), ENABLED + WP)
expect{prot_fault=true}
read(reg(0, 2))
expect{data=0xFFFFF000}
`

var _ = Describe("Script", func() {
	It("should build a suite from Lua", func() {
		suite, err := stimulus.RunScript(scenarioScript)
		Expect(err).NotTo(HaveOccurred())
		Expect(suite.Name).To(Equal("scripted"))
		Expect(suite.Steps).To(HaveLen(9))

		Expect(suite.Steps[0].Op).To(Equal(stimulus.OpReset))
		Expect(suite.Steps[4].Data).To(Equal(stimulus.Word(0x08000000)))

		tr := suite.Steps[5]
		Expect(tr.Op).To(Equal(stimulus.OpTranslate))
		Expect(tr.Write).To(BeFalse())
		Expect(*tr.Expect.PhysicalAddress).To(Equal(stimulus.Word(uint64(0x80000000)<<10 | 4)))

		Expect(suite.Steps[6].Write).To(BeTrue())
		Expect(*suite.Steps[6].Expect.SegFault).To(BeTrue())

		wr := suite.Steps[7]
		Expect(wr.Addr).To(Equal(stimulus.Word(0x1C)))
		Expect(wr.Data).To(Equal(stimulus.Word(0x28000000)))

		rd := suite.Steps[8]
		Expect(rd.Op).To(Equal(stimulus.OpRead))
		Expect(rd.Addr).To(Equal(stimulus.Word(0x08)))
		Expect(*rd.Expect.Data).To(Equal(stimulus.Word(0xFFFFF000)))
	})

	It("should run a script file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "s.lua")
		Expect(os.WriteFile(path, []byte(`name("file") reset()`), 0644)).To(Succeed())

		suite, err := stimulus.RunScriptFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(suite.Name).To(Equal("file"))
		Expect(suite.Steps).To(HaveLen(1))
	})

	It("should report Lua errors", func() {
		_, err := stimulus.RunScript(`reg(7, "mask")`)
		Expect(err).To(MatchError(ContainSubstring("stimulus script failed")))

		_, err = stimulus.RunScript(`reg(0, "limit")`)
		Expect(err).To(MatchError(ContainSubstring("unknown field")))

		_, err = stimulus.RunScript(`expect{seg_fault=true}`)
		Expect(err).To(MatchError(ContainSubstring("before any step")))

		_, err = stimulus.RunScript(`write(0, -1)`)
		Expect(err).To(MatchError(ContainSubstring("32 bits")))
	})

	It("should range-check install fields", func() {
		_, err := stimulus.RunScript(`install(0, {pbase=0x1FFFFFFFF})`)
		Expect(err).To(MatchError(ContainSubstring("pbase must be an integer that fits in 32 bits")))

		_, err = stimulus.RunScript(`install(0, {lbase=-1})`)
		Expect(err).To(MatchError(ContainSubstring("lbase must be")))

		_, err = stimulus.RunScript(`install(0, {mask=0.5})`)
		Expect(err).To(MatchError(ContainSubstring("mask must be")))

		_, err = stimulus.RunScript(`install(0, {status="enabled"})`)
		Expect(err).To(MatchError(ContainSubstring("status must be")))

		suite, err := stimulus.RunScript(`install(1, {pbase=0xFFFFFFFF, mask=0xFFFF0000})`)
		Expect(err).NotTo(HaveOccurred())
		Expect(suite.Steps[0].Data).To(Equal(stimulus.Word(0xFFFFFFFF)))
		Expect(suite.Steps[1].Data).To(BeZero())
	})

	It("should accept expected words as strings", func() {
		suite, err := stimulus.RunScript(`
			translate(0x00400004)
			expect{phys="0x80000000_004", data="0x10"}
		`)
		Expect(err).NotTo(HaveOccurred())
		e := suite.Steps[0].Expect
		Expect(*e.PhysicalAddress).To(Equal(stimulus.Word(uint64(0x80000000)<<10 | 4)))
		Expect(*e.Data).To(Equal(stimulus.Word(0x10)))
	})

	It("should reject malformed expected words", func() {
		_, err := stimulus.RunScript(`translate(0) expect{phys="banana"}`)
		Expect(err).To(MatchError(ContainSubstring("invalid word")))

		_, err = stimulus.RunScript(`read(0) expect{data=0x100000000}`)
		Expect(err).To(MatchError(ContainSubstring("data must be an integer no larger than 0xFFFFFFFF")))

		_, err = stimulus.RunScript(`translate(0) expect{phys=true}`)
		Expect(err).To(MatchError(ContainSubstring("phys must be")))
	})
})
