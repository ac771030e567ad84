package stimulus_test

import (
	"encoding/json"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/segsim/mmu"
	"github.com/sarchlab/segsim/segment"
	"github.com/sarchlab/segsim/stimulus"
)

const scenarioYAML = `
version: "1.0"
name: scenario-a
steps:
  - op: reset
  - {op: write, addr: 0x00, data: 0x80000000}
  - {op: write, addr: 0x04, data: "0x00400000"}
  - {op: write, addr: 0x08, data: 0xFFFFF000}
  - {op: write, addr: 0x0C, data: 0x08000000}
  - op: translate
    addr: 0x00400004
    expect: {phys: "0x80000000_004", seg_fault: false}
  - op: read
    addr: 0x08
    expect: {data: 0xFFFFF000}
`

var _ = Describe("Word", func() {
	It("should parse prefixed and separated literals", func() {
		w, err := stimulus.ParseWord("0x80000000_004")
		Expect(err).NotTo(HaveOccurred())
		Expect(uint64(w)).To(Equal(uint64(0x80000000)<<10 | 4))

		w, err = stimulus.ParseWord("0x1_000")
		Expect(err).NotTo(HaveOccurred())
		Expect(uint64(w)).To(Equal(uint64(0x1000)))

		w, err = stimulus.ParseWord("42")
		Expect(err).NotTo(HaveOccurred())
		Expect(uint64(w)).To(Equal(uint64(42)))

		_, err = stimulus.ParseWord("zz")
		Expect(err).To(HaveOccurred())
	})

	It("should accept JSON numbers and strings", func() {
		var v struct {
			A stimulus.Word `json:"a"`
			B stimulus.Word `json:"b"`
		}
		Expect(json.Unmarshal([]byte(`{"a": 16, "b": "0x10"}`), &v)).To(Succeed())
		Expect(v.A).To(Equal(stimulus.Word(16)))
		Expect(v.B).To(Equal(stimulus.Word(16)))

		data, err := json.Marshal(v.A)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`"0x10"`))
	})
})

var _ = Describe("Suite", func() {
	It("should parse a YAML suite", func() {
		suite, err := stimulus.Parse([]byte(scenarioYAML))
		Expect(err).NotTo(HaveOccurred())
		Expect(suite.Name).To(Equal("scenario-a"))
		Expect(suite.Steps).To(HaveLen(7))

		tr := suite.Steps[5]
		Expect(tr.Op).To(Equal(stimulus.OpTranslate))
		Expect(*tr.Expect.PhysicalAddress).To(Equal(stimulus.Word(uint64(0x80000000)<<10 | 4)))
		Expect(*tr.Expect.SegFault).To(BeFalse())
		Expect(tr.Expect.ProtFault).To(BeNil())
	})

	It("should parse a JSON suite", func() {
		suite, err := stimulus.Parse([]byte(
			`{"name": "json", "steps": [{"op": "translate", "addr": "0x12345678", "expect": {"seg_fault": true}}]}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(suite.Steps[0].Addr).To(Equal(stimulus.Word(0x12345678)))
	})

	It("should reject other major versions", func() {
		_, err := stimulus.Parse([]byte("version: 2.0.0\nname: x\nsteps: []\n"))
		Expect(err).To(MatchError(stimulus.ErrUnsupportedVersion))

		_, err = stimulus.Parse([]byte("version: banana\nname: x\nsteps: []\n"))
		Expect(err).To(MatchError(stimulus.ErrUnsupportedVersion))
	})

	It("should reject unknown ops and oversized values", func() {
		_, err := stimulus.Parse([]byte("steps: [{op: jump}]"))
		Expect(err).To(MatchError(ContainSubstring("unknown op")))

		_, err = stimulus.Parse([]byte("steps: [{op: write, addr: 0, data: 0x100000000}]"))
		Expect(err).To(MatchError(ContainSubstring("exceeds 32 bits")))
	})

	It("should convert steps to unit inputs", func() {
		Expect(stimulus.Step{Op: stimulus.OpReset}.Inputs()).To(Equal(mmu.Inputs{Reset: true}))
		Expect(stimulus.Step{Op: stimulus.OpWrite, Addr: 0x0C, Data: 7}.Inputs()).To(Equal(mmu.Inputs{
			Mode: mmu.ModeRegisterAccess, Address: 0x0C, Write: true, Data: 7,
		}))
		Expect(stimulus.Step{Op: stimulus.OpTranslate, Addr: 0x10, Write: true}.Inputs()).To(Equal(mmu.Inputs{
			Mode: mmu.ModeTranslate, Address: 0x10, Write: true,
		}))
		Expect(stimulus.Step{Op: stimulus.OpRead, Addr: 0x3C}.Inputs()).To(Equal(mmu.Inputs{
			Mode: mmu.ModeRegisterAccess, Address: 0x3C,
		}))
	})

	It("should build steps with register addresses", func() {
		suite := stimulus.NewSuite("built")
		suite.Install(2, segment.Descriptor{Mask: 0xFFFF0000, Status: segment.Status{Enabled: true}})
		suite.Read(2, segment.FieldStatus).Expect = &stimulus.Expect{Data: stimulus.Ptr(stimulus.Word(0xC8000000))}

		Expect(suite.Steps).To(HaveLen(5))
		Expect(suite.Steps[2].Addr).To(Equal(stimulus.Word(0x28)))
		Expect(suite.Steps[3].Data).To(Equal(stimulus.Word(0x08000000)))
		Expect(suite.Steps[4].Addr).To(Equal(stimulus.Word(0x2C)))
		Expect(suite.Steps[4].Expect).NotTo(BeNil())
	})

	It("should apply config overrides", func() {
		suite := stimulus.NewSuite("o")
		suite.ResetProfile = mmu.ResetDefault
		suite.DisabledMatchFaults = stimulus.Ptr(false)

		base := mmu.DefaultConfig()
		config := suite.Config(base)
		Expect(config.ResetProfile).To(Equal(mmu.ResetDefault))
		Expect(config.DisabledMatchFaults).To(BeFalse())
		Expect(base.ResetProfile).To(Equal(mmu.ResetZero))
	})

	It("should save and load", func() {
		suite, err := stimulus.Parse([]byte(scenarioYAML))
		Expect(err).NotTo(HaveOccurred())

		path := filepath.Join(GinkgoT().TempDir(), "scenario.yaml")
		Expect(suite.Save(path)).To(Succeed())

		loaded, err := stimulus.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(suite))
	})
})
