package harness_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/segsim/harness"
	"github.com/sarchlab/segsim/mmu"
	"github.com/sarchlab/segsim/segment"
	"github.com/sarchlab/segsim/stimulus"
)

var _ = Describe("Harness", func() {
	var (
		out    *bytes.Buffer
		config harness.Config
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		config = harness.DefaultConfig()
		config.Output = out
	})

	It("should pass every builtin suite", func() {
		h := harness.NewHarness(config)
		h.AddSuites(harness.BuiltinSuites())

		results, err := h.RunAll(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(4))

		for _, r := range results {
			Expect(r.Passed).To(BeTrue(), "%s: %v", r.Name, r.Mismatches)
			Expect(r.Checked).To(BeNumerically(">", 0))
			Expect(r.Cycles).To(Equal(uint64(r.Steps)))
			Expect(r.RunID).To(Equal(h.RunID()))
		}
	})

	It("should keep results in suite order", func() {
		config.Parallelism = 2
		h := harness.NewHarness(config)
		suites := harness.BuiltinSuites()
		h.AddSuites(suites)

		results, err := h.RunAll(context.Background())
		Expect(err).NotTo(HaveOccurred())
		for i, r := range results {
			Expect(r.Name).To(Equal(suites[i].Name))
		}
	})

	It("should report mismatches with a diff", func() {
		s := stimulus.NewSuite("wrong")
		s.Reset()
		step := s.Translate(0x1000, false)
		step.Comment = "expects a hit"
		step.Expect = &stimulus.Expect{SegFault: stimulus.Ptr(false)}

		config.Verbose = true
		h := harness.NewHarness(config)
		r, err := h.Run(s)
		Expect(err).NotTo(HaveOccurred())

		Expect(r.Passed).To(BeFalse())
		Expect(r.Mismatches).To(HaveLen(1))
		m := r.Mismatches[0]
		Expect(m.Step).To(Equal(1))
		Expect(m.Want.SegFault).To(BeFalse())
		Expect(m.Got.SegFault).To(BeTrue())
		Expect(m.Diff).To(ContainSubstring("SegFault"))

		h.PrintResults([]harness.Result{r})
		Expect(out.String()).To(ContainSubstring("FAIL wrong"))
		Expect(out.String()).To(ContainSubstring("expects a hit"))
	})

	It("should apply suite overrides", func() {
		s := stimulus.NewSuite("lenient")
		s.DisabledMatchFaults = stimulus.Ptr(false)
		s.Reset()
		s.Translate(0x1000, false).Expect = &stimulus.Expect{SegFault: stimulus.Ptr(false)}

		r, err := harness.NewHarness(config).Run(s)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Passed).To(BeTrue())
		Expect(r.Stats.DisabledMatches).To(Equal(uint64(1)))
	})

	It("should record a trace when asked", func() {
		config.Trace = true
		h := harness.NewHarness(config)

		s := stimulus.NewSuite("traced")
		s.Reset()
		s.Write(0, segment.FieldPhysicalBase, 0x1234)
		s.Read(0, segment.FieldPhysicalBase)

		r, err := h.Run(s)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Trace).To(HaveLen(3))
		Expect(r.Trace[1].Outputs.Data).To(Equal("ZZZZZZZZ"))
		Expect(r.Trace[2].Outputs.Data).To(Equal("0x00001234"))
		Expect(r.Checked).To(BeZero())
	})

	It("should fail the run on an unusable configuration", func() {
		s := stimulus.NewSuite("broken")
		s.ResetProfile = mmu.ResetCustom
		s.Reset()

		h := harness.NewHarness(config)
		h.AddSuite(s)
		_, err := h.RunAll(context.Background())
		Expect(err).To(MatchError(ContainSubstring(`suite "broken"`)))
	})

	It("should write a JSON report", func() {
		h := harness.NewHarness(config)
		h.AddSuites(harness.BuiltinSuites())
		results, err := h.RunAll(context.Background())
		Expect(err).NotTo(HaveOccurred())

		path := filepath.Join(GinkgoT().TempDir(), "report.json")
		Expect(h.WriteReport(path, results)).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())

		var report harness.Report
		Expect(json.Unmarshal(data, &report)).To(Succeed())
		Expect(report.Metadata.RunID).To(Equal(h.RunID()))
		Expect(report.Metadata.Version).To(Equal(harness.Version))
		Expect(report.Summary.TotalSuites).To(Equal(4))
		Expect(report.Summary.Passed).To(Equal(4))
		Expect(report.Summary.TotalMismatches).To(BeZero())

		out.Reset()
		Expect(h.PrintJSON(results)).To(Succeed())
		Expect(out.String()).To(ContainSubstring(`"total_suites": 4`))
	})
})

var _ = Describe("Expected", func() {
	got := harness.Observe(mmu.Outputs{
		PhysicalAddress: mmu.NewPhysicalAddress(0x80000000, 4),
		DataOut:         mmu.Undriven,
	})

	It("should leave unchecked fields alone", func() {
		want := harness.Expected(&stimulus.Expect{}, got)
		Expect(want).To(Equal(got))
	})

	It("should fill checked fields", func() {
		want := harness.Expected(&stimulus.Expect{
			SegFault: stimulus.Ptr(true),
			Data:     stimulus.Ptr(stimulus.Word(7)),
		}, got)
		Expect(want.SegFault).To(BeTrue())
		Expect(want.Data).To(Equal("0x00000007"))
		Expect(want.PhysicalAddress).To(Equal("0x80000000_004"))
	})

	It("should flag an undriven bus that was expected driven", func() {
		want := harness.Expected(&stimulus.Expect{Undriven: stimulus.Ptr(false)}, got)
		Expect(want.Data).NotTo(Equal(got.Data))
	})
})
