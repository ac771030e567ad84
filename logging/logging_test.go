package logging_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/segsim/logging"
)

var _ = Describe("Logging", func() {
	It("should gate messages by verbosity", func() {
		var buf bytes.Buffer
		log := logging.New(&buf, 1)

		log.V(1).Info("segmentation fault", "addr", "0x12345678")
		log.V(2).Info("register read")

		Expect(buf.String()).To(ContainSubstring(`"msg"="segmentation fault"`))
		Expect(buf.String()).To(ContainSubstring(`"addr"="0x12345678"`))
		Expect(buf.String()).NotTo(ContainSubstring("register read"))
	})

	It("should append to a log file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "segsim.log")

		log, closer, err := logging.Open(path, 0)
		Expect(err).NotTo(HaveOccurred())
		log.Info("hello")
		Expect(closer.Close()).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("log opened"))
		Expect(string(data)).To(ContainSubstring(`"msg"="hello"`))
		Expect(string(data)).To(ContainSubstring("segsim"))
	})
})
