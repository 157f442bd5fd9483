package simpoint_test

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cgrasim/profiling/simpoint"
)

// observeStraightLine feeds n sequential PCs starting at base.
func observeStraightLine(p *simpoint.Profiler, base uint64, n int) {
	for i := 0; i < n; i++ {
		p.Observe(base + uint64(i)*4)
	}
}

// decodeRecords gunzips the output and returns the BBV lines.
func decodeRecords(buf *bytes.Buffer) []string {
	r, err := gzip.NewReader(bytes.NewReader(buf.Bytes()))
	Expect(err).To(BeNil())

	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	Expect(scanner.Err()).To(BeNil())
	return lines
}

var _ = Describe("Profiler", func() {
	var (
		buf *bytes.Buffer
		p   *simpoint.Profiler
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		p = simpoint.NewWithWriter(buf, 10)
	})

	Describe("emission intervals", func() {
		It("should emit exactly one record after interval instructions", func() {
			observeStraightLine(p, 0x1000, 10)
			Expect(p.Records()).To(Equal(uint64(1)))
		})

		It("should emit exactly one record after 2*interval - 1 instructions", func() {
			observeStraightLine(p, 0x1000, 19)
			Expect(p.Records()).To(Equal(uint64(1)))
		})

		It("should emit exactly two records after 2*interval instructions", func() {
			observeStraightLine(p, 0x1000, 20)
			Expect(p.Records()).To(Equal(uint64(2)))
		})

		It("should emit nothing below the interval", func() {
			observeStraightLine(p, 0x1000, 9)
			Expect(p.Records()).To(Equal(uint64(0)))
		})
	})

	Describe("record content", func() {
		It("should account every instruction of the interval to a block", func() {
			observeStraightLine(p, 0x1000, 10)
			Expect(p.Close()).To(BeNil())

			lines := decodeRecords(buf)
			Expect(lines).To(HaveLen(1))
			Expect(lines[0]).To(HavePrefix("T:"))

			total := 0
			for _, pair := range strings.Fields(lines[0][1:]) {
				parts := strings.Split(strings.TrimPrefix(pair, ":"), ":")
				Expect(parts).To(HaveLen(2))
				n, err := strconv.Atoi(parts[1])
				Expect(err).To(BeNil())
				total += n
			}
			Expect(total).To(Equal(10))
		})

		It("should give distinct blocks distinct IDs", func() {
			// Two alternating blocks of 5 instructions each.
			observeStraightLine(p, 0x1000, 5)
			observeStraightLine(p, 0x2000, 5)
			Expect(p.Close()).To(BeNil())

			lines := decodeRecords(buf)
			Expect(lines).To(HaveLen(1))
			Expect(strings.Fields(lines[0][1:])).To(HaveLen(2))
		})

		It("should keep block IDs stable across intervals", func() {
			observeStraightLine(p, 0x1000, 5)
			observeStraightLine(p, 0x2000, 5)
			observeStraightLine(p, 0x1000, 5)
			observeStraightLine(p, 0x2000, 5)
			Expect(p.Close()).To(BeNil())

			lines := decodeRecords(buf)
			Expect(lines).To(HaveLen(2))
			Expect(lines[0]).To(Equal(lines[1]))
		})

		It("should discard a partial interval on close", func() {
			observeStraightLine(p, 0x1000, 14)
			Expect(p.Close()).To(BeNil())

			lines := decodeRecords(buf)
			Expect(lines).To(HaveLen(1))
		})
	})

	Describe("file output", func() {
		It("should write a readable gzip file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "simpoint.bb.gz")

			fp, err := simpoint.New(path, 4)
			Expect(err).To(BeNil())
			observeStraightLine(fp, 0x0, 8)
			Expect(fp.Close()).To(BeNil())

			data, err := os.ReadFile(path)
			Expect(err).To(BeNil())

			lines := decodeRecords(bytes.NewBuffer(data))
			Expect(lines).To(HaveLen(2))
		})

		It("should reject a zero interval", func() {
			_, err := simpoint.New(filepath.Join(GinkgoT().TempDir(), "x.gz"), 0)
			Expect(err).NotTo(BeNil())
		})
	})
})
