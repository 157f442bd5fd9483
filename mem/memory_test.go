package mem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cgrasim/mem"
)

var _ = Describe("Memory", func() {
	var m *mem.Memory

	BeforeEach(func() {
		m = mem.NewMemory()
	})

	It("should read zero from untouched locations", func() {
		Expect(m.Read8(0x1000)).To(Equal(uint8(0)))
		Expect(m.Read64(0xDEAD0000)).To(Equal(uint64(0)))
	})

	It("should round-trip bytes", func() {
		m.Write8(0x42, 0xAB)
		Expect(m.Read8(0x42)).To(Equal(uint8(0xAB)))
	})

	It("should store multi-byte values little-endian", func() {
		m.Write32(0x100, 0xDEADBEEF)

		Expect(m.Read8(0x100)).To(Equal(uint8(0xEF)))
		Expect(m.Read8(0x101)).To(Equal(uint8(0xBE)))
		Expect(m.Read8(0x102)).To(Equal(uint8(0xAD)))
		Expect(m.Read8(0x103)).To(Equal(uint8(0xDE)))
	})

	It("should round-trip 64-bit values across page boundaries", func() {
		addr := uint64(mem.PageSize - 4)
		m.Write64(addr, 0x1122334455667788)

		Expect(m.Read64(addr)).To(Equal(uint64(0x1122334455667788)))
	})

	It("should load segments with BSS zero-fill", func() {
		m.Write8(0x2005, 0xFF) // stale data inside the BSS range
		m.LoadSegment(0x2000, []byte{1, 2, 3, 4}, 8)

		Expect(m.Read8(0x2000)).To(Equal(uint8(1)))
		Expect(m.Read8(0x2003)).To(Equal(uint8(4)))
		Expect(m.Read8(0x2005)).To(Equal(uint8(0)))
	})

	It("should read and write sized values", func() {
		m.WriteValue(0x3000, 2, 0xBEEF)
		Expect(m.ReadValue(0x3000, 2)).To(Equal(uint64(0xBEEF)))

		m.WriteValue(0x3008, 8, 0xCAFEBABE12345678)
		Expect(m.ReadValue(0x3008, 8)).To(Equal(uint64(0xCAFEBABE12345678)))
	})
})

var _ = Describe("FixedLatencyEndpoint", func() {
	var (
		m  *mem.Memory
		ep *mem.FixedLatencyEndpoint
	)

	BeforeEach(func() {
		m = mem.NewMemory()
		ep = mem.NewFixedLatencyEndpoint(m, 3)
	})

	It("should serve writes and reads against the backing memory", func() {
		_, latency, err := ep.Access(0x100, 4, true, 0x12345678)
		Expect(err).To(BeNil())
		Expect(latency).To(Equal(uint64(3)))

		value, latency, err := ep.Access(0x100, 4, false, 0)
		Expect(err).To(BeNil())
		Expect(latency).To(Equal(uint64(3)))
		Expect(value).To(Equal(uint64(0x12345678)))
	})

	It("should report the same latency for every access", func() {
		_, l1, _ := ep.Access(0x0, 1, false, 0)
		_, l2, _ := ep.Access(0xFFFF, 8, true, 1)

		Expect(l1).To(Equal(l2))
	})
})
