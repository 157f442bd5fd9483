package core_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cgrasim/core"
	"github.com/sarchlab/cgrasim/mem"
)

var _ = Describe("PortSet", func() {
	var (
		ps     *core.PortSet
		memory *mem.Memory
		ep     *mem.FixedLatencyEndpoint
	)

	BeforeEach(func() {
		ps = core.NewPortSet()
		memory = mem.NewMemory()
		ep = mem.NewFixedLatencyEndpoint(memory, 2)
	})

	Describe("Connect", func() {
		It("should bind a port in range", func() {
			Expect(ps.Connect(0, ep)).To(BeNil())
			Expect(ps.IsConnected(0)).To(BeTrue())
			Expect(ps.IsConnected(1)).To(BeFalse())
		})

		It("should fail with a ConfigurationError for an out-of-range index", func() {
			for _, idx := range []int{-1, core.NumDataPorts, 99} {
				err := ps.Connect(idx, ep)
				var cfgErr *core.ConfigurationError
				Expect(errors.As(err, &cfgErr)).To(BeTrue())
			}
		})

		It("should allow rebinding the same endpoint", func() {
			Expect(ps.Connect(1, ep)).To(BeNil())
			Expect(ps.Connect(1, ep)).To(BeNil())
		})

		It("should reject rebinding a different endpoint", func() {
			other := mem.NewFixedLatencyEndpoint(memory, 5)

			Expect(ps.Connect(1, ep)).To(BeNil())
			Expect(ps.Connect(1, other)).NotTo(BeNil())
		})

		It("should bind every port with ConnectAll", func() {
			Expect(ps.ConnectAll(ep)).To(BeNil())
			for i := 0; i < core.NumDataPorts; i++ {
				Expect(ps.IsConnected(i)).To(BeTrue())
			}
		})
	})

	Describe("Issue", func() {
		It("should fail with PortUnconnectedError on an unbound port", func() {
			_, _, err := ps.Issue(2, 0x100, 4, false, 0)

			var portErr *core.PortUnconnectedError
			Expect(errors.As(err, &portErr)).To(BeTrue())
			Expect(portErr.PortIndex).To(Equal(2))
		})

		It("should never return data from an unbound port", func() {
			memory.Write32(0x100, 0xDEADBEEF)

			value, _, err := ps.Issue(0, 0x100, 4, false, 0)
			Expect(err).NotTo(BeNil())
			Expect(value).To(Equal(uint64(0)))
		})

		It("should perform reads and writes through a bound port", func() {
			Expect(ps.Connect(0, ep)).To(BeNil())

			_, latency, err := ps.Issue(0, 0x40, 8, true, 0x1234)
			Expect(err).To(BeNil())
			Expect(latency).To(Equal(uint64(2)))

			value, _, err := ps.Issue(0, 0x40, 8, false, 0)
			Expect(err).To(BeNil())
			Expect(value).To(Equal(uint64(0x1234)))
		})

		It("should reset the outstanding marker after each atomic access", func() {
			Expect(ps.Connect(0, ep)).To(BeNil())

			ps.Issue(0, 0x0, 4, false, 0)
			Expect(ps.Outstanding()).To(Equal(uint64(0)))
		})

		It("should count completed accesses per port", func() {
			Expect(ps.ConnectAll(ep)).To(BeNil())

			ps.Issue(1, 0x8, 4, false, 0)
			ps.Issue(1, 0x8, 4, false, 0)
			ps.Issue(3, 0x18, 4, false, 0)

			Expect(ps.Accesses(1)).To(Equal(uint64(2)))
			Expect(ps.Accesses(3)).To(Equal(uint64(1)))
			Expect(ps.Accesses(0)).To(Equal(uint64(0)))
		})
	})

	Describe("Adopt", func() {
		It("should move the bindings and unbind the source", func() {
			Expect(ps.ConnectAll(ep)).To(BeNil())

			dst := core.NewPortSet()
			dst.Adopt(ps)

			for i := 0; i < core.NumDataPorts; i++ {
				Expect(dst.IsConnected(i)).To(BeTrue())
				Expect(ps.IsConnected(i)).To(BeFalse())
			}
		})
	})
})
