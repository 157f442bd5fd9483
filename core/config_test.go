package core_test

import (
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cgrasim/core"
)

var _ = Describe("Config", func() {
	It("should provide valid defaults", func() {
		cfg := core.DefaultConfig()

		Expect(cfg.Validate()).To(BeNil())
		Expect(cfg.Width).To(Equal(1))
		Expect(cfg.SimPointInterval).To(Equal(uint64(100000000)))
		Expect(cfg.SimPointProfileFile).To(Equal("simpoint.bb.gz"))
	})

	It("should reject a non-positive width", func() {
		cfg := core.DefaultConfig()
		cfg.Width = 0

		err := cfg.Validate()
		var cfgErr *core.ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
	})

	It("should reject a zero simpoint interval when profiling", func() {
		cfg := core.DefaultConfig()
		cfg.SimPointProfile = true
		cfg.SimPointInterval = 0

		Expect(cfg.Validate()).NotTo(BeNil())
	})

	It("should allow a zero simpoint interval when not profiling", func() {
		cfg := core.DefaultConfig()
		cfg.SimPointInterval = 0

		Expect(cfg.Validate()).To(BeNil())
	})

	It("should round-trip through JSON", func() {
		path := filepath.Join(GinkgoT().TempDir(), "core.json")

		cfg := core.DefaultConfig()
		cfg.Width = 4
		cfg.SimulateDataStalls = true
		Expect(cfg.SaveConfig(path)).To(BeNil())

		loaded, err := core.LoadConfig(path)
		Expect(err).To(BeNil())
		Expect(loaded).To(Equal(cfg))
	})

	It("should fail to load a missing file", func() {
		_, err := core.LoadConfig("/nonexistent/core.json")
		Expect(err).NotTo(BeNil())
	})
})

var _ = Describe("ComputeStallCycles", func() {
	It("should return zero for every kind when fastmem is set", func() {
		cfg := core.DefaultConfig()
		cfg.FastMem = true
		cfg.SimulateDataStalls = true
		cfg.SimulateInstStalls = true

		for _, kind := range []core.AccessKind{core.InstAccess, core.DataAccess} {
			for _, latency := range []uint64{0, 1, 20, 150} {
				Expect(core.ComputeStallCycles(kind, latency, cfg)).To(Equal(uint64(0)))
			}
		}
	})

	It("should return zero when the matching flag is off", func() {
		cfg := core.DefaultConfig()

		Expect(core.ComputeStallCycles(core.InstAccess, 20, cfg)).To(Equal(uint64(0)))
		Expect(core.ComputeStallCycles(core.DataAccess, 20, cfg)).To(Equal(uint64(0)))
	})

	It("should charge the observed latency when the flag is on", func() {
		cfg := core.DefaultConfig()
		cfg.SimulateDataStalls = true

		Expect(core.ComputeStallCycles(core.DataAccess, 20, cfg)).To(Equal(uint64(20)))
		Expect(core.ComputeStallCycles(core.InstAccess, 20, cfg)).To(Equal(uint64(0)))
	})

	It("should floor a zero latency at one cycle", func() {
		cfg := core.DefaultConfig()
		cfg.SimulateInstStalls = true

		Expect(core.ComputeStallCycles(core.InstAccess, 0, cfg)).To(Equal(uint64(1)))
	})
})
