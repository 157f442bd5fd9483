// Package benchmarks provides microbenchmark infrastructure for calibrating
// the cgrasim atomic core model.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/cgrasim/core"
	"github.com/sarchlab/cgrasim/mem"
	"github.com/sarchlab/cgrasim/mem/cache"
)

// Result holds the outcome of a single benchmark run.
type Result struct {
	// Name identifies the benchmark.
	Name string `json:"name"`

	// Description explains what the benchmark measures.
	Description string `json:"description"`

	// Cycles is the total cycle count.
	Cycles uint64 `json:"cycles"`

	// Instructions is the number of retired instructions.
	Instructions uint64 `json:"instructions"`

	// CPI is cycles per instruction.
	CPI float64 `json:"cpi"`

	// StallCycles is the number of injected stall cycles.
	StallCycles uint64 `json:"stall_cycles"`

	// Steps is the number of scheduler steps taken.
	Steps uint64 `json:"steps"`

	// CheckValue is the final value of the benchmark's check register.
	CheckValue uint64 `json:"check_value"`

	// Passed is true when CheckValue matched the expectation.
	Passed bool `json:"passed"`

	// ICacheHits/Misses (if caches enabled).
	ICacheHits   uint64 `json:"icache_hits,omitempty"`
	ICacheMisses uint64 `json:"icache_misses,omitempty"`

	// DCacheHits/Misses (if caches enabled).
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// WallTime is the host time taken to run the simulation.
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark.
	Name string

	// Description explains what the benchmark measures.
	Description string

	// Setup prepares memory and registers before the run.
	Setup func(c *core.Core, memory *mem.Memory)

	// Program is the CGRA-32 machine code, loaded at address 0.
	Program []uint32

	// CheckReg is the register validated after the run.
	CheckReg uint8

	// Expected is the value CheckReg must hold for the run to pass.
	Expected uint64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Width is the number of instructions retired per step.
	Width int

	// FastMem bypasses the memory ports entirely.
	FastMem bool

	// EnableCaches routes the ports through L1 caches.
	EnableCaches bool

	// SimulateDataStalls charges data latencies as stall cycles.
	SimulateDataStalls bool

	// SimulateInstStalls charges fetch latencies as stall cycles.
	SimulateInstStalls bool

	// BusLatency is the flat bus latency when caches are off.
	BusLatency uint64

	// Output is where to write results (default: os.Stdout).
	Output io.Writer

	// Verbose enables per-benchmark output during RunAll.
	Verbose bool
}

// DefaultConfig returns a default harness configuration: single-issue with
// caches and stall simulation on.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Width:              1,
		EnableCaches:       true,
		SimulateDataStalls: true,
		SimulateInstStalls: true,
		BusLatency:         1,
		Output:             os.Stdout,
	}
}

// Harness runs benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Width == 0 {
		config.Width = 1
	}
	if config.BusLatency == 0 {
		config.BusLatency = 1
	}
	return &Harness{config: config}
}

// AddBenchmark appends one benchmark to the run list.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks appends several benchmarks to the run list.
func (h *Harness) AddBenchmarks(bs []Benchmark) {
	h.benchmarks = append(h.benchmarks, bs...)
}

// RunAll runs every registered benchmark and returns the results.
func (h *Harness) RunAll() ([]Result, error) {
	results := make([]Result, 0, len(h.benchmarks))
	for _, b := range h.benchmarks {
		r, err := h.Run(b)
		if err != nil {
			return results, fmt.Errorf("benchmark %s: %w", b.Name, err)
		}
		if h.config.Verbose {
			fmt.Fprintf(h.config.Output, "%s: cycles=%d insts=%d cpi=%.3f\n",
				r.Name, r.Cycles, r.Instructions, r.CPI)
		}
		results = append(results, r)
	}
	return results, nil
}

// Run executes one benchmark on a freshly built core.
func (h *Harness) Run(b Benchmark) (Result, error) {
	cfg := core.DefaultConfig()
	cfg.Width = h.config.Width
	cfg.FastMem = h.config.FastMem
	cfg.SimulateDataStalls = h.config.SimulateDataStalls
	cfg.SimulateInstStalls = h.config.SimulateInstStalls

	memory := mem.NewMemory()
	for i, word := range b.Program {
		memory.Write32(uint64(i)*4, word)
	}

	var opts []core.CoreOption
	if cfg.FastMem {
		opts = append(opts, core.WithDirectMemory(memory))
	}

	c, err := core.NewCore(cfg, opts...)
	if err != nil {
		return Result{}, err
	}

	var icache, dcache *cache.Cache
	if !cfg.FastMem {
		if h.config.EnableCaches {
			icache = cache.New(cache.DefaultInstConfig(), memory)
			dcache = cache.New(cache.DefaultDataConfig(), memory)
			c.ConnectInstPort(icache)
			if err := c.ConnectAllDataPorts(dcache); err != nil {
				return Result{}, err
			}
		} else {
			bus := mem.NewFixedLatencyEndpoint(memory, h.config.BusLatency)
			c.ConnectInstPort(bus)
			if err := c.ConnectAllDataPorts(bus); err != nil {
				return Result{}, err
			}
		}
	}

	if b.Setup != nil {
		b.Setup(c, memory)
	}

	start := time.Now()
	res := c.Run()
	wall := time.Since(start)

	if res.Err != nil {
		return Result{}, res.Err
	}
	if res.Fault != nil {
		return Result{}, fmt.Errorf("fault %v at PC 0x%X", res.Fault.Kind,
			res.Fault.PC)
	}

	stats := c.Stats()
	checkValue := c.State().Regs[b.CheckReg]

	r := Result{
		Name:         b.Name,
		Description:  b.Description,
		Cycles:       stats.Cycles,
		Instructions: stats.Instructions,
		StallCycles:  stats.StallCycles,
		Steps:        stats.Steps,
		CheckValue:   checkValue,
		Passed:       checkValue == b.Expected,
		WallTime:     wall,
	}
	if stats.Instructions > 0 {
		r.CPI = float64(stats.Cycles) / float64(stats.Instructions)
	}
	if icache != nil {
		r.ICacheHits = icache.Stats().Hits
		r.ICacheMisses = icache.Stats().Misses
		r.DCacheHits = dcache.Stats().Hits
		r.DCacheMisses = dcache.Stats().Misses
	}

	return r, nil
}

// PrintResults writes a human-readable result table.
func (h *Harness) PrintResults(results []Result) {
	w := h.config.Output
	fmt.Fprintf(w, "%-24s %10s %10s %8s %10s %6s\n",
		"Benchmark", "Cycles", "Insts", "CPI", "Stalls", "Pass")
	for _, r := range results {
		pass := "yes"
		if !r.Passed {
			pass = "NO"
		}
		fmt.Fprintf(w, "%-24s %10d %10d %8.3f %10d %6s\n",
			r.Name, r.Cycles, r.Instructions, r.CPI, r.StallCycles, pass)
	}
}

// PrintCSV writes results as CSV rows for spreadsheet import.
func (h *Harness) PrintCSV(results []Result) {
	w := h.config.Output
	fmt.Fprintln(w, "name,cycles,instructions,cpi,stall_cycles,passed")
	for _, r := range results {
		fmt.Fprintf(w, "%s,%d,%d,%.4f,%d,%t\n",
			r.Name, r.Cycles, r.Instructions, r.CPI, r.StallCycles, r.Passed)
	}
}

// WriteJSON writes results as a JSON array.
func (h *Harness) WriteJSON(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
