package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cgrasim/core"
	"github.com/sarchlab/cgrasim/loader"
	"github.com/sarchlab/cgrasim/mem"
	"github.com/sarchlab/cgrasim/mem/cache"
	"github.com/sarchlab/cgrasim/profiling/simpoint"
)

var runFlags struct {
	configPath string
	width      int
	dataStalls bool
	instStalls bool
	fastMem    bool
	caches     bool
	busLatency uint64

	raw  bool
	base uint64

	maxSteps uint64

	simPointProfile  bool
	simPointInterval uint64
	simPointFile     string
}

var runCmd = &cobra.Command{
	Use:   "run <program>",
	Short: "Run a CGRA-32 program to completion and report statistics.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}

		report, err := simulate(cfg, args[0])
		if err != nil {
			return err
		}

		printReport(report)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.configPath, "config", "",
		"path to a core configuration JSON file")
	runCmd.Flags().IntVar(&runFlags.width, "width", 1,
		"instructions retired per step")
	runCmd.Flags().BoolVar(&runFlags.dataStalls, "simulate-data-stalls", false,
		"charge data access latencies as stall cycles")
	runCmd.Flags().BoolVar(&runFlags.instStalls, "simulate-inst-stalls", false,
		"charge instruction fetch latencies as stall cycles")
	runCmd.Flags().BoolVar(&runFlags.fastMem, "fastmem", false,
		"bypass the memory ports and access memory directly")
	runCmd.Flags().BoolVar(&runFlags.caches, "caches", false,
		"route the ports through L1 instruction and data caches")
	runCmd.Flags().Uint64Var(&runFlags.busLatency, "bus-latency", 1,
		"flat bus latency in cycles when caches are off")
	runCmd.Flags().BoolVar(&runFlags.raw, "raw", false,
		"treat the program as a flat binary image instead of ELF")
	runCmd.Flags().Uint64Var(&runFlags.base, "base", 0,
		"load address and entry point for raw images")
	runCmd.Flags().Uint64Var(&runFlags.maxSteps, "max-steps", 0,
		"abort after this many steps (0 = unlimited)")
	runCmd.Flags().BoolVar(&runFlags.simPointProfile, "simpoint-profile", false,
		"emit SimPoint basic-block vectors")
	runCmd.Flags().Uint64Var(&runFlags.simPointInterval, "simpoint-interval",
		core.DefaultConfig().SimPointInterval,
		"instructions per SimPoint interval")
	runCmd.Flags().StringVar(&runFlags.simPointFile, "simpoint-file",
		core.DefaultConfig().SimPointProfileFile,
		"SimPoint BBV output file")

	rootCmd.AddCommand(runCmd)
}

// resolveConfig loads the configuration file if one is given, then applies
// any flag the user set on top of it.
func resolveConfig(cmd *cobra.Command) (core.Config, error) {
	cfg := core.DefaultConfig()

	if runFlags.configPath != "" {
		loaded, err := core.LoadConfig(runFlags.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("width") {
		cfg.Width = runFlags.width
	}
	if flags.Changed("simulate-data-stalls") {
		cfg.SimulateDataStalls = runFlags.dataStalls
	}
	if flags.Changed("simulate-inst-stalls") {
		cfg.SimulateInstStalls = runFlags.instStalls
	}
	if flags.Changed("fastmem") {
		cfg.FastMem = runFlags.fastMem
	}
	if flags.Changed("simpoint-profile") {
		cfg.SimPointProfile = runFlags.simPointProfile
	}
	if flags.Changed("simpoint-interval") {
		cfg.SimPointInterval = runFlags.simPointInterval
	}
	if flags.Changed("simpoint-file") {
		cfg.SimPointProfileFile = runFlags.simPointFile
	}

	return cfg, cfg.Validate()
}

// runReport holds everything printReport needs.
type runReport struct {
	program string
	stats   core.Stats
	halted  bool
	fault   *core.ExecutionFault
	records uint64

	instCache *cache.Cache
	dataCache *cache.Cache
}

// simulate loads a program image and runs it to completion on a single
// atomic core.
func simulate(cfg core.Config, path string) (*runReport, error) {
	var prog *loader.Program
	var err error
	if runFlags.raw {
		prog, err = loader.LoadRaw(path, runFlags.base)
	} else {
		prog, err = loader.Load(path)
	}
	if err != nil {
		return nil, err
	}

	memory := mem.NewMemory()
	prog.LoadInto(memory)

	var coreOpts []core.CoreOption
	if cfg.FastMem {
		coreOpts = append(coreOpts, core.WithDirectMemory(memory))
	}

	var prof *simpoint.Profiler
	if cfg.SimPointProfile {
		prof, err = simpoint.New(cfg.SimPointProfileFile, cfg.SimPointInterval)
		if err != nil {
			return nil, err
		}
		atexit.Register(func() { _ = prof.Close() })
		coreOpts = append(coreOpts, core.WithObserver(prof))
	}

	c, err := core.NewCore(cfg, coreOpts...)
	if err != nil {
		return nil, err
	}

	report := &runReport{program: path}

	if !cfg.FastMem {
		if runFlags.caches {
			report.instCache = cache.New(cache.DefaultInstConfig(), memory)
			report.dataCache = cache.New(cache.DefaultDataConfig(), memory)
			c.ConnectInstPort(report.instCache)
			if err := c.ConnectAllDataPorts(report.dataCache); err != nil {
				return nil, err
			}
		} else {
			bus := mem.NewFixedLatencyEndpoint(memory, runFlags.busLatency)
			c.ConnectInstPort(bus)
			if err := c.ConnectAllDataPorts(bus); err != nil {
				return nil, err
			}
		}
	}

	c.SetPC(prog.EntryPoint)

	ctrl := core.NewController(c)
	if err := ctrl.Start(); err != nil {
		return nil, err
	}

	for {
		res, err := ctrl.Step()
		if err != nil {
			return nil, err
		}
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Fault != nil {
			report.fault = res.Fault
			break
		}
		if res.Halted {
			report.halted = true
			break
		}
		if runFlags.maxSteps > 0 && c.Stats().Steps >= runFlags.maxSteps {
			break
		}
	}

	if report.dataCache != nil {
		report.dataCache.Flush()
	}
	if prof != nil {
		report.records = prof.Records()
		if err := prof.Close(); err != nil {
			return nil, err
		}
	}

	report.stats = c.Stats()
	return report, nil
}

// printReport prints the run outcome and counters.
func printReport(r *runReport) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	bold.Printf("Program: %s\n", r.program)
	switch {
	case r.halted:
		green.Println("Outcome: halted")
	case r.fault != nil:
		red.Printf("Outcome: fault (%v at PC 0x%X)\n", r.fault.Kind, r.fault.PC)
	default:
		red.Println("Outcome: step limit reached")
	}

	s := r.stats
	fmt.Printf("Steps:          %d\n", s.Steps)
	fmt.Printf("Instructions:   %d\n", s.Instructions)
	fmt.Printf("Cycles:         %d\n", s.Cycles)
	fmt.Printf("Stall cycles:   %d\n", s.StallCycles)
	fmt.Printf("Inst fetches:   %d\n", s.InstFetches)
	fmt.Printf("Data accesses:  %d\n", s.DataAccesses)
	if s.Instructions > 0 {
		fmt.Printf("CPI:            %.3f\n",
			float64(s.Cycles)/float64(s.Instructions))
	}

	if r.instCache != nil {
		printCacheStats("L1I", r.instCache.Stats())
		printCacheStats("L1D", r.dataCache.Stats())
	}
	if r.records > 0 {
		fmt.Printf("BBV records:    %d\n", r.records)
	}
}

func printCacheStats(name string, s cache.Statistics) {
	accesses := s.Hits + s.Misses
	fmt.Printf("%s: %d accesses, %d hits, %d misses", name, accesses, s.Hits,
		s.Misses)
	if accesses > 0 {
		fmt.Printf(" (%.1f%% hit rate)", 100*float64(s.Hits)/float64(accesses))
	}
	fmt.Println()
}
