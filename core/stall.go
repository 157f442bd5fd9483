package core

// AccessKind distinguishes instruction-side and data-side memory accesses
// for stall accounting.
type AccessKind int

// Access kinds.
const (
	InstAccess AccessKind = iota
	DataAccess
)

// ComputeStallCycles returns the number of synthetic stall cycles to inject
// for one memory access. FastMem suppresses all stalls; otherwise the
// endpoint-observed latency is charged when the matching simulate flag is
// set, floored at one cycle. Pure and deterministic.
func ComputeStallCycles(kind AccessKind, latency uint64, cfg Config) uint64 {
	if cfg.FastMem {
		return 0
	}

	switch kind {
	case InstAccess:
		if !cfg.SimulateInstStalls {
			return 0
		}
	case DataAccess:
		if !cfg.SimulateDataStalls {
			return 0
		}
	default:
		return 0
	}

	if latency == 0 {
		return 1
	}
	return latency
}
