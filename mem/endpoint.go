package mem

// Endpoint is the contract a bus or interconnect exposes to a core's memory
// ports. An access completes synchronously and reports the latency it would
// have taken; the caller decides whether that latency is charged (atomic
// mode never suspends across simulated time).
type Endpoint interface {
	// Access performs one memory transaction. For reads, the returned value
	// holds the data. latency is the functional access time in cycles.
	Access(addr uint64, size int, isWrite bool, data uint64) (value uint64, latency uint64, err error)
}

// FixedLatencyEndpoint serves accesses directly from a functional Memory
// with a constant latency. It models an ideal memory controller.
type FixedLatencyEndpoint struct {
	memory  *Memory
	latency uint64
}

// NewFixedLatencyEndpoint wraps a functional memory as a bus endpoint.
func NewFixedLatencyEndpoint(memory *Memory, latency uint64) *FixedLatencyEndpoint {
	return &FixedLatencyEndpoint{
		memory:  memory,
		latency: latency,
	}
}

// Access implements Endpoint.
func (e *FixedLatencyEndpoint) Access(
	addr uint64,
	size int,
	isWrite bool,
	data uint64,
) (uint64, uint64, error) {
	if isWrite {
		e.memory.WriteValue(addr, size, data)
		return 0, e.latency, nil
	}
	return e.memory.ReadValue(addr, size), e.latency, nil
}

// Memory returns the backing functional memory.
func (e *FixedLatencyEndpoint) Memory() *Memory {
	return e.memory
}
