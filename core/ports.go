package core

import (
	"fmt"

	"github.com/sarchlab/cgrasim/mem"
)

// NumDataPorts is the number of outbound data-memory ports on a core.
const NumDataPorts = 4

// PortSet is the fixed-size collection of data-memory ports. Each slot holds
// a connection to a bus endpoint plus in-flight bookkeeping; the set owns no
// data. Connections are rebound, not recreated, on take-over.
type PortSet struct {
	endpoints   [NumDataPorts]mem.Endpoint
	outstanding [NumDataPorts]uint64
	accesses    [NumDataPorts]uint64
}

// NewPortSet creates an empty port set.
func NewPortSet() *PortSet {
	return &PortSet{}
}

// Connect binds the port at portIndex to a bus endpoint. Rebinding the same
// endpoint is idempotent; binding a different endpoint over a live
// connection is a configuration error (take-over rebinds through Adopt).
func (ps *PortSet) Connect(portIndex int, endpoint mem.Endpoint) error {
	if portIndex < 0 || portIndex >= NumDataPorts {
		return &ConfigurationError{
			Reason: fmt.Sprintf("data port index %d out of range [0,%d)",
				portIndex, NumDataPorts),
		}
	}
	if ps.endpoints[portIndex] != nil && ps.endpoints[portIndex] != endpoint {
		return &ConfigurationError{
			Reason: fmt.Sprintf("data port %d is already connected to a different endpoint",
				portIndex),
		}
	}
	ps.endpoints[portIndex] = endpoint
	return nil
}

// ConnectAll binds every data port to the same bus endpoint, the common
// single-bus topology.
func (ps *PortSet) ConnectAll(endpoint mem.Endpoint) error {
	for i := 0; i < NumDataPorts; i++ {
		if err := ps.Connect(i, endpoint); err != nil {
			return err
		}
	}
	return nil
}

// IsConnected reports whether the port at portIndex is bound.
func (ps *PortSet) IsConnected(portIndex int) bool {
	return portIndex >= 0 && portIndex < NumDataPorts &&
		ps.endpoints[portIndex] != nil
}

// Issue performs one synchronous atomic access through a port. The
// outstanding-request marker is raised for the duration of the access and
// reset afterwards; if the endpoint fails, the marker stays raised so the
// drain logic can detect the stuck request.
func (ps *PortSet) Issue(
	portIndex int,
	addr uint64,
	size int,
	isWrite bool,
	data uint64,
) (uint64, uint64, error) {
	if portIndex < 0 || portIndex >= NumDataPorts {
		return 0, 0, &ConfigurationError{
			Reason: fmt.Sprintf("data port index %d out of range [0,%d)",
				portIndex, NumDataPorts),
		}
	}
	if ps.endpoints[portIndex] == nil {
		return 0, 0, &PortUnconnectedError{PortIndex: portIndex}
	}

	ps.outstanding[portIndex]++
	value, latency, err := ps.endpoints[portIndex].Access(addr, size, isWrite, data)
	if err != nil {
		return 0, 0, fmt.Errorf("data port %d access failed: %w", portIndex, err)
	}
	ps.outstanding[portIndex] = 0
	ps.accesses[portIndex]++

	return value, latency, nil
}

// Outstanding returns the total number of in-flight requests across all
// ports. In atomic mode this is zero between accesses.
func (ps *PortSet) Outstanding() uint64 {
	var total uint64
	for _, n := range ps.outstanding {
		total += n
	}
	return total
}

// Accesses returns the number of completed accesses on the port at portIndex.
func (ps *PortSet) Accesses(portIndex int) uint64 {
	if portIndex < 0 || portIndex >= NumDataPorts {
		return 0
	}
	return ps.accesses[portIndex]
}

// Adopt moves the endpoint bindings from another port set into this one.
// The source set is left unbound. Bookkeeping counters are not transferred;
// they belong to the model instance, not the connection.
func (ps *PortSet) Adopt(other *PortSet) {
	for i := 0; i < NumDataPorts; i++ {
		ps.endpoints[i] = other.endpoints[i]
		other.endpoints[i] = nil
	}
}

// dataPortFor selects the port for a data access by address hash. The policy
// is deterministic: port = (addr / 8) % NumDataPorts, spreading consecutive
// doublewords across the ports.
func dataPortFor(addr uint64) int {
	return int((addr / 8) % NumDataPorts)
}
