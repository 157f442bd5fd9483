// Package core implements the atomic-mode CGRA core model.
package core

import "fmt"

// ConfigurationError reports invalid static setup, such as an out-of-range
// port index or a non-positive SimPoint interval. It is fatal and surfaces
// before simulation starts.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// InstPortIndex identifies the instruction-side port in errors. Data ports
// use their slot index 0..NumDataPorts-1.
const InstPortIndex = -1

// PortUnconnectedError reports an access through a port that was never bound
// to a bus endpoint. It indicates a configuration mismatch and is fatal.
type PortUnconnectedError struct {
	PortIndex int
}

func (e *PortUnconnectedError) Error() string {
	if e.PortIndex == InstPortIndex {
		return "instruction port is not connected"
	}
	return fmt.Sprintf("data port %d is not connected", e.PortIndex)
}

// FaultKind classifies execution faults.
type FaultKind int

// Execution fault kinds.
const (
	FaultIllegalInstruction FaultKind = iota
	FaultMisalignedPC
	FaultMemAccess
)

func (k FaultKind) String() string {
	switch k {
	case FaultIllegalInstruction:
		return "illegal instruction"
	case FaultMisalignedPC:
		return "misaligned PC"
	case FaultMemAccess:
		return "memory fault"
	default:
		return "unknown fault"
	}
}

// ExecutionFault is raised by the execution step for conditions the simulated
// machine must handle as a trap (illegal instruction, memory fault). It never
// crashes the host; the caller owns trap delivery.
type ExecutionFault struct {
	Kind FaultKind
	PC   uint64
	Addr uint64 // faulting address for memory faults
}

func (e *ExecutionFault) Error() string {
	if e.Kind == FaultMemAccess {
		return fmt.Sprintf("%v at PC=0x%X (addr=0x%X)", e.Kind, e.PC, e.Addr)
	}
	return fmt.Sprintf("%v at PC=0x%X", e.Kind, e.PC)
}

// TakeOverTimeout reports that draining did not quiesce the memory ports
// within the drain limit. It is fatal to the simulation run.
type TakeOverTimeout struct {
	CoreID string
	Waited uint64
}

func (e *TakeOverTimeout) Error() string {
	return fmt.Sprintf("core %s: take-over drain did not complete within %d cycles",
		e.CoreID, e.Waited)
}
