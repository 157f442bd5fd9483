package core

import (
	"github.com/rs/xid"

	"github.com/sarchlab/cgrasim/insts"
	"github.com/sarchlab/cgrasim/mem"
)

// CoreState is the architectural state of a core: PC, register file, and the
// per-port pending-memory-op markers. Exactly one core model owns a live
// CoreState at any time; take-over moves it, never copies it.
type CoreState struct {
	PC           uint64
	Regs         [32]uint64
	PendingMemOp [NumDataPorts]bool
}

// StepResult reports the outcome of one Step call.
type StepResult struct {
	// Retired is the number of instructions that completed.
	Retired int

	// Cycles is the number of cycles consumed: one for the step itself plus
	// any injected stall cycles.
	Cycles uint64

	// StallCycles is the number of synthetic stall cycles injected.
	StallCycles uint64

	// ControlFlowChange is true if the group ended early on a taken branch
	// or jump.
	ControlFlowChange bool

	// Halted is true if a HALT instruction retired.
	Halted bool

	// Fault holds an execution fault the simulated machine must handle as a
	// trap. The host is never crashed for a fault.
	Fault *ExecutionFault

	// Err holds a fatal host-level error (e.g. an unconnected port).
	Err error
}

// Stats holds execution counters for the core.
type Stats struct {
	Steps        uint64
	Instructions uint64
	Cycles       uint64
	StallCycles  uint64
	InstFetches  uint64
	DataAccesses uint64
}

// InstObserver receives the PC of every retired instruction. The SimPoint
// profiler implements it.
type InstObserver interface {
	Observe(pc uint64)
}

// Core is an atomic-mode CGRA core model. Memory accesses complete
// synchronously with a functional latency value; no queuing or contention is
// modeled unless stall simulation is enabled. The core is driven by an
// external scheduler calling Step; it never self-schedules.
type Core struct {
	id      string
	cfg     Config
	decoder *insts.Decoder

	state    *CoreState
	ports    *PortSet
	instPort mem.Endpoint

	// directMem is the FastMem bypass path.
	directMem *mem.Memory

	observer InstObserver
	halted   bool
	stats    Stats
}

// CoreOption configures a Core at construction time.
type CoreOption func(*Core)

// WithObserver attaches an instruction-stream observer (SimPoint profiler).
// Leave unset for the zero-overhead path.
func WithObserver(o InstObserver) CoreOption {
	return func(c *Core) {
		c.observer = o
	}
}

// WithDirectMemory provides the functional memory used when FastMem is set.
func WithDirectMemory(m *mem.Memory) CoreOption {
	return func(c *Core) {
		c.directMem = m
	}
}

// NewCore creates an atomic core model with the given configuration. The
// configuration is validated and copied; ports are connected afterwards.
func NewCore(cfg Config, opts ...CoreOption) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Core{
		id:      xid.New().String(),
		cfg:     cfg,
		decoder: insts.NewDecoder(),
		state:   &CoreState{},
		ports:   NewPortSet(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if cfg.FastMem && c.directMem == nil {
		return nil, &ConfigurationError{
			Reason: "fastmem requires a direct memory (use WithDirectMemory)",
		}
	}

	return c, nil
}

// ID returns the core model instance ID.
func (c *Core) ID() string {
	return c.id
}

// Config returns the core configuration.
func (c *Core) Config() Config {
	return c.cfg
}

// State returns the core's architectural state, or nil if the state has been
// transferred away.
func (c *Core) State() *CoreState {
	return c.state
}

// Ports returns the data-memory port set.
func (c *Core) Ports() *PortSet {
	return c.ports
}

// ConnectInstPort binds the instruction-side port to a bus endpoint.
func (c *Core) ConnectInstPort(endpoint mem.Endpoint) {
	c.instPort = endpoint
}

// ConnectDataPort binds one data port to a bus endpoint.
func (c *Core) ConnectDataPort(portIndex int, endpoint mem.Endpoint) error {
	return c.ports.Connect(portIndex, endpoint)
}

// ConnectAllDataPorts binds every data port to the same bus endpoint.
func (c *Core) ConnectAllDataPorts(endpoint mem.Endpoint) error {
	return c.ports.ConnectAll(endpoint)
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint64) {
	c.state.PC = pc
}

// Halted reports whether the core has executed a HALT instruction.
func (c *Core) Halted() bool {
	return c.halted
}

// Stats returns the execution counters.
func (c *Core) Stats() Stats {
	return c.stats
}

// Step executes up to Width instructions: fetch, decode, execute, and memory
// access with atomic semantics. The group ends early on a taken branch or
// jump, a HALT, or a fault. At least one instruction retires unless the
// first instruction faults.
func (c *Core) Step() StepResult {
	res := StepResult{}

	if c.state == nil {
		res.Err = &ConfigurationError{
			Reason: "core does not hold live state (transferred away?)",
		}
		return res
	}
	if c.halted {
		res.Cycles = 1
		return res
	}

	for i := 0; i < c.cfg.Width; i++ {
		pc := c.state.PC

		if pc%4 != 0 {
			res.Fault = &ExecutionFault{Kind: FaultMisalignedPC, PC: pc}
			break
		}

		word, fetchLatency, err := c.fetch(pc)
		if err != nil {
			res.Err = err
			break
		}
		res.StallCycles += ComputeStallCycles(InstAccess, fetchLatency, c.cfg)

		inst := c.decoder.Decode(word)
		if inst.Op == insts.OpUnknown {
			res.Fault = &ExecutionFault{Kind: FaultIllegalInstruction, PC: pc}
			break
		}

		taken, stall, fault, err := c.execute(inst, pc)
		if err != nil {
			res.Err = err
			break
		}
		res.StallCycles += stall
		if fault != nil {
			res.Fault = fault
			break
		}

		res.Retired++
		c.stats.Instructions++
		if c.observer != nil {
			c.observer.Observe(pc)
		}

		if inst.Op == insts.OpHALT {
			c.halted = true
			res.Halted = true
			break
		}
		if taken {
			res.ControlFlowChange = true
			break
		}
	}

	res.Cycles = 1 + res.StallCycles
	c.stats.Steps++
	c.stats.Cycles += res.Cycles
	c.stats.StallCycles += res.StallCycles

	return res
}

// Run steps the core until it halts or a fault or error occurs, returning
// the final StepResult.
func (c *Core) Run() StepResult {
	for {
		res := c.Step()
		if res.Halted || res.Fault != nil || res.Err != nil {
			return res
		}
	}
}

// fetch reads one instruction word using the instruction-side port, or
// straight from memory on the FastMem path.
func (c *Core) fetch(pc uint64) (uint32, uint64, error) {
	c.stats.InstFetches++

	if c.cfg.FastMem {
		return c.directMem.Read32(pc), 0, nil
	}

	if c.instPort == nil {
		return 0, 0, &PortUnconnectedError{PortIndex: InstPortIndex}
	}
	value, latency, err := c.instPort.Access(pc, 4, false, 0)
	if err != nil {
		return 0, 0, err
	}
	return uint32(value), latency, nil
}

// execute runs one decoded instruction. It returns whether control flow was
// redirected, the data-side stall cycles, and any execution fault.
func (c *Core) execute(inst *insts.Instruction, pc uint64) (bool, uint64, *ExecutionFault, error) {
	switch inst.Format {
	case insts.FormatSystem:
		c.state.PC = pc + 4
		return false, 0, nil, nil

	case insts.FormatALUReg:
		c.writeReg(inst.Rd, c.aluReg(inst))
		c.state.PC = pc + 4
		return false, 0, nil, nil

	case insts.FormatALUImm:
		c.writeReg(inst.Rd, c.aluImm(inst))
		c.state.PC = pc + 4
		return false, 0, nil, nil

	case insts.FormatLoadStore:
		stall, fault, err := c.executeMem(inst, pc)
		if fault != nil || err != nil {
			return false, stall, fault, err
		}
		c.state.PC = pc + 4
		return false, stall, nil, nil

	case insts.FormatBranch:
		taken := c.evaluateBranch(inst)
		if taken {
			c.state.PC = uint64(int64(pc) + inst.Off)
		} else {
			c.state.PC = pc + 4
		}
		return taken, 0, nil, nil

	case insts.FormatJump:
		c.writeReg(inst.Rd, pc+4)
		c.state.PC = uint64(int64(pc) + inst.Off)
		return true, 0, nil, nil

	case insts.FormatJumpReg:
		target := uint64(int64(c.readReg(inst.Rn)) + inst.Imm)
		c.writeReg(inst.Rd, pc+4)
		c.state.PC = target
		return true, 0, nil, nil

	default:
		return false, 0, &ExecutionFault{Kind: FaultIllegalInstruction, PC: pc}, nil
	}
}

// aluReg computes R-format ALU results.
func (c *Core) aluReg(inst *insts.Instruction) uint64 {
	rn := c.readReg(inst.Rn)
	rm := c.readReg(inst.Rm)

	switch inst.Op {
	case insts.OpADD:
		return rn + rm
	case insts.OpSUB:
		return rn - rm
	case insts.OpAND:
		return rn & rm
	case insts.OpOR:
		return rn | rm
	case insts.OpXOR:
		return rn ^ rm
	case insts.OpSLT:
		if int64(rn) < int64(rm) {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// aluImm computes I-format ALU results.
func (c *Core) aluImm(inst *insts.Instruction) uint64 {
	rn := c.readReg(inst.Rn)
	imm := inst.Imm

	switch inst.Op {
	case insts.OpADDI:
		return uint64(int64(rn) + imm)
	case insts.OpANDI:
		return rn & uint64(uint16(imm))
	case insts.OpORI:
		return rn | uint64(uint16(imm))
	case insts.OpXORI:
		return rn ^ uint64(uint16(imm))
	case insts.OpLUI:
		return uint64(uint16(imm)) << 16
	default:
		return 0
	}
}

// executeMem issues one data-memory access. Port selection is the
// deterministic address hash documented on dataPortFor. The per-port
// pending marker brackets the access for take-over bookkeeping.
func (c *Core) executeMem(inst *insts.Instruction, pc uint64) (uint64, *ExecutionFault, error) {
	addr := uint64(int64(c.readReg(inst.Rn)) + inst.Imm)

	if addr%uint64(inst.MemSize) != 0 {
		return 0, &ExecutionFault{Kind: FaultMemAccess, PC: pc, Addr: addr}, nil
	}

	c.stats.DataAccesses++

	if c.cfg.FastMem {
		if inst.IsStore {
			c.directMem.WriteValue(addr, inst.MemSize, c.readReg(inst.Rd))
		} else {
			c.writeReg(inst.Rd, c.directMem.ReadValue(addr, inst.MemSize))
		}
		return 0, nil, nil
	}

	port := dataPortFor(addr)
	c.state.PendingMemOp[port] = true

	var storeData uint64
	if inst.IsStore {
		storeData = c.readReg(inst.Rd)
	}
	value, latency, err := c.ports.Issue(port, addr, inst.MemSize, inst.IsStore, storeData)
	if err != nil {
		return 0, nil, err
	}
	c.state.PendingMemOp[port] = false

	if inst.IsLoad {
		c.writeReg(inst.Rd, value)
	}

	return ComputeStallCycles(DataAccess, latency, c.cfg), nil, nil
}

// evaluateBranch decides whether a B-format branch is taken.
func (c *Core) evaluateBranch(inst *insts.Instruction) bool {
	rn := c.readReg(inst.Rn)
	rm := c.readReg(inst.Rm)

	switch inst.Op {
	case insts.OpBEQ:
		return rn == rm
	case insts.OpBNE:
		return rn != rm
	case insts.OpBLT:
		return int64(rn) < int64(rm)
	case insts.OpBGE:
		return int64(rn) >= int64(rm)
	default:
		return false
	}
}

// readReg reads a register. R0 always reads as zero.
func (c *Core) readReg(reg uint8) uint64 {
	if reg == 0 {
		return 0
	}
	return c.state.Regs[reg]
}

// writeReg writes a register. Writes to R0 are ignored.
func (c *Core) writeReg(reg uint8, value uint64) {
	if reg == 0 {
		return
	}
	c.state.Regs[reg] = value
}

// takeOverFrom moves the architectural state and port bindings from another
// core into this one. The source is left without live state.
func (c *Core) takeOverFrom(src *Core) {
	c.state = src.state
	src.state = nil

	c.ports.Adopt(src.ports)
	c.instPort = src.instPort
	src.instPort = nil

	if c.directMem == nil {
		c.directMem = src.directMem
	}
	src.directMem = nil

	c.halted = src.halted
}
