package core

import "fmt"

// State is the take-over controller state.
type State int

// Controller states. Instruction execution happens only in StateRunning.
const (
	StateInactive State = iota
	StateRunning
	StateDraining
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "Inactive"
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	case StateSuspended:
		return "Suspended"
	default:
		return "Unknown"
	}
}

// TakeOverRequest records one hand-off of execution state between core
// models at a point in simulated time.
type TakeOverRequest struct {
	SrcID string
	DstID string
	Tick  uint64
}

// DefaultDrainLimit bounds the number of cycles draining may take before the
// run is declared stuck.
const DefaultDrainLimit = 1000

// Controller manages handing off simulated execution state from one core
// model to another without losing correctness. It walks
// Inactive -> Running -> Draining -> Suspended; the suspended CoreState is
// then transferred to the destination controller.
type Controller struct {
	core       *Core
	state      State
	drainLimit uint64
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithDrainLimit overrides the drain cycle bound.
func WithDrainLimit(limit uint64) ControllerOption {
	return func(c *Controller) {
		c.drainLimit = limit
	}
}

// NewController wraps a core in a take-over controller. The controller
// starts Inactive.
func NewController(core *Core, opts ...ControllerOption) *Controller {
	c := &Controller{
		core:       core,
		state:      StateInactive,
		drainLimit: DefaultDrainLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Core returns the wrapped core.
func (c *Controller) Core() *Core {
	return c.core
}

// State returns the controller state.
func (c *Controller) State() State {
	return c.state
}

// Start activates an inactive controller whose core holds live state.
func (c *Controller) Start() error {
	if c.state != StateInactive {
		return fmt.Errorf("core %s: cannot start from state %v", c.core.ID(), c.state)
	}
	if c.core.State() == nil {
		return &ConfigurationError{
			Reason: "cannot start a controller whose core holds no live state",
		}
	}
	c.state = StateRunning
	return nil
}

// Step executes one scheduler tick. Execution is only permitted while
// Running.
func (c *Controller) Step() (StepResult, error) {
	if c.state != StateRunning {
		return StepResult{}, fmt.Errorf("core %s: cannot step in state %v",
			c.core.ID(), c.state)
	}
	return c.core.Step(), nil
}

// RequestTakeOver moves a running controller into Draining. The in-flight
// instruction completes; no new fetch is started.
func (c *Controller) RequestTakeOver() error {
	if c.state != StateRunning {
		return fmt.Errorf("core %s: take-over requested in state %v",
			c.core.ID(), c.state)
	}
	c.state = StateDraining
	return nil
}

// Drain waits for the memory ports to quiesce, then suspends the core. In
// atomic mode the ports are quiescent between steps, so draining normally
// completes immediately; a stuck outstanding request (an endpoint that
// failed mid-access) exhausts the drain limit and yields TakeOverTimeout,
// which is fatal to the run.
func (c *Controller) Drain() error {
	if c.state != StateDraining {
		return fmt.Errorf("core %s: drain called in state %v", c.core.ID(), c.state)
	}

	for waited := uint64(0); waited < c.drainLimit; waited++ {
		if c.core.Ports().Outstanding() == 0 {
			c.state = StateSuspended
			return nil
		}
	}

	return &TakeOverTimeout{CoreID: c.core.ID(), Waited: c.drainLimit}
}

// Suspend is the RequestTakeOver + Drain convenience path.
func (c *Controller) Suspend() error {
	if err := c.RequestTakeOver(); err != nil {
		return err
	}
	return c.Drain()
}

// TransferTo moves the suspended CoreState and the port bindings to the
// destination controller. The state is transferred, not copied: afterwards
// the source core holds no live state and the source controller is
// Inactive. The destination is left Suspended; call Resume to run it.
func (c *Controller) TransferTo(dst *Controller, tick uint64) (TakeOverRequest, error) {
	if c.state != StateSuspended {
		return TakeOverRequest{}, fmt.Errorf("core %s: transfer from state %v",
			c.core.ID(), c.state)
	}
	if dst.state != StateInactive {
		return TakeOverRequest{}, fmt.Errorf("core %s: transfer to a %v destination",
			dst.core.ID(), dst.state)
	}
	if dst.core.Stats().Instructions > 0 && dst.core.State() != nil {
		return TakeOverRequest{}, &ConfigurationError{
			Reason: "destination core has already executed with its own state",
		}
	}

	req := TakeOverRequest{
		SrcID: c.core.ID(),
		DstID: dst.core.ID(),
		Tick:  tick,
	}

	dst.core.takeOverFrom(c.core)
	c.state = StateInactive
	dst.state = StateSuspended

	return req, nil
}

// Resume moves a suspended controller back to Running.
func (c *Controller) Resume() error {
	if c.state != StateSuspended {
		return fmt.Errorf("core %s: cannot resume from state %v", c.core.ID(), c.state)
	}
	if c.core.State() == nil {
		return &ConfigurationError{
			Reason: "cannot resume a controller whose core holds no live state",
		}
	}
	c.state = StateRunning
	return nil
}
