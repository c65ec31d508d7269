// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package crg

import (
	"strconv"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Phase is a phase offset in tenths of a degree, in [0, 3600).
//
type Phase int

// Common phase offsets.
const (
	Deg0   Phase = 0
	Deg90  Phase = 900
	Deg180 Phase = 1800
	Deg270 Phase = 2700
)

func (p Phase) String() string {
	return strconv.Itoa(int(p)/10) + "." + strconv.Itoa(int(p)%10) + "°"
}

// State is the state of a clock domain.
//
type State int32

// Domain states.
const (
	// Uninitialized: the PLL generating the domain is not configured.
	Uninitialized State = iota
	// AwaitingLock: the domain is held in reset until the PLL locks.
	AwaitingLock
	// Locked: the reset of the domain has been released.
	Locked
	// Faulted: the domain has been declared faulty. This state is sticky.
	Faulted
)

var stateNames = [...]string{"UNINITIALIZED", "AWAITING_LOCK", "LOCKED", "FAULTED"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
	return stateNames[s]
}

// A DomainOption configures a Domain.
//
type DomainOption func(*Domain)

// ResetLess makes a domain without a reset signal. Its state follows the PLL
// lock directly.
//
func ResetLess() DomainOption {
	return func(d *Domain) { d.resetLess = true }
}

// A Domain is a clock domain: a clock signal, a reset signal synchronous to
// that clock, and a lock status.
//
// Domain methods are safe for concurrent use.
//
type Domain struct {
	name      string
	freq      uint64
	phase     Phase
	resetLess bool
	state     atomic.Int32
	log       *zap.Logger

	// set by Configure
	out *Output
}

// Name returns the domain name.
//
func (d *Domain) Name() string { return d.name }

// Freq returns the domain clock frequency in Hz.
//
func (d *Domain) Freq() uint64 { return d.freq }

// Phase returns the phase offset of the domain clock relative to the PLL
// reference.
//
func (d *Domain) Phase() Phase { return d.phase }

// IsResetLess returns true if the domain has no reset signal.
//
func (d *Domain) IsResetLess() bool { return d.resetLess }

// Clk returns the name of the domain clock signal.
//
func (d *Domain) Clk() string { return "clk_" + d.name }

// Rst returns the name of the domain reset signal, or an empty string for
// reset-less domains.
//
func (d *Domain) Rst() string {
	if d.resetLess {
		return ""
	}
	return "rst_" + d.name
}

// Output returns the PLL output generating the domain clock. It returns nil
// until the PLL is configured.
//
func (d *Domain) Output() *Output { return d.out }

// State returns the current domain state.
//
func (d *Domain) State() State { return State(d.state.Load()) }

// Locked returns true if the domain is out of reset.
//
func (d *Domain) Locked() bool { return d.State() == Locked }

// Fault moves the domain to the Faulted state and holds it in reset.
//
func (d *Domain) Fault() {
	if State(d.state.Swap(int32(Faulted))) != Faulted {
		d.log.Warn("domain faulted", zap.String("domain", d.name))
	}
}

func (d *Domain) arm() bool {
	return d.state.CompareAndSwap(int32(Uninitialized), int32(AwaitingLock))
}

// observe updates the state from the reset (or lock) signal.
func (d *Domain) observe(released bool) {
	to := AwaitingLock
	if released {
		to = Locked
	}
	for {
		s := State(d.state.Load())
		if s == Faulted || s == Uninitialized || s == to {
			return
		}
		if d.state.CompareAndSwap(int32(s), int32(to)) {
			d.log.Debug("domain state", zap.String("domain", d.name), zap.Stringer("from", s), zap.Stringer("to", to))
			return
		}
	}
}
