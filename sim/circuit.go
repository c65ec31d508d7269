// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package sim provides a naive step based simulator for multi-clock digital
// circuits.
//
// A circuit is a set of Parts connected by named wires. Every step, each
// component reads the wire states of the previous step and sets the states for
// the next one. Clocks are parts too: their period and phase are expressed in
// steps, so that edge timestamps are exact integers.
//
package sim

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// Constant wire names.
//
const (
	True  = "true"
	False = "false"
)

const (
	cstFalse = iota
	cstTrue
	cstCount
)

// A Component is a component in a circuit that can Get and Set states.
//
type Component func(c *Circuit)

// A MountFn mounts a part into socket s. MountFn's should query the socket for
// wire numbers and return closures around these numbers.
//
// For example, a Not gate can be defined like this:
//
//	not := sim.Part{
//		Name:    "Not",
//		Inputs:  []string{in},
//		Outputs: []string{out},
//		Mount: func(s *sim.Socket) []sim.Component {
//			in, out := s.Wire(in), s.Wire(out)
//			return []sim.Component{
//				func(c *sim.Circuit) { c.Set(out, !c.Get(in)) },
//			}
//		}}
//
type MountFn func(s *Socket) []Component

// A Part is a circuit element with its wire connections.
//
// Inputs and Outputs are wire names in the circuit. An output wire must have
// exactly one driving part, and every input wire must be driven by some part
// or be one of the constants True and False.
//
type Part struct {
	Name    string
	Inputs  []string
	Outputs []string
	Mount   MountFn
}

// Parts is a convenience wrapper for []Part.
//
type Parts []Part

// Circuit is a runnable circuit simulation.
//
type Circuit struct {
	s0    []bool // wire states frame #0
	s1    []bool // wire states frame #1
	cs    []Component
	wires map[string]int
	step  uint64

	wc []chan struct{}
	wg sync.WaitGroup
}

// NewCircuit builds a new circuit based on the given parts.
//
// workers is the number of goroutines used to update the state of the Circuit
// each step of the simulation. If less or equal to 0, the value of GOMAXPROCS
// will be used.
//
// Callers must make sure to call Dispose() once the circuit is no longer needed
// in order to release allocated resources.
//
func NewCircuit(workers int, parts ...Part) (*Circuit, error) {
	if len(parts) == 0 {
		return nil, errors.New("empty part list")
	}

	cc := &Circuit{wires: map[string]int{False: cstFalse, True: cstTrue}}
	drivers := make(map[string]string)
	for _, p := range parts {
		for _, o := range p.Outputs {
			if o == "" {
				return nil, errors.Errorf("part %s: empty output wire name", p.Name)
			}
			if o == True || o == False {
				return nil, errors.Errorf("part %s: output wire connected to constant %q", p.Name, o)
			}
			if d, ok := drivers[o]; ok {
				return nil, errors.Errorf("part %s: wire %q already driven by part %s", p.Name, o, d)
			}
			drivers[o] = p.Name
			cc.alloc(o)
		}
	}
	for _, p := range parts {
		for _, i := range p.Inputs {
			if _, ok := cc.wires[i]; !ok {
				return nil, errors.Errorf("part %s: input wire %q has no driver", p.Name, i)
			}
		}
	}

	s := newSocket(cc)
	var ups []Component
	for _, p := range parts {
		if p.Mount == nil {
			return nil, errors.Errorf("part %s: nil mount function", p.Name)
		}
		ups = append(ups, p.Mount(s)...)
	}
	ups = append(ups, updConstants)
	cc.cs = ups
	cc.s0 = make([]bool, len(cc.wires))
	cc.s1 = make([]bool, len(cc.wires))
	cc.s0[cstTrue] = true
	cc.s1[cstTrue] = true

	// workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(-1)
	}
	if workers <= 0 {
		workers = 1
	}
	size := len(ups) / workers
	if size*workers < len(ups) {
		size++
	}
	for len(ups) > 0 {
		if size > len(ups) {
			size = len(ups)
		}
		wc := make(chan struct{}, 1)
		cc.wc = append(cc.wc, wc)
		go worker(cc, ups[:size], wc)
		ups = ups[size:]
	}

	return cc, nil
}

func updConstants(c *Circuit) {
	if c.s0[cstFalse] || !c.s0[cstTrue] {
		panic("true or false constants have been overwritten")
	}
	c.s1[cstFalse] = false
	c.s1[cstTrue] = true
}

func (c *Circuit) alloc(name string) int {
	n, ok := c.wires[name]
	if !ok {
		n = len(c.wires)
		c.wires[name] = n
	}
	return n
}

// Dispose releases all resources allocated for a circuit and stops
// worker goroutines.
//
func (c *Circuit) Dispose() {
	c.wg.Add(len(c.wc))
	for _, wc := range c.wc {
		close(wc)
	}
	c.wg.Wait()
}

func worker(c *Circuit, cs []Component, wc <-chan struct{}) {
	for {
		_, ok := <-wc
		if !ok {
			c.wg.Done()
			return
		}
		for _, f := range cs {
			f(c)
		}
		c.wg.Done()
	}
}

// Steps returns the value of the step counter.
//
func (c *Circuit) Steps() uint64 {
	return c.step
}

// Get returns the state of wire n. The value of n should be obtained in a
// MountFn by a call to Socket.Wire.
//
func (c *Circuit) Get(n int) bool {
	return c.s0[n]
}

// Set sets the state s of wire n for the next step.
//
func (c *Circuit) Set(n int, s bool) {
	c.s1[n] = s
}

// Wire returns the number of the named wire.
//
func (c *Circuit) Wire(name string) (int, bool) {
	n, ok := c.wires[name]
	return n, ok
}

// State returns the current state of the named wire. It panics if the wire
// does not exist.
//
func (c *Circuit) State(name string) bool {
	n, ok := c.wires[name]
	if !ok {
		panic("wire " + name + " does not exist")
	}
	return c.s0[n]
}

// Step advances the simulation by one step.
//
func (c *Circuit) Step() {
	c.wg.Add(len(c.wc))
	for _, wc := range c.wc {
		wc <- struct{}{}
	}

	c.wg.Wait()
	c.step++
	c.s0, c.s1 = c.s1, c.s0
}

// Run runs the simulation for n steps.
//
func (c *Circuit) Run(n uint64) {
	for ; n > 0; n-- {
		c.Step()
	}
}

// RunUntil runs the simulation until cond returns true or max steps have
// elapsed. It returns true if cond was met.
//
func (c *Circuit) RunUntil(max uint64, cond func(c *Circuit) bool) bool {
	for ; max > 0; max-- {
		if cond(c) {
			return true
		}
		c.Step()
	}
	return cond(c)
}

// Size returns the component count in the circuit.
//
func (c *Circuit) Size() int { return len(c.cs) }
