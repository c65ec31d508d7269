// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwtest provides utility functions for testing circuits.
//
package hwtest

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/db47h/hwplat/sim"
)

// An EdgeRecorder records the steps at which wires of a circuit rise or fall.
//
type EdgeRecorder struct {
	mu      sync.Mutex
	rising  map[string][]uint64
	falling map[string][]uint64
}

// NewEdgeRecorder returns a new, empty EdgeRecorder.
//
func NewEdgeRecorder() *EdgeRecorder {
	return &EdgeRecorder{
		rising:  make(map[string][]uint64),
		falling: make(map[string][]uint64),
	}
}

// Probe returns a part recording the edges of wire. A wire that is high at
// step 0 does not count as a rising edge.
//
func (r *EdgeRecorder) Probe(wire string) sim.Part {
	var prev, started bool
	return sim.Probe(wire, func(step uint64, v bool) {
		if started && v != prev {
			r.mu.Lock()
			if v {
				r.rising[wire] = append(r.rising[wire], step)
			} else {
				r.falling[wire] = append(r.falling[wire], step)
			}
			r.mu.Unlock()
		}
		prev, started = v, true
	})
}

// Probes returns recording parts for all the given wires.
//
func (r *EdgeRecorder) Probes(wires ...string) sim.Parts {
	ps := make(sim.Parts, len(wires))
	for i, w := range wires {
		ps[i] = r.Probe(w)
	}
	return ps
}

// Rising returns the steps of the rising edges of wire.
//
func (r *EdgeRecorder) Rising(wire string) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.rising[wire]...)
}

// Falling returns the steps of the falling edges of wire.
//
func (r *EdgeRecorder) Falling(wire string) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.falling[wire]...)
}

// FirstRisingAfter returns the first rising edge of wire at or after step.
//
func (r *EdgeRecorder) FirstRisingAfter(wire string, step uint64) (uint64, bool) {
	for _, e := range r.Rising(wire) {
		if e >= step {
			return e, true
		}
	}
	return 0, false
}

// RisingBetween counts the rising edges of wire in the step range [from, to).
//
func (r *EdgeRecorder) RisingBetween(wire string, from, to uint64) int {
	n := 0
	for _, e := range r.Rising(wire) {
		if e >= from && e < to {
			n++
		}
	}
	return n
}

func edgeList(es []uint64) string {
	var b strings.Builder
	for i, e := range es {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprint(&b, e)
	}
	return b.String()
}

// RequireOffset checks that every edge in b follows the edge of a with the
// same rank by exactly offset steps, and that both edge trains have the given
// period. At least two edges are required in each train.
//
func RequireOffset(t testing.TB, a, b []uint64, offset, period uint64) {
	t.Helper()
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		t.Fatalf("not enough edges: a = [%s], b = [%s]", edgeList(a), edgeList(b))
	}
	for i := 0; i < n; i++ {
		if b[i] != a[i]+offset {
			t.Fatalf("edge #%d: expected offset %d, got %d\na = [%s]\nb = [%s]",
				i, offset, int64(b[i])-int64(a[i]), edgeList(a), edgeList(b))
		}
		if i > 0 && a[i]-a[i-1] != period {
			t.Fatalf("edge #%d: expected period %d, got %d\na = [%s]", i, period, a[i]-a[i-1], edgeList(a))
		}
	}
}
