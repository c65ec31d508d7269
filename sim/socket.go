// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package sim

// A Socket maps wire names to wire numbers in a circuit.
//
type Socket struct {
	c *Circuit
}

func newSocket(c *Circuit) *Socket {
	return &Socket{c: c}
}

// Wire returns the wire number allocated to the given wire name.
// This function panics if the wire does not exist.
//
func (s *Socket) Wire(name string) int {
	n, ok := s.c.wires[name]
	if !ok {
		panic("wire " + name + " does not exist")
	}
	return n
}

// Wires returns the wire numbers allocated to the given names.
//
func (s *Socket) Wires(names ...string) []int {
	ns := make([]int, len(names))
	for i, n := range names {
		ns[i] = s.Wire(n)
	}
	return ns
}
