// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package sim

// Clock returns a free running clock.
//
//	Outputs: out
//	Function: out is high during the first half of each period, shifted by
//	phase steps: out(t+1) = (t - phase) mod period < period/2
//
// period must be even and at least 2.
//
func Clock(out string, period, phase uint64) Part {
	if period < 2 || period&1 != 0 {
		panic("clock period must be an even number of steps")
	}
	half := period / 2
	phase %= period
	return Part{
		Name:    "Clock",
		Outputs: []string{out},
		Mount: func(s *Socket) []Component {
			o := s.Wire(out)
			return []Component{
				func(c *Circuit) {
					c.Set(o, (c.Steps()+period-phase)%period < half)
				},
			}
		}}
}

// Input creates a function based input.
//
//	Outputs: out
//	Function: out = f()
//
func Input(out string, f func() bool) Part {
	return Part{
		Name:    "Input",
		Outputs: []string{out},
		Mount: func(s *Socket) []Component {
			o := s.Wire(out)
			return []Component{
				func(c *Circuit) { c.Set(o, f()) },
			}
		}}
}

// Probe creates a probe. The f function is called with the step count and
// wire state on every circuit update.
//
//	Inputs: in
//	Function: f(step, in)
//
func Probe(in string, f func(step uint64, v bool)) Part {
	return Part{
		Name:   "Probe",
		Inputs: []string{in},
		Mount: func(s *Socket) []Component {
			i := s.Wire(in)
			return []Component{
				func(c *Circuit) { f(c.Steps(), c.Get(i)) },
			}
		}}
}

// Not returns a NOT gate.
//
//	Inputs: in
//	Outputs: out
//	Function: out = !in
//
func Not(in, out string) Part {
	return Part{
		Name:    "Not",
		Inputs:  []string{in},
		Outputs: []string{out},
		Mount: func(s *Socket) []Component {
			i, o := s.Wire(in), s.Wire(out)
			return []Component{
				func(c *Circuit) { c.Set(o, !c.Get(i)) },
			}
		}}
}

// And returns a AND gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a && b
//
func And(a, b, out string) Part {
	return Part{
		Name:    "And",
		Inputs:  []string{a, b},
		Outputs: []string{out},
		Mount: func(s *Socket) []Component {
			ia, ib, o := s.Wire(a), s.Wire(b), s.Wire(out)
			return []Component{
				func(c *Circuit) { c.Set(o, c.Get(ia) && c.Get(ib)) },
			}
		}}
}

// DFF returns a data flip flop clocked on the rising edge of clk.
//
//	Inputs: d, clk
//	Outputs: q
//	Function: q = d sampled at the last rising edge of clk
//
func DFF(d, clk, q string) Part {
	return Part{
		Name:    "DFF",
		Inputs:  []string{d, clk},
		Outputs: []string{q},
		Mount: func(s *Socket) []Component {
			in, ck, out := s.Wire(d), s.Wire(clk), s.Wire(q)
			var prev, cur bool
			return []Component{
				func(c *Circuit) {
					k := c.Get(ck)
					// rising edge?
					if k && !prev {
						cur = c.Get(in)
					}
					prev = k
					c.Set(out, cur)
				}}
		}}
}

// DFFS returns a rising edge data flip flop with asynchronous set.
//
//	Inputs: d, clk, set
//	Outputs: q
//	Function: q = true while set is high, else d sampled at the last rising
//	edge of clk
//
func DFFS(d, clk, set, q string) Part {
	return Part{
		Name:    "DFFS",
		Inputs:  []string{d, clk, set},
		Outputs: []string{q},
		Mount: func(s *Socket) []Component {
			w := s.Wires(d, clk, set, q)
			in, ck, st, out := w[0], w[1], w[2], w[3]
			cur := true
			var prev bool
			return []Component{
				func(c *Circuit) {
					k := c.Get(ck)
					switch {
					case c.Get(st):
						cur = true
					case k && !prev:
						cur = c.Get(in)
					}
					prev = k
					c.Set(out, cur)
				}}
		}}
}

// DDROut returns a double data rate output register.
//
//	Inputs: d1, d2, clk
//	Outputs: q
//	Function: d1 is sampled on the rising edge of clk and output while clk
//	is high, d2 is sampled on the falling edge and output while clk is low.
//
func DDROut(d1, d2, clk, q string) Part {
	return Part{
		Name:    "DDROut",
		Inputs:  []string{d1, d2, clk},
		Outputs: []string{q},
		Mount: func(s *Socket) []Component {
			w := s.Wires(d1, d2, clk, q)
			i1, i2, ck, out := w[0], w[1], w[2], w[3]
			var prev, r1, r2 bool
			return []Component{
				func(c *Circuit) {
					k := c.Get(ck)
					switch {
					case k && !prev:
						r1 = c.Get(i1)
					case !k && prev:
						r2 = c.Get(i2)
					}
					prev = k
					if k {
						c.Set(out, r1)
					} else {
						c.Set(out, r2)
					}
				}}
		}}
}
