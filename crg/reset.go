// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package crg

import "github.com/db47h/hwplat/sim"

// ResetSynchronizer returns a two stage reset synchronizer.
//
//	Inputs: clk, arst
//	Outputs: rst
//	Function: rst is asserted as soon as arst is, and released on the second
//	rising edge of clk after arst is released.
//
// The first stage output is named "meta_" + rst.
//
func ResetSynchronizer(clk, arst, rst string) sim.Parts {
	meta := "meta_" + rst
	return sim.Parts{
		sim.DFFS(sim.False, clk, arst, meta),
		sim.DFFS(meta, clk, arst, rst),
	}
}
