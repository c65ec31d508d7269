package sim_test

import (
	"strings"
	"testing"

	"github.com/db47h/hwplat/hwtest"
	"github.com/db47h/hwplat/sim"
)

func TestNewCircuit_errors(t *testing.T) {
	data := []struct {
		name  string
		parts sim.Parts
		err   string
	}{
		{"empty", nil, "empty part list"},
		{"double_driver",
			sim.Parts{
				sim.Input("a", func() bool { return true }),
				sim.Not("x", "a"),
				sim.Input("x", func() bool { return false }),
			},
			`wire "a" already driven by part Input`},
		{"no_driver", sim.Parts{sim.Not("x", "y")}, `input wire "x" has no driver`},
		{"constant", sim.Parts{sim.Input(sim.True, func() bool { return false })}, "output wire connected to constant"},
		{"nil_mount", sim.Parts{{Name: "dummy", Outputs: []string{"o"}}}, "nil mount function"},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			c, err := sim.NewCircuit(0, d.parts...)
			if err == nil {
				c.Dispose()
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), d.err) {
				t.Fatalf("expected error containing %q, got %q", d.err, err)
			}
		})
	}
}

func TestClock_phase(t *testing.T) {
	for _, workers := range []int{0, 1, 3} {
		rec := hwtest.NewEdgeRecorder()
		parts := sim.Parts{
			sim.Clock("clk", 16, 0),
			sim.Clock("clk90", 16, 4),
			sim.Clock("clk270", 16, 12),
		}
		parts = append(parts, rec.Probes("clk", "clk90", "clk270")...)
		c, err := sim.NewCircuit(workers, parts...)
		if err != nil {
			t.Fatal(err)
		}
		c.Run(100)
		c.Dispose()

		clk := rec.Rising("clk")
		hwtest.RequireOffset(t, clk, rec.Rising("clk90"), 4, 16)
		hwtest.RequireOffset(t, clk, rec.Rising("clk270"), 12, 16)
	}
}

func TestCircuit_State(t *testing.T) {
	v := false
	c, err := sim.NewCircuit(0,
		sim.Input("in", func() bool { return v }),
		sim.Not("in", "out"),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Dispose()

	if !c.State(sim.True) || c.State(sim.False) {
		t.Fatal("bad constant states")
	}
	c.Run(2)
	if !c.State("out") {
		t.Fatal("expected out = true")
	}
	v = true
	c.Run(2)
	if c.State("out") {
		t.Fatal("expected out = false")
	}
	if c.Steps() != 4 {
		t.Fatalf("expected 4 steps, got %d", c.Steps())
	}
	if _, ok := c.Wire("nope"); ok {
		t.Fatal("unexpected wire")
	}
	ok := c.RunUntil(10, func(c *sim.Circuit) bool { return c.Steps() == 7 })
	if !ok || c.Steps() != 7 {
		t.Fatalf("RunUntil stopped at step %d", c.Steps())
	}
}
