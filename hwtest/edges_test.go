package hwtest_test

import (
	"testing"

	"github.com/db47h/hwplat/hwtest"
	"github.com/db47h/hwplat/sim"
)

func TestEdgeRecorder(t *testing.T) {
	rec := hwtest.NewEdgeRecorder()
	parts := sim.Parts{
		sim.Clock("a", 8, 0),
		sim.Clock("b", 8, 2),
	}
	parts = append(parts, rec.Probes("a", "b")...)
	c, err := sim.NewCircuit(0, parts...)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Dispose()
	c.Run(20)

	ra := rec.Rising("a")
	if len(ra) != 3 || ra[0] != 1 || ra[1] != 9 || ra[2] != 17 {
		t.Fatalf("bad rising edges for a: %v", ra)
	}
	fa := rec.Falling("a")
	if len(fa) < 2 || fa[0] != 5 || fa[1] != 13 {
		t.Fatalf("bad falling edges for a: %v", fa)
	}
	hwtest.RequireOffset(t, ra, rec.Rising("b"), 2, 8)

	if e, ok := rec.FirstRisingAfter("b", 4); !ok || e != 11 {
		t.Fatalf("FirstRisingAfter(b, 4) = %d, %v", e, ok)
	}
	if n := rec.RisingBetween("a", 0, 10); n != 2 {
		t.Fatalf("RisingBetween(a, 0, 10) = %d", n)
	}
}
