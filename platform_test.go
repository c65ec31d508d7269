package hwplat_test

import (
	"testing"

	hw "github.com/db47h/hwplat"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNetlist(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	n := hw.NewNetlist(hw.WithLogger(zap.New(core)))
	r := hw.NewResolver(testVariant(t))

	tx, err := r.ResolveSubsignal("serial", 0, "tx")
	require.NoError(t, err)
	require.NoError(t, n.Drive(tx))
	k, ok := n.Driver("M18")
	require.True(t, ok)
	require.Equal(t, tx.Key, k)

	// sensing a driven pin is fine
	n.Sense(tx)
	n.Sense(tx)
	require.Equal(t, []hw.Key{tx.Key, tx.Key}, n.Sensors("M18"))

	err = n.Drive(tx)
	var ce *hw.ConflictError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, &hw.ConflictError{Pin: "M18", First: tx.Key, Second: tx.Key}, ce)

	// all or nothing
	h := hw.Handle{Key: hw.Key{Name: "bus"}, Pins: hw.MustParsePins("A1 M18")}
	require.Error(t, n.Drive(h))
	_, ok = n.Driver("A1")
	require.False(t, ok)
	require.Equal(t, []string{"M18"}, n.DrivenPins())

	lvds, err := r.Resolve("lvds", 0)
	require.NoError(t, err)
	require.NoError(t, n.Drive(lvds))
	require.Equal(t, []string{"D1", "D2", "D3", "D4", "M18"}, n.DrivenPins())

	require.Equal(t, 2, logs.FilterMessage("conflict").Len())
}

func TestPlatform(t *testing.T) {
	v := testVariant(t)
	sel, err := hw.NewSelector(v)
	require.NoError(t, err)
	p, err := hw.New(sel, "rev-a")
	require.NoError(t, err)
	require.Same(t, v, p.Variant())

	clk, freq, err := p.DefaultClock()
	require.NoError(t, err)
	require.Equal(t, uint64(50e6), freq)
	require.Equal(t, "AF14", hw.FormatPins(clk.Pins))
	require.Equal(t, []hw.Key{clk.Key}, p.Netlist().Sensors("AF14"))
	require.Equal(t, []hw.PeriodConstraint{{Key: clk.Key, Pins: []string{"AF14"}, Period: 20000}}, p.Constraints())

	require.NoError(t, p.AddPeriodConstraint(clk, 10000))
	require.Len(t, p.Constraints(), 1)
	require.Equal(t, uint64(10000), p.Constraints()[0].Period)
	require.Error(t, p.AddPeriodConstraint(clk, 0))

	tx, err := p.RequestSubsignal("serial", 0, "tx")
	require.NoError(t, err)
	require.NoError(t, p.Drive(tx))
	led, err := p.RequestIndex("user_led", 1)
	require.NoError(t, err)
	require.NoError(t, p.Drive(led))
	leds, err := p.RequestAll("user_led")
	require.NoError(t, err)
	err = p.Drive(leds[1])
	var ce *hw.ConflictError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, "L2", ce.Pin)
	require.True(t, p.Resolver().IsConsumed(hw.Key{Name: "user_led"}))

	_, err = hw.New(sel, "rev-b")
	var uv *hw.UnknownVariantError
	require.True(t, errors.As(err, &uv))
	require.Equal(t, []string{"DEV-A", "a", "deviceA", "rev-a"}, uv.Known)
}

func TestPlatform_noClock(t *testing.T) {
	rt, err := hw.NewResourceTable(hw.Resource{Name: "led", Pins: hw.MustParsePins("A1")})
	require.NoError(t, err)
	v, err := hw.NewVariant(hw.Variant{Name: "bare", Resources: rt})
	require.NoError(t, err)
	p := hw.NewPlatform(v)
	_, _, err = p.DefaultClock()
	require.Error(t, err)
	require.Empty(t, v.Connectors.Names())
}
