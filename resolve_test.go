package hwplat_test

import (
	"sync"
	"testing"

	hw "github.com/db47h/hwplat"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const lvttl = "3.3-V LVTTL"

func testVariant(t *testing.T) *hw.Variant {
	t.Helper()
	p := hw.MustParsePins
	rt, err := hw.NewResourceTable(
		hw.Resource{Name: "clk50", Pins: p("AF14"), Attrs: hw.Attrs{hw.IOStandard: lvttl}},
		hw.Resource{Name: "serial", Attrs: hw.Attrs{hw.IOStandard: lvttl}, Subsignals: []hw.Subsignal{
			{Name: "tx", Pins: p("GPIO:1")},
			{Name: "rx", Pins: p("Y17"), Attrs: hw.Attrs{"PULLUP": ""}},
		}},
		hw.Resource{Name: "user_led", Index: 0, Pins: p("L1")},
		hw.Resource{Name: "user_led", Index: 1, Pins: p("L2")},
		hw.Resource{Name: "key0", Pins: p("K0")},
		hw.Resource{Name: "key1", Pins: p("K1")},
		hw.Resource{Name: "pmod", Pins: p("GPIO:0 GPIO:2")},
		hw.Resource{Name: "lvds", Pins: p("D1 D3"), NegPins: p("D2 D4"), Attrs: hw.Attrs{hw.IOStandard: "LVDS"}},
	)
	require.NoError(t, err)
	ct, err := hw.NewConnectorTable(hw.Connector{Name: "GPIO", Slots: p("N17 M18 - C9")})
	require.NoError(t, err)
	v, err := hw.NewVariant(hw.Variant{
		Name:       "deviceA",
		IDs:        []string{"a", "rev-a"},
		Device:     "DEV-A",
		Clock:      hw.ClockSpec{Resource: "clk50", Freq: 50e6},
		Resources:  rt,
		Connectors: ct,
	})
	require.NoError(t, err)
	return v
}

func TestResolver_Resolve(t *testing.T) {
	r := hw.NewResolver(testVariant(t))

	rx, err := r.ResolveSubsignal("serial", 0, "rx")
	require.NoError(t, err)
	require.Equal(t, []hw.PinSpec{hw.Pin("Y17")}, rx.Pins)
	require.Equal(t, lvttl, rx.Attrs.IOStandard())
	require.Contains(t, rx.Attrs, "PULLUP")

	tx, err := r.ResolveSubsignal("serial", 0, "tx")
	require.NoError(t, err)
	require.Equal(t, []hw.PinSpec{hw.Pin("M18")}, tx.Pins)
	require.NotContains(t, tx.Attrs, "PULLUP")

	serial, err := r.Resolve("serial", 0)
	require.NoError(t, err)
	require.Len(t, serial.Subsignals, 2)
	require.Equal(t, []string{"M18", "Y17"}, serial.PinNames())
	s, ok := serial.Subsignal("rx")
	require.True(t, ok)
	if diff := cmp.Diff(rx, *s); diff != "" {
		t.Fatalf("subsignal mismatch (-want +got):\n%s", diff)
	}
	_, ok = serial.Subsignal("cts")
	require.False(t, ok)

	lvds, err := r.Resolve("lvds", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"D1", "D3", "D2", "D4"}, lvds.PinNames())
}

func TestResolver_errors(t *testing.T) {
	r := hw.NewResolver(testVariant(t))

	_, err := r.Resolve("missing_resource", 0)
	var nf *hw.NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, hw.Key{Name: "missing_resource"}, nf.Key)

	_, err = r.Resolve("user_led", 2)
	require.True(t, errors.As(err, &nf))

	_, err = r.ResolveSubsignal("serial", 0, "cts")
	require.True(t, errors.As(err, &nf))
	require.Equal(t, hw.Key{Name: "serial", Subsignal: "cts"}, nf.Key)

	_, err = r.ResolveAll("nope")
	require.True(t, errors.As(err, &nf))

	_, err = r.Resolve("pmod", 0)
	var up *hw.UnroutedPinError
	require.True(t, errors.As(err, &up))
	require.Equal(t, hw.Key{Name: "pmod"}, up.Key)
	require.Equal(t, hw.Slot("GPIO", 2), up.Pin)
	require.False(t, r.IsConsumed(hw.Key{Name: "pmod"}))
}

func TestResolver_naming(t *testing.T) {
	r := hw.NewResolver(testVariant(t))
	data := []struct {
		name  string
		index int
		pin   string
	}{
		{"user_led", 0, "L1"},
		{"user_led", 1, "L2"},
		{"user_led1", 0, "L2"},
		{"key0", 0, "K0"},
		{"key", 1, "K1"},
		{"key", 0, "K0"},
	}
	for _, d := range data {
		h, err := r.Resolve(d.name, d.index)
		require.NoError(t, err, "%s %d", d.name, d.index)
		require.Equal(t, d.pin, hw.FormatPins(h.Pins), "%s %d", d.name, d.index)
	}
	_, err := r.Resolve("key1", 1)
	require.Error(t, err)

	keys, err := r.ResolveAll("key")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	require.Equal(t, hw.Key{Name: "key0"}, keys[0].Key)
	require.Equal(t, hw.Key{Name: "key1"}, keys[1].Key)
	require.Equal(t, "K1", hw.FormatPins(keys[1].Pins))

	leds, err := r.ResolveAll("user_led")
	require.NoError(t, err)
	require.Len(t, leds, 2)
}

func TestResolver_deterministic(t *testing.T) {
	r := hw.NewResolver(testVariant(t))
	h1, err := r.Resolve("serial", 0)
	require.NoError(t, err)
	h1.Attrs["DRIVE"] = "8"
	h1.Subsignals[0].Pins[0] = hw.Pin("X1")

	h2, err := r.Resolve("serial", 0)
	require.NoError(t, err)
	h3, err := r.Resolve("serial", 0)
	require.NoError(t, err)
	if diff := cmp.Diff(h2, h3); diff != "" {
		t.Fatalf("repeated resolution mismatch (-first +second):\n%s", diff)
	}
	require.NotContains(t, h2.Attrs, "DRIVE")
	require.Equal(t, "M18", hw.FormatPins(h2.Subsignals[0].Pins))

	res, err := r.Lookup("serial", 0)
	require.NoError(t, err)
	require.Equal(t, "GPIO:1", hw.FormatPins(res.Subsignals[0].Pins))
}

func TestResolver_consumed(t *testing.T) {
	v := testVariant(t)
	r := hw.NewResolver(v)
	require.Equal(t, len(v.Resources.Keys())+1, len(r.Remaining()))

	_, err := r.ResolveSubsignal("serial", 0, "rx")
	require.NoError(t, err)
	require.True(t, r.IsConsumed(hw.Key{Name: "serial"}))
	require.True(t, r.IsConsumed(hw.Key{Name: "serial", Subsignal: "rx"}))
	require.False(t, r.IsConsumed(hw.Key{Name: "serial", Subsignal: "tx"}))

	leds, err := r.ResolveAll("user_led")
	require.NoError(t, err)
	require.Len(t, leds, 2)
	require.Equal(t, 1, leds[1].Key.Index)

	_, err = r.Lookup("clk50", 0)
	require.NoError(t, err)

	require.Equal(t, []hw.Key{
		{Name: "serial", Subsignal: "rx"},
		{Name: "user_led"},
		{Name: "user_led", Index: 1},
	}, r.Consumed())
	require.Equal(t, []hw.Key{
		{Name: "clk50"},
		{Name: "serial", Subsignal: "tx"},
		{Name: "key0"},
		{Name: "key1"},
		{Name: "pmod"},
		{Name: "lvds"},
	}, r.Remaining())

	_, err = r.Resolve("serial", 0)
	require.NoError(t, err)
	require.True(t, r.IsConsumed(hw.Key{Name: "serial", Subsignal: "tx"}))
	require.NotContains(t, r.Remaining(), hw.Key{Name: "serial", Subsignal: "tx"})
}

func TestResolver_concurrent(t *testing.T) {
	r := hw.NewResolver(testVariant(t))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := r.Resolve("user_led", i%2); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	require.Len(t, r.Consumed(), 2)
}
