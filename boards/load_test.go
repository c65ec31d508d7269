package boards_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/db47h/hwplat"
	"github.com/db47h/hwplat/boards"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestLibrary(t *testing.T) {
	sel, err := boards.Library()
	require.NoError(t, err)

	names := make([]string, 0)
	for _, v := range sel.Variants() {
		names = append(names, v.Name)
	}
	require.Equal(t, []string{"de1soc", "orangecrab-r0.1", "orangecrab-r0.2", "orangecrab-r0.2-85f"}, names)

	for _, id := range []string{"de1soc", "DE1-SoC", "5CSEMA5F31C6"} {
		v, err := sel.Select(id)
		require.NoError(t, err, id)
		require.Equal(t, "de1soc", v.Name)
	}

	v, err := sel.Select("LFE5U-85F-8MG285C")
	require.NoError(t, err)
	require.Equal(t, "orangecrab-r0.2-85f", v.Name)

	_, err = sel.Select("LFE5U-25F-8MG285C")
	var uv *hwplat.UnknownVariantError
	require.True(t, errors.As(err, &uv))
	require.Equal(t, []string{"orangecrab-r0.1", "orangecrab-r0.2"}, uv.Candidates)

	_, err = sel.Select("0.3")
	require.True(t, errors.As(err, &uv))
	require.Empty(t, uv.Candidates)
	require.Contains(t, uv.Known, "0.2")
}

func TestDE1SoC(t *testing.T) {
	sel, err := boards.Library()
	require.NoError(t, err)
	p, err := hwplat.New(sel, "de1soc")
	require.NoError(t, err)

	rx, err := p.RequestSubsignal("serial", 0, "rx")
	require.NoError(t, err)
	require.Equal(t, "Y17", hwplat.FormatPins(rx.Pins))
	require.Equal(t, "3.3-V LVTTL", rx.Attrs.IOStandard())

	hex4, err := p.Request("hex4")
	require.NoError(t, err)
	require.Equal(t, "AA24 Y23 Y24 W22 W24 V23 W25", hwplat.FormatPins(hex4.Pins))

	gpio, err := p.Request("gpio0")
	require.NoError(t, err)
	require.Len(t, gpio.Pins, 36)

	sdram, err := p.Request("sdram")
	require.NoError(t, err)
	require.Len(t, sdram.Subsignals, 9)
	for _, s := range sdram.Subsignals {
		require.Equal(t, "3.3-V LVTTL", s.Attrs.IOStandard(), s.Key.String())
	}
	dq, ok := sdram.Subsignal("dq")
	require.True(t, ok)
	require.Len(t, dq.Pins, 16)

	// JP1 slot 10 is a power pin
	c, ok := p.Variant().Connectors.Lookup("JP1")
	require.True(t, ok)
	require.Len(t, c.Slots, 40)
	require.False(t, c.Slots[10].IsConnected())

	clk, freq, err := p.DefaultClock()
	require.NoError(t, err)
	require.Equal(t, uint64(50e6), freq)
	require.Equal(t, "AF14", hwplat.FormatPins(clk.Pins))
}

func TestOrangeCrab(t *testing.T) {
	sel, err := boards.Library()
	require.NoError(t, err)

	data := []struct {
		id  string
		tx  string
		sda string
	}{
		{"0.1", "M18", "C10"},
		{"r0.2", "M18", "C10"},
		{"85F", "M18", "C10"},
	}
	for _, d := range data {
		p, err := hwplat.New(sel, d.id)
		require.NoError(t, err, d.id)
		tx, err := p.RequestSubsignal("serial", 0, "tx")
		require.NoError(t, err, d.id)
		require.Equal(t, []hwplat.PinSpec{hwplat.Pin(d.tx)}, tx.Pins)
		require.Equal(t, "LVCMOS33", tx.Attrs.IOStandard())
		sda, err := p.RequestSubsignal("i2c", 0, "sda")
		require.NoError(t, err, d.id)
		require.Equal(t, d.sda, hwplat.FormatPins(sda.Pins))
	}

	p, err := hwplat.New(sel, "0.2")
	require.NoError(t, err)
	dqs, err := p.RequestSubsignal("ddram", 0, "dqs_p")
	require.NoError(t, err)
	want := hwplat.Attrs{
		hwplat.IOStandard: "SSTL135D_I",
		"SLEWRATE":        "FAST",
		"TERMINATION":     "OFF",
		"DIFFRESISTOR":    "100",
	}
	if diff := cmp.Diff(want, dqs.Attrs); diff != "" {
		t.Fatalf("dqs_p attributes mismatch (-want +got):\n%s", diff)
	}
	a, err := p.RequestSubsignal("ddram", 0, "a")
	require.NoError(t, err)
	require.Len(t, a.Pins, 16)

	v85, err := sel.Select("85F")
	require.NoError(t, err)
	v02, err := sel.Select("0.2")
	require.NoError(t, err)
	require.Equal(t, v02.Resources.Keys(), v85.Resources.Keys())
	require.Equal(t, v02.Clock, v85.Clock)
	require.Equal(t, uint64(48e6), v85.Clock.Freq)
}

const testBoard = `
extension "pmod" {
  resource "pmod" {
    pins = join(" ", formatlist("P:%d", range(4)))
  }
}

variant "a" {
  ids        = ["rev-a"]
  device     = "DEV-A"
  extensions = ["pmod"]

  resource "led" {
    index = 0
    pins  = "L1"
  }
  resource "led" {
    index = 1
    pins  = "L2"
    attributes = {
      DRIVE = "8"
    }
  }
  resource "lvds" {
    pins     = "D1 D3"
    neg_pins = "D2 D4"
    io_standard = "LVDS"
    misc        = "DIFFRESISTOR=100 PULLUP"
  }
  resource "nc" {
    pins = "P:2"
  }
  connector "P" {
    pins = ["A1 A2", "- A4"]
  }
}

variant "b" {
  inherits = "a"
  connector "P" {
    pins = "B1 B2 B3 B4"
  }
}
`

func TestParse(t *testing.T) {
	vs, err := boards.Parse([]byte(testBoard), "test.hcl")
	require.NoError(t, err)
	require.Len(t, vs, 2)
	sel, err := hwplat.NewSelector(vs...)
	require.NoError(t, err)

	pa, err := hwplat.New(sel, "rev-a")
	require.NoError(t, err)
	leds, err := pa.RequestAll("led")
	require.NoError(t, err)
	require.Len(t, leds, 2)
	require.Equal(t, "8", leds[1].Attrs["DRIVE"])

	lvds, err := pa.Request("lvds")
	require.NoError(t, err)
	require.Equal(t, "D2 D4", hwplat.FormatPins(lvds.NegPins))
	require.Equal(t, hwplat.Attrs{hwplat.IOStandard: "LVDS", "DIFFRESISTOR": "100", "PULLUP": ""}, lvds.Attrs)

	_, err = pa.Request("pmod")
	var up *hwplat.UnroutedPinError
	require.True(t, errors.As(err, &up))
	require.Equal(t, hwplat.Slot("P", 2), up.Pin)
	_, err = pa.Request("nc")
	require.True(t, errors.As(err, &up))

	pb, err := hwplat.New(sel, "b")
	require.NoError(t, err)
	pmod, err := pb.Request("pmod")
	require.NoError(t, err)
	require.Equal(t, "B1 B2 B3 B4", hwplat.FormatPins(pmod.Pins))
	require.Equal(t, "DEV-A", pb.Variant().Device)
	// ids are not inherited
	require.Empty(t, pb.Variant().IDs)
}

func TestParse_errors(t *testing.T) {
	data := []struct {
		name   string
		src    string
		schema bool
		parse  bool
	}{
		{"syntax", `variant "a" {`, false, false},
		{"bad_pin", `variant "a" {
  resource "r" { pins = "A1 B#2" }
}`, false, true},
		{"empty_pins", `variant "a" {
  resource "r" { pins = "   " }
}`, false, true},
		{"pins_type", `variant "a" {
  resource "r" { pins = { a = 1 } }
}`, false, false},
		{"duplicate", `variant "a" {
  resource "r" { pins = "A1" }
  resource "r" { pins = "A2" }
}`, true, false},
		{"both", `variant "a" {
  resource "r" {
    pins = "A1"
    subsignal "s" { pins = "A2" }
  }
}`, true, false},
		{"unknown_connector", `variant "a" {
  resource "r" { pins = "X:1" }
}`, true, false},
		{"slot_range", `variant "a" {
  resource "r" { pins = "X:4" }
  connector "X" { pins = "A1 A2" }
}`, true, false},
		{"chained", `variant "a" {
  connector "X" { pins = "Y:0" }
  connector "Y" { pins = "A1" }
}`, true, false},
		{"width", `variant "a" {
  resource "r" {
    pins  = "A1 A2"
    width = 3
  }
}`, true, false},
		{"same_pin", `variant "a" {
  resource "r" { pins = "A1 X:0" }
  connector "X" { pins = "A1" }
}`, true, false},
		{"extension", `variant "a" {
  extensions = ["nope"]
}`, true, false},
		{"inherits", `variant "a" {
  inherits = "b"
}`, true, false},
		{"variant", `variant "a" {}
variant "a" {}`, true, false},
		{"clock", `variant "a" {
  clock {
    resource = "nope"
    freq     = 1
  }
}`, true, false},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			_, err := boards.Parse([]byte(d.src), d.name+".hcl")
			require.Error(t, err)
			var se *hwplat.SchemaError
			require.Equal(t, d.schema, errors.As(err, &se), "%v", err)
			var pe *hwplat.ParseError
			require.Equal(t, d.parse, errors.As(err, &pe), "%v", err)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.hcl"), []byte(testBoard), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not hcl"), 0o644))
	vs, err := boards.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	require.Equal(t, "a", vs[0].Name)
	require.Equal(t, "b", vs[1].Name)
}
