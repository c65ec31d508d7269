package main

import (
	"bytes"
	"math"
	"testing"

	"github.com/db47h/hwplat"
	"github.com/db47h/hwplat/crg"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestParseKey(t *testing.T) {
	data := []struct {
		in   string
		want hwplat.Key
		err  bool
	}{
		{"serial", hwplat.Key{Name: "serial"}, false},
		{"serial.rx", hwplat.Key{Name: "serial", Subsignal: "rx"}, false},
		{"user_led[3]", hwplat.Key{Name: "user_led", Index: 3}, false},
		{"ddram[1].dq", hwplat.Key{Name: "ddram", Index: 1, Subsignal: "dq"}, false},
		{"", hwplat.Key{}, true},
		{"[1]", hwplat.Key{}, true},
		{"led[x]", hwplat.Key{}, true},
		{"led[-1]", hwplat.Key{}, true},
		{"led[1", hwplat.Key{}, true},
	}
	for _, d := range data {
		k, err := parseKey(d.in)
		if d.err {
			require.Error(t, err, d.in)
			continue
		}
		require.NoError(t, err, d.in)
		require.Equal(t, d.want, k, d.in)
	}
}

func TestParseDomain(t *testing.T) {
	dc, err := parseDomain("sys_ps:50e6:90")
	require.NoError(t, err)
	require.Equal(t, crg.DomainConfig{Name: "sys_ps", Freq: 50e6, Phase: crg.Deg90}, dc)

	dc, err = parseDomain("sys2x:100000000:0:resetless")
	require.NoError(t, err)
	require.Equal(t, crg.DomainConfig{Name: "sys2x", Freq: 100e6, ResetLess: true}, dc)

	dc, err = parseDomain("ps:48e6:22.5")
	require.NoError(t, err)
	require.Equal(t, crg.Phase(225), dc.Phase)

	for _, s := range []string{"sys", ":1", "a:x", "a:1:x", "a:1:0:bogus", "a:1:0:resetless:x"} {
		_, err = parseDomain(s)
		require.Error(t, err, s)
	}
}

func TestParseForward(t *testing.T) {
	fc, err := parseForward("sdram_clock:sys_ps")
	require.NoError(t, err)
	require.Equal(t, crg.ForwardConfig{Resource: "sdram_clock", Domain: "sys_ps"}, fc)

	fc, err = parseForward("clk_out[1]:sys:invert")
	require.NoError(t, err)
	require.Equal(t, crg.ForwardConfig{Resource: "clk_out", Index: 1, Domain: "sys", Invert: true}, fc)

	for _, s := range []string{"sdram_clock", "sdram_clock:", "a.b:sys", "a:sys:x"} {
		_, err = parseForward(s)
		require.Error(t, err, s)
	}
}

func TestHertz(t *testing.T) {
	hz, err := hertz(50e6)
	require.NoError(t, err)
	require.Equal(t, uint64(50e6), hz)
	for _, f := range []float64{-1, 1e30, math.NaN(), math.Inf(1)} {
		_, err = hertz(f)
		require.Error(t, err, "%g", f)
	}
}

func TestFreqString(t *testing.T) {
	require.Equal(t, "50 MHz", freqString(50e6))
	require.Equal(t, "33.333 MHz", freqString(33333000))
	require.Equal(t, "32.768 kHz", freqString(32768))
	require.Equal(t, "12 Hz", freqString(12))
}

func testApp(out *bytes.Buffer) *cli.App {
	return &cli.App{
		Writer: out,
		Before: func(c *cli.Context) error {
			log, err := newLogger("error")
			c.App.Metadata = map[string]interface{}{"log": log}
			return err
		},
		Flags:    []cli.Flag{&cli.StringFlag{Name: flagBoards}},
		Commands: []*cli.Command{variantsCommand, resourcesCommand, resolveCommand, crgCommand},
	}
}

func TestCommands(t *testing.T) {
	var out bytes.Buffer
	app := testApp(&out)

	require.NoError(t, app.Run([]string{"hwplat", "variants"}))
	require.Contains(t, out.String(), "orangecrab-r0.2-85f")

	out.Reset()
	require.NoError(t, app.Run([]string{"hwplat", "resolve", "--remaining", "0.2", "serial.tx", "ddram.dqs_p"}))
	require.Contains(t, out.String(), "M18")
	require.Contains(t, out.String(), "SSTL135D_I")
	require.Contains(t, out.String(), "serial[0].rx")

	out.Reset()
	require.NoError(t, app.Run([]string{"hwplat", "resources", "--connectors", "de1soc"}))
	require.Contains(t, out.String(), "JP1")

	out.Reset()
	require.NoError(t, app.Run([]string{"hwplat", "crg",
		"--domain", "sys_ps:50e6:90", "--forward", "sdram_clock:sys_ps", "--simulate", "2000", "de1soc"}))
	require.Contains(t, out.String(), "5000 ps")
	require.Contains(t, out.String(), "LOCKED")

	require.Error(t, app.Run([]string{"hwplat", "resolve", "de1soc", "nope"}))
	require.Error(t, app.Run([]string{"hwplat", "crg", "--domain", "x:33333333", "de1soc"}))
	require.Error(t, app.Run([]string{"hwplat", "resources", "unknown"}))
	require.Error(t, app.Run([]string{"hwplat", "crg", "--sys-freq", "-50e6", "de1soc"}))
}
