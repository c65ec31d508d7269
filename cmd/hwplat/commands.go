// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/db47h/hwplat"
	"github.com/db47h/hwplat/crg"
	"github.com/db47h/hwplat/sim"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/atomic"
)

func newTable(w io.Writer, header ...interface{}) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

var variantsCommand = &cli.Command{
	Name:  "variants",
	Usage: "list known board variants",
	Action: func(c *cli.Context) error {
		sel, err := selector(c)
		if err != nil {
			return err
		}
		t := newTable(c.App.Writer, "Variant", "IDs", "Device", "Clock", "Resources", "Connectors")
		for _, v := range sel.Variants() {
			clk := ""
			if v.Clock.Resource != "" {
				clk = fmt.Sprintf("%s @ %s", hwplat.Key{Name: v.Clock.Resource, Index: v.Clock.Index}, freqString(v.Clock.Freq))
			}
			t.AppendRow(table.Row{v.Name, strings.Join(v.IDs, ", "), v.Device, clk, v.Resources.Len(),
				strings.Join(v.Connectors.Names(), ", ")})
		}
		t.Render()
		return nil
	},
}

var resourcesCommand = &cli.Command{
	Name:      "resources",
	Usage:     "list the resources of a board variant",
	ArgsUsage: "VARIANT",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "connectors", Usage: "also list connectors"},
	},
	Action: func(c *cli.Context) error {
		p, err := platform(c)
		if err != nil {
			return err
		}
		v := p.Variant()
		t := newTable(c.App.Writer, "Resource", "Pins", "Neg", "Attributes")
		for _, k := range v.Resources.Keys() {
			r, _ := v.Resources.Lookup(k.Name, k.Index)
			if !r.Composite() {
				t.AppendRow(table.Row{k, hwplat.FormatPins(r.Pins), hwplat.FormatPins(r.NegPins), r.Attrs})
				continue
			}
			t.AppendRow(table.Row{k, "", "", r.Attrs})
			for _, s := range r.Subsignals {
				t.AppendRow(table.Row{k.Sub(s.Name), hwplat.FormatPins(s.Pins), hwplat.FormatPins(s.NegPins), s.Attrs})
			}
		}
		t.Render()
		if !c.Bool("connectors") {
			return nil
		}
		t = newTable(c.App.Writer, "Connector", "Slot", "Pin")
		for _, n := range v.Connectors.Names() {
			cn, _ := v.Connectors.Lookup(n)
			for i, s := range cn.Slots {
				t.AppendRow(table.Row{n, i, s})
			}
		}
		t.Render()
		return nil
	},
}

var resolveCommand = &cli.Command{
	Name:      "resolve",
	Usage:     "resolve resources to physical pins",
	ArgsUsage: "VARIANT NAME[INDEX][.SUBSIGNAL]...",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "remaining", Usage: "list unused resources after resolution"},
	},
	Action: func(c *cli.Context) error {
		p, err := platform(c)
		if err != nil {
			return err
		}
		t := newTable(c.App.Writer, "Resource", "Pins", "Neg", "Attributes")
		for _, arg := range c.Args().Tail() {
			k, err := parseKey(arg)
			if err != nil {
				return err
			}
			var h hwplat.Handle
			if k.Subsignal != "" {
				h, err = p.RequestSubsignal(k.Name, k.Index, k.Subsignal)
			} else {
				h, err = p.RequestIndex(k.Name, k.Index)
			}
			if err != nil {
				return err
			}
			for _, h := range append([]hwplat.Handle{h}, h.Subsignals...) {
				t.AppendRow(table.Row{h.Key, hwplat.FormatPins(h.Pins), hwplat.FormatPins(h.NegPins), h.Attrs})
			}
		}
		t.Render()
		if c.Bool("remaining") {
			keys := lo.Map(p.Resolver().Remaining(), func(k hwplat.Key, _ int) string { return k.String() })
			fmt.Fprintln(c.App.Writer, "remaining:", strings.Join(keys, " "))
		}
		return nil
	},
}

var crgCommand = &cli.Command{
	Name:      "crg",
	Usage:     "configure the clock and reset generator of a board variant",
	ArgsUsage: "VARIANT",
	Flags: []cli.Flag{
		&cli.Float64Flag{Name: "sys-freq", Usage: "system clock frequency in Hz (default: input clock frequency)"},
		&cli.StringSliceFlag{Name: "domain", Usage: "extra clock domain `NAME:FREQ[:PHASE[:resetless]]`, phase in degrees"},
		&cli.StringSliceFlag{Name: "forward", Usage: "forward a domain clock to a pin `RESOURCE:DOMAIN[:invert]`"},
		&cli.Uint64Flag{Name: "simulate", Usage: "simulate `N` steps and report domain states"},
		&cli.Uint64Flag{Name: "unlock-at", Usage: "drop the PLL lock at `STEP` during simulation"},
		&cli.IntFlag{Name: "workers", Usage: "simulation worker goroutines", Value: 0},
	},
	Action: func(c *cli.Context) error {
		p, err := platform(c)
		if err != nil {
			return err
		}
		sysFreq, err := hertz(c.Float64("sys-freq"))
		if err != nil {
			return errors.Wrap(err, "--sys-freq")
		}
		cfg := crg.Config{SysFreq: sysFreq}
		for _, s := range c.StringSlice("domain") {
			dc, err := parseDomain(s)
			if err != nil {
				return err
			}
			cfg.Domains = append(cfg.Domains, dc)
		}
		for _, s := range c.StringSlice("forward") {
			fc, err := parseForward(s)
			if err != nil {
				return err
			}
			cfg.Forward = append(cfg.Forward, fc)
		}
		g, err := crg.New(p, cfg, crg.WithLogger(logger(c)))
		if err != nil {
			return err
		}

		plan := g.Plan()
		fmt.Fprintln(c.App.Writer, plan)
		t := newTable(c.App.Writer, "Domain", "Freq", "Phase", "Div", "Period", "Shift", "Clock", "Reset")
		for _, d := range g.Domains() {
			o := d.Output()
			t.AppendRow(table.Row{d.Name(), freqString(o.Freq), o.Phase, o.Div,
				fmt.Sprintf("%.0f ps", plan.Picoseconds(o.Period)), fmt.Sprintf("%.0f ps", plan.Picoseconds(o.Shift)),
				d.Clk(), d.Rst()})
		}
		t.Render()
		for _, f := range g.Forwarded() {
			fmt.Fprintf(c.App.Writer, "%s (%s) <- clk_%s invert=%v\n", f.Handle.Key, strings.Join(f.Handle.PinNames(), " "),
				f.Domain.Name(), f.Invert)
		}
		for _, pc := range p.Constraints() {
			fmt.Fprintf(c.App.Writer, "period %s (%s): %d ps\n", pc.Key, strings.Join(pc.Pins, " "), pc.Period)
		}

		if n := c.Uint64("simulate"); n > 0 {
			return simulate(c, g, n, c.Uint64("unlock-at"))
		}
		return nil
	},
}

func simulate(c *cli.Context, g *crg.CRG, n, unlockAt uint64) error {
	var locked atomic.Bool
	locked.Store(true)
	parts, err := g.Parts(locked.Load)
	if err != nil {
		return err
	}
	circuit, err := sim.NewCircuit(c.Int("workers"), parts...)
	if err != nil {
		return errors.Wrap(err, "build simulation")
	}
	defer circuit.Dispose()

	released := make(map[string]uint64)
	pending := g.Domains()
	for circuit.Steps() < n {
		if unlockAt > 0 && circuit.Steps() == unlockAt {
			locked.Store(false)
		}
		circuit.Step()
		pending = lo.Filter(pending, func(d *crg.Domain, _ int) bool {
			if d.Locked() {
				released[d.Name()] = circuit.Steps()
				return false
			}
			return true
		})
	}
	t := newTable(c.App.Writer, "Domain", "State", "Released at")
	for _, d := range g.Domains() {
		at := "-"
		if s, ok := released[d.Name()]; ok {
			at = strconv.FormatUint(s, 10)
		}
		t.AppendRow(table.Row{d.Name(), d.State(), at})
	}
	t.Render()
	return nil
}

// parseKey parses NAME[INDEX][.SUBSIGNAL].
func parseKey(s string) (hwplat.Key, error) {
	var k hwplat.Key
	name, sub, _ := strings.Cut(s, ".")
	k.Subsignal = sub
	if i := strings.IndexByte(name, '['); i >= 0 {
		if !strings.HasSuffix(name, "]") {
			return k, errors.Errorf("invalid resource %q", s)
		}
		idx, err := strconv.Atoi(name[i+1 : len(name)-1])
		if err != nil || idx < 0 {
			return k, errors.Errorf("invalid resource index in %q", s)
		}
		name, k.Index = name[:i], idx
	}
	if name == "" {
		return k, errors.Errorf("invalid resource %q", s)
	}
	k.Name = name
	return k, nil
}

// parseDomain parses NAME:FREQ[:PHASE[:resetless]].
func parseDomain(s string) (crg.DomainConfig, error) {
	var dc crg.DomainConfig
	f := strings.Split(s, ":")
	if len(f) < 2 || len(f) > 4 || f[0] == "" {
		return dc, errors.Errorf("invalid domain %q", s)
	}
	dc.Name = f[0]
	freq, err := strconv.ParseFloat(f[1], 64)
	if err == nil {
		dc.Freq, err = hertz(freq)
	}
	if err != nil {
		return dc, errors.Errorf("invalid frequency in domain %q", s)
	}
	if len(f) > 2 {
		deg, err := strconv.ParseFloat(f[2], 64)
		if err != nil {
			return dc, errors.Errorf("invalid phase in domain %q", s)
		}
		dc.Phase = crg.Phase(deg*10 + 0.5)
	}
	if len(f) > 3 {
		if f[3] != "resetless" {
			return dc, errors.Errorf("invalid domain option %q", f[3])
		}
		dc.ResetLess = true
	}
	return dc, nil
}

// parseForward parses RESOURCE[INDEX]:DOMAIN[:invert].
func parseForward(s string) (crg.ForwardConfig, error) {
	var fc crg.ForwardConfig
	f := strings.Split(s, ":")
	if len(f) < 2 || len(f) > 3 || f[1] == "" {
		return fc, errors.Errorf("invalid clock forward %q", s)
	}
	k, err := parseKey(f[0])
	if err != nil {
		return fc, err
	}
	if k.Subsignal != "" {
		return fc, errors.Errorf("cannot forward a clock to subsignal %s", k)
	}
	fc.Resource, fc.Index, fc.Domain = k.Name, k.Index, f[1]
	if len(f) > 2 {
		if f[2] != "invert" {
			return fc, errors.Errorf("invalid clock forward option %q", f[2])
		}
		fc.Invert = true
	}
	return fc, nil
}

// hertz converts a frequency flag value to Hz.
func hertz(f float64) (uint64, error) {
	if math.IsNaN(f) || f < 0 || f >= math.MaxUint64 {
		return 0, errors.Errorf("invalid frequency %g", f)
	}
	return uint64(f), nil
}

func freqString(hz uint64) string {
	switch {
	case hz >= 1e6 && hz%1e3 == 0:
		return strconv.FormatFloat(float64(hz)/1e6, 'f', -1, 64) + " MHz"
	case hz >= 1e3:
		return strconv.FormatFloat(float64(hz)/1e3, 'f', -1, 64) + " kHz"
	}
	return strconv.FormatUint(hz, 10) + " Hz"
}
