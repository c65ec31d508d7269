// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package crg implements clock and reset generation for a board platform: a
// PLL deriving phase related clock domains from a board clock input, reset
// synchronization gated on PLL lock, and forwarded clocks.
//
// The generated logic can be simulated with package sim.
//
package crg

import (
	"fmt"

	"github.com/db47h/hwplat"
	"github.com/db47h/hwplat/sim"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// LockWire is the name of the PLL lock signal in simulated circuits.
//
const LockWire = "pll_locked"

// An Option configures a CRG or PLL.
//
type Option func(*options)

type options struct {
	log *zap.Logger
}

func newOptions(opts []Option) *options {
	o := &options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger. The default is a no-op logger.
//
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// DomainConfig declares a clock domain.
//
type DomainConfig struct {
	Name      string
	Freq      uint64 // Hz, defaults to the system clock frequency
	Phase     Phase
	ResetLess bool
}

// ForwardConfig declares a forwarded clock.
//
type ForwardConfig struct {
	Resource string
	Index    int
	Domain   string
	Invert   bool
}

// Config is the CRG configuration.
//
type Config struct {
	// Input clock resource. Defaults to the variant's default clock.
	Input      string
	InputIndex int
	// InputFreq is required if Input is set.
	InputFreq uint64
	// SysFreq is the frequency of the "sys" domain. Defaults to the input
	// frequency.
	SysFreq uint64
	// Domains declares additional domains.
	Domains []DomainConfig
	// Limits overrides the PLL limits of the variant.
	Limits *hwplat.PLLLimits
	// Forward declares forwarded clocks.
	Forward []ForwardConfig
}

// A Forwarded is a clock forwarded to a board pin through a DDR output
// register.
//
type Forwarded struct {
	Handle hwplat.Handle
	Domain *Domain
	Invert bool
}

// Wire returns the name of the forwarded clock signal.
//
func (f *Forwarded) Wire() string {
	return fmt.Sprintf("fwd_%s_%d", f.Handle.Key.Name, f.Handle.Key.Index)
}

// A CRG is the clock and reset generator of a platform.
//
type CRG struct {
	p   *hwplat.Platform
	pll *PLL
	sys *Domain
	fwd []*Forwarded
	log *zap.Logger
}

// New builds a CRG for platform p: it requests the clock input, creates the
// "sys" domain and the domains of cfg, configures the PLL and binds forwarded
// clocks.
//
func New(p *hwplat.Platform, cfg Config, opts ...Option) (*CRG, error) {
	o := newOptions(opts)
	limits := p.Variant().PLL
	if cfg.Limits != nil {
		limits = *cfg.Limits
	} else if limits == (hwplat.PLLLimits{}) {
		limits = DefaultLimits
	}
	c := &CRG{
		p:   p,
		pll: NewPLL(limits, opts...),
		log: o.log.Named("crg").With(zap.String("variant", p.Variant().Name)),
	}

	var (
		in   hwplat.Handle
		freq uint64
		err  error
	)
	if cfg.Input == "" {
		in, freq, err = p.DefaultClock()
	} else {
		in, freq, err = c.requestInput(cfg.Input, cfg.InputIndex, cfg.InputFreq)
	}
	if err != nil {
		return nil, errors.Wrap(err, "clock input")
	}
	if err = c.pll.RegisterInput(in, freq); err != nil {
		return nil, err
	}

	sysFreq := cfg.SysFreq
	if sysFreq == 0 {
		sysFreq = freq
	}
	if c.sys, err = c.pll.CreateDomain("sys", sysFreq, Deg0); err != nil {
		return nil, err
	}
	for _, dc := range cfg.Domains {
		f := dc.Freq
		if f == 0 {
			f = sysFreq
		}
		var dopts []DomainOption
		if dc.ResetLess {
			dopts = append(dopts, ResetLess())
		}
		if _, err = c.pll.CreateDomain(dc.Name, f, dc.Phase, dopts...); err != nil {
			return nil, err
		}
	}
	plan, err := c.pll.Configure()
	if err != nil {
		return nil, err
	}
	c.log.Info("PLL configured",
		zap.Int("M", plan.M), zap.Int("N", plan.N), zap.Uint64("vco", plan.VCO), zap.Int("domains", len(plan.Outputs)))

	for _, fc := range cfg.Forward {
		if _, err = c.ForwardClock(fc.Resource, fc.Index, fc.Domain, fc.Invert); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *CRG) requestInput(name string, index int, freq uint64) (hwplat.Handle, uint64, error) {
	if freq == 0 {
		return hwplat.Handle{}, 0, &hwplat.ConfigError{Msg: "input frequency required for clock input " + name}
	}
	h, err := c.p.RequestIndex(name, index)
	if err != nil {
		return hwplat.Handle{}, 0, err
	}
	c.p.Sense(h)
	if err = c.p.AddPeriodConstraint(h, 1e12/freq); err != nil {
		return hwplat.Handle{}, 0, err
	}
	return h, freq, nil
}

// PLL returns the CRG's PLL.
//
func (c *CRG) PLL() *PLL { return c.pll }

// Plan returns the PLL configuration.
//
func (c *CRG) Plan() *Plan { return c.pll.Plan() }

// Sys returns the system clock domain.
//
func (c *CRG) Sys() *Domain { return c.sys }

// Domains returns all clock domains, "sys" first.
//
func (c *CRG) Domains() []*Domain { return c.pll.Domains() }

// Domain returns the named domain.
//
func (c *CRG) Domain(name string) (*Domain, bool) {
	for _, d := range c.pll.domains {
		if d.name == name {
			return d, true
		}
	}
	return nil, false
}

// Forwarded returns the forwarded clocks.
//
func (c *CRG) Forwarded() []*Forwarded { return append([]*Forwarded(nil), c.fwd...) }

// ForwardClock forwards the clock of domain to the flat resource (name,
// index). The resource is bound as a driving output; binding pins already
// driven fails with a *hwplat.ConflictError.
//
// The forwarded clock is generated by a DDR output register and is held low
// while the domain is in reset. If invert is set, the forwarded clock is
// inverted.
//
func (c *CRG) ForwardClock(name string, index int, domain string, invert bool) (*Forwarded, error) {
	d, ok := c.Domain(domain)
	if !ok {
		return nil, &hwplat.ConfigError{Domain: domain, Msg: "unknown domain"}
	}
	h, err := c.p.RequestIndex(name, index)
	if err != nil {
		return nil, err
	}
	if len(h.Subsignals) > 0 {
		return nil, &hwplat.ConfigError{Domain: domain, Msg: fmt.Sprintf("cannot forward clock to composite resource %s", h.Key)}
	}
	if err = c.p.Drive(h); err != nil {
		return nil, err
	}
	f := &Forwarded{Handle: h, Domain: d, Invert: invert}
	c.fwd = append(c.fwd, f)
	c.log.Debug("forwarded clock", zap.Stringer("key", h.Key), zap.String("domain", domain), zap.Bool("invert", invert))
	return f, nil
}

// Parts returns the simulation parts of the CRG. lock is the PLL lock
// indicator, sampled every step.
//
// Each domain clock is a free running clock with the period and phase of its
// PLL output, and each domain reset is driven by a ResetSynchronizer whose
// asynchronous reset is asserted while the PLL is unlocked or the domain is
// faulted. Domain states follow the synchronized reset.
//
func (c *CRG) Parts(lock func() bool) (sim.Parts, error) {
	if c.pll.plan == nil {
		return nil, &hwplat.ConfigError{Msg: "PLL not configured"}
	}
	parts := sim.Parts{sim.Input(LockWire, lock)}
	for _, d := range c.pll.domains {
		d := d
		locked := "locked_" + d.name
		parts = append(parts,
			sim.Clock(d.Clk(), d.out.Period, d.out.Shift),
			sim.Input("ok_"+d.name, func() bool { return d.State() != Faulted }),
			sim.And(LockWire, "ok_"+d.name, locked),
		)
		if d.resetLess {
			parts = append(parts, sim.Probe(locked, func(step uint64, v bool) {
				if step > 0 {
					d.observe(v)
				}
			}))
			continue
		}
		parts = append(parts, sim.Not(locked, "arst_"+d.name))
		parts = append(parts, ResetSynchronizer(d.Clk(), "arst_"+d.name, d.Rst())...)
		parts = append(parts, sim.Probe(d.Rst(), func(step uint64, v bool) {
			// all wires read low on step 0
			if step > 0 {
				d.observe(!v)
			}
		}))
	}

	gated := make(map[*Domain]string)
	for _, f := range c.fwd {
		d := f.Domain
		en, ok := gated[d]
		if !ok {
			if d.resetLess {
				en = sim.True
			} else {
				en = "rstn_" + d.name
				parts = append(parts, sim.Not(d.Rst(), en))
			}
			gated[d] = en
		}
		d1, d2 := en, sim.False
		if f.Invert {
			d1, d2 = d2, d1
		}
		parts = append(parts, sim.DDROut(d1, d2, d.Clk(), f.Wire()))
	}
	return parts, nil
}
