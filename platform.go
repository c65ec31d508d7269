// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwplat

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// An Option configures a Platform, Resolver or Netlist.
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

// A PeriodConstraint is a timing constraint on a clock input.
//
type PeriodConstraint struct {
	Key    Key
	Pins   []string
	Period uint64 // picoseconds
}

// Platform is the per-build view of a board: one active variant, its
// resolver, the netlist of bound pins and the timing constraints.
//
type Platform struct {
	v   *Variant
	res *Resolver
	net *Netlist
	log *zap.Logger

	mu          sync.Mutex
	constraints []PeriodConstraint
}

// New selects variant id from sel and returns a new Platform for it.
//
func New(sel *Selector, id string, opts ...Option) (*Platform, error) {
	v, err := sel.Select(id)
	if err != nil {
		return nil, err
	}
	return NewPlatform(v, opts...), nil
}

// NewPlatform returns a new Platform for variant v.
//
func NewPlatform(v *Variant, opts ...Option) *Platform {
	o := newOptions(opts)
	p := &Platform{
		v:   v,
		res: NewResolver(v, opts...),
		net: NewNetlist(opts...),
		log: o.log.With(zap.String("variant", v.Name)),
	}
	p.log.Debug("platform", zap.String("device", v.Device))
	return p
}

// Variant returns the active variant.
//
func (p *Platform) Variant() *Variant { return p.v }

// Resolver returns the platform's resolver.
//
func (p *Platform) Resolver() *Resolver { return p.res }

// Netlist returns the platform's netlist.
//
func (p *Platform) Netlist() *Netlist { return p.net }

// Logger returns the platform's logger.
//
func (p *Platform) Logger() *zap.Logger { return p.log }

// Request resolves resource name at index 0.
//
func (p *Platform) Request(name string) (Handle, error) { return p.res.Resolve(name, 0) }

// RequestIndex resolves resource (name, index).
//
func (p *Platform) RequestIndex(name string, index int) (Handle, error) {
	return p.res.Resolve(name, index)
}

// RequestSubsignal resolves one subsignal of resource (name, index).
//
func (p *Platform) RequestSubsignal(name string, index int, sub string) (Handle, error) {
	return p.res.ResolveSubsignal(name, index, sub)
}

// RequestAll resolves all instances of name.
//
func (p *Platform) RequestAll(name string) ([]Handle, error) { return p.res.ResolveAll(name) }

// Drive binds h as a driving output. See Netlist.Drive.
//
func (p *Platform) Drive(h Handle) error { return p.net.Drive(h) }

// Sense binds h as a read-only input.
//
func (p *Platform) Sense(h Handle) { p.net.Sense(h) }

// DefaultClock requests the variant's default clock input, senses it and
// registers its period constraint. It returns the handle and the clock
// frequency in Hz.
//
func (p *Platform) DefaultClock() (Handle, uint64, error) {
	c := p.v.Clock
	if c.Resource == "" || c.Freq == 0 {
		return Handle{}, 0, errors.Errorf("variant %s has no default clock", p.v.Name)
	}
	h, err := p.RequestIndex(c.Resource, c.Index)
	if err != nil {
		return Handle{}, 0, err
	}
	p.Sense(h)
	if err = p.AddPeriodConstraint(h, c.Period()); err != nil {
		return Handle{}, 0, err
	}
	return h, c.Freq, nil
}

// AddPeriodConstraint registers a period constraint, in picoseconds, on clock
// input h. A later constraint on the same key replaces the previous one.
//
func (p *Platform) AddPeriodConstraint(h Handle, period uint64) error {
	if period == 0 {
		return errors.Errorf("%s: zero period constraint", h.Key)
	}
	pc := PeriodConstraint{Key: h.Key, Pins: h.PinNames(), Period: period}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.constraints {
		if p.constraints[i].Key == h.Key {
			p.constraints[i] = pc
			return nil
		}
	}
	p.constraints = append(p.constraints, pc)
	p.log.Debug("period constraint", zap.Stringer("key", h.Key), zap.Uint64("ps", period))
	return nil
}

// Constraints returns the registered period constraints in registration
// order.
//
func (p *Platform) Constraints() []PeriodConstraint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PeriodConstraint(nil), p.constraints...)
}
