// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package crg

import (
	"fmt"

	"github.com/db47h/hwplat"
	"go.uber.org/zap"
)

// DefaultLimits are the PLL limits used when a variant does not declare any.
// They match a typical FPGA fractional PLL with 1/8 VCO period phase steps.
//
var DefaultLimits = hwplat.PLLLimits{
	VCOMin:     600e6,
	VCOMax:     1600e6,
	MaxMul:     512,
	MaxDiv:     512,
	MaxOutDiv:  512,
	PhaseSteps: 8,
}

// An Output is one configured PLL output.
//
type Output struct {
	Domain string
	Freq   uint64
	Phase  Phase
	Div    int // VCO divider
	// Period and Shift are the output period and phase shift in simulation
	// steps (see Plan.Picoseconds).
	Period uint64
	Shift  uint64
}

// A Plan is a solved PLL configuration.
//
type Plan struct {
	Input uint64 // reference frequency, Hz
	M, N  int
	VCO   uint64 // Hz
	// StepsPerVCO is the number of simulation steps per VCO period.
	StepsPerVCO uint64
	Outputs     []Output
}

// Picoseconds converts a step count to picoseconds.
//
func (p *Plan) Picoseconds(steps uint64) float64 {
	return float64(steps) * 1e12 / (float64(p.VCO) * float64(p.StepsPerVCO))
}

// Output returns the output of domain name.
//
func (p *Plan) Output(name string) (*Output, bool) {
	for i := range p.Outputs {
		if p.Outputs[i].Domain == name {
			return &p.Outputs[i], true
		}
	}
	return nil, false
}

func (p *Plan) String() string {
	return fmt.Sprintf("in=%d Hz M=%d N=%d VCO=%d Hz", p.Input, p.M, p.N, p.VCO)
}

// A PLL derives clock domains from a single reference clock input.
//
type PLL struct {
	limits  hwplat.PLLLimits
	in      *hwplat.Handle
	inFreq  uint64
	domains []*Domain
	plan    *Plan
	log     *zap.Logger
}

// NewPLL returns a new PLL with the given limits.
//
func NewPLL(limits hwplat.PLLLimits, opts ...Option) *PLL {
	o := newOptions(opts)
	return &PLL{limits: limits, log: o.log.Named("pll")}
}

// Limits returns the PLL limits.
//
func (p *PLL) Limits() hwplat.PLLLimits { return p.limits }

// RegisterInput sets the reference clock input. h must be a single pin.
//
func (p *PLL) RegisterInput(h hwplat.Handle, freq uint64) error {
	switch {
	case p.in != nil:
		return &hwplat.ConfigError{Msg: fmt.Sprintf("clock input already registered (%s)", p.in.Key)}
	case len(h.Subsignals) > 0 || len(h.Pins) != 1:
		return &hwplat.ConfigError{Msg: fmt.Sprintf("clock input %s must be a single pin", h.Key)}
	case freq == 0:
		return &hwplat.ConfigError{Msg: fmt.Sprintf("clock input %s: zero frequency", h.Key)}
	}
	p.in = &h
	p.inFreq = freq
	p.log.Debug("input", zap.Stringer("key", h.Key), zap.Uint64("freq", freq))
	return nil
}

// Input returns the reference clock input handle and frequency.
//
func (p *PLL) Input() (*hwplat.Handle, uint64) { return p.in, p.inFreq }

// CreateDomain declares a new output clock domain.
//
func (p *PLL) CreateDomain(name string, freq uint64, phase Phase, opts ...DomainOption) (*Domain, error) {
	switch {
	case p.plan != nil:
		return nil, &hwplat.ConfigError{Domain: name, Msg: "PLL already configured"}
	case name == "":
		return nil, &hwplat.ConfigError{Msg: "empty domain name"}
	case freq == 0:
		return nil, &hwplat.ConfigError{Domain: name, Msg: "zero frequency"}
	case phase < 0 || phase >= 3600:
		return nil, &hwplat.ConfigError{Domain: name, Msg: fmt.Sprintf("phase offset %d out of range [0, 3600)", int(phase))}
	}
	for _, d := range p.domains {
		if d.name == name {
			return nil, &hwplat.ConfigError{Domain: name, Msg: "duplicate domain"}
		}
	}
	d := &Domain{name: name, freq: freq, phase: phase, log: p.log}
	for _, o := range opts {
		o(d)
	}
	p.domains = append(p.domains, d)
	return d, nil
}

// Domains returns the PLL domains in declaration order.
//
func (p *PLL) Domains() []*Domain { return append([]*Domain(nil), p.domains...) }

// Plan returns the PLL configuration, or nil if not configured.
//
func (p *PLL) Plan() *Plan { return p.plan }

// Configure solves the PLL ratios and moves all domains to the AwaitingLock
// state.
//
// The VCO frequency is Fin*M/N and must lie within the VCO limits. Each
// output divides the VCO by an integer C, and its phase offset must be a
// whole number of phase steps (PhaseSteps per VCO period). The smallest N
// wins, then the highest VCO.
//
// If no ratio satisfies every domain, Configure returns a *ConfigError and
// domains stay Uninitialized.
//
func (p *PLL) Configure() (*Plan, error) {
	if p.plan != nil {
		return p.plan, nil
	}
	if p.in == nil {
		return nil, &hwplat.ConfigError{Msg: "no clock input registered"}
	}
	if len(p.domains) == 0 {
		return nil, &hwplat.ConfigError{Msg: "no clock domain declared"}
	}
	l := p.limits
	if l.PhaseSteps <= 0 || l.MaxMul <= 0 || l.MaxDiv <= 0 || l.MaxOutDiv <= 0 || l.VCOMax < l.VCOMin {
		return nil, &hwplat.ConfigError{Msg: fmt.Sprintf("invalid PLL limits %+v", l)}
	}

	var (
		phaseFail *Domain
		freqOK    = make([]bool, len(p.domains))
		divs      = make([]int, len(p.domains))
	)
	for n := 1; n <= l.MaxDiv; n++ {
		for m := l.MaxMul; m >= 1; m-- {
			num := p.inFreq * uint64(m)
			if num%uint64(n) != 0 {
				continue
			}
			vco := num / uint64(n)
			if vco < l.VCOMin || vco > l.VCOMax {
				continue
			}
			allFreq := true
			var pf *Domain
			for i, d := range p.domains {
				c, fok, pok := divider(l, vco, d)
				switch {
				case !fok:
					allFreq = false
				case !pok:
					freqOK[i] = true
					if pf == nil {
						pf = d
					}
				default:
					freqOK[i] = true
					divs[i] = c
				}
			}
			if allFreq && pf == nil {
				return p.commit(m, n, vco, divs), nil
			}
			if allFreq && phaseFail == nil {
				phaseFail = pf
			}
		}
	}
	if phaseFail != nil {
		return nil, &hwplat.ConfigError{Domain: phaseFail.name,
			Msg: fmt.Sprintf("phase offset %s not achievable in steps of 1/%d VCO period", phaseFail.phase, l.PhaseSteps)}
	}
	for i, d := range p.domains {
		if !freqOK[i] {
			return nil, &hwplat.ConfigError{Domain: d.name,
				Msg: fmt.Sprintf("frequency %d Hz not achievable from %d Hz", d.freq, p.inFreq)}
		}
	}
	return nil, &hwplat.ConfigError{Msg: "no common VCO frequency for all domains"}
}

func (p *PLL) commit(m, n int, vco uint64, divs []int) *Plan {
	spv := uint64(p.limits.PhaseSteps)
	if spv&1 != 0 {
		// clock periods must be an even number of steps
		spv *= 2
	}
	minDiv := uint64(divs[0])
	for _, c := range divs[1:] {
		if uint64(c) < minDiv {
			minDiv = uint64(c)
		}
	}
	for minDiv*spv < minPeriod {
		spv *= 2
	}
	plan := &Plan{Input: p.inFreq, M: m, N: n, VCO: vco, StepsPerVCO: spv}
	for i, d := range p.domains {
		c := uint64(divs[i])
		plan.Outputs = append(plan.Outputs, Output{
			Domain: d.name,
			Freq:   d.freq,
			Phase:  d.phase,
			Div:    divs[i],
			Period: c * spv,
			Shift:  uint64(d.phase) * c * spv / 3600,
		})
	}
	p.plan = plan
	for i, d := range p.domains {
		d.out = &plan.Outputs[i]
		d.arm()
	}
	p.log.Debug("configured", zap.Stringer("plan", plan))
	return plan
}

// minPeriod is the shortest output clock period in simulation steps. It must
// exceed the latency from the lock input to the reset synchronizers (4 steps)
// so that reset asserts within one clock edge of lock loss.
const minPeriod = 8

// divider returns the output divider for d at the given VCO frequency, and
// whether the frequency and phase are achievable.
func divider(l hwplat.PLLLimits, vco uint64, d *Domain) (c int, freqOK, phaseOK bool) {
	if vco%d.freq != 0 {
		return 0, false, false
	}
	cc := vco / d.freq
	if cc < 1 || cc > uint64(l.MaxOutDiv) {
		return 0, false, false
	}
	c = int(cc)
	return c, true, (int(d.phase)*c*l.PhaseSteps)%3600 == 0
}
