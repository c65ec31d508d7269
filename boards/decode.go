// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package boards

import (
	"github.com/db47h/hwplat"
	"github.com/hashicorp/hcl/v2"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// board file schema

type fileRoot struct {
	Variants   []*variantBlock   `hcl:"variant,block"`
	Extensions []*extensionBlock `hcl:"extension,block"`
}

type extensionBlock struct {
	Name      string           `hcl:"name,label"`
	Resources []*resourceBlock `hcl:"resource,block"`
}

type variantBlock struct {
	Name       string            `hcl:"name,label"`
	Inherits   *string           `hcl:"inherits,optional"`
	IDs        []string          `hcl:"ids,optional"`
	Device     *string           `hcl:"device,optional"`
	Extensions []string          `hcl:"extensions,optional"`
	Clock      *clockBlock       `hcl:"clock,block"`
	PLL        *pllBlock         `hcl:"pll,block"`
	Resources  []*resourceBlock  `hcl:"resource,block"`
	Connectors []*connectorBlock `hcl:"connector,block"`
}

type clockBlock struct {
	Resource string `hcl:"resource"`
	Index    int    `hcl:"index,optional"`
	Freq     uint64 `hcl:"freq"`
}

type pllBlock struct {
	VCOMin     uint64 `hcl:"vco_min"`
	VCOMax     uint64 `hcl:"vco_max"`
	MaxMul     int    `hcl:"max_mul"`
	MaxDiv     int    `hcl:"max_div"`
	MaxOutDiv  int    `hcl:"max_out_div"`
	PhaseSteps int    `hcl:"phase_steps"`
}

type resourceBlock struct {
	Name       string            `hcl:"name,label"`
	Index      int               `hcl:"index,optional"`
	Pins       hcl.Expression    `hcl:"pins,optional"`
	NegPins    hcl.Expression    `hcl:"neg_pins,optional"`
	Width      int               `hcl:"width,optional"`
	IOStandard string            `hcl:"io_standard,optional"`
	Misc       string            `hcl:"misc,optional"`
	Attributes map[string]string `hcl:"attributes,optional"`
	Subsignals []*subsignalBlock `hcl:"subsignal,block"`
}

type subsignalBlock struct {
	Name       string            `hcl:"name,label"`
	Pins       hcl.Expression    `hcl:"pins"`
	NegPins    hcl.Expression    `hcl:"neg_pins,optional"`
	IOStandard string            `hcl:"io_standard,optional"`
	Misc       string            `hcl:"misc,optional"`
	Attributes map[string]string `hcl:"attributes,optional"`
}

type connectorBlock struct {
	Name string         `hcl:"name,label"`
	Pins hcl.Expression `hcl:"pins"`
}

// evalContext returns the evaluation context of board files. Only pure
// string and collection functions are available, so that pin lists can be
// generated:
//
//	pins = join(" ", formatlist("GPIO:%d", range(8)))
//
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"concat":     stdlib.ConcatFunc,
			"format":     stdlib.FormatFunc,
			"formatlist": stdlib.FormatListFunc,
			"join":       stdlib.JoinFunc,
			"range":      stdlib.RangeFunc,
			"upper":      stdlib.UpperFunc,
		},
	}
}

// pinStrings evaluates a pin list expression. The value must be a string or
// a list of strings. A missing attribute yields nil.
func pinStrings(expr hcl.Expression, ctx *hcl.EvalContext) ([]string, error) {
	if expr == nil {
		return nil, nil
	}
	v, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return nil, diags
	}
	if v.IsNull() {
		return nil, nil
	}
	if v.Type() == cty.String {
		return []string{v.AsString()}, nil
	}
	lv, err := convert.Convert(v, cty.List(cty.String))
	if err != nil || !lv.IsWhollyKnown() {
		return nil, errors.Errorf("%s: pins must be a string or a list of strings", expr.Range())
	}
	var out []string
	for it := lv.ElementIterator(); it.Next(); {
		_, e := it.Element()
		if e.IsNull() {
			return nil, errors.Errorf("%s: null pin list entry", expr.Range())
		}
		out = append(out, e.AsString())
	}
	if len(out) == 0 {
		return nil, errors.Errorf("%s: empty pin list", expr.Range())
	}
	return out, nil
}

func parsePinExpr(expr hcl.Expression, ctx *hcl.EvalContext) ([]hwplat.PinSpec, error) {
	ss, err := pinStrings(expr, ctx)
	if err != nil || ss == nil {
		return nil, err
	}
	return hwplat.ParsePins(ss...)
}

func attrs(ioStandard, misc string, kv map[string]string) (hwplat.Attrs, error) {
	a := make(hwplat.Attrs)
	if ioStandard != "" {
		a[hwplat.IOStandard] = ioStandard
	}
	if misc != "" {
		m, err := hwplat.ParseMisc(misc)
		if err != nil {
			return nil, err
		}
		a = a.Merge(m)
	}
	return a.Merge(kv), nil
}

func (b *resourceBlock) resource(ctx *hcl.EvalContext) (hwplat.Resource, error) {
	r := hwplat.Resource{Name: b.Name, Index: b.Index, Width: b.Width}
	subject := hwplat.Key{Name: b.Name, Index: b.Index}.String()
	var err error
	if r.Attrs, err = attrs(b.IOStandard, b.Misc, b.Attributes); err != nil {
		return r, errors.Wrap(err, subject)
	}
	if r.Pins, err = parsePinExpr(b.Pins, ctx); err != nil {
		return r, errors.Wrap(err, subject)
	}
	if r.NegPins, err = parsePinExpr(b.NegPins, ctx); err != nil {
		return r, errors.Wrap(err, subject)
	}
	for _, sb := range b.Subsignals {
		s := hwplat.Subsignal{Name: sb.Name}
		sub := subject + "." + sb.Name
		if s.Attrs, err = attrs(sb.IOStandard, sb.Misc, sb.Attributes); err != nil {
			return r, errors.Wrap(err, sub)
		}
		if s.Pins, err = parsePinExpr(sb.Pins, ctx); err != nil {
			return r, errors.Wrap(err, sub)
		}
		if s.NegPins, err = parsePinExpr(sb.NegPins, ctx); err != nil {
			return r, errors.Wrap(err, sub)
		}
		r.Subsignals = append(r.Subsignals, s)
	}
	return r, nil
}

func (b *connectorBlock) connector(ctx *hcl.EvalContext) (hwplat.Connector, error) {
	slots, err := parsePinExpr(b.Pins, ctx)
	if err != nil {
		return hwplat.Connector{}, errors.Wrap(err, "connector "+b.Name)
	}
	return hwplat.Connector{Name: b.Name, Slots: slots}, nil
}
