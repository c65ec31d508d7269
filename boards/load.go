// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package boards loads board descriptions written in HCL and provides a
// library of known boards.
//
// A board file declares one or more variants:
//
//	variant "de1soc" {
//	  ids    = ["DE1-SoC"]
//	  device = "5CSEMA5F31C6"
//
//	  clock {
//	    resource = "clk_50"
//	    freq     = 50000000
//	  }
//
//	  resource "serial" {
//	    io_standard = "3.3-V LVTTL"
//	    subsignal "tx" { pins = "AC18" }
//	    subsignal "rx" { pins = "Y17" }
//	  }
//	}
//
// Resource blocks accept pins (a string or a list of strings), neg_pins,
// index, width, io_standard, misc ("KEY=VALUE ...") and attributes. Attributes
// of a resource apply to all its subsignals.
//
// Extension blocks declare resources shared by several variants of the same
// file, and a variant may inherit the declarations of a variant declared
// before it in the same file.
//
package boards

import (
	"embed"
	"io/fs"
	"os"

	"github.com/db47h/hwplat"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//go:embed data/*.hcl
var library embed.FS

// A Loader loads board files.
//
type Loader struct {
	log *zap.Logger
}

// NewLoader returns a new Loader. A nil logger disables logging.
//
func NewLoader(log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{log: log.Named("boards")}
}

var defaultLoader = NewLoader(nil)

// Parse parses board file src. filename is only used in error messages.
//
func Parse(src []byte, filename string) ([]*hwplat.Variant, error) {
	return defaultLoader.Parse(src, filename)
}

// LoadDir loads all *.hcl files in dir.
//
func LoadDir(dir string) ([]*hwplat.Variant, error) { return defaultLoader.LoadDir(dir) }

// Library returns a selector for the built-in board library.
//
func Library() (*hwplat.Selector, error) { return defaultLoader.Library() }

// Library returns a selector for the built-in board library.
//
func (l *Loader) Library() (*hwplat.Selector, error) {
	sub, err := fs.Sub(library, "data")
	if err != nil {
		return nil, err
	}
	vs, err := l.LoadFS(sub, "*.hcl")
	if err != nil {
		return nil, err
	}
	return hwplat.NewSelector(vs...)
}

// LoadDir loads all *.hcl files in dir.
//
func (l *Loader) LoadDir(dir string) ([]*hwplat.Variant, error) {
	return l.LoadFS(os.DirFS(dir), "*.hcl")
}

// LoadFS loads all files of fsys matching pattern, in lexical order.
//
func (l *Loader) LoadFS(fsys fs.FS, pattern string) ([]*hwplat.Variant, error) {
	names, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, errors.Wrap(err, "glob "+pattern)
	}
	var vs []*hwplat.Variant
	for _, n := range names {
		src, err := fs.ReadFile(fsys, n)
		if err != nil {
			return nil, errors.Wrap(err, "read board file")
		}
		fvs, err := l.Parse(src, n)
		if err != nil {
			return nil, err
		}
		vs = append(vs, fvs...)
	}
	return vs, nil
}

// decl is a variant declaration being assembled.
type decl struct {
	ids        []string
	device     string
	extensions []string
	clock      hwplat.ClockSpec
	pll        hwplat.PLLLimits
	resources  []hwplat.Resource
	connectors []hwplat.Connector
}

func (d *decl) clone() *decl {
	c := *d
	c.ids = nil
	c.extensions = append([]string(nil), d.extensions...)
	c.resources = append([]hwplat.Resource(nil), d.resources...)
	c.connectors = append([]hwplat.Connector(nil), d.connectors...)
	return &c
}

func (d *decl) setResource(r hwplat.Resource) {
	for i := range d.resources {
		if d.resources[i].Name == r.Name && d.resources[i].Index == r.Index {
			d.resources[i] = r
			return
		}
	}
	d.resources = append(d.resources, r)
}

func (d *decl) setConnector(c hwplat.Connector) {
	for i := range d.connectors {
		if d.connectors[i].Name == c.Name {
			d.connectors[i] = c
			return
		}
	}
	d.connectors = append(d.connectors, c)
}

// Parse parses board file src. filename is only used in error messages.
//
func (l *Loader) Parse(src []byte, filename string) ([]*hwplat.Variant, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrap(diags, "parse board file")
	}
	ctx := evalContext()
	var root fileRoot
	if diags = gohcl.DecodeBody(f.Body, ctx, &root); diags.HasErrors() {
		return nil, errors.Wrap(diags, "decode board file")
	}

	exts := make(map[string][]hwplat.Resource, len(root.Extensions))
	for _, eb := range root.Extensions {
		if _, dup := exts[eb.Name]; dup {
			return nil, errors.Wrap(&hwplat.SchemaError{Subject: "extension " + eb.Name, Msg: "duplicate extension"}, filename)
		}
		rs, err := resources(eb.Resources, ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: extension %s", filename, eb.Name)
		}
		exts[eb.Name] = rs
	}

	decls := make(map[string]*decl, len(root.Variants))
	vs := make([]*hwplat.Variant, 0, len(root.Variants))
	for _, vb := range root.Variants {
		if _, dup := decls[vb.Name]; dup {
			return nil, errors.Wrap(&hwplat.SchemaError{Variant: vb.Name, Msg: "duplicate variant declaration"}, filename)
		}
		d, err := l.declare(vb, decls, ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: variant %s", filename, vb.Name)
		}
		decls[vb.Name] = d
		v, err := build(vb.Name, d, exts)
		if err != nil {
			return nil, errors.Wrap(err, filename)
		}
		l.log.Debug("variant loaded", zap.String("file", filename), zap.String("variant", v.Name),
			zap.String("device", v.Device), zap.Int("resources", v.Resources.Len()))
		vs = append(vs, v)
	}
	return vs, nil
}

func (l *Loader) declare(vb *variantBlock, decls map[string]*decl, ctx *hcl.EvalContext) (*decl, error) {
	d := &decl{}
	if vb.Inherits != nil {
		base, ok := decls[*vb.Inherits]
		if !ok {
			return nil, &hwplat.SchemaError{Variant: vb.Name, Subject: "inherits",
				Msg: "unknown variant " + *vb.Inherits + " (must be declared before in the same file)"}
		}
		d = base.clone()
	}
	d.ids = vb.IDs
	if vb.Device != nil {
		d.device = *vb.Device
	}
	if vb.Extensions != nil {
		d.extensions = vb.Extensions
	}
	if c := vb.Clock; c != nil {
		d.clock = hwplat.ClockSpec{Resource: c.Resource, Index: c.Index, Freq: c.Freq}
	}
	if p := vb.PLL; p != nil {
		d.pll = hwplat.PLLLimits{
			VCOMin:     p.VCOMin,
			VCOMax:     p.VCOMax,
			MaxMul:     p.MaxMul,
			MaxDiv:     p.MaxDiv,
			MaxOutDiv:  p.MaxOutDiv,
			PhaseSteps: p.PhaseSteps,
		}
	}
	rs, err := resources(vb.Resources, ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rs {
		d.setResource(r)
	}
	for _, cb := range vb.Connectors {
		c, err := cb.connector(ctx)
		if err != nil {
			return nil, err
		}
		d.setConnector(c)
	}
	return d, nil
}

func resources(bs []*resourceBlock, ctx *hcl.EvalContext) ([]hwplat.Resource, error) {
	rs := make([]hwplat.Resource, 0, len(bs))
	for _, b := range bs {
		r, err := b.resource(ctx)
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	return rs, nil
}

func build(name string, d *decl, exts map[string][]hwplat.Resource) (*hwplat.Variant, error) {
	rs := append([]hwplat.Resource(nil), d.resources...)
	for _, e := range d.extensions {
		ers, ok := exts[e]
		if !ok {
			return nil, &hwplat.SchemaError{Variant: name, Subject: "extension " + e, Msg: "unknown extension"}
		}
		rs = append(rs, ers...)
	}
	rt, err := hwplat.NewResourceTable(rs...)
	if err != nil {
		return nil, errors.Wrap(err, "variant "+name)
	}
	ct, err := hwplat.NewConnectorTable(d.connectors...)
	if err != nil {
		return nil, errors.Wrap(err, "variant "+name)
	}
	return hwplat.NewVariant(hwplat.Variant{
		Name:       name,
		IDs:        d.ids,
		Device:     d.device,
		Clock:      d.clock,
		PLL:        d.pll,
		Resources:  rt,
		Connectors: ct,
	})
}
