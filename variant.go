// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwplat

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
)

// ClockSpec describes the default input clock of a board variant.
//
type ClockSpec struct {
	Resource string
	Index    int
	Freq     uint64 // Hz
}

// Period returns the clock period in picoseconds.
//
func (c ClockSpec) Period() uint64 {
	if c.Freq == 0 {
		return 0
	}
	return 1e12 / c.Freq
}

// PLLLimits describes the frequency synthesis capabilities of a device.
//
type PLLLimits struct {
	VCOMin     uint64 // Hz
	VCOMax     uint64 // Hz
	MaxMul     int
	MaxDiv     int
	MaxOutDiv  int
	PhaseSteps int // phase resolution in steps per VCO period
}

// A Variant is one concrete, selectable incarnation of a board: a revision,
// a device option, or both.
//
type Variant struct {
	Name       string
	IDs        []string // alternative identifiers accepted by a Selector
	Device     string   // target device part number
	Clock      ClockSpec
	PLL        PLLLimits
	Resources  *ResourceTable
	Connectors *ConnectorTable
}

// NewVariant validates the resources and connectors of a variant and returns
// it.
//
// Every indirect pin must reference an existing connector slot, and no
// physical pin may appear twice within a resource. Problems are reported as
// *SchemaError values tagged with the variant name.
//
func NewVariant(v Variant) (*Variant, error) {
	if v.Name == "" {
		return nil, &SchemaError{Msg: "variant has no name"}
	}
	if v.Resources == nil {
		v.Resources = &ResourceTable{index: map[Key]int{}}
	}
	if v.Connectors == nil {
		v.Connectors = &ConnectorTable{index: map[string]int{}}
	}
	var err error
	for i := range v.Resources.all() {
		err = multierr.Append(err, v.checkResource(&v.Resources.all()[i]))
	}
	if v.Clock.Resource != "" {
		if _, ok := v.Resources.get(Key{Name: v.Clock.Resource, Index: v.Clock.Index}); !ok {
			err = multierr.Append(err, schemaErrorf("clock", "default clock resource %s not declared",
				Key{Name: v.Clock.Resource, Index: v.Clock.Index}))
		}
	}
	if err != nil {
		return nil, tagVariant(v.Name, err)
	}
	vv := v
	vv.IDs = append([]string(nil), v.IDs...)
	return &vv, nil
}

func (v *Variant) checkResource(r *Resource) error {
	var err error
	seen := make(map[string]string)
	check := func(k Key, pins []PinSpec) {
		for _, p := range pins {
			switch p.Kind() {
			case Indirect:
				s, e := v.Connectors.slot(p)
				if e != nil {
					e.(*SchemaError).Subject = "resource " + k.String()
					e.(*SchemaError).Msg = fmt.Sprintf("pin %s: %s", p, e.(*SchemaError).Msg)
					err = multierr.Append(err, e)
					continue
				}
				if !s.IsConnected() {
					continue
				}
				p = s
			case NoConnect:
				continue
			}
			if prev, ok := seen[p.Name()]; ok {
				err = multierr.Append(err, schemaErrorf("resource "+k.String(), "pin %s already used by %s", p.Name(), prev))
				continue
			}
			seen[p.Name()] = k.String()
		}
	}
	k := r.Key()
	if !r.Composite() {
		check(k, r.Pins)
		check(k, r.NegPins)
		return err
	}
	for i := range r.Subsignals {
		s := &r.Subsignals[i]
		check(k.Sub(s.Name), s.Pins)
		check(k.Sub(s.Name), s.NegPins)
	}
	return err
}

// tagVariant sets the Variant field of all schema errors in err.
func tagVariant(name string, err error) error {
	for _, e := range multierr.Errors(err) {
		if se, ok := e.(*SchemaError); ok {
			se.Variant = name
		}
	}
	return err
}

// A Selector picks a board variant by name, alternate ID or device string.
//
type Selector struct {
	variants []*Variant
	ids      map[string]*Variant
	devices  map[string][]*Variant
}

// NewSelector returns a new Selector for the given variants.
//
// Variant names and alternative IDs must be unique across all variants. A
// device string shared by several variants only selects a variant if it is
// unique.
//
func NewSelector(vs ...*Variant) (*Selector, error) {
	s := &Selector{ids: make(map[string]*Variant), devices: make(map[string][]*Variant)}
	var err error
	for _, v := range vs {
		for _, id := range append([]string{v.Name}, v.IDs...) {
			if o, ok := s.ids[id]; ok {
				err = multierr.Append(err, &SchemaError{Variant: v.Name, Subject: "id " + id,
					Msg: "identifier already used by variant " + o.Name})
				continue
			}
			s.ids[id] = v
		}
		if v.Device != "" {
			s.devices[v.Device] = append(s.devices[v.Device], v)
		}
		s.variants = append(s.variants, v)
	}
	for d, dvs := range s.devices {
		if o, ok := s.ids[d]; ok && (len(dvs) > 1 || dvs[0] != o) {
			err = multierr.Append(err, &SchemaError{Variant: o.Name, Subject: "id " + d,
				Msg: "identifier is also a device string"})
		}
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Select returns the variant identified by id.
//
func (s *Selector) Select(id string) (*Variant, error) {
	if v, ok := s.ids[id]; ok {
		return v, nil
	}
	switch dvs := s.devices[id]; len(dvs) {
	case 0:
	case 1:
		return dvs[0], nil
	default:
		names := make([]string, len(dvs))
		for i, v := range dvs {
			names[i] = v.Name
		}
		return nil, &UnknownVariantError{ID: id, Known: s.IDs(), Candidates: names}
	}
	return nil, &UnknownVariantError{ID: id, Known: s.IDs()}
}

// Variants returns all variants in registration order.
//
func (s *Selector) Variants() []*Variant {
	return append([]*Variant(nil), s.variants...)
}

// IDs returns all identifiers that select a single variant, sorted.
//
func (s *Selector) IDs() []string {
	ids := make([]string, 0, len(s.ids)+len(s.devices))
	for id := range s.ids {
		ids = append(ids, id)
	}
	for d, dvs := range s.devices {
		if _, ok := s.ids[d]; !ok && len(dvs) == 1 {
			ids = append(ids, d)
		}
	}
	sort.Strings(ids)
	return ids
}
