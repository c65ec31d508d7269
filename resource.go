// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwplat

import (
	"sort"

	"go.uber.org/multierr"
)

// A Subsignal is a named group of pins within a composite resource.
//
type Subsignal struct {
	Name string
	Pins []PinSpec
	// NegPins holds the negative legs of differential pairs. If set, it must
	// have the same length as Pins.
	NegPins []PinSpec
	Attrs   Attrs
}

// A Resource is a named, indexed hardware interface exposed by a board.
//
// A resource is either flat (Pins set) or composite (Subsignals set). Attrs
// apply to the whole resource; subsignal attributes take precedence.
//
type Resource struct {
	Name       string
	Index      int
	Pins       []PinSpec
	NegPins    []PinSpec
	Attrs      Attrs
	Subsignals []Subsignal
	// Width, if non-zero, is the declared pin count of a flat resource.
	Width int
}

// Key returns the resource key.
//
func (r *Resource) Key() Key { return Key{Name: r.Name, Index: r.Index} }

// Composite returns true if r is made of subsignals.
//
func (r *Resource) Composite() bool { return len(r.Subsignals) > 0 }

// Subsignal returns the named subsignal.
//
func (r *Resource) Subsignal(name string) (*Subsignal, bool) {
	for i := range r.Subsignals {
		if r.Subsignals[i].Name == name {
			return &r.Subsignals[i], true
		}
	}
	return nil, false
}

func (r *Resource) clone() Resource {
	c := *r
	c.Pins = append([]PinSpec(nil), r.Pins...)
	c.NegPins = append([]PinSpec(nil), r.NegPins...)
	c.Attrs = r.Attrs.Clone()
	c.Subsignals = make([]Subsignal, len(r.Subsignals))
	for i, s := range r.Subsignals {
		c.Subsignals[i] = Subsignal{
			Name:    s.Name,
			Pins:    append([]PinSpec(nil), s.Pins...),
			NegPins: append([]PinSpec(nil), s.NegPins...),
			Attrs:   s.Attrs.Clone(),
		}
	}
	return c
}

// validate checks the structure of a single resource declaration.
func (r *Resource) validate() error {
	subject := "resource " + r.Key().String()
	if r.Name == "" {
		return schemaErrorf("resource", "empty resource name")
	}
	if r.Index < 0 {
		return schemaErrorf(subject, "negative index %d", r.Index)
	}
	var err error
	switch {
	case len(r.Pins) > 0 && r.Composite():
		err = multierr.Append(err, schemaErrorf(subject, "resource has both pins and subsignals"))
	case r.Composite():
		seen := make(map[string]struct{}, len(r.Subsignals))
		for i := range r.Subsignals {
			s := &r.Subsignals[i]
			sub := "resource " + r.Key().Sub(s.Name).String()
			if s.Name == "" {
				err = multierr.Append(err, schemaErrorf(subject, "subsignal #%d has no name", i))
				continue
			}
			if _, dup := seen[s.Name]; dup {
				err = multierr.Append(err, schemaErrorf(sub, "duplicate subsignal"))
			}
			seen[s.Name] = struct{}{}
			err = multierr.Append(err, validatePins(sub, s.Pins, s.NegPins, 0))
		}
	default:
		err = multierr.Append(err, validatePins(subject, r.Pins, r.NegPins, r.Width))
	}
	return err
}

func validatePins(subject string, pins, neg []PinSpec, width int) error {
	if len(pins) == 0 {
		return schemaErrorf(subject, "empty pin list")
	}
	if len(neg) > 0 && len(neg) != len(pins) {
		return schemaErrorf(subject, "differential pair mismatch: %d positive pins, %d negative pins", len(pins), len(neg))
	}
	if width > 0 && width != len(pins) {
		return schemaErrorf(subject, "declared width %d does not match pin count %d", width, len(pins))
	}
	return nil
}

// A ResourceTable is an ordered, immutable collection of resources.
//
type ResourceTable struct {
	defs  []Resource
	index map[Key]int
}

// NewResourceTable validates defs and returns a new ResourceTable. Resources
// keep their declaration order.
//
// All problems found are reported, combined, as *SchemaError values.
//
func NewResourceTable(defs ...Resource) (*ResourceTable, error) {
	t := &ResourceTable{
		defs:  make([]Resource, 0, len(defs)),
		index: make(map[Key]int, len(defs)),
	}
	var err error
	for i := range defs {
		r := defs[i].clone()
		if e := r.validate(); e != nil {
			err = multierr.Append(err, e)
			continue
		}
		k := r.Key()
		if _, dup := t.index[k]; dup {
			err = multierr.Append(err, schemaErrorf("resource "+k.String(), "duplicate resource declaration"))
			continue
		}
		t.index[k] = len(t.defs)
		t.defs = append(t.defs, r)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Lookup returns a copy of the resource (name, index).
//
func (t *ResourceTable) Lookup(name string, index int) (Resource, bool) {
	i, ok := t.index[Key{Name: name, Index: index}]
	if !ok {
		return Resource{}, false
	}
	return t.defs[i].clone(), true
}

// Len returns the number of resources in the table.
//
func (t *ResourceTable) Len() int { return len(t.defs) }

// Keys returns the resource keys in declaration order.
//
func (t *ResourceTable) Keys() []Key {
	keys := make([]Key, len(t.defs))
	for i := range t.defs {
		keys[i] = t.defs[i].Key()
	}
	return keys
}

// Indices returns the declared indices of name, in ascending order.
//
func (t *ResourceTable) Indices(name string) []int {
	var idx []int
	for i := range t.defs {
		if t.defs[i].Name == name {
			idx = append(idx, t.defs[i].Index)
		}
	}
	sort.Ints(idx)
	return idx
}

// get returns the stored resource without copying. Callers must not modify it.
func (t *ResourceTable) get(k Key) (*Resource, bool) {
	i, ok := t.index[k]
	if !ok {
		return nil, false
	}
	return &t.defs[i], true
}

func (t *ResourceTable) all() []Resource { return t.defs }
