// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwplat

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// A Handle is a fully resolved resource or subsignal: physical pins only,
// with attributes merged from every enclosing scope.
//
// Handles are returned as fresh copies; modifying a Handle never affects the
// board description it was resolved from.
//
type Handle struct {
	Key     Key
	Pins    []PinSpec
	NegPins []PinSpec
	Attrs   Attrs
	// Subsignals is set for composite resources requested as a whole.
	Subsignals []Handle
}

// Subsignal returns the named subsignal of a composite handle.
//
func (h *Handle) Subsignal(name string) (*Handle, bool) {
	for i := range h.Subsignals {
		if h.Subsignals[i].Key.Subsignal == name {
			return &h.Subsignals[i], true
		}
	}
	return nil, false
}

// PinNames returns the names of all physical pins of h, including negative
// legs of differential pairs and subsignal pins, in declaration order.
//
func (h *Handle) PinNames() []string {
	names := lo.Map(h.Pins, func(p PinSpec, _ int) string { return p.Name() })
	names = append(names, lo.Map(h.NegPins, func(p PinSpec, _ int) string { return p.Name() })...)
	for i := range h.Subsignals {
		names = append(names, h.Subsignals[i].PinNames()...)
	}
	return names
}

// A Resolver turns resource requests into Handles for a single variant and
// keeps track of consumed resources.
//
// A Resolver is safe for concurrent use.
//
type Resolver struct {
	v   *Variant
	log *zap.Logger

	mu       sync.Mutex
	consumed map[Key]struct{}
}

// NewResolver returns a new resolver for variant v.
//
func NewResolver(v *Variant, opts ...Option) *Resolver {
	o := newOptions(opts)
	return &Resolver{
		v:        v,
		log:      o.log.Named("resolver").With(zap.String("variant", v.Name)),
		consumed: make(map[Key]struct{}),
	}
}

// Variant returns the variant r resolves against.
//
func (r *Resolver) Variant() *Variant { return r.v }

// find looks up (name, index), tolerating the two naming styles found in
// board files: "user_led" with indices 0..n and "user_led0".."user_ledN".
// Exact matches always win.
func (r *Resolver) find(name string, index int) (*Resource, bool) {
	rt := r.v.Resources
	if res, ok := rt.get(Key{Name: name, Index: index}); ok {
		return res, true
	}
	if res, ok := rt.get(Key{Name: name + strconv.Itoa(index)}); ok {
		return res, true
	}
	if index != 0 {
		return nil, false
	}
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == 0 || i == len(name) {
		return nil, false
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return nil, false
	}
	return rt.get(Key{Name: name[:i], Index: n})
}

// Lookup returns a copy of the declaration of resource (name, index) without
// consuming it.
//
func (r *Resolver) Lookup(name string, index int) (Resource, error) {
	res, ok := r.find(name, index)
	if !ok {
		return Resource{}, &NotFoundError{Key: Key{Name: name, Index: index}}
	}
	return res.clone(), nil
}

// Resolve resolves resource (name, index) and marks it as consumed. Composite
// resources yield a Handle with one entry per subsignal in Subsignals.
//
// Resolving a resource more than once is allowed and returns equal Handles.
//
func (r *Resolver) Resolve(name string, index int) (Handle, error) {
	res, ok := r.find(name, index)
	if !ok {
		return Handle{}, &NotFoundError{Key: Key{Name: name, Index: index}}
	}
	k := res.Key()
	h := Handle{Key: k, Attrs: res.Attrs.Clone()}
	var err error
	if res.Composite() {
		h.Subsignals = make([]Handle, 0, len(res.Subsignals))
		for i := range res.Subsignals {
			sh, err := r.subsignal(res, &res.Subsignals[i])
			if err != nil {
				return Handle{}, err
			}
			h.Subsignals = append(h.Subsignals, sh)
		}
	} else {
		if h.Pins, err = r.pins(k, res.Pins); err != nil {
			return Handle{}, err
		}
		if h.NegPins, err = r.pins(k, res.NegPins); err != nil {
			return Handle{}, err
		}
	}
	r.consume(k)
	return h, nil
}

// ResolveSubsignal resolves subsignal sub of resource (name, index) and marks
// it as consumed. Attributes of the resource are inherited, and overridden by
// those of the subsignal.
//
func (r *Resolver) ResolveSubsignal(name string, index int, sub string) (Handle, error) {
	res, ok := r.find(name, index)
	if !ok {
		return Handle{}, &NotFoundError{Key: Key{Name: name, Index: index, Subsignal: sub}}
	}
	s, ok := res.Subsignal(sub)
	if !ok {
		return Handle{}, &NotFoundError{Key: res.Key().Sub(sub)}
	}
	h, err := r.subsignal(res, s)
	if err != nil {
		return Handle{}, err
	}
	r.consume(h.Key)
	return h, nil
}

// ResolveAll resolves every instance of name, in ascending index order.
// Instances declared as "name0".."nameN" are included, as for Resolve.
//
func (r *Resolver) ResolveAll(name string) ([]Handle, error) {
	idx := r.indices(name)
	if len(idx) == 0 {
		return nil, &NotFoundError{Key: Key{Name: name}}
	}
	hs := make([]Handle, 0, len(idx))
	for _, i := range idx {
		h, err := r.Resolve(name, i)
		if err != nil {
			return nil, err
		}
		hs = append(hs, h)
	}
	return hs, nil
}

// indices returns the indices of all instances of name: those declared as
// (name, i) and those declared as (name+i, 0).
func (r *Resolver) indices(name string) []int {
	idx := r.v.Resources.Indices(name)
	for _, k := range r.v.Resources.Keys() {
		if k.Index != 0 || len(k.Name) <= len(name) || !strings.HasPrefix(k.Name, name) {
			continue
		}
		n, err := strconv.Atoi(k.Name[len(name):])
		if err != nil || n < 0 || strconv.Itoa(n) != k.Name[len(name):] || lo.Contains(idx, n) {
			continue
		}
		idx = append(idx, n)
	}
	sort.Ints(idx)
	return idx
}

func (r *Resolver) subsignal(res *Resource, s *Subsignal) (Handle, error) {
	k := res.Key().Sub(s.Name)
	pins, err := r.pins(k, s.Pins)
	if err != nil {
		return Handle{}, err
	}
	neg, err := r.pins(k, s.NegPins)
	if err != nil {
		return Handle{}, err
	}
	return Handle{Key: k, Pins: pins, NegPins: neg, Attrs: res.Attrs.Merge(s.Attrs)}, nil
}

// pins resolves connector references in pins. The result only holds Direct
// pins.
func (r *Resolver) pins(k Key, pins []PinSpec) ([]PinSpec, error) {
	if len(pins) == 0 {
		return nil, nil
	}
	out := make([]PinSpec, len(pins))
	for i, p := range pins {
		switch p.Kind() {
		case Direct:
			out[i] = p
		case NoConnect:
			return nil, &UnroutedPinError{Key: k, Pin: p}
		case Indirect:
			s, err := r.v.Connectors.slot(p)
			if err != nil {
				se := err.(*SchemaError)
				se.Variant = r.v.Name
				return nil, se
			}
			if !s.IsConnected() {
				return nil, &UnroutedPinError{Key: k, Pin: p}
			}
			out[i] = s
		}
	}
	return out, nil
}

func (r *Resolver) consume(k Key) {
	r.mu.Lock()
	_, again := r.consumed[k]
	r.consumed[k] = struct{}{}
	r.mu.Unlock()
	r.log.Debug("resolved", zap.Stringer("key", k), zap.Bool("again", again))
}

// IsConsumed returns true if k has been resolved at least once. A resource
// key is also reported as consumed if any of its subsignals was.
//
func (r *Resolver) IsConsumed(k Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.consumed[k]; ok {
		return true
	}
	if k.Subsignal != "" {
		_, ok := r.consumed[k.Resource()]
		return ok
	}
	for c := range r.consumed {
		if c.Resource() == k {
			return true
		}
	}
	return false
}

// Consumed returns the consumed keys, sorted by name, index and subsignal.
//
func (r *Resolver) Consumed() []Key {
	r.mu.Lock()
	keys := lo.Keys(r.consumed)
	r.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

// Remaining returns the keys still available for use, in declaration order.
// Partially consumed composite resources report their unconsumed subsignals.
//
func (r *Resolver) Remaining() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []Key
	for _, res := range r.v.Resources.all() {
		k := res.Key()
		if _, ok := r.consumed[k]; ok {
			continue
		}
		if !res.Composite() {
			keys = append(keys, k)
			continue
		}
		for _, s := range res.Subsignals {
			if _, ok := r.consumed[k.Sub(s.Name)]; !ok {
				keys = append(keys, k.Sub(s.Name))
			}
		}
	}
	return keys
}
