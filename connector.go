// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwplat

import (
	"go.uber.org/multierr"
)

// A Connector is a physical header whose slots map to package pins. Slot
// entries are either Direct pins or NoConnect placeholders.
//
type Connector struct {
	Name  string
	Slots []PinSpec
}

// A ConnectorTable is an immutable collection of connectors, indexed by name.
//
type ConnectorTable struct {
	defs  []Connector
	index map[string]int
}

// NewConnectorTable validates defs and returns a new ConnectorTable.
//
// Connector slots may not reference other connectors: indirection chains
// are limited to a single hop.
//
func NewConnectorTable(defs ...Connector) (*ConnectorTable, error) {
	t := &ConnectorTable{index: make(map[string]int, len(defs))}
	var err error
	for _, c := range defs {
		subject := "connector " + c.Name
		if c.Name == "" {
			err = multierr.Append(err, schemaErrorf("connector", "empty connector name"))
			continue
		}
		if _, dup := t.index[c.Name]; dup {
			err = multierr.Append(err, schemaErrorf(subject, "duplicate connector declaration"))
			continue
		}
		if len(c.Slots) == 0 {
			err = multierr.Append(err, schemaErrorf(subject, "empty pin list"))
			continue
		}
		bad := false
		for i, p := range c.Slots {
			if p.Kind() == Indirect {
				err = multierr.Append(err, schemaErrorf(subject, "slot %d references connector slot %s", i, p))
				bad = true
			}
		}
		if bad {
			continue
		}
		t.index[c.Name] = len(t.defs)
		t.defs = append(t.defs, Connector{Name: c.Name, Slots: append([]PinSpec(nil), c.Slots...)})
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Lookup returns a copy of the named connector.
//
func (t *ConnectorTable) Lookup(name string) (Connector, bool) {
	if t == nil {
		return Connector{}, false
	}
	i, ok := t.index[name]
	if !ok {
		return Connector{}, false
	}
	c := t.defs[i]
	c.Slots = append([]PinSpec(nil), c.Slots...)
	return c, true
}

// Names returns the connector names in declaration order.
//
func (t *ConnectorTable) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.defs))
	for i := range t.defs {
		names[i] = t.defs[i].Name
	}
	return names
}

// slot returns the pin at slot of connector name. The returned error is a
// *SchemaError for unknown connectors, out of range slots and chained
// references.
func (t *ConnectorTable) slot(p PinSpec) (PinSpec, error) {
	subject := "connector " + p.Name()
	if t == nil {
		return PinSpec{}, schemaErrorf(subject, "unknown connector")
	}
	i, ok := t.index[p.Name()]
	if !ok {
		return PinSpec{}, schemaErrorf(subject, "unknown connector")
	}
	slots := t.defs[i].Slots
	if p.SlotIndex() < 0 || p.SlotIndex() >= len(slots) {
		return PinSpec{}, schemaErrorf(subject, "slot %d out of range [0, %d)", p.SlotIndex(), len(slots))
	}
	s := slots[p.SlotIndex()]
	if s.Kind() == Indirect {
		return PinSpec{}, schemaErrorf(subject, "slot %d references connector slot %s", p.SlotIndex(), s)
	}
	return s, nil
}
