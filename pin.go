// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwplat

import (
	"strconv"
	"strings"
)

// PinKind discriminates the variants of a PinSpec.
//
type PinKind uint8

// Pin kinds.
const (
	// NoConnect is an explicit "not connected" placeholder ("-").
	NoConnect PinKind = iota
	// Direct is a physical package pin.
	Direct
	// Indirect is a reference to a connector slot ("GPIO:1").
	Indirect
)

// NC is the textual placeholder for an unconnected pin.
//
const NC = "-"

// A PinSpec is a physical pin, a connector slot reference, or an explicit
// "not connected" marker. PinSpec values are comparable and immutable.
//
// The zero value is a NoConnect pin.
//
type PinSpec struct {
	kind PinKind
	name string // pin or connector name
	slot int
}

// Pin returns a direct PinSpec for the package pin name.
//
func Pin(name string) PinSpec { return PinSpec{kind: Direct, name: name} }

// Slot returns an indirect PinSpec referencing slot of connector.
//
func Slot(connector string, slot int) PinSpec {
	return PinSpec{kind: Indirect, name: connector, slot: slot}
}

// Unconnected returns a NoConnect PinSpec.
//
func Unconnected() PinSpec { return PinSpec{} }

// Kind returns the kind of p.
//
func (p PinSpec) Kind() PinKind { return p.kind }

// Name returns the pin name for Direct pins, the connector name for Indirect
// pins and an empty string otherwise.
//
func (p PinSpec) Name() string { return p.name }

// SlotIndex returns the connector slot of an Indirect pin.
//
func (p PinSpec) SlotIndex() int { return p.slot }

// IsConnected returns false for NoConnect pins.
//
func (p PinSpec) IsConnected() bool { return p.kind != NoConnect }

// Equal reports whether p and o denote the same pin.
//
func (p PinSpec) Equal(o PinSpec) bool { return p == o }

func (p PinSpec) String() string {
	switch p.kind {
	case Direct:
		return p.name
	case Indirect:
		return p.name + ":" + strconv.Itoa(p.slot)
	}
	return NC
}

// FormatPins returns the canonical text form of a pin list, pins separated by
// a single space.
//
func FormatPins(pins []PinSpec) string {
	var b strings.Builder
	for i, p := range pins {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.String())
	}
	return b.String()
}

// A Key identifies a resource instance, or one of its subsignals.
//
type Key struct {
	Name      string
	Index     int
	Subsignal string
}

// Resource returns k without its subsignal.
//
func (k Key) Resource() Key { return Key{Name: k.Name, Index: k.Index} }

// Sub returns a copy of k for subsignal s.
//
func (k Key) Sub(s string) Key { return Key{Name: k.Name, Index: k.Index, Subsignal: s} }

func (k Key) String() string {
	s := k.Name + "[" + strconv.Itoa(k.Index) + "]"
	if k.Subsignal != "" {
		s += "." + k.Subsignal
	}
	return s
}

// less orders keys by name, index, then subsignal.
func (k Key) less(o Key) bool {
	if k.Name != o.Name {
		return k.Name < o.Name
	}
	if k.Index != o.Index {
		return k.Index < o.Index
	}
	return k.Subsignal < o.Subsignal
}
