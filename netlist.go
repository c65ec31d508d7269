// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwplat

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// A Netlist records how resolved handles are bound in a design. A physical pin
// may be driven by at most one handle; any number of handles may sense it.
//
// A Netlist is safe for concurrent use.
//
type Netlist struct {
	log *zap.Logger

	mu      sync.Mutex
	drivers map[string]Key
	sensors map[string][]Key
}

// NewNetlist returns an empty netlist.
//
func NewNetlist(opts ...Option) *Netlist {
	o := newOptions(opts)
	return &Netlist{
		log:     o.log.Named("netlist"),
		drivers: make(map[string]Key),
		sensors: make(map[string][]Key),
	}
}

// Drive binds every physical pin of h as an output driven by h.Key.
//
// If any pin is already driven, Drive returns a *ConflictError for the first
// such pin and the netlist is left unchanged. This holds even if the previous
// driver has the same key.
//
func (n *Netlist) Drive(h Handle) error {
	pins := h.PinNames()
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range pins {
		if k, ok := n.drivers[p]; ok {
			n.log.Debug("conflict", zap.String("pin", p), zap.Stringer("first", k), zap.Stringer("second", h.Key))
			return &ConflictError{Pin: p, First: k, Second: h.Key}
		}
	}
	for _, p := range pins {
		n.drivers[p] = h.Key
	}
	n.log.Debug("drive", zap.Stringer("key", h.Key), zap.Strings("pins", pins))
	return nil
}

// Sense binds every physical pin of h as a read-only input. Sense never fails.
//
func (n *Netlist) Sense(h Handle) {
	pins := h.PinNames()
	n.mu.Lock()
	for _, p := range pins {
		n.sensors[p] = append(n.sensors[p], h.Key)
	}
	n.mu.Unlock()
	n.log.Debug("sense", zap.Stringer("key", h.Key), zap.Strings("pins", pins))
}

// Driver returns the key driving pin.
//
func (n *Netlist) Driver(pin string) (Key, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	k, ok := n.drivers[pin]
	return k, ok
}

// Sensors returns the keys sensing pin, in binding order.
//
func (n *Netlist) Sensors(pin string) []Key {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Key(nil), n.sensors[pin]...)
}

// DrivenPins returns the names of all driven pins, sorted.
//
func (n *Netlist) DrivenPins() []string {
	n.mu.Lock()
	pins := make([]string, 0, len(n.drivers))
	for p := range n.drivers {
		pins = append(pins, p)
	}
	n.mu.Unlock()
	sort.Strings(pins)
	return pins
}
