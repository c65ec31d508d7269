// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwplat

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Well known attribute keys.
const (
	// IOStandard is the electrical standard of a pin ("LVCMOS33", "SSTL135_I").
	IOStandard = "IOSTANDARD"
)

// Attrs is a set of electrical attributes, keyed by attribute name.
//
// A key with an empty value is a flag (e.g. Misc("PULLUP")).
//
type Attrs map[string]string

// ParseMisc parses space separated KEY=VALUE assignments, as found in board
// "misc" declarations:
//
//	ParseMisc("TERMINATION=OFF DIFFRESISTOR=100")
//
// A token without '=' is stored as a flag with an empty value.
//
func ParseMisc(s string) (Attrs, error) {
	a := make(Attrs)
	for _, f := range strings.Fields(s) {
		k, v, _ := strings.Cut(f, "=")
		if k == "" {
			return nil, schemaErrorf("misc "+s, "empty attribute name in %q", f)
		}
		a[k] = v
	}
	return a, nil
}

// Clone returns a copy of a. The copy of a nil Attrs is an empty Attrs.
//
func (a Attrs) Clone() Attrs {
	c := make(Attrs, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

// Merge returns a new attribute set with the attributes of a overridden or
// extended by those of narrower.
//
func (a Attrs) Merge(narrower Attrs) Attrs {
	c := a.Clone()
	for k, v := range narrower {
		c[k] = v
	}
	return c
}

// Keys returns the attribute names in lexical order.
//
func (a Attrs) Keys() []string {
	keys := lo.Keys(a)
	sort.Strings(keys)
	return keys
}

// IOStandard returns the value of the IOSTANDARD attribute.
//
func (a Attrs) IOStandard() string { return a[IOStandard] }

func (a Attrs) String() string {
	var b strings.Builder
	for i, k := range a.Keys() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		if v := a[k]; v != "" {
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return b.String()
}
