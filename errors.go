// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwplat

import (
	"fmt"
	"strings"
)

// A SchemaError reports structurally broken board data: duplicate
// declarations, empty pin lists, dangling connector references. Schema errors
// are detected when tables and variants are built and abort the build.
//
type SchemaError struct {
	Variant string // may be empty if the error is not tied to a variant
	Subject string // e.g. "resource serial[0].rx" or "connector GPIO"
	Msg     string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	if e.Variant != "" {
		b.WriteString("variant ")
		b.WriteString(e.Variant)
		b.WriteString(": ")
	}
	if e.Subject != "" {
		b.WriteString(e.Subject)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	return b.String()
}

func schemaErrorf(subject, format string, args ...interface{}) *SchemaError {
	return &SchemaError{Subject: subject, Msg: fmt.Sprintf(format, args...)}
}

// A ParseError reports a malformed pin list.
//
type ParseError struct {
	Input string
	Pos   int // byte offset of the offending token in Input
	Token string
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("in %q at pos %d: %s %q", e.Input, e.Pos+1, e.Msg, e.Token)
	}
	return fmt.Sprintf("in %q at pos %d: %s", e.Input, e.Pos+1, e.Msg)
}

// A NotFoundError is returned when a requested resource or subsignal does not
// exist in the active variant.
//
type NotFoundError struct {
	Key Key
}

func (e *NotFoundError) Error() string {
	if e.Key.Subsignal != "" {
		return fmt.Sprintf("subsignal %q of resource %s not found", e.Key.Subsignal, e.Key.Resource())
	}
	return fmt.Sprintf("resource %q (index %d) not found", e.Key.Name, e.Key.Index)
}

// An UnroutedPinError is returned when a resource pin resolves to a
// placeholder or to a connector slot with no physical connection.
//
type UnroutedPinError struct {
	Key Key
	Pin PinSpec
}

func (e *UnroutedPinError) Error() string {
	if e.Pin.Kind() == Indirect {
		return fmt.Sprintf("%s: connector slot %s is not connected", e.Key, e.Pin)
	}
	return fmt.Sprintf("%s: pin is not connected", e.Key)
}

// A ConflictError is returned when two driving consumers are bound to the
// same physical pin.
//
type ConflictError struct {
	Pin    string
	First  Key
	Second Key
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("pin %s driven by both %s and %s", e.Pin, e.First, e.Second)
}

// An UnknownVariantError is returned by Selector.Select for an unrecognized
// revision or device identifier.
//
type UnknownVariantError struct {
	ID    string
	Known []string
	// Candidates is set when ID is a device string shared by several variants.
	Candidates []string
}

func (e *UnknownVariantError) Error() string {
	if len(e.Candidates) > 0 {
		return fmt.Sprintf("ambiguous board variant %q (matches: %s)", e.ID, strings.Join(e.Candidates, ", "))
	}
	return fmt.Sprintf("unknown board variant %q (known: %s)", e.ID, strings.Join(e.Known, ", "))
}

// A ConfigError reports a clock topology that cannot be built: unachievable
// frequencies or phase offsets, missing inputs, bad domain declarations.
//
type ConfigError struct {
	Domain string
	Msg    string
}

func (e *ConfigError) Error() string {
	if e.Domain != "" {
		return "clock domain " + e.Domain + ": " + e.Msg
	}
	return "clock configuration: " + e.Msg
}
