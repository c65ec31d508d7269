// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwplat

import (
	"strconv"

	"github.com/db47h/hwplat/internal/hdl"
	"github.com/db47h/hwplat/internal/lex"
)

// ParsePins parses one or more pin lists and returns the concatenated
// sequence of pins. Pins are separated by arbitrary whitespace, so that
//
//	ParsePins("AA24  Y23  Y24", " W22")
//
// and
//
//	ParsePins("AA24 Y23 Y24 W22")
//
// return the same sequence. Each token is either a package pin name ("AK14"),
// a connector slot reference ("GPIO:1") or the "-" placeholder.
//
// A blank pin list or a malformed token yields a *ParseError.
//
func ParsePins(exprs ...string) ([]PinSpec, error) {
	if len(exprs) == 0 {
		return nil, &ParseError{Msg: "empty pin list"}
	}
	var out []PinSpec
	for _, expr := range exprs {
		pins, err := parsePinList(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, pins...)
	}
	return out, nil
}

// MustParsePins is like ParsePins but panics on error. It is intended for
// static board tables.
//
func MustParsePins(exprs ...string) []PinSpec {
	pins, err := ParsePins(exprs...)
	if err != nil {
		panic(err)
	}
	return pins
}

func parsePinList(expr string) ([]PinSpec, error) {
	var out []PinSpec

	l := hdl.Lexer(expr)
	i := l.Lex()
	if i.Type == hdl.EOF {
		return nil, &ParseError{Input: expr, Msg: "empty pin list"}
	}
	end := lex.Pos(-1) // end of previous token
	for i.Type != hdl.EOF {
		if i.Type == hdl.Raw {
			return nil, parseError(expr, i, "invalid character")
		}
		if i.Pos == end {
			return nil, parseError(expr, i, "missing separator before")
		}
		switch i.Type {
		case hdl.Dash:
			out = append(out, Unconnected())
			end = i.Pos + 1
			i = l.Lex()
			continue
		case hdl.Ident, hdl.Int:
		default:
			return nil, unexpected(expr, i, "pin name")
		}
		name := i.Value.(string)
		end = i.Pos + lex.Pos(len(name))
		// after a name, expect ':', whitespace or EOF
		i = l.Lex()
		if i.Type != hdl.Colon || i.Pos != end {
			out = append(out, Pin(name))
			continue
		}
		if i = l.Lex(); i.Type != hdl.Int || i.Pos != end+1 {
			return nil, unexpected(expr, i, "connector slot index")
		}
		text := i.Value.(string)
		slot, err := strconv.Atoi(text)
		if err != nil {
			return nil, parseError(expr, i, "invalid connector slot index")
		}
		out = append(out, Slot(name, slot))
		end = i.Pos + lex.Pos(len(text))
		i = l.Lex()
	}
	return out, nil
}

func unexpected(in string, i lex.Item, want string) error {
	return parseError(in, i, "expected "+want+", got "+hdl.TokenName(i.Type))
}

func parseError(in string, i lex.Item, msg string) error {
	if i.Type == hdl.EOF {
		return &ParseError{Input: in, Pos: len(in), Msg: msg}
	}
	e := &ParseError{Input: in, Pos: int(i.Pos), Msg: msg}
	switch v := i.Value.(type) {
	case string:
		e.Token = v
	case rune:
		e.Token = string(v)
	}
	return e
}
