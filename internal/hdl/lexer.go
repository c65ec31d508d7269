// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hdl tokenizes pin lists as found in board descriptions.
//
// A pin list is a whitespace separated sequence of pin names ("AK14"),
// connector references ("GPIO:1") and placeholders ("-").
//
package hdl

import (
	"strings"
	"unicode"

	"github.com/db47h/hwplat/internal/lex"
)

// Tokens
const (
	EOF lex.Type = lex.EOF
	Raw lex.Type = iota
	Ident
	Int
	Colon
	Dash
)

// TokenName returns a human readable name for token type t.
//
func TokenName(t lex.Type) string {
	switch t {
	case EOF:
		return "end of input"
	case Ident:
		return "name"
	case Int:
		return "integer"
	case Colon:
		return "':'"
	case Dash:
		return "'-'"
	}
	return "invalid character"
}

// Lexer returns a new lexer for pin lists.
//
// Ident and Int items carry their text as a string value; Raw items carry
// the offending rune. Whitespace is skipped.
//
func Lexer(input string) lex.Interface {
	return lex.New(input, lexInit)
}

func isWordRune(r rune) bool {
	return r == '_' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func lexInit(l *lex.Lexer) lex.StateFn {
	r := l.Next()
	switch {
	case r == lex.EOF:
		return lexEOF
	case unicode.IsSpace(r):
		l.AcceptWhile(unicode.IsSpace)
	case isWordRune(r):
		return lexWord
	case r == ':':
		l.Emit(Colon, ":")
	case r == '-':
		l.Emit(Dash, "-")
	default:
		l.Emit(Raw, r)
		return lexEOF
	}
	return nil
}

func lexWord(l *lex.Lexer) lex.StateFn {
	var buf strings.Builder
	buf.Grow(8)
	buf.WriteRune(l.Current())
	digits := unicode.IsDigit(l.Current())
	r := l.Next()
	for isWordRune(r) {
		digits = digits && unicode.IsDigit(r)
		buf.WriteRune(r)
		r = l.Next()
	}
	l.Backup()
	if digits {
		l.Emit(Int, buf.String())
	} else {
		l.Emit(Ident, buf.String())
	}
	return nil
}

// lexEOF places the lexer in End-Of-File state.
// Once in this state, the lexer will only emit EOF.
//
func lexEOF(l *lex.Lexer) lex.StateFn {
	l.Emit(EOF, "end of input")
	return lexEOF
}
