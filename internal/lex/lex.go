// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package lex implements a minimal state-function lexer.
//
// A lexer is driven by StateFn values. The initial state function is called
// each time a state function returns nil. State functions consume runes with
// Next, Backup and AcceptWhile, and produce items with Emit.
//
package lex

import "unicode/utf8"

// EOF is returned by Next at the end of input. It is also the Type of the
// item emitted at end of input.
//
const EOF = -1

// Type is the type of a lexical item.
//
type Type int

// Pos is a byte offset in the input.
//
type Pos int

// Item is a lexical item.
//
type Item struct {
	Type  Type
	Pos   Pos
	Value interface{}
}

// A StateFn is a lexer state function.
//
type StateFn func(l *Lexer) StateFn

// Interface is implemented by lexers.
//
type Interface interface {
	// Lex returns the next item in the input stream. Once the input is
	// exhausted, it returns an item of type EOF.
	Lex() Item
}

// Lexer holds the lexer state.
//
type Lexer struct {
	input string
	init  StateFn
	state StateFn
	items []Item
	start Pos
	pos   Pos
	cur   rune
	width int
}

// New returns a new lexer for the given input string.
//
func New(input string, init StateFn) *Lexer {
	return &Lexer{input: input, init: init}
}

// Lex implements Interface.
//
func (l *Lexer) Lex() Item {
	for len(l.items) == 0 {
		if l.state == nil {
			l.start = l.pos
			l.state = l.init
		}
		l.state = l.state(l)
	}
	i := l.items[0]
	l.items = l.items[1:]
	return i
}

// Next returns the next rune in the input and makes it the current rune.
//
func (l *Lexer) Next() rune {
	if int(l.pos) >= len(l.input) {
		l.width = 0
		l.cur = EOF
		return EOF
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += Pos(w)
	l.cur = r
	return r
}

// Current returns the rune returned by the last call to Next.
//
func (l *Lexer) Current() rune {
	return l.cur
}

// Backup steps back one rune. It can only be called once per call to Next.
//
func (l *Lexer) Backup() {
	l.pos -= Pos(l.width)
	l.width = 0
}

// AcceptWhile consumes runes while f returns true.
//
func (l *Lexer) AcceptWhile(f func(rune) bool) {
	for r := l.Next(); r != EOF && f(r); r = l.Next() {
	}
	l.Backup()
}

// Emit emits an item of type t with value v, starting at the beginning of
// the current token.
//
func (l *Lexer) Emit(t Type, v interface{}) {
	l.items = append(l.items, Item{Type: t, Pos: l.start, Value: v})
	l.start = l.pos
}
