package stationlink

import "github.com/ttocsneb/station-comms/internal/scode"

// Rule matches a Code by letter and/or number. A nil field is a wildcard.
type Rule struct {
	Letter *byte
	Number *uint8
}

func (r Rule) matches(c scode.Code) bool {
	if r.Letter != nil && *r.Letter != c.Letter {
		return false
	}
	if r.Number != nil && *r.Number != c.Number {
		return false
	}
	return true
}

// RuleLetter returns a Rule matching any Code with the given letter.
func RuleLetter(letter byte) Rule {
	return Rule{Letter: &letter}
}

// RuleExact returns a Rule matching a specific (letter, number) pair.
func RuleExact(letter byte, number uint8) Rule {
	return Rule{Letter: &letter, Number: &number}
}

// Handler processes an inbound Code and reports whether it accepted it.
// Returning false lets the router try the next registered handler.
type Handler func(c scode.Code) bool

type entry struct {
	rule    Rule
	handler Handler
}

// Router is a registry of (Rule, Handler) pairs, dispatched in insertion
// order. Registration happens once at boot; Router supports no removal.
type Router struct {
	entries []entry
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{}
}

// Handle registers a handler for rule. Handlers are tried in the order they
// were registered.
func (r *Router) Handle(rule Rule, h Handler) {
	r.entries = append(r.entries, entry{rule: rule, handler: h})
}

// Dispatch routes c to the first matching handler that accepts it. It
// reports whether any handler accepted the record; a record accepted by no
// handler is silently dropped, per the router's contract.
func (r *Router) Dispatch(c scode.Code) bool {
	for _, e := range r.entries {
		if !e.rule.matches(c) {
			continue
		}
		if e.handler(c) {
			return true
		}
	}
	return false
}
