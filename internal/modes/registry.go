// Package modes holds the fixed set of conversation modes. A mode is a named
// persona whose intro text is prepended to every prompt sent while it is active.
package modes

import (
	"fmt"
	"strings"
)

// DefaultMode is used for sessions that never selected a mode.
const DefaultMode = "casual"

// Mode is a named persona with its introductory prompt.
type Mode struct {
	Name  string
	Intro string
}

// Registry is an ordered, read-only set of modes.
type Registry struct {
	order []string
	intro map[string]string
}

// New builds a registry. Order of the arguments is kept for listing.
func New(modes ...Mode) (*Registry, error) {
	r := &Registry{
		order: make([]string, 0, len(modes)),
		intro: make(map[string]string, len(modes)),
	}
	for _, m := range modes {
		if strings.TrimSpace(m.Name) == "" {
			return nil, fmt.Errorf("mode name must not be empty")
		}
		if _, dup := r.intro[m.Name]; dup {
			return nil, fmt.Errorf("duplicate mode %q", m.Name)
		}
		r.order = append(r.order, m.Name)
		r.intro[m.Name] = m.Intro
	}
	return r, nil
}

// Builtin lists the modes shipped with the bot.
var Builtin = []Mode{
	{Name: "casual", Intro: "Let's chat! What's on your mind?"},
	{Name: "professional", Intro: "Welcome. How can I assist you today?"},
	{Name: "romantic", Intro: "Hey, my love. What's on your mind?"},
}

// Default returns the registry of built-in modes.
func Default() *Registry {
	r, err := New(Builtin...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the intro text for name. Matching is exact.
func (r *Registry) Lookup(name string) (string, bool) {
	intro, ok := r.intro[name]
	return intro, ok
}

// Has reports whether name is a registered mode.
func (r *Registry) Has(name string) bool {
	_, ok := r.intro[name]
	return ok
}

// Names returns mode names in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// List returns all modes in declaration order.
func (r *Registry) List() []Mode {
	out := make([]Mode, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, Mode{Name: name, Intro: r.intro[name]})
	}
	return out
}
