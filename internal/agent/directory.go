package agent

import (
	"fmt"
	"strings"
)

// Directory resolves agents by type. It is built once at startup and
// read-only afterwards.
type Directory struct {
	order  []Type
	agents map[Type]*Agent
}

// NewDirectory returns a Directory holding agents in the given order.
func NewDirectory(agents ...*Agent) *Directory {
	d := &Directory{agents: make(map[Type]*Agent, len(agents))}
	for _, a := range agents {
		if _, exists := d.agents[a.Type()]; !exists {
			d.order = append(d.order, a.Type())
		}
		d.agents[a.Type()] = a
	}
	return d
}

// Get returns the agent for t.
func (d *Directory) Get(t Type) (*Agent, bool) {
	a, ok := d.agents[t]
	return a, ok
}

// Lookup is Get for an untyped name, returning a descriptive error.
func (d *Directory) Lookup(name string) (*Agent, error) {
	if a, ok := d.agents[Type(name)]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("Invalid agent type: %s. Valid types: %s", name, d.typeList()) //nolint:staticcheck // surfaced verbatim to API clients
}

// Types returns the registered types in order.
func (d *Directory) Types() []Type {
	out := make([]Type, len(d.order))
	copy(out, d.order)
	return out
}

// Infos returns discovery metadata for every agent.
func (d *Directory) Infos() []Info {
	out := make([]Info, 0, len(d.order))
	for _, t := range d.order {
		out = append(out, d.agents[t].Info())
	}
	return out
}

func (d *Directory) typeList() string {
	names := make([]string, len(d.order))
	for i, t := range d.order {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
