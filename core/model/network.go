package model

import (
	"fmt"
	"sort"
)

// NodeKind classifies a node of the water distribution network.
type NodeKind int

const (
	NodeIntermediate NodeKind = iota
	NodeSource
	NodeSite
)

// String returns a human-readable representation of the node kind.
func (k NodeKind) String() string {
	switch k {
	case NodeSource:
		return "source"
	case NodeSite:
		return "site"
	case NodeIntermediate:
		return "intermediate"
	default:
		return "unknown"
	}
}

// Arc is a directed link between two network nodes.
type Arc struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// String formats the arc as "from->to". The form is used in variable names.
func (a Arc) String() string { return a.From + "->" + a.To }

// Network describes the entities of a planning instance: tailings sites,
// water sources, pass-through nodes and the arcs connecting them.
type Network struct {
	Sites        []string
	Sources      []string
	Intermediate []string
	Arcs         []Arc

	kinds map[string]NodeKind
	in    map[string][]Arc
	out   map[string][]Arc
}

// NewNetwork validates the topology and indexes arcs by endpoint.
// Node identifiers must be unique across sites, sources and intermediate
// nodes, and every arc endpoint must be a declared node.
func NewNetwork(sites, sources, intermediate []string, arcs []Arc) (*Network, error) {
	if len(sites) == 0 {
		return nil, fmt.Errorf("network requires at least one site")
	}
	n := &Network{
		Sites:        append([]string(nil), sites...),
		Sources:      append([]string(nil), sources...),
		Intermediate: append([]string(nil), intermediate...),
		Arcs:         append([]Arc(nil), arcs...),
		kinds:        make(map[string]NodeKind),
		in:           make(map[string][]Arc),
		out:          make(map[string][]Arc),
	}
	add := func(ids []string, k NodeKind) error {
		for _, id := range ids {
			if id == "" {
				return fmt.Errorf("empty %s identifier", k)
			}
			if prev, ok := n.kinds[id]; ok {
				return fmt.Errorf("node %q declared as %s and %s", id, prev, k)
			}
			n.kinds[id] = k
		}
		return nil
	}
	if err := add(n.Sites, NodeSite); err != nil {
		return nil, err
	}
	if err := add(n.Sources, NodeSource); err != nil {
		return nil, err
	}
	if err := add(n.Intermediate, NodeIntermediate); err != nil {
		return nil, err
	}
	seen := make(map[Arc]bool, len(arcs))
	for _, a := range n.Arcs {
		if _, ok := n.kinds[a.From]; !ok {
			return nil, fmt.Errorf("arc %s: unknown node %q", a, a.From)
		}
		if _, ok := n.kinds[a.To]; !ok {
			return nil, fmt.Errorf("arc %s: unknown node %q", a, a.To)
		}
		if a.From == a.To {
			return nil, fmt.Errorf("arc %s is a self loop", a)
		}
		if seen[a] {
			return nil, fmt.Errorf("duplicate arc %s", a)
		}
		seen[a] = true
		n.out[a.From] = append(n.out[a.From], a)
		n.in[a.To] = append(n.in[a.To], a)
	}
	return n, nil
}

// Kind returns the kind of the node and whether it exists.
func (n *Network) Kind(id string) (NodeKind, bool) {
	k, ok := n.kinds[id]
	return k, ok
}

// Nodes returns all node identifiers in a stable order: sources,
// intermediate nodes, then sites.
func (n *Network) Nodes() []string {
	out := make([]string, 0, len(n.kinds))
	out = append(out, n.Sources...)
	out = append(out, n.Intermediate...)
	out = append(out, n.Sites...)
	return out
}

// Inbound returns the arcs terminating at node id.
func (n *Network) Inbound(id string) []Arc { return n.in[id] }

// Outbound returns the arcs leaving node id.
func (n *Network) Outbound(id string) []Arc { return n.out[id] }

// SortedArcs returns a copy of the arcs ordered by (from, to).
func (n *Network) SortedArcs() []Arc {
	out := append([]Arc(nil), n.Arcs...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}
