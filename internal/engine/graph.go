package engine

import "fmt"

// FindTrigger returns the first trigger-type node in list order, or nil.
// When a graph carries more than one trigger, first-in-list is the
// deterministic pick.
func FindTrigger(nodes []Node) *Node {
	for i := range nodes {
		if nodes[i].Type == NodeTypeTrigger {
			return &nodes[i]
		}
	}
	return nil
}

// Outgoing returns all edges leaving nodeID, preserving list order.
func Outgoing(nodeID string, edges []Edge) []Edge {
	var out []Edge
	for _, e := range edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// SelectEdge returns the first edge whose port matches, or nil. An edge
// with an empty port counts as PortDefault.
func SelectEdge(edges []Edge, port Port) *Edge {
	for i := range edges {
		p := edges[i].SourcePort
		if p == "" {
			p = PortDefault
		}
		if p == port {
			return &edges[i]
		}
	}
	return nil
}

// NodeByID looks a node up in the graph snapshot.
func (g *GraphConfig) NodeByID(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// Validate checks the structural invariants the interpreter relies on:
// unique node IDs, edges referencing existing nodes, a trigger entry point,
// and true/false ports on condition-node edges.
func (g *GraphConfig) Validate() error {
	seen := make(map[string]*Node, len(g.Nodes))
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.ID == "" {
			return &GraphError{Reason: "node with empty id"}
		}
		if _, dup := seen[n.ID]; dup {
			return &GraphError{Reason: fmt.Sprintf("duplicate node id %q", n.ID)}
		}
		seen[n.ID] = n
	}
	if FindTrigger(g.Nodes) == nil {
		return ErrNoTrigger
	}
	for _, e := range g.Edges {
		src, ok := seen[e.Source]
		if !ok {
			return &GraphError{Reason: fmt.Sprintf("edge %q references unknown source %q", e.ID, e.Source)}
		}
		if _, ok := seen[e.Target]; !ok {
			return &GraphError{Reason: fmt.Sprintf("edge %q references unknown target %q", e.ID, e.Target)}
		}
		if src.Type == NodeTypeCondition {
			if e.SourcePort != PortTrue && e.SourcePort != PortFalse {
				return &GraphError{Reason: fmt.Sprintf("edge %q from condition node %q must carry a true/false port", e.ID, e.Source)}
			}
		}
	}
	return nil
}
