package engine

// Layout spacing. Presentation detail only; the layering itself doubles as
// a reachability utility.
const (
	layoutStartX       = 80
	layoutStartY       = 60
	layoutLayerSpacing = 260
	layoutNodeSpacing  = 120
)

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Layerize assigns each node a layer for display. Roots (nodes with no
// incoming edge) form layer 0 and expansion is breadth-first: a node is
// placed the first time it is reached, at 1 + the layer of the predecessor
// that reached it. A node reachable by two paths of different depth
// therefore sits at the depth of whichever path visits it first in BFS
// order, not necessarily the longest path. Nodes unreachable from any root
// (isolated or purely cyclic) go in one extra layer after the main pass.
func Layerize(nodes []Node, edges []Edge) map[string]int {
	layers, _ := layerize(nodes, edges)
	return layers
}

func layerize(nodes []Node, edges []Edge) (map[string]int, []string) {
	layers := make(map[string]int, len(nodes))
	order := make([]string, 0, len(nodes))
	if len(nodes) == 0 {
		return layers, order
	}

	hasIncoming := make(map[string]bool)
	for _, e := range edges {
		hasIncoming[e.Target] = true
	}

	var frontier []string
	for _, n := range nodes {
		if !hasIncoming[n.ID] {
			layers[n.ID] = 0
			frontier = append(frontier, n.ID)
			order = append(order, n.ID)
		}
	}

	for len(frontier) > 0 {
		var next []string
		for _, id := range frontier {
			for _, e := range Outgoing(id, edges) {
				if _, placed := layers[e.Target]; placed {
					continue
				}
				layers[e.Target] = layers[id] + 1
				next = append(next, e.Target)
				order = append(order, e.Target)
			}
		}
		frontier = next
	}

	maxLayer := 0
	for _, l := range layers {
		if l > maxLayer {
			maxLayer = l
		}
	}
	for _, n := range nodes {
		if _, placed := layers[n.ID]; !placed {
			layers[n.ID] = maxLayer + 1
			order = append(order, n.ID)
		}
	}
	return layers, order
}

// LayoutPositions computes pixel coordinates from the layering: one column
// per layer, nodes stacked within a column in first-discovery order.
func LayoutPositions(nodes []Node, edges []Edge) map[string]Position {
	layers, order := layerize(nodes, edges)
	positions := make(map[string]Position, len(nodes))
	rowInLayer := make(map[int]int)
	for _, id := range order {
		layer := layers[id]
		row := rowInLayer[layer]
		rowInLayer[layer] = row + 1
		positions[id] = Position{
			X: layoutStartX + layer*layoutLayerSpacing,
			Y: layoutStartY + row*layoutNodeSpacing,
		}
	}
	return positions
}
