package engine

import "testing"

func linearGraph() ([]Node, []Edge) {
	nodes := []Node{
		{ID: "start", Type: NodeTypeTrigger},
		{ID: "work", Type: NodeTypeAction},
		{ID: "done", Type: NodeTypeOutput},
	}
	edges := []Edge{
		{ID: "e1", Source: "start", Target: "work"},
		{ID: "e2", Source: "work", Target: "done"},
	}
	return nodes, edges
}

func TestLayerize_LinearChain(t *testing.T) {
	nodes, edges := linearGraph()
	layers := Layerize(nodes, edges)
	want := map[string]int{"start": 0, "work": 1, "done": 2}
	for id, layer := range want {
		if layers[id] != layer {
			t.Errorf("%s: got layer %d, want %d", id, layers[id], layer)
		}
	}
}

func TestLayerize_DiamondJoinsAtFirstVisit(t *testing.T) {
	nodes := []Node{
		{ID: "start", Type: NodeTypeTrigger},
		{ID: "left", Type: NodeTypeAction},
		{ID: "right", Type: NodeTypeAction},
		{ID: "join", Type: NodeTypeOutput},
	}
	edges := []Edge{
		{ID: "e1", Source: "start", Target: "left"},
		{ID: "e2", Source: "start", Target: "right"},
		{ID: "e3", Source: "left", Target: "join"},
		{ID: "e4", Source: "right", Target: "join"},
	}
	layers := Layerize(nodes, edges)
	if layers["left"] != 1 || layers["right"] != 1 {
		t.Errorf("branches: got %d/%d, want 1/1", layers["left"], layers["right"])
	}
	if layers["join"] != 2 {
		t.Errorf("join: got layer %d, want 2", layers["join"])
	}
}

func TestLayerize_UnreachableNodesGetExtraLayer(t *testing.T) {
	nodes := []Node{
		{ID: "start", Type: NodeTypeTrigger},
		{ID: "next", Type: NodeTypeAction},
		// Pure two-node cycle, unreachable from any root.
		{ID: "c1", Type: NodeTypeAction},
		{ID: "c2", Type: NodeTypeAction},
	}
	edges := []Edge{
		{ID: "e1", Source: "start", Target: "next"},
		{ID: "e2", Source: "c1", Target: "c2"},
		{ID: "e3", Source: "c2", Target: "c1"},
	}
	layers := Layerize(nodes, edges)
	if len(layers) != 4 {
		t.Fatalf("expected every node placed, got %d of 4", len(layers))
	}
	if layers["c1"] != 2 || layers["c2"] != 2 {
		t.Errorf("cycle nodes: got %d/%d, want 2/2", layers["c1"], layers["c2"])
	}
}

func TestLayerize_Empty(t *testing.T) {
	if layers := Layerize(nil, nil); len(layers) != 0 {
		t.Errorf("expected empty map, got %v", layers)
	}
}

func TestLayoutPositions_ColumnsAndRows(t *testing.T) {
	nodes := []Node{
		{ID: "start", Type: NodeTypeTrigger},
		{ID: "left", Type: NodeTypeAction},
		{ID: "right", Type: NodeTypeAction},
	}
	edges := []Edge{
		{ID: "e1", Source: "start", Target: "left"},
		{ID: "e2", Source: "start", Target: "right"},
	}
	pos := LayoutPositions(nodes, edges)

	if got := pos["start"]; got.X != layoutStartX || got.Y != layoutStartY {
		t.Errorf("start: got %+v", got)
	}
	// Same column, stacked in discovery order.
	if got := pos["left"]; got.X != layoutStartX+layoutLayerSpacing || got.Y != layoutStartY {
		t.Errorf("left: got %+v", got)
	}
	if got := pos["right"]; got.X != layoutStartX+layoutLayerSpacing || got.Y != layoutStartY+layoutNodeSpacing {
		t.Errorf("right: got %+v", got)
	}
}
