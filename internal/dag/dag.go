package dag

import (
	"fmt"
	"sort"

	"github.com/specialistvlad/burstflow/internal/flowerr"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// Build creates a graph from nodes, validates every dependency and rejects
// cycles.
func Build(nodes []Node) (*Graph, error) {
	g := New()
	for _, n := range nodes {
		if g.Has(n.ID) {
			return nil, flowerr.Validation("duplicate node", n.ID)
		}
		g.AddNode(n.ID)
	}
	for _, n := range nodes {
		for _, need := range n.Needs {
			if !g.Has(need) {
				return nil, flowerr.Validation("unknown dependency", need, n.ID)
			}
			if err := g.AddEdge(need, n.ID); err != nil {
				return nil, flowerr.WrapValidation(err, "circular dependency", n.ID)
			}
		}
	}
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.ids = append(g.ids, id)
}

// Has reports whether a node with the given ID exists.
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// IDs returns every node ID in insertion order.
func (g *Graph) IDs() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return append([]string(nil), g.ids...)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is returned
// if either node does not exist or if the edge would create a self-reference.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode

	return nil
}

// Dependencies returns the sorted IDs of the nodes the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedIDs(n.deps), nil
}

// Dependents returns the sorted IDs of the nodes that depend on the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedIDs(n.dependents), nil
}

// DetectCycles checks the graph for any cycles. It returns a validation error
// naming a node on the first cycle found.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// permanent: fully visited and not part of a cycle.
	// temporary: on the current recursion stack.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			return flowerr.Validation("circular dependency", n.id)
		}

		temporary[n.id] = true

		for _, id := range sortedIDs(n.dependents) {
			if err := visit(n.dependents[id]); err != nil {
				return err
			}
		}

		delete(temporary, n.id)
		permanent[n.id] = true

		return nil
	}

	for _, id := range g.ids {
		if err := visit(g.nodes[id]); err != nil {
			return err
		}
	}

	return nil
}

// Stages layers the graph: stage 0 holds the nodes without dependencies and
// stage k the nodes whose dependencies all lie in earlier stages. IDs inside a
// stage are sorted.
func (g *Graph) Stages() ([][]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	placed := make(map[string]bool, len(g.nodes))
	var stages [][]string
	for len(placed) < len(g.nodes) {
		var stage []string
		for _, id := range g.ids {
			if placed[id] {
				continue
			}
			ready := true
			for dep := range g.nodes[id].deps {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				stage = append(stage, id)
			}
		}
		if len(stage) == 0 {
			return nil, flowerr.Internalf("cannot place %d of %d nodes into stages", len(g.nodes)-len(placed), len(g.nodes))
		}
		for _, id := range stage {
			placed[id] = true
		}
		sort.Strings(stage)
		stages = append(stages, stage)
	}
	return stages, nil
}

func sortedIDs(m map[string]*node) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
