package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spigell/skill-matcher/internal/entity"
)

// LabelSeparator joins shared attributes in edge labels.
const LabelSeparator = ", "

var (
	ErrDuplicateNode  = errors.New("duplicate node")
	ErrUnknownNode    = errors.New("unknown node")
	ErrSelfLoop       = errors.New("self-loop is not allowed")
	ErrDuplicateEdge  = errors.New("duplicate edge")
	ErrNegativeWeight = errors.New("negative edge weight")
)

type Node struct {
	ID   string      `json:"id"`
	Side entity.Side `json:"side"`
}

// Edge connects nodes U and V by index. Shared and Label are display data
// and are never read by the solver.
type Edge struct {
	U      int      `json:"u"`
	V      int      `json:"v"`
	Weight int64    `json:"weight"`
	Shared []string `json:"shared,omitempty"`
	Label  string   `json:"label,omitempty"`
}

// Graph is an undirected simple graph with integer-weighted, labeled edges.
// Nodes are addressed by index in insertion order.
type Graph struct {
	nodes []Node
	index map[string]int
	edges []Edge
	// pair -> position in edges, key ordered as (min, max)
	lookup map[[2]int]int
}

func New() *Graph {
	return &Graph{
		index:  make(map[string]int),
		lookup: make(map[[2]int]int),
	}
}

func (g *Graph) AddNode(id string, side entity.Side) (int, error) {
	if _, ok := g.index[id]; ok {
		return -1, fmt.Errorf("%w: %q", ErrDuplicateNode, id)
	}

	idx := len(g.nodes)
	g.nodes = append(g.nodes, Node{ID: id, Side: side})
	g.index[id] = idx

	return idx, nil
}

// AddEdge connects two existing nodes. shared is stored as given.
func (g *Graph) AddEdge(u, v string, weight int64, shared []string, label string) error {
	ui, ok := g.index[u]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, u)
	}
	vi, ok := g.index[v]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, v)
	}
	if ui == vi {
		return fmt.Errorf("%w: %q", ErrSelfLoop, u)
	}
	if weight < 0 {
		return fmt.Errorf("%w: %q-%q has weight %d", ErrNegativeWeight, u, v, weight)
	}

	key := pairKey(ui, vi)
	if _, ok := g.lookup[key]; ok {
		return fmt.Errorf("%w: %q-%q", ErrDuplicateEdge, u, v)
	}

	g.lookup[key] = len(g.edges)
	g.edges = append(g.edges, Edge{U: ui, V: vi, Weight: weight, Shared: shared, Label: label})

	return nil
}

func (g *Graph) Order() int { return len(g.nodes) }

func (g *Graph) Size() int { return len(g.edges) }

// Nodes returns a copy of the node list.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns a copy of the edge list in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

func (g *Graph) Node(i int) Node { return g.nodes[i] }

func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Edge returns the edge between two identifiers regardless of direction.
func (g *Graph) Edge(u, v string) (Edge, bool) {
	ui, ok := g.index[u]
	if !ok {
		return Edge{}, false
	}
	vi, ok := g.index[v]
	if !ok {
		return Edge{}, false
	}

	pos, ok := g.lookup[pairKey(ui, vi)]
	if !ok {
		return Edge{}, false
	}

	return g.edges[pos], true
}

// Neighbors returns the identifiers adjacent to id in edge order.
func (g *Graph) Neighbors(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}

	var out []string
	for _, e := range g.edges {
		switch i {
		case e.U:
			out = append(out, g.nodes[e.V].ID)
		case e.V:
			out = append(out, g.nodes[e.U].ID)
		}
	}

	return out
}

func pairKey(u, v int) [2]int {
	if u > v {
		u, v = v, u
	}
	return [2]int{u, v}
}

// Build constructs the attribute graph of two entity collections. Every
// entity becomes a node (side A first, then side B, in input order); an edge
// joins a side-A and a side-B entity when their attribute sets intersect,
// weighted by the size of the intersection.
func Build(sideA, sideB []entity.Entity) (*Graph, error) {
	if err := entity.ValidateSides(sideA, sideB); err != nil {
		return nil, err
	}

	g := New()
	for _, e := range sideA {
		if _, err := g.AddNode(e.ID, entity.SideA); err != nil {
			return nil, err
		}
	}
	for _, e := range sideB {
		if _, err := g.AddNode(e.ID, entity.SideB); err != nil {
			return nil, err
		}
	}

	setsB := make([]map[string]string, len(sideB))
	for j, b := range sideB {
		setsB[j] = b.AttributeSet()
	}

	for _, a := range sideA {
		setA := a.AttributeSet()
		if len(setA) == 0 {
			continue
		}

		for j, b := range sideB {
			shared, display := overlap(setA, setsB[j])
			if len(shared) == 0 {
				continue
			}

			label := strings.Join(display, LabelSeparator)
			if err := g.AddEdge(a.ID, b.ID, int64(len(shared)), shared, label); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

// overlap returns the sorted normalized intersection and the matching
// display spellings taken from b.
func overlap(a, b map[string]string) ([]string, []string) {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	shared := make([]string, 0)
	for key := range small {
		if _, ok := large[key]; ok {
			shared = append(shared, key)
		}
	}
	sort.Strings(shared)

	labels := make([]string, len(shared))
	for i, key := range shared {
		labels[i] = b[key]
	}

	return shared, labels
}
