package matching

import (
	"errors"
	"fmt"

	"github.com/spigell/skill-matcher/internal/graph"
)

var ErrInvalidMatching = errors.New("invalid matching")

// Pair is one matched edge. U precedes V in the graph's node order.
type Pair struct {
	U      string `json:"u"`
	V      string `json:"v"`
	Weight int64  `json:"weight"`
}

// Matching is a set of node pairs in which no node appears twice.
type Matching struct {
	pairs   []Pair
	partner map[string]string
	weight  int64
}

// Solve computes a maximum weight matching of g. The graph is not modified.
// An empty graph or a graph without edges yields an empty matching.
func Solve(g *graph.Graph, maxCardinality bool) *Matching {
	edges := g.Edges()
	weighted := make([]WeightedEdge, len(edges))
	for k, e := range edges {
		weighted[k] = WeightedEdge{U: e.U, V: e.V, Weight: e.Weight}
	}

	mate := MaxWeightMatching(g.Order(), weighted, maxCardinality)

	m := &Matching{partner: make(map[string]string)}
	for v, w := range mate {
		if w <= v {
			continue
		}

		u, x := g.Node(v).ID, g.Node(w).ID
		e, _ := g.Edge(u, x)
		m.pairs = append(m.pairs, Pair{U: u, V: x, Weight: e.Weight})
		m.partner[u] = x
		m.partner[x] = u
		m.weight += e.Weight
	}

	return m
}

// Pairs returns the matched pairs ordered by their first node.
func (m *Matching) Pairs() []Pair {
	out := make([]Pair, len(m.pairs))
	copy(out, m.pairs)
	return out
}

func (m *Matching) Len() int { return len(m.pairs) }

// Weight is the total weight of the matched edges.
func (m *Matching) Weight() int64 { return m.weight }

// Partner returns the node matched with id.
func (m *Matching) Partner(id string) (string, bool) {
	p, ok := m.partner[id]
	return p, ok
}

// Validate checks that every pair is an edge of g and that no node is used
// twice.
func (m *Matching) Validate(g *graph.Graph) error {
	seen := make(map[string]struct{}, 2*len(m.pairs))
	for _, p := range m.pairs {
		if _, ok := g.Edge(p.U, p.V); !ok {
			return fmt.Errorf("%w: %q-%q is not an edge", ErrInvalidMatching, p.U, p.V)
		}
		for _, id := range []string{p.U, p.V} {
			if _, ok := seen[id]; ok {
				return fmt.Errorf("%w: node %q matched twice", ErrInvalidMatching, id)
			}
			seen[id] = struct{}{}
		}
	}

	return nil
}
