package matching

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/skill-matcher/internal/entity"
	"github.com/spigell/skill-matcher/internal/graph"
)

// best enumerates every matching and returns the optimum as
// (pairs, weight); with maxCardinality pairs break ties in weight.
func best(n int, edges []WeightedEdge, maxCardinality bool) (int, int64) {
	adj := make([][]WeightedEdge, n)
	for _, e := range edges {
		adj[e.U] = append(adj[e.U], e)
		adj[e.V] = append(adj[e.V], WeightedEdge{U: e.V, V: e.U, Weight: e.Weight})
	}

	used := make([]bool, n)
	bestPairs, bestWeight := 0, int64(0)

	var walk func(v, pairs int, weight int64)
	walk = func(v, pairs int, weight int64) {
		for v < n && used[v] {
			v++
		}
		if v == n {
			better := weight > bestWeight
			if maxCardinality {
				better = weight > bestWeight || (weight == bestWeight && pairs > bestPairs)
			}
			if better {
				bestPairs, bestWeight = pairs, weight
			}
			return
		}

		used[v] = true
		walk(v+1, pairs, weight)
		for _, e := range adj[v] {
			if used[e.V] {
				continue
			}
			used[e.V] = true
			walk(v+1, pairs+1, weight+e.Weight)
			used[e.V] = false
		}
		used[v] = false
	}
	walk(0, 0, 0)

	return bestPairs, bestWeight
}

func score(t *testing.T, n int, edges []WeightedEdge, mate []int) (int, int64) {
	t.Helper()

	weights := make(map[[2]int]int64, len(edges))
	for _, e := range edges {
		weights[[2]int{e.U, e.V}] = e.Weight
		weights[[2]int{e.V, e.U}] = e.Weight
	}

	require.Len(t, mate, n)

	pairs, weight := 0, int64(0)
	for v, w := range mate {
		if w == -1 {
			continue
		}
		require.Equal(t, v, mate[w], "mate must be symmetric")
		wt, ok := weights[[2]int{v, w}]
		require.True(t, ok, "matched pair %d-%d is not an edge", v, w)
		if v < w {
			pairs++
			weight += wt
		}
	}

	return pairs, weight
}

func TestMaxWeightMatchingEmpty(t *testing.T) {
	assert.Empty(t, MaxWeightMatching(0, nil, true))
	assert.Equal(t, []int{-1, -1, -1}, MaxWeightMatching(3, nil, false))
}

func TestMaxWeightMatchingSmall(t *testing.T) {
	assert.Equal(t, []int{1, 0}, MaxWeightMatching(2, []WeightedEdge{{0, 1, 1}}, false))
	assert.Equal(t, []int{-1, -1, 3, 2}, MaxWeightMatching(4, []WeightedEdge{{1, 2, 10}, {2, 3, 11}}, false))

	// the heavier middle edge wins even though it matches fewer vertices
	path := []WeightedEdge{{1, 2, 5}, {2, 3, 11}, {3, 4, 5}}
	assert.Equal(t, []int{-1, -1, 3, 2, -1}, MaxWeightMatching(5, path, false))
	assert.Equal(t, []int{-1, -1, 3, 2, -1}, MaxWeightMatching(5, path, true))

	// equal weight, so the two outer edges win on cardinality
	tied := []WeightedEdge{{1, 2, 5}, {2, 3, 10}, {3, 4, 5}}
	assert.Equal(t, []int{-1, 2, 1, 4, 3}, MaxWeightMatching(5, tied, true))
}

func TestMaxWeightMatchingCardinalityNeverCostsWeight(t *testing.T) {
	// X=0 W=1 Y=2 Z=3: X-Y alone weighs 3, X-Z plus W-Y weighs 2
	edges := []WeightedEdge{{0, 2, 3}, {0, 3, 1}, {1, 2, 1}}

	for _, maxCard := range []bool{false, true} {
		mate := MaxWeightMatching(4, edges, maxCard)
		pairs, weight := score(t, 4, edges, mate)
		assert.Equal(t, int64(3), weight, "maxcard=%t", maxCard)
		assert.Equal(t, 1, pairs, "maxcard=%t", maxCard)
		assert.Equal(t, 2, mate[0])
	}
}

func TestMaxWeightMatchingZeroWeightEdges(t *testing.T) {
	edges := []WeightedEdge{{0, 1, 0}, {2, 3, 4}}

	mate := MaxWeightMatching(4, edges, true)
	assert.Equal(t, []int{1, 0, 3, 2}, mate)

	mate = MaxWeightMatching(4, edges, false)
	assert.Equal(t, 3, mate[2])
}

func TestMaxWeightMatchingHugeWeights(t *testing.T) {
	// scaling would overflow, weight is still maximised
	edges := []WeightedEdge{{0, 1, math.MaxInt64 / 6}, {1, 2, 1}}

	mate := MaxWeightMatching(3, edges, true)
	assert.Equal(t, []int{1, 0, -1}, mate)
}

func TestMaxWeightMatchingOddCycle(t *testing.T) {
	// triangle with a pendant edge forces a blossom
	edges := []WeightedEdge{{1, 2, 8}, {1, 3, 9}, {2, 3, 10}, {3, 4, 7}}
	assert.Equal(t, []int{-1, 2, 1, 4, 3}, MaxWeightMatching(5, edges, false))

	edges = append(edges, WeightedEdge{1, 6, 5}, WeightedEdge{4, 5, 6})
	assert.Equal(t, []int{-1, 6, 3, 2, 5, 4, 1}, MaxWeightMatching(7, edges, false))
}

// Graphs exercising nested blossoms, relabeling and expansion of S- and
// T-blossoms.
var blossomCases = map[string]struct {
	n     int
	edges []WeightedEdge
}{
	"t-blossom":        {7, []WeightedEdge{{1, 2, 9}, {1, 3, 8}, {2, 3, 10}, {1, 4, 5}, {4, 5, 4}, {1, 6, 3}}},
	"t-blossom 2":      {7, []WeightedEdge{{1, 2, 9}, {1, 3, 8}, {2, 3, 10}, {1, 4, 5}, {4, 5, 3}, {3, 6, 4}}},
	"nested s-blossom": {7, []WeightedEdge{{1, 2, 9}, {1, 3, 9}, {2, 3, 10}, {2, 4, 8}, {3, 5, 8}, {4, 5, 10}, {5, 6, 6}}},
	"relabel nested s-blossom": {9, []WeightedEdge{
		{1, 2, 10}, {1, 7, 10}, {2, 3, 12}, {3, 4, 20}, {3, 5, 20}, {4, 5, 25}, {5, 6, 10}, {6, 7, 10}, {7, 8, 8},
	}},
	"nested s-blossom expand": {9, []WeightedEdge{
		{1, 2, 8}, {1, 3, 8}, {2, 3, 10}, {2, 4, 12}, {3, 5, 12}, {4, 5, 14}, {4, 6, 12}, {5, 7, 12}, {6, 7, 14}, {7, 8, 12},
	}},
	"s-blossom relabel t-expand": {9, []WeightedEdge{
		{1, 2, 23}, {1, 5, 22}, {1, 6, 15}, {2, 3, 25}, {3, 4, 22}, {4, 5, 25}, {4, 8, 14}, {5, 7, 13},
	}},
	"nested s-blossom t-expand": {9, []WeightedEdge{
		{1, 2, 19}, {1, 3, 20}, {1, 8, 8}, {2, 3, 25}, {2, 4, 18}, {3, 5, 18}, {4, 5, 13}, {4, 7, 7}, {5, 6, 7},
	}},
	"nasty t-expand": {11, []WeightedEdge{
		{1, 2, 45}, {1, 5, 45}, {2, 3, 50}, {3, 4, 45}, {4, 5, 50}, {1, 6, 30}, {3, 9, 35}, {4, 8, 35}, {5, 7, 26}, {9, 10, 5},
	}},
	"nasty t-expand 2": {11, []WeightedEdge{
		{1, 2, 45}, {1, 5, 45}, {2, 3, 50}, {3, 4, 45}, {4, 5, 50}, {1, 6, 30}, {3, 9, 35}, {4, 8, 26}, {5, 7, 40}, {9, 10, 5},
	}},
	"t-expand least slack": {11, []WeightedEdge{
		{1, 2, 45}, {1, 5, 45}, {2, 3, 50}, {3, 4, 45}, {4, 5, 50}, {1, 6, 30}, {3, 9, 35}, {4, 8, 28}, {5, 7, 26}, {9, 10, 5},
	}},
	"nested nasty t-expand": {13, []WeightedEdge{
		{1, 2, 45}, {1, 7, 45}, {2, 3, 50}, {3, 4, 45}, {4, 5, 95}, {4, 6, 94}, {5, 6, 94}, {6, 7, 50},
		{1, 8, 30}, {3, 11, 35}, {5, 9, 36}, {7, 10, 26}, {11, 12, 5},
	}},
	"nested relabel expand": {11, []WeightedEdge{
		{1, 2, 40}, {1, 3, 40}, {2, 3, 60}, {2, 4, 55}, {3, 5, 55}, {4, 5, 50}, {1, 8, 15}, {5, 7, 30}, {7, 6, 10}, {8, 10, 10}, {4, 9, 30},
	}},
}

func TestMaxWeightMatchingBlossoms(t *testing.T) {
	for name, tc := range blossomCases {
		for _, maxCard := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/maxcard=%t", name, maxCard), func(t *testing.T) {
				mate := MaxWeightMatching(tc.n, tc.edges, maxCard)
				pairs, weight := score(t, tc.n, tc.edges, mate)
				wantPairs, wantWeight := best(tc.n, tc.edges, maxCard)

				assert.Equal(t, wantWeight, weight)
				if maxCard {
					assert.Equal(t, wantPairs, pairs)
				}
			})
		}
	}
}

func TestMaxWeightMatchingRandomGraphs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 400; i++ {
		n := 1 + rng.Intn(8)
		var edges []WeightedEdge
		for u := 0; u < n; u++ {
			for v := u + 1; v < n; v++ {
				if rng.Intn(2) == 0 {
					edges = append(edges, WeightedEdge{U: u, V: v, Weight: int64(rng.Intn(12))})
				}
			}
		}
		maxCard := i%2 == 1

		mate := MaxWeightMatching(n, edges, maxCard)
		pairs, weight := score(t, n, edges, mate)
		wantPairs, wantWeight := best(n, edges, maxCard)

		require.Equal(t, wantWeight, weight, "graph #%d: n=%d edges=%v maxcard=%t", i, n, edges, maxCard)
		if maxCard {
			require.Equal(t, wantPairs, pairs, "graph #%d: n=%d edges=%v", i, n, edges)
		}
	}
}

func TestMaxWeightMatchingDeterministic(t *testing.T) {
	tc := blossomCases["nested nasty t-expand"]
	first := MaxWeightMatching(tc.n, tc.edges, true)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, MaxWeightMatching(tc.n, tc.edges, true))
	}
}

func TestMaxWeightMatchingDoesNotMutateInput(t *testing.T) {
	edges := []WeightedEdge{{0, 1, 3}, {1, 2, 4}, {0, 2, 5}}
	snapshot := append([]WeightedEdge(nil), edges...)
	MaxWeightMatching(3, edges, true)
	assert.Equal(t, snapshot, edges)
}

func TestSolveScenarios(t *testing.T) {
	t.Run("tie between two partners", func(t *testing.T) {
		g, err := graph.Build(
			[]entity.Entity{entity.New("X", "a", "b")},
			[]entity.Entity{entity.New("Y", "b", "c"), entity.New("Z", "a")},
		)
		require.NoError(t, err)

		m := Solve(g, true)
		require.NoError(t, m.Validate(g))
		require.Equal(t, 1, m.Len())
		assert.Equal(t, int64(1), m.Weight())

		partner, ok := m.Partner("X")
		require.True(t, ok)
		assert.Contains(t, []string{"Y", "Z"}, partner)
	})

	t.Run("forced choice", func(t *testing.T) {
		g, err := graph.Build(
			[]entity.Entity{entity.New("X", "a", "b", "c")},
			[]entity.Entity{entity.New("Y", "a"), entity.New("Z", "a", "b")},
		)
		require.NoError(t, err)

		m := Solve(g, true)
		require.Equal(t, []Pair{{U: "X", V: "Z", Weight: 2}}, m.Pairs())

		_, ok := m.Partner("Y")
		assert.False(t, ok)
	})

	t.Run("cardinality tie-break", func(t *testing.T) {
		// {A1-B1} and {A1-B2, A2-B1} both weigh 2
		g := graph.New()
		for _, n := range []graph.Node{{ID: "A1"}, {ID: "A2"}, {ID: "B1", Side: entity.SideB}, {ID: "B2", Side: entity.SideB}} {
			_, err := g.AddNode(n.ID, n.Side)
			require.NoError(t, err)
		}
		require.NoError(t, g.AddEdge("A1", "B1", 2, nil, ""))
		require.NoError(t, g.AddEdge("A1", "B2", 1, nil, ""))
		require.NoError(t, g.AddEdge("A2", "B1", 1, nil, ""))

		withCard := Solve(g, true)
		require.NoError(t, withCard.Validate(g))
		assert.Equal(t, 2, withCard.Len())
		assert.Equal(t, int64(2), withCard.Weight())

		plain := Solve(g, false)
		assert.Equal(t, int64(2), plain.Weight())
	})

	t.Run("empty graph", func(t *testing.T) {
		m := Solve(graph.New(), true)
		assert.Equal(t, 0, m.Len())
		assert.Empty(t, m.Pairs())
	})

	t.Run("isolated nodes", func(t *testing.T) {
		g, err := graph.Build([]entity.Entity{entity.New("a", "x")}, []entity.Entity{entity.New("b", "y")})
		require.NoError(t, err)
		assert.Equal(t, 0, Solve(g, true).Len())
	})
}

func TestValidateRejectsBrokenMatching(t *testing.T) {
	g := graph.New()
	for _, id := range []string{"a", "b", "c"} {
		_, err := g.AddNode(id, entity.SideA)
		require.NoError(t, err)
	}
	require.NoError(t, g.AddEdge("a", "b", 1, nil, ""))

	m := &Matching{pairs: []Pair{{U: "a", V: "c"}}}
	assert.ErrorIs(t, m.Validate(g), ErrInvalidMatching)

	require.NoError(t, g.AddEdge("b", "c", 1, nil, ""))
	m = &Matching{pairs: []Pair{{U: "a", V: "b"}, {U: "b", V: "c"}}}
	assert.ErrorIs(t, m.Validate(g), ErrInvalidMatching)
}
