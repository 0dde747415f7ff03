package matching

import "math"

// WeightedEdge is an undirected edge between vertex indices U and V.
type WeightedEdge struct {
	U      int
	V      int
	Weight int64
}

// Vertex labels of the alternating forest.
const (
	free   = 0
	sLabel = 1
	tLabel = 2
)

// crumb marks S-blossoms already visited while scanning for a common base.
const crumb = 4

// MaxWeightMatching computes a maximum weight matching of a general graph
// with n vertices using Edmonds' blossom algorithm in its primal-dual form.
// It returns mate, where mate[v] is the vertex matched to v or -1.
//
// When maxCardinality is set, weight still comes first: among the matchings
// of maximum total weight the one with the most pairs is returned.
//
// Edges must not be self-loops and must not repeat a vertex pair. Weights are
// non-negative integers; all dual variables are kept doubled so the whole
// computation stays in integer arithmetic. The result depends only on the
// order of vertices and edges. Runs in O(n^3).
func MaxWeightMatching(n int, edges []WeightedEdge, maxCardinality bool) []int {
	for _, e := range edges {
		if e.U >= n {
			n = e.U + 1
		}
		if e.V >= n {
			n = e.V + 1
		}
	}

	mate := make([]int, n)
	for i := range mate {
		mate[i] = -1
	}
	if len(edges) == 0 {
		return mate
	}

	if maxCardinality {
		if scaled, ok := cardinalityWeights(n, edges); ok {
			edges = scaled
		}
	}

	s := newSolver(n, edges)
	s.run()

	for v := 0; v < n; v++ {
		if s.mate[v] >= 0 {
			mate[v] = s.endpoint[s.mate[v]]
		}
	}

	return mate
}

// cardinalityWeights rescales every weight w to w*k+1 with k = n/2+1. A
// matching has at most n/2 pairs, so the added ones can only decide between
// matchings of equal original weight. ok is false when the scaled weights
// would overflow the doubled duals; the caller then solves on the original
// weights and the cardinality tie-break is not applied.
func cardinalityWeights(n int, edges []WeightedEdge) ([]WeightedEdge, bool) {
	k := int64(n/2 + 1)
	limit := (math.MaxInt64/4 - 1) / k

	scaled := make([]WeightedEdge, len(edges))
	for i, e := range edges {
		if e.Weight > limit {
			return nil, false
		}
		scaled[i] = WeightedEdge{U: e.U, V: e.V, Weight: e.Weight*k + 1}
	}

	return scaled, true
}

// solver keeps all state in flat arrays. Indices 0..n-1 are vertices,
// n..2n-1 are blossom slots. Edge k has endpoints 2k (U) and 2k+1 (V);
// p^1 is the opposite endpoint of p.
type solver struct {
	n     int
	edges []WeightedEdge

	// endpoint[p] is the vertex of endpoint p
	endpoint []int
	// neighbend[v] lists the remote endpoints of edges incident to v
	neighbend [][]int

	// mate[v] is the remote endpoint of v's matched edge, or -1
	mate []int

	// label and labelend are meaningful for top-level blossoms and for
	// vertices inside T-blossoms
	label    []int
	labelend []int

	inblossom     []int
	blossomparent []int
	blossomchilds [][]int
	blossombase   []int
	// blossomendps[b][i] is the endpoint joining childs[i] and childs[i+1]
	blossomendps [][]int

	// bestedge[b] is the least-slack edge to a different S-blossom
	bestedge []int
	// blossombestedges[b] lists least-slack edges to neighbouring
	// S-blossoms; nil means it must be recomputed from the leaves
	blossombestedges [][]int

	unusedblossoms []int

	// dualvar[v] is twice the vertex dual; dualvar[b] is the blossom dual
	dualvar []int64

	allowedge []bool
	queue     []int
}

func newSolver(n int, edges []WeightedEdge) *solver {
	s := &solver{
		n:     n,
		edges: edges,
	}

	var maxWeight int64
	for _, e := range edges {
		if e.Weight > maxWeight {
			maxWeight = e.Weight
		}
	}

	s.endpoint = make([]int, 2*len(edges))
	s.neighbend = make([][]int, n)
	for k, e := range edges {
		s.endpoint[2*k] = e.U
		s.endpoint[2*k+1] = e.V
		s.neighbend[e.U] = append(s.neighbend[e.U], 2*k+1)
		s.neighbend[e.V] = append(s.neighbend[e.V], 2*k)
	}

	s.mate = fill(make([]int, n), -1)
	s.label = make([]int, 2*n)
	s.labelend = fill(make([]int, 2*n), -1)
	s.inblossom = make([]int, n)
	for v := range s.inblossom {
		s.inblossom[v] = v
	}
	s.blossomparent = fill(make([]int, 2*n), -1)
	s.blossomchilds = make([][]int, 2*n)
	s.blossombase = make([]int, 2*n)
	for v := 0; v < n; v++ {
		s.blossombase[v] = v
	}
	for b := n; b < 2*n; b++ {
		s.blossombase[b] = -1
	}
	s.blossomendps = make([][]int, 2*n)
	s.bestedge = fill(make([]int, 2*n), -1)
	s.blossombestedges = make([][]int, 2*n)
	s.unusedblossoms = make([]int, 0, n)
	for b := n; b < 2*n; b++ {
		s.unusedblossoms = append(s.unusedblossoms, b)
	}
	s.dualvar = make([]int64, 2*n)
	for v := 0; v < n; v++ {
		s.dualvar[v] = maxWeight
	}
	s.allowedge = make([]bool, len(edges))

	return s
}

func (s *solver) slack(k int) int64 {
	e := s.edges[k]
	return s.dualvar[e.U] + s.dualvar[e.V] - 2*e.Weight
}

// leaves appends the vertices contained in blossom b to out.
func (s *solver) leaves(b int, out []int) []int {
	if b < s.n {
		return append(out, b)
	}
	for _, t := range s.blossomchilds[b] {
		out = s.leaves(t, out)
	}
	return out
}

// assignLabel labels w's top-level blossom as t, reached through endpoint p.
// Labeling a T-blossom also labels its mate as S.
func (s *solver) assignLabel(w, t, p int) {
	b := s.inblossom[w]
	s.label[w], s.label[b] = t, t
	s.labelend[w], s.labelend[b] = p, p
	s.bestedge[w], s.bestedge[b] = -1, -1

	switch t {
	case sLabel:
		s.queue = s.leaves(b, s.queue)
	case tLabel:
		base := s.blossombase[b]
		s.assignLabel(s.endpoint[s.mate[base]], sLabel, s.mate[base]^1)
	}
}

// scanBlossom traces back from v and w towards their tree roots. It returns
// the base of a new blossom, or -1 when the roots differ (augmenting path).
func (s *solver) scanBlossom(v, w int) int {
	var path []int
	base := -1

	for v != -1 || w != -1 {
		b := s.inblossom[v]
		if s.label[b]&crumb != 0 {
			base = s.blossombase[b]
			break
		}

		path = append(path, b)
		s.label[b] = sLabel | crumb

		if s.labelend[b] == -1 {
			v = -1
		} else {
			v = s.endpoint[s.labelend[b]]
			b = s.inblossom[v]
			v = s.endpoint[s.labelend[b]]
		}

		if w != -1 {
			v, w = w, v
		}
	}

	for _, b := range path {
		s.label[b] = sLabel
	}

	return base
}

// addBlossom contracts the odd cycle closed by edge k with the given base.
func (s *solver) addBlossom(base, k int) {
	v, w := s.edges[k].U, s.edges[k].V
	bb := s.inblossom[base]
	bv := s.inblossom[v]
	bw := s.inblossom[w]

	b := s.unusedblossoms[len(s.unusedblossoms)-1]
	s.unusedblossoms = s.unusedblossoms[:len(s.unusedblossoms)-1]

	s.blossombase[b] = base
	s.blossomparent[b] = -1
	s.blossomparent[bb] = b

	var path, endps []int
	for bv != bb {
		s.blossomparent[bv] = b
		path = append(path, bv)
		endps = append(endps, s.labelend[bv])
		v = s.endpoint[s.labelend[bv]]
		bv = s.inblossom[v]
	}
	path = append(path, bb)
	reverse(path)
	reverse(endps)
	endps = append(endps, 2*k)
	for bw != bb {
		s.blossomparent[bw] = b
		path = append(path, bw)
		endps = append(endps, s.labelend[bw]^1)
		w = s.endpoint[s.labelend[bw]]
		bw = s.inblossom[w]
	}
	s.blossomchilds[b] = path
	s.blossomendps[b] = endps

	s.label[b] = sLabel
	s.labelend[b] = s.labelend[bb]
	s.dualvar[b] = 0

	for _, leaf := range s.leaves(b, nil) {
		if s.label[s.inblossom[leaf]] == tLabel {
			// former T-vertices become S-vertices and must be scanned
			s.queue = append(s.queue, leaf)
		}
		s.inblossom[leaf] = b
	}

	bestedgeto := fill(make([]int, 2*s.n), -1)
	for _, child := range path {
		var nblists [][]int
		if s.blossombestedges[child] == nil {
			for _, leaf := range s.leaves(child, nil) {
				nb := make([]int, len(s.neighbend[leaf]))
				for i, p := range s.neighbend[leaf] {
					nb[i] = p / 2
				}
				nblists = append(nblists, nb)
			}
		} else {
			nblists = [][]int{s.blossombestedges[child]}
		}

		for _, nblist := range nblists {
			for _, ek := range nblist {
				j := s.edges[ek].V
				if s.inblossom[j] == b {
					j = s.edges[ek].U
				}
				bj := s.inblossom[j]
				if bj != b && s.label[bj] == sLabel &&
					(bestedgeto[bj] == -1 || s.slack(ek) < s.slack(bestedgeto[bj])) {
					bestedgeto[bj] = ek
				}
			}
		}

		s.blossombestedges[child] = nil
		s.bestedge[child] = -1
	}

	best := make([]int, 0)
	for _, ek := range bestedgeto {
		if ek != -1 {
			best = append(best, ek)
		}
	}
	s.blossombestedges[b] = best

	s.bestedge[b] = -1
	for _, ek := range best {
		if s.bestedge[b] == -1 || s.slack(ek) < s.slack(s.bestedge[b]) {
			s.bestedge[b] = ek
		}
	}
}

// expandBlossom dissolves blossom b back into its children. Outside the end
// of a stage, a T-blossom's children are relabeled so the alternating tree
// stays consistent.
func (s *solver) expandBlossom(b int, endstage bool) {
	for _, child := range s.blossomchilds[b] {
		s.blossomparent[child] = -1
		switch {
		case child < s.n:
			s.inblossom[child] = child
		case endstage && s.dualvar[child] == 0:
			s.expandBlossom(child, endstage)
		default:
			for _, leaf := range s.leaves(child, nil) {
				s.inblossom[leaf] = child
			}
		}
	}

	if !endstage && s.label[b] == tLabel {
		childs := s.blossomchilds[b]
		endps := s.blossomendps[b]

		entrychild := s.inblossom[s.endpoint[s.labelend[b]^1]]
		j := indexOf(childs, entrychild)

		var jstep, endptrick int
		if j&1 != 0 {
			// odd position: walk forward around the cycle
			j -= len(childs)
			jstep = 1
			endptrick = 0
		} else {
			jstep = -1
			endptrick = 1
		}

		// relabel the even-length path from the entry child to the base
		p := s.labelend[b]
		for j != 0 {
			s.label[s.endpoint[p^1]] = free
			s.label[s.endpoint[at(endps, j-endptrick)^endptrick^1]] = free
			s.assignLabel(s.endpoint[p^1], tLabel, p)
			s.allowedge[at(endps, j-endptrick)/2] = true
			j += jstep
			p = at(endps, j-endptrick) ^ endptrick
			s.allowedge[p/2] = true
			j += jstep
		}

		bv := at(childs, j)
		s.label[s.endpoint[p^1]] = tLabel
		s.label[bv] = tLabel
		s.labelend[s.endpoint[p^1]] = p
		s.labelend[bv] = p
		s.bestedge[bv] = -1

		// children off the path keep only labels reachable from outside
		j += jstep
		for at(childs, j) != entrychild {
			bv = at(childs, j)
			if s.label[bv] == sLabel {
				j += jstep
				continue
			}

			reached := -1
			for _, leaf := range s.leaves(bv, nil) {
				if s.label[leaf] != free {
					reached = leaf
					break
				}
			}
			if reached >= 0 {
				s.label[reached] = free
				s.label[s.endpoint[s.mate[s.blossombase[bv]]]] = free
				s.assignLabel(reached, tLabel, s.labelend[reached])
			}
			j += jstep
		}
	}

	s.label[b] = -1
	s.labelend[b] = -1
	s.blossomchilds[b] = nil
	s.blossomendps[b] = nil
	s.blossombase[b] = -1
	s.blossombestedges[b] = nil
	s.bestedge[b] = -1
	s.unusedblossoms = append(s.unusedblossoms, b)
}

// augmentBlossom swaps matched and unmatched edges along the even path from
// vertex v to the base of blossom b, making v the new base.
func (s *solver) augmentBlossom(b, v int) {
	t := v
	for s.blossomparent[t] != b {
		t = s.blossomparent[t]
	}
	if t >= s.n {
		s.augmentBlossom(t, v)
	}

	childs := s.blossomchilds[b]
	endps := s.blossomendps[b]

	i := indexOf(childs, t)
	j := i

	var jstep, endptrick int
	if i&1 != 0 {
		j -= len(childs)
		jstep = 1
		endptrick = 0
	} else {
		jstep = -1
		endptrick = 1
	}

	for j != 0 {
		j += jstep
		t = at(childs, j)
		p := at(endps, j-endptrick) ^ endptrick
		if t >= s.n {
			s.augmentBlossom(t, s.endpoint[p])
		}
		j += jstep
		t = at(childs, j)
		if t >= s.n {
			s.augmentBlossom(t, s.endpoint[p^1])
		}
		s.mate[s.endpoint[p]] = p ^ 1
		s.mate[s.endpoint[p^1]] = p
	}

	s.blossomchilds[b] = rotate(childs, i)
	s.blossomendps[b] = rotate(endps, i)
	s.blossombase[b] = s.blossombase[s.blossomchilds[b][0]]
}

// augmentMatching flips the augmenting path through edge k.
func (s *solver) augmentMatching(k int) {
	e := s.edges[k]
	starts := [2][2]int{{e.U, 2*k + 1}, {e.V, 2 * k}}

	for _, start := range starts {
		v, p := start[0], start[1]
		for {
			bs := s.inblossom[v]
			if bs >= s.n {
				s.augmentBlossom(bs, v)
			}
			s.mate[v] = p

			if s.labelend[bs] == -1 {
				// reached a single vertex, the root of the tree
				break
			}

			t := s.endpoint[s.labelend[bs]]
			bt := s.inblossom[t]
			v = s.endpoint[s.labelend[bt]]
			j := s.endpoint[s.labelend[bt]^1]
			if bt >= s.n {
				s.augmentBlossom(bt, j)
			}
			s.mate[j] = s.labelend[bt]
			p = s.labelend[bt] ^ 1
		}
	}
}

func (s *solver) run() {
	for stage := 0; stage < s.n; stage++ {
		if !s.stage() {
			break
		}

		// blossoms with zero dual that survived the stage are dissolved
		for b := s.n; b < 2*s.n; b++ {
			if s.blossomparent[b] == -1 && s.blossombase[b] >= 0 &&
				s.label[b] == sLabel && s.dualvar[b] == 0 {
				s.expandBlossom(b, true)
			}
		}
	}
}

// stage grows alternating trees from every single vertex until an
// augmenting path is found. It reports whether the matching was augmented.
func (s *solver) stage() bool {
	for i := range s.label {
		s.label[i] = free
	}
	for i := range s.bestedge {
		s.bestedge[i] = -1
	}
	for b := s.n; b < 2*s.n; b++ {
		s.blossombestedges[b] = nil
	}
	for k := range s.allowedge {
		s.allowedge[k] = false
	}
	s.queue = s.queue[:0]

	for v := 0; v < s.n; v++ {
		if s.mate[v] == -1 && s.label[s.inblossom[v]] == free {
			s.assignLabel(v, sLabel, -1)
		}
	}

	for {
		if s.scan() {
			return true
		}

		delta, deltatype, deltaedge, deltablossom := s.delta()

		for v := 0; v < s.n; v++ {
			switch s.label[s.inblossom[v]] {
			case sLabel:
				s.dualvar[v] -= delta
			case tLabel:
				s.dualvar[v] += delta
			}
		}
		for b := s.n; b < 2*s.n; b++ {
			if s.blossombase[b] >= 0 && s.blossomparent[b] == -1 {
				switch s.label[b] {
				case sLabel:
					s.dualvar[b] += delta
				case tLabel:
					s.dualvar[b] -= delta
				}
			}
		}

		switch deltatype {
		case 1:
			// optimum reached
			return false
		case 2:
			s.allowedge[deltaedge] = true
			i, j := s.edges[deltaedge].U, s.edges[deltaedge].V
			if s.label[s.inblossom[i]] == free {
				i = j
			}
			s.queue = append(s.queue, i)
		case 3:
			s.allowedge[deltaedge] = true
			s.queue = append(s.queue, s.edges[deltaedge].U)
		case 4:
			s.expandBlossom(deltablossom, false)
		}
	}
}

// scan processes queued S-vertices. It returns true after an augmentation.
func (s *solver) scan() bool {
	for len(s.queue) > 0 {
		v := s.queue[len(s.queue)-1]
		s.queue = s.queue[:len(s.queue)-1]

		for _, p := range s.neighbend[v] {
			k := p / 2
			w := s.endpoint[p]
			if s.inblossom[v] == s.inblossom[w] {
				continue
			}

			var kslack int64
			if !s.allowedge[k] {
				kslack = s.slack(k)
				if kslack <= 0 {
					s.allowedge[k] = true
				}
			}

			switch {
			case s.allowedge[k]:
				switch {
				case s.label[s.inblossom[w]] == free:
					s.assignLabel(w, tLabel, p^1)
				case s.label[s.inblossom[w]] == sLabel:
					base := s.scanBlossom(v, w)
					if base >= 0 {
						s.addBlossom(base, k)
					} else {
						s.augmentMatching(k)
						return true
					}
				case s.label[w] == free:
					// w is inside a T-blossom but not yet reached
					s.label[w] = tLabel
					s.labelend[w] = p ^ 1
				}
			case s.label[s.inblossom[w]] == sLabel:
				b := s.inblossom[v]
				if s.bestedge[b] == -1 || kslack < s.slack(s.bestedge[b]) {
					s.bestedge[b] = k
				}
			case s.label[w] == free:
				if s.bestedge[w] == -1 || kslack < s.slack(s.bestedge[w]) {
					s.bestedge[w] = k
				}
			}
		}
	}

	return false
}

// delta picks the smallest dual adjustment that keeps the duals feasible.
func (s *solver) delta() (delta int64, deltatype, deltaedge, deltablossom int) {
	deltaedge = -1
	deltablossom = -1

	// a vertex dual reaching zero ends the stage
	deltatype = 1
	delta = minInt64(s.dualvar[:s.n])

	for v := 0; v < s.n; v++ {
		if s.label[s.inblossom[v]] == free && s.bestedge[v] != -1 {
			d := s.slack(s.bestedge[v])
			if d < delta {
				delta = d
				deltatype = 2
				deltaedge = s.bestedge[v]
			}
		}
	}

	for b := 0; b < 2*s.n; b++ {
		if s.blossomparent[b] == -1 && s.label[b] == sLabel && s.bestedge[b] != -1 {
			// slack between two S-blossoms is even with integer weights
			d := s.slack(s.bestedge[b]) / 2
			if d < delta {
				delta = d
				deltatype = 3
				deltaedge = s.bestedge[b]
			}
		}
	}

	for b := s.n; b < 2*s.n; b++ {
		if s.blossombase[b] >= 0 && s.blossomparent[b] == -1 && s.label[b] == tLabel &&
			s.dualvar[b] < delta {
			delta = s.dualvar[b]
			deltatype = 4
			deltablossom = b
		}
	}

	return delta, deltatype, deltaedge, deltablossom
}

func fill(s []int, v int) []int {
	for i := range s {
		s[i] = v
	}
	return s
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func rotate(s []int, i int) []int {
	out := make([]int, 0, len(s))
	out = append(out, s[i:]...)
	return append(out, s[:i]...)
}

// at indexes s allowing negative positions counted from the end.
func at(s []int, i int) int {
	if i < 0 {
		i += len(s)
	}
	return s[i]
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func minInt64(s []int64) int64 {
	m := s[0]
	for _, v := range s[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
