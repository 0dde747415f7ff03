package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/entity"
	"github.com/spigell/skill-matcher/internal/graph"
	"github.com/spigell/skill-matcher/internal/logger"
	"github.com/spigell/skill-matcher/internal/matching"
	"github.com/spigell/skill-matcher/internal/metrics"
	"github.com/spigell/skill-matcher/internal/utils"
)

// Options controls one matching run.
type Options struct {
	// MaxCardinality prefers more pairs among maximum weight matchings.
	MaxCardinality bool
	// Timeout bounds the computation; zero runs it inline without a limit.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Match is the result of looking up an entity in an assignment.
type Match struct {
	Entity  string   `json:"entity"`
	Partner string   `json:"partner"`
	Weight  int64    `json:"weight"`
	Shared  []string `json:"shared"`
	Label   string   `json:"label"`
}

// Assignment bundles the graph of one run with its optimal matching.
type Assignment struct {
	ID       string             `json:"id"`
	Graph    *graph.Graph       `json:"-"`
	Matching *matching.Matching `json:"-"`
}

// Compute snapshots both collections, builds their attribute graph and solves
// it. Invalid collections are reported as errors wrapping
// entity.ErrInvalidEntityCollection; a run that finds no viable pair returns
// an empty matching.
func Compute(ctx context.Context, sideA, sideB []entity.Entity, opts Options) (*Assignment, error) {
	a := &Assignment{ID: uuid.NewString()}
	log := logger.WithAssignment(opts.Logger, a.ID)

	sideA = entity.Snapshot(sideA)
	sideB = entity.Snapshot(sideB)

	start := time.Now()
	err := utils.RunWithTimeout(ctx, opts.Timeout, func() error {
		g, err := graph.Build(sideA, sideB)
		if err != nil {
			return err
		}

		a.Graph = g
		a.Matching = matching.Solve(g, opts.MaxCardinality)
		return nil
	})

	switch {
	case errors.Is(err, entity.ErrInvalidEntityCollection):
		metrics.AssignmentsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		metrics.AssignmentsTotal.WithLabelValues(metrics.ResultTimeout).Inc()
		return nil, fmt.Errorf("computing assignment: %w", err)
	case err != nil:
		return nil, fmt.Errorf("computing assignment: %w", err)
	}

	elapsed := time.Since(start)
	metrics.ObserveSolve(elapsed, a.Matching.Len())

	log.Debug("assignment computed",
		zap.Int("side_a", len(sideA)),
		zap.Int("side_b", len(sideB)),
		zap.Int("edges", a.Graph.Size()),
		zap.Int("pairs", a.Matching.Len()),
		zap.Int64("weight", a.Matching.Weight()),
		zap.Bool("max_cardinality", opts.MaxCardinality),
		zap.Duration("elapsed", elapsed),
	)

	return a, nil
}

// Lookup resolves the partner of id in m and the shared attributes recorded
// on the graph edge between them. An unmatched or unknown id yields false.
func Lookup(g *graph.Graph, m *matching.Matching, id string) (Match, bool) {
	if g == nil || m == nil {
		return Match{}, false
	}

	partner, ok := m.Partner(id)
	if !ok {
		return Match{}, false
	}

	e, ok := g.Edge(id, partner)
	if !ok {
		return Match{}, false
	}

	return Match{
		Entity:  id,
		Partner: partner,
		Weight:  e.Weight,
		Shared:  e.Shared,
		Label:   e.Label,
	}, true
}

func (a *Assignment) Lookup(id string) (Match, bool) {
	return Lookup(a.Graph, a.Matching, id)
}

// Has reports whether id is a node of the assignment graph.
func (a *Assignment) Has(id string) bool {
	_, ok := a.Graph.Index(id)
	return ok
}

// Matches returns every matched pair, seen from its side-A member when the
// pair spans both sides.
func (a *Assignment) Matches() []Match {
	pairs := a.Matching.Pairs()
	out := make([]Match, 0, len(pairs))
	for _, p := range pairs {
		if m, ok := a.Lookup(p.U); ok {
			out = append(out, m)
		}
	}

	return out
}

// Unmatched returns the nodes of the given side without a partner.
func (a *Assignment) Unmatched(side entity.Side) []string {
	var out []string
	for _, n := range a.Graph.Nodes() {
		if n.Side != side {
			continue
		}
		if _, ok := a.Matching.Partner(n.ID); !ok {
			out = append(out, n.ID)
		}
	}

	return out
}

func (a *Assignment) Weight() int64 { return a.Matching.Weight() }
