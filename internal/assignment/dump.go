package assignment

import (
	"encoding/json"
	"os"

	"github.com/spigell/skill-matcher/internal/graph"
)

// Report is the serialisable form of an assignment.
type Report struct {
	ID     string       `json:"id"`
	Weight int64        `json:"weight"`
	Nodes  []graph.Node `json:"nodes"`
	Edges  []EdgeReport `json:"edges"`
	Pairs  []Match      `json:"pairs"`
	// Candidates lists, per node with at least one edge, every node it
	// shares an attribute with.
	Candidates map[string][]string `json:"candidates"`
}

type EdgeReport struct {
	U       string `json:"u"`
	V       string `json:"v"`
	Weight  int64  `json:"weight"`
	Label   string `json:"label"`
	Matched bool   `json:"matched"`
}

func (a *Assignment) Report() Report {
	edges := a.Graph.Edges()
	out := Report{
		ID:     a.ID,
		Weight: a.Weight(),
		Nodes:  a.Graph.Nodes(),
		Edges:  make([]EdgeReport, 0, len(edges)),
		Pairs:  a.Matches(),

		Candidates: make(map[string][]string),
	}

	for _, n := range out.Nodes {
		if neighbors := a.Graph.Neighbors(n.ID); len(neighbors) > 0 {
			out.Candidates[n.ID] = neighbors
		}
	}

	for _, e := range edges {
		u, v := a.Graph.Node(e.U).ID, a.Graph.Node(e.V).ID
		partner, ok := a.Matching.Partner(u)
		out.Edges = append(out.Edges, EdgeReport{
			U:       u,
			V:       v,
			Weight:  e.Weight,
			Label:   e.Label,
			Matched: ok && partner == v,
		})
	}

	return out
}

// DumpToTmpFile writes the report as indented JSON to a new temporary file
// and returns its name.
func (a *Assignment) DumpToTmpFile() (name string, err error) {
	file, err := os.CreateTemp("", "assignment_*.json")
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			name, err = "", cerr
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a.Report()); err != nil {
		return "", err
	}
	return file.Name(), nil
}
