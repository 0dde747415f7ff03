package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/assignment"
	"github.com/spigell/skill-matcher/internal/catalog"
	"github.com/spigell/skill-matcher/internal/entity"
	"github.com/spigell/skill-matcher/internal/filtering"
	"github.com/spigell/skill-matcher/internal/metrics"
)

const maxBodyBytes = 1 << 20

type entityRequest struct {
	ID         string   `json:"id" validate:"required,max=256"`
	Attributes []string `json:"attributes" validate:"max=256,dive,max=256"`
}

// Sides are capped at 200 entities. A timed out solve keeps running until it
// finishes, so the cap bounds the work one request can leave behind.
type matchRequest struct {
	SideA          []entityRequest `json:"side_a" validate:"max=200,dive"`
	SideB          []entityRequest `json:"side_b" validate:"max=200,dive"`
	MaxCardinality *bool           `json:"max_cardinality"`
}

type assignmentResponse struct {
	ID        string             `json:"id"`
	Weight    int64              `json:"weight"`
	Pairs     []assignment.Match `json:"pairs"`
	Unmatched []string           `json:"unmatched"`
}

type lookupResponse struct {
	Entity  string   `json:"entity"`
	Matched bool     `json:"matched"`
	Partner string   `json:"partner,omitempty"`
	Role    string   `json:"role,omitempty"`
	Weight  int64    `json:"weight,omitempty"`
	Shared  []string `json:"shared,omitempty"`
	Label   string   `json:"label,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) listAssignments(w http.ResponseWriter, r *http.Request) {
	a, _, err := s.catalogAssignment(r.Context())
	if err != nil {
		s.writeComputeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(a))
}

func (s *Server) getAssignment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "entity")

	a, c, err := s.catalogAssignment(r.Context())
	if err != nil {
		s.writeComputeError(w, err)
		return
	}

	if !a.Has(id) {
		metrics.LookupsTotal.WithLabelValues(metrics.ResultUnknown).Inc()
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown entity " + id})
		return
	}

	m, ok := a.Lookup(id)
	if !ok {
		metrics.LookupsTotal.WithLabelValues(metrics.ResultUnmatched).Inc()
		writeJSON(w, http.StatusOK, lookupResponse{Entity: id})
		return
	}

	metrics.LookupsTotal.WithLabelValues(metrics.ResultMatched).Inc()
	resp := lookupResponse{
		Entity:  id,
		Matched: true,
		Partner: m.Partner,
		Weight:  m.Weight,
		Shared:  m.Shared,
		Label:   m.Label,
	}
	if p, ok := c.Position(m.Partner); ok {
		resp.Role = p.Role
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body: " + err.Error()})
		return
	}

	if err := validateStruct(req); err != nil {
		metrics.AssignmentsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}

	maxCardinality := s.opts.MaxCardinality
	if req.MaxCardinality != nil {
		maxCardinality = *req.MaxCardinality
	}

	a, err := assignment.Compute(r.Context(), toEntities(req.SideA), toEntities(req.SideB), assignment.Options{
		MaxCardinality: maxCardinality,
		Timeout:        s.opts.Timeout,
		Logger:         s.logger,
	})
	if err != nil {
		s.writeComputeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(a))
}

// catalogAssignment matches the applicants of the current catalog against
// its positions after filtering both sides.
func (s *Server) catalogAssignment(ctx context.Context) (*assignment.Assignment, *catalog.Catalog, error) {
	c := s.store.Snapshot()

	applicants, err := filtering.Run(ctx, &s.opts.Filters, filtering.Deps{Logger: s.logger, Side: entity.SideA}, filtering.Configured(&s.opts.Filters), c.ApplicantEntities())
	if err != nil {
		return nil, nil, err
	}

	positions, err := filtering.Run(ctx, &s.opts.Filters, filtering.Deps{Logger: s.logger, Side: entity.SideB}, filtering.Configured(&s.opts.Filters), c.PositionEntities())
	if err != nil {
		return nil, nil, err
	}

	a, err := assignment.Compute(ctx, applicants, positions, assignment.Options{
		MaxCardinality: s.opts.MaxCardinality,
		Timeout:        s.opts.Timeout,
		Logger:         s.logger,
	})
	if err != nil {
		return nil, nil, err
	}

	return a, c, nil
}

func (s *Server) writeComputeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrInvalidEntityCollection):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "matching timed out"})
	case errors.Is(err, context.Canceled):
		// the client is gone, nobody reads the response
		s.logger.Debug("matching cancelled", zap.Error(err))
	default:
		s.logger.Error("matching failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func toEntities(in []entityRequest) []entity.Entity {
	out := make([]entity.Entity, 0, len(in))
	for _, e := range in {
		out = append(out, entity.New(e.ID, e.Attributes...))
	}
	return out
}

func toResponse(a *assignment.Assignment) assignmentResponse {
	unmatched := append(a.Unmatched(entity.SideA), a.Unmatched(entity.SideB)...)
	if unmatched == nil {
		unmatched = []string{}
	}

	return assignmentResponse{
		ID:        a.ID,
		Weight:    a.Weight(),
		Pairs:     a.Matches(),
		Unmatched: unmatched,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
