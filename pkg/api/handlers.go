package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dd0wney/cluso-trafficgraph/pkg/detail"
	"github.com/dd0wney/cluso-trafficgraph/pkg/logging"
	"github.com/dd0wney/cluso-trafficgraph/pkg/pools"
	"github.com/dd0wney/cluso-trafficgraph/pkg/render"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
	"github.com/dd0wney/cluso-trafficgraph/pkg/validation"
	"github.com/dd0wney/cluso-trafficgraph/pkg/visualization"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   s.version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Captures:  s.service.catalog.Len(),
	})
}

func (s *Server) handlePcaps(w http.ResponseWriter, r *http.Request) {
	entries := s.service.Captures()
	resp := PcapListResponse{Pcaps: make([]PcapInfo, 0, len(entries)), Count: len(entries)}
	for _, e := range entries {
		resp.Pcaps = append(resp.Pcaps, newPcapInfo(e))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handlePcap returns one capture with its full summary.
func (s *Server) handlePcap(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, ok := s.service.catalog.Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "pcap not found: "+id)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

// graphParams reads the viewport and selection shared by the graph routes.
func (s *Server) graphParams(w http.ResponseWriter, r *http.Request) (width, height float64, selected traffic.Category, ok bool) {
	width, height, err := viewportParams(r)
	if err == nil {
		err = validation.ValidateDimensions(width, height)
	}
	if err == nil {
		selected, err = categoryParam(r, "selected")
	}
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return 0, 0, traffic.None, false
	}
	return width, height, selected, true
}

func (s *Server) handlePcapGraph(w http.ResponseWriter, r *http.Request) {
	width, height, selected, ok := s.graphParams(w, r)
	if !ok {
		return
	}
	g, err := s.service.Graph(r.Context(), r.PathValue("id"), width, height, selected)
	if err != nil {
		s.respondServiceError(w, r, err, "build graph")
		return
	}
	s.respondJSON(w, http.StatusOK, g.Export(selected))
}

func (s *Server) handlePcapImage(w http.ResponseWriter, r *http.Request) {
	width, height, selected, ok := s.graphParams(w, r)
	if !ok {
		return
	}
	g, err := s.service.Graph(r.Context(), r.PathValue("id"), width, height, selected)
	if err != nil {
		s.respondServiceError(w, r, err, "build graph")
		return
	}

	// Encode fully before writing so a render failure can still be a 500.
	buf := pools.GetBuffer()
	defer pools.PutBuffer(buf)
	if err := s.service.Renderer().EncodePNG(buf, g, selected, render.DefaultPNGOptions(g)); err != nil {
		s.respondServiceError(w, r, err, "render graph")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("write png", logging.Error(err))
	}
}

// handleHit resolves a click at x,y on the graph surface.
func (s *Server) handleHit(w http.ResponseWriter, r *http.Request) {
	width, height, selected, ok := s.graphParams(w, r)
	if !ok {
		return
	}
	x, err := floatParam(r, "x")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	y, err := floatParam(r, "y")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	node, after, err := s.service.Hit(r.Context(), r.PathValue("id"), width, height, selected, x, y)
	if err != nil {
		s.respondServiceError(w, r, err, "hit test")
		return
	}
	resp := HitResponse{}
	if after.Valid() {
		resp.Selected = string(after)
	}
	if node != nil {
		n := visualization.ExportNode(node)
		resp.Node = &n
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	category, err := traffic.ParseCategory(r.URL.Query().Get("category"))
	if err == nil && !category.Valid() {
		err = traffic.ErrUnknownCategory
	}
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "category: "+err.Error())
		return
	}

	var q detail.Query
	if q.Sort, err = columnParam(r, "sort"); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.Filter, err = columnParam(r, "filter"); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.Page, err = intParam(r, "page", 1); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.Desc = r.URL.Query().Get("desc") == "true"
	q.Text = r.URL.Query().Get("text")

	res, err := s.service.Table(r.Context(), r.PathValue("id"), category, q)
	if err != nil {
		s.respondServiceError(w, r, err, "query table")
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// handleGraph builds a graph over records posted inline.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	var req validation.GraphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.ValidateGraphRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	selected := traffic.Category(req.Selected)
	records := req.TrafficRecords()
	if len(records) == 0 {
		s.respondError(w, http.StatusUnprocessableEntity, "no traffic data")
		return
	}
	g := s.service.BuildRecords(records, req.Width, req.Height, selected)
	s.respondJSON(w, http.StatusOK, g.Export(selected))
}
