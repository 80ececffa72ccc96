package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/powergrid/internal/config"
	"github.com/gyaneshwarpardhi/powergrid/internal/engine"
	"github.com/gyaneshwarpardhi/powergrid/internal/metrics"
	"github.com/gyaneshwarpardhi/powergrid/internal/render"
	"github.com/gyaneshwarpardhi/powergrid/internal/sink/history"
)

const maxChangesLimit = 1000

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng     *engine.Engine
	loader  *config.Loader // nil disables /v1/circuit/reload
	history *history.Recorder
	mux     *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, loader *config.Loader, hist *history.Recorder) http.Handler {
	h := &Handler{eng: eng, loader: loader, history: hist, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /v1/nodes", h.listNodes)
	h.mux.HandleFunc("GET /v1/nodes/{id}", h.getNode)
	h.mux.HandleFunc("GET /v1/nodes/{id}/paths", h.getPaths)
	h.mux.HandleFunc("POST /v1/nodes/{id}/signal", h.startSignal)
	h.mux.HandleFunc("POST /v1/nodes/{id}/blackout", h.setBlackout)
	h.mux.HandleFunc("POST /v1/nodes/{id}/force", h.forcePowered)
	h.mux.HandleFunc("DELETE /v1/nodes/{id}/edges", h.disconnect)
	h.mux.HandleFunc("POST /v1/edges", h.addEdge)
	h.mux.HandleFunc("DELETE /v1/edges", h.removeEdge)
	h.mux.HandleFunc("POST /v1/blackout", h.globalBlackout)
	h.mux.HandleFunc("GET /v1/changes", h.listChanges)
	h.mux.HandleFunc("POST /v1/circuit/reload", h.reloadCircuit)
	h.mux.HandleFunc("GET /v1/circuit/graph", h.circuitGraph)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

type signalRequest struct {
	Value       bool  `json:"value"`
	IncludeSelf *bool `json:"include_self"` // nil = true
}

type blackoutRequest struct {
	Blackout bool `json:"blackout"`
}

type forceRequest struct {
	Powered bool `json:"powered"`
}

type edgeRequest struct {
	A string `json:"a" validate:"required,max=128"`
	B string `json:"b" validate:"required,max=128"`
}

// GET /v1/nodes: snapshot of every node.
func (h *Handler) listNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.eng.Snapshots(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"nodes": nodes})
}

// GET /v1/nodes/{id}
func (h *Handler) getNode(w http.ResponseWriter, r *http.Request) {
	st, err := h.eng.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GET /v1/nodes/{id}/paths: every power path into the node.
func (h *Handler) getPaths(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	paths, err := h.eng.Paths(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"node": id, "paths": paths})
}

// POST /v1/nodes/{id}/signal: activate or deactivate a source.
func (h *Handler) startSignal(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if !decode(w, r, &req) {
		return
	}
	includeSelf := req.IncludeSelf == nil || *req.IncludeSelf
	id := r.PathValue("id")
	st, err := h.eng.StartSignal(r.Context(), id, req.Value, includeSelf)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// POST /v1/nodes/{id}/blackout
func (h *Handler) setBlackout(w http.ResponseWriter, r *http.Request) {
	var req blackoutRequest
	if !decode(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	st, err := h.eng.SetBlackout(r.Context(), id, req.Blackout)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// POST /v1/nodes/{id}/force: debug override.
func (h *Handler) forcePowered(w http.ResponseWriter, r *http.Request) {
	var req forceRequest
	if !decode(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	st, err := h.eng.ForcePowered(r.Context(), id, req.Powered)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DELETE /v1/nodes/{id}/edges: remove every outgoing edge.
func (h *Handler) disconnect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, err := h.eng.Disconnect(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// POST /v1/edges
func (h *Handler) addEdge(w http.ResponseWriter, r *http.Request) {
	var req edgeRequest
	if !decodeEdge(w, r, &req) {
		return
	}
	created, err := h.eng.AddEdge(r.Context(), req.A, req.B)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{"a": req.A, "b": req.B, "created": created})
}

// DELETE /v1/edges
func (h *Handler) removeEdge(w http.ResponseWriter, r *http.Request) {
	var req edgeRequest
	if !decodeEdge(w, r, &req) {
		return
	}
	removed, err := h.eng.RemoveEdge(r.Context(), req.A, req.B)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"a": req.A, "b": req.B, "removed": removed})
}

// POST /v1/blackout: toggle the blackout on every affected source.
func (h *Handler) globalBlackout(w http.ResponseWriter, r *http.Request) {
	var req blackoutRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := h.eng.GlobalBlackout(r.Context(), req.Blackout)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"blackout": req.Blackout, "nodes_changed": n})
}

// GET /v1/changes?limit=n: recent power changes, oldest first.
func (h *Handler) listChanges(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "change history is not enabled")
		return
	}
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxChangesLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxChangesLimit))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"changes": h.history.Recent(limit)})
}

// POST /v1/circuit/reload: re-read the circuit file and reconcile.
func (h *Handler) reloadCircuit(w http.ResponseWriter, r *http.Request) {
	if h.loader == nil {
		writeError(w, http.StatusNotFound, "circuit reload is not enabled")
		return
	}
	cfg, err := h.loader.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	mode, err := h.eng.Reconcile(r.Context(), cfg)
	if !engine.Applied(mode) {
		slog.Warn("circuit reload failed", "mode", mode, "err", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	resp := map[string]interface{}{
		"reloaded":    true,
		"mode":        mode,
		"nodes_count": len(cfg.Nodes),
		"edges_count": len(cfg.Edges),
	}
	if err != nil {
		slog.Warn("circuit reloaded with start errors", "mode", mode, "err", err)
		resp["start_error"] = err.Error()
	} else {
		slog.Info("circuit reloaded", "mode", mode, "nodes", len(cfg.Nodes), "edges", len(cfg.Edges))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /v1/circuit/graph?format=dot|svg: diagram of the live circuit.
func (h *Handler) circuitGraph(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "dot"
	}
	if format != "dot" && format != "svg" {
		writeError(w, http.StatusBadRequest, "format must be dot or svg")
		return
	}
	dot, err := h.eng.DOT(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if format == "dot" {
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = w.Write([]byte(dot))
		return
	}
	svg, err := render.RenderSVG(r.Context(), dot)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if command queue >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return false
	}
	return true
}

func decodeEdge(w http.ResponseWriter, r *http.Request, req *edgeRequest) bool {
	if !decode(w, r, req) {
		return false
	}
	if err := checkRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
