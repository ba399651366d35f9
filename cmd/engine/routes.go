package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edgecoach/engine/internal/analysis"
	"github.com/edgecoach/engine/internal/coach"
	"github.com/edgecoach/engine/internal/session"
)

type deps struct {
	wsHandler      http.Handler
	registry       *session.Registry
	poseClassifier *analysis.PoseClassifier
	coach          *coach.Coach
	llmRouter      *coach.ChatRouter
}

// registerRoutes wires all HTTP endpoints to the shared mux.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.Handle("/ws/analyze", d.wsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", d.handleHealth)
	mux.HandleFunc("POST /api/pose/classify", d.handlePoseClassify)
	mux.HandleFunc("POST /api/text/vices", d.handleTextVices)
	mux.HandleFunc("POST /api/feedback", d.handleFeedback)
	mux.HandleFunc("GET /api/engines", d.handleEngines)
}

func (d deps) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":          "ok",
		"active_sessions": d.registry.Len(),
	})
}

// handlePoseClassify scores one flat joint-coordinate map.
func (d deps) handlePoseClassify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Joints map[string]float64 `json:"joints"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if len(req.Joints) == 0 {
		http.Error(w, "empty 'joints' field", http.StatusBadRequest)
		return
	}

	result := d.poseClassifier.Classify(r.Context(), req.Joints)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handleTextVices scans a transcript for filler phrases and repeated n-grams.
func (d deps) handleTextVices(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "empty 'text' field", http.StatusBadRequest)
		return
	}

	report := analysis.AnalyzeText(req.Text)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// handleFeedback composes coaching feedback for a one-shot request.
func (d deps) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var in coach.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	fb, err := d.coach.Generate(r.Context(), &in, nil)
	if err != nil {
		slog.Error("feedback generation", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(fb)
}

func (d deps) handleEngines(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"coach": map[string]any{
			"engines": d.llmRouter.Engines(),
		},
	})
}
