package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mohaoran/AlphaCouncil/internal/models"
	"github.com/mohaoran/AlphaCouncil/internal/report"
	"github.com/mohaoran/AlphaCouncil/internal/storage"
	"github.com/mohaoran/AlphaCouncil/internal/workflow"
)

// analysisRequest mirrors the upstream service request body.
type analysisRequest struct {
	StockSymbol   string   `json:"stock_symbol"`
	MarketType    string   `json:"market_type"`
	AnalysisDate  string   `json:"analysis_date"`
	Analysts      []string `json:"analysts"`
	ResearchDepth int      `json:"research_depth"`
}

// analysisPayload is the per-run summary inside the response envelope.
type analysisPayload struct {
	StockSymbol    string                   `json:"stock_symbol"`
	MarketType     string                   `json:"market_type"`
	AnalysisDate   string                   `json:"analysis_date"`
	Analysts       []string                 `json:"analysts"`
	ResearchDepth  int                      `json:"research_depth"`
	SessionID      string                   `json:"session_id"`
	Success        bool                     `json:"success"`
	Error          string                   `json:"error,omitempty"`
	IsDemo         bool                     `json:"is_demo"`
	DemoReason     string                   `json:"demo_reason,omitempty"`
	Decision       *models.DecisionArtifact `json:"decision,omitempty"`
	MarkdownReport string                   `json:"markdown_report,omitempty"`
}

type analysisResponse struct {
	RequestID  string          `json:"request_id"`
	DurationMS int64           `json:"duration_ms"`
	Analysis   analysisPayload `json:"analysis"`
}

type errorResponse struct {
	RequestID  string `json:"request_id"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	started := time.Now()

	fail := func(status int, msg string) {
		writeJSON(w, status, errorResponse{
			RequestID:  requestID,
			DurationMS: time.Since(started).Milliseconds(),
			Error:      msg,
		})
	}

	if s.cfg.ProviderKey() == "" {
		fail(http.StatusServiceUnavailable, "LLM provider API key is not configured")
		return
	}

	var body analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	market, err := models.ParseMarketType(body.MarketType)
	if err != nil {
		fail(http.StatusUnprocessableEntity, err.Error())
		return
	}
	if body.AnalysisDate == "" {
		body.AnalysisDate = time.Now().Format("2006-01-02")
	}

	req := models.AnalysisRequest{
		StockSymbol:      body.StockSymbol,
		MarketType:       market,
		AnalysisDate:     body.AnalysisDate,
		SelectedAnalysts: body.Analysts,
		ResearchDepth:    body.ResearchDepth,
	}

	log.Printf("[Server] analysis request_id=%s symbol=%s market=%s depth=%d",
		requestID, req.StockSymbol, req.MarketType, req.ResearchDepth)

	decision, err := s.runner.Run(r.Context(), req)
	if err != nil {
		failure, ok := workflow.AsFailure(err)
		if !ok {
			fail(http.StatusInternalServerError, err.Error())
			return
		}
		s.persistFailure(r, failure)
		if failure.Kind == string(workflow.KindConfig) {
			fail(http.StatusUnprocessableEntity, failure.Reason)
			return
		}
		fail(http.StatusInternalServerError, failure.Error())
		return
	}

	markdown := report.RenderMarkdown(decision)
	if _, err := report.Export(s.cfg.ResultsDir, decision); err != nil {
		log.Printf("[Server] report export failed request_id=%s: %v", requestID, err)
	}
	s.persistDecision(r, decision)

	durationMS := time.Since(started).Milliseconds()
	log.Printf("[Server] analysis done request_id=%s duration_ms=%d demo=%v",
		requestID, durationMS, decision.IsDemo)

	writeJSON(w, http.StatusOK, analysisResponse{
		RequestID:  requestID,
		DurationMS: durationMS,
		Analysis: analysisPayload{
			StockSymbol:    decision.StockSymbol,
			MarketType:     string(decision.MarketType),
			AnalysisDate:   decision.AnalysisDate,
			Analysts:       decision.SelectedAnalysts,
			ResearchDepth:  decision.ResearchDepth,
			SessionID:      decision.SessionID,
			Success:        decision.Success,
			Error:          decision.Error,
			IsDemo:         decision.IsDemo,
			DemoReason:     decision.DemoReason,
			Decision:       decision,
			MarkdownReport: markdown,
		},
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "run history store is not configured",
		})
		return
	}
	runs, err := s.store.ListRuns(r.Context(), 50)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []storage.RunSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) persistDecision(r *http.Request, decision *models.DecisionArtifact) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveDecision(r.Context(), decision); err != nil {
		log.Printf("[Server] persist run failed session=%s: %v", decision.SessionID, err)
	}
}

func (s *Server) persistFailure(r *http.Request, failure *models.FailureArtifact) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveFailure(r.Context(), failure); err != nil {
		log.Printf("[Server] persist failed run session=%s: %v", failure.SessionID, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] encode response: %v", err)
	}
}
