package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"watchdog/internal/config"
	"watchdog/internal/models"
	"watchdog/internal/providers"
	"watchdog/internal/storage"
	"watchdog/internal/vector"
	"watchdog/internal/workflows"

	"go.uber.org/zap"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

const pipelineWorkflowID = "pipeline-run"

type Server struct {
	cfg         config.Config
	log         *zap.Logger
	db          *storage.DB
	docRepo     *storage.DocumentRepo
	chunkRepo   *storage.ChunkRepo
	entityRepo  *storage.EntityRepo
	anomalyRepo *storage.AnomalyRepo
	jobRepo     *storage.JobRepo
	statsRepo   *storage.StatsRepo
	searcher    *vector.Searcher
	providers   *providers.Manager
	temporal    tclient.Client
}

func NewServer(cfg config.Config, log *zap.Logger) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:         cfg,
		log:         log,
		db:          db,
		docRepo:     storage.NewDocumentRepo(db),
		chunkRepo:   storage.NewChunkRepo(db),
		entityRepo:  storage.NewEntityRepo(db),
		anomalyRepo: storage.NewAnomalyRepo(db),
		jobRepo:     storage.NewJobRepo(db),
		statsRepo:   storage.NewStatsRepo(db),
		searcher:    vector.NewSearcher(db.Pool),
		providers:   pm,
		temporal:    tc,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/documents", s.handleDocuments)
	mux.HandleFunc("/documents/", s.handleDocumentScoped)
	mux.HandleFunc("/entities", s.handleEntities)
	mux.HandleFunc("/entities/", s.handleEntityScoped)
	mux.HandleFunc("/anomalies", s.handleAnomalies)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/jobs", s.handleJobs)
	mux.HandleFunc("/pipeline/run", s.handlePipelineRun)
	mux.HandleFunc("/pipeline/status", s.handlePipelineStatus)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	limit, offset := pageParams(r, 50)
	docs, total, err := s.docRepo.List(r.Context(), r.URL.Query().Get("status"), r.URL.Query().Get("sort"), limit, offset)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "total": total})
}

func (s *Server) handleDocumentScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/documents/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	id := parts[0]
	doc, err := s.docRepo.Get(r.Context(), id)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	if len(parts) == 2 && parts[1] == "chunks" {
		chunks, err := s.chunkRepo.ListByDocument(r.Context(), id)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"document_id": id, "chunks": chunks})
		return
	}
	if len(parts) > 1 {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	anomalies, err := s.anomalyRepo.ListByDocument(r.Context(), id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": doc, "anomalies": anomalies})
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	limit, offset := pageParams(r, 50)
	entities, total, err := s.entityRepo.List(r.Context(), r.URL.Query().Get("type"), limit, offset)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": entities, "total": total})
}

func (s *Server) handleEntityScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/entities/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	entity, err := s.entityRepo.Get(r.Context(), id)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	mentions, err := s.entityRepo.ListMentions(r.Context(), id, 100)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	relationships, err := s.entityRepo.ListRelationships(r.Context(), id, 100)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entity":        entity,
		"mentions":      mentions,
		"relationships": relationships,
	})
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	limit, offset := pageParams(r, 50)
	anomalies, total, err := s.anomalyRepo.List(r.Context(), r.URL.Query().Get("severity"), r.URL.Query().Get("type"), limit, offset)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"anomalies": anomalies, "total": total})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("query is required"))
		return
	}
	vectors, _, err := s.providers.Embedder().Embed(r.Context(), providers.EmbedRequest{
		Operation: "search_query",
		Inputs:    []string{req.Query},
		Dimension: s.cfg.EmbedDim,
	})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if len(vectors) == 0 {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("embedding provider returned no vectors"))
		return
	}
	results, err := s.searcher.SearchChunks(r.Context(), vectors[0], req.Limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": req.Query, "results": results})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	stats, err := s.statsRepo.Collect(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	limit, _ := pageParams(r, 20)
	jobs, err := s.jobRepo.ListRecent(r.Context(), limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req workflows.PipelineRunInput
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
	}
	if req.MaxConcurrentDocuments <= 0 {
		req.MaxConcurrentDocuments = s.cfg.MaxConcurrentDocuments
	}
	if req.PauseMillis <= 0 {
		req.PauseMillis = s.cfg.TriagePauseMillis
	}
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       pipelineWorkflowID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.PipelineRunWorkflow, req)
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	s.log.Info("pipeline run started",
		zap.String("workflow_id", we.GetID()),
		zap.String("run_id", we.GetRunID()))
	writeJSON(w, http.StatusAccepted, map[string]any{"workflow_id": we.GetID(), "run_id": we.GetRunID()})
}

func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	resp, err := s.temporal.QueryWorkflow(r.Context(), pipelineWorkflowID, "", workflows.QueryGetProgress)
	if err != nil {
		// No live run to query; report DB-derived status instead.
		stats, sErr := s.statsRepo.Collect(r.Context())
		if sErr != nil {
			writeErr(w, http.StatusInternalServerError, sErr)
			return
		}
		jobs, jErr := s.jobRepo.ListRecent(r.Context(), 10)
		if jErr != nil {
			writeErr(w, http.StatusInternalServerError, jErr)
			return
		}
		settled := stats.DocumentsByState[models.StatusTriaged] + stats.DocumentsByState[models.StatusOCRFailed]
		progressPct := 0.0
		if stats.Documents > 0 {
			progressPct = float64(settled) / float64(stats.Documents) * 100
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"running":             false,
			"documents_by_status": stats.DocumentsByState,
			"progress_pct":        progressPct,
			"recent_jobs":         jobs,
		})
		return
	}
	var prog workflows.PipelineProgress
	if err := resp.Get(&prog); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"running": true, "progress": prog})
}

func pageParams(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 200 {
		limit = 200
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}
	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{Code: "WD-DB-5001", Message: "Database schema is not initialized. Run migrations and retry."}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{Code: "WD-DB-5002", Message: "Database connection is unavailable. Check local services and retry."}
		default:
			return apiError{Code: "WD-API-5000", Message: "Internal server error. Please retry or check service logs."}
		}
	case status == http.StatusBadRequest:
		return apiError{Code: "WD-API-4001", Message: "Invalid request. Check inputs and retry."}
	case status == http.StatusNotFound:
		return apiError{Code: "WD-API-4004", Message: "Resource not found."}
	case status == http.StatusMethodNotAllowed:
		return apiError{Code: "WD-API-4005", Message: "Method not allowed."}
	case status == http.StatusConflict:
		return apiError{Code: "WD-API-4009", Message: "A pipeline run is already in progress."}
	default:
		return apiError{Code: "WD-API-4000", Message: "Request failed."}
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
