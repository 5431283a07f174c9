package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/wantokmatch/internal/errs"
	"github.com/hyperjump/wantokmatch/internal/export"
	"github.com/hyperjump/wantokmatch/internal/models"
	"github.com/hyperjump/wantokmatch/internal/search"
	"github.com/hyperjump/wantokmatch/internal/storage"
)

// Entity labels used in error messages.
const (
	labelJob     = "Job"
	labelProfile = "Profile"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSemantic(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.detach(r)
	defer cancel()

	params := searchParams(r)
	params.Query = r.URL.Query().Get("q")
	s.logger.Debug("semantic search request", zap.String("query", params.Query), zap.Int("limit", params.Limit))
	resp, err := s.engine.SemanticSearch(ctx, params)
	if err != nil {
		s.fail(w, err, labelJob)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.pathID(w, r, "jobId")
	if !ok {
		return
	}
	ctx, cancel := s.detach(r)
	defer cancel()

	resp, err := s.engine.SimilarJobs(ctx, jobID, searchParams(r))
	if err != nil {
		s.fail(w, err, labelJob)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMatchJobs(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "userId")
	if !ok {
		return
	}
	ctx, cancel := s.detach(r)
	defer cancel()

	resp, err := s.engine.MatchJobsForUser(ctx, callerFrom(r.Context()), userID, searchParams(r))
	if err != nil {
		s.fail(w, err, labelProfile)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMatchCandidates(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.pathID(w, r, "jobId")
	if !ok {
		return
	}
	ctx, cancel := s.detach(r)
	defer cancel()

	resp, err := s.engine.MatchCandidatesForJob(ctx, callerFrom(r.Context()), jobID, searchParams(r))
	if err != nil {
		s.fail(w, err, labelJob)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExportCandidates(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.pathID(w, r, "jobId")
	if !ok {
		return
	}
	ctx, cancel := s.detach(r)
	defer cancel()

	matches, err := s.engine.MatchCandidatesForJob(ctx, callerFrom(r.Context()), jobID, searchParams(r))
	if err != nil {
		s.fail(w, err, labelJob)
		return
	}
	// Ownership was checked above, so the job exists.
	job, err := s.engine.Job(ctx, jobID)
	if err != nil {
		s.fail(w, err, labelJob)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(job, time.Now())))
	if err := export.WriteCandidates(w, matches); err != nil {
		s.logger.Error("candidate export failed", zap.Int64("job_id", jobID), zap.Error(err))
	}
}

func (s *Server) handleCompatibility(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.pathID(w, r, "jobId")
	if !ok {
		return
	}
	caller := callerFrom(r.Context())
	userID := caller.UserID
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			s.respondError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		userID = id
	}
	ctx, cancel := s.detach(r)
	defer cancel()

	res, err := s.engine.Compatibility(ctx, caller, userID, jobID)
	if err != nil {
		s.fail(w, err, "")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		s.respondError(w, http.StatusNotImplemented, "embedding client not configured")
		return
	}
	stats, err := s.usage.UsageStats(r.Context())
	if err != nil {
		s.fail(w, err, "")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := map[string]interface{}{}
	if s.stats != nil {
		st, err := s.stats.Stats(ctx)
		if err != nil {
			s.logger.Error("stats: embeddings summary failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["embeddings"] = st
	}
	if s.keyword != nil {
		if n, err := s.keyword.DocCount(); err == nil {
			resp["keyword_documents"] = n
		}
	}
	if s.config != nil {
		resp["config"] = map[string]interface{}{
			"primary_provider":  s.config.Embedding.Primary,
			"fallback_provider": s.config.Embedding.Fallback,
			"database_path":     s.config.Storage.DatabasePath,
			"bleve_index_path":  s.config.Storage.BleveIndexPath,
			"ledger_path":       s.config.Storage.LedgerPath,
		}
		if du, err := storage.MeasureDisk(s.config.Storage); err == nil {
			resp["disk_usage_bytes"] = du
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if !s.requireIndexer(w) {
		return
	}
	ctx, cancel := s.detach(r)
	defer cancel()

	report, err := s.indexer.Sync(ctx)
	if err != nil {
		s.fail(w, err, "")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleIndexJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.pathID(w, r, "jobId")
	if !ok || !s.requireIndexer(w) {
		return
	}
	ctx, cancel := s.detach(r)
	defer cancel()

	res, err := s.indexer.IndexJob(ctx, jobID)
	if err != nil {
		s.fail(w, err, labelJob)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleRemoveJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.pathID(w, r, "jobId")
	if !ok || !s.requireIndexer(w) {
		return
	}
	deleted, err := s.indexer.RemoveJob(r.Context(), jobID)
	if err != nil {
		s.fail(w, err, labelJob)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) handleIndexProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "userId")
	if !ok || !s.requireIndexer(w) {
		return
	}
	ctx, cancel := s.detach(r)
	defer cancel()

	res, err := s.indexer.IndexProfile(ctx, userID)
	if err != nil {
		s.fail(w, err, labelProfile)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleRemoveProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "userId")
	if !ok || !s.requireIndexer(w) {
		return
	}
	deleted, err := s.indexer.RemoveProfile(r.Context(), userID)
	if err != nil {
		s.fail(w, err, labelProfile)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) requireIndexer(w http.ResponseWriter) bool {
	if s.indexer == nil {
		s.respondError(w, http.StatusNotImplemented, "indexing not enabled")
		return false
	}
	return true
}

// searchParams reads limit and min_score. Unparseable values are left at
// zero so the engine applies its defaults.
func searchParams(r *http.Request) models.SearchParams {
	q := r.URL.Query()
	var p models.SearchParams
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		p.Limit = n
	}
	if f, err := strconv.ParseFloat(q.Get("min_score"), 64); err == nil {
		p.MinScore = f
	}
	return p
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrEntityNotFound), errors.Is(err, errs.ErrNotIndexedYet):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrDimensionMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrProviderExhausted), errors.Is(err, errs.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. label names the entity in not-found
// messages ("Job", "Profile").
func (s *Server) fail(w http.ResponseWriter, err error, label string) {
	status := statusFor(err)
	if search.IsClientError(err) {
		s.logger.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	} else {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}

	switch {
	case errors.Is(err, errs.ErrNotIndexedYet):
		msg := "This job needs to be indexed first."
		if label == labelProfile {
			msg = "Your profile needs to be indexed first. This happens automatically."
		}
		respondJSON(w, status, map[string]string{"error": label + " not indexed yet", "message": msg})
	case errors.Is(err, errs.ErrEntityNotFound) && label != "":
		respondJSON(w, status, map[string]string{"error": label + " not found"})
	case errors.Is(err, errs.ErrNotAuthorized):
		respondJSON(w, status, map[string]string{"error": "Access denied", "message": err.Error()})
	case status == http.StatusInternalServerError:
		respondJSON(w, status, map[string]string{"error": "Internal server error"})
	default:
		s.respondError(w, status, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
