package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inboxlens/inboxlens/internal/history"
)

type analyzeRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type actionItemUpdate struct {
	Completed *bool `json:"completed"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

// pagination reads limit and offset, falling back to the store defaults.
func pagination(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, errors.New("limit must be a non-negative integer")
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

func queryBool(r *http.Request, key string) (value, present bool, err error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, true, errors.New(key + " must be true or false")
	}
	return b, true, nil
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func (s *Server) handleAPIAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, s.analyzer.Analyze(req.Subject, req.Body))
}

// emailFilter builds a filter from the query string on top of base.
func emailFilter(r *http.Request, base history.EmailFilter) (history.EmailFilter, error) {
	f := base
	var err error
	if f.Limit, f.Offset, err = pagination(r); err != nil {
		return f, err
	}
	q := r.URL.Query()
	if f.Category == "" {
		f.Category = q.Get("category")
	}
	if f.Sentiment == "" {
		f.Sentiment = q.Get("sentiment")
	}
	for key, dst := range map[string]*bool{
		"important": &f.Important,
		"starred":   &f.Starred,
		"followup":  &f.NeedsFollowup,
	} {
		v, ok, err := queryBool(r, key)
		if err != nil {
			return f, err
		}
		if ok && v {
			*dst = true
		}
	}
	return f, nil
}

func (s *Server) listEmails(w http.ResponseWriter, r *http.Request, base history.EmailFilter) {
	f, err := emailFilter(r, base)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	emails, err := s.store.ListEmails(f)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(emails))
}

func (s *Server) handleAPIEmails(w http.ResponseWriter, r *http.Request) {
	s.listEmails(w, r, history.EmailFilter{})
}

func (s *Server) handleAPIEmailsPreset(base history.EmailFilter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.listEmails(w, r, base)
	}
}

func (s *Server) handleAPIEmailsByCategory(w http.ResponseWriter, r *http.Request) {
	s.listEmails(w, r, history.EmailFilter{Category: chi.URLParam(r, "category")})
}

func (s *Server) handleAPIEmailsBySentiment(w http.ResponseWriter, r *http.Request) {
	s.listEmails(w, r, history.EmailFilter{Sentiment: chi.URLParam(r, "sentiment")})
}

func (s *Server) handleAPIEmail(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	detail, err := s.store.GetEmailDetail(id)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, "email not found")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleAPIEntities(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entities, err := s.store.ListEntities(limit, offset)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(entities))
}

func (s *Server) handleAPIKeywords(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	keywords, err := s.store.ListKeywords(limit, offset)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(keywords))
}

func (s *Server) handleAPIActionItems(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	completed, present, err := queryBool(r, "completed")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var filter *bool
	if present {
		filter = &completed
	}

	items, err := s.store.ListActionItems(filter, limit, offset)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (s *Server) handleAPIActionItemUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req actionItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Completed == nil {
		writeError(w, http.StatusBadRequest, `body must be {"completed": true|false}`)
		return
	}

	if err := s.store.SetActionItemCompleted(id, *req.Completed); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "action item not found")
			return
		}
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "completed": *req.Completed})
}

func (s *Server) handleAPIContacts(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	contacts, err := s.store.ListContacts(limit, offset)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(contacts))
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleAPISync starts a sync, or reports the one already running with 409.
func (s *Server) handleAPISync(w http.ResponseWriter, r *http.Request) {
	if err := s.config.ValidateInbox(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	job, started := s.startSync()
	if !started {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "a sync is already running", "job": job.Snapshot()})
		return
	}
	writeJSON(w, http.StatusAccepted, job.Snapshot())
}

func (s *Server) handleAPIJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.jobManager.Get(chi.URLParam(r, "id"))
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleAPIJobCancel(w http.ResponseWriter, r *http.Request) {
	job := s.jobManager.Get(chi.URLParam(r, "id"))
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job.Cancel()
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
