package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/inboxlens/inboxlens/internal/history"
)

const dashboardListSize = 10

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load stats")
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}

	followups, err := s.store.DueFollowups(s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load follow-ups")
		http.Error(w, "failed to load follow-ups", http.StatusInternalServerError)
		return
	}

	open := false
	items, err := s.store.ListActionItems(&open, dashboardListSize, 0)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load action items")
		http.Error(w, "failed to load action items", http.StatusInternalServerError)
		return
	}

	priority, err := s.store.HighPriority(s.config.Digest.MinPriority, dashboardListSize)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load priority mail")
		http.Error(w, "failed to load priority mail", http.StatusInternalServerError)
		return
	}

	lastSync, err := s.jobPersistence.Load()
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to load last sync")
	}

	var active *JobSnapshot
	if job := s.jobManager.GetActive(); job != nil {
		snap := job.Snapshot()
		active = &snap
	}

	s.render(w, r, "dashboard", map[string]any{
		"Title":       "Dashboard",
		"Stats":       stats,
		"Followups":   followups,
		"ActionItems": items,
		"Priority":    priority,
		"ActiveJob":   active,
		"LastSync":    lastSync,
		"Message":     r.URL.Query().Get("msg"),
	})
}

// handleActionToggle sets an action item's completed flag from the form.
func (s *Server) handleActionToggle(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	completed, err := strconv.ParseBool(r.FormValue("completed"))
	if err != nil {
		http.Error(w, "completed must be true or false", http.StatusBadRequest)
		return
	}

	if err := s.store.SetActionItemCompleted(id, completed); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			http.Error(w, "action item not found", http.StatusNotFound)
			return
		}
		s.log.Error().Err(err).Int64("action_item", id).Msg("failed to update action item")
		http.Error(w, "failed to update action item", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSyncForm(w http.ResponseWriter, r *http.Request) {
	if err := s.config.ValidateInbox(); err != nil {
		http.Redirect(w, r, "/?msg="+url.QueryEscape(err.Error()), http.StatusSeeOther)
		return
	}
	if _, started := s.startSync(); !started {
		http.Redirect(w, r, "/?msg="+url.QueryEscape("A sync is already running"), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/?msg="+url.QueryEscape("Sync started"), http.StatusSeeOther)
}
