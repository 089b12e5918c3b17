package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/example/jobtracker/internal/mailbox"
	"github.com/example/jobtracker/internal/syncer"
)

type syncRequest struct {
	DaysBack int  `json:"daysBack"`
	UseAI    bool `json:"useAI"`
}

// handleEmailSync runs one mailbox sync for the owner. The merge engine has a
// read-then-write race on the imported-message-id set, so concurrent syncs
// for the same owner are rejected with 409 rather than coordinated.
func (s *Server) handleEmailSync(w http.ResponseWriter, r *http.Request) {
	var in syncRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
			return
		}
	}
	if in.DaysBack <= 0 {
		in.DaysBack = 30
	}

	owner := s.owner(r)
	if !s.beginSync(owner) {
		writeErr(w, http.StatusConflict, fmt.Errorf("a sync for this owner is already running"))
		return
	}
	defer s.endSync(owner)

	ctx := r.Context()
	sync := syncer.New(s.Store, nil, s.Generator)
	sync.MaxResults = s.Config.SyncMaxResults
	sync.MaxAICalls = s.Config.SyncMaxAICalls

	mb, err := mailbox.NewGmail(ctx, s.Config.GmailCredsPath, s.Config.GmailTokenPath)
	if err != nil {
		err = sync.FailSetup(ctx, owner, fmt.Errorf("gmail not configured: %w", err))
		writeErr(w, http.StatusServiceUnavailable, err)
		return
	}
	sync.Mailbox = mb

	summary, err := sync.Run(ctx, owner, in.DaysBack, in.UseAI)
	if err != nil {
		writeErr(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Synced %d emails. Added %d, updated %d. AI calls: %d",
			summary.EmailsProcessed, summary.ApplicationsAdded,
			summary.ApplicationsUpdated, summary.AICallsUsed),
		"emailsProcessed":     summary.EmailsProcessed,
		"applicationsAdded":   summary.ApplicationsAdded,
		"applicationsUpdated": summary.ApplicationsUpdated,
		"errors":              summary.Errors,
		"aiCallsUsed":         summary.AICallsUsed,
	})
}

// handleSyncStatus is the readiness probe: reports whether the mailbox and AI
// capabilities are configured, plus the recent run log, without syncing.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	runs, err := s.Store.ListSyncRuns(r.Context(), s.owner(r), 10)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"gmail":       mailbox.CheckSetup(s.Config.GmailCredsPath, s.Config.GmailTokenPath),
		"aiAvailable": s.Generator != nil,
		"recentRuns":  runs,
	})
}

func (s *Server) beginSync(owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncing[owner] {
		return false
	}
	s.syncing[owner] = true
	return true
}

func (s *Server) endSync(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.syncing, owner)
}
