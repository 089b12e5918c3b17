package httpapi

import (
	"net/http"
	"time"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := s.owner(r)

	stats, err := s.Store.GetOrCreateStats(ctx, owner)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	counts, err := s.Store.CountTasks(ctx, owner, time.Now().UTC())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	unlocks, err := s.Store.ListUnlocks(ctx, owner)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"totalPoints":       stats.TotalPoints,
		"currentStreak":     stats.CurrentStreak,
		"totalTasks":        counts.Total,
		"completedTasks":    counts.Completed,
		"pendingTasks":      counts.Pending,
		"todayCompleted":    counts.CompletedToday,
		"achievementsCount": len(unlocks),
	})
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	unlocks, err := s.Store.ListUnlocks(r.Context(), s.owner(r))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]map[string]any, 0, len(unlocks))
	for _, u := range unlocks {
		out = append(out, map[string]any{
			"achievementId": u.AchievementID,
			"unlockedAt":    u.UnlockedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.ResetOwner(r.Context(), s.owner(r)); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "all data reset"})
}
