package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/example/jobtracker/internal/gamify"
	"github.com/example/jobtracker/internal/model"
)

type taskCreate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.Store.ListTasks(r.Context(), s.owner(r))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in taskCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if in.Title == "" || in.Category == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("title and category are required"))
		return
	}
	if in.Priority == "" {
		in.Priority = "medium"
	}

	task := model.Task{
		ID:          uuid.NewString(),
		Owner:       s.owner(r),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Priority:    in.Priority,
		Points:      gamify.PointsFor(in.Category),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Store.CreateTask(r.Context(), task); err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("create task: %w", err))
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch model.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	ctx := r.Context()
	owner := s.owner(r)
	task, err := s.Store.GetTask(ctx, owner, chi.URLParam(r, "id"))
	if err != nil {
		writeNotFoundOr500(w, err)
		return
	}

	if patch.Completed != nil && *patch.Completed != task.Completed {
		if *patch.Completed {
			if err := s.completeTask(ctx, owner, &task); err != nil {
				writeErr(w, http.StatusInternalServerError, err)
				return
			}
		} else {
			if err := s.uncompleteTask(ctx, owner, &task); err != nil {
				writeErr(w, http.StatusInternalServerError, err)
				return
			}
		}
	}

	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Category != nil {
		task.Category = *patch.Category
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}

	if err := s.Store.SaveTask(ctx, task); err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// completeTask awards points, advances the streak and unlocks any newly
// earned achievements. The task row itself is saved by the caller.
func (s *Server) completeTask(ctx context.Context, owner string, task *model.Task) error {
	now := time.Now().UTC()
	task.Completed = true
	task.CompletedAt = &now

	stats, err := s.Store.GetOrCreateStats(ctx, owner)
	if err != nil {
		return err
	}
	gamify.ApplyCompletion(&stats, task.Points, now)

	counts, err := s.Store.CountTasks(ctx, owner, now)
	if err != nil {
		return err
	}
	// the task being completed is not persisted yet
	progress := gamify.Progress{
		CompletedTasks: counts.Completed + 1,
		CompletedToday: counts.CompletedToday + 1,
	}

	unlocks, err := s.Store.ListUnlocks(ctx, owner)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(unlocks))
	for _, u := range unlocks {
		have[u.AchievementID] = true
	}

	for _, id := range gamify.Unlockable(stats, progress, have) {
		if err := s.Store.RecordUnlock(ctx, owner, id); err != nil {
			return err
		}
		stats.TotalPoints += gamify.Bonus(id)
	}
	return s.Store.SaveStats(ctx, stats)
}

func (s *Server) uncompleteTask(ctx context.Context, owner string, task *model.Task) error {
	task.Completed = false
	task.CompletedAt = nil

	stats, err := s.Store.GetOrCreateStats(ctx, owner)
	if err != nil {
		return err
	}
	gamify.ApplyUncompletion(&stats, task.Points)
	return s.Store.SaveStats(ctx, stats)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := s.owner(r)
	task, err := s.Store.GetTask(ctx, owner, chi.URLParam(r, "id"))
	if err != nil {
		writeNotFoundOr500(w, err)
		return
	}

	// deleting a completed task takes its points back
	if task.Completed {
		stats, err := s.Store.GetOrCreateStats(ctx, owner)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		gamify.ApplyUncompletion(&stats, task.Points)
		if err := s.Store.SaveStats(ctx, stats); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
	}

	if err := s.Store.DeleteTask(ctx, owner, task.ID); err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "task deleted"})
}
