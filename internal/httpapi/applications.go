package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/example/jobtracker/internal/model"
)

type applicationCreate struct {
	Company     string       `json:"company"`
	Position    string       `json:"position"`
	Status      model.Status `json:"status"`
	DateApplied *time.Time   `json:"dateApplied"`
	Salary      string       `json:"salary"`
	Location    string       `json:"location"`
	JobURL      string       `json:"jobUrl"`
	Notes       string       `json:"notes"`
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.Store.ListApplications(r.Context(), s.owner(r))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var in applicationCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if in.Company == "" || in.Position == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("company and position are required"))
		return
	}
	if in.Status == "" {
		in.Status = model.StatusApplied
	}
	if !model.ValidStatus(in.Status) {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid status: %s", in.Status))
		return
	}

	now := time.Now().UTC()
	dateApplied := now
	if in.DateApplied != nil {
		dateApplied = *in.DateApplied
	}
	app := model.Application{
		ID:          uuid.NewString(),
		Owner:       s.owner(r),
		Company:     in.Company,
		Position:    in.Position,
		Status:      in.Status,
		DateApplied: dateApplied,
		Salary:      in.Salary,
		Location:    in.Location,
		JobURL:      in.JobURL,
		Notes:       in.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.CreateApplication(r.Context(), app); err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("create application: %w", err))
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := s.Store.GetApplication(r.Context(), s.owner(r), chi.URLParam(r, "id"))
	if err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	var patch model.ApplicationPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if patch.Status != nil && !model.ValidStatus(*patch.Status) {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid status: %s", *patch.Status))
		return
	}

	owner, id := s.owner(r), chi.URLParam(r, "id")
	if err := s.Store.UpdateApplication(r.Context(), owner, id, patch); err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	app, err := s.Store.GetApplication(r.Context(), owner, id)
	if err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleDeleteApplication(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.DeleteApplication(r.Context(), s.owner(r), chi.URLParam(r, "id")); err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "application deleted"})
}

func writeNotFoundOr500(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrNotFound) {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	writeErr(w, http.StatusInternalServerError, err)
}
