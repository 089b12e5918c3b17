package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type chatRequest struct {
	Message string `json:"message"`
}

const chatPromptTemplate = `You are a supportive career advisor helping someone with their job search.

Their current application pipeline:
%s

Answer their question concisely and practically. Plain text, no markdown headings.

Question: %s`

// handleAIChat answers a career question grounded in the owner's current
// application pipeline.
func (s *Server) handleAIChat(w http.ResponseWriter, r *http.Request) {
	if s.Generator == nil {
		writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("ai is not configured"))
		return
	}
	var in chatRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Message) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("message is required"))
		return
	}

	ctx := r.Context()
	apps, err := s.Store.ListApplications(ctx, s.owner(r))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	var pipeline strings.Builder
	if len(apps) == 0 {
		pipeline.WriteString("(no applications tracked yet)")
	}
	for _, app := range apps {
		fmt.Fprintf(&pipeline, "- %s at %s: %s\n", app.Position, app.Company, app.Status)
	}

	reply, err := s.Generator.Generate(ctx, fmt.Sprintf(chatPromptTemplate, pipeline.String(), in.Message))
	if err != nil {
		writeErr(w, http.StatusBadGateway, fmt.Errorf("generate reply: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reply": reply})
}

func (s *Server) handleAIStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"available": s.Generator != nil,
		"model":     s.Config.GeminiModel,
	})
}
