package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/example/jobtracker/internal/model"
)

// Generator is the injected text-generation capability. The classifier never
// depends on a concrete provider so tests can supply a stub.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const aiBodyLimit = 1500

const aiPromptTemplate = `Analyze this job email and extract info in JSON format:

Subject: %s
Content: %s

Extract:
1. company_name: Company name (string)
2. position: Job title (string)
3. status: One of ["Applied", "Assessment", "Interview", "Rejected"]

Return ONLY valid JSON. If not job-related: {"is_job_related": false}

Example: {"company_name": "Google", "position": "SWE", "status": "Interview", "is_job_related": true}

JSON:`

type aiVerdict struct {
	CompanyName  string `json:"company_name"`
	Position     string `json:"position"`
	Status       string `json:"status"`
	IsJobRelated *bool  `json:"is_job_related"`
}

// WithAI classifies via the hosted model. Invoked only when Classify found
// nothing. Any failure (call, parse, not-job-related verdict) degrades to nil
// rather than an error; call failures are logged so a misconfigured model is
// visible without aborting a sync run.
func WithAI(ctx context.Context, gen Generator, body, subject string) *model.JobEvent {
	if gen == nil {
		return nil
	}
	prompt := fmt.Sprintf(aiPromptTemplate, subject, truncate(body, aiBodyLimit))

	text, err := gen.Generate(ctx, prompt)
	if err != nil {
		log.Printf("ai classify: %v", err)
		return nil
	}

	payload, err := ExtractJSON(text)
	if err != nil {
		return nil
	}

	var verdict aiVerdict
	if err := json.Unmarshal(payload, &verdict); err != nil {
		return nil
	}
	if verdict.IsJobRelated != nil && !*verdict.IsJobRelated {
		return nil
	}

	status := model.Status(verdict.Status)
	if !model.ValidStatus(status) {
		status = model.StatusApplied
	}
	company := verdict.CompanyName
	if company == "" {
		company = UnknownCompany
	}
	position := truncate(verdict.Position, positionMaxLen)
	if position == "" {
		position = PositionNotSpecified
	}

	return &model.JobEvent{
		Company:      company,
		Position:     position,
		Status:       status,
		IsJobRelated: true,
	}
}

// ExtractJSON pulls a JSON payload out of possibly fenced model output.
// Fallback order: plain parse, strip a Markdown code fence (with or without a
// "json" language tag) and retry, fail.
func ExtractJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	if strings.HasPrefix(trimmed, "```") {
		inner := strings.TrimPrefix(trimmed, "```")
		if idx := strings.Index(inner, "```"); idx >= 0 {
			inner = inner[:idx]
		}
		inner = strings.TrimPrefix(strings.TrimSpace(inner), "json")
		inner = strings.TrimSpace(inner)
		if json.Valid([]byte(inner)) {
			return json.RawMessage(inner), nil
		}
	}

	return nil, fmt.Errorf("no JSON payload in model output")
}
