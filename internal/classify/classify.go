// Package classify turns raw email text into structured job events.
//
// Classification is two-tiered: Classify is a pure keyword/pattern matcher
// that handles the common confirmation-mail shapes for free, and WithAI
// (ai.go) is an optional fallback through a hosted model for mail the
// patterns miss.
package classify

import (
	"regexp"
	"strings"

	"github.com/example/jobtracker/internal/model"
)

// Matching windows. The body is cut to bodyLimit before any matching, so a
// keyword past that point is never seen; company and position patterns look
// at progressively smaller prefixes.
const (
	bodyLimit         = 2000
	companyBodyLimit  = 500
	positionBodyLimit = 1000
	positionMaxLen    = 100
)

// relevanceTerms is the coarse gate: an email with none of these in
// subject+body is not job-related and is dropped before any extraction.
var relevanceTerms = []string{
	"application",
	"position",
	"role",
	"job",
	"interview",
	"assessment",
	"candidate",
	"thank you for applying",
}

// statusEntry pairs a status with the keywords that imply it.
type statusEntry struct {
	status   model.Status
	keywords []string
}

// statusTable is evaluated top to bottom, first match wins. The order is a
// deliberate tie-break (an email carrying both "assessment" and "interview"
// resolves to Assessment) and must stay an ordered slice, not a map.
var statusTable = []statusEntry{
	{model.StatusApplied, []string{
		"thank you for applying",
		"thanks for applying",
		"application received",
		"we have received your application",
		"application confirmation",
	}},
	{model.StatusAssessment, []string{
		"assessment",
		"test",
		"coding challenge",
		"take-home assignment",
		"complete the following",
		"technical challenge",
	}},
	{model.StatusInterview, []string{
		"interview",
		"would like to schedule",
		"invitation to interview",
		"meet with",
		"video call",
		"phone screen",
		"schedule a call",
	}},
	{model.StatusRejected, []string{
		"unfortunately",
		"we have decided",
		"not moving forward",
		"selected other candidates",
		"regret to inform",
		"not selected",
		"pursue other candidates",
	}},
}

// companyPatterns look for a capitalized phrase around team/careers/recruiting
// or after from/at/@. First match wins. Each pattern is tried against the
// subject and the body prefix separately so a greedy capture cannot run
// across the field boundary.
var companyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`from\s+([A-Z][a-zA-Z\s&]+?)(?:\s+team|\s+careers|\s+recruiting)`),
	regexp.MustCompile(`([A-Z][a-zA-Z\s&]+?)\s+(?:team|careers|recruiting|talent)`),
	regexp.MustCompile(`(?:at|@)\s+([A-Z][a-zA-Z\s&]+)`),
}

// positionPatterns are tried case-insensitively, first match wins. The
// verbatim-title list goes before the looser line-start heuristic, which
// would otherwise capture whole greeting lines that happen to end in a
// discipline word.
var positionPatterns = []*regexp.Regexp{
	// "Software Engineer position", "Data Analyst role"
	regexp.MustCompile(`(?i)(?:to|for|as)\s+(?:the\s+)?(?:a\s+)?([A-Z][a-zA-Z\s\-/]+?)\s+(?:position|role|opening|job)`),
	// "Position: Software Engineer"
	regexp.MustCompile(`(?i)(?:position|role|job title):\s*([A-Z][a-zA-Z\s\-/]+)`),
	// "applied to Software Engineer", "applying for Data Analyst"
	regexp.MustCompile(`(?i)(?:applied to|applying for|application for)\s+(?:the\s+)?(?:a\s+)?([A-Z][a-zA-Z\s\-/]+)`),
	// well-known titles verbatim
	regexp.MustCompile(`(?i)(Software Engineer|Data Analyst|Product Manager|Web Developer|Full Stack Developer|Frontend Developer|Backend Developer|DevOps Engineer|QA Engineer|UI/UX Designer|Business Analyst|Project Manager|Data Scientist|ML Engineer)`),
	// title ending in a common discipline word at a line start
	regexp.MustCompile(`(?i)(?:^|\n)([A-Z][a-zA-Z\s]+(?:Engineer|Developer|Analyst|Manager|Designer|Architect|Scientist|Specialist|Coordinator|Consultant|Lead))`),
}

var trailingClause = regexp.MustCompile(`\s+(at|with|for)\s+.*$`)

const (
	UnknownCompany       = "Unknown Company"
	PositionNotSpecified = "Position Not Specified"
)

// Classify maps an email's subject and body to a job event, or nil when the
// email is not job-related. Deterministic, no side effects, no network.
func Classify(body, subject string) *model.JobEvent {
	body = truncate(body, bodyLimit)
	lowered := strings.ToLower(subject + " " + body)

	relevant := false
	for _, term := range relevanceTerms {
		if strings.Contains(lowered, term) {
			relevant = true
			break
		}
	}
	if !relevant {
		return nil
	}

	status := model.StatusApplied
	for _, entry := range statusTable {
		if containsAny(lowered, entry.keywords) {
			status = entry.status
			break
		}
	}

	company := UnknownCompany
	companyFields := []string{subject, truncate(body, companyBodyLimit)}
matchCompany:
	for _, pattern := range companyPatterns {
		for _, field := range companyFields {
			if m := pattern.FindStringSubmatch(field); m != nil {
				company = strings.TrimSpace(m[1])
				break matchCompany
			}
		}
	}

	position := PositionNotSpecified
	positionText := subject + " " + truncate(body, positionBodyLimit)
	for _, pattern := range positionPatterns {
		if m := pattern.FindStringSubmatch(positionText); m != nil {
			position = truncate(strings.TrimSpace(m[1]), positionMaxLen)
			position = trailingClause.ReplaceAllString(position, "")
			break
		}
	}

	return &model.JobEvent{
		Company:      company,
		Position:     position,
		Status:       status,
		IsJobRelated: true,
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
