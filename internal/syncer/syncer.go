// Package syncer drives one mailbox sync: fetch candidate messages, classify
// them, and merge the resulting job events into the application store.
//
// Execution is single-threaded and synchronous. The caller is responsible for
// keeping at most one sync per owner in flight; the merge path reads the
// imported-message-id set once up front and would race with itself.
package syncer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/jobtracker/internal/classify"
	"github.com/example/jobtracker/internal/mailbox"
	"github.com/example/jobtracker/internal/model"
	"github.com/example/jobtracker/internal/store"
)

// Mailbox supplies candidate messages. *mailbox.GmailFetcher satisfies it.
type Mailbox interface {
	Search(ctx context.Context, daysBack, maxResults int) ([]string, error)
	Fetch(ctx context.Context, id string) (mailbox.Message, error)
}

// Store is the persistence subset the merge engine needs.
type Store interface {
	ImportedMessageIDs(ctx context.Context, owner string) (map[string]bool, error)
	FindByCompanyPosition(ctx context.Context, owner, company, position string) (model.Application, error)
	ApplySyncBatch(ctx context.Context, creates []model.Application, updates []store.StatusUpdate) error
	AppendSyncRun(ctx context.Context, run model.SyncRun) error
}

// Summary is the outcome of one sync invocation, returned to the caller and
// mirrored into the SyncRun log.
type Summary struct {
	EmailsProcessed     int      `json:"emailsProcessed"`
	ApplicationsAdded   int      `json:"applicationsAdded"`
	ApplicationsUpdated int      `json:"applicationsUpdated"`
	Errors              []string `json:"errors,omitempty"`
	AICallsUsed         int      `json:"aiCallsUsed"`
}

const (
	errSampleLimit   = 5
	perMessageErrLen = 50
	runErrLen        = 200
)

type Syncer struct {
	Store      Store
	Mailbox    Mailbox
	Generator  classify.Generator
	MaxResults int
	MaxAICalls int
	AIPause    time.Duration
}

func New(st Store, mb Mailbox, gen classify.Generator) *Syncer {
	return &Syncer{
		Store:      st,
		Mailbox:    mb,
		Generator:  gen,
		MaxResults: 50,
		MaxAICalls: 10,
		AIPause:    500 * time.Millisecond,
	}
}

// Run performs one sync for the owner over the [now-daysBack, now] window.
//
// Per-message failures are recorded and skipped; failures before or after the
// message loop (mailbox setup, search, final commit) are fatal: they are
// logged as a SyncRun with status error and returned to the caller.
func (s *Syncer) Run(ctx context.Context, owner string, daysBack int, useAI bool) (Summary, error) {
	if s.Mailbox == nil {
		return Summary{}, s.failRun(ctx, owner, fmt.Errorf("mailbox not configured"))
	}
	if daysBack <= 0 {
		daysBack = 30
	}

	ids, err := s.Mailbox.Search(ctx, daysBack, s.MaxResults)
	if err != nil {
		return Summary{}, s.failRun(ctx, owner, fmt.Errorf("search mailbox: %w", err))
	}

	imported, err := s.Store.ImportedMessageIDs(ctx, owner)
	if err != nil {
		return Summary{}, s.failRun(ctx, owner, fmt.Errorf("load imported ids: %w", err))
	}

	var (
		summary Summary
		allErrs []string
		creates []*model.Application
		updates []store.StatusUpdate
		// creates within this run, keyed by company|position, so a second
		// message about the same opening updates the pending row instead of
		// inserting a duplicate
		pending = make(map[string]*model.Application)
	)

	for _, id := range ids {
		if imported[id] {
			continue
		}
		if err := s.processMessage(ctx, owner, id, useAI, &summary, pending, &creates, &updates); err != nil {
			allErrs = append(allErrs, fmt.Sprintf("%s: %s", shortID(id), truncate(err.Error(), perMessageErrLen)))
		}
	}

	batch := make([]model.Application, 0, len(creates))
	for _, app := range creates {
		batch = append(batch, *app)
	}
	if err := s.Store.ApplySyncBatch(ctx, batch, updates); err != nil {
		return Summary{}, s.failRun(ctx, owner, fmt.Errorf("commit sync batch: %w", err))
	}

	status := model.SyncSuccess
	if len(allErrs) > 0 {
		status = model.SyncPartial
		summary.Errors = allErrs
		if len(summary.Errors) > errSampleLimit {
			summary.Errors = summary.Errors[:errSampleLimit]
		}
	}
	run := model.SyncRun{
		ID:                  uuid.NewString(),
		Owner:               owner,
		EmailsProcessed:     summary.EmailsProcessed,
		ApplicationsAdded:   summary.ApplicationsAdded,
		ApplicationsUpdated: summary.ApplicationsUpdated,
		Status:              status,
		ErrorSummary:        strings.Join(summary.Errors, "; "),
		CreatedAt:           time.Now().UTC(),
	}
	if err := s.Store.AppendSyncRun(ctx, run); err != nil {
		return Summary{}, fmt.Errorf("append sync run: %w", err)
	}
	return summary, nil
}

func (s *Syncer) processMessage(ctx context.Context, owner, id string, useAI bool,
	summary *Summary, pending map[string]*model.Application,
	creates *[]*model.Application, updates *[]store.StatusUpdate) error {

	msg, err := s.Mailbox.Fetch(ctx, id)
	if err != nil {
		return err
	}

	event := classify.Classify(msg.Body, msg.Subject)
	if event == nil && useAI && s.Generator != nil && summary.AICallsUsed < s.MaxAICalls {
		event = classify.WithAI(ctx, s.Generator, msg.Body, msg.Subject)
		summary.AICallsUsed++
		if s.AIPause > 0 {
			time.Sleep(s.AIPause)
		}
	}
	if event == nil {
		return nil
	}

	summary.EmailsProcessed++
	return s.merge(ctx, owner, *event, msg, summary, pending, creates, updates)
}

// merge decides create, update or skip for one job event. Match order: a row
// created earlier in this run for the same (company, position), then an
// existing stored row on the same key. The loose company+position key is
// intentional (it lets an email update a manually entered application) even
// though it can conflate two openings at the same employer.
func (s *Syncer) merge(ctx context.Context, owner string, event model.JobEvent, msg mailbox.Message,
	summary *Summary, pending map[string]*model.Application,
	creates *[]*model.Application, updates *[]store.StatusUpdate) error {

	key := event.Company + "|" + event.Position
	if prior, ok := pending[key]; ok {
		if prior.Status != event.Status {
			prior.Status = event.Status
			summary.ApplicationsUpdated++
		}
		return nil
	}

	existing, err := s.Store.FindByCompanyPosition(ctx, owner, event.Company, event.Position)
	switch {
	case err == nil:
		if existing.Status != event.Status {
			*updates = append(*updates, store.StatusUpdate{ID: existing.ID, Status: event.Status})
			summary.ApplicationsUpdated++
		}
		return nil
	case err == model.ErrNotFound:
		now := time.Now().UTC()
		app := model.Application{
			ID:             uuid.NewString(),
			Owner:          owner,
			Company:        event.Company,
			Position:       event.Position,
			Status:         event.Status,
			DateApplied:    msg.Date,
			EmailMessageID: msg.ID,
			AutoImported:   true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		*creates = append(*creates, &app)
		pending[key] = &app
		summary.ApplicationsAdded++
		return nil
	default:
		return err
	}
}

// FailSetup records a configuration failure that prevented a run from
// starting at all (e.g. the mailbox credentials are missing).
func (s *Syncer) FailSetup(ctx context.Context, owner string, cause error) error {
	return s.failRun(ctx, owner, cause)
}

// failRun records a sync that died before completing and hands the error back
// for the caller to surface as a request failure.
func (s *Syncer) failRun(ctx context.Context, owner string, cause error) error {
	run := model.SyncRun{
		ID:           uuid.NewString(),
		Owner:        owner,
		Status:       model.SyncError,
		ErrorSummary: truncate(cause.Error(), runErrLen),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Store.AppendSyncRun(ctx, run); err != nil {
		return fmt.Errorf("%w (additionally, logging the failure failed: %v)", cause, err)
	}
	return cause
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
