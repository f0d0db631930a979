package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/crickpick/contest-backend/internal/metrics"
	"github.com/crickpick/contest-backend/internal/models"
	"github.com/crickpick/contest-backend/internal/notify"
	repo "github.com/crickpick/contest-backend/internal/repository"
	"github.com/crickpick/contest-backend/internal/roster"
	"github.com/crickpick/contest-backend/internal/worker"
)

var (
	ErrEmptyTeamName          = errors.New("team name required")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrDuplicateEntryForMatch = errors.New("entry already exists for this match")
	ErrPersistence            = errors.New("could not save entry")
	ErrAlreadyRefunded        = errors.New("entry already refunded")
)

// InsufficientBalanceError reports the shortfall alongside the sentinel.
type InsufficientBalanceError struct {
	Required int64
	Balance  int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: need %d tokens, have %d", e.Required, e.Balance)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

const (
	compensationAttempts = 8
	compensationBackoff  = 50 * time.Millisecond
	compensationMaxWait  = 5 * time.Second
)

// EntryService coordinates the contest-entry transaction: validate, deduct,
// persist, and compensate the ledger when the persistence half fails. The
// deduction and the roster write are separate stores; the retried
// compensating credit substitutes for a distributed transaction.
type EntryService struct {
	entries repo.Entries
	ledger  repo.Ledger
	audits  repo.AuditLogs
	sink    notify.Sink
	wp      *worker.Pool

	entryFee   int64
	budgetCap  int64
	rosterSize int
}

func NewEntryService(e repo.Entries, l repo.Ledger, a repo.AuditLogs, sink notify.Sink, wp *worker.Pool, entryFee, budgetCap int64, rosterSize int) *EntryService {
	return &EntryService{
		entries: e, ledger: l, audits: a, sink: sink, wp: wp,
		entryFee: entryFee, budgetCap: budgetCap, rosterSize: rosterSize,
	}
}

type SubmitRequest struct {
	AccountID      string
	MatchID        string
	TeamName       string
	Slots          []models.Slot
	IdempotencyKey string
}

// Submit runs the entry transaction. Validation failures and business-rule
// rejections happen before any ledger interaction, so an invalid submission
// can never cost tokens.
func (s *EntryService) Submit(ctx context.Context, req SubmitRequest) (models.Entry, error) {
	if strings.TrimSpace(req.TeamName) == "" {
		return s.reject(req, ErrEmptyTeamName, "empty_team_name")
	}
	if err := roster.Validate(req.Slots, s.rosterSize, s.budgetCap); err != nil {
		return s.reject(req, err, rejectReason(err))
	}

	// One entry per (account, match). A committed entry is either an
	// idempotent replay of this request or a duplicate.
	existing, err := s.entries.GetByAccountMatch(ctx, req.AccountID, req.MatchID)
	switch {
	case err == nil:
		if req.IdempotencyKey != "" && existing.IdempotencyKey == req.IdempotencyKey {
			return existing, nil
		}
		return s.reject(req, ErrDuplicateEntryForMatch, "duplicate_entry")
	case !errors.Is(err, repo.ErrNotFound):
		return models.Entry{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	committed, err := s.ledger.TryDeduct(ctx, req.AccountID, s.entryFee)
	if err != nil {
		// The deduction did not commit; nothing to compensate.
		return models.Entry{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !committed {
		var have int64
		if b, berr := s.ledger.Balance(ctx, req.AccountID); berr == nil {
			have = b.Amount
		}
		return s.reject(req, &InsufficientBalanceError{Required: s.entryFee, Balance: have}, "insufficient_balance")
	}

	// Tokens are spent now. From here the operation must reach a terminal
	// state even if the caller goes away, so the remaining work runs on a
	// context that survives cancellation.
	detached := context.WithoutCancel(ctx)

	entry := models.Entry{
		AccountID:      req.AccountID,
		MatchID:        req.MatchID,
		AmountCharged:  s.entryFee,
		IdempotencyKey: req.IdempotencyKey,
	}
	ros := models.Roster{
		AccountID: req.AccountID,
		MatchID:   req.MatchID,
		TeamName:  strings.TrimSpace(req.TeamName),
		Slots:     req.Slots,
	}

	entry, err = s.entries.CreateWithRoster(detached, entry, ros)
	if err != nil {
		s.compensate(detached, req.AccountID, s.entryFee)
		if errors.Is(err, repo.ErrDuplicateEntry) {
			// Lost a race with a concurrent submission for the same match.
			if won, werr := s.entries.GetByAccountMatch(detached, req.AccountID, req.MatchID); werr == nil &&
				req.IdempotencyKey != "" && won.IdempotencyKey == req.IdempotencyKey {
				return won, nil
			}
			return s.reject(req, ErrDuplicateEntryForMatch, "duplicate_entry")
		}
		metrics.EntriesFailed.Inc()
		s.notifyOutcome(notify.Outcome{
			AccountID: req.AccountID, MatchID: req.MatchID,
			Status: "failed", Reason: "persistence_error",
		})
		return models.Entry{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	metrics.EntriesTotal.Inc()
	s.audit("entry", entry.ID, "created", map[string]any{
		"account_id": entry.AccountID,
		"match_id":   entry.MatchID,
		"amount":     entry.AmountCharged,
	})
	s.notifyOutcome(notify.Outcome{
		AccountID: entry.AccountID, MatchID: entry.MatchID,
		EntryID: entry.ID, Status: "committed",
	})
	return entry, nil
}

func (s *EntryService) GetByID(ctx context.Context, id string) (models.Entry, error) {
	return s.entries.GetByID(ctx, id)
}

func (s *EntryService) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Entry, error) {
	return s.entries.ListByAccount(ctx, accountID, limit, offset)
}

func (s *EntryService) GetRoster(ctx context.Context, rosterID string) (models.Roster, error) {
	return s.entries.GetRoster(ctx, rosterID)
}

// Cancel marks a committed entry refunded and credits the fee back. After a
// cancel the (account, match) slot is free again. The caller must own the
// entry.
func (s *EntryService) Cancel(ctx context.Context, accountID, entryID string) (models.Entry, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return models.Entry{}, err
	}
	if entry.AccountID != accountID {
		return models.Entry{}, repo.ErrNotFound
	}
	if entry.Refunded {
		return models.Entry{}, ErrAlreadyRefunded
	}

	// Same rule as submission: once the state changes, drive it to the end
	// regardless of the caller. The mark is conditional in the store, so
	// only one of any concurrent cancels reaches the credit below.
	detached := context.WithoutCancel(ctx)
	if err := s.entries.MarkRefunded(detached, entryID); err != nil {
		if errors.Is(err, repo.ErrAlreadyRefunded) {
			return models.Entry{}, ErrAlreadyRefunded
		}
		if errors.Is(err, repo.ErrNotFound) {
			return models.Entry{}, repo.ErrNotFound
		}
		return models.Entry{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.compensate(detached, accountID, entry.AmountCharged)
	entry.Refunded = true

	s.audit("entry", entry.ID, "refund_marked", map[string]any{
		"account_id": entry.AccountID,
		"match_id":   entry.MatchID,
		"amount":     entry.AmountCharged,
	})
	s.notifyOutcome(notify.Outcome{
		AccountID: entry.AccountID, MatchID: entry.MatchID,
		EntryID: entry.ID, Status: "refunded",
	})
	return entry, nil
}

// compensate credits the entry fee back after a failed persistence. It
// retries with backoff until the ledger acknowledges; losing the credit would
// charge the user for nothing, so exhausting the retries is an operator
// incident, not a normal failure.
func (s *EntryService) compensate(ctx context.Context, accountID string, amount int64) {
	wait := compensationBackoff
	for attempt := 1; attempt <= compensationAttempts; attempt++ {
		err := s.ledger.Credit(ctx, accountID, amount)
		if err == nil {
			metrics.CompensationsTotal.Inc()
			s.audit("account", accountID, "compensated", map[string]any{"amount": amount})
			return
		}
		slog.Warn("compensation attempt failed",
			"account_id", accountID, "amount", amount, "attempt", attempt, "err", err)
		time.Sleep(wait)
		wait *= 2
		if wait > compensationMaxWait {
			wait = compensationMaxWait
		}
	}
	metrics.CompensationsFailed.Inc()
	slog.Error("compensation exhausted retries, manual reconciliation required",
		"account_id", accountID, "amount", amount)
}

func (s *EntryService) reject(req SubmitRequest, err error, reason string) (models.Entry, error) {
	metrics.EntriesRejected.WithLabelValues(reason).Inc()
	s.notifyOutcome(notify.Outcome{
		AccountID: req.AccountID, MatchID: req.MatchID,
		Status: "rejected", Reason: reason,
	})
	return models.Entry{}, err
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, roster.ErrWrongSlotCount):
		return "wrong_slot_count"
	case errors.Is(err, roster.ErrDuplicatePlayer):
		return "duplicate_player"
	case errors.Is(err, roster.ErrBudgetExceeded):
		return "budget_exceeded"
	}
	return "invalid"
}

func (s *EntryService) audit(entityType, entityID, action string, details map[string]any) {
	id := entityID
	s.wp.Submit(func() {
		_ = s.audits.Create(context.Background(), models.AuditLog{
			EntityType: entityType,
			EntityID:   &id,
			Action:     action,
			Details:    details,
		})
	})
}

func (s *EntryService) notifyOutcome(o notify.Outcome) {
	s.wp.Submit(func() { _ = s.sink.Notify(context.Background(), o) })
}
