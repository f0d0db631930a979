package repository

import (
	"context"
	"errors"

	"github.com/crickpick/contest-backend/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEntry is returned when an entry already exists for the
	// same (account, match) pair.
	ErrDuplicateEntry = errors.New("entry already exists for match")
	// ErrAlreadyRefunded is returned by MarkRefunded when the entry was
	// already marked, so exactly one caller ever wins the transition.
	ErrAlreadyRefunded = errors.New("entry already refunded")
)

type Accounts interface {
	Create(ctx context.Context, username, email, passwordHash, role string) (models.Account, error)
	GetByID(ctx context.Context, id string) (models.Account, error)
	GetByEmail(ctx context.Context, email string) (models.Account, error)
}

// Ledger owns the token balance. TryDeduct is the only way tokens leave an
// account and it is conditional: a single atomic compare-and-deduct that
// either removes the full amount or nothing.
type Ledger interface {
	CreateBalance(ctx context.Context, accountID string, initial int64) (models.Balance, error)
	// TryDeduct reports whether the deduction committed. false means the
	// balance was insufficient and left untouched.
	TryDeduct(ctx context.Context, accountID string, amount int64) (bool, error)
	Credit(ctx context.Context, accountID string, amount int64) error
	Balance(ctx context.Context, accountID string) (models.Balance, error)
}

type Entries interface {
	// CreateWithRoster persists the roster, its slots and the entry as a
	// single durable unit. Returns ErrDuplicateEntry if a committed entry
	// already exists for the (account, match) pair.
	CreateWithRoster(ctx context.Context, e models.Entry, r models.Roster) (models.Entry, error)
	GetByID(ctx context.Context, id string) (models.Entry, error)
	GetByAccountMatch(ctx context.Context, accountID, matchID string) (models.Entry, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Entry, error)
	GetRoster(ctx context.Context, rosterID string) (models.Roster, error)
	// MarkRefunded flips refunded exactly once. ErrAlreadyRefunded if the
	// entry was already marked, ErrNotFound if it does not exist.
	MarkRefunded(ctx context.Context, id string) error
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
