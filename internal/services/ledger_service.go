package services

import (
	"context"

	"github.com/crickpick/contest-backend/internal/models"
	repo "github.com/crickpick/contest-backend/internal/repository"
)

// LedgerService is the read/provision surface of the token ledger. All
// spending goes through the entry engine; the displayed balance is always
// re-read from the store, never derived client-side.
type LedgerService struct{ r repo.Ledger }

func NewLedgerService(r repo.Ledger) *LedgerService { return &LedgerService{r: r} }

func (s *LedgerService) Current(ctx context.Context, accountID string) (models.Balance, error) {
	return s.r.Balance(ctx, accountID)
}

// Provision seeds the balance for a new account. Idempotent: an existing
// balance is left untouched.
func (s *LedgerService) Provision(ctx context.Context, accountID string, initial int64) (models.Balance, error) {
	return s.r.CreateBalance(ctx, accountID, initial)
}
