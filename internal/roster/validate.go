// Package roster holds the composition rules for a contest roster. Validation
// is pure: the server re-runs it on every submission regardless of what the
// client already checked.
package roster

import (
	"errors"
	"fmt"

	"github.com/crickpick/contest-backend/internal/models"
)

// DefaultSize matches the observed contest format.
const DefaultSize = 11

var (
	ErrWrongSlotCount  = errors.New("wrong number of players in roster")
	ErrDuplicatePlayer = errors.New("duplicate player in roster")
	ErrBudgetExceeded  = errors.New("roster cost exceeds budget cap")
)

// BudgetError carries the numbers behind ErrBudgetExceeded so the API can
// show the user how far over they are.
type BudgetError struct {
	Total int64
	Cap   int64
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("roster cost %d exceeds budget cap %d", e.Total, e.Cap)
}

func (e *BudgetError) Unwrap() error { return ErrBudgetExceeded }

// Validate checks the candidate slots in a fixed order so the first failing
// rule decides the user-facing message: slot count, then duplicates, then
// budget.
func Validate(slots []models.Slot, size int, budgetCap int64) error {
	if len(slots) != size {
		return fmt.Errorf("%w: got %d, want %d", ErrWrongSlotCount, len(slots), size)
	}

	seen := make(map[string]struct{}, len(slots))
	var total int64
	for _, s := range slots {
		if _, dup := seen[s.PlayerID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayer, s.PlayerID)
		}
		seen[s.PlayerID] = struct{}{}
		total += s.Cost
	}

	if total > budgetCap {
		return &BudgetError{Total: total, Cap: budgetCap}
	}
	return nil
}
