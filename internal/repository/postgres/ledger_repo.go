package postgres

import (
	"context"
	"errors"

	"github.com/crickpick/contest-backend/internal/models"
	repo "github.com/crickpick/contest-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ledgerRepo struct{ pool *pgxpool.Pool }

func (r *ledgerRepo) CreateBalance(ctx context.Context, accountID string, initial int64) (models.Balance, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO balances(account_id, amount, last_updated_at)
		 VALUES($1, $2, now())
		 ON CONFLICT (account_id) DO NOTHING`,
		accountID, initial,
	)
	if err != nil {
		return models.Balance{}, err
	}
	return r.Balance(ctx, accountID)
}

// TryDeduct is a single conditional UPDATE: the WHERE clause is the
// compare half of compare-and-deduct, so concurrent callers can never drive
// the balance negative or lose an update.
func (r *ledgerRepo) TryDeduct(ctx context.Context, accountID string, amount int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE balances
		    SET amount = amount - $2,
		        last_updated_at = now()
		  WHERE account_id = $1 AND amount >= $2`,
		accountID, amount,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ledgerRepo) Credit(ctx context.Context, accountID string, amount int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE balances
		    SET amount = amount + $2,
		        last_updated_at = now()
		  WHERE account_id = $1`,
		accountID, amount,
	)
	return err
}

func (r *ledgerRepo) Balance(ctx context.Context, accountID string) (models.Balance, error) {
	var b models.Balance
	err := r.pool.QueryRow(ctx,
		`SELECT account_id, amount, last_updated_at
		   FROM balances
		  WHERE account_id=$1`,
		accountID,
	).Scan(&b.AccountID, &b.Amount, &b.LastUpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Balance{}, repo.ErrNotFound
	}
	return b, err
}
