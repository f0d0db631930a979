package postgres

import (
	"context"
	"errors"

	"github.com/crickpick/contest-backend/internal/models"
	repo "github.com/crickpick/contest-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type entriesRepo struct{ pool *pgxpool.Pool }

const uniqueViolation = "23505"

// CreateWithRoster writes roster, slots and entry in one database
// transaction. The unique (account_id, match_id) index is the authority on
// the one-entry-per-match rule under concurrent submissions.
func (r *entriesRepo) CreateWithRoster(ctx context.Context, e models.Entry, ros models.Roster) (models.Entry, error) {
	if e.ID == "" { e.ID = uuid.NewString() }
	if ros.ID == "" { ros.ID = uuid.NewString() }
	e.RosterID = ros.ID

	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO rosters(id, account_id, match_id, team_name) VALUES($1,$2,$3,$4)`,
			ros.ID, ros.AccountID, ros.MatchID, ros.TeamName,
		); err != nil {
			return err
		}
		for i, s := range ros.Slots {
			if _, err := tx.Exec(ctx,
				`INSERT INTO roster_slots(roster_id, position, player_id, player_name, player_role, cost)
				 VALUES($1,$2,$3,$4,$5,$6)`,
				ros.ID, i, s.PlayerID, s.PlayerName, s.PlayerRole, s.Cost,
			); err != nil {
				return err
			}
		}
		var key *string
		if e.IdempotencyKey != "" { key = &e.IdempotencyKey }
		return tx.QueryRow(ctx,
			`INSERT INTO entries(id, account_id, match_id, roster_id, amount_charged, idempotency_key)
			 VALUES($1,$2,$3,$4,$5,$6)
			 RETURNING created_at`,
			e.ID, e.AccountID, e.MatchID, e.RosterID, e.AmountCharged, key,
		).Scan(&e.CreatedAt)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.Entry{}, repo.ErrDuplicateEntry
		}
		return models.Entry{}, err
	}
	return e, nil
}

func (r *entriesRepo) GetByID(ctx context.Context, id string) (models.Entry, error) {
	return r.get(ctx, `WHERE id=$1`, id)
}

// GetByAccountMatch only sees live entries; a refunded one no longer blocks
// the match.
func (r *entriesRepo) GetByAccountMatch(ctx context.Context, accountID, matchID string) (models.Entry, error) {
	return r.get(ctx, `WHERE account_id=$1 AND match_id=$2 AND NOT refunded`, accountID, matchID)
}

func (r *entriesRepo) get(ctx context.Context, where string, args ...any) (models.Entry, error) {
	var e models.Entry
	var key *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, account_id, match_id, roster_id, amount_charged, idempotency_key, refunded, created_at
		   FROM entries `+where, args...,
	).Scan(&e.ID, &e.AccountID, &e.MatchID, &e.RosterID, &e.AmountCharged, &key, &e.Refunded, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Entry{}, repo.ErrNotFound
	}
	if key != nil { e.IdempotencyKey = *key }
	return e, err
}

func (r *entriesRepo) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, match_id, roster_id, amount_charged, idempotency_key, refunded, created_at
		   FROM entries
		  WHERE account_id=$1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		var e models.Entry
		var key *string
		if err := rows.Scan(&e.ID, &e.AccountID, &e.MatchID, &e.RosterID, &e.AmountCharged, &key, &e.Refunded, &e.CreatedAt); err != nil {
			return nil, err
		}
		if key != nil { e.IdempotencyKey = *key }
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *entriesRepo) GetRoster(ctx context.Context, rosterID string) (models.Roster, error) {
	var ros models.Roster
	err := r.pool.QueryRow(ctx,
		`SELECT id, account_id, match_id, team_name, created_at FROM rosters WHERE id=$1`,
		rosterID,
	).Scan(&ros.ID, &ros.AccountID, &ros.MatchID, &ros.TeamName, &ros.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Roster{}, repo.ErrNotFound
	}
	if err != nil {
		return models.Roster{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT player_id, player_name, player_role, cost
		   FROM roster_slots
		  WHERE roster_id=$1
		  ORDER BY position`,
		rosterID,
	)
	if err != nil {
		return models.Roster{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var s models.Slot
		if err := rows.Scan(&s.PlayerID, &s.PlayerName, &s.PlayerRole, &s.Cost); err != nil {
			return models.Roster{}, err
		}
		ros.Slots = append(ros.Slots, s)
	}
	return ros, rows.Err()
}

// MarkRefunded is conditional for the same reason TryDeduct is: the WHERE
// clause makes the transition atomic, so concurrent cancels cannot both win
// and trigger two credits.
func (r *entriesRepo) MarkRefunded(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE entries SET refunded=true WHERE id=$1 AND NOT refunded`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var refunded bool
		if err := r.pool.QueryRow(ctx, `SELECT refunded FROM entries WHERE id=$1`, id).Scan(&refunded); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repo.ErrNotFound
			}
			return err
		}
		return repo.ErrAlreadyRefunded
	}
	return nil
}
