package postgres

import (
	repo "github.com/crickpick/contest-backend/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	Accounts  repo.Accounts
	Ledger    repo.Ledger
	Entries   repo.Entries
	AuditLogs repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Accounts:  &accountsRepo{pool},
		Ledger:    &ledgerRepo{pool},
		Entries:   &entriesRepo{pool},
		AuditLogs: &auditLogsRepo{pool},
	}
}
