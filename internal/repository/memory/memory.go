// Package memory is an in-memory implementation of the repository
// interfaces. It backs the service tests and lets the API run without a
// database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crickpick/contest-backend/internal/models"
	repo "github.com/crickpick/contest-backend/internal/repository"
	"github.com/google/uuid"
)

type Store struct {
	mu       sync.Mutex
	accounts map[string]models.Account
	balances map[string]*models.Balance
	entries  map[string]models.Entry
	byMatch  map[string]string // accountID+"/"+matchID -> entryID
	rosters  map[string]models.Roster
	audits   []models.AuditLog
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]models.Account),
		balances: make(map[string]*models.Balance),
		entries:  make(map[string]models.Entry),
		byMatch:  make(map[string]string),
		rosters:  make(map[string]models.Roster),
	}
}

func (s *Store) Repositories() (repo.Accounts, repo.Ledger, repo.Entries, repo.AuditLogs) {
	return (*accounts)(s), (*ledger)(s), (*entries)(s), (*audits)(s)
}

// ---------------- accounts ----------------

type accounts Store

func (s *accounts) Create(ctx context.Context, username, email, passwordHash, role string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := models.Account{
		ID: uuid.NewString(), Username: username, Email: email,
		PasswordHash: passwordHash, Role: role,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	s.accounts[a.ID] = a
	return a, nil
}

func (s *accounts) GetByID(ctx context.Context, id string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return models.Account{}, repo.ErrNotFound
	}
	return a, nil
}

func (s *accounts) GetByEmail(ctx context.Context, email string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return models.Account{}, repo.ErrNotFound
}

// ---------------- ledger ----------------

type ledger Store

func (s *ledger) CreateBalance(ctx context.Context, accountID string, initial int64) (models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.balances[accountID]; ok {
		return *b, nil
	}
	b := &models.Balance{AccountID: accountID, Amount: initial, LastUpdatedAt: time.Now()}
	s.balances[accountID] = b
	return *b, nil
}

func (s *ledger) TryDeduct(ctx context.Context, accountID string, amount int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[accountID]
	if !ok {
		return false, repo.ErrNotFound
	}
	if b.Amount < amount {
		return false, nil
	}
	b.Amount -= amount
	b.LastUpdatedAt = time.Now()
	return true, nil
}

func (s *ledger) Credit(ctx context.Context, accountID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[accountID]
	if !ok {
		return repo.ErrNotFound
	}
	b.Amount += amount
	b.LastUpdatedAt = time.Now()
	return nil
}

func (s *ledger) Balance(ctx context.Context, accountID string) (models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[accountID]
	if !ok {
		return models.Balance{}, repo.ErrNotFound
	}
	return *b, nil
}

// ---------------- entries ----------------

type entries Store

func matchKey(accountID, matchID string) string { return accountID + "/" + matchID }

func (s *entries) CreateWithRoster(ctx context.Context, e models.Entry, ros models.Roster) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := matchKey(e.AccountID, e.MatchID)
	if _, exists := s.byMatch[key]; exists {
		return models.Entry{}, repo.ErrDuplicateEntry
	}
	if e.ID == "" { e.ID = uuid.NewString() }
	if ros.ID == "" { ros.ID = uuid.NewString() }
	e.RosterID = ros.ID
	e.CreatedAt = time.Now()
	ros.CreatedAt = e.CreatedAt

	s.rosters[ros.ID] = ros
	s.entries[e.ID] = e
	s.byMatch[key] = e.ID
	return e, nil
}

func (s *entries) GetByID(ctx context.Context, id string) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return models.Entry{}, repo.ErrNotFound
	}
	return e, nil
}

func (s *entries) GetByAccountMatch(ctx context.Context, accountID, matchID string) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byMatch[matchKey(accountID, matchID)]
	if !ok {
		return models.Entry{}, repo.ErrNotFound
	}
	return s.entries[id], nil
}

func (s *entries) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Entry
	for _, e := range s.entries {
		if e.AccountID == accountID {
			all = append(all, e)
		}
	}
	// Newest first, matching the SQL store's ORDER BY created_at DESC.
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *entries) GetRoster(ctx context.Context, rosterID string) (models.Roster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rosters[rosterID]
	if !ok {
		return models.Roster{}, repo.ErrNotFound
	}
	return r, nil
}

func (s *entries) MarkRefunded(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return repo.ErrNotFound
	}
	if e.Refunded {
		return repo.ErrAlreadyRefunded
	}
	e.Refunded = true
	s.entries[id] = e
	delete(s.byMatch, matchKey(e.AccountID, e.MatchID))
	return nil
}

// ---------------- audit logs ----------------

type audits Store

func (s *audits) Create(ctx context.Context, l models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = uuid.NewString()
	l.CreatedAt = time.Now()
	s.audits = append(s.audits, l)
	return nil
}

var (
	_ repo.Accounts  = (*accounts)(nil)
	_ repo.Ledger    = (*ledger)(nil)
	_ repo.Entries   = (*entries)(nil)
	_ repo.AuditLogs = (*audits)(nil)
)
