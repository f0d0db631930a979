package services

import (
	"context"
	"errors"
	"strings"

	"github.com/crickpick/contest-backend/internal/auth"
	"github.com/crickpick/contest-backend/internal/models"
	repo "github.com/crickpick/contest-backend/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AccountService struct {
	accounts repo.Accounts
	ledger   repo.Ledger
	tm       *auth.TokenManager
	initial  int64
}

func NewAccountService(a repo.Accounts, l repo.Ledger, tm *auth.TokenManager, initialTokens int64) *AccountService {
	return &AccountService{accounts: a, ledger: l, tm: tm, initial: initialTokens}
}

// Register provisions the account and its starting token balance.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (models.Account, error) {
	a := models.Account{Username: strings.TrimSpace(username), Email: strings.TrimSpace(email), Role: "user"}
	if err := a.Validate(); err != nil {
		return models.Account{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.Account{}, err
	}
	created, err := s.accounts.Create(ctx, a.Username, a.Email, hash, a.Role)
	if err != nil {
		return models.Account{}, err
	}
	if _, err := s.ledger.CreateBalance(ctx, created.ID, s.initial); err != nil {
		return models.Account{}, err
	}
	return created, nil
}

func (s *AccountService) Login(ctx context.Context, email, password string) (auth.TokenPair, error) {
	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return auth.TokenPair{}, ErrInvalidCredentials
		}
		return auth.TokenPair{}, err
	}
	if err := auth.VerifyPassword(password, a.PasswordHash); err != nil {
		return auth.TokenPair{}, ErrInvalidCredentials
	}
	return s.tm.GeneratePair(a.ID, a.Role)
}

func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, isRefresh, err := s.tm.ParseAny(refreshToken)
	if err != nil || !isRefresh {
		return auth.TokenPair{}, ErrInvalidCredentials
	}
	return s.tm.GeneratePair(claims.AccountID, claims.Role)
}
