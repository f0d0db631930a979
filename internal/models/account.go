package models

import (
	"errors"
	"strings"
	"time"
)

type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (a *Account) Validate() error {
	if len(strings.TrimSpace(a.Username)) < 3 { return errors.New("username too short") }
	if !strings.Contains(a.Email, "@") { return errors.New("invalid email") }
	if a.Role == "" { a.Role = "user" }
	return nil
}

// Balance is the spendable token balance of one account. It is only ever
// mutated through the ledger repository; the struct itself is a read model.
type Balance struct {
	AccountID     string    `json:"account_id"`
	Amount        int64     `json:"amount"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}
