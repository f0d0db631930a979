package models

import "time"

// Entry is the durable proof that a token deduction and the matching roster
// write both committed. It is never mutated after creation except to mark a
// compensating refund.
type Entry struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"account_id"`
	MatchID        string    `json:"match_id"`
	RosterID       string    `json:"roster_id"`
	AmountCharged  int64     `json:"amount_charged"`
	IdempotencyKey string    `json:"-"`
	Refunded       bool      `json:"refunded"`
	CreatedAt      time.Time `json:"created_at"`
}
