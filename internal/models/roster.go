package models

import "time"

// Slot is one picked player. Name, role and cost are copied from the catalog
// snapshot at submission time; later catalog changes do not reprice it.
type Slot struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	PlayerRole string `json:"player_role"`
	Cost       int64  `json:"cost"`
}

type Roster struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	MatchID   string    `json:"match_id"`
	TeamName  string    `json:"team_name"`
	Slots     []Slot    `json:"slots"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Roster) TotalCost() int64 {
	var total int64
	for _, s := range r.Slots { total += s.Cost }
	return total
}
