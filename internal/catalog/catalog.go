// Package catalog is the read-only boundary to match and player data. The
// entry engine never writes to it; costs are copied into roster slots at
// submission time.
package catalog

import (
	"context"
	"errors"
)

var ErrUnknownPlayer = errors.New("unknown player")

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
	Cost int64  `json:"cost"`
}

type Provider interface {
	ListPlayers(ctx context.Context, matchID string) ([]Player, error)
}

// StaticProvider serves the same pool for every match. Stands in for the
// hosted catalog service until one is wired up.
type StaticProvider struct {
	players []Player
	byID    map[string]Player
}

func NewStaticProvider(players []Player) *StaticProvider {
	byID := make(map[string]Player, len(players))
	for _, p := range players { byID[p.ID] = p }
	return &StaticProvider{players: players, byID: byID}
}

func (s *StaticProvider) ListPlayers(ctx context.Context, matchID string) ([]Player, error) {
	out := make([]Player, len(s.players))
	copy(out, s.players)
	return out, nil
}

// Resolve maps a player id to its current snapshot.
func (s *StaticProvider) Resolve(id string) (Player, error) {
	p, ok := s.byID[id]
	if !ok {
		return Player{}, ErrUnknownPlayer
	}
	return p, nil
}

// DefaultPlayers is the seeded player pool.
func DefaultPlayers() []Player {
	return []Player{
		{ID: "rohit-sharma", Name: "Rohit Sharma", Role: "Batsman", Cost: 15},
		{ID: "virat-kohli", Name: "Virat Kohli", Role: "Batsman", Cost: 15},
		{ID: "jasprit-bumrah", Name: "Jasprit Bumrah", Role: "Bowler", Cost: 12},
		{ID: "ravindra-jadeja", Name: "Ravindra Jadeja", Role: "All-rounder", Cost: 13},
		{ID: "kl-rahul", Name: "KL Rahul", Role: "Wicket-keeper", Cost: 11},
		{ID: "hardik-pandya", Name: "Hardik Pandya", Role: "All-rounder", Cost: 12},
		{ID: "mohammed-shami", Name: "Mohammed Shami", Role: "Bowler", Cost: 10},
		{ID: "shubman-gill", Name: "Shubman Gill", Role: "Batsman", Cost: 11},
		{ID: "rishabh-pant", Name: "Rishabh Pant", Role: "Wicket-keeper", Cost: 12},
		{ID: "ravichandran-ashwin", Name: "Ravichandran Ashwin", Role: "Bowler", Cost: 10},
		{ID: "shreyas-iyer", Name: "Shreyas Iyer", Role: "Batsman", Cost: 10},
		{ID: "axar-patel", Name: "Axar Patel", Role: "All-rounder", Cost: 9},
	}
}
