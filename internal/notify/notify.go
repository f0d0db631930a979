// Package notify delivers terminal submission outcomes to whatever wants to
// display them. Delivery is best-effort and off the request path; the entry
// engine never blocks on a sink.
package notify

import (
	"context"
	"log/slog"
)

type Outcome struct {
	AccountID string `json:"account_id"`
	MatchID   string `json:"match_id"`
	EntryID   string `json:"entry_id,omitempty"`
	Status    string `json:"status"` // committed | rejected | failed
	Reason    string `json:"reason,omitempty"`
}

type Sink interface {
	Notify(ctx context.Context, o Outcome) error
}

// LogSink writes outcomes to the structured log. Default when no broker is
// configured.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Notify(ctx context.Context, o Outcome) error {
	s.Log.Info("entry outcome",
		"account_id", o.AccountID,
		"match_id", o.MatchID,
		"entry_id", o.EntryID,
		"status", o.Status,
		"reason", o.Reason,
	)
	return nil
}
