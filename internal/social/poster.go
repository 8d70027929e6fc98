// Package social posts status updates on behalf of bot accounts.
package social

import (
	"context"

	"github.com/i474232898/weather-forecast-bot/internal/log"
)

// Account identifies the posting account and carries its credentials.
type Account struct {
	ID    string
	Token string
}

// Status is a single status update.
type Status struct {
	Account Account
	Text    string
}

// Poster publishes statuses. The bool reports whether the post was accepted.
type Poster interface {
	Post(ctx context.Context, st Status) (bool, error)
}

// LogPoster only logs statuses. It is used for dry runs.
type LogPoster struct{}

func (LogPoster) Post(_ context.Context, st Status) (bool, error) {
	log.Infow("dry run: status not posted", "account", st.Account.ID, "text", st.Text)
	return true, nil
}
