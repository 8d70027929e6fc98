package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-forecast-bot/internal/common"
	"github.com/i474232898/weather-forecast-bot/internal/log"
)

// MastodonPoster posts statuses through the Mastodon REST API.
type MastodonPoster struct {
	server     string
	visibility string
	httpCfg    common.HTTPClientConfig

	mu       sync.Mutex
	circuits map[string]*gobreaker.CircuitBreaker
}

// NewMastodonPoster creates a poster for server, e.g. "https://mastodon.social".
// Posts are attempted once; the Idempotency-Key header guards against duplicates
// if the caller resubmits.
func NewMastodonPoster(server, visibility string, httpCfg common.HTTPClientConfig) *MastodonPoster {
	if visibility == "" {
		visibility = "unlisted"
	}
	return &MastodonPoster{
		server:     strings.TrimRight(server, "/"),
		visibility: visibility,
		httpCfg:    httpCfg,
		circuits:   make(map[string]*gobreaker.CircuitBreaker),
	}
}

// circuit returns the breaker for one account, so a failing account cannot
// block posts for the others.
func (p *MastodonPoster) circuit(accountID string) *gobreaker.CircuitBreaker {
	p.mu.Lock()
	defer p.mu.Unlock()

	cb, ok := p.circuits[accountID]
	if !ok {
		cb = common.NewCircuitBreaker("mastodon:" + accountID)
		p.circuits[accountID] = cb
	}
	return cb
}

func (p *MastodonPoster) Post(ctx context.Context, st Status) (bool, error) {
	if st.Account.Token == "" {
		return false, fmt.Errorf("mastodon: no access token for account %s", st.Account.ID)
	}

	idempotencyKey := uuid.NewString()
	buildRequest := func() (*http.Request, error) {
		form := url.Values{}
		form.Set("status", st.Text)
		form.Set("visibility", p.visibility)

		req, err := http.NewRequest(http.MethodPost, p.server+"/api/v1/statuses", strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Authorization", "Bearer "+st.Account.Token)
		req.Header.Set("Idempotency-Key", idempotencyKey)
		return req, nil
	}

	resp, err := common.DoRequestWithResilience(ctx, p.httpCfg, p.circuit(st.Account.ID), buildRequest)
	if err != nil {
		return false, fmt.Errorf("mastodon post for %s: %w", st.Account.ID, err)
	}
	defer resp.Body.Close()

	var created struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		// The status was accepted even if the body is unreadable.
		log.Warnw("mastodon response not decodable", "account", st.Account.ID, "error", err)
		return true, nil
	}

	log.Infow("status posted", "account", st.Account.ID, "id", created.ID, "url", created.URL)
	return true, nil
}
