package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crickpick/contest-backend/internal/auth"
	"github.com/crickpick/contest-backend/internal/catalog"
	"github.com/crickpick/contest-backend/internal/config"
	"github.com/crickpick/contest-backend/internal/middleware"
	"github.com/crickpick/contest-backend/internal/notify"
	"github.com/crickpick/contest-backend/internal/repository/memory"
	"github.com/crickpick/contest-backend/internal/roster"
	"github.com/crickpick/contest-backend/internal/services"
	"github.com/crickpick/contest-backend/internal/worker"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := config.Config{
		Env:           "test",
		RateRPS:       1000,
		InitialTokens: 100,
		EntryFee:      1,
		BudgetCap:     130,
		RosterSize:    roster.DefaultSize,
	}

	store := memory.NewStore()
	acc, led, ent, aud := store.Repositories()

	wp := worker.NewPool(2)
	t.Cleanup(wp.Stop)

	tm := auth.NewTokenManager("access", "refresh", "contest-backend", time.Minute, time.Hour)
	cat := catalog.NewStaticProvider(catalog.DefaultPlayers())

	as := services.NewAccountService(acc, led, tm, cfg.InitialTokens)
	ls := services.NewLedgerService(led)
	es := services.NewEntryService(ent, led, aud, notify.LogSink{Log: slog.Default()}, wp, cfg.EntryFee, cfg.BudgetCap, cfg.RosterSize)

	return NewRouter(cfg, as, ls, es, cat, middleware.NewAuthMiddleware(tm))
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"Username": "testuser", "Email": "test@example.com", "Password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"Email": "test@example.com", "Password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	return pair.AccessToken
}

// Every default player except the most expensive one; 125 tokens total.
func affordableTeam() []string {
	return []string{
		"virat-kohli", "jasprit-bumrah", "ravindra-jadeja", "kl-rahul",
		"hardik-pandya", "mohammed-shami", "shubman-gill", "rishabh-pant",
		"ravichandran-ashwin", "shreyas-iyer", "axar-patel",
	}
}

func TestSubmitEntryEndToEnd(t *testing.T) {
	h := newTestRouter(t)
	token := registerAndLogin(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/balance", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bal struct {
		Amount int64 `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
	assert.Equal(t, int64(100), bal.Amount)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/matches/match-1/players", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var players []catalog.Player
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &players))
	assert.Len(t, players, 12)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/entries", token, map[string]any{
		"match_id":   "match-1",
		"team_name":  "Dream XI",
		"player_ids": affordableTeam(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var entry struct {
		ID       string `json:"id"`
		RosterID string `json:"roster_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	require.NotEmpty(t, entry.ID)

	// One fee charged, re-read from the ledger.
	rec = doJSON(t, h, http.MethodGet, "/api/v1/balance", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
	assert.Equal(t, int64(99), bal.Amount)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/entries/"+entry.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Same match again: conflict, no extra charge.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/entries", token, map[string]any{
		"match_id":   "match-1",
		"team_name":  "Second Try",
		"player_ids": affordableTeam(),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/balance", token, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
	assert.Equal(t, int64(99), bal.Amount)
}

func TestSubmitEntryValidationErrors(t *testing.T) {
	h := newTestRouter(t)
	token := registerAndLogin(t, h)

	// Ten players.
	rec := doJSON(t, h, http.MethodPost, "/api/v1/entries", token, map[string]any{
		"match_id":   "match-1",
		"team_name":  "Short XI",
		"player_ids": affordableTeam()[:10],
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "wrong_slot_count")

	// Unknown player id.
	ids := affordableTeam()
	ids[0] = "no-such-player"
	rec = doJSON(t, h, http.MethodPost, "/api/v1/entries", token, map[string]any{
		"match_id":   "match-1",
		"team_name":  "Ghost XI",
		"player_ids": ids,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown_player")

	// Missing team name.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/entries", token, map[string]any{
		"match_id":   "match-1",
		"player_ids": affordableTeam(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "empty_team_name")

	// Unauthenticated.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/entries", "", map[string]any{
		"match_id": "match-1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Nothing was ever charged.
	rec = doJSON(t, h, http.MethodGet, "/api/v1/balance", token, nil)
	var bal struct {
		Amount int64 `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
	assert.Equal(t, int64(100), bal.Amount)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	h := newTestRouter(t)
	rec := doJSON(t, h, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"Username": "shorty", "Email": "shorty@example.com", "Password": "seven77",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "password_length")
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"Username": "testuser", "Email": "test@example.com", "Password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var account struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))

	userToken := registerAndLoginAs(t, h, "seconduser", "second@example.com")
	rec = doJSON(t, h, http.MethodGet, "/api/v1/admin/accounts/"+account.ID+"/balance", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	// Same secrets as newTestRouter, so this token verifies.
	tm := auth.NewTokenManager("access", "refresh", "contest-backend", time.Minute, time.Hour)
	pair, err := tm.GeneratePair("ops-1", "admin")
	require.NoError(t, err)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/admin/accounts/"+account.ID+"/balance", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var bal struct {
		Amount int64 `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
	assert.Equal(t, int64(100), bal.Amount)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/admin/accounts/"+account.ID+"/entries", pair.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func registerAndLoginAs(t *testing.T, h http.Handler, username, email string) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"Username": username, "Email": email, "Password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"Email": email, "Password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	return pair.AccessToken
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestBudgetCapRejectsExpensiveRoster(t *testing.T) {
	h := newTestRouter(t)
	token := registerAndLogin(t, h)

	// Swap the cheapest pick for the priciest one to push past the cap.
	ids := affordableTeam()
	for i, id := range ids {
		if id == "axar-patel" {
			ids[i] = "rohit-sharma"
		}
	}
	rec := doJSON(t, h, http.MethodPost, "/api/v1/entries", token, map[string]any{
		"match_id":   "match-1",
		"team_name":  "Big Spenders",
		"player_ids": ids,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "budget_exceeded")
}
