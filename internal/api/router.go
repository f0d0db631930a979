package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/crickpick/contest-backend/internal/api/httpx"
	"github.com/crickpick/contest-backend/internal/api/validate"
	"github.com/crickpick/contest-backend/internal/catalog"
	"github.com/crickpick/contest-backend/internal/config"
	"github.com/crickpick/contest-backend/internal/metrics"
	"github.com/crickpick/contest-backend/internal/middleware"
	"github.com/crickpick/contest-backend/internal/models"
	repo "github.com/crickpick/contest-backend/internal/repository"
	"github.com/crickpick/contest-backend/internal/roster"
	"github.com/crickpick/contest-backend/internal/services"
)

func NewRouter(cfg config.Config, as *services.AccountService, ls *services.LedgerService, es *services.EntryService, cat *catalog.StaticProvider, am *middleware.AuthMiddleware) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- auth (rate limited by client address) ----------
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateRPS))

			r.Post("/auth/register", func(w http.ResponseWriter, r *http.Request) {
				var req struct{ Username, Email, Password string }
				if err := httpx.Decode(r, &req); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "bad request", nil)
					return
				}
				var errs validate.Errs
				for field, val := range map[string]string{
					"username": req.Username, "email": req.Email, "password": req.Password,
				} {
					if e := validate.Required(field, val); e != nil {
						errs = append(errs, *e)
					}
				}
				if req.Password != "" {
					if e := validate.MinInt("password_length", int64(len(req.Password)), 8); e != nil {
						errs = append(errs, *e)
					}
				}
				if len(errs) > 0 {
					httpx.WriteError(w, http.StatusBadRequest, "validation_error", errs.Error(), errs)
					return
				}
				a, err := as.Register(r.Context(), req.Username, req.Email, req.Password)
				if err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, a)
			})

			r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
				var req struct{ Email, Password string }
				if err := httpx.Decode(r, &req); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "bad request", nil)
					return
				}
				pair, err := as.Login(r.Context(), req.Email, req.Password)
				if err != nil {
					httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, pair)
			})

			r.Post("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					RefreshToken string `json:"refresh_token"`
				}
				if err := httpx.Decode(r, &req); err != nil || req.RefreshToken == "" {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "bad request", nil)
					return
				}
				pair, err := as.Refresh(r.Context(), req.RefreshToken)
				if err != nil {
					httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, pair)
			})
		})

		// ---------- authenticated (rate limited per account) ----------
		r.Group(func(r chi.Router) {
			r.Use(am.Auth, middleware.RateLimit(cfg.RateRPS))

			r.Get("/balance", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.AccountID(r.Context())
				b, err := ls.Current(r.Context(), uid)
				if err != nil {
					httpx.WriteError(w, http.StatusNotFound, "not_found", "balance not found", nil)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, b)
			})

			r.Get("/matches/{id}/players", func(w http.ResponseWriter, r *http.Request) {
				players, err := cat.ListPlayers(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					httpx.WriteError(w, http.StatusBadGateway, "catalog_unavailable", "catalog unavailable", nil)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, players)
			})

			r.Post("/entries", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.AccountID(r.Context())
				var req struct {
					MatchID   string   `json:"match_id"`
					TeamName  string   `json:"team_name"`
					PlayerIDs []string `json:"player_ids"`
				}
				if err := httpx.Decode(r, &req); err != nil || req.MatchID == "" {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "bad request", nil)
					return
				}

				// Snapshot catalog data into slots server-side; client
				// sends ids only.
				slots := make([]models.Slot, 0, len(req.PlayerIDs))
				for _, id := range req.PlayerIDs {
					p, err := cat.Resolve(id)
					if err != nil {
						httpx.WriteError(w, http.StatusBadRequest, "unknown_player", "unknown player: "+id, nil)
						return
					}
					slots = append(slots, models.Slot{
						PlayerID: p.ID, PlayerName: p.Name, PlayerRole: p.Role, Cost: p.Cost,
					})
				}

				entry, err := es.Submit(r.Context(), services.SubmitRequest{
					AccountID:      uid,
					MatchID:        req.MatchID,
					TeamName:       req.TeamName,
					Slots:          slots,
					IdempotencyKey: r.Header.Get("Idempotency-Key"),
				})
				if err != nil {
					writeSubmitError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, entry)
			})

			r.Get("/entries", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.AccountID(r.Context())
				limit, offset := 50, 0
				if v := r.URL.Query().Get("limit"); v != "" {
					if n, err := strconv.Atoi(v); err == nil && n > 0 { limit = n }
				}
				if v := r.URL.Query().Get("offset"); v != "" {
					if n, err := strconv.Atoi(v); err == nil && n >= 0 { offset = n }
				}
				list, err := es.ListByAccount(r.Context(), uid, limit, offset)
				if err != nil {
					httpx.WriteError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, list)
			})

			r.Delete("/entries/{id}", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.AccountID(r.Context())
				entry, err := es.Cancel(r.Context(), uid, chi.URLParam(r, "id"))
				switch {
				case err == nil:
					httpx.WriteJSON(w, http.StatusOK, entry)
				case errors.Is(err, services.ErrAlreadyRefunded):
					httpx.WriteError(w, http.StatusConflict, "already_refunded", "entry already refunded", nil)
				case errors.Is(err, repo.ErrNotFound):
					httpx.WriteError(w, http.StatusNotFound, "not_found", "entry not found", nil)
				default:
					httpx.WriteError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
				}
			})

			r.Get("/entries/{id}", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.AccountID(r.Context())
				entry, err := es.GetByID(r.Context(), chi.URLParam(r, "id"))
				if err != nil || entry.AccountID != uid {
					httpx.WriteError(w, http.StatusNotFound, "not_found", "entry not found", nil)
					return
				}
				ros, err := es.GetRoster(r.Context(), entry.RosterID)
				if err != nil {
					httpx.WriteError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, map[string]any{"entry": entry, "roster": ros})
			})

			// ---------- support / back-office ----------
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin"))

				r.Get("/admin/accounts/{id}/balance", func(w http.ResponseWriter, r *http.Request) {
					b, err := ls.Current(r.Context(), chi.URLParam(r, "id"))
					if err != nil {
						httpx.WriteError(w, http.StatusNotFound, "not_found", "balance not found", nil)
						return
					}
					httpx.WriteJSON(w, http.StatusOK, b)
				})

				r.Get("/admin/accounts/{id}/entries", func(w http.ResponseWriter, r *http.Request) {
					list, err := es.ListByAccount(r.Context(), chi.URLParam(r, "id"), 50, 0)
					if err != nil {
						httpx.WriteError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
						return
					}
					httpx.WriteJSON(w, http.StatusOK, list)
				})
			})
		})
	})

	return r
}

// writeSubmitError maps entry-engine errors to stable API codes. Persistence
// failures are only surfaced after the compensating credit ran, so the
// message can honestly say nothing was charged.
func writeSubmitError(w http.ResponseWriter, err error) {
	var budgetErr *roster.BudgetError
	var balErr *services.InsufficientBalanceError

	switch {
	case errors.Is(err, services.ErrEmptyTeamName):
		httpx.WriteError(w, http.StatusBadRequest, "empty_team_name", "team name required", nil)
	case errors.Is(err, roster.ErrWrongSlotCount):
		httpx.WriteError(w, http.StatusBadRequest, "wrong_slot_count", err.Error(), nil)
	case errors.Is(err, roster.ErrDuplicatePlayer):
		httpx.WriteError(w, http.StatusBadRequest, "duplicate_player", err.Error(), nil)
	case errors.As(err, &budgetErr):
		httpx.WriteError(w, http.StatusBadRequest, "budget_exceeded", budgetErr.Error(),
			httpx.BudgetDetails{Total: budgetErr.Total, Cap: budgetErr.Cap})
	case errors.As(err, &balErr):
		httpx.WriteError(w, http.StatusBadRequest, "insufficient_balance", balErr.Error(),
			httpx.BalanceDetails{Required: balErr.Required, Balance: balErr.Balance})
	case errors.Is(err, services.ErrDuplicateEntryForMatch):
		httpx.WriteError(w, http.StatusConflict, "duplicate_entry", "an entry already exists for this match", nil)
	case errors.Is(err, repo.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "account balance not found", nil)
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "entry_failed",
			"entry could not be saved; no tokens were charged", nil)
	}
}
