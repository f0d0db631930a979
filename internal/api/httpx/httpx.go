// Package httpx holds the JSON response envelope and the error-detail shapes
// the API exposes. Handlers never write raw bodies.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
)

type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// BudgetDetails accompanies a budget_exceeded rejection.
type BudgetDetails struct {
	Total int64 `json:"total"`
	Cap   int64 `json:"cap"`
}

// BalanceDetails accompanies an insufficient_balance rejection.
type BalanceDetails struct {
	Required int64 `json:"required"`
	Balance  int64 `json:"balance"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details any) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// Decode reads a single JSON body into v and rejects unknown fields, so a
// misspelled field fails loudly instead of silently defaulting.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}
