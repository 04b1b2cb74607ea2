package handlers

import (
	"net/http"
	"strings"

	"github.com/dmitrymomot/mailroom"
	"github.com/dmitrymomot/mailroom/pkg/address"
	"github.com/dmitrymomot/mailroom/pkg/guard"
)

// Suppressions serves the suppression list admin endpoints.
type Suppressions struct {
	store       guard.SuppressionStore
	middlewares []mailroom.Middleware
}

// NewSuppressions creates the suppression handlers. Middleware, typically
// middlewares.Identity with WithIdentityRequired, guards every route.
func NewSuppressions(store guard.SuppressionStore, mw ...mailroom.Middleware) *Suppressions {
	return &Suppressions{store: store, middlewares: mw}
}

func (h *Suppressions) Routes(r mailroom.Router) {
	r.Route("/v1/suppressions", func(r mailroom.Router) {
		r.Use(h.middlewares...)
		r.POST("/", h.add)
		r.GET("/{email}", h.check)
		r.DELETE("/{email}", h.remove)
	})
}

type suppressionRequest struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

type suppressionResponse struct {
	Email      string `json:"email"`
	Suppressed bool   `json:"suppressed"`
	Reason     string `json:"reason,omitempty"`
}

func (h *Suppressions) add(c mailroom.Context) error {
	var req suppressionRequest
	if err := c.BindJSON(&req); err != nil {
		return bindError(err)
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "manual"
	}

	if err := h.store.Add(c.Context(), email, reason); err != nil {
		return err
	}
	c.LogInfo("address suppressed", "email", email, "reason", reason)
	return c.JSON(http.StatusCreated, suppressionResponse{Email: email, Suppressed: true, Reason: reason})
}

func (h *Suppressions) check(c mailroom.Context) error {
	email, err := normalizeEmail(c.Param("email"))
	if err != nil {
		return err
	}

	suppressed, err := h.store.IsSuppressed(c.Context(), email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, suppressionResponse{Email: email, Suppressed: suppressed})
}

func (h *Suppressions) remove(c mailroom.Context) error {
	email, err := normalizeEmail(c.Param("email"))
	if err != nil {
		return err
	}

	if err := h.store.Remove(c.Context(), email); err != nil {
		return err
	}
	c.LogInfo("address unsuppressed", "email", email)
	return c.NoContent(http.StatusNoContent)
}

func normalizeEmail(raw string) (string, error) {
	email, ok := address.Normalize(raw)
	if !ok {
		return "", mailroom.ErrBadRequest("Invalid email address", mailroom.WithErrorCode(CodeInvalidRecipient))
	}
	return email, nil
}
