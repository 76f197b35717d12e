package cart

import (
	"context"
	"errors"
	"net/http"

	"github.com/noah-isme/backend-manzano/internal/catalog"
	"github.com/noah-isme/backend-manzano/internal/common"
	"github.com/noah-isme/backend-manzano/internal/pricing"
)

// CatalogFinder resolves services for Add.
type CatalogFinder interface {
	Find(ctx context.Context, id string) (catalog.Servicio, error)
}

// Handler wires the cart store to HTTP. Requests must pass through Sessions.Middleware.
type Handler struct {
	Store   *Store
	Catalog CatalogFinder
}

type addRequest struct {
	ID string `json:"id" validate:"required,max=200"`
	pricing.Dimensions
}

type personasRequest struct {
	pricing.Target
	Value *pricing.Quantity `json:"value"`
	Delta *pricing.Quantity `json:"delta"`
}

type durationRequest struct {
	pricing.Target
	Value pricing.Quantity `json:"value"`
}

// Get handles GET /api/v1/cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	c, err := h.Store.Load(r.Context(), session)
	h.respond(w, c, err)
}

// AddItem handles POST /api/v1/cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	var req addRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	svc, err := h.Catalog.Find(r.Context(), req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := h.Store.Add(r.Context(), session, svc, req.Dimensions)
	h.respond(w, c, err)
}

// RemoveItem handles DELETE /api/v1/cart/items?id=&unidad_cobro=&noches=&dias=.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	t := pricing.Target{
		ID:     q.Get("id"),
		Unidad: pricing.NormalizeUnit(q.Get("unidad_cobro")),
		Noches: pricing.ParseQuantity(q.Get("noches")),
		Dias:   pricing.ParseQuantity(q.Get("dias")),
	}
	if err := common.Validate(t); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.Store.Remove(r.Context(), session, t)
	h.respond(w, c, err)
}

// SetPersonas handles PATCH /api/v1/cart/items/personas. The body carries either
// an absolute value or a delta.
func (h *Handler) SetPersonas(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req personasRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	var (
		c   Cart
		err error
	)
	switch {
	case req.Value != nil:
		c, err = h.Store.SetQuantity(r.Context(), session, req.Target, *req.Value)
	case req.Delta != nil:
		c, err = h.Store.Step(r.Context(), session, req.Target, int(*req.Delta))
	default:
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "validation failed", map[string]string{"value": "is required"})
		return
	}
	h.respond(w, c, err)
}

// SetNoches handles PATCH /api/v1/cart/items/noches.
func (h *Handler) SetNoches(w http.ResponseWriter, r *http.Request) {
	h.setDuration(w, r, h.Store.SetNoches)
}

// SetDias handles PATCH /api/v1/cart/items/dias.
func (h *Handler) SetDias(w http.ResponseWriter, r *http.Request) {
	h.setDuration(w, r, h.Store.SetDias)
}

func (h *Handler) setDuration(w http.ResponseWriter, r *http.Request, set func(context.Context, string, pricing.Target, pricing.Quantity) (Cart, error)) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req durationRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := set(r.Context(), session, req.Target, req.Value)
	h.respond(w, c, err)
}

// Clear handles DELETE /api/v1/cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.Store.Clear(r.Context(), session); err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ViewOf(Cart{})})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return "", false
	}
	id, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "INVALID_SESSION", "cart session required", nil)
		return "", false
	}
	return id, true
}

func (h *Handler) respond(w http.ResponseWriter, c Cart, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ViewOf(c)})
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	switch {
	case errors.As(err, &appErr):
		common.WriteAppError(w, appErr)
	case errors.Is(err, ErrInvalidSession):
		common.JSONError(w, http.StatusBadRequest, "INVALID_SESSION", "invalid cart session", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		common.JSONError(w, http.StatusServiceUnavailable, "CART_BUSY", "cart is busy, retry", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
