package quote

import (
	"net/http"
	"strings"

	"github.com/noah-isme/backend-manzano/internal/common"
)

// Handler exposes the submission endpoints.
type Handler struct {
	Service *Service
}

type quotationBody struct {
	Cliente
	HP   string `json:"hp"`
	Page string `json:"page"`
}

type contactBody struct {
	Contacto
	HP   string `json:"hp"`
	Page string `json:"page"`
}

// Quotation handles POST /api/v1/cotizacion.
func (h *Handler) Quotation(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	session, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "INVALID_SESSION", "cart session required", nil)
		return
	}
	var body quotationBody
	if err := common.ReadJSON(w, r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	req := QuotationRequest{Cliente: body.Cliente, Origin: originOf(r, body.HP, body.Page)}
	if err := h.Service.SubmitQuotation(r.Context(), session, req); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"status": "sent", "message": "Solicitud enviada"}})
}

// Contact handles POST /api/v1/contacto.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var body contactBody
	if err := common.ReadJSON(w, r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	req := ContactRequest{Contacto: body.Contacto, Origin: originOf(r, body.HP, body.Page)}
	if err := h.Service.SubmitContact(r.Context(), req); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"status": "sent", "message": "Mensaje enviado"}})
}

func originOf(r *http.Request, hp, page string) Origin {
	page = strings.TrimSpace(page)
	if page == "" {
		page = r.Referer()
	}
	return Origin{
		HP:        strings.TrimSpace(hp),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
		Page:      page,
	}
}
