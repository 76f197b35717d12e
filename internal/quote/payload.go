package quote

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/noah-isme/backend-manzano/internal/pricing"
)

// Payload kinds, sent in the tipo field.
const (
	KindQuotation = "cotizacion"
	KindContact   = "contacto"
)

// Webhook paths relative to the configured base URL.
const (
	QuotationPath = "/webhook/cotizacion"
	ContactPath   = "/webhook/contacto"
)

// Cliente holds the contact details attached to a quotation.
type Cliente struct {
	Nombre      string `json:"nombre" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,max=254"`
	Telefono    string `json:"telefono" validate:"max=50"`
	FechaInicio string `json:"fecha_inicio" validate:"max=40"`
	FechaFin    string `json:"fecha_fin" validate:"max=40"`
	Mensaje     string `json:"mensaje" validate:"max=4000"`
}

// Contacto holds a standalone contact message.
type Contacto struct {
	Nombre   string `json:"nombre" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,max=254"`
	Telefono string `json:"telefono" validate:"max=50"`
	Mensaje  string `json:"mensaje" validate:"required,max=4000"`
}

// Origin describes where a submission came from.
type Origin struct {
	HP        string `json:"hp"`
	UserAgent string `json:"user_agent"`
	Referrer  string `json:"referrer"`
	Page      string `json:"page"`
}

// QuotationRequest is the client input for a quotation.
type QuotationRequest struct {
	Cliente Cliente
	Origin  Origin
}

// ContactRequest is the client input for a contact message.
type ContactRequest struct {
	Contacto Contacto
	Origin   Origin
}

// QuotationPayload is the body posted to the quotation webhook.
type QuotationPayload struct {
	Tipo      string         `json:"tipo"`
	CreatedAt string         `json:"created_at"`
	Carrito   []pricing.Line `json:"carrito"`
	Total     json.Number    `json:"total"`
	Cliente   Cliente        `json:"cliente"`
	Origin
}

// ContactPayload is the body posted to the contact webhook.
type ContactPayload struct {
	Tipo      string   `json:"tipo"`
	CreatedAt string   `json:"created_at"`
	Contacto  Contacto `json:"contacto"`
	Origin
}

// timestamp renders t the way browsers print ISO dates: UTC with milliseconds.
func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func (c Cliente) trimmed() Cliente {
	return Cliente{
		Nombre:      strings.TrimSpace(c.Nombre),
		Email:       strings.TrimSpace(c.Email),
		Telefono:    strings.TrimSpace(c.Telefono),
		FechaInicio: strings.TrimSpace(c.FechaInicio),
		FechaFin:    strings.TrimSpace(c.FechaFin),
		Mensaje:     strings.TrimSpace(c.Mensaje),
	}
}

func (c Contacto) trimmed() Contacto {
	return Contacto{
		Nombre:   strings.TrimSpace(c.Nombre),
		Email:    strings.TrimSpace(c.Email),
		Telefono: strings.TrimSpace(c.Telefono),
		Mensaje:  strings.TrimSpace(c.Mensaje),
	}
}
