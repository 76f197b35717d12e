package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-manzano/internal/cart"
	"github.com/noah-isme/backend-manzano/internal/common"
	"github.com/noah-isme/backend-manzano/internal/obs"
	"github.com/noah-isme/backend-manzano/internal/pricing"
)

// ErrEmptyCart is returned when a quotation is requested for an empty cart.
var ErrEmptyCart = errors.New("quote: cart is empty")

var nopLogger = zerolog.Nop()

// CartStore is the part of the cart store a submission needs.
type CartStore interface {
	Load(ctx context.Context, session string) (cart.Cart, error)
	Clear(ctx context.Context, session string) error
}

// Service builds submissions and hands them to the webhook.
type Service struct {
	Cart   CartStore
	Sender Sender
	Now    func() time.Time
	Logger *zerolog.Logger
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() *zerolog.Logger {
	if s.Logger == nil {
		return &nopLogger
	}
	return s.Logger
}

// SubmitQuotation sends the session cart with the client details. A filled
// honeypot succeeds silently without sending. The cart is cleared only after
// the receiver accepts the quotation.
func (s *Service) SubmitQuotation(ctx context.Context, session string, req QuotationRequest) error {
	if req.Origin.HP != "" {
		s.logger().Info().Str("kind", KindQuotation).Msg("submission_honeypot")
		obs.ObserveSubmission(KindQuotation, "honeypot")
		return nil
	}
	c, err := s.Cart.Load(ctx, session)
	if err != nil {
		obs.ObserveSubmission(KindQuotation, "error")
		return err
	}
	if len(c) == 0 {
		obs.ObserveSubmission(KindQuotation, "empty")
		return common.NewAppError("EMPTY_CART", "Tu carrito está vacío", http.StatusUnprocessableEntity, ErrEmptyCart)
	}
	payload := QuotationPayload{
		Tipo:      KindQuotation,
		CreatedAt: timestamp(s.now()),
		Carrito:   []pricing.Line(c),
		Total:     pricing.Number(c.Total()),
		Cliente:   req.Cliente.trimmed(),
		Origin:    req.Origin,
	}
	if err := common.Validate(payload.Cliente); err != nil {
		obs.ObserveSubmission(KindQuotation, "invalid")
		return err
	}
	if err := s.send(ctx, KindQuotation, QuotationPath, payload); err != nil {
		return err
	}
	if err := s.Cart.Clear(ctx, session); err != nil {
		s.logger().Error().Err(err).Msg("cart_clear_after_quotation_failed")
	}
	return nil
}

// SubmitContact sends a contact message. The honeypot rule matches SubmitQuotation.
func (s *Service) SubmitContact(ctx context.Context, req ContactRequest) error {
	if req.Origin.HP != "" {
		s.logger().Info().Str("kind", KindContact).Msg("submission_honeypot")
		obs.ObserveSubmission(KindContact, "honeypot")
		return nil
	}
	payload := ContactPayload{
		Tipo:      KindContact,
		CreatedAt: timestamp(s.now()),
		Contacto:  req.Contacto.trimmed(),
		Origin:    req.Origin,
	}
	if err := common.Validate(payload.Contacto); err != nil {
		obs.ObserveSubmission(KindContact, "invalid")
		return err
	}
	return s.send(ctx, KindContact, ContactPath, payload)
}

func (s *Service) send(ctx context.Context, kind, path string, payload any) error {
	if s.Sender == nil {
		return errors.New("quote: sender not configured")
	}
	err := s.Sender.Send(ctx, path, payload)
	if err == nil {
		obs.ObserveSubmission(kind, "sent")
		s.logger().Info().Str("kind", kind).Msg("submission_sent")
		return nil
	}
	obs.ObserveSubmission(kind, "failed")
	s.logger().Error().Err(err).Str("kind", kind).Msg("submission_failed")
	var remote *RemoteError
	if errors.As(err, &remote) {
		return common.NewAppError("WEBHOOK_REJECTED", remote.Message, http.StatusBadGateway, err)
	}
	return common.NewAppError("WEBHOOK_UNAVAILABLE", "no se pudo enviar la solicitud", http.StatusBadGateway, fmt.Errorf("send %s: %w", kind, err))
}
