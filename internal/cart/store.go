package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-manzano/internal/catalog"
	"github.com/noah-isme/backend-manzano/internal/obs"
	"github.com/noah-isme/backend-manzano/internal/pricing"
)

// DefaultPrefix namespaces cart slots.
const DefaultPrefix = "elmanzano_cart_v2"

var (
	// ErrInvalidSession is returned for a missing or malformed session id.
	ErrInvalidSession = errors.New("cart: invalid session")
	// ErrInvalidInput is returned when an operation is called with unusable arguments.
	ErrInvalidInput = errors.New("cart: invalid input")
)

var storeNopLogger = zerolog.Nop()

// Locker serialises read-modify-write cycles on one cart.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Store keeps one cart per session. Every mutation loads the stored snapshot,
// applies the change and writes it back while holding the session lock. A
// mutation that changes nothing writes nothing.
type Store struct {
	Slots   Slots
	Locker  Locker
	Prefix  string
	LockTTL time.Duration
	Logger  *zerolog.Logger
}

func (s *Store) logger() *zerolog.Logger {
	if s.Logger == nil {
		return &storeNopLogger
	}
	return s.Logger
}

func (s *Store) lockTTL() time.Duration {
	if s.LockTTL <= 0 {
		return 5 * time.Second
	}
	return s.LockTTL
}

func (s *Store) slotKey(session string) (string, error) {
	if !ValidSession(session) {
		return "", ErrInvalidSession
	}
	prefix := strings.TrimSpace(s.Prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + ":" + session, nil
}

// Load returns the stored cart. Missing or unreadable data yields an empty cart;
// only storage failures are returned as errors.
func (s *Store) Load(ctx context.Context, session string) (Cart, error) {
	key, err := s.slotKey(session)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, key)
}

func (s *Store) load(ctx context.Context, key string) (Cart, error) {
	if s.Slots == nil {
		return nil, errors.New("cart: slots not configured")
	}
	data, err := s.Slots.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return s.decode(key, data), nil
}

func (s *Store) decode(key string, data []byte) Cart {
	if len(data) == 0 {
		return Cart{}
	}
	var lines []pricing.Line
	if err := json.Unmarshal(data, &lines); err != nil {
		s.logger().Warn().Err(err).Str("slot", key).Msg("cart_snapshot_unreadable")
		return Cart{}
	}
	kept := make(Cart, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l.ID) == "" {
			continue
		}
		kept = append(kept, l)
	}
	return kept
}

func (s *Store) save(ctx context.Context, key string, c Cart) error {
	if c == nil {
		c = Cart{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.Slots.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// mutate runs fn against a private copy of the stored cart under the session
// lock and persists the result when fn reports a change.
func (s *Store) mutate(ctx context.Context, op, session string, fn func(Cart) (Cart, bool)) (Cart, error) {
	key, err := s.slotKey(session)
	if err != nil {
		return nil, err
	}
	var out Cart
	run := func(ctx context.Context) error {
		current, err := s.load(ctx, key)
		if err != nil {
			return err
		}
		next, changed := fn(current.clone())
		if !changed {
			out = current
			return nil
		}
		if err := s.save(ctx, key, next); err != nil {
			return err
		}
		out = next
		return nil
	}
	if s.Locker == nil {
		err = run(ctx)
	} else {
		err = s.Locker.WithLock(ctx, key+":lock", s.lockTTL(), run)
	}
	obs.ObserveCartOp(op, err)
	if err != nil {
		s.logger().Error().Err(err).Str("op", op).Msg("cart_operation_failed")
		return nil, err
	}
	return out, nil
}

// Add puts svc into the cart with the requested dimensions. A line with the
// same identity absorbs it instead of a new line being appended.
func (s *Store) Add(ctx context.Context, session string, svc catalog.Servicio, d pricing.Dimensions) (Cart, error) {
	if strings.TrimSpace(svc.ID) == "" {
		return nil, fmt.Errorf("service id required: %w", ErrInvalidInput)
	}
	line := svc.Line(d)
	return s.mutate(ctx, "add", session, func(c Cart) (Cart, bool) {
		return c.insert(line), true
	})
}

// Remove deletes the addressed line. Unknown targets are a no-op.
func (s *Store) Remove(ctx context.Context, session string, t pricing.Target) (Cart, error) {
	return s.mutate(ctx, "remove", session, func(c Cart) (Cart, bool) {
		i := c.index(t.Key())
		if i < 0 {
			return c, false
		}
		return c.without(i), true
	})
}

// SetQuantity sets personas on the addressed line, clamped to 1..99. Dia lines
// have no personas and are left untouched.
func (s *Store) SetQuantity(ctx context.Context, session string, t pricing.Target, value pricing.Quantity) (Cart, error) {
	return s.mutate(ctx, "set_quantity", session, func(c Cart) (Cart, bool) {
		return setPersonas(c, t, func(pricing.Quantity) pricing.Quantity { return value })
	})
}

// Step moves personas on the addressed line by delta, within 1..99.
func (s *Store) Step(ctx context.Context, session string, t pricing.Target, delta int) (Cart, error) {
	return s.mutate(ctx, "step", session, func(c Cart) (Cart, bool) {
		return setPersonas(c, t, func(cur pricing.Quantity) pricing.Quantity {
			return floorOne(cur) + pricing.Quantity(delta)
		})
	})
}

func setPersonas(c Cart, t pricing.Target, next func(pricing.Quantity) pricing.Quantity) (Cart, bool) {
	i := c.index(t.Key())
	if i < 0 || !c[i].Unidad.UsesPersonas() {
		return c, false
	}
	v := pricing.ClampPersonas(next(c[i].Personas))
	if v == c[i].Personas {
		return c, false
	}
	c[i].Personas = v
	return c, true
}

// SetNoches changes the nights of the addressed line, clamped to 1..30. The
// line changes identity, so it merges into any line already booked for that
// many nights.
func (s *Store) SetNoches(ctx context.Context, session string, t pricing.Target, value pricing.Quantity) (Cart, error) {
	return s.mutate(ctx, "set_noches", session, func(c Cart) (Cart, bool) {
		i := c.index(t.Key())
		if i < 0 || !c[i].Unidad.UsesNoches() {
			return c, false
		}
		updated := c[i]
		updated.Noches = pricing.ClampDuration(value)
		if pricing.Key(updated) == pricing.Key(c[i]) {
			return c, false
		}
		return c.rekey(i, updated), true
	})
}

// SetDias changes the days of the addressed line, clamped to 1..30, merging
// like SetNoches.
func (s *Store) SetDias(ctx context.Context, session string, t pricing.Target, value pricing.Quantity) (Cart, error) {
	return s.mutate(ctx, "set_dias", session, func(c Cart) (Cart, bool) {
		i := c.index(t.Key())
		if i < 0 || !c[i].Unidad.UsesDias() {
			return c, false
		}
		updated := c[i]
		updated.Dias = pricing.ClampDuration(value)
		if pricing.Key(updated) == pricing.Key(c[i]) {
			return c, false
		}
		return c.rekey(i, updated), true
	})
}

// Total returns the cart total.
func (s *Store) Total(ctx context.Context, session string) (pricing.Money, error) {
	c, err := s.Load(ctx, session)
	if err != nil {
		return pricing.Money{}, err
	}
	return c.Total(), nil
}

// Count returns the cart display quantity.
func (s *Store) Count(ctx context.Context, session string) (int, error) {
	c, err := s.Load(ctx, session)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context, session string) error {
	key, err := s.slotKey(session)
	if err != nil {
		return err
	}
	if s.Slots == nil {
		return errors.New("cart: slots not configured")
	}
	run := func(ctx context.Context) error {
		if err := s.Slots.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	}
	if s.Locker == nil {
		err = run(ctx)
	} else {
		err = s.Locker.WithLock(ctx, key+":lock", s.lockTTL(), run)
	}
	obs.ObserveCartOp("clear", err)
	return err
}
