package common

import "context"

type ctxKey string

const sessionIDKey ctxKey = "cart/session-id"

// WithSessionID stores the cart session identifier on the provided context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionID extracts the cart session identifier from the context if present.
func SessionID(ctx context.Context) (string, bool) {
	v := ctx.Value(sessionIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// SessionHeader carries the cart session on requests and responses.
const SessionHeader = "X-Cart-Session"
