// Package session carries the visitor's cart binding through a request.
package session

import (
	"context"
	"errors"
)

// CartIDKey is the session entry holding the visitor's cart id.
const CartIDKey = "cart_id"

type Session struct {
	CartID  string
	CartKey string
}

type ctxKey int

const sessionKey ctxKey = 1

func Set(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func Get(ctx context.Context) (Session, error) {
	v, ok := ctx.Value(sessionKey).(Session)
	if !ok {
		return Session{}, errors.New("session value missing from context")
	}
	return v, nil
}

// CartKey namespaces a cart id under the storage key prefix.
func CartKey(prefix, cartID string) string {
	if cartID == "" {
		return prefix
	}
	return prefix + ":" + cartID
}
