package middleware

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/sleepoutside/api/web"
	"github.com/irsalhamdi/sleepoutside/core/session"
	"github.com/irsalhamdi/sleepoutside/validate"
)

// LoadAndSave runs the rest of the chain inside the session manager so
// session changes are committed before the response is written.
func LoadAndSave(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				err = handler(r.Context(), w, r)
			})

			sm.LoadAndSave(next).ServeHTTP(w, r.WithContext(ctx))
			return err
		}
		return h
	}
	return m
}

// Cart binds the visitor's session to a cart stored under prefix, creating
// the binding on first use.
func Cart(sm *scs.SessionManager, prefix string) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			id := sm.GetString(ctx, session.CartIDKey)
			if validate.CheckID(id) != nil {
				id = validate.GenerateID()
				sm.Put(ctx, session.CartIDKey, id)
			}

			ctx = session.Set(ctx, session.Session{
				CartID:  id,
				CartKey: session.CartKey(prefix, id),
			})
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
