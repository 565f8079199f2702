package middleware

import (
	"context"
	"net/http"

	"github.com/irsalhamdi/sleepoutside/api/web"
	"github.com/irsalhamdi/sleepoutside/validate"
)

const (
	RequestIDHeader = "X-Request-Id"

	// MaxRequestIDLength bounds ids accepted from clients.
	MaxRequestIDLength = 128
)

type reqIDKeyCtx int

const reqIDKey reqIDKeyCtx = 1

// RequestID reuses the client's X-Request-Id or assigns a fresh one, and
// echoes it on the response.
func RequestID() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			id := r.Header.Get(RequestIDHeader)
			switch {
			case id == "":
				id = validate.GenerateID()
			case len(id) > MaxRequestIDLength:
				id = id[:MaxRequestIDLength]
			}

			w.Header().Set(RequestIDHeader, id)
			ctx = context.WithValue(ctx, reqIDKey, id)

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func ContextRequestID(ctx context.Context) string {
	id, _ := ctx.Value(reqIDKey).(string)
	return id
}
