package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/irsalhamdi/sleepoutside/api/web"
	"github.com/irsalhamdi/sleepoutside/api/weberr"
	"github.com/irsalhamdi/sleepoutside/rate"
)

// RateLimit throttles each remote address independently.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			client := clientAddr(r)
			if !lim.Check(client) {
				return weberr.TooManyRequests(
					errors.New("rate limit exceeded"),
					weberr.WithFields(map[string]interface{}{"client": client}),
				)
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
