package middleware

import (
	"context"
	"net/http"

	"github.com/irsalhamdi/sleepoutside/api/web"
	"github.com/irsalhamdi/sleepoutside/api/weberr"
	"github.com/sirupsen/logrus"
)

// Errors turns handler errors into JSON responses. Errors without an
// attached response are reported as 500 without leaking their text.
func Errors(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			body, status, ok := weberr.Response(err)
			if !ok {
				body = weberr.ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)}
				status = http.StatusInternalServerError
			}

			fields := logrus.Fields{
				"req_id":     ContextRequestID(ctx),
				"statuscode": status,
				"message":    err,
			}
			if f, ok := weberr.Fields(err); ok {
				for k, v := range f {
					fields[k] = v
				}
			}

			entry := log.WithFields(fields)
			if status >= http.StatusInternalServerError {
				entry.Error("ERROR")
			} else {
				entry.Warn("request rejected")
			}

			return web.Respond(ctx, w, body, status)
		}
		return h
	}
	return m
}
