// Package api wires the storefront's routes and middleware.
package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/sleepoutside/api/middleware"
	"github.com/irsalhamdi/sleepoutside/api/web"
	"github.com/irsalhamdi/sleepoutside/core/cart"
	"github.com/irsalhamdi/sleepoutside/core/checkout"
	"github.com/irsalhamdi/sleepoutside/core/product"
	"github.com/irsalhamdi/sleepoutside/rate"
	"github.com/sirupsen/logrus"
)

// Service is the remote catalog and order service.
type Service interface {
	product.Catalog
	checkout.Submitter
}

type APIConfig struct {
	CorsOrigin      string
	Log             logrus.FieldLogger
	Session         *scs.SessionManager
	Carts           *cart.Carts
	CartKey         string
	Service         Service
	CheckoutLimiter *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, middleware.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}
		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	key := cfg.CartKey
	if key == "" {
		key = cart.DefaultKey
	}
	shopper := middleware.Cart(cfg.Session, key)

	var throttle web.Middleware
	if cfg.CheckoutLimiter != nil {
		throttle = middleware.RateLimit(cfg.CheckoutLimiter)
	}

	proc := checkout.NewProcess(cfg.Service, cfg.Log)

	a.Handle(http.MethodGet, "/health", handleHealth)

	a.Handle(http.MethodGet, "/products", product.HandleList(cfg.Service))
	a.Handle(http.MethodGet, "/products/{category}", product.HandleList(cfg.Service))
	a.Handle(http.MethodGet, "/product/{id}", product.HandleShow(cfg.Service))

	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.Carts), shopper)
	a.Handle(http.MethodDelete, "/cart", cart.HandleDelete(cfg.Carts), shopper)
	a.Handle(http.MethodPut, "/cart/items", cart.HandleCreateItem(cfg.Carts, cfg.Service), shopper)
	a.Handle(http.MethodPost, "/cart/items/{id}/increment", cart.HandleIncrementItem(cfg.Carts), shopper)
	a.Handle(http.MethodPost, "/cart/items/{id}/decrement", cart.HandleDecrementItem(cfg.Carts), shopper)
	a.Handle(http.MethodDelete, "/cart/items/{id}", cart.HandleDeleteItem(cfg.Carts), shopper)

	a.Handle(http.MethodGet, "/checkout/summary", checkout.HandleSummary(cfg.Carts), shopper)
	a.Handle(http.MethodPost, "/checkout", checkout.HandleSubmit(cfg.Carts, proc), throttle, shopper)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {
	handler = web.WrapMiddleware(mw, handler)
	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {
			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}

func handleHealth(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status := struct {
		Status string `json:"status"`
	}{"ok"}
	return web.Respond(ctx, w, status, http.StatusOK)
}
