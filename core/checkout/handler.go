package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/sleepoutside/api/web"
	"github.com/irsalhamdi/sleepoutside/api/weberr"
	"github.com/irsalhamdi/sleepoutside/core/cart"
	"github.com/irsalhamdi/sleepoutside/core/session"
)

type summary struct {
	Items   []cart.Item `json:"items"`
	Totals  Totals      `json:"totals"`
	Regions Regions     `json:"regions"`
}

type formErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func storeFrom(ctx context.Context, carts *cart.Carts) (*cart.Store, error) {
	s, err := session.Get(ctx)
	if err != nil {
		return nil, weberr.InternalError(err)
	}
	return carts.For(s.CartKey), nil
}

func HandleSummary(carts *cart.Carts) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		st, err := storeFrom(ctx, carts)
		if err != nil {
			return err
		}

		items, totals := Summary(ctx, st)

		regions := NewRegions(AllRegions...)
		Project(regions, totals)

		return web.Respond(ctx, w, summary{items, totals, regions}, http.StatusOK)
	}
}

func HandleSubmit(carts *cart.Carts, proc *Process) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var form Form
		if err := web.Decode(w, r, &form); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		st, err := storeFrom(ctx, carts)
		if err != nil {
			return err
		}

		conf, err := proc.Submit(ctx, st, form)

		var fe *FormError
		switch {
		case errors.As(err, &fe):
			body := formErrorResponse{Error: "invalid form", Fields: fe.Fields}
			return weberr.Wrap(err, weberr.WithResponse(body, http.StatusUnprocessableEntity))

		case errors.Is(err, ErrEmptyCart):
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)

		case err != nil:
			return err
		}

		return web.Respond(ctx, w, conf, http.StatusCreated)
	}
}
