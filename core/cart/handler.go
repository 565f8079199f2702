package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/sleepoutside/api/web"
	"github.com/irsalhamdi/sleepoutside/api/weberr"
	"github.com/irsalhamdi/sleepoutside/core/product"
	"github.com/irsalhamdi/sleepoutside/core/session"
	"github.com/irsalhamdi/sleepoutside/validate"
)

// Catalog resolves products being added to a cart.
type Catalog interface {
	ProductByID(ctx context.Context, id string) (product.Product, error)
}

type ItemNew struct {
	ProductID string `json:"productId" validate:"required"`
}

type view struct {
	Items []Item `json:"items"`
}

func storeFrom(ctx context.Context, carts *Carts) (*Store, error) {
	s, err := session.Get(ctx)
	if err != nil {
		return nil, weberr.InternalError(err)
	}
	return carts.For(s.CartKey), nil
}

func HandleShow(carts *Carts) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		st, err := storeFrom(ctx, carts)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, view{st.Load(ctx)}, http.StatusOK)
	}
}

func HandleDelete(carts *Carts) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		st, err := storeFrom(ctx, carts)
		if err != nil {
			return err
		}

		if err := st.Clear(ctx); err != nil {
			return fmt.Errorf("clearing cart: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleCreateItem(carts *Carts, catalog Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.BadRequest(err, weberr.WithFields(map[string]interface{}{"productId": in.ProductID}))
		}

		p, err := catalog.ProductByID(ctx, in.ProductID)
		if errors.Is(err, product.ErrNotFound) {
			return weberr.NotFound(err)
		}
		if err != nil {
			return fmt.Errorf("looking up product[%s]: %w", in.ProductID, err)
		}

		it, err := FromProduct(p)
		if err != nil {
			return weberr.Unprocessable(err)
		}

		st, err := storeFrom(ctx, carts)
		if err != nil {
			return err
		}

		items, err := st.AddOrIncrement(ctx, it)
		if err != nil {
			return fmt.Errorf("adding product[%s]: %w", it.ID, err)
		}

		return web.Respond(ctx, w, view{items}, http.StatusOK)
	}
}

func HandleIncrementItem(carts *Carts) web.Handler {
	return handleItem(carts, (*Store).Increment)
}

func HandleDecrementItem(carts *Carts) web.Handler {
	return handleItem(carts, (*Store).Decrement)
}

func HandleDeleteItem(carts *Carts) web.Handler {
	return handleItem(carts, (*Store).Remove)
}

func handleItem(carts *Carts, op func(*Store, context.Context, string) ([]Item, error)) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		st, err := storeFrom(ctx, carts)
		if err != nil {
			return err
		}

		items, err := op(st, ctx, id)
		if errors.Is(err, ErrItemNotFound) {
			return weberr.NotFound(err, weberr.WithFields(map[string]interface{}{"item_id": id}))
		}
		if err != nil {
			return fmt.Errorf("updating item[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, view{items}, http.StatusOK)
	}
}
