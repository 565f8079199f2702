package product

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/sleepoutside/api/web"
	"github.com/irsalhamdi/sleepoutside/api/weberr"
)

type Catalog interface {
	ProductsByCategory(ctx context.Context, category string) ([]Product, error)
	ProductByID(ctx context.Context, id string) (Product, error)
}

type listing struct {
	Category string    `json:"category"`
	Title    string    `json:"title"`
	Products []Product `json:"products"`
}

func HandleList(catalog Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		category := web.Param(r, "category")
		if category == "" {
			category = DefaultCategory
		}

		products, err := catalog.ProductsByCategory(ctx, category)
		if err != nil {
			return fmt.Errorf("listing category[%s]: %w", category, err)
		}
		if products == nil {
			products = []Product{}
		}

		l := listing{
			Category: category,
			Title:    PrettyCategory(category),
			Products: products,
		}
		return web.Respond(ctx, w, l, http.StatusOK)
	}
}

func HandleShow(catalog Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		p, err := catalog.ProductByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return weberr.NotFound(err, weberr.WithFields(map[string]interface{}{"product_id": id}))
		}
		if err != nil {
			return fmt.Errorf("fetching product[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}
