// Package cart keeps the shopper's cart as a single list in key/value
// storage.
package cart

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/irsalhamdi/sleepoutside/core/product"
	"github.com/shopspring/decimal"
)

// DefaultKey is the storage key of a single-shopper cart.
const DefaultKey = "so-cart"

// DefaultImage is shown for products without any image.
const DefaultImage = "/images/noun_Tent_2517.svg"

var (
	ErrMissingID    = errors.New("cart item has no id")
	ErrItemNotFound = errors.New("item not in cart")
)

type Item struct {
	ID        string
	Name      string
	Brand     string
	ImageURL  string
	UnitPrice decimal.Decimal
	Quantity  int
}

type itemJSON struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand,omitempty"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	UnitPrice json.RawMessage `json:"unitPrice,omitempty"`
	Quantity  json.RawMessage `json:"quantity,omitempty"`
}

// MarshalJSON writes unitPrice as a JSON number.
func (it Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(itemJSON{
		ID:        it.ID,
		Name:      it.Name,
		Brand:     it.Brand,
		ImageURL:  it.ImageURL,
		UnitPrice: json.RawMessage(it.UnitPrice.String()),
		Quantity:  json.RawMessage(strconv.Itoa(it.Quantity)),
	})
}

func (it *Item) UnmarshalJSON(b []byte) error {
	var v itemJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	*it = Item{
		ID:        v.ID,
		Name:      v.Name,
		Brand:     v.Brand,
		ImageURL:  v.ImageURL,
		UnitPrice: ParsePrice(v.UnitPrice),
		Quantity:  ParseQuantity(v.Quantity),
	}
	return nil
}

// LineTotal is unit price times quantity.
func (it Item) LineTotal() decimal.Decimal {
	if it.Quantity <= 0 {
		return decimal.Zero
	}
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// FromProduct normalizes catalog data into a cart line of quantity 1.
func FromProduct(p product.Product) (Item, error) {
	if strings.TrimSpace(p.ID) == "" {
		return Item{}, ErrMissingID
	}

	return Item{
		ID:        p.ID,
		Name:      p.Name,
		Brand:     p.Brand.Name,
		ImageURL:  imageOf(p),
		UnitPrice: p.Price(),
		Quantity:  1,
	}, nil
}

func imageOf(p product.Product) string {
	for _, img := range []string{p.Images.PrimaryMedium, p.Images.PrimaryLarge, p.Image} {
		if img != "" {
			return rootRelative(img)
		}
	}
	return DefaultImage
}

// rootRelative rewrites leading "../" segments so page-relative catalog
// paths resolve from the site root.
func rootRelative(path string) string {
	if !strings.HasPrefix(path, "../") {
		return path
	}
	for strings.HasPrefix(path, "../") {
		path = strings.TrimPrefix(path, "../")
	}
	return "/" + path
}
