// Package product holds the catalog model returned by the remote service.
package product

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ErrNotFound is reported when the catalog has no product with the id.
var ErrNotFound = errors.New("product not found")

// DefaultCategory is listed when no category is requested.
const DefaultCategory = "tents"

type Brand struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

type Images struct {
	PrimarySmall  string `json:"PrimarySmall"`
	PrimaryMedium string `json:"PrimaryMedium"`
	PrimaryLarge  string `json:"PrimaryLarge"`
}

// Product mirrors the remote catalog payload. Prices are kept as decimals
// because the service sends them as JSON numbers with cents.
type Product struct {
	ID                    string           `json:"Id"`
	Name                  string           `json:"Name"`
	NameWithoutBrand      string           `json:"NameWithoutBrand"`
	Brand                 Brand            `json:"Brand"`
	FinalPrice            *decimal.Decimal `json:"FinalPrice"`
	ListPrice             *decimal.Decimal `json:"ListPrice"`
	SuggestedRetailPrice  *decimal.Decimal `json:"SuggestedRetailPrice"`
	Image                 string           `json:"Image"`
	Images                Images           `json:"Images"`
	DescriptionHtmlSimple string           `json:"DescriptionHtmlSimple"`
	Category              string           `json:"Category"`
}

// Price resolves FinalPrice, then ListPrice, then SuggestedRetailPrice.
// Missing or negative prices yield zero.
func (p Product) Price() decimal.Decimal {
	for _, v := range []*decimal.Decimal{p.FinalPrice, p.ListPrice, p.SuggestedRetailPrice} {
		if v == nil {
			continue
		}
		if v.IsNegative() {
			return decimal.Zero
		}
		return *v
	}
	return decimal.Zero
}

// Discount is the amount taken off the suggested retail price, or zero
// when the product is not discounted.
func (p Product) Discount() decimal.Decimal {
	if p.SuggestedRetailPrice == nil {
		return decimal.Zero
	}
	d := p.SuggestedRetailPrice.Sub(p.Price())
	if !d.IsPositive() {
		return decimal.Zero
	}
	return d
}

func (p Product) DisplayName() string {
	if p.NameWithoutBrand != "" {
		return p.NameWithoutBrand
	}
	return p.Name
}

// PrettyCategory turns a category slug into a heading:
// "sleeping-bags" becomes "Sleeping Bags".
func PrettyCategory(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
