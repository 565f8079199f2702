package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/irsalhamdi/sleepoutside/core/product"
	"github.com/spf13/cobra"
)

type productsResult struct {
	Category string            `json:"category"`
	Title    string            `json:"title"`
	Products []product.Product `json:"products"`
}

func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "products [category]",
		Short: "List the products of a category",
		Long:  "List the products of a category. Without a category, tents are listed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := product.DefaultCategory
			if len(args) == 1 && args[0] != "" {
				category = args[0]
			}

			return withShop(cmd.Context(), rootOpts, func(shop *Shop) error {
				products, err := shop.Catalog.ProductsByCategory(cmd.Context(), category)
				if err != nil {
					return err
				}

				res := productsResult{
					Category: category,
					Title:    product.PrettyCategory(category),
					Products: products,
				}
				return rootOpts.out.Success(res, func(w io.Writer) {
					fmt.Fprintf(w, "Top Products: %s\n\n", res.Title)
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tNAME\tPRICE")
					for _, p := range products {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.DisplayName(), formatPrice(p.Price()))
					}
					tw.Flush()
				})
			})
		},
	}
}

func NewProductCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "product <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withShop(cmd.Context(), rootOpts, func(shop *Shop) error {
				p, err := shop.Catalog.ProductByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				return rootOpts.out.Success(p, func(w io.Writer) {
					fmt.Fprintln(w, p.DisplayName())
					if p.Brand.Name != "" {
						fmt.Fprintf(w, "Brand:    %s\n", p.Brand.Name)
					}
					fmt.Fprintf(w, "Price:    %s\n", formatPrice(p.Price()))
					if off := p.Discount(); off.IsPositive() {
						fmt.Fprintf(w, "You save: %s\n", formatPrice(off))
					}
					fmt.Fprintf(w, "ID:       %s\n", p.ID)
				})
			})
		},
	}
}
