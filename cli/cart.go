package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/irsalhamdi/sleepoutside/core/cart"
	"github.com/irsalhamdi/sleepoutside/core/checkout"
	"github.com/spf13/cobra"
)

type cartResult struct {
	Items  []cart.Item     `json:"items"`
	Totals checkout.Totals `json:"totals"`
}

func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showCart(cmd.Context(), rootOpts)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the cart with its totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showCart(cmd.Context(), rootOpts)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart, or one more of it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withShop(ctx, rootOpts, func(shop *Shop) error {
				p, err := shop.Catalog.ProductByID(ctx, args[0])
				if err != nil {
					return err
				}
				item, err := cart.FromProduct(p)
				if err != nil {
					return err
				}
				items, err := shop.Cart.AddOrIncrement(ctx, item)
				if err != nil {
					return err
				}
				return renderCart(rootOpts.out, items)
			})
		},
	})

	cmd.AddCommand(itemCommand(rootOpts, "inc <id>", "Add one more of an item", (*cart.Store).Increment))
	cmd.AddCommand(itemCommand(rootOpts, "dec <id>", "Take one of an item away, removing it at zero", (*cart.Store).Decrement))
	cmd.AddCommand(itemCommand(rootOpts, "remove <id>", "Remove an item", (*cart.Store).Remove))

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withShop(ctx, rootOpts, func(shop *Shop) error {
				if err := shop.Cart.Clear(ctx); err != nil {
					return err
				}
				return renderCart(rootOpts.out, nil)
			})
		},
	})

	return cmd
}

func itemCommand(rootOpts *RootOptions, use, short string, op func(*cart.Store, context.Context, string) ([]cart.Item, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withShop(ctx, rootOpts, func(shop *Shop) error {
				items, err := op(shop.Cart, ctx, args[0])
				if err != nil {
					return err
				}
				return renderCart(rootOpts.out, items)
			})
		},
	}
}

func showCart(ctx context.Context, rootOpts *RootOptions) error {
	return withShop(ctx, rootOpts, func(shop *Shop) error {
		return renderCart(rootOpts.out, shop.Cart.Load(ctx))
	})
}

func renderCart(out *OutputFormatter, items []cart.Item) error {
	if items == nil {
		items = []cart.Item{}
	}
	res := cartResult{Items: items, Totals: checkout.Compute(items)}

	return out.Success(res, func(w io.Writer) {
		if len(items) == 0 {
			fmt.Fprintln(w, "Your cart is empty.")
			return
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tTOTAL")
		for _, it := range items {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", it.ID, it.Name, it.Quantity, formatPrice(it.UnitPrice), formatPrice(it.LineTotal()))
		}
		tw.Flush()

		fmt.Fprintln(w)
		writeTotals(w, res.Totals)
	})
}

// writeTotals renders totals through the same regions a checkout page
// fills.
func writeTotals(w io.Writer, t checkout.Totals) {
	regions := checkout.NewRegions(checkout.AllRegions...)
	checkout.Project(regions, t)

	fmt.Fprintf(w, "Items:    %s\n", regions[checkout.RegionItemCount])
	fmt.Fprintf(w, "Subtotal: $%s\n", regions[checkout.RegionSubtotal])
	fmt.Fprintf(w, "Tax:      $%s\n", regions[checkout.RegionTax])
	fmt.Fprintf(w, "Shipping: $%s\n", regions[checkout.RegionShipping])
	fmt.Fprintf(w, "Total:    $%s\n", regions[checkout.RegionOrderTotal])
}
