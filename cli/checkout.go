package cli

import (
	"fmt"
	"io"

	"github.com/irsalhamdi/sleepoutside/core/checkout"
	"github.com/spf13/cobra"
)

type checkoutOptions struct {
	fields map[string]string
	dryRun bool
}

type checkoutResult struct {
	OrderID string          `json:"orderId"`
	Message string          `json:"message,omitempty"`
	Totals  checkout.Totals `json:"totals"`
}

func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &checkoutOptions{}

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart",
		Long: `Place an order for the cart.

Customer and payment details are passed as form fields:

  shop checkout --field fname=Ada --field lname=Lovelace --field street="1 Main St" \
    --field city=Rexburg --field state=ID --field zip=83440 \
    --field cardNumber=1234123412341234 --field expiration=12/30 --field code=123

The cart is emptied only when the service accepts the order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			form := checkout.Form(opts.fields)
			if form == nil {
				form = checkout.Form{}
			}

			return withShop(ctx, rootOpts, func(shop *Shop) error {
				if opts.dryRun {
					_, totals := checkout.Summary(ctx, shop.Cart)
					if err := checkout.ValidateForm(form); err != nil {
						return err
					}
					if totals.ItemCount == 0 {
						return checkout.ErrEmptyCart
					}
					return rootOpts.out.Success(checkoutResult{Totals: totals}, func(w io.Writer) {
						fmt.Fprintln(w, "Form is valid. Order not sent.")
						writeTotals(w, totals)
					})
				}

				conf, err := shop.Process.Submit(ctx, shop.Cart, form)
				if err != nil {
					return err
				}

				res := checkoutResult{OrderID: conf.OrderID, Message: conf.Message, Totals: conf.Totals}
				return rootOpts.out.Success(res, func(w io.Writer) {
					fmt.Fprintf(w, "Order placed: %s\n", conf.OrderID)
					if conf.Message != "" {
						fmt.Fprintln(w, conf.Message)
					}
					writeTotals(w, conf.Totals)
				})
			})
		},
	}

	cmd.Flags().StringToStringVarP(&opts.fields, "field", "f", nil, "form field as name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate the form and show totals without ordering")

	return cmd
}
