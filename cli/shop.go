package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/irsalhamdi/sleepoutside/core/cart"
	"github.com/irsalhamdi/sleepoutside/core/checkout"
	"github.com/irsalhamdi/sleepoutside/core/product"
	"github.com/irsalhamdi/sleepoutside/external"
	"github.com/irsalhamdi/sleepoutside/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Shop is everything a command needs: the catalog, the order service and
// the shopper's cart.
type Shop struct {
	Catalog product.Catalog
	Process *checkout.Process
	Cart    *cart.Store
	Log     logrus.FieldLogger

	close func() error
}

func (s *Shop) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Opener builds the shop for a command run.
type Opener func(ctx context.Context, opts *RootOptions) (*Shop, error)

// OpenShop connects to local storage and the remote service.
func OpenShop(ctx context.Context, opts *RootOptions) (*Shop, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	if opts.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if opts.Storage == storage.KindSQLite {
		if err := os.MkdirAll(filepath.Dir(opts.Data), 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "creating data directory", err)
		}
	}

	kv, closeFn, err := storage.Open(ctx, storage.Config{
		Kind:       opts.Storage,
		SQLitePath: opts.Data,
		Redis:      storage.RedisConfig{Addr: opts.RedisAddr},
	}, log)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening cart storage", err)
	}

	svc, err := external.New(external.Config{BaseURL: opts.BaseURL, Timeout: opts.Timeout}, log)
	if err != nil {
		closeFn()
		return nil, WrapExitError(ExitCommandError, "configuring service", err)
	}

	return NewShop(svc, svc, cart.NewCarts(kv, log).For(opts.CartKey), log, closeFn), nil
}

func NewShop(catalog product.Catalog, orders checkout.Submitter, st *cart.Store, log logrus.FieldLogger, closeFn func() error) *Shop {
	return &Shop{
		Catalog: catalog,
		Process: checkout.NewProcess(orders, log),
		Cart:    st,
		Log:     log,
		close:   closeFn,
	}
}

// withShop opens the shop for the duration of fn.
func withShop(ctx context.Context, opts *RootOptions, fn func(*Shop) error) error {
	shop, err := opts.open(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := shop.Close(); err != nil {
			opts.out.VerboseLog("closing storage: %v", err)
		}
	}()

	opts.out.VerboseLog("cart %q, service %s", opts.CartKey, opts.BaseURL)
	return fn(shop)
}

func formatPrice(v decimal.Decimal) string { return "$" + v.StringFixed(2) }
