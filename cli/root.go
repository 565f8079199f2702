// Package cli implements the shop command: a single shopper's storefront
// on the terminal, with the cart kept in local storage between runs.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/irsalhamdi/sleepoutside/core/cart"
	"github.com/irsalhamdi/sleepoutside/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment variables read by the shop command.
const EnvPrefix = "SHOP"

// DefaultBaseURL is the remote catalog and order service.
const DefaultBaseURL = "https://wdd330-backend.onrender.com"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string
	BaseURL   string
	Timeout   time.Duration
	Storage   string
	Data      string
	CartKey   string
	RedisAddr string

	open Opener
	out  *OutputFormatter
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand builds the shop command against the real service and
// local storage.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(OpenShop)
}

// NewRootCommandWith builds the shop command with a custom way of opening
// the shop, for tests.
func NewRootCommandWith(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "shop",
		Short:         "Sleep Outside storefront",
		Long:          "Browse the Sleep Outside catalog, keep a cart and place orders from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.load(v); err != nil {
				return err
			}
			opts.out = &OutputFormatter{
				Format:    opts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   opts.Verbose,
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.BaseURL, "base-url", DefaultBaseURL, "remote service base URL")
	pf.DurationVar(&opts.Timeout, "timeout", 15*time.Second, "remote service timeout")
	pf.StringVar(&opts.Storage, "storage", storage.KindSQLite, "cart storage (memory|sqlite|redis|postgres)")
	pf.StringVar(&opts.Data, "data", defaultDataPath(), "sqlite file holding the cart")
	pf.StringVar(&opts.CartKey, "cart-key", cart.DefaultKey, "storage key of the cart")
	pf.StringVar(&opts.RedisAddr, "redis-addr", "localhost:6379", "redis address when --storage=redis")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(pf)

	cmd.AddCommand(NewProductsCommand(opts))
	cmd.AddCommand(NewProductCommand(opts))
	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewCheckoutCommand(opts))

	return cmd
}

// load resolves every option from flags, then SHOP_* variables, then
// defaults.
func (o *RootOptions) load(v *viper.Viper) error {
	o.Verbose = v.GetBool("verbose")
	o.Format = v.GetString("format")
	o.BaseURL = v.GetString("base-url")
	o.Timeout = v.GetDuration("timeout")
	o.Storage = v.GetString("storage")
	o.Data = v.GetString("data")
	o.CartKey = v.GetString("cart-key")
	o.RedisAddr = v.GetString("redis-addr")

	if !isValidFormat(o.Format) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats), nil)
	}
	return nil
}

// Run executes the shop command with args and returns the exit code.
// Failures are reported on the command's writers.
func Run(ctx context.Context, cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	format := "text"
	if f, ferr := cmd.PersistentFlags().GetString("format"); ferr == nil && isValidFormat(f) {
		format = f
	}
	out := &OutputFormatter{Format: format, Writer: stdout, ErrWriter: stderr}
	out.Failure(err)

	return GetExitCode(err)
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func defaultDataPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "sleepoutside.db"
	}
	return filepath.Join(dir, "sleepoutside", "cart.db")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
