package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/sleepoutside/api"
	"github.com/irsalhamdi/sleepoutside/config"
	"github.com/irsalhamdi/sleepoutside/core/cart"
	"github.com/irsalhamdi/sleepoutside/external"
	"github.com/irsalhamdi/sleepoutside/rate"
	"github.com/irsalhamdi/sleepoutside/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	var cfg config.Config
	help, err := conf.Parse(config.Prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, closeStorage, err := storage.Open(ctx, cfg.StorageConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer closeStorage()
	logger.WithField("kind", cfg.Storage.Kind).Info("storage ready")

	svc, err := external.New(cfg.ServiceConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to build the service client: %w", err)
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Session.Lifetime
	sessionManager.Cookie.Name = "so_session"
	sessionManager.Store = storage.NewSessionStore(kv)

	limiter := rate.NewLimiter(ctx, cfg.Checkout.LimitBurst, cfg.Checkout.LimitExpiry, cfg.Checkout.LimitRPS)

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:      cfg.Cors.Origin,
		Log:             logger,
		Session:         sessionManager,
		Carts:           cart.NewCarts(kv, logger),
		CartKey:         cfg.Cart.Key,
		Service:         svc,
		CheckoutLimiter: limiter,
	})

	srv := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}
