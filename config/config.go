// Package config describes the storefront server's settings. Values come
// from STOREFRONT_* environment variables or command line flags.
package config

import (
	"time"

	"github.com/irsalhamdi/sleepoutside/database"
	"github.com/irsalhamdi/sleepoutside/external"
	"github.com/irsalhamdi/sleepoutside/storage"
)

// Prefix is prepended to every environment variable name.
const Prefix = "STOREFRONT"

type Config struct {
	Web      Web
	Cors     Cors
	Service  Service
	Storage  Storage
	Session  Session
	Checkout Checkout
	Cart     Cart
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string
}

type Service struct {
	BaseURL            string        `conf:"default:https://wdd330-backend.onrender.com"`
	Timeout            time.Duration `conf:"default:10s"`
	BreakerMaxRequests uint32        `conf:"default:1"`
	BreakerInterval    time.Duration `conf:"default:60s"`
	BreakerOpenTimeout time.Duration `conf:"default:30s"`
	BreakerMaxFailures uint32        `conf:"default:5"`
}

type Storage struct {
	Kind          string        `conf:"default:memory,help:memory|sqlite|redis|postgres"`
	SQLitePath    string        `conf:"default:storefront.db"`
	RedisAddr     string        `conf:"default:localhost:6379"`
	RedisPassword string        `conf:"mask"`
	RedisDB       int           `conf:"default:0"`
	RedisTTL      time.Duration `conf:"default:720h"`
	DB            DB
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:storefront"`
	MaxIdleConns int    `conf:"default:2"`
	MaxOpenConns int    `conf:"default:10"`
	DisableTLS   bool   `conf:"default:true"`
}

type Session struct {
	Lifetime time.Duration `conf:"default:720h"`
}

type Checkout struct {
	LimitRPS    float64       `conf:"default:0.2"`
	LimitBurst  int           `conf:"default:3"`
	LimitExpiry time.Duration `conf:"default:10m"`
}

type Cart struct {
	Key string `conf:"default:so-cart"`
}

// StorageConfig translates the settings for storage.Open.
func (c Config) StorageConfig() storage.Config {
	return storage.Config{
		Kind:       c.Storage.Kind,
		SQLitePath: c.Storage.SQLitePath,
		Redis: storage.RedisConfig{
			Addr:     c.Storage.RedisAddr,
			Password: c.Storage.RedisPassword,
			DB:       c.Storage.RedisDB,
			TTL:      c.Storage.RedisTTL,
		},
		Postgres: database.Config{
			User:         c.Storage.DB.User,
			Password:     c.Storage.DB.Password,
			Host:         c.Storage.DB.Host,
			Name:         c.Storage.DB.Name,
			MaxIdleConns: c.Storage.DB.MaxIdleConns,
			MaxOpenConns: c.Storage.DB.MaxOpenConns,
			DisableTLS:   c.Storage.DB.DisableTLS,
		},
	}
}

func (c Config) ServiceConfig() external.Config {
	return external.Config{
		BaseURL: c.Service.BaseURL,
		Timeout: c.Service.Timeout,
		Breaker: external.BreakerConfig{
			MaxRequests:         c.Service.BreakerMaxRequests,
			Interval:            c.Service.BreakerInterval,
			OpenTimeout:         c.Service.BreakerOpenTimeout,
			ConsecutiveFailures: c.Service.BreakerMaxFailures,
		},
	}
}
