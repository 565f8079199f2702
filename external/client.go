// Package external talks to the remote catalog and order service.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/irsalhamdi/sleepoutside/core/checkout"
	"github.com/irsalhamdi/sleepoutside/core/product"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxBodyBytes = 1 << 20

var errServerStatus = errors.New("server error status")

type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	OpenTimeout         time.Duration
	ConsecutiveFailures uint32
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	Breaker BreakerConfig
}

type response struct {
	status int
	body   []byte
}

// Client calls the service without retries. Calls run through a circuit
// breaker that trips on transport failures and 5xx answers.
type Client struct {
	base string
	http *http.Client
	cb   *gobreaker.CircuitBreaker[response]
	log  logrus.FieldLogger
}

func New(cfg Config, log logrus.FieldLogger) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid service base url %q", cfg.BaseURL)
	}

	failures := cfg.Breaker.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}

	st := gobreaker.Settings{
		Name:        "remote-service",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	}

	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cb:  gobreaker.NewCircuitBreaker[response](st),
		log: log,
	}, nil
}

// ProductsByCategory lists the catalog's products in a category.
func (c *Client) ProductsByCategory(ctx context.Context, category string) ([]product.Product, error) {
	var out struct {
		Result []product.Product `json:"Result"`
	}
	if err := c.getJSON(ctx, "/products/search/"+url.PathEscape(category), &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (c *Client) ProductByID(ctx context.Context, id string) (product.Product, error) {
	var out struct {
		Result *product.Product `json:"Result"`
	}
	if err := c.getJSON(ctx, "/product/"+url.PathEscape(id), &out); err != nil {
		return product.Product{}, err
	}
	if out.Result == nil || out.Result.ID == "" {
		return product.Product{}, fmt.Errorf("product[%s]: %w", id, product.ErrNotFound)
	}
	return *out.Result, nil
}

// Checkout submits an order. A 2xx answer without an order id is treated
// as a failure.
func (c *Client) Checkout(ctx context.Context, p checkout.Payload) (checkout.Confirmation, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return checkout.Confirmation{}, fmt.Errorf("encoding order: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/checkout", b)
	if err != nil {
		return checkout.Confirmation{}, err
	}

	var body struct {
		OrderID json.RawMessage `json:"orderId"`
		ID      json.RawMessage `json:"id"`
		MongoID json.RawMessage `json:"_id"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(resp.body, &body); err != nil {
		return checkout.Confirmation{}, opaque(resp.status, resp.body, fmt.Errorf("malformed response: %w", err))
	}

	id := firstID(body.OrderID, body.ID, body.MongoID)
	if id == "" {
		return checkout.Confirmation{}, opaque(resp.status, resp.body, errors.New("malformed response: no order id"))
	}

	return checkout.Confirmation{
		OrderID: id,
		Message: body.Message,
		Raw:     json.RawMessage(resp.body),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.body, out); err != nil {
		return opaque(resp.status, resp.body, fmt.Errorf("malformed response: %w", err))
	}
	return nil
}

// do returns the response of a 2xx call and a *ServiceError otherwise.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (response, error) {
	resp, err := c.cb.Execute(func() (response, error) {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
		if err != nil {
			return response{}, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		res, err := c.http.Do(req)
		if err != nil {
			return response{}, err
		}
		defer res.Body.Close()

		b, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
		if err != nil {
			return response{}, fmt.Errorf("reading response body: %w", err)
		}

		r := response{status: res.StatusCode, body: b}
		if res.StatusCode >= http.StatusInternalServerError {
			return r, errServerStatus
		}
		return r, nil
	})

	switch {
	case errors.Is(err, errServerStatus):
		return response{}, derive(resp.status, resp.body)

	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return response{}, &ServiceError{Kind: KindOpaque, Messages: []string{"service temporarily unavailable"}, Err: err}

	case err != nil:
		return response{}, opaque(0, nil, fmt.Errorf("%s %s: %w", method, path, err))
	}

	c.log.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"status": resp.status,
	}).Debug("service call")

	if resp.status < 200 || resp.status > 299 {
		return response{}, derive(resp.status, resp.body)
	}
	return resp, nil
}

func firstID(candidates ...json.RawMessage) string {
	for _, raw := range candidates {
		if len(raw) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil && n != "" {
			return n.String()
		}
	}
	return ""
}
