package external

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/irsalhamdi/sleepoutside/core/cart"
	"github.com/irsalhamdi/sleepoutside/core/checkout"
	"github.com/irsalhamdi/sleepoutside/core/product"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/", Timeout: 5 * time.Second}, quietLog())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNew_InvalidBaseURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "not a url"}, quietLog()); err == nil {
		t.Fatal("expected an error")
	}
}

func TestProductsByCategory(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/products/search/sleeping%20bags" {
			t.Errorf("unexpected path %q", r.URL.EscapedPath())
		}
		io.WriteString(w, `{"Result":[{"Id":"1","Name":"Bag","FinalPrice":49.5}]}`)
	})

	got, err := c.ProductsByCategory(context.Background(), "sleeping bags")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "1" || !got[0].Price().Equal(decimal.RequireFromString("49.5")) {
		t.Errorf("unexpected products: %+v", got)
	}
}

func TestProductByID_NotFound(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"no such product"}`)
	})

	_, err := c.ProductByID(context.Background(), "nope")
	if !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("expected product.ErrNotFound, got %v", err)
	}
}

func TestProductByID_EmptyResult(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"Result":null}`)
	})

	if _, err := c.ProductByID(context.Background(), "x"); !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("expected product.ErrNotFound, got %v", err)
	}
}

func samplePayload() checkout.Payload {
	items := []cart.Item{{ID: "X", Name: "Tent", UnitPrice: decimal.NewFromInt(15), Quantity: 2}}
	return checkout.NewPayload(checkout.Form{"fname": "Ada"}, items, checkout.Compute(items), time.Unix(0, 0))
}

func TestCheckout_Success(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/checkout" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}

		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding order: %v", err)
		}
		if body["grandTotal"] != "43.80" || body["fname"] != "Ada" {
			t.Errorf("unexpected order body: %v", body)
		}

		io.WriteString(w, `{"orderId":"abc123","message":"Order Placed"}`)
	})

	conf, err := c.Checkout(context.Background(), samplePayload())
	if err != nil {
		t.Fatal(err)
	}
	if conf.OrderID != "abc123" || conf.Message != "Order Placed" {
		t.Errorf("unexpected confirmation: %+v", conf)
	}
}

func TestCheckout_OrderIDFallbacks(t *testing.T) {
	for body, want := range map[string]string{
		`{"id":"i-1"}`:              "i-1",
		`{"_id":"m-1"}`:             "m-1",
		`{"id":42}`:                 "42",
		`{"orderId":null,"id":"x"}`: "x",
	} {
		body := body
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, body)
		})

		conf, err := c.Checkout(context.Background(), samplePayload())
		if err != nil {
			t.Errorf("%s: %v", body, err)
			continue
		}
		if conf.OrderID != want {
			t.Errorf("%s: order id = %q, want %q", body, conf.OrderID, want)
		}
	}
}

func isOpaque(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == KindOpaque
}

func TestCheckout_MalformedSuccess(t *testing.T) {
	for _, body := range []string{`{"message":"ok"}`, `<html>ok</html>`} {
		body := body
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, body)
		})

		_, err := c.Checkout(context.Background(), samplePayload())
		if !isOpaque(err) {
			t.Errorf("%s: expected opaque service error, got %v", body, err)
		}
	}
}

func TestCheckout_Failures(t *testing.T) {
	long := strings.Repeat("é", 300)

	tests := []struct {
		name   string
		status int
		body   string
		want   *ServiceError
	}{
		{
			name:   "errors array",
			status: http.StatusBadRequest,
			body:   `{"errors":["Invalid zip", {"field":"code","message":"too short"}]}`,
			want:   &ServiceError{Kind: KindValidation, Status: 400, Messages: []string{"Invalid zip", "code: too short"}},
		},
		{
			name:   "message object",
			status: http.StatusBadRequest,
			body:   `{"message":{"zip":"Invalid Zip Code","cardNumber":"Invalid Card Number"}}`,
			want:   &ServiceError{Kind: KindValidation, Status: 400, Messages: []string{"cardNumber: Invalid Card Number", "zip: Invalid Zip Code"}},
		},
		{
			name:   "message string",
			status: http.StatusConflict,
			body:   `{"message":"card declined"}`,
			want:   &ServiceError{Kind: KindMessage, Status: 409, Messages: []string{"card declined"}},
		},
		{
			name:   "error string",
			status: http.StatusUnprocessableEntity,
			body:   `{"error":"expired card"}`,
			want:   &ServiceError{Kind: KindMessage, Status: 422, Messages: []string{"expired card"}},
		},
		{
			name:   "plain text",
			status: http.StatusBadGateway,
			body:   long,
			want:   &ServiceError{Kind: KindOpaque, Status: 502, Messages: []string{strings.Repeat("é", 200)}},
		},
		{
			name:   "empty body",
			status: http.StatusBadRequest,
			body:   ``,
			want:   &ServiceError{Kind: KindOpaque, Status: 400, Messages: []string{"Bad Request"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := c.Checkout(context.Background(), samplePayload())

			var se *ServiceError
			if !errors.As(err, &se) {
				t.Fatalf("expected *ServiceError, got %v", err)
			}
			if diff := cmp.Diff(tt.want, se); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCheckout_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, Timeout: time.Second}, quietLog())
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Checkout(context.Background(), samplePayload())
	if !isOpaque(err) {
		t.Fatalf("expected opaque service error, got %v", err)
	}
}

func TestBreaker_OpensOnServerErrorsOnly(t *testing.T) {
	var calls int32
	status := int32(http.StatusBadRequest)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(int(atomic.LoadInt32(&status)))
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL: srv.URL,
		Timeout: time.Second,
		Breaker: BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute},
	}, quietLog())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	// Client errors never trip the breaker.
	for i := 0; i < 5; i++ {
		c.Checkout(ctx, samplePayload())
	}
	if got := atomic.LoadInt32(&calls); got != 5 {
		t.Fatalf("calls = %d, want 5", got)
	}

	atomic.StoreInt32(&status, http.StatusInternalServerError)
	c.Checkout(ctx, samplePayload())
	c.Checkout(ctx, samplePayload())

	_, err = c.Checkout(ctx, samplePayload())
	if got := atomic.LoadInt32(&calls); got != 7 {
		t.Fatalf("calls = %d, want 7: open breaker must not reach the service", got)
	}

	var se *ServiceError
	if !errors.As(err, &se) || se.Kind != KindOpaque || se.Status != 0 {
		t.Fatalf("expected breaker rejection, got %v", err)
	}
}

func TestServiceError_Response(t *testing.T) {
	se := &ServiceError{Kind: KindValidation, Status: 400, Messages: []string{"zip: bad"}}

	body, status := se.Response()
	if status != http.StatusBadGateway {
		t.Errorf("status = %d", status)
	}

	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"error":"the order service could not process the request","kind":"validation","messages":["zip: bad"]}`
	if string(b) != want {
		t.Errorf("body = %s\nwant   %s", b, want)
	}
}
