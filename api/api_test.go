package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/irsalhamdi/sleepoutside/core/cart"
	"github.com/irsalhamdi/sleepoutside/core/checkout"
	"github.com/irsalhamdi/sleepoutside/core/product"
	"github.com/irsalhamdi/sleepoutside/external"
	"github.com/irsalhamdi/sleepoutside/rate"
	"github.com/irsalhamdi/sleepoutside/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type fakeService struct {
	mu       sync.Mutex
	products map[string]product.Product
	orders   []checkout.Payload
	err      error
}

func (f *fakeService) ProductsByCategory(ctx context.Context, category string) ([]product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []product.Product
	for _, p := range f.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeService) ProductByID(ctx context.Context, id string) (product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.products[id]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	return p, nil
}

func (f *fakeService) Checkout(ctx context.Context, p checkout.Payload) (checkout.Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return checkout.Confirmation{}, f.err
	}
	f.orders = append(f.orders, p)
	return checkout.Confirmation{OrderID: "ord-1", Message: "Order Placed"}, nil
}

func (f *fakeService) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type testEnv struct {
	*httptest.Server
	svc  *fakeService
	kv   storage.Storage
	http *http.Client
}

func newTestEnv(t *testing.T, lim *rate.Limiter) *testEnv {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	price := decimal.RequireFromString("15")
	svc := &fakeService{products: map[string]product.Product{
		"880RR": {ID: "880RR", Name: "Ajax Tent", Brand: product.Brand{Name: "Marmot"}, FinalPrice: &price, Category: "tents"},
	}}

	kv := storage.NewMemory()
	sm := scs.New()
	sm.Lifetime = time.Hour

	srv := httptest.NewServer(APIMux(APIConfig{
		Log:             log,
		Session:         sm,
		Carts:           cart.NewCarts(kv, log),
		Service:         svc,
		CheckoutLimiter: lim,
	}))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}

	return &testEnv{Server: srv, svc: svc, kv: kv, http: &http.Client{Jar: jar}}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, out interface{}) int {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, e.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}

	w, err := e.http.Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if out != nil {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decoding response: %v", method, path, err)
		}
	}
	return w.StatusCode
}

type cartView struct {
	Items []struct {
		ID        string  `json:"id"`
		Brand     string  `json:"brand"`
		UnitPrice float64 `json:"unitPrice"`
		Quantity  int     `json:"quantity"`
	} `json:"items"`
}

func validForm() map[string]string {
	return map[string]string{
		"fname":      "Ada",
		"lname":      "Lovelace",
		"street":     "1 Main St",
		"city":       "Rexburg",
		"state":      "ID",
		"zip":        "83440",
		"cardNumber": "1234123412341234",
		"expiration": "08/29",
		"code":       "123",
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	var got map[string]string
	if code := env.do(t, http.MethodGet, "/health", nil, &got); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if got["status"] != "ok" {
		t.Errorf("unexpected body %v", got)
	}
}

func TestProducts(t *testing.T) {
	env := newTestEnv(t, nil)

	var list struct {
		Category string            `json:"category"`
		Title    string            `json:"title"`
		Products []product.Product `json:"products"`
	}
	if code := env.do(t, http.MethodGet, "/products", nil, &list); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if list.Category != "tents" || list.Title != "Tents" || len(list.Products) != 1 {
		t.Errorf("unexpected listing %+v", list)
	}

	var empty struct {
		Products []product.Product `json:"products"`
	}
	env.do(t, http.MethodGet, "/products/hammocks", nil, &empty)
	if empty.Products == nil || len(empty.Products) != 0 {
		t.Errorf("expected empty list, got %v", empty.Products)
	}

	if code := env.do(t, http.MethodGet, "/product/nope", nil, nil); code != http.StatusNotFound {
		t.Errorf("unknown product status = %d, want 404", code)
	}
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	var v cartView
	if code := env.do(t, http.MethodGet, "/cart", nil, &v); code != http.StatusOK || len(v.Items) != 0 {
		t.Fatalf("new visitor cart: status %d, items %v", code, v.Items)
	}

	for i := 0; i < 2; i++ {
		if code := env.do(t, http.MethodPut, "/cart/items", map[string]string{"productId": "880RR"}, &v); code != http.StatusOK {
			t.Fatalf("add: status = %d", code)
		}
	}
	if len(v.Items) != 1 || v.Items[0].Quantity != 2 || v.Items[0].Brand != "Marmot" || v.Items[0].UnitPrice != 15 {
		t.Fatalf("unexpected cart after adds: %+v", v.Items)
	}

	if code := env.do(t, http.MethodPut, "/cart/items", map[string]string{"productId": "missing"}, nil); code != http.StatusNotFound {
		t.Errorf("adding unknown product: status = %d, want 404", code)
	}
	if code := env.do(t, http.MethodPut, "/cart/items", map[string]string{}, nil); code != http.StatusBadRequest {
		t.Errorf("adding without id: status = %d, want 400", code)
	}

	env.do(t, http.MethodPost, "/cart/items/880RR/increment", nil, &v)
	if v.Items[0].Quantity != 3 {
		t.Errorf("increment: quantity = %d, want 3", v.Items[0].Quantity)
	}

	env.do(t, http.MethodPost, "/cart/items/880RR/decrement", nil, &v)
	if v.Items[0].Quantity != 2 {
		t.Errorf("decrement: quantity = %d, want 2", v.Items[0].Quantity)
	}

	if code := env.do(t, http.MethodPost, "/cart/items/other/increment", nil, nil); code != http.StatusNotFound {
		t.Errorf("increment unknown item: status = %d, want 404", code)
	}

	var summary struct {
		Totals  checkout.Formatted          `json:"totals"`
		Regions map[checkout.Region]string `json:"regions"`
	}
	env.do(t, http.MethodGet, "/checkout/summary", nil, &summary)

	want := checkout.Formatted{ItemCount: 2, Subtotal: "30.00", Tax: "1.80", Shipping: "12.00", GrandTotal: "43.80"}
	if diff := cmp.Diff(want, summary.Totals); diff != "" {
		t.Errorf("totals mismatch (-want +got):\n%s", diff)
	}
	if summary.Regions[checkout.RegionOrderTotal] != "43.80" || summary.Regions[checkout.RegionItemCount] != "2" {
		t.Errorf("unexpected regions %v", summary.Regions)
	}

	env.do(t, http.MethodDelete, "/cart/items/880RR", nil, &v)
	if len(v.Items) != 0 {
		t.Errorf("remove: items = %v", v.Items)
	}
}

func TestCartsArePerVisitor(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPut, "/cart/items", map[string]string{"productId": "880RR"}, nil)

	jar, _ := cookiejar.New(nil)
	other := &testEnv{Server: env.Server, http: &http.Client{Jar: jar}}

	var v cartView
	other.do(t, http.MethodGet, "/cart", nil, &v)
	if len(v.Items) != 0 {
		t.Fatalf("second visitor sees first visitor's cart: %v", v.Items)
	}
}

func TestCheckout(t *testing.T) {
	env := newTestEnv(t, nil)

	var errBody map[string]interface{}
	if code := env.do(t, http.MethodPost, "/checkout", validForm(), &errBody); code != http.StatusUnprocessableEntity {
		t.Fatalf("empty cart: status = %d, want 422", code)
	}
	if errBody["error"] != checkout.ErrEmptyCart.Error() {
		t.Errorf("empty cart body = %v", errBody)
	}

	env.do(t, http.MethodPut, "/cart/items", map[string]string{"productId": "880RR"}, nil)
	env.do(t, http.MethodPut, "/cart/items", map[string]string{"productId": "880RR"}, nil)

	bad := validForm()
	bad["zip"] = "ABCDE"
	var formErr struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if code := env.do(t, http.MethodPost, "/checkout", bad, &formErr); code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid form: status = %d, want 422", code)
	}
	if _, ok := formErr.Fields["zip"]; !ok || len(formErr.Fields) != 1 {
		t.Errorf("unexpected field errors %v", formErr.Fields)
	}

	env.svc.fail(&external.ServiceError{Kind: external.KindValidation, Status: 400, Messages: []string{"zip: Invalid Zip Code"}})
	var svcErr struct {
		Kind     string   `json:"kind"`
		Messages []string `json:"messages"`
	}
	if code := env.do(t, http.MethodPost, "/checkout", validForm(), &svcErr); code != http.StatusBadGateway {
		t.Fatalf("service failure: status = %d, want 502", code)
	}
	if svcErr.Kind != "validation" || len(svcErr.Messages) != 1 {
		t.Errorf("unexpected service error body %+v", svcErr)
	}

	var v cartView
	env.do(t, http.MethodGet, "/cart", nil, &v)
	if len(v.Items) != 1 || v.Items[0].Quantity != 2 {
		t.Fatalf("cart changed after failed checkout: %+v", v.Items)
	}

	env.svc.fail(nil)
	var conf checkout.Confirmation
	if code := env.do(t, http.MethodPost, "/checkout", validForm(), &conf); code != http.StatusCreated {
		t.Fatalf("checkout: status = %d, want 201", code)
	}
	if conf.OrderID != "ord-1" {
		t.Errorf("order id = %q", conf.OrderID)
	}

	if len(env.svc.orders) != 1 || env.svc.orders[0].GrandTotal != "43.80" {
		t.Errorf("unexpected orders sent: %+v", env.svc.orders)
	}

	env.do(t, http.MethodGet, "/cart", nil, &v)
	if len(v.Items) != 0 {
		t.Errorf("cart not cleared after checkout: %+v", v.Items)
	}
}

func TestCheckoutRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env := newTestEnv(t, rate.NewLimiter(ctx, 1, time.Minute, rate.Every(time.Hour)))

	if code := env.do(t, http.MethodPost, "/checkout", validForm(), nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("first checkout: status = %d, want 422", code)
	}
	if code := env.do(t, http.MethodPost, "/checkout", validForm(), nil); code != http.StatusTooManyRequests {
		t.Fatalf("second checkout: status = %d, want 429", code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t, nil)

	r, _ := http.NewRequest(http.MethodGet, env.URL+"/health", nil)
	r.Header.Set("X-Request-Id", "abc-123")

	w, err := env.http.Do(r)
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()

	if got := w.Header.Get("X-Request-Id"); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}
}

func TestCartSurvivesRestart(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	price := decimal.RequireFromString("15")
	svc := &fakeService{products: map[string]product.Product{
		"880RR": {ID: "880RR", Name: "Ajax Tent", FinalPrice: &price, Category: "tents"},
	}}
	kv := storage.NewMemory()

	// Each server gets its own session manager and carts, sharing only the
	// storage backend, as two runs of the process would.
	boot := func() *httptest.Server {
		sm := scs.New()
		sm.Lifetime = time.Hour
		sm.Store = storage.NewSessionStore(kv)

		srv := httptest.NewServer(APIMux(APIConfig{
			Log:     log,
			Session: sm,
			Carts:   cart.NewCarts(kv, log),
			Service: svc,
		}))
		t.Cleanup(srv.Close)
		return srv
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}

	first := &testEnv{Server: boot(), svc: svc, kv: kv, http: &http.Client{Jar: jar}}
	if code := first.do(t, http.MethodPut, "/cart/items", map[string]string{"productId": "880RR"}, nil); code != http.StatusOK {
		t.Fatalf("add item: status %d", code)
	}
	first.Close()

	second := &testEnv{Server: boot(), svc: svc, kv: kv, http: &http.Client{Jar: jar}}
	firstURL, _ := url.Parse(first.URL)
	secondURL, _ := url.Parse(second.URL)
	jar.SetCookies(secondURL, jar.Cookies(firstURL))

	var got cartView
	if code := second.do(t, http.MethodGet, "/cart", nil, &got); code != http.StatusOK {
		t.Fatalf("show cart: status %d", code)
	}
	if len(got.Items) != 1 || got.Items[0].ID != "880RR" || got.Items[0].Quantity != 1 {
		t.Fatalf("cart lost across restart: %+v", got)
	}
}
