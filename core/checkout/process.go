package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/irsalhamdi/sleepoutside/core/cart"
	"github.com/irsalhamdi/sleepoutside/validate"
	"github.com/sirupsen/logrus"
)

// ErrEmptyCart is returned when submitting a cart with nothing to order.
var ErrEmptyCart = errors.New("no items to checkout")

// Confirmation is the service's answer to an accepted order. Totals are
// the ones sent with the order.
type Confirmation struct {
	OrderID string          `json:"orderId"`
	Message string          `json:"message,omitempty"`
	Totals  Totals          `json:"totals"`
	Raw     json.RawMessage `json:"-"`
}

// Submitter places orders with the remote service.
type Submitter interface {
	Checkout(ctx context.Context, p Payload) (Confirmation, error)
}

// Customer is the subset of the form checked before an order is sent.
type Customer struct {
	FirstName  string `json:"fname" validate:"required"`
	LastName   string `json:"lname" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	Zip        string `json:"zip" validate:"required,numeric,len=5"`
	CardNumber string `json:"cardNumber" validate:"required,numeric,min=13,max=19"`
	Expiration string `json:"expiration" validate:"required,expiry"`
	Code       string `json:"code" validate:"required,numeric,min=3,max=4"`
}

func customerOf(f Form) Customer {
	digits := strings.NewReplacer(" ", "", "-", "")
	return Customer{
		FirstName:  strings.TrimSpace(f["fname"]),
		LastName:   strings.TrimSpace(f["lname"]),
		Street:     strings.TrimSpace(f["street"]),
		City:       strings.TrimSpace(f["city"]),
		State:      strings.TrimSpace(f["state"]),
		Zip:        strings.TrimSpace(f["zip"]),
		CardNumber: digits.Replace(f["cardNumber"]),
		Expiration: strings.TrimSpace(f["expiration"]),
		Code:       strings.TrimSpace(f["code"]),
	}
}

// FormError lists the form fields that failed validation.
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return "invalid form fields: " + strings.Join(names, ", ")
}

// ValidateForm reports every invalid field of f.
func ValidateForm(f Form) error {
	fields, err := validate.Fields(customerOf(f))
	if err != nil {
		return fmt.Errorf("validating form: %w", err)
	}
	if len(fields) > 0 {
		return &FormError{Fields: fields}
	}
	return nil
}

type Process struct {
	orders Submitter
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewProcess(orders Submitter, log logrus.FieldLogger) *Process {
	return &Process{
		orders: orders,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Summary loads the cart and computes its totals.
func Summary(ctx context.Context, st *cart.Store) ([]cart.Item, Totals) {
	items := st.Load(ctx)
	return items, Compute(items)
}

// Submit validates the form, recomputes totals from the stored cart and
// sends the order. The cart is cleared only when the service accepts it.
func (p *Process) Submit(ctx context.Context, st *cart.Store, form Form) (Confirmation, error) {
	if err := ValidateForm(form); err != nil {
		return Confirmation{}, err
	}

	items, totals := Summary(ctx, st)
	if len(items) == 0 || totals.ItemCount == 0 {
		return Confirmation{}, ErrEmptyCart
	}

	payload := NewPayload(form, items, totals, p.now())

	conf, err := p.orders.Checkout(ctx, payload)
	if err != nil {
		return Confirmation{}, fmt.Errorf("submitting order: %w", err)
	}

	conf.Totals = totals

	log := p.log.WithFields(logrus.Fields{
		"order_id":    conf.OrderID,
		"cart":        st.Key(),
		"grand_total": payload.GrandTotal,
	})
	log.Info("order placed")

	if err := st.Clear(ctx); err != nil {
		log.WithField("message", err).Warn("order placed but cart could not be cleared")
	}

	return conf, nil
}
