package checkout

import (
	"encoding/json"
	"time"

	"github.com/irsalhamdi/sleepoutside/core/cart"
)

// Form holds the customer and payment fields exactly as entered.
type Form map[string]string

// ISO8601 is the timestamp layout of orderDate, always in UTC.
const ISO8601 = "2006-01-02T15:04:05.000Z"

type PayloadItem struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	UnitPrice json.Number `json:"unitPrice"`
	Quantity  int         `json:"quantity"`
}

// Payload is the order sent to the remote service. It encodes flat: form
// fields at the top level next to the computed keys, which always win.
type Payload struct {
	Fields     Form
	OrderDate  time.Time
	Items      []PayloadItem
	Shipping   string
	Tax        string
	GrandTotal string
}

func NewPayload(form Form, items []cart.Item, t Totals, now time.Time) Payload {
	pi := make([]PayloadItem, 0, len(items))
	for _, it := range items {
		pi = append(pi, PayloadItem{
			ID:        it.ID,
			Name:      it.Name,
			UnitPrice: json.Number(it.UnitPrice.String()),
			Quantity:  it.Quantity,
		})
	}

	f := t.Format()
	return Payload{
		Fields:     form,
		OrderDate:  now,
		Items:      pi,
		Shipping:   f.Shipping,
		Tax:        f.Tax,
		GrandTotal: f.GrandTotal,
	}
}

func (p Payload) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(p.Fields)+5)
	for k, v := range p.Fields {
		m[k] = v
	}

	items := p.Items
	if items == nil {
		items = []PayloadItem{}
	}

	m["orderDate"] = p.OrderDate.UTC().Format(ISO8601)
	m["items"] = items
	m["shipping"] = p.Shipping
	m["tax"] = p.Tax
	m["grandTotal"] = p.GrandTotal

	return json.Marshal(m)
}
