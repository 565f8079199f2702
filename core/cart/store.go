package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/irsalhamdi/sleepoutside/storage"
	"github.com/sirupsen/logrus"
)

// lockStripes bounds the locks a Carts holds no matter how many carts it
// serves.
const lockStripes = 64

// Carts hands out stores over one storage backend. Mutations of the same
// key through the same Carts are serialized.
type Carts struct {
	kv  storage.Storage
	log logrus.FieldLogger

	locks [lockStripes]sync.Mutex
}

func NewCarts(kv storage.Storage, log logrus.FieldLogger) *Carts {
	return &Carts{
		kv:  kv,
		log: log,
	}
}

// For returns the store bound to key.
func (c *Carts) For(key string) *Store {
	return &Store{
		kv:   c.kv,
		key:  key,
		lock: c.lockFor(key),
		log:  c.log.WithField("cart", key),
	}
}

// lockFor picks the stripe guarding key. Distinct keys may share a stripe.
func (c *Carts) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &c.locks[h.Sum32()%lockStripes]
}

// Store is one cart, persisted as a JSON list under a single key.
type Store struct {
	kv   storage.Storage
	key  string
	lock *sync.Mutex
	log  logrus.FieldLogger
}

func (s *Store) Key() string { return s.key }

// Load returns the persisted items. An absent or unreadable cart is empty.
// Lines without a positive quantity are dropped.
func (s *Store) Load(ctx context.Context) []Item {
	b, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return []Item{}
	}
	if err != nil {
		s.log.WithField("message", err).Warn("cannot read cart, treating as empty")
		return []Item{}
	}

	var items []Item
	if err := json.Unmarshal(b, &items); err != nil {
		s.log.WithField("message", err).Warn("cannot parse cart, treating as empty")
		return []Item{}
	}

	// Lines whose quantity failed to parse count for nothing and are not
	// kept: a cart line always has a quantity of at least one.
	kept := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Quantity > 0 {
			kept = append(kept, it)
		}
	}
	return kept
}

// Save overwrites the whole cart.
func (s *Store) Save(ctx context.Context, items []Item) error {
	if items == nil {
		items = []Item{}
	}

	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}

	if err := s.kv.Set(ctx, s.key, b); err != nil {
		return fmt.Errorf("saving cart[%s]: %w", s.key, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.Save(ctx, nil)
}

// AddOrIncrement bumps the quantity of the item with the same id, or
// appends it with quantity 1.
func (s *Store) AddOrIncrement(ctx context.Context, item Item) ([]Item, error) {
	if item.ID == "" {
		return nil, ErrMissingID
	}

	return s.mutate(ctx, func(items []Item) ([]Item, error) {
		if i := index(items, item.ID); i >= 0 {
			items[i].Quantity++
			return items, nil
		}
		item.Quantity = 1
		return append(items, item), nil
	})
}

func (s *Store) Increment(ctx context.Context, id string) ([]Item, error) {
	return s.mutate(ctx, func(items []Item) ([]Item, error) {
		i := index(items, id)
		if i < 0 {
			return nil, ErrItemNotFound
		}
		items[i].Quantity++
		return items, nil
	})
}

// Decrement lowers the quantity by one, removing the item when it reaches
// zero.
func (s *Store) Decrement(ctx context.Context, id string) ([]Item, error) {
	return s.mutate(ctx, func(items []Item) ([]Item, error) {
		i := index(items, id)
		if i < 0 {
			return nil, ErrItemNotFound
		}
		items[i].Quantity--
		if items[i].Quantity <= 0 {
			return append(items[:i], items[i+1:]...), nil
		}
		return items, nil
	})
}

func (s *Store) Remove(ctx context.Context, id string) ([]Item, error) {
	return s.mutate(ctx, func(items []Item) ([]Item, error) {
		i := index(items, id)
		if i < 0 {
			return nil, ErrItemNotFound
		}
		return append(items[:i], items[i+1:]...), nil
	})
}

func (s *Store) mutate(ctx context.Context, fn func([]Item) ([]Item, error)) ([]Item, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	items, err := fn(s.Load(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.Save(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func index(items []Item, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
