package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fallback forwards to a primary backend until the first time it fails.
// From then on every call goes to an in-memory substitute for the rest of
// the process lifetime. Failures are logged, never returned.
type Fallback struct {
	primary Storage
	memory  *Memory
	log     logrus.FieldLogger

	mu       sync.RWMutex
	degraded bool
}

func NewFallback(primary Storage, log logrus.FieldLogger) *Fallback {
	return &Fallback{
		primary: primary,
		memory:  NewMemory(),
		log:     log,
	}
}

// Degraded reports whether the primary backend has been abandoned.
func (f *Fallback) Degraded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.degraded
}

func (f *Fallback) Get(ctx context.Context, key string) ([]byte, error) {
	if !f.Degraded() {
		v, err := f.primary.Get(ctx, key)
		if err == nil || errors.Is(err, ErrNotFound) || aborted(ctx, err) {
			return v, err
		}
		f.degrade("get", key, err)
	}
	return f.memory.Get(ctx, key)
}

func (f *Fallback) Set(ctx context.Context, key string, value []byte) error {
	if !f.Degraded() {
		err := f.primary.Set(ctx, key, value)
		if err == nil || aborted(ctx, err) {
			return err
		}
		f.degrade("set", key, err)
	}
	return f.memory.Set(ctx, key, value)
}

func (f *Fallback) Delete(ctx context.Context, key string) error {
	if !f.Degraded() {
		err := f.primary.Delete(ctx, key)
		if err == nil || aborted(ctx, err) {
			return err
		}
		f.degrade("delete", key, err)
	}
	return f.memory.Delete(ctx, key)
}

// aborted reports whether err comes from the caller giving up rather than
// from the backend.
func aborted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (f *Fallback) degrade(op, key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.degraded {
		return
	}
	f.degraded = true

	f.log.WithFields(logrus.Fields{
		"op":      op,
		"key":     key,
		"message": err,
	}).Warn("storage unavailable, using in-memory substitute")
}
