package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"time"
)

// sessionPrefix namespaces session records away from carts.
const sessionPrefix = "session:"

// SessionStore keeps scs session data in a Storage backend so sessions
// outlive the process the same way carts do. Each record is the expiry as
// big-endian unix nanoseconds followed by the session data.
type SessionStore struct {
	kv  Storage
	now func() time.Time
}

func NewSessionStore(kv Storage) *SessionStore {
	return &SessionStore{kv: kv, now: now}
}

func (s *SessionStore) Find(token string) ([]byte, bool, error) {
	return s.FindCtx(context.Background(), token)
}

func (s *SessionStore) Commit(token string, b []byte, expiry time.Time) error {
	return s.CommitCtx(context.Background(), token, b, expiry)
}

func (s *SessionStore) Delete(token string) error {
	return s.DeleteCtx(context.Background(), token)
}

// FindCtx returns the session data for token. Missing, corrupt and expired
// records are reported as not found.
func (s *SessionStore) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	rec, err := s.kv.Get(ctx, sessionPrefix+token)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if len(rec) < 8 {
		return nil, false, nil
	}

	expiry := time.Unix(0, int64(binary.BigEndian.Uint64(rec[:8])))
	if !s.now().Before(expiry) {
		if err := s.kv.Delete(ctx, sessionPrefix+token); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	return rec[8:], true, nil
}

func (s *SessionStore) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	rec := make([]byte, 8+len(b))
	binary.BigEndian.PutUint64(rec[:8], uint64(expiry.UnixNano()))
	copy(rec[8:], b)
	return s.kv.Set(ctx, sessionPrefix+token, rec)
}

func (s *SessionStore) DeleteCtx(ctx context.Context, token string) error {
	return s.kv.Delete(ctx, sessionPrefix+token)
}
