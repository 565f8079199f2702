package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exercise runs the behaviour every backend must share.
func exercise(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "so-cart")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "so-cart", []byte(`[{"id":"A"}]`)))
	got, err := s.Get(ctx, "so-cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"A"}]`, string(got))

	require.NoError(t, s.Set(ctx, "so-cart", []byte(`[]`)))
	got, err = s.Get(ctx, "so-cart")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got), "set must overwrite, not merge")

	require.NoError(t, s.Delete(ctx, "so-cart"))
	_, err = s.Get(ctx, "so-cart")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, "never-set"))
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestMemory_CopiesValues(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	v := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", v))
	v[0] = 'z'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "storage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	exercise(t, s)
}

func TestSQLite_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.db")
	ctx := context.Background()

	s1, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "so-cart", []byte(`[1]`)))
	require.NoError(t, s1.Close())

	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, "so-cart")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(got))
}

func TestSQLite_InvalidPath(t *testing.T) {
	_, err := OpenSQLite("/nonexistent/dir/storage.db")
	assert.Error(t, err)
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedis(client, 0)
	t.Cleanup(func() { r.Close() })

	exercise(t, r)
}

func TestRedis_NamespacedKeyAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedis(client, time.Hour)
	t.Cleanup(func() { r.Close() })

	require.NoError(t, r.Set(context.Background(), "so-cart:abc", []byte("[]")))

	assert.True(t, mr.Exists("storefront:so-cart:abc"))
	assert.Equal(t, time.Hour, mr.TTL("storefront:so-cart:abc"))
}

type brokenStorage struct {
	calls int
}

var errBroken = errors.New("quota exceeded")

func (b *brokenStorage) Get(context.Context, string) ([]byte, error) {
	b.calls++
	return nil, errBroken
}

func (b *brokenStorage) Set(context.Context, string, []byte) error {
	b.calls++
	return errBroken
}

func (b *brokenStorage) Delete(context.Context, string) error {
	b.calls++
	return errBroken
}

func TestFallback_PassesThroughHealthyPrimary(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	primary := NewMemory()
	f := NewFallback(primary, log)

	exercise(t, f)

	assert.False(t, f.Degraded())
	assert.Empty(t, hook.Entries)
}

func TestFallback_DegradesToMemory(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	primary := &brokenStorage{}
	f := NewFallback(primary, log)
	ctx := context.Background()

	require.NoError(t, f.Set(ctx, "so-cart", []byte(`[{"id":"A"}]`)))
	assert.True(t, f.Degraded())

	got, err := f.Get(ctx, "so-cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"A"}]`, string(got))

	// The primary is not consulted again once degraded.
	assert.Equal(t, 1, primary.calls)

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "set", hook.LastEntry().Data["op"])
}

func TestFallback_NotFoundIsNotAFailure(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	f := NewFallback(NewMemory(), log)

	_, err := f.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, f.Degraded())
}

func TestFallback_CallerCancellationKeepsPrimary(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	primary, err := OpenSQLite(filepath.Join(t.TempDir(), "cart.db"))
	require.NoError(t, err)
	t.Cleanup(func() { primary.Close() })

	require.NoError(t, primary.Set(context.Background(), "so-cart", []byte(`[{"id":"A"}]`)))
	f := NewFallback(primary, log)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.Get(canceled, "so-cart")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Error(t, f.Set(canceled, "so-cart", []byte(`[]`)))
	assert.Error(t, f.Delete(canceled, "so-cart"))
	assert.False(t, f.Degraded())
	assert.Empty(t, hook.Entries)

	got, err := f.Get(context.Background(), "so-cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"A"}]`, string(got))
}

type deadlineStorage struct{ brokenStorage }

func (d *deadlineStorage) Get(context.Context, string) ([]byte, error) {
	d.calls++
	return nil, context.DeadlineExceeded
}

func TestFallback_BackendDeadlineKeepsPrimary(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	primary := &deadlineStorage{}
	f := NewFallback(primary, log)

	_, err := f.Get(context.Background(), "so-cart")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, f.Degraded())

	_, _ = f.Get(context.Background(), "so-cart")
	assert.Equal(t, 2, primary.calls)
}

func TestOpen(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	ctx := context.Background()

	s, closeFn, err := Open(ctx, Config{Kind: KindSQLite, SQLitePath: filepath.Join(t.TempDir(), "s.db")}, log)
	require.NoError(t, err)
	defer closeFn()
	exercise(t, s)

	m, closeFn, err := Open(ctx, Config{}, log)
	require.NoError(t, err)
	defer closeFn()
	exercise(t, m)

	_, _, err = Open(ctx, Config{Kind: "floppy"}, log)
	assert.Error(t, err)
}
