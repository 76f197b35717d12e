package lock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-manzano/internal/lock"
)

type withLocker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

func newRedisLocker(t *testing.T) (lock.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{R: client, RetryBackoff: 2 * time.Millisecond}, mr
}

// assertSerialised runs overlapping critical sections and checks none of them
// ever observe another holder inside.
func assertSerialised(t *testing.T, l withLocker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		inside  int
		maxSeen int
		mu      sync.Mutex
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock(ctx, "elmanzano_cart_v2:s1:lock", time.Second, func(context.Context) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxSeen)
}

func TestLockerSerialisesHolders(t *testing.T) {
	locker, _ := newRedisLocker(t)
	assertSerialised(t, locker)
}

func TestLockerReleasesAfterError(t *testing.T) {
	locker, mr := newRedisLocker(t)
	boom := errors.New("boom")

	err := locker.WithLock(context.Background(), "cart:lock", time.Second, func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists("cart:lock"))
}

func TestLockerKeepsForeignLock(t *testing.T) {
	locker, mr := newRedisLocker(t)

	err := locker.WithLock(context.Background(), "cart:lock", time.Second, func(context.Context) error {
		// simulate expiry and takeover by another replica
		require.NoError(t, mr.Set("cart:lock", "someone-else"))
		return nil
	})
	require.NoError(t, err)
	got, err := mr.Get("cart:lock")
	require.NoError(t, err)
	require.Equal(t, "someone-else", got)
}

func TestLockerGivesUpWithContext(t *testing.T) {
	locker, mr := newRedisLocker(t)
	require.NoError(t, mr.Set("cart:lock", "held"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := locker.WithLock(ctx, "cart:lock", time.Second, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, called)
}

func TestLockerRequiresClient(t *testing.T) {
	err := lock.Locker{}.WithLock(context.Background(), "k", time.Second, func(context.Context) error { return nil })
	require.ErrorIs(t, err, lock.ErrNoClient)
}
