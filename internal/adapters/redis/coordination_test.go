package redis

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCoordination(t *testing.T) (*Coordination, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	coord := NewWithClient(goredis.NewClient(&goredis.Options{Addr: server.Addr()}))
	t.Cleanup(func() {
		_ = coord.Close()
	})
	return coord, server
}

func windowKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = "txcommit:seq:{0xpayer}:" + string(rune('a'+i))
	}
	return keys
}

func TestLeaseFirstUnleasedWalksTheWindow(t *testing.T) {
	ctx := context.Background()
	coord, server := newTestCoordination(t)
	keys := windowKeys(3)

	for want := 0; want < 3; want++ {
		index, ok, err := coord.LeaseFirstUnleased(ctx, keys, time.Second)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want, index)
	}

	_, ok, err := coord.LeaseFirstUnleased(ctx, keys, time.Second)
	require.NoError(t, err)
	require.False(t, ok, "a fully leased window must report no free key")

	server.FastForward(time.Second)
	index, ok, err := coord.LeaseFirstUnleased(ctx, keys, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, index, "expired leases are handed out again from the front")
}

func TestLeaseFirstUnleasedIsExclusiveUnderContention(t *testing.T) {
	ctx := context.Background()
	coord, _ := newTestCoordination(t)
	keys := windowKeys(20)

	var (
		mu   sync.Mutex
		got  []int
		miss int
		errs []error
		wg   sync.WaitGroup
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			index, ok, err := coord.LeaseFirstUnleased(ctx, keys, time.Minute)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if !ok {
				miss++
				return
			}
			got = append(got, index)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Ints(got)
	require.Len(t, got, 20)
	for i, index := range got {
		require.Equal(t, i, index)
	}
	require.Equal(t, 5, miss)
}

func TestLeaseFirstUnleasedReportsServerErrors(t *testing.T) {
	coord, server := newTestCoordination(t)
	server.Close()

	_, _, err := coord.LeaseFirstUnleased(context.Background(), windowKeys(1), time.Second)
	require.Error(t, err)
}

func TestLeaseFirstUnleasedWithNoKeys(t *testing.T) {
	coord, _ := newTestCoordination(t)
	_, ok, err := coord.LeaseFirstUnleased(context.Background(), nil, time.Second)
	require.NoError(t, err)
	require.False(t, ok)
}
