package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/mock"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports/mocks"
)

func TestAllocateConcurrentCallersGetDistinctNumbers(t *testing.T) {
	chain := mocks.NewMockChainClient(t)
	chain.EXPECT().SequenceBaseFor(mock.Anything, "0xpayer").Return(uint64(100), nil)

	clk := clock.NewMock()
	coordination := newMemCoordination(clk)
	alloc := NewSequenceAllocator(chain, coordination, AllocatorConfig{Window: 50, LeaseTTL: 2 * time.Second}, nil, nil)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		start = make(chan struct{})
		seen  = make(map[uint64]int)
	)
	for i := 0; i < 51; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			n, err := alloc.Allocate(context.Background(), "0xpayer")
			if err != nil {
				t.Errorf("allocate: %v", err)
				return
			}
			mu.Lock()
			seen[n]++
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()

	if len(seen) != 51 {
		t.Fatalf("expected 50 window numbers plus the fallback, got %d distinct", len(seen))
	}
	for n, count := range seen {
		if n < 100 || n > 150 {
			t.Fatalf("sequence %d outside [100,150]", n)
		}
		if count != 1 {
			t.Fatalf("sequence %d handed out %d times", n, count)
		}
	}
	if seen[150] != 1 {
		t.Fatalf("expected exactly one caller to get the fallback 150")
	}

	for key := range coordination.leases {
		if !strings.HasPrefix(key, "txcommit:seq:{0xpayer}:") {
			t.Fatalf("lease key %q does not hash-tag the account", key)
		}
	}
}

func TestAllocateReusesExpiredLeases(t *testing.T) {
	chain := mocks.NewMockChainClient(t)
	chain.EXPECT().SequenceBaseFor(mock.Anything, "0xpayer").Return(uint64(7), nil)

	clk := clock.NewMock()
	alloc := NewSequenceAllocator(chain, newMemCoordination(clk), AllocatorConfig{Window: 2, LeaseTTL: 2 * time.Second}, nil, nil)

	first, _ := alloc.Allocate(context.Background(), "0xpayer")
	second, _ := alloc.Allocate(context.Background(), "0xpayer")
	if first != 7 || second != 8 {
		t.Fatalf("expected 7 then 8, got %d then %d", first, second)
	}

	clk.Add(2100 * time.Millisecond)
	third, err := alloc.Allocate(context.Background(), "0xpayer")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if third != 7 {
		t.Fatalf("expected expired lease 7 to be reused, got %d", third)
	}
}

func TestAllocateStoreFailureIsRetryable(t *testing.T) {
	chain := mocks.NewMockChainClient(t)
	chain.EXPECT().SequenceBaseFor(mock.Anything, "0xpayer").Return(uint64(1), nil)

	store := newMemCoordination(clock.NewMock())
	store.err = context.DeadlineExceeded
	alloc := NewSequenceAllocator(chain, store, AllocatorConfig{}, nil, nil)

	_, err := alloc.Allocate(context.Background(), "0xpayer")
	if !errors.Is(err, domain.ErrAllocatorUnavailable) {
		t.Fatalf("expected ErrAllocatorUnavailable, got %v", err)
	}
	if domain.ClassifyError(err) != domain.ErrorRetryable {
		t.Fatalf("expected retryable classification, got %s", domain.ClassifyError(err))
	}
}

func TestAllocatePropagatesChainError(t *testing.T) {
	chain := mocks.NewMockChainClient(t)
	chain.EXPECT().SequenceBaseFor(mock.Anything, "0xpayer").Return(uint64(0), domain.ErrChainUnavailable)

	alloc := NewSequenceAllocator(chain, newMemCoordination(clock.NewMock()), AllocatorConfig{}, nil, nil)
	if _, err := alloc.Allocate(context.Background(), "0xpayer"); !errors.Is(err, domain.ErrChainUnavailable) {
		t.Fatalf("expected chain error, got %v", err)
	}
}
