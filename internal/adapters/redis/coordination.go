package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fr0stylo/txcommit/internal/app/ports"
)

// leaseFirstUnleased sets the first key that does not exist and returns its
// index, or -1 when every key holds a live lease. It runs atomically on the server.
var leaseFirstUnleased = goredis.NewScript(`
for i = 1, #KEYS do
	if redis.call('SET', KEYS[i], '1', 'NX', 'PX', ARGV[1]) then
		return i - 1
	end
end
return -1
`)

// Coordination is the shared sequence lease store.
type Coordination struct {
	client goredis.UniversalClient
}

// Options connect to one redis server or cluster. On a cluster every key of
// one LeaseFirstUnleased call must share a hash slot.
type Options struct {
	Addrs    []string
	Password string
	DB       int
}

// New connects a universal client. A single address gives a plain client.
func New(opts Options) *Coordination {
	return NewWithClient(goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    opts.Addrs,
		Password: opts.Password,
		DB:       opts.DB,
	}))
}

// NewWithClient wraps an existing client. Close closes it.
func NewWithClient(client goredis.UniversalClient) *Coordination {
	return &Coordination{client: client}
}

// LeaseFirstUnleased leases the first free key for ttl.
func (c *Coordination) LeaseFirstUnleased(ctx context.Context, keys []string, ttl time.Duration) (int, bool, error) {
	if len(keys) == 0 {
		return 0, false, nil
	}
	ms := ttl.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	index, err := leaseFirstUnleased.Run(ctx, c.client, keys, strconv.FormatInt(ms, 10)).Int()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lease sequence key: %w", err)
	}
	if index < 0 {
		return 0, false, nil
	}
	return index, true, nil
}

// Ping reports whether the server answers.
func (c *Coordination) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Coordination) Close() error {
	return c.client.Close()
}

var _ ports.CoordinationStore = (*Coordination)(nil)
