// Package redis implements the session cart store on Redis hashes. One hash
// per session keyed by product id; every write refreshes the session TTL so
// abandoned carts expire on their own.
package redis

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/aurashop/storefront/internal/domain/cart"
)

const cartKeyPrefix = "cart:"

// DefaultTTL is how long an untouched cart survives.
const DefaultTTL = 7 * 24 * time.Hour

// setQuantityScript replaces the quantity of an existing line. Returns 0 when
// the product is not in the cart; a quantity of zero or less deletes the line.
var setQuantityScript = redis.NewScript(`
local key = KEYS[1]
local field = ARGV[1]
local quantity = tonumber(ARGV[2])

if redis.call('HEXISTS', key, field) == 0 then
	return 0
end

if quantity <= 0 then
	redis.call('HDEL', key, field)
else
	redis.call('HSET', key, field, quantity)
end

return 1
`)

var _ cart.Store = (*CartStore)(nil)

// CartStore implements cart.Store backed by Redis.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore creates a CartStore with the given client and TTL. A zero ttl
// falls back to DefaultTTL.
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CartStore{client: client, ttl: ttl}
}

// Get returns the session's lines sorted by product id.
func (s *CartStore) Get(ctx context.Context, sessionID string) ([]cart.Line, error) {
	fields, err := s.client.HGetAll(ctx, cartKeyPrefix+sessionID).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read cart hash")
	}

	lines := make([]cart.Line, 0, len(fields))
	for id, raw := range fields {
		qty, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "corrupt quantity for product %q", id)
		}
		lines = append(lines, cart.Line{ProductID: id, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

func (s *CartStore) Add(ctx context.Context, sessionID, productID string, quantity int) error {
	key := cartKeyPrefix + sessionID
	if err := s.client.HIncrBy(ctx, key, productID, int64(quantity)).Err(); err != nil {
		return errors.Wrap(err, "increment cart line")
	}
	return s.touch(ctx, key)
}

func (s *CartStore) SetQuantity(ctx context.Context, sessionID, productID string, quantity int) error {
	key := cartKeyPrefix + sessionID
	n, err := setQuantityScript.Run(ctx, s.client, []string{key}, productID, quantity).Int()
	if err != nil {
		return errors.Wrap(err, "set cart quantity")
	}
	if n == 0 {
		return cart.ErrNotInCart
	}
	return s.touch(ctx, key)
}

func (s *CartStore) Remove(ctx context.Context, sessionID, productID string) error {
	n, err := s.client.HDel(ctx, cartKeyPrefix+sessionID, productID).Result()
	if err != nil {
		return errors.Wrap(err, "delete cart line")
	}
	if n == 0 {
		return cart.ErrNotInCart
	}
	return nil
}

func (s *CartStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, cartKeyPrefix+sessionID).Err(); err != nil {
		return errors.Wrap(err, "delete cart hash")
	}
	return nil
}

func (s *CartStore) touch(ctx context.Context, key string) error {
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "refresh cart ttl")
	}
	return nil
}
