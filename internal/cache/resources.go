package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/campusshare/campusshare/internal/model"
)

const (
	// resourceListKey holds the unfiltered, newest-first resource listing.
	resourceListKey = "resources:list:all"
	// resourceListGenKey is bumped by every invalidation. A fill only lands
	// when the generation it read before querying is still current.
	resourceListGenKey = "resources:list:gen"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fillListScript writes the listing only while the generation matches.
// KEYS[1] = list key, KEYS[2] = generation key
// ARGV[1] = expected generation, ARGV[2] = payload, ARGV[3] = ttl ms
var fillListScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// GetResourceList returns the cached unfiltered listing or ErrCacheMiss.
// A corrupted entry is deleted and reported as a miss.
func (c *Cache) GetResourceList(ctx context.Context) ([]*model.Resource, error) {
	data, err := c.client.Get(ctx, resourceListKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	resources, err := decodeResources(data)
	if err != nil {
		c.client.Del(ctx, resourceListKey)
		return nil, ErrCacheMiss
	}

	return resources, nil
}

// ResourceListGeneration returns the current invalidation generation. Read it
// before querying the store and hand it to SetResourceList.
func (c *Cache) ResourceListGeneration(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, resourceListGenKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read resource list generation: %w", err)
	}
	return gen, nil
}

// SetResourceList caches the unfiltered listing for ttl unless an
// invalidation happened after gen was read. It reports whether the entry
// was written.
func (c *Cache) SetResourceList(ctx context.Context, resources []*model.Resource, gen int64, ttl time.Duration) (bool, error) {
	if ttl < time.Millisecond {
		return false, nil
	}

	data, err := encodeResources(resources)
	if err != nil {
		return false, fmt.Errorf("failed to encode resource list: %w", err)
	}

	written, err := fillListScript.Run(ctx, c.client,
		[]string{resourceListKey, resourceListGenKey},
		strconv.FormatInt(gen, 10), data, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to cache resource list: %w", err)
	}
	return written == 1, nil
}

// InvalidateResourceList bumps the generation and drops the cached listing
// after a write.
func (c *Cache) InvalidateResourceList(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, resourceListGenKey)
		pipe.Del(ctx, resourceListKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate resource list: %w", err)
	}
	return nil
}

func encodeResources(resources []*model.Resource) ([]byte, error) {
	if resources == nil {
		resources = []*model.Resource{}
	}
	return json.Marshal(resources)
}

func decodeResources(data []byte) ([]*model.Resource, error) {
	var resources []*model.Resource
	if err := json.Unmarshal(data, &resources); err != nil {
		return nil, err
	}
	if resources == nil {
		return nil, errors.New("resource list entry is not an array")
	}
	return resources, nil
}
