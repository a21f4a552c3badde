/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/withhook/hooksync/model"
)

// cacheSize defines the size of the local cache (in number of entries) used alongside Redis.
const cacheSize = 10000

const (
	DefaultTTL       = 5 * time.Minute
	generationPrefix = "hooksync:cache:gen:"
	keyPrefix        = "hooksync:q:"
)

// QueryCache caches backend query results grouped by category. Invalidating a category bumps
// its generation, so every key written under the previous generation is never read again.
type QueryCache struct {
	cache  *cache.Cache
	client redis.UniversalClient
	ttl    time.Duration

	mu          sync.Mutex
	generations map[model.Category]int64
}

// NewQueryCache builds a two tier cache. With a nil client only the local TinyLFU tier is used and
// generations live in process memory.
func NewQueryCache(client redis.UniversalClient, ttl time.Duration) *QueryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	opts := &cache.Options{
		LocalCache: cache.NewTinyLFU(cacheSize, time.Minute),
	}
	if client != nil {
		opts.Redis = client
	}
	return &QueryCache{
		cache:       cache.New(opts),
		client:      client,
		ttl:         ttl,
		generations: make(map[model.Category]int64),
	}
}

func (q *QueryCache) generation(ctx context.Context, category model.Category) (int64, error) {
	if q.client == nil {
		q.mu.Lock()
		defer q.mu.Unlock()
		return q.generations[category], nil
	}
	gen, err := q.client.Get(ctx, generationPrefix+string(category)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (q *QueryCache) key(ctx context.Context, category model.Category, key string) (string, error) {
	gen, err := q.generation(ctx, category)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s:%d:%s", keyPrefix, category, gen, key), nil
}

// Get loads a cached value into data. It reports false on a miss.
func (q *QueryCache) Get(ctx context.Context, category model.Category, key string, data interface{}) (bool, error) {
	k, err := q.key(ctx, category, key)
	if err != nil {
		return false, err
	}
	err = q.cache.Get(ctx, k, data)
	if errors.Is(err, cache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (q *QueryCache) Set(ctx context.Context, category model.Category, key string, value interface{}) error {
	k, err := q.key(ctx, category, key)
	if err != nil {
		return err
	}
	return q.cache.Set(&cache.Item{Ctx: ctx, Key: k, Value: value, TTL: q.ttl})
}

// Once returns the cached value for key or computes it with load and stores the result.
func (q *QueryCache) Once(ctx context.Context, category model.Category, key string, data interface{}, load func() (interface{}, error)) error {
	k, err := q.key(ctx, category, key)
	if err != nil {
		return err
	}
	return q.cache.Once(&cache.Item{
		Ctx:   ctx,
		Key:   k,
		Value: data,
		TTL:   q.ttl,
		Do: func(*cache.Item) (interface{}, error) {
			return load()
		},
	})
}

// Invalidate marks every cached entry of category as stale.
func (q *QueryCache) Invalidate(ctx context.Context, category model.Category) error {
	if q.client == nil {
		q.mu.Lock()
		q.generations[category]++
		q.mu.Unlock()
	} else if err := q.client.Incr(ctx, generationPrefix+string(category)).Err(); err != nil {
		return err
	}
	logrus.WithField("category", category).Debug("query cache invalidated")
	return nil
}
