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

// Package kvstore persists opaque values under string keys. The mutation queue keeps its
// whole ordered sequence under a single key, so no backend needs more than get, set and delete.
package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/withhook/hooksync/config"
	redis_db "github.com/withhook/hooksync/internal/redis-db"
)

var ErrNotFound = errors.New("key not found")

// Store is a minimal durable key/value store.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// New opens the store selected by the storage driver. A non-nil rdb is reused by the redis driver.
func New(ctx context.Context, cnf *config.Configuration, rdb *redis_db.Redis) (Store, error) {
	switch cnf.Storage.Driver {
	case config.StorageRedis:
		if rdb == nil {
			var err error
			rdb, err = redis_db.NewRedisClient(ctx, []string{cnf.Redis.Dns}, cnf.Redis.SkipTLSVerify)
			if err != nil {
				return nil, err
			}
		}
		return NewRedisStore(rdb.Client()), nil
	case config.StorageSQLite, "":
		return OpenSQLite(ctx, cnf.Storage.Path)
	case config.StorageMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cnf.Storage.Driver)
	}
}
