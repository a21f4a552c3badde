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

package hooksync

import (
	"context"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/withhook/hooksync/backend"
	"github.com/withhook/hooksync/config"
	"github.com/withhook/hooksync/internal/cache"
	"github.com/withhook/hooksync/internal/connectivity"
	"github.com/withhook/hooksync/internal/kvstore"
	redlock "github.com/withhook/hooksync/internal/lock"
	"github.com/withhook/hooksync/internal/notification"
	redis_db "github.com/withhook/hooksync/internal/redis-db"
)

// HookSync wires the offline queue, its drain machinery and the write and read paths.
type HookSync struct {
	Queue        *MutationQueue
	Processor    *Processor
	Orchestrator *Orchestrator
	Writer       *Writer
	Reader       *Reader
	Cache        *cache.QueryCache
	Observer     connectivity.Observer

	store    kvstore.Store
	redis    *redis_db.Redis
	notifier *notification.Notifier
}

type options struct {
	store      kvstore.Store
	backend    backend.IBackend
	observer   connectivity.Observer
	httpClient *http.Client
}

type Option func(*options)

// WithStore replaces the store selected by the storage driver.
func WithStore(s kvstore.Store) Option {
	return func(o *options) { o.store = s }
}

func WithBackend(b backend.IBackend) Option {
	return func(o *options) { o.backend = b }
}

// WithObserver replaces the HTTP reachability prober.
func WithObserver(obs connectivity.Observer) Option {
	return func(o *options) { o.observer = obs }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New builds every component from cnf. Nothing runs until Start.
func New(ctx context.Context, cnf *config.Configuration, opts ...Option) (*HookSync, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	h := &HookSync{}
	var redisClient redis.UniversalClient
	if cnf.Storage.Driver == config.StorageRedis && o.store == nil {
		rdb, err := redis_db.NewRedisClient(ctx, []string{cnf.Redis.Dns}, cnf.Redis.SkipTLSVerify)
		if err != nil {
			return nil, err
		}
		h.redis = rdb
		redisClient = rdb.Client()
	}
	if rs, ok := o.store.(*kvstore.RedisStore); ok {
		redisClient = rs.Client()
	}

	h.store = o.store
	if h.store == nil {
		store, err := kvstore.New(ctx, cnf, h.redis)
		if err != nil {
			h.Close()
			return nil, err
		}
		h.store = store
	}

	be := o.backend
	if be == nil {
		be = backend.NewClient(cnf.Backend, o.httpClient)
	}
	h.Observer = o.observer
	if h.Observer == nil {
		h.Observer = connectivity.NewProber(cnf.Connectivity.ProbeUrl, cnf.Connectivity.ProbeInterval(), cnf.Connectivity.ProbeTimeout(), o.httpClient)
	}

	h.Cache = cache.NewQueryCache(redisClient, cache.DefaultTTL)
	h.notifier = notification.NewNotifier(cnf.ProjectName, cnf.Notification.Slack.WebhookUrl, o.httpClient)
	h.Queue = NewMutationQueue(h.store, cnf.Storage.QueueKey, cnf.Storage.DeadLetterKey, cnf.Sync.Attempts())

	h.Processor = NewProcessor(h.Queue, NewDispatcher(be), ProcessorConfig{
		BackoffInitial: cnf.Sync.BackoffInitial(),
		BackoffMax:     cnf.Sync.BackoffMax(),
		DrainLockTTL:   cnf.Sync.DrainLockTTL(),
	}).WithInvalidator(h.Cache).WithObserver(h.Observer).WithNotifier(h.notifier)
	if redisClient != nil {
		h.Processor.WithLocker(redlock.NewDrainLocker(redisClient, h.Queue.Key()))
	}

	h.Orchestrator = NewOrchestrator(h.Queue, h.Processor, h.Observer, cnf.Sync.StartupDelay(), cnf.Sync.Interval())
	h.Writer = NewWriter(h.Orchestrator, h.Observer, be, h.Cache)
	h.Reader = NewReader(be, h.Cache)
	return h, nil
}

// Start migrates stored records to the current schema and starts connectivity probing and the orchestrator.
func (h *HookSync) Start(ctx context.Context) error {
	if _, err := h.Queue.Migrate(ctx); err != nil {
		logrus.WithError(err).Error("failed to migrate stored mutations, continuing with the current queue")
	}
	if p, ok := h.Observer.(*connectivity.Prober); ok {
		p.Start(ctx)
	}
	h.Orchestrator.Start(ctx)
	return nil
}

// SyncNow migrates stored records and drains the queue once, outside the orchestrator's schedule.
func (h *HookSync) SyncNow(ctx context.Context) ([]string, error) {
	if _, err := h.Queue.Migrate(ctx); err != nil {
		return nil, err
	}
	return h.Orchestrator.TriggerSync(ctx), nil
}

func (h *HookSync) Stop() {
	h.Orchestrator.Stop()
	if p, ok := h.Observer.(*connectivity.Prober); ok {
		p.Stop()
	}
	if h.notifier != nil {
		h.notifier.Wait()
	}
}

// Close stops everything and releases storage connections.
func (h *HookSync) Close() {
	if h.Orchestrator != nil {
		h.Stop()
	}
	if h.store != nil {
		if err := h.store.Close(); err != nil {
			logrus.WithError(err).Warn("failed to close store")
		}
	}
	if h.redis != nil {
		if err := h.redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			logrus.WithError(err).Warn("failed to close redis client")
		}
	}
}
