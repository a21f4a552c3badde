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
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/withhook/hooksync/internal/connectivity"
	"github.com/withhook/hooksync/model"
)

type SyncEventKind string

const (
	SyncStarted  SyncEventKind = "syncing"
	SyncFinished SyncEventKind = "synced"
)

// SyncEvent describes one drain the orchestrator ran for a non-empty queue. Every SyncStarted is
// followed by a SyncFinished; Skipped is set when the pass could not run.
type SyncEvent struct {
	Kind      SyncEventKind `json:"kind"`
	Reason    string        `json:"reason"`
	Pending   int           `json:"pending"`
	Processed int           `json:"processed"`
	Skipped   bool          `json:"skipped,omitempty"`
}

// SyncListener receives progress of orchestrated drains, e.g. to show a "syncing" banner.
type SyncListener func(SyncEvent)

// SyncStatus is a snapshot of the orchestrator for diagnostics.
type SyncStatus struct {
	Running       bool       `json:"running"`
	Online        bool       `json:"online"`
	Pending       int        `json:"pending"`
	DeadLetters   int        `json:"dead_letters"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	LastProcessed int        `json:"last_processed"`
}

// Orchestrator decides when the queue is drained: once shortly after Start, on every transition
// to connected and on a fixed interval.
type Orchestrator struct {
	queue        *MutationQueue
	processor    *Processor
	observer     connectivity.Observer
	startupDelay time.Duration
	interval     time.Duration

	listenerMu sync.RWMutex
	listeners  []SyncListener

	reconnect   chan struct{}
	stopCh      chan struct{}
	wg          sync.WaitGroup
	running     bool
	unsubscribe func()
	mu          sync.Mutex

	statsMu       sync.Mutex
	lastSyncAt    *time.Time
	lastProcessed int
}

func NewOrchestrator(queue *MutationQueue, processor *Processor, observer connectivity.Observer, startupDelay, interval time.Duration) *Orchestrator {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Orchestrator{
		queue:        queue,
		processor:    processor,
		observer:     observer,
		startupDelay: startupDelay,
		interval:     interval,
		reconnect:    make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
	}
}

// OnSync registers a listener for drain progress.
func (o *Orchestrator) OnSync(l SyncListener) {
	o.listenerMu.Lock()
	defer o.listenerMu.Unlock()
	o.listeners = append(o.listeners, l)
}

func (o *Orchestrator) emit(event SyncEvent) {
	o.listenerMu.RLock()
	listeners := append([]SyncListener(nil), o.listeners...)
	o.listenerMu.RUnlock()
	for _, l := range listeners {
		l(event)
	}
}

func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return
	}
	o.running = true
	o.stopCh = make(chan struct{})
	if o.observer != nil {
		o.unsubscribe = o.observer.Subscribe(o.onConnectivityChange)
	}
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(ctx)
	}()

	logrus.WithFields(logrus.Fields{
		"startup_delay": o.startupDelay,
		"interval":      o.interval,
	}).Info("sync orchestrator started")
}

func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	if o.unsubscribe != nil {
		o.unsubscribe()
		o.unsubscribe = nil
	}
	close(o.stopCh)
	o.mu.Unlock()

	o.wg.Wait()
	logrus.Info("sync orchestrator stopped")
}

func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) onConnectivityChange(status connectivity.Status) {
	if !status.Connected {
		return
	}
	select {
	case o.reconnect <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) run(ctx context.Context) {
	startup := time.NewTimer(o.startupDelay)
	defer startup.Stop()
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("sync orchestrator context cancelled")
			return
		case <-o.stopCh:
			return
		case <-startup.C:
			o.sync(ctx, "startup")
		case <-o.reconnect:
			o.sync(ctx, "reconnect")
		case <-ticker.C:
			o.sync(ctx, "interval")
		}
	}
}

// TriggerSync drains the queue now and returns the processed ids.
func (o *Orchestrator) TriggerSync(ctx context.Context) []string {
	return o.sync(ctx, "manual")
}

func (o *Orchestrator) sync(ctx context.Context, reason string) []string {
	if o.observer != nil && connectivity.IsOffline(ctx, o.observer) {
		logrus.WithField("reason", reason).Debug("offline, sync postponed")
		return nil
	}

	pending := o.queue.Size(ctx)
	if pending > 0 {
		logrus.WithField("reason", reason).Infof("syncing %d offline mutations", pending)
		o.emit(SyncEvent{Kind: SyncStarted, Reason: reason, Pending: pending})
	}

	processed := o.processor.ProcessQueue(ctx)
	if processed == nil {
		// another pass holds the queue or connectivity dropped meanwhile
		if pending > 0 {
			o.emit(SyncEvent{Kind: SyncFinished, Reason: reason, Pending: o.queue.Size(ctx), Skipped: true})
		}
		return nil
	}

	now := time.Now()
	o.statsMu.Lock()
	o.lastSyncAt = &now
	o.lastProcessed = len(processed)
	o.statsMu.Unlock()

	if pending > 0 {
		logrus.WithField("reason", reason).Infof("synced %d offline mutations", len(processed))
		o.emit(SyncEvent{Kind: SyncFinished, Reason: reason, Pending: o.queue.Size(ctx), Processed: len(processed)})
	}
	return processed
}

// Enqueue stores m for a later drain. Callers decide beforehand that the device is offline.
func (o *Orchestrator) Enqueue(ctx context.Context, m model.Mutation) (string, bool) {
	return o.queue.Enqueue(ctx, m)
}

func (o *Orchestrator) Status(ctx context.Context) SyncStatus {
	status := SyncStatus{
		Running:     o.IsRunning(),
		Online:      o.observer == nil || !connectivity.IsOffline(ctx, o.observer),
		Pending:     o.queue.Size(ctx),
		DeadLetters: len(o.queue.DeadLetters(ctx)),
	}
	o.statsMu.Lock()
	status.LastSyncAt = o.lastSyncAt
	status.LastProcessed = o.lastProcessed
	o.statsMu.Unlock()
	return status
}
