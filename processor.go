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
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/withhook/hooksync/internal/connectivity"
	redlock "github.com/withhook/hooksync/internal/lock"
	"github.com/withhook/hooksync/model"
)

var tracer = otel.Tracer("hooksync")

// Invalidator marks cached query results of a category as stale.
type Invalidator interface {
	Invalidate(ctx context.Context, category model.Category) error
}

// DeadLetterNotifier is told about every record moved to the dead-letter queue.
type DeadLetterNotifier interface {
	NotifyDeadLetter(record model.MutationRecord)
}

// ProcessorConfig tunes retry scheduling. A zero BackoffInitial retries failed records on every pass.
type ProcessorConfig struct {
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	DrainLockTTL   time.Duration
}

// Processor drains the queue: every eligible record is attempted once per pass, strictly in
// queue order and one at a time, since later records may depend on earlier ones.
type Processor struct {
	queue       *MutationQueue
	dispatcher  Dispatcher
	invalidator Invalidator
	observer    connectivity.Observer
	notifier    DeadLetterNotifier
	locker      *redlock.Locker
	cfg         ProcessorConfig
	now         func() time.Time

	inFlight sync.Mutex
}

func NewProcessor(queue *MutationQueue, dispatcher Dispatcher, cfg ProcessorConfig) *Processor {
	if cfg.BackoffMax < cfg.BackoffInitial {
		cfg.BackoffMax = cfg.BackoffInitial
	}
	if cfg.DrainLockTTL <= 0 {
		cfg.DrainLockTTL = 2 * time.Minute
	}
	return &Processor{
		queue:      queue,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (p *Processor) WithInvalidator(i Invalidator) *Processor {
	p.invalidator = i
	return p
}

// WithObserver makes a pass a no-op while the observer reports the device offline.
func (p *Processor) WithObserver(o connectivity.Observer) *Processor {
	p.observer = o
	return p
}

func (p *Processor) WithNotifier(n DeadLetterNotifier) *Processor {
	p.notifier = n
	return p
}

// WithLocker serialises passes across processes sharing the same redis queue.
func (p *Processor) WithLocker(l *redlock.Locker) *Processor {
	p.locker = l
	return p
}

// ProcessQueue runs one drain pass and returns the ids that were processed and removed.
// A call made while another pass is in flight returns nil without touching the store.
func (p *Processor) ProcessQueue(ctx context.Context) []string {
	if !p.inFlight.TryLock() {
		logrus.Debug("drain already in progress, skipping")
		return nil
	}
	defer p.inFlight.Unlock()

	if p.observer != nil && connectivity.IsOffline(ctx, p.observer) {
		logrus.Debug("offline, skipping drain")
		return nil
	}

	if p.locker != nil {
		if err := p.locker.Lock(ctx, p.cfg.DrainLockTTL); err != nil {
			if errors.Is(err, redlock.ErrLockHeld) {
				logrus.Debug("another process is draining the queue")
			} else {
				logrus.WithError(err).Error("failed to acquire drain lock")
			}
			return nil
		}
		defer func() {
			if err := p.locker.Unlock(context.Background()); err != nil {
				logrus.WithError(err).Warn("failed to release drain lock")
			}
		}()
	}

	ctx, span := tracer.Start(ctx, "hooksync.ProcessQueue")
	defer span.End()

	records := p.queue.ReadAll(ctx)
	if len(records) == 0 {
		return []string{}
	}
	logrus.Infof("Processing %d queued mutations", len(records))

	now := p.now()
	processed := make([]string, 0, len(records))
	var failures []model.Failure
	deferred := 0
	for _, record := range records {
		if !record.EligibleAt(now) {
			deferred++
			continue
		}

		err := p.dispatch(ctx, record)
		if err == nil {
			processed = append(processed, record.ID)
			p.invalidate(ctx, record)
		} else {
			failures = append(failures, p.failure(record, err))
		}

		if p.locker != nil {
			if err := p.locker.ExtendLock(ctx, p.cfg.DrainLockTTL); err != nil {
				logrus.WithError(err).Warn("failed to extend drain lock")
			}
		}
	}

	if len(processed) > 0 && !p.queue.RemoveByIDs(ctx, processed) {
		span.SetStatus(codes.Error, "failed to remove processed mutations")
	}
	if len(failures) > 0 {
		dead, _ := p.queue.RecordFailures(ctx, failures)
		for _, record := range dead {
			if p.notifier != nil {
				p.notifier.NotifyDeadLetter(record)
			}
		}
	}

	span.SetAttributes(
		attribute.Int("mutations.total", len(records)),
		attribute.Int("mutations.processed", len(processed)),
		attribute.Int("mutations.failed", len(failures)),
		attribute.Int("mutations.deferred", deferred),
	)
	logrus.WithFields(logrus.Fields{
		"processed": len(processed),
		"failed":    len(failures),
		"deferred":  deferred,
	}).Info("drain pass finished")
	return processed
}

func (p *Processor) dispatch(ctx context.Context, record model.MutationRecord) error {
	ctx, span := tracer.Start(ctx, "hooksync.Dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("mutation.id", record.ID),
		attribute.String("mutation.type", string(record.Type)),
		attribute.Int("mutation.attempts", record.Attempts),
	)

	err := p.dispatcher.Dispatch(ctx, record)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logrus.WithError(err).WithFields(logrus.Fields{
			"mutation_id": record.ID,
			"type":        record.Type,
			"attempts":    record.Attempts,
		}).Warn("mutation dispatch failed")
	}
	return err
}

func (p *Processor) invalidate(ctx context.Context, record model.MutationRecord) {
	if p.invalidator == nil {
		return
	}
	category, ok := model.CategoryOf(record.Type)
	if !ok {
		return
	}
	if err := p.invalidator.Invalidate(ctx, category); err != nil {
		logrus.WithError(err).WithField("category", category).Warn("failed to invalidate cache category")
	}
}

func (p *Processor) failure(record model.MutationRecord, err error) model.Failure {
	f := model.Failure{ID: record.ID, Error: err.Error(), Retryable: true}
	if errors.Is(err, model.ErrUnknownMutationType) {
		f.Retryable = false
		return f
	}
	if delay := p.retryDelay(record.Attempts + 1); delay > 0 {
		next := p.now().Add(delay)
		f.NextAttemptAt = &next
	}
	return f
}

// retryDelay is the wait after the given number of failed attempts: BackoffInitial doubled per
// attempt and capped at BackoffMax.
func (p *Processor) retryDelay(attempts int) time.Duration {
	if p.cfg.BackoffInitial <= 0 || attempts <= 0 {
		return 0
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.BackoffInitial
	b.MaxInterval = p.cfg.BackoffMax
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	var delay time.Duration
	for i := 0; i < attempts; i++ {
		delay = b.NextBackOff()
	}
	return delay
}
