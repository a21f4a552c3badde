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
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/withhook/hooksync/config"
	"github.com/withhook/hooksync/internal/kvstore"
	"github.com/withhook/hooksync/model"
)

var (
	ErrDeadLetterNotFound = errors.New("dead-lettered mutation not found")
	ErrInvalidPayload     = errors.New("payload is not valid JSON")
)

// MutationQueue is the durable, ordered sequence of pending mutations. The whole sequence lives
// under one storage key and every change rewrites it, so all writers go through mu.
//
// Storage failures are logged and never returned: reads degrade to an empty queue and writes
// report false.
type MutationQueue struct {
	store         kvstore.Store
	key           string
	deadLetterKey string
	maxAttempts   int
	now           func() time.Time

	mu sync.Mutex
}

// NewMutationQueue creates a queue over store. maxAttempts <= 0 keeps failing records pending forever.
func NewMutationQueue(store kvstore.Store, key, deadLetterKey string, maxAttempts int) *MutationQueue {
	if key == "" {
		key = config.DEFAULT_QUEUE_KEY
	}
	if deadLetterKey == "" {
		deadLetterKey = key + "_DEAD"
	}
	return &MutationQueue{
		store:         store,
		key:           key,
		deadLetterKey: deadLetterKey,
		maxAttempts:   maxAttempts,
		now:           time.Now,
	}
}

func (q *MutationQueue) Key() string {
	return q.key
}

// load reads the sequence stored under key. A missing or unparseable value is an empty sequence;
// only a failing store is an error.
func (q *MutationQueue) load(ctx context.Context, key string) ([]model.MutationRecord, error) {
	raw, err := q.store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return []model.MutationRecord{}, nil
	}
	if err != nil {
		return nil, err
	}

	var records []model.MutationRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		logrus.WithError(err).WithField("key", key).Error("stored queue is corrupt, treating it as empty")
		return []model.MutationRecord{}, nil
	}
	if records == nil {
		records = []model.MutationRecord{}
	}
	return records, nil
}

func (q *MutationQueue) save(ctx context.Context, key string, records []model.MutationRecord) error {
	if records == nil {
		records = []model.MutationRecord{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return q.store.Set(ctx, key, raw)
}

// Enqueue validates m and appends it to the queue. It returns the new record id, or false when
// the mutation is invalid or could not be persisted.
func (q *MutationQueue) Enqueue(ctx context.Context, m model.Mutation) (string, bool) {
	if err := m.Validate(); err != nil {
		logrus.WithError(err).WithField("type", m.Type()).Error("refusing to queue invalid mutation")
		return "", false
	}
	record, err := model.NewMutationRecord(m)
	if err != nil {
		logrus.WithError(err).Error("failed to encode mutation")
		return "", false
	}
	if !q.append(ctx, record) {
		return "", false
	}
	return record.ID, true
}

// EnqueueRaw appends a record without checking its type or payload fields. Types the dispatcher
// does not know stay queued until a version that understands them drains the queue.
func (q *MutationQueue) EnqueueRaw(ctx context.Context, t model.MutationType, payload json.RawMessage) (string, error) {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	if !json.Valid(payload) {
		return "", ErrInvalidPayload
	}
	record := model.NewRawMutationRecord(t, payload)
	if !q.append(ctx, record) {
		return "", fmt.Errorf("failed to persist mutation %s", record.ID)
	}
	return record.ID, nil
}

func (q *MutationQueue) append(ctx context.Context, record model.MutationRecord) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.load(ctx, q.key)
	if err != nil {
		logrus.WithError(err).WithField("mutation_id", record.ID).Error("failed to read queue for enqueue")
		return false
	}
	if err := q.save(ctx, q.key, append(records, record)); err != nil {
		logrus.WithError(err).WithField("mutation_id", record.ID).Error("failed to persist queued mutation")
		return false
	}

	logrus.WithFields(logrus.Fields{
		"mutation_id": record.ID,
		"type":        record.Type,
		"pending":     len(records) + 1,
	}).Info("mutation queued")
	return true
}

// ReadAll returns every pending record in queue order.
func (q *MutationQueue) ReadAll(ctx context.Context) []model.MutationRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.load(ctx, q.key)
	if err != nil {
		logrus.WithError(err).Error("failed to read queue")
		return []model.MutationRecord{}
	}
	return records
}

// Pending returns the records that may be attempted at now, in queue order.
func (q *MutationQueue) Pending(ctx context.Context, now time.Time) []model.MutationRecord {
	all := q.ReadAll(ctx)
	eligible := make([]model.MutationRecord, 0, len(all))
	for _, record := range all {
		if record.EligibleAt(now) {
			eligible = append(eligible, record)
		}
	}
	return eligible
}

// RemoveByIDs drops every record whose id is in ids and keeps the rest in order.
func (q *MutationQueue) RemoveByIDs(ctx context.Context, ids []string) bool {
	if len(ids) == 0 {
		return true
	}
	remove := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		remove[id] = struct{}{}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.load(ctx, q.key)
	if err != nil {
		logrus.WithError(err).Error("failed to read queue for removal")
		return false
	}
	kept := records[:0]
	for _, record := range records {
		if _, ok := remove[record.ID]; !ok {
			kept = append(kept, record)
		}
	}
	if err := q.save(ctx, q.key, kept); err != nil {
		logrus.WithError(err).WithField("count", len(ids)).Error("failed to remove processed mutations")
		return false
	}
	return true
}

func (q *MutationQueue) Size(ctx context.Context) int {
	return len(q.ReadAll(ctx))
}

// Clear drops every pending record.
func (q *MutationQueue) Clear(ctx context.Context) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.Delete(ctx, q.key); err != nil {
		logrus.WithError(err).Error("failed to clear queue")
		return false
	}
	logrus.Warn("offline mutation queue cleared")
	return true
}

// RecordFailures applies the outcome of failed dispatches to the stored records. Retryable
// failures count an attempt; a record reaching maxAttempts is moved to the dead-letter sequence
// and returned.
func (q *MutationQueue) RecordFailures(ctx context.Context, failures []model.Failure) ([]model.MutationRecord, bool) {
	if len(failures) == 0 {
		return nil, true
	}
	byID := make(map[string]model.Failure, len(failures))
	for _, f := range failures {
		byID[f.ID] = f
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.load(ctx, q.key)
	if err != nil {
		logrus.WithError(err).Error("failed to read queue for failure bookkeeping")
		return nil, false
	}

	now := q.now().UnixMilli()
	kept := make([]model.MutationRecord, 0, len(records))
	var dead []model.MutationRecord
	for _, record := range records {
		f, ok := byID[record.ID]
		if !ok {
			kept = append(kept, record)
			continue
		}
		record.LastError = f.Error
		if !f.Retryable {
			kept = append(kept, record)
			continue
		}
		record.Attempts++
		record.NextAttemptAt = nil
		if f.NextAttemptAt != nil {
			next := f.NextAttemptAt.UnixMilli()
			record.NextAttemptAt = &next
		}
		if q.maxAttempts > 0 && record.Attempts >= q.maxAttempts {
			record.NextAttemptAt = nil
			record.DeadLetteredAt = &now
			dead = append(dead, record)
			continue
		}
		kept = append(kept, record)
	}

	if len(dead) > 0 {
		letters, err := q.load(ctx, q.deadLetterKey)
		if err != nil {
			logrus.WithError(err).Error("failed to read dead-letter queue")
			return nil, false
		}
		// written before the queue so a crash in between duplicates rather than loses a record
		if err := q.save(ctx, q.deadLetterKey, append(letters, dead...)); err != nil {
			logrus.WithError(err).Error("failed to persist dead-lettered mutations")
			return nil, false
		}
	}
	if err := q.save(ctx, q.key, kept); err != nil {
		logrus.WithError(err).Error("failed to persist failed mutation attempts")
		return dead, false
	}
	return dead, true
}

// DeadLetters returns the records that exhausted their attempts, oldest first.
func (q *MutationQueue) DeadLetters(ctx context.Context) []model.MutationRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	records, err := q.load(ctx, q.deadLetterKey)
	if err != nil {
		logrus.WithError(err).Error("failed to read dead-letter queue")
		return []model.MutationRecord{}
	}
	return records
}

// RequeueDeadLetter moves a dead-lettered record back to the end of the queue with a fresh attempt budget.
func (q *MutationQueue) RequeueDeadLetter(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	letters, err := q.load(ctx, q.deadLetterKey)
	if err != nil {
		return err
	}
	idx := -1
	for i, record := range letters {
		if record.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrDeadLetterNotFound, id)
	}

	record := letters[idx]
	record.Attempts = 0
	record.NextAttemptAt = nil
	record.LastError = ""
	record.DeadLetteredAt = nil

	records, err := q.load(ctx, q.key)
	if err != nil {
		return err
	}
	if err := q.save(ctx, q.key, append(records, record)); err != nil {
		return err
	}
	if err := q.save(ctx, q.deadLetterKey, append(letters[:idx], letters[idx+1:]...)); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"mutation_id": id, "type": record.Type}).Info("dead-lettered mutation requeued")
	return nil
}

func (q *MutationQueue) PurgeDeadLetters(ctx context.Context) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.Delete(ctx, q.deadLetterKey); err != nil {
		logrus.WithError(err).Error("failed to purge dead-letter queue")
		return false
	}
	return true
}

func isNotFound(err error) bool {
	return errors.Is(err, kvstore.ErrNotFound)
}
