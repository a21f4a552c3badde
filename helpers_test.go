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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/withhook/hooksync/internal/kvstore"
	"github.com/withhook/hooksync/model"
)

const (
	testQueueKey      = "WITH_HOOK_OFFLINE_MUTATIONS"
	testDeadLetterKey = "WITH_HOOK_OFFLINE_MUTATIONS_DEAD"
)

// countingStore wraps a memory store and counts writes.
type countingStore struct {
	*kvstore.MemoryStore
	mu     sync.Mutex
	reads  int
	writes int
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: kvstore.NewMemoryStore()}
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	return s.MemoryStore.Get(ctx, key)
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *countingStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.MemoryStore.Delete(ctx, key)
}

func (s *countingStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// failingStore fails every operation.
type failingStore struct{}

var errDiskFull = errors.New("disk full")

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, errDiskFull }
func (failingStore) Set(context.Context, string, []byte) error   { return errDiskFull }
func (failingStore) Delete(context.Context, string) error        { return errDiskFull }
func (failingStore) Close() error                                { return nil }

type dispatchCall struct {
	ID      string
	Type    model.MutationType
	Payload json.RawMessage
}

// recordingDispatcher logs every call and fails the ids listed in fail.
type recordingDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	fail  map[string]error
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{fail: map[string]error{}}
}

func (d *recordingDispatcher) Dispatch(_ context.Context, record model.MutationRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{ID: record.ID, Type: record.Type, Payload: record.Payload})
	if !record.Type.Known() {
		return model.ErrUnknownMutationType
	}
	return d.fail[record.ID]
}

func (d *recordingDispatcher) failID(id string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[id] = err
}

func (d *recordingDispatcher) succeedAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = map[string]error{}
}

func (d *recordingDispatcher) Calls() []dispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dispatchCall(nil), d.calls...)
}

func (d *recordingDispatcher) CalledIDs() []string {
	ids := []string{}
	for _, c := range d.Calls() {
		ids = append(ids, c.ID)
	}
	return ids
}

// recordingInvalidator counts invalidations per category.
type recordingInvalidator struct {
	mu     sync.Mutex
	counts map[model.Category]int
}

func newRecordingInvalidator() *recordingInvalidator {
	return &recordingInvalidator{counts: map[model.Category]int{}}
}

func (i *recordingInvalidator) Invalidate(_ context.Context, category model.Category) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.counts[category]++
	return nil
}

func (i *recordingInvalidator) Counts() map[model.Category]int {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make(map[model.Category]int, len(i.counts))
	for k, v := range i.counts {
		out[k] = v
	}
	return out
}

type recordingNotifier struct {
	mu      sync.Mutex
	records []model.MutationRecord
}

func (n *recordingNotifier) NotifyDeadLetter(record model.MutationRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = append(n.records, record)
}

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestQueue(store kvstore.Store, maxAttempts int, clock *testClock) *MutationQueue {
	q := NewMutationQueue(store, testQueueKey, testDeadLetterKey, maxAttempts)
	if clock != nil {
		q.now = clock.Now
	}
	return q
}

func mustEnqueue(t *testing.T, q *MutationQueue, m model.Mutation) string {
	t.Helper()
	id, ok := q.Enqueue(context.Background(), m)
	require.True(t, ok)
	require.NotEmpty(t, id)
	return id
}

func deleteMeaning(id int64) model.DeleteMeaning {
	return model.DeleteMeaning{MeaningID: id, UserID: "u1"}
}
