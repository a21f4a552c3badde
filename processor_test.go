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

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/withhook/hooksync/backend/mocks"
	"github.com/withhook/hooksync/internal/connectivity"
	"github.com/withhook/hooksync/internal/kvstore"
	redlock "github.com/withhook/hooksync/internal/lock"
	"github.com/withhook/hooksync/model"
)

var errRemote = errors.New("remote write failed")

func newTestProcessor(q *MutationQueue, d Dispatcher, clock *testClock) *Processor {
	p := NewProcessor(q, d, ProcessorConfig{BackoffInitial: 30 * time.Second, BackoffMax: time.Hour})
	if clock != nil {
		p.now = clock.Now
	}
	return p
}

func TestProcessQueue_EnqueueThenDrain(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(kvstore.NewMemoryStore(), 10, nil)
	d := newRecordingDispatcher()
	p := newTestProcessor(q, d, nil)

	m := model.UpdateMemoryHook{HookID: 4, UserID: "u1", HookText: "a pool", IsPublic: true}
	id := mustEnqueue(t, q, m)

	assert.Equal(t, []string{id}, p.ProcessQueue(ctx))
	assert.Zero(t, q.Size(ctx))

	calls := d.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, model.TypeUpdateMemoryHook, calls[0].Type)
	want, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(calls[0].Payload))
}

func TestProcessQueue_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(kvstore.NewMemoryStore(), 10, nil)
	d := newRecordingDispatcher()
	p := newTestProcessor(q, d, nil)

	a := mustEnqueue(t, q, model.CreateMeaningByWordText{UserID: "u1", WordText: "apple", MeaningText: "りんご"})
	b := mustEnqueue(t, q, model.SaveToWordbookByText{UserID: "u1", WordText: "apple", MeaningID: 1})
	c := mustEnqueue(t, q, deleteMeaning(3))

	assert.Equal(t, []string{a, b, c}, p.ProcessQueue(ctx))
	assert.Equal(t, []string{a, b, c}, d.CalledIDs())
}

func TestProcessQueue_PartialFailureRetainsOnlyFailures(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	q := newTestQueue(kvstore.NewMemoryStore(), 10, clock)
	d := newRecordingDispatcher()
	p := newTestProcessor(q, d, clock)

	a := mustEnqueue(t, q, deleteMeaning(1))
	b := mustEnqueue(t, q, deleteMeaning(2))
	c := mustEnqueue(t, q, deleteMeaning(3))
	d.failID(b, errRemote)

	assert.Equal(t, []string{a, c}, p.ProcessQueue(ctx))
	records := q.ReadAll(ctx)
	require.Len(t, records, 1)
	assert.Equal(t, b, records[0].ID)
	assert.Equal(t, 1, records[0].Attempts)
	assert.Equal(t, errRemote.Error(), records[0].LastError)

	d.succeedAll()
	assert.Empty(t, p.ProcessQueue(ctx), "B waits for its retry time")
	assert.Equal(t, 1, q.Size(ctx))

	clock.Advance(30 * time.Second)
	assert.Equal(t, []string{b}, p.ProcessQueue(ctx))
	assert.Zero(t, q.Size(ctx))
	assert.Equal(t, []string{a, b, c, b}, d.CalledIDs())
}

func TestProcessQueue_RetriesEveryPassWithoutBackoff(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(kvstore.NewMemoryStore(), 0, nil)
	d := newRecordingDispatcher()
	p := NewProcessor(q, d, ProcessorConfig{})

	a := mustEnqueue(t, q, deleteMeaning(1))
	d.failID(a, errRemote)
	for i := 0; i < 5; i++ {
		assert.Empty(t, p.ProcessQueue(ctx))
	}
	assert.Len(t, d.Calls(), 5)
	assert.Empty(t, q.DeadLetters(ctx))

	d.succeedAll()
	assert.Equal(t, []string{a}, p.ProcessQueue(ctx))
}

func TestProcessQueue_EmptyQueue(t *testing.T) {
	store := newCountingStore()
	q := newTestQueue(store, 10, nil)
	d := newRecordingDispatcher()
	inv := newRecordingInvalidator()
	p := newTestProcessor(q, d, nil).WithInvalidator(inv)

	processed := p.ProcessQueue(context.Background())
	assert.NotNil(t, processed)
	assert.Empty(t, processed)
	assert.Empty(t, d.Calls())
	assert.Zero(t, store.Writes())
	assert.Empty(t, inv.Counts())
}

func TestProcessQueue_UnknownTypeSurvives(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	q := newTestQueue(kvstore.NewMemoryStore(), 2, clock)
	p := newTestProcessor(q, NewDispatcher(new(mocks.MockBackend)), clock)

	id, err := q.EnqueueRaw(ctx, "shareWordbook", json.RawMessage(`{"userId": "u1"}`))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		var processed []string
		assert.NotPanics(t, func() { processed = p.ProcessQueue(ctx) })
		assert.Empty(t, processed)
	}

	records := q.ReadAll(ctx)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.Zero(t, records[0].Attempts)
	assert.Nil(t, records[0].NextAttemptAt)
	assert.Empty(t, q.DeadLetters(ctx))
}

func TestProcessQueue_DeleteMeaningScenario(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(kvstore.NewMemoryStore(), 10, nil)
	b := new(mocks.MockBackend)
	b.On("DeleteMeaning", mock.Anything, int64(42), "u1").Return(nil).Once()
	inv := newRecordingInvalidator()
	p := newTestProcessor(q, NewDispatcher(b), nil).WithInvalidator(inv)

	id, err := q.EnqueueRaw(ctx, model.TypeDeleteMeaning, json.RawMessage(`{"meaningId": 42, "userId": "u1"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, q.Size(ctx))

	assert.Equal(t, []string{id}, p.ProcessQueue(ctx))
	assert.Zero(t, q.Size(ctx))
	assert.Equal(t, map[model.Category]int{model.CategoryMeanings: 1}, inv.Counts())
	b.AssertExpectations(t)
}

func TestProcessQueue_InvalidationMapping(t *testing.T) {
	for _, tc := range catalogCases() {
		t.Run(string(tc.mutation.Type()), func(t *testing.T) {
			ctx := context.Background()
			q := newTestQueue(kvstore.NewMemoryStore(), 10, nil)
			b := new(mocks.MockBackend)
			tc.expect(b)
			inv := newRecordingInvalidator()
			p := newTestProcessor(q, NewDispatcher(b), nil).WithInvalidator(inv)

			mustEnqueue(t, q, tc.mutation)
			require.Len(t, p.ProcessQueue(ctx), 1)
			assert.Equal(t, map[model.Category]int{tc.category: 1}, inv.Counts())
		})
	}
}

func TestProcessQueue_FailureDoesNotInvalidate(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(kvstore.NewMemoryStore(), 10, nil)
	d := newRecordingDispatcher()
	inv := newRecordingInvalidator()
	p := newTestProcessor(q, d, nil).WithInvalidator(inv)

	a := mustEnqueue(t, q, deleteMeaning(1))
	mustEnqueue(t, q, model.RemoveFromWordbook{UserID: "u1", UserWordsID: 3})
	d.failID(a, errRemote)

	assert.Len(t, p.ProcessQueue(ctx), 1)
	assert.Equal(t, map[model.Category]int{model.CategoryUserWords: 1}, inv.Counts())
}

func TestProcessQueue_DeadLetter(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	q := newTestQueue(kvstore.NewMemoryStore(), 3, clock)
	d := newRecordingDispatcher()
	n := &recordingNotifier{}
	p := newTestProcessor(q, d, clock).WithNotifier(n)

	a := mustEnqueue(t, q, deleteMeaning(1))
	d.failID(a, errRemote)

	for i := 0; i < 3; i++ {
		p.ProcessQueue(ctx)
		clock.Advance(time.Hour)
	}

	assert.Zero(t, q.Size(ctx))
	letters := q.DeadLetters(ctx)
	require.Len(t, letters, 1)
	assert.Equal(t, a, letters[0].ID)
	assert.Equal(t, 3, letters[0].Attempts)
	require.Len(t, n.records, 1)
	assert.Equal(t, a, n.records[0].ID)

	p.ProcessQueue(ctx)
	assert.Len(t, d.Calls(), 3, "dead-lettered records are not retried")
}

func TestProcessQueue_SkipsWhileOffline(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(kvstore.NewMemoryStore(), 10, nil)
	d := newRecordingDispatcher()
	observer := connectivity.NewManual(false)
	p := newTestProcessor(q, d, nil).WithObserver(observer)

	id := mustEnqueue(t, q, deleteMeaning(1))
	assert.Nil(t, p.ProcessQueue(ctx))
	assert.Empty(t, d.Calls())

	observer.SetConnected(true)
	assert.Equal(t, []string{id}, p.ProcessQueue(ctx))
}

// blockingDispatcher holds the first dispatch until released.
type blockingDispatcher struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	calls   int
}

func (d *blockingDispatcher) Dispatch(context.Context, model.MutationRecord) error {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	d.once.Do(func() {
		close(d.started)
		<-d.release
	})
	return nil
}

func TestProcessQueue_SingleInFlight(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	q := newTestQueue(store, 10, nil)
	d := &blockingDispatcher{started: make(chan struct{}), release: make(chan struct{})}
	p := newTestProcessor(q, d, nil)

	a := mustEnqueue(t, q, deleteMeaning(1))
	b := mustEnqueue(t, q, deleteMeaning(2))

	done := make(chan []string)
	go func() { done <- p.ProcessQueue(ctx) }()
	<-d.started

	writes := store.Writes()
	assert.Nil(t, p.ProcessQueue(ctx), "overlapping pass returns immediately")
	assert.Equal(t, writes, store.Writes())

	close(d.release)
	assert.Equal(t, []string{a, b}, <-done)
	assert.Equal(t, 2, d.calls)
	assert.Zero(t, q.Size(ctx))
}

func TestProcessQueue_KeepsRecordsEnqueuedDuringDrain(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(kvstore.NewMemoryStore(), 10, nil)
	d := &blockingDispatcher{started: make(chan struct{}), release: make(chan struct{})}
	p := newTestProcessor(q, d, nil)

	a := mustEnqueue(t, q, deleteMeaning(1))

	done := make(chan []string)
	go func() { done <- p.ProcessQueue(ctx) }()
	<-d.started

	late := mustEnqueue(t, q, deleteMeaning(2))
	close(d.release)

	assert.Equal(t, []string{a}, <-done)
	records := q.ReadAll(ctx)
	require.Len(t, records, 1)
	assert.Equal(t, late, records[0].ID)
}

func TestProcessQueue_DrainLock(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := newTestQueue(kvstore.NewRedisStore(client), 10, nil)
	d := newRecordingDispatcher()
	locker := redlock.NewDrainLocker(client, q.Key())
	p := newTestProcessor(q, d, nil).WithLocker(locker)

	id := mustEnqueue(t, q, deleteMeaning(1))

	other := redlock.NewDrainLocker(client, q.Key())
	require.NoError(t, other.Lock(ctx, time.Minute))
	assert.Nil(t, p.ProcessQueue(ctx), "another process holds the drain lock")
	assert.Empty(t, d.Calls())

	require.NoError(t, other.Unlock(ctx))
	assert.Equal(t, []string{id}, p.ProcessQueue(ctx))
	assert.False(t, mr.Exists(locker.Key()), "lock is released after the pass")
}

func TestProcessor_RetryDelay(t *testing.T) {
	p := NewProcessor(nil, nil, ProcessorConfig{BackoffInitial: 30 * time.Second, BackoffMax: 5 * time.Minute})

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 0},
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{4, 4 * time.Minute},
		{5, 5 * time.Minute},
		{12, 5 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.retryDelay(tt.attempts), "attempts=%d", tt.attempts)
	}

	disabled := NewProcessor(nil, nil, ProcessorConfig{})
	assert.Zero(t, disabled.retryDelay(3))
}
