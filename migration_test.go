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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/withhook/hooksync/backend/mocks"
	"github.com/withhook/hooksync/internal/kvstore"
	"github.com/withhook/hooksync/model"
)

const legacyQueue = `[
	{"id": "mut_old1", "type": "deleteMeaning", "data": {"meaningId": 42, "userId": "u1"}, "timestamp": 1714555800000},
	{"id": "mut_old2", "type": "updateProfile", "data": {"userId": "u1", "data": {"nickname": "hook", "profile_image": "https://img.test/a.png"}}, "timestamp": 1714555801000},
	{"type": "removeFromWordbook", "data": {"userId": "u1", "userWordsId": 9}},
	"garbage",
	{"id": "mut_new", "type": "deleteUser", "payload": {"userId": "u2"}, "timestamp": 1714555802000, "schema_version": 1, "attempts": 2}
]`

func TestMigrate_UpgradesLegacyRecords(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, testQueueKey, []byte(legacyQueue)))
	q := newTestQueue(store, 10, nil)

	n, err := q.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	records := q.ReadAll(ctx)
	require.Len(t, records, 4)
	for _, r := range records {
		assert.Equal(t, model.CurrentSchemaVersion, r.SchemaVersion)
		assert.NotEmpty(t, r.ID)
		assert.NotZero(t, r.Timestamp)
	}

	assert.Equal(t, "mut_old1", records[0].ID)
	assert.JSONEq(t, `{"meaningId": 42, "userId": "u1"}`, string(records[0].Payload))
	assert.Equal(t, int64(1714555800000), records[0].Timestamp)

	assert.Equal(t, model.TypeUpdateProfile, records[1].Type)
	assert.JSONEq(t, `{"userId": "u1", "nickname": "hook", "profileImage": "https://img.test/a.png"}`, string(records[1].Payload))

	assert.Equal(t, model.TypeRemoveFromWordbook, records[2].Type)

	assert.Equal(t, "mut_new", records[3].ID)
	assert.Equal(t, 2, records[3].Attempts)
}

func TestMigrate_DropsUnmigratableRecords(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, testQueueKey, []byte(`[
		{"id": "good", "type": "deleteMeaning", "data": {"meaningId": 42, "userId": "u1"}, "timestamp": 1714555800000},
		{"id": "bad", "type": "updateProfile", "data": {"userId": "u1", "data": "oops"}, "timestamp": 1714555801000},
		{"id": "broken", "type": "deleteUser", "payload": {"userId": "u2"}, "schema_version": 1, "attempts": "many"}
	]`)))
	q := newTestQueue(store, 10, nil)

	n, err := q.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	records := q.ReadAll(ctx)
	require.Len(t, records, 1)
	assert.Equal(t, "good", records[0].ID)
	assert.Equal(t, model.CurrentSchemaVersion, records[0].SchemaVersion)
	assert.JSONEq(t, `{"meaningId": 42, "userId": "u1"}`, string(records[0].Payload))

	d := newRecordingDispatcher()
	assert.Equal(t, []string{"good"}, newTestProcessor(q, d, nil).ProcessQueue(ctx))
}

func TestMigrate_CurrentQueueUntouched(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	q := newTestQueue(store, 10, nil)
	mustEnqueue(t, q, deleteMeaning(1))
	writes := store.Writes()

	n, err := q.Migrate(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, writes, store.Writes())
}

func TestMigrate_EmptyAndCorrupt(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	q := newTestQueue(store, 10, nil)

	n, err := q.Migrate(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, store.Set(ctx, testQueueKey, []byte(`{not json`)))
	n, err = q.Migrate(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = newTestQueue(failingStore{}, 10, nil).Migrate(ctx)
	assert.ErrorIs(t, err, errDiskFull)
}

func TestMigrate_UpgradedRecordsDispatch(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, testQueueKey, []byte(legacyQueue)))
	q := newTestQueue(store, 10, nil)
	_, err := q.Migrate(ctx)
	require.NoError(t, err)

	b := new(mocks.MockBackend)
	b.On("DeleteMeaning", mock.Anything, int64(42), "u1").Return(nil).Once()
	b.On("UpdateProfile", mock.Anything, "u1", mock.MatchedBy(func(p model.ProfileUpdate) bool {
		return p.Nickname != nil && *p.Nickname == "hook" && p.ProfileImage != nil
	})).Return(nil).Once()
	b.On("RemoveFromWordbook", mock.Anything, "u1", int64(9)).Return(nil).Once()
	b.On("DeleteUser", mock.Anything, "u2").Return(nil).Once()

	p := newTestProcessor(q, NewDispatcher(b), nil)
	assert.Len(t, p.ProcessQueue(ctx), 4)
	assert.Zero(t, q.Size(ctx))
	b.AssertExpectations(t)
}
