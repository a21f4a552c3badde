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
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/withhook/hooksync/backend/mocks"
	"github.com/withhook/hooksync/internal/apierror"
	"github.com/withhook/hooksync/internal/cache"
	"github.com/withhook/hooksync/internal/kvstore"
	"github.com/withhook/hooksync/model"
)

func TestReader_CachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	b := new(mocks.MockBackend)
	c := cache.NewQueryCache(nil, time.Minute)
	r := NewReader(b, c)

	first := []model.Meaning{{MeaningID: 1, WordID: 7, UserID: "u1", Meaning: gofakeit.Word()}}
	second := append(first, model.Meaning{MeaningID: 2, WordID: 7, UserID: "u2", Meaning: gofakeit.Word()})
	b.On("GetMeaningsByWord", mock.Anything, int64(7), 1, 20).Return(first, 1, nil).Once()

	page, err := r.MeaningsByWord(ctx, 7, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, Page[model.Meaning]{Items: first, Total: 1}, page)

	page, err = r.MeaningsByWord(ctx, 7, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	b.AssertNumberOfCalls(t, "GetMeaningsByWord", 1)

	require.NoError(t, c.Invalidate(ctx, model.CategoryMemoryHooks))
	_, err = r.MeaningsByWord(ctx, 7, 1, 20)
	require.NoError(t, err)
	b.AssertNumberOfCalls(t, "GetMeaningsByWord", 1)

	b.On("GetMeaningsByWord", mock.Anything, int64(7), 1, 20).Return(second, 2, nil).Once()
	require.NoError(t, c.Invalidate(ctx, model.CategoryMeanings))
	page, err = r.MeaningsByWord(ctx, 7, 1, 20)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Total)
	b.AssertNumberOfCalls(t, "GetMeaningsByWord", 2)
}

func TestReader_User(t *testing.T) {
	ctx := context.Background()
	b := new(mocks.MockBackend)
	r := NewReader(b, cache.NewQueryCache(nil, time.Minute))

	user := &model.User{UserID: "u1", Nickname: gofakeit.Username()}
	b.On("GetUser", mock.Anything, "u1").Return(user, nil).Once()

	for i := 0; i < 3; i++ {
		got, err := r.User(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, user.Nickname, got.Nickname)
	}
	b.AssertExpectations(t)
}

func TestReader_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	b := new(mocks.MockBackend)
	r := NewReader(b, cache.NewQueryCache(nil, time.Minute))

	b.On("GetWordbook", mock.Anything, "u1", 1, 20).
		Return(nil, 0, apierror.NewAPIError(apierror.ErrUnavailable, "backend unreachable", nil)).Once()
	_, err := r.Wordbook(ctx, "u1", 1, 20)
	assert.Equal(t, apierror.ErrUnavailable, apierror.CodeOf(err))

	rows := []model.UserWord{{UserWordsID: 1, UserID: "u1", WordID: 7, MeaningID: 3}}
	b.On("GetWordbook", mock.Anything, "u1", 1, 20).Return(rows, 1, nil).Once()
	page, err := r.Wordbook(ctx, "u1", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, rows, page.Items)
}

func TestReader_WriteInvalidatesReads(t *testing.T) {
	ctx := context.Background()
	b := new(mocks.MockBackend)
	c := cache.NewQueryCache(nil, time.Minute)
	r := NewReader(b, c)
	f := newWriterFixture(kvstore.NewMemoryStore(), true)
	f.writer = NewWriter(f.writer.syncer, f.observer, b, c)

	hooks := []model.MemoryHook{{MemoryHookID: 1, WordID: 7, MemoryHook: "a pool"}}
	b.On("GetMemoryHooksByWord", mock.Anything, int64(7), 1, 10).Return(hooks, 1, nil).Twice()
	b.On("DeleteMemoryHook", mock.Anything, int64(1), "u1").Return(nil).Once()

	_, err := r.MemoryHooksByWord(ctx, 7, 1, 10)
	require.NoError(t, err)
	_, err = f.writer.DeleteMemoryHook(ctx, 1, "u1")
	require.NoError(t, err)
	_, err = r.MemoryHooksByWord(ctx, 7, 1, 10)
	require.NoError(t, err)

	b.AssertExpectations(t)
}
