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
	"fmt"

	"github.com/withhook/hooksync/backend"
	"github.com/withhook/hooksync/internal/cache"
	"github.com/withhook/hooksync/model"
)

// Page is one page of a list read together with the total row count.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// Reader serves reads through the query cache. Entries go stale when a write of the same
// category succeeds, online or during a drain.
type Reader struct {
	backend backend.IBackend
	cache   *cache.QueryCache
}

func NewReader(b backend.IBackend, c *cache.QueryCache) *Reader {
	return &Reader{backend: b, cache: c}
}

func (r *Reader) MeaningsByWord(ctx context.Context, wordID int64, page, limit int) (Page[model.Meaning], error) {
	var out Page[model.Meaning]
	err := r.cache.Once(ctx, model.CategoryMeanings, fmt.Sprintf("word:%d:%d:%d", wordID, page, limit), &out, func() (interface{}, error) {
		items, total, err := r.backend.GetMeaningsByWord(ctx, wordID, page, limit)
		if err != nil {
			return nil, err
		}
		return Page[model.Meaning]{Items: items, Total: total}, nil
	})
	return out, err
}

func (r *Reader) MemoryHooksByWord(ctx context.Context, wordID int64, page, limit int) (Page[model.MemoryHook], error) {
	var out Page[model.MemoryHook]
	err := r.cache.Once(ctx, model.CategoryMemoryHooks, fmt.Sprintf("word:%d:%d:%d", wordID, page, limit), &out, func() (interface{}, error) {
		items, total, err := r.backend.GetMemoryHooksByWord(ctx, wordID, page, limit)
		if err != nil {
			return nil, err
		}
		return Page[model.MemoryHook]{Items: items, Total: total}, nil
	})
	return out, err
}

func (r *Reader) Wordbook(ctx context.Context, userID string, page, limit int) (Page[model.UserWord], error) {
	var out Page[model.UserWord]
	err := r.cache.Once(ctx, model.CategoryUserWords, fmt.Sprintf("user:%s:%d:%d", userID, page, limit), &out, func() (interface{}, error) {
		items, total, err := r.backend.GetWordbook(ctx, userID, page, limit)
		if err != nil {
			return nil, err
		}
		return Page[model.UserWord]{Items: items, Total: total}, nil
	})
	return out, err
}

func (r *Reader) User(ctx context.Context, userID string) (*model.User, error) {
	var out model.User
	err := r.cache.Once(ctx, model.CategoryUsers, "user:"+userID, &out, func() (interface{}, error) {
		return r.backend.GetUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
