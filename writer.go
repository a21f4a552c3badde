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

	"github.com/sirupsen/logrus"

	"github.com/withhook/hooksync/backend"
	"github.com/withhook/hooksync/internal/connectivity"
	"github.com/withhook/hooksync/model"
)

var ErrEnqueueFailed = errors.New("failed to queue mutation for offline sync")

// Result tells a write caller whether the change reached the backend or was queued.
// A queued write is reported as successful straight away.
type Result struct {
	Queued     bool   `json:"queued"`
	MutationID string `json:"mutation_id,omitempty"`
}

// Writer is the entry point for every user write. Each call checks connectivity afresh: offline
// writes are queued, online writes go straight to the backend.
type Writer struct {
	syncer      *Orchestrator
	observer    connectivity.Observer
	backend     backend.IBackend
	invalidator Invalidator
}

func NewWriter(syncer *Orchestrator, observer connectivity.Observer, b backend.IBackend, invalidator Invalidator) *Writer {
	return &Writer{syncer: syncer, observer: observer, backend: b, invalidator: invalidator}
}

func write[T any](ctx context.Context, w *Writer, m model.Mutation, online func(context.Context) (T, error)) (T, Result, error) {
	var zero T
	if err := m.Validate(); err != nil {
		return zero, Result{}, err
	}

	if connectivity.IsOffline(ctx, w.observer) {
		id, ok := w.syncer.Enqueue(ctx, m)
		if !ok {
			return zero, Result{}, ErrEnqueueFailed
		}
		return zero, Result{Queued: true, MutationID: id}, nil
	}

	v, err := online(ctx)
	if err != nil {
		return zero, Result{}, err
	}
	if w.invalidator != nil {
		if err := w.invalidator.Invalidate(ctx, m.Category()); err != nil {
			logrus.WithError(err).WithField("category", m.Category()).Warn("failed to invalidate cache category")
		}
	}
	return v, Result{}, nil
}

func done(err error) (struct{}, error) {
	return struct{}{}, err
}

// CreateMeaningByWordText returns the created meaning, or nil when the write was queued.
func (w *Writer) CreateMeaningByWordText(ctx context.Context, userID, wordText, meaningText string, isPublic bool) (*model.Meaning, Result, error) {
	m := model.CreateMeaningByWordText{UserID: userID, WordText: wordText, MeaningText: meaningText, IsPublic: isPublic}
	return write(ctx, w, m, func(ctx context.Context) (*model.Meaning, error) {
		return w.backend.CreateMeaningByWordText(ctx, userID, wordText, meaningText, isPublic)
	})
}

func (w *Writer) CreateMeaning(ctx context.Context, userID string, wordID int64, meaningText string, isPublic bool) (*model.Meaning, Result, error) {
	m := model.CreateMeaning{UserID: userID, WordID: wordID, MeaningText: meaningText, IsPublic: isPublic}
	return write(ctx, w, m, func(ctx context.Context) (*model.Meaning, error) {
		return w.backend.CreateMeaning(ctx, userID, wordID, meaningText, isPublic)
	})
}

func (w *Writer) UpdateMeaning(ctx context.Context, meaningID int64, userID, meaningText string, isPublic bool) (Result, error) {
	m := model.UpdateMeaning{MeaningID: meaningID, UserID: userID, MeaningText: meaningText, IsPublic: isPublic}
	_, res, err := write(ctx, w, m, func(ctx context.Context) (struct{}, error) {
		return done(w.backend.UpdateMeaning(ctx, meaningID, userID, meaningText, isPublic))
	})
	return res, err
}

func (w *Writer) DeleteMeaning(ctx context.Context, meaningID int64, userID string) (Result, error) {
	m := model.DeleteMeaning{MeaningID: meaningID, UserID: userID}
	_, res, err := write(ctx, w, m, func(ctx context.Context) (struct{}, error) {
		return done(w.backend.DeleteMeaning(ctx, meaningID, userID))
	})
	return res, err
}

func (w *Writer) CreateMemoryHookByWordText(ctx context.Context, userID, wordText, hookText string, isPublic bool) (*model.MemoryHook, Result, error) {
	m := model.CreateMemoryHookByWordText{UserID: userID, WordText: wordText, HookText: hookText, IsPublic: isPublic}
	return write(ctx, w, m, func(ctx context.Context) (*model.MemoryHook, error) {
		return w.backend.CreateMemoryHookByWordText(ctx, userID, wordText, hookText, isPublic)
	})
}

func (w *Writer) CreateMemoryHook(ctx context.Context, userID string, wordID int64, hookText string, isPublic bool) (*model.MemoryHook, Result, error) {
	m := model.CreateMemoryHook{UserID: userID, WordID: wordID, HookText: hookText, IsPublic: isPublic}
	return write(ctx, w, m, func(ctx context.Context) (*model.MemoryHook, error) {
		return w.backend.CreateMemoryHook(ctx, userID, wordID, hookText, isPublic)
	})
}

func (w *Writer) UpdateMemoryHook(ctx context.Context, hookID int64, userID, hookText string, isPublic bool) (Result, error) {
	m := model.UpdateMemoryHook{HookID: hookID, UserID: userID, HookText: hookText, IsPublic: isPublic}
	_, res, err := write(ctx, w, m, func(ctx context.Context) (struct{}, error) {
		return done(w.backend.UpdateMemoryHook(ctx, hookID, userID, hookText, isPublic))
	})
	return res, err
}

func (w *Writer) DeleteMemoryHook(ctx context.Context, hookID int64, userID string) (Result, error) {
	m := model.DeleteMemoryHook{HookID: hookID, UserID: userID}
	_, res, err := write(ctx, w, m, func(ctx context.Context) (struct{}, error) {
		return done(w.backend.DeleteMemoryHook(ctx, hookID, userID))
	})
	return res, err
}

func (w *Writer) SaveToWordbook(ctx context.Context, userID string, wordID, meaningID int64, memoryHookID *int64) (*model.UserWord, Result, error) {
	m := model.SaveToWordbook{UserID: userID, WordID: wordID, MeaningID: meaningID, MemoryHookID: memoryHookID}
	return write(ctx, w, m, func(ctx context.Context) (*model.UserWord, error) {
		return w.backend.SaveToWordbook(ctx, userID, wordID, meaningID, memoryHookID)
	})
}

func (w *Writer) SaveToWordbookByText(ctx context.Context, userID, wordText string, meaningID int64, memoryHookID *int64) (*model.UserWord, Result, error) {
	m := model.SaveToWordbookByText{UserID: userID, WordText: wordText, MeaningID: meaningID, MemoryHookID: memoryHookID}
	return write(ctx, w, m, func(ctx context.Context) (*model.UserWord, error) {
		return w.backend.SaveToWordbookByText(ctx, userID, wordText, meaningID, memoryHookID)
	})
}

func (w *Writer) RemoveFromWordbook(ctx context.Context, userID string, userWordsID int64) (Result, error) {
	m := model.RemoveFromWordbook{UserID: userID, UserWordsID: userWordsID}
	_, res, err := write(ctx, w, m, func(ctx context.Context) (struct{}, error) {
		return done(w.backend.RemoveFromWordbook(ctx, userID, userWordsID))
	})
	return res, err
}

func (w *Writer) UpdateProfile(ctx context.Context, userID string, profile model.ProfileUpdate) (Result, error) {
	m := model.UpdateProfile{UserID: userID, Nickname: profile.Nickname, ProfileImage: profile.ProfileImage}
	_, res, err := write(ctx, w, m, func(ctx context.Context) (struct{}, error) {
		return done(w.backend.UpdateProfile(ctx, userID, profile))
	})
	return res, err
}

func (w *Writer) DeleteUser(ctx context.Context, userID string) (Result, error) {
	m := model.DeleteUser{UserID: userID}
	_, res, err := write(ctx, w, m, func(ctx context.Context) (struct{}, error) {
		return done(w.backend.DeleteUser(ctx, userID))
	})
	return res, err
}
