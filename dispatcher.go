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
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/withhook/hooksync/backend"
	"github.com/withhook/hooksync/model"
)

// Dispatcher performs the remote side effect of one queued mutation. A nil error means the
// backend accepted it and the record can be removed.
type Dispatcher interface {
	Dispatch(ctx context.Context, record model.MutationRecord) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, record model.MutationRecord) error

func (f DispatcherFunc) Dispatch(ctx context.Context, record model.MutationRecord) error {
	return f(ctx, record)
}

// BackendDispatcher maps every mutation variant onto its backend operation.
type BackendDispatcher struct {
	backend backend.IBackend
}

func NewDispatcher(b backend.IBackend) *BackendDispatcher {
	return &BackendDispatcher{backend: b}
}

// Dispatch decodes record and calls the matching backend operation. Errors and panics raised by
// the backend both come back as an error; an unknown type wraps model.ErrUnknownMutationType.
func (d *BackendDispatcher) Dispatch(ctx context.Context, record model.MutationRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s dispatch panicked: %v", record.Type, r)
		}
	}()

	m, err := record.Mutation()
	if err != nil {
		if errors.Is(err, model.ErrUnknownMutationType) {
			logrus.WithFields(logrus.Fields{
				"mutation_id": record.ID,
				"type":        record.Type,
			}).Warn("unknown mutation type, leaving it queued")
		}
		return err
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid %s payload: %w", record.Type, err)
	}
	return d.apply(ctx, m)
}

// Succeeded reports whether record was dispatched without error.
func (d *BackendDispatcher) Succeeded(ctx context.Context, record model.MutationRecord) bool {
	return d.Dispatch(ctx, record) == nil
}

func (d *BackendDispatcher) apply(ctx context.Context, m model.Mutation) error {
	var err error
	switch v := m.(type) {
	case model.CreateMeaningByWordText:
		_, err = d.backend.CreateMeaningByWordText(ctx, v.UserID, v.WordText, v.MeaningText, v.IsPublic)
	case model.CreateMeaning:
		_, err = d.backend.CreateMeaning(ctx, v.UserID, v.WordID, v.MeaningText, v.IsPublic)
	case model.UpdateMeaning:
		err = d.backend.UpdateMeaning(ctx, v.MeaningID, v.UserID, v.MeaningText, v.IsPublic)
	case model.DeleteMeaning:
		err = d.backend.DeleteMeaning(ctx, v.MeaningID, v.UserID)
	case model.CreateMemoryHookByWordText:
		_, err = d.backend.CreateMemoryHookByWordText(ctx, v.UserID, v.WordText, v.HookText, v.IsPublic)
	case model.CreateMemoryHook:
		_, err = d.backend.CreateMemoryHook(ctx, v.UserID, v.WordID, v.HookText, v.IsPublic)
	case model.UpdateMemoryHook:
		err = d.backend.UpdateMemoryHook(ctx, v.HookID, v.UserID, v.HookText, v.IsPublic)
	case model.DeleteMemoryHook:
		err = d.backend.DeleteMemoryHook(ctx, v.HookID, v.UserID)
	case model.SaveToWordbook:
		_, err = d.backend.SaveToWordbook(ctx, v.UserID, v.WordID, v.MeaningID, v.MemoryHookID)
	case model.SaveToWordbookByText:
		_, err = d.backend.SaveToWordbookByText(ctx, v.UserID, v.WordText, v.MeaningID, v.MemoryHookID)
	case model.RemoveFromWordbook:
		err = d.backend.RemoveFromWordbook(ctx, v.UserID, v.UserWordsID)
	case model.UpdateProfile:
		err = d.backend.UpdateProfile(ctx, v.UserID, v.Profile())
	case model.DeleteUser:
		err = d.backend.DeleteUser(ctx, v.UserID)
	default:
		return fmt.Errorf("%w: %T", model.ErrUnknownMutationType, m)
	}
	return err
}
