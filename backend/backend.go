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

package backend

import (
	"context"

	"github.com/withhook/hooksync/model"
)

type words interface {
	GetWordByText(ctx context.Context, wordText string) (*model.Word, error)
	FindOrCreateWord(ctx context.Context, wordText string) (*model.Word, error)
}

type meanings interface {
	CreateMeaning(ctx context.Context, userID string, wordID int64, meaningText string, isPublic bool) (*model.Meaning, error)
	CreateMeaningByWordText(ctx context.Context, userID, wordText, meaningText string, isPublic bool) (*model.Meaning, error)
	UpdateMeaning(ctx context.Context, meaningID int64, userID, meaningText string, isPublic bool) error
	DeleteMeaning(ctx context.Context, meaningID int64, userID string) error
	GetMeaningsByWord(ctx context.Context, wordID int64, page, limit int) ([]model.Meaning, int, error)
}

type memoryHooks interface {
	CreateMemoryHook(ctx context.Context, userID string, wordID int64, hookText string, isPublic bool) (*model.MemoryHook, error)
	CreateMemoryHookByWordText(ctx context.Context, userID, wordText, hookText string, isPublic bool) (*model.MemoryHook, error)
	UpdateMemoryHook(ctx context.Context, hookID int64, userID, hookText string, isPublic bool) error
	DeleteMemoryHook(ctx context.Context, hookID int64, userID string) error
	GetMemoryHooksByWord(ctx context.Context, wordID int64, page, limit int) ([]model.MemoryHook, int, error)
}

type userWords interface {
	SaveToWordbook(ctx context.Context, userID string, wordID, meaningID int64, memoryHookID *int64) (*model.UserWord, error)
	SaveToWordbookByText(ctx context.Context, userID, wordText string, meaningID int64, memoryHookID *int64) (*model.UserWord, error)
	RemoveFromWordbook(ctx context.Context, userID string, userWordsID int64) error
	GetWordbook(ctx context.Context, userID string, page, limit int) ([]model.UserWord, int, error)
}

type users interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, profile model.ProfileUpdate) error
	DeleteUser(ctx context.Context, userID string) error
	RecoverUser(ctx context.Context, userID string) error
}

// IBackend is every remote operation the sync engine and the write paths depend on.
type IBackend interface {
	words
	meanings
	memoryHooks
	userWords
	users
}
