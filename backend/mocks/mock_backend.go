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
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/withhook/hooksync/model"
)

// MockBackend is a mock implementation of the IBackend interface
type MockBackend struct {
	mock.Mock
}

func get[T any](args mock.Arguments, i int) *T {
	v, _ := args.Get(i).(*T)
	return v
}

// Word methods

func (m *MockBackend) GetWordByText(ctx context.Context, wordText string) (*model.Word, error) {
	args := m.Called(ctx, wordText)
	return get[model.Word](args, 0), args.Error(1)
}

func (m *MockBackend) FindOrCreateWord(ctx context.Context, wordText string) (*model.Word, error) {
	args := m.Called(ctx, wordText)
	return get[model.Word](args, 0), args.Error(1)
}

// Meaning methods

func (m *MockBackend) CreateMeaning(ctx context.Context, userID string, wordID int64, meaningText string, isPublic bool) (*model.Meaning, error) {
	args := m.Called(ctx, userID, wordID, meaningText, isPublic)
	return get[model.Meaning](args, 0), args.Error(1)
}

func (m *MockBackend) CreateMeaningByWordText(ctx context.Context, userID, wordText, meaningText string, isPublic bool) (*model.Meaning, error) {
	args := m.Called(ctx, userID, wordText, meaningText, isPublic)
	return get[model.Meaning](args, 0), args.Error(1)
}

func (m *MockBackend) UpdateMeaning(ctx context.Context, meaningID int64, userID, meaningText string, isPublic bool) error {
	args := m.Called(ctx, meaningID, userID, meaningText, isPublic)
	return args.Error(0)
}

func (m *MockBackend) DeleteMeaning(ctx context.Context, meaningID int64, userID string) error {
	args := m.Called(ctx, meaningID, userID)
	return args.Error(0)
}

func (m *MockBackend) GetMeaningsByWord(ctx context.Context, wordID int64, page, limit int) ([]model.Meaning, int, error) {
	args := m.Called(ctx, wordID, page, limit)
	rows, _ := args.Get(0).([]model.Meaning)
	return rows, args.Int(1), args.Error(2)
}

// Memory hook methods

func (m *MockBackend) CreateMemoryHook(ctx context.Context, userID string, wordID int64, hookText string, isPublic bool) (*model.MemoryHook, error) {
	args := m.Called(ctx, userID, wordID, hookText, isPublic)
	return get[model.MemoryHook](args, 0), args.Error(1)
}

func (m *MockBackend) CreateMemoryHookByWordText(ctx context.Context, userID, wordText, hookText string, isPublic bool) (*model.MemoryHook, error) {
	args := m.Called(ctx, userID, wordText, hookText, isPublic)
	return get[model.MemoryHook](args, 0), args.Error(1)
}

func (m *MockBackend) UpdateMemoryHook(ctx context.Context, hookID int64, userID, hookText string, isPublic bool) error {
	args := m.Called(ctx, hookID, userID, hookText, isPublic)
	return args.Error(0)
}

func (m *MockBackend) DeleteMemoryHook(ctx context.Context, hookID int64, userID string) error {
	args := m.Called(ctx, hookID, userID)
	return args.Error(0)
}

func (m *MockBackend) GetMemoryHooksByWord(ctx context.Context, wordID int64, page, limit int) ([]model.MemoryHook, int, error) {
	args := m.Called(ctx, wordID, page, limit)
	rows, _ := args.Get(0).([]model.MemoryHook)
	return rows, args.Int(1), args.Error(2)
}

// Wordbook methods

func (m *MockBackend) SaveToWordbook(ctx context.Context, userID string, wordID, meaningID int64, memoryHookID *int64) (*model.UserWord, error) {
	args := m.Called(ctx, userID, wordID, meaningID, memoryHookID)
	return get[model.UserWord](args, 0), args.Error(1)
}

func (m *MockBackend) SaveToWordbookByText(ctx context.Context, userID, wordText string, meaningID int64, memoryHookID *int64) (*model.UserWord, error) {
	args := m.Called(ctx, userID, wordText, meaningID, memoryHookID)
	return get[model.UserWord](args, 0), args.Error(1)
}

func (m *MockBackend) RemoveFromWordbook(ctx context.Context, userID string, userWordsID int64) error {
	args := m.Called(ctx, userID, userWordsID)
	return args.Error(0)
}

func (m *MockBackend) GetWordbook(ctx context.Context, userID string, page, limit int) ([]model.UserWord, int, error) {
	args := m.Called(ctx, userID, page, limit)
	rows, _ := args.Get(0).([]model.UserWord)
	return rows, args.Int(1), args.Error(2)
}

// User methods

func (m *MockBackend) GetUser(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	return get[model.User](args, 0), args.Error(1)
}

func (m *MockBackend) UpdateProfile(ctx context.Context, userID string, profile model.ProfileUpdate) error {
	args := m.Called(ctx, userID, profile)
	return args.Error(0)
}

func (m *MockBackend) DeleteUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockBackend) RecoverUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
