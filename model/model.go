package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateUUIDWithSuffix generates a UUID prefixed with the given module name.
func GenerateUUIDWithSuffix(module string) string {
	return fmt.Sprintf("%s_%s", module, uuid.New().String())
}

// NowMillis returns the current time in milliseconds since the epoch.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

type User struct {
	UserID       string     `json:"user_id"`
	Nickname     string     `json:"nickname"`
	ProfileImage string     `json:"profile_image"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at"`
}

type Word struct {
	WordID    int64      `json:"word_id"`
	Word      string     `json:"word"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type Meaning struct {
	MeaningID int64      `json:"meaning_id"`
	WordID    int64      `json:"word_id"`
	UserID    string     `json:"user_id"`
	Meaning   string     `json:"meaning"`
	IsPublic  bool       `json:"is_public"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	DeletedAt *time.Time `json:"deleted_at"`
}

type MemoryHook struct {
	MemoryHookID int64      `json:"memory_hook_id"`
	WordID       int64      `json:"word_id"`
	UserID       string     `json:"user_id"`
	MemoryHook   string     `json:"memory_hook"`
	IsPublic     bool       `json:"is_public"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at"`
}

type UserWord struct {
	UserWordsID  int64      `json:"user_words_id"`
	UserID       string     `json:"user_id"`
	WordID       int64      `json:"word_id"`
	MeaningID    int64      `json:"meaning_id"`
	MemoryHookID *int64     `json:"memory_hook_id"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at"`
}

// ProfileUpdate holds the user profile fields that may be changed. Nil fields are left untouched.
type ProfileUpdate struct {
	Nickname     *string `json:"nickname,omitempty"`
	ProfileImage *string `json:"profile_image,omitempty"`
}
