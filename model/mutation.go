package model

import (
	"encoding/json"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type MutationType string

const (
	TypeCreateMeaningByWordText    MutationType = "createMeaningByWordText"
	TypeCreateMeaning              MutationType = "createMeaning"
	TypeUpdateMeaning              MutationType = "updateMeaning"
	TypeDeleteMeaning              MutationType = "deleteMeaning"
	TypeCreateMemoryHookByWordText MutationType = "createMemoryHookByWordText"
	TypeCreateMemoryHook           MutationType = "createMemoryHook"
	TypeUpdateMemoryHook           MutationType = "updateMemoryHook"
	TypeDeleteMemoryHook           MutationType = "deleteMemoryHook"
	TypeSaveToWordbook             MutationType = "saveToWordbook"
	TypeSaveToWordbookByText       MutationType = "saveToWordbookByText"
	TypeRemoveFromWordbook         MutationType = "removeFromWordbook"
	TypeUpdateProfile              MutationType = "updateProfile"
	TypeDeleteUser                 MutationType = "deleteUser"
)

// Category names a group of cached query results that a mutation makes stale.
type Category string

const (
	CategoryMeanings    Category = "meanings"
	CategoryMemoryHooks Category = "memoryHooks"
	CategoryUserWords   Category = "userWords"
	CategoryUsers       Category = "users"
)

const (
	MaxWordLength     = 50
	MaxMeaningLength  = 500
	MaxHookLength     = 500
	MaxNicknameLength = 30
)

var ErrUnknownMutationType = errors.New("unknown mutation type")

var categories = map[MutationType]Category{
	TypeCreateMeaningByWordText:    CategoryMeanings,
	TypeCreateMeaning:              CategoryMeanings,
	TypeUpdateMeaning:              CategoryMeanings,
	TypeDeleteMeaning:              CategoryMeanings,
	TypeCreateMemoryHookByWordText: CategoryMemoryHooks,
	TypeCreateMemoryHook:           CategoryMemoryHooks,
	TypeUpdateMemoryHook:           CategoryMemoryHooks,
	TypeDeleteMemoryHook:           CategoryMemoryHooks,
	TypeSaveToWordbook:             CategoryUserWords,
	TypeSaveToWordbookByText:       CategoryUserWords,
	TypeRemoveFromWordbook:         CategoryUserWords,
	TypeUpdateProfile:              CategoryUsers,
	TypeDeleteUser:                 CategoryUsers,
}

// CategoryOf reports the cache category invalidated by a successful mutation of type t.
func CategoryOf(t MutationType) (Category, bool) {
	c, ok := categories[t]
	return c, ok
}

// Known reports whether t belongs to the mutation catalog.
func (t MutationType) Known() bool {
	_, ok := categories[t]
	return ok
}

// MutationTypes lists every catalog entry.
func MutationTypes() []MutationType {
	types := make([]MutationType, 0, len(categories))
	for t := range categories {
		types = append(types, t)
	}
	return types
}

// Mutation is a single deferred write. The set of implementations is closed to this package.
type Mutation interface {
	Type() MutationType
	Category() Category
	Validate() error
	mutation()
}

type CreateMeaningByWordText struct {
	UserID      string `json:"userId"`
	WordText    string `json:"wordText"`
	MeaningText string `json:"meaningText"`
	IsPublic    bool   `json:"isPublic"`
}

type CreateMeaning struct {
	UserID      string `json:"userId"`
	WordID      int64  `json:"wordId"`
	MeaningText string `json:"meaningText"`
	IsPublic    bool   `json:"isPublic"`
}

type UpdateMeaning struct {
	MeaningID   int64  `json:"meaningId"`
	UserID      string `json:"userId"`
	MeaningText string `json:"meaningText"`
	IsPublic    bool   `json:"isPublic"`
}

type DeleteMeaning struct {
	MeaningID int64  `json:"meaningId"`
	UserID    string `json:"userId"`
}

type CreateMemoryHookByWordText struct {
	UserID   string `json:"userId"`
	WordText string `json:"wordText"`
	HookText string `json:"hookText"`
	IsPublic bool   `json:"isPublic"`
}

type CreateMemoryHook struct {
	UserID   string `json:"userId"`
	WordID   int64  `json:"wordId"`
	HookText string `json:"hookText"`
	IsPublic bool   `json:"isPublic"`
}

type UpdateMemoryHook struct {
	HookID   int64  `json:"hookId"`
	UserID   string `json:"userId"`
	HookText string `json:"hookText"`
	IsPublic bool   `json:"isPublic"`
}

type DeleteMemoryHook struct {
	HookID int64  `json:"hookId"`
	UserID string `json:"userId"`
}

type SaveToWordbook struct {
	UserID       string `json:"userId"`
	WordID       int64  `json:"wordId"`
	MeaningID    int64  `json:"meaningId"`
	MemoryHookID *int64 `json:"memoryHookId,omitempty"`
}

type SaveToWordbookByText struct {
	UserID       string `json:"userId"`
	WordText     string `json:"wordText"`
	MeaningID    int64  `json:"meaningId"`
	MemoryHookID *int64 `json:"memoryHookId,omitempty"`
}

type RemoveFromWordbook struct {
	UserID      string `json:"userId"`
	UserWordsID int64  `json:"userWordsId"`
}

type UpdateProfile struct {
	UserID       string  `json:"userId"`
	Nickname     *string `json:"nickname,omitempty"`
	ProfileImage *string `json:"profileImage,omitempty"`
}

type DeleteUser struct {
	UserID string `json:"userId"`
}

func (CreateMeaningByWordText) Type() MutationType    { return TypeCreateMeaningByWordText }
func (CreateMeaning) Type() MutationType              { return TypeCreateMeaning }
func (UpdateMeaning) Type() MutationType              { return TypeUpdateMeaning }
func (DeleteMeaning) Type() MutationType              { return TypeDeleteMeaning }
func (CreateMemoryHookByWordText) Type() MutationType { return TypeCreateMemoryHookByWordText }
func (CreateMemoryHook) Type() MutationType           { return TypeCreateMemoryHook }
func (UpdateMemoryHook) Type() MutationType           { return TypeUpdateMemoryHook }
func (DeleteMemoryHook) Type() MutationType           { return TypeDeleteMemoryHook }
func (SaveToWordbook) Type() MutationType             { return TypeSaveToWordbook }
func (SaveToWordbookByText) Type() MutationType       { return TypeSaveToWordbookByText }
func (RemoveFromWordbook) Type() MutationType         { return TypeRemoveFromWordbook }
func (UpdateProfile) Type() MutationType              { return TypeUpdateProfile }
func (DeleteUser) Type() MutationType                 { return TypeDeleteUser }

func (CreateMeaningByWordText) Category() Category    { return CategoryMeanings }
func (CreateMeaning) Category() Category              { return CategoryMeanings }
func (UpdateMeaning) Category() Category              { return CategoryMeanings }
func (DeleteMeaning) Category() Category              { return CategoryMeanings }
func (CreateMemoryHookByWordText) Category() Category { return CategoryMemoryHooks }
func (CreateMemoryHook) Category() Category           { return CategoryMemoryHooks }
func (UpdateMemoryHook) Category() Category           { return CategoryMemoryHooks }
func (DeleteMemoryHook) Category() Category           { return CategoryMemoryHooks }
func (SaveToWordbook) Category() Category             { return CategoryUserWords }
func (SaveToWordbookByText) Category() Category       { return CategoryUserWords }
func (RemoveFromWordbook) Category() Category         { return CategoryUserWords }
func (UpdateProfile) Category() Category              { return CategoryUsers }
func (DeleteUser) Category() Category                 { return CategoryUsers }

func (CreateMeaningByWordText) mutation()    {}
func (CreateMeaning) mutation()              {}
func (UpdateMeaning) mutation()              {}
func (DeleteMeaning) mutation()              {}
func (CreateMemoryHookByWordText) mutation() {}
func (CreateMemoryHook) mutation()           {}
func (UpdateMemoryHook) mutation()           {}
func (DeleteMemoryHook) mutation()           {}
func (SaveToWordbook) mutation()             {}
func (SaveToWordbookByText) mutation()       {}
func (RemoveFromWordbook) mutation()         {}
func (UpdateProfile) mutation()              {}
func (DeleteUser) mutation()                 {}

func (m CreateMeaningByWordText) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.UserID, validation.Required),
		validation.Field(&m.WordText, validation.Required, validation.RuneLength(1, MaxWordLength)),
		validation.Field(&m.MeaningText, validation.Required, validation.RuneLength(1, MaxMeaningLength)),
	)
}

func (m CreateMeaning) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.UserID, validation.Required),
		validation.Field(&m.WordID, validation.Required),
		validation.Field(&m.MeaningText, validation.Required, validation.RuneLength(1, MaxMeaningLength)),
	)
}

func (m UpdateMeaning) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.MeaningID, validation.Required),
		validation.Field(&m.UserID, validation.Required),
		validation.Field(&m.MeaningText, validation.Required, validation.RuneLength(1, MaxMeaningLength)),
	)
}

func (m DeleteMeaning) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.MeaningID, validation.Required),
		validation.Field(&m.UserID, validation.Required),
	)
}

func (m CreateMemoryHookByWordText) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.UserID, validation.Required),
		validation.Field(&m.WordText, validation.Required, validation.RuneLength(1, MaxWordLength)),
		validation.Field(&m.HookText, validation.Required, validation.RuneLength(1, MaxHookLength)),
	)
}

func (m CreateMemoryHook) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.UserID, validation.Required),
		validation.Field(&m.WordID, validation.Required),
		validation.Field(&m.HookText, validation.Required, validation.RuneLength(1, MaxHookLength)),
	)
}

func (m UpdateMemoryHook) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.HookID, validation.Required),
		validation.Field(&m.UserID, validation.Required),
		validation.Field(&m.HookText, validation.Required, validation.RuneLength(1, MaxHookLength)),
	)
}

func (m DeleteMemoryHook) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.HookID, validation.Required),
		validation.Field(&m.UserID, validation.Required),
	)
}

func (m SaveToWordbook) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.UserID, validation.Required),
		validation.Field(&m.WordID, validation.Required),
		validation.Field(&m.MeaningID, validation.Required),
	)
}

func (m SaveToWordbookByText) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.UserID, validation.Required),
		validation.Field(&m.WordText, validation.Required, validation.RuneLength(1, MaxWordLength)),
		validation.Field(&m.MeaningID, validation.Required),
	)
}

func (m RemoveFromWordbook) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.UserID, validation.Required),
		validation.Field(&m.UserWordsID, validation.Required),
	)
}

func (m UpdateProfile) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.UserID, validation.Required),
		validation.Field(&m.Nickname, validation.NilOrNotEmpty, validation.RuneLength(1, MaxNicknameLength)),
		validation.Field(&m.ProfileImage, validation.By(func(value interface{}) error {
			if m.Nickname == nil && m.ProfileImage == nil {
				return errors.New("at least one profile field is required")
			}
			return nil
		})),
	)
}

func (m DeleteUser) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.UserID, validation.Required),
	)
}

// Profile converts the mutation into the fields sent to the backend.
func (m UpdateProfile) Profile() ProfileUpdate {
	return ProfileUpdate{Nickname: m.Nickname, ProfileImage: m.ProfileImage}
}

func decodeAs[T Mutation](payload json.RawMessage) (Mutation, error) {
	var v T
	if len(payload) == 0 {
		return nil, errors.New("empty payload")
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Decode turns a stored type and payload back into its mutation variant.
// It returns ErrUnknownMutationType when t is not in the catalog.
func Decode(t MutationType, payload json.RawMessage) (Mutation, error) {
	var (
		m   Mutation
		err error
	)
	switch t {
	case TypeCreateMeaningByWordText:
		m, err = decodeAs[CreateMeaningByWordText](payload)
	case TypeCreateMeaning:
		m, err = decodeAs[CreateMeaning](payload)
	case TypeUpdateMeaning:
		m, err = decodeAs[UpdateMeaning](payload)
	case TypeDeleteMeaning:
		m, err = decodeAs[DeleteMeaning](payload)
	case TypeCreateMemoryHookByWordText:
		m, err = decodeAs[CreateMemoryHookByWordText](payload)
	case TypeCreateMemoryHook:
		m, err = decodeAs[CreateMemoryHook](payload)
	case TypeUpdateMemoryHook:
		m, err = decodeAs[UpdateMemoryHook](payload)
	case TypeDeleteMemoryHook:
		m, err = decodeAs[DeleteMemoryHook](payload)
	case TypeSaveToWordbook:
		m, err = decodeAs[SaveToWordbook](payload)
	case TypeSaveToWordbookByText:
		m, err = decodeAs[SaveToWordbookByText](payload)
	case TypeRemoveFromWordbook:
		m, err = decodeAs[RemoveFromWordbook](payload)
	case TypeUpdateProfile:
		m, err = decodeAs[UpdateProfile](payload)
	case TypeDeleteUser:
		m, err = decodeAs[DeleteUser](payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMutationType, t)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", t, err)
	}
	return m, nil
}
