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
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/withhook/hooksync/internal/apierror"
	"github.com/withhook/hooksync/model"
)

const usersTable = "users"

func (c *Client) GetUser(ctx context.Context, userID string) (_ *model.User, err error) {
	ctx, end := startSpan(ctx, "backend.GetUser")
	defer end(&err)

	var rows []model.User
	if _, err = c.selectRows(ctx, usersTable, newFilter().eq("user_id", userID).page(1, 1), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound("user")
	}
	return &rows[0], nil
}

// UpdateProfile writes the non-empty profile fields.
func (c *Client) UpdateProfile(ctx context.Context, userID string, profile model.ProfileUpdate) (err error) {
	ctx, end := startSpan(ctx, "backend.UpdateProfile")
	defer end(&err)

	changes := map[string]interface{}{}
	if profile.Nickname != nil && strings.TrimSpace(*profile.Nickname) != "" {
		changes["nickname"] = SanitizeInput(*profile.Nickname)
	}
	if profile.ProfileImage != nil && strings.TrimSpace(*profile.ProfileImage) != "" {
		changes["profile_image"] = SanitizeInput(*profile.ProfileImage)
	}
	if len(changes) == 0 {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "no profile fields to update", nil)
	}
	changes["updated_at"] = c.timestamp()
	return c.update(ctx, usersTable, newFilter().eq("user_id", userID), changes)
}

// DeleteUser soft deletes the account and everything it authored. Meanings and hooks keep their
// text behind a deletion marker so RecoverUser can restore them.
func (c *Client) DeleteUser(ctx context.Context, userID string) (err error) {
	ctx, end := startSpan(ctx, "backend.DeleteUser")
	defer end(&err)

	now := c.timestamp()
	if err = c.update(ctx, usersTable, newFilter().eq("user_id", userID), map[string]interface{}{"deleted_at": now}); err != nil {
		return err
	}

	var meanings []model.Meaning
	if _, err = c.selectRows(ctx, meaningsTable, newFilter().eq("user_id", userID).isNull("deleted_at"), &meanings); err != nil {
		return err
	}
	for _, m := range meanings {
		err = c.update(ctx, meaningsTable, newFilter().eq("meaning_id", m.MeaningID), map[string]interface{}{
			"meaning":    markDeleted(meaningDeletionPrefix, m.Meaning),
			"deleted_at": now,
		})
		if err != nil {
			return err
		}
	}

	var hooks []model.MemoryHook
	if _, err = c.selectRows(ctx, memoryHooksTable, newFilter().eq("user_id", userID).isNull("deleted_at"), &hooks); err != nil {
		return err
	}
	for _, h := range hooks {
		err = c.update(ctx, memoryHooksTable, newFilter().eq("memory_hook_id", h.MemoryHookID), map[string]interface{}{
			"memory_hook": markDeleted(hookDeletionPrefix, h.MemoryHook),
			"deleted_at":  now,
		})
		if err != nil {
			return err
		}
	}

	err = c.update(ctx, userWordsTable, newFilter().eq("user_id", userID).isNull("deleted_at"),
		map[string]interface{}{"deleted_at": now})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"meanings":     len(meanings),
		"memory_hooks": len(hooks),
	}).Info("user deleted")
	return nil
}

// RecoverUser undoes DeleteUser.
func (c *Client) RecoverUser(ctx context.Context, userID string) (err error) {
	ctx, end := startSpan(ctx, "backend.RecoverUser")
	defer end(&err)

	if err = c.update(ctx, usersTable, newFilter().eq("user_id", userID), map[string]interface{}{"deleted_at": nil}); err != nil {
		return err
	}

	var meanings []model.Meaning
	if _, err = c.selectRows(ctx, meaningsTable, newFilter().eq("user_id", userID).notNull("deleted_at"), &meanings); err != nil {
		return err
	}
	for _, m := range meanings {
		if !strings.HasPrefix(m.Meaning, meaningDeletionPrefix) {
			continue
		}
		err = c.update(ctx, meaningsTable, newFilter().eq("meaning_id", m.MeaningID), map[string]interface{}{
			"meaning":    restoreDeleted(meaningDeletionPrefix, m.Meaning),
			"deleted_at": nil,
		})
		if err != nil {
			return err
		}
	}

	var hooks []model.MemoryHook
	if _, err = c.selectRows(ctx, memoryHooksTable, newFilter().eq("user_id", userID).notNull("deleted_at"), &hooks); err != nil {
		return err
	}
	for _, h := range hooks {
		if !strings.HasPrefix(h.MemoryHook, hookDeletionPrefix) {
			continue
		}
		err = c.update(ctx, memoryHooksTable, newFilter().eq("memory_hook_id", h.MemoryHookID), map[string]interface{}{
			"memory_hook": restoreDeleted(hookDeletionPrefix, h.MemoryHook),
			"deleted_at":  nil,
		})
		if err != nil {
			return err
		}
	}

	return c.update(ctx, userWordsTable, newFilter().eq("user_id", userID).notNull("deleted_at"),
		map[string]interface{}{"deleted_at": nil})
}
