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
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/withhook/hooksync/internal/apierror"
	"github.com/withhook/hooksync/model"
)

const memoryHooksTable = "memory_hooks"

func (c *Client) CreateMemoryHook(ctx context.Context, userID string, wordID int64, hookText string, isPublic bool) (_ *model.MemoryHook, err error) {
	ctx, end := startSpan(ctx, "backend.CreateMemoryHook", attribute.Int64("word_id", wordID))
	defer end(&err)

	body := map[string]interface{}{
		"user_id":     userID,
		"word_id":     wordID,
		"memory_hook": SanitizeInput(hookText),
		"is_public":   isPublic,
	}
	var created []model.MemoryHook
	if _, err = c.do(ctx, http.MethodPost, memoryHooksTable, nil, body, &created, preferRepresentation); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "memory hook insert returned no row", nil)
	}
	return &created[0], nil
}

func (c *Client) CreateMemoryHookByWordText(ctx context.Context, userID, wordText, hookText string, isPublic bool) (*model.MemoryHook, error) {
	word, err := c.FindOrCreateWord(ctx, wordText)
	if err != nil {
		return nil, err
	}
	return c.CreateMemoryHook(ctx, userID, word.WordID, hookText, isPublic)
}

func (c *Client) UpdateMemoryHook(ctx context.Context, hookID int64, userID, hookText string, isPublic bool) (err error) {
	ctx, end := startSpan(ctx, "backend.UpdateMemoryHook", attribute.Int64("memory_hook_id", hookID))
	defer end(&err)

	return c.update(ctx, memoryHooksTable,
		newFilter().eq("memory_hook_id", hookID).eq("user_id", userID),
		map[string]interface{}{
			"memory_hook": SanitizeInput(hookText),
			"is_public":   isPublic,
			"updated_at":  c.timestamp(),
		})
}

// DeleteMemoryHook soft deletes a hook. Deleting an already deleted hook succeeds.
func (c *Client) DeleteMemoryHook(ctx context.Context, hookID int64, userID string) (err error) {
	ctx, end := startSpan(ctx, "backend.DeleteMemoryHook", attribute.Int64("memory_hook_id", hookID))
	defer end(&err)

	var rows []model.MemoryHook
	if _, err = c.selectRows(ctx, memoryHooksTable, newFilter().eq("memory_hook_id", hookID).eq("user_id", userID), &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return notFound("memory hook")
	}
	if rows[0].DeletedAt != nil {
		return nil
	}

	now := c.timestamp()
	return c.update(ctx, memoryHooksTable,
		newFilter().eq("memory_hook_id", hookID).eq("user_id", userID),
		map[string]interface{}{
			"memory_hook": markDeleted(hookDeletionPrefix, rows[0].MemoryHook),
			"deleted_at":  now,
			"updated_at":  now,
		})
}

func (c *Client) GetMemoryHooksByWord(ctx context.Context, wordID int64, page, limit int) (_ []model.MemoryHook, _ int, err error) {
	ctx, end := startSpan(ctx, "backend.GetMemoryHooksByWord", attribute.Int64("word_id", wordID))
	defer end(&err)

	f := newFilter().eq("word_id", wordID).isNull("deleted_at").order("created_at.desc").page(page, limit)
	rows := []model.MemoryHook{}
	resp, err := c.do(ctx, http.MethodGet, memoryHooksTable, withSelect(f), nil, &rows, preferCountExact)
	if err != nil {
		return nil, 0, err
	}
	return rows, totalFromContentRange(resp, len(rows)), nil
}
