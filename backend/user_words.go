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

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/withhook/hooksync/internal/apierror"
	"github.com/withhook/hooksync/model"
)

const userWordsTable = "user_words"

// SaveToWordbook adds a word to the user's wordbook. An existing live entry for the same word is
// repointed at the given meaning and hook instead of duplicated.
func (c *Client) SaveToWordbook(ctx context.Context, userID string, wordID, meaningID int64, memoryHookID *int64) (_ *model.UserWord, err error) {
	ctx, end := startSpan(ctx, "backend.SaveToWordbook",
		attribute.Int64("word_id", wordID), attribute.Int64("meaning_id", meaningID))
	defer end(&err)

	var existing []model.UserWord
	f := newFilter().eq("user_id", userID).eq("word_id", wordID).isNull("deleted_at").page(1, 1)
	if _, err = c.selectRows(ctx, userWordsTable, f, &existing); err != nil {
		return nil, err
	}

	now := c.timestamp()
	if len(existing) > 0 {
		entry := existing[0]
		var updated []model.UserWord
		_, err = c.do(ctx, http.MethodPatch, userWordsTable,
			newFilter().eq("user_words_id", entry.UserWordsID),
			map[string]interface{}{
				"meaning_id":     meaningID,
				"memory_hook_id": memoryHookID,
				"updated_at":     now,
			}, &updated, preferRepresentation)
		if err != nil {
			return nil, err
		}
		if len(updated) > 0 {
			return &updated[0], nil
		}
		entry.MeaningID = meaningID
		entry.MemoryHookID = memoryHookID
		return &entry, nil
	}

	var created []model.UserWord
	_, err = c.do(ctx, http.MethodPost, userWordsTable, nil, map[string]interface{}{
		"user_id":        userID,
		"word_id":        wordID,
		"meaning_id":     meaningID,
		"memory_hook_id": memoryHookID,
		"updated_at":     now,
	}, &created, preferRepresentation)
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "wordbook insert returned no row", nil)
	}
	logrus.WithFields(logrus.Fields{"word_id": wordID, "user_words_id": created[0].UserWordsID}).Debug("saved to wordbook")
	return &created[0], nil
}

func (c *Client) SaveToWordbookByText(ctx context.Context, userID, wordText string, meaningID int64, memoryHookID *int64) (*model.UserWord, error) {
	word, err := c.FindOrCreateWord(ctx, wordText)
	if err != nil {
		return nil, err
	}
	return c.SaveToWordbook(ctx, userID, word.WordID, meaningID, memoryHookID)
}

func (c *Client) RemoveFromWordbook(ctx context.Context, userID string, userWordsID int64) (err error) {
	ctx, end := startSpan(ctx, "backend.RemoveFromWordbook", attribute.Int64("user_words_id", userWordsID))
	defer end(&err)

	return c.update(ctx, userWordsTable,
		newFilter().eq("user_words_id", userWordsID).eq("user_id", userID),
		map[string]interface{}{"deleted_at": c.timestamp()})
}

// GetWordbook pages through the user's live wordbook entries, newest first.
func (c *Client) GetWordbook(ctx context.Context, userID string, page, limit int) (_ []model.UserWord, _ int, err error) {
	ctx, end := startSpan(ctx, "backend.GetWordbook")
	defer end(&err)

	f := newFilter().eq("user_id", userID).isNull("deleted_at").order("created_at.desc").page(page, limit)
	rows := []model.UserWord{}
	resp, err := c.do(ctx, http.MethodGet, userWordsTable, withSelect(f), nil, &rows, preferCountExact)
	if err != nil {
		return nil, 0, err
	}
	return rows, totalFromContentRange(resp, len(rows)), nil
}
