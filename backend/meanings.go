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

const meaningsTable = "meanings"

func (c *Client) CreateMeaning(ctx context.Context, userID string, wordID int64, meaningText string, isPublic bool) (_ *model.Meaning, err error) {
	ctx, end := startSpan(ctx, "backend.CreateMeaning", attribute.Int64("word_id", wordID))
	defer end(&err)

	body := map[string]interface{}{
		"user_id":   userID,
		"word_id":   wordID,
		"meaning":   SanitizeInput(meaningText),
		"is_public": isPublic,
	}
	var created []model.Meaning
	if _, err = c.do(ctx, http.MethodPost, meaningsTable, nil, body, &created, preferRepresentation); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "meaning insert returned no row", nil)
	}
	return &created[0], nil
}

// CreateMeaningByWordText resolves the headword first, creating it when it does not exist yet.
func (c *Client) CreateMeaningByWordText(ctx context.Context, userID, wordText, meaningText string, isPublic bool) (*model.Meaning, error) {
	word, err := c.FindOrCreateWord(ctx, wordText)
	if err != nil {
		return nil, err
	}
	return c.CreateMeaning(ctx, userID, word.WordID, meaningText, isPublic)
}

// UpdateMeaning rewrites a meaning owned by userID. Matching no row is not an error.
func (c *Client) UpdateMeaning(ctx context.Context, meaningID int64, userID, meaningText string, isPublic bool) (err error) {
	ctx, end := startSpan(ctx, "backend.UpdateMeaning", attribute.Int64("meaning_id", meaningID))
	defer end(&err)

	return c.update(ctx, meaningsTable,
		newFilter().eq("meaning_id", meaningID).eq("user_id", userID),
		map[string]interface{}{
			"meaning":    SanitizeInput(meaningText),
			"is_public":  isPublic,
			"updated_at": c.timestamp(),
		})
}

// DeleteMeaning soft deletes a meaning and marks its text as removed by the user.
// Deleting an already deleted meaning succeeds.
func (c *Client) DeleteMeaning(ctx context.Context, meaningID int64, userID string) (err error) {
	ctx, end := startSpan(ctx, "backend.DeleteMeaning", attribute.Int64("meaning_id", meaningID))
	defer end(&err)

	f := newFilter().eq("meaning_id", meaningID).eq("user_id", userID)
	var rows []model.Meaning
	if _, err = c.selectRows(ctx, meaningsTable, f, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return notFound("meaning")
	}
	if rows[0].DeletedAt != nil {
		return nil
	}

	now := c.timestamp()
	return c.update(ctx, meaningsTable,
		newFilter().eq("meaning_id", meaningID).eq("user_id", userID),
		map[string]interface{}{
			"meaning":    markDeleted(meaningDeletionPrefix, rows[0].Meaning),
			"deleted_at": now,
			"updated_at": now,
		})
}

// GetMeaningsByWord pages through the live meanings of a word, newest first.
func (c *Client) GetMeaningsByWord(ctx context.Context, wordID int64, page, limit int) (_ []model.Meaning, _ int, err error) {
	ctx, end := startSpan(ctx, "backend.GetMeaningsByWord", attribute.Int64("word_id", wordID))
	defer end(&err)

	f := newFilter().eq("word_id", wordID).isNull("deleted_at").order("created_at.desc").page(page, limit)
	rows := []model.Meaning{}
	resp, err := c.do(ctx, http.MethodGet, meaningsTable, withSelect(f), nil, &rows, preferCountExact)
	if err != nil {
		return nil, 0, err
	}
	return rows, totalFromContentRange(resp, len(rows)), nil
}
