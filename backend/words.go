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
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/withhook/hooksync/internal/apierror"
	"github.com/withhook/hooksync/model"
)

// GetWordByText looks a word up by its lower-cased text.
func (c *Client) GetWordByText(ctx context.Context, wordText string) (_ *model.Word, err error) {
	ctx, end := startSpan(ctx, "backend.GetWordByText")
	defer end(&err)

	return c.getWord(ctx, strings.ToLower(strings.TrimSpace(wordText)))
}

func (c *Client) getWord(ctx context.Context, word string) (*model.Word, error) {
	var rows []model.Word
	if _, err := c.selectRows(ctx, "words", newFilter().eq("word", word).page(1, 1), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound("word")
	}
	return &rows[0], nil
}

// FindOrCreateWord returns the stored word for wordText, inserting it first if needed.
func (c *Client) FindOrCreateWord(ctx context.Context, wordText string) (_ *model.Word, err error) {
	word := NormalizeWord(wordText)
	ctx, end := startSpan(ctx, "backend.FindOrCreateWord", attribute.String("word", word))
	defer end(&err)

	if word == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "word text is empty", nil)
	}

	existing, err := c.getWord(ctx, word)
	if err == nil {
		return existing, nil
	}
	if apierror.CodeOf(err) != apierror.ErrNotFound {
		return nil, err
	}

	var created []model.Word
	_, err = c.do(ctx, http.MethodPost, "words", nil, map[string]interface{}{"word": word}, &created, preferRepresentation)
	if apierror.CodeOf(err) == apierror.ErrConflict {
		// inserted concurrently by another client
		return c.getWord(ctx, word)
	}
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "word insert returned no row", word)
	}
	logrus.WithFields(logrus.Fields{"word": word, "word_id": created[0].WordID}).Debug("created word")
	return &created[0], nil
}
