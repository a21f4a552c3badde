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

package notification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withhook/hooksync/model"
)

const webhookURL = "https://hooks.slack.com/services/T000/B000/XXXX"

func testRecord() model.MutationRecord {
	return model.MutationRecord{
		ID:        "mut_1",
		Type:      model.TypeDeleteMeaning,
		Attempts:  10,
		LastError: "NOT_FOUND: meaning not found",
	}
}

func TestSendDeadLetter(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	var body string
	httpmock.RegisterResponder(http.MethodPost, webhookURL, func(req *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
		return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
	})

	n := NewNotifier("Hooksync", webhookURL, client)
	require.NoError(t, n.SendDeadLetter(context.Background(), testRecord()))

	var msg slackMessage
	require.NoError(t, json.Unmarshal([]byte(body), &msg))
	require.Len(t, msg.Blocks, 4)
	assert.Equal(t, "header", msg.Blocks[0].Type)
	assert.Contains(t, msg.Blocks[0].Text.Text, "Hooksync")
	assert.True(t, strings.Contains(body, "mut_1"))
	assert.True(t, strings.Contains(body, "deleteMeaning"))
}

func TestSendDeadLetter_WebhookFailure(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, webhookURL, httpmock.NewStringResponder(http.StatusForbidden, "invalid_token"))

	n := NewNotifier("Hooksync", webhookURL, client)
	assert.Error(t, n.SendDeadLetter(context.Background(), testRecord()))
}

func TestNotifyDeadLetter_Async(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, webhookURL, httpmock.NewStringResponder(http.StatusOK, "ok"))

	n := NewNotifier("Hooksync", webhookURL, client)
	n.NotifyDeadLetter(testRecord())
	n.Wait()

	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestNotifyDeadLetter_NoWebhook(t *testing.T) {
	n := NewNotifier("Hooksync", "", nil)
	n.NotifyDeadLetter(testRecord())
	n.Wait()
	assert.NoError(t, n.SendDeadLetter(context.Background(), testRecord()))
}
