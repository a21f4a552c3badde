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
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/withhook/hooksync/internal/request"
	"github.com/withhook/hooksync/model"
)

// Notifier reports mutations that were given up on. Without a Slack webhook it only logs.
type Notifier struct {
	webhookURL  string
	projectName string
	client      *http.Client
	wg          sync.WaitGroup
}

func NewNotifier(projectName, webhookURL string, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Notifier{webhookURL: webhookURL, projectName: projectName, client: client}
}

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

func deadLetterMessage(project string, record model.MutationRecord, at time.Time) slackMessage {
	return slackMessage{Blocks: []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("Mutation dead-lettered in %s 🪦", project), Emoji: true}},
		{Type: "section", Fields: []slackText{
			{Type: "mrkdwn", Text: fmt.Sprintf("*Mutation:*\n%s", record.ID)},
			{Type: "mrkdwn", Text: fmt.Sprintf("*Type:*\n%s", record.Type)},
		}},
		{Type: "section", Fields: []slackText{
			{Type: "mrkdwn", Text: fmt.Sprintf("*Attempts:*\n%d", record.Attempts)},
			{Type: "mrkdwn", Text: fmt.Sprintf("*Last error:*\n%s", record.LastError)},
		}},
		{Type: "section", Fields: []slackText{
			{Type: "mrkdwn", Text: fmt.Sprintf("*Time:*\n%s", at.Format(time.RFC822))},
		}},
	}}
}

// SendDeadLetter posts the dead-letter message to Slack and waits for the response.
func (n *Notifier) SendDeadLetter(ctx context.Context, record model.MutationRecord) error {
	if n.webhookURL == "" {
		return nil
	}
	payload, err := request.ToJsonReq(deadLetterMessage(n.projectName, record, time.Now()))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, payload)
	if err != nil {
		return err
	}
	_, err = request.Call(n.client, req, nil)
	return err
}

// NotifyDeadLetter logs the record and sends the Slack message in the background.
func (n *Notifier) NotifyDeadLetter(record model.MutationRecord) {
	logrus.WithFields(logrus.Fields{
		"mutation_id": record.ID,
		"type":        record.Type,
		"attempts":    record.Attempts,
		"last_error":  record.LastError,
	}).Error("mutation moved to dead-letter queue")

	if n.webhookURL == "" {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := n.SendDeadLetter(ctx, record); err != nil {
			logrus.WithError(err).Warn("failed to send slack notification")
		}
	}()
}

// Wait blocks until background notifications have been sent.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
