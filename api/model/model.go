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

package model

import (
	"encoding/json"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/withhook/hooksync/model"
)

// EnqueueMutation is the body of POST /queue.
type EnqueueMutation struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func payloadIsObject(value interface{}) error {
	raw, _ := value.(json.RawMessage)
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return errors.New("payload must be a JSON object")
	}
	return nil
}

// ValidateEnqueueMutation checks the envelope and, for known types, the payload itself. Unknown
// types are accepted so that records from newer clients can be staged.
func (e *EnqueueMutation) ValidateEnqueueMutation() error {
	err := validation.ValidateStruct(e,
		validation.Field(&e.Type, validation.Required),
		validation.Field(&e.Payload, validation.By(payloadIsObject)),
	)
	if err != nil {
		return err
	}
	if !model.MutationType(e.Type).Known() {
		return nil
	}
	m, err := model.Decode(model.MutationType(e.Type), e.Payload)
	if err != nil {
		return err
	}
	return m.Validate()
}

// QueueSize is the body of GET /queue/size.
type QueueSize struct {
	Pending     int `json:"pending"`
	DeadLetters int `json:"dead_letters"`
}

// DrainResult is the body of POST /queue/drain.
type DrainResult struct {
	Processed []string `json:"processed"`
	Skipped   bool     `json:"skipped"`
	Remaining int      `json:"remaining"`
}
