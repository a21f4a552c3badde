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

package hooksync

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/withhook/hooksync/model"
)

// legacyRecord is the version 0 layout: arguments under "data" and no schema version.
type legacyRecord struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Data          json.RawMessage `json:"data"`
	Payload       json.RawMessage `json:"payload"`
	Timestamp     int64           `json:"timestamp"`
	SchemaVersion int             `json:"schema_version"`
}

// legacyProfileUpdate nests the user fields one level deeper, in their column names.
type legacyProfileUpdate struct {
	UserID string `json:"userId"`
	Data   struct {
		Nickname     *string `json:"nickname"`
		ProfileImage *string `json:"profile_image"`
	} `json:"data"`
}

// Migrate rewrites records persisted by older versions into the current layout. Records that are
// already current keep their content. It returns the number of records rewritten or dropped.
func (q *MutationQueue) Migrate(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	raw, err := q.store.Get(ctx, q.key)
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, err
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		logrus.WithError(err).Error("stored queue is corrupt, skipping migration")
		return 0, nil
	}

	records := make([]model.MutationRecord, 0, len(entries))
	migrated := 0
	for _, entry := range entries {
		var head legacyRecord
		if err := json.Unmarshal(entry, &head); err != nil {
			logrus.WithError(err).Warn("dropping unreadable queued mutation")
			migrated++
			continue
		}
		if head.SchemaVersion >= model.CurrentSchemaVersion {
			var record model.MutationRecord
			if err := json.Unmarshal(entry, &record); err != nil {
				logrus.WithError(err).WithField("mutation_id", head.ID).Warn("dropping unreadable queued mutation")
				migrated++
				continue
			}
			records = append(records, record)
			continue
		}

		record, err := upgradeLegacy(head)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"mutation_id": head.ID,
				"type":        head.Type,
			}).Warn("dropping queued mutation that cannot be migrated")
			migrated++
			continue
		}
		records = append(records, record)
		migrated++
	}

	if migrated == 0 {
		return 0, nil
	}
	if err := q.save(ctx, q.key, records); err != nil {
		return 0, err
	}
	logrus.WithField("count", migrated).Info("migrated queued mutations to the current schema")
	return migrated, nil
}

func upgradeLegacy(old legacyRecord) (model.MutationRecord, error) {
	payload := old.Payload
	if len(payload) == 0 {
		payload = old.Data
	}
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	if model.MutationType(old.Type) == model.TypeUpdateProfile {
		var legacy legacyProfileUpdate
		if err := json.Unmarshal(payload, &legacy); err != nil {
			return model.MutationRecord{}, err
		}
		if legacy.Data.Nickname != nil || legacy.Data.ProfileImage != nil {
			flat, err := json.Marshal(model.UpdateProfile{
				UserID:       legacy.UserID,
				Nickname:     legacy.Data.Nickname,
				ProfileImage: legacy.Data.ProfileImage,
			})
			if err != nil {
				return model.MutationRecord{}, err
			}
			payload = flat
		}
	}

	record := model.MutationRecord{
		ID:            old.ID,
		Type:          model.MutationType(old.Type),
		Payload:       payload,
		Timestamp:     old.Timestamp,
		SchemaVersion: model.CurrentSchemaVersion,
	}
	if record.ID == "" {
		record.ID = model.GenerateUUIDWithSuffix("mut")
	}
	if record.Timestamp == 0 {
		record.Timestamp = model.NowMillis()
	}
	return record, nil
}
